package app

import (
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/metrics"
	"live-quiz-service/internal/protocol"
)

// Dispatcher fans encoded envelopes out to the connections bound to a session.
type Dispatcher struct {
	registry *Registry
	metrics  *metrics.Metrics
	// dropped is invoked, outside any lock, for every connection whose send failed.
	dropped func(Conn)
}

func NewDispatcher(registry *Registry, m *metrics.Metrics, dropped func(Conn)) *Dispatcher {
	if dropped == nil {
		dropped = func(c Conn) { _ = c.Close() }
	}
	return &Dispatcher{registry: registry, metrics: m, dropped: dropped}
}

// Broadcast sends env to every connection bound to code and returns how many accepted it.
func (d *Dispatcher) Broadcast(code domain.SessionCode, env protocol.Outbound) int {
	return d.BroadcastExcept(code, env, nil)
}

// BroadcastExcept is Broadcast skipping one connection.
func (d *Dispatcher) BroadcastExcept(code domain.SessionCode, env protocol.Outbound, skip Conn) int {
	data, err := protocol.Encode(env)
	if err != nil {
		log.Error().Err(err).Str("session", string(code)).Msg("broadcast encode failed")
		return 0
	}

	targets := d.registry.ConnectionsFor(code)
	var failed []Conn
	sent := 0
	for _, c := range targets {
		if c == skip {
			continue
		}
		if err := c.Send(data); err != nil {
			log.Warn().
				Err(err).
				Str("session", string(code)).
				Str("conn", c.ID()).
				Str("type", string(env.MessageType())).
				Msg("send failed, dropping connection")
			failed = append(failed, c)
			continue
		}
		sent++
	}
	d.metrics.Broadcasts.WithLabelValues(string(env.MessageType())).Inc()

	for _, c := range failed {
		d.metrics.SendFailures.Inc()
		d.dropped(c)
	}

	log.Debug().
		Str("session", string(code)).
		Str("type", string(env.MessageType())).
		Int("connections", sent).
		Msg("envelope broadcasted")
	return sent
}

// SendTo delivers env to a single connection.
func (d *Dispatcher) SendTo(c Conn, env protocol.Outbound) error {
	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	if err := c.Send(data); err != nil {
		log.Warn().Err(err).Str("conn", c.ID()).Msg("direct send failed, dropping connection")
		d.metrics.SendFailures.Inc()
		d.dropped(c)
		return err
	}
	return nil
}
