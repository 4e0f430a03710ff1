// Package metrics holds the prometheus collectors of the quiz engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "live_quiz"

// Advance triggers.
const (
	TriggerHost  = "host"
	TriggerTimer = "timer"
	TriggerStart = "start"
)

type Metrics struct {
	Connections      prometheus.Gauge
	ActiveSessions   prometheus.Gauge
	Submissions      *prometheus.CounterVec
	Advances         *prometheus.CounterVec
	Broadcasts       *prometheus.CounterVec
	SendFailures     prometheus.Counter
	CollaboratorErrs *prometheus.CounterVec
}

// New creates the engine collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Live websocket connections.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions with in-memory game state.",
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Answer submissions by outcome.",
		}, []string{"result"}),
		Advances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "question_advances_total",
			Help:      "Question transitions by trigger.",
		}, []string{"trigger"}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Envelopes fanned out to a session, by type.",
		}, []string{"type"}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Sends that failed and caused the connection to be dropped.",
		}),
		CollaboratorErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_errors_total",
			Help:      "Failed calls to persistence collaborators, by operation.",
		}, []string{"op"}),
	}
	reg.MustRegister(
		m.Connections,
		m.ActiveSessions,
		m.Submissions,
		m.Advances,
		m.Broadcasts,
		m.SendFailures,
		m.CollaboratorErrs,
	)
	return m
}

// NewNop returns collectors registered on a private registry; handy for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
