package app

import (
	"time"

	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/metrics"
	"live-quiz-service/internal/protocol"
)

const completedMessage = "Quiz completed!"

// NextQuestion advances the session on behalf of the host.
// expected is the index the host saw; nil means the index currently observed.
// A stale expectation is not an error: the race was simply lost to the timer or another press.
func (e *Engine) NextQuestion(code domain.SessionCode, expected *int) error {
	state, ok := e.liveState(code)
	if !ok {
		return domain.ErrSessionGone
	}
	if state.Questions() == nil {
		return domain.ErrQuizNotStarted
	}
	from := state.CurrentIndex()
	if expected != nil {
		from = *expected
	}
	if !e.advance(state, from, metrics.TriggerHost) {
		log.Debug().
			Str("session", string(code)).
			Int("expected", from).
			Int("current", state.CurrentIndex()).
			Msg("stale advance ignored")
	}
	return nil
}

// StartTimer relays the host's countdown signal to every connection of the session, the host included.
// The server-side question timer is not touched.
func (e *Engine) StartTimer(code domain.SessionCode) int {
	msg := protocol.StartTimer{SessionCode: string(code)}
	if state, ok := e.liveState(code); ok {
		if q, ok := state.CurrentQuestion(); ok {
			msg.QuestionID = q.ID
		}
	}
	sent := e.dispatcher.Broadcast(code, protocol.New(protocol.TypeStartTimer, msg))
	log.Debug().Str("session", string(code)).Str("question", msg.QuestionID).Int("connections", sent).Msg("timer start relayed")
	return sent
}

// advance moves the session from expected to expected+1. Only one caller per index can win.
func (e *Engine) advance(state *GameState, expected int, trigger string) bool {
	if state.Terminated() {
		return false
	}
	if !state.index.CompareAndSwap(int64(expected), int64(expected+1)) {
		return false
	}
	e.metrics.Advances.WithLabelValues(trigger).Inc()
	e.enterQuestion(state, expected+1, trigger)
	return true
}

func (e *Engine) enterQuestion(state *GameState, i int, trigger string) {
	qs := state.Questions()
	if i >= len(qs) {
		e.complete(state)
		return
	}

	state.answered.clear()
	state.cancelTimer()
	if state.CurrentIndex() != i {
		return
	}

	q := qs[i]
	limit := q.Duration(e.timeLimit)
	sent := e.dispatcher.Broadcast(state.code, protocol.NewQuestionReveal(q, i, len(qs), int(limit/time.Second)))

	t := e.clock.AfterFunc(limit, func() { e.onTimer(state, i) })
	if !state.armTimer(t, i) {
		t.Stop()
	}

	log.Info().
		Str("session", string(state.code)).
		Str("question", q.ID).
		Int("number", i+1).
		Int("total", len(qs)).
		Str("trigger", trigger).
		Int("connections", sent).
		Dur("time_limit", limit).
		Msg("question revealed")
}

func (e *Engine) onTimer(state *GameState, i int) {
	cur, ok := e.store.Get(state.code)
	if !ok || cur != state {
		return
	}
	if e.advance(state, i, metrics.TriggerTimer) {
		log.Debug().Str("session", string(state.code)).Int("index", i).Msg("question timed out")
	}
}

// complete runs once per state: it finalizes the records, announces the scores and drops the state.
// Record failures are logged; completion itself cannot be undone.
func (e *Engine) complete(state *GameState) {
	if !state.terminate() {
		return
	}
	code := state.code

	if err := e.participants.MarkSessionStatus(e.ctx, code, domain.ParticipantFinished, domain.ParticipantDisconnected); err != nil {
		log.Error().Err(e.collaboratorFailed("finish participants", err)).Str("session", string(code)).Msg("could not finalize participants")
	}
	if err := e.sessions.MarkFinished(e.ctx, code); err != nil {
		log.Error().Err(e.collaboratorFailed("finish session", err)).Str("session", string(code)).Msg("could not finalize session")
	}

	scores := state.Scores()
	e.dispatcher.Broadcast(code, protocol.New(protocol.TypeQuizCompleted, protocol.QuizCompleted{
		Message: completedMessage,
		Scores:  scores,
	}))
	e.dropState(state)

	log.Info().Str("session", string(code)).Int("participants", len(scores)).Msg("quiz completed")
}
