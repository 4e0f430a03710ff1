package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/metrics"
	"live-quiz-service/internal/protocol"
)

const (
	defaultStartingMessage = "Quiz is starting!"
	defaultHostLeftMessage = "Host left. Session terminated."
)

// Join creates a participant record for name, binds c to it and announces the newcomer.
// An unknown session code fails without creating any live state.
func (e *Engine) Join(ctx context.Context, c Conn, code domain.SessionCode, name string) (domain.Participant, error) {
	if _, err := e.sessions.FindByCode(ctx, code); err != nil {
		return domain.Participant{}, e.collaboratorFailed("find session", err)
	}
	p, err := e.participants.Create(ctx, code, name)
	if err != nil {
		return domain.Participant{}, e.collaboratorFailed("create participant", err)
	}

	e.admit(code, p.ID)
	e.registry.Bind(c, code, p.ID)

	e.dispatcher.Broadcast(code, protocol.New(protocol.TypeJoin, protocol.Joined{
		Name:          p.Name,
		ParticipantID: string(p.ID),
		SessionCode:   string(code),
	}))
	log.Info().
		Str("session", string(code)).
		Str("participant", string(p.ID)).
		Str("conn", c.ID()).
		Str("name", p.Name).
		Msg("participant joined")
	return p, nil
}

// Attach binds c to an identity obtained earlier: a participant id issued by Join, or domain.HostID.
func (e *Engine) Attach(ctx context.Context, c Conn, code domain.SessionCode, id domain.ParticipantID) error {
	if id.IsHost() {
		if _, err := e.sessions.FindByCode(ctx, code); err != nil {
			return e.collaboratorFailed("find session", err)
		}
		e.registry.Bind(c, code, id)
		log.Info().Str("session", string(code)).Str("conn", c.ID()).Msg("host attached")
		return nil
	}

	p, err := e.participants.FindByIdentity(ctx, id)
	if err != nil {
		return e.collaboratorFailed("find participant", err)
	}
	if p.SessionCode != code || p.Status == domain.ParticipantDisconnected || p.Status == domain.ParticipantFinished {
		return domain.ErrParticipantNotFound
	}
	e.admit(code, id)
	e.registry.Bind(c, code, id)
	log.Info().
		Str("session", string(code)).
		Str("participant", string(id)).
		Str("conn", c.ID()).
		Msg("participant attached")
	return nil
}

// StartQuiz is the lobby signal: participants move to PLAYING, the session to ACTIVE,
// and everyone but the host is told to get ready.
func (e *Engine) StartQuiz(ctx context.Context, code domain.SessionCode, host Conn, message string) error {
	if err := e.participants.MarkSessionStatus(ctx, code, domain.ParticipantPlaying, domain.ParticipantDisconnected); err != nil {
		return e.collaboratorFailed("mark participants playing", err)
	}
	if err := e.sessions.MarkStarted(ctx, code); err != nil {
		return e.collaboratorFailed("start session", err)
	}
	if message == "" {
		message = defaultStartingMessage
	}
	sent := e.dispatcher.BroadcastExcept(code, protocol.New(protocol.TypeQuizStarting, protocol.QuizStarting{
		Message:     message,
		SessionCode: string(code),
	}), host)
	log.Info().Str("session", string(code)).Int("connections", sent).Msg("quiz starting")
	return nil
}

// StartQuestions loads the quiz snapshot and reveals the first question.
// An empty quizID falls back to the quiz the session record was created for.
func (e *Engine) StartQuestions(ctx context.Context, code domain.SessionCode, quizID string) error {
	record, err := e.sessions.FindByCode(ctx, code)
	if err != nil {
		return e.collaboratorFailed("find session", err)
	}
	if quizID == "" {
		quizID = record.QuizID
	}
	if quizID == "" {
		return fmt.Errorf("%w: quizId is required", domain.ErrProtocol)
	}

	if s, ok := e.liveState(code); ok && s.Questions() != nil {
		return domain.ErrQuizAlreadyStarted
	}
	qs, err := e.questions.QuestionsForQuiz(ctx, quizID)
	if err != nil {
		return e.collaboratorFailed("load questions", err)
	}
	if len(qs) == 0 {
		return domain.ErrNoQuestions
	}
	ordered := make([]domain.QuestionSnapshot, len(qs))
	copy(ordered, qs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	state := e.ensureState(code)
	if !state.installQuestions(ordered) {
		return domain.ErrQuizAlreadyStarted
	}
	log.Info().
		Str("session", string(code)).
		Str("quiz", quizID).
		Int("questions", len(ordered)).
		Msg("questions loaded")
	e.advance(state, notStarted, metrics.TriggerStart)
	return nil
}

// Disconnect handles a closed or failed connection. It is safe to call more than once.
// The participant leaves only when its last bound connection goes.
func (e *Engine) Disconnect(ctx context.Context, c Conn) {
	b, bound := e.registry.Deregister(c)
	_ = c.Close()
	e.syncConnections()
	if !bound {
		return
	}
	if b.Participant.IsHost() {
		log.Info().Str("session", string(b.Code)).Str("conn", c.ID()).Msg("host disconnected")
		return
	}
	if e.registry.Bound(b.Code, b.Participant) {
		log.Info().
			Str("session", string(b.Code)).
			Str("participant", string(b.Participant)).
			Str("conn", c.ID()).
			Msg("participant connection closed, another one is still bound")
		return
	}
	e.leave(ctx, b.Code, b.Participant)
}

// ParticipantLeft is the explicit leave of the participant bound to c.
func (e *Engine) ParticipantLeft(ctx context.Context, c Conn) error {
	b, ok := e.registry.Lookup(c)
	if !ok {
		return domain.ErrNotBound
	}
	if b.Participant.IsHost() {
		return domain.ErrNotParticipant
	}
	e.Disconnect(ctx, c)
	return nil
}

// leave removes a participant from the live session. Once the session has ended the record
// is left as the completion or the host cleanup wrote it.
func (e *Engine) leave(ctx context.Context, code domain.SessionCode, id domain.ParticipantID) {
	state, ok := e.store.Get(code)
	removed, left := false, 0
	if ok && !state.Terminated() {
		if err := e.participants.MarkStatus(ctx, id, domain.ParticipantDisconnected); err != nil {
			log.Warn().
				Err(e.collaboratorFailed("mark participant disconnected", err)).
				Str("session", string(code)).
				Str("participant", string(id)).
				Msg("could not mark participant disconnected")
		}
		removed, left = state.participants.remove(id)
		state.answered.remove(id)
	}

	e.dispatcher.Broadcast(code, protocol.New(protocol.TypeParticipantLeft, protocol.ParticipantLeft{
		ParticipantID: string(id),
	}))
	log.Info().
		Str("session", string(code)).
		Str("participant", string(id)).
		Int("remaining", left).
		Msg("participant left")

	if removed && left == 0 {
		state.terminate()
		e.dropState(state)
		log.Info().Str("session", string(code)).Msg("last participant left, session cleaned up")
	}
}

// HostLeft terminates the session of the host bound to c. Submissions are shut out and records
// cleaned up first; if that fails the session carries on and the host is told why.
func (e *Engine) HostLeft(ctx context.Context, c Conn, message string) error {
	b, err := e.hostBinding(c)
	if err != nil {
		return err
	}
	code := b.Code

	record, err := e.sessions.FindByCode(ctx, code)
	if err != nil {
		return e.collaboratorFailed("find session", err)
	}

	state, ok := e.store.Get(code)
	if ok {
		state.beginClosing()
	}
	abort := func(op string, err error) error {
		if ok {
			state.abortClosing()
		}
		return e.collaboratorFailed(op, err)
	}
	if err := e.answers.DeleteBySession(ctx, code); err != nil {
		return abort("delete answers", err)
	}
	if err := e.participants.DeleteBySession(ctx, code); err != nil {
		return abort("delete participants", err)
	}
	// A session abandoned in the lobby leaves no trace; one that ran is kept as finished.
	if record.Status == domain.SessionWaiting {
		err = e.sessions.Delete(ctx, code)
	} else {
		err = e.sessions.MarkFinished(ctx, code)
	}
	if err != nil {
		return abort("close session", err)
	}

	if ok {
		state.terminate()
	}
	if message == "" {
		message = defaultHostLeftMessage
	}
	sent := e.dispatcher.BroadcastExcept(code, protocol.New(protocol.TypeHostLeft, protocol.HostLeft{
		Message:     message,
		SessionCode: string(code),
	}), c)
	if ok {
		e.dropState(state)
	}

	log.Info().Str("session", string(code)).Int("connections", sent).Msg("host ended the session")
	return nil
}
