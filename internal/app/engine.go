package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/metrics"
	"live-quiz-service/internal/protocol"
)

// Config carries the dependencies of an Engine.
type Config struct {
	Store        GameStateStore
	Registry     *Registry
	Questions    QuestionSource
	Participants ParticipantRecords
	Sessions     SessionRecords
	Answers      AnswerRecords
	Clock        clockwork.Clock
	Metrics      *metrics.Metrics
	// DefaultTimeLimit applies to questions without their own time limit.
	DefaultTimeLimit time.Duration
}

// Engine runs every live session of the process.
type Engine struct {
	store        GameStateStore
	registry     *Registry
	dispatcher   *Dispatcher
	questions    QuestionSource
	participants ParticipantRecords
	sessions     SessionRecords
	answers      AnswerRecords
	clock        clockwork.Clock
	metrics      *metrics.Metrics
	timeLimit    time.Duration

	handlers map[protocol.MessageType]handler

	// ctx scopes collaborator calls made outside of a client request (timers, cleanup).
	ctx    context.Context
	cancel context.CancelFunc
}

// request identifies who sent a message: the connection and the session code it was opened for.
type request struct {
	conn Conn
	code domain.SessionCode
}

type handler func(ctx context.Context, req request, raw json.RawMessage) error

// handle adapts a typed handler to the dispatch table.
func handle[T any](fn func(ctx context.Context, req request, payload T) error) handler {
	return func(ctx context.Context, req request, raw json.RawMessage) error {
		payload, err := protocol.DecodePayload[T](raw)
		if err != nil {
			return err
		}
		return fn(ctx, req, payload)
	}
}

func NewEngine(cfg Config) *Engine {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNop()
	}
	if cfg.DefaultTimeLimit <= 0 {
		cfg.DefaultTimeLimit = domain.DefaultTimeLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:        cfg.Store,
		registry:     cfg.Registry,
		questions:    cfg.Questions,
		participants: cfg.Participants,
		sessions:     cfg.Sessions,
		answers:      cfg.Answers,
		clock:        cfg.Clock,
		metrics:      cfg.Metrics,
		timeLimit:    cfg.DefaultTimeLimit,
		ctx:          ctx,
		cancel:       cancel,
	}
	e.dispatcher = NewDispatcher(e.registry, e.metrics, func(c Conn) {
		go e.Disconnect(e.ctx, c)
	})
	e.handlers = map[protocol.MessageType]handler{
		protocol.TypeJoin:             handle(e.onJoin),
		protocol.TypeAttach:           handle(e.onAttach),
		protocol.TypeQuizStarting:     handle(e.onQuizStarting),
		protocol.TypeStartQuestions:   handle(e.onStartQuestions),
		protocol.TypeStartTimer:       handle(e.onStartTimer),
		protocol.TypeSubmitAnswer:     handle(e.onSubmitAnswer),
		protocol.TypeHostNextQuestion: handle(e.onHostNextQuestion),
		protocol.TypeParticipantLeft:  handle(e.onParticipantLeft),
		protocol.TypeHostLeft:         handle(e.onHostLeft),
	}
	return e
}

// Registry exposes the connection registry, e.g. for stats endpoints.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Connect registers a freshly opened connection.
func (e *Engine) Connect(c Conn) {
	e.registry.Register(c)
	e.syncConnections()
}

// HandleMessage decodes and dispatches one raw client message.
// Errors are reported to the sender only; they never close the connection.
func (e *Engine) HandleMessage(ctx context.Context, c Conn, code domain.SessionCode, data []byte) {
	in, err := protocol.Decode(data)
	if err != nil {
		e.reject(c, code, "", err)
		return
	}
	h, ok := e.handlers[in.Type]
	if !ok {
		e.reject(c, code, in.Type, fmt.Errorf("%w: unknown type %q", domain.ErrProtocol, in.Type))
		return
	}
	if err := h(ctx, request{conn: c, code: code}, in.Payload); err != nil {
		e.reject(c, code, in.Type, err)
	}
}

func (e *Engine) reject(c Conn, code domain.SessionCode, typ protocol.MessageType, err error) {
	reason := domain.Reason(err)
	var ev *zerolog.Event
	switch reason {
	case domain.ReasonCollaborator, domain.ReasonInternal:
		ev = log.Error()
	case domain.ReasonProtocol, domain.ReasonNotAuthorized:
		ev = log.Warn()
	default:
		ev = log.Debug()
	}
	ev.Err(err).
		Str("session", string(code)).
		Str("conn", c.ID()).
		Str("type", string(typ)).
		Str("reason", reason).
		Msg("message rejected")
	_ = e.dispatcher.SendTo(c, protocol.NewError(err))
}

// Shutdown stops every timer and drops all live state.
func (e *Engine) Shutdown() {
	e.cancel()
	states := e.store.All()
	for _, s := range states {
		s.terminate()
		e.dropState(s)
	}
	log.Info().Int("sessions", len(states)).Msg("engine stopped")
}

func (e *Engine) onJoin(ctx context.Context, req request, p protocol.JoinRequest) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrProtocol)
	}
	_, err := e.Join(ctx, req.conn, req.code, name)
	return err
}

func (e *Engine) onAttach(ctx context.Context, req request, p protocol.AttachRequest) error {
	if p.ParticipantID == "" {
		return fmt.Errorf("%w: participantId is required", domain.ErrProtocol)
	}
	return e.Attach(ctx, req.conn, req.code, domain.ParticipantID(p.ParticipantID))
}

func (e *Engine) onQuizStarting(ctx context.Context, req request, p protocol.QuizStartingRequest) error {
	b, err := e.hostBinding(req.conn)
	if err != nil {
		return err
	}
	return e.StartQuiz(ctx, b.Code, req.conn, p.Message)
}

func (e *Engine) onStartQuestions(ctx context.Context, req request, p protocol.StartQuestionsRequest) error {
	b, err := e.hostBinding(req.conn)
	if err != nil {
		return err
	}
	return e.StartQuestions(ctx, b.Code, p.QuizID)
}

func (e *Engine) onStartTimer(_ context.Context, req request, _ protocol.StartTimerRequest) error {
	b, err := e.hostBinding(req.conn)
	if err != nil {
		return err
	}
	e.StartTimer(b.Code)
	return nil
}

func (e *Engine) onSubmitAnswer(ctx context.Context, req request, p protocol.SubmitAnswerRequest) error {
	b, ok := e.registry.Lookup(req.conn)
	if !ok {
		return domain.ErrNotBound
	}
	if p.QuestionID == "" {
		return fmt.Errorf("%w: questionId is required", domain.ErrProtocol)
	}
	_, err := e.Submit(ctx, b.Code, b.Participant, domain.Submission{
		QuestionID:    p.QuestionID,
		AnswerID:      p.AnswerID,
		Text:          p.Text,
		ClientCorrect: p.IsCorrect,
	})
	return err
}

func (e *Engine) onHostNextQuestion(_ context.Context, req request, p protocol.HostNextQuestionRequest) error {
	b, err := e.hostBinding(req.conn)
	if err != nil {
		return err
	}
	return e.NextQuestion(b.Code, p.QuestionIndex)
}

func (e *Engine) onParticipantLeft(ctx context.Context, req request, _ struct{}) error {
	return e.ParticipantLeft(ctx, req.conn)
}

func (e *Engine) onHostLeft(ctx context.Context, req request, p protocol.HostLeftRequest) error {
	return e.HostLeft(ctx, req.conn, p.Message)
}

// hostBinding returns the binding of c if it is the host of a session.
func (e *Engine) hostBinding(c Conn) (Binding, error) {
	b, ok := e.registry.Lookup(c)
	if !ok {
		return Binding{}, domain.ErrNotBound
	}
	if !b.Participant.IsHost() {
		return Binding{}, domain.ErrNotAuthorized
	}
	return b, nil
}

// liveState returns the state of code if it is still installed, not terminal and not being closed by the host.
func (e *Engine) liveState(code domain.SessionCode) (*GameState, bool) {
	s, ok := e.store.Get(code)
	if !ok || s.Terminated() || s.Closing() {
		return nil, false
	}
	return s, true
}

// ensureState returns a non-terminal state for code, replacing a terminal leftover.
func (e *Engine) ensureState(code domain.SessionCode) *GameState {
	for {
		s, created := e.store.GetOrCreate(code)
		if created {
			e.metrics.ActiveSessions.Inc()
			log.Info().Str("session", string(code)).Msg("game state created")
		}
		if !s.Terminated() {
			return s
		}
		e.dropState(s)
	}
}

// admit adds a participant to the live state of code, retrying if idle cleanup removed it meanwhile.
func (e *Engine) admit(code domain.SessionCode, id domain.ParticipantID) *GameState {
	for {
		s := e.ensureState(code)
		s.participants.add(id)
		s.scores.ensure(id)
		if cur, ok := e.store.Get(code); ok && cur == s && !s.Terminated() {
			return s
		}
	}
}

func (e *Engine) dropState(s *GameState) {
	if e.store.Remove(s.code, s) {
		e.metrics.ActiveSessions.Dec()
		log.Info().Str("session", string(s.code)).Msg("game state removed")
	}
}

func (e *Engine) syncConnections() {
	conns, _ := e.registry.Stats()
	e.metrics.Connections.Set(float64(conns))
}

// collaboratorFailed records and wraps a failed collaborator call.
func (e *Engine) collaboratorFailed(op string, err error) error {
	wrapped := domain.Collaborator(op, err)
	var ce *domain.CollaboratorError
	if errors.As(wrapped, &ce) {
		e.metrics.CollaboratorErrs.WithLabelValues(op).Inc()
	}
	return wrapped
}
