package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

const code domain.SessionCode = "482913"

var errStorage = errors.New("storage unavailable")

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// fakeConn records every envelope it is sent.
type fakeConn struct {
	id     string
	broken atomic.Bool
	closed atomic.Bool

	mu   sync.Mutex
	msgs []envelope
}

func newConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(msg []byte) error {
	if c.broken.Load() {
		return errors.New("broken pipe")
	}
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return err
	}
	c.mu.Lock()
	c.msgs = append(c.msgs, env)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.msgs))
	for _, m := range c.msgs {
		out = append(out, m.Type)
	}
	return out
}

func (c *fakeConn) count(typ string) int {
	n := 0
	for _, t := range c.types() {
		if t == typ {
			n++
		}
	}
	return n
}

// last decodes the payload of the most recent envelope of type typ.
func (c *fakeConn) last(t *testing.T, typ string, into any) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.msgs) - 1; i >= 0; i-- {
		if c.msgs[i].Type == typ {
			require.NoError(t, json.Unmarshal(c.msgs[i].Payload, into))
			return
		}
	}
	t.Fatalf("no %s envelope received by %s, got %v", typ, c.id, c.typesLocked())
}

func (c *fakeConn) typesLocked() []string {
	out := make([]string, 0, len(c.msgs))
	for _, m := range c.msgs {
		out = append(out, m.Type)
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.msgs = nil
	c.mu.Unlock()
}

// flakyAnswers fails RecordAnswer on demand. With a gate set, RecordAnswer reports on
// reached and then waits until the gate is closed.
type flakyAnswers struct {
	*memory.Answers
	fail    atomic.Bool
	gate    chan struct{}
	reached chan struct{}
}

func (a *flakyAnswers) hold() {
	a.gate, a.reached = make(chan struct{}), make(chan struct{}, 1)
}

func (a *flakyAnswers) RecordAnswer(ctx context.Context, ans domain.ParticipantAnswer) error {
	if a.gate != nil {
		a.reached <- struct{}{}
		<-a.gate
	}
	if a.fail.Load() {
		return errStorage
	}
	return a.Answers.RecordAnswer(ctx, ans)
}

// flakyParticipants fails DeleteBySession on demand.
type flakyParticipants struct {
	*memory.Participants
	failDelete atomic.Bool
}

func (p *flakyParticipants) DeleteBySession(ctx context.Context, c domain.SessionCode) error {
	if p.failDelete.Load() {
		return errStorage
	}
	return p.Participants.DeleteBySession(ctx, c)
}

type harness struct {
	engine       *app.Engine
	store        *memory.SessionStore
	backend      *memory.Backend
	answers      *flakyAnswers
	participants *flakyParticipants
	clock        *clockwork.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := memory.NewBackend(memory.Fixtures{
		Quizzes:  []domain.Quiz{scenarioQuiz()},
		Sessions: []memory.SessionFixture{{Code: string(code), QuizID: "quiz-1"}},
	})
	h := &harness{
		store:        memory.NewSessionStore(),
		backend:      backend,
		answers:      &flakyAnswers{Answers: backend.Answers},
		participants: &flakyParticipants{Participants: backend.Participants},
		clock:        clockwork.NewFakeClock(),
	}
	h.engine = app.NewEngine(app.Config{
		Store:            h.store,
		Questions:        backend.Catalog,
		Participants:     h.participants,
		Sessions:         backend.Sessions,
		Answers:          h.answers,
		Clock:            h.clock,
		DefaultTimeLimit: 20 * time.Second,
	})
	t.Cleanup(h.engine.Shutdown)
	return h
}

func (h *harness) host(t *testing.T) *fakeConn {
	t.Helper()
	c := newConn("host")
	h.engine.Connect(c)
	require.NoError(t, h.engine.Attach(context.Background(), c, code, domain.HostID))
	return c
}

func (h *harness) join(t *testing.T, name string) (*fakeConn, domain.ParticipantID) {
	t.Helper()
	c := newConn(name)
	h.engine.Connect(c)
	p, err := h.engine.Join(context.Background(), c, code, name)
	require.NoError(t, err)
	return c, p.ID
}

func (h *harness) start(t *testing.T) *app.GameState {
	t.Helper()
	require.NoError(t, h.engine.StartQuestions(context.Background(), code, "quiz-1"))
	state, ok := h.store.Get(code)
	require.True(t, ok)
	return state
}

func (h *harness) submit(participant domain.ParticipantID, questionID, answerID string) (domain.AnswerResult, error) {
	return h.engine.Submit(context.Background(), code, participant, domain.Submission{QuestionID: questionID, AnswerID: answerID})
}

func (h *harness) records(t *testing.T) []domain.Participant {
	t.Helper()
	list, err := h.backend.Participants.ListBySession(context.Background(), code)
	require.NoError(t, err)
	return list
}

// waitIndex waits for the asynchronous timer callback to move the session to index i.
func waitIndex(t *testing.T, state *app.GameState, i int) {
	t.Helper()
	require.Eventually(t, func() bool { return state.CurrentIndex() == i }, 2*time.Second, time.Millisecond,
		fmt.Sprintf("expected index %d, got %d", i, state.CurrentIndex()))
}

func scenarioQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Scenario",
		Questions: []domain.QuestionSnapshot{
			{
				ID:        "q1",
				Text:      "Pick A",
				Order:     1,
				TimeLimit: 10,
				Points:    10,
				Answers: []domain.AnswerOption{
					{ID: "A", Text: "A", Order: 1, Correct: true},
					{ID: "B", Text: "B", Order: 2},
				},
			},
			{
				ID:    "q2",
				Text:  "Name the capital of France",
				Order: 2,
				Type:  domain.QuestionText,
				Answers: []domain.AnswerOption{
					{ID: "paris", Text: "Paris", Correct: true},
				},
			},
			{
				ID:        "q3",
				Text:      "True or false",
				Order:     3,
				TimeLimit: 5,
				Type:      domain.QuestionTrueFalse,
				Answers: []domain.AnswerOption{
					{ID: "T", Text: "True", Correct: true},
					{ID: "F", Text: "False"},
				},
			},
		},
	}
}
