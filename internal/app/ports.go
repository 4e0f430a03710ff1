package app

import (
	"context"

	"live-quiz-service/internal/domain"
)

// Conn is a live bidirectional channel to one client.
// Send must not block for long; implementations queue and report a full queue as an error.
type Conn interface {
	ID() string
	Send(msg []byte) error
	Close() error
}

// GameStateStore owns the live GameState of every active session.
type GameStateStore interface {
	// GetOrCreate returns the state for code, installing a fresh one if absent.
	// created is true only for the caller that installed it.
	GetOrCreate(code domain.SessionCode) (state *GameState, created bool)
	Get(code domain.SessionCode) (*GameState, bool)
	// Remove deletes code only while it still maps to state.
	Remove(code domain.SessionCode, state *GameState) bool
	All() []*GameState
}

// QuestionSource loads the ordered question sequence of a quiz.
type QuestionSource interface {
	QuestionsForQuiz(ctx context.Context, quizID string) ([]domain.QuestionSnapshot, error)
}

// ParticipantRecords persists participants of a session.
type ParticipantRecords interface {
	Create(ctx context.Context, code domain.SessionCode, name string) (domain.Participant, error)
	FindByIdentity(ctx context.Context, id domain.ParticipantID) (domain.Participant, error)
	UpdateScore(ctx context.Context, id domain.ParticipantID, totalScore, correct, total int) error
	MarkStatus(ctx context.Context, id domain.ParticipantID, status domain.ParticipantStatus) error
	// MarkSessionStatus sets status on every participant of code except those already in skip.
	MarkSessionStatus(ctx context.Context, code domain.SessionCode, status domain.ParticipantStatus, skip domain.ParticipantStatus) error
	DeleteBySession(ctx context.Context, code domain.SessionCode) error
	ListBySession(ctx context.Context, code domain.SessionCode) ([]domain.Participant, error)
}

// SessionRecords persists session lifecycle.
type SessionRecords interface {
	FindByCode(ctx context.Context, code domain.SessionCode) (domain.SessionRecord, error)
	MarkStarted(ctx context.Context, code domain.SessionCode) error
	MarkFinished(ctx context.Context, code domain.SessionCode) error
	Delete(ctx context.Context, code domain.SessionCode) error
}

// AnswerRecords decides correctness and stores participant answers.
type AnswerRecords interface {
	IsCorrect(ctx context.Context, questionID, answerID string) (bool, error)
	IsTextCorrect(ctx context.Context, questionID, text string) (bool, error)
	RecordAnswer(ctx context.Context, answer domain.ParticipantAnswer) error
	DeleteBySession(ctx context.Context, code domain.SessionCode) error
}
