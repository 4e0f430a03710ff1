package domain

import "time"

// SessionCode is the short public code players type in to reach a live quiz run.
type SessionCode string

// ParticipantID is the opaque per-participant token handed out at join time.
type ParticipantID string

// HostID is the reserved identity bound to the host connection. The host is never scored.
const HostID ParticipantID = "HOST"

const (
	DefaultTimeLimit = 30 * time.Second
	DefaultPoints    = 1
)

// IsHost reports whether the identity is the host sentinel.
func (p ParticipantID) IsHost() bool {
	return p == HostID
}

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTrueFalse      QuestionType = "TRUE_FALSE"
	QuestionText           QuestionType = "TEXT"
)

// AnswerOption is one possible answer of a question.
type AnswerOption struct {
	ID      string `json:"id" yaml:"id"`
	Text    string `json:"text" yaml:"text"`
	Order   int    `json:"order" yaml:"order"`
	Correct bool   `json:"correct" yaml:"correct"`
}

// QuestionSnapshot is an immutable copy of a question taken when a session starts.
type QuestionSnapshot struct {
	ID        string         `json:"id" yaml:"id"`
	Text      string         `json:"text" yaml:"text"`
	Image     string         `json:"image,omitempty" yaml:"image"`
	Order     int            `json:"order" yaml:"order"`
	TimeLimit int            `json:"timeLimit" yaml:"timeLimit"` // seconds, defaults to 30 if zero
	Points    int            `json:"points" yaml:"points"`       // defaults to 1 if zero
	Type      QuestionType   `json:"type" yaml:"type"`
	Answers   []AnswerOption `json:"answers" yaml:"answers"`
}

// PointsOrDefault returns the configured points, falling back to DefaultPoints.
func (q QuestionSnapshot) PointsOrDefault() int {
	if q.Points <= 0 {
		return DefaultPoints
	}
	return q.Points
}

// Duration returns the answer window of the question, or fallback if none is configured.
func (q QuestionSnapshot) Duration(fallback time.Duration) time.Duration {
	if q.TimeLimit <= 0 {
		return fallback
	}
	return time.Duration(q.TimeLimit) * time.Second
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID        string             `json:"id" yaml:"id"`
	Title     string             `json:"title" yaml:"title"`
	Questions []QuestionSnapshot `json:"questions" yaml:"questions"`
}

type ParticipantStatus string

const (
	ParticipantWaiting      ParticipantStatus = "WAITING"
	ParticipantReady        ParticipantStatus = "READY"
	ParticipantPlaying      ParticipantStatus = "PLAYING"
	ParticipantFinished     ParticipantStatus = "FINISHED"
	ParticipantDisconnected ParticipantStatus = "DISCONNECTED"
)

// Participant is the persisted record of one player in a session.
type Participant struct {
	ID             ParticipantID
	SessionCode    SessionCode
	Name           string
	Status         ParticipantStatus
	TotalScore     int
	CorrectAnswers int
	TotalAnswers   int
	JoinedAt       time.Time
	FinishedAt     *time.Time
}

type SessionStatus string

const (
	SessionWaiting  SessionStatus = "WAITING"
	SessionActive   SessionStatus = "ACTIVE"
	SessionFinished SessionStatus = "FINISHED"
)

// SessionRecord is the persisted view of a quiz run.
type SessionRecord struct {
	Code       SessionCode
	QuizID     string
	Status     SessionStatus
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// LeaderboardEntry is one participant's line in the session results.
type LeaderboardEntry struct {
	Rank           int               `json:"rank"`
	ParticipantID  ParticipantID     `json:"participantId"`
	Name           string            `json:"username"`
	Score          int               `json:"totalScore"`
	CorrectAnswers int               `json:"correctAnswers"`
	TotalAnswers   int               `json:"totalAnswers"`
	Accuracy       float64           `json:"accuracy"`
	Status         ParticipantStatus `json:"status"`
}

// Leaderboard captures the ordered results of a session.
type Leaderboard struct {
	SessionCode       SessionCode        `json:"sessionPin"`
	QuizID            string             `json:"quizId"`
	Status            SessionStatus      `json:"sessionStatus"`
	TotalParticipants int                `json:"totalParticipants"`
	Entries           []LeaderboardEntry `json:"participants"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// Submission is what a participant sends for the current question.
// ClientCorrect is the client's own guess and never affects scoring.
type Submission struct {
	QuestionID    string
	AnswerID      string
	Text          string
	ClientCorrect bool
}

// ParticipantAnswer is the durable record of an accepted submission.
type ParticipantAnswer struct {
	SessionCode   SessionCode
	ParticipantID ParticipantID
	QuestionID    string
	AnswerID      string
	Text          string
	Correct       bool
	Points        int
	AnsweredAt    time.Time
}

// AnswerResult summarizes an accepted submission.
type AnswerResult struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
	Awarded    int    `json:"awarded"`
	TotalScore int    `json:"totalScore"`
}
