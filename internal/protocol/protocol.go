// Package protocol defines the JSON envelopes exchanged over a live quiz connection.
package protocol

import (
	"encoding/json"
	"fmt"

	"live-quiz-service/internal/domain"
)

// MessageType is the discriminant of an envelope.
type MessageType string

// Inbound message types.
const (
	TypeJoin             MessageType = "JOIN"
	TypeAttach           MessageType = "ATTACH"
	TypeQuizStarting     MessageType = "QUIZ_STARTING"
	TypeStartQuestions   MessageType = "START_QUESTIONS"
	TypeStartTimer       MessageType = "START_TIMER"
	TypeSubmitAnswer     MessageType = "SUBMIT_ANSWER"
	TypeHostNextQuestion MessageType = "HOST_NEXT_QUESTION"
	TypeParticipantLeft  MessageType = "PARTICIPANT_LEFT"
	TypeHostLeft         MessageType = "HOST_LEFT"
)

// Outbound-only message types. JOIN, QUIZ_STARTING, START_TIMER, PARTICIPANT_LEFT and HOST_LEFT are reused.
const (
	TypeFirstQuestion       MessageType = "FIRST_QUESTION"
	TypeNextQuestion        MessageType = "NEXT_QUESTION"
	TypeParticipantAnswered MessageType = "PARTICIPANT_ANSWERED"
	TypeScoreUpdate         MessageType = "SCORE_UPDATE"
	TypeQuizCompleted       MessageType = "QUIZ_COMPLETED"
	TypeError               MessageType = "ERROR"
)

// Inbound is a raw message read from a client; Payload is decoded by the handler for Type.
type Inbound struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Envelope is a typed outbound message.
type Envelope[T any] struct {
	Type    MessageType `json:"type"`
	Payload T           `json:"payload"`
}

// Outbound is any envelope ready to be encoded.
type Outbound interface {
	MessageType() MessageType
}

func (e Envelope[T]) MessageType() MessageType {
	return e.Type
}

// New builds an envelope.
func New[T any](typ MessageType, payload T) Envelope[T] {
	return Envelope[T]{Type: typ, Payload: payload}
}

// Encode marshals an envelope for the wire.
func Encode(env Outbound) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", env.MessageType(), err)
	}
	return data, nil
}

// Decode parses a raw client message. An empty type is a protocol error.
func Decode(data []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", domain.ErrProtocol, err)
	}
	if in.Type == "" {
		return Inbound{}, fmt.Errorf("%w: missing type", domain.ErrProtocol)
	}
	return in, nil
}

// DecodePayload unmarshals a payload into T. An absent payload yields the zero value.
func DecodePayload[T any](raw json.RawMessage) (T, error) {
	var p T
	if len(raw) == 0 || string(raw) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", domain.ErrProtocol, err)
	}
	return p, nil
}

type JoinRequest struct {
	Name string `json:"name"`
}

type AttachRequest struct {
	ParticipantID string `json:"participantId"`
}

type QuizStartingRequest struct {
	Message string `json:"message"`
}

type StartQuestionsRequest struct {
	QuizID string `json:"quizId"`
}

type StartTimerRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

type SubmitAnswerRequest struct {
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId,omitempty"`
	Text       string `json:"text,omitempty"`
	IsCorrect  bool   `json:"isCorrect,omitempty"`
}

type HostNextQuestionRequest struct {
	// QuestionIndex is the 0-based index the host believes is current; nil means "whatever is current".
	QuestionIndex *int `json:"questionIndex,omitempty"`
}

type HostLeftRequest struct {
	Message string `json:"message"`
}

type Joined struct {
	Name          string `json:"name"`
	ParticipantID string `json:"participantId"`
	SessionCode   string `json:"sessionCode"`
}

type QuizStarting struct {
	Message     string `json:"message"`
	SessionCode string `json:"sessionCode"`
}

type AnswerView struct {
	ID    string `json:"id"`
	Text  string `json:"answerText"`
	Order int    `json:"answerOrder"`
}

// QuestionReveal is the payload of FIRST_QUESTION and NEXT_QUESTION. It never carries correctness.
type QuestionReveal struct {
	QuestionID            string       `json:"questionId"`
	QuestionText          string       `json:"questionText"`
	QuestionImage         string       `json:"questionImage,omitempty"`
	QuestionOrder         int          `json:"questionOrder"`
	QuestionType          string       `json:"questionType"`
	TimeLimit             int          `json:"timeLimit"`
	Points                int          `json:"points"`
	CurrentQuestionNumber int          `json:"currentQuestionNumber"`
	TotalQuestions        int          `json:"totalQuestions"`
	Answers               []AnswerView `json:"answers"`
}

// NewQuestionReveal builds the reveal for the question at index (0-based) out of total.
func NewQuestionReveal(q domain.QuestionSnapshot, index, total int, timeLimitSeconds int) Envelope[QuestionReveal] {
	answers := make([]AnswerView, 0, len(q.Answers))
	for _, a := range q.Answers {
		answers = append(answers, AnswerView{ID: a.ID, Text: a.Text, Order: a.Order})
	}
	typ := TypeNextQuestion
	if index == 0 {
		typ = TypeFirstQuestion
	}
	qt := q.Type
	if qt == "" {
		qt = domain.QuestionMultipleChoice
	}
	return New(typ, QuestionReveal{
		QuestionID:            q.ID,
		QuestionText:          q.Text,
		QuestionImage:         q.Image,
		QuestionOrder:         q.Order,
		QuestionType:          string(qt),
		TimeLimit:             timeLimitSeconds,
		Points:                q.PointsOrDefault(),
		CurrentQuestionNumber: index + 1,
		TotalQuestions:        total,
		Answers:               answers,
	})
}

// StartTimer tells every client to start its countdown. QuestionID is empty before the first question.
type StartTimer struct {
	SessionCode string `json:"sessionCode"`
	QuestionID  string `json:"questionId,omitempty"`
}

type ParticipantAnswered struct {
	ParticipantID string `json:"participantId"`
	IsCorrect     bool   `json:"isCorrect"`
	SessionCode   string `json:"sessionCode"`
}

type ScoreUpdate struct {
	Scores map[string]int `json:"scores"`
}

type ParticipantLeft struct {
	ParticipantID string `json:"participantId"`
}

type HostLeft struct {
	Message     string `json:"message"`
	SessionCode string `json:"sessionCode"`
}

type QuizCompleted struct {
	Message string         `json:"message"`
	Scores  map[string]int `json:"scores"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewError builds an ERROR envelope from err using the domain reason mapping.
func NewError(err error) Envelope[Error] {
	return New(TypeError, Error{Code: domain.Reason(err), Message: err.Error()})
}
