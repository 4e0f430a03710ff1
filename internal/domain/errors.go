package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a session code is unknown to the session records.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionGone is returned when the live state of a session has already been removed.
	ErrSessionGone = errors.New("quiz session is no longer running")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in quiz")
	// ErrNotParticipant is returned when the host tries to act as a player.
	ErrNotParticipant = errors.New("host cannot answer questions")
	// ErrNotAuthorized is returned when a participant attempts a host-only action.
	ErrNotAuthorized = errors.New("action is reserved for the host")
	// ErrNotBound is returned when an unbound connection sends a session message.
	ErrNotBound = errors.New("connection has not joined a session")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoQuestions indicates the quiz has no questions to ask.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAnswerNotFound indicates a submitted answer ID is invalid.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrQuestionClosed indicates the question is not the one currently asked.
	ErrQuestionClosed = errors.New("question is not open for answers")
	// ErrDuplicateSubmission indicates the participant already answered the question.
	ErrDuplicateSubmission = errors.New("answer already submitted")
	// ErrQuizNotStarted indicates questions have not been loaded yet.
	ErrQuizNotStarted = errors.New("quiz has not started")
	// ErrQuizAlreadyStarted indicates START_QUESTIONS was sent twice.
	ErrQuizAlreadyStarted = errors.New("quiz already started")
	// ErrNameTaken indicates another participant of the session already uses the name.
	ErrNameTaken = errors.New("participant name already taken")
	// ErrProtocol indicates a malformed or unknown message.
	ErrProtocol = errors.New("malformed message")
)

// CollaboratorError wraps a failure of an external persistence call.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Collaborator wraps err as a CollaboratorError unless it is nil or already a domain rejection.
func Collaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	if Reason(err) != ReasonInternal {
		return err
	}
	return &CollaboratorError{Op: op, Err: err}
}

const (
	ReasonProtocol         = "protocol"
	ReasonDuplicate        = "duplicate"
	ReasonNotAuthorized    = "not-authorized"
	ReasonNotParticipant   = "not-a-participant"
	ReasonNotJoined        = "not-joined"
	ReasonSessionNotFound  = "session-not-found"
	ReasonSessionGone      = "session-gone"
	ReasonQuestionClosed   = "question-closed"
	ReasonQuestionNotFound = "question-not-found"
	ReasonQuizNotFound     = "quiz-not-found"
	ReasonNotStarted       = "not-started"
	ReasonAlreadyStarted   = "already-started"
	ReasonNameTaken        = "name-taken"
	ReasonCollaborator     = "collaborator"
	ReasonInternal         = "internal"
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrProtocol, ReasonProtocol},
	{ErrDuplicateSubmission, ReasonDuplicate},
	{ErrNotAuthorized, ReasonNotAuthorized},
	{ErrNotParticipant, ReasonNotParticipant},
	{ErrNotBound, ReasonNotJoined},
	{ErrParticipantNotFound, ReasonNotParticipant},
	{ErrSessionNotFound, ReasonSessionNotFound},
	{ErrSessionGone, ReasonSessionGone},
	{ErrQuestionClosed, ReasonQuestionClosed},
	{ErrQuestionNotFound, ReasonQuestionNotFound},
	{ErrAnswerNotFound, ReasonQuestionNotFound},
	{ErrQuizNotFound, ReasonQuizNotFound},
	{ErrNoQuestions, ReasonQuizNotFound},
	{ErrQuizNotStarted, ReasonNotStarted},
	{ErrQuizAlreadyStarted, ReasonAlreadyStarted},
	{ErrNameTaken, ReasonNameTaken},
}

// Reason maps an error to the short code sent to clients in ERROR envelopes.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ReasonCollaborator
	}
	return ReasonInternal
}
