package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/protocol"
)

// Submit resolves one answer. At most one submission per participant and question is ever accepted;
// a rejected or failed submission leaves scores and broadcasts untouched.
func (e *Engine) Submit(ctx context.Context, code domain.SessionCode, participant domain.ParticipantID, sub domain.Submission) (domain.AnswerResult, error) {
	res, err := e.submit(ctx, code, participant, sub)
	e.metrics.Submissions.WithLabelValues(submissionResult(res, err)).Inc()
	return res, err
}

func submissionResult(res domain.AnswerResult, err error) string {
	switch {
	case err != nil:
		return domain.Reason(err)
	case res.Correct:
		return "correct"
	default:
		return "incorrect"
	}
}

func (e *Engine) submit(ctx context.Context, code domain.SessionCode, participant domain.ParticipantID, sub domain.Submission) (domain.AnswerResult, error) {
	if participant.IsHost() {
		return domain.AnswerResult{}, domain.ErrNotParticipant
	}
	state, ok := e.liveState(code)
	if !ok {
		return domain.AnswerResult{}, domain.ErrSessionGone
	}
	if !state.HasParticipant(participant) {
		return domain.AnswerResult{}, domain.ErrParticipantNotFound
	}
	if state.Questions() == nil {
		return domain.AnswerResult{}, domain.ErrQuizNotStarted
	}
	q, ok := state.question(sub.QuestionID)
	if !ok {
		return domain.AnswerResult{}, domain.ErrQuestionNotFound
	}
	if state.scored.contains(q.ID, participant) {
		return domain.AnswerResult{}, domain.ErrDuplicateSubmission
	}
	if cur, ok := state.CurrentQuestion(); !ok || cur.ID != q.ID {
		return domain.AnswerResult{}, domain.ErrQuestionClosed
	}
	if sub.AnswerID != "" && !hasAnswer(q, sub.AnswerID) {
		return domain.AnswerResult{}, domain.ErrAnswerNotFound
	}
	if !state.scored.claim(q.ID, participant) {
		return domain.AnswerResult{}, domain.ErrDuplicateSubmission
	}

	committed := false
	defer func() {
		if !committed {
			state.scored.release(q.ID, participant)
		}
	}()
	// Host cleanup waits for writes that got this far and refuses the rest.
	if !state.enterCommit() {
		return domain.AnswerResult{}, domain.ErrSessionGone
	}
	defer state.exitCommit()

	correct, err := e.resolve(ctx, q, sub)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	points := 0
	if correct {
		points = q.PointsOrDefault()
	}

	record, err := e.participants.FindByIdentity(ctx, participant)
	if err != nil {
		return domain.AnswerResult{}, e.collaboratorFailed("find participant", err)
	}
	if err := e.answers.RecordAnswer(ctx, domain.ParticipantAnswer{
		SessionCode:   code,
		ParticipantID: participant,
		QuestionID:    q.ID,
		AnswerID:      sub.AnswerID,
		Text:          strings.TrimSpace(sub.Text),
		Correct:       correct,
		Points:        points,
		AnsweredAt:    e.clock.Now(),
	}); err != nil {
		return domain.AnswerResult{}, e.collaboratorFailed("record answer", err)
	}
	correctCount := record.CorrectAnswers
	if correct {
		correctCount++
	}
	if err := e.participants.UpdateScore(ctx, participant, record.TotalScore+points, correctCount, record.TotalAnswers+1); err != nil {
		return domain.AnswerResult{}, e.collaboratorFailed("update score", err)
	}
	// The answer is durable from here on; keep the claim even if the session ends underneath us.
	committed = true

	if _, ok := e.liveState(code); !ok {
		return domain.AnswerResult{}, domain.ErrSessionGone
	}
	state.markAnswered(q.ID, participant)
	total := state.scores.add(participant, points)

	e.dispatcher.Broadcast(code, protocol.New(protocol.TypeParticipantAnswered, protocol.ParticipantAnswered{
		ParticipantID: string(participant),
		IsCorrect:     correct,
		SessionCode:   string(code),
	}))
	e.dispatcher.Broadcast(code, protocol.New(protocol.TypeScoreUpdate, protocol.ScoreUpdate{
		Scores: state.Scores(),
	}))

	log.Info().
		Str("session", string(code)).
		Str("participant", string(participant)).
		Str("question", q.ID).
		Bool("correct", correct).
		Bool("client_correct", sub.ClientCorrect).
		Int("points", points).
		Int("answered", state.answered.len()).
		Int("active", state.ParticipantCount()).
		Msg("answer accepted")

	return domain.AnswerResult{
		QuestionID: q.ID,
		Correct:    correct,
		Awarded:    points,
		TotalScore: total,
	}, nil
}

// resolve asks the answer records whether the submission is correct. An empty submission is wrong.
func (e *Engine) resolve(ctx context.Context, q domain.QuestionSnapshot, sub domain.Submission) (bool, error) {
	if sub.AnswerID != "" {
		ok, err := e.answers.IsCorrect(ctx, q.ID, sub.AnswerID)
		if err != nil {
			return false, e.collaboratorFailed("check answer", err)
		}
		return ok, nil
	}
	text := strings.TrimSpace(sub.Text)
	if text == "" {
		return false, nil
	}
	ok, err := e.answers.IsTextCorrect(ctx, q.ID, text)
	if err != nil {
		return false, e.collaboratorFailed("check text answer", err)
	}
	return ok, nil
}

func hasAnswer(q domain.QuestionSnapshot, answerID string) bool {
	for _, a := range q.Answers {
		if a.ID == answerID {
			return true
		}
	}
	return false
}
