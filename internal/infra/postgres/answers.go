package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"live-quiz-service/internal/domain"
)

// Answers checks correctness against the quiz documents and stores participant_answers rows.
type Answers struct {
	pool *pgxpool.Pool
}

func NewAnswers(pool *pgxpool.Pool) *Answers {
	return &Answers{pool: pool}
}

func (a *Answers) IsCorrect(ctx context.Context, questionID, answerID string) (bool, error) {
	var correct bool
	err := a.pool.QueryRow(ctx, `
		SELECT COALESCE((ans->>'correct')::boolean, false)
		FROM quizzes q,
			jsonb_array_elements(q.data->'questions') qu,
			jsonb_array_elements(qu->'answers') ans
		WHERE qu->>'id' = $1 AND ans->>'id' = $2
		LIMIT 1`, questionID, answerID).Scan(&correct)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, domain.ErrAnswerNotFound
	}
	if err != nil {
		return false, fmt.Errorf("check answer: %w", err)
	}
	return correct, nil
}

func (a *Answers) IsTextCorrect(ctx context.Context, questionID, text string) (bool, error) {
	var correct bool
	err := a.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM quizzes q,
				jsonb_array_elements(q.data->'questions') qu,
				jsonb_array_elements(qu->'answers') ans
			WHERE qu->>'id' = $1
				AND COALESCE((ans->>'correct')::boolean, false)
				AND lower(btrim(ans->>'text')) = lower($2)
		)`, questionID, strings.TrimSpace(text)).Scan(&correct)
	if err != nil {
		return false, fmt.Errorf("check text answer: %w", err)
	}
	return correct, nil
}

func (a *Answers) RecordAnswer(ctx context.Context, ans domain.ParticipantAnswer) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO participant_answers
			(session_code, participant_id, question_id, answer_id, answer_text, correct, points, answered_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)`,
		string(ans.SessionCode), string(ans.ParticipantID), ans.QuestionID, ans.AnswerID, ans.Text,
		ans.Correct, ans.Points, ans.AnsweredAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateSubmission
		}
		return fmt.Errorf("record answer: %w", err)
	}
	return nil
}

func (a *Answers) DeleteBySession(ctx context.Context, code domain.SessionCode) error {
	if _, err := a.pool.Exec(ctx, `DELETE FROM participant_answers WHERE session_code=$1`, string(code)); err != nil {
		return fmt.Errorf("delete answers: %w", err)
	}
	return nil
}
