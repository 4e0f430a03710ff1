package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"live-quiz-service/internal/domain"
)

// Sessions persists quiz_sessions rows.
type Sessions struct {
	pool *pgxpool.Pool
}

func NewSessions(pool *pgxpool.Pool) *Sessions {
	return &Sessions{pool: pool}
}

// Create opens a WAITING session, or resets an existing one for the same code.
func (s *Sessions) Create(ctx context.Context, code domain.SessionCode, quizID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_sessions (code, quiz_id, status) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET quiz_id = EXCLUDED.quiz_id, status = EXCLUDED.status,
			started_at = NULL, finished_at = NULL`,
		string(code), quizID, string(domain.SessionWaiting))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Sessions) FindByCode(ctx context.Context, code domain.SessionCode) (domain.SessionRecord, error) {
	rec := domain.SessionRecord{Code: code}
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT quiz_id, status, started_at, finished_at FROM quiz_sessions WHERE code=$1`,
		string(code)).Scan(&rec.QuizID, &status, &rec.StartedAt, &rec.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("find session: %w", err)
	}
	rec.Status = domain.SessionStatus(status)
	return rec, nil
}

func (s *Sessions) MarkStarted(ctx context.Context, code domain.SessionCode) error {
	return s.mark(ctx, code, `UPDATE quiz_sessions SET status=$2, started_at=$3 WHERE code=$1`, domain.SessionActive)
}

func (s *Sessions) MarkFinished(ctx context.Context, code domain.SessionCode) error {
	return s.mark(ctx, code, `UPDATE quiz_sessions SET status=$2, finished_at=$3 WHERE code=$1`, domain.SessionFinished)
}

func (s *Sessions) mark(ctx context.Context, code domain.SessionCode, query string, status domain.SessionStatus) error {
	tag, err := s.pool.Exec(ctx, query, string(code), string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark session %s: %w", status, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Sessions) Delete(ctx context.Context, code domain.SessionCode) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quiz_sessions WHERE code=$1`, string(code)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
