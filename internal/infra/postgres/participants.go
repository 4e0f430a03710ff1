package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"live-quiz-service/internal/domain"
)

const uniqueViolation = "23505"

// Participants persists participants rows.
type Participants struct {
	pool *pgxpool.Pool
}

func NewParticipants(pool *pgxpool.Pool) *Participants {
	return &Participants{pool: pool}
}

func (p *Participants) Create(ctx context.Context, code domain.SessionCode, name string) (domain.Participant, error) {
	rec := domain.Participant{
		ID:          domain.ParticipantID(uuid.NewString()),
		SessionCode: code,
		Name:        strings.TrimSpace(name),
		Status:      domain.ParticipantWaiting,
	}
	err := p.pool.QueryRow(ctx, `
		INSERT INTO participants (id, session_code, name, status) VALUES ($1, $2, $3, $4)
		RETURNING joined_at`,
		string(rec.ID), string(code), rec.Name, string(rec.Status)).Scan(&rec.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Participant{}, domain.ErrNameTaken
		}
		return domain.Participant{}, fmt.Errorf("create participant: %w", err)
	}
	return rec, nil
}

func (p *Participants) FindByIdentity(ctx context.Context, id domain.ParticipantID) (domain.Participant, error) {
	if _, err := uuid.Parse(string(id)); err != nil {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	rec, err := scanParticipant(p.pool.QueryRow(ctx, `
		SELECT `+participantColumns+`
		FROM participants WHERE id=$1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("find participant: %w", err)
	}
	return rec, nil
}

// ListBySession returns the participants of code ordered by join time.
func (p *Participants) ListBySession(ctx context.Context, code domain.SessionCode) ([]domain.Participant, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+participantColumns+`
		FROM participants WHERE session_code=$1 ORDER BY joined_at, id`, string(code))
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		rec, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return out, nil
}

const participantColumns = `id, session_code, name, status, total_score, correct_answers, total_answers, joined_at, finished_at`

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	var (
		rec          domain.Participant
		pid, session string
		status       string
	)
	err := row.Scan(&pid, &session, &rec.Name, &status, &rec.TotalScore, &rec.CorrectAnswers,
		&rec.TotalAnswers, &rec.JoinedAt, &rec.FinishedAt)
	if err != nil {
		return domain.Participant{}, err
	}
	rec.ID = domain.ParticipantID(pid)
	rec.SessionCode = domain.SessionCode(session)
	rec.Status = domain.ParticipantStatus(status)
	return rec, nil
}

func (p *Participants) UpdateScore(ctx context.Context, id domain.ParticipantID, totalScore, correct, total int) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE participants SET total_score=$2, correct_answers=$3, total_answers=$4 WHERE id=$1`,
		string(id), totalScore, correct, total)
	if err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (p *Participants) MarkStatus(ctx context.Context, id domain.ParticipantID, status domain.ParticipantStatus) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE participants SET status=$2,
			finished_at = CASE WHEN $2 = 'FINISHED' THEN now() ELSE finished_at END
		WHERE id=$1`, string(id), string(status))
	if err != nil {
		return fmt.Errorf("mark participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (p *Participants) MarkSessionStatus(ctx context.Context, code domain.SessionCode, status, skip domain.ParticipantStatus) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE participants SET status=$2,
			finished_at = CASE WHEN $2 = 'FINISHED' THEN now() ELSE finished_at END
		WHERE session_code=$1 AND status <> $3`, string(code), string(status), string(skip))
	if err != nil {
		return fmt.Errorf("mark session participants: %w", err)
	}
	return nil
}

func (p *Participants) DeleteBySession(ctx context.Context, code domain.SessionCode) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM participants WHERE session_code=$1`, string(code)); err != nil {
		return fmt.Errorf("delete participants: %w", err)
	}
	return nil
}
