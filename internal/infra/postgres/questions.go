package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"live-quiz-service/internal/domain"
)

// Questions loads quiz JSONB from Postgres.
type Questions struct {
	pool *pgxpool.Pool
}

func NewQuestions(pool *pgxpool.Pool) *Questions {
	return &Questions{pool: pool}
}

func (q *Questions) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		title string
		raw   []byte
	)
	err := q.pool.QueryRow(ctx, `SELECT title, data FROM quizzes WHERE id=$1`, quizID).Scan(&title, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	quiz.ID = quizID
	if quiz.Title == "" {
		quiz.Title = title
	}
	return quiz, nil
}

// QuestionsForQuiz returns the questions of quizID ordered by their order field.
func (q *Questions) QuestionsForQuiz(ctx context.Context, quizID string) ([]domain.QuestionSnapshot, error) {
	quiz, err := q.LoadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	qs := quiz.Questions
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
	return qs, nil
}

// SaveQuiz inserts or replaces a quiz document.
func (q *Questions) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = q.pool.Exec(ctx, `
		INSERT INTO quizzes (id, title, data) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, data = EXCLUDED.data, updated_at = now()`,
		quiz.ID, quiz.Title, data)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}
