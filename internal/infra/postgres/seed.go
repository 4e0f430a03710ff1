package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

// Seed upserts the quizzes and sessions of fx.
func Seed(ctx context.Context, pool *pgxpool.Pool, fx memory.Fixtures) error {
	questions := NewQuestions(pool)
	for _, quiz := range fx.Quizzes {
		if err := questions.SaveQuiz(ctx, quiz); err != nil {
			return err
		}
	}
	sessions := NewSessions(pool)
	for _, s := range fx.Sessions {
		if err := sessions.Create(ctx, domain.SessionCode(s.Code), s.QuizID); err != nil {
			return err
		}
	}
	log.Info().Int("quizzes", len(fx.Quizzes)).Int("sessions", len(fx.Sessions)).Msg("fixtures seeded")
	return nil
}
