package cli

import (
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/infra/postgres"
)

// NewSeedCmd loads the fixtures file into postgres.
func NewSeedCmd() *cobra.Command {
	var fixtures string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load quizzes and sessions from a fixtures file into postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Postgres.URL == "" {
				return errNoPostgres
			}
			if fixtures == "" {
				fixtures = cfg.Quiz.Fixtures
			}
			fx, err := memory.LoadFixtures(fixtures)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			return postgres.Seed(ctx, pool, fx)
		},
	}
	cmd.Flags().StringVar(&fixtures, "fixtures", "", "fixtures file, defaults to quiz.fixtures")
	return cmd
}
