package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"live-quiz-service/internal/infra/postgres"
)

var errNoPostgres = errors.New("postgres url not configured")

// NewMigrateCmd applies database migrations.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Postgres.URL == "" {
				return errNoPostgres
			}
			return postgres.Migrate(cmd.Context(), cfg.Postgres.URL)
		},
	}
}
