package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

var createSessionTables = []string{
	`CREATE TABLE IF NOT EXISTS quiz_sessions (
		code        TEXT PRIMARY KEY,
		quiz_id     TEXT NOT NULL REFERENCES quizzes (id),
		status      TEXT NOT NULL DEFAULT 'WAITING',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		started_at  TIMESTAMPTZ,
		finished_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS participants (
		id              TEXT PRIMARY KEY,
		session_code    TEXT NOT NULL REFERENCES quiz_sessions (code) ON DELETE CASCADE,
		name            TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'WAITING',
		total_score     INTEGER NOT NULL DEFAULT 0,
		correct_answers INTEGER NOT NULL DEFAULT 0,
		total_answers   INTEGER NOT NULL DEFAULT 0,
		joined_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		finished_at     TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS participants_session_name_idx ON participants (session_code, lower(name))`,
	`CREATE TABLE IF NOT EXISTS participant_answers (
		session_code   TEXT NOT NULL REFERENCES quiz_sessions (code) ON DELETE CASCADE,
		participant_id TEXT NOT NULL REFERENCES participants (id) ON DELETE CASCADE,
		question_id    TEXT NOT NULL,
		answer_id      TEXT,
		answer_text    TEXT,
		correct        BOOLEAN NOT NULL,
		points         INTEGER NOT NULL DEFAULT 0,
		answered_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (participant_id, question_id)
	)`,
	`CREATE INDEX IF NOT EXISTS participant_answers_session_idx ON participant_answers (session_code)`,
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			for _, stmt := range createSessionTables {
				if _, err := db.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS participant_answers, participants, quiz_sessions`)
			return err
		},
	)
}
