package issues

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// schema is the issues table DDL, applied idempotently at startup.
const schema = `
CREATE TABLE IF NOT EXISTS issues (
	id             UUID PRIMARY KEY,
	reporter_id    UUID,
	is_anonymous   BOOLEAN NOT NULL DEFAULT FALSE,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL,
	category       TEXT NOT NULL,
	priority       TEXT NOT NULL DEFAULT 'Medium',
	status         TEXT NOT NULL DEFAULT 'Pending',
	latitude       DOUBLE PRECISION NOT NULL,
	longitude      DOUBLE PRECISION NOT NULL,
	address        TEXT NOT NULL DEFAULT '',
	photo_urls     TEXT[] NOT NULL DEFAULT '{}',
	ai_category    TEXT NOT NULL DEFAULT '',
	ai_confidence  INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_issues_status ON issues (status);
CREATE INDEX IF NOT EXISTS idx_issues_category ON issues (category);
CREATE INDEX IF NOT EXISTS idx_issues_reporter ON issues (reporter_id) WHERE reporter_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_issues_created_at ON issues (created_at DESC);
`

// Migrate creates the issues table and its indexes if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Debug().Msg("Applying issues schema")
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying issues schema: %w", err)
	}
	return nil
}
