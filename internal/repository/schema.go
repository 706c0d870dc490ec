package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// schemaVersion bumps whenever the table layout changes. There is no
// migration path: a mismatch drops and recreates the tables, matching the
// queue's wipe-and-recreate policy.
const schemaVersion = 2

const createTables = `
CREATE TABLE IF NOT EXISTS schema_info (
	version INT NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id BIGSERIAL PRIMARY KEY,
	media_data BYTEA,
	media_type TEXT NOT NULL DEFAULT '',
	media_url TEXT NOT NULL DEFAULT '',
	caption TEXT NOT NULL DEFAULT '',
	schedule_mode TEXT NOT NULL,
	scheduled_at TIMESTAMPTZ,
	status TEXT NOT NULL,
	is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_posts_status ON posts (status);
CREATE INDEX IF NOT EXISTS idx_posts_schedule_mode ON posts (schedule_mode);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at);
CREATE INDEX IF NOT EXISTS idx_posts_is_deleted ON posts (is_deleted);

CREATE TABLE IF NOT EXISTS credentials (
	id BIGSERIAL PRIMARY KEY,
	account_id TEXT NOT NULL,
	access_token TEXT NOT NULL,
	token_expires_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the tables on first run and recreates them when the
// stored version does not match.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createTables); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var version int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_info LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		_, err = db.ExecContext(ctx, `INSERT INTO schema_info (version) VALUES ($1)`, schemaVersion)
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version != schemaVersion {
		slog.Info("schema version mismatch, recreating tables", "stored", version, "want", schemaVersion)
		if _, err := db.ExecContext(ctx, `DROP TABLE posts; DROP TABLE credentials; DROP TABLE schema_info`); err != nil {
			return fmt.Errorf("failed to drop outdated schema: %w", err)
		}
		return EnsureSchema(ctx, db)
	}
	return nil
}
