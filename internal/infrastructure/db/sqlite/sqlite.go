// Package sqlite keeps sessions in a single SQLite file for single-node
// deployments that do not run Redis.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) the database at path, applies connection pragmas
// and migrates the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		// Avoid "database is locked" when requests write concurrently.
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS session_kv (
		key        TEXT    PRIMARY KEY,
		value      TEXT    NOT NULL,
		expires_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_session_kv_expires ON session_kv(expires_at);

	CREATE TABLE IF NOT EXISTS oauth_codes (
		code_hash  TEXT    PRIMARY KEY,
		claimed_at INTEGER NOT NULL
	);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}
