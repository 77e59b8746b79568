package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Statements are idempotent and re-run
// on every open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS mirror_snapshots (
		storage_key TEXT PRIMARY KEY,
		version     INTEGER NOT NULL DEFAULT 1,
		payload     BLOB NOT NULL,
		saved_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sync_state (
		resource       TEXT PRIMARY KEY,
		last_synced_at TEXT NOT NULL,
		item_count     INTEGER NOT NULL DEFAULT 0,
		last_error     TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_state_synced ON sync_state(last_synced_at)`,
}
