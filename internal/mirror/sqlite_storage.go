package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/tally/internal/db"
)

// SQLiteStorage implements Storage and SyncRecorder on the mirror_snapshots
// and sync_state tables.
type SQLiteStorage struct {
	conn db.DBTX
	uow  db.UnitOfWork
}

func NewSQLiteStorage(database *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{conn: database, uow: db.NewSQLiteUnitOfWork(database)}
}

func (s *SQLiteStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.conn.QueryRowContext(ctx,
		`SELECT payload FROM mirror_snapshots WHERE storage_key = ?`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("loading snapshot %s: %w", key, err)
	}
	return payload, nil
}

func (s *SQLiteStorage) Save(ctx context.Context, key string, payload []byte) error {
	return saveSnapshot(ctx, s.conn, key, payload)
}

func saveSnapshot(ctx context.Context, conn db.DBTX, key string, payload []byte) error {
	query := `INSERT INTO mirror_snapshots (storage_key, version, payload, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(storage_key) DO UPDATE
		SET version = excluded.version, payload = excluded.payload, saved_at = excluded.saved_at`
	_, err := conn.ExecContext(ctx, query, key, snapshotVersion, payload, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM mirror_snapshots WHERE storage_key = ?`, key); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT storage_key FROM mirror_snapshots ORDER BY storage_key`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning snapshot key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return keys, nil
}

// SaveSynced writes the snapshot and its sync_state row in one transaction.
func (s *SQLiteStorage) SaveSynced(ctx context.Context, key string, payload []byte, state SyncState) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := saveSnapshot(ctx, tx, key, payload); err != nil {
			return err
		}
		query := `INSERT INTO sync_state (resource, last_synced_at, item_count, last_error)
			VALUES (?, ?, ?, NULL)
			ON CONFLICT(resource) DO UPDATE
			SET last_synced_at = excluded.last_synced_at, item_count = excluded.item_count, last_error = NULL`
		if _, err := tx.ExecContext(ctx, query,
			state.Resource,
			state.LastSyncedAt.UTC().Format(time.RFC3339Nano),
			state.ItemCount,
		); err != nil {
			return fmt.Errorf("recording sync of %s: %w", state.Resource, err)
		}
		return nil
	})
}

// RecordSyncError keeps the last successful sync time and stores the error.
func (s *SQLiteStorage) RecordSyncError(ctx context.Context, resource string, syncErr error) error {
	msg := ""
	if syncErr != nil {
		msg = syncErr.Error()
	}
	query := `INSERT INTO sync_state (resource, last_synced_at, item_count, last_error)
		VALUES (?, '', 0, ?)
		ON CONFLICT(resource) DO UPDATE SET last_error = excluded.last_error`
	if _, err := s.conn.ExecContext(ctx, query, resource, msg); err != nil {
		return fmt.Errorf("recording sync error of %s: %w", resource, err)
	}
	return nil
}

func (s *SQLiteStorage) SyncStates(ctx context.Context) ([]SyncState, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT resource, last_synced_at, item_count, last_error FROM sync_state ORDER BY resource`)
	if err != nil {
		return nil, fmt.Errorf("listing sync state: %w", err)
	}
	defer rows.Close()

	var out []SyncState
	for rows.Next() {
		var st SyncState
		var syncedAt string
		var lastErr sql.NullString
		if err := rows.Scan(&st.Resource, &syncedAt, &st.ItemCount, &lastErr); err != nil {
			return nil, fmt.Errorf("scanning sync state: %w", err)
		}
		if syncedAt != "" {
			if t, err := time.Parse(time.RFC3339Nano, syncedAt); err == nil {
				st.LastSyncedAt = t
			}
		}
		st.LastError = lastErr.String
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync state: %w", err)
	}
	return out, nil
}
