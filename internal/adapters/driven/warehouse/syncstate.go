package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
	"github.com/custodia-labs/stratus-sync/internal/core/ports/driven"
)

var _ driven.SyncStateStore = (*syncStateStore)(nil)

// syncStateStore tracks per-domain progress in the sync_state table.
// Each transition is one upsert statement with the new state folded into
// the conflict path, so concurrent writers never lose increments to a
// read-modify-write race.
type syncStateStore struct {
	store *Store
}

func (s *syncStateStore) ph(i int) string {
	return s.store.dialect.placeholder(i)
}

func (s *syncStateStore) Get(ctx context.Context, name string) (*domain.SyncState, error) {
	query := fmt.Sprintf(`
		SELECT domain, last_synced_at, last_sync_key, status, error_count,
		       error_message, metadata, created_at, updated_at
		FROM sync_state WHERE domain = %s`, s.ph(1))

	row := s.store.db.QueryRowContext(ctx, query, name)
	state, err := scanSyncState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Table: "sync_state", Err: err}
	}
	return state, nil
}

func (s *syncStateStore) All(ctx context.Context) ([]domain.SyncState, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT domain, last_synced_at, last_sync_key, status, error_count,
		       error_message, metadata, created_at, updated_at
		FROM sync_state ORDER BY domain`)
	if err != nil {
		return nil, &PersistenceError{Table: "sync_state", Err: err}
	}
	defer rows.Close()

	var states []domain.SyncState
	for rows.Next() {
		state, err := scanSyncState(rows)
		if err != nil {
			return nil, &PersistenceError{Table: "sync_state", Err: err}
		}
		states = append(states, *state)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Table: "sync_state", Err: err}
	}
	return states, nil
}

// GetLastSync returns the stored high-water mark. Only MarkSuccess
// writes last_synced_at, so the value always refers to the last
// successful run even while a later run is in flight or has failed.
func (s *syncStateStore) GetLastSync(ctx context.Context, name string) (*time.Time, error) {
	query := fmt.Sprintf("SELECT last_synced_at FROM sync_state WHERE domain = %s", s.ph(1))

	var at sql.NullTime
	err := s.store.db.QueryRowContext(ctx, query, name).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Table: "sync_state", Err: err}
	}
	if !at.Valid {
		return nil, nil
	}
	t := at.Time.UTC()
	return &t, nil
}

func (s *syncStateStore) MarkRunning(ctx context.Context, name string) error {
	query := fmt.Sprintf(`
		INSERT INTO sync_state (domain, status, updated_at)
		VALUES (%s, %s, %s)
		ON CONFLICT (domain) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at`,
		s.ph(1), s.ph(2), s.ph(3))

	_, err := s.store.db.ExecContext(ctx, query, name, domain.StatusRunning, time.Now().UTC())
	if err != nil {
		return &PersistenceError{Table: "sync_state", Err: err}
	}
	return nil
}

func (s *syncStateStore) MarkSuccess(ctx context.Context, name string, at time.Time, cursor string, meta domain.Metadata) error {
	var metaJSON any
	if meta != nil {
		raw, err := json.Marshal(meta)
		if err != nil {
			return &PersistenceError{Table: "sync_state", Err: err}
		}
		metaJSON = string(raw)
	}

	query := fmt.Sprintf(`
		INSERT INTO sync_state (domain, last_synced_at, last_sync_key, status,
		                        error_count, error_message, metadata, updated_at)
		VALUES (%s, %s, %s, %s, 0, NULL, %s, %s)
		ON CONFLICT (domain) DO UPDATE SET
			last_synced_at = excluded.last_synced_at,
			last_sync_key = excluded.last_sync_key,
			status = excluded.status,
			error_count = 0,
			error_message = NULL,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6))

	_, err := s.store.db.ExecContext(ctx, query,
		name, at.UTC(), nullIfEmpty(cursor), domain.StatusSuccess, metaJSON, time.Now().UTC())
	if err != nil {
		return &PersistenceError{Table: "sync_state", Err: err}
	}
	return nil
}

// MarkError increments error_count inside the conflict path. The
// high-water mark and cursor are untouched so the next run resumes from
// the last success.
func (s *syncStateStore) MarkError(ctx context.Context, name string, message string) error {
	query := fmt.Sprintf(`
		INSERT INTO sync_state (domain, status, error_count, error_message, updated_at)
		VALUES (%s, %s, 1, %s, %s)
		ON CONFLICT (domain) DO UPDATE SET
			status = excluded.status,
			error_count = sync_state.error_count + 1,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4))

	_, err := s.store.db.ExecContext(ctx, query, name, domain.StatusError, message, time.Now().UTC())
	if err != nil {
		return &PersistenceError{Table: "sync_state", Err: err}
	}
	return nil
}

func (s *syncStateStore) IsHealthy(ctx context.Context, name string, maxAge time.Duration) (bool, error) {
	state, err := s.Get(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return state.Healthy(time.Now().UTC(), maxAge), nil
}

func (s *syncStateStore) CleanupErrors(ctx context.Context, horizon time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-horizon)
	query := fmt.Sprintf(
		"DELETE FROM sync_state WHERE status = %s AND updated_at < %s",
		s.ph(1), s.ph(2))

	res, err := s.store.db.ExecContext(ctx, query, domain.StatusError, cutoff)
	if err != nil {
		return 0, &PersistenceError{Table: "sync_state", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &PersistenceError{Table: "sync_state", Err: err}
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncState(row rowScanner) (*domain.SyncState, error) {
	var (
		state      domain.SyncState
		lastSynced sql.NullTime
		syncKey    sql.NullString
		errMsg     sql.NullString
		metaRaw    sql.NullString
		status     string
	)
	err := row.Scan(&state.Domain, &lastSynced, &syncKey, &status,
		&state.ErrorCount, &errMsg, &metaRaw, &state.CreatedAt, &state.UpdatedAt)
	if err != nil {
		return nil, err
	}

	state.Status = domain.SyncStatus(status)
	if lastSynced.Valid {
		t := lastSynced.Time.UTC()
		state.LastSyncedAt = &t
	}
	state.LastSyncKey = syncKey.String
	state.ErrorMessage = errMsg.String
	if metaRaw.Valid && metaRaw.String != "" {
		if err := json.Unmarshal([]byte(metaRaw.String), &state.Metadata); err != nil {
			return nil, fmt.Errorf("decoding sync metadata: %w", err)
		}
	}
	return &state, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
