package postgres

import (
	"context"
	"database/sql"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SyncStateStore = (*SyncStateStore)(nil)

// SyncStateStore implements driven.SyncStateStore using PostgreSQL
type SyncStateStore struct {
	db *DB
}

// NewSyncStateStore creates a new SyncStateStore
func NewSyncStateStore(db *DB) *SyncStateStore {
	return &SyncStateStore{db: db}
}

// Save creates or updates sync state
func (s *SyncStateStore) Save(ctx context.Context, state *domain.SourceSyncState) error {
	query := `
		INSERT INTO sync_states (source_id, busy, last_sync_at, last_remote_count, last_local_count, last_outcome, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (source_id) DO UPDATE SET
			busy = EXCLUDED.busy,
			last_sync_at = EXCLUDED.last_sync_at,
			last_remote_count = EXCLUDED.last_remote_count,
			last_local_count = EXCLUDED.last_local_count,
			last_outcome = EXCLUDED.last_outcome,
			error = EXCLUDED.error,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		state.SourceID,
		state.Busy,
		NullTime(state.LastSyncAt),
		state.LastRemoteCount,
		state.LastLocalCount,
		string(state.LastOutcome),
		state.Error,
		NullTime(state.StartedAt),
		NullTime(state.CompletedAt),
	)
	return err
}

// Get retrieves sync state for a source
func (s *SyncStateStore) Get(ctx context.Context, sourceID string) (*domain.SourceSyncState, error) {
	query := `
		SELECT source_id, busy, last_sync_at, last_remote_count, last_local_count, last_outcome, error, started_at, completed_at
		FROM sync_states
		WHERE source_id = $1
	`

	var state domain.SourceSyncState
	var lastSyncAt, startedAt, completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, sourceID).Scan(
		&state.SourceID,
		&state.Busy,
		&lastSyncAt,
		&state.LastRemoteCount,
		&state.LastLocalCount,
		&state.LastOutcome,
		&state.Error,
		&startedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		// Default idle state for a source that has never synced
		return &domain.SourceSyncState{SourceID: sourceID}, nil
	}
	if err != nil {
		return nil, err
	}

	state.LastSyncAt = TimePtr(lastSyncAt)
	state.StartedAt = TimePtr(startedAt)
	state.CompletedAt = TimePtr(completedAt)

	return &state, nil
}

// List retrieves sync states for all sources
func (s *SyncStateStore) List(ctx context.Context) ([]*domain.SourceSyncState, error) {
	query := `
		SELECT source_id, busy, last_sync_at, last_remote_count, last_local_count, last_outcome, error, started_at, completed_at
		FROM sync_states
		ORDER BY last_sync_at DESC NULLS LAST
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []*domain.SourceSyncState
	for rows.Next() {
		var state domain.SourceSyncState
		var lastSyncAt, startedAt, completedAt sql.NullTime

		err := rows.Scan(
			&state.SourceID,
			&state.Busy,
			&lastSyncAt,
			&state.LastRemoteCount,
			&state.LastLocalCount,
			&state.LastOutcome,
			&state.Error,
			&startedAt,
			&completedAt,
		)
		if err != nil {
			return nil, err
		}

		state.LastSyncAt = TimePtr(lastSyncAt)
		state.StartedAt = TimePtr(startedAt)
		state.CompletedAt = TimePtr(completedAt)

		states = append(states, &state)
	}
	return states, rows.Err()
}

// Delete removes sync state for a source
func (s *SyncStateStore) Delete(ctx context.Context, sourceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_states WHERE source_id = $1`, sourceID)
	return err
}

// TryMarkBusy atomically flips the busy guard for a source. The upsert
// either inserts a fresh busy row or takes over an idle one; when the
// row is already busy the WHERE clause suppresses the update and zero
// rows come back. One round trip, no read-then-write race.
func (s *SyncStateStore) TryMarkBusy(ctx context.Context, sourceID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_states (source_id, busy, started_at)
		VALUES ($1, TRUE, NOW())
		ON CONFLICT (source_id) DO UPDATE SET
			busy = TRUE,
			started_at = NOW()
		WHERE sync_states.busy = FALSE
	`, sourceID)
	if err != nil {
		return false, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClearBusy releases the busy guard for a source
func (s *SyncStateStore) ClearBusy(ctx context.Context, sourceID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_states SET busy = FALSE WHERE source_id = $1`, sourceID)
	return err
}

// ClearAllBusy releases every held guard. Run at boot so a crashed
// process cannot wedge its sources forever.
func (s *SyncStateStore) ClearAllBusy(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sync_states SET busy = FALSE WHERE busy = TRUE`)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}
