package driven

import (
	"context"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// SyncStateStore persists per-source sync bookkeeping, including the
// busy single-flight guard.
type SyncStateStore interface {
	// Get retrieves the state for a source, returning a default idle
	// state for sources that have never synced.
	Get(ctx context.Context, sourceID string) (*domain.SourceSyncState, error)

	// Save creates or updates the state.
	Save(ctx context.Context, state *domain.SourceSyncState) error

	// List retrieves the states for all sources.
	List(ctx context.Context) ([]*domain.SourceSyncState, error)

	// Delete removes the state for a source.
	Delete(ctx context.Context, sourceID string) error

	// TryMarkBusy atomically sets busy for a source, returning false if
	// a run is already in flight. A single compare-and-set, never a poll.
	TryMarkBusy(ctx context.Context, sourceID string) (bool, error)

	// ClearBusy releases the busy guard. Called on every exit path.
	ClearBusy(ctx context.Context, sourceID string) error

	// ClearAllBusy releases stale busy guards, e.g. after a crash.
	ClearAllBusy(ctx context.Context) (int, error)
}
