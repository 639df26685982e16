package driving

import (
	"context"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// SyncService drives catalog reconciliation runs.
type SyncService interface {
	// SyncSource runs one reconciliation for a source. When force is
	// set, the remote-count probe short-circuit is skipped.
	// Business failures surface in the outcome, not as panics; the
	// returned error mirrors outcome.Status == failed.
	SyncSource(ctx context.Context, sourceID string, force bool) (*domain.SyncOutcome, error)

	// SyncAll runs SyncSource for every enabled source.
	SyncAll(ctx context.Context) ([]*domain.SyncOutcome, error)

	// GetSyncState retrieves the sync state for a source.
	GetSyncState(ctx context.Context, sourceID string) (*domain.SourceSyncState, error)

	// ListSyncStates retrieves sync states for all sources.
	ListSyncStates(ctx context.Context) ([]*domain.SourceSyncState, error)
}
