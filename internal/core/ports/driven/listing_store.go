package driven

import (
	"context"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// ListingStore is the snapshot store: the persisted table of listings
// per source, keyed by (external_id, source_id).
type ListingStore interface {
	// GetActive returns all active listings for a source.
	GetActive(ctx context.Context, sourceID string) ([]domain.PersistedListing, error)

	// CountActive returns the number of active listings for a source.
	CountActive(ctx context.Context, sourceID string) (int, error)

	// UpsertBatch inserts or updates listings keyed by (external_id,
	// source_id) in a single transaction, recomputing fingerprints and
	// setting is_active unconditionally (covers reactivation). The batch
	// is atomic: any row error rolls back the whole batch. Idempotent.
	UpsertBatch(ctx context.Context, sourceID string, listings []domain.ListingRecord) error

	// Deactivate soft-deletes the given external IDs in one statement
	// and returns the number of rows flipped. Empty input is a no-op.
	Deactivate(ctx context.Context, sourceID string, externalIDs []string) (int, error)

	// Stats aggregates the store; empty sourceID means all sources.
	Stats(ctx context.Context, sourceID string) (*domain.ListingStats, error)
}
