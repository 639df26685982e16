package driving

import (
	"context"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// SourceService manages marketplace source configuration.
type SourceService interface {
	// Create validates and stores a new source, generating an ID when
	// none is given.
	Create(ctx context.Context, source *domain.Source) (*domain.Source, error)

	// Get retrieves a source by ID.
	Get(ctx context.Context, id string) (*domain.Source, error)

	// List retrieves all sources.
	List(ctx context.Context) ([]*domain.Source, error)

	// Update validates and saves an existing source.
	Update(ctx context.Context, source *domain.Source) (*domain.Source, error)

	// Delete removes a source and its sync state. Listings are kept
	// for audit.
	Delete(ctx context.Context, id string) error

	// Stats aggregates the snapshot store; empty id means all sources.
	Stats(ctx context.Context, sourceID string) (*domain.ListingStats, error)
}
