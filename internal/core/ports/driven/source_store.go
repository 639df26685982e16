package driven

import (
	"context"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// SourceStore persists marketplace source configuration.
type SourceStore interface {
	// Save creates or updates a source.
	Save(ctx context.Context, source *domain.Source) error

	// Get retrieves a source by ID.
	Get(ctx context.Context, id string) (*domain.Source, error)

	// List retrieves all sources.
	List(ctx context.Context) ([]*domain.Source, error)

	// Delete removes a source.
	Delete(ctx context.Context, id string) error
}
