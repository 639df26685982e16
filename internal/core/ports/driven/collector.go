package driven

import (
	"context"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// Collector fetches listings from a marketplace storefront.
// One implementation (variant) exists per marketplace type; the core
// never depends on which variant is plugged in.
type Collector interface {
	// Type returns the marketplace type this collector handles.
	Type() domain.MarketplaceType

	// Collect returns a believed-complete snapshot of the listings
	// currently visible for the source, or an explicit error. It must
	// never return a silently truncated list: a failure mid-crawl is an
	// error, not a shorter snapshot.
	Collect(ctx context.Context, source *domain.Source) ([]domain.ListingRecord, error)

	// ProbeCount returns a cheap remote listing-count estimate, used to
	// skip full collection when nothing changed.
	ProbeCount(ctx context.Context, source *domain.Source) (int, error)
}

// CollectorBuilder creates collectors for one marketplace type.
type CollectorBuilder interface {
	// Type returns the marketplace type this builder creates.
	Type() domain.MarketplaceType

	// Build creates a collector configured for the source.
	Build(source *domain.Source) (Collector, error)
}

// CollectorFactory manages collector builders.
type CollectorFactory interface {
	// Register registers a builder for a marketplace type.
	Register(builder CollectorBuilder)

	// Create creates a collector for the given source.
	Create(ctx context.Context, source *domain.Source) (Collector, error)

	// SupportedTypes returns all registered marketplace types.
	SupportedTypes() []domain.MarketplaceType
}
