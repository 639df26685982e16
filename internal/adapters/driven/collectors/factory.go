// Package collectors wires marketplace collector variants to sources.
package collectors

import (
	"context"
	"fmt"
	"sync"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.CollectorFactory = (*Factory)(nil)

// Factory maintains a registry of CollectorBuilders, one per
// marketplace type.
type Factory struct {
	mu       sync.RWMutex
	builders map[domain.MarketplaceType]driven.CollectorBuilder
}

// NewFactory creates a collector factory.
func NewFactory() *Factory {
	return &Factory{
		builders: make(map[domain.MarketplaceType]driven.CollectorBuilder),
	}
}

// Register registers a builder for a marketplace type.
func (f *Factory) Register(builder driven.CollectorBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[builder.Type()] = builder
}

// Create creates a collector for the given source.
func (f *Factory) Create(ctx context.Context, source *domain.Source) (driven.Collector, error) {
	f.mu.RLock()
	builder, ok := f.builders[source.MarketplaceType]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectorNotFound, source.MarketplaceType)
	}

	collector, err := builder.Build(source)
	if err != nil {
		return nil, fmt.Errorf("build collector: %w", err)
	}
	return collector, nil
}

// SupportedTypes returns all registered marketplace types.
func (f *Factory) SupportedTypes() []domain.MarketplaceType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]domain.MarketplaceType, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	return types
}
