package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.SourceService = (*SourceService)(nil)

// SourceService manages the marketplace source registry.
type SourceService struct {
	sources    driven.SourceStore
	listings   driven.ListingStore
	states     driven.SyncStateStore
	collectors driven.CollectorFactory
	logger     *slog.Logger
}

// NewSourceService creates a new source service.
func NewSourceService(
	sources driven.SourceStore,
	listings driven.ListingStore,
	states driven.SyncStateStore,
	collectors driven.CollectorFactory,
	logger *slog.Logger,
) *SourceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceService{
		sources:    sources,
		listings:   listings,
		states:     states,
		collectors: collectors,
		logger:     logger,
	}
}

// Create registers a new source. The marketplace type must have a
// collector builder registered.
func (s *SourceService) Create(ctx context.Context, source *domain.Source) (*domain.Source, error) {
	if source.ID == "" {
		source.ID = domain.GenerateID()
	}
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if !s.typeSupported(source.MarketplaceType) {
		return nil, fmt.Errorf("%w: no collector for marketplace type %q",
			domain.ErrInvalidInput, source.MarketplaceType)
	}

	now := time.Now()
	source.CreatedAt = now
	source.UpdatedAt = now

	if err := s.sources.Save(ctx, source); err != nil {
		return nil, fmt.Errorf("save source: %w", err)
	}

	s.logger.Info("source created", "source_id", source.ID, "name", source.Name, "type", source.MarketplaceType)
	return source, nil
}

// Get retrieves a source by ID.
func (s *SourceService) Get(ctx context.Context, id string) (*domain.Source, error) {
	return s.sources.Get(ctx, id)
}

// List retrieves all registered sources.
func (s *SourceService) List(ctx context.Context) ([]*domain.Source, error) {
	return s.sources.List(ctx)
}

// Update replaces a source's mutable fields.
func (s *SourceService) Update(ctx context.Context, source *domain.Source) (*domain.Source, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if !s.typeSupported(source.MarketplaceType) {
		return nil, fmt.Errorf("%w: no collector for marketplace type %q",
			domain.ErrInvalidInput, source.MarketplaceType)
	}

	existing, err := s.sources.Get(ctx, source.ID)
	if err != nil {
		return nil, err
	}
	source.CreatedAt = existing.CreatedAt
	source.UpdatedAt = time.Now()

	if err := s.sources.Save(ctx, source); err != nil {
		return nil, fmt.Errorf("save source: %w", err)
	}

	s.logger.Info("source updated", "source_id", source.ID)
	return source, nil
}

// Delete removes a source together with its sync state. Listings and
// change log entries are kept for audit until cleared explicitly.
func (s *SourceService) Delete(ctx context.Context, id string) error {
	if err := s.sources.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.states.Delete(ctx, id); err != nil {
		s.logger.Warn("failed to delete sync state", "source_id", id, "error", err)
	}
	s.logger.Info("source deleted", "source_id", id)
	return nil
}

// Stats returns catalog statistics for a source's active listings.
// An empty id aggregates across all sources.
func (s *SourceService) Stats(ctx context.Context, id string) (*domain.ListingStats, error) {
	if id != "" {
		if _, err := s.sources.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.listings.Stats(ctx, id)
}

func (s *SourceService) typeSupported(t domain.MarketplaceType) bool {
	for _, supported := range s.collectors.SupportedTypes() {
		if supported == t {
			return true
		}
	}
	return false
}
