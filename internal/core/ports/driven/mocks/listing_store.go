package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// MockListingStore is an in-memory ListingStore for testing.
// Upsert failures can be injected per call to exercise partial-progress
// persistence paths.
type MockListingStore struct {
	mu   sync.RWMutex
	rows map[string]*domain.PersistedListing // key: sourceID:externalID

	// UpsertErr fails UpsertBatch unconditionally when set.
	UpsertErr error
	// FailUpsertCall fails the Nth UpsertBatch call (1-based) when > 0.
	FailUpsertCall int
	// DeactivateErr fails Deactivate when set.
	DeactivateErr error

	upsertCalls     int
	deactivateCalls int
}

// NewMockListingStore creates a new MockListingStore.
func NewMockListingStore() *MockListingStore {
	return &MockListingStore{rows: make(map[string]*domain.PersistedListing)}
}

func key(sourceID, externalID string) string {
	return sourceID + ":" + externalID
}

func (m *MockListingStore) GetActive(ctx context.Context, sourceID string) ([]domain.PersistedListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.PersistedListing
	for _, row := range m.rows {
		if row.SourceID == sourceID && row.IsActive {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (m *MockListingStore) CountActive(ctx context.Context, sourceID string) (int, error) {
	rows, _ := m.GetActive(ctx, sourceID)
	return len(rows), nil
}

func (m *MockListingStore) UpsertBatch(ctx context.Context, sourceID string, listings []domain.ListingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	if m.FailUpsertCall > 0 && m.upsertCalls == m.FailUpsertCall {
		return errInjected
	}
	now := time.Now()
	for _, rec := range listings {
		m.rows[key(sourceID, rec.ExternalID)] = &domain.PersistedListing{
			SourceID:    sourceID,
			ExternalID:  rec.ExternalID,
			Name:        rec.Name,
			Price:       rec.Price,
			ImageURL:    rec.ImageURL,
			URL:         rec.URL,
			Fingerprint: domain.Fingerprint(rec),
			IsActive:    true,
			CollectedAt: rec.CollectedAt,
			UpdatedAt:   now,
		}
	}
	return nil
}

func (m *MockListingStore) Deactivate(ctx context.Context, sourceID string, externalIDs []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deactivateCalls++
	if m.DeactivateErr != nil {
		return 0, m.DeactivateErr
	}
	if len(externalIDs) == 0 {
		return 0, nil
	}
	count := 0
	for _, id := range externalIDs {
		if row, ok := m.rows[key(sourceID, id)]; ok && row.IsActive {
			row.IsActive = false
			row.UpdatedAt = time.Now()
			count++
		}
	}
	return count, nil
}

func (m *MockListingStore) Stats(ctx context.Context, sourceID string) (*domain.ListingStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &domain.ListingStats{}
	for _, row := range m.rows {
		if sourceID != "" && row.SourceID != sourceID {
			continue
		}
		if !row.IsActive {
			continue
		}
		stats.Total++
		if row.ImageURL != "" {
			stats.WithImages++
		} else {
			stats.WithoutImages++
		}
		if stats.LastUpdate == nil || row.UpdatedAt.After(*stats.LastUpdate) {
			u := row.UpdatedAt
			stats.LastUpdate = &u
		}
	}
	return stats, nil
}

// Get returns a row regardless of its active flag, for assertions.
func (m *MockListingStore) Get(sourceID, externalID string) (*domain.PersistedListing, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[key(sourceID, externalID)]
	if !ok {
		return nil, false
	}
	copied := *row
	return &copied, true
}

// UpsertCalls returns how many times UpsertBatch was invoked.
func (m *MockListingStore) UpsertCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upsertCalls
}

// DeactivateCalls returns how many times Deactivate was invoked.
func (m *MockListingStore) DeactivateCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deactivateCalls
}
