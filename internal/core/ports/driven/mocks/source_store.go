package mocks

import (
	"context"
	"sync"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// MockSourceStore is an in-memory SourceStore for testing.
type MockSourceStore struct {
	mu      sync.RWMutex
	sources map[string]*domain.Source
}

// NewMockSourceStore creates a new MockSourceStore.
func NewMockSourceStore() *MockSourceStore {
	return &MockSourceStore{sources: make(map[string]*domain.Source)}
}

func (m *MockSourceStore) Save(ctx context.Context, source *domain.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *source
	m.sources[source.ID] = &copied
	return nil
}

func (m *MockSourceStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	source, ok := m.sources[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *source
	return &copied, nil
}

func (m *MockSourceStore) List(ctx context.Context) ([]*domain.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Source
	for _, source := range m.sources {
		copied := *source
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MockSourceStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.sources, id)
	return nil
}
