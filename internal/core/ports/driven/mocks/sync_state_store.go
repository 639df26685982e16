package mocks

import (
	"context"
	"sync"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// MockSyncStateStore is an in-memory SyncStateStore for testing.
type MockSyncStateStore struct {
	mu     sync.Mutex
	states map[string]*domain.SourceSyncState

	// TryMarkBusyErr fails TryMarkBusy when set.
	TryMarkBusyErr error
}

// NewMockSyncStateStore creates a new MockSyncStateStore.
func NewMockSyncStateStore() *MockSyncStateStore {
	return &MockSyncStateStore{states: make(map[string]*domain.SourceSyncState)}
}

func (m *MockSyncStateStore) Get(ctx context.Context, sourceID string) (*domain.SourceSyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.states[sourceID]; ok {
		copied := *state
		return &copied, nil
	}
	return &domain.SourceSyncState{SourceID: sourceID}, nil
}

func (m *MockSyncStateStore) Save(ctx context.Context, state *domain.SourceSyncState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *state
	m.states[state.SourceID] = &copied
	return nil
}

func (m *MockSyncStateStore) List(ctx context.Context) ([]*domain.SourceSyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.SourceSyncState
	for _, state := range m.states {
		copied := *state
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MockSyncStateStore) Delete(ctx context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, sourceID)
	return nil
}

func (m *MockSyncStateStore) TryMarkBusy(ctx context.Context, sourceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TryMarkBusyErr != nil {
		return false, m.TryMarkBusyErr
	}
	state, ok := m.states[sourceID]
	if !ok {
		state = &domain.SourceSyncState{SourceID: sourceID}
		m.states[sourceID] = state
	}
	if state.Busy {
		return false, nil
	}
	state.Busy = true
	return true, nil
}

func (m *MockSyncStateStore) ClearBusy(ctx context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.states[sourceID]; ok {
		state.Busy = false
	}
	return nil
}

func (m *MockSyncStateStore) ClearAllBusy(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, state := range m.states {
		if state.Busy {
			state.Busy = false
			n++
		}
	}
	return n, nil
}
