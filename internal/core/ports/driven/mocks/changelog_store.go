package mocks

import (
	"context"
	"sync"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// MockChangeLogStore is an in-memory ChangeLogStore for testing.
type MockChangeLogStore struct {
	mu     sync.RWMutex
	events []*domain.ChangeEvent

	// RecordErr fails Record when set.
	RecordErr error
}

// NewMockChangeLogStore creates a new MockChangeLogStore.
func NewMockChangeLogStore() *MockChangeLogStore {
	return &MockChangeLogStore{}
}

func (m *MockChangeLogStore) Record(ctx context.Context, event *domain.ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MockChangeLogStore) List(ctx context.Context, page, limit int, typeFilter domain.ChangeType) ([]*domain.ChangeEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	// Newest first.
	var filtered []*domain.ChangeEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if typeFilter != "" && m.events[i].Type != typeFilter {
			continue
		}
		filtered = append(filtered, m.events[i])
	}

	start := (page - 1) * limit
	if start >= len(filtered) {
		return nil, nil
	}
	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], nil
}

func (m *MockChangeLogStore) Clear(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.events)
	m.events = nil
	return n, nil
}

// Events returns all recorded events in append order, for assertions.
func (m *MockChangeLogStore) Events() []*domain.ChangeEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.ChangeEvent, len(m.events))
	copy(out, m.events)
	return out
}

// EventsOfType returns recorded events of one type, for assertions.
func (m *MockChangeLogStore) EventsOfType(t domain.ChangeType) []*domain.ChangeEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.ChangeEvent
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
