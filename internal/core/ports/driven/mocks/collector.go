package mocks

import (
	"context"
	"sync"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
)

// MockCollector is a scriptable Collector for testing.
type MockCollector struct {
	mu sync.Mutex

	// Records is the snapshot Collect returns.
	Records []domain.ListingRecord
	// CollectErr fails Collect when set.
	CollectErr error
	// CollectFailures fails the first N Collect calls, then succeeds.
	CollectFailures int
	// Count is what ProbeCount returns.
	Count int
	// ProbeErr fails ProbeCount when set.
	ProbeErr error

	collectCalls int
	probeCalls   int
}

// NewMockCollector creates a new MockCollector.
func NewMockCollector() *MockCollector {
	return &MockCollector{}
}

func (m *MockCollector) Type() domain.MarketplaceType {
	return domain.MarketplaceTypeAPI
}

func (m *MockCollector) Collect(ctx context.Context, source *domain.Source) ([]domain.ListingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collectCalls++
	if m.CollectErr != nil {
		return nil, m.CollectErr
	}
	if m.collectCalls <= m.CollectFailures {
		return nil, errInjected
	}
	out := make([]domain.ListingRecord, len(m.Records))
	copy(out, m.Records)
	return out, nil
}

func (m *MockCollector) ProbeCount(ctx context.Context, source *domain.Source) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeCalls++
	if m.ProbeErr != nil {
		return 0, m.ProbeErr
	}
	return m.Count, nil
}

// CollectCalls returns how many times Collect was invoked.
func (m *MockCollector) CollectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collectCalls
}

// ProbeCalls returns how many times ProbeCount was invoked.
func (m *MockCollector) ProbeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probeCalls
}

// MockCollectorFactory returns a fixed collector for every source.
type MockCollectorFactory struct {
	Collector *MockCollector
	// CreateErr fails Create when set.
	CreateErr error
}

// NewMockCollectorFactory creates a factory around a fresh MockCollector.
func NewMockCollectorFactory() *MockCollectorFactory {
	return &MockCollectorFactory{Collector: NewMockCollector()}
}

func (f *MockCollectorFactory) Register(builder driven.CollectorBuilder) {}

func (f *MockCollectorFactory) Create(ctx context.Context, source *domain.Source) (driven.Collector, error) {
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	return f.Collector, nil
}

func (f *MockCollectorFactory) SupportedTypes() []domain.MarketplaceType {
	return []domain.MarketplaceType{domain.MarketplaceTypeAPI}
}
