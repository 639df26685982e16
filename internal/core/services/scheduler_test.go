package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven/mocks"
)

// mockLock implements driven.DistributedLock for scheduler tests.
type mockLock struct {
	mu       sync.Mutex
	held     bool
	denied   bool
	acquires int
	releases int
}

var _ driven.DistributedLock = (*mockLock)(nil)

func (l *mockLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquires++
	if l.denied || l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *mockLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.releases++
	return nil
}

func (l *mockLock) Ping(ctx context.Context) error { return nil }

type schedulerFixture struct {
	sources *mocks.MockSourceStore
	states  *mocks.MockSyncStateStore
	queue   *mocks.MockTaskQueue
}

func newSchedulerFixture() *schedulerFixture {
	return &schedulerFixture{
		sources: mocks.NewMockSourceStore(),
		states:  mocks.NewMockSyncStateStore(),
		queue:   mocks.NewMockTaskQueue(),
	}
}

func (f *schedulerFixture) scheduler(cfg SchedulerConfig) *Scheduler {
	cfg.SourceStore = f.sources
	cfg.SyncStateStore = f.states
	cfg.TaskQueue = f.queue
	return NewScheduler(cfg)
}

func (f *schedulerFixture) addSource(id string, enabled bool, interval time.Duration) {
	_ = f.sources.Save(context.Background(), &domain.Source{
		ID:              id,
		Name:            "Market " + id,
		MarketplaceType: domain.MarketplaceTypeAPI,
		Enabled:         enabled,
		SyncInterval:    interval,
	})
}

func TestNewScheduler_Defaults(t *testing.T) {
	f := newSchedulerFixture()
	s := f.scheduler(SchedulerConfig{})

	if s.interval != 30*time.Second {
		t.Errorf("expected default poll interval 30s, got %v", s.interval)
	}
	if s.defaultInterval != time.Hour {
		t.Errorf("expected default sync interval 1h, got %v", s.defaultInterval)
	}
	if s.logger == nil {
		t.Error("expected default logger")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	f := newSchedulerFixture()
	s := f.scheduler(SchedulerConfig{PollInterval: 100 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("failed to start scheduler: %v", err)
	}

	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		t.Error("expected scheduler to be running")
	}

	// Start again should be no-op
	if err := s.Start(ctx); err != nil {
		t.Errorf("second start should not error: %v", err)
	}

	s.Stop()

	s.mu.RLock()
	running = s.running
	s.mu.RUnlock()
	if running {
		t.Error("expected scheduler to be stopped")
	}

	// Stop again should be no-op
	s.Stop()
}

func TestScheduler_CheckAndEnqueue_DueSources(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture()
	s := f.scheduler(SchedulerConfig{PollInterval: time.Hour})

	// Never synced: due immediately.
	f.addSource("due-new", true, time.Hour)

	// Synced two hours ago with a one hour interval: due.
	f.addSource("due-stale", true, time.Hour)
	past := time.Now().Add(-2 * time.Hour)
	_ = f.states.Save(ctx, &domain.SourceSyncState{SourceID: "due-stale", LastSyncAt: &past})

	// Synced just now: not due.
	f.addSource("fresh", true, time.Hour)
	now := time.Now()
	_ = f.states.Save(ctx, &domain.SourceSyncState{SourceID: "fresh", LastSyncAt: &now})

	// Run in flight: not due.
	f.addSource("busy", true, time.Hour)
	_ = f.states.Save(ctx, &domain.SourceSyncState{SourceID: "busy", Busy: true})

	// Disabled: never scheduled.
	f.addSource("off", false, time.Hour)

	s.checkAndEnqueue(ctx)

	enqueued := f.queue.Enqueued()
	if len(enqueued) != 2 {
		t.Fatalf("expected 2 enqueued tasks, got %d", len(enqueued))
	}
	seen := map[string]bool{}
	for _, task := range enqueued {
		if task.Type != domain.TaskTypeSyncSource {
			t.Errorf("expected sync_source task, got %s", task.Type)
		}
		seen[task.SourceID()] = true
	}
	if !seen["due-new"] || !seen["due-stale"] {
		t.Errorf("expected due-new and due-stale, got %v", seen)
	}
}

func TestScheduler_CheckAndEnqueue_DefaultInterval(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture()
	s := f.scheduler(SchedulerConfig{SyncInterval: 10 * time.Minute})

	// No per-source interval: the scheduler fallback applies.
	f.addSource("src-1", true, 0)
	past := time.Now().Add(-15 * time.Minute)
	_ = f.states.Save(ctx, &domain.SourceSyncState{SourceID: "src-1", LastSyncAt: &past})

	s.checkAndEnqueue(ctx)

	if got := len(f.queue.Enqueued()); got != 1 {
		t.Errorf("expected 1 enqueued task, got %d", got)
	}
}

func TestScheduler_LockHeldByPeerSkipsCycle(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture()
	lock := &mockLock{denied: true}
	s := f.scheduler(SchedulerConfig{Lock: lock})

	f.addSource("src-1", true, time.Hour)

	s.checkAndEnqueue(ctx)

	if got := len(f.queue.Enqueued()); got != 0 {
		t.Errorf("expected no tasks while lock is held elsewhere, got %d", got)
	}
}

func TestScheduler_LockAcquiredAndReleased(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture()
	lock := &mockLock{}
	s := f.scheduler(SchedulerConfig{Lock: lock})

	f.addSource("src-1", true, time.Hour)

	s.checkAndEnqueue(ctx)

	if got := len(f.queue.Enqueued()); got != 1 {
		t.Errorf("expected 1 enqueued task, got %d", got)
	}
	if lock.acquires != 1 || lock.releases != 1 {
		t.Errorf("expected lock acquired and released once, got %d/%d", lock.acquires, lock.releases)
	}
}

func TestScheduler_TriggerNow(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture()
	s := f.scheduler(SchedulerConfig{})

	f.addSource("src-1", true, time.Hour)
	// Freshly synced, interval not elapsed: TriggerNow ignores that.
	now := time.Now()
	_ = f.states.Save(ctx, &domain.SourceSyncState{SourceID: "src-1", LastSyncAt: &now})

	task, err := s.TriggerNow(ctx, "src-1")
	if err != nil {
		t.Fatalf("failed to trigger: %v", err)
	}
	if task.Type != domain.TaskTypeSyncSource {
		t.Errorf("expected sync_source task, got %s", task.Type)
	}
	if task.SourceID() != "src-1" {
		t.Errorf("expected source src-1, got %s", task.SourceID())
	}
	if got := len(f.queue.Enqueued()); got != 1 {
		t.Errorf("expected 1 enqueued task, got %d", got)
	}
}

func TestScheduler_TriggerNow_Disabled(t *testing.T) {
	f := newSchedulerFixture()
	s := f.scheduler(SchedulerConfig{})

	f.addSource("src-1", false, time.Hour)

	_, err := s.TriggerNow(context.Background(), "src-1")
	if !errors.Is(err, domain.ErrSourceDisabled) {
		t.Errorf("expected ErrSourceDisabled, got %v", err)
	}
}

func TestScheduler_TriggerNow_NotFound(t *testing.T) {
	f := newSchedulerFixture()
	s := f.scheduler(SchedulerConfig{})

	_, err := s.TriggerNow(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestScheduler_ContextCancellation(t *testing.T) {
	f := newSchedulerFixture()
	s := f.scheduler(SchedulerConfig{PollInterval: 100 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())

	if err := s.Start(ctx); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	cancel()
	time.Sleep(50 * time.Millisecond)

	s.Stop()

	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if running {
		t.Error("expected scheduler to be stopped after context cancellation")
	}
}
