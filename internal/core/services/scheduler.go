package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
)

// Scheduler enqueues sync tasks for sources whose interval has elapsed.
// It runs on worker nodes and polls the source registry periodically.
//
// For multi-worker deployments, configure a DistributedLock to prevent
// duplicate task enqueuing across instances.
type Scheduler struct {
	sources   driven.SourceStore
	states    driven.SyncStateStore
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	interval        time.Duration
	defaultInterval time.Duration

	// Lock configuration
	lockTTL      time.Duration
	lockRequired bool
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	SourceStore    driven.SourceStore
	SyncStateStore driven.SyncStateStore
	TaskQueue      driven.TaskQueue
	Lock           driven.DistributedLock // Optional: coordination across instances
	Logger         *slog.Logger
	PollInterval   time.Duration // How often to check for due sources (default: 30s)
	SyncInterval   time.Duration // Fallback for sources without one (default: 1h)
	LockTTL        time.Duration // TTL for the distributed lock (default: 60s)
	LockRequired   bool          // If true, skip scheduling when lock cannot be acquired
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.PollInterval
	if interval == 0 {
		interval = 30 * time.Second
	}

	defaultInterval := cfg.SyncInterval
	if defaultInterval == 0 {
		defaultInterval = time.Hour
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 60 * time.Second
	}

	// Default to requiring the lock whenever one is provided.
	lockRequired := cfg.LockRequired
	if cfg.Lock != nil && !cfg.LockRequired {
		lockRequired = true
	}

	return &Scheduler{
		sources:         cfg.SourceStore,
		states:          cfg.SyncStateStore,
		taskQueue:       cfg.TaskQueue,
		lock:            cfg.Lock,
		logger:          logger,
		interval:        interval,
		defaultInterval: defaultInterval,
		lockTTL:         lockTTL,
		lockRequired:    lockRequired,
	}
}

// Start begins the scheduler loop.
// It runs until Stop is called or context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "poll_interval", s.interval)

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for the scheduler to finish
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.checkAndEnqueue(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkAndEnqueue(ctx)
		}
	}
}

// checkAndEnqueue enqueues a sync task for every due source.
// If a distributed lock is configured, it is acquired before polling so
// multiple scheduler instances do not enqueue duplicates.
func (s *Scheduler) checkAndEnqueue(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, "scheduler", s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire scheduler lock", "error", err)
			if s.lockRequired {
				return // Skip this cycle
			}
		} else if !acquired {
			s.logger.Debug("scheduler lock held by another instance, skipping cycle")
			return
		} else {
			defer func() {
				if err := s.lock.Release(ctx, "scheduler"); err != nil {
					s.logger.Warn("failed to release scheduler lock", "error", err)
				}
			}()
		}
	}

	sources, err := s.sources.List(ctx)
	if err != nil {
		s.logger.Error("failed to list sources", "error", err)
		return
	}

	now := time.Now()
	for _, source := range sources {
		if !source.Enabled {
			continue
		}

		state, err := s.states.Get(ctx, source.ID)
		if err != nil {
			s.logger.Warn("failed to get sync state", "source_id", source.ID, "error", err)
			continue
		}
		if !s.isDue(source, state, now) {
			continue
		}

		task := domain.NewSyncSourceTask(source.ID)
		if err := s.taskQueue.Enqueue(ctx, task); err != nil {
			s.logger.Error("failed to enqueue sync task",
				"source_id", source.ID,
				"error", err,
			)
			continue
		}

		s.logger.Info("enqueued sync task",
			"source_id", source.ID,
			"task_id", task.ID,
		)
	}
}

// isDue reports whether a source's interval has elapsed. Sources with a
// run in flight are never due; a second enqueue would only be skipped by
// the busy guard anyway.
func (s *Scheduler) isDue(source *domain.Source, state *domain.SourceSyncState, now time.Time) bool {
	if state.Busy {
		return false
	}
	if state.LastSyncAt == nil {
		return true
	}

	interval := source.SyncInterval
	if interval <= 0 {
		interval = s.defaultInterval
	}
	return now.Sub(*state.LastSyncAt) >= interval
}

// TriggerNow immediately enqueues a sync task for a source, ignoring its
// interval.
func (s *Scheduler) TriggerNow(ctx context.Context, sourceID string) (*domain.Task, error) {
	source, err := s.sources.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if !source.Enabled {
		return nil, domain.ErrSourceDisabled
	}

	task := domain.NewSyncSourceTask(source.ID)
	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("manually triggered sync task",
		"source_id", source.ID,
		"task_id", task.ID,
	)

	return task, nil
}
