package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.SyncService = (*SyncOrchestrator)(nil)

// SyncOrchestrator drives one reconciliation run per source:
//  1. Check the busy guard (single-flight per source)
//  2. Probe the remote listing count; skip when it matches the catalog
//  3. Collect a complete snapshot, retrying with backoff
//  4. Reconcile against the active set (threshold-guarded)
//  5. Persist in independently committed chunks
//  6. Record change log entries and the run summary
//
// Every run ends Idle: the busy guard is cleared on success, rejection
// and failure alike.
type SyncOrchestrator struct {
	sources    driven.SourceStore
	listings   driven.ListingStore
	states     driven.SyncStateStore
	collectors driven.CollectorFactory
	persister  *BatchPersister
	changeLog  *ChangeLogService
	logger     *slog.Logger

	reconcileOpts  domain.ReconcileOptions
	collectRetries int
	retryBackoff   time.Duration
	runTimeout     time.Duration
}

// SyncOrchestratorConfig holds dependencies for SyncOrchestrator.
type SyncOrchestratorConfig struct {
	SourceStore      driven.SourceStore
	ListingStore     driven.ListingStore
	SyncStateStore   driven.SyncStateStore
	CollectorFactory driven.CollectorFactory
	Persister        *BatchPersister
	ChangeLog        *ChangeLogService
	Logger           *slog.Logger

	// MinSnapshotFraction overrides the 50% threshold guard default.
	MinSnapshotFraction float64
	// CollectRetries is how many times a failed collection is retried
	// within one run (default 2).
	CollectRetries int
	// RetryBackoff is the initial backoff between collection attempts,
	// doubled per retry (default 2s).
	RetryBackoff time.Duration
	// RunTimeout is the wall-clock budget per run (default 10m).
	// Cancellation is honored between persistence chunks, never
	// mid-transaction.
	RunTimeout time.Duration
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(cfg SyncOrchestratorConfig) *SyncOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := domain.DefaultReconcileOptions()
	if cfg.MinSnapshotFraction > 0 {
		opts.MinSnapshotFraction = cfg.MinSnapshotFraction
	}

	retries := cfg.CollectRetries
	if retries <= 0 {
		retries = 2
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	timeout := cfg.RunTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &SyncOrchestrator{
		sources:        cfg.SourceStore,
		listings:       cfg.ListingStore,
		states:         cfg.SyncStateStore,
		collectors:     cfg.CollectorFactory,
		persister:      cfg.Persister,
		changeLog:      cfg.ChangeLog,
		logger:         logger,
		reconcileOpts:  opts,
		collectRetries: retries,
		retryBackoff:   backoff,
		runTimeout:     timeout,
	}
}

// SyncSource runs one reconciliation for a source.
func (o *SyncOrchestrator) SyncSource(ctx context.Context, sourceID string, force bool) (*domain.SyncOutcome, error) {
	start := time.Now()

	source, err := o.sources.Get(ctx, sourceID)
	if err != nil {
		return o.failedOutcome(sourceID, start, fmt.Errorf("get source: %w", err))
	}
	if !source.Enabled {
		return o.skippedOutcome(sourceID, start, domain.ErrSourceDisabled.Error()), nil
	}

	acquired, err := o.states.TryMarkBusy(ctx, sourceID)
	if err != nil {
		return o.failedOutcome(sourceID, start, fmt.Errorf("acquire busy guard: %w", err))
	}
	if !acquired {
		o.logger.Info("sync skipped, run already in flight", "source_id", sourceID)
		return o.skippedOutcome(sourceID, start, domain.ErrSyncInProgress.Error()), nil
	}

	state, err := o.states.Get(ctx, sourceID)
	if err != nil {
		// Do not leave the guard behind on a state read failure.
		_ = o.states.ClearBusy(ctx, sourceID)
		return o.failedOutcome(sourceID, start, fmt.Errorf("get sync state: %w", err))
	}
	now := time.Now()
	state.Busy = true
	state.StartedAt = &now

	o.logger.Info("starting sync", "source_id", sourceID, "force", force)

	runCtx, cancel := context.WithTimeout(ctx, o.runTimeout)
	outcome := o.run(runCtx, source, state, force)
	cancel()

	o.finish(ctx, state, outcome, start)

	if outcome.Status == domain.SyncStatusFailed {
		return outcome, errors.New(outcome.Error)
	}
	return outcome, nil
}

// SyncAll runs SyncSource for every enabled source.
func (o *SyncOrchestrator) SyncAll(ctx context.Context) ([]*domain.SyncOutcome, error) {
	sources, err := o.sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	var outcomes []*domain.SyncOutcome
	for _, source := range sources {
		if !source.Enabled {
			continue
		}
		outcome, err := o.SyncSource(ctx, source.ID, false)
		if err != nil {
			o.logger.Error("sync failed", "source_id", source.ID, "error", err)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// GetSyncState retrieves the sync state for a source.
func (o *SyncOrchestrator) GetSyncState(ctx context.Context, sourceID string) (*domain.SourceSyncState, error) {
	return o.states.Get(ctx, sourceID)
}

// ListSyncStates retrieves sync states for all sources.
func (o *SyncOrchestrator) ListSyncStates(ctx context.Context) ([]*domain.SourceSyncState, error) {
	return o.states.List(ctx)
}

// run executes the probe → collect → reconcile → persist pipeline.
// The busy guard is already held; state mutations are flushed by finish.
func (o *SyncOrchestrator) run(ctx context.Context, source *domain.Source, state *domain.SourceSyncState, force bool) *domain.SyncOutcome {
	collector, err := o.collectors.Create(ctx, source)
	if err != nil {
		return failure(source.ID, fmt.Errorf("create collector: %w", err))
	}

	if !force {
		remote, err := collector.ProbeCount(ctx, source)
		if err != nil {
			// A broken probe must not block reconciliation.
			o.logger.Warn("count probe failed, collecting anyway", "source_id", source.ID, "error", err)
		} else {
			state.LastRemoteCount = remote
			local, err := o.listings.CountActive(ctx, source.ID)
			if err == nil && local == remote {
				state.LastLocalCount = local
				o.logger.Info("sync skipped, remote count matches catalog",
					"source_id", source.ID, "count", remote)
				return &domain.SyncOutcome{
					SourceID: source.ID,
					Status:   domain.SyncStatusSkipped,
					Reason:   "remote count matches local catalog",
				}
			}
		}
	}

	snapshot, err := o.collect(ctx, collector, source)
	if err != nil {
		o.changeLog.RecordError(ctx, source.ID, fmt.Sprintf("collection failed: %v", err))
		return failure(source.ID, fmt.Errorf("collect: %w", err))
	}

	existing, err := o.listings.GetActive(ctx, source.ID)
	if err != nil {
		return failure(source.ID, fmt.Errorf("load active listings: %w", err))
	}

	result, err := domain.Reconcile(source.ID, snapshot, existing, o.reconcileOpts)
	if err != nil {
		if errors.Is(err, domain.ErrSnapshotRejected) {
			// Logged distinctly from a "no changes" skip.
			o.changeLog.RecordError(ctx, source.ID, err.Error())
			o.logger.Warn("snapshot rejected", "source_id", source.ID, "error", err)
			return &domain.SyncOutcome{
				SourceID: source.ID,
				Status:   domain.SyncStatusRejected,
				Reason:   err.Error(),
			}
		}
		return failure(source.ID, fmt.Errorf("reconcile: %w", err))
	}

	report, err := o.persister.Apply(ctx, result)
	if err != nil {
		// Committed chunks stay durable; the whole result is retried at
		// the next cycle, relying on upsert idempotence.
		o.changeLog.RecordError(ctx, source.ID, fmt.Sprintf("persistence failed: %v", err))
		outcome := failure(source.ID, fmt.Errorf("persist: %w", err))
		outcome.Stats = result.Stats()
		outcome.Report = report
		return outcome
	}

	o.changeLog.RecordResult(ctx, result)
	o.changeLog.RecordRunSummary(ctx, result, report)

	state.LastLocalCount = result.SnapshotSize

	return &domain.SyncOutcome{
		SourceID: source.ID,
		Status:   domain.SyncStatusAccepted,
		Stats:    result.Stats(),
		Report:   report,
	}
}

// collect fetches a complete snapshot, retrying with doubling backoff.
func (o *SyncOrchestrator) collect(ctx context.Context, collector driven.Collector, source *domain.Source) ([]domain.ListingRecord, error) {
	var lastErr error
	for attempt := 0; attempt <= o.collectRetries; attempt++ {
		if attempt > 0 {
			backoff := o.retryBackoff << (attempt - 1)
			o.logger.Warn("retrying collection",
				"source_id", source.ID, "attempt", attempt+1, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		snapshot, err := collector.Collect(ctx, source)
		if err == nil {
			return snapshot, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d attempts: %w", o.collectRetries+1, lastErr)
}

// finish clears the busy guard and flushes state, whatever the outcome.
func (o *SyncOrchestrator) finish(ctx context.Context, state *domain.SourceSyncState, outcome *domain.SyncOutcome, start time.Time) {
	outcome.Duration = time.Since(start).Seconds()

	now := time.Now()
	state.Busy = false
	state.CompletedAt = &now
	state.LastOutcome = outcome.Status
	state.Error = outcome.Error

	// Failed runs should be retried at the next cycle, so they do not
	// advance the sync clock.
	if outcome.Status != domain.SyncStatusFailed {
		state.LastSyncAt = &now
	}

	if err := o.states.Save(ctx, state); err != nil {
		o.logger.Error("failed to save sync state", "source_id", state.SourceID, "error", err)
		if err := o.states.ClearBusy(ctx, state.SourceID); err != nil {
			o.logger.Error("failed to clear busy guard", "source_id", state.SourceID, "error", err)
		}
	}

	o.logger.Info("sync finished",
		"source_id", state.SourceID,
		"status", outcome.Status,
		"duration_seconds", outcome.Duration,
		"new", outcome.Stats.New,
		"modified", outcome.Stats.Modified,
		"removed", outcome.Stats.Removed,
	)
}

func failure(sourceID string, err error) *domain.SyncOutcome {
	return &domain.SyncOutcome{
		SourceID: sourceID,
		Status:   domain.SyncStatusFailed,
		Error:    err.Error(),
	}
}

func (o *SyncOrchestrator) skippedOutcome(sourceID string, start time.Time, reason string) *domain.SyncOutcome {
	return &domain.SyncOutcome{
		SourceID: sourceID,
		Status:   domain.SyncStatusSkipped,
		Reason:   reason,
		Duration: time.Since(start).Seconds(),
	}
}

func (o *SyncOrchestrator) failedOutcome(sourceID string, start time.Time, err error) (*domain.SyncOutcome, error) {
	o.logger.Error("sync failed", "source_id", sourceID, "error", err)
	outcome := failure(sourceID, err)
	outcome.Duration = time.Since(start).Seconds()
	return outcome, err
}
