package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.ChangeLogService = (*ChangeLogService)(nil)

// ChangeLogService writes and reads the append-only change log.
// Recording is best-effort: a logging failure is reported but never
// blocks or rolls back persistence.
type ChangeLogService struct {
	store  driven.ChangeLogStore
	logger *slog.Logger
}

// NewChangeLogService creates a new ChangeLogService.
func NewChangeLogService(store driven.ChangeLogStore, logger *slog.Logger) *ChangeLogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeLogService{store: store, logger: logger}
}

// RecordResult appends one entry per classified change.
func (s *ChangeLogService) RecordResult(ctx context.Context, result *domain.ReconciliationResult) {
	for _, change := range result.Changes {
		event := domain.NewChangeEvent(
			result.SourceID,
			change.Type,
			change.ExternalID,
			changeSummary(change),
			change.ChangedFields,
		)
		s.record(ctx, event)
	}
}

// RecordRunSummary appends the aggregate entry for a completed run.
func (s *ChangeLogService) RecordRunSummary(ctx context.Context, result *domain.ReconciliationResult, report *domain.PersistReport) {
	summary := fmt.Sprintf("sync completed: %d new, %d modified, %d removed, images %.0f%%",
		result.NewCount, result.ModifiedCount, result.RemovedCount, result.ImageRate()*100)
	if result.DroppedCount > 0 {
		summary += fmt.Sprintf(", %d invalid records dropped", result.DroppedCount)
	}
	if report != nil && report.Deactivated != result.RemovedCount {
		summary += fmt.Sprintf(" (%d rows deactivated)", report.Deactivated)
	}
	s.record(ctx, domain.NewChangeEvent(result.SourceID, domain.ChangeTypeSummary, "", summary, nil))
}

// RecordError appends an entry for an abnormal run, so operators can
// tell "scrape looked broken" apart from "nothing changed".
func (s *ChangeLogService) RecordError(ctx context.Context, sourceID, message string) {
	s.record(ctx, domain.NewChangeEvent(sourceID, domain.ChangeTypeError, "", message, nil))
}

func (s *ChangeLogService) record(ctx context.Context, event *domain.ChangeEvent) {
	if err := s.store.Record(ctx, event); err != nil {
		s.logger.Warn("failed to record change log entry",
			"source_id", event.SourceID,
			"type", event.Type,
			"error", err,
		)
	}
}

// List returns change log entries newest-first.
func (s *ChangeLogService) List(ctx context.Context, page, limit int, typeFilter domain.ChangeType) ([]*domain.ChangeEvent, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.store.List(ctx, page, limit, typeFilter)
}

// Clear wipes the change log.
func (s *ChangeLogService) Clear(ctx context.Context) (int, error) {
	return s.store.Clear(ctx)
}

func changeSummary(change domain.ListingChange) string {
	switch change.Type {
	case domain.ChangeTypeNew:
		return fmt.Sprintf("new listing %q (price %d)", change.Name, change.Price)
	case domain.ChangeTypeModified:
		return fmt.Sprintf("listing %q changed: %s", change.Name, strings.Join(change.ChangedFields, ", "))
	case domain.ChangeTypeRemoved:
		return fmt.Sprintf("listing %q no longer present", change.Name)
	default:
		return string(change.Type)
	}
}
