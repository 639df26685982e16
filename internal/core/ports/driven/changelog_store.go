package driven

import (
	"context"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// ChangeLogStore persists the append-only change log. Entries are never
// updated or deleted individually; Clear wipes the log as an operator action.
type ChangeLogStore interface {
	// Record appends one change log entry.
	Record(ctx context.Context, event *domain.ChangeEvent) error

	// List returns entries newest-first. Page starts at 1; typeFilter
	// empty means all types.
	List(ctx context.Context, page, limit int, typeFilter domain.ChangeType) ([]*domain.ChangeEvent, error)

	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}
