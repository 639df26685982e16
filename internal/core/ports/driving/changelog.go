package driving

import (
	"context"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// ChangeLogService exposes the append-only change log to operators.
// The log is purely observational and never feeds back into
// reconciliation decisions.
type ChangeLogService interface {
	// List returns entries newest-first.
	List(ctx context.Context, page, limit int, typeFilter domain.ChangeType) ([]*domain.ChangeEvent, error)

	// Clear wipes the log and returns how many entries were removed.
	Clear(ctx context.Context) (int, error)
}
