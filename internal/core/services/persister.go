package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
)

// DefaultChunkSize bounds how many upserts share one transaction.
// Chunks run sequentially on purpose: the target deployment is
// resource-constrained and a single in-flight transaction keeps the
// connection pool quiet.
const DefaultChunkSize = 150

// BatchPersister applies an accepted reconciliation result to the
// snapshot store in independently committed chunks. If chunk k fails,
// chunks 1..k-1 stay durable and the run stops; re-running the same
// result later is safe because upserts are idempotent. Deactivation
// runs only after every upsert chunk succeeded, so listings are never
// marked inactive before their replacements are durable.
type BatchPersister struct {
	listings  driven.ListingStore
	chunkSize int
	logger    *slog.Logger
}

// NewBatchPersister creates a batch persister. chunkSize <= 0 selects
// DefaultChunkSize.
func NewBatchPersister(listings driven.ListingStore, chunkSize int, logger *slog.Logger) *BatchPersister {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchPersister{
		listings:  listings,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Apply persists the result. The returned report always reflects how
// far the run got, including on error; cancellation is honored between
// chunks, never mid-transaction.
func (p *BatchPersister) Apply(ctx context.Context, result *domain.ReconciliationResult) (*domain.PersistReport, error) {
	total := len(result.ToUpsert)
	report := &domain.PersistReport{
		ChunksTotal: (total + p.chunkSize - 1) / p.chunkSize,
	}

	for start := 0; start < total; start += p.chunkSize {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("persist interrupted after %d/%d chunks: %w",
				report.ChunksApplied, report.ChunksTotal, err)
		}

		end := start + p.chunkSize
		if end > total {
			end = total
		}
		chunk := result.ToUpsert[start:end]

		if err := p.listings.UpsertBatch(ctx, result.SourceID, chunk); err != nil {
			return report, fmt.Errorf("upsert chunk %d/%d: %w",
				report.ChunksApplied+1, report.ChunksTotal, err)
		}
		report.ChunksApplied++
		report.UpsertsApplied += len(chunk)

		p.logger.Debug("chunk committed",
			"source_id", result.SourceID,
			"chunk", report.ChunksApplied,
			"chunks_total", report.ChunksTotal,
			"rows", len(chunk),
		)
	}

	if len(result.ToDeactivate) > 0 {
		n, err := p.listings.Deactivate(ctx, result.SourceID, result.ToDeactivate)
		if err != nil {
			return report, fmt.Errorf("deactivate %d listings: %w", len(result.ToDeactivate), err)
		}
		report.Deactivated = n
	}

	report.Completed = true
	return report, nil
}
