package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ListingStore = (*ListingStore)(nil)

// ListingStore implements driven.ListingStore using PostgreSQL.
// Listings are keyed by (external_id, source_id); removal is a soft
// delete via the is_active flag.
type ListingStore struct {
	db *DB
}

// NewListingStore creates a new ListingStore
func NewListingStore(db *DB) *ListingStore {
	return &ListingStore{db: db}
}

// GetActive retrieves all active listings for a source
func (s *ListingStore) GetActive(ctx context.Context, sourceID string) ([]domain.PersistedListing, error) {
	query := `
		SELECT external_id, source_id, name, price, image_url, url, fingerprint, is_active, collected_at, updated_at
		FROM listings
		WHERE source_id = $1 AND is_active = TRUE
	`

	rows, err := s.db.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []domain.PersistedListing
	for rows.Next() {
		var l domain.PersistedListing
		err := rows.Scan(
			&l.ExternalID,
			&l.SourceID,
			&l.Name,
			&l.Price,
			&l.ImageURL,
			&l.URL,
			&l.Fingerprint,
			&l.IsActive,
			&l.CollectedAt,
			&l.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// CountActive returns the number of active listings for a source
func (s *ListingStore) CountActive(ctx context.Context, sourceID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listings WHERE source_id = $1 AND is_active = TRUE`,
		sourceID,
	).Scan(&count)
	return count, err
}

// UpsertBatch writes one chunk of listings in a single transaction.
// Fingerprints are recomputed here so the stored value always matches
// the stored content, and is_active is set unconditionally, which
// also covers re-activation of previously removed listings.
func (s *ListingStore) UpsertBatch(ctx context.Context, sourceID string, listings []domain.ListingRecord) error {
	if len(listings) == 0 {
		return nil
	}

	query := `
		INSERT INTO listings (external_id, source_id, name, price, image_url, url, fingerprint, is_active, collected_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9)
		ON CONFLICT (external_id, source_id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			image_url = EXCLUDED.image_url,
			url = EXCLUDED.url,
			fingerprint = EXCLUDED.fingerprint,
			is_active = TRUE,
			collected_at = EXCLUDED.collected_at,
			updated_at = EXCLUDED.updated_at
	`

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := time.Now()
		for _, rec := range listings {
			collectedAt := rec.CollectedAt
			if collectedAt.IsZero() {
				collectedAt = now
			}
			_, err := stmt.ExecContext(ctx,
				rec.ExternalID,
				sourceID,
				rec.Name,
				rec.Price,
				rec.ImageURL,
				rec.URL,
				domain.Fingerprint(rec),
				collectedAt,
				now,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Deactivate soft-deletes the given external IDs in one statement
func (s *ListingStore) Deactivate(ctx context.Context, sourceID string, externalIDs []string) (int, error) {
	if len(externalIDs) == 0 {
		return 0, nil
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE listings
		SET is_active = FALSE, updated_at = NOW()
		WHERE source_id = $1 AND external_id = ANY($2) AND is_active = TRUE
	`, sourceID, pq.Array(externalIDs))
	if err != nil {
		return 0, err
	}

	n, err := result.RowsAffected()
	return int(n), err
}

// Stats aggregates active listings; empty sourceID covers all sources
func (s *ListingStore) Stats(ctx context.Context, sourceID string) (*domain.ListingStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE image_url <> ''),
		       COUNT(*) FILTER (WHERE image_url = ''),
		       MAX(updated_at)
		FROM listings
		WHERE is_active = TRUE AND ($1 = '' OR source_id = $1)
	`

	var stats domain.ListingStats
	var lastUpdate sql.NullTime
	err := s.db.QueryRowContext(ctx, query, sourceID).Scan(
		&stats.Total,
		&stats.WithImages,
		&stats.WithoutImages,
		&lastUpdate,
	)
	if err != nil {
		return nil, err
	}
	stats.LastUpdate = TimePtr(lastUpdate)
	return &stats, nil
}
