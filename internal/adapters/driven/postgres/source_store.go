package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SourceStore = (*SourceStore)(nil)

// SourceStore implements driven.SourceStore using PostgreSQL
type SourceStore struct {
	db *DB
}

// NewSourceStore creates a new SourceStore
func NewSourceStore(db *DB) *SourceStore {
	return &SourceStore{db: db}
}

// Save creates or updates a source
func (s *SourceStore) Save(ctx context.Context, source *domain.Source) error {
	configJSON, err := json.Marshal(source.Config)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sources (id, name, marketplace_type, config, enabled, sync_interval_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			marketplace_type = EXCLUDED.marketplace_type,
			config = EXCLUDED.config,
			enabled = EXCLUDED.enabled,
			sync_interval_seconds = EXCLUDED.sync_interval_seconds,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		source.ID,
		source.Name,
		string(source.MarketplaceType),
		configJSON,
		source.Enabled,
		int64(source.SyncInterval/time.Second),
		source.CreatedAt,
		source.UpdatedAt,
	)
	return err
}

// Get retrieves a source by ID
func (s *SourceStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	query := `
		SELECT id, name, marketplace_type, config, enabled, sync_interval_seconds, created_at, updated_at
		FROM sources
		WHERE id = $1
	`
	return s.scanSource(s.db.QueryRowContext(ctx, query, id))
}

// List retrieves all sources
func (s *SourceStore) List(ctx context.Context) ([]*domain.Source, error) {
	query := `
		SELECT id, name, marketplace_type, config, enabled, sync_interval_seconds, created_at, updated_at
		FROM sources
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*domain.Source
	for rows.Next() {
		source, err := s.scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// Delete removes a source
func (s *SourceStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SourceStore) scanSource(row rowScanner) (*domain.Source, error) {
	var source domain.Source
	var configJSON []byte
	var intervalSeconds int64

	err := row.Scan(
		&source.ID,
		&source.Name,
		&source.MarketplaceType,
		&configJSON,
		&source.Enabled,
		&intervalSeconds,
		&source.CreatedAt,
		&source.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(configJSON, &source.Config); err != nil {
		return nil, err
	}
	source.SyncInterval = time.Duration(intervalSeconds) * time.Second

	return &source, nil
}
