package postgres

import (
	"context"
	"encoding/json"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
	"github.com/storewatch-labs/storewatch-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChangeLogStore = (*ChangeLogStore)(nil)

// ChangeLogStore implements driven.ChangeLogStore using PostgreSQL
type ChangeLogStore struct {
	db *DB
}

// NewChangeLogStore creates a new ChangeLogStore
func NewChangeLogStore(db *DB) *ChangeLogStore {
	return &ChangeLogStore{db: db}
}

// Record appends one change log entry
func (s *ChangeLogStore) Record(ctx context.Context, event *domain.ChangeEvent) error {
	var fieldsJSON []byte
	if len(event.ChangedFields) > 0 {
		var err error
		fieldsJSON, err = json.Marshal(event.ChangedFields)
		if err != nil {
			return err
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO change_log (id, source_id, type, external_id, summary, changed_fields, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		event.ID,
		event.SourceID,
		string(event.Type),
		event.ExternalID,
		event.Summary,
		fieldsJSON,
		event.CreatedAt,
	)
	return err
}

// List returns entries newest-first
func (s *ChangeLogStore) List(ctx context.Context, page, limit int, typeFilter domain.ChangeType) ([]*domain.ChangeEvent, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	offset := (page - 1) * limit

	query := `
		SELECT id, source_id, type, external_id, summary, changed_fields, created_at
		FROM change_log
		WHERE ($1 = '' OR type = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, string(typeFilter), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.ChangeEvent
	for rows.Next() {
		var event domain.ChangeEvent
		var fieldsJSON []byte
		err := rows.Scan(
			&event.ID,
			&event.SourceID,
			&event.Type,
			&event.ExternalID,
			&event.Summary,
			&fieldsJSON,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &event.ChangedFields); err != nil {
				return nil, err
			}
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// Clear removes all entries and returns how many were removed
func (s *ChangeLogStore) Clear(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM change_log`)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}
