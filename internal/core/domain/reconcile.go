package domain

import "fmt"

// ReconcileOptions tunes the diff between a snapshot and the active set.
type ReconcileOptions struct {
	// MinSnapshotFraction rejects snapshots smaller than this fraction of
	// the known active catalog. A transient crawl failure must never
	// masquerade as a mass delisting.
	MinSnapshotFraction float64

	// KeepFirstDuplicate resolves duplicate external IDs inside one
	// snapshot by keeping the first occurrence instead of the last.
	KeepFirstDuplicate bool
}

// DefaultReconcileOptions returns the standard policy: 50% floor,
// last occurrence wins on duplicates.
func DefaultReconcileOptions() ReconcileOptions {
	return ReconcileOptions{MinSnapshotFraction: 0.5}
}

// ListingChange describes one classified difference for the change log.
type ListingChange struct {
	Type          ChangeType `json:"type"`
	ExternalID    string     `json:"external_id"`
	Name          string     `json:"name"`
	Price         int        `json:"price"`
	ChangedFields []string   `json:"changed_fields,omitempty"`
}

// ReconciliationResult is the accepted outcome of one reconciliation run.
// ToUpsert holds new and modified records in snapshot order; ToDeactivate
// holds the external IDs absent from the snapshot.
type ReconciliationResult struct {
	SourceID      string          `json:"source_id"`
	ToUpsert      []ListingRecord `json:"to_upsert"`
	ToDeactivate  []string        `json:"to_deactivate"`
	Changes       []ListingChange `json:"changes"`
	NewCount      int             `json:"new_count"`
	ModifiedCount int             `json:"modified_count"`
	RemovedCount  int             `json:"removed_count"`
	DroppedCount  int             `json:"dropped_count"`
	SnapshotSize  int             `json:"snapshot_size"`
	ExistingSize  int             `json:"existing_size"`
}

// Stats summarizes the result counts.
func (r *ReconciliationResult) Stats() SyncStats {
	return SyncStats{
		New:      r.NewCount,
		Modified: r.ModifiedCount,
		Removed:  r.RemovedCount,
		Dropped:  r.DroppedCount,
	}
}

// ImageRate returns the fraction of upserted listings carrying an image URL.
func (r *ReconciliationResult) ImageRate() float64 {
	if len(r.ToUpsert) == 0 {
		return 0
	}
	withImage := 0
	for _, rec := range r.ToUpsert {
		if rec.ImageURL != "" {
			withImage++
		}
	}
	return float64(withImage) / float64(len(r.ToUpsert))
}

// Reconcile diffs a freshly collected snapshot against the persisted
// active set for one source. Records failing validation are dropped and
// counted. Each external ID produces at most one change per run.
//
// Returns ErrSnapshotRejected (wrapped) when the snapshot is implausibly
// small against a non-empty active set; in that case nothing must be
// persisted. There is no partial-accept outcome.
func Reconcile(sourceID string, snapshot []ListingRecord, existing []PersistedListing, opts ReconcileOptions) (*ReconciliationResult, error) {
	if opts.MinSnapshotFraction <= 0 {
		opts.MinSnapshotFraction = DefaultReconcileOptions().MinSnapshotFraction
	}

	// Index the snapshot by external ID, preserving first-seen order.
	dropped := 0
	order := make([]string, 0, len(snapshot))
	byID := make(map[string]ListingRecord, len(snapshot))
	for _, rec := range snapshot {
		if err := rec.Validate(); err != nil {
			dropped++
			continue
		}
		if _, seen := byID[rec.ExternalID]; seen {
			if opts.KeepFirstDuplicate {
				continue
			}
			byID[rec.ExternalID] = rec
			continue
		}
		order = append(order, rec.ExternalID)
		byID[rec.ExternalID] = rec
	}

	if len(existing) > 0 {
		floor := opts.MinSnapshotFraction * float64(len(existing))
		if float64(len(byID)) < floor {
			return nil, fmt.Errorf("snapshot of %d listings against %d active (minimum %.0f): %w",
				len(byID), len(existing), floor, ErrSnapshotRejected)
		}
	}

	existingByID := make(map[string]PersistedListing, len(existing))
	for _, row := range existing {
		existingByID[row.ExternalID] = row
	}

	result := &ReconciliationResult{
		SourceID:     sourceID,
		SnapshotSize: len(byID),
		ExistingSize: len(existing),
		DroppedCount: dropped,
	}

	for _, id := range order {
		rec := byID[id]
		rec.SourceID = sourceID

		row, known := existingByID[id]
		if !known {
			result.ToUpsert = append(result.ToUpsert, rec)
			result.Changes = append(result.Changes, ListingChange{
				Type:       ChangeTypeNew,
				ExternalID: id,
				Name:       rec.Name,
				Price:      rec.Price,
			})
			result.NewCount++
			continue
		}

		if Fingerprint(rec) == row.Fingerprint {
			continue
		}
		result.ToUpsert = append(result.ToUpsert, rec)
		result.Changes = append(result.Changes, ListingChange{
			Type:          ChangeTypeModified,
			ExternalID:    id,
			Name:          rec.Name,
			Price:         rec.Price,
			ChangedFields: changedFields(row, rec),
		})
		result.ModifiedCount++
	}

	// Existing rows absent from the snapshot are deactivated, in the
	// order the store returned them.
	for _, row := range existing {
		if _, present := byID[row.ExternalID]; present {
			continue
		}
		result.ToDeactivate = append(result.ToDeactivate, row.ExternalID)
		result.Changes = append(result.Changes, ListingChange{
			Type:       ChangeTypeRemoved,
			ExternalID: row.ExternalID,
			Name:       row.Name,
			Price:      row.Price,
		})
		result.RemovedCount++
	}

	return result, nil
}

// changedFields reports which semantic fields differ, in a fixed order.
func changedFields(old PersistedListing, rec ListingRecord) []string {
	var fields []string
	if old.Name != rec.Name {
		fields = append(fields, "name")
	}
	if old.Price != rec.Price {
		fields = append(fields, "price")
	}
	if old.ImageURL != rec.ImageURL {
		fields = append(fields, "image_url")
	}
	if old.URL != rec.URL {
		fields = append(fields, "url")
	}
	return fields
}
