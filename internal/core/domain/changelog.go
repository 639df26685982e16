package domain

import "time"

// ChangeType classifies a change log entry
type ChangeType string

const (
	// ChangeTypeNew records a listing seen for the first time
	ChangeTypeNew ChangeType = "new"
	// ChangeTypeModified records a listing whose content fingerprint changed
	ChangeTypeModified ChangeType = "modified"
	// ChangeTypeRemoved records a listing absent from an accepted snapshot
	ChangeTypeRemoved ChangeType = "removed"
	// ChangeTypeSummary records an aggregate per-run summary entry
	ChangeTypeSummary ChangeType = "summary"
	// ChangeTypeError records an abnormal run (collector failure, rejected snapshot)
	ChangeTypeError ChangeType = "error"
)

// ChangeEvent is one append-only change log entry. Entries are never
// mutated or deleted individually; the log as a whole can be cleared
// as an operator action.
type ChangeEvent struct {
	ID            string     `json:"id"`
	SourceID      string     `json:"source_id"`
	Type          ChangeType `json:"type"`
	ExternalID    string     `json:"external_id,omitempty"`
	Summary       string     `json:"summary"`
	ChangedFields []string   `json:"changed_fields,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewChangeEvent creates a change log entry with a fresh ID and timestamp.
func NewChangeEvent(sourceID string, changeType ChangeType, externalID, summary string, changedFields []string) *ChangeEvent {
	return &ChangeEvent{
		ID:            GenerateID(),
		SourceID:      sourceID,
		Type:          changeType,
		ExternalID:    externalID,
		Summary:       summary,
		ChangedFields: changedFields,
		CreatedAt:     time.Now(),
	}
}
