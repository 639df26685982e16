package domain

import "time"

// SyncStatus is the terminal status of one sync run
type SyncStatus string

const (
	// SyncStatusSkipped means the run did nothing: source busy, disabled,
	// or the remote count matched the local catalog
	SyncStatusSkipped SyncStatus = "skipped"
	// SyncStatusAccepted means the snapshot was reconciled and persisted
	SyncStatusAccepted SyncStatus = "accepted"
	// SyncStatusRejected means the threshold guard refused the snapshot
	SyncStatusRejected SyncStatus = "rejected"
	// SyncStatusFailed means the run aborted on an error
	SyncStatusFailed SyncStatus = "failed"
)

// SourceSyncState tracks per-source sync bookkeeping. It is mutated only
// by the orchestrator, under the busy single-flight guard.
type SourceSyncState struct {
	SourceID        string     `json:"source_id"`
	Busy            bool       `json:"busy"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	LastRemoteCount int        `json:"last_remote_count"`
	LastLocalCount  int        `json:"last_local_count"`
	LastOutcome     SyncStatus `json:"last_outcome,omitempty"`
	Error           string     `json:"error,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// SyncStats holds per-run listing counts
type SyncStats struct {
	New      int `json:"new"`
	Modified int `json:"modified"`
	Removed  int `json:"removed"`
	Dropped  int `json:"dropped"`
}

// PersistReport describes how far batched persistence got. Chunks are
// committed independently, so ChunksApplied chunks are durable even when
// Completed is false.
type PersistReport struct {
	ChunksTotal    int  `json:"chunks_total"`
	ChunksApplied  int  `json:"chunks_applied"`
	UpsertsApplied int  `json:"upserts_applied"`
	Deactivated    int  `json:"deactivated"`
	Completed      bool `json:"completed"`
}

// SyncOutcome is the structured result of one sync run. Every abnormal
// path surfaces here; nothing is thrown past the orchestrator boundary.
type SyncOutcome struct {
	SourceID string         `json:"source_id"`
	Status   SyncStatus     `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	Error    string         `json:"error,omitempty"`
	Stats    SyncStats      `json:"stats"`
	Report   *PersistReport `json:"report,omitempty"`
	Duration float64        `json:"duration_seconds"`
}
