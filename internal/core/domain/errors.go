package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrSnapshotRejected indicates a collected snapshot was implausibly small
	// compared to the known catalog and was not applied
	ErrSnapshotRejected = errors.New("snapshot rejected")

	// ErrSyncInProgress indicates a sync is already running for the source
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrSourceDisabled indicates the source is disabled and cannot be synced
	ErrSourceDisabled = errors.New("source disabled")

	// ErrCollectorNotFound indicates the marketplace type is not registered
	ErrCollectorNotFound = errors.New("collector not found")
)
