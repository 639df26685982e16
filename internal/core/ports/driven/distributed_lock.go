package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates work across instances. The scheduler uses
// it so that only one instance enqueues sync tasks per cycle.
type DistributedLock interface {
	// Acquire attempts to take a named lock with the given TTL.
	// Returns false if the lock is held by another instance.
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)

	// Release releases a named lock. Best-effort: TTL-based
	// implementations expire the lock anyway. Safe to call when the
	// lock is not held.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
