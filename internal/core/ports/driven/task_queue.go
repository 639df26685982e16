package driven

import (
	"context"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// TaskQueue hands sync tasks from the scheduler and the API to workers.
type TaskQueue interface {
	// Enqueue adds a task for processing.
	Enqueue(ctx context.Context, task *domain.Task) error

	// DequeueWithTimeout retrieves the next available task, waiting up
	// to timeout seconds. Returns nil, nil when nothing is available.
	// The task is marked processing and not handed to other workers.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack acknowledges successful completion of a task.
	Ack(ctx context.Context, taskID string) error

	// Nack records a failure. The task is rescheduled with backoff until
	// its attempts are exhausted, then marked failed.
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// PendingCount returns how many tasks are waiting.
	PendingCount(ctx context.Context) (int, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error
}
