package mocks

import (
	"context"
	"sync"

	"github.com/storewatch-labs/storewatch-core/internal/core/domain"
)

// MockTaskQueue is an in-memory TaskQueue for testing.
type MockTaskQueue struct {
	mu      sync.Mutex
	pending []*domain.Task
	byID    map[string]*domain.Task
	acked   []string
	nacked  []string
}

// NewMockTaskQueue creates a new MockTaskQueue.
func NewMockTaskQueue() *MockTaskQueue {
	return &MockTaskQueue{byID: make(map[string]*domain.Task)}
}

func (q *MockTaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, task)
	q.byID[task.ID] = task
	return nil
}

func (q *MockTaskQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	task := q.pending[0]
	q.pending = q.pending[1:]
	task.Status = domain.TaskStatusProcessing
	task.Attempts++
	return task, nil
}

func (q *MockTaskQueue) Ack(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if task, ok := q.byID[taskID]; ok {
		task.Status = domain.TaskStatusCompleted
	}
	q.acked = append(q.acked, taskID)
	return nil
}

func (q *MockTaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if task, ok := q.byID[taskID]; ok {
		task.Status = domain.TaskStatusFailed
		task.Error = reason
	}
	q.nacked = append(q.nacked, taskID)
	return nil
}

func (q *MockTaskQueue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.byID[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

func (q *MockTaskQueue) PendingCount(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), nil
}

func (q *MockTaskQueue) Ping(ctx context.Context) error { return nil }

// Enqueued returns all tasks ever enqueued, for assertions.
func (q *MockTaskQueue) Enqueued() []*domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*domain.Task, 0, len(q.byID))
	for _, task := range q.byID {
		out = append(out, task)
	}
	return out
}

// Acked returns acked task IDs.
func (q *MockTaskQueue) Acked() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string{}, q.acked...)
}

// Nacked returns nacked task IDs.
func (q *MockTaskQueue) Nacked() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string{}, q.nacked...)
}
