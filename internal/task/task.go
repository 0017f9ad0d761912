package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Task type constants
const (
	// TaskTypeChatGeneration streams a tutoring answer into a generation task row.
	TaskTypeChatGeneration = "chat_generation"
)

// Runner errors
var (
	// ErrQueueFull is returned by Submit when the in-memory queue has no room.
	ErrQueueFull = errors.New("task queue is full")

	// ErrRunnerStopped is returned by Submit after Stop.
	ErrRunnerStopped = errors.New("task runner is stopped")
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// Failer is implemented by tasks that persist their own failure state. The
// runner calls Fail when Execute panics.
type Failer interface {
	Fail(ctx context.Context, err error)
}

// Recoverer fails generation rows that no worker will ever finish.
type Recoverer interface {
	FailGenerating(ctx context.Context, createdBefore time.Time, reason string) (int64, error)
}

// Observer receives task lifecycle notifications, typically for metrics.
type Observer interface {
	TaskQueued(taskType string)
	TaskFinished(taskType string, err error, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) TaskQueued(string)                         {}
func (noopObserver) TaskFinished(string, error, time.Duration) {}
