// Package runner implements the bounded worker pool that fairly dispatches
// transition and deletion tasks across registered models, enforces
// per-task deadlines with mid-execution cancellation, runs an OS-level
// watchdog against scheduling-loop deadlock, and exports liveness.
package runner

import (
	"context"
	"time"
)

// Task is a single unit of work a worker executes: one row's transition
// check, or one model's deletion sweep pass.
type Task interface {
	Run(ctx context.Context) error
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func(ctx context.Context) error

// Run implements Task.
func (f TaskFunc) Run(ctx context.Context) error { return f(ctx) }

// FatalError is implemented by errors that must abort the runner rather
// than be treated as an ordinary handler failure — currently only
// model.TransitionError, a declared-edge violation. The runner package
// checks for this interface rather than importing model directly, so model
// depends on runner and not the other way around.
type FatalError interface {
	error
	Fatal() bool
}

// ModelRunner is the type-erased view of a model.Model[R] the Runner holds
// in its explicit registry (no reflection-based discovery).
// model.Adapter[R] implements this.
type ModelRunner interface {
	// Label identifies the model for logging, metrics, and --exclude
	// matching — conventionally the managed table name.
	Label() string

	// FetchTransitionTasks claims up to n ready rows (GetReady) and returns
	// one Task per row, each running TransitionCheck when executed.
	FetchTransitionTasks(ctx context.Context, n int, lockPeriod time.Duration) ([]Task, error)

	// HasDeletionStates reports whether the model's graph has any state
	// with a DeleteAfter TTL; models without one are skipped by the
	// deletion sweep entirely.
	HasDeletionStates() bool

	// RunDeletePass runs a single DoDeletes pass, returning the count
	// removed. The runner repeats this until two consecutive passes return
	// the same count.
	RunDeletePass(ctx context.Context) (int, error)

	// PendingCount returns the number of rows currently due for a check.
	PendingCount(ctx context.Context) (int, error)
}
