package model

import (
	"context"
	"time"

	"github.com/statorhq/stator/row"
	"github.com/statorhq/stator/runner"
)

// Adapter exposes a Model[R] to runner.Runner as a runner.ModelRunner,
// erasing R so the Runner can hold a registry of heterogeneous models
// without reflection-based discovery.
type Adapter[R row.Row] struct {
	m *Model[R]
}

// NewAdapter wraps m for registration with a runner.Runner.
func NewAdapter[R row.Row](m *Model[R]) *Adapter[R] { return &Adapter[R]{m: m} }

// Label implements runner.ModelRunner.
func (a *Adapter[R]) Label() string { return a.m.table }

// HasDeletionStates implements runner.ModelRunner.
func (a *Adapter[R]) HasDeletionStates() bool {
	return len(a.m.graph.DeletionStates()) > 0
}

// PendingCount implements runner.ModelRunner.
func (a *Adapter[R]) PendingCount(ctx context.Context) (int, error) {
	return a.m.CountPending(ctx)
}

// RunDeletePass implements runner.ModelRunner.
func (a *Adapter[R]) RunDeletePass(ctx context.Context) (int, error) {
	return a.m.DoDeletes(ctx)
}

// FetchTransitionTasks implements runner.ModelRunner: it claims up to n
// ready rows and wraps each as a runner.Task that runs TransitionCheck
// when executed by a worker.
func (a *Adapter[R]) FetchTransitionTasks(ctx context.Context, n int, lockPeriod time.Duration) ([]runner.Task, error) {
	rows, err := a.m.GetReady(ctx, n, lockPeriod)
	if err != nil {
		return nil, err
	}
	tasks := make([]runner.Task, 0, len(rows))
	for _, r := range rows {
		r := r
		tasks = append(tasks, runner.TaskFunc(func(ctx context.Context) error {
			_, _, err := a.m.TransitionCheck(ctx, r)
			return err
		}))
	}
	return tasks, nil
}
