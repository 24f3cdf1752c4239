package example

import (
	"context"
	"time"

	"github.com/statorhq/stator/graph"
)

// NewJobGraph builds the reference graph: a job starts new, either
// completes quickly, goes through a deliberately slow check (useful for
// exercising task-deadline cancellation), or heads toward deletion;
// anything that lingers in new for more than 10 seconds without
// transitioning times out.
func NewJobGraph() (*graph.StateGraph[*Job], error) {
	b := graph.NewBuilder[*Job]("jobs").
		AddState(graph.StateDef[*Job]{
			Name:          "new",
			Handler:       checkNew,
			RetryAfter:    5 * time.Second,
			HasRetryAfter: true,
		}).
		AddState(graph.StateDef[*Job]{
			Name:          "slow",
			Handler:       checkSlow,
			RetryAfter:    5 * time.Second,
			HasRetryAfter: true,
		}).
		AddState(graph.StateDef[*Job]{
			Name:                 "done",
			ExternallyProgressed: true,
		}).
		AddState(graph.StateDef[*Job]{
			Name:           "timed_out",
			DeleteAfter:    10 * time.Second,
			HasDeleteAfter: true,
		}).
		AddState(graph.StateDef[*Job]{
			Name:          "pending_delete",
			Handler:       checkPendingDelete,
			RetryAfter:    5 * time.Second,
			HasRetryAfter: true,
			StartAfter:    5 * time.Second,
		}).
		AddState(graph.StateDef[*Job]{
			Name:           "deleted",
			DeleteAfter:    10 * time.Second,
			HasDeleteAfter: true,
		}).
		TransitionsTo("new", "done").
		TransitionsTo("new", "slow").
		TransitionsTo("new", "pending_delete").
		TimeoutTo("new", "timed_out", 10*time.Second).
		TransitionsTo("slow", "done").
		TransitionsTo("done", "pending_delete").
		TransitionsTo("pending_delete", "deleted")

	return b.Build()
}

func checkNew(_ context.Context, j *Job) (graph.Outcome, error) {
	if j.Ready {
		return graph.TransitionTo("done"), nil
	}
	return graph.NoTransition(), nil
}

func checkSlow(ctx context.Context, j *Job) (graph.Outcome, error) {
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return graph.NoTransition(), ctx.Err()
	}
	return graph.TransitionTo("done"), nil
}

func checkPendingDelete(_ context.Context, j *Job) (graph.Outcome, error) {
	if j.Ready {
		return graph.TransitionTo("deleted"), nil
	}
	return graph.NoTransition(), nil
}
