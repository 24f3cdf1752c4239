package model_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/statorhq/stator/graph"
	"github.com/statorhq/stator/internal/example"
	"github.com/statorhq/stator/model"
	"github.com/statorhq/stator/store"
)

func noopHandler(context.Context, *example.Job) (graph.Outcome, error) {
	return graph.NoTransition(), nil
}

func newClock(start time.Time) (*time.Time, func() time.Time) {
	now := start
	return &now, func() time.Time { return now }
}

func newTestModel(t *testing.T, now func() time.Time) (*model.Model[*example.Job], *store.MemoryStore[*example.Job]) {
	t.Helper()
	g, err := example.NewJobGraph()
	if err != nil {
		t.Fatalf("NewJobGraph: %v", err)
	}
	st := store.NewMemoryStore[*example.Job](now)
	m := model.New[*example.Job]("jobs", g, st, model.WithClock[*example.Job](now))
	return m, st
}

func TestTransitionCheck_HandlerDeclaresTransition(t *testing.T) {
	clock, now := newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m, st := newTestModel(t, now)

	start := *clock
	j := &example.Job{ID: 1, StateName: "new", ChangedAt: start, Ready: true}
	st.Put(j)

	next, transitioned, err := m.TransitionCheck(context.Background(), j)
	if err != nil {
		t.Fatalf("TransitionCheck: unexpected error: %v", err)
	}
	if !transitioned {
		t.Fatalf("TransitionCheck: expected a transition")
	}
	if next != "done" {
		t.Errorf("TransitionCheck: next = %q, want %q", next, "done")
	}
	stored, ok := st.Get(j.ID)
	if !ok {
		t.Fatalf("row missing from store after transition")
	}
	if stored.State() != "done" {
		t.Errorf("stored state = %q, want %q", stored.State(), "done")
	}
	if stored.StateNext() != nil {
		t.Errorf("done is externally progressed; StateNext should be nil, got %v", stored.StateNext())
	}
}

func TestTransitionCheck_NoTransitionReschedules(t *testing.T) {
	clock, now := newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m, st := newTestModel(t, now)

	j := &example.Job{ID: 2, StateName: "new", ChangedAt: *clock, Ready: false}
	st.Put(j)

	_, transitioned, err := m.TransitionCheck(context.Background(), j)
	if err != nil {
		t.Fatalf("TransitionCheck: unexpected error: %v", err)
	}
	if transitioned {
		t.Fatalf("TransitionCheck: expected no transition")
	}
	stored, _ := st.Get(j.ID)
	if stored.StateNext() == nil {
		t.Fatalf("no-transition row should have StateNext rescheduled")
	}
	wantNext := clock.Add(5 * time.Second)
	if !stored.StateNext().Equal(wantNext) {
		t.Errorf("StateNext = %v, want %v (RetryAfter)", stored.StateNext(), wantNext)
	}
}

func TestTransitionCheck_TimeoutFires(t *testing.T) {
	clock, now := newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m, st := newTestModel(t, now)

	changed := *clock
	j := &example.Job{ID: 3, StateName: "new", ChangedAt: changed, Ready: false}
	st.Put(j)

	*clock = changed.Add(11 * time.Second)

	next, transitioned, err := m.TransitionCheck(context.Background(), j)
	if err != nil {
		t.Fatalf("TransitionCheck: unexpected error: %v", err)
	}
	if !transitioned || next != "timed_out" {
		t.Fatalf("TransitionCheck: next = %q, transitioned = %v, want %q, true", next, transitioned, "timed_out")
	}
}

func TestTransitionCheck_IllegalTransitionIsFatal(t *testing.T) {
	clock, now := newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	_, st := newTestModel(t, now)

	// "start" only declares "elsewhere" as a child; its handler returns
	// "nope" instead, which is a declared state but not a declared edge from
	// "start", so TransitionCheck must refuse it as an illegal transition.
	g, err := graph.NewBuilder[*example.Job]("broken").
		AddState(graph.StateDef[*example.Job]{
			Name: "start", HasRetryAfter: true, RetryAfter: time.Second,
			Handler: func(context.Context, *example.Job) (graph.Outcome, error) {
				return graph.TransitionTo("nope"), nil
			},
		}).
		AddState(graph.StateDef[*example.Job]{
			Name: "elsewhere", HasRetryAfter: true, RetryAfter: time.Second,
			Handler: noopHandler,
		}).
		AddState(graph.StateDef[*example.Job]{Name: "nope", ExternallyProgressed: true}).
		TransitionsTo("start", "elsewhere").
		TransitionsTo("elsewhere", "nope").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	bm := model.New[*example.Job]("broken", g, st, model.WithClock[*example.Job](now))

	j := &example.Job{ID: 4, StateName: "start", ChangedAt: *clock}
	st.Put(j)

	_, _, err = bm.TransitionCheck(context.Background(), j)
	var terr *model.TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("TransitionCheck: expected *model.TransitionError, got %v", err)
	}
	if !terr.Fatal() {
		t.Errorf("TransitionError.Fatal() = false, want true")
	}
}

func TestTransitionCheck_ExternallyProgressedReclaimed(t *testing.T) {
	clock, now := newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m, st := newTestModel(t, now)

	next := clock.Add(time.Second)
	j := &example.Job{ID: 5, StateName: "done", ChangedAt: *clock, NextAt: &next}
	st.Put(j)

	_, transitioned, err := m.TransitionCheck(context.Background(), j)
	if err != nil {
		t.Fatalf("TransitionCheck: unexpected error: %v", err)
	}
	if transitioned {
		t.Fatalf("reclaiming an externally-progressed row should never report a transition")
	}
	stored, _ := st.Get(j.ID)
	if stored.StateNext() != nil {
		t.Errorf("reclaimed externally-progressed row should have StateNext cleared, got %v", stored.StateNext())
	}
}

func TestDoDeletes_SweepsExpiredRows(t *testing.T) {
	clock, now := newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m, st := newTestModel(t, now)

	old := clock.Add(-1 * time.Hour)
	fresh := *clock
	st.Put(&example.Job{ID: 6, StateName: "deleted", ChangedAt: old})
	st.Put(&example.Job{ID: 7, StateName: "deleted", ChangedAt: fresh})
	st.Put(&example.Job{ID: 8, StateName: "new", ChangedAt: old, Ready: false})

	n, err := m.DoDeletes(context.Background())
	if err != nil {
		t.Fatalf("DoDeletes: %v", err)
	}
	if n != 1 {
		t.Fatalf("DoDeletes: removed %d rows, want 1", n)
	}
	if _, ok := st.Get(int64(6)); ok {
		t.Errorf("row 6 should have been deleted")
	}
	if _, ok := st.Get(int64(7)); !ok {
		t.Errorf("row 7 is not yet past its TTL and should remain")
	}
	if _, ok := st.Get(int64(8)); !ok {
		t.Errorf("row 8 is not in a deletion state and should remain")
	}
}

func TestCountPending(t *testing.T) {
	clock, now := newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m, st := newTestModel(t, now)

	past := clock.Add(-time.Minute)
	future := clock.Add(time.Minute)
	st.Put(&example.Job{ID: 9, StateName: "new", ChangedAt: *clock, NextAt: &past})
	st.Put(&example.Job{ID: 10, StateName: "new", ChangedAt: *clock, NextAt: &future})

	n, err := m.CountPending(context.Background())
	if err != nil {
		t.Fatalf("CountPending: %v", err)
	}
	if n != 1 {
		t.Errorf("CountPending = %d, want 1", n)
	}
}
