package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/statorhq/stator/store"
)

type fakeRow struct {
	id      int
	state   string
	changed time.Time
	next    *time.Time
}

func (f *fakeRow) RowID() any                  { return f.id }
func (f *fakeRow) State() string               { return f.state }
func (f *fakeRow) SetState(s string)           { f.state = s }
func (f *fakeRow) StateChanged() time.Time     { return f.changed }
func (f *fakeRow) SetStateChanged(t time.Time) { f.changed = t }
func (f *fakeRow) StateNext() *time.Time       { return f.next }
func (f *fakeRow) SetStateNext(t *time.Time)   { f.next = t }

func at(t time.Time) *time.Time { return &t }

func TestMemoryStore_ClaimReadyOrdersByStateNext(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base.Add(time.Minute)
	st := store.NewMemoryStore[*fakeRow](func() time.Time { return now })

	st.Put(&fakeRow{id: 1, state: "a", changed: base, next: at(base.Add(30 * time.Second))})
	st.Put(&fakeRow{id: 2, state: "a", changed: base, next: at(base.Add(10 * time.Second))})
	st.Put(&fakeRow{id: 3, state: "a", changed: base, next: at(base.Add(90 * time.Second))}) // not yet due

	claimed, err := st.ClaimReady(context.Background(), 10, 5*time.Second)
	if err != nil {
		t.Fatalf("ClaimReady: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("ClaimReady returned %d rows, want 2", len(claimed))
	}
	if claimed[0].id != 2 || claimed[1].id != 1 {
		t.Errorf("ClaimReady order = [%d %d], want [2 1]", claimed[0].id, claimed[1].id)
	}
	for _, r := range claimed {
		want := now.Add(10 * time.Second)
		if !r.StateNext().Equal(want) {
			t.Errorf("row %d StateNext = %v, want %v (visibility timeout)", r.id, r.StateNext(), want)
		}
	}
}

func TestMemoryStore_ClaimReadyRespectsLimit(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := store.NewMemoryStore[*fakeRow](func() time.Time { return base })
	for i := 0; i < 5; i++ {
		st.Put(&fakeRow{id: i, state: "a", changed: base, next: at(base.Add(-time.Second))})
	}

	claimed, err := st.ClaimReady(context.Background(), 3, time.Second)
	if err != nil {
		t.Fatalf("ClaimReady: %v", err)
	}
	if len(claimed) != 3 {
		t.Fatalf("ClaimReady returned %d rows, want 3", len(claimed))
	}
}

func TestMemoryStore_ApplyTransitionNotFound(t *testing.T) {
	st := store.NewMemoryStore[*fakeRow](nil)
	err := st.ApplyTransition(context.Background(), []*fakeRow{{id: 99, state: "a"}})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ApplyTransition: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_RescheduleNotFound(t *testing.T) {
	st := store.NewMemoryStore[*fakeRow](nil)
	err := st.Reschedule(context.Background(), &fakeRow{id: 99, state: "a"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Reschedule: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_DeleteBeforeFiltersByStateAndCutoff(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := store.NewMemoryStore[*fakeRow](func() time.Time { return base })

	st.Put(&fakeRow{id: 1, state: "deleted", changed: base.Add(-time.Hour)})
	st.Put(&fakeRow{id: 2, state: "deleted", changed: base})
	st.Put(&fakeRow{id: 3, state: "active", changed: base.Add(-time.Hour)})

	n, err := st.DeleteBefore(context.Background(), "deleted", base.Add(-time.Minute), 0)
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("DeleteBefore removed %d rows, want 1", n)
	}
	if st.Len() != 2 {
		t.Errorf("store has %d rows, want 2", st.Len())
	}
	if _, ok := st.Get(1); ok {
		t.Errorf("row 1 should have been deleted")
	}
}

func TestMemoryStore_DeleteBeforeRespectsLimit(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := store.NewMemoryStore[*fakeRow](func() time.Time { return base })
	for i := 0; i < 5; i++ {
		st.Put(&fakeRow{id: i, state: "deleted", changed: base.Add(-time.Hour)})
	}

	n, err := st.DeleteBefore(context.Background(), "deleted", base, 2)
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 2 {
		t.Fatalf("DeleteBefore removed %d rows, want 2 (limit)", n)
	}
	if st.Len() != 3 {
		t.Errorf("store has %d rows, want 3", st.Len())
	}
}

func TestMemoryStore_CountPending(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := store.NewMemoryStore[*fakeRow](func() time.Time { return base })

	st.Put(&fakeRow{id: 1, state: "a", changed: base, next: at(base.Add(-time.Second))})
	st.Put(&fakeRow{id: 2, state: "a", changed: base, next: at(base.Add(time.Second))})
	st.Put(&fakeRow{id: 3, state: "a", changed: base, next: nil})

	n, err := st.CountPending(context.Background(), base)
	if err != nil {
		t.Fatalf("CountPending: %v", err)
	}
	if n != 1 {
		t.Errorf("CountPending = %d, want 1", n)
	}
}

func TestMemoryStore_Close(t *testing.T) {
	st := store.NewMemoryStore[*fakeRow](nil)
	if err := st.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
