package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/statorhq/stator/row"
)

// MemoryStore is an in-memory implementation of RowStore[R].
//
// It is designed for:
//   - Unit tests that exercise Model without a real database
//   - Single-process development
//
// A sync.Mutex stands in for the row-level locking a real database
// provides; MemoryStore is therefore safe for concurrent use within one
// process but offers no cross-process exclusion — there is only ever one
// store instance to share.
//
// Limitations:
//   - Data is lost when the process terminates.
//   - Not suitable for multi-process coordination.
type MemoryStore[R row.Row] struct {
	mu   sync.Mutex
	rows map[any]R
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory store. now defaults to
// time.Now if nil; tests typically inject a fake clock so assertions about
// state_next don't race the wall clock.
func NewMemoryStore[R row.Row](now func() time.Time) *MemoryStore[R] {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore[R]{
		rows: make(map[any]R),
		now:  now,
	}
}

// Put inserts or overwrites a row directly, bypassing the claim protocol.
// Used by tests to seed fixtures.
func (m *MemoryStore[R]) Put(r R) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[r.RowID()] = r
}

// Get returns the row with the given id, for test assertions.
func (m *MemoryStore[R]) Get(id any) (R, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	return r, ok
}

// Len reports how many rows the store currently holds.
func (m *MemoryStore[R]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// ClaimReady implements RowStore.
func (m *MemoryStore[R]) ClaimReady(_ context.Context, n int, lockPeriod time.Duration) ([]R, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var ids []any
	for id, r := range m.rows {
		if next := r.StateNext(); next != nil && !next.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		ri := m.rows[ids[i]]
		rj := m.rows[ids[j]]
		return ri.StateNext().Before(*rj.StateNext())
	})
	if n > 0 && len(ids) > n {
		ids = ids[:n]
	}

	visibility := now.Add(2 * lockPeriod)
	out := make([]R, 0, len(ids))
	for _, id := range ids {
		r := m.rows[id]
		r.SetStateNext(&visibility)
		m.rows[id] = r
		out = append(out, r)
	}
	return out, nil
}

// Reschedule implements RowStore.
func (m *MemoryStore[R]) Reschedule(_ context.Context, r R) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[r.RowID()]; !ok {
		return ErrNotFound
	}
	m.rows[r.RowID()] = r
	return nil
}

// ApplyTransition implements RowStore.
func (m *MemoryStore[R]) ApplyTransition(_ context.Context, rows []R) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		if _, ok := m.rows[r.RowID()]; !ok {
			return ErrNotFound
		}
		m.rows[r.RowID()] = r
	}
	return nil
}

// DeleteBefore implements RowStore.
func (m *MemoryStore[R]) DeleteBefore(_ context.Context, state string, cutoff time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, r := range m.rows {
		if limit > 0 && deleted >= limit {
			break
		}
		if r.State() == state && !r.StateChanged().After(cutoff) {
			delete(m.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

// CountPending implements RowStore.
func (m *MemoryStore[R]) CountPending(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, r := range m.rows {
		if next := r.StateNext(); next != nil && !next.After(now) {
			count++
		}
	}
	return count, nil
}

// Close implements RowStore. It is a no-op for MemoryStore.
func (m *MemoryStore[R]) Close() error { return nil }
