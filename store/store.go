// Package store provides persistence implementations for managed rows: the
// ranged select-with-skip-locked claim, bulk transition updates, batched
// deletes, and pending counts the transition engine needs from its
// persistence layer.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/statorhq/stator/row"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Scanner builds a row value of type R out of a single database row read
// through scan, in the order of SQLStoreConfig.SelectColumns.
// Implementations typically wrap *sql.Rows.Scan.
type Scanner[R row.Row] func(scan func(dest ...any) error) (R, error)

// RowStore is the persistence contract a Model needs from the store layer.
// Implementations hold one physical table per instance; Model never sees
// SQL directly.
//
// Every method is safe for concurrent use by multiple Models/goroutines.
// On Postgres and MySQL, row-level exclusion comes from ClaimReady's
// skip-locked select; SQLiteStore and MemoryStore serialize claims behind
// an in-process mutex instead.
type RowStore[R row.Row] interface {
	// ClaimReady atomically selects up to n rows with state_next <= now,
	// ordered ascending by state_next, skipping rows already locked by
	// another session, and advances their state_next to now+2*lockPeriod
	// (the visibility timeout) within the same transaction.
	ClaimReady(ctx context.Context, n int, lockPeriod time.Duration) ([]R, error)

	// Reschedule persists r's state_next (nil clears it) for a single row
	// already held by the caller. Model.TransitionCheck does not use it;
	// its "no transition" and "externally progressed" paths go through
	// ApplyTransition.
	Reschedule(ctx context.Context, r R) error

	// ApplyTransition persists state, state_changed, and state_next for
	// every row in rows in one store update, re-reading none of them (the
	// caller already mutated the in-memory values). Used for both the
	// single-row transition inside TransitionCheck and bulk forced
	// transitions.
	ApplyTransition(ctx context.Context, rows []R) error

	// DeleteBefore deletes up to limit rows in state whose state_changed
	// is at or before cutoff, returning how many were removed.
	DeleteBefore(ctx context.Context, state string, cutoff time.Time, limit int) (int, error)

	// CountPending returns the number of rows with state_next <= now.
	CountPending(ctx context.Context, now time.Time) (int, error)

	// Close releases the store's underlying connection(s).
	Close() error
}
