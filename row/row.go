// Package row defines the contract every entity managed by the transition
// engine must satisfy.
package row

import "time"

// Row is the contract a managed database entity must implement so that the
// model and runner packages can drive it through its state graph without
// knowing anything about its other columns.
//
// Implementations are ordinary structs scanned out of a database row; the
// model package never constructs a Row itself, it only reads and writes
// these four fields between store calls.
type Row interface {
	// RowID returns the primary key. It must be comparable so it can be used
	// as a map key and passed to store bulk operations.
	RowID() any

	// State returns the current state name.
	State() string
	// SetState overwrites the current state name.
	SetState(name string)

	// StateChanged returns the timestamp the row last actually changed state.
	StateChanged() time.Time
	// SetStateChanged overwrites that timestamp.
	SetStateChanged(t time.Time)

	// StateNext returns the next scheduled check time, or nil if the row is
	// externally progressed and has no schedule.
	StateNext() *time.Time
	// SetStateNext overwrites that schedule.
	SetStateNext(t *time.Time)
}
