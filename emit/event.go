// Package emit provides event emission and observability for the
// transition engine.
package emit

import "time"

// Event represents an observability event emitted while a row is checked
// against its state graph.
//
// Events provide detailed insight into scheduler behavior:
//   - State entered, no-transition, timeout fired
//   - Externally-progressed row reclaimed
//   - Handler errors
//   - Deletion sweeps
type Event struct {
	// Table identifies which model (table) emitted this event.
	Table string

	// RowID identifies the row this event concerns. Empty for model-level
	// events (e.g. a deletion sweep summary).
	RowID string

	// Msg is a short machine-stable event name, e.g. "state_entered",
	// "no_transition", "timeout_fired", "handler_error", "deletion_sweep".
	Msg string

	// FromState and ToState describe the transition, when applicable.
	FromState string
	ToState   string

	// Meta carries event-specific structured data, e.g. {"error": "..."},
	// {"deleted": 12}.
	Meta map[string]any

	// At is when the event occurred.
	At time.Time
}
