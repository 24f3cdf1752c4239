// Package graph declares the state graph model: states, transitions,
// timeouts, and the construction-time invariants a valid graph must
// satisfy.
package graph

import "fmt"

// ValidationError reports a graph construction-time invariant violation.
// Code identifies which invariant failed so callers can branch on it
// without parsing Message.
type ValidationError struct {
	// Code names the violated invariant, e.g. "multiple_initial_states",
	// "terminal_has_handler", "missing_retry_after", "missing_timeout_after",
	// "timeout_state_not_child", "reserved_state_name".
	Code string

	// State is the offending state's name, empty if the violation is
	// graph-wide (e.g. no initial state at all).
	State string

	// Message is a human-readable description of the violation.
	Message string
}

func (e *ValidationError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("graph: %s: state %q: %s", e.Code, e.State, e.Message)
	}
	return fmt.Sprintf("graph: %s: %s", e.Code, e.Message)
}
