// Package model implements the per-model transition engine: claiming
// batches of ready rows, running their state's handler, applying the
// outcome, forcing transitions, and sweeping expired rows.
package model

import "fmt"

// TransitionError reports a programming error: a handler returned a state
// that is not a declared child of the row's current state. It is fatal —
// the row is left untouched and the error bubbles out of the worker.
type TransitionError struct {
	Table string
	From  string
	To    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("model: %s: illegal transition %s -> %s: not a declared edge", e.Table, e.From, e.To)
}

// Fatal reports true: TransitionError is always a programming error that
// must bubble out of the worker rather than be retried, which runner.Runner
// detects through the runner.FatalError interface.
func (e *TransitionError) Fatal() bool { return true }
