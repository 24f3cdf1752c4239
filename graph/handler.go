package graph

import (
	"context"
	"errors"

	"github.com/statorhq/stator/row"
)

// ErrTryAgainLater is the recognized control signal a handler (or anything
// it calls into) can return to mean "quietly reschedule, nothing went
// wrong". The transition engine treats it identically to a nil Outcome: no
// transition, reschedule after RetryAfter.
var ErrTryAgainLater = errors.New("graph: try again later")

// Outcome is a handler's verdict about a row. The zero value means "no
// transition": reschedule the row and try again later.
type Outcome struct {
	next string
	has  bool
}

// NoTransition is the outcome a handler returns when the row isn't ready to
// move on yet.
func NoTransition() Outcome { return Outcome{} }

// TransitionTo is the outcome a handler returns to declare that the row
// should move to the named state. The name must be one of the current
// state's declared children or Model.TransitionCheck fails loudly.
func TransitionTo(state string) Outcome { return Outcome{next: state, has: true} }

// Next reports the declared next state name and whether one was set.
func (o Outcome) Next() (string, bool) { return o.next, o.has }

// Handler is the function bound to a non-terminal, non-externally-progressed
// state that decides whether a row should move on. It may perform arbitrary
// blocking I/O; the engine is synchronous at this boundary.
//
// A handler may:
//   - return (TransitionTo(name), nil): declared transition
//   - return (NoTransition(), nil): no transition, reschedule
//   - return (_, ErrTryAgainLater): treated as no transition
//   - return (_, ctx.Err()) after observing ctx.Done(): treated as no
//     transition; the row is left to its visibility timeout
//   - return (_, someOtherErr): logged, treated as no transition
type Handler[R row.Row] func(ctx context.Context, r R) (Outcome, error)
