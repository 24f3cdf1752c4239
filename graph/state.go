package graph

import (
	"time"

	"github.com/statorhq/stator/row"
)

// State is a named node of the state graph. All fields are immutable after
// the owning StateGraph is built.
type State[R row.Row] struct {
	name string

	retryAfter    time.Duration
	hasRetryAfter bool

	startAfter time.Duration

	deleteAfter    time.Duration
	hasDeleteAfter bool

	externallyProgressed bool
	forceInitial         bool

	timeoutState string
	timeoutAfter time.Duration
	hasTimeout   bool

	handler Handler[R]

	children map[string]struct{}
	parents  map[string]struct{}
}

// Name returns the state's unique name within its graph.
func (s *State[R]) Name() string { return s.name }

// RetryAfter returns the delay applied when the handler reports no
// transition, and whether one was configured.
func (s *State[R]) RetryAfter() (time.Duration, bool) { return s.retryAfter, s.hasRetryAfter }

// StartAfter returns the delay applied when a row enters this state.
func (s *State[R]) StartAfter() time.Duration { return s.startAfter }

// DeleteAfter returns the TTL for rows sitting in this state, and whether
// one was configured.
func (s *State[R]) DeleteAfter() (time.Duration, bool) { return s.deleteAfter, s.hasDeleteAfter }

// ExternallyProgressed reports whether only a forced transition can move a
// row out of this state. Terminal states are implicitly externally
// progressed even if not declared as such.
func (s *State[R]) ExternallyProgressed() bool {
	return s.externallyProgressed || s.Terminal()
}

// ForceInitial reports whether this state overrides the default
// initial-state inference.
func (s *State[R]) ForceInitial() bool { return s.forceInitial }

// TimeoutState returns the state a row is forced into after TimeoutAfter
// has elapsed without a transition, and whether a timeout is configured.
func (s *State[R]) TimeoutState() (string, time.Duration, bool) {
	return s.timeoutState, s.timeoutAfter, s.hasTimeout
}

// Handler returns the function bound to this state, nil for terminal or
// externally-progressed states.
func (s *State[R]) Handler() Handler[R] { return s.handler }

// Initial reports whether this is the graph's single entry state:
// ForceInitial, or no declared parents.
func (s *State[R]) Initial() bool {
	return s.forceInitial || len(s.parents) == 0
}

// Terminal reports whether this state has no outgoing transitions.
// Terminal states are implicitly externally progressed.
func (s *State[R]) Terminal() bool {
	return len(s.children) == 0
}

// Children returns the names of states reachable via a declared transition
// or timeout edge from this state.
func (s *State[R]) Children() []string {
	out := make([]string, 0, len(s.children))
	for name := range s.children {
		out = append(out, name)
	}
	return out
}

// Parents returns the names of states with a declared edge into this one.
func (s *State[R]) Parents() []string {
	out := make([]string, 0, len(s.parents))
	for name := range s.parents {
		out = append(out, name)
	}
	return out
}

func (s *State[R]) hasChild(name string) bool {
	_, ok := s.children[name]
	return ok
}

// HasChild reports whether name is reachable from this state via a declared
// transition or timeout edge. Model.TransitionCheck uses this to reject a
// handler-declared transition that isn't part of the graph.
func (s *State[R]) HasChild(name string) bool { return s.hasChild(name) }
