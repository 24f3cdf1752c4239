package graph

import (
	"time"

	"github.com/statorhq/stator/row"
)

// reserved names cannot be used as state names: they collide with accessor
// names a generated admin surface or reflection-based tool would expect.
var reservedNames = map[string]struct{}{
	"states":          {},
	"initial_state":   {},
	"terminal_states": {},
	"choices":         {},
}

// StateDef describes a state to be added to a Builder. See State for field
// semantics.
type StateDef[R row.Row] struct {
	Name                 string
	Handler              Handler[R]
	RetryAfter           time.Duration
	HasRetryAfter        bool
	StartAfter           time.Duration
	DeleteAfter          time.Duration
	HasDeleteAfter       bool
	ExternallyProgressed bool
	ForceInitial         bool
}

// Builder accumulates states and edges before Build validates and freezes
// them into a StateGraph: add everything, then Build fails loudly on the
// first violated invariant.
type Builder[R row.Row] struct {
	name   string
	states map[string]*State[R]
	order  []string
	err    error
}

// NewBuilder starts a new graph builder named name (used only for
// diagnostics and metric labels).
func NewBuilder[R row.Row](name string) *Builder[R] {
	return &Builder[R]{
		name:   name,
		states: make(map[string]*State[R]),
	}
}

// AddState declares a state. Edges reference states by name and must be
// declared after both of the states they name; an edge naming a state not
// yet added fails Build with unknown_state.
func (b *Builder[R]) AddState(def StateDef[R]) *Builder[R] {
	if b.err != nil {
		return b
	}
	if _, reserved := reservedNames[def.Name]; reserved {
		b.err = &ValidationError{Code: "reserved_state_name", State: def.Name,
			Message: "state name collides with a reserved graph attribute"}
		return b
	}
	if _, exists := b.states[def.Name]; exists {
		b.err = &ValidationError{Code: "duplicate_state_name", State: def.Name,
			Message: "state already declared"}
		return b
	}
	b.states[def.Name] = &State[R]{
		name:                 def.Name,
		handler:              def.Handler,
		retryAfter:           def.RetryAfter,
		hasRetryAfter:        def.HasRetryAfter,
		startAfter:           def.StartAfter,
		deleteAfter:          def.DeleteAfter,
		hasDeleteAfter:       def.HasDeleteAfter,
		externallyProgressed: def.ExternallyProgressed,
		forceInitial:         def.ForceInitial,
		children:             make(map[string]struct{}),
		parents:              make(map[string]struct{}),
	}
	b.order = append(b.order, def.Name)
	return b
}

// TransitionsTo declares a child edge: to becomes reachable from from.
func (b *Builder[R]) TransitionsTo(from, to string) *Builder[R] {
	if b.err != nil {
		return b
	}
	fromState, toState, err := b.resolvePair(from, to)
	if err != nil {
		b.err = err
		return b
	}
	fromState.children[to] = struct{}{}
	toState.parents[from] = struct{}{}
	return b
}

// TimeoutTo declares a timeout edge: if a row sits in from for at least
// after without transitioning, the engine forces it into to. A state may
// have at most one timeout edge.
func (b *Builder[R]) TimeoutTo(from, to string, after time.Duration) *Builder[R] {
	if b.err != nil {
		return b
	}
	fromState, toState, err := b.resolvePair(from, to)
	if err != nil {
		b.err = err
		return b
	}
	if fromState.hasTimeout {
		b.err = &ValidationError{Code: "duplicate_timeout_edge", State: from,
			Message: "state already has a timeout edge"}
		return b
	}
	fromState.timeoutState = to
	fromState.timeoutAfter = after
	fromState.hasTimeout = true
	fromState.children[to] = struct{}{}
	toState.parents[from] = struct{}{}
	return b
}

func (b *Builder[R]) resolvePair(from, to string) (*State[R], *State[R], error) {
	fromState, ok := b.states[from]
	if !ok {
		return nil, nil, &ValidationError{Code: "unknown_state", State: from,
			Message: "state referenced by an edge was never declared"}
	}
	toState, ok := b.states[to]
	if !ok {
		return nil, nil, &ValidationError{Code: "unknown_state", State: to,
			Message: "state referenced by an edge was never declared"}
	}
	return fromState, toState, nil
}

// Build validates the accumulated states and edges and freezes them into a
// StateGraph. It fails loudly with a *ValidationError naming the first
// violated invariant.
func (b *Builder[R]) Build() (*StateGraph[R], error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.states) == 0 {
		return nil, &ValidationError{Code: "empty_graph", Message: "graph has no states"}
	}

	var initial *State[R]
	for _, name := range b.order {
		s := b.states[name]

		if s.Initial() {
			if initial != nil {
				return nil, &ValidationError{Code: "multiple_initial_states", State: s.name,
					Message: "more than one state resolves to initial; set ForceInitial on exactly one"}
			}
			initial = s
		}

		terminal := s.Terminal()
		if terminal && s.handler != nil {
			return nil, &ValidationError{Code: "terminal_has_handler", State: s.name,
				Message: "terminal states must not have a handler bound"}
		}

		automatic := !terminal && !s.externallyProgressed
		if automatic {
			if s.handler == nil {
				return nil, &ValidationError{Code: "missing_handler", State: s.name,
					Message: "non-terminal, non-externally-progressed states require a handler"}
			}
			if !s.hasRetryAfter {
				return nil, &ValidationError{Code: "missing_retry_after", State: s.name,
					Message: "non-terminal, non-externally-progressed states require RetryAfter"}
			}
		}

		if s.hasTimeout {
			if !s.hasChild(s.timeoutState) {
				return nil, &ValidationError{Code: "timeout_state_not_child", State: s.name,
					Message: "timeout_state must be reachable via a declared edge"}
			}
		}
	}

	if initial == nil {
		return nil, &ValidationError{Code: "no_initial_state", Message: "graph has no initial state"}
	}

	return &StateGraph[R]{
		name:    b.name,
		states:  b.states,
		order:   append([]string(nil), b.order...),
		initial: initial,
	}, nil
}

// StateGraph is a named, validated, immutable collection of states closed
// under children/parents. It is safe to share across goroutines without
// synchronization once built.
type StateGraph[R row.Row] struct {
	name    string
	states  map[string]*State[R]
	order   []string
	initial *State[R]
}

// Name returns the graph's name.
func (g *StateGraph[R]) Name() string { return g.name }

// State looks up a state by name. ok is false if no such state exists.
func (g *StateGraph[R]) State(name string) (*State[R], bool) {
	s, ok := g.states[name]
	return s, ok
}

// InitialState returns the graph's single entry state.
func (g *StateGraph[R]) InitialState() *State[R] { return g.initial }

// States returns every state in declaration order.
func (g *StateGraph[R]) States() []*State[R] {
	out := make([]*State[R], 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.states[name])
	}
	return out
}

// TerminalStates returns every state with no outgoing transitions.
func (g *StateGraph[R]) TerminalStates() []*State[R] {
	var out []*State[R]
	for _, s := range g.States() {
		if s.Terminal() {
			out = append(out, s)
		}
	}
	return out
}

// AutomaticStates returns every non-terminal, non-externally-progressed
// state: the ones the engine drives on its own schedule.
func (g *StateGraph[R]) AutomaticStates() []*State[R] {
	var out []*State[R]
	for _, s := range g.States() {
		if !s.Terminal() && !s.externallyProgressed {
			out = append(out, s)
		}
	}
	return out
}

// DeletionStates returns every state with a DeleteAfter TTL configured.
func (g *StateGraph[R]) DeletionStates() []*State[R] {
	var out []*State[R]
	for _, s := range g.States() {
		if s.hasDeleteAfter {
			out = append(out, s)
		}
	}
	return out
}

// TimeoutStates returns every state with a timeout edge configured.
func (g *StateGraph[R]) TimeoutStates() []*State[R] {
	var out []*State[R]
	for _, s := range g.States() {
		if s.hasTimeout {
			out = append(out, s)
		}
	}
	return out
}
