package model

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/statorhq/stator/emit"
	"github.com/statorhq/stator/graph"
	"github.com/statorhq/stator/row"
	"github.com/statorhq/stator/store"
)

// DeleteBatchSize bounds a single DoDeletes pass per deletion state, so a
// backlog of expired rows cannot hold a long transaction or escalate locks
// on the underlying store.
const DeleteBatchSize = 500

// Option configures a Model at construction time.
type Option[R row.Row] func(*Model[R])

// WithEmitter attaches an Emitter the Model reports events to. The default
// is emit.NewNullEmitter().
func WithEmitter[R row.Row](e emit.Emitter) Option[R] {
	return func(m *Model[R]) { m.emitter = e }
}

// WithMetrics attaches a PrometheusMetrics collector. The default is nil,
// in which case metric recording is skipped.
func WithMetrics[R row.Row](pm *emit.PrometheusMetrics) Option[R] {
	return func(m *Model[R]) { m.metrics = pm }
}

// WithLogger overrides the logger used for warnings and handler-error
// diagnostics. The default is logrus.StandardLogger().
func WithLogger[R row.Row](logger *logrus.Logger) Option[R] {
	return func(m *Model[R]) { m.logger = logger }
}

// WithClock overrides the Model's notion of "now". Tests use this to
// control scheduling windows deterministically.
func WithClock[R row.Row](now func() time.Time) Option[R] {
	return func(m *Model[R]) { m.now = now }
}

// Model is the per-table transition engine bound to a validated StateGraph
// and a RowStore: it claims ready rows, runs their handler, applies the
// outcome, forces transitions, and sweeps expired rows.
type Model[R row.Row] struct {
	table string
	graph *graph.StateGraph[R]
	store store.RowStore[R]

	emitter emit.Emitter
	metrics *emit.PrometheusMetrics
	logger  *logrus.Logger
	now     func() time.Time
}

// New creates a Model bound to table, g, and s. table is used only for
// metric and event labels; it is conventionally the managed row's database
// table name.
func New[R row.Row](table string, g *graph.StateGraph[R], s store.RowStore[R], opts ...Option[R]) *Model[R] {
	m := &Model[R]{
		table:   table,
		graph:   g,
		store:   s,
		emitter: emit.NewNullEmitter(),
		logger:  logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Table returns the model's table name.
func (m *Model[R]) Table() string { return m.table }

// Graph returns the model's bound StateGraph.
func (m *Model[R]) Graph() *graph.StateGraph[R] { return m.graph }

// GetReady atomically claims up to n rows due for a check, applying the
// visibility timeout of 2×lockPeriod to each.
func (m *Model[R]) GetReady(ctx context.Context, n int, lockPeriod time.Duration) ([]R, error) {
	rows, err := m.store.ClaimReady(ctx, n, lockPeriod)
	if err != nil {
		return nil, err
	}
	if m.metrics != nil {
		m.metrics.SetInflightRows(m.table, len(rows))
	}
	return rows, nil
}

// TransitionCheck is the heart of the engine. The caller must hold r via
// GetReady, or be running it synchronously in a test.
func (m *Model[R]) TransitionCheck(ctx context.Context, r R) (newState string, transitioned bool, err error) {
	now := m.now()
	current, ok := m.graph.State(r.State())
	if !ok {
		return "", false, &TransitionError{Table: m.table, From: r.State(), To: ""}
	}

	if current.ExternallyProgressed() {
		m.logger.WithFields(logrus.Fields{"table": m.table, "row": r.RowID(), "state": current.Name()}).
			Warn("transition_check: row claimed in an externally-progressed state")
		r.SetStateNext(nil)
		if err := m.store.ApplyTransition(ctx, []R{r}); err != nil {
			return "", false, err
		}
		m.emitter.Emit(emit.Event{Table: m.table, RowID: stringifyID(r.RowID()), Msg: "externally_progressed_reclaimed",
			FromState: current.Name(), At: now})
		return "", false, nil
	}

	start := time.Now()
	outcome, handlerErr := current.Handler()(ctx, r)
	latency := time.Since(start)

	// A cancelled task leaves the row untouched: its state_next stays at the
	// visibility timeout set by the claim, so it is picked up again later.
	if ctx.Err() != nil {
		return "", false, ctx.Err()
	}

	if handlerErr != nil {
		outcome = graph.NoTransition()
		if handlerErr != graph.ErrTryAgainLater && ctx.Err() == nil {
			m.logger.WithFields(logrus.Fields{"table": m.table, "row": r.RowID(), "state": current.Name(),
				"error": handlerErr.Error()}).Warn("transition_check: handler failed")
			if m.metrics != nil {
				m.metrics.IncrementHandlerErrors(m.table, current.Name())
			}
			m.emitter.Emit(emit.Event{Table: m.table, RowID: stringifyID(r.RowID()), Msg: "handler_error",
				FromState: current.Name(), At: now, Meta: map[string]any{"error": handlerErr.Error()}})
		}
	}

	if next, has := outcome.Next(); has {
		if !current.HasChild(next) {
			return "", false, &TransitionError{Table: m.table, From: current.Name(), To: next}
		}
		if err := m.Transition(ctx, r, next); err != nil {
			return "", false, err
		}
		if m.metrics != nil {
			m.metrics.RecordStepLatency(m.table, current.Name(), latency, "transition")
			m.metrics.IncrementTransitions(m.table, current.Name(), next)
		}
		m.emitter.Emit(emit.Event{Table: m.table, RowID: stringifyID(r.RowID()), Msg: "state_entered",
			FromState: current.Name(), ToState: next, At: now})
		return next, true, nil
	}

	if timeoutState, timeoutAfter, hasTimeout := current.TimeoutState(); hasTimeout {
		if now.Sub(r.StateChanged()) >= timeoutAfter {
			if err := m.Transition(ctx, r, timeoutState); err != nil {
				return "", false, err
			}
			if m.metrics != nil {
				m.metrics.RecordStepLatency(m.table, current.Name(), latency, "timeout")
				m.metrics.IncrementTimeoutsFired(m.table, current.Name())
			}
			m.emitter.Emit(emit.Event{Table: m.table, RowID: stringifyID(r.RowID()), Msg: "timeout_fired",
				FromState: current.Name(), ToState: timeoutState, At: now})
			return timeoutState, true, nil
		}
	}

	retryAfter, hasRetryAfter := current.RetryAfter()
	if !hasRetryAfter {
		return "", false, &TransitionError{Table: m.table, From: current.Name(), To: current.Name()}
	}
	next := now.Add(retryAfter)
	r.SetStateNext(&next)
	if err := m.store.ApplyTransition(ctx, []R{r}); err != nil {
		return "", false, err
	}
	if m.metrics != nil {
		status := "no_transition"
		if handlerErr != nil {
			status = "error"
		}
		m.metrics.RecordStepLatency(m.table, current.Name(), latency, status)
	}
	m.emitter.Emit(emit.Event{Table: m.table, RowID: stringifyID(r.RowID()), Msg: "no_transition",
		FromState: current.Name(), At: now})
	return "", false, nil
}

// Transition forces r into target, whether or not target is a declared
// child of r's current state: callers outside TransitionCheck (admin
// actions) are responsible for that check. state_changed
// resets to now; state_next is null for an externally-progressed target or
// now+start_after otherwise.
func (m *Model[R]) Transition(ctx context.Context, r R, target string) error {
	targetState, ok := m.graph.State(target)
	if !ok {
		return &TransitionError{Table: m.table, From: r.State(), To: target}
	}

	now := m.now()
	r.SetState(targetState.Name())
	r.SetStateChanged(now)
	if targetState.ExternallyProgressed() {
		r.SetStateNext(nil)
	} else {
		next := now.Add(targetState.StartAfter())
		r.SetStateNext(&next)
	}
	return m.store.ApplyTransition(ctx, []R{r})
}

// TransitionBulk applies Transition's semantics to every row in rows in a
// single store update, for bulk admin operations.
func (m *Model[R]) TransitionBulk(ctx context.Context, rows []R, target string) error {
	targetState, ok := m.graph.State(target)
	if !ok {
		return &TransitionError{Table: m.table, To: target}
	}

	now := m.now()
	for _, r := range rows {
		r.SetState(targetState.Name())
		r.SetStateChanged(now)
		if targetState.ExternallyProgressed() {
			r.SetStateNext(nil)
		} else {
			next := now.Add(targetState.StartAfter())
			r.SetStateNext(&next)
		}
	}
	return m.store.ApplyTransition(ctx, rows)
}

// DoDeletes sweeps every deletion state for rows whose state_changed is at
// least DeleteAfter in the past, deleting one batch of up to
// DeleteBatchSize per state, and returns the total number removed. Callers
// repeat it to drain a larger backlog.
func (m *Model[R]) DoDeletes(ctx context.Context) (int, error) {
	now := m.now()
	total := 0
	for _, s := range m.graph.DeletionStates() {
		deleteAfter, _ := s.DeleteAfter()
		cutoff := now.Add(-deleteAfter)
		n, err := m.store.DeleteBefore(ctx, s.Name(), cutoff, DeleteBatchSize)
		if err != nil {
			return total, err
		}
		total += n
		if m.metrics != nil {
			m.metrics.AddRowsDeleted(m.table, s.Name(), n)
		}
	}
	if total > 0 {
		m.emitter.Emit(emit.Event{Table: m.table, Msg: "deletion_sweep", At: now,
			Meta: map[string]any{"deleted": total}})
	}
	return total, nil
}

// CountPending returns the number of rows currently due for a check.
func (m *Model[R]) CountPending(ctx context.Context) (int, error) {
	n, err := m.store.CountPending(ctx, m.now())
	if err != nil {
		return 0, err
	}
	if m.metrics != nil {
		m.metrics.SetPendingRows(m.table, n)
	}
	return n, nil
}

func stringifyID(id any) string {
	if s, ok := id.(string); ok {
		return s
	}
	return fmt.Sprint(id)
}
