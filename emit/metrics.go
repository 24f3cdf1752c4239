package emit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects Prometheus-compatible metrics for the
// transition engine, namespaced "stator". It is wired into model.Model
// alongside an Emitter: the Emitter carries per-event detail for logs and
// traces, while PrometheusMetrics carries the aggregate counters and
// histograms an operator dashboards against.
//
// Metrics exposed:
//
//  1. pending_rows (gauge): rows currently due for a check, per table.
//  2. inflight_rows (gauge): rows currently claimed and being processed.
//  3. step_latency_ms (histogram): handler execution duration, labeled by
//     table, state, and outcome (transition/timeout/no_transition/error).
//  4. transitions_total (counter): state transitions applied, labeled by
//     table, from_state, to_state.
//  5. timeouts_fired_total (counter): forced transitions caused by a state
//     timeout rather than a handler decision, labeled by table, state.
//  6. handler_errors_total (counter): handler invocations that returned an
//     error, labeled by table, state.
//  7. rows_deleted_total (counter): rows removed by a deletion sweep,
//     labeled by table, state.
type PrometheusMetrics struct {
	pendingRows  *prometheus.GaugeVec
	inflightRows *prometheus.GaugeVec

	stepLatency *prometheus.HistogramVec

	transitions   *prometheus.CounterVec
	timeoutsFired *prometheus.CounterVec
	handlerErrors *prometheus.CounterVec
	rowsDeleted   *prometheus.CounterVec
}

// NewPrometheusMetrics creates and registers all transition engine metrics
// with registry. If registry is nil, prometheus.DefaultRegisterer is used.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		pendingRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "stator",
			Name:      "pending_rows",
			Help:      "Rows currently due for a state check",
		}, []string{"table"}),

		inflightRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "stator",
			Name:      "inflight_rows",
			Help:      "Rows currently claimed and being processed by a worker",
		}, []string{"table"}),

		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stator",
			Name:      "step_latency_ms",
			Help:      "Handler execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"table", "state", "outcome"}),

		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stator",
			Name:      "transitions_total",
			Help:      "State transitions applied",
		}, []string{"table", "from_state", "to_state"}),

		timeoutsFired: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stator",
			Name:      "timeouts_fired_total",
			Help:      "Forced transitions caused by a state timeout",
		}, []string{"table", "state"}),

		handlerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stator",
			Name:      "handler_errors_total",
			Help:      "Handler invocations that returned an error",
		}, []string{"table", "state"}),

		rowsDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stator",
			Name:      "rows_deleted_total",
			Help:      "Rows removed by a deletion sweep",
		}, []string{"table", "state"}),
	}
}

// RecordStepLatency records the duration of a single handler invocation.
func (pm *PrometheusMetrics) RecordStepLatency(table, state string, latency time.Duration, outcome string) {
	pm.stepLatency.WithLabelValues(table, state, outcome).Observe(float64(latency.Milliseconds()))
}

// IncrementTransitions records a state transition.
func (pm *PrometheusMetrics) IncrementTransitions(table, from, to string) {
	pm.transitions.WithLabelValues(table, from, to).Inc()
}

// IncrementTimeoutsFired records a transition forced by a state timeout.
func (pm *PrometheusMetrics) IncrementTimeoutsFired(table, state string) {
	pm.timeoutsFired.WithLabelValues(table, state).Inc()
}

// IncrementHandlerErrors records a handler invocation that returned an error.
func (pm *PrometheusMetrics) IncrementHandlerErrors(table, state string) {
	pm.handlerErrors.WithLabelValues(table, state).Inc()
}

// AddRowsDeleted records rows removed by a deletion sweep.
func (pm *PrometheusMetrics) AddRowsDeleted(table, state string, n int) {
	if n <= 0 {
		return
	}
	pm.rowsDeleted.WithLabelValues(table, state).Add(float64(n))
}

// SetPendingRows sets the current count of rows due for a check.
func (pm *PrometheusMetrics) SetPendingRows(table string, n int) {
	pm.pendingRows.WithLabelValues(table).Set(float64(n))
}

// SetInflightRows sets the current count of rows claimed and in flight.
func (pm *PrometheusMetrics) SetInflightRows(table string, n int) {
	pm.inflightRows.WithLabelValues(table).Set(float64(n))
}
