package emit

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetrics_GaugesReflectLastSet(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.SetPendingRows("jobs", 7)
	pm.SetInflightRows("jobs", 3)

	if got := testutil.ToFloat64(pm.pendingRows.WithLabelValues("jobs")); got != 7 {
		t.Errorf("pending_rows = %v, want 7", got)
	}
	if got := testutil.ToFloat64(pm.inflightRows.WithLabelValues("jobs")); got != 3 {
		t.Errorf("inflight_rows = %v, want 3", got)
	}
}

func TestPrometheusMetrics_CountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.IncrementTransitions("jobs", "new", "done")
	pm.IncrementTransitions("jobs", "new", "done")
	pm.IncrementTimeoutsFired("jobs", "new")
	pm.IncrementHandlerErrors("jobs", "new")
	pm.AddRowsDeleted("jobs", "deleted", 5)

	if got := testutil.ToFloat64(pm.transitions.WithLabelValues("jobs", "new", "done")); got != 2 {
		t.Errorf("transitions_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(pm.timeoutsFired.WithLabelValues("jobs", "new")); got != 1 {
		t.Errorf("timeouts_fired_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pm.handlerErrors.WithLabelValues("jobs", "new")); got != 1 {
		t.Errorf("handler_errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pm.rowsDeleted.WithLabelValues("jobs", "deleted")); got != 5 {
		t.Errorf("rows_deleted_total = %v, want 5", got)
	}
}

func TestPrometheusMetrics_AddRowsDeletedSkipsNonPositive(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.AddRowsDeleted("jobs", "deleted", 0)
	pm.AddRowsDeleted("jobs", "deleted", -3)

	if got := testutil.ToFloat64(pm.rowsDeleted.WithLabelValues("jobs", "deleted")); got != 0 {
		t.Errorf("rows_deleted_total = %v, want 0 (n<=0 must not touch the counter)", got)
	}
}

func TestPrometheusMetrics_RecordStepLatencyObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.RecordStepLatency("jobs", "new", 25*time.Millisecond, "transition")

	if got := testutil.CollectAndCount(pm.stepLatency); got != 1 {
		t.Errorf("stepLatency series count = %d, want 1", got)
	}
}
