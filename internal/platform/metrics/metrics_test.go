package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObservePurchase("SOL")
	m.ObservePurchase("SOL")
	m.ObserveRejection("out_of_order")
	m.SetCurrentArea(9)
	m.ObserveOrphan()

	if got := testutil.ToFloat64(m.purchases.WithLabelValues("SOL")); got != 2 {
		t.Errorf("purchases{SOL} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rejections.WithLabelValues("out_of_order")); got != 1 {
		t.Errorf("rejections{out_of_order} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.currentArea); got != 9 {
		t.Errorf("current area = %v, want 9", got)
	}
	if got := testutil.ToFloat64(m.orphaned); got != 1 {
		t.Errorf("orphaned = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObservePurchase("SOL")
	m.ObserveRejection("unknown_plot")
	m.SetCurrentArea(8)
	m.ObserveOrphan()
	m.ObservePoll("ok")
	m.ObserveCache(true)
}
