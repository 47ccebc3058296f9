// Package metrics holds the prometheus collectors of the land service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	purchases   *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	currentArea prometheus.Gauge
	orphaned    prometheus.Counter
	polls       *prometheus.CounterVec
	cache       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		purchases: f.NewCounterVec(prometheus.CounterOpts{
			Name: "land_purchases_total",
			Help: "Committed plot purchases by payment method.",
		}, []string{"method"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "land_commit_rejections_total",
			Help: "Rejected purchase attempts by reason.",
		}, []string{"reason"}),
		currentArea: f.NewGauge(prometheus.GaugeOpts{
			Name: "land_current_area",
			Help: "Area number currently open for purchase.",
		}),
		orphaned: f.NewCounter(prometheus.CounterOpts{
			Name: "land_orphaned_payments_total",
			Help: "Confirmed payments that lost the race for their plot.",
		}),
		polls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "land_monitor_polls_total",
			Help: "Payment monitor polls by result.",
		}, []string{"result"}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "land_view_cache_total",
			Help: "Ledger view cache lookups by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObservePurchase(method string) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(method).Inc()
}

func (m *Metrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetCurrentArea(area int) {
	if m == nil {
		return
	}
	m.currentArea.Set(float64(area))
}

func (m *Metrics) ObserveOrphan() {
	if m == nil {
		return
	}
	m.orphaned.Inc()
}

func (m *Metrics) ObservePoll(result string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cache.WithLabelValues("hit").Inc()
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}
