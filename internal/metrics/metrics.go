// Package metrics exposes Prometheus counters for expense and group mutations
// and mirror synchronization.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	expenseMutations *prometheus.CounterVec
	groupMutations   *prometheus.CounterVec
	rejections       *prometheus.CounterVec
	mirrorSyncs      *prometheus.CounterVec
	mirrorDuration   prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		expenseMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitplus",
			Name:      "expense_mutations_total",
			Help:      "Expense writes that reached the store, by operation.",
		}, []string{"op"}),
		groupMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitplus",
			Name:      "group_mutations_total",
			Help:      "Group writes that reached the store, by operation.",
		}, []string{"op"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitplus",
			Name:      "expense_rejections_total",
			Help:      "Expense writes rejected before persistence, by reason.",
		}, []string{"reason"}),
		mirrorSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitplus",
			Name:      "mirror_syncs_total",
			Help:      "Remote mirror calls, by action and result.",
		}, []string{"action", "result"}),
		mirrorDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "splitplus",
			Name:      "mirror_sync_duration_seconds",
			Help:      "Latency of remote mirror calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.expenseMutations, m.groupMutations, m.rejections, m.mirrorSyncs, m.mirrorDuration)
	return m
}

// ExpenseCommitted counts a successful expense write.
func (m *Metrics) ExpenseCommitted(op string) {
	if m == nil {
		return
	}
	m.expenseMutations.WithLabelValues(op).Inc()
}

// GroupCommitted counts a successful group write.
func (m *Metrics) GroupCommitted(op string) {
	if m == nil {
		return
	}
	m.groupMutations.WithLabelValues(op).Inc()
}

// ExpenseRejected counts an expense write refused by validation or storage.
func (m *Metrics) ExpenseRejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// MirrorSynced records one remote mirror call.
func (m *Metrics) MirrorSynced(action string, err error, seconds float64) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.mirrorSyncs.WithLabelValues(action, result).Inc()
	m.mirrorDuration.Observe(seconds)
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
