package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rcliao/mission-control/internal/model"
)

// Metrics records search activity. A nil *Metrics records nothing.
type Metrics struct {
	searches *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	results  prometheus.Histogram
}

// NewMetrics creates the search collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mission_control",
			Subsystem: "search",
			Name:      "queries_total",
			Help:      "Searches run, by mode (search records history, refresh does not).",
		}, []string{"mode"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mission_control",
			Subsystem: "search",
			Name:      "lookup_failures_total",
			Help:      "Per-collection lookups that failed during a search.",
		}, []string{"type"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mission_control",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Wall time of the concurrent per-collection fan-out.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"mode"}),
		results: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mission_control",
			Subsystem: "search",
			Name:      "results",
			Help:      "Total result count per search.",
			Buckets:   []float64{0, 1, 5, 10, 20, 40, 80},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.searches, m.failures, m.duration, m.results)
	}
	return m
}

func (m *Metrics) observe(mode string, elapsed time.Duration, total int, failed []model.EntityType) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(mode).Inc()
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
	m.results.Observe(float64(total))
	for _, t := range failed {
		m.failures.WithLabelValues(string(t)).Inc()
	}
}
