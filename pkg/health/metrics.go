package health

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// Metrics are the broker process's own Prometheus series, registered
// against the default registry so promhttp.Handler() exposes them
// alongside the standard Go runtime collectors.
type Metrics struct {
	ServicesByState *prometheus.GaugeVec
	PlanDuration    prometheus.Histogram
	PlanFailures    prometheus.Counter
}

// NewMetrics creates and registers the broker's Prometheus collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		ServicesByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dpb_services_by_state",
			Help: "Number of services currently in each lifecycle state.",
		}, []string{"network", "state"}),
		PlanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dpb_plan_duration_seconds",
			Help:    "Time spent searching for a satisfying tree.",
			Buckets: prometheus.DefBuckets,
		}),
		PlanFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dpb_plan_failures_total",
			Help: "Planning attempts that never found a satisfying tree.",
		}),
	}
	prometheus.MustRegister(m.ServicesByState, m.PlanDuration, m.PlanFailures)
	return m
}

// ObserveServiceCounts replaces the current per-network, per-state gauge
// values.
func (m *Metrics) ObserveServiceCounts(network string, counts map[string]int) {
	for state, n := range counts {
		m.ServicesByState.WithLabelValues(network, state).Set(float64(n))
	}
}

// ObservePlan records one planning attempt's latency and outcome.
func (m *Metrics) ObservePlan(d time.Duration, err error) {
	m.PlanDuration.Observe(d.Seconds())
	if err != nil {
		m.PlanFailures.Inc()
	}
}

// MetricsHandler serves the standard Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
