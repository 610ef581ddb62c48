package memoize

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the process-wide set of counters and gauges this package
// exposes. Grounded on the teacher's metrics.go (one *prometheus.Counter/
// *prometheus.Gauge field per observable event, built once by a
// constructor function) and on HotCache's Describe/Collect
// (hot.go:941-966), generalized from cache hit/miss/eviction to
// memoization hit/miss/invocation/single-flight/refresh/back-off. A
// Metrics value is attached to wrapped functions through
// Config.WithMetrics, and one value may be shared by any number of them;
// the package creates none on its own.
type Metrics struct {
	Hits        prometheus.Counter
	Misses      prometheus.Counter
	Invocations prometheus.Counter

	SingleFlightJoins prometheus.Counter

	RefreshSuccess  prometheus.Counter
	RefreshFailure  prometheus.Counter
	BackoffExtended prometheus.Counter

	SweptEntries prometheus.Counter

	StoredEntries prometheus.Gauge
	StoredBytes   prometheus.Gauge
}

// newMetrics builds an unregistered Metrics value. Callers that want these
// exposed on a /metrics endpoint register it themselves with
// prometheus.MustRegister(metrics) (Metrics implements prometheus.Collector
// below), the same opt-in the teacher leaves to its own callers.
func newMetrics() *Metrics {
	return &Metrics{
		Hits:        prometheus.NewCounter(prometheus.CounterOpts{Name: "memoize_hits_total"}),
		Misses:      prometheus.NewCounter(prometheus.CounterOpts{Name: "memoize_misses_total"}),
		Invocations: prometheus.NewCounter(prometheus.CounterOpts{Name: "memoize_invocations_total"}),

		SingleFlightJoins: prometheus.NewCounter(prometheus.CounterOpts{Name: "memoize_singleflight_joins_total"}),

		RefreshSuccess:  prometheus.NewCounter(prometheus.CounterOpts{Name: "memoize_neverdie_refresh_success_total"}),
		RefreshFailure:  prometheus.NewCounter(prometheus.CounterOpts{Name: "memoize_neverdie_refresh_failure_total"}),
		BackoffExtended: prometheus.NewCounter(prometheus.CounterOpts{Name: "memoize_neverdie_backoff_extended_total"}),

		SweptEntries: prometheus.NewCounter(prometheus.CounterOpts{Name: "memoize_sweeper_removed_total"}),

		StoredEntries: prometheus.NewGauge(prometheus.GaugeOpts{Name: "memoize_store_entries"}),
		StoredBytes:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "memoize_store_bytes"}),
	}
}

var _ prometheus.Collector = (*Metrics)(nil)

// Describe implements the prometheus.Collector interface, the same way
// HotCache.Describe (hot.go:942) delegates to each of its own counters.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Hits, m.Misses, m.Invocations,
		m.SingleFlightJoins,
		m.RefreshSuccess, m.RefreshFailure, m.BackoffExtended,
		m.SweptEntries,
		m.StoredEntries, m.StoredBytes,
	}
}
