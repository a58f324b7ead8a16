package upgrader

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the upgrader's prometheus instruments.
type metrics struct {
	upgradeDuration *prometheus.HistogramVec
	upgrades        *prometheus.CounterVec
	failures        *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		upgradeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bancor",
			Subsystem: "upgrader",
			Name:      "upgrade_duration_seconds",
			Help:      "Time taken by a single converter upgrade.",
			Buckets:   prometheus.DefBuckets,
		}, []string{}),
		upgrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bancor",
			Subsystem: "upgrader",
			Name:      "upgrades_total",
			Help:      "Total completed converter upgrades.",
		}, []string{}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bancor",
			Subsystem: "upgrader",
			Name:      "upgrade_failures_total",
			Help:      "Total converter upgrades rolled back after a step failure.",
		}, []string{}),
	}
	reg.MustRegister(m.upgradeDuration, m.upgrades, m.failures)
	return m
}
