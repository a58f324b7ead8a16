package lens

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the lens's prometheus instruments.
type metrics struct {
	batchDuration *prometheus.HistogramVec
	snapshots     *prometheus.CounterVec
	failures      *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bancor",
			Subsystem: "lens",
			Name:      "batch_duration_seconds",
			Help:      "Time taken to produce a full snapshot batch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bancor",
			Subsystem: "lens",
			Name:      "snapshots_total",
			Help:      "Total pool snapshots produced.",
		}, []string{}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bancor",
			Subsystem: "lens",
			Name:      "batch_failures_total",
			Help:      "Total snapshot batches aborted by a per-anchor failure.",
		}, []string{}),
	}
	reg.MustRegister(m.batchDuration, m.snapshots, m.failures)
	return m
}
