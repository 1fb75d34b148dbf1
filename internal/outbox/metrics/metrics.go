package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for outbox dispatch.
type Metrics struct {
	Dispatched   prometheus.Counter
	Failed       prometheus.Counter
	DeadLettered prometheus.Counter
	BatchSize    prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Dispatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synergy_outbox_dispatched_total",
			Help: "Total outbox messages delivered to the transport",
		}),
		Failed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synergy_outbox_delivery_failures_total",
			Help: "Total failed delivery attempts (retried with backoff)",
		}),
		DeadLettered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synergy_outbox_dead_lettered_total",
			Help: "Total messages that exhausted their retry budget",
		}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "synergy_outbox_batch_size",
			Help:    "Messages claimed per dispatcher tick",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
}
