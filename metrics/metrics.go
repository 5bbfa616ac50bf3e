package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ===============================
// MODELS (decode / encode / validate)
// ===============================
var (
	FnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ewallet",
			Subsystem: "fn",
			Name:      "duration_ms",
			Help:      "Function execution duration",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 15),
		},
		[]string{"name"},
	)

	DecodeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ewallet",
			Subsystem: "minted_token",
			Name:      "decode_failures_total",
			Help:      "Minted token payloads rejected, by offending wire key",
		},
		[]string{"key"},
	)

	ValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ewallet",
			Subsystem: "transaction_request",
			Name:      "validation_failures_total",
			Help:      "Transaction request params that failed construction",
		},
		[]string{"field"},
	)
)

// ===============================
// CATALOG (redis + badger)
// ===============================
var (
	CatalogLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ewallet",
			Subsystem: "catalog",
			Name:      "lookups_total",
			Help:      "Minted token lookups by the layer that answered",
		},
		[]string{"source"}, // cache | store | miss
	)

	RedisGetDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ewallet",
		Subsystem: "redis",
		Name:      "get_duration_ms",
		Help:      "Redis GET latency",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 15),
	})

	CatalogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ewallet",
		Subsystem: "catalog",
		Name:      "tokens",
		Help:      "Minted tokens held in the local store",
	})
)

// ===============================
// OUTBOX / DISPATCH
// ===============================
var (
	OutboxSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ewallet",
		Subsystem: "outbox",
		Name:      "size",
		Help:      "Transaction requests waiting to be published",
	})

	Dispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ewallet",
			Subsystem: "outbox",
			Name:      "dispatched_total",
			Help:      "Transaction requests handed to the publisher, by result",
		},
		[]string{"result"}, // ok | error
	)

	PublishDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ewallet",
		Subsystem: "pubsub",
		Name:      "publish_duration_ms",
		Help:      "Time until the broker acknowledged a publish",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 15),
	})
)

// ===============================
// REGISTER ALL
// ===============================
func Register() {
	prometheus.MustRegister(
		FnDuration,
		DecodeFailures,
		ValidationFailures,

		CatalogLookups,
		RedisGetDuration,
		CatalogSize,

		OutboxSize,
		Dispatched,
		PublishDuration,
	)
}

// ===============================
// HELPER
// ===============================
func ObserveDuration(h prometheus.Observer, start time.Time) {
	h.Observe(float64(time.Since(start).Microseconds()) / 1000)
}
