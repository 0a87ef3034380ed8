package hasher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hashBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neptune",
			Subsystem: "hasher",
			Name:      "batches_total",
			Help:      "Total number of batch hash calls",
		},
		// backend: cpu, status: success/error
		[]string{"backend", "status"},
	)

	hashedTuplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neptune",
			Subsystem: "hasher",
			Name:      "tuples_total",
			Help:      "Total number of preimage tuples hashed in batches",
		},
		[]string{"backend"},
	)

	hashBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "neptune",
			Subsystem: "hasher",
			Name:      "batch_duration_seconds",
			Help:      "Duration of batch hash calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	cacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "neptune",
			Subsystem: "hasher",
			Name:      "cache_hits_total",
			Help:      "Digest cache hits",
		},
	)

	cacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "neptune",
			Subsystem: "hasher",
			Name:      "cache_misses_total",
			Help:      "Digest cache misses",
		},
	)
)
