package neptune

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neptune",
			Subsystem: "tree_builder",
			Name:      "operations_total",
			Help:      "Total number of tree builder operations",
		},
		// operation: add_leaves/add_columns/build_tree/uniform_root,
		// status: success/error
		[]string{"operation", "status"},
	)

	buildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "neptune",
			Subsystem: "tree_builder",
			Name:      "build_duration_seconds",
			Help:      "Duration of full tree builds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
