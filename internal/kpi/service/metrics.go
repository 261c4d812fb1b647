package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aggregatePath = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kpi_aggregate_path_total",
			Help: "Payload computations by asset family and aggregation path (db, memory, fallback).",
		},
		[]string{"family", "path"},
	)

	computeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kpi_compute_duration_seconds",
			Help:    "Time spent assembling a payload on a cache miss.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"scope"},
	)

	loaderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kpi_loader_failures_total",
			Help: "Entity loads that failed and produced a degraded payload.",
		},
		[]string{"family"},
	)
)
