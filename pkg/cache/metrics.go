package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_sizer_cache_hits_total",
		Help: "Total number of sizer history cache hits",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_sizer_cache_misses_total",
		Help: "Total number of sizer history cache misses",
	})

	CacheSetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_sizer_cache_sets_total",
		Help: "Total number of sizer history cache sets",
	})

	CacheDeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triarb_sizer_cache_deletes_total",
		Help: "Total number of sizer history cache deletes",
	})

	CacheHitRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "triarb_sizer_cache_hit_rate",
		Help: "Fraction of sizer history cache lookups that hit, updated on each Get",
	})

	CacheOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "triarb_sizer_cache_operation_duration_seconds",
		Help:    "Latency of sizer history cache operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)
