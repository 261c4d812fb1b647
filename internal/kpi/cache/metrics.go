package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 按缓存与结果（hit/miss/expired/error）统计查询
	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_cache_requests_total",
		Help: "KPI cache lookups by cache and result",
	}, []string{"cache", "result"})

	// 按缓存统计主动清除次数
	cacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_cache_invalidations_total",
		Help: "Explicit KPI cache invalidations by cache",
	}, []string{"cache"})
)
