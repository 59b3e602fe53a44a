package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks fresh cache hits served without a request
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deckterra_cache_hits_total",
			Help: "Total number of page cache hits served without a request",
		},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deckterra_cache_misses_total",
			Help: "Total number of page cache misses",
		},
	)

	// NotModifiedResponses tracks stale entries revalidated with a 304
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deckterra_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// ConditionalRequestsSent tracks requests sent with validators
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deckterra_conditional_requests_total",
			Help: "Total number of conditional requests sent",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckterra_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
