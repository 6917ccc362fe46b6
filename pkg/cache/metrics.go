package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts lookups that found a live entry.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planet_cache_hits_total",
		Help: "Total number of Planet API cache hits",
	})

	// CacheMisses counts lookups without a live entry.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planet_cache_misses_total",
		Help: "Total number of Planet API cache misses",
	})

	// CacheEntryBytes observes the encoded size of stored entries.
	CacheEntryBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "planet_cache_entry_bytes",
		Help:    "Encoded size of cached Planet API responses",
		Buckets: prometheus.ExponentialBuckets(512, 4, 8),
	})

	// CachePurged counts entries removed by Purge.
	CachePurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planet_cache_purged_total",
		Help: "Total number of cache entries removed by purge",
	})

	// ConditionalRequestsSent counts requests sent with If-None-Match or If-Modified-Since.
	ConditionalRequestsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planet_conditional_requests_total",
		Help: "Total number of conditional requests sent to the Planet API",
	})

	// NotModifiedResponses counts 304 responses served from the cache.
	NotModifiedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planet_304_responses_total",
		Help: "Total number of Planet API 304 Not Modified responses",
	})

	// CacheErrors counts failed Redis operations.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planet_cache_errors_total",
		Help: "Total number of cache operation errors",
	}, []string{"operation"}) // get, set, refresh, purge
)
