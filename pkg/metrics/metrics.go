// Package metrics exposes the Prometheus metrics of the Planet client.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pagination) and registered with the default registry via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registerer used by the Planet client.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the Prometheus gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves all registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - planet_requests_total{method, status} (Counter): Requests by method and HTTP status
//   - planet_request_duration_seconds{method} (Histogram): Request duration by method
//   - planet_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - planet_aborted_requests_total (Counter): Requests terminated by the caller
//
// Retry Metrics (pkg/client):
//   - planet_retries_total{error_class} (Counter): Retry attempts by error class
//   - planet_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - planet_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Pagination Metrics (pkg/pagination):
//   - planet_pagination_pages_total (Counter): Pages fetched
//   - planet_pagination_items_total (Counter): Items delivered after limit truncation
//   - planet_pagination_runs_total{outcome} (Counter): Runs by outcome (complete, limit, aborted, stopped, error)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - planet_rate_limit_remaining (Gauge): Requests remaining in the current window
//   - planet_rate_limit_blocks_total (Counter): Requests blocked while the window is exhausted
//   - planet_rate_limit_throttles_total (Counter): Requests delayed while the window is low
//   - planet_rate_limit_wait_seconds (Histogram): Time spent waiting on the local limiter
//
// Cache Metrics (pkg/cache):
//   - planet_cache_hits_total (Counter): Cache hits
//   - planet_cache_misses_total (Counter): Cache misses
//   - planet_cache_entry_bytes (Histogram): Encoded size of stored entries
//   - planet_cache_purged_total (Counter): Entries removed by purge
//   - planet_304_responses_total (Counter): 304 Not Modified responses
//   - planet_conditional_requests_total (Counter): Conditional requests sent
//   - planet_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Aborted pagination runs
//   rate(planet_pagination_runs_total{outcome="aborted"}[5m])
//
//   # Request Error Rate
//   rate(planet_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(planet_request_duration_seconds_bucket[5m]))
//
//   # 304 Response Rate
//   rate(planet_304_responses_total[5m]) / rate(planet_requests_total[5m])
