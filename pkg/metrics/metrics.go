// Package metrics exposes the process-wide Prometheus registry.
// All metrics are defined in their respective packages (client, cache,
// pagination, ratelimit) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Pacing Metrics (pkg/ratelimit):
//   - deckterra_pacing_wait_seconds (Histogram): Time a fetch waited for admission
//   - deckterra_admissions_total (Counter): Fetches admitted by a pacer
//
// Batch Metrics (pkg/pagination):
//   - deckterra_batch_inflight (Gauge): Page fetches currently running
//   - deckterra_batch_missing_results_total (Counter): Slots left empty after exhausted retries
//   - deckterra_batch_duration_seconds (Histogram): Wall time of a whole batch
//
// Cache Metrics (pkg/cache):
//   - deckterra_cache_hits_total (Counter): Pages served from Redis
//   - deckterra_cache_misses_total (Counter): Cache misses
//   - deckterra_304_responses_total (Counter): 304 Not Modified responses
//   - deckterra_conditional_requests_total (Counter): Conditional requests sent with If-None-Match
//   - deckterra_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - deckterra_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - deckterra_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - deckterra_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - deckterra_fetch_attempts_total{outcome} (Counter): Attempts by outcome (success or error class)
//   - deckterra_retries_total{error_class} (Counter): Retry attempts by error class
//   - deckterra_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - deckterra_retry_exhausted_total{error_class} (Counter): Fetches that exhausted their attempts
//
// Example Prometheus Queries:
//
//   # Retry Ratio
//   sum(rate(deckterra_retries_total[5m])) / sum(rate(deckterra_fetch_attempts_total[5m]))
//
//   # Pages Given Up On
//   increase(deckterra_batch_missing_results_total[1h]) > 0
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(deckterra_request_duration_seconds_bucket[5m]))
//
//   # Cache Hit Rate
//   sum(rate(deckterra_cache_hits_total[5m])) /
//   (sum(rate(deckterra_cache_hits_total[5m])) + sum(rate(deckterra_cache_misses_total[5m])))
