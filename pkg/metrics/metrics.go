// Package metrics exposes the Prometheus metrics of the Jobsuche client.
// Metrics are defined in their respective packages (client, pagination,
// ratelimit) and registered via promauto; importing this package makes sure
// all of them are registered before Handler serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/Sternrassler/jobsuche-client/pkg/client"
	_ "github.com/Sternrassler/jobsuche-client/pkg/pagination"
	_ "github.com/Sternrassler/jobsuche-client/pkg/ratelimit"
)

// Registry is the default Prometheus registry used by the Jobsuche client.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry Handler reads from.
var Gatherer = prometheus.DefaultGatherer

// Handler serves all registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Names lists every metric exported by the module.
var Names = []string{
	"jobsuche_requests_total",
	"jobsuche_request_duration_seconds",
	"jobsuche_errors_total",
	"jobsuche_retries_total",
	"jobsuche_retry_backoff_seconds",
	"jobsuche_retry_exhausted_total",
	"jobsuche_pages_fetched_total",
	"jobsuche_iterations_finished_total",
	"jobsuche_rate_limit_blocks_total",
	"jobsuche_rate_limit_waits_total",
	"jobsuche_rate_limit_wait_seconds",
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - jobsuche_requests_total{endpoint, status} (Counter): attempts by endpoint
//     (jobs, jobdetails, logo) and HTTP status, "transport_error" or "breaker_open"
//   - jobsuche_request_duration_seconds{endpoint} (Histogram): attempt duration
//   - jobsuche_errors_total{kind} (Counter): failed attempts by error kind
//
// Retry Metrics (pkg/client):
//   - jobsuche_retries_total{kind} (Counter): retries by error kind
//   - jobsuche_retry_backoff_seconds{kind} (Histogram): wait before each retry
//   - jobsuche_retry_exhausted_total{kind} (Counter): requests that used up the retry budget
//
// Pagination Metrics (pkg/pagination):
//   - jobsuche_pages_fetched_total (Counter): pages requested by iterators
//   - jobsuche_iterations_finished_total{reason} (Counter): finished iterations
//     by reason (short_page, total_reached, limit_reached, max_pages, error, stopped)
//
// Cooldown Metrics (pkg/ratelimit):
//   - jobsuche_rate_limit_blocks_total (Counter): Retry-After cooldowns recorded
//   - jobsuche_rate_limit_waits_total (Counter): requests held back by a cooldown
//   - jobsuche_rate_limit_wait_seconds (Histogram): time spent waiting
//
// Example Prometheus Queries:
//
//   # Error rate by kind
//   sum by (kind) (rate(jobsuche_errors_total[5m]))
//
//   # Share of requests that needed a retry
//   sum(rate(jobsuche_retries_total[5m])) / sum(rate(jobsuche_requests_total[5m]))
//
//   # P95 attempt latency
//   histogram_quantile(0.95, rate(jobsuche_request_duration_seconds_bucket[5m]))
