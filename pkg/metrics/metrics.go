// Package metrics provides the Prometheus registry used by the Canvas client.
// All metrics are defined in their respective packages (client, pagination,
// ratelimit) to maintain modularity and avoid circular dependencies.
//
// A report run is a short-lived batch job, so instead of serving /metrics the
// CLI writes the gathered metrics to a node_exporter textfile when asked to.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the Canvas client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects the metrics registered with Registry.
var Gatherer = prometheus.DefaultGatherer

// ErrNoPath is returned by WriteTextfile when no path is given.
var ErrNoPath = errors.New("metrics textfile path is required")

// WriteTextfile writes every gathered metric to path in the Prometheus text
// format. The file is written atomically.
func WriteTextfile(path string) error {
	return writeTextfile(path, Gatherer)
}

func writeTextfile(path string, g prometheus.Gatherer) error {
	if path == "" {
		return ErrNoPath
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - canvas_rate_limit_remaining (Gauge): Quota left in the Canvas rate limit bucket
//   - canvas_rate_limit_throttles_total (Counter): Requests delayed because the bucket ran low
//   - canvas_rate_limit_cooldown_waits_total (Counter): Requests delayed by a shared 429 cooldown
//
// Request Metrics (pkg/client):
//   - canvas_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - canvas_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - canvas_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - canvas_retries_total{error_class} (Counter): Retry attempts by error class
//   - canvas_retry_backoff_seconds{error_class} (Histogram): Wait before each retry by error class
//   - canvas_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Pagination Metrics (pkg/pagination):
//   - canvas_pages_fetched_total (Counter): Pages fetched while following Link headers
//   - canvas_records_yielded_total (Counter): Records yielded to consumers
//
// Example Prometheus Queries:
//
//   # Retry pressure per run
//   sum by (error_class) (canvas_retries_total)
//
//   # Rate limit bucket running low
//   canvas_rate_limit_remaining < 100
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(canvas_request_duration_seconds_bucket[5m]))
