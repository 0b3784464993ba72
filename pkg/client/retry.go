package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	canvasRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	canvasRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canvas_retry_backoff_seconds",
		Help:    "Wait before a retry by error class",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 30, 60},
	}, []string{"error_class"})

	canvasRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts for transient 5xx responses.
	// 429 responses are retried without a cap.
	MaxRetries int

	// BackoffBase is multiplied by 2^attempt to get the 5xx backoff.
	BackoffBase time.Duration

	// DefaultRetryAfter is used when a 429 carries no usable Retry-After header.
	DefaultRetryAfter time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        4,
		BackoffBase:       1 * time.Second,
		DefaultRetryAfter: 3 * time.Second,
	}
}

// Backoff returns the wait before retrying a transient failure on the given
// zero-based attempt.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Cap the shift so a misconfigured budget cannot overflow.
	if attempt > 30 {
		attempt = 30
	}
	return c.BackoffBase * time.Duration(1<<uint(attempt))
}

// maxRetryAfterSeconds is the largest delay-seconds value a Duration can hold.
const maxRetryAfterSeconds = int64(math.MaxInt64 / time.Second)

// retryAfter reads the Retry-After header as delay-seconds or an HTTP-date.
func retryAfter(header http.Header, def time.Duration) time.Duration {
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return def
	}

	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil && errors.Is(err, strconv.ErrRange) && seconds > 0 {
		// ParseInt saturates at MaxInt64 for values past its range.
		err = nil
	}
	if err == nil {
		if seconds < 0 {
			return def
		}
		// Clamp so the conversion to a Duration cannot overflow.
		if seconds > maxRetryAfterSeconds {
			seconds = maxRetryAfterSeconds
		}
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		wait := time.Until(at)
		if wait < 0 {
			return 0
		}
		return wait
	}

	return def
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-timer.C:
		return nil
	}
}

func recordRetry(class ErrorClass, wait time.Duration) {
	canvasRetriesTotal.WithLabelValues(string(class)).Inc()
	canvasRetryBackoffSeconds.WithLabelValues(string(class)).Observe(wait.Seconds())
}
