// Package client provides the Canvas HTTP transport: authenticated GET requests
// with a retry policy for rate limiting and transient server errors.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for Canvas client operations.
var (
	canvasRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_requests_total",
		Help: "Total Canvas requests by endpoint and status",
	}, []string{"endpoint", "status"})

	canvasRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canvas_request_duration_seconds",
		Help:    "Canvas request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20},
	}, []string{"endpoint"})

	canvasErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_errors_total",
		Help: "Total Canvas errors by class",
	}, []string{"class"})
)

const (
	// DefaultUserAgent identifies the tool to Canvas.
	DefaultUserAgent = "canvas-assignments/1.2"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 20 * time.Second
)

// Pacer coordinates request pacing beyond a single response, e.g. with other
// processes sharing the same token. Implemented by ratelimit.Tracker.
type Pacer interface {
	// Wait blocks until a shared cooldown, if any, has elapsed.
	Wait(ctx context.Context) error

	// Cooldown announces that the server asked for a pause of d.
	Cooldown(ctx context.Context, d time.Duration) error

	// UpdateFromHeaders records the rate limit state advertised by a response.
	UpdateFromHeaders(ctx context.Context, headers http.Header) error
}

// Client is the Canvas HTTP transport.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	pacer      Pacer
	sleep      func(ctx context.Context, d time.Duration) error
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the Canvas instance root, e.g. "https://school.instructure.com".
	BaseURL string

	// Token is the static bearer token.
	Token string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout bounds a single HTTP request, not the whole retry sequence.
	Timeout time.Duration

	// Retry
	Retry RetryConfig

	// Pacer is optional.
	Pacer Pacer
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, token string) Config {
	return Config{
		BaseURL:   baseURL,
		Token:     token,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
		Retry:     DefaultRetryConfig(),
	}
}

// New creates a new Canvas client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}

	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}

	if cfg.Retry.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.Retry.MaxRetries)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		config:  cfg,
		pacer:   cfg.Pacer,
		sleep:   sleepContext,
		logger:  log.With().Str("component", "canvas-client").Logger(),
	}, nil
}

// URL joins the base URL and an API path such as "/api/v1/courses".
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Fetch performs a GET with the retry policy.
//
// 429 responses are retried after Retry-After for as long as the server keeps
// sending them. 500/502/503/504 responses are retried with exponential backoff
// until the budget is spent, then the last failing response is returned with a
// nil error. Every other status is returned as is. A non-nil error means no
// response was obtained.
func (c *Client) Fetch(ctx context.Context, rawURL string, params url.Values) (*Response, error) {
	endpoint := endpointLabel(rawURL)
	attempt := 0

	for {
		resp, err := c.do(ctx, rawURL, params, endpoint)
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp.Header, c.config.Retry.DefaultRetryAfter)

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Dur("retry_after", wait).
				Msg("Rate limited, waiting before retry")

			if c.pacer != nil {
				if err := c.pacer.Cooldown(ctx, wait); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to share rate limit cooldown")
				}
			}

			recordRetry(ErrorClassRateLimit, wait)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			attempt++
			continue

		case isTransient(resp.StatusCode):
			if attempt >= c.config.Retry.MaxRetries {
				canvasRetryExhaustedTotal.WithLabelValues(string(ErrorClassServer)).Inc()
				c.logger.Warn().
					Str("endpoint", endpoint).
					Int("status", resp.StatusCode).
					Int("max_retries", c.config.Retry.MaxRetries).
					Msg("Retry attempts exhausted")
				resp.Exhausted = true
				return resp, nil
			}

			backoff := c.config.Retry.Backoff(attempt)

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Transient server error, retrying after backoff")

			recordRetry(ErrorClassServer, backoff)
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
			attempt++
			continue
		}

		if attempt > 0 && resp.OK() {
			c.logger.Info().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Msg("Request succeeded after retry")
		}

		return resp, nil
	}
}

// do executes a single GET and reads the whole body.
func (c *Client) do(ctx context.Context, rawURL string, params url.Values, endpoint string) (*Response, error) {
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if len(params) > 0 {
		query := req.URL.Query()
		for key, values := range params {
			for _, value := range values {
				query.Add(key, value)
			}
		}
		req.URL.RawQuery = query.Encode()
	}

	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("url", req.URL.Redacted()).
		Msg("Executing Canvas request")

	startTime := time.Now()
	defer func() {
		canvasRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		canvasErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		canvasRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		canvasErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	canvasRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(httpResp.StatusCode)).Inc()
	if class := classifyStatus(httpResp.StatusCode); class != "" {
		canvasErrorsTotal.WithLabelValues(string(class)).Inc()
	}

	if c.pacer != nil {
		if err := c.pacer.UpdateFromHeaders(ctx, httpResp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       body,
		URL:        req.URL.String(),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetSleep replaces the retry wait (for testing).
func (c *Client) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	c.sleep = fn
}

var numericSegment = regexp.MustCompile(`/\d+(/|$)`)

// endpointLabel reduces a URL to its path with numeric ids collapsed, keeping
// metric label cardinality bounded.
func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "unknown"
	}
	// Applied twice because adjacent numeric segments share a slash.
	label := numericSegment.ReplaceAllString(u.Path, "/:id$1")
	return numericSegment.ReplaceAllString(label, "/:id$1")
}
