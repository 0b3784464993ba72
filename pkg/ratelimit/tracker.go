package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	canvasRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canvas_rate_limit_remaining",
		Help: "Quota remaining in the Canvas rate limit bucket",
	})

	canvasRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_rate_limit_throttles_total",
		Help: "Total number of requests delayed because the bucket ran low",
	})

	canvasRateLimitCooldownWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_rate_limit_cooldown_waits_total",
		Help: "Total number of requests delayed by a shared 429 cooldown",
	})
)

// Config tunes the tracker.
type Config struct {
	// Scope namespaces the Redis keys, typically the Canvas host.
	Scope string

	// ThrottleDelay is the pause before a request while the bucket is low.
	ThrottleDelay time.Duration

	// MaxStateAge bounds how old quota data may be and still throttle.
	MaxStateAge time.Duration
}

// DefaultConfig returns the default tracker configuration for scope.
func DefaultConfig(scope string) Config {
	return Config{
		Scope:         scope,
		ThrottleDelay: 1 * time.Second,
		MaxStateAge:   60 * time.Second,
	}
}

// Tracker monitors Canvas rate limits and paces requests.
type Tracker struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		config: cfg,
		logger: logger,
		sleep:  sleepContext,
	}
}

// GetState retrieves the current rate limit state from Redis.
// Returns a default healthy state if no data exists in Redis.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	values, err := t.redis.MGet(ctx,
		redisKey(t.config.Scope, keyRemaining),
		redisKey(t.config.Scope, keyCooldownUntil),
		redisKey(t.config.Scope, keyLastUpdate),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	state := &RateLimitState{Remaining: DefaultBucket}

	if s, ok := values[0].(string); ok {
		remaining, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parse remaining: %w", err)
		}
		state.Remaining = remaining
	}

	if s, ok := values[1].(string); ok {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse cooldown: %w", err)
		}
		state.CooldownUntil = time.UnixMilli(ms)
	}

	if s, ok := values[2].(string); ok {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
		state.LastUpdate = time.UnixMilli(ms)
	} else {
		t.logger.Debug().Msg("No rate limit state in Redis, assuming a full bucket")
		state.LastUpdate = time.Now()
	}

	state.UpdateHealth()
	return state, nil
}

// UpdateFromHeaders parses the Canvas quota header and stores it in Redis.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := strings.TrimSpace(headers.Get("X-Rate-Limit-Remaining"))
	if remainStr == "" {
		// Not every endpoint reports the bucket.
		return nil
	}

	remaining, err := strconv.ParseFloat(remainStr, 64)
	if err != nil {
		return fmt.Errorf("parse X-Rate-Limit-Remaining header: %w", err)
	}

	now := time.Now()
	state := &RateLimitState{
		Remaining:  remaining,
		LastUpdate: now,
	}
	state.UpdateHealth()

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, redisKey(t.config.Scope, keyRemaining), strconv.FormatFloat(remaining, 'f', -1, 64), 0)
	pipe.Set(ctx, redisKey(t.config.Scope, keyLastUpdate), now.UnixMilli(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	canvasRateLimitRemaining.Set(remaining)

	event := t.logger.Debug()
	if state.NeedsThrottling() {
		event = t.logger.Warn()
	}
	event.
		Float64("remaining", remaining).
		Bool("is_healthy", state.IsHealthy).
		Str("request_cost", headers.Get("X-Request-Cost")).
		Msg("Canvas rate limit state updated")

	return nil
}

// Cooldown records that the server asked for a pause of d. An existing later
// cooldown is kept.
func (t *Tracker) Cooldown(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	key := redisKey(t.config.Scope, keyCooldownUntil)
	until := time.Now().Add(d)

	current, err := t.redis.Get(ctx, key).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("get cooldown: %w", err)
	}
	if err == nil && current >= until.UnixMilli() {
		return nil
	}

	if err := t.redis.Set(ctx, key, until.UnixMilli(), d).Err(); err != nil {
		return fmt.Errorf("store cooldown: %w", err)
	}

	t.logger.Info().
		Dur("cooldown", d).
		Time("until", until).
		Msg("Shared rate limit cooldown started")
	return nil
}

// Wait blocks while a shared cooldown is active, and adds a short delay while
// the bucket is low.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		// Pacing is advisory; a Redis outage must not stop the run.
		t.logger.Warn().Err(err).Msg("Rate limit state unavailable, not pacing")
		return nil
	}

	if wait := state.TimeUntilCooldownEnds(); wait > 0 {
		t.logger.Info().Dur("wait", wait).Msg("Waiting for shared rate limit cooldown")
		canvasRateLimitCooldownWaitsTotal.Inc()
		return t.sleep(ctx, wait)
	}

	if state.NeedsThrottling() && !state.IsStale(t.config.MaxStateAge) {
		t.logger.Warn().
			Float64("remaining", state.Remaining).
			Msg("Canvas rate limit bucket low - throttling request")
		canvasRateLimitThrottlesTotal.Inc()
		return t.sleep(ctx, t.config.ThrottleDelay)
	}

	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
