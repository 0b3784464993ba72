// Package ratelimit implements Canvas rate limit tracking and request pacing.
// It monitors the X-Rate-Limit-Remaining header (Canvas' leaky-bucket quota)
// and the cooldowns requested by 429 responses, and shares both through Redis
// so that several runs using the same token pace themselves together.
package ratelimit

import (
	"fmt"
	"time"
)

// Redis key suffixes for rate limit state storage. Keys are namespaced by
// scope: canvas:rate_limit:<scope>:<suffix>.
const (
	keyRemaining     = "remaining"
	keyCooldownUntil = "cooldown_until"
	keyLastUpdate    = "last_update"
)

// Thresholds for pacing decisions. Canvas starts every token with a bucket of 700.
const (
	// BucketThresholdWarning applies throttling when the remaining quota falls below this value.
	BucketThresholdWarning = 100

	// BucketThresholdHealthy indicates normal operation.
	BucketThresholdHealthy = 300

	// DefaultBucket is assumed before any response has been seen.
	DefaultBucket = 700
)

// RateLimitState represents the shared Canvas rate limit state.
type RateLimitState struct {
	// Remaining is the quota left in the bucket, from X-Rate-Limit-Remaining.
	Remaining float64 `json:"remaining"`

	// CooldownUntil is the end of the pause most recently requested by a 429.
	CooldownUntil time.Time `json:"cooldown_until"`

	// LastUpdate is when Remaining was last refreshed from a response.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= BucketThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
// Stale quota data does not trigger throttling; the bucket refills over time.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < BucketThresholdWarning
}

// TimeUntilCooldownEnds returns the remaining shared cooldown, or 0.
func (s *RateLimitState) TimeUntilCooldownEnds() time.Duration {
	d := time.Until(s.CooldownUntil)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= BucketThresholdHealthy
}

func redisKey(scope, suffix string) string {
	if scope == "" {
		scope = "default"
	}
	return fmt.Sprintf("canvas:rate_limit:%s:%s", scope, suffix)
}
