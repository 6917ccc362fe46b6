// Package ratelimit gates Planet API requests. A Tracker shares the server's
// advertised request budget (X-RateLimit-* and Retry-After headers) between
// client instances through Redis; a Limiter applies a local token bucket.
package ratelimit

import (
	"time"
)

// RedisKeyState is the Redis hash holding the shared rate limit state.
const RedisKeyState = "planet:rate_limit:state"

// Thresholds for rate limit decisions.
const (
	// RemainingCritical blocks requests while fewer requests than this remain
	// in the current window and the window has not reset yet.
	RemainingCritical = 1

	// RemainingWarning applies throttling below this value.
	RemainingWarning = 5

	// RemainingHealthy indicates normal operation.
	RemainingHealthy = 20
)

// RateLimitState represents the current server-side request budget.
type RateLimitState struct {
	// Remaining is the number of requests left in the current window.
	// Extracted from X-RateLimit-Remaining, or 0 after a Retry-After.
	Remaining int `json:"remaining"`

	// Limit is the window size from X-RateLimit-Limit (0 if unknown).
	Limit int `json:"limit"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= RemainingHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked. A window
// that has already reset never blocks.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining < RemainingCritical && s.TimeUntilReset() > 0
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < RemainingWarning && !s.NeedsCriticalBlock() && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= RemainingHealthy
}
