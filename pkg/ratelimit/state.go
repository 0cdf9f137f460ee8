// Package ratelimit keeps the table's requests inside the artwork API's
// public request budget. Usage is counted in fixed windows; the counter
// can live in Redis so several table processes share one budget.
package ratelimit

import (
	"fmt"
	"time"
)

// RedisKeyPrefix prefixes the per-window counter keys stored in Redis.
const RedisKeyPrefix = "artwork:rate_limit:window"

const (
	// DefaultRequestsPerMinute is the documented anonymous budget of the
	// artwork API.
	DefaultRequestsPerMinute = 60

	// DefaultWindow is the length of one counting window.
	DefaultWindow = time.Minute

	// WarningRatio is the share of the budget after which requests are throttled.
	WarningRatio = 0.8

	// HealthyRatio is the share of the budget under which no restriction applies.
	HealthyRatio = 0.5
)

// WindowKey returns the Redis key for the window starting at start.
func WindowKey(start time.Time) string {
	return fmt.Sprintf("%s:%d", RedisKeyPrefix, start.Unix())
}

// WindowState is the request usage of the current window.
type WindowState struct {
	// Used is the number of requests counted in the window, including the
	// one being admitted when returned from ShouldAllowRequest.
	Used int `json:"used"`

	// Limit is the number of requests allowed per window.
	Limit int `json:"limit"`

	// ResetAt is when the current window ends.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was read.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true while usage is under HealthyRatio of the limit.
	IsHealthy bool `json:"is_healthy"`
}

// Remaining returns how many requests are left in the window.
func (s *WindowState) Remaining() int {
	if s.Used >= s.Limit {
		return 0
	}
	return s.Limit - s.Used
}

// NeedsCriticalBlock returns true once usage exceeds the limit.
func (s *WindowState) NeedsCriticalBlock() bool {
	return s.Used > s.Limit
}

// NeedsThrottling returns true when usage is past the warning ratio but the
// window is not yet exhausted.
func (s *WindowState) NeedsThrottling() bool {
	return float64(s.Used) > float64(s.Limit)*WarningRatio && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *WindowState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field from Used and Limit.
func (s *WindowState) UpdateHealth() {
	s.IsHealthy = float64(s.Used) < float64(s.Limit)*HealthyRatio
}
