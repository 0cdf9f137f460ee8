package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	requestsInWindow = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "artwork_requests_in_window",
		Help: "Requests counted in the current rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artwork_rate_limit_blocks_total",
		Help: "Total number of requests held back because the window budget was spent",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artwork_rate_limit_throttles_total",
		Help: "Total number of requests throttled past the warning ratio",
	})
)

// Tracker counts requests against a per-window budget and gates new ones.
type Tracker struct {
	store  Store
	limit  int
	window time.Duration
	logger zerolog.Logger

	now func() time.Time
}

// NewTracker creates a tracker allowing limit requests per window.
// Non-positive values fall back to DefaultRequestsPerMinute and DefaultWindow.
func NewTracker(store Store, limit int, window time.Duration, logger zerolog.Logger) *Tracker {
	if limit <= 0 {
		limit = DefaultRequestsPerMinute
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		store:  store,
		limit:  limit,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

// windowStart returns the start of the window containing now.
func (t *Tracker) windowStart() time.Time {
	return t.now().Truncate(t.window)
}

// GetState returns the usage of the current window without counting a request.
func (t *Tracker) GetState(ctx context.Context) (*WindowState, error) {
	start := t.windowStart()
	used, err := t.store.Count(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("get window usage: %w", err)
	}

	state := &WindowState{
		Used:       used,
		Limit:      t.limit,
		ResetAt:    start.Add(t.window),
		LastUpdate: t.now(),
	}
	state.UpdateHealth()
	return state, nil
}

// ShouldAllowRequest counts a request in the current window and reports
// whether it may proceed. Past the warning ratio it sleeps one request
// interval before allowing; past the limit it returns false with the state
// so the caller knows when the window resets.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, *WindowState, error) {
	start := t.windowStart()
	used, err := t.store.Incr(ctx, start, 2*t.window)
	if err != nil {
		return false, nil, fmt.Errorf("count request: %w", err)
	}

	state := &WindowState{
		Used:       used,
		Limit:      t.limit,
		ResetAt:    start.Add(t.window),
		LastUpdate: t.now(),
	}
	state.UpdateHealth()
	requestsInWindow.Set(float64(used))

	if state.NeedsCriticalBlock() {
		t.logger.Warn().
			Int("used", used).
			Int("limit", t.limit).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Request budget spent - holding request until window resets")
		rateLimitBlocksTotal.Inc()
		return false, state, nil
	}

	if state.NeedsThrottling() {
		delay := t.window / time.Duration(t.limit)
		t.logger.Debug().
			Int("used", used).
			Int("limit", t.limit).
			Dur("delay", delay).
			Msg("Request budget low - throttling request")
		rateLimitThrottlesTotal.Inc()

		select {
		case <-ctx.Done():
			return false, state, ctx.Err()
		case <-time.After(delay):
		}
	}

	return true, state, nil
}

// Acquire blocks until a request is admitted or ctx is done.
func (t *Tracker) Acquire(ctx context.Context) error {
	for {
		allowed, state, err := t.ShouldAllowRequest(ctx)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		wait := state.TimeUntilReset()
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
