package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artwork_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "artwork_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artwork_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts including the first one.
	// 1 disables retries.
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration: a single
// attempt. Callers decide whether a failed page is worth asking for again.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       1,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// backoffFor scales the initial backoff for an error class.
// Rate limit responses wait longer than server or network failures.
func (c RetryConfig) backoffFor(errorClass ErrorClass) time.Duration {
	if errorClass == ErrorClassRateLimit {
		return c.InitialBackoff * 4
	}
	return c.InitialBackoff
}

// retryWithBackoff runs fn until it succeeds, returns a non-retriable
// class, or MaxAttempts is reached. It returns the number of attempts made
// and the last error from fn, or an ErrContextCancelled error if ctx ends
// during a backoff.
func retryWithBackoff(ctx context.Context, config RetryConfig, fn func() (ErrorClass, error)) (int, error) {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var backoff time.Duration
	for attempt := 1; ; attempt++ {
		errorClass, err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return attempt, nil
		}

		if !shouldRetry(errorClass) {
			return attempt, err
		}

		if attempt >= config.MaxAttempts {
			if config.MaxAttempts > 1 {
				retryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
				log.Warn().
					Str("error_class", string(errorClass)).
					Int("max_attempts", config.MaxAttempts).
					Msg("Retry attempts exhausted")
			}
			return attempt, err
		}

		if backoff == 0 {
			backoff = config.backoffFor(errorClass)
		}

		retriesTotal.WithLabelValues(string(errorClass)).Inc()

		// ±20% jitter
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		retryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(jitter.Seconds())

		log.Debug().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			return attempt, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if config.MaxBackoff > 0 && backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}
}
