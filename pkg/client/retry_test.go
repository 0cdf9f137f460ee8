package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    5 * time.Millisecond,
		MaxBackoff:        20 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", config.MaxAttempts)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfig_BackoffFor(t *testing.T) {
	config := fastRetryConfig(3)

	if got := config.backoffFor(ErrorClassServer); got != 5*time.Millisecond {
		t.Errorf("server backoff = %v, want 5ms", got)
	}
	if got := config.backoffFor(ErrorClassRateLimit); got != 20*time.Millisecond {
		t.Errorf("rate limit backoff = %v, want 20ms", got)
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	callCount := 0
	attempts, err := retryWithBackoff(context.Background(), fastRetryConfig(3), func() (ErrorClass, error) {
		callCount++
		return "", nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 || attempts != 1 {
		t.Errorf("calls = %d, attempts = %d, want 1, 1", callCount, attempts)
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	callCount := 0
	attempts, err := retryWithBackoff(context.Background(), fastRetryConfig(3), func() (ErrorClass, error) {
		callCount++
		if callCount < 3 {
			return ErrorClassServer, errors.New("temporary error")
		}
		return "", nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryWithBackoff_MaxAttemptsExhausted(t *testing.T) {
	callCount := 0
	testErr := errors.New("persistent error")

	attempts, err := retryWithBackoff(context.Background(), fastRetryConfig(3), func() (ErrorClass, error) {
		callCount++
		return ErrorClassNetwork, testErr
	})

	if !errors.Is(err, testErr) {
		t.Errorf("Expected last error, got %v", err)
	}
	if callCount != 3 || attempts != 3 {
		t.Errorf("calls = %d, attempts = %d, want 3, 3", callCount, attempts)
	}
}

func TestRetryWithBackoff_SingleAttempt(t *testing.T) {
	callCount := 0
	_, err := retryWithBackoff(context.Background(), DefaultRetryConfig(), func() (ErrorClass, error) {
		callCount++
		return ErrorClassServer, errors.New("server error")
	})

	if err == nil {
		t.Error("Expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call with retries disabled, got %d", callCount)
	}
}

func TestRetryWithBackoff_NonRetriableClasses(t *testing.T) {
	for _, class := range []ErrorClass{ErrorClassClient, ErrorClassMalformed} {
		t.Run(string(class), func(t *testing.T) {
			callCount := 0
			testErr := errors.New("no retry")

			_, err := retryWithBackoff(context.Background(), fastRetryConfig(3), func() (ErrorClass, error) {
				callCount++
				return class, testErr
			})

			if !errors.Is(err, testErr) {
				t.Errorf("Expected original error, got %v", err)
			}
			if callCount != 1 {
				t.Errorf("Expected 1 call, got %d", callCount)
			}
		})
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	config := fastRetryConfig(5)
	config.InitialBackoff = time.Second

	callCount := 0
	_, err := retryWithBackoff(ctx, config, func() (ErrorClass, error) {
		callCount++
		cancel()
		return ErrorClassServer, errors.New("server error")
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", callCount)
	}
}
