package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrInvalidPage is returned for page numbers below 1.
	ErrInvalidPage = errors.New("page number must be >= 1")

	// ErrInvalidPageSize is returned for non-positive page sizes.
	ErrInvalidPageSize = errors.New("page size must be > 0")

	// ErrMalformedResponse is returned when the body lacks data or pagination.
	ErrMalformedResponse = errors.New("malformed artwork response")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrRateLimited is returned when the request budget could not be acquired.
	ErrRateLimited = errors.New("request budget unavailable")
)

// FetchError reports a failed page request: a network failure, a non-2xx
// status, or a body that is not a well-formed artwork page.
type FetchError struct {
	Page       int
	Limit      int
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Attempts   int
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	status := ""
	if e.StatusCode > 0 {
		status = fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch page %d: %s error%s: %s: %v",
			e.Page, e.ErrorClass, status, e.Message, e.Err)
	}
	return fmt.Sprintf("fetch page %d: %s error%s: %s",
		e.Page, e.ErrorClass, status, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// client and malformed errors repeat identically
		return false
	}
}
