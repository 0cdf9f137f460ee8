package selection

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCount is returned when a bulk count is not positive
	ErrInvalidCount = errors.New("count must be positive")

	// ErrSuperseded is returned when a newer bulk selection replaced this one
	ErrSuperseded = errors.New("bulk selection superseded by a newer request")
)

// BulkFetchError reports a failed page fetch during bulk selection.
// The selection is unchanged when it is returned.
type BulkFetchError struct {
	Count int // requested number of records
	Page  int // page that failed, 0 if unknown
	Err   error
}

func (e *BulkFetchError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("select top %d: page %d: %v", e.Count, e.Page, e.Err)
	}
	return fmt.Sprintf("select top %d: %v", e.Count, e.Err)
}

func (e *BulkFetchError) Unwrap() error {
	return e.Err
}
