package selection

import (
	"context"
	"errors"
	"sync"

	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/Sternrassler/artwork-table/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	bulkSelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artwork_bulk_selections_total",
			Help: "Total number of bulk top-N selections by result",
		},
		[]string{"result"}, // "success", "failure", "superseded"
	)

	bulkPagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artwork_bulk_pages_fetched_total",
		Help: "Total number of pages fetched for bulk selections",
	})
)

// RangeFetcher fetches pages first..last, ordered by page number.
type RangeFetcher interface {
	FetchRange(ctx context.Context, first, last, limit int) ([]*artwork.Page, error)
}

// BulkSelector selects the first N records of the catalog.
// Only the latest call may apply; starting a new one cancels the previous.
type BulkSelector struct {
	fetcher  RangeFetcher
	store    *Store
	pageSize int
	logger   zerolog.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	onApply func([]artwork.Record)
}

// NewBulkSelector creates a bulk selector writing into store.
func NewBulkSelector(fetcher RangeFetcher, store *Store, pageSize int, logger zerolog.Logger) *BulkSelector {
	if pageSize <= 0 {
		pageSize = artwork.DefaultPageSize
	}
	return &BulkSelector{
		fetcher:  fetcher,
		store:    store,
		pageSize: pageSize,
		logger:   logger,
	}
}

// OnApply registers fn to receive the records of every applied selection.
// fn runs while the selector is locked and must not call back into it.
func (b *BulkSelector) OnApply(fn func(records []artwork.Record)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onApply = fn
}

// SelectTopN fetches pages 1..ceil(n/pageSize), keeps the first n records and
// selects them in one SelectRows call. It returns how many records were
// selected, which is less than n when the catalog is shorter.
//
// On failure nothing is selected and a *BulkFetchError is returned. A call
// replaced by a newer one returns ErrSuperseded and applies nothing.
func (b *BulkSelector) SelectTopN(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidCount
	}

	pages := artwork.PagesFor(n, b.pageSize)
	ctx, gen := b.begin(ctx)
	defer b.end(gen)

	b.logger.Debug().
		Int("count", n).
		Int("pages", pages).
		Msg("Bulk selection started")

	result, err := b.fetcher.FetchRange(ctx, 1, pages, b.pageSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.gen {
		bulkSelectionsTotal.WithLabelValues("superseded").Inc()
		b.logger.Debug().Int("count", n).Msg("Bulk selection superseded")
		return 0, ErrSuperseded
	}

	if err != nil {
		bulkSelectionsTotal.WithLabelValues("failure").Inc()
		bulkErr := &BulkFetchError{Count: n, Err: err}
		var pageErr *pagination.PageError
		if errors.As(err, &pageErr) {
			bulkErr.Page = pageErr.PageNumber
			bulkErr.Err = pageErr.Err
		}
		b.logger.Warn().
			Err(err).
			Int("count", n).
			Int("page", bulkErr.Page).
			Msg("Bulk selection failed")
		return 0, bulkErr
	}
	bulkPagesFetchedTotal.Add(float64(len(result)))

	records := pagination.Concat(result)
	if len(records) > n {
		records = records[:n]
	}
	b.store.SelectRows(artwork.Minimal(records))
	if b.onApply != nil {
		b.onApply(records)
	}

	bulkSelectionsTotal.WithLabelValues("success").Inc()
	b.logger.Info().
		Int("requested", n).
		Int("selected", len(records)).
		Msg("Bulk selection applied")

	return len(records), nil
}

// Cancel aborts the in-flight bulk selection, if any.
func (b *BulkSelector) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

// begin cancels any previous call and registers a new generation.
func (b *BulkSelector) begin(parent context.Context) (context.Context, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		b.cancel()
	}
	b.gen++
	ctx, cancel := context.WithCancel(parent)
	b.cancel = cancel
	return ctx, b.gen
}

func (b *BulkSelector) end(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen == b.gen && b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}
