package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/rs/zerolog/log"
)

// Config holds range fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	// 1 fetches strictly one page after another in ascending order.
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
}

// DefaultConfig returns sequential fetching with a per-page timeout
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 1,
		Timeout:        15 * time.Second,
	}
}

// PageFetcher fetches a single page of artworks
type PageFetcher interface {
	FetchPage(ctx context.Context, page, limit int) (*artwork.Page, error)
}

// PageResult represents the result of fetching a single page
type PageResult struct {
	PageNumber int
	Page       *artwork.Page
	Error      error
}

// PageError reports the first page of a range that failed
type PageError struct {
	PageNumber int
	Err        error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.PageNumber, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// RangeFetcher fetches page ranges, all or nothing
type RangeFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewRangeFetcher creates a new range fetcher
func NewRangeFetcher(fetcher PageFetcher, config Config) *RangeFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &RangeFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchRange fetches pages first..last of size limit and returns them
// ordered by page number. If any page fails the whole range fails with a
// *PageError and no pages are returned.
func (rf *RangeFetcher) FetchRange(ctx context.Context, first, last, limit int) ([]*artwork.Page, error) {
	if first < 1 || last < first {
		return nil, fmt.Errorf("invalid page range %d..%d", first, last)
	}

	start := time.Now()
	count := last - first + 1

	log.Debug().
		Int("first", first).
		Int("last", last).
		Int("limit", limit).
		Int("concurrency", rf.config.MaxConcurrency).
		Msg("Starting page range fetch")

	var (
		pages []*artwork.Page
		err   error
	)
	if rf.config.MaxConcurrency == 1 || count == 1 {
		pages, err = rf.fetchSequential(ctx, first, last, limit)
	} else {
		pages, err = rf.fetchParallel(ctx, first, last, limit)
	}
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("pages", count).
		Dur("duration", time.Since(start)).
		Msg("Page range fetch complete")

	return pages, nil
}

// fetchPage fetches one page under the per-page timeout
func (rf *RangeFetcher) fetchPage(ctx context.Context, pageNum, limit int) (*artwork.Page, error) {
	pageCtx, cancel := context.WithTimeout(ctx, rf.config.Timeout)
	defer cancel()
	return rf.fetcher.FetchPage(pageCtx, pageNum, limit)
}

func (rf *RangeFetcher) fetchSequential(ctx context.Context, first, last, limit int) ([]*artwork.Page, error) {
	pages := make([]*artwork.Page, 0, last-first+1)
	for pageNum := first; pageNum <= last; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, &PageError{PageNumber: pageNum, Err: err}
		}

		page, err := rf.fetchPage(ctx, pageNum, limit)
		if err != nil {
			log.Warn().
				Err(err).
				Int("page", pageNum).
				Msg("Page fetch failed")
			return nil, &PageError{PageNumber: pageNum, Err: err}
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// fetchParallel fetches with a worker pool and reassembles by page index.
// The first failure cancels the remaining workers.
func (rf *RangeFetcher) fetchParallel(ctx context.Context, first, last, limit int) ([]*artwork.Page, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	count := last - first + 1
	pageQueue := make(chan int, count)
	pageResults := make(chan PageResult, count)

	for pageNum := first; pageNum <= last; pageNum++ {
		pageQueue <- pageNum
	}
	close(pageQueue)

	workers := rf.config.MaxConcurrency
	if workers > count {
		workers = count
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go rf.worker(ctx, limit, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	pages := make([]*artwork.Page, count)
	var firstErr *PageError
	for result := range pageResults {
		if result.Error != nil {
			// keep the lowest failing page so errors are stable
			if firstErr == nil || result.PageNumber < firstErr.PageNumber {
				firstErr = &PageError{PageNumber: result.PageNumber, Err: result.Error}
			}
			cancel()
			continue
		}
		pages[result.PageNumber-first] = result.Page
	}

	if firstErr != nil {
		log.Warn().
			Err(firstErr.Err).
			Int("page", firstErr.PageNumber).
			Msg("Page range fetch failed")
		return nil, firstErr
	}
	for i, p := range pages {
		if p == nil {
			// a worker stopped on cancellation before reporting
			return nil, &PageError{PageNumber: first + i, Err: ctx.Err()}
		}
	}

	return pages, nil
}

// worker processes pages from the queue
func (rf *RangeFetcher) worker(ctx context.Context, limit int, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		page, err := rf.fetchPage(ctx, pageNum, limit)
		results <- PageResult{PageNumber: pageNum, Page: page, Error: err}
		if err != nil {
			return
		}
		pagesProcessed++
	}
}

// Concat joins the records of pages in order.
func Concat(pages []*artwork.Page) []artwork.Record {
	n := 0
	for _, p := range pages {
		n += len(p.Records)
	}
	out := make([]artwork.Record, 0, n)
	for _, p := range pages {
		out = append(out, p.Records...)
	}
	return out
}
