package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/artwork-table/pkg/artwork"
)

// ErrFakeFetch is returned by FakeFetcher for pages marked as failing.
var ErrFakeFetch = errors.New("fake fetch failure")

// FakeFetcher serves pages of a synthetic catalog from memory, without HTTP.
type FakeFetcher struct {
	mu     sync.Mutex
	total  int
	fail   map[int]error
	delay  map[int]time.Duration
	calls  []int
	active int
	peak   int
}

// NewFakeFetcher creates a fetcher over a catalog of total records.
func NewFakeFetcher(total int) *FakeFetcher {
	return &FakeFetcher{
		total: total,
		fail:  make(map[int]error),
		delay: make(map[int]time.Duration),
	}
}

// FailPage makes page fail with err (ErrFakeFetch when err is nil).
func (f *FakeFetcher) FailPage(page int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = ErrFakeFetch
	}
	f.fail[page] = err
}

// RestorePage makes a failing page answer normally again.
func (f *FakeFetcher) RestorePage(page int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.fail, page)
}

// DelayPage makes page take d before answering.
func (f *FakeFetcher) DelayPage(page int, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay[page] = d
}

// Calls returns the requested pages in call order.
func (f *FakeFetcher) Calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.calls))
	copy(out, f.calls)
	return out
}

// PeakConcurrency returns the most FetchPage calls that were in flight at once.
func (f *FakeFetcher) PeakConcurrency() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// FetchPage implements the page fetcher contract.
func (f *FakeFetcher) FetchPage(ctx context.Context, page, limit int) (*artwork.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, page)
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	err := f.fail[page]
	delay := f.delay[page]
	total := f.total
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	body := BuildPageBody(total, page, limit)
	return &artwork.Page{Records: body.Data, Pagination: body.Pagination}, nil
}
