// Package view holds the state behind one artwork table: the loaded page,
// the cross-page selection and the bulk selection dialog.
package view

import (
	"context"
	"sync"

	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/Sternrassler/artwork-table/pkg/pagination"
	"github.com/Sternrassler/artwork-table/pkg/selection"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var stalePagesDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "artwork_stale_pages_discarded_total",
	Help: "Total number of page responses dropped because a newer page was requested",
})

// Config configures a table view.
type Config struct {
	PageSize    int
	TopNDefault int
}

// DefaultConfig returns the default table configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:    artwork.DefaultPageSize,
		TopNDefault: artwork.DefaultTopN,
	}
}

// Ticket identifies one page request. Only the latest ticket may apply.
type Ticket struct {
	Seq  uint64
	Page int
}

// Table is the controller for one table view. It is safe for use from the
// render loop and from background fetch commands at the same time.
type Table struct {
	cfg    Config
	store  *selection.Store
	bulk   *selection.BulkSelector
	logger zerolog.Logger

	mu         sync.Mutex
	seq        uint64
	page       int
	records    []artwork.Record
	total      int
	totalPages int
	loading    bool
	loadErr    error
	seen       map[int64]artwork.Record

	dialog    DialogState
	dialogErr error
	submitSeq uint64
}

// NewTable creates a table view with an empty selection. Bulk selections
// fetch their pages through ranges.
func NewTable(cfg Config, ranges selection.RangeFetcher, logger zerolog.Logger) *Table {
	if cfg.PageSize <= 0 {
		cfg.PageSize = artwork.DefaultPageSize
	}
	if cfg.TopNDefault <= 0 {
		cfg.TopNDefault = artwork.DefaultTopN
	}

	store := selection.NewStore()
	t := &Table{
		cfg:    cfg,
		store:  store,
		bulk:   selection.NewBulkSelector(ranges, store, cfg.PageSize, logger),
		logger: logger,
		page:   1,
		seen:   make(map[int64]artwork.Record),
	}
	t.bulk.OnApply(t.remember)
	return t
}

// Config returns the table configuration.
func (t *Table) Config() Config {
	return t.cfg
}

// Store returns the selection backing this view.
func (t *Table) Store() *selection.Store {
	return t.store
}

// RequestPage marks page p as loading and returns the ticket its response
// must carry.
func (t *Table) RequestPage(p int) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	t.page = p
	t.loading = true
	return Ticket{Seq: t.seq, Page: p}
}

// ApplyPage installs the response for ticket. Responses for anything but the
// latest ticket are discarded and ApplyPage returns false.
//
// A failed fetch empties the page and zeroes the total. The selection is
// never touched by page loads.
func (t *Table) ApplyPage(ticket Ticket, page *artwork.Page, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ticket.Seq != t.seq {
		stalePagesDiscardedTotal.Inc()
		t.logger.Debug().
			Int("page", ticket.Page).
			Uint64("seq", ticket.Seq).
			Uint64("latest", t.seq).
			Msg("Discarding stale page response")
		return false
	}

	t.loading = false
	t.loadErr = err
	if err != nil || page == nil {
		t.logger.Warn().
			Err(err).
			Int("page", ticket.Page).
			Msg("Failed to load page")
		t.records = nil
		t.total = 0
		t.totalPages = 0
		return true
	}

	t.records = page.Records
	t.total = page.Pagination.Total
	t.totalPages = page.Pagination.TotalPages
	if t.totalPages == 0 {
		t.totalPages = artwork.PagesFor(t.total, t.cfg.PageSize)
	}
	for _, rec := range page.Records {
		t.seen[rec.ID] = rec
	}
	return true
}

// remember adds records fetched outside page loads to the seen index.
func (t *Table) remember(records []artwork.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range records {
		t.seen[rec.ID] = rec
	}
}

// LoadPage requests page p from fetcher and applies the response.
func (t *Table) LoadPage(ctx context.Context, fetcher pagination.PageFetcher, p int) (bool, error) {
	ticket := t.RequestPage(p)
	page, err := fetcher.FetchPage(ctx, p, t.cfg.PageSize)
	return t.ApplyPage(ticket, page, err), err
}

// PageState is a copy of the currently displayed page.
type PageState struct {
	Page       int
	Records    []artwork.Record
	Total      int
	TotalPages int
	Loading    bool
	Err        error
}

// Current returns the displayed page.
func (t *Table) Current() PageState {
	t.mu.Lock()
	defer t.mu.Unlock()

	records := make([]artwork.Record, len(t.records))
	copy(records, t.records)
	return PageState{
		Page:       t.page,
		Records:    records,
		Total:      t.total,
		TotalPages: t.totalPages,
		Loading:    t.loading,
		Err:        t.loadErr,
	}
}

// Seen returns a record from any page or bulk selection loaded so far.
func (t *Table) Seen(id int64) (artwork.Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.seen[id]
	return rec, ok
}

func (t *Table) currentRecords() []artwork.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.records
}

// OnSelectionChange reconciles the selection the table reports for the
// current page.
func (t *Table) OnSelectionChange(reported []artwork.MinimalRecordInfo) selection.Delta {
	delta := selection.Reconcile(t.store, t.currentRecords(), reported)
	if !delta.Empty() {
		t.logger.Debug().
			Int("selected", len(delta.Selected)).
			Int("deselected", len(delta.Deselected)).
			Int("total", t.store.Len()).
			Msg("Selection changed")
	}
	return delta
}

// CheckedRows returns the current page records that are selected.
func (t *Table) CheckedRows() []artwork.Record {
	var out []artwork.Record
	for _, rec := range t.currentRecords() {
		if t.store.IsSelected(rec.ID) {
			out = append(out, rec)
		}
	}
	return out
}

// Toggle flips the checkbox of a current page row.
func (t *Table) Toggle(id int64) selection.Delta {
	var reported []artwork.MinimalRecordInfo
	found := false
	for _, rec := range t.currentRecords() {
		checked := t.store.IsSelected(rec.ID)
		if rec.ID == id {
			found = true
			checked = !checked
		}
		if checked {
			reported = append(reported, rec.Minimal())
		}
	}
	if !found {
		return selection.Delta{}
	}
	return t.OnSelectionChange(reported)
}

// ToggleAll checks every row of the current page, or clears them all when
// they are already checked.
func (t *Table) ToggleAll() selection.Delta {
	records := t.currentRecords()
	if len(t.CheckedRows()) == len(records) {
		return t.OnSelectionChange(nil)
	}
	return t.OnSelectionChange(artwork.Minimal(records))
}

// Remove deselects a single record, wherever it lives.
func (t *Table) Remove(id int64) {
	t.store.DeselectRows([]int64{id})
}

// Selected returns the selected records in display order.
func (t *Table) Selected() []artwork.MinimalRecordInfo {
	return t.store.Items()
}

// SelectedRecords returns the selected records in display order with every
// field known from the seen index. Records never loaded carry only their id
// and title.
func (t *Table) SelectedRecords() []artwork.Record {
	items := t.store.Items()

	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]artwork.Record, 0, len(items))
	for _, item := range items {
		rec, ok := t.seen[item.ID]
		if !ok {
			rec = artwork.Record{ID: item.ID, Title: item.Title}
		}
		rec.Title = item.Title
		out = append(out, rec)
	}
	return out
}
