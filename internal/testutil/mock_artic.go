// Package testutil provides testing utilities for the artwork table.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/artwork-table/pkg/artwork"
)

// MockPageResponse overrides the response for one page number.
type MockPageResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockArtic is a configurable mock of the artwork API serving a synthetic
// catalog of records with IDs 1..Total in ascending order.
type MockArtic struct {
	server *httptest.Server

	mu        sync.RWMutex
	total     int
	overrides map[int]MockPageResponse

	// Tracking
	requestedPages    []int
	LastRequestHeader http.Header
}

// NewMockArtic creates a mock serving total records.
func NewMockArtic(total int) *MockArtic {
	mock := &MockArtic{
		total:     total,
		overrides: make(map[int]MockPageResponse),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/artworks", mock.handleArtworks)
	mock.server = httptest.NewServer(mux)

	return mock
}

// URL returns the mock server URL, usable as a client base URL.
func (m *MockArtic) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockArtic) Close() {
	m.server.Close()
}

// Reset clears tracking and overrides.
func (m *MockArtic) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestedPages = nil
	m.overrides = make(map[int]MockPageResponse)
	m.LastRequestHeader = nil
}

// SetPageResponse overrides the response for one page number.
func (m *MockArtic) SetPageResponse(page int, resp MockPageResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[page] = resp
}

// FailPage makes the given page answer with a 500.
func (m *MockArtic) FailPage(page int) {
	m.SetPageResponse(page, NewServerErrorResponse())
}

// DelayPage delays the given page by d before a normal response.
func (m *MockArtic) DelayPage(page int, d time.Duration) {
	m.SetPageResponse(page, MockPageResponse{Delay: d})
}

// RequestedPages returns the page numbers requested, in arrival order.
func (m *MockArtic) RequestedPages() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, len(m.requestedPages))
	copy(out, m.requestedPages)
	return out
}

// GetRequestCount returns the number of page requests served.
func (m *MockArtic) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requestedPages)
}

func (m *MockArtic) handleArtworks(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 12
	}

	m.mu.Lock()
	m.requestedPages = append(m.requestedPages, page)
	m.LastRequestHeader = r.Header.Clone()
	override, hasOverride := m.overrides[page]
	total := m.total
	m.mu.Unlock()

	if hasOverride {
		if override.Delay > 0 {
			select {
			case <-time.After(override.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if override.StatusCode != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(override.StatusCode)
			if override.Body != "" {
				w.Write([]byte(override.Body))
			}
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BuildPageBody(total, page, limit))
}

// PageBody is the wire envelope served by the mock.
type PageBody struct {
	Data       []artwork.Record   `json:"data"`
	Pagination artwork.Pagination `json:"pagination"`
}

// BuildPageBody builds the envelope for one page of a catalog of total
// records.
func BuildPageBody(total, page, limit int) PageBody {
	offset := (page - 1) * limit
	records := make([]artwork.Record, 0, limit)
	for id := offset + 1; id <= offset+limit && id <= total; id++ {
		records = append(records, SampleRecord(int64(id)))
	}

	return PageBody{
		Data: records,
		Pagination: artwork.Pagination{
			Total:       total,
			Limit:       limit,
			Offset:      offset,
			TotalPages:  artwork.PagesFor(total, limit),
			CurrentPage: page,
		},
	}
}

// SampleRecord returns the deterministic record the mock serves for id.
func SampleRecord(id int64) artwork.Record {
	start := 1800 + int(id%200)
	r := artwork.Record{
		ID:            id,
		Title:         fmt.Sprintf("Artwork %d", id),
		ArtistDisplay: fmt.Sprintf("Artist %d", id%17),
		PlaceOfOrigin: "Chicago",
		DateStart:     start,
	}
	if id%3 != 0 {
		end := start + int(id%5)
		r.DateEnd = &end
	}
	return r
}

// SamplePage returns page records for ids, for tests that build pages by hand.
func SamplePage(ids ...int64) []artwork.Record {
	out := make([]artwork.Record, len(ids))
	for i, id := range ids {
		out[i] = SampleRecord(id)
	}
	return out
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status":500,"error":"Internal server error"}`,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status":429,"error":"Too many requests"}`,
	}
}

// NewNotFoundResponse creates a 404 response.
func NewNotFoundResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"status":404,"error":"Not found"}`,
	}
}

// NewMalformedResponse creates a 200 response whose body has no pagination block.
func NewMalformedResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusOK,
		Body:       `{"data":[{"id":1,"title":"Orphan"}]}`,
	}
}
