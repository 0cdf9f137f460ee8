// Package artwork defines the catalog records served by the artwork API
// and the page envelope they arrive in.
package artwork

const (
	// DefaultPageSize is the number of rows shown per table page.
	DefaultPageSize = 10

	// DefaultTopN is the count pre-filled in the bulk selection dialog.
	DefaultTopN = 15
)

// Record is a single artwork as returned by the catalog API.
// Identity is by ID only; two fetches of the same ID are the same record.
type Record struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	ArtistDisplay string `json:"artist_display"`
	PlaceOfOrigin string `json:"place_of_origin"`
	Inscriptions  string `json:"inscriptions"`
	DateStart     int    `json:"date_start"`

	// DateEnd is nil when the API omits it.
	DateEnd *int `json:"date_end"`
}

// MinimalRecordInfo is the projection kept for selected records that may
// no longer be on a loaded page.
type MinimalRecordInfo struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Minimal projects a record to its MinimalRecordInfo.
func (r Record) Minimal() MinimalRecordInfo {
	return MinimalRecordInfo{ID: r.ID, Title: r.Title}
}

// Pagination mirrors the API's pagination block.
type Pagination struct {
	Total       int `json:"total"`
	Limit       int `json:"limit"`
	Offset      int `json:"offset"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}

// Page is one fetched batch of records in API order.
type Page struct {
	Records    []Record
	Pagination Pagination
}

// IDs returns the record IDs of the page in order.
func (p *Page) IDs() []int64 {
	if p == nil {
		return nil
	}
	ids := make([]int64, len(p.Records))
	for i, r := range p.Records {
		ids[i] = r.ID
	}
	return ids
}

// Minimal projects every record in records.
func Minimal(records []Record) []MinimalRecordInfo {
	out := make([]MinimalRecordInfo, len(records))
	for i, r := range records {
		out[i] = r.Minimal()
	}
	return out
}

// PagesFor returns how many pages of size pageSize hold n records.
// It returns 0 when either argument is not positive.
func PagesFor(n, pageSize int) int {
	if n <= 0 || pageSize <= 0 {
		return 0
	}
	return (n + pageSize - 1) / pageSize
}
