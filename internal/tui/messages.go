package tui

import (
	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/Sternrassler/artwork-table/pkg/view"
)

// pageLoadedMsg carries a page response back to the event loop.
type pageLoadedMsg struct {
	ticket view.Ticket
	page   *artwork.Page
	err    error
}

// bulkDoneMsg reports the end of a bulk selection.
type bulkDoneMsg struct {
	selected int
	err      error
}
