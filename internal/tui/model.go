// Package tui renders the artwork table in the terminal with bubbletea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/Sternrassler/artwork-table/pkg/pagination"
	"github.com/Sternrassler/artwork-table/pkg/selection"
	"github.com/Sternrassler/artwork-table/pkg/view"
)

type focus int

const (
	focusTable focus = iota
	focusSelected
)

var columns = []table.Column{
	{Title: "", Width: 3},
	{Title: "Title", Width: 30},
	{Title: "Origin", Width: 14},
	{Title: "Artist", Width: 28},
	{Title: "Inscriptions", Width: 20},
	{Title: "Start", Width: 6},
	{Title: "End", Width: 6},
}

// Model is the bubbletea model for one artwork table.
type Model struct {
	ctx     context.Context
	table   *view.Table
	fetcher pagination.PageFetcher
	keys    *KeyMap
	styles  *Styles

	grid    table.Model
	input   textinput.Model
	spinner spinner.Model
	help    help.Model

	focus      focus
	chipCursor int
	status     string
	width      int
}

// New creates the model. Page fetches run with ctx.
func New(ctx context.Context, tbl *view.Table, fetcher pagination.PageFetcher) *Model {
	grid := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(tbl.Config().PageSize+1),
	)

	input := textinput.New()
	input.Placeholder = "number of rows"
	input.CharLimit = 6
	input.Width = 10

	return &Model{
		ctx:     ctx,
		table:   tbl,
		fetcher: fetcher,
		keys:    DefaultKeyMap(),
		styles:  DefaultStyles(),
		grid:    grid,
		input:   input,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
	}
}

// Init loads the first page.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadPage(1))
}

// loadPage issues a ticket on the event loop and fetches in the background.
func (m *Model) loadPage(p int) tea.Cmd {
	ticket := m.table.RequestPage(p)
	size := m.table.Config().PageSize
	return func() tea.Msg {
		page, err := m.fetcher.FetchPage(m.ctx, p, size)
		return pageLoadedMsg{ticket: ticket, page: page, err: err}
	}
}

func (m *Model) submit(n int) tea.Cmd {
	return func() tea.Msg {
		selected, err := m.table.SubmitTopN(m.ctx, n)
		return bulkDoneMsg{selected: selected, err: err}
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case pageLoadedMsg:
		if m.table.ApplyPage(msg.ticket, msg.page, msg.err) {
			m.refreshRows()
			if msg.err != nil {
				m.status = fmt.Sprintf("Could not load page %d", msg.ticket.Page)
			} else {
				m.status = ""
			}
		}
		return m, nil

	case bulkDoneMsg:
		m.refreshRows()
		// On failure the dialog stays open and renders the error itself.
		if msg.err == nil {
			m.input.Blur()
			m.status = fmt.Sprintf("Selected top %d rows", msg.selected)
		} else if errors.Is(msg.err, selection.ErrSuperseded) {
			m.status = "Bulk selection cancelled"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.table.CloseDialog()
			return m, tea.Quit
		}
		if state, _ := m.table.Dialog(); state != view.DialogClosed {
			return m.handleDialogKey(msg, state)
		}
		if m.focus == focusSelected {
			return m.handleSelectedKey(msg)
		}
		return m.handleTableKey(msg)
	}

	return m, nil
}

func (m *Model) handleTableKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cur := m.table.Current()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		if i := m.grid.Cursor(); i >= 0 && i < len(cur.Records) {
			m.table.Toggle(cur.Records[i].ID)
			m.refreshRows()
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleAll):
		m.table.ToggleAll()
		m.refreshRows()
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		// A failed load leaves no page count, so paging forward stays open.
		if cur.Page < cur.TotalPages || (cur.Err != nil && cur.TotalPages == 0) {
			return m, m.loadPage(cur.Page + 1)
		}
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		m.status = fmt.Sprintf("Reloading page %d", cur.Page)
		return m, m.loadPage(cur.Page)

	case key.Matches(msg, m.keys.PrevPage):
		if cur.Page > 1 {
			return m, m.loadPage(cur.Page - 1)
		}
		return m, nil

	case key.Matches(msg, m.keys.TopN):
		m.table.OpenDialog()
		m.input.SetValue(strconv.Itoa(m.table.Config().TopNDefault))
		m.input.CursorEnd()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Focus):
		if m.table.Store().Len() > 0 {
			m.focus = focusSelected
			m.clampChip()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(msg)
	return m, cmd
}

func (m *Model) handleSelectedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.table.Selected()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Focus), key.Matches(msg, m.keys.Cancel):
		m.focus = focusTable

	case key.Matches(msg, m.keys.PrevPage):
		if m.chipCursor > 0 {
			m.chipCursor--
		}

	case key.Matches(msg, m.keys.NextPage):
		if m.chipCursor < len(items)-1 {
			m.chipCursor++
		}

	case key.Matches(msg, m.keys.Remove):
		if m.chipCursor < len(items) {
			m.table.Remove(items[m.chipCursor].ID)
			m.refreshRows()
			m.clampChip()
			if m.table.Store().Len() == 0 {
				m.focus = focusTable
			}
		}
	}
	return m, nil
}

func (m *Model) handleDialogKey(msg tea.KeyMsg, state view.DialogState) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.table.CloseDialog()
		m.input.Blur()
		return m, nil

	case state == view.DialogSubmitting:
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		n, err := strconv.Atoi(strings.TrimSpace(m.input.Value()))
		if err != nil {
			n = 0
		}
		return m, m.submit(n)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) clampChip() {
	n := m.table.Store().Len()
	if m.chipCursor >= n {
		m.chipCursor = n - 1
	}
	if m.chipCursor < 0 {
		m.chipCursor = 0
	}
}

// refreshRows rebuilds the grid from the current page and selection.
func (m *Model) refreshRows() {
	cur := m.table.Current()
	store := m.table.Store()

	rows := make([]table.Row, 0, len(cur.Records))
	for _, rec := range cur.Records {
		check := "[ ]"
		if store.IsSelected(rec.ID) {
			check = "[x]"
		}
		rows = append(rows, table.Row{
			check,
			rec.Title,
			rec.PlaceOfOrigin,
			rec.ArtistDisplay,
			rec.Inscriptions,
			strconv.Itoa(rec.DateStart),
			dateEnd(rec),
		})
	}
	m.grid.SetRows(rows)
	if m.grid.Cursor() >= len(rows) {
		m.grid.SetCursor(max(len(rows)-1, 0))
	}
}

func dateEnd(rec artwork.Record) string {
	if rec.DateEnd == nil {
		return "-"
	}
	return strconv.Itoa(*rec.DateEnd)
}

// View renders the table.
func (m *Model) View() string {
	cur := m.table.Current()
	s := m.styles

	var b strings.Builder

	header := s.Title.Render("Artworks")
	info := s.Muted.Render(fmt.Sprintf("  page %d of %d · %d records · %d selected",
		cur.Page, cur.TotalPages, cur.Total, m.table.Store().Len()))
	b.WriteString(header + info + "\n\n")

	switch {
	case cur.Loading:
		b.WriteString(m.spinner.View() + " Loading page " + strconv.Itoa(cur.Page) + "...\n")
	case cur.Err != nil:
		b.WriteString(s.Error.Render("Failed to load page: "+cur.Err.Error()) +
			s.Muted.Render("  (r to retry)") + "\n")
	}
	b.WriteString(m.grid.View() + "\n\n")

	b.WriteString(m.renderSelected() + "\n")

	if state, err := m.table.Dialog(); state != view.DialogClosed {
		b.WriteString("\n" + m.renderDialog(state, err) + "\n")
	}

	if m.status != "" {
		b.WriteString(s.StatusOK.Render(m.status) + "\n")
	}
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderSelected() string {
	items := m.table.Selected()
	if len(items) == 0 {
		return m.styles.Muted.Render("No rows selected")
	}

	chips := make([]string, 0, len(items))
	for i, item := range items {
		label := truncate(item.Title, 20) + " ×"
		if m.focus == focusSelected && i == m.chipCursor {
			chips = append(chips, m.styles.ChipHot.Render(label))
			continue
		}
		chips = append(chips, m.styles.Chip.Render(label))
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, chips...)
	if m.width > 0 {
		line = lipgloss.NewStyle().MaxWidth(m.width).Render(line)
	}
	out := "Selected: " + line
	if m.focus == focusSelected && m.chipCursor < len(items) {
		out += "\n" + m.renderDetail(items[m.chipCursor])
	}
	return out
}

// renderDetail describes the highlighted chip using the record as loaded.
func (m *Model) renderDetail(item artwork.MinimalRecordInfo) string {
	rec, ok := m.table.Seen(item.ID)
	if !ok {
		return m.styles.Muted.Render(fmt.Sprintf("#%d %s (details not loaded)", item.ID, item.Title))
	}

	parts := []string{fmt.Sprintf("#%d %s", rec.ID, item.Title)}
	if rec.ArtistDisplay != "" {
		parts = append(parts, rec.ArtistDisplay)
	}
	if rec.PlaceOfOrigin != "" {
		parts = append(parts, rec.PlaceOfOrigin)
	}
	parts = append(parts, fmt.Sprintf("%d-%s", rec.DateStart, dateEnd(rec)))
	return m.styles.Muted.Render(strings.Join(parts, " · "))
}

func (m *Model) renderDialog(state view.DialogState, err error) string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Select top rows") + "\n\n")
	b.WriteString(m.input.View() + "\n")

	if state == view.DialogSubmitting {
		b.WriteString("\n" + m.spinner.View() + " Fetching pages...")
	} else if err != nil {
		b.WriteString("\n" + m.styles.Error.Render(err.Error()))
	}
	b.WriteString("\n\n" + m.help.ShortHelpView(m.keys.DialogHelp()))
	return m.styles.Dialog.Render(b.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
