package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Chip     lipgloss.Style
	ChipHot  lipgloss.Style
	Dialog   lipgloss.Style
	Checked  lipgloss.Style
	StatusOK lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() *Styles {
	primary := lipgloss.Color("#7C3AED")
	muted := lipgloss.Color("#6C7086")
	border := lipgloss.Color("#45475A")

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1")),
		Chip: lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(border),
		ChipHot: lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(primary),
		Dialog: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(1, 2),
		Checked: lipgloss.NewStyle().
			Foreground(primary),
		StatusOK: lipgloss.NewStyle().
			Foreground(muted).
			Italic(true),
	}
}
