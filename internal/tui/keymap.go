package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keybindings for the table.
type KeyMap struct {
	// Quit exits the application.
	Quit key.Binding

	// Up and Down move the row cursor.
	Up   key.Binding
	Down key.Binding

	// Toggle flips the checkbox of the row under the cursor.
	Toggle key.Binding

	// ToggleAll checks or clears the whole page.
	ToggleAll key.Binding

	// NextPage and PrevPage navigate pages.
	NextPage key.Binding
	PrevPage key.Binding

	// Reload fetches the current page again.
	Reload key.Binding

	// TopN opens the bulk selection dialog.
	TopN key.Binding

	// Focus switches between the table and the selected list.
	Focus key.Binding

	// Remove drops the highlighted record from the selected list.
	Remove key.Binding

	// Submit confirms the dialog.
	Submit key.Binding

	// Cancel closes the dialog.
	Cancel key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "select"),
		),
		ToggleAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "select page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("right", "l", "n"),
			key.WithHelp("→/n", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("left", "h", "p"),
			key.WithHelp("←/p", "prev page"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		TopN: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "select top N"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "selected list"),
		),
		Remove: key.NewBinding(
			key.WithKeys("backspace", "delete", "d"),
			key.WithHelp("d", "remove"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.NextPage, k.PrevPage, k.Reload, k.TopN, k.Focus, k.Quit}
}

// FullHelp returns the full list of keybindings for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.ToggleAll},
		{k.NextPage, k.PrevPage, k.Reload, k.TopN},
		{k.Focus, k.Remove, k.Quit},
	}
}

// DialogHelp returns the bindings shown while the dialog is open.
func (k *KeyMap) DialogHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel}
}
