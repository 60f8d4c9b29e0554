package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard key bindings.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Back   key.Binding
	Search key.Binding
	Filter key.Binding
	Reload key.Binding

	// Detail view.
	SetOpen       key.Binding
	SetInProgress key.Binding
	SetClosed     key.Binding
	AddNote       key.Binding

	Quit key.Binding
}

// DefaultKeyMap uses vim-style navigation alongside the arrow keys.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Filter: key.NewBinding(
		key.WithKeys("tab", "f"),
		key.WithHelp("tab", "status filter"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	SetOpen: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "open"),
	),
	SetInProgress: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "in progress"),
	),
	SetClosed: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "close"),
	),
	AddNote: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "note"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
