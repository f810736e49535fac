package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	quit       key.Binding
	translate  key.Binding
	lanes      key.Binding
	mode       key.Binding
	focus      key.Binding
	scrollUp   key.Binding
	scrollDown key.Binding
	pageUp     key.Binding
	pageDown   key.Binding
	open       key.Binding
	reset      key.Binding
	history    key.Binding
	settings   key.Binding
	export     key.Binding
	copy       key.Binding
	direction  key.Binding
	toggleHelp key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		translate: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "translate"),
		),
		lanes: key.NewBinding(
			key.WithKeys("1", "2", "3", "4"),
			key.WithHelp("1-4", "expand lane"),
		),
		mode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "split/quad"),
		),
		focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next pane"),
		),
		scrollUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		scrollDown: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		pageUp: key.NewBinding(
			key.WithKeys("pgup", "b"),
			key.WithHelp("pgup", "page up"),
		),
		pageDown: key.NewBinding(
			key.WithKeys("pgdown", " "),
			key.WithHelp("pgdn", "page down"),
		),
		open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open file"),
		),
		reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		history: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "history"),
		),
		settings: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "settings"),
		),
		export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export"),
		),
		copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy translation"),
		),
		direction: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "flip direction"),
		),
		toggleHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.translate, k.lanes, k.mode, k.open, k.history, k.toggleHelp, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.translate, k.direction, k.open, k.reset},
		{k.lanes, k.mode, k.focus},
		{k.scrollUp, k.scrollDown, k.pageUp, k.pageDown},
		{k.history, k.settings, k.export, k.copy},
		{k.toggleHelp, k.quit},
	}
}
