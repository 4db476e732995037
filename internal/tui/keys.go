package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Cancel   key.Binding
	Clear    key.Binding
	Target   key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding
	Filter   key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Escape   key.Binding
	Quit     key.Binding
	CtrlC    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("x"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
	),
	Target: key.NewBinding(
		key.WithKeys("m"),
	),
	NextTab: key.NewBinding(
		key.WithKeys("tab", "right", "l"),
	),
	PrevTab: key.NewBinding(
		key.WithKeys("shift+tab", "left", "h"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+u"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+d"),
	),
	Escape: key.NewBinding(
		key.WithKeys("esc"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
	),
}

// tabIndex returns the zero-based tab selected by a number key.
func tabIndex(s string) (int, bool) {
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return 0, false
	}
	return int(s[0] - '1'), true
}
