package ring

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Emergency key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
	Add10     key.Binding
	Add50     key.Binding
	Complete  key.Binding
	Dismiss   key.Binding
	Quit      key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Emergency: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "emergency stop"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "cancel"),
		),
		Add10: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "+10 steps"),
		),
		Add50: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "+50 steps"),
		),
		Complete: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "complete"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("enter", "q"),
			key.WithHelp("enter", "close"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Emergency, k.Confirm, k.Cancel, k.Add10, k.Add50, k.Complete, k.Dismiss}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Quit}}
}
