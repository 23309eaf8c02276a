package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Read       key.Binding
	Play       key.Binding
	Pause      key.Binding
	Stop       key.Binding
	Cancel     key.Binding
	NextEngine key.Binding
	PrevEngine key.Binding
	Faster     key.Binding
	Slower     key.Binding
	Debug      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Read: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "read selection"),
		),
		Play: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "play/resume"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p", "pause"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel synthesis"),
		),
		NextEngine: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "next engine"),
		),
		PrevEngine: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "previous engine"),
		),
		Faster: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "faster"),
		),
		Slower: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "slower"),
		),
		Debug: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "debug mode"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Read, k.Play, k.Pause, k.Stop, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Read, k.Play, k.Pause, k.Stop},
		{k.Cancel, k.NextEngine, k.PrevEngine},
		{k.Faster, k.Slower, k.Debug},
		{k.Help, k.Quit},
	}
}
