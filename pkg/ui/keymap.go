package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	UnfocusMessage  key.Binding
	FocusMessage    key.Binding
	SubmitMessage   key.Binding
	ScrollUp        key.Binding
	ScrollDown      key.Binding
	DismissError    key.Binding
	SaveToFile      key.Binding
	NewConversation key.Binding
	ToggleFullHelp  key.Binding
	Quit            key.Binding
}

var DefaultKeyMap = KeyMap{
	UnfocusMessage: key.NewBinding(
		key.WithKeys("esc", "ctrl+g"),
		key.WithHelp("esc", "scroll"),
	),
	FocusMessage: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "edit"),
	),
	SubmitMessage: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "submit"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("shift+pgup"),
		key.WithHelp("shift+pgup", "scroll up"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("shift+pgdown"),
		key.WithHelp("shift+pgdown", "scroll down"),
	),
	DismissError: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "dismiss"),
	),
	SaveToFile: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "export"),
	),
	NewConversation: key.NewBinding(
		key.WithKeys("ctrl+n"),
		key.WithHelp("ctrl+n", "new conversation"),
	),
	ToggleFullHelp: key.NewBinding(
		key.WithKeys("ctrl+h"),
		key.WithHelp("ctrl+h", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.SubmitMessage, k.UnfocusMessage, k.FocusMessage, k.DismissError, k.ToggleFullHelp, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.SubmitMessage, k.UnfocusMessage, k.FocusMessage},
		{k.ScrollUp, k.ScrollDown, k.DismissError},
		{k.SaveToFile, k.NewConversation},
		{k.ToggleFullHelp, k.Quit},
	}
}
