// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	// Quit exits the application.
	Quit key.Binding

	// Ask submits the question for a full answer.
	Ask key.Binding

	// Retrieve submits the question for passages only.
	Retrieve key.Binding

	// NewQuestion returns focus to the input.
	NewQuestion key.Binding

	// ToggleContext switches between the answer and its context.
	ToggleContext key.Binding

	// Up scrolls up or moves the passage selection.
	Up key.Binding

	// Down scrolls down or moves the passage selection.
	Down key.Binding

	// Back leaves the results and clears the question.
	Back key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Ask: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "ask"),
		),
		Retrieve: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "passages only"),
		),
		NewQuestion: key.NewBinding(
			key.WithKeys("n", "/"),
			key.WithHelp("n", "new question"),
		),
		ToggleContext: key.NewBinding(
			key.WithKeys("tab", "c"),
			key.WithHelp("tab", "answer/context"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear"),
		),
	}
}

// InputHelp returns keybindings shown while typing a question.
func (k *KeyMap) InputHelp() []key.Binding {
	return []key.Binding{k.Ask, k.Retrieve, k.Back}
}

// AnswerHelp returns keybindings shown while reading an answer.
func (k *KeyMap) AnswerHelp() []key.Binding {
	return []key.Binding{k.ToggleContext, k.Up, k.NewQuestion, k.Quit}
}

// PassagesHelp returns keybindings shown while browsing passages.
func (k *KeyMap) PassagesHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.NewQuestion, k.Quit}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
