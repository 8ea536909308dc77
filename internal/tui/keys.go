package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/codetype/internal/typing"
)

type keyMap struct {
	Start    key.Binding
	Pause    key.Binding
	Reset    key.Binding
	Practice key.Binding
	Retry    key.Binding
	Next     key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Start:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "start")),
		Pause:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "pause")),
		Reset:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reset")),
		Practice: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "practice mode")),
		Retry:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry"), key.WithDisabled()),
		Next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next lesson"), key.WithDisabled()),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q"), key.WithHelp("ctrl+q", "quit")),
	}
}

// setCompleted swaps the typing bindings for the completion panel ones.
func (k *keyMap) setCompleted(done bool) {
	k.Start.SetEnabled(!done)
	k.Pause.SetEnabled(!done)
	k.Practice.SetEnabled(!done)
	k.Retry.SetEnabled(done)
	k.Next.SetEnabled(done)
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.Reset, k.Practice, k.Retry, k.Next, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// keyNames translates a terminal key event into the key names understood by
// typing.Classify. Pasted text yields nothing.
func keyNames(msg tea.KeyMsg) []string {
	if msg.Paste {
		return nil
	}
	switch msg.Type {
	case tea.KeyEnter:
		return []string{typing.KeyEnter}
	case tea.KeyTab:
		return []string{typing.KeyTab}
	case tea.KeyEsc:
		return []string{typing.KeyEscape}
	case tea.KeyBackspace, tea.KeyDelete:
		return []string{typing.KeyBackspace}
	case tea.KeySpace:
		return []string{" "}
	case tea.KeyRunes:
		if msg.Alt {
			return []string{msg.String()}
		}
		names := make([]string, len(msg.Runes))
		for i, r := range msg.Runes {
			names[i] = string(r)
		}
		return names
	default:
		return []string{msg.String()}
	}
}
