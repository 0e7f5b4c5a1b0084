package tui

import (
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// handleKeyMsg processes the keys the console handles itself and passes the
// rest to the top screen. While a write is in flight only navigation works.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		if len(m.stack) == 1 {
			return m, tea.Quit
		}
		_, isForm := m.stack[len(m.stack)-1].screen.(formScreen)
		return m.popScreen(!isForm)

	case "ctrl+y":
		return m.handleCopy()

	case "ctrl+l":
		m.status = ""
		m.statusErr = false
		return m, nil
	}

	if m.busy {
		return m, nil
	}
	return m.updateAt(len(m.stack)-1, msg)
}

// handleCopy copies what the top screen offers to the clipboard.
func (m Model) handleCopy() (tea.Model, tea.Cmd) {
	c, ok := m.stack[len(m.stack)-1].screen.(copier)
	if !ok {
		return m, nil
	}
	text := c.Copy()
	if text == "" {
		return m, nil
	}
	if err := clipboard.WriteAll(text); err != nil {
		m.status = "copy failed: " + err.Error()
		m.statusErr = true
		return m, nil
	}
	m.status = "copied to clipboard"
	m.statusErr = false
	return m, nil
}
