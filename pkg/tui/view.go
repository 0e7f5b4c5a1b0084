package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI to a string.
// This is called by Bubble Tea on every update.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	top := m.stack[len(m.stack)-1].screen
	body := lipgloss.NewStyle().
		Height(bodyHeight).
		MaxHeight(bodyHeight).
		Render(top.View(m.width, bodyHeight))

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// renderHeader renders the navigation trail.
func (m Model) renderHeader() string {
	crumbs := make([]string, 0, len(m.stack))
	for i, e := range m.stack {
		if i == len(m.stack)-1 {
			crumbs = append(crumbs, TitleStyle.Render(e.screen.Title()))
			continue
		}
		crumbs = append(crumbs, CrumbStyle.Render(e.screen.Title()))
	}
	return strings.Join(crumbs, CrumbStyle.Render(" › ")) + "\n"
}

// renderFooter renders the status on the left and shortcuts on the right.
func (m Model) renderFooter() string {
	var left string
	switch {
	case m.busy:
		left = m.renderPulse() + " " + m.spinner.View() + " " + m.busyLabel
	case m.statusErr:
		left = ErrorStyle.Render(m.status)
	default:
		left = TextStyle.Render(m.status)
	}

	parts := []string{}
	if help := m.stack[len(m.stack)-1].screen.Help(); help != "" {
		parts = append(parts, help)
	}
	parts = append(parts, "esc back", "ctrl+y copy", "ctrl+c quit")
	right := HelpStyle.Render(strings.Join(parts, " • "))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return FooterStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// renderPulse renders the busy marker, brightening and dimming with the
// spring position.
func (m Model) renderPulse() string {
	color := DimColor
	if m.animPos > 0.5 {
		color = AccentColor
	}
	return lipgloss.NewStyle().Foreground(color).Render("●")
}
