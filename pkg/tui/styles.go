package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Minimal color palette
var (
	DimColor     = lipgloss.Color("#6c6c6c")
	TextColor    = lipgloss.Color("#e0e0e0")
	AccentColor  = lipgloss.Color("#7aa2f7")
	ErrorColor   = lipgloss.Color("#f7768e")
	SuccessColor = lipgloss.Color("#9ece6a")
	WarnColor    = lipgloss.Color("#e0af68")
	FooterBg     = lipgloss.Color("#1f2335")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	CrumbStyle = lipgloss.NewStyle().
			Foreground(DimColor)

	TextStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	LabelStyle = lipgloss.NewStyle().
			Foreground(DimColor).
			Width(12)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	WarnStyle = lipgloss.NewStyle().
			Foreground(WarnColor)

	HelpStyle = lipgloss.NewStyle().
			Foreground(DimColor)

	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimColor).
			Padding(0, 1)

	ActivePaneStyle = PaneStyle.
			BorderForeground(AccentColor)

	FooterStyle = lipgloss.NewStyle().
			Background(FooterBg).
			Foreground(TextColor)
)

// tableStyles are shared by every list on screen.
func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(DimColor).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#1a1b26")).
		Background(AccentColor).
		Bold(false)
	return s
}

// statusStyle colours an execution, step or assertion status.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "SUCCESS":
		return SuccessStyle
	case "PENDING", "WAITING", "SKIPPED", "UNKNOWN_FIELD":
		return WarnStyle
	default:
		return ErrorStyle
	}
}
