// Package tui provides the terminal console for managing test scenarios.
// It uses Bubble Tea for the TUI framework and huh for forms.
//
// File organization:
// - app.go: Entry point (Run function)
// - model.go: Model, screen contract and message types
// - init.go: Model initialization
// - update.go: Event routing and the navigation stack
// - keys.go: Global keyboard handling
// - view.go: Header, footer and layout
// - forms.go: huh forms that report back as messages
// - scenarios.go, steps.go, structures.go, executions.go: screens
// - highlight.go: JSON syntax highlighting
package tui

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/blackcoderx/stepwise/pkg/client"
)

// Options configures the console.
type Options struct {
	Client     *client.Client
	PageSize   int
	Target     string        // default base URL offered when executing a scenario
	ReportsDir string        // where spreadsheet reports are written
	Logger     *slog.Logger  // must not write to the terminal the console owns
	Timeout    time.Duration // per backend round trip
}

// Run starts the console and blocks until the user quits.
func Run(opts Options) error {
	m := InitialModel(opts)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := prog.Run()
	return err
}
