package tui

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/blackcoderx/stepwise/pkg/client"
)

const (
	defaultPageSize = 20
	animFPS         = 30
)

// newSpinner creates a spinner with the console style (dots animation).
func newSpinner() spinner.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{
			".   ",
			"..  ",
			"... ",
			"....",
		},
		FPS: time.Second / 5,
	}
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)
	return sp
}

// InitialModel creates the console model with the scenario list on top.
func InitialModel(opts Options) Model {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = client.DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Client == nil {
		opts.Client = client.New("http://localhost:8080", client.WithLogger(opts.Logger))
	}

	sess := &session{
		client:   opts.Client,
		pageSize: opts.PageSize,
		target:   opts.Target,
		reports:  opts.ReportsDir,
		logger:   opts.Logger,
		timeout:  opts.Timeout,
		width:    80,
	}

	return Model{
		session:    sess,
		stack:      []entry{{gen: 1, screen: newScenarioList()}},
		nextGen:    2,
		spinner:    newSpinner(),
		animSpring: harmonica.NewSpring(harmonica.FPS(animFPS), 6.0, 0.3),
		animTarget: 1,
	}
}

// Init loads the first screen.
func (m Model) Init() tea.Cmd {
	top := m.stack[len(m.stack)-1]
	m.session.gen = top.gen
	return tea.Batch(
		top.screen.Init(m.session),
		m.spinner.Tick,
	)
}

func animTick() tea.Cmd {
	return tea.Tick(time.Second/animFPS, func(t time.Time) tea.Msg {
		return animTickMsg(t)
	})
}
