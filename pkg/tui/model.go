package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"

	"github.com/blackcoderx/stepwise/pkg/client"
)

// screen is one view of the console. Screens are values: Update returns the
// next state instead of mutating the receiver, and everything a screen shows
// comes from its own fields.
type screen interface {
	Title() string
	Init(s *session) tea.Cmd
	Update(s *session, msg tea.Msg) (screen, tea.Cmd)
	View(width, height int) string
	Help() string
}

// copier is implemented by screens with something worth copying.
type copier interface {
	Copy() string
}

// session is what screens need from the outside world. gen is the generation
// of the screen currently being updated; commands built through fetch carry
// it so their results reach that screen and no other.
type session struct {
	client   *client.Client
	pageSize int
	target   string
	reports  string
	logger   *slog.Logger
	timeout  time.Duration
	width    int
	gen      int
}

// fetch runs fn off the event loop and scopes its result to the calling
// screen.
func (s *session) fetch(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	gen, timeout := s.gen, s.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return scopedMsg{gen: gen, msg: fn(ctx)}
	}
}

// action is a write started from a screen. A non-nil next screen is opened
// once the write has succeeded.
type action func(ctx context.Context) (next screen, err error)

// entry is a screen on the navigation stack.
type entry struct {
	gen    int
	screen screen
}

// Model is the Bubble Tea model of the console. It owns the navigation stack,
// routes results to the screen that asked for them and keeps at most one write
// in flight.
type Model struct {
	session *session
	stack   []entry
	nextGen int

	busy      bool
	busyLabel string
	status    string
	statusErr bool

	spinner spinner.Model
	width   int
	height  int
	ready   bool

	// Animation state (harmonica spring for the pulsing busy marker)
	animSpring harmonica.Spring
	animPos    float64
	animVel    float64
	animTarget float64
}

// scopedMsg is the result of a fetch for the screen with generation gen.
type scopedMsg struct {
	gen int
	msg tea.Msg
}

// pushMsg opens a screen on top of the current one.
type pushMsg struct {
	screen screen
}

// popMsg returns to the previous screen, which re-fetches when reload is set.
type popMsg struct {
	reload bool
}

// submitMsg starts a write. Forms send it once they complete.
type submitMsg struct {
	label string
	run   action
}

// savedMsg is the outcome of a write, delivered to the screen that started it.
type savedMsg struct {
	label string
	err   error
	next  screen
}

// statusMsg replaces the footer status line.
type statusMsg struct {
	text string
	err  bool
}

// animTickMsg drives the harmonica spring animation
type animTickMsg time.Time

func push(s screen) tea.Cmd {
	return func() tea.Msg { return pushMsg{screen: s} }
}

func pop(reload bool) tea.Cmd {
	return func() tea.Msg { return popMsg{reload: reload} }
}

func submit(label string, run action) tea.Cmd {
	return func() tea.Msg { return submitMsg{label: label, run: run} }
}

func notify(text string, isErr bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, err: isErr} }
}

// errorText renders an error for the footer. Validation failures show the
// backend's message for the status rather than the raw code.
func errorText(err error) string {
	var ve *client.ValidationError
	if errors.As(err, &ve) {
		if ve.Field != "" {
			return ve.Field + ": " + ve.Message()
		}
		return ve.Message()
	}
	var re *client.ReferentialError
	if errors.As(err, &re) {
		return re.Violation.Field + ": " + re.Violation.Code.Message()
	}
	if errors.Is(err, client.ErrSubmissionInFlight) {
		return "still saving, try again in a moment"
	}
	var ne *client.NetworkError
	if errors.As(err, &ne) {
		return "backend unreachable: " + ne.Error()
	}
	return err.Error()
}
