package tui

import (
	"context"
	"math"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles all messages and updates the model state.
// This is the main event loop handler for the Bubble Tea application.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.session.width = msg.Width
		m.ready = true
		return m.updateAt(len(m.stack)-1, msg)

	case pushMsg:
		return m.pushScreen(msg.screen)

	case popMsg:
		return m.popScreen(msg.reload)

	case submitMsg:
		return m.startSubmit(msg)

	case scopedMsg:
		return m.route(msg)

	case statusMsg:
		m.status = msg.text
		m.statusErr = msg.err
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case animTickMsg:
		if !m.busy {
			return m, nil
		}
		m.animPos, m.animVel = m.animSpring.Update(m.animPos, m.animVel, m.animTarget)
		if math.Abs(m.animPos-m.animTarget) < 0.05 {
			m.animTarget = 1 - m.animTarget
		}
		return m, animTick()
	}

	return m.updateAt(len(m.stack)-1, msg)
}

// updateAt hands msg to the screen at stack index i.
func (m Model) updateAt(i int, msg tea.Msg) (Model, tea.Cmd) {
	stack := append([]entry(nil), m.stack...)
	m.session.gen = stack[i].gen
	next, cmd := stack[i].screen.Update(m.session, msg)
	stack[i].screen = next
	m.stack = stack
	return m, cmd
}

// route delivers a fetch result to the screen that started it. Results for
// screens that have since been closed are dropped.
func (m Model) route(msg scopedMsg) (tea.Model, tea.Cmd) {
	saved, isSave := msg.msg.(savedMsg)
	if isSave {
		m.busy = false
		m.busyLabel = ""
		m.reportSaved(saved)
	}

	for i := range m.stack {
		if m.stack[i].gen != msg.gen {
			continue
		}
		m, cmd := m.updateAt(i, msg.msg)
		if isSave && saved.err == nil && saved.next != nil {
			return m, tea.Batch(cmd, push(saved.next))
		}
		return m, cmd
	}

	m.session.logger.Debug("dropped result for closed screen", "gen", msg.gen)
	return m, nil
}

func (m *Model) reportSaved(saved savedMsg) {
	if saved.err != nil {
		m.session.logger.Warn("write failed", "action", saved.label, "error", saved.err)
		m.status = saved.label + ": " + errorText(saved.err)
		m.statusErr = true
		return
	}
	m.session.logger.Info("write succeeded", "action", saved.label)
	m.status = saved.label + ": done"
	m.statusErr = false
}

func (m Model) pushScreen(s screen) (tea.Model, tea.Cmd) {
	e := entry{gen: m.nextGen, screen: s}
	m.nextGen++
	m.stack = append(append([]entry(nil), m.stack...), e)
	m.session.gen = e.gen
	if m.width > 0 {
		next, _ := e.screen.Update(m.session, tea.WindowSizeMsg{Width: m.width, Height: m.height})
		m.stack[len(m.stack)-1].screen = next
		e.screen = next
	}
	return m, e.screen.Init(m.session)
}

// popScreen closes the top screen. The screen underneath re-fetches when
// reload is set, so it never shows state from before the visit.
func (m Model) popScreen(reload bool) (tea.Model, tea.Cmd) {
	if len(m.stack) == 1 {
		return m, nil
	}
	m.stack = append([]entry(nil), m.stack[:len(m.stack)-1]...)
	if !reload {
		return m, nil
	}
	top := m.stack[len(m.stack)-1]
	m.session.gen = top.gen
	return m, top.screen.Init(m.session)
}

// startSubmit runs a write for the top screen. A form that submits is closed
// first, so the result lands on the screen that opened it.
func (m Model) startSubmit(msg submitMsg) (tea.Model, tea.Cmd) {
	if _, isForm := m.stack[len(m.stack)-1].screen.(formScreen); isForm && len(m.stack) > 1 {
		m.stack = append([]entry(nil), m.stack[:len(m.stack)-1]...)
	}
	if m.busy {
		m.status = "still saving " + m.busyLabel
		m.statusErr = true
		return m, nil
	}

	m.busy = true
	m.busyLabel = msg.label
	m.status = ""
	m.statusErr = false

	top := m.stack[len(m.stack)-1]
	m.session.gen = top.gen
	label, run := msg.label, msg.run
	cmd := m.session.fetch(func(ctx context.Context) tea.Msg {
		next, err := run(ctx)
		return savedMsg{label: label, err: err, next: next}
	})
	return m, tea.Batch(cmd, m.spinner.Tick, animTick())
}
