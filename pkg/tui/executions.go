package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/blackcoderx/stepwise/pkg/model"
	"github.com/blackcoderx/stepwise/pkg/report"
)

// pollInterval is how often a pending execution is re-read.
const pollInterval = time.Second

// executionList lists recorded executions, newest first.
type executionList struct {
	pager  pager
	rows   []model.ExecutionInfo
	loaded bool
	table  table.Model
	err    error
}

type executionsMsg struct {
	page *model.Page[model.ExecutionInfo]
	err  error
}

func newExecutionList() executionList {
	return executionList{table: newTable([]table.Column{
		{Title: "Scenario", Width: 28},
		{Title: "Status", Width: 8},
		{Title: "Base URL", Width: 28},
		{Title: "Started", Width: 17},
	})}
}

func (l executionList) Title() string { return "Executions" }

func (l executionList) Help() string { return "enter open • ←→ page" }

func (l executionList) Init(s *session) tea.Cmd {
	req := model.PageRequest{Page: l.pager.page, Size: s.pageSize}
	return s.fetch(func(ctx context.Context) tea.Msg {
		page, err := s.client.ListExecutions(ctx, req)
		return executionsMsg{page: page, err: err}
	})
}

func (l executionList) Update(s *session, msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case executionsMsg:
		if msg.err != nil {
			l.err = msg.err
			return l, nil
		}
		l.err = nil
		l.loaded = true
		l.rows = msg.page.Rows
		l.pager.total = msg.page.Total
		l.pager.size = s.pageSize
		rows := make([]table.Row, 0, len(l.rows))
		for _, e := range l.rows {
			rows = append(rows, table.Row{e.ScenarioName, string(e.Status), e.BaseURL, e.StartDate.Local().Format(dateLayout)})
		}
		l.table.SetRows(rows)
		if l.table.Cursor() >= len(rows) {
			l.table.SetCursor(0)
		}
		return l, nil

	case tea.KeyMsg:
		key := msg.String()
		if l.pager.turn(key) {
			return l, l.Init(s)
		}
		if key == "enter" {
			if i := selected(l.table, len(l.rows)); i >= 0 {
				return l, push(newExecutionDetail(l.rows[i].ID))
			}
			return l, nil
		}
	}

	var cmd tea.Cmd
	l.table, cmd = l.table.Update(msg)
	return l, cmd
}

func (l executionList) View(width, height int) string {
	if l.err != nil {
		return ErrorStyle.Render("Could not load executions: " + errorText(l.err))
	}
	if !l.loaded {
		return HelpStyle.Render("Loading executions...")
	}
	if len(l.rows) == 0 {
		return HelpStyle.Render("No executions yet. Execute a scenario with x on its screen.")
	}
	return sized(l.table, height-2).View() + "\n" + HelpStyle.Render(l.pager.String())
}

// executionDetail shows the step outcomes of one execution. A pending
// execution is re-read until it finishes.
type executionDetail struct {
	id    string
	exec  *model.Execution
	table table.Model
	err   error
}

type executionMsg struct {
	exec *model.Execution
	err  error
}

func newExecutionDetail(id string) executionDetail {
	return executionDetail{
		id: id,
		table: newTable([]table.Column{
			{Title: "#", Width: 3},
			{Title: "Step", Width: 26},
			{Title: "Method", Width: 7},
			{Title: "Endpoint", Width: 30},
			{Title: "Status", Width: 8},
		}),
	}
}

func (d executionDetail) Title() string {
	if d.exec != nil {
		return "Run of " + d.exec.ScenarioName
	}
	return "Execution"
}

func (d executionDetail) Help() string { return "enter step • x export xlsx" }

func (d executionDetail) Init(s *session) tea.Cmd {
	return d.load(s, 0)
}

func (d executionDetail) load(s *session, delay time.Duration) tea.Cmd {
	id := d.id
	return s.fetch(func(ctx context.Context) tea.Msg {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return executionMsg{err: ctx.Err()}
			}
		}
		e, err := s.client.GetExecution(ctx, id)
		return executionMsg{exec: e, err: err}
	})
}

func (d executionDetail) Update(s *session, msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case executionMsg:
		if msg.err != nil {
			d.err = msg.err
			return d, nil
		}
		d.err = nil
		d.exec = msg.exec
		rows := make([]table.Row, 0, len(msg.exec.Steps))
		for _, st := range msg.exec.Steps {
			rows = append(rows, table.Row{strconv.Itoa(st.Sequence), st.Title, string(st.Method), st.Endpoint, string(st.Status)})
		}
		d.table.SetRows(rows)
		if d.table.Cursor() >= len(rows) {
			d.table.SetCursor(0)
		}
		if msg.exec.Status == model.ExecutionPending {
			return d, d.load(s, pollInterval)
		}
		return d, nil

	case tea.KeyMsg:
		if d.exec == nil {
			return d, nil
		}
		switch msg.String() {
		case "enter":
			if i := selected(d.table, len(d.exec.Steps)); i >= 0 {
				st := d.exec.Steps[i]
				return d, push(newExecutionStepView(st.ID, st.Title))
			}
			return d, nil
		case "x":
			if d.exec.Status == model.ExecutionPending {
				return d, notify("the execution is still running", true)
			}
			exec := *d.exec
			path := filepath.Join(s.reports, reportName(exec))
			return d, submit("Export report", func(ctx context.Context) (screen, error) {
				steps, err := fetchSteps(ctx, s, exec)
				if err != nil {
					return nil, err
				}
				if err := report.WriteXLSX(path, exec, steps); err != nil {
					return nil, err
				}
				s.logger.Info("report written", "path", path)
				return nil, nil
			})
		}
	}

	var cmd tea.Cmd
	d.table, cmd = d.table.Update(msg)
	return d, cmd
}

func (d executionDetail) View(width, height int) string {
	if d.err != nil {
		return ErrorStyle.Render("Could not load execution: " + errorText(d.err))
	}
	if d.exec == nil {
		return HelpStyle.Render("Loading execution...")
	}
	e := d.exec
	finished := "running"
	if e.FinishDate != nil {
		finished = e.FinishDate.Local().Format(dateLayout)
	}
	head := strings.Join([]string{
		LabelStyle.Render("Status") + statusStyle(string(e.Status)).Render(string(e.Status)),
		LabelStyle.Render("Base URL") + TextStyle.Render(e.BaseURL),
		LabelStyle.Render("Started") + TextStyle.Render(e.StartDate.Local().Format(dateLayout)),
		LabelStyle.Render("Finished") + TextStyle.Render(finished),
	}, "\n")
	return head + "\n\n" + sized(d.table, height-6).View()
}

func (d executionDetail) Copy() string {
	if d.exec == nil {
		return ""
	}
	return report.Markdown(*d.exec, nil)
}

func fetchSteps(ctx context.Context, s *session, exec model.Execution) ([]model.ExecutionStep, error) {
	steps := make([]model.ExecutionStep, 0, len(exec.Steps))
	for _, info := range exec.Steps {
		st, err := s.client.GetExecutionStep(ctx, info.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load step %q: %w", info.Title, err)
		}
		steps = append(steps, *st)
	}
	return steps, nil
}

func reportName(exec model.Execution) string {
	name := strings.ToLower(strings.Join(strings.Fields(exec.ScenarioName), "-"))
	return fmt.Sprintf("%s-%s.xlsx", name, exec.StartDate.UTC().Format("20060102-150405"))
}

// executionStepView shows the request sent and the verdict of every response
// field for one executed step.
type executionStepView struct {
	id       string
	title    string
	step     *model.ExecutionStep
	raw      bool
	viewport viewport.Model
	width    int
	err      error
}

type executionStepMsg struct {
	step *model.ExecutionStep
	err  error
}

func newExecutionStepView(id, title string) executionStepView {
	return executionStepView{id: id, title: title, viewport: viewport.New(80, 20)}
}

func (v executionStepView) Title() string { return v.title }

func (v executionStepView) Help() string { return "↑↓ scroll • v toggle JSON" }

func (v executionStepView) Init(s *session) tea.Cmd {
	id := v.id
	return s.fetch(func(ctx context.Context) tea.Msg {
		st, err := s.client.GetExecutionStep(ctx, id)
		return executionStepMsg{step: st, err: err}
	})
}

func (v executionStepView) Update(s *session, msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.viewport.Width = msg.Width
		v.viewport.Height = msg.Height - 4
		v.render()
		return v, nil

	case executionStepMsg:
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		v.err = nil
		v.step = msg.step
		v.render()
		return v, nil

	case tea.KeyMsg:
		if msg.String() == "v" {
			v.raw = !v.raw
			v.render()
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

func (v *executionStepView) render() {
	if v.step == nil {
		return
	}
	if v.raw {
		v.viewport.SetContent(highlightJSON(v.step, v.width))
		return
	}
	md := report.StepMarkdown(*v.step)
	out, err := report.Render(md, v.width)
	if err != nil {
		out = md
	}
	v.viewport.SetContent(out)
}

func (v executionStepView) View(width, height int) string {
	if v.err != nil {
		return ErrorStyle.Render("Could not load step: " + errorText(v.err))
	}
	if v.step == nil {
		return HelpStyle.Render("Loading step...")
	}
	return v.viewport.View()
}

func (v executionStepView) Copy() string {
	if v.step == nil {
		return ""
	}
	return report.StepMarkdown(*v.step)
}
