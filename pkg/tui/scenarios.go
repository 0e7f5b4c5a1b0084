package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/blackcoderx/stepwise/pkg/model"
)

const dateLayout = "2006-01-02 15:04"

func newTable(cols []table.Column) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(tableStyles())
	return t
}

// sized returns a copy of t fitted to height rows including the header.
func sized(t table.Model, height int) table.Model {
	if height < 3 {
		height = 3
	}
	t.SetHeight(height)
	return t
}

// selected returns the index of the highlighted row, or -1 for an empty table.
func selected(t table.Model, rows int) int {
	i := t.Cursor()
	if rows == 0 || i < 0 || i >= rows {
		return -1
	}
	return i
}

// pager tracks the page a paginated screen shows.
type pager struct {
	page  int
	size  int
	total int
}

func (p pager) hasNext() bool { return (p.page+1)*p.size < p.total }

func (p pager) String() string {
	pages := 1
	if p.size > 0 && p.total > 0 {
		pages = (p.total + p.size - 1) / p.size
	}
	return fmt.Sprintf("page %d/%d · %d total", p.page+1, pages, p.total)
}

// turn moves to the next or previous page and reports whether it moved.
func (p *pager) turn(key string) bool {
	switch key {
	case "right", "l":
		if p.hasNext() {
			p.page++
			return true
		}
	case "left", "h":
		if p.page > 0 {
			p.page--
			return true
		}
	}
	return false
}

// scenarioList is the landing screen.
type scenarioList struct {
	pager  pager
	rows   []model.ScenarioInfo
	loaded bool
	table  table.Model
	err    error
}

type scenariosMsg struct {
	page *model.Page[model.ScenarioInfo]
	err  error
}

func newScenarioList() scenarioList {
	return scenarioList{table: newTable([]table.Column{
		{Title: "Name", Width: 32},
		{Title: "Steps", Width: 6},
		{Title: "Runs", Width: 6},
		{Title: "Updated", Width: 17},
	})}
}

func (l scenarioList) Title() string { return "Scenarios" }

func (l scenarioList) Help() string {
	return "enter open • n new • r rename • d delete • ←→ page • s structures • e executions"
}

func (l scenarioList) Init(s *session) tea.Cmd {
	req := model.PageRequest{Page: l.pager.page, Size: s.pageSize}
	return s.fetch(func(ctx context.Context) tea.Msg {
		page, err := s.client.ListScenarios(ctx, req)
		return scenariosMsg{page: page, err: err}
	})
}

func (l scenarioList) Update(s *session, msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case scenariosMsg:
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
		for _, sc := range l.rows {
			rows = append(rows, table.Row{
				sc.Name,
				strconv.Itoa(sc.StepsAmount),
				strconv.Itoa(sc.TestExecutionsAmount),
				sc.UpdateDate.Local().Format(dateLayout),
			})
		}
		l.table.SetRows(rows)
		if l.table.Cursor() >= len(rows) {
			l.table.SetCursor(0)
		}
		return l, nil

	case savedMsg:
		if msg.err == nil {
			return l, l.Init(s)
		}
		return l, nil

	case tea.KeyMsg:
		key := msg.String()
		if l.pager.turn(key) {
			return l, l.Init(s)
		}
		i := selected(l.table, len(l.rows))
		switch key {
		case "enter":
			if i >= 0 {
				return l, push(newScenarioDetail(l.rows[i].ID, l.rows[i].Name))
			}
			return l, nil
		case "n":
			return l, push(textForm("New scenario", "Name", "", model.CheckScenarioName,
				func(ctx context.Context, name string) (screen, error) {
					sc, err := s.client.CreateScenario(ctx, model.ScenarioWrite{Name: &name})
					if err != nil {
						return nil, err
					}
					return newScenarioDetail(sc.ID, sc.Name), nil
				}))
		case "r":
			if i >= 0 {
				return l, push(renameScenarioForm(s, l.rows[i].ID, l.rows[i].Name))
			}
			return l, nil
		case "d":
			if i >= 0 {
				id := l.rows[i].ID
				return l, push(confirmForm("Delete scenario",
					fmt.Sprintf("Delete %q with its steps and parameters?", l.rows[i].Name),
					func(ctx context.Context) (screen, error) {
						return nil, s.client.DeleteScenario(ctx, id)
					}))
			}
			return l, nil
		case "s":
			return l, push(newStructureList())
		case "e":
			return l, push(newExecutionList())
		}
	}

	var cmd tea.Cmd
	l.table, cmd = l.table.Update(msg)
	return l, cmd
}

func (l scenarioList) View(width, height int) string {
	if l.err != nil {
		return ErrorStyle.Render("Could not load scenarios: " + errorText(l.err))
	}
	if !l.loaded {
		return HelpStyle.Render("Loading scenarios...")
	}
	if len(l.rows) == 0 {
		return HelpStyle.Render("No scenarios yet. Press n to create one.")
	}
	return sized(l.table, height-2).View() + "\n" + HelpStyle.Render(l.pager.String())
}

func renameScenarioForm(s *session, id, name string) formScreen {
	return textForm("Rename scenario", "Name", name, model.CheckScenarioName,
		func(ctx context.Context, name string) (screen, error) {
			_, err := s.client.UpdateScenario(ctx, id, model.ScenarioWrite{Name: &name})
			return nil, err
		})
}

type pane int

const (
	firstPane pane = iota
	secondPane
)

func (p pane) other() pane { return 1 - p }

// scenarioDetail shows a scenario's steps and parameters.
type scenarioDetail struct {
	id       string
	name     string
	scenario *model.Scenario
	params   []model.Parameter
	focus    pane
	steps    table.Model
	paramTbl table.Model
	err      error
}

type scenarioMsg struct {
	scenario *model.Scenario
	params   []model.Parameter
	err      error
}

func newScenarioDetail(id, name string) scenarioDetail {
	d := scenarioDetail{
		id:   id,
		name: name,
		steps: newTable([]table.Column{
			{Title: "#", Width: 3},
			{Title: "Title", Width: 28},
			{Title: "Method", Width: 7},
			{Title: "Endpoint", Width: 36},
		}),
		paramTbl: newTable([]table.Column{
			{Title: "Name", Width: 20},
			{Title: "Initial value", Width: 24},
			{Title: "Used by", Width: 30},
		}),
	}
	d.paramTbl.Blur()
	return d
}

func (d scenarioDetail) Title() string { return d.name }

func (d scenarioDetail) Help() string {
	if d.focus == firstPane {
		return "tab params • enter open • n new • t title • d delete • K/J move • x execute • r rename"
	}
	return "tab steps • n new • e edit • d delete • x execute • r rename"
}

func (d scenarioDetail) Init(s *session) tea.Cmd {
	id := d.id
	return s.fetch(func(ctx context.Context) tea.Msg {
		sc, err := s.client.GetScenario(ctx, id)
		if err != nil {
			return scenarioMsg{err: err}
		}
		params, err := s.client.ListParameters(ctx, id)
		return scenarioMsg{scenario: sc, params: params, err: err}
	})
}

func (d scenarioDetail) Update(s *session, msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case scenarioMsg:
		if msg.err != nil {
			d.err = msg.err
			return d, nil
		}
		d.err = nil
		d.scenario = msg.scenario
		d.name = msg.scenario.Name
		d.params = msg.params
		d.steps.SetRows(stepRows(msg.scenario.Steps))
		d.paramTbl.SetRows(parameterRows(msg.params))
		if d.steps.Cursor() >= len(msg.scenario.Steps) {
			d.steps.SetCursor(0)
		}
		if d.paramTbl.Cursor() >= len(msg.params) {
			d.paramTbl.SetCursor(0)
		}
		return d, nil

	case savedMsg:
		if msg.err == nil {
			return d, d.Init(s)
		}
		return d, nil

	case tea.KeyMsg:
		if d.scenario == nil {
			return d, nil
		}
		switch msg.String() {
		case "tab":
			d.focus = d.focus.other()
			if d.focus == firstPane {
				d.steps.Focus()
				d.paramTbl.Blur()
			} else {
				d.steps.Blur()
				d.paramTbl.Focus()
			}
			return d, nil
		case "x":
			id := d.id
			return d, push(executeForm(d.name, s.target, func(ctx context.Context, baseURL string) (screen, error) {
				started, err := s.client.StartExecution(ctx, id, baseURL)
				if err != nil {
					return nil, err
				}
				return newExecutionDetail(started.ID), nil
			}))
		case "r":
			return d, push(renameScenarioForm(s, d.id, d.name))
		}
		if d.focus == firstPane {
			if cmd, handled := d.stepKey(s, msg.String()); handled {
				return d, cmd
			}
		} else if cmd, handled := d.parameterKey(s, msg.String()); handled {
			return d, cmd
		}
	}

	var cmd tea.Cmd
	if d.focus == firstPane {
		d.steps, cmd = d.steps.Update(msg)
	} else {
		d.paramTbl, cmd = d.paramTbl.Update(msg)
	}
	return d, cmd
}

func (d scenarioDetail) stepKey(s *session, key string) (tea.Cmd, bool) {
	steps := d.scenario.Steps
	i := selected(d.steps, len(steps))
	switch key {
	case "n":
		id := d.id
		return push(textForm("New step", "Title", "", model.CheckTitle,
			func(ctx context.Context, title string) (screen, error) {
				st, err := s.client.CreateStep(ctx, id, model.StepWrite{Title: &title})
				if err != nil {
					return nil, err
				}
				return newStepDetail(st.ID, st.Title), nil
			})), true
	case "enter":
		if i < 0 {
			return nil, true
		}
		return push(newStepDetail(steps[i].ID, steps[i].Title)), true
	case "t":
		if i < 0 {
			return nil, true
		}
		id := steps[i].ID
		return push(textForm("Retitle step", "Title", steps[i].Title, model.CheckTitle,
			func(ctx context.Context, title string) (screen, error) {
				_, err := s.client.UpdateStep(ctx, id, model.StepWrite{Title: &title})
				return nil, err
			})), true
	case "d":
		if i < 0 {
			return nil, true
		}
		id := steps[i].ID
		return push(confirmForm("Delete step", fmt.Sprintf("Delete step %q?", steps[i].Title),
			func(ctx context.Context) (screen, error) {
				return nil, s.client.DeleteStep(ctx, id)
			})), true
	case "K", "J":
		if i < 0 {
			return nil, true
		}
		seq := steps[i].Sequence + 1
		if key == "K" {
			seq = steps[i].Sequence - 1
		}
		if seq < 1 || seq > len(steps) {
			return nil, true
		}
		id := steps[i].ID
		return submit("Move step", func(ctx context.Context) (screen, error) {
			_, err := s.client.MoveStep(ctx, id, seq)
			return nil, err
		}), true
	}
	return nil, false
}

func (d scenarioDetail) parameterKey(s *session, key string) (tea.Cmd, bool) {
	i := selected(d.paramTbl, len(d.params))
	switch key {
	case "n":
		id := d.id
		return push(parameterForm("New parameter", nil, func(ctx context.Context, w model.ParameterWrite) error {
			_, err := s.client.CreateParameter(ctx, id, w)
			return err
		})), true
	case "e", "enter":
		if i < 0 {
			return nil, true
		}
		p := d.params[i]
		return push(parameterForm("Edit parameter", &p, func(ctx context.Context, w model.ParameterWrite) error {
			_, err := s.client.UpdateParameter(ctx, p.ID, w)
			return err
		})), true
	case "d":
		if i < 0 {
			return nil, true
		}
		p := d.params[i]
		question := fmt.Sprintf("Delete parameter %q?", p.Name)
		if len(p.Usages) > 0 {
			question = fmt.Sprintf("Parameter %q is used by %d step(s). Delete anyway?", p.Name, len(p.Usages))
		}
		return push(confirmForm("Delete parameter", question, func(ctx context.Context) (screen, error) {
			return nil, s.client.DeleteParameter(ctx, p.ID)
		})), true
	}
	return nil, false
}

func (d scenarioDetail) View(width, height int) string {
	if d.err != nil {
		return ErrorStyle.Render("Could not load scenario: " + errorText(d.err))
	}
	if d.scenario == nil {
		return HelpStyle.Render("Loading scenario...")
	}

	paneHeight := (height - 4) / 2
	stepsView := HelpStyle.Render("No steps yet. Press n to add one.")
	if len(d.scenario.Steps) > 0 {
		stepsView = sized(d.steps, paneHeight-1).View()
	}
	paramsView := HelpStyle.Render("No parameters.")
	if len(d.params) > 0 {
		paramsView = sized(d.paramTbl, paneHeight-1).View()
	}

	stepsStyle, paramsStyle := ActivePaneStyle, PaneStyle
	if d.focus == secondPane {
		stepsStyle, paramsStyle = PaneStyle, ActivePaneStyle
	}
	w := width - 4
	return lipgloss.JoinVertical(lipgloss.Left,
		stepsStyle.Width(w).Render(TitleStyle.Render("Steps")+"\n"+stepsView),
		paramsStyle.Width(w).Render(TitleStyle.Render("Parameters")+"\n"+paramsView),
	)
}

func (d scenarioDetail) Copy() string {
	if d.scenario == nil {
		return ""
	}
	var b strings.Builder
	for _, st := range d.scenario.Steps {
		fmt.Fprintf(&b, "%d. %s %s %s\n", st.Sequence, st.Title, st.Method, st.Endpoint)
	}
	return b.String()
}

func stepRows(steps []model.StepInfo) []table.Row {
	rows := make([]table.Row, 0, len(steps))
	for _, st := range steps {
		rows = append(rows, table.Row{strconv.Itoa(st.Sequence), st.Title, string(st.Method), st.Endpoint})
	}
	return rows
}

func parameterRows(params []model.Parameter) []table.Row {
	rows := make([]table.Row, 0, len(params))
	for _, p := range params {
		used := make([]string, 0, len(p.Usages))
		for _, u := range p.Usages {
			used = append(used, u.Title+" ("+strings.ToLower(string(u.Place))+")")
		}
		rows = append(rows, table.Row{p.Name, p.InitialValue, strings.Join(used, ", ")})
	}
	return rows
}
