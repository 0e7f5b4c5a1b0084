package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/model"
)

// structureChoices bounds the structures offered in request and response
// forms.
const structureChoices = 100

// stepDetail shows a step's request bindings and response assertions.
type stepDetail struct {
	id         string
	title      string
	step       *model.Step
	params     binding.ParameterSet
	structures []model.StructureInfo
	focus      pane
	request    table.Model
	response   table.Model
	err        error
}

type stepMsg struct {
	step       *model.Step
	params     []model.Parameter
	structures []model.StructureInfo
	err        error
}

func newStepDetail(id, title string) stepDetail {
	d := stepDetail{
		id:    id,
		title: title,
		request: newTable([]table.Column{
			{Title: "Field", Width: 20},
			{Title: "Type", Width: 8},
			{Title: "Value type", Width: 10},
			{Title: "Value", Width: 28},
		}),
		response: newTable([]table.Column{
			{Title: "Field", Width: 20},
			{Title: "Type", Width: 8},
			{Title: "Check", Width: 10},
			{Title: "Expected", Width: 20},
			{Title: "Save to", Width: 14},
		}),
	}
	d.response.Blur()
	return d
}

func (d stepDetail) Title() string { return d.title }

func (d stepDetail) Help() string {
	return "tab switch • enter bind field • m request • s response • t title"
}

func (d stepDetail) Init(s *session) tea.Cmd {
	id := d.id
	return s.fetch(func(ctx context.Context) tea.Msg {
		st, err := s.client.GetStep(ctx, id)
		if err != nil {
			return stepMsg{err: err}
		}
		params, err := s.client.ListParameters(ctx, st.Scenario.ID)
		if err != nil {
			return stepMsg{err: err}
		}
		structures, err := s.client.ListStructures(ctx, model.PageRequest{Size: structureChoices})
		if err != nil {
			return stepMsg{err: err}
		}
		return stepMsg{step: st, params: params, structures: structures.Rows}
	})
}

func (d stepDetail) Update(s *session, msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case stepMsg:
		if msg.err != nil {
			d.err = msg.err
			return d, nil
		}
		d.err = nil
		d.step = msg.step
		d.title = msg.step.Title
		d.params = binding.NewParameterSet(msg.step.Scenario.ID, msg.params)
		d.structures = msg.structures
		d.request.SetRows(requestRows(msg.step.Request.Fields, d.params))
		d.response.SetRows(responseRows(msg.step.Response.Fields, d.params))
		if d.request.Cursor() >= len(msg.step.Request.Fields) {
			d.request.SetCursor(0)
		}
		if d.response.Cursor() >= len(msg.step.Response.Fields) {
			d.response.SetCursor(0)
		}
		return d, nil

	case savedMsg:
		if msg.err == nil {
			return d, d.Init(s)
		}
		return d, nil

	case tea.KeyMsg:
		if d.step == nil {
			return d, nil
		}
		if cmd, handled := d.handleKey(s, msg.String()); handled {
			return d, cmd
		}
	}

	var cmd tea.Cmd
	if d.focus == firstPane {
		d.request, cmd = d.request.Update(msg)
	} else {
		d.response, cmd = d.response.Update(msg)
	}
	return d, cmd
}

func (d *stepDetail) handleKey(s *session, key string) (tea.Cmd, bool) {
	step := d.step
	switch key {
	case "tab":
		d.focus = d.focus.other()
		if d.focus == firstPane {
			d.request.Focus()
			d.response.Blur()
		} else {
			d.request.Blur()
			d.response.Focus()
		}
		return nil, true

	case "m":
		return push(requestForm(step.Request, d.structures, func(ctx context.Context, w model.RequestWrite) error {
			_, err := s.client.UpdateStepRequest(ctx, step.ID, w)
			return err
		})), true

	case "s":
		return push(responseForm(step.Response, d.structures, func(ctx context.Context, w model.ResponseWrite) error {
			_, err := s.client.UpdateStepResponse(ctx, step.ID, w)
			return err
		})), true

	case "t":
		return push(textForm("Retitle step", "Title", step.Title, model.CheckTitle,
			func(ctx context.Context, title string) (screen, error) {
				_, err := s.client.UpdateStep(ctx, step.ID, model.StepWrite{Title: &title})
				return nil, err
			})), true

	case "enter":
		params := d.params
		if d.focus == firstPane {
			i := selected(d.request, len(step.Request.Fields))
			if i < 0 {
				return nil, true
			}
			field := step.Request.Fields[i]
			return push(requestFieldForm(field, params, func(ctx context.Context, u model.RequestFieldUpdate) error {
				_, err := s.client.UpdateRequestField(ctx, field, u, params)
				return err
			})), true
		}
		i := selected(d.response, len(step.Response.Fields))
		if i < 0 {
			return nil, true
		}
		field := step.Response.Fields[i]
		return push(responseFieldForm(field, params, func(ctx context.Context, u model.ResponseFieldUpdate) error {
			_, err := s.client.UpdateResponseField(ctx, field, u, params)
			return err
		})), true
	}
	return nil, false
}

func (d stepDetail) View(width, height int) string {
	if d.err != nil {
		return ErrorStyle.Render("Could not load step: " + errorText(d.err))
	}
	if d.step == nil {
		return HelpStyle.Render("Loading step...")
	}
	st := d.step

	paneHeight := (height - 8) / 2
	reqHead := fmt.Sprintf("%s %s", st.Request.Method, st.Request.Endpoint)
	reqView := HelpStyle.Render("No structure: the request has no body.")
	if st.Request.Structure != nil {
		reqHead += HelpStyle.Render("  with " + st.Request.Structure.Name)
		reqView = sized(d.request, paneHeight).View()
	}
	respHead := "expect " + strconv.Itoa(st.Response.HTTPStatus)
	respView := HelpStyle.Render("No structure: only the status is checked.")
	if st.Response.Structure != nil {
		respHead += HelpStyle.Render("  as " + st.Response.Structure.Name)
		respView = sized(d.response, paneHeight).View()
	}

	reqStyle, respStyle := ActivePaneStyle, PaneStyle
	if d.focus == secondPane {
		reqStyle, respStyle = PaneStyle, ActivePaneStyle
	}
	w := width - 4
	header := fmt.Sprintf("%s %s", LabelStyle.Render(fmt.Sprintf("Step %d", st.Sequence)), TextStyle.Render(st.Title))
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		reqStyle.Width(w).Render(TitleStyle.Render("Request")+"  "+reqHead+"\n"+reqView),
		respStyle.Width(w).Render(TitleStyle.Render("Response")+"  "+respHead+"\n"+respView),
	)
}

func (d stepDetail) Copy() string {
	if d.step == nil {
		return ""
	}
	return string(d.step.Request.Method) + " " + d.step.Request.Endpoint
}

func requestRows(fields []model.RequestField, params binding.ParameterSet) []table.Row {
	rows := make([]table.Row, 0, len(fields))
	for _, f := range fields {
		vt := model.ValueNull
		if f.Value != nil {
			vt = f.Value.ValueType()
		}
		rows = append(rows, table.Row{f.Name, string(f.Type), string(vt), binding.DescribeRequest(f.Value, params)})
	}
	return rows
}

func responseRows(fields []model.ResponseField, params binding.ParameterSet) []table.Row {
	rows := make([]table.Row, 0, len(fields))
	for _, f := range fields {
		mode := model.AssertionAny
		if f.Assertion != nil {
			mode = f.Assertion.Mode()
		}
		rows = append(rows, table.Row{
			f.Name,
			string(f.Type),
			string(mode),
			binding.DescribeResponse(f.Assertion, params),
			binding.DescribeCapture(f, params),
		})
	}
	return rows
}
