package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/model"
)

const maxFormWidth = 80

// formScreen hosts a huh form. On completion it asks done for the write to
// run; the write's outcome is delivered to the screen that opened the form.
type formScreen struct {
	title string
	form  *huh.Form
	done  func() action
	sent  bool
}

func newForm(title string, done func() action, groups ...*huh.Group) formScreen {
	f := huh.NewForm(groups...).
		WithShowHelp(true).
		WithTheme(huh.ThemeCharm())
	return formScreen{title: title, form: f, done: done}
}

func (f formScreen) Title() string { return f.title }

func (f formScreen) Help() string { return "" }

func (f formScreen) Init(s *session) tea.Cmd {
	w := s.width - 4
	if w > maxFormWidth || w <= 0 {
		w = maxFormWidth
	}
	f.form = f.form.WithWidth(w)
	return f.form.Init()
}

func (f formScreen) Update(s *session, msg tea.Msg) (screen, tea.Cmd) {
	if f.sent {
		return f, nil
	}
	m, cmd := f.form.Update(msg)
	if form, ok := m.(*huh.Form); ok {
		f.form = form
	}

	switch f.form.State {
	case huh.StateCompleted:
		f.sent = true
		var run action
		if f.done != nil {
			run = f.done()
		}
		if run == nil {
			return f, pop(false)
		}
		return f, submit(f.title, run)
	case huh.StateAborted:
		f.sent = true
		return f, pop(false)
	}
	return f, cmd
}

func (f formScreen) View(width, height int) string {
	return f.form.View()
}

// check adapts a model rule to a huh validator.
func check(rule func(string) model.Status) func(string) error {
	return func(s string) error {
		if status := rule(s); status != "" {
			return errors.New(status.Message())
		}
		return nil
	}
}

func checkNumber(s string) error {
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return errors.New("must be a number")
	}
	return nil
}

func checkStatusCode(s string) error {
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || code < 100 || code > 599 {
		return errors.New(model.StatusHTTPStatusInvalid.Message())
	}
	return nil
}

// textForm edits a single line of text.
func textForm(title, label, initial string, rule func(string) model.Status, save func(ctx context.Context, value string) (screen, error)) formScreen {
	value := initial
	input := huh.NewInput().
		Title(label).
		Value(&value)
	if rule != nil {
		input = input.Validate(check(rule))
	}
	return newForm(title, func() action {
		return func(ctx context.Context) (screen, error) {
			return save(ctx, value)
		}
	}, huh.NewGroup(input))
}

// confirmForm asks before a destructive write.
func confirmForm(title, question string, run action) formScreen {
	ok := false
	confirm := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	return newForm(title, func() action {
		if !ok {
			return nil
		}
		return run
	}, huh.NewGroup(confirm))
}

// parameterValues backs the parameter form.
type parameterValues struct {
	name  string
	value string
}

func parameterForm(title string, p *model.Parameter, save func(ctx context.Context, w model.ParameterWrite) error) formScreen {
	v := &parameterValues{}
	if p != nil {
		v.name, v.value = p.Name, p.InitialValue
	}
	group := huh.NewGroup(
		huh.NewInput().Title("Name").Value(&v.name).Validate(check(model.CheckName)),
		huh.NewInput().Title("Initial value").Value(&v.value).Validate(check(model.CheckParameterValue)),
	)
	return newForm(title, func() action {
		w := model.ParameterWrite{Name: model.Ptr(v.name), InitialValue: model.Ptr(v.value)}
		return func(ctx context.Context) (screen, error) {
			return nil, save(ctx, w)
		}
	}, group)
}

// structureValues backs the structure form.
type structureValues struct {
	name        string
	description string
}

func structureForm(title string, st *model.Structure, save func(ctx context.Context, w model.StructureWrite) error) formScreen {
	v := &structureValues{}
	if st != nil {
		v.name, v.description = st.Name, st.Description
	}
	group := huh.NewGroup(
		huh.NewInput().Title("Name").Value(&v.name).Validate(check(model.CheckName)),
		huh.NewText().Title("Description").Value(&v.description).Lines(3),
	)
	return newForm(title, func() action {
		w := model.StructureWrite{Name: model.Ptr(v.name), Description: model.Ptr(v.description)}
		return func(ctx context.Context) (screen, error) {
			return nil, save(ctx, w)
		}
	}, group)
}

// fieldValues backs the structure field form.
type fieldValues struct {
	name     string
	dataType model.DataType
}

func structureFieldForm(title string, f *model.StructureField, save func(ctx context.Context, w model.StructureFieldWrite) error) formScreen {
	v := &fieldValues{dataType: model.TypeString}
	if f != nil {
		v.name, v.dataType = f.Name, f.Type
	}
	group := huh.NewGroup(
		huh.NewInput().Title("Name").Value(&v.name).Validate(check(model.CheckName)),
		huh.NewSelect[model.DataType]().
			Title("Type").
			Options(
				huh.NewOption("String", model.TypeString),
				huh.NewOption("Number", model.TypeNumber),
				huh.NewOption("Boolean", model.TypeBoolean),
			).
			Value(&v.dataType),
	)
	return newForm(title, func() action {
		w := model.StructureFieldWrite{Name: model.Ptr(v.name), Type: model.Ptr(v.dataType)}
		return func(ctx context.Context) (screen, error) {
			return nil, save(ctx, w)
		}
	}, group)
}

const noStructure = ""

func structureOptions(structures []model.StructureInfo) []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption("(none)", noStructure)}
	for _, s := range structures {
		opts = append(opts, huh.NewOption(s.Name, s.ID))
	}
	return opts
}

func parameterOptions(params binding.ParameterSet) []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption("(none)", "")}
	for _, p := range params.List() {
		opts = append(opts, huh.NewOption(p.Name, p.ID))
	}
	return opts
}

// requestValues backs the step request form.
type requestValues struct {
	method    model.HTTPMethod
	endpoint  string
	structure string
}

// requestWrite turns the form values into an update. Only a changed structure
// is sent, since setting one regenerates the field bindings.
func (v requestValues) requestWrite(current model.StepRequest) model.RequestWrite {
	w := model.RequestWrite{Method: model.Ptr(v.method), Endpoint: model.Ptr(v.endpoint)}
	before := noStructure
	if current.Structure != nil {
		before = current.Structure.ID
	}
	switch {
	case v.structure == before:
	case v.structure == noStructure:
		w.ClearStructure = true
	default:
		w.StructureID = model.Ptr(v.structure)
	}
	return w
}

func requestForm(req model.StepRequest, structures []model.StructureInfo, save func(ctx context.Context, w model.RequestWrite) error) formScreen {
	v := &requestValues{method: req.Method, endpoint: req.Endpoint}
	if req.Structure != nil {
		v.structure = req.Structure.ID
	}
	methods := make([]huh.Option[model.HTTPMethod], 0, len(model.HTTPMethods))
	for _, m := range model.HTTPMethods {
		methods = append(methods, huh.NewOption(string(m), m))
	}
	group := huh.NewGroup(
		huh.NewSelect[model.HTTPMethod]().Title("Method").Options(methods...).Value(&v.method),
		huh.NewInput().Title("Endpoint").Value(&v.endpoint).
			Description("{{name}} is replaced with the parameter's current value"),
		huh.NewSelect[string]().Title("Structure").Options(structureOptions(structures)...).Value(&v.structure).
			Description("changing it resets the field bindings"),
	)
	return newForm("Edit request", func() action {
		w := v.requestWrite(req)
		return func(ctx context.Context) (screen, error) {
			return nil, save(ctx, w)
		}
	}, group)
}

// responseValues backs the step response form.
type responseValues struct {
	status    string
	structure string
}

func (v responseValues) responseWrite(current model.StepResponse) model.ResponseWrite {
	code, _ := strconv.Atoi(strings.TrimSpace(v.status))
	w := model.ResponseWrite{HTTPStatus: model.Ptr(code)}
	before := noStructure
	if current.Structure != nil {
		before = current.Structure.ID
	}
	switch {
	case v.structure == before:
	case v.structure == noStructure:
		w.ClearStructure = true
	default:
		w.StructureID = model.Ptr(v.structure)
	}
	return w
}

func responseForm(resp model.StepResponse, structures []model.StructureInfo, save func(ctx context.Context, w model.ResponseWrite) error) formScreen {
	v := &responseValues{status: strconv.Itoa(resp.HTTPStatus)}
	if resp.Structure != nil {
		v.structure = resp.Structure.ID
	}
	group := huh.NewGroup(
		huh.NewInput().Title("HTTP status").Value(&v.status).Validate(checkStatusCode),
		huh.NewSelect[string]().Title("Structure").Options(structureOptions(structures)...).Value(&v.structure).
			Description("changing it resets the field assertions"),
	)
	return newForm("Edit response", func() action {
		w := v.responseWrite(resp)
		return func(ctx context.Context) (screen, error) {
			return nil, save(ctx, w)
		}
	}, group)
}

// requestFieldValues backs the request binding form. Every material is kept
// while the form is open; update drops the ones the chosen type ignores.
type requestFieldValues struct {
	valueType model.ValueType
	strict    string
	parameter string
	from      string
	to        string
}

func requestFieldValuesOf(v model.RequestValue) *requestFieldValues {
	out := &requestFieldValues{valueType: model.ValueNull}
	if v == nil {
		return out
	}
	out.valueType = v.ValueType()
	switch val := v.(type) {
	case model.StrictValue:
		out.strict = val.Value
	case model.ParameterValue:
		out.parameter = val.ParameterID
	case model.RandomValue:
		out.from = binding.FormatNumber(val.Range.From)
		out.to = binding.FormatNumber(val.Range.To)
	}
	return out
}

func (v requestFieldValues) update() model.RequestFieldUpdate {
	u := model.RequestFieldUpdate{
		StrictValue: model.Ptr(v.strict),
		ParameterID: model.Ptr(v.parameter),
	}
	from, errFrom := strconv.ParseFloat(strings.TrimSpace(v.from), 64)
	to, errTo := strconv.ParseFloat(strings.TrimSpace(v.to), 64)
	if errFrom == nil && errTo == nil {
		u.RandomValue = &model.Range{From: from, To: to}
	}
	return binding.SwitchRequestType(u, v.valueType)
}

func requestFieldForm(field model.RequestField, params binding.ParameterSet, save func(ctx context.Context, u model.RequestFieldUpdate) error) formScreen {
	v := requestFieldValuesOf(field.Value)
	types := make([]huh.Option[model.ValueType], 0, len(model.ValueTypes))
	for _, t := range model.ValueTypes {
		types = append(types, huh.NewOption(string(t), t))
	}
	groups := []*huh.Group{
		huh.NewGroup(
			huh.NewSelect[model.ValueType]().
				Title(field.Name + " (" + string(field.Type) + ")").
				Options(types...).
				Value(&v.valueType),
		),
		huh.NewGroup(
			huh.NewInput().Title("Value").Value(&v.strict),
		).WithHideFunc(func() bool { return v.valueType != model.ValueStrict }),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Parameter").Options(parameterOptions(params)...).Value(&v.parameter),
		).WithHideFunc(func() bool { return v.valueType != model.ValueParameter }),
		huh.NewGroup(
			huh.NewInput().Title("From").Value(&v.from).Validate(checkNumber),
			huh.NewInput().Title("To").Value(&v.to).Validate(checkNumber),
		).WithHideFunc(func() bool { return v.valueType != model.ValueRandom }),
	}
	return newForm("Bind "+field.Name, func() action {
		u := v.update()
		return func(ctx context.Context) (screen, error) {
			return nil, save(ctx, u)
		}
	}, groups...)
}

// responseFieldValues backs the response assertion form.
type responseFieldValues struct {
	mode   model.AssertionMode
	strict string
	read   string
	save   bool
	saveTo string
}

func responseFieldValuesOf(f model.ResponseField) *responseFieldValues {
	out := &responseFieldValues{mode: model.AssertionAny, save: f.SaveToParameter(), saveTo: f.Capture}
	if f.Assertion == nil {
		return out
	}
	out.mode = f.Assertion.Mode()
	switch val := f.Assertion.(type) {
	case model.AssertStrict:
		out.strict = val.Value
	case model.AssertParameter:
		out.read = val.ParameterID
	}
	return out
}

func (v responseFieldValues) update() model.ResponseFieldUpdate {
	u := model.ResponseFieldUpdate{
		StrictValue:       model.Ptr(v.strict),
		ParameterToReadID: model.Ptr(v.read),
	}
	u = binding.SwitchResponseMode(u, v.mode)
	return binding.SetCapture(u, v.save, model.Ptr(v.saveTo))
}

func responseFieldForm(field model.ResponseField, params binding.ParameterSet, save func(ctx context.Context, u model.ResponseFieldUpdate) error) formScreen {
	v := responseFieldValuesOf(field)
	modes := make([]huh.Option[model.AssertionMode], 0, len(model.AssertionModes))
	for _, m := range model.AssertionModes {
		modes = append(modes, huh.NewOption(string(m), m))
	}
	groups := []*huh.Group{
		huh.NewGroup(
			huh.NewSelect[model.AssertionMode]().
				Title(field.Name + " (" + string(field.Type) + ")").
				Options(modes...).
				Value(&v.mode),
		),
		huh.NewGroup(
			huh.NewInput().Title("Expected value").Value(&v.strict),
		).WithHideFunc(func() bool { return v.mode != model.AssertionStrict }),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Expected parameter").Options(parameterOptions(params)...).Value(&v.read),
		).WithHideFunc(func() bool { return v.mode != model.AssertionParameter }),
		huh.NewGroup(
			huh.NewConfirm().Title("Save the value to a parameter?").Value(&v.save),
		),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Save to").Options(parameterOptions(params)...).Value(&v.saveTo),
		).WithHideFunc(func() bool { return !v.save }),
	}
	return newForm("Check "+field.Name, func() action {
		u := v.update()
		return func(ctx context.Context) (screen, error) {
			return nil, save(ctx, u)
		}
	}, groups...)
}

// executeForm asks for the base URL a scenario runs against.
func executeForm(name, target string, start func(ctx context.Context, baseURL string) (screen, error)) formScreen {
	baseURL := target
	input := huh.NewInput().
		Title("Base URL").
		Description("the service the steps are sent to").
		Value(&baseURL).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New(model.StatusBaseURLEmpty.Message())
			}
			return nil
		})
	return newForm("Execute "+name, func() action {
		return func(ctx context.Context) (screen, error) {
			return start(ctx, strings.TrimSpace(baseURL))
		}
	}, huh.NewGroup(input))
}
