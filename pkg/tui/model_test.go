package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/client"
	"github.com/blackcoderx/stepwise/pkg/model"
)

// recorder is a screen that remembers every message it was given.
type recorder struct {
	title string
	got   []tea.Msg
}

func (r recorder) Title() string { return r.title }
func (r recorder) Init(*session) tea.Cmd { return nil }
func (r recorder) View(int, int) string { return r.title }
func (r recorder) Help() string { return "" }
func (r recorder) Update(_ *session, msg tea.Msg) (screen, tea.Cmd) {
	r.got = append(append([]tea.Msg(nil), r.got...), msg)
	return r, nil
}

func newTestModel() Model {
	m := InitialModel(Options{})
	m.stack = []entry{{gen: 1, screen: recorder{title: "root"}}}
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func screenAt(t *testing.T, m Model, i int) recorder {
	t.Helper()
	r, ok := m.stack[i].screen.(recorder)
	require.True(t, ok)
	return r
}

func TestResultsForClosedScreensAreDropped(t *testing.T) {
	m := newTestModel()
	m = update(t, m, pushMsg{screen: recorder{title: "child"}})
	require.Len(t, m.stack, 2)
	childGen := m.stack[1].gen

	m = update(t, m, popMsg{})
	require.Len(t, m.stack, 1)

	m = update(t, m, scopedMsg{gen: childGen, msg: "late"})
	assert.Empty(t, screenAt(t, m, 0).got)

	// Re-entering gets a fresh generation, so the old result still misses.
	m = update(t, m, pushMsg{screen: recorder{title: "child"}})
	assert.NotEqual(t, childGen, m.stack[1].gen)
	m = update(t, m, scopedMsg{gen: childGen, msg: "late"})
	assert.Empty(t, screenAt(t, m, 1).got)
}

func TestResultsReachScreensUnderTheTop(t *testing.T) {
	m := newTestModel()
	m = update(t, m, pushMsg{screen: recorder{title: "form"}})

	m = update(t, m, scopedMsg{gen: 1, msg: "loaded"})
	assert.Equal(t, []tea.Msg{"loaded"}, screenAt(t, m, 0).got)
	assert.Empty(t, screenAt(t, m, 1).got)
}

func TestSubmitKeepsOneWriteInFlight(t *testing.T) {
	m := newTestModel()
	run := func(context.Context) (screen, error) { return nil, nil }

	m = update(t, m, submitMsg{label: "Create scenario", run: run})
	assert.True(t, m.busy)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Empty(t, screenAt(t, m, 0).got, "keys are ignored while saving")

	m = update(t, m, submitMsg{label: "Create scenario", run: run})
	assert.True(t, m.statusErr)

	failed := &client.ValidationError{Status: model.StatusNameEmpty, Field: model.StatusNameEmpty.Field()}
	m = update(t, m, scopedMsg{gen: 1, msg: savedMsg{label: "Create scenario", err: failed}})
	assert.False(t, m.busy)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, model.StatusNameEmpty.Message())
	require.Len(t, screenAt(t, m, 0).got, 1)
}

func TestSubmitFromFormClosesIt(t *testing.T) {
	m := newTestModel()
	m.stack = append(m.stack, entry{gen: 2, screen: formScreen{title: "New scenario"}})
	m.nextGen = 3

	m = update(t, m, submitMsg{label: "New scenario", run: func(context.Context) (screen, error) { return nil, nil }})
	require.Len(t, m.stack, 1)
	assert.True(t, m.busy)
}

func TestSavedResultOpensNextScreen(t *testing.T) {
	m := newTestModel()
	m.busy = true
	next, cmd := m.Update(scopedMsg{gen: 1, msg: savedMsg{label: "Execute", next: recorder{title: "run"}}})
	require.NotNil(t, cmd)
	m = next.(Model)
	assert.False(t, m.busy)
	assert.Equal(t, "Execute: done", m.status)
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", &client.ValidationError{Status: model.StatusParameterInUse}, model.StatusParameterInUse.Message()},
		{"in flight", client.ErrSubmissionInFlight, "still saving, try again in a moment"},
		{"network", &client.NetworkError{Op: "GET /scenarios", Err: errors.New("refused")}, "backend unreachable: GET /scenarios: refused"},
		{"other", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorText(tt.err))
		})
	}
}

func TestRequestFieldValuesDropUnusedMaterials(t *testing.T) {
	v := requestFieldValues{valueType: model.ValueRandom, strict: "bob", parameter: "p1", from: "18", to: "65"}
	u := v.update()
	assert.Equal(t, model.ValueRandom, u.ValueType)
	assert.Nil(t, u.StrictValue)
	assert.Nil(t, u.ParameterID)
	require.NotNil(t, u.RandomValue)
	assert.Equal(t, model.Range{From: 18, To: 65}, *u.RandomValue)

	back := requestFieldValuesOf(model.RandomValue{Range: model.Range{From: 18, To: 65}})
	assert.Equal(t, "18", back.from)
	assert.Equal(t, "65", back.to)

	v.valueType = model.ValueStrict
	u = v.update()
	require.NotNil(t, u.StrictValue)
	assert.Equal(t, "bob", *u.StrictValue)
	assert.Nil(t, u.RandomValue)
}

func TestResponseFieldValuesKeepCapture(t *testing.T) {
	field := model.ResponseField{Name: "token", Type: model.TypeString, Assertion: model.AssertAny{}, Capture: "p1"}
	v := responseFieldValuesOf(field)
	assert.True(t, v.save)

	v.mode = model.AssertionParameter
	v.read = "p2"
	u := v.update()
	params := binding.NewParameterSet("s1", []model.Parameter{{ID: "p1", Name: "token"}, {ID: "p2", Name: "expected"}})
	updated, violation := binding.ApplyResponse(field, u, params)
	require.Nil(t, violation)
	assert.Equal(t, model.AssertParameter{ParameterID: "p2"}, updated.Assertion)
	assert.Equal(t, "p1", updated.Capture)

	v.save = false
	assert.Nil(t, v.update().ParameterToSaveID)
}

func TestRequestWriteOnlySendsChangedStructure(t *testing.T) {
	current := model.StepRequest{Method: model.MethodPost, Endpoint: "/login", Structure: &model.StructureRef{ID: "st1", Name: "Credentials"}}

	same := requestValues{method: model.MethodPut, endpoint: "/login", structure: "st1"}.requestWrite(current)
	assert.Nil(t, same.StructureID)
	assert.False(t, same.ClearStructure)
	assert.Equal(t, model.MethodPut, *same.Method)

	cleared := requestValues{method: model.MethodPost, endpoint: "/login", structure: noStructure}.requestWrite(current)
	assert.True(t, cleared.ClearStructure)

	changed := requestValues{method: model.MethodPost, endpoint: "/login", structure: "st2"}.requestWrite(current)
	require.NotNil(t, changed.StructureID)
	assert.Equal(t, "st2", *changed.StructureID)
}

func TestPager(t *testing.T) {
	p := pager{size: 20, total: 45}
	assert.Equal(t, "page 1/3 · 45 total", p.String())
	assert.False(t, p.turn("left"))
	assert.True(t, p.turn("right"))
	assert.True(t, p.turn("right"))
	assert.False(t, p.turn("right"))
	assert.Equal(t, 2, p.page)
}
