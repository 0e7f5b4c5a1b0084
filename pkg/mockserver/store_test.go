package mockserver

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/stepwise/pkg/model"
)

func newTestStore() *Store {
	s := NewStore()
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return s
}

func statusOf(t *testing.T, err error) (int, model.Status) {
	t.Helper()
	var se *StatusError
	require.True(t, errors.As(err, &se), "expected StatusError, got %v", err)
	return se.Code, se.Status
}

func mustScenario(t *testing.T, s *Store, name string) model.Scenario {
	t.Helper()
	sc, err := s.CreateScenario(model.ScenarioWrite{Name: model.Ptr(name)})
	require.NoError(t, err)
	return sc
}

func mustStep(t *testing.T, s *Store, scenarioID, title string) model.Step {
	t.Helper()
	step, err := s.CreateStep(scenarioID, model.StepWrite{Title: model.Ptr(title)})
	require.NoError(t, err)
	return step
}

func mustStructure(t *testing.T, s *Store, name string, fields map[string]model.DataType, order ...string) model.Structure {
	t.Helper()
	st, err := s.CreateStructure(model.StructureWrite{Name: model.Ptr(name)})
	require.NoError(t, err)
	for _, n := range order {
		_, err := s.CreateStructureField(st.ID, model.StructureFieldWrite{Name: model.Ptr(n), Type: model.Ptr(fields[n])})
		require.NoError(t, err)
	}
	st, err = s.GetStructure(st.ID)
	require.NoError(t, err)
	return st
}

func titles(steps []model.StepInfo) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = fmt.Sprintf("%d:%s", s.Sequence, s.Title)
	}
	return out
}

func TestStructureValidation(t *testing.T) {
	s := newTestStore()
	_, err := s.CreateStructure(model.StructureWrite{Name: model.Ptr("User")})
	require.NoError(t, err)

	tests := []struct {
		name string
		want model.Status
	}{
		{"", model.StatusNameEmpty},
		{"User Profile", model.StatusNameContainsWhitespace},
		{"User", model.StatusNameNotUnique},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateStructure(model.StructureWrite{Name: model.Ptr(tt.name)})
			code, status := statusOf(t, err)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestStructureFieldChangesFollowBindings(t *testing.T) {
	s := newTestStore()
	sc := mustScenario(t, s, "Login Flow")
	step := mustStep(t, s, sc.ID, "Log in")
	st := mustStructure(t, s, "Credentials",
		map[string]model.DataType{"user": model.TypeString, "age": model.TypeNumber}, "user", "age")

	req, err := s.UpdateStepRequest(step.ID, model.RequestWrite{StructureID: model.Ptr(st.ID)})
	require.NoError(t, err)
	require.Len(t, req.Fields, 2)
	for _, f := range req.Fields {
		assert.Equal(t, model.ValueNull, f.Value.ValueType())
	}

	_, err = s.UpdateRequestField(req.Fields[1].ID, model.RequestFieldUpdate{
		ValueType:   model.ValueRandom,
		RandomValue: &model.Range{From: 18, To: 65},
	})
	require.NoError(t, err)

	// Rename keeps the binding.
	ageID := st.Fields[1].ID
	_, err = s.UpdateStructureField(ageID, model.StructureFieldWrite{Name: model.Ptr("years")})
	require.NoError(t, err)
	got, err := s.GetStep(step.ID)
	require.NoError(t, err)
	assert.Equal(t, "years", got.Request.Fields[1].Name)
	assert.Equal(t, model.ValueRandom, got.Request.Fields[1].Value.ValueType())

	// Retype resets it.
	_, err = s.UpdateStructureField(ageID, model.StructureFieldWrite{Type: model.Ptr(model.TypeString)})
	require.NoError(t, err)
	got, _ = s.GetStep(step.ID)
	assert.Equal(t, model.TypeString, got.Request.Fields[1].Type)
	assert.Equal(t, model.ValueNull, got.Request.Fields[1].Value.ValueType())

	// Added fields start as NULL; deleted fields drop their binding.
	_, err = s.CreateStructureField(st.ID, model.StructureFieldWrite{Name: model.Ptr("otp"), Type: model.Ptr(model.TypeString)})
	require.NoError(t, err)
	require.NoError(t, s.DeleteStructureField(st.Fields[0].ID))
	got, _ = s.GetStep(step.ID)
	var names []string
	for _, f := range got.Request.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"years", "otp"}, names)

	require.NoError(t, s.DeleteStructure(st.ID))
	got, _ = s.GetStep(step.ID)
	assert.Nil(t, got.Request.Structure)
	assert.Empty(t, got.Request.Fields)
}

func TestStepOrdering(t *testing.T) {
	s := newTestStore()
	sc := mustScenario(t, s, "Checkout")
	a := mustStep(t, s, sc.ID, "A")
	mustStep(t, s, sc.ID, "B")
	c := mustStep(t, s, sc.ID, "C")

	_, err := s.CreateStep(sc.ID, model.StepWrite{Title: model.Ptr("Z"), Sequence: model.Ptr(1)})
	require.NoError(t, err)
	steps, _ := s.ListSteps(sc.ID)
	assert.Equal(t, []string{"1:Z", "2:A", "3:B", "4:C"}, titles(steps))

	_, err = s.UpdateStep(c.ID, model.StepWrite{Sequence: model.Ptr(2)})
	require.NoError(t, err)
	steps, _ = s.ListSteps(sc.ID)
	assert.Equal(t, []string{"1:Z", "2:C", "3:A", "4:B"}, titles(steps))

	require.NoError(t, s.DeleteStep(a.ID))
	steps, _ = s.ListSteps(sc.ID)
	assert.Equal(t, []string{"1:Z", "2:C", "3:B"}, titles(steps))

	_, err = s.UpdateStep(c.ID, model.StepWrite{Sequence: model.Ptr(4)})
	_, status := statusOf(t, err)
	assert.Equal(t, model.StatusSequenceTooHigh, status)
	steps, _ = s.ListSteps(sc.ID)
	assert.Equal(t, []string{"1:Z", "2:C", "3:B"}, titles(steps), "failed move must not reorder")

	_, err = s.CreateStep(sc.ID, model.StepWrite{Title: model.Ptr("B")})
	_, status = statusOf(t, err)
	assert.Equal(t, model.StatusTitleNotUnique, status)
}

func TestStepResponseStatusRange(t *testing.T) {
	s := newTestStore()
	sc := mustScenario(t, s, "Checkout")
	step := mustStep(t, s, sc.ID, "Pay")
	assert.Equal(t, 200, step.Response.HTTPStatus)
	assert.Equal(t, model.MethodGet, step.Request.Method)

	_, err := s.UpdateStepResponse(step.ID, model.ResponseWrite{HTTPStatus: model.Ptr(600)})
	_, status := statusOf(t, err)
	assert.Equal(t, model.StatusHTTPStatusInvalid, status)

	resp, err := s.UpdateStepResponse(step.ID, model.ResponseWrite{HTTPStatus: model.Ptr(201)})
	require.NoError(t, err)
	assert.Equal(t, 201, resp.HTTPStatus)

	_, err = s.UpdateStepResponse(step.ID, model.ResponseWrite{StructureID: model.Ptr("missing")})
	_, status = statusOf(t, err)
	assert.Equal(t, model.StatusStructureNotFound, status)
}

func TestParameterInUse(t *testing.T) {
	s := newTestStore()
	sc := mustScenario(t, s, "Login Flow")
	step := mustStep(t, s, sc.ID, "Log in")
	st := mustStructure(t, s, "Token", map[string]model.DataType{"token": model.TypeString}, "token")
	p, err := s.CreateParameter(sc.ID, model.ParameterWrite{Name: model.Ptr("token"), InitialValue: model.Ptr("none")})
	require.NoError(t, err)

	resp, err := s.UpdateStepResponse(step.ID, model.ResponseWrite{StructureID: model.Ptr(st.ID)})
	require.NoError(t, err)
	_, err = s.UpdateResponseField(resp.Fields[0].ID, model.ResponseFieldUpdate{
		ValueType:         model.AssertionAny,
		SaveToParameter:   true,
		ParameterToSaveID: model.Ptr(p.ID),
	})
	require.NoError(t, err)

	got, err := s.GetParameter(p.ID)
	require.NoError(t, err)
	require.Len(t, got.Usages, 1)
	assert.Equal(t, model.PlaceResponse, got.Usages[0].Place)
	assert.Equal(t, "Log in", got.Usages[0].Title)

	code, status := statusOf(t, s.DeleteParameter(p.ID))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, model.StatusParameterInUse, status)
}

func TestFieldBindingRejectsForeignParameter(t *testing.T) {
	s := newTestStore()
	login := mustScenario(t, s, "Login Flow")
	other := mustScenario(t, s, "Checkout")
	foreign, err := s.CreateParameter(other.ID, model.ParameterWrite{Name: model.Ptr("cart"), InitialValue: model.Ptr("1")})
	require.NoError(t, err)

	step := mustStep(t, s, login.ID, "Log in")
	st := mustStructure(t, s, "Credentials", map[string]model.DataType{"user": model.TypeString}, "user")
	req, err := s.UpdateStepRequest(step.ID, model.RequestWrite{StructureID: model.Ptr(st.ID)})
	require.NoError(t, err)

	_, err = s.UpdateRequestField(req.Fields[0].ID, model.RequestFieldUpdate{
		ValueType:   model.ValueParameter,
		ParameterID: model.Ptr(foreign.ID),
	})
	_, status := statusOf(t, err)
	assert.Equal(t, model.StatusUnknownParameter, status)

	code, _ := statusOf(t, func() error { _, err := s.UpdateRequestField("nope", model.RequestFieldUpdate{}); return err }())
	assert.Equal(t, http.StatusNotFound, code)
}

func TestScenarioListAndCascade(t *testing.T) {
	s := newTestStore()
	sc := mustScenario(t, s, "Login Flow")
	page := s.ListScenarios(model.PageRequest{})
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "Login Flow", page.Rows[0].Name)
	assert.Equal(t, 0, page.Rows[0].StepsAmount)
	assert.Equal(t, 0, page.Pagination.Page)
	assert.Equal(t, DefaultPageSize, page.Pagination.Size)

	mustStep(t, s, sc.ID, "Log in")
	_, err := s.CreateParameter(sc.ID, model.ParameterWrite{Name: model.Ptr("user"), InitialValue: model.Ptr("bob")})
	require.NoError(t, err)
	assert.Equal(t, 1, s.ListScenarios(model.PageRequest{}).Rows[0].StepsAmount)

	renamed, err := s.UpdateScenario(sc.ID, model.ScenarioWrite{Name: model.Ptr("Sign in")})
	require.NoError(t, err)
	assert.Equal(t, "Sign in", renamed.Name)

	require.NoError(t, s.DeleteScenario(sc.ID))
	_, err = s.ListParameters(sc.ID)
	code, _ := statusOf(t, err)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Empty(t, s.steps)
	assert.Empty(t, s.parameters)
}

func TestPaginate(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	tests := []struct {
		req  model.PageRequest
		want []int
	}{
		{model.PageRequest{Size: 2}, []int{1, 2}},
		{model.PageRequest{Page: 2, Size: 2}, []int{5}},
		{model.PageRequest{Page: 9, Size: 2}, []int{}},
		{model.PageRequest{Page: -1, Size: 1000}, []int{1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		page := paginate(rows, tt.req)
		assert.Equal(t, tt.want, page.Rows)
		assert.Equal(t, 5, page.Total)
	}
}

func TestRandomRangeLimits(t *testing.T) {
	s := newTestStore()
	sc := mustScenario(t, s, "Signup")
	step := mustStep(t, s, sc.ID, "Register")
	st := mustStructure(t, s, "Account",
		map[string]model.DataType{"nick": model.TypeString, "age": model.TypeNumber}, "nick", "age")
	req, err := s.UpdateStepRequest(step.ID, model.RequestWrite{StructureID: model.Ptr(st.ID)})
	require.NoError(t, err)
	nick, age := req.Fields[0].ID, req.Fields[1].ID

	tests := []struct {
		name  string
		field string
		rg    model.Range
		ok    bool
	}{
		{"number beyond exact integers", age, model.Range{From: -9e18, To: 9e18}, false},
		{"number without integer", age, model.Range{From: 0.2, To: 0.8}, false},
		{"number at limits", age, model.Range{From: -model.MaxRandomNumber, To: model.MaxRandomNumber}, true},
		{"string too long", nick, model.Range{From: 1, To: 1e9}, false},
		{"string at limit", nick, model.Range{From: 0, To: model.MaxRandomLength}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.UpdateRequestField(tt.field, model.RequestFieldUpdate{ValueType: model.ValueRandom, RandomValue: &tt.rg})
			if tt.ok {
				require.NoError(t, err)
				return
			}
			code, status := statusOf(t, err)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, model.StatusInvalidRange, status)
		})
	}
}
