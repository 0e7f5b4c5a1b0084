package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/client"
	"github.com/blackcoderx/stepwise/pkg/mockserver"
	"github.com/blackcoderx/stepwise/pkg/model"
)

func newBackend(t *testing.T) (*client.Client, *mockserver.Server) {
	t.Helper()
	srv := mockserver.NewServer(mockserver.Config{})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return client.New(ts.URL), srv
}

func TestScenarioLifecycle(t *testing.T) {
	ctx := context.Background()
	c, _ := newBackend(t)

	sc, err := c.CreateScenario(ctx, model.ScenarioWrite{Name: model.Ptr("Login Flow")})
	require.NoError(t, err)

	page, err := c.ListScenarios(ctx, model.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "Login Flow", page.Rows[0].Name)
	assert.Equal(t, 0, page.Rows[0].StepsAmount)
	assert.Equal(t, 1, page.Total)

	_, err = c.CreateScenario(ctx, model.ScenarioWrite{Name: model.Ptr("Login Flow")})
	var ve *client.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, model.StatusNameNotUnique, ve.Status)
	assert.Equal(t, model.FieldName, ve.Field)
	assert.Equal(t, http.StatusBadRequest, ve.HTTPStatus)

	require.NoError(t, c.DeleteScenario(ctx, sc.ID))
	_, err = c.GetScenario(ctx, sc.ID)
	assert.True(t, client.IsNotFound(err))
}

func TestStructureNameCheckedBeforeSend(t *testing.T) {
	c := client.New("http://127.0.0.1:0")
	_, err := c.CreateStructure(context.Background(), model.StructureWrite{Name: model.Ptr("User Profile")})
	var ve *client.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, model.StatusNameContainsWhitespace, ve.Status)
	assert.Zero(t, ve.HTTPStatus)
}

func TestStepBindingRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newBackend(t)

	sc, err := c.CreateScenario(ctx, model.ScenarioWrite{Name: model.Ptr("Login Flow")})
	require.NoError(t, err)
	other, err := c.CreateScenario(ctx, model.ScenarioWrite{Name: model.Ptr("Checkout")})
	require.NoError(t, err)
	login, err := c.CreateParameter(ctx, sc.ID, model.ParameterWrite{Name: model.Ptr("login"), InitialValue: model.Ptr("bob")})
	require.NoError(t, err)
	foreign, err := c.CreateParameter(ctx, other.ID, model.ParameterWrite{Name: model.Ptr("cart"), InitialValue: model.Ptr("1")})
	require.NoError(t, err)

	st, err := c.CreateStructure(ctx, model.StructureWrite{Name: model.Ptr("Credentials")})
	require.NoError(t, err)
	_, err = c.CreateStructureField(ctx, st.ID, model.StructureFieldWrite{Name: model.Ptr("user"), Type: model.Ptr(model.TypeString)})
	require.NoError(t, err)

	step, err := c.CreateStep(ctx, sc.ID, model.StepWrite{Title: model.Ptr("Log in")})
	require.NoError(t, err)
	assert.Equal(t, 1, step.Sequence)

	req, err := c.UpdateStepRequest(ctx, step.ID, model.RequestWrite{
		Method:      model.Ptr(model.MethodPost),
		Endpoint:    model.Ptr("/login"),
		StructureID: model.Ptr(st.ID),
	})
	require.NoError(t, err)
	require.Len(t, req.Fields, 1)
	assert.Equal(t, model.ValueNull, req.Fields[0].Value.ValueType())

	params, err := c.ListParameters(ctx, sc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, params)
	for _, p := range params {
		assert.Equal(t, sc.ID, p.ScenarioID, "listed parameters carry their scenario")
	}
	set := binding.NewParameterSet(sc.ID, params)

	_, err = c.UpdateRequestField(ctx, req.Fields[0], model.RequestFieldUpdate{
		ValueType:   model.ValueParameter,
		ParameterID: model.Ptr(foreign.ID),
	}, set)
	var re *client.ReferentialError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, model.StatusUnknownParameter, re.Violation.Code)

	f, err := c.UpdateRequestField(ctx, req.Fields[0], model.RequestFieldUpdate{
		ValueType:   model.ValueParameter,
		ParameterID: model.Ptr(login.ID),
	}, set)
	require.NoError(t, err)
	assert.Equal(t, model.ParameterValue{ParameterID: login.ID}, f.Value)

	got, err := c.GetParameter(ctx, login.ID)
	require.NoError(t, err)
	require.Len(t, got.Usages, 1)
	assert.Equal(t, model.PlaceRequest, got.Usages[0].Place)

	err = c.DeleteParameter(ctx, login.ID)
	var ve *client.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, model.StatusParameterInUse, ve.Status)
	assert.Equal(t, http.StatusConflict, ve.HTTPStatus)
}

func TestMoveStep(t *testing.T) {
	ctx := context.Background()
	c, _ := newBackend(t)
	sc, err := c.CreateScenario(ctx, model.ScenarioWrite{Name: model.Ptr("Checkout")})
	require.NoError(t, err)
	var ids []string
	for _, title := range []string{"A", "B", "C"} {
		s, err := c.CreateStep(ctx, sc.ID, model.StepWrite{Title: model.Ptr(title)})
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}

	_, err = c.MoveStep(ctx, ids[2], 1)
	require.NoError(t, err)
	steps, err := c.ListSteps(ctx, sc.ID)
	require.NoError(t, err)
	var order []string
	for _, s := range steps {
		order = append(order, s.Title)
	}
	assert.Equal(t, []string{"C", "A", "B"}, order)

	_, err = c.MoveStep(ctx, ids[0], 0)
	var ve *client.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, model.StatusSequenceLessThanOne, ve.Status)
	assert.Zero(t, ve.HTTPStatus, "rejected before sending")
}

func TestExecutionThroughClient(t *testing.T) {
	ctx := context.Background()
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer target.Close()

	c, srv := newBackend(t)
	sc, err := c.CreateScenario(ctx, model.ScenarioWrite{Name: model.Ptr("Ping")})
	require.NoError(t, err)
	step, err := c.CreateStep(ctx, sc.ID, model.StepWrite{Title: model.Ptr("Ping")})
	require.NoError(t, err)
	_, err = c.UpdateStepResponse(ctx, step.ID, model.ResponseWrite{HTTPStatus: model.Ptr(204)})
	require.NoError(t, err)

	_, err = c.StartExecution(ctx, sc.ID, "")
	var ve *client.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, model.StatusBaseURLEmpty, ve.Status)

	started, err := c.StartExecution(ctx, sc.ID, target.URL)
	require.NoError(t, err)
	srv.Wait()

	exec, err := c.WaitExecution(ctx, started.ID, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionSuccess, exec.Status)
	require.Len(t, exec.Steps, 1)

	rec, err := c.GetExecutionStep(ctx, exec.Steps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 204, rec.Response.ActualHTTPStatus)
	assert.Equal(t, model.StepSuccess, rec.Status)

	list, err := c.ListExecutions(ctx, model.PageRequest{})
	require.NoError(t, err)
	require.Len(t, list.Rows, 1)
	assert.Equal(t, started.ID, list.Rows[0].ID)
}

func TestGateRejectsConcurrentWrite(t *testing.T) {
	gate := client.NewGate()
	c := client.New("http://127.0.0.1:0", client.WithGate(gate))
	release, err := gate.Acquire("scenario:s1")
	require.NoError(t, err)

	_, err = c.UpdateScenario(context.Background(), "s1", model.ScenarioWrite{Name: model.Ptr("x")})
	assert.ErrorIs(t, err, client.ErrSubmissionInFlight)

	release()
	release()
	assert.False(t, gate.Busy("scenario:s1"))
}

func TestNetworkErrors(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scenarios/bad-json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("{not json"))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer broken.Close()
	c := client.New(broken.URL)

	_, err := c.GetScenario(context.Background(), "bad-json")
	var ne *client.NetworkError
	require.ErrorAs(t, err, &ne)

	_, err = c.GetScenario(context.Background(), "other")
	require.ErrorAs(t, err, &ne)

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	_, err = client.New(closed.URL).ListScenarios(context.Background(), model.PageRequest{})
	require.ErrorAs(t, err, &ne)
	assert.False(t, errors.Is(err, client.ErrSubmissionInFlight))
}
