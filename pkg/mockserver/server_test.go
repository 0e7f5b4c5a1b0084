package mockserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/stepwise/pkg/model"
	"github.com/blackcoderx/stepwise/pkg/runner"
)

func call(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestServerErrorBodies(t *testing.T) {
	srv := NewServer(Config{})

	rec := call(t, srv, http.MethodGet, "/scenarios/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":"NOT_FOUND"}`, rec.Body.String())

	rec = call(t, srv, http.MethodPost, "/structures", model.StructureWrite{Name: model.Ptr("has space")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"NAME_CONTAINS_WHITESPACE"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/scenarios", strings.NewReader("{"))
	raw := httptest.NewRecorder()
	srv.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
	assert.JSONEq(t, `{"status":"MALFORMED_BODY"}`, raw.Body.String())

	rec = call(t, srv, http.MethodPost, "/scenarios", model.ScenarioWrite{Name: model.Ptr("Login Flow")})
	require.Equal(t, http.StatusCreated, rec.Code)
	sc := decodeInto[model.Scenario](t, rec)
	rec = call(t, srv, http.MethodPost, "/scenarios/"+sc.ID+"/execute", model.StartExecution{BaseURL: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"BASE_URL_EMPTY"}`, rec.Body.String())
}

func TestServerExecutesScenario(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/login":
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"token":"tok-%v"}`, body["user"])
		case "/me":
			if r.URL.Query().Get("token") != "tok-bob" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `{"name":"bob"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer target.Close()

	srv := NewServer(Config{})
	store := srv.Store()
	sc, err := store.CreateScenario(model.ScenarioWrite{Name: model.Ptr("Login Flow")})
	require.NoError(t, err)
	user, err := store.CreateParameter(sc.ID, model.ParameterWrite{Name: model.Ptr("user"), InitialValue: model.Ptr("bob")})
	require.NoError(t, err)
	token, err := store.CreateParameter(sc.ID, model.ParameterWrite{Name: model.Ptr("token"), InitialValue: model.Ptr("none")})
	require.NoError(t, err)

	creds, err := store.CreateStructure(model.StructureWrite{Name: model.Ptr("Credentials")})
	require.NoError(t, err)
	_, err = store.CreateStructureField(creds.ID, model.StructureFieldWrite{Name: model.Ptr("user"), Type: model.Ptr(model.TypeString)})
	require.NoError(t, err)
	tok, err := store.CreateStructure(model.StructureWrite{Name: model.Ptr("Token")})
	require.NoError(t, err)
	_, err = store.CreateStructureField(tok.ID, model.StructureFieldWrite{Name: model.Ptr("token"), Type: model.Ptr(model.TypeString)})
	require.NoError(t, err)

	login, err := store.CreateStep(sc.ID, model.StepWrite{Title: model.Ptr("Log in")})
	require.NoError(t, err)
	req, err := store.UpdateStepRequest(login.ID, model.RequestWrite{
		Method:      model.Ptr(model.MethodPost),
		Endpoint:    model.Ptr("/login"),
		StructureID: model.Ptr(creds.ID),
	})
	require.NoError(t, err)
	_, err = store.UpdateRequestField(req.Fields[0].ID, model.RequestFieldUpdate{ValueType: model.ValueParameter, ParameterID: model.Ptr(user.ID)})
	require.NoError(t, err)
	resp, err := store.UpdateStepResponse(login.ID, model.ResponseWrite{HTTPStatus: model.Ptr(201), StructureID: model.Ptr(tok.ID)})
	require.NoError(t, err)
	_, err = store.UpdateResponseField(resp.Fields[0].ID, model.ResponseFieldUpdate{
		ValueType:         model.AssertionAny,
		SaveToParameter:   true,
		ParameterToSaveID: model.Ptr(token.ID),
	})
	require.NoError(t, err)

	me, err := store.CreateStep(sc.ID, model.StepWrite{Title: model.Ptr("Who am I")})
	require.NoError(t, err)
	_, err = store.UpdateStepRequest(me.ID, model.RequestWrite{Endpoint: model.Ptr("/me?token={{token}}")})
	require.NoError(t, err)

	rec := call(t, srv, http.MethodPost, "/scenarios/"+sc.ID+"/execute", model.StartExecution{BaseURL: target.URL})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	started := decodeInto[model.StartedExecution](t, rec)
	srv.Wait()

	rec = call(t, srv, http.MethodGet, "/executions/"+started.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	exec := decodeInto[model.Execution](t, rec)
	assert.Equal(t, model.ExecutionSuccess, exec.Status)
	assert.Equal(t, "Login Flow", exec.ScenarioName)
	require.Len(t, exec.Steps, 2)
	assert.Equal(t, "/me?token=tok-bob", exec.Steps[1].Endpoint)

	rec = call(t, srv, http.MethodGet, "/executionSteps/"+exec.Steps[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	step := decodeInto[model.ExecutionStep](t, rec)
	assert.Equal(t, started.ID, step.Execution.ID)
	assert.Equal(t, 201, step.Response.ActualHTTPStatus)

	rec = call(t, srv, http.MethodGet, "/scenarios", nil)
	page := decodeInto[model.Page[model.ScenarioInfo]](t, rec)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, 1, page.Rows[0].TestExecutionsAmount)

	// Captured values stay in the execution.
	got, err := store.GetParameter(token.ID)
	require.NoError(t, err)
	assert.Equal(t, "none", got.InitialValue)

	rec = call(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `stepwise_executions_total{status="SUCCESS"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/scenarios/{id}/execute"`)
}

// randomScenario stores a one-step scenario whose request carries a RANDOM
// number drawn from the widest accepted range.
func randomScenario(t *testing.T, store *Store) model.Scenario {
	t.Helper()
	sc, err := store.CreateScenario(model.ScenarioWrite{Name: model.Ptr("Lottery")})
	require.NoError(t, err)
	st, err := store.CreateStructure(model.StructureWrite{Name: model.Ptr("Ticket")})
	require.NoError(t, err)
	_, err = store.CreateStructureField(st.ID, model.StructureFieldWrite{Name: model.Ptr("number"), Type: model.Ptr(model.TypeNumber)})
	require.NoError(t, err)
	step, err := store.CreateStep(sc.ID, model.StepWrite{Title: model.Ptr("Draw")})
	require.NoError(t, err)
	req, err := store.UpdateStepRequest(step.ID, model.RequestWrite{
		Method:      model.Ptr(model.MethodPost),
		Endpoint:    model.Ptr("/draw"),
		StructureID: model.Ptr(st.ID),
	})
	require.NoError(t, err)
	_, err = store.UpdateRequestField(req.Fields[0].ID, model.RequestFieldUpdate{
		ValueType:   model.ValueRandom,
		RandomValue: &model.Range{From: -model.MaxRandomNumber, To: model.MaxRandomNumber},
	})
	require.NoError(t, err)
	return sc
}

func TestServerConcurrentRandomExecutions(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	}))
	defer target.Close()

	srv := NewServer(Config{})
	sc := randomScenario(t, srv.Store())

	const runs = 20
	var wg sync.WaitGroup
	body := fmt.Sprintf(`{"baseUrl":%q}`, target.URL)
	recs := make([]*httptest.ResponseRecorder, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recs[i] = httptest.NewRecorder()
			srv.ServeHTTP(recs[i], httptest.NewRequest(http.MethodPost, "/scenarios/"+sc.ID+"/execute", strings.NewReader(body)))
		}(i)
	}
	wg.Wait()
	srv.Wait()

	for _, rec := range recs {
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		started := decodeInto[model.StartedExecution](t, rec)
		exec, err := srv.Store().GetExecution(started.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ExecutionSuccess, exec.Status)
	}
}

func TestServerFailsExecutionOnPanic(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer target.Close()

	srv := NewServer(Config{Runner: runner.Options{
		Observer: func(model.ExecutionStep) { panic("observer exploded") },
	}})
	sc := randomScenario(t, srv.Store())

	rec := call(t, srv, http.MethodPost, "/scenarios/"+sc.ID+"/execute", model.StartExecution{BaseURL: target.URL})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	started := decodeInto[model.StartedExecution](t, rec)
	srv.Wait()

	exec, err := srv.Store().GetExecution(started.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionFailed, exec.Status)
	assert.NotNil(t, exec.FinishDate)
}
