package runner

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/stepwise/pkg/model"
	"github.com/blackcoderx/stepwise/pkg/storage"
)

func loginBundle() *storage.Bundle {
	return &storage.Bundle{
		Scenario: "Login Flow",
		Structures: []storage.BundleStructure{
			{Name: "Credentials", Fields: []storage.BundleField{{Name: "user", Type: model.TypeString}}},
			{Name: "Session", Fields: []storage.BundleField{
				{Name: "token", Type: model.TypeString},
				{Name: "userId", Type: model.TypeNumber},
			}},
		},
		Parameters: []storage.BundleParameter{
			{Name: "login", InitialValue: "bob"},
			{Name: "userId", InitialValue: "0"},
		},
		Steps: []storage.BundleStep{
			{
				Title: "Log in",
				Request: storage.BundleRequest{
					Method: model.MethodPost, Endpoint: "/login", Structure: "Credentials",
					Fields: map[string]storage.RequestBinding{"user": {ValueType: model.ValueParameter, Parameter: "login"}},
				},
				Response: storage.BundleResponse{
					HTTPStatus: 201, Structure: "Session",
					Fields: map[string]storage.ResponseBinding{
						"token":  {Mode: model.AssertionStrict, Value: model.Ptr("tok-bob")},
						"userId": {Mode: model.AssertionAny, SaveTo: "userId"},
					},
				},
			},
			{
				Title:    "Fetch user",
				Request:  storage.BundleRequest{Endpoint: "/users/{{userId}}"},
				Response: storage.BundleResponse{},
			},
		},
	}
}

func TestPlanFromBundle(t *testing.T) {
	plan, err := PlanFromBundle(loginBundle())
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)

	login := plan.Steps[0]
	require.Len(t, login.Request.Fields, 1)
	assert.Equal(t, model.ParameterValue{ParameterID: "parameter:login"}, login.Request.Fields[0].Value)
	require.Len(t, login.Response.Fields, 2)
	assert.Equal(t, "parameter:userId", login.Response.Fields[1].Capture)

	fetch := plan.Steps[1]
	assert.Equal(t, model.MethodGet, fetch.Request.Method)
	assert.Equal(t, 200, fetch.Response.HTTPStatus)
	assert.Equal(t, 2, fetch.Sequence)
}

func TestPlanFromBundleRunsOffline(t *testing.T) {
	api := httptest.NewServer(&loginAPI{})
	defer api.Close()

	plan, err := PlanFromBundle(loginBundle())
	require.NoError(t, err)
	res, err := New(Options{}).Run(context.Background(), plan, api.URL)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionSuccess, res.Execution.Status)
	assert.Equal(t, "/users/7", res.Steps[1].Request.ActualEndpoint)
}

func TestPlanFromBundleRejectsBadBinding(t *testing.T) {
	b := loginBundle()
	b.Steps[0].Request.Fields["user"] = storage.RequestBinding{ValueType: model.ValueRandom, Range: &model.Range{From: 5, To: 1}}
	_, err := PlanFromBundle(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `step "Log in" request field "user"`)
	assert.Contains(t, err.Error(), string(model.StatusInvalidRange))
}
