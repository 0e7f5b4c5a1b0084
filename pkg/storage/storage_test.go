package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/stepwise/pkg/client"
	"github.com/blackcoderx/stepwise/pkg/model"
)

func TestSubstituteVariables(t *testing.T) {
	t.Setenv("STEPWISE_TEST_HOST", "api.local")
	vars := map[string]string{"userId": "7"}
	tests := []struct {
		in, want string
	}{
		{"/users/{{userId}}", "/users/7"},
		{"/users/{{ userId }}/posts", "/users/7/posts"},
		{"https://{{env:STEPWISE_TEST_HOST}}/x", "https://api.local/x"},
		{"/users/{{missing}}", "/users/{{missing}}"},
		{"{{env:STEPWISE_UNSET_VAR}}", "{{env:STEPWISE_UNSET_VAR}}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SubstituteVariables(tt.in, vars), tt.in)
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Placeholders("/{{a}}/{{env:HOME}}/{{b}}/{{a}}"))
	assert.Empty(t, Placeholders("/plain"))
}

func TestEnvironmentRoundTrip(t *testing.T) {
	t.Setenv("STEPWISE_TEST_SECRET", "s3cret")
	dir := t.TempDir()
	env := &Environment{
		Backend: "http://localhost:8080",
		Target:  "http://{{host}}:3000",
		Auth: client.Credentials{
			Flow:         client.AuthClientCredentials,
			TokenURL:     "http://{{host}}/token",
			ClientID:     "console",
			ClientSecret: "{{env:STEPWISE_TEST_SECRET}}",
		},
		Variables: map[string]string{"host": "target.local"},
	}
	require.NoError(t, SaveEnvironment(env, filepath.Join(GetEnvironmentsDir(dir), "staging")))

	names, err := ListEnvironments(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"staging"}, names)

	got, err := LoadEnvironment(EnvironmentPath(dir, "staging"))
	require.NoError(t, err)
	assert.Equal(t, "staging", got.Name)
	assert.Equal(t, "http://target.local:3000", got.Target)
	assert.Equal(t, "http://target.local/token", got.Auth.TokenURL)
	assert.Equal(t, "s3cret", got.Auth.ClientSecret)
}

func TestListEnvironmentsMissingDir(t *testing.T) {
	names, err := ListEnvironments(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

const loginBundle = `version: 1
scenario: Login Flow
structures:
  - name: Credentials
    fields:
      - {name: user, type: STRING}
      - {name: age, type: NUMBER}
  - name: Token
    fields:
      - {name: token, type: STRING}
parameters:
  - {name: login, initialValue: bob}
  - {name: token, initialValue: none}
steps:
  - title: Log in
    request:
      method: POST
      endpoint: /login
      structure: Credentials
      fields:
        user: {valueType: PARAMETER, parameter: login}
        age: {valueType: RANDOM, range: {from: 18, to: 65}}
    response:
      httpStatus: 201
      structure: Token
      fields:
        token: {mode: ANY, saveTo: token}
`

func TestLoadBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "login.yaml")
	require.NoError(t, os.WriteFile(path, []byte(loginBundle), 0644))

	b, err := LoadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, "Login Flow", b.Scenario)
	require.Len(t, b.Steps, 1)
	step := b.Steps[0]
	assert.Equal(t, model.MethodPost, step.Request.Method)
	assert.Equal(t, &model.Range{From: 18, To: 65}, step.Request.Fields["age"].Range)
	assert.Equal(t, "token", step.Response.Fields["token"].SaveTo)

	ids := map[string]string{"login": "p1", "token": "p2"}
	u := step.Request.Fields["user"].Update(ids)
	assert.Equal(t, model.ValueParameter, u.ValueType)
	assert.Equal(t, "p1", *u.ParameterID)
	r := step.Response.Fields["token"].Update(ids)
	assert.True(t, r.SaveToParameter)
	assert.Equal(t, "p2", *r.ParameterToSaveID)
}

func TestBundleValidate(t *testing.T) {
	base := func() *Bundle {
		return &Bundle{
			Scenario:   "Login Flow",
			Structures: []BundleStructure{{Name: "Token", Fields: []BundleField{{Name: "token", Type: model.TypeString}}}},
			Parameters: []BundleParameter{{Name: "token", InitialValue: "none"}},
			Steps: []BundleStep{{
				Title:    "Log in",
				Request:  BundleRequest{Method: model.MethodPost, Endpoint: "/login"},
				Response: BundleResponse{HTTPStatus: 201, Structure: "Token", Fields: map[string]ResponseBinding{"token": {Mode: model.AssertionAny, SaveTo: "token"}}},
			}},
		}
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(b *Bundle)
		want   string
	}{
		{"unknown parameter", func(b *Bundle) {
			b.Steps[0].Response.Fields["token"] = ResponseBinding{Mode: model.AssertionParameter, Parameter: "userId"}
		}, "UNKNOWN_PARAMETER"},
		{"unknown structure", func(b *Bundle) { b.Steps[0].Response.Structure = "User" }, "STRUCTURE_NOT_FOUND"},
		{"unknown field", func(b *Bundle) {
			b.Steps[0].Response.Fields["id"] = ResponseBinding{Mode: model.AssertionAny}
		}, `field "id" is not in structure`},
		{"duplicate title", func(b *Bundle) { b.Steps = append(b.Steps, b.Steps[0]) }, "TITLE_NOT_UNIQUE"},
		{"bad status", func(b *Bundle) { b.Steps[0].Response.HTTPStatus = 42 }, "HTTP_STATUS_INVALID"},
		{"parameter with space", func(b *Bundle) { b.Parameters[0].Name = "my token" }, "NAME_CONTAINS_WHITESPACE"},
		{"empty scenario", func(b *Bundle) { b.Scenario = " " }, "NAME_EMPTY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := base()
			tt.mutate(b)
			err := b.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBindingConversions(t *testing.T) {
	names := map[string]string{"p1": "login"}
	assert.Equal(t, RequestBinding{ValueType: model.ValueParameter, Parameter: "login"},
		RequestBindingOf(model.ParameterValue{ParameterID: "p1"}, names))
	assert.Equal(t, RequestBinding{ValueType: model.ValueNull}, RequestBindingOf(model.NullValue{}, names))

	rb := ResponseBindingOf(model.ResponseField{Assertion: model.AssertStrict{Value: "Bob"}, Capture: "p1"}, names)
	assert.Equal(t, model.AssertionStrict, rb.Mode)
	assert.Equal(t, "Bob", *rb.Value)
	assert.Equal(t, "login", rb.SaveTo)
}

func TestBundleSaveAndList(t *testing.T) {
	dir := t.TempDir()
	b := &Bundle{Scenario: "Login Flow", Steps: []BundleStep{{Title: "Ping", Request: BundleRequest{Method: model.MethodGet, Endpoint: "/"}, Response: BundleResponse{HTTPStatus: 200}}}}
	path := BundlePath(dir, b.Scenario)
	assert.Equal(t, "login-flow.yaml", filepath.Base(path))
	require.NoError(t, SaveBundle(b, path))

	names, err := ListBundles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"login-flow"}, names)

	got, err := LoadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, BundleVersion, got.Version)
	assert.Equal(t, b.Steps, got.Steps)
}
