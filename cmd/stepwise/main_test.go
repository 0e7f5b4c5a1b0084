package main

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/client"
	"github.com/blackcoderx/stepwise/pkg/mockserver"
	"github.com/blackcoderx/stepwise/pkg/model"
)

func newBackend(t *testing.T) *client.Client {
	t.Helper()
	ts := httptest.NewServer(mockserver.NewServer(mockserver.Config{}))
	t.Cleanup(ts.Close)
	return client.New(ts.URL)
}

func TestParseFields(t *testing.T) {
	fields, err := parseFields([]string{"username:string", "age:NUMBER", "admin:Boolean"})
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, "username", *fields[0].Name)
	assert.Equal(t, model.TypeString, *fields[0].Type)
	assert.Equal(t, model.TypeNumber, *fields[1].Type)
	assert.Equal(t, model.TypeBoolean, *fields[2].Type)

	_, err = parseFields([]string{"username"})
	assert.ErrorContains(t, err, "NAME:TYPE")

	_, err = parseFields([]string{"when:date"})
	assert.ErrorContains(t, err, "invalid type")
}

func TestParseRange(t *testing.T) {
	r, err := parseRange("18:99")
	require.NoError(t, err)
	assert.Equal(t, model.Range{From: 18, To: 99}, r)

	r, err = parseRange(" -1.5 : 2 ")
	require.NoError(t, err)
	assert.Equal(t, model.Range{From: -1.5, To: 2}, r)

	for _, bad := range []string{"18", "a:2", "1:b"} {
		_, err := parseRange(bad)
		assert.Error(t, err, bad)
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "********", mask("CLIENT_SECRET", "supersecretvalue"))
	assert.Equal(t, "***", mask("api_key", "abc"))
	assert.Equal(t, "http://localhost", mask("HOST", "http://localhost"))
}

func TestFindStep(t *testing.T) {
	sc := &model.Scenario{Name: "Login", Steps: []model.StepInfo{
		{ID: "a", Title: "Sign up", Sequence: 1},
		{ID: "b", Title: "Sign in", Sequence: 2},
	}}

	for _, ref := range []string{"b", "Sign in", "2"} {
		st, err := findStep(sc, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, "b", st.ID)
	}
	_, err := findStep(sc, "3")
	assert.ErrorContains(t, err, "not found")
}

func TestFindScenarioWalksPages(t *testing.T) {
	ctx := context.Background()
	c := newBackend(t)

	var last *model.Scenario
	for i := 0; i < listPageSize+5; i++ {
		sc, err := c.CreateScenario(ctx, model.ScenarioWrite{Name: model.Ptr(fmt.Sprintf("Scenario %03d", i))})
		require.NoError(t, err)
		last = sc
	}

	got, err := findScenario(ctx, c, last.Name)
	require.NoError(t, err)
	assert.Equal(t, last.ID, got.ID)

	got, err = findScenario(ctx, c, last.ID)
	require.NoError(t, err)
	assert.Equal(t, last.Name, got.Name)

	_, err = findScenario(ctx, c, "missing")
	assert.ErrorContains(t, err, `scenario "missing" not found`)
}

func TestFindStructure(t *testing.T) {
	ctx := context.Background()
	c := newBackend(t)

	st, err := c.CreateStructure(ctx, model.StructureWrite{Name: model.Ptr("Credentials")})
	require.NoError(t, err)

	got, err := findStructure(ctx, c, "Credentials")
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)

	_, err = findStructure(ctx, c, "Token")
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	ctx := context.Background()
	c := newBackend(t)

	_, err := c.CreateScenario(ctx, model.ScenarioWrite{Name: model.Ptr("")})
	require.Error(t, err)
	assert.Equal(t, "name: Name is empty", describe(err))

	re := &client.ReferentialError{Violation: &binding.Violation{Field: model.FieldParameterID, Code: model.StatusUnknownParameter}}
	assert.Equal(t, "parameterId: Unknown parameter", describe(re))

	assert.Equal(t, "boom", describe(fmt.Errorf("boom")))
}

func TestUsages(t *testing.T) {
	assert.Equal(t, "-", usages(model.Parameter{}))
	p := model.Parameter{Usages: []model.ParameterUsage{
		{Title: "Sign in", Place: model.PlaceRequest},
		{Title: "Profile", Place: model.PlaceResponse},
	}}
	assert.Equal(t, "Sign in (request), Profile (response)", usages(p))
}
