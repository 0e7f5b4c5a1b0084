package assertion

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/stepwise/pkg/model"
)

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	return payload
}

func TestInferType(t *testing.T) {
	payload := decode(t, `{"s":"x","n":1.5,"b":false,"o":{},"a":[],"z":null}`)
	assert.Equal(t, model.TypeString, InferType(payload["s"]))
	assert.Equal(t, model.TypeNumber, InferType(payload["n"]))
	assert.Equal(t, model.TypeBoolean, InferType(payload["b"]))
	assert.Equal(t, model.TypeUnknown, InferType(payload["o"]))
	assert.Equal(t, model.TypeUnknown, InferType(payload["a"]))
	assert.Equal(t, model.TypeUnknown, InferType(payload["z"]))
}

func TestProject(t *testing.T) {
	params := map[string]string{"p-user": "42"}
	tests := []struct {
		name   string
		field  model.ResponseField
		body   string
		status model.AssertionStatus
	}{
		{"any present", field(model.TypeString, model.AssertAny{}), `{"v":"x"}`, model.AssertionSuccess},
		{"any absent", field(model.TypeString, model.AssertAny{}), `{}`, model.AssertionFieldDoesntExist},
		{"any null", field(model.TypeString, model.AssertAny{}), `{"v":null}`, model.AssertionFieldDoesntExist},
		{"any wrong type", field(model.TypeString, model.AssertAny{}), `{"v":1}`, model.AssertionTypeMismatch},
		{"null absent", field(model.TypeString, model.AssertNull{}), `{}`, model.AssertionSuccess},
		{"null null", field(model.TypeNumber, model.AssertNull{}), `{"v":null}`, model.AssertionSuccess},
		{"null present", field(model.TypeNumber, model.AssertNull{}), `{"v":3}`, model.AssertionValueMismatch},
		{"strict number", field(model.TypeNumber, model.AssertStrict{Value: "42"}), `{"v":42.0}`, model.AssertionSuccess},
		{"strict boolean case", field(model.TypeBoolean, model.AssertStrict{Value: "TRUE"}), `{"v":true}`, model.AssertionSuccess},
		{"strict mismatch", field(model.TypeString, model.AssertStrict{Value: "Bob"}), `{"v":"Alice"}`, model.AssertionValueMismatch},
		{"strict absent wins over value", field(model.TypeString, model.AssertStrict{Value: "Bob"}), `{}`, model.AssertionFieldDoesntExist},
		{"strict type wins over value", field(model.TypeString, model.AssertStrict{Value: "1"}), `{"v":1}`, model.AssertionTypeMismatch},
		{"parameter match", field(model.TypeNumber, model.AssertParameter{ParameterID: "p-user"}), `{"v":42}`, model.AssertionSuccess},
		{"parameter mismatch", field(model.TypeNumber, model.AssertParameter{ParameterID: "p-user"}), `{"v":7}`, model.AssertionWrongParameterValue},
		{"parameter unresolved", field(model.TypeNumber, model.AssertParameter{ParameterID: "gone"}), `{"v":7}`, model.AssertionWrongParameterValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project([]model.ResponseField{tt.field}, decode(t, tt.body), params)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.status, got[0].AssertionStatus)
			assert.Equal(t, tt.field.Type, got[0].ExpectedValueType)
			assert.Equal(t, tt.field.Assertion.Mode(), got[0].AssertionMode)
		})
	}
}

func TestProjectRecords(t *testing.T) {
	fields := []model.ResponseField{
		{ID: "f1", Name: "name", Type: model.TypeString, Assertion: model.AssertStrict{Value: "Bob"}},
		{ID: "f2", Name: "age", Type: model.TypeNumber, Assertion: model.AssertAny{}},
	}
	got := Project(fields, decode(t, `{"name":"Alice","age":30,"zeta":1,"alpha":"x"}`), nil)
	require.Len(t, got, 4)

	assert.Equal(t, "Bob", *got[0].ExpectedValue)
	assert.Equal(t, "Alice", *got[0].ActualValue)
	assert.Equal(t, model.AssertionValueMismatch, got[0].AssertionStatus)

	assert.Nil(t, got[1].ExpectedValue)
	assert.Equal(t, "30", *got[1].ActualValue)

	assert.Equal(t, "alpha", got[2].Name)
	assert.Equal(t, "zeta", got[3].Name)
	assert.Equal(t, model.AssertionUnknownField, got[2].AssertionStatus)

	resp := model.ExecutionResponse{ExpectedHTTPStatus: 200, ActualHTTPStatus: 200, Fields: got[1:]}
	assert.True(t, resp.Passed(), "unknown fields must not fail a response")
}

func TestCaptures(t *testing.T) {
	fields := []model.ResponseField{
		{Name: "token", Type: model.TypeString, Assertion: model.AssertAny{}, Capture: "p-token"},
		{Name: "id", Type: model.TypeNumber, Assertion: model.AssertAny{}, Capture: "p-id"},
		{Name: "gone", Type: model.TypeString, Assertion: model.AssertNull{}, Capture: "p-gone"},
		{Name: "plain", Type: model.TypeString, Assertion: model.AssertAny{}},
	}
	got := Captures(fields, decode(t, `{"token":"abc","id":17.0,"plain":"x"}`))
	assert.Equal(t, map[string]string{"p-token": "abc", "p-id": "17"}, got)
}

func TestValidatePayload(t *testing.T) {
	s := &model.Structure{Name: "User", Fields: []model.StructureField{
		{Name: "name", Type: model.TypeString},
		{Name: "age", Type: model.TypeNumber},
	}}

	issues, err := ValidatePayload(s, []byte(`{"name":"Bob","age":null,"extra":true}`))
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = ValidatePayload(s, []byte(`{"name":5}`))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "name")

	_, err = ValidatePayload(s, []byte(`not json`))
	assert.Error(t, err)
}

func field(t model.DataType, a model.ResponseAssertion) model.ResponseField {
	return model.ResponseField{ID: "f", Name: "v", Type: t, Assertion: a}
}
