package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepResponseWireShape(t *testing.T) {
	body := `{
		"id": "resp-1",
		"httpStatus": 201,
		"structure": {"id": "st-1", "name": "Token"},
		"fields": [
			{"id": "f1", "name": "token", "fieldType": "STRING", "valueType": "ANY", "strictValue": null,
			 "parameterToReadId": null, "saveToParameter": true, "parameterToSaveId": "p-token"},
			{"id": "f2", "name": "userId", "fieldType": "NUMBER", "valueType": "PARAMETER",
			 "parameterToReadId": "p-user", "saveToParameter": false}
		]
	}`

	var resp StepResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.Len(t, resp.Fields, 2)

	assert.Equal(t, AssertAny{}, resp.Fields[0].Assertion)
	assert.Equal(t, "p-token", resp.Fields[0].Capture)
	assert.Equal(t, AssertParameter{ParameterID: "p-user"}, resp.Fields[1].Assertion)
	assert.False(t, resp.Fields[1].SaveToParameter())
}

func TestRequestFieldWireShape(t *testing.T) {
	field := RequestField{ID: "f1", Name: "age", Type: TypeNumber, Value: RandomValue{Range: Range{From: 18, To: 65}}}
	data, err := json.Marshal(field)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "RANDOM", raw["valueType"])
	assert.Equal(t, "NUMBER", raw["fieldType"])
	assert.Nil(t, raw["strictValue"])
	assert.Nil(t, raw["parameterId"])
	assert.Equal(t, map[string]any{"from": 18.0, "to": 65.0}, raw["randomValue"])
}

func TestDecodeIgnoresSiblingMaterials(t *testing.T) {
	u := RequestFieldUpdate{ValueType: ValueStrict, StrictValue: Ptr("x"), ParameterID: Ptr("p")}
	v, err := u.Decode()
	require.NoError(t, err)
	assert.Equal(t, StrictValue{Value: "x"}, v)

	_, err = RequestFieldUpdate{ValueType: ValueRandom}.Decode()
	assert.Error(t, err)
}

func TestCheckName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Status
	}{
		{"ok", "userId", ""},
		{"empty", "", StatusNameEmpty},
		{"whitespace", "user id", StatusNameContainsWhitespace},
		{"too long", string(make([]byte, MaxNameLength+1)), StatusNameTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckName(tt.in))
		})
	}
	assert.Equal(t, Status(""), CheckScenarioName("Login Flow"))
	assert.Equal(t, FieldName, StatusNameEmpty.Field())
}
