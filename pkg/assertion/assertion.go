// Package assertion judges an actual response payload against the response
// fields of a step and projects the verdicts into execution records.
package assertion

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/model"
)

// InferType returns the data type of a decoded JSON value. Objects, arrays
// and null are UNKNOWN.
func InferType(raw any) model.DataType {
	switch v := raw.(type) {
	case string:
		return model.TypeString
	case float64, float32, int, int64, int32:
		return model.TypeNumber
	case json.Number:
		if _, err := v.Float64(); err == nil {
			return model.TypeNumber
		}
		return model.TypeUnknown
	case bool:
		return model.TypeBoolean
	default:
		return model.TypeUnknown
	}
}

// Canonical renders a decoded JSON value as the string stored in execution
// records and parameters. Numbers lose trailing zeros, objects and arrays are
// re-encoded as compact JSON.
func Canonical(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return binding.FormatNumber(v)
	case float32:
		return binding.FormatNumber(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return binding.FormatNumber(f)
		}
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// Equal compares an actual value with an expected literal under the rules of
// the declared type: numbers numerically, booleans without regard to case,
// strings exactly.
func Equal(declared model.DataType, actual any, expected string) bool {
	switch declared {
	case model.TypeNumber:
		want, err := strconv.ParseFloat(strings.TrimSpace(expected), 64)
		if err != nil {
			return false
		}
		got, err := strconv.ParseFloat(Canonical(actual), 64)
		if err != nil {
			return false
		}
		return got == want || math.Abs(got-want) <= 1e-9*math.Max(math.Abs(got), math.Abs(want))
	case model.TypeBoolean:
		return strings.EqualFold(strings.TrimSpace(expected), Canonical(actual))
	default:
		return Canonical(actual) == expected
	}
}

// Project judges payload against fields and returns one record per declared
// field, in declaration order, followed by one UNKNOWN_FIELD record per
// undeclared payload key sorted by name. params holds the current value of
// every parameter by ID.
//
// The checks run in a fixed order and the first failing one decides the
// status: existence, then type, then the mode's value check. A JSON null
// counts as absent.
func Project(fields []model.ResponseField, payload map[string]any, params map[string]string) []model.ExecutionResponseField {
	out := make([]model.ExecutionResponseField, 0, len(fields)+len(payload))
	declared := make(map[string]bool, len(fields))

	for _, f := range fields {
		declared[f.Name] = true
		raw, present := payload[f.Name]
		out = append(out, judge(f, raw, present, params))
	}

	var extra []string
	for name := range payload {
		if !declared[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		raw := payload[name]
		out = append(out, model.ExecutionResponseField{
			Name:              name,
			ExpectedValueType: model.TypeUnknown,
			ActualValueType:   InferType(raw),
			ActualValue:       actualValue(raw, true),
			AssertionStatus:   model.AssertionUnknownField,
		})
	}
	return out
}

func judge(f model.ResponseField, raw any, present bool, params map[string]string) model.ExecutionResponseField {
	assertion := f.Assertion
	if assertion == nil {
		assertion = model.AssertAny{}
	}
	rec := model.ExecutionResponseField{
		ID:                f.ID,
		Name:              f.Name,
		AssertionMode:     assertion.Mode(),
		ExpectedValueType: f.Type,
		ActualValueType:   model.TypeUnknown,
		ActualValue:       actualValue(raw, present),
	}
	if present {
		rec.ActualValueType = InferType(raw)
	}

	switch a := assertion.(type) {
	case model.AssertNull:
		if present && raw != nil {
			rec.AssertionStatus = model.AssertionValueMismatch
		} else {
			rec.AssertionStatus = model.AssertionSuccess
		}
		return rec
	case model.AssertStrict:
		rec.ExpectedValue = model.Ptr(a.Value)
	case model.AssertParameter:
		if v, ok := params[a.ParameterID]; ok {
			rec.ExpectedValue = model.Ptr(v)
		}
	}

	switch {
	case !present || raw == nil:
		rec.AssertionStatus = model.AssertionFieldDoesntExist
	case rec.ActualValueType != f.Type:
		rec.AssertionStatus = model.AssertionTypeMismatch
	default:
		rec.AssertionStatus = valueCheck(assertion, f.Type, raw, rec.ExpectedValue)
	}
	return rec
}

func valueCheck(a model.ResponseAssertion, declared model.DataType, raw any, expected *string) model.AssertionStatus {
	switch a.(type) {
	case model.AssertStrict:
		if !Equal(declared, raw, *expected) {
			return model.AssertionValueMismatch
		}
	case model.AssertParameter:
		if expected == nil || !Equal(declared, raw, *expected) {
			return model.AssertionWrongParameterValue
		}
	}
	return model.AssertionSuccess
}

func actualValue(raw any, present bool) *string {
	if !present || raw == nil {
		return nil
	}
	return model.Ptr(Canonical(raw))
}

// Captures returns the values to save into parameters, keyed by parameter ID,
// for every field with a capture target whose value is present and not null.
func Captures(fields []model.ResponseField, payload map[string]any) map[string]string {
	out := make(map[string]string)
	for _, f := range fields {
		if !f.SaveToParameter() {
			continue
		}
		raw, ok := payload[f.Name]
		if !ok || raw == nil {
			continue
		}
		out[f.Capture] = Canonical(raw)
	}
	return out
}
