package binding

import (
	"strconv"

	"github.com/blackcoderx/stepwise/pkg/model"
)

// Placeholder is shown for bindings without a concrete value.
const Placeholder = "-"

// DescribeRequest renders the effective value of a request binding. A
// parameter is shown by name; its value is only known at execution time.
func DescribeRequest(v model.RequestValue, params ParameterSet) string {
	switch val := v.(type) {
	case model.StrictValue:
		return val.Value
	case model.ParameterValue:
		if name := params.Name(val.ParameterID); name != "" {
			return name
		}
		return Placeholder
	case model.RandomValue:
		return FormatRange(val.Range)
	default:
		return Placeholder
	}
}

// DescribeResponse renders the expected value of a response assertion. ANY
// and NULL share the placeholder.
func DescribeResponse(a model.ResponseAssertion, params ParameterSet) string {
	switch val := a.(type) {
	case model.AssertStrict:
		return val.Value
	case model.AssertParameter:
		if name := params.Name(val.ParameterID); name != "" {
			return name
		}
		return Placeholder
	default:
		return Placeholder
	}
}

// DescribeCapture renders the capture target of a response field.
func DescribeCapture(f model.ResponseField, params ParameterSet) string {
	if !f.SaveToParameter() {
		return Placeholder
	}
	if name := params.Name(f.Capture); name != "" {
		return name
	}
	return Placeholder
}

// FormatRange renders a range as "{from} - {to}".
func FormatRange(r model.Range) string {
	return FormatNumber(r.From) + " - " + FormatNumber(r.To)
}

// FormatNumber prints n without trailing zeros.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
