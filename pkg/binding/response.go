package binding

import (
	"github.com/blackcoderx/stepwise/pkg/model"
)

// ResponseBinding is an accepted response binding: the assertion plus the
// optional capture target.
type ResponseBinding struct {
	Assertion model.ResponseAssertion
	Capture   string
}

// ValidateResponse checks a proposed response binding.
//
// STRICT carries a literal and no parameter to read; PARAMETER carries a
// resolvable parameter to read and no literal; NULL and ANY carry neither.
// Capture is independent of the mode: saveToParameter=true requires a
// resolvable parameterToSaveId, false requires it to be absent. Reading and
// saving may target the same parameter.
func ValidateResponse(u model.ResponseFieldUpdate, dataType model.DataType, params ParameterSet) Result[ResponseBinding] {
	var assertion model.ResponseAssertion
	switch u.ValueType {
	case model.AssertionNull, model.AssertionAny:
		if u.StrictValue != nil {
			return reject[ResponseBinding](violation(model.FieldStrictValue, model.StatusConflictingValues))
		}
		if u.ParameterToReadID != nil {
			return reject[ResponseBinding](violation(model.FieldParameterToRead, model.StatusConflictingValues))
		}
		if u.ValueType == model.AssertionNull {
			assertion = model.AssertNull{}
		} else {
			assertion = model.AssertAny{}
		}

	case model.AssertionStrict:
		if u.ParameterToReadID != nil {
			return reject[ResponseBinding](violation(model.FieldParameterToRead, model.StatusConflictingValues))
		}
		if u.StrictValue == nil {
			return reject[ResponseBinding](violation(model.FieldStrictValue, model.StatusStrictValueMissing))
		}
		assertion = model.AssertStrict{Value: *u.StrictValue}

	case model.AssertionParameter:
		if u.StrictValue != nil {
			return reject[ResponseBinding](violation(model.FieldStrictValue, model.StatusConflictingValues))
		}
		if u.ParameterToReadID == nil || !params.Contains(*u.ParameterToReadID) {
			return reject[ResponseBinding](violation(model.FieldParameterToRead, model.StatusUnknownParameter))
		}
		assertion = model.AssertParameter{ParameterID: *u.ParameterToReadID}

	default:
		return reject[ResponseBinding](violation(model.FieldValueType, model.StatusUnknownValueType))
	}

	capture := ""
	if u.SaveToParameter {
		if u.ParameterToSaveID == nil || !params.Contains(*u.ParameterToSaveID) {
			return reject[ResponseBinding](violation(model.FieldParameterToSave, model.StatusUnknownParameter))
		}
		capture = *u.ParameterToSaveID
	} else if u.ParameterToSaveID != nil {
		return reject[ResponseBinding](violation(model.FieldParameterToSave, model.StatusConflictingValues))
	}

	return accept(ResponseBinding{Assertion: assertion, Capture: capture})
}

// ApplyResponse validates u and returns a copy of field carrying the new
// assertion and capture.
func ApplyResponse(field model.ResponseField, u model.ResponseFieldUpdate, params ParameterSet) (model.ResponseField, *Violation) {
	res := ValidateResponse(u, field.Type, params)
	if !res.OK() {
		return field, res.Violation
	}
	field.Assertion = res.Value.Assertion
	field.Capture = res.Value.Capture
	return field, nil
}

// SwitchResponseMode moves form state to another assertion mode, dropping the
// literal or parameter-to-read the new mode does not use. Capture settings
// are kept; they do not depend on the mode.
func SwitchResponseMode(u model.ResponseFieldUpdate, to model.AssertionMode) model.ResponseFieldUpdate {
	out := model.ResponseFieldUpdate{
		ValueType:         to,
		SaveToParameter:   u.SaveToParameter,
		ParameterToSaveID: u.ParameterToSaveID,
	}
	switch to {
	case model.AssertionStrict:
		out.StrictValue = u.StrictValue
	case model.AssertionParameter:
		out.ParameterToReadID = u.ParameterToReadID
	}
	return out
}

// SetCapture toggles saving the observed value. Turning capture off drops the
// target parameter.
func SetCapture(u model.ResponseFieldUpdate, save bool, parameterID *string) model.ResponseFieldUpdate {
	u.SaveToParameter = save
	if save {
		u.ParameterToSaveID = parameterID
	} else {
		u.ParameterToSaveID = nil
	}
	return u
}
