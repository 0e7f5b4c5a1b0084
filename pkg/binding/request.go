package binding

import (
	"math"

	"github.com/blackcoderx/stepwise/pkg/model"
)

// ValidateRequest checks a proposed request binding for a field of the given
// data type and returns the value it represents.
//
//   - NULL carries no materials.
//   - STRICT carries a literal of any content.
//   - PARAMETER carries an ID that must resolve in params.
//   - RANDOM carries a range with from <= to that contains at least one
//     integer, and is not available for BOOLEAN fields. NUMBER ranges lie
//     within ±MaxRandomNumber. For STRING fields the range bounds the
//     generated length and lies within [0, MaxRandomLength].
func ValidateRequest(u model.RequestFieldUpdate, dataType model.DataType, params ParameterSet) Result[model.RequestValue] {
	switch u.ValueType {
	case model.ValueNull:
		if v := conflicts(u, model.ValueNull); v != nil {
			return reject[model.RequestValue](v)
		}
		return accept[model.RequestValue](model.NullValue{})

	case model.ValueStrict:
		if v := conflicts(u, model.ValueStrict); v != nil {
			return reject[model.RequestValue](v)
		}
		if u.StrictValue == nil {
			return reject[model.RequestValue](violation(model.FieldStrictValue, model.StatusStrictValueMissing))
		}
		return accept[model.RequestValue](model.StrictValue{Value: *u.StrictValue})

	case model.ValueParameter:
		if v := conflicts(u, model.ValueParameter); v != nil {
			return reject[model.RequestValue](v)
		}
		if u.ParameterID == nil || !params.Contains(*u.ParameterID) {
			return reject[model.RequestValue](violation(model.FieldParameterID, model.StatusUnknownParameter))
		}
		return accept[model.RequestValue](model.ParameterValue{ParameterID: *u.ParameterID})

	case model.ValueRandom:
		if dataType == model.TypeBoolean {
			return reject[model.RequestValue](violation(model.FieldValueType, model.StatusUnsupportedForType))
		}
		if v := conflicts(u, model.ValueRandom); v != nil {
			return reject[model.RequestValue](v)
		}
		if u.RandomValue == nil || !validRange(*u.RandomValue, dataType) {
			return reject[model.RequestValue](violation(model.FieldRandomValue, model.StatusInvalidRange))
		}
		return accept[model.RequestValue](model.RandomValue{Range: *u.RandomValue})

	default:
		return reject[model.RequestValue](violation(model.FieldValueType, model.StatusUnknownValueType))
	}
}

// ApplyRequest validates u and returns a copy of field carrying the new value.
// field itself is never modified.
func ApplyRequest(field model.RequestField, u model.RequestFieldUpdate, params ParameterSet) (model.RequestField, *Violation) {
	res := ValidateRequest(u, field.Type, params)
	if !res.OK() {
		return field, res.Violation
	}
	field.Value = res.Value
	return field, nil
}

// SwitchRequestType moves form state to another value type, dropping every
// material the new type does not use. Switching twice to the same type gives
// the same result.
func SwitchRequestType(u model.RequestFieldUpdate, to model.ValueType) model.RequestFieldUpdate {
	out := model.RequestFieldUpdate{ValueType: to}
	switch to {
	case model.ValueStrict:
		out.StrictValue = u.StrictValue
	case model.ValueParameter:
		out.ParameterID = u.ParameterID
	case model.ValueRandom:
		out.RandomValue = u.RandomValue
	}
	return out
}

// conflicts returns a violation for the first material that does not belong
// to the selected type.
func conflicts(u model.RequestFieldUpdate, selected model.ValueType) *Violation {
	if u.StrictValue != nil && selected != model.ValueStrict {
		return violation(model.FieldStrictValue, model.StatusConflictingValues)
	}
	if u.ParameterID != nil && selected != model.ValueParameter {
		return violation(model.FieldParameterID, model.StatusConflictingValues)
	}
	if u.RandomValue != nil && selected != model.ValueRandom {
		return violation(model.FieldRandomValue, model.StatusConflictingValues)
	}
	return nil
}

func validRange(r model.Range, dataType model.DataType) bool {
	if math.IsNaN(r.From) || math.IsNaN(r.To) || math.IsInf(r.From, 0) || math.IsInf(r.To, 0) {
		return false
	}
	if r.From > r.To || math.Ceil(r.From) > math.Floor(r.To) {
		return false
	}
	if dataType == model.TypeString {
		return r.From >= 0 && r.To <= model.MaxRandomLength
	}
	return r.From >= -model.MaxRandomNumber && r.To <= model.MaxRandomNumber
}
