package model

import (
	"encoding/json"
	"fmt"
)

// ValueType selects how a request field value is produced.
type ValueType string

const (
	ValueNull      ValueType = "NULL"
	ValueStrict    ValueType = "STRICT"
	ValueParameter ValueType = "PARAMETER"
	ValueRandom    ValueType = "RANDOM"
)

// ValueTypes lists request value types in display order.
var ValueTypes = []ValueType{ValueNull, ValueStrict, ValueParameter, ValueRandom}

// AssertionMode selects how a response field is checked.
type AssertionMode string

const (
	AssertionNull      AssertionMode = "NULL"
	AssertionStrict    AssertionMode = "STRICT"
	AssertionParameter AssertionMode = "PARAMETER"
	AssertionAny       AssertionMode = "ANY"
)

// AssertionModes lists response assertion modes in display order.
var AssertionModes = []AssertionMode{AssertionAny, AssertionNull, AssertionStrict, AssertionParameter}

// Range is the inclusive bounds of a RANDOM request value.
type Range struct {
	From float64 `json:"from" yaml:"from"`
	To   float64 `json:"to" yaml:"to"`
}

// RequestValue is the binding of a request field. Exactly one of the
// implementations below exists per value type, so a binding can never carry
// materials of two types at once.
type RequestValue interface {
	ValueType() ValueType
	isRequestValue()
}

// NullValue sends the field as JSON null.
type NullValue struct{}

// StrictValue sends a literal. The literal is not checked against the field
// type here; representability is decided by whoever sends the request.
type StrictValue struct {
	Value string
}

// ParameterValue sends the current value of a scenario parameter.
type ParameterValue struct {
	ParameterID string
}

// RandomValue sends a value drawn from Range at execution time.
type RandomValue struct {
	Range Range
}

func (NullValue) ValueType() ValueType      { return ValueNull }
func (StrictValue) ValueType() ValueType    { return ValueStrict }
func (ParameterValue) ValueType() ValueType { return ValueParameter }
func (RandomValue) ValueType() ValueType    { return ValueRandom }

func (NullValue) isRequestValue()      {}
func (StrictValue) isRequestValue()    {}
func (ParameterValue) isRequestValue() {}
func (RandomValue) isRequestValue()    {}

// ResponseAssertion is the check applied to a response field.
type ResponseAssertion interface {
	Mode() AssertionMode
	isResponseAssertion()
}

// AssertNull expects the field to be absent or null.
type AssertNull struct{}

// AssertAny expects the field to exist with the declared type.
type AssertAny struct{}

// AssertStrict expects the field to equal a literal.
type AssertStrict struct {
	Value string
}

// AssertParameter expects the field to equal the current value of a parameter.
type AssertParameter struct {
	ParameterID string
}

func (AssertNull) Mode() AssertionMode      { return AssertionNull }
func (AssertAny) Mode() AssertionMode       { return AssertionAny }
func (AssertStrict) Mode() AssertionMode    { return AssertionStrict }
func (AssertParameter) Mode() AssertionMode { return AssertionParameter }

func (AssertNull) isResponseAssertion()      {}
func (AssertAny) isResponseAssertion()       {}
func (AssertStrict) isResponseAssertion()    {}
func (AssertParameter) isResponseAssertion() {}

// RequestField is a structure field of a step request together with its
// binding.
type RequestField struct {
	ID    string
	Name  string
	Type  DataType
	Value RequestValue
}

// ResponseField is a structure field of a step response together with its
// assertion. Capture holds the ID of the parameter the observed value is saved
// to; empty means nothing is saved.
type ResponseField struct {
	ID        string
	Name      string
	Type      DataType
	Assertion ResponseAssertion
	Capture   string
}

// SaveToParameter reports whether the observed value is captured.
func (f ResponseField) SaveToParameter() bool {
	return f.Capture != ""
}

// RequestFieldUpdate is the flat wire and form shape of a request binding.
// Every material is nullable; which one is meaningful depends on ValueType.
type RequestFieldUpdate struct {
	ValueType   ValueType `json:"valueType" yaml:"valueType"`
	StrictValue *string   `json:"strictValue" yaml:"strictValue,omitempty"`
	ParameterID *string   `json:"parameterId" yaml:"parameterId,omitempty"`
	RandomValue *Range    `json:"randomValue" yaml:"randomValue,omitempty"`
}

// ResponseFieldUpdate is the flat wire and form shape of a response binding.
type ResponseFieldUpdate struct {
	ValueType         AssertionMode `json:"valueType" yaml:"valueType"`
	StrictValue       *string       `json:"strictValue" yaml:"strictValue,omitempty"`
	ParameterToReadID *string       `json:"parameterToReadId" yaml:"parameterToReadId,omitempty"`
	SaveToParameter   bool          `json:"saveToParameter" yaml:"saveToParameter,omitempty"`
	ParameterToSaveID *string       `json:"parameterToSaveId" yaml:"parameterToSaveId,omitempty"`
}

// RequestUpdateOf flattens a request value into its wire shape.
func RequestUpdateOf(v RequestValue) RequestFieldUpdate {
	switch val := v.(type) {
	case StrictValue:
		return RequestFieldUpdate{ValueType: ValueStrict, StrictValue: ptr(val.Value)}
	case ParameterValue:
		return RequestFieldUpdate{ValueType: ValueParameter, ParameterID: ptr(val.ParameterID)}
	case RandomValue:
		r := val.Range
		return RequestFieldUpdate{ValueType: ValueRandom, RandomValue: &r}
	default:
		return RequestFieldUpdate{ValueType: ValueNull}
	}
}

// ResponseUpdateOf flattens a response assertion and capture into its wire
// shape.
func ResponseUpdateOf(a ResponseAssertion, capture string) ResponseFieldUpdate {
	u := ResponseFieldUpdate{ValueType: AssertionAny}
	switch val := a.(type) {
	case AssertNull:
		u.ValueType = AssertionNull
	case AssertStrict:
		u.ValueType = AssertionStrict
		u.StrictValue = ptr(val.Value)
	case AssertParameter:
		u.ValueType = AssertionParameter
		u.ParameterToReadID = ptr(val.ParameterID)
	}
	if capture != "" {
		u.SaveToParameter = true
		u.ParameterToSaveID = ptr(capture)
	}
	return u
}

// Decode builds the request value selected by ValueType. Materials of other
// types are ignored; a missing material for the selected type is an error.
func (u RequestFieldUpdate) Decode() (RequestValue, error) {
	switch u.ValueType {
	case ValueNull, "":
		return NullValue{}, nil
	case ValueStrict:
		if u.StrictValue == nil {
			return nil, fmt.Errorf("strict value missing")
		}
		return StrictValue{Value: *u.StrictValue}, nil
	case ValueParameter:
		if u.ParameterID == nil || *u.ParameterID == "" {
			return nil, fmt.Errorf("parameter id missing")
		}
		return ParameterValue{ParameterID: *u.ParameterID}, nil
	case ValueRandom:
		if u.RandomValue == nil {
			return nil, fmt.Errorf("random range missing")
		}
		return RandomValue{Range: *u.RandomValue}, nil
	default:
		return nil, fmt.Errorf("unknown value type %q", u.ValueType)
	}
}

// Decode builds the assertion selected by ValueType and the capture target.
func (u ResponseFieldUpdate) Decode() (ResponseAssertion, string, error) {
	var a ResponseAssertion
	switch u.ValueType {
	case AssertionAny, "":
		a = AssertAny{}
	case AssertionNull:
		a = AssertNull{}
	case AssertionStrict:
		if u.StrictValue == nil {
			return nil, "", fmt.Errorf("strict value missing")
		}
		a = AssertStrict{Value: *u.StrictValue}
	case AssertionParameter:
		if u.ParameterToReadID == nil || *u.ParameterToReadID == "" {
			return nil, "", fmt.Errorf("parameter to read missing")
		}
		a = AssertParameter{ParameterID: *u.ParameterToReadID}
	default:
		return nil, "", fmt.Errorf("unknown assertion mode %q", u.ValueType)
	}
	capture := ""
	if u.SaveToParameter {
		if u.ParameterToSaveID == nil || *u.ParameterToSaveID == "" {
			return nil, "", fmt.Errorf("parameter to save missing")
		}
		capture = *u.ParameterToSaveID
	}
	return a, capture, nil
}

type requestFieldWire struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	FieldType DataType `json:"fieldType"`
	RequestFieldUpdate
}

type responseFieldWire struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	FieldType DataType `json:"fieldType"`
	ResponseFieldUpdate
}

// MarshalJSON writes the flat wire shape.
func (f RequestField) MarshalJSON() ([]byte, error) {
	value := f.Value
	if value == nil {
		value = NullValue{}
	}
	return json.Marshal(requestFieldWire{
		ID:                 f.ID,
		Name:               f.Name,
		FieldType:          f.Type,
		RequestFieldUpdate: RequestUpdateOf(value),
	})
}

// UnmarshalJSON reads the flat wire shape.
func (f *RequestField) UnmarshalJSON(data []byte) error {
	var w requestFieldWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	value, err := w.RequestFieldUpdate.Decode()
	if err != nil {
		return fmt.Errorf("request field %s: %w", w.Name, err)
	}
	*f = RequestField{ID: w.ID, Name: w.Name, Type: w.FieldType, Value: value}
	return nil
}

// MarshalJSON writes the flat wire shape.
func (f ResponseField) MarshalJSON() ([]byte, error) {
	assertion := f.Assertion
	if assertion == nil {
		assertion = AssertAny{}
	}
	return json.Marshal(responseFieldWire{
		ID:                  f.ID,
		Name:                f.Name,
		FieldType:           f.Type,
		ResponseFieldUpdate: ResponseUpdateOf(assertion, f.Capture),
	})
}

// UnmarshalJSON reads the flat wire shape.
func (f *ResponseField) UnmarshalJSON(data []byte) error {
	var w responseFieldWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	assertion, capture, err := w.ResponseFieldUpdate.Decode()
	if err != nil {
		return fmt.Errorf("response field %s: %w", w.Name, err)
	}
	*f = ResponseField{ID: w.ID, Name: w.Name, Type: w.FieldType, Assertion: assertion, Capture: capture}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

// Ptr returns a pointer to v. Handy for building nullable update fields.
func Ptr[T any](v T) *T {
	return ptr(v)
}
