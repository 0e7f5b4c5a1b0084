// Package model holds the resource shapes exchanged with the scenario backend
// and the domain types built on top of them.
package model

import "time"

// DataType is the declared type of a structure field.
type DataType string

const (
	TypeString  DataType = "STRING"
	TypeNumber  DataType = "NUMBER"
	TypeBoolean DataType = "BOOLEAN"
	// TypeUnknown is only reported for inferred types of actual values.
	TypeUnknown DataType = "UNKNOWN"
)

// Valid reports whether t may be declared on a structure field.
func (t DataType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean:
		return true
	}
	return false
}

// HTTPMethod is the method of a step request.
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodPatch  HTTPMethod = "PATCH"
	MethodDelete HTTPMethod = "DELETE"
)

// HTTPMethods lists the supported methods in display order.
var HTTPMethods = []HTTPMethod{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete}

// Valid reports whether m is a supported method.
func (m HTTPMethod) Valid() bool {
	for _, known := range HTTPMethods {
		if m == known {
			return true
		}
	}
	return false
}

// StructureField is a typed field of a structure.
type StructureField struct {
	ID           string    `json:"id" yaml:"id,omitempty"`
	Name         string    `json:"name" yaml:"name"`
	Type         DataType  `json:"type" yaml:"type"`
	CreationDate time.Time `json:"creationDate" yaml:"-"`
	UpdateDate   time.Time `json:"updateDate" yaml:"-"`
}

// Structure is a named field schema reused by step requests and responses.
type Structure struct {
	ID           string           `json:"id" yaml:"id,omitempty"`
	Name         string           `json:"name" yaml:"name"`
	Description  string           `json:"description" yaml:"description,omitempty"`
	CreationDate time.Time        `json:"creationDate" yaml:"-"`
	UpdateDate   time.Time        `json:"updateDate" yaml:"-"`
	Fields       []StructureField `json:"fields" yaml:"fields"`
}

// FieldByName returns the field with the given name.
func (s *Structure) FieldByName(name string) (StructureField, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return StructureField{}, false
}

// StructureInfo is a row of the structure list.
type StructureInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	FieldsAmount int       `json:"fieldsAmount"`
	CreationDate time.Time `json:"creationDate"`
	UpdateDate   time.Time `json:"updateDate"`
}

// StructureRef is the short reference a step request or response carries.
type StructureRef struct {
	ID   string `json:"id" yaml:"id,omitempty"`
	Name string `json:"name" yaml:"name"`
}

// UsagePlace says which side of a step references a parameter.
type UsagePlace string

const (
	PlaceRequest  UsagePlace = "REQUEST"
	PlaceResponse UsagePlace = "RESPONSE"
)

// ParameterUsage points at a step that references a parameter.
type ParameterUsage struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Place UsagePlace `json:"place"`
}

// Parameter is a scenario-scoped named value. Bindings reference it but never
// own it.
type Parameter struct {
	ID           string           `json:"id" yaml:"id,omitempty"`
	ScenarioID   string           `json:"scenarioId,omitempty" yaml:"-"`
	Name         string           `json:"name" yaml:"name"`
	InitialValue string           `json:"initialValue" yaml:"initialValue"`
	Usages       []ParameterUsage `json:"usages" yaml:"-"`
}

// ScenarioRef is the short reference a step carries to its scenario.
type ScenarioRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ScenarioInfo is a row of the scenario list.
type ScenarioInfo struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	StepsAmount          int       `json:"stepsAmount"`
	TestExecutionsAmount int       `json:"testExecutionsAmount"`
	CreationDate         time.Time `json:"creationDate"`
	UpdateDate           time.Time `json:"updateDate"`
}

// Scenario is a named, ordered list of steps.
type Scenario struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	CreationDate time.Time  `json:"creationDate"`
	UpdateDate   time.Time  `json:"updateDate"`
	Steps        []StepInfo `json:"steps"`
}

// StepInfo is a row of a scenario's step table.
type StepInfo struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Sequence     int        `json:"sequence"`
	Method       HTTPMethod `json:"method"`
	Endpoint     string     `json:"endpoint"`
	CreationDate time.Time  `json:"creationDate"`
	UpdateDate   time.Time  `json:"updateDate"`
}

// StepRequest is the request template of a step.
type StepRequest struct {
	ID        string         `json:"id"`
	Method    HTTPMethod     `json:"method"`
	Endpoint  string         `json:"endpoint"`
	Structure *StructureRef  `json:"structure"`
	Fields    []RequestField `json:"fields"`
}

// StepResponse is the expected response template of a step.
type StepResponse struct {
	ID         string          `json:"id"`
	HTTPStatus int             `json:"httpStatus"`
	Structure  *StructureRef   `json:"structure"`
	Fields     []ResponseField `json:"fields"`
}

// Step pairs one request template with one expected response template.
type Step struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Sequence     int          `json:"sequence"`
	CreationDate time.Time    `json:"creationDate"`
	UpdateDate   time.Time    `json:"updateDate"`
	Scenario     ScenarioRef  `json:"scenario"`
	Request      StepRequest  `json:"request"`
	Response     StepResponse `json:"response"`
}

// Info returns the list-row view of the step.
func (s *Step) Info() StepInfo {
	return StepInfo{
		ID:           s.ID,
		Title:        s.Title,
		Sequence:     s.Sequence,
		Method:       s.Request.Method,
		Endpoint:     s.Request.Endpoint,
		CreationDate: s.CreationDate,
		UpdateDate:   s.UpdateDate,
	}
}

// Pagination describes the page a paginated response holds.
type Pagination struct {
	Size int `json:"size"`
	Page int `json:"page"`
}

// Page is the envelope of every paginated list endpoint.
type Page[T any] struct {
	Rows       []T        `json:"rows"`
	Total      int        `json:"total"`
	Pagination Pagination `json:"pagination"`
}

// PageRequest selects a page of a list endpoint. Zero values let the backend
// pick its defaults.
type PageRequest struct {
	Page int
	Size int
}
