package storage

import (
	"github.com/blackcoderx/stepwise/pkg/client"
	"github.com/blackcoderx/stepwise/pkg/model"
)

// BundleVersion is the current scenario file format.
const BundleVersion = 1

// Environment is a named set of connection settings.
type Environment struct {
	Name      string             `yaml:"-"`
	Backend   string             `yaml:"backend"`          // Scenario backend URL
	Target    string             `yaml:"target,omitempty"` // Base URL executions run against
	Auth      client.Credentials `yaml:"auth,omitempty"`
	Variables map[string]string  `yaml:"variables,omitempty"` // Free {{VAR}} values for endpoints and credentials
}

// Bundle is a scenario in file form. Structures and parameters are referenced
// by name, so a bundle can be imported into any backend.
type Bundle struct {
	Version    int               `yaml:"version"`
	Scenario   string            `yaml:"scenario"`
	Structures []BundleStructure `yaml:"structures,omitempty"`
	Parameters []BundleParameter `yaml:"parameters,omitempty"`
	Steps      []BundleStep      `yaml:"steps"`
}

// BundleStructure is a structure definition carried by a bundle.
type BundleStructure struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Fields      []BundleField `yaml:"fields"`
}

// BundleField is a structure field.
type BundleField struct {
	Name string         `yaml:"name"`
	Type model.DataType `yaml:"type"`
}

// BundleParameter is a scenario parameter.
type BundleParameter struct {
	Name         string `yaml:"name"`
	InitialValue string `yaml:"initialValue"`
}

// BundleStep is one step, in sequence order.
type BundleStep struct {
	Title    string         `yaml:"title"`
	Request  BundleRequest  `yaml:"request"`
	Response BundleResponse `yaml:"response"`
}

// BundleRequest is a request template. Fields are keyed by structure field
// name; fields left out are NULL.
type BundleRequest struct {
	Method    model.HTTPMethod          `yaml:"method"`
	Endpoint  string                    `yaml:"endpoint"`
	Structure string                    `yaml:"structure,omitempty"`
	Fields    map[string]RequestBinding `yaml:"fields,omitempty"`
}

// BundleResponse is an expected response. Fields left out are NULL.
type BundleResponse struct {
	HTTPStatus int                        `yaml:"httpStatus"`
	Structure  string                     `yaml:"structure,omitempty"`
	Fields     map[string]ResponseBinding `yaml:"fields,omitempty"`
}

// RequestBinding is a request binding with the parameter named, not
// identified.
type RequestBinding struct {
	ValueType model.ValueType `yaml:"valueType"`
	Value     *string         `yaml:"value,omitempty"`
	Parameter string          `yaml:"parameter,omitempty"`
	Range     *model.Range    `yaml:"range,omitempty"`
}

// ResponseBinding is a response binding with parameters named.
type ResponseBinding struct {
	Mode      model.AssertionMode `yaml:"mode"`
	Value     *string             `yaml:"value,omitempty"`
	Parameter string              `yaml:"parameter,omitempty"`
	SaveTo    string              `yaml:"saveTo,omitempty"`
}
