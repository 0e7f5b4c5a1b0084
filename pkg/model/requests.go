package model

// Write bodies. Nil members of update bodies leave the stored value untouched,
// matching the PATCH semantics of the backend.

// StructureWrite creates or updates a structure.
type StructureWrite struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// StructureFieldWrite creates or updates a structure field.
type StructureFieldWrite struct {
	Name *string   `json:"name"`
	Type *DataType `json:"type"`
}

// ScenarioWrite creates or renames a scenario.
type ScenarioWrite struct {
	Name *string `json:"name"`
}

// ParameterWrite creates or updates a parameter.
type ParameterWrite struct {
	Name         *string `json:"name"`
	InitialValue *string `json:"initialValue"`
}

// StepWrite creates a step or changes its title and position. A nil Sequence
// on create appends the step at the end.
type StepWrite struct {
	Title    *string `json:"title"`
	Sequence *int    `json:"sequence"`
}

// RequestWrite updates a step request. Setting StructureID regenerates the
// request's field bindings; ClearStructure removes them.
type RequestWrite struct {
	StructureID    *string     `json:"structureId"`
	ClearStructure bool        `json:"clearStructure,omitempty"`
	Method         *HTTPMethod `json:"method"`
	Endpoint       *string     `json:"endpoint"`
}

// ResponseWrite updates a step response.
type ResponseWrite struct {
	HTTPStatus     *int    `json:"httpStatus"`
	StructureID    *string `json:"structureId"`
	ClearStructure bool    `json:"clearStructure,omitempty"`
}
