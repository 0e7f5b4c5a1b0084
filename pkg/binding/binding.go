// Package binding decides how a structure field's value is supplied in a step
// request or checked in a step response.
//
// Proposed bindings arrive in their flat form shape (model.RequestFieldUpdate,
// model.ResponseFieldUpdate) and leave as tagged variants. Validation never
// panics and never mutates its input: a binding is either accepted whole or
// rejected with a single Violation naming the offending input.
package binding

import (
	"fmt"

	"github.com/blackcoderx/stepwise/pkg/model"
)

// Violation is a rejected binding, attributed to the form input that caused it.
type Violation struct {
	Field string
	Code  model.Status
}

func (v *Violation) Error() string {
	if v.Field == "" {
		return string(v.Code)
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Code)
}

// Referential reports whether the binding was rejected because it points at a
// parameter that does not exist in the step's scenario.
func (v *Violation) Referential() bool {
	return v.Code == model.StatusUnknownParameter
}

func violation(field string, code model.Status) *Violation {
	return &Violation{Field: field, Code: code}
}

// Result carries either an accepted value or the reason it was rejected.
type Result[T any] struct {
	Value     T
	Violation *Violation
}

// OK reports whether the binding was accepted.
func (r Result[T]) OK() bool {
	return r.Violation == nil
}

func accept[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func reject[T any](v *Violation) Result[T] {
	return Result[T]{Violation: v}
}

// ParameterSet is the set of parameters a binding in one scenario may
// reference.
type ParameterSet struct {
	scenarioID string
	byID       map[string]model.Parameter
	order      []string
}

// NewParameterSet scopes params to scenarioID. Parameters that declare a
// different scenario are left out, so references to them do not resolve.
// Parameters with no ScenarioID are trusted to belong to scenarioID; callers
// pass rows fetched for that scenario (client.ListParameters stamps the ID).
func NewParameterSet(scenarioID string, params []model.Parameter) ParameterSet {
	set := ParameterSet{scenarioID: scenarioID, byID: make(map[string]model.Parameter, len(params))}
	for _, p := range params {
		if p.ScenarioID != "" && scenarioID != "" && p.ScenarioID != scenarioID {
			continue
		}
		if _, dup := set.byID[p.ID]; dup {
			continue
		}
		set.byID[p.ID] = p
		set.order = append(set.order, p.ID)
	}
	return set
}

// ScenarioID returns the scenario the set is scoped to.
func (s ParameterSet) ScenarioID() string {
	return s.scenarioID
}

// Lookup finds a parameter by ID.
func (s ParameterSet) Lookup(id string) (model.Parameter, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// Contains reports whether id resolves within the scenario.
func (s ParameterSet) Contains(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// List returns the parameters in their original order.
func (s ParameterSet) List() []model.Parameter {
	out := make([]model.Parameter, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Name returns the name of the parameter with the given ID, or "" when it does
// not resolve.
func (s ParameterSet) Name(id string) string {
	return s.byID[id].Name
}
