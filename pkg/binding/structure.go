package binding

import (
	"github.com/blackcoderx/stepwise/pkg/model"
)

// RegenerateRequestFields returns the binding collection of a request whose
// structure was just assigned: one NULL binding per structure field. A nil
// structure clears the collection. newID assigns binding IDs; it may be nil
// when the backend assigns them.
func RegenerateRequestFields(s *model.Structure, newID func() string) []model.RequestField {
	if s == nil {
		return nil
	}
	fields := make([]model.RequestField, 0, len(s.Fields))
	for _, f := range s.Fields {
		fields = append(fields, model.RequestField{
			ID:    nextID(newID),
			Name:  f.Name,
			Type:  f.Type,
			Value: model.NullValue{},
		})
	}
	return fields
}

// RegenerateResponseFields is RegenerateRequestFields for responses; every
// field starts with the NULL assertion and no capture.
func RegenerateResponseFields(s *model.Structure, newID func() string) []model.ResponseField {
	if s == nil {
		return nil
	}
	fields := make([]model.ResponseField, 0, len(s.Fields))
	for _, f := range s.Fields {
		fields = append(fields, model.ResponseField{
			ID:        nextID(newID),
			Name:      f.Name,
			Type:      f.Type,
			Assertion: model.AssertNull{},
		})
	}
	return fields
}

// MatchesStructure reports whether fields hold exactly one binding per field
// of s, with matching types.
func MatchesStructure(s *model.Structure, names map[string]model.DataType) bool {
	if s == nil {
		return len(names) == 0
	}
	if len(names) != len(s.Fields) {
		return false
	}
	for _, f := range s.Fields {
		t, ok := names[f.Name]
		if !ok || t != f.Type {
			return false
		}
	}
	return true
}

// RequestFieldTypes indexes request bindings by field name.
func RequestFieldTypes(fields []model.RequestField) map[string]model.DataType {
	out := make(map[string]model.DataType, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Type
	}
	return out
}

// ResponseFieldTypes indexes response bindings by field name.
func ResponseFieldTypes(fields []model.ResponseField) map[string]model.DataType {
	out := make(map[string]model.DataType, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Type
	}
	return out
}

// Usages lists where step references the parameter.
func Usages(step *model.Step, parameterID string) []model.ParameterUsage {
	var out []model.ParameterUsage
	for _, f := range step.Request.Fields {
		if pv, ok := f.Value.(model.ParameterValue); ok && pv.ParameterID == parameterID {
			out = append(out, model.ParameterUsage{ID: step.ID, Title: step.Title, Place: model.PlaceRequest})
			break
		}
	}
	for _, f := range step.Response.Fields {
		reads := false
		if ap, ok := f.Assertion.(model.AssertParameter); ok && ap.ParameterID == parameterID {
			reads = true
		}
		if reads || f.Capture == parameterID {
			out = append(out, model.ParameterUsage{ID: step.ID, Title: step.Title, Place: model.PlaceResponse})
			break
		}
	}
	return out
}

func nextID(newID func() string) string {
	if newID == nil {
		return ""
	}
	return newID()
}
