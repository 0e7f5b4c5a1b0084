package assertion

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/blackcoderx/stepwise/pkg/model"
)

var schemaTypes = map[model.DataType]string{
	model.TypeString:  "string",
	model.TypeNumber:  "number",
	model.TypeBoolean: "boolean",
}

// StructureSchema builds a JSON Schema describing a payload of structure s.
// Fields are optional and may be null; extra keys are allowed. The schema
// only pins the type of each declared field.
func StructureSchema(s *model.Structure) map[string]any {
	props := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		t, ok := schemaTypes[f.Type]
		if !ok {
			continue
		}
		props[f.Name] = map[string]any{"type": []any{t, "null"}}
	}
	return map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"title":      s.Name,
		"type":       "object",
		"properties": props,
	}
}

// ValidatePayload checks a raw JSON body against the schema of s and returns
// one message per violation. An empty slice means the body conforms.
func ValidatePayload(s *model.Structure, body []byte) ([]string, error) {
	schemaLoader := gojsonschema.NewGoLoader(StructureSchema(s))
	docLoader := gojsonschema.NewBytesLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("validate payload against %s: %w", s.Name, err)
	}
	if result.Valid() {
		return nil, nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return issues, nil
}
