package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blackcoderx/stepwise/pkg/model"
)

// SaveBundle writes a scenario bundle to a YAML file
func SaveBundle(b *Bundle, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if !strings.HasSuffix(filePath, ".yaml") && !strings.HasSuffix(filePath, ".yml") {
		filePath = filePath + ".yaml"
	}

	if b.Version == 0 {
		b.Version = BundleVersion
	}
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// LoadBundle reads and validates a scenario bundle
func LoadBundle(filePath string) (*Bundle, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if b.Version > BundleVersion {
		return nil, fmt.Errorf("%s: format version %d is newer than supported %d", filePath, b.Version, BundleVersion)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return &b, nil
}

// ListBundles lists the scenario files of a workspace
func ListBundles(baseDir string) ([]string, error) {
	return listYAML(GetScenariosDir(baseDir), "scenarios")
}

// GetScenariosDir returns the scenarios directory path
func GetScenariosDir(baseDir string) string {
	return filepath.Join(baseDir, "scenarios")
}

// BundlePath returns the file a scenario is exported to. Whitespace in the
// scenario name becomes a dash.
func BundlePath(baseDir, scenario string) string {
	name := strings.Join(strings.Fields(strings.ToLower(scenario)), "-")
	return filepath.Join(GetScenariosDir(baseDir), name+".yaml")
}

// Structure returns the structure with the given name.
func (b *Bundle) Structure(name string) (*BundleStructure, bool) {
	for i := range b.Structures {
		if b.Structures[i].Name == name {
			return &b.Structures[i], true
		}
	}
	return nil, false
}

// Model converts a bundled structure into its model form, with IDs left for
// the caller to assign.
func (s *BundleStructure) Model() *model.Structure {
	out := &model.Structure{Name: s.Name, Description: s.Description}
	for _, f := range s.Fields {
		out.Fields = append(out.Fields, model.StructureField{Name: f.Name, Type: f.Type})
	}
	return out
}

// Validate checks names, structure references and parameter references. It
// does not validate binding materials; that happens when the bundle is
// turned into bindings.
func (b *Bundle) Validate() error {
	if code := model.CheckScenarioName(b.Scenario); code != "" {
		return fmt.Errorf("scenario: %s", code)
	}

	var errs []error
	structures := make(map[string]bool)
	for _, s := range b.Structures {
		if code := model.CheckName(s.Name); code != "" {
			errs = append(errs, fmt.Errorf("structure %q: %s", s.Name, code))
		}
		if structures[s.Name] {
			errs = append(errs, fmt.Errorf("structure %q: %s", s.Name, model.StatusNameNotUnique))
		}
		structures[s.Name] = true
		fields := make(map[string]bool)
		for _, f := range s.Fields {
			if code := model.CheckName(f.Name); code != "" {
				errs = append(errs, fmt.Errorf("structure %q field %q: %s", s.Name, f.Name, code))
			}
			if fields[f.Name] {
				errs = append(errs, fmt.Errorf("structure %q field %q: %s", s.Name, f.Name, model.StatusNameNotUnique))
			}
			if !f.Type.Valid() {
				errs = append(errs, fmt.Errorf("structure %q field %q: %s", s.Name, f.Name, model.StatusTypeEmpty))
			}
			fields[f.Name] = true
		}
	}

	params := make(map[string]bool)
	for _, p := range b.Parameters {
		if code := model.CheckName(p.Name); code != "" {
			errs = append(errs, fmt.Errorf("parameter %q: %s", p.Name, code))
		}
		if params[p.Name] {
			errs = append(errs, fmt.Errorf("parameter %q: %s", p.Name, model.StatusNameNotUnique))
		}
		if code := model.CheckParameterValue(p.InitialValue); code != "" {
			errs = append(errs, fmt.Errorf("parameter %q: %s", p.Name, code))
		}
		params[p.Name] = true
	}

	titles := make(map[string]bool)
	for _, step := range b.Steps {
		where := fmt.Sprintf("step %q", step.Title)
		if code := model.CheckTitle(step.Title); code != "" {
			errs = append(errs, fmt.Errorf("%s: %s", where, code))
		}
		if titles[step.Title] {
			errs = append(errs, fmt.Errorf("%s: %s", where, model.StatusTitleNotUnique))
		}
		titles[step.Title] = true
		if step.Request.Method != "" && !step.Request.Method.Valid() {
			errs = append(errs, fmt.Errorf("%s: %s", where, model.StatusMethodInvalid))
		}
		if s := step.Response.HTTPStatus; s != 0 && (s < 100 || s > 599) {
			errs = append(errs, fmt.Errorf("%s: %s", where, model.StatusHTTPStatusInvalid))
		}
		errs = append(errs, b.checkFields(where+" request", step.Request.Structure, requestRefs(step.Request.Fields), params)...)
		errs = append(errs, b.checkFields(where+" response", step.Response.Structure, responseRefs(step.Response.Fields), params)...)
	}
	return errors.Join(errs...)
}

func (b *Bundle) checkFields(where, structure string, refs map[string][]string, params map[string]bool) []error {
	if structure == "" {
		if len(refs) > 0 {
			return []error{fmt.Errorf("%s: fields bound without a structure", where)}
		}
		return nil
	}
	s, ok := b.Structure(structure)
	if !ok {
		return []error{fmt.Errorf("%s: %s %q", where, model.StatusStructureNotFound, structure)}
	}
	var errs []error
	for field, names := range refs {
		found := false
		for _, f := range s.Fields {
			found = found || f.Name == field
		}
		if !found {
			errs = append(errs, fmt.Errorf("%s: field %q is not in structure %q", where, field, structure))
		}
		for _, name := range names {
			if !params[name] {
				errs = append(errs, fmt.Errorf("%s field %q: %s %q", where, field, model.StatusUnknownParameter, name))
			}
		}
	}
	return errs
}

func requestRefs(fields map[string]RequestBinding) map[string][]string {
	out := make(map[string][]string, len(fields))
	for name, f := range fields {
		out[name] = nil
		if f.Parameter != "" {
			out[name] = []string{f.Parameter}
		}
	}
	return out
}

func responseRefs(fields map[string]ResponseBinding) map[string][]string {
	out := make(map[string][]string, len(fields))
	for name, f := range fields {
		out[name] = nil
		for _, p := range []string{f.Parameter, f.SaveTo} {
			if p != "" {
				out[name] = append(out[name], p)
			}
		}
	}
	return out
}

// Update turns the binding into its form shape, naming parameters by the IDs
// in ids. A parameter missing from ids is passed through as-is, so the
// binding rules report it.
func (r RequestBinding) Update(ids map[string]string) model.RequestFieldUpdate {
	u := model.RequestFieldUpdate{ValueType: r.ValueType, StrictValue: r.Value, RandomValue: r.Range}
	if u.ValueType == "" {
		u.ValueType = model.ValueNull
	}
	if r.Parameter != "" {
		u.ParameterID = model.Ptr(lookup(ids, r.Parameter))
	}
	return u
}

// Update turns the binding into its form shape.
func (r ResponseBinding) Update(ids map[string]string) model.ResponseFieldUpdate {
	u := model.ResponseFieldUpdate{ValueType: r.Mode, StrictValue: r.Value}
	if u.ValueType == "" {
		u.ValueType = model.AssertionNull
	}
	if r.Parameter != "" {
		u.ParameterToReadID = model.Ptr(lookup(ids, r.Parameter))
	}
	if r.SaveTo != "" {
		u.SaveToParameter = true
		u.ParameterToSaveID = model.Ptr(lookup(ids, r.SaveTo))
	}
	return u
}

// RequestBindingOf is the inverse of RequestBinding.Update. names maps
// parameter IDs to names.
func RequestBindingOf(v model.RequestValue, names map[string]string) RequestBinding {
	switch val := v.(type) {
	case model.StrictValue:
		return RequestBinding{ValueType: model.ValueStrict, Value: model.Ptr(val.Value)}
	case model.ParameterValue:
		return RequestBinding{ValueType: model.ValueParameter, Parameter: lookup(names, val.ParameterID)}
	case model.RandomValue:
		r := val.Range
		return RequestBinding{ValueType: model.ValueRandom, Range: &r}
	}
	return RequestBinding{ValueType: model.ValueNull}
}

// ResponseBindingOf is the inverse of ResponseBinding.Update.
func ResponseBindingOf(f model.ResponseField, names map[string]string) ResponseBinding {
	var out ResponseBinding
	switch val := f.Assertion.(type) {
	case model.AssertStrict:
		out = ResponseBinding{Mode: model.AssertionStrict, Value: model.Ptr(val.Value)}
	case model.AssertParameter:
		out = ResponseBinding{Mode: model.AssertionParameter, Parameter: lookup(names, val.ParameterID)}
	case model.AssertAny:
		out = ResponseBinding{Mode: model.AssertionAny}
	default:
		out = ResponseBinding{Mode: model.AssertionNull}
	}
	if f.Capture != "" {
		out.SaveTo = lookup(names, f.Capture)
	}
	return out
}

func lookup(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}
