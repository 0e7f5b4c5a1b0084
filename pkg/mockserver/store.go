package mockserver

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/model"
)

// Page sizes of list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// StatusError is a rejected operation: the HTTP status and the enum sent in
// the {status} body.
type StatusError struct {
	Code   int
	Status model.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Status)
}

func invalid(s model.Status) error  { return &StatusError{Code: http.StatusBadRequest, Status: s} }
func notFound() error               { return &StatusError{Code: http.StatusNotFound, Status: model.StatusNotFound} }
func conflict(s model.Status) error { return &StatusError{Code: http.StatusConflict, Status: s} }

type scenarioRecord struct {
	ID           string
	Name         string
	CreationDate time.Time
	UpdateDate   time.Time
}

type executionRecord struct {
	scenarioID string
	execution  model.Execution
	stepIDs    []string
}

// Store is the backend state. All methods are safe for concurrent use and
// return copies, never pointers into the store.
type Store struct {
	mu    sync.RWMutex
	newID func() string
	now   func() time.Time

	structures     map[string]*model.Structure
	structureOrder []string
	scenarios      map[string]*scenarioRecord
	scenarioOrder  []string
	parameters     map[string]*model.Parameter
	paramOrder     []string
	steps          map[string]*model.Step
	executions     map[string]*executionRecord
	executionOrder []string
	executionSteps map[string]*model.ExecutionStep
}

// NewStore returns an empty store with UUID identifiers.
func NewStore() *Store {
	return &Store{
		newID:          uuid.NewString,
		now:            func() time.Time { return time.Now().UTC() },
		structures:     make(map[string]*model.Structure),
		scenarios:      make(map[string]*scenarioRecord),
		parameters:     make(map[string]*model.Parameter),
		steps:          make(map[string]*model.Step),
		executions:     make(map[string]*executionRecord),
		executionSteps: make(map[string]*model.ExecutionStep),
	}
}

func paginate[T any](rows []T, p model.PageRequest) model.Page[T] {
	size := p.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	page := p.Page
	if page < 0 {
		page = 0
	}
	start := page * size
	if start > len(rows) {
		start = len(rows)
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	out := make([]T, end-start)
	copy(out, rows[start:end])
	return model.Page[T]{Rows: out, Total: len(rows), Pagination: model.Pagination{Size: size, Page: page}}
}

func removeID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// --- structures ---

// ListStructures returns a page of structures in creation order.
func (s *Store) ListStructures(p model.PageRequest) model.Page[model.StructureInfo] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]model.StructureInfo, 0, len(s.structureOrder))
	for _, id := range s.structureOrder {
		st := s.structures[id]
		rows = append(rows, model.StructureInfo{
			ID:           st.ID,
			Name:         st.Name,
			FieldsAmount: len(st.Fields),
			CreationDate: st.CreationDate,
			UpdateDate:   st.UpdateDate,
		})
	}
	return paginate(rows, p)
}

// GetStructure returns one structure.
func (s *Store) GetStructure(id string) (model.Structure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.structures[id]
	if !ok {
		return model.Structure{}, notFound()
	}
	return cloneStructure(st), nil
}

// CreateStructure adds a structure without fields.
func (s *Store) CreateStructure(w model.StructureWrite) (model.Structure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := deref(w.Name)
	if st := model.CheckName(name); st != "" {
		return model.Structure{}, invalid(st)
	}
	if s.structureNameTaken(name, "") {
		return model.Structure{}, invalid(model.StatusNameNotUnique)
	}
	now := s.now()
	st := &model.Structure{
		ID:           s.newID(),
		Name:         name,
		Description:  deref(w.Description),
		CreationDate: now,
		UpdateDate:   now,
		Fields:       []model.StructureField{},
	}
	s.structures[st.ID] = st
	s.structureOrder = append(s.structureOrder, st.ID)
	return cloneStructure(st), nil
}

// UpdateStructure renames or re-describes a structure. References held by
// steps follow the new name.
func (s *Store) UpdateStructure(id string, w model.StructureWrite) (model.Structure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.structures[id]
	if !ok {
		return model.Structure{}, notFound()
	}
	if w.Name != nil {
		if code := model.CheckName(*w.Name); code != "" {
			return model.Structure{}, invalid(code)
		}
		if s.structureNameTaken(*w.Name, id) {
			return model.Structure{}, invalid(model.StatusNameNotUnique)
		}
	}
	if w.Name != nil {
		st.Name = *w.Name
		s.eachStepUsing(id, func(step *model.Step) {
			if ref := step.Request.Structure; ref != nil && ref.ID == id {
				ref.Name = st.Name
			}
			if ref := step.Response.Structure; ref != nil && ref.ID == id {
				ref.Name = st.Name
			}
		})
	}
	if w.Description != nil {
		st.Description = *w.Description
	}
	st.UpdateDate = s.now()
	return cloneStructure(st), nil
}

// DeleteStructure removes a structure. Steps using it are unassigned, which
// clears their bindings on that side.
func (s *Store) DeleteStructure(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.structures[id]; !ok {
		return notFound()
	}
	for _, step := range s.steps {
		if ref := step.Request.Structure; ref != nil && ref.ID == id {
			step.Request.Structure = nil
			step.Request.Fields = nil
		}
		if ref := step.Response.Structure; ref != nil && ref.ID == id {
			step.Response.Structure = nil
			step.Response.Fields = nil
		}
	}
	delete(s.structures, id)
	s.structureOrder = removeID(s.structureOrder, id)
	return nil
}

// CreateStructureField adds a field. Steps using the structure get a NULL
// binding for it.
func (s *Store) CreateStructureField(structureID string, w model.StructureFieldWrite) (model.StructureField, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.structures[structureID]
	if !ok {
		return model.StructureField{}, notFound()
	}
	name := deref(w.Name)
	if code := model.CheckName(name); code != "" {
		return model.StructureField{}, invalid(code)
	}
	if _, taken := st.FieldByName(name); taken {
		return model.StructureField{}, invalid(model.StatusNameNotUnique)
	}
	if w.Type == nil || !w.Type.Valid() {
		return model.StructureField{}, invalid(model.StatusTypeEmpty)
	}
	now := s.now()
	f := model.StructureField{ID: s.newID(), Name: name, Type: *w.Type, CreationDate: now, UpdateDate: now}
	st.Fields = append(st.Fields, f)
	st.UpdateDate = now

	s.eachStepUsing(structureID, func(step *model.Step) {
		if step.Request.Structure != nil && step.Request.Structure.ID == structureID {
			step.Request.Fields = append(step.Request.Fields, model.RequestField{ID: s.newID(), Name: f.Name, Type: f.Type, Value: model.NullValue{}})
		}
		if step.Response.Structure != nil && step.Response.Structure.ID == structureID {
			step.Response.Fields = append(step.Response.Fields, model.ResponseField{ID: s.newID(), Name: f.Name, Type: f.Type, Assertion: model.AssertNull{}})
		}
	})
	return f, nil
}

// UpdateStructureField renames or retypes a field. A rename carries the
// bindings along; a type change resets them to NULL.
func (s *Store) UpdateStructureField(fieldID string, w model.StructureFieldWrite) (model.StructureField, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, idx := s.findStructureField(fieldID)
	if st == nil {
		return model.StructureField{}, notFound()
	}
	f := st.Fields[idx]
	oldName := f.Name
	if w.Name != nil && *w.Name != f.Name {
		if code := model.CheckName(*w.Name); code != "" {
			return model.StructureField{}, invalid(code)
		}
		if _, taken := st.FieldByName(*w.Name); taken {
			return model.StructureField{}, invalid(model.StatusNameNotUnique)
		}
		f.Name = *w.Name
	}
	retyped := false
	if w.Type != nil {
		if !w.Type.Valid() {
			return model.StructureField{}, invalid(model.StatusTypeEmpty)
		}
		retyped = *w.Type != f.Type
		f.Type = *w.Type
	}
	f.UpdateDate = s.now()
	st.Fields[idx] = f
	st.UpdateDate = f.UpdateDate

	s.eachStepUsing(st.ID, func(step *model.Step) {
		if step.Request.Structure != nil && step.Request.Structure.ID == st.ID {
			for i := range step.Request.Fields {
				rf := &step.Request.Fields[i]
				if rf.Name != oldName {
					continue
				}
				rf.Name = f.Name
				if retyped {
					rf.Type, rf.Value = f.Type, model.NullValue{}
				}
			}
		}
		if step.Response.Structure != nil && step.Response.Structure.ID == st.ID {
			for i := range step.Response.Fields {
				rf := &step.Response.Fields[i]
				if rf.Name != oldName {
					continue
				}
				rf.Name = f.Name
				if retyped {
					rf.Type, rf.Assertion, rf.Capture = f.Type, model.AssertNull{}, ""
				}
			}
		}
	})
	return f, nil
}

// DeleteStructureField removes a field and its bindings.
func (s *Store) DeleteStructureField(fieldID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, idx := s.findStructureField(fieldID)
	if st == nil {
		return notFound()
	}
	name := st.Fields[idx].Name
	st.Fields = append(st.Fields[:idx:idx], st.Fields[idx+1:]...)
	st.UpdateDate = s.now()

	s.eachStepUsing(st.ID, func(step *model.Step) {
		if step.Request.Structure != nil && step.Request.Structure.ID == st.ID {
			kept := step.Request.Fields[:0:0]
			for _, rf := range step.Request.Fields {
				if rf.Name != name {
					kept = append(kept, rf)
				}
			}
			step.Request.Fields = kept
		}
		if step.Response.Structure != nil && step.Response.Structure.ID == st.ID {
			kept := step.Response.Fields[:0:0]
			for _, rf := range step.Response.Fields {
				if rf.Name != name {
					kept = append(kept, rf)
				}
			}
			step.Response.Fields = kept
		}
	})
	return nil
}

func (s *Store) structureNameTaken(name, except string) bool {
	for id, st := range s.structures {
		if id != except && st.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) findStructureField(fieldID string) (*model.Structure, int) {
	for _, st := range s.structures {
		for i, f := range st.Fields {
			if f.ID == fieldID {
				return st, i
			}
		}
	}
	return nil, -1
}

// eachStepUsing calls fn once for every step that references the structure
// on either side.
func (s *Store) eachStepUsing(structureID string, fn func(step *model.Step)) {
	for _, step := range s.steps {
		req, resp := step.Request.Structure, step.Response.Structure
		if (req != nil && req.ID == structureID) || (resp != nil && resp.ID == structureID) {
			fn(step)
		}
	}
}

// --- scenarios ---

// ListScenarios returns a page of scenarios in creation order.
func (s *Store) ListScenarios(p model.PageRequest) model.Page[model.ScenarioInfo] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]model.ScenarioInfo, 0, len(s.scenarioOrder))
	for _, id := range s.scenarioOrder {
		sc := s.scenarios[id]
		execs := 0
		for _, e := range s.executions {
			if e.scenarioID == id {
				execs++
			}
		}
		rows = append(rows, model.ScenarioInfo{
			ID:                   sc.ID,
			Name:                 sc.Name,
			StepsAmount:          len(s.scenarioSteps(id)),
			TestExecutionsAmount: execs,
			CreationDate:         sc.CreationDate,
			UpdateDate:           sc.UpdateDate,
		})
	}
	return paginate(rows, p)
}

// GetScenario returns a scenario with its ordered step list.
func (s *Store) GetScenario(id string) (model.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scenarios[id]
	if !ok {
		return model.Scenario{}, notFound()
	}
	return model.Scenario{
		ID:           sc.ID,
		Name:         sc.Name,
		CreationDate: sc.CreationDate,
		UpdateDate:   sc.UpdateDate,
		Steps:        s.stepInfos(id),
	}, nil
}

// CreateScenario adds an empty scenario.
func (s *Store) CreateScenario(w model.ScenarioWrite) (model.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := deref(w.Name)
	if code := model.CheckScenarioName(name); code != "" {
		return model.Scenario{}, invalid(code)
	}
	if s.scenarioNameTaken(name, "") {
		return model.Scenario{}, invalid(model.StatusNameNotUnique)
	}
	now := s.now()
	sc := &scenarioRecord{ID: s.newID(), Name: name, CreationDate: now, UpdateDate: now}
	s.scenarios[sc.ID] = sc
	s.scenarioOrder = append(s.scenarioOrder, sc.ID)
	return model.Scenario{ID: sc.ID, Name: sc.Name, CreationDate: now, UpdateDate: now, Steps: []model.StepInfo{}}, nil
}

// UpdateScenario renames a scenario.
func (s *Store) UpdateScenario(id string, w model.ScenarioWrite) (model.Scenario, error) {
	s.mu.Lock()
	sc, ok := s.scenarios[id]
	if !ok {
		s.mu.Unlock()
		return model.Scenario{}, notFound()
	}
	if w.Name != nil {
		if code := model.CheckScenarioName(*w.Name); code != "" {
			s.mu.Unlock()
			return model.Scenario{}, invalid(code)
		}
		if s.scenarioNameTaken(*w.Name, id) {
			s.mu.Unlock()
			return model.Scenario{}, invalid(model.StatusNameNotUnique)
		}
		sc.Name = *w.Name
		for _, step := range s.steps {
			if step.Scenario.ID == id {
				step.Scenario.Name = sc.Name
			}
		}
	}
	sc.UpdateDate = s.now()
	s.mu.Unlock()
	return s.GetScenario(id)
}

// DeleteScenario removes a scenario with its steps and parameters. Recorded
// executions are kept.
func (s *Store) DeleteScenario(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scenarios[id]; !ok {
		return notFound()
	}
	for sid, step := range s.steps {
		if step.Scenario.ID == id {
			delete(s.steps, sid)
		}
	}
	for pid, p := range s.parameters {
		if p.ScenarioID == id {
			delete(s.parameters, pid)
			s.paramOrder = removeID(s.paramOrder, pid)
		}
	}
	delete(s.scenarios, id)
	s.scenarioOrder = removeID(s.scenarioOrder, id)
	return nil
}

func (s *Store) scenarioNameTaken(name, except string) bool {
	for id, sc := range s.scenarios {
		if id != except && sc.Name == name {
			return true
		}
	}
	return false
}

// --- parameters ---

// ListParameters returns the parameters of a scenario with their usages.
func (s *Store) ListParameters(scenarioID string) ([]model.Parameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.scenarios[scenarioID]; !ok {
		return nil, notFound()
	}
	out := []model.Parameter{}
	for _, id := range s.paramOrder {
		p := s.parameters[id]
		if p.ScenarioID == scenarioID {
			out = append(out, s.withUsages(p))
		}
	}
	return out, nil
}

// GetParameter returns one parameter with its usages.
func (s *Store) GetParameter(id string) (model.Parameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parameters[id]
	if !ok {
		return model.Parameter{}, notFound()
	}
	return s.withUsages(p), nil
}

// CreateParameter adds a parameter to a scenario.
func (s *Store) CreateParameter(scenarioID string, w model.ParameterWrite) (model.Parameter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scenarios[scenarioID]; !ok {
		return model.Parameter{}, notFound()
	}
	name, value := deref(w.Name), deref(w.InitialValue)
	if code := model.CheckName(name); code != "" {
		return model.Parameter{}, invalid(code)
	}
	if s.parameterNameTaken(scenarioID, name, "") {
		return model.Parameter{}, invalid(model.StatusNameNotUnique)
	}
	if code := model.CheckParameterValue(value); code != "" {
		return model.Parameter{}, invalid(code)
	}
	p := &model.Parameter{ID: s.newID(), ScenarioID: scenarioID, Name: name, InitialValue: value}
	s.parameters[p.ID] = p
	s.paramOrder = append(s.paramOrder, p.ID)
	return s.withUsages(p), nil
}

// UpdateParameter renames a parameter or changes its initial value.
func (s *Store) UpdateParameter(id string, w model.ParameterWrite) (model.Parameter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parameters[id]
	if !ok {
		return model.Parameter{}, notFound()
	}
	if w.Name != nil {
		if code := model.CheckName(*w.Name); code != "" {
			return model.Parameter{}, invalid(code)
		}
		if s.parameterNameTaken(p.ScenarioID, *w.Name, id) {
			return model.Parameter{}, invalid(model.StatusNameNotUnique)
		}
	}
	if w.InitialValue != nil {
		if code := model.CheckParameterValue(*w.InitialValue); code != "" {
			return model.Parameter{}, invalid(code)
		}
	}
	if w.Name != nil {
		p.Name = *w.Name
	}
	if w.InitialValue != nil {
		p.InitialValue = *w.InitialValue
	}
	return s.withUsages(p), nil
}

// DeleteParameter removes an unused parameter. A parameter that any binding
// reads or writes is refused with PARAMETER_IN_USE.
func (s *Store) DeleteParameter(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parameters[id]
	if !ok {
		return notFound()
	}
	if len(s.withUsages(p).Usages) > 0 {
		return conflict(model.StatusParameterInUse)
	}
	delete(s.parameters, id)
	s.paramOrder = removeID(s.paramOrder, id)
	return nil
}

func (s *Store) withUsages(p *model.Parameter) model.Parameter {
	out := *p
	out.Usages = []model.ParameterUsage{}
	for _, step := range s.scenarioSteps(p.ScenarioID) {
		out.Usages = append(out.Usages, binding.Usages(step, p.ID)...)
	}
	return out
}

func (s *Store) parameterNameTaken(scenarioID, name, except string) bool {
	for id, p := range s.parameters {
		if id != except && p.ScenarioID == scenarioID && p.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) parameterSet(scenarioID string) binding.ParameterSet {
	var params []model.Parameter
	for _, id := range s.paramOrder {
		if p := s.parameters[id]; p.ScenarioID == scenarioID {
			params = append(params, *p)
		}
	}
	return binding.NewParameterSet(scenarioID, params)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// --- helpers shared with steps and executions ---

// scenarioSteps returns the steps of a scenario sorted by sequence.
func (s *Store) scenarioSteps(scenarioID string) []*model.Step {
	var out []*model.Step
	for _, step := range s.steps {
		if step.Scenario.ID == scenarioID {
			out = append(out, step)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func (s *Store) stepInfos(scenarioID string) []model.StepInfo {
	steps := s.scenarioSteps(scenarioID)
	out := make([]model.StepInfo, 0, len(steps))
	for _, step := range steps {
		out = append(out, step.Info())
	}
	return out
}

func cloneStructure(st *model.Structure) model.Structure {
	out := *st
	out.Fields = append([]model.StructureField{}, st.Fields...)
	return out
}
