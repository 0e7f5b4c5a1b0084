package mockserver

import (
	"errors"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/model"
	"github.com/blackcoderx/stepwise/pkg/ordering"
)

// ListSteps returns the steps of a scenario ordered by sequence.
func (s *Store) ListSteps(scenarioID string) ([]model.StepInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.scenarios[scenarioID]; !ok {
		return nil, notFound()
	}
	return s.stepInfos(scenarioID), nil
}

// GetStep returns a step with both templates.
func (s *Store) GetStep(id string) (model.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	step, ok := s.steps[id]
	if !ok {
		return model.Step{}, notFound()
	}
	return cloneStep(step), nil
}

// CreateStep inserts a step at w.Sequence, or appends it when nil. The new
// step sends GET / and expects 200 with no body structure.
func (s *Store) CreateStep(scenarioID string, w model.StepWrite) (model.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scenarios[scenarioID]
	if !ok {
		return model.Step{}, notFound()
	}
	title := deref(w.Title)
	if code := model.CheckTitle(title); code != "" {
		return model.Step{}, invalid(code)
	}
	if s.titleTaken(scenarioID, title, "") {
		return model.Step{}, invalid(model.StatusTitleNotUnique)
	}

	now := s.now()
	step := &model.Step{
		ID:           s.newID(),
		Title:        title,
		CreationDate: now,
		UpdateDate:   now,
		Scenario:     model.ScenarioRef{ID: sc.ID, Name: sc.Name},
		Request:      model.StepRequest{ID: s.newID(), Method: model.MethodGet, Endpoint: "/"},
		Response:     model.StepResponse{ID: s.newID(), HTTPStatus: 200},
	}
	reordered, err := ordering.Insert(s.stepInfos(scenarioID), step.Info(), w.Sequence)
	if err != nil {
		return model.Step{}, orderingError(err)
	}
	s.steps[step.ID] = step
	s.applySequences(reordered)
	sc.UpdateDate = now
	return cloneStep(step), nil
}

// UpdateStep renames a step or moves it to another sequence.
func (s *Store) UpdateStep(id string, w model.StepWrite) (model.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := s.steps[id]
	if !ok {
		return model.Step{}, notFound()
	}
	if w.Title != nil {
		if code := model.CheckTitle(*w.Title); code != "" {
			return model.Step{}, invalid(code)
		}
		if s.titleTaken(step.Scenario.ID, *w.Title, id) {
			return model.Step{}, invalid(model.StatusTitleNotUnique)
		}
	}
	if w.Sequence != nil {
		reordered, err := ordering.Move(s.stepInfos(step.Scenario.ID), id, *w.Sequence)
		if err != nil {
			return model.Step{}, orderingError(err)
		}
		s.applySequences(reordered)
	}
	if w.Title != nil {
		step.Title = *w.Title
	}
	step.UpdateDate = s.now()
	return cloneStep(step), nil
}

// DeleteStep removes a step and closes the gap in the sequence.
func (s *Store) DeleteStep(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := s.steps[id]
	if !ok {
		return notFound()
	}
	reordered, err := ordering.Remove(s.stepInfos(step.Scenario.ID), id)
	if err != nil {
		return orderingError(err)
	}
	delete(s.steps, id)
	s.applySequences(reordered)
	return nil
}

// UpdateStepRequest changes the method, endpoint or structure of a request.
// A newly assigned structure replaces every binding with a NULL one.
func (s *Store) UpdateStepRequest(stepID string, w model.RequestWrite) (model.StepRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := s.steps[stepID]
	if !ok {
		return model.StepRequest{}, notFound()
	}
	if w.Method != nil && !w.Method.Valid() {
		return model.StepRequest{}, invalid(model.StatusMethodInvalid)
	}
	var assigned *model.Structure
	if w.StructureID != nil {
		if assigned, ok = s.structures[*w.StructureID]; !ok {
			return model.StepRequest{}, invalid(model.StatusStructureNotFound)
		}
	}

	if w.Method != nil {
		step.Request.Method = *w.Method
	}
	if w.Endpoint != nil {
		step.Request.Endpoint = *w.Endpoint
	}
	switch {
	case assigned != nil:
		step.Request.Structure = &model.StructureRef{ID: assigned.ID, Name: assigned.Name}
		step.Request.Fields = binding.RegenerateRequestFields(assigned, s.newID)
	case w.ClearStructure:
		step.Request.Structure = nil
		step.Request.Fields = nil
	}
	step.UpdateDate = s.now()
	return cloneStep(step).Request, nil
}

// UpdateStepResponse changes the expected status or structure of a response.
func (s *Store) UpdateStepResponse(stepID string, w model.ResponseWrite) (model.StepResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := s.steps[stepID]
	if !ok {
		return model.StepResponse{}, notFound()
	}
	if w.HTTPStatus != nil && (*w.HTTPStatus < 100 || *w.HTTPStatus > 599) {
		return model.StepResponse{}, invalid(model.StatusHTTPStatusInvalid)
	}
	var assigned *model.Structure
	if w.StructureID != nil {
		if assigned, ok = s.structures[*w.StructureID]; !ok {
			return model.StepResponse{}, invalid(model.StatusStructureNotFound)
		}
	}

	if w.HTTPStatus != nil {
		step.Response.HTTPStatus = *w.HTTPStatus
	}
	switch {
	case assigned != nil:
		step.Response.Structure = &model.StructureRef{ID: assigned.ID, Name: assigned.Name}
		step.Response.Fields = binding.RegenerateResponseFields(assigned, s.newID)
	case w.ClearStructure:
		step.Response.Structure = nil
		step.Response.Fields = nil
	}
	step.UpdateDate = s.now()
	return cloneStep(step).Response, nil
}

// UpdateRequestField rebinds one request field.
func (s *Store) UpdateRequestField(fieldID string, u model.RequestFieldUpdate) (model.RequestField, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, step := range s.steps {
		for i, f := range step.Request.Fields {
			if f.ID != fieldID {
				continue
			}
			updated, v := binding.ApplyRequest(f, u, s.parameterSet(step.Scenario.ID))
			if v != nil {
				return model.RequestField{}, invalid(v.Code)
			}
			step.Request.Fields[i] = updated
			step.UpdateDate = s.now()
			return updated, nil
		}
	}
	return model.RequestField{}, notFound()
}

// UpdateResponseField rebinds one response field.
func (s *Store) UpdateResponseField(fieldID string, u model.ResponseFieldUpdate) (model.ResponseField, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, step := range s.steps {
		for i, f := range step.Response.Fields {
			if f.ID != fieldID {
				continue
			}
			updated, v := binding.ApplyResponse(f, u, s.parameterSet(step.Scenario.ID))
			if v != nil {
				return model.ResponseField{}, invalid(v.Code)
			}
			step.Response.Fields[i] = updated
			step.UpdateDate = s.now()
			return updated, nil
		}
	}
	return model.ResponseField{}, notFound()
}

func (s *Store) titleTaken(scenarioID, title, except string) bool {
	for id, step := range s.steps {
		if id != except && step.Scenario.ID == scenarioID && step.Title == title {
			return true
		}
	}
	return false
}

func (s *Store) applySequences(steps []model.StepInfo) {
	for id, seq := range ordering.Sequences(steps) {
		if step, ok := s.steps[id]; ok {
			step.Sequence = seq
		}
	}
}

func orderingError(err error) error {
	var seqErr *ordering.SequenceError
	if errors.As(err, &seqErr) {
		return invalid(seqErr.Code)
	}
	if errors.Is(err, ordering.ErrStepNotFound) {
		return notFound()
	}
	return &StatusError{Code: 500, Status: model.StatusInternalServerError}
}

func cloneStep(step *model.Step) model.Step {
	out := *step
	if step.Request.Structure != nil {
		ref := *step.Request.Structure
		out.Request.Structure = &ref
	}
	if step.Response.Structure != nil {
		ref := *step.Response.Structure
		out.Response.Structure = &ref
	}
	out.Request.Fields = append([]model.RequestField{}, step.Request.Fields...)
	out.Response.Fields = append([]model.ResponseField{}, step.Response.Fields...)
	return out
}
