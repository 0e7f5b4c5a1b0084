package mockserver

import (
	"strings"

	"github.com/blackcoderx/stepwise/pkg/model"
	"github.com/blackcoderx/stepwise/pkg/runner"
)

// StartExecution records a PENDING execution of a scenario and returns its
// ID with a snapshot of everything the run needs. Later edits to the
// scenario do not affect the snapshot.
func (s *Store) StartExecution(scenarioID, baseURL string) (string, runner.Plan, error) {
	if strings.TrimSpace(baseURL) == "" {
		return "", runner.Plan{}, invalid(model.StatusBaseURLEmpty)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scenarios[scenarioID]
	if !ok {
		return "", runner.Plan{}, notFound()
	}

	plan := runner.Plan{
		ScenarioID:   sc.ID,
		ScenarioName: sc.Name,
		Structures:   make(map[string]*model.Structure),
	}
	for _, step := range s.scenarioSteps(scenarioID) {
		plan.Steps = append(plan.Steps, cloneStep(step))
		for _, ref := range []*model.StructureRef{step.Request.Structure, step.Response.Structure} {
			if ref == nil {
				continue
			}
			if st, ok := s.structures[ref.ID]; ok {
				c := cloneStructure(st)
				plan.Structures[ref.ID] = &c
			}
		}
	}
	for _, id := range s.paramOrder {
		if p := s.parameters[id]; p.ScenarioID == scenarioID {
			plan.Parameters = append(plan.Parameters, *p)
		}
	}

	id := s.newID()
	s.executions[id] = &executionRecord{
		scenarioID: scenarioID,
		execution: model.Execution{
			ExecutionInfo: model.ExecutionInfo{
				ID:           id,
				ScenarioName: sc.Name,
				Status:       model.ExecutionPending,
				BaseURL:      baseURL,
				StartDate:    s.now(),
			},
			Steps: []model.ExecutionStepInfo{},
		},
	}
	s.executionOrder = append(s.executionOrder, id)
	return id, plan, nil
}

// FinishExecution stores the outcome of a run under the execution ID handed
// out by StartExecution.
func (s *Store) FinishExecution(id string, res *runner.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.executions[id]
	if !ok {
		return notFound()
	}
	exec := res.Execution
	exec.ID = id
	exec.StartDate = rec.execution.StartDate
	if exec.Steps == nil {
		exec.Steps = []model.ExecutionStepInfo{}
	}
	rec.execution = exec
	rec.stepIDs = rec.stepIDs[:0]
	for _, step := range res.Steps {
		step.Execution.ID = id
		stored := step
		s.executionSteps[step.ID] = &stored
		rec.stepIDs = append(rec.stepIDs, step.ID)
	}
	return nil
}

// FailExecution marks a PENDING execution FAILED without step records.
func (s *Store) FailExecution(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.executions[id]; ok && rec.execution.Status == model.ExecutionPending {
		finish := s.now()
		rec.execution.Status = model.ExecutionFailed
		rec.execution.FinishDate = &finish
	}
}

// ListExecutions returns a page of executions, newest first.
func (s *Store) ListExecutions(p model.PageRequest) model.Page[model.ExecutionInfo] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]model.ExecutionInfo, 0, len(s.executionOrder))
	for i := len(s.executionOrder) - 1; i >= 0; i-- {
		rows = append(rows, s.executions[s.executionOrder[i]].execution.ExecutionInfo)
	}
	return paginate(rows, p)
}

// GetExecution returns an execution with its step rows.
func (s *Store) GetExecution(id string) (model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.executions[id]
	if !ok {
		return model.Execution{}, notFound()
	}
	out := rec.execution
	out.Steps = append([]model.ExecutionStepInfo{}, rec.execution.Steps...)
	return out, nil
}

// GetExecutionStep returns one executed step record.
func (s *Store) GetExecutionStep(id string) (model.ExecutionStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	step, ok := s.executionSteps[id]
	if !ok {
		return model.ExecutionStep{}, notFound()
	}
	return *step, nil
}
