package runner

import (
	"fmt"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/model"
	"github.com/blackcoderx/stepwise/pkg/storage"
)

// PlanFromBundle builds a Plan from a scenario file so it can run without a
// backend. IDs are derived from names. Every binding goes through the same
// rules the backend applies; the first rejected binding is returned as an
// error naming its step and field.
func PlanFromBundle(b *storage.Bundle) (Plan, error) {
	if err := b.Validate(); err != nil {
		return Plan{}, err
	}
	plan := Plan{
		ScenarioID:   "scenario:" + b.Scenario,
		ScenarioName: b.Scenario,
		Structures:   make(map[string]*model.Structure),
	}

	ids := make(map[string]string, len(b.Parameters))
	for _, p := range b.Parameters {
		id := "parameter:" + p.Name
		ids[p.Name] = id
		plan.Parameters = append(plan.Parameters, model.Parameter{
			ID:           id,
			ScenarioID:   plan.ScenarioID,
			Name:         p.Name,
			InitialValue: p.InitialValue,
		})
	}
	params := binding.NewParameterSet(plan.ScenarioID, plan.Parameters)

	for _, bs := range b.Structures {
		s := bs.Model()
		s.ID = "structure:" + s.Name
		for i := range s.Fields {
			s.Fields[i].ID = s.ID + "/" + s.Fields[i].Name
		}
		plan.Structures[s.ID] = s
	}

	for i, bstep := range b.Steps {
		step := model.Step{
			ID:       fmt.Sprintf("step:%d", i+1),
			Title:    bstep.Title,
			Sequence: i + 1,
			Scenario: model.ScenarioRef{ID: plan.ScenarioID, Name: plan.ScenarioName},
			Request: model.StepRequest{
				Method:   bstep.Request.Method,
				Endpoint: bstep.Request.Endpoint,
			},
			Response: model.StepResponse{HTTPStatus: bstep.Response.HTTPStatus},
		}
		if step.Request.Method == "" {
			step.Request.Method = model.MethodGet
		}
		if step.Response.HTTPStatus == 0 {
			step.Response.HTTPStatus = 200
		}

		if name := bstep.Request.Structure; name != "" {
			s := plan.Structures["structure:"+name]
			step.Request.Structure = &model.StructureRef{ID: s.ID, Name: s.Name}
			fields := binding.RegenerateRequestFields(s, nil)
			for j := range fields {
				fields[j].ID = fmt.Sprintf("%s/request/%s", step.ID, fields[j].Name)
				rb, ok := bstep.Request.Fields[fields[j].Name]
				if !ok {
					continue
				}
				updated, v := binding.ApplyRequest(fields[j], rb.Update(ids), params)
				if v != nil {
					return Plan{}, fmt.Errorf("step %q request field %q: %w", step.Title, fields[j].Name, v)
				}
				fields[j] = updated
			}
			step.Request.Fields = fields
		}

		if name := bstep.Response.Structure; name != "" {
			s := plan.Structures["structure:"+name]
			step.Response.Structure = &model.StructureRef{ID: s.ID, Name: s.Name}
			fields := binding.RegenerateResponseFields(s, nil)
			for j := range fields {
				fields[j].ID = fmt.Sprintf("%s/response/%s", step.ID, fields[j].Name)
				rb, ok := bstep.Response.Fields[fields[j].Name]
				if !ok {
					continue
				}
				updated, v := binding.ApplyResponse(fields[j], rb.Update(ids), params)
				if v != nil {
					return Plan{}, fmt.Errorf("step %q response field %q: %w", step.Title, fields[j].Name, v)
				}
				fields[j] = updated
			}
			step.Response.Fields = fields
		}
		plan.Steps = append(plan.Steps, step)
	}
	return plan, nil
}
