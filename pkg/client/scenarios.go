package client

import (
	"context"
	"net/http"

	"github.com/blackcoderx/stepwise/pkg/model"
)

// ListScenarios returns a page of scenarios.
func (c *Client) ListScenarios(ctx context.Context, p model.PageRequest) (*model.Page[model.ScenarioInfo], error) {
	var page model.Page[model.ScenarioInfo]
	if err := c.get(ctx, "/scenarios", pageQuery(p), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetScenario returns a scenario with its step list.
func (c *Client) GetScenario(ctx context.Context, id string) (*model.Scenario, error) {
	var s model.Scenario
	if err := c.get(ctx, "/scenarios/"+escape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateScenario creates an empty scenario.
func (c *Client) CreateScenario(ctx context.Context, w model.ScenarioWrite) (*model.Scenario, error) {
	var s model.Scenario
	if err := c.write(ctx, "scenarios", http.MethodPost, "/scenarios", w, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateScenario renames a scenario.
func (c *Client) UpdateScenario(ctx context.Context, id string, w model.ScenarioWrite) (*model.Scenario, error) {
	var s model.Scenario
	if err := c.write(ctx, "scenario:"+id, http.MethodPatch, "/scenarios/"+escape(id), w, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteScenario deletes a scenario with its steps and parameters.
func (c *Client) DeleteScenario(ctx context.Context, id string) error {
	return c.write(ctx, "scenario:"+id, http.MethodDelete, "/scenarios/"+escape(id), nil, nil)
}

// ListParameters returns the parameters of a scenario with their usages.
func (c *Client) ListParameters(ctx context.Context, scenarioID string) ([]model.Parameter, error) {
	var params []model.Parameter
	if err := c.get(ctx, "/scenarios/"+escape(scenarioID)+"/parameters", nil, &params); err != nil {
		return nil, err
	}
	for i := range params {
		if params[i].ScenarioID == "" {
			params[i].ScenarioID = scenarioID
		}
	}
	return params, nil
}

// GetParameter returns one parameter.
func (c *Client) GetParameter(ctx context.Context, id string) (*model.Parameter, error) {
	var p model.Parameter
	if err := c.get(ctx, "/parameters/"+escape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateParameter adds a parameter to a scenario.
func (c *Client) CreateParameter(ctx context.Context, scenarioID string, w model.ParameterWrite) (*model.Parameter, error) {
	var p model.Parameter
	path := "/scenarios/" + escape(scenarioID) + "/parameters"
	if err := c.write(ctx, "scenario:"+scenarioID+":parameters", http.MethodPost, path, w, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateParameter renames a parameter or changes its initial value.
func (c *Client) UpdateParameter(ctx context.Context, id string, w model.ParameterWrite) (*model.Parameter, error) {
	var p model.Parameter
	if err := c.write(ctx, "parameter:"+id, http.MethodPatch, "/parameters/"+escape(id), w, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteParameter deletes a parameter. The backend refuses with
// PARAMETER_IN_USE while any binding references it.
func (c *Client) DeleteParameter(ctx context.Context, id string) error {
	return c.write(ctx, "parameter:"+id, http.MethodDelete, "/parameters/"+escape(id), nil, nil)
}
