package client

import (
	"context"
	"net/http"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/model"
)

// ListSteps returns the steps of a scenario ordered by sequence.
func (c *Client) ListSteps(ctx context.Context, scenarioID string) ([]model.StepInfo, error) {
	var steps []model.StepInfo
	if err := c.get(ctx, "/scenarios/"+escape(scenarioID)+"/steps", nil, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// GetStep returns a step with its request and response templates.
func (c *Client) GetStep(ctx context.Context, id string) (*model.Step, error) {
	var s model.Step
	if err := c.get(ctx, "/steps/"+escape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateStep adds a step to a scenario. A nil Sequence appends it.
func (c *Client) CreateStep(ctx context.Context, scenarioID string, w model.StepWrite) (*model.Step, error) {
	var s model.Step
	path := "/scenarios/" + escape(scenarioID) + "/steps"
	if err := c.write(ctx, "scenario:"+scenarioID+":steps", http.MethodPost, path, w, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStep changes a step's title or moves it to another sequence.
func (c *Client) UpdateStep(ctx context.Context, id string, w model.StepWrite) (*model.Step, error) {
	if w.Sequence != nil && *w.Sequence < 1 {
		return nil, &ValidationError{Status: model.StatusSequenceLessThanOne, Field: model.FieldSequence}
	}
	var s model.Step
	if err := c.write(ctx, "step:"+id, http.MethodPatch, "/steps/"+escape(id), w, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// MoveStep gives a step a new sequence; the backend shifts the steps between
// the old and new position.
func (c *Client) MoveStep(ctx context.Context, id string, sequence int) (*model.Step, error) {
	return c.UpdateStep(ctx, id, model.StepWrite{Sequence: &sequence})
}

// DeleteStep deletes a step; later steps move up by one.
func (c *Client) DeleteStep(ctx context.Context, id string) error {
	return c.write(ctx, "step:"+id, http.MethodDelete, "/steps/"+escape(id), nil, nil)
}

// UpdateStepRequest changes the method, endpoint or structure of a step's
// request. Assigning a structure regenerates the field bindings.
func (c *Client) UpdateStepRequest(ctx context.Context, stepID string, w model.RequestWrite) (*model.StepRequest, error) {
	if w.Method != nil && !w.Method.Valid() {
		return nil, &ValidationError{Status: model.StatusMethodInvalid, Field: model.FieldMethod}
	}
	var r model.StepRequest
	if err := c.write(ctx, "step:"+stepID+":request", http.MethodPatch, "/steps/"+escape(stepID)+"/request", w, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateStepResponse changes the expected status or structure of a step's
// response.
func (c *Client) UpdateStepResponse(ctx context.Context, stepID string, w model.ResponseWrite) (*model.StepResponse, error) {
	if w.HTTPStatus != nil && (*w.HTTPStatus < 100 || *w.HTTPStatus > 599) {
		return nil, &ValidationError{Status: model.StatusHTTPStatusInvalid, Field: model.FieldHTTPStatus}
	}
	var r model.StepResponse
	if err := c.write(ctx, "step:"+stepID+":response", http.MethodPatch, "/steps/"+escape(stepID)+"/response", w, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRequestField rebinds one request field. The binding is validated
// against params first; a reference outside the scenario fails with a
// ReferentialError and nothing is sent.
func (c *Client) UpdateRequestField(ctx context.Context, field model.RequestField, u model.RequestFieldUpdate, params binding.ParameterSet) (*model.RequestField, error) {
	if res := binding.ValidateRequest(u, field.Type, params); !res.OK() {
		return nil, fromViolation(res.Violation)
	}
	var f model.RequestField
	if err := c.write(ctx, "requestField:"+field.ID, http.MethodPatch, "/requestFields/"+escape(field.ID), u, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateResponseField rebinds one response field, with the same
// pre-validation as UpdateRequestField.
func (c *Client) UpdateResponseField(ctx context.Context, field model.ResponseField, u model.ResponseFieldUpdate, params binding.ParameterSet) (*model.ResponseField, error) {
	if res := binding.ValidateResponse(u, field.Type, params); !res.OK() {
		return nil, fromViolation(res.Violation)
	}
	var f model.ResponseField
	if err := c.write(ctx, "responseField:"+field.ID, http.MethodPatch, "/responseFields/"+escape(field.ID), u, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
