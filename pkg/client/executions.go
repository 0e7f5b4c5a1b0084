package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/blackcoderx/stepwise/pkg/model"
)

// StartExecution runs a scenario against baseURL on the backend.
func (c *Client) StartExecution(ctx context.Context, scenarioID, baseURL string) (*model.StartedExecution, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, &ValidationError{Status: model.StatusBaseURLEmpty, Field: model.FieldBaseURL}
	}
	var started model.StartedExecution
	path := "/scenarios/" + escape(scenarioID) + "/execute"
	if err := c.write(ctx, "scenario:"+scenarioID+":execute", http.MethodPost, path, model.StartExecution{BaseURL: baseURL}, &started); err != nil {
		return nil, err
	}
	return &started, nil
}

// ListExecutions returns a page of executions, newest first.
func (c *Client) ListExecutions(ctx context.Context, p model.PageRequest) (*model.Page[model.ExecutionInfo], error) {
	var page model.Page[model.ExecutionInfo]
	if err := c.get(ctx, "/executions", pageQuery(p), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetExecution returns an execution with its step list.
func (c *Client) GetExecution(ctx context.Context, id string) (*model.Execution, error) {
	var e model.Execution
	if err := c.get(ctx, "/executions/"+escape(id), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetExecutionStep returns the full record of one executed step.
func (c *Client) GetExecutionStep(ctx context.Context, id string) (*model.ExecutionStep, error) {
	var s model.ExecutionStep
	if err := c.get(ctx, "/executionSteps/"+escape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// WaitExecution polls an execution until it leaves PENDING or ctx is done.
func (c *Client) WaitExecution(ctx context.Context, id string, every time.Duration) (*model.Execution, error) {
	if every <= 0 {
		every = 500 * time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		e, err := c.GetExecution(ctx, id)
		if err != nil {
			return nil, err
		}
		if e.Status != model.ExecutionPending {
			return e, nil
		}
		select {
		case <-ctx.Done():
			return e, ctx.Err()
		case <-ticker.C:
		}
	}
}
