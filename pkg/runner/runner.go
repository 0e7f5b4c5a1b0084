// Package runner executes a scenario's steps in sequence against a target
// base URL and records the outcome the way the backend reports executions.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/blackcoderx/stepwise/pkg/assertion"
	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/model"
	"github.com/blackcoderx/stepwise/pkg/storage"
)

// Plan is everything needed to run one scenario.
type Plan struct {
	ScenarioID   string
	ScenarioName string
	Steps        []model.Step
	Parameters   []model.Parameter
	// Structures by ID. Optional; when a response structure is known the
	// payload is also checked against its JSON schema.
	Structures map[string]*model.Structure
}

// Result is a finished run.
type Result struct {
	Execution model.Execution
	Steps     []model.ExecutionStep
	// Parameters holds the parameter values after captures, by ID.
	Parameters map[string]string
}

// Options tune a Runner. The zero value is usable.
type Options struct {
	Client  *http.Client
	Limiter *rate.Limiter
	Logger  *slog.Logger
	NewID   func() string
	Rand    *rand.Rand
	Headers map[string]string
	// Observer is called after each step is recorded, including skipped ones.
	Observer func(model.ExecutionStep)
}

// Runner executes plans.
type Runner struct {
	transport *Transport
	limiter   *rate.Limiter
	logger    *slog.Logger
	newID     func() string
	rnd       *rand.Rand
	rndMu     *sync.Mutex
	headers   map[string]string
	observer  func(model.ExecutionStep)
	now       func() time.Time
}

// New builds a Runner from opts.
func New(opts Options) *Runner {
	r := &Runner{
		transport: NewTransport(opts.Client),
		limiter:   opts.Limiter,
		logger:    opts.Logger,
		newID:     opts.NewID,
		rnd:       opts.Rand,
		headers:   opts.Headers,
		observer:  opts.Observer,
		now:       time.Now,
		rndMu:     new(sync.Mutex),
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	if r.rnd == nil {
		r.rnd = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	return r
}

// source returns a generator for one run or worker, seeded from the
// runner's own. Concurrent runs never share generator state.
func (r *Runner) source(stream uint64) *rand.Rand {
	r.rndMu.Lock()
	seed := r.rnd.Uint64()
	r.rndMu.Unlock()
	return rand.New(rand.NewPCG(seed, stream))
}

// Run executes plan against baseURL. Steps run in sequence order; after the
// first failed step the rest are recorded as SKIPPED. Run only returns an
// error for an unusable plan; step failures are part of the Result.
func (r *Runner) Run(ctx context.Context, plan Plan, baseURL string) (*Result, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("run %s: %s", plan.ScenarioName, model.StatusBaseURLEmpty)
	}

	steps := make([]model.Step, len(plan.Steps))
	copy(steps, plan.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Sequence < steps[j].Sequence })

	values, idToName := parameterValues(plan.Parameters)
	params := binding.NewParameterSet(plan.ScenarioID, plan.Parameters)
	res := &resolver{rnd: r.source(0x5eed), params: values}

	exec := model.Execution{
		ExecutionInfo: model.ExecutionInfo{
			ID:           r.newID(),
			ScenarioName: plan.ScenarioName,
			Status:       model.ExecutionPending,
			BaseURL:      baseURL,
			StartDate:    r.now(),
		},
	}
	ref := model.ExecutionRef{ID: exec.ID, Name: plan.ScenarioName}
	log := r.logger.With("execution", exec.ID, "scenario", plan.ScenarioName)
	log.Info("execution started", "steps", len(steps), "base_url", baseURL)

	result := &Result{Parameters: values}
	failed := false
	for _, step := range steps {
		var rec model.ExecutionStep
		if failed || ctx.Err() != nil {
			rec = r.skipped(step, ref, params)
		} else {
			rec = r.runStep(ctx, step, plan, baseURL, ref, res, idToName)
			if rec.Status != model.StepSuccess {
				failed = true
			}
		}
		log.Debug("step recorded", "sequence", rec.Sequence, "title", rec.Title, "status", rec.Status)
		result.Steps = append(result.Steps, rec)
		exec.Steps = append(exec.Steps, rec.Info())
		if r.observer != nil {
			r.observer(rec)
		}
	}

	finish := r.now()
	exec.FinishDate = &finish
	exec.Status = model.ExecutionSuccess
	if failed || ctx.Err() != nil {
		exec.Status = model.ExecutionFailed
	}
	log.Info("execution finished", "status", exec.Status, "duration", finish.Sub(exec.StartDate))

	result.Execution = exec
	return result, nil
}

func (r *Runner) runStep(ctx context.Context, step model.Step, plan Plan, baseURL string, ref model.ExecutionRef, res *resolver, idToName map[string]string) model.ExecutionStep {
	rec := r.record(step, ref)
	rec.Request.ActualEndpoint = storage.SubstituteVariables(step.Request.Endpoint, byName(res.params, idToName))

	var body map[string]any
	if step.Request.Structure != nil || len(step.Request.Fields) > 0 {
		body = make(map[string]any, len(step.Request.Fields))
	}
	for _, f := range step.Request.Fields {
		val, shown := res.resolve(f)
		body[f.Name] = val
		rec.Request.Fields = append(rec.Request.Fields, model.ExecutionRequestField{
			ID:       f.ID,
			Name:     f.Name,
			DataType: f.Type,
			Value:    shown,
		})
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			rec.Status = model.StepFailed
			rec.Error = fmt.Sprintf("rate limiter: %v", err)
			return rec
		}
	}

	executed := r.now()
	rec.ExecutionDate = &executed
	resp, err := r.transport.Send(ctx, Request{
		Method:  string(step.Request.Method),
		URL:     strings.TrimRight(baseURL, "/") + rec.Request.ActualEndpoint,
		Headers: r.headers,
		Body:    body,
	})
	if err != nil {
		rec.Status = model.StepFailed
		rec.Error = err.Error()
		return rec
	}
	rec.Response.ActualHTTPStatus = resp.StatusCode

	payload, perr := resp.Payload()
	var issues []string
	if perr != nil && len(step.Response.Fields) > 0 {
		issues = append(issues, perr.Error())
	}
	rec.Response.Fields = assertion.Project(step.Response.Fields, payload, res.params)
	for id, v := range assertion.Captures(step.Response.Fields, payload) {
		res.params[id] = v
	}

	if s := step.Response.Structure; s != nil && perr == nil {
		if full, ok := plan.Structures[s.ID]; ok {
			found, err := assertion.ValidatePayload(full, resp.Body)
			if err == nil {
				issues = append(issues, found...)
			}
		}
	}
	rec.Error = strings.Join(issues, "; ")

	rec.Status = model.StepFailed
	if rec.Response.Passed() {
		rec.Status = model.StepSuccess
	}
	return rec
}

// skipped records a step that was never sent. Request values are described
// rather than resolved.
func (r *Runner) skipped(step model.Step, ref model.ExecutionRef, params binding.ParameterSet) model.ExecutionStep {
	rec := r.record(step, ref)
	rec.Status = model.StepSkipped
	rec.Request.ActualEndpoint = step.Request.Endpoint
	for _, f := range step.Request.Fields {
		rec.Request.Fields = append(rec.Request.Fields, model.ExecutionRequestField{
			ID:       f.ID,
			Name:     f.Name,
			DataType: f.Type,
			Value:    describeExpected(f, params),
		})
	}
	return rec
}

func (r *Runner) record(step model.Step, ref model.ExecutionRef) model.ExecutionStep {
	rec := model.ExecutionStep{
		ID:        r.newID(),
		Title:     step.Title,
		Sequence:  step.Sequence,
		Status:    model.StepWaiting,
		Execution: ref,
		Request: model.ExecutionRequest{
			Method: step.Request.Method,
		},
		Response: model.ExecutionResponse{
			ExpectedHTTPStatus: step.Response.HTTPStatus,
		},
	}
	if s := step.Request.Structure; s != nil {
		rec.Request.StructureName = model.Ptr(s.Name)
	}
	if s := step.Response.Structure; s != nil {
		rec.Response.StructureName = model.Ptr(s.Name)
	}
	return rec
}
