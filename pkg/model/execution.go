package model

import "time"

// ExecutionStatus is the overall state of a test run.
type ExecutionStatus string

const (
	ExecutionPending ExecutionStatus = "PENDING"
	ExecutionSuccess ExecutionStatus = "SUCCESS"
	ExecutionFailed  ExecutionStatus = "FAILED"
)

// StepStatus is the state of one step within a run.
type StepStatus string

const (
	StepWaiting StepStatus = "WAITING"
	StepSuccess StepStatus = "SUCCESS"
	StepFailed  StepStatus = "FAILED"
	StepSkipped StepStatus = "SKIPPED"
)

// AssertionStatus is the per-field verdict of a response comparison.
type AssertionStatus string

const (
	AssertionSuccess             AssertionStatus = "SUCCESS"
	AssertionFieldDoesntExist    AssertionStatus = "FIELD_DOESNT_EXIST"
	AssertionTypeMismatch        AssertionStatus = "TYPE_MISMATCH"
	AssertionWrongParameterValue AssertionStatus = "WRONG_PARAMETER_VALUE"
	AssertionValueMismatch       AssertionStatus = "VALUE_MISMATCH"
	AssertionUnknownField        AssertionStatus = "UNKNOWN_FIELD"
)

// StartExecution is the body of POST /scenarios/{id}/execute.
type StartExecution struct {
	BaseURL string `json:"baseUrl"`
}

// StartedExecution is the reply to StartExecution.
type StartedExecution struct {
	ID string `json:"id"`
}

// ExecutionInfo is a row of the execution list.
type ExecutionInfo struct {
	ID           string          `json:"id"`
	ScenarioName string          `json:"scenarioName"`
	Status       ExecutionStatus `json:"status"`
	BaseURL      string          `json:"baseUrl"`
	StartDate    time.Time       `json:"startDate"`
	FinishDate   *time.Time      `json:"finishDate"`
}

// ExecutionStepInfo is a row of an execution's step table.
type ExecutionStepInfo struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Method        HTTPMethod `json:"method"`
	Endpoint      string     `json:"endpoint"`
	Sequence      int        `json:"sequence"`
	Status        StepStatus `json:"status"`
	ExecutionDate *time.Time `json:"executionDate"`
}

// Execution is a recorded run of a scenario.
type Execution struct {
	ExecutionInfo
	Steps []ExecutionStepInfo `json:"steps"`
}

// ExecutionRef is the short reference an execution step carries.
type ExecutionRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ExecutionRequestField is a resolved request value as it was sent.
type ExecutionRequestField struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	DataType DataType `json:"dataType"`
	Value    *string  `json:"value"`
}

// ExecutionRequest is the request as it was sent.
type ExecutionRequest struct {
	Method         HTTPMethod              `json:"method"`
	ActualEndpoint string                  `json:"actualEndpoint"`
	StructureName  *string                 `json:"structureName"`
	Fields         []ExecutionRequestField `json:"fields"`
}

// ExecutionResponseField is the comparison outcome of one response field.
type ExecutionResponseField struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	AssertionMode     AssertionMode   `json:"assertionMode"`
	ExpectedValueType DataType        `json:"expectedValueType"`
	ExpectedValue     *string         `json:"expectedValue"`
	ActualValueType   DataType        `json:"actualValueType"`
	ActualValue       *string         `json:"actualValue"`
	AssertionStatus   AssertionStatus `json:"assertionStatus"`
}

// ExecutionResponse is the response as it was received and judged.
type ExecutionResponse struct {
	ExpectedHTTPStatus int                      `json:"expectedHttpStatus"`
	ActualHTTPStatus   int                      `json:"actualHttpStatus"`
	StructureName      *string                  `json:"structureName"`
	Fields             []ExecutionResponseField `json:"fields"`
}

// ExecutionStep is the read-only record of one executed step.
type ExecutionStep struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Sequence      int               `json:"sequence"`
	Status        StepStatus        `json:"status"`
	ExecutionDate *time.Time        `json:"executionDate"`
	Execution     ExecutionRef      `json:"execution"`
	Request       ExecutionRequest  `json:"request"`
	Response      ExecutionResponse `json:"response"`
	Error         string            `json:"error,omitempty"`
}

// Info returns the list-row view of the step.
func (s *ExecutionStep) Info() ExecutionStepInfo {
	return ExecutionStepInfo{
		ID:            s.ID,
		Title:         s.Title,
		Method:        s.Request.Method,
		Endpoint:      s.Request.ActualEndpoint,
		Sequence:      s.Sequence,
		Status:        s.Status,
		ExecutionDate: s.ExecutionDate,
	}
}

// Passed reports whether the status matched and every declared field was
// judged SUCCESS. UNKNOWN_FIELD records do not fail a response.
func (r *ExecutionResponse) Passed() bool {
	if r.ExpectedHTTPStatus != r.ActualHTTPStatus {
		return false
	}
	for _, f := range r.Fields {
		if f.AssertionStatus != AssertionSuccess && f.AssertionStatus != AssertionUnknownField {
			return false
		}
	}
	return true
}
