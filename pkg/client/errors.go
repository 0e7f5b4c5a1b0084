package client

import (
	"errors"
	"fmt"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/model"
)

// ErrSubmissionInFlight is returned when a write to an entity is attempted
// while another write to the same entity is still outstanding.
var ErrSubmissionInFlight = errors.New("a submission for this entity is already in flight")

// ValidationError is a rejected write. It is recoverable: the caller shows the
// status next to Field and keeps the form open.
type ValidationError struct {
	Status     model.Status
	Field      string
	HTTPStatus int // 0 when the write was rejected before it was sent
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Status)
	}
	return fmt.Sprintf("validation failed: %s", e.Status)
}

// Message returns the human-readable text for the status.
func (e *ValidationError) Message() string {
	return e.Status.Message()
}

// NetworkError is a failed round trip: the request could not be sent, or the
// reply was not the JSON it should have been. No state was applied.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ReferentialError is a binding that points at a parameter outside the
// step's scenario. It is raised before anything is sent.
type ReferentialError struct {
	Violation *binding.Violation
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("referential integrity: %v", e.Violation)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Status == model.StatusNotFound
}

func fromViolation(v *binding.Violation) error {
	if v.Referential() {
		return &ReferentialError{Violation: v}
	}
	return &ValidationError{Status: v.Code, Field: v.Field}
}
