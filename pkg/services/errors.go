// Package services implements the workflow operations behind the console: create, fetch, list, save and delete.
package services

import (
	"errors"
	"fmt"

	"github.com/birun/console/pkg/graph"
)

// Business Logic Errors - local validation failures that never reach the backend.
var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrWorkflowNil     = errors.New("workflow cannot be nil")
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrInvalidDocument = errors.New("invalid workflow document")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Machine-readable error code
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError reports whether err was raised locally before any persistence call.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrInvalidDocument) ||
		errors.Is(err, graph.ErrInvalidGraph)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
