// Package services holds the use cases shared by the HTTP API, the WebSocket
// endpoint and the background workers.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/flowrun/pkg/graph"
)

// Validation errors map to 400 responses.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrFlowNil           = errors.New("flow cannot be nil")
	ErrFlowNameRequired  = errors.New("flow name is required")
	ErrInvalidFlowSchema = errors.New("flow does not match the expected shape")
	ErrInvalidFlowGraph  = errors.New("flow graph is invalid")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
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

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrFlowNil) ||
		errors.Is(err, ErrFlowNameRequired) ||
		errors.Is(err, ErrInvalidFlowSchema) ||
		errors.Is(err, ErrInvalidFlowGraph) ||
		errors.Is(err, graph.ErrNoTrigger) ||
		errors.Is(err, graph.ErrCycle)
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
