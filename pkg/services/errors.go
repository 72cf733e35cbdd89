// Package services provides the run orchestration service and its error types.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNoTestCaseIDs     = errors.New("request must name at least one test case")
	ErrInvalidMode       = errors.New("invalid execution mode")
	ErrNothingToRun      = errors.New("no test cases could be resolved")
	ErrUnresolvedRequest = errors.New("test case could not be resolved")

	// Business Logic Conflicts (409 Conflict).
	ErrRunNotCompletable = errors.New("test run has not been dispatched yet")
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
		errors.Is(err, ErrNoTestCaseIDs) ||
		errors.Is(err, ErrInvalidMode) ||
		errors.Is(err, ErrNothingToRun) ||
		errors.Is(err, ErrUnresolvedRequest)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrRunNotCompletable)
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
