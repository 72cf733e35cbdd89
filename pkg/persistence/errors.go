// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrTestRunNotFound indicates a test run was not found by the given identifier.
	ErrTestRunNotFound = errors.New("test run not found")

	// ErrTestCaseNotFound indicates a test case was not found by the given identifier.
	ErrTestCaseNotFound = errors.New("test case not found")

	// ErrTestSuiteNotFound indicates a test suite was not found, either by id
	// or by reverse lookup from a test case.
	ErrTestSuiteNotFound = errors.New("test suite not found")

	// ErrIntegrationNotFound indicates a provider integration was not found.
	ErrIntegrationNotFound = errors.New("integration not found")

	// ErrDefaultIntegrationNotFound indicates no integration is marked as the
	// project-level default.
	ErrDefaultIntegrationNotFound = errors.New("default integration not found")
)

// TestRunError wraps test-run storage errors with operation context.
type TestRunError struct {
	Op    string // Operation being performed (e.g., "GetByID", "Save")
	RunID string // Test run ID if applicable
	Err   error  // Underlying error
}

func (e *TestRunError) Error() string {
	return fmt.Sprintf("%s operation failed for test run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *TestRunError) Unwrap() error {
	return e.Err
}

func (e *TestRunError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTestRunError creates a new test-run storage error with context.
func NewTestRunError(op, runID string, err error) *TestRunError {
	return &TestRunError{
		Op:    op,
		RunID: runID,
		Err:   err,
	}
}

// IsTestRunNotFound checks if an error indicates a test run was not found.
func IsTestRunNotFound(err error) bool {
	return errors.Is(err, ErrTestRunNotFound)
}

// IsTestCaseNotFound checks if an error indicates a test case was not found.
func IsTestCaseNotFound(err error) bool {
	return errors.Is(err, ErrTestCaseNotFound)
}

// IsTestSuiteNotFound checks if an error indicates a test suite was not found.
func IsTestSuiteNotFound(err error) bool {
	return errors.Is(err, ErrTestSuiteNotFound)
}

// IsIntegrationNotFound checks if an error indicates an integration was not found.
func IsIntegrationNotFound(err error) bool {
	return errors.Is(err, ErrIntegrationNotFound) ||
		errors.Is(err, ErrDefaultIntegrationNotFound)
}
