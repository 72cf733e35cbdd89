package models

import (
	"errors"
	"fmt"
	"time"
)

// TestRunStatus represents the lifecycle state of a test run.
type TestRunStatus string

const (
	TestRunStatusPending  TestRunStatus = "pending"  // Created, not yet dispatched
	TestRunStatusRunning  TestRunStatus = "running"  // Dispatched to a CI provider
	TestRunStatusAwaiting TestRunStatus = "awaiting" // Awaiting externally reported results
	TestRunStatusPassed   TestRunStatus = "passed"   // Terminal
	TestRunStatusFailed   TestRunStatus = "failed"   // Terminal
)

// IsTerminal reports whether no transition can leave the status.
func (s TestRunStatus) IsTerminal() bool {
	return s == TestRunStatusPassed || s == TestRunStatusFailed
}

var (
	// ErrNoTestCases is returned when a test run is constructed without test cases.
	ErrNoTestCases = errors.New("test run requires at least one test case")

	// ErrNilExecutionTarget is returned when a test run is constructed without a target.
	ErrNilExecutionTarget = errors.New("test run requires an execution target")

	// ErrNotPending is returned when Start is called on a run that already left pending.
	ErrNotPending = errors.New("test run is not pending")
)

// TestRun is the lifecycle container for one dispatched execution: the set
// of test cases that share an execution target, the target snapshot itself,
// and the run status.
type TestRun struct {
	ID              string           `json:"id"`
	TestSuiteID     string           `json:"test_suite_id"`
	TestCaseIDs     []string         `json:"test_case_ids" validate:"required,min=1"`
	ExecutionTarget *ExecutionTarget `json:"execution_target" validate:"required"`
	Status          TestRunStatus    `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewTestRun creates a pending test run. Construction fails without at least
// one test case id and a non-nil execution target.
func NewTestRun(id, suiteID string, testCaseIDs []string, target *ExecutionTarget) (*TestRun, error) {
	if len(testCaseIDs) == 0 {
		return nil, ErrNoTestCases
	}

	if target == nil {
		return nil, ErrNilExecutionTarget
	}

	now := time.Now().UTC()

	return &TestRun{
		ID:              id,
		TestSuiteID:     suiteID,
		TestCaseIDs:     testCaseIDs,
		ExecutionTarget: target.Clone(),
		Status:          TestRunStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Start transitions the run from pending to running. Only legal from pending.
func (r *TestRun) Start() error {
	if r.Status != TestRunStatusPending {
		return fmt.Errorf("%w: status is %q", ErrNotPending, r.Status)
	}

	r.Status = TestRunStatusRunning
	r.UpdatedAt = time.Now().UTC()

	return nil
}

// MarkAwaiting transitions the run to awaiting externally reported results.
// Legal from any state.
func (r *TestRun) MarkAwaiting() {
	r.Status = TestRunStatusAwaiting
	r.UpdatedAt = time.Now().UTC()
}

// Complete drives the run to its terminal state. It is a no-op unless the
// run is running or awaiting, which makes result delivery idempotent against
// duplicate webhooks and late results for already-terminal runs.
func (r *TestRun) Complete(passed bool) {
	if r.Status != TestRunStatusRunning && r.Status != TestRunStatusAwaiting {
		return
	}

	if passed {
		r.Status = TestRunStatusPassed
	} else {
		r.Status = TestRunStatusFailed
	}

	r.UpdatedAt = time.Now().UTC()
}

// IsActive reports whether the run blocks creation of another run for the
// same idempotency key.
func (r *TestRun) IsActive() bool {
	return r.Status == TestRunStatusPending || r.Status == TestRunStatusRunning
}
