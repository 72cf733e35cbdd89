package models

import "time"

// TestCase is a single executable test definition. The execution target is
// optional; absent targets fall back through the resolution cascade.
type TestCase struct {
	ID              string           `json:"id"`
	Name            string           `json:"name" validate:"required"`
	ExecutionTarget *ExecutionTarget `json:"execution_target,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TestSuite groups test cases and may carry a default execution target for
// cases that have none of their own.
type TestSuite struct {
	ID                     string           `json:"id"`
	Name                   string           `json:"name" validate:"required"`
	TestCaseIDs            []string         `json:"test_case_ids"`
	DefaultExecutionTarget *ExecutionTarget `json:"default_execution_target,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// Contains reports whether the suite includes the given test case.
func (s *TestSuite) Contains(testCaseID string) bool {
	for _, id := range s.TestCaseIDs {
		if id == testCaseID {
			return true
		}
	}

	return false
}
