package models

// ExecutionMode selects who drives a test run to completion.
type ExecutionMode string

const (
	// ExecutionModeManaged means the system triggers the CI provider and
	// tracks the run itself.
	ExecutionModeManaged ExecutionMode = "managed"

	// ExecutionModeObserved means the system records the run and expects an
	// external caller to report completion later.
	ExecutionModeObserved ExecutionMode = "observed"
)

// IsValid reports whether the execution mode is known.
func (m ExecutionMode) IsValid() bool {
	return m == ExecutionModeManaged || m == ExecutionModeObserved
}
