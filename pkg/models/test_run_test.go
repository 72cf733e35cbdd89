package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTarget() *ExecutionTarget {
	return &ExecutionTarget{
		IntegrationID: "int-1",
		Type:          ProviderGitLab,
		Config:        map[string]string{"ref": "main"},
	}
}

func TestNewTestRun(t *testing.T) {
	run, err := NewTestRun("run-1", "suite-1", []string{"tc-1", "tc-2"}, newTarget())
	require.NoError(t, err)

	assert.Equal(t, TestRunStatusPending, run.Status)
	assert.Equal(t, "suite-1", run.TestSuiteID)
	assert.True(t, run.IsActive())
	assert.False(t, run.Status.IsTerminal())
}

func TestNewTestRunRequiresTestCases(t *testing.T) {
	_, err := NewTestRun("run-1", "suite-1", nil, newTarget())
	assert.ErrorIs(t, err, ErrNoTestCases)
}

func TestNewTestRunRequiresTarget(t *testing.T) {
	_, err := NewTestRun("run-1", "suite-1", []string{"tc-1"}, nil)
	assert.ErrorIs(t, err, ErrNilExecutionTarget)
}

func TestNewTestRunClonesTarget(t *testing.T) {
	target := newTarget()

	run, err := NewTestRun("run-1", "suite-1", []string{"tc-1"}, target)
	require.NoError(t, err)

	target.Config["ref"] = "develop"

	assert.Equal(t, "main", run.ExecutionTarget.Config["ref"])
}

func TestStartOnlyFromPending(t *testing.T) {
	run, err := NewTestRun("run-1", "suite-1", []string{"tc-1"}, newTarget())
	require.NoError(t, err)

	require.NoError(t, run.Start())
	assert.Equal(t, TestRunStatusRunning, run.Status)

	err = run.Start()
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestMarkAwaiting(t *testing.T) {
	run, err := NewTestRun("run-1", "suite-1", []string{"tc-1"}, newTarget())
	require.NoError(t, err)

	run.MarkAwaiting()
	assert.Equal(t, TestRunStatusAwaiting, run.Status)
	assert.False(t, run.IsActive())
}

func TestCompleteFromRunning(t *testing.T) {
	run, err := NewTestRun("run-1", "suite-1", []string{"tc-1"}, newTarget())
	require.NoError(t, err)
	require.NoError(t, run.Start())

	run.Complete(true)
	assert.Equal(t, TestRunStatusPassed, run.Status)
	assert.True(t, run.Status.IsTerminal())
}

func TestCompleteFromAwaiting(t *testing.T) {
	run, err := NewTestRun("run-1", "suite-1", []string{"tc-1"}, newTarget())
	require.NoError(t, err)

	run.MarkAwaiting()
	run.Complete(false)

	assert.Equal(t, TestRunStatusFailed, run.Status)
}

func TestCompleteIgnoredWhenPending(t *testing.T) {
	run, err := NewTestRun("run-1", "suite-1", []string{"tc-1"}, newTarget())
	require.NoError(t, err)

	run.Complete(true)

	assert.Equal(t, TestRunStatusPending, run.Status)
}

func TestCompleteIsIdempotent(t *testing.T) {
	run, err := NewTestRun("run-1", "suite-1", []string{"tc-1"}, newTarget())
	require.NoError(t, err)
	require.NoError(t, run.Start())

	run.Complete(true)
	// A late contradicting result must not flip the terminal state.
	run.Complete(false)

	assert.Equal(t, TestRunStatusPassed, run.Status)
}
