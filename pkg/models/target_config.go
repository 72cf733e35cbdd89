package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingRef is returned when a GitLab target has no ref/branch configured.
	ErrMissingRef = errors.New("execution target has no ref configured")

	// ErrMissingWorkflow is returned when a GitHub target has no workflow file configured.
	ErrMissingWorkflow = errors.New("execution target has no workflow file configured")

	// ErrProviderMismatch is returned when a target is handed to an adapter
	// for a different provider.
	ErrProviderMismatch = errors.New("execution target provider does not match adapter")
)

const defaultGitHubBranch = "main"

// GitLabTargetConfig holds the run parameters for a GitLab pipeline trigger.
type GitLabTargetConfig struct {
	Ref string `json:"ref"`
}

// GitHubTargetConfig holds the run parameters for a GitHub workflow dispatch.
type GitHubTargetConfig struct {
	WorkflowFile string `json:"workflow_file"`
	Ref          string `json:"ref"`
}

// ManualTargetConfig marks a target with no provider call.
type ManualTargetConfig struct{}

// GitLabConfig extracts the typed GitLab run parameters from the snapshot.
// The flat "ref" entry is the only parameter GitLab needs.
func (t *ExecutionTarget) GitLabConfig() (GitLabTargetConfig, error) {
	if t.Type != ProviderGitLab {
		return GitLabTargetConfig{}, fmt.Errorf("%w: target is %q", ErrProviderMismatch, t.Type)
	}

	ref := t.Ref()
	if ref == "" {
		return GitLabTargetConfig{}, ErrMissingRef
	}

	return GitLabTargetConfig{Ref: ref}, nil
}

// GitHubConfig extracts the typed GitHub run parameters from the snapshot.
// The "workflow" entry is a workflow file path optionally suffixed with
// ":branchName"; the branch defaults to main when unspecified.
func (t *ExecutionTarget) GitHubConfig() (GitHubTargetConfig, error) {
	if t.Type != ProviderGitHub {
		return GitHubTargetConfig{}, fmt.Errorf("%w: target is %q", ErrProviderMismatch, t.Type)
	}

	workflow := t.Config["workflow"]
	if workflow == "" {
		return GitHubTargetConfig{}, ErrMissingWorkflow
	}

	config := GitHubTargetConfig{WorkflowFile: workflow, Ref: defaultGitHubBranch}

	if file, branch, found := strings.Cut(workflow, ":"); found {
		config.WorkflowFile = file

		if branch != "" {
			config.Ref = branch
		}
	}

	return config, nil
}

// ManualConfig extracts the (empty) manual run parameters from the snapshot.
func (t *ExecutionTarget) ManualConfig() (ManualTargetConfig, error) {
	if t.Type != ProviderManual {
		return ManualTargetConfig{}, fmt.Errorf("%w: target is %q", ErrProviderMismatch, t.Type)
	}

	return ManualTargetConfig{}, nil
}

// HasRunParameters reports whether the snapshot carries the run parameters
// its provider needs to actually start an execution. Resolution never infers
// missing parameters; a target without them is unusable.
func (t *ExecutionTarget) HasRunParameters() bool {
	switch t.Type {
	case ProviderGitLab:
		return t.Ref() != ""
	case ProviderGitHub:
		return t.Config["workflow"] != ""
	case ProviderManual:
		return true
	default:
		return false
	}
}
