// Package github provides the trigger adapter for GitHub Actions workflows.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/protocol"
)

const (
	defaultBaseURL        = "https://api.github.com"
	apiVersion            = "2022-11-28"
	defaultTimeoutSeconds = 30

	// TestRunIDInput is the workflow_dispatch input carrying the test-run id.
	// GitHub returns no execution id synchronously, so the consuming workflow
	// is expected to echo this input back when reporting results.
	TestRunIDInput = "test_run_id"
)

var (
	// ErrMissingToken is returned when the integration has no API token configured.
	ErrMissingToken = errors.New("github integration has no api token")

	// ErrMissingRepository is returned when the integration has no owner/repo configured.
	ErrMissingRepository = errors.New("github integration has no repository configured")

	// ErrDispatchFailed is returned when GitHub rejects the workflow dispatch.
	ErrDispatchFailed = errors.New("github workflow dispatch failed")
)

// Trigger dispatches GitHub Actions workflows through the workflow_dispatch
// REST endpoint.
type Trigger struct {
	baseURL  string
	apiToken string
	owner    string
	repo     string
	client   *http.Client
	logger   *slog.Logger
}

// NewTrigger creates a GitHub trigger adapter from a provider integration.
func NewTrigger(integration *models.Integration, logger *slog.Logger) (*Trigger, error) {
	apiToken := integration.Config["api_token"]
	if apiToken == "" {
		return nil, ErrMissingToken
	}

	owner := integration.Config["owner"]
	repo := integration.Config["repo"]

	if owner == "" || repo == "" {
		return nil, ErrMissingRepository
	}

	baseURL := integration.Config["base_url"]
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Trigger{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiToken: apiToken,
		owner:    owner,
		repo:     repo,
		client:   &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
		logger:   logger.With("module", "github_trigger", "owner", owner, "repo", repo),
	}, nil
}

// Validate checks the adapter configuration.
func (t *Trigger) Validate(_ context.Context) error {
	if t.apiToken == "" {
		return ErrMissingToken
	}

	if t.owner == "" || t.repo == "" {
		return ErrMissingRepository
	}

	return nil
}

type dispatchRequest struct {
	Ref    string            `json:"ref"`
	Inputs map[string]string `json:"inputs"`
}

// Trigger dispatches the target workflow. GitHub answers 204 with no body
// and no run id; correlation relies on the test_run_id input.
func (t *Trigger) Trigger(ctx context.Context, run *models.TestRun) (*protocol.TriggerResult, error) {
	if run.ExecutionTarget.Type != models.ProviderGitHub {
		return nil, fmt.Errorf("%w: got %q", models.ErrProviderMismatch, run.ExecutionTarget.Type)
	}

	config, err := run.ExecutionTarget.GitHubConfig()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(dispatchRequest{
		Ref:    config.Ref,
		Inputs: map[string]string{TestRunIDInput: run.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dispatch request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/dispatches",
		t.baseURL, t.owner, t.repo, config.WorkflowFile)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+t.apiToken)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	t.logger.InfoContext(ctx, "Dispatching GitHub workflow",
		"run_id", run.ID, "workflow", config.WorkflowFile, "ref", config.Ref)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github dispatch request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)

		return nil, fmt.Errorf("%w: status %d: %s", ErrDispatchFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	t.logger.InfoContext(ctx, "GitHub workflow dispatched", "run_id", run.ID)

	return &protocol.TriggerResult{}, nil
}
