// Package gitlab provides the trigger adapter for GitLab pipelines.
package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/protocol"
)

const (
	defaultBaseURL        = "https://gitlab.com"
	defaultTimeoutSeconds = 30

	// TestRunIDVariable is the pipeline variable carrying the test-run id so
	// the pipeline (and its webhook) can echo it back.
	TestRunIDVariable = "TEST_RUN_ID"
)

var (
	// ErrMissingToken is returned when the integration has no API token configured.
	ErrMissingToken = errors.New("gitlab integration has no api token")

	// ErrMissingProject is returned when the integration has no project configured.
	ErrMissingProject = errors.New("gitlab integration has no project configured")

	// ErrTriggerFailed is returned when GitLab rejects the trigger call.
	ErrTriggerFailed = errors.New("gitlab pipeline trigger failed")
)

// Trigger starts GitLab pipelines through the pipeline trigger REST endpoint.
type Trigger struct {
	baseURL   string
	apiToken  string
	projectID string
	client    *http.Client
	logger    *slog.Logger
}

// NewTrigger creates a GitLab trigger adapter from a provider integration.
// The project may be configured as a raw project id or as a full repository
// URL, from which the base URL and project path are derived.
func NewTrigger(integration *models.Integration, logger *slog.Logger) (*Trigger, error) {
	apiToken := integration.Config["api_token"]
	if apiToken == "" {
		return nil, ErrMissingToken
	}

	baseURL := integration.Config["base_url"]
	projectID := integration.Config["project_id"]

	if strings.Contains(projectID, "://") {
		baseURL, projectID = splitRepositoryURL(projectID)
	}

	if projectID == "" {
		return nil, ErrMissingProject
	}

	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Trigger{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		apiToken:  apiToken,
		projectID: projectID,
		client:    &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
		logger:    logger.With("module", "gitlab_trigger", "project_id", projectID),
	}, nil
}

// splitRepositoryURL derives the API base URL and project path from a full
// repository URL by splitting on the first path separator after the scheme.
func splitRepositoryURL(repositoryURL string) (string, string) {
	scheme, rest, found := strings.Cut(repositoryURL, "://")
	if !found {
		return "", repositoryURL
	}

	host, project, found := strings.Cut(rest, "/")
	if !found {
		return scheme + "://" + rest, ""
	}

	return scheme + "://" + host, strings.TrimSuffix(project, "/")
}

// Validate checks the adapter configuration.
func (t *Trigger) Validate(_ context.Context) error {
	if t.apiToken == "" {
		return ErrMissingToken
	}

	if t.projectID == "" {
		return ErrMissingProject
	}

	return nil
}

type pipelineResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Ref    string `json:"ref"`
	WebURL string `json:"web_url"`
}

// Trigger starts a pipeline for the run's target ref and returns the
// pipeline id GitLab assigned, which the caller records for webhook
// correlation.
func (t *Trigger) Trigger(ctx context.Context, run *models.TestRun) (*protocol.TriggerResult, error) {
	if run.ExecutionTarget.Type != models.ProviderGitLab {
		return nil, fmt.Errorf("%w: got %q", models.ErrProviderMismatch, run.ExecutionTarget.Type)
	}

	config, err := run.ExecutionTarget.GitLabConfig()
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("token", t.apiToken)
	form.Set("ref", config.Ref)
	form.Set("variables["+TestRunIDVariable+"]", run.ID)

	endpoint := fmt.Sprintf("%s/api/v4/projects/%s/trigger/pipeline",
		t.baseURL, url.PathEscape(t.projectID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create trigger request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	t.logger.InfoContext(ctx, "Triggering GitLab pipeline", "run_id", run.ID, "ref", config.Ref)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gitlab trigger request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gitlab response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: status %d: %s", ErrTriggerFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var pipeline pipelineResponse

	err = json.Unmarshal(body, &pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gitlab pipeline response: %w", err)
	}

	t.logger.InfoContext(ctx, "GitLab pipeline triggered",
		"run_id", run.ID, "pipeline_id", pipeline.ID, "web_url", pipeline.WebURL)

	return &protocol.TriggerResult{
		ProviderRunID: pipeline.ID,
		WebURL:        pipeline.WebURL,
	}, nil
}
