// Package webhook correlates CI provider webhook events back to test runs
// and applies their terminal results.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/caselab/runway/pkg/dispatch"
	"github.com/caselab/runway/pkg/eventbus"
	"github.com/caselab/runway/pkg/events"
	"github.com/caselab/runway/pkg/keystore"
	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/persistence"
)

// ErrInvalidPayload indicates the webhook body does not look like a pipeline
// event. The HTTP layer still acknowledges these with 200 so the provider
// stops retrying.
var ErrInvalidPayload = errors.New("invalid pipeline event payload")

// IsInvalidPayload checks if an error indicates a structurally invalid event.
func IsInvalidPayload(err error) bool {
	return errors.Is(err, ErrInvalidPayload)
}

// TestRunIDVariable is the pipeline variable adapters echo through the
// provider so events can be correlated even without a stored pipeline id.
const TestRunIDVariable = "TEST_RUN_ID"

// pipelineEventSchema is the structural contract for GitLab pipeline events.
// Only the fields the correlator reads are constrained.
var pipelineEventSchema = map[string]any{
	"type":     "object",
	"required": []any{"object_kind", "object_attributes"},
	"properties": map[string]any{
		"object_kind": map[string]any{
			"const": "pipeline",
		},
		"object_attributes": map[string]any{
			"type":     "object",
			"required": []any{"id", "status", "variables"},
			"properties": map[string]any{
				"id":     map[string]any{"type": "number"},
				"status": map[string]any{"type": "string"},
				"variables": map[string]any{
					"type": "array",
				},
			},
		},
	},
}

// Correlator matches pipeline events to test runs and drives runs to their
// terminal state.
type Correlator struct {
	runs         persistence.TestRunRepository
	correlations keystore.KeyStore
	eventBus     eventbus.EventPublisher
	logger       *slog.Logger
}

func NewCorrelator(
	p persistence.Persistence,
	correlations keystore.KeyStore,
	eventBus eventbus.EventPublisher,
	logger *slog.Logger,
) *Correlator {
	return &Correlator{
		runs:         p.TestRunRepository(),
		correlations: correlations,
		eventBus:     eventBus,
		logger:       logger.With("module", "webhook_correlator"),
	}
}

// ProcessPipelineEvent applies a GitLab pipeline event to its test run.
// Non-terminal statuses and events for unknown pipelines are dropped, not
// errors: providers send many intermediate events and may replay old ones.
func (c *Correlator) ProcessPipelineEvent(ctx context.Context, payload map[string]any) error {
	if err := validatePipelineEvent(payload); err != nil {
		return err
	}

	attributes, _ := payload["object_attributes"].(map[string]any)
	status, _ := attributes["status"].(string)

	passed, terminal := terminalResult(status)
	if !terminal {
		c.logger.DebugContext(ctx, "Ignoring non-terminal pipeline status", "status", status)

		return nil
	}

	pipelineID := int64(attributes["id"].(float64))

	runID, err := c.lookupRunID(ctx, pipelineID, attributes)
	if err != nil {
		return err
	}

	if runID == "" {
		c.logger.WarnContext(ctx, "Pipeline event has no matching test run",
			"pipeline_id", pipelineID, "status", status)

		return nil
	}

	return c.applyResult(ctx, runID, status, passed)
}

// lookupRunID resolves a pipeline id to a run id. The correlation index is
// checked first; the echoed run-id variable is the fallback for providers
// that never returned a pipeline id at dispatch time.
func (c *Correlator) lookupRunID(ctx context.Context, pipelineID int64, attributes map[string]any) (string, error) {
	key := dispatch.CorrelationKey(models.ProviderGitLab, pipelineID)

	runID, err := c.correlations.Get(ctx, key)
	if err == nil {
		return runID, nil
	}

	if !keystore.IsKeyNotFound(err) {
		return "", fmt.Errorf("failed to look up correlation for pipeline %d: %w", pipelineID, err)
	}

	return runIDFromVariables(attributes), nil
}

func (c *Correlator) applyResult(ctx context.Context, runID, status string, passed bool) error {
	run, err := c.runs.GetByID(ctx, runID)
	if err != nil {
		if persistence.IsTestRunNotFound(err) {
			c.logger.WarnContext(ctx, "Correlated run no longer exists", "run_id", runID)

			return nil
		}

		return err
	}

	if run.Status.IsTerminal() {
		c.logger.DebugContext(ctx, "Dropping result for terminal run",
			"run_id", runID, "status", run.Status)

		return nil
	}

	run.Complete(passed)

	if !run.Status.IsTerminal() {
		c.logger.WarnContext(ctx, "Run not completable from pipeline event",
			"run_id", runID, "status", run.Status)

		return nil
	}

	if err := c.runs.Save(ctx, run); err != nil {
		return persistence.NewTestRunError("correlate", runID, err)
	}

	event := events.RunCompleted{
		BaseEvent:      events.NewBaseEvent(events.RunCompletedEvent, run.ID),
		Passed:         passed,
		ProviderStatus: status,
	}

	if err := c.eventBus.Publish(ctx, run.ID, event); err != nil {
		c.logger.WarnContext(ctx, "Failed to publish run completed event",
			"run_id", run.ID, "error", err)
	}

	c.logger.InfoContext(ctx, "Test run completed from pipeline event",
		"run_id", run.ID, "provider_status", status, "passed", passed)

	return nil
}

// terminalResult maps a provider pipeline status to a run result. Skipped
// pipelines count as passed: every test the pipeline would have run was
// deliberately excluded, which is not a failure. Canceled pipelines count as
// failed because their results never arrived.
func terminalResult(status string) (passed, terminal bool) {
	switch status {
	case "success", "skipped":
		return true, true
	case "failed", "canceled":
		return false, true
	default:
		return false, false
	}
}

func validatePipelineEvent(payload map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(pipelineEventSchema)
	dataLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(descriptions, "; "))
	}

	return nil
}

// runIDFromVariables extracts the echoed run id from the pipeline variables.
func runIDFromVariables(attributes map[string]any) string {
	variables, _ := attributes["variables"].([]any)

	for _, entry := range variables {
		variable, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		if variable["key"] == TestRunIDVariable {
			value, _ := variable["value"].(string)

			return value
		}
	}

	return ""
}
