// Package resolver selects the effective execution target for a test case
// through a priority cascade and validates the referenced integration.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/persistence"
)

var (
	// ErrNoExecutionTarget indicates the cascade found nothing applicable.
	ErrNoExecutionTarget = errors.New("no execution target applies to test case")

	// ErrIntegrationDisabled indicates the referenced integration exists but is inactive.
	ErrIntegrationDisabled = errors.New("integration is disabled")

	// ErrMissingRunParameters indicates a target was found but lacks the
	// branch/workflow parameters its provider needs. Parameters are never
	// inferred.
	ErrMissingRunParameters = errors.New("execution target is missing run parameters")
)

// Resolver resolves execution targets. Selection walks the cascade strictly
// top-down with no merging of partial configuration across levels; validation
// of the selected target's integration is a separate step so each can be
// tested without the other.
type Resolver struct {
	testCases    persistence.TestCaseRepository
	testSuites   persistence.TestSuiteRepository
	integrations persistence.IntegrationRepository
	logger       *slog.Logger
}

// NewResolver creates a resolver over the given persistence layer.
func NewResolver(p persistence.Persistence, logger *slog.Logger) *Resolver {
	return &Resolver{
		testCases:    p.TestCaseRepository(),
		testSuites:   p.TestSuiteRepository(),
		integrations: p.IntegrationRepository(),
		logger:       logger.With("module", "resolver"),
	}
}

// Resolve returns the effective execution target for the test case. The
// override, when non-nil, wins over everything persisted.
func (r *Resolver) Resolve(ctx context.Context, testCaseID string, override *models.ExecutionTarget) (*models.ExecutionTarget, error) {
	target, err := r.selectTarget(ctx, testCaseID, override)
	if err != nil {
		return nil, err
	}

	_, err = LoadEnabledIntegration(ctx, r.integrations, target)
	if err != nil {
		return nil, err
	}

	return target, nil
}

// selectTarget walks the priority cascade: runtime override, the test case's
// own snapshot, the parent suite's default, then the project-level default
// integration. First match wins.
func (r *Resolver) selectTarget(ctx context.Context, testCaseID string, override *models.ExecutionTarget) (*models.ExecutionTarget, error) {
	if override != nil {
		return override.Clone(), nil
	}

	testCase, err := r.testCases.GetByID(ctx, testCaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load test case: %w", err)
	}

	if testCase.ExecutionTarget != nil {
		return testCase.ExecutionTarget.Clone(), nil
	}

	suite, err := r.testSuites.SuiteForTestCase(ctx, testCaseID)
	if err != nil && !persistence.IsTestSuiteNotFound(err) {
		return nil, fmt.Errorf("failed to look up suite for test case: %w", err)
	}

	if suite != nil && suite.DefaultExecutionTarget != nil {
		return suite.DefaultExecutionTarget.Clone(), nil
	}

	return r.defaultIntegrationTarget(ctx, testCaseID)
}

// defaultIntegrationTarget builds a target from the project-level default
// integration. The integration must carry fully-specified run parameters;
// resolution fails rather than guessing.
func (r *Resolver) defaultIntegrationTarget(ctx context.Context, testCaseID string) (*models.ExecutionTarget, error) {
	integration, err := r.integrations.Default(ctx)
	if err != nil {
		if persistence.IsIntegrationNotFound(err) {
			return nil, fmt.Errorf("test case %s: %w", testCaseID, ErrNoExecutionTarget)
		}

		return nil, fmt.Errorf("failed to load default integration: %w", err)
	}

	target := &models.ExecutionTarget{
		IntegrationID: integration.ID,
		Name:          integration.Name,
		Type:          integration.Type,
		Config:        runParameters(integration),
	}

	if !target.HasRunParameters() {
		return nil, fmt.Errorf("default integration %s: %w", integration.ID, ErrMissingRunParameters)
	}

	r.logger.DebugContext(ctx, "Resolved test case to default integration",
		"test_case_id", testCaseID, "integration_id", integration.ID)

	return target, nil
}

// runParameters extracts only the run-parameter entries from an integration
// config; credentials stay behind the integration lookup.
func runParameters(integration *models.Integration) map[string]string {
	params := make(map[string]string)

	for _, key := range []string{"ref", "workflow"} {
		if value := integration.Config[key]; value != "" {
			params[key] = value
		}
	}

	return params
}

// LoadEnabledIntegration looks up the integration a target references and
// fails when it is absent or disabled. Dispatch re-runs this check because
// configuration may have changed between resolution and dispatch. Manual
// targets without an integration reference skip the lookup.
func LoadEnabledIntegration(ctx context.Context, integrations persistence.IntegrationRepository, target *models.ExecutionTarget) (*models.Integration, error) {
	if target.IntegrationID == "" {
		if target.Type == models.ProviderManual {
			return nil, nil
		}

		return nil, fmt.Errorf("target %q: %w", target.Name, persistence.ErrIntegrationNotFound)
	}

	integration, err := integrations.GetByID(ctx, target.IntegrationID)
	if err != nil {
		return nil, err
	}

	if !integration.Enabled {
		return nil, fmt.Errorf("integration %s: %w", integration.ID, ErrIntegrationDisabled)
	}

	return integration, nil
}
