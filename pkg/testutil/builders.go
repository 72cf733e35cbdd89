// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/caselab/runway/pkg/models"
)

// CreateTestTarget creates a gitlab execution target with default values that
// can be overridden.
func CreateTestTarget(overrides ...func(*models.ExecutionTarget)) *models.ExecutionTarget {
	target := &models.ExecutionTarget{
		IntegrationID: uuid.New().String(),
		Name:          "Test Target",
		Type:          models.ProviderGitLab,
		Config:        map[string]string{"ref": "main"},
	}

	for _, override := range overrides {
		override(target)
	}

	return target
}

// WithProvider sets the target provider type.
func WithProvider(provider models.ProviderType) func(*models.ExecutionTarget) {
	return func(t *models.ExecutionTarget) {
		t.Type = provider
	}
}

// WithIntegrationID sets the target integration reference.
func WithIntegrationID(id string) func(*models.ExecutionTarget) {
	return func(t *models.ExecutionTarget) {
		t.IntegrationID = id
	}
}

// WithTargetConfig sets the target run parameters.
func WithTargetConfig(config map[string]string) func(*models.ExecutionTarget) {
	return func(t *models.ExecutionTarget) {
		t.Config = config
	}
}

// CreateTestCase creates a test case with default values that can be overridden.
func CreateTestCase(overrides ...func(*models.TestCase)) *models.TestCase {
	now := time.Now().UTC()
	testCase := &models.TestCase{
		ID:        uuid.New().String(),
		Name:      "Test Case",
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(testCase)
	}

	return testCase
}

// WithCaseTarget sets the test case's own execution target.
func WithCaseTarget(target *models.ExecutionTarget) func(*models.TestCase) {
	return func(tc *models.TestCase) {
		tc.ExecutionTarget = target
	}
}

// CreateTestSuite creates a test suite with default values that can be overridden.
func CreateTestSuite(overrides ...func(*models.TestSuite)) *models.TestSuite {
	now := time.Now().UTC()
	suite := &models.TestSuite{
		ID:        uuid.New().String(),
		Name:      "Test Suite",
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(suite)
	}

	return suite
}

// WithSuiteCases sets the suite's test case ids.
func WithSuiteCases(ids ...string) func(*models.TestSuite) {
	return func(s *models.TestSuite) {
		s.TestCaseIDs = ids
	}
}

// WithSuiteTarget sets the suite's default execution target.
func WithSuiteTarget(target *models.ExecutionTarget) func(*models.TestSuite) {
	return func(s *models.TestSuite) {
		s.DefaultExecutionTarget = target
	}
}

// CreateIntegration creates an enabled gitlab integration with default values
// that can be overridden.
func CreateIntegration(overrides ...func(*models.Integration)) *models.Integration {
	now := time.Now().UTC()
	integration := &models.Integration{
		ID:      uuid.New().String(),
		Name:    "Test Integration",
		Type:    models.ProviderGitLab,
		Enabled: true,
		Config: map[string]string{
			"api_token":  "glpt-test",
			"project_id": "42",
			"ref":        "main",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(integration)
	}

	return integration
}

// AsDefault marks the integration as the project-level default.
func AsDefault() func(*models.Integration) {
	return func(i *models.Integration) {
		i.IsDefault = true
	}
}

// Disabled marks the integration as disabled.
func Disabled() func(*models.Integration) {
	return func(i *models.Integration) {
		i.Enabled = false
	}
}
