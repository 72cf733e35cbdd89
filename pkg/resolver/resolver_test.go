package resolver

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caselab/runway/pkg/mocks"
	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/persistence"
	"github.com/caselab/runway/pkg/testutil"
)

func newTestResolver() (*Resolver, *mocks.MockPersistence) {
	p := mocks.NewMockPersistence()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewResolver(p, logger), p
}

func TestResolveOverrideWins(t *testing.T) {
	resolver, p := newTestResolver()

	integration := testutil.CreateIntegration()
	override := testutil.CreateTestTarget(testutil.WithIntegrationID(integration.ID))

	p.Integrations.On("GetByID", mock.Anything, integration.ID).Return(integration, nil)

	target, err := resolver.Resolve(context.Background(), "tc-1", override)
	require.NoError(t, err)

	assert.Equal(t, override.Fingerprint(), target.Fingerprint())

	// The resolved target is a snapshot, not the caller's struct.
	target.Config["ref"] = "changed"
	assert.Equal(t, "main", override.Config["ref"])

	p.TestCases.AssertNotCalled(t, "GetByID", mock.Anything, "tc-1")
}

func TestResolveTestCaseTarget(t *testing.T) {
	resolver, p := newTestResolver()

	integration := testutil.CreateIntegration()
	caseTarget := testutil.CreateTestTarget(testutil.WithIntegrationID(integration.ID))
	testCase := testutil.CreateTestCase(testutil.WithCaseTarget(caseTarget))

	p.TestCases.On("GetByID", mock.Anything, testCase.ID).Return(testCase, nil)
	p.Integrations.On("GetByID", mock.Anything, integration.ID).Return(integration, nil)

	target, err := resolver.Resolve(context.Background(), testCase.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, caseTarget.Fingerprint(), target.Fingerprint())
}

func TestResolveSuiteDefaultTarget(t *testing.T) {
	resolver, p := newTestResolver()

	integration := testutil.CreateIntegration()
	suiteTarget := testutil.CreateTestTarget(testutil.WithIntegrationID(integration.ID))
	testCase := testutil.CreateTestCase()
	suite := testutil.CreateTestSuite(
		testutil.WithSuiteCases(testCase.ID),
		testutil.WithSuiteTarget(suiteTarget),
	)

	p.TestCases.On("GetByID", mock.Anything, testCase.ID).Return(testCase, nil)
	p.TestSuites.On("SuiteForTestCase", mock.Anything, testCase.ID).Return(suite, nil)
	p.Integrations.On("GetByID", mock.Anything, integration.ID).Return(integration, nil)

	target, err := resolver.Resolve(context.Background(), testCase.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, suiteTarget.Fingerprint(), target.Fingerprint())
}

func TestResolveDefaultIntegration(t *testing.T) {
	resolver, p := newTestResolver()

	integration := testutil.CreateIntegration(testutil.AsDefault())
	testCase := testutil.CreateTestCase()

	p.TestCases.On("GetByID", mock.Anything, testCase.ID).Return(testCase, nil)
	p.TestSuites.On("SuiteForTestCase", mock.Anything, testCase.ID).Return(nil, persistence.ErrTestSuiteNotFound)
	p.Integrations.On("Default", mock.Anything).Return(integration, nil)
	p.Integrations.On("GetByID", mock.Anything, integration.ID).Return(integration, nil)

	target, err := resolver.Resolve(context.Background(), testCase.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, integration.ID, target.IntegrationID)
	assert.Equal(t, models.ProviderGitLab, target.Type)
	assert.Equal(t, "main", target.Config["ref"])

	// Credentials never leak into the snapshot.
	assert.NotContains(t, target.Config, "api_token")
}

func TestResolveNoTarget(t *testing.T) {
	resolver, p := newTestResolver()

	testCase := testutil.CreateTestCase()

	p.TestCases.On("GetByID", mock.Anything, testCase.ID).Return(testCase, nil)
	p.TestSuites.On("SuiteForTestCase", mock.Anything, testCase.ID).Return(nil, persistence.ErrTestSuiteNotFound)
	p.Integrations.On("Default", mock.Anything).Return(nil, persistence.ErrDefaultIntegrationNotFound)

	_, err := resolver.Resolve(context.Background(), testCase.ID, nil)
	assert.ErrorIs(t, err, ErrNoExecutionTarget)
}

func TestResolveDefaultIntegrationWithoutRunParameters(t *testing.T) {
	resolver, p := newTestResolver()

	integration := testutil.CreateIntegration(testutil.AsDefault(), func(i *models.Integration) {
		delete(i.Config, "ref")
	})
	testCase := testutil.CreateTestCase()

	p.TestCases.On("GetByID", mock.Anything, testCase.ID).Return(testCase, nil)
	p.TestSuites.On("SuiteForTestCase", mock.Anything, testCase.ID).Return(nil, persistence.ErrTestSuiteNotFound)
	p.Integrations.On("Default", mock.Anything).Return(integration, nil)

	_, err := resolver.Resolve(context.Background(), testCase.ID, nil)
	assert.ErrorIs(t, err, ErrMissingRunParameters)
}

func TestResolveDisabledIntegration(t *testing.T) {
	resolver, p := newTestResolver()

	integration := testutil.CreateIntegration(testutil.Disabled())
	caseTarget := testutil.CreateTestTarget(testutil.WithIntegrationID(integration.ID))
	testCase := testutil.CreateTestCase(testutil.WithCaseTarget(caseTarget))

	p.TestCases.On("GetByID", mock.Anything, testCase.ID).Return(testCase, nil)
	p.Integrations.On("GetByID", mock.Anything, integration.ID).Return(integration, nil)

	_, err := resolver.Resolve(context.Background(), testCase.ID, nil)
	assert.ErrorIs(t, err, ErrIntegrationDisabled)
}

func TestResolveManualOverrideNeedsNoIntegration(t *testing.T) {
	resolver, p := newTestResolver()

	override := &models.ExecutionTarget{Name: "Manual", Type: models.ProviderManual}

	target, err := resolver.Resolve(context.Background(), "tc-1", override)
	require.NoError(t, err)

	assert.Equal(t, models.ProviderManual, target.Type)
	p.Integrations.AssertNotCalled(t, "GetByID", mock.Anything, "")
}

func TestResolveMissingTestCase(t *testing.T) {
	resolver, p := newTestResolver()

	p.TestCases.On("GetByID", mock.Anything, "missing").Return(nil, persistence.ErrTestCaseNotFound)

	_, err := resolver.Resolve(context.Background(), "missing", nil)
	assert.True(t, persistence.IsTestCaseNotFound(err))
}
