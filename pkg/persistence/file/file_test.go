package file

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/persistence"
	"github.com/caselab/runway/pkg/testutil"
)

func TestNewPersistenceStripsScheme(t *testing.T) {
	dir := t.TempDir()
	p := NewPersistence("file://" + dir)

	assert.NoError(t, p.HealthCheck(context.Background()))
}

func TestHealthCheckMissingRoot(t *testing.T) {
	p := NewPersistence(t.TempDir() + "/does-not-exist")

	assert.Error(t, p.HealthCheck(context.Background()))
}

func TestTestRunRoundTrip(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	run, err := models.NewTestRun("run-1", "suite-1", []string{"tc-1", "tc-2"}, testutil.CreateTestTarget())
	require.NoError(t, err)
	require.NoError(t, run.Start())

	require.NoError(t, p.TestRunRepository().Save(ctx, run))

	loaded, err := p.TestRunRepository().GetByID(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, run.ID, loaded.ID)
	assert.Equal(t, run.TestSuiteID, loaded.TestSuiteID)
	assert.Equal(t, run.TestCaseIDs, loaded.TestCaseIDs)
	assert.Equal(t, models.TestRunStatusRunning, loaded.Status)
	assert.Equal(t, run.ExecutionTarget.Fingerprint(), loaded.ExecutionTarget.Fingerprint())
}

func TestTestRunGetByIDNotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.TestRunRepository().GetByID(context.Background(), "missing")
	assert.True(t, persistence.IsTestRunNotFound(err))
}

func TestTestRunGetAll(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		run, err := models.NewTestRun(id, "suite-1", []string{"tc-1"}, testutil.CreateTestTarget())
		require.NoError(t, err)
		require.NoError(t, p.TestRunRepository().Save(ctx, run))
	}

	runs, err := p.TestRunRepository().GetAll(ctx)
	require.NoError(t, err)

	assert.Len(t, runs, 3)
}

func TestTestRunGetAllEmptyRoot(t *testing.T) {
	p := NewPersistence(t.TempDir())

	runs, err := p.TestRunRepository().GetAll(context.Background())
	require.NoError(t, err)

	assert.Empty(t, runs)
}

func TestTestCaseRoundTrip(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	testCase := testutil.CreateTestCase(testutil.WithCaseTarget(testutil.CreateTestTarget()))
	require.NoError(t, p.TestCaseRepository().Save(ctx, testCase))

	loaded, err := p.TestCaseRepository().GetByID(ctx, testCase.ID)
	require.NoError(t, err)

	assert.Equal(t, testCase.Name, loaded.Name)
	require.NotNil(t, loaded.ExecutionTarget)
	assert.Equal(t, testCase.ExecutionTarget.Fingerprint(), loaded.ExecutionTarget.Fingerprint())

	_, err = p.TestCaseRepository().GetByID(ctx, "missing")
	assert.True(t, persistence.IsTestCaseNotFound(err))
}

func TestTestSuiteRoundTrip(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	suite := testutil.CreateTestSuite(testutil.WithSuiteCases("tc-1", "tc-2"))
	require.NoError(t, p.TestSuiteRepository().Save(ctx, suite))

	loaded, err := p.TestSuiteRepository().GetByID(ctx, suite.ID)
	require.NoError(t, err)

	assert.Equal(t, suite.TestCaseIDs, loaded.TestCaseIDs)

	_, err = p.TestSuiteRepository().GetByID(ctx, "missing")
	assert.True(t, persistence.IsTestSuiteNotFound(err))
}

func TestSuiteForTestCase(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	other := testutil.CreateTestSuite(testutil.WithSuiteCases("tc-9"))
	require.NoError(t, p.TestSuiteRepository().Save(ctx, other))

	suite := testutil.CreateTestSuite(testutil.WithSuiteCases("tc-1", "tc-2"))
	require.NoError(t, p.TestSuiteRepository().Save(ctx, suite))

	found, err := p.TestSuiteRepository().SuiteForTestCase(ctx, "tc-2")
	require.NoError(t, err)
	assert.Equal(t, suite.ID, found.ID)

	_, err = p.TestSuiteRepository().SuiteForTestCase(ctx, "tc-404")
	assert.True(t, persistence.IsTestSuiteNotFound(err))
}

func TestIntegrationRoundTrip(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	integration := testutil.CreateIntegration()
	require.NoError(t, p.IntegrationRepository().Save(ctx, integration))

	loaded, err := p.IntegrationRepository().GetByID(ctx, integration.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ProviderGitLab, loaded.Type)
	assert.True(t, loaded.Enabled)
	assert.Equal(t, integration.Config["project_id"], loaded.Config["project_id"])

	_, err = p.IntegrationRepository().GetByID(ctx, "missing")
	assert.True(t, persistence.IsIntegrationNotFound(err))
}

func TestDefaultIntegration(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := context.Background()

	_, err := p.IntegrationRepository().Default(ctx)
	assert.True(t, persistence.IsIntegrationNotFound(err))

	require.NoError(t, p.IntegrationRepository().Save(ctx, testutil.CreateIntegration()))

	fallback := testutil.CreateIntegration(testutil.AsDefault())
	require.NoError(t, p.IntegrationRepository().Save(ctx, fallback))

	found, err := p.IntegrationRepository().Default(ctx)
	require.NoError(t, err)
	assert.Equal(t, fallback.ID, found.ID)
}
