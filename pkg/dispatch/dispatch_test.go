package dispatch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caselab/runway/pkg/keystore/memory"
	"github.com/caselab/runway/pkg/mocks"
	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/registry"
	"github.com/caselab/runway/pkg/resolver"
	"github.com/caselab/runway/pkg/testutil"
	"github.com/caselab/runway/pkg/triggers/gitlab"
	"github.com/caselab/runway/pkg/triggers/manual"
)

type dispatcherFixture struct {
	dispatcher   *ProviderDispatcher
	persistence  *mocks.MockPersistence
	correlations *memory.KeyStore
	eventBus     *mocks.MockEventBus
}

func newDispatcherFixture() *dispatcherFixture {
	p := mocks.NewMockPersistence()
	correlations := memory.NewKeyStore()
	eventBus := &mocks.MockEventBus{}
	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg := registry.NewRegistry(logger)
	reg.RegisterTrigger(gitlab.NewTriggerFactory())
	reg.RegisterTrigger(manual.NewTriggerFactory())

	return &dispatcherFixture{
		dispatcher:   NewProviderDispatcher(p, reg, correlations, eventBus, logger),
		persistence:  p,
		correlations: correlations,
		eventBus:     eventBus,
	}
}

func startedRun(t *testing.T, target *models.ExecutionTarget) *models.TestRun {
	t.Helper()

	run, err := models.NewTestRun("run-1", "suite-1", []string{"tc-1"}, target)
	require.NoError(t, err)
	require.NoError(t, run.Start())

	return run
}

func TestDispatchGitLabRecordsCorrelation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 987, "status": "created", "web_url": "https://gitlab.example/p/1"}`))
	}))
	defer server.Close()

	f := newDispatcherFixture()

	integration := testutil.CreateIntegration(func(i *models.Integration) {
		i.Config["base_url"] = server.URL
	})
	f.persistence.Integrations.On("GetByID", mock.Anything, integration.ID).Return(integration, nil)

	run := startedRun(t, testutil.CreateTestTarget(testutil.WithIntegrationID(integration.ID)))

	err := f.dispatcher.Dispatch(context.Background(), run)
	require.NoError(t, err)

	runID, err := f.correlations.Get(context.Background(), CorrelationKey(models.ProviderGitLab, 987))
	require.NoError(t, err)
	assert.Equal(t, run.ID, runID)

	// Pipeline is still running, so the run must stay active.
	assert.Equal(t, models.TestRunStatusRunning, run.Status)
	f.persistence.TestRuns.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDispatchManualCompletesImmediately(t *testing.T) {
	f := newDispatcherFixture()

	run := startedRun(t, &models.ExecutionTarget{Name: "Manual", Type: models.ProviderManual})
	f.persistence.TestRuns.On("Save", mock.Anything, run).Return(nil)

	err := f.dispatcher.Dispatch(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, models.TestRunStatusPassed, run.Status)
	f.persistence.TestRuns.AssertCalled(t, "Save", mock.Anything, run)
	f.eventBus.AssertCalled(t, "Publish", mock.Anything, run.ID, mock.AnythingOfType("events.RunCompleted"))
}

func TestDispatchDisabledIntegration(t *testing.T) {
	f := newDispatcherFixture()

	integration := testutil.CreateIntegration(testutil.Disabled())
	f.persistence.Integrations.On("GetByID", mock.Anything, integration.ID).Return(integration, nil)

	run := startedRun(t, testutil.CreateTestTarget(testutil.WithIntegrationID(integration.ID)))

	err := f.dispatcher.Dispatch(context.Background(), run)
	assert.ErrorIs(t, err, ErrDispatchFailed)
	assert.ErrorIs(t, err, resolver.ErrIntegrationDisabled)
}

func TestDispatchProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message": "404 Not Found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	f := newDispatcherFixture()

	integration := testutil.CreateIntegration(func(i *models.Integration) {
		i.Config["base_url"] = server.URL
	})
	f.persistence.Integrations.On("GetByID", mock.Anything, integration.ID).Return(integration, nil)

	run := startedRun(t, testutil.CreateTestTarget(testutil.WithIntegrationID(integration.ID)))

	err := f.dispatcher.Dispatch(context.Background(), run)
	assert.ErrorIs(t, err, ErrDispatchFailed)

	// Failed dispatches leave the run running for operator retry.
	assert.Equal(t, models.TestRunStatusRunning, run.Status)
}

func TestQueueDispatcherPublishesRequest(t *testing.T) {
	eventBus := &mocks.MockEventBus{}
	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := NewQueueDispatcher(eventBus, logger)

	run := startedRun(t, testutil.CreateTestTarget())

	require.NoError(t, dispatcher.Dispatch(context.Background(), run))

	eventBus.AssertCalled(t, "Publish", mock.Anything, run.ID, mock.AnythingOfType("events.RunDispatchRequested"))
}

func TestQueueDispatcherPublishFailure(t *testing.T) {
	eventBus := &mocks.MockEventBus{}
	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := NewQueueDispatcher(eventBus, logger)

	run := startedRun(t, testutil.CreateTestTarget())

	err := dispatcher.Dispatch(context.Background(), run)
	assert.ErrorIs(t, err, ErrDispatchFailed)
}

func TestCorrelationKeyShape(t *testing.T) {
	assert.Equal(t, "gitlab:987", CorrelationKey(models.ProviderGitLab, 987))
	assert.Equal(t, "github:12", CorrelationKey(models.ProviderGitHub, 12))
}
