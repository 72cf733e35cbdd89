package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caselab/runway/pkg/keystore/memory"
	"github.com/caselab/runway/pkg/mocks"
	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/persistence/file"
	"github.com/caselab/runway/pkg/resolver"
	"github.com/caselab/runway/pkg/services"
	"github.com/caselab/runway/pkg/testutil"
	"github.com/caselab/runway/pkg/triggers/gitlab"
	"github.com/caselab/runway/pkg/triggers/manual"
	"github.com/caselab/runway/pkg/webhook"

	reg "github.com/caselab/runway/pkg/registry"
)

type apiFixture struct {
	app         *fiber.App
	persistence *file.Persistence
	dispatcher  *mocks.MockDispatcher
	suite       *models.TestSuite
	testCase    *models.TestCase
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	integration := testutil.CreateIntegration()
	require.NoError(t, p.IntegrationRepository().Save(ctx, integration))

	testCase := testutil.CreateTestCase(
		testutil.WithCaseTarget(testutil.CreateTestTarget(testutil.WithIntegrationID(integration.ID))))
	require.NoError(t, p.TestCaseRepository().Save(ctx, testCase))

	suite := testutil.CreateTestSuite(testutil.WithSuiteCases(testCase.ID))
	require.NoError(t, p.TestSuiteRepository().Save(ctx, suite))

	eventBus := &mocks.MockEventBus{}
	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	registry := reg.NewRegistry(logger)
	registry.RegisterTrigger(gitlab.NewTriggerFactory())
	registry.RegisterTrigger(manual.NewTriggerFactory())

	runsService := services.NewRuns(
		p, resolver.NewResolver(p, logger), memory.NewKeyStore(), dispatcher, eventBus, logger)
	correlator := webhook.NewCorrelator(p, memory.NewKeyStore(), eventBus, logger)

	handlers := NewAPIHandlers(runsService, correlator, validator.New(), registry)

	app := fiber.New()
	app.Post("/runs", handlers.CreateRuns)
	app.Get("/runs", handlers.GetRuns)
	app.Get("/runs/:id", handlers.GetRun)
	app.Post("/runs/:id/result", handlers.ReportResult)
	app.Post("/webhooks/gitlab", handlers.GitLabWebhook)
	app.Get("/health", handlers.HealthCheck)

	return &apiFixture{
		app:         app,
		persistence: p,
		dispatcher:  dispatcher,
		suite:       suite,
		testCase:    testCase,
	}
}

func (f *apiFixture) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeRuns(t *testing.T, resp *http.Response) []*models.TestRun {
	t.Helper()

	var body struct {
		Runs []*models.TestRun `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body.Runs
}

func TestCreateRunsManaged(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.request(t, http.MethodPost, "/runs", fiber.Map{
		"test_suite_id": f.suite.ID,
		"test_case_ids": []string{f.testCase.ID},
	})

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	runs := decodeRuns(t, resp)
	require.Len(t, runs, 1)
	assert.Equal(t, models.TestRunStatusRunning, runs[0].Status)
	assert.Equal(t, f.suite.ID, runs[0].TestSuiteID)

	f.dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestCreateRunsObserved(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.request(t, http.MethodPost, "/runs", fiber.Map{
		"test_suite_id": f.suite.ID,
		"test_case_ids": []string{f.testCase.ID},
		"mode":          "observed",
	})

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	runs := decodeRuns(t, resp)
	require.Len(t, runs, 1)
	assert.Equal(t, models.TestRunStatusAwaiting, runs[0].Status)

	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestCreateRunsIdempotent(t *testing.T) {
	f := newAPIFixture(t)

	payload := fiber.Map{
		"test_suite_id": f.suite.ID,
		"test_case_ids": []string{f.testCase.ID},
	}

	first := decodeRuns(t, f.request(t, http.MethodPost, "/runs", payload))
	second := decodeRuns(t, f.request(t, http.MethodPost, "/runs", payload))

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)

	// The reused active run is not dispatched again.
	f.dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestCreateRunsValidation(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name    string
		payload fiber.Map
	}{
		{"missing suite", fiber.Map{"test_case_ids": []string{"tc-1"}}},
		{"empty case ids", fiber.Map{"test_suite_id": "suite-1", "test_case_ids": []string{}}},
		{"bad mode", fiber.Map{
			"test_suite_id": "suite-1",
			"test_case_ids": []string{"tc-1"},
			"mode":          "turbo",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.request(t, http.MethodPost, "/runs", tt.payload)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestGetRun(t *testing.T) {
	f := newAPIFixture(t)

	runs := decodeRuns(t, f.request(t, http.MethodPost, "/runs", fiber.Map{
		"test_suite_id": f.suite.ID,
		"test_case_ids": []string{f.testCase.ID},
	}))
	require.Len(t, runs, 1)

	resp := f.request(t, http.MethodGet, "/runs/"+runs[0].ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var run models.TestRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.Equal(t, runs[0].ID, run.ID)
}

func TestGetRunNotFound(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.request(t, http.MethodGet, "/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReportResult(t *testing.T) {
	f := newAPIFixture(t)

	runs := decodeRuns(t, f.request(t, http.MethodPost, "/runs", fiber.Map{
		"test_suite_id": f.suite.ID,
		"test_case_ids": []string{f.testCase.ID},
	}))
	require.Len(t, runs, 1)

	resp := f.request(t, http.MethodPost, "/runs/"+runs[0].ID+"/result", fiber.Map{"passed": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var run models.TestRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.Equal(t, models.TestRunStatusPassed, run.Status)
}

func TestReportResultMissingPassed(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.request(t, http.MethodPost, "/runs/run-1/result", fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGitLabWebhookDiscardsInvalidPayload(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.request(t, http.MethodPost, "/webhooks/gitlab", fiber.Map{"object_kind": "push"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "discarded", body["status"])
}

func TestHealthCheck(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
