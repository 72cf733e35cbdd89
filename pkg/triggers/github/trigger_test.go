package github

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselab/runway/pkg/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRun(t *testing.T, target *models.ExecutionTarget) *models.TestRun {
	t.Helper()

	run, err := models.NewTestRun("run-1", "suite-1", []string{"tc-1"}, target)
	require.NoError(t, err)

	return run
}

func TestNewTriggerValidation(t *testing.T) {
	_, err := NewTrigger(&models.Integration{
		Type:   models.ProviderGitHub,
		Config: map[string]string{"owner": "acme", "repo": "app"},
	}, discardLogger())
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = NewTrigger(&models.Integration{
		Type:   models.ProviderGitHub,
		Config: map[string]string{"api_token": "ghp-x", "owner": "acme"},
	}, discardLogger())
	assert.ErrorIs(t, err, ErrMissingRepository)
}

func TestTriggerWorkflowDispatch(t *testing.T) {
	var (
		gotPath    string
		gotAuth    string
		gotPayload struct {
			Ref    string            `json:"ref"`
			Inputs map[string]string `json:"inputs"`
		}
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	integration := &models.Integration{
		Type: models.ProviderGitHub,
		Config: map[string]string{
			"api_token": "ghp-x",
			"base_url":  server.URL,
			"owner":     "acme",
			"repo":      "app",
		},
	}

	trigger, err := NewTrigger(integration, discardLogger())
	require.NoError(t, err)

	run := newRun(t, &models.ExecutionTarget{
		IntegrationID: "int-1",
		Type:          models.ProviderGitHub,
		Config:        map[string]string{"workflow": "ci.yml:develop"},
	})

	result, err := trigger.Trigger(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, "/repos/acme/app/actions/workflows/ci.yml/dispatches", gotPath)
	assert.Equal(t, "Bearer ghp-x", gotAuth)
	assert.Equal(t, "develop", gotPayload.Ref)
	assert.Equal(t, run.ID, gotPayload.Inputs[TestRunIDInput])

	// GitHub reports no execution id synchronously.
	assert.Zero(t, result.ProviderRunID)
	assert.False(t, result.Completed)
}

func TestTriggerDispatchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	integration := &models.Integration{
		Type: models.ProviderGitHub,
		Config: map[string]string{
			"api_token": "ghp-x",
			"base_url":  server.URL,
			"owner":     "acme",
			"repo":      "app",
		},
	}

	trigger, err := NewTrigger(integration, discardLogger())
	require.NoError(t, err)

	run := newRun(t, &models.ExecutionTarget{
		Type:   models.ProviderGitHub,
		Config: map[string]string{"workflow": "ci.yml"},
	})

	_, err = trigger.Trigger(context.Background(), run)
	assert.ErrorIs(t, err, ErrDispatchFailed)
}

func TestTriggerRejectsOtherProviders(t *testing.T) {
	integration := &models.Integration{
		Type: models.ProviderGitHub,
		Config: map[string]string{
			"api_token": "ghp-x",
			"owner":     "acme",
			"repo":      "app",
		},
	}

	trigger, err := NewTrigger(integration, discardLogger())
	require.NoError(t, err)

	run := newRun(t, &models.ExecutionTarget{Type: models.ProviderManual})

	_, err = trigger.Trigger(context.Background(), run)
	assert.ErrorIs(t, err, models.ErrProviderMismatch)
}
