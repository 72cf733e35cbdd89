// Package protocol defines the contracts between the dispatch layer and the
// per-provider trigger adapters.
package protocol

import (
	"context"
	"log/slog"

	"github.com/caselab/runway/pkg/models"
)

// TriggerResult carries what the provider reported back from a trigger call.
// ProviderRunID is zero for providers that do not return an execution id
// synchronously (GitHub workflow dispatch, manual runs).
type TriggerResult struct {
	ProviderRunID int64  `json:"provider_run_id,omitempty"`
	WebURL        string `json:"web_url,omitempty"`

	// Completed is set by adapters whose trigger already finishes the run,
	// such as the manual adapter where dispatch is trivially successful.
	Completed bool `json:"completed,omitempty"`
	Passed    bool `json:"passed,omitempty"`
}

// Trigger starts one test-run execution at a CI provider. Implementations
// must reject runs whose target provider does not match their own.
type Trigger interface {
	Trigger(ctx context.Context, run *models.TestRun) (*TriggerResult, error)
	Validate(ctx context.Context) error
}

// TriggerFactory builds a trigger adapter from a provider integration.
type TriggerFactory interface {
	ProviderType() models.ProviderType
	Create(integration *models.Integration, logger *slog.Logger) (Trigger, error)
}
