// Package manual provides the no-dispatch trigger adapter for manually
// executed test runs.
package manual

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/protocol"
)

// Trigger models manual execution as a trivially successful dispatch: the
// run is marked passed immediately. Real completion for manual runs comes
// from a human reporting results.
type Trigger struct {
	logger *slog.Logger
}

// NewTrigger creates a manual trigger adapter.
func NewTrigger(logger *slog.Logger) *Trigger {
	return &Trigger{
		logger: logger.With("module", "manual_trigger"),
	}
}

func (t *Trigger) Validate(_ context.Context) error {
	return nil
}

func (t *Trigger) Trigger(ctx context.Context, run *models.TestRun) (*protocol.TriggerResult, error) {
	if run.ExecutionTarget.Type != models.ProviderManual {
		return nil, fmt.Errorf("%w: got %q", models.ErrProviderMismatch, run.ExecutionTarget.Type)
	}

	t.logger.InfoContext(ctx, "Manual run dispatched", "run_id", run.ID)

	return &protocol.TriggerResult{Completed: true, Passed: true}, nil
}
