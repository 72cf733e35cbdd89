// Package dispatch hands managed test runs to their CI provider. The queue
// dispatcher publishes a dispatch request for the worker; the provider
// dispatcher performs the actual trigger call.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/caselab/runway/pkg/eventbus"
	"github.com/caselab/runway/pkg/events"
	"github.com/caselab/runway/pkg/keystore"
	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/persistence"
	"github.com/caselab/runway/pkg/registry"
	"github.com/caselab/runway/pkg/resolver"
)

// ErrDispatchFailed wraps provider trigger failures. The run stays in its
// running state so operators can retry or fail it manually.
var ErrDispatchFailed = errors.New("failed to dispatch test run")

// Dispatcher starts the provider-side execution of a test run.
type Dispatcher interface {
	Dispatch(ctx context.Context, run *models.TestRun) error
}

// ProviderDispatcher triggers the run's CI provider directly. It re-validates
// the target integration before triggering because configuration may have
// changed since resolution.
type ProviderDispatcher struct {
	integrations persistence.IntegrationRepository
	runs         persistence.TestRunRepository
	registry     *registry.Registry
	correlations keystore.KeyStore
	eventBus     eventbus.EventPublisher
	logger       *slog.Logger
}

func NewProviderDispatcher(
	p persistence.Persistence,
	reg *registry.Registry,
	correlations keystore.KeyStore,
	eventBus eventbus.EventPublisher,
	logger *slog.Logger,
) *ProviderDispatcher {
	return &ProviderDispatcher{
		integrations: p.IntegrationRepository(),
		runs:         p.TestRunRepository(),
		registry:     reg,
		correlations: correlations,
		eventBus:     eventBus,
		logger:       logger.With("module", "dispatcher"),
	}
}

// Dispatch triggers the run at its provider and records the correlation entry
// used to match incoming webhook results back to the run.
func (d *ProviderDispatcher) Dispatch(ctx context.Context, run *models.TestRun) error {
	integration, err := resolver.LoadEnabledIntegration(ctx, d.integrations, run.ExecutionTarget)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	trigger, err := d.registry.CreateTrigger(run.ExecutionTarget.Type, integration)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	result, err := trigger.Trigger(ctx, run)
	if err != nil {
		d.logger.ErrorContext(ctx, "Provider trigger failed",
			"run_id", run.ID, "provider", run.ExecutionTarget.Type, "error", err)

		return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	if result.ProviderRunID != 0 {
		key := CorrelationKey(run.ExecutionTarget.Type, result.ProviderRunID)

		_, stored, err := d.correlations.PutIfAbsent(ctx, key, run.ID)
		if err != nil {
			return fmt.Errorf("failed to record correlation for run %s: %w", run.ID, err)
		}

		if !stored {
			d.logger.WarnContext(ctx, "Correlation key already claimed",
				"run_id", run.ID, "provider_run_id", result.ProviderRunID)
		}
	}

	d.logger.InfoContext(ctx, "Test run dispatched",
		"run_id", run.ID,
		"provider", run.ExecutionTarget.Type,
		"provider_run_id", result.ProviderRunID,
		"web_url", result.WebURL)

	if result.Completed {
		return d.complete(ctx, run, result.Passed)
	}

	return nil
}

// complete finalizes runs whose trigger already finished, such as manual runs.
func (d *ProviderDispatcher) complete(ctx context.Context, run *models.TestRun, passed bool) error {
	run.Complete(passed)

	if err := d.runs.Save(ctx, run); err != nil {
		return persistence.NewTestRunError("complete", run.ID, err)
	}

	event := events.RunCompleted{
		BaseEvent: events.NewBaseEvent(events.RunCompletedEvent, run.ID),
		Passed:    passed,
	}

	if err := d.eventBus.Publish(ctx, run.ID, event); err != nil {
		d.logger.WarnContext(ctx, "Failed to publish run completed event",
			"run_id", run.ID, "error", err)
	}

	return nil
}

// CorrelationKey namespaces provider execution ids per provider type so ids
// from different providers cannot collide. The webhook correlator uses the
// same key shape to look runs back up.
func CorrelationKey(provider models.ProviderType, providerRunID int64) string {
	return string(provider) + ":" + strconv.FormatInt(providerRunID, 10)
}

// QueueDispatcher publishes a dispatch request instead of triggering the
// provider on the request path. A dispatcher worker consumes the request and
// runs the provider call with its own error handling.
type QueueDispatcher struct {
	eventBus eventbus.EventPublisher
	logger   *slog.Logger
}

func NewQueueDispatcher(eventBus eventbus.EventPublisher, logger *slog.Logger) *QueueDispatcher {
	return &QueueDispatcher{
		eventBus: eventBus,
		logger:   logger.With("module", "queue_dispatcher"),
	}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, run *models.TestRun) error {
	event := events.RunDispatchRequested{
		BaseEvent: events.NewBaseEvent(events.RunDispatchRequestedEvent, run.ID),
	}

	if err := d.eventBus.Publish(ctx, run.ID, event); err != nil {
		return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	d.logger.InfoContext(ctx, "Dispatch requested", "run_id", run.ID)

	return nil
}
