// Package main provides the dispatcher worker that triggers CI providers for
// requested test runs.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/caselab/runway/pkg/dispatch"
	"github.com/caselab/runway/pkg/eventbus"
	"github.com/caselab/runway/pkg/events"
	"github.com/caselab/runway/pkg/keystore"
	"github.com/caselab/runway/pkg/otelhelper"
	"github.com/caselab/runway/pkg/persistence"
	"github.com/caselab/runway/pkg/registry"
)

type Worker struct {
	id         string
	runs       persistence.TestRunRepository
	dispatcher *dispatch.ProviderDispatcher
	eventBus   eventbus.EventBus
	tracer     trace.Tracer
	logger     *slog.Logger
}

func NewWorker(
	id string,
	p persistence.Persistence,
	reg *registry.Registry,
	correlations keystore.KeyStore,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		id:         id,
		runs:       p.TestRunRepository(),
		dispatcher: dispatch.NewProviderDispatcher(p, reg, correlations, eventBus, logger),
		eventBus:   eventBus,
		logger:     logger.With("module", "dispatcher_worker"),
	}
}

// Start subscribes to dispatch requests and blocks until a shutdown signal.
func (w *Worker) Start(ctx context.Context) error {
	tracer, err := otelhelper.NewTracer(ctx, "runway-dispatcher")
	if err != nil {
		return err
	}

	w.tracer = tracer

	if err := w.eventBus.Handle(events.RunDispatchRequestedEvent, w.handleDispatchRequested); err != nil {
		return err
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.eventBus.Subscribe(workerCtx); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Dispatcher worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down dispatcher worker")

	return nil
}

func (w *Worker) handleDispatchRequested(ctx context.Context, event interface{}) error {
	requested, ok := event.(*events.RunDispatchRequested)
	if !ok {
		w.logger.Error("Invalid event type for RunDispatchRequested")

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "dispatch_run",
		attribute.String(otelhelper.TestRunIDKey, requested.TestRunID),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	logger := w.logger.With("run_id", requested.TestRunID, "event_id", requested.ID)
	logger.InfoContext(ctx, "Processing dispatch request")

	run, err := w.runs.GetByID(ctx, requested.TestRunID)
	if err != nil {
		if persistence.IsTestRunNotFound(err) {
			// The run was deleted between request and dispatch; nothing to retry.
			logger.WarnContext(ctx, "Requested run no longer exists")

			return nil
		}

		otelhelper.SetError(span, err)

		return err
	}

	if run.Status.IsTerminal() {
		logger.InfoContext(ctx, "Skipping dispatch for terminal run", "status", run.Status)

		return nil
	}

	if err := w.dispatcher.Dispatch(ctx, run); err != nil {
		otelhelper.SetError(span, err,
			attribute.String(otelhelper.ProviderTypeKey, string(run.ExecutionTarget.Type)))
		logger.ErrorContext(ctx, "Failed to dispatch run", "error", err)

		return err
	}

	return nil
}
