package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/caselab/runway/pkg/dispatch"
	"github.com/caselab/runway/pkg/eventbus"
	"github.com/caselab/runway/pkg/events"
	"github.com/caselab/runway/pkg/keystore"
	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/persistence"
	"github.com/caselab/runway/pkg/resolver"
)

var (
	// ErrTestRunNotFound is returned when a test run is not found.
	ErrTestRunNotFound = persistence.ErrTestRunNotFound
)

// claimAttempts bounds the idempotency claim loop. A second attempt is only
// needed when the first finds a stale claim pointing at a terminal or
// deleted run.
const claimAttempts = 2

// Runs orchestrates test-run creation: target resolution, grouping by
// execution target, idempotent run creation, and dispatch hand-off.
type Runs struct {
	persistence persistence.Persistence
	runs        persistence.TestRunRepository
	resolver    *resolver.Resolver
	idempotency keystore.KeyStore
	dispatcher  dispatch.Dispatcher
	eventBus    eventbus.EventPublisher
	logger      *slog.Logger
}

// NewRuns creates a new run orchestration service.
func NewRuns(
	p persistence.Persistence,
	res *resolver.Resolver,
	idempotency keystore.KeyStore,
	dispatcher dispatch.Dispatcher,
	eventBus eventbus.EventPublisher,
	logger *slog.Logger,
) *Runs {
	return &Runs{
		persistence: p,
		runs:        p.TestRunRepository(),
		resolver:    res,
		idempotency: idempotency,
		dispatcher:  dispatcher,
		eventBus:    eventBus,
		logger:      logger.With("module", "runs_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Runs) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// RunTestCasesRequest contains the test cases to execute and how.
type RunTestCasesRequest struct {
	TestSuiteID string   `validate:"required"`
	TestCaseIDs []string `validate:"required,min=1"`

	// Mode defaults to managed when empty.
	Mode models.ExecutionMode

	// TargetOverride, when set, wins over every persisted target.
	TargetOverride *models.ExecutionTarget

	// SkipUnresolved drops test cases whose target cannot be resolved
	// instead of failing the whole request. Infrastructure errors still
	// fail the request either way.
	SkipUnresolved bool
}

// RunTestCases resolves an execution target per test case, groups the cases
// that share a target, and creates (or reuses) one run per group. Managed
// runs are handed to the dispatcher; observed runs await external results.
func (s *Runs) RunTestCases(ctx context.Context, req RunTestCasesRequest) ([]*models.TestRun, error) {
	if err := s.validateRunTestCasesRequest(&req); err != nil {
		return nil, err
	}

	groups, err := s.resolveAndGroup(ctx, &req)
	if err != nil {
		return nil, err
	}

	runs := make([]*models.TestRun, 0, len(groups))

	for _, group := range groups {
		run, created, err := s.claimRun(ctx, &req, group)
		if err != nil {
			return nil, err
		}

		runs = append(runs, run)

		if !created {
			s.logger.InfoContext(ctx, "Reusing active test run",
				"run_id", run.ID, "fingerprint", group.fingerprint)

			continue
		}

		if req.Mode == models.ExecutionModeManaged {
			if err := s.dispatcher.Dispatch(ctx, run); err != nil {
				return runs, fmt.Errorf("run %s: %w", run.ID, err)
			}
		}
	}

	return runs, nil
}

func (s *Runs) validateRunTestCasesRequest(req *RunTestCasesRequest) error {
	if req.TestSuiteID == "" {
		return NewValidationError(
			"RunTestCases",
			"MISSING_SUITE",
			"test suite id is required",
			ErrInvalidRequest,
		)
	}

	req.TestCaseIDs = dedupe(req.TestCaseIDs)
	if len(req.TestCaseIDs) == 0 {
		return ErrNoTestCaseIDs
	}

	if req.Mode == "" {
		req.Mode = models.ExecutionModeManaged
	}

	if !req.Mode.IsValid() {
		return NewValidationError(
			"RunTestCases",
			"INVALID_MODE",
			fmt.Sprintf("invalid execution mode %q", req.Mode),
			ErrInvalidMode,
		)
	}

	return nil
}

// targetGroup collects the test cases that resolved to the same execution
// target snapshot.
type targetGroup struct {
	fingerprint string
	target      *models.ExecutionTarget
	testCaseIDs []string
}

// resolveAndGroup resolves each test case and buckets them by target
// fingerprint. Group order follows first appearance in the request so run
// creation stays deterministic for a given request.
func (s *Runs) resolveAndGroup(ctx context.Context, req *RunTestCasesRequest) ([]*targetGroup, error) {
	byFingerprint := make(map[string]*targetGroup)
	order := make([]string, 0)

	for _, testCaseID := range req.TestCaseIDs {
		target, err := s.resolver.Resolve(ctx, testCaseID, req.TargetOverride)
		if err != nil {
			if req.SkipUnresolved && isResolutionFailure(err) {
				s.logger.WarnContext(ctx, "Skipping unresolved test case",
					"test_case_id", testCaseID, "error", err)

				continue
			}

			if isResolutionFailure(err) {
				return nil, fmt.Errorf("%w: %s: %w", ErrUnresolvedRequest, testCaseID, err)
			}

			return nil, fmt.Errorf("failed to resolve test case %s: %w", testCaseID, err)
		}

		fingerprint := target.Fingerprint()

		group, exists := byFingerprint[fingerprint]
		if !exists {
			group = &targetGroup{fingerprint: fingerprint, target: target}
			byFingerprint[fingerprint] = group
			order = append(order, fingerprint)
		}

		group.testCaseIDs = append(group.testCaseIDs, testCaseID)
	}

	if len(order) == 0 {
		return nil, ErrNothingToRun
	}

	groups := make([]*targetGroup, 0, len(order))
	for _, fingerprint := range order {
		group := byFingerprint[fingerprint]
		sort.Strings(group.testCaseIDs)
		groups = append(groups, group)
	}

	return groups, nil
}

// claimRun claims the group's idempotency key and creates the run, or returns
// the still-active run already holding the claim. A claim pointing at a
// terminal or deleted run is released and retaken once.
func (s *Runs) claimRun(ctx context.Context, req *RunTestCasesRequest, group *targetGroup) (*models.TestRun, bool, error) {
	key := idempotencyKey(req.TestSuiteID, group.testCaseIDs, group.fingerprint, req.Mode)

	for attempt := 0; attempt < claimAttempts; attempt++ {
		candidateID := uuid.New().String()

		winner, stored, err := s.idempotency.PutIfAbsent(ctx, key, candidateID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to claim idempotency key: %w", err)
		}

		if stored {
			run, err := s.createRun(ctx, candidateID, req, group)
			if err != nil {
				if delErr := s.idempotency.Delete(ctx, key); delErr != nil {
					s.logger.ErrorContext(ctx, "Failed to release idempotency claim",
						"key", key, "error", delErr)
				}

				return nil, false, err
			}

			return run, true, nil
		}

		existing, err := s.runs.GetByID(ctx, winner)
		if err != nil {
			if !persistence.IsTestRunNotFound(err) {
				return nil, false, fmt.Errorf("failed to load claimed run %s: %w", winner, err)
			}

			// Stale claim with no run behind it.
			if err := s.idempotency.Delete(ctx, key); err != nil {
				return nil, false, fmt.Errorf("failed to release stale claim: %w", err)
			}

			continue
		}

		if existing.IsActive() {
			return existing, false, nil
		}

		// The prior run finished; it no longer blocks a new one.
		if err := s.idempotency.Delete(ctx, key); err != nil {
			return nil, false, fmt.Errorf("failed to release finished claim: %w", err)
		}
	}

	return nil, false, fmt.Errorf("failed to claim idempotency key after %d attempts", claimAttempts)
}

// createRun persists a new run in its mode's initial dispatch state and
// publishes the lifecycle events.
func (s *Runs) createRun(ctx context.Context, runID string, req *RunTestCasesRequest, group *targetGroup) (*models.TestRun, error) {
	run, err := models.NewTestRun(runID, req.TestSuiteID, group.testCaseIDs, group.target)
	if err != nil {
		return nil, err
	}

	var lifecycle eventbus.Event

	switch req.Mode {
	case models.ExecutionModeManaged:
		if err := run.Start(); err != nil {
			return nil, err
		}

		lifecycle = events.RunStarted{BaseEvent: events.NewBaseEvent(events.RunStartedEvent, run.ID)}
	case models.ExecutionModeObserved:
		run.MarkAwaiting()

		lifecycle = events.RunAwaiting{BaseEvent: events.NewBaseEvent(events.RunAwaitingEvent, run.ID)}
	}

	if err := s.runs.Save(ctx, run); err != nil {
		return nil, persistence.NewTestRunError("create", run.ID, err)
	}

	created := events.RunCreated{
		BaseEvent:   events.NewBaseEvent(events.RunCreatedEvent, run.ID),
		TestSuiteID: run.TestSuiteID,
		TestCaseIDs: run.TestCaseIDs,
		Fingerprint: group.fingerprint,
	}

	s.publish(ctx, run.ID, created)
	s.publish(ctx, run.ID, lifecycle)

	s.logger.InfoContext(ctx, "Test run created",
		"run_id", run.ID,
		"test_suite_id", run.TestSuiteID,
		"test_cases", len(run.TestCaseIDs),
		"mode", req.Mode,
		"status", run.Status)

	return run, nil
}

// ReportResult applies an externally reported result to a run. Reporting is
// idempotent: a terminal run is returned unchanged.
func (s *Runs) ReportResult(ctx context.Context, runID string, passed bool) (*models.TestRun, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	if run.Status.IsTerminal() {
		return run, nil
	}

	if run.Status == models.TestRunStatusPending {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotCompletable)
	}

	run.Complete(passed)

	if err := s.runs.Save(ctx, run); err != nil {
		return nil, persistence.NewTestRunError("report_result", runID, err)
	}

	s.publish(ctx, run.ID, events.RunCompleted{
		BaseEvent: events.NewBaseEvent(events.RunCompletedEvent, run.ID),
		Passed:    passed,
	})

	return run, nil
}

// FetchByID retrieves a test run by its ID.
func (s *Runs) FetchByID(ctx context.Context, runID string) (*models.TestRun, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	return run, nil
}

// List retrieves all test runs.
func (s *Runs) List(ctx context.Context) ([]*models.TestRun, error) {
	runs, err := s.runs.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list test runs: %w", err)
	}

	return runs, nil
}

func (s *Runs) publish(ctx context.Context, key string, event eventbus.Event) {
	if err := s.eventBus.Publish(ctx, key, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "run_id", key, "error", err)
	}
}

// isResolutionFailure distinguishes "this test case cannot run" from
// infrastructure errors.
func isResolutionFailure(err error) bool {
	return errors.Is(err, resolver.ErrNoExecutionTarget) ||
		errors.Is(err, resolver.ErrIntegrationDisabled) ||
		errors.Is(err, resolver.ErrMissingRunParameters) ||
		persistence.IsTestCaseNotFound(err) ||
		persistence.IsIntegrationNotFound(err)
}

// idempotencyKey identifies one runnable unit of work: the suite, the sorted
// test case set, the target snapshot fingerprint, and the execution mode.
func idempotencyKey(suiteID string, sortedCaseIDs []string, fingerprint string, mode models.ExecutionMode) string {
	return strings.Join([]string{
		suiteID,
		strings.Join(sortedCaseIDs, ","),
		fingerprint,
		string(mode),
	}, ":")
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if id == "" {
			continue
		}

		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}

		out = append(out, id)
	}

	return out
}
