// Package events defines event types for test-run lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the event bus topic all run lifecycle events share.
const Topic = "runway.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunCreatedEvent           EventType = "run.created"
	RunStartedEvent           EventType = "run.started"
	RunAwaitingEvent          EventType = "run.awaiting"
	RunDispatchRequestedEvent EventType = "run.dispatch.requested"
	RunCompletedEvent         EventType = "run.completed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TestRunID string         `json:"test_run_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent creates the shared event envelope.
func NewBaseEvent(eventType EventType, testRunID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TestRunID: testRunID,
	}
}

// RunCreated is published when the orchestrator persists a new test run.
type RunCreated struct {
	BaseEvent

	TestSuiteID string   `json:"test_suite_id"`
	TestCaseIDs []string `json:"test_case_ids"`
	Fingerprint string   `json:"fingerprint"`
}

func (e RunCreated) GetType() EventType {
	return RunCreatedEvent
}

// RunStarted is published when a managed run transitions to running.
type RunStarted struct {
	BaseEvent
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

// RunAwaiting is published when an observed run starts awaiting external results.
type RunAwaiting struct {
	BaseEvent
}

func (e RunAwaiting) GetType() EventType {
	return RunAwaitingEvent
}

// RunDispatchRequested hands a managed run to the dispatcher worker. The
// provider call runs in the worker with its own error handling instead of a
// fire-and-forget task on the request path.
type RunDispatchRequested struct {
	BaseEvent
}

func (e RunDispatchRequested) GetType() EventType {
	return RunDispatchRequestedEvent
}

// RunCompleted is published when a run reaches a terminal state.
type RunCompleted struct {
	BaseEvent

	Passed         bool   `json:"passed"`
	ProviderStatus string `json:"provider_status,omitempty"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}
