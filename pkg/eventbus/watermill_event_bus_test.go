package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselab/runway/pkg/channels/gochannel"
	"github.com/caselab/runway/pkg/events"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.RunCompleted, 1)

	err := bus.Handle(events.RunCompletedEvent, func(_ context.Context, event any) error {
		completed, ok := event.(*events.RunCompleted)
		if !ok {
			t.Errorf("unexpected event type %T", event)

			return nil
		}

		received <- completed

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	sent := events.RunCompleted{
		BaseEvent: events.NewBaseEvent(events.RunCompletedEvent, "run-1"),
		Passed:    true,
	}
	require.NoError(t, bus.Publish(ctx, "run-1", sent))

	select {
	case got := <-received:
		assert.Equal(t, "run-1", got.TestRunID)
		assert.True(t, got.Passed)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscribeSkipsUnhandledEventTypes(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.RunStarted, 1)

	err := bus.Handle(events.RunStartedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.RunStarted)

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for this one; it must be acked and skipped.
	require.NoError(t, bus.Publish(ctx, "run-1", events.RunCompleted{
		BaseEvent: events.NewBaseEvent(events.RunCompletedEvent, "run-1"),
	}))

	require.NoError(t, bus.Publish(ctx, "run-2", events.RunStarted{
		BaseEvent: events.NewBaseEvent(events.RunStartedEvent, "run-2"),
	}))

	select {
	case got := <-received:
		assert.Equal(t, "run-2", got.TestRunID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestGenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
