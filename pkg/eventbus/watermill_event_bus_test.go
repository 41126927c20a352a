package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/birun/console/pkg/channels/gochannel"
	"github.com/birun/console/pkg/events"
	"github.com/birun/console/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub, nil)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_DeliversTypedEvents(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.StreamFinished, 1)
	require.NoError(t, bus.Handle(events.StreamFinishedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.StreamFinished)
		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	err := bus.Publish(t.Context(), "script:3:9", events.StreamFinished{
		BaseEvent: events.NewBaseEvent(events.StreamFinishedEvent, 0),
		Session:   "script:3:9",
		Status:    "completed",
		ScriptID:  3,
		ServerID:  9,
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, "completed", event.Status)
		assert.Equal(t, int64(9), event.ServerID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestWatermillEventBus_UnhandledTypesAreAcked(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan events.EventType, 2)
	require.NoError(t, bus.Handle(events.RunStatusChangedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.RunStatusChanged).GetType()
		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	// blocks until acked, so an unhandled type must not hang the publisher
	require.NoError(t, bus.Publish(t.Context(), "1", events.WorkflowSaved{BaseEvent: events.NewBaseEvent(events.WorkflowSavedEvent, 1)}))
	require.NoError(t, bus.Publish(t.Context(), "1", events.RunStatusChanged{
		BaseEvent: events.NewBaseEvent(events.RunStatusChangedEvent, 1),
		Status:    models.RunCompleted,
	}))

	select {
	case eventType := <-received:
		assert.Equal(t, events.RunStatusChangedEvent, eventType)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestNewInMemoryEventBus(t *testing.T) {
	bus, err := NewInMemoryEventBus(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, bus.GenerateID())
	require.NoError(t, bus.Close())
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard.Publish(t.Context(), "k", events.WorkflowDeleted{}))
}
