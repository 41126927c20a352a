package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/birun/console/pkg/channels/gochannel"
	"github.com/birun/console/pkg/events"
	"github.com/birun/console/pkg/log"
)

type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	logger        *slog.Logger
	mu            sync.RWMutex
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		logger:        log.OrDefault(logger, "eventbus"),
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

// NewInMemoryEventBus builds a bus over a watermill GoChannel.
func NewInMemoryEventBus(logger *slog.Logger) (*WatermillEventBus, error) {
	logger = log.OrDefault(logger, "eventbus")

	pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, err
	}

	return NewWatermillEventBus(pub, sub, logger), nil
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(_ context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.Topic, msg)
}

func decodeTarget(eventType events.EventType) any {
	switch eventType {
	case events.WorkflowCreatedEvent:
		return &events.WorkflowCreated{}
	case events.WorkflowSavedEvent:
		return &events.WorkflowSaved{}
	case events.WorkflowDeletedEvent:
		return &events.WorkflowDeleted{}
	case events.RunStartedEvent:
		return &events.RunStarted{}
	case events.RunStatusChangedEvent:
		return &events.RunStatusChanged{}
	case events.StreamFinishedEvent:
		return &events.StreamFinished{}
	case events.StreamFailedEvent:
		return &events.StreamFailed{}
	default:
		return nil
	}
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

			eb.mu.RLock()
			handler, exists := eb.subscriptions[eventType]
			eb.mu.RUnlock()

			if !exists {
				msg.Ack()

				continue
			}

			event := decodeTarget(eventType)
			if event == nil {
				msg.Nack()

				continue
			}

			err := json.Unmarshal(msg.Payload, event)
			if err != nil {
				eb.logger.Warn("Dropping malformed event", "event_type", eventType, "error", err)
				msg.Ack()

				continue
			}

			err = handler(msg.Context(), event)
			if err != nil {
				eb.logger.Debug("Event handler failed", "event_type", eventType, "error", err)
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
