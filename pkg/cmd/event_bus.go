package cmd

import (
	"fmt"
	"log/slog"

	"github.com/birun/console/pkg/eventbus"
)

// NewEventBus creates the in-process bus that carries console notifications.
func NewEventBus(logger *slog.Logger) (eventbus.EventBus, error) {
	bus, err := eventbus.NewInMemoryEventBus(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}

	return bus, nil
}
