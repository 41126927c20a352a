// Package events defines the notifications exchanged between console components.
package events

import (
	"time"

	"github.com/birun/console/pkg/models"
	"github.com/google/uuid"
)

type EventType string

const Topic = "birun.console.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow document events.
	WorkflowCreatedEvent EventType = "workflow.created"
	WorkflowSavedEvent   EventType = "workflow.saved"
	WorkflowDeletedEvent EventType = "workflow.deleted"

	// Run monitoring events.
	RunStartedEvent       EventType = "run.started"
	RunStatusChangedEvent EventType = "run.status_changed"

	// Streaming session events.
	StreamFinishedEvent EventType = "stream.finished"
	StreamFailedEvent   EventType = "stream.failed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID int64          `json:"workflow_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type WorkflowCreated struct {
	BaseEvent

	Name string `json:"name"`
}

func (w WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

type WorkflowSaved struct {
	BaseEvent

	Name      string `json:"name"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (w WorkflowSaved) GetType() EventType {
	return WorkflowSavedEvent
}

type WorkflowDeleted struct {
	BaseEvent
}

func (w WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}

type RunStarted struct {
	BaseEvent

	RunID int64 `json:"run_id"`
}

func (r RunStarted) GetType() EventType {
	return RunStartedEvent
}

// RunStatusChanged is published by the run monitor each time a poll observes a new status.
type RunStatusChanged struct {
	BaseEvent

	RunID    int64            `json:"run_id"`
	Previous models.RunStatus `json:"previous,omitempty"`
	Status   models.RunStatus `json:"status"`
	Terminal bool             `json:"terminal"`
}

func (r RunStatusChanged) GetType() EventType {
	return RunStatusChangedEvent
}

// StreamFinished tells list views owning the stream to refresh.
type StreamFinished struct {
	BaseEvent

	Session     string `json:"session"`
	Status      string `json:"status"`
	ExecutionID int64  `json:"execution_id,omitempty"`
	ScriptID    int64  `json:"script_id,omitempty"`
	ServerID    int64  `json:"server_id"`
}

func (s StreamFinished) GetType() EventType {
	return StreamFinishedEvent
}

type StreamFailed struct {
	BaseEvent

	Session string `json:"session"`
	Message string `json:"message"`
}

func (s StreamFailed) GetType() EventType {
	return StreamFailedEvent
}

func NewBaseEvent(eventType EventType, workflowID int64) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}
