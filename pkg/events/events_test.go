package events

import (
	"encoding/json"
	"testing"

	"github.com/birun/console/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEvent(t *testing.T) {
	base := NewBaseEvent(WorkflowSavedEvent, 7)

	assert.NotEmpty(t, base.ID)
	assert.Equal(t, WorkflowSavedEvent, base.Type)
	assert.Equal(t, int64(7), base.WorkflowID)
	assert.False(t, base.Timestamp.IsZero())
	assert.NotNil(t, base.Metadata)
}

func TestEvents_GetType(t *testing.T) {
	tests := []struct {
		event interface{ GetType() EventType }
		want  EventType
	}{
		{WorkflowCreated{}, WorkflowCreatedEvent},
		{WorkflowSaved{}, WorkflowSavedEvent},
		{WorkflowDeleted{}, WorkflowDeletedEvent},
		{RunStarted{}, RunStartedEvent},
		{RunStatusChanged{}, RunStatusChangedEvent},
		{StreamFinished{}, StreamFinishedEvent},
		{StreamFailed{}, StreamFailedEvent},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.event.GetType())
	}
}

func TestRunStatusChanged_JSON(t *testing.T) {
	event := RunStatusChanged{
		BaseEvent: NewBaseEvent(RunStatusChangedEvent, 3),
		RunID:     41,
		Previous:  models.RunRunning,
		Status:    models.RunFailed,
		Terminal:  true,
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"run.status_changed"`)
	assert.Contains(t, string(data), `"status":"failed"`)

	var decoded RunStatusChanged
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event.RunID, decoded.RunID)
	assert.Equal(t, event.Previous, decoded.Previous)
	assert.True(t, decoded.Terminal)
}
