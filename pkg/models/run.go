package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a workflow run as reported by the backend.
type RunStatus string

const (
	RunRunning      RunStatus = "running"
	RunCompleted    RunStatus = "completed"
	RunFailed       RunStatus = "failed"
	RunCancelled    RunStatus = "cancelled"
	RunNoStartNodes RunStatus = "no_start_nodes"
)

// IsTerminal reports whether no further transitions will be observed for the run.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled, RunNoStartNodes:
		return true
	default:
		return false
	}
}

// WorkflowRun is one execution instance of a workflow.
type WorkflowRun struct {
	ID          int64      `json:"id"`
	WorkflowID  int64      `json:"workflow_id,omitempty"`
	Status      RunStatus  `json:"status"`
	StartedAt   *Timestamp `json:"started_at,omitempty"`
	CompletedAt *Timestamp `json:"completed_at,omitempty"`
	Nodes       []NodeRun  `json:"nodes,omitempty"`
}

// NodeRun is the per-node record of a run.
type NodeRun struct {
	ID          int64      `json:"id,omitempty"`
	NodeID      int64      `json:"node_id"`
	Status      string     `json:"status"`
	Output      string     `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *Timestamp `json:"started_at,omitempty"`
	CompletedAt *Timestamp `json:"completed_at,omitempty"`
}

// RunStarted is the response of the start-run call.
type RunStarted struct {
	RunID  int64     `json:"run_id"`
	Status RunStatus `json:"status"`
}

// CronPreview lists the next fire times computed by the backend.
type CronPreview struct {
	Expr string      `json:"expr"`
	TZ   string      `json:"tz"`
	Now  Timestamp   `json:"now"`
	Next []Timestamp `json:"next"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Timestamp decodes ISO-8601 times with or without a zone offset. Naive values are read as UTC.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw == "" {
		return nil
	}

	for _, layout := range timestampLayouts {
		parsed, err := time.ParseInLocation(layout, raw, time.UTC)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}

	return fmt.Errorf("invalid timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(t.UTC().Format(time.RFC3339))
}
