// Package models defines the workflow documents, run records and wire payloads shared by the console.
package models

import "strings"

// TriggerType describes how a workflow run is initiated.
type TriggerType string

const (
	TriggerUser     TriggerType = "user"
	TriggerSchedule TriggerType = "schedule"
	TriggerWebhook  TriggerType = "webhook"
)

// GroupFailurePolicy is passed through to the execution backend untouched.
type GroupFailurePolicy string

const (
	GroupFailureAny GroupFailurePolicy = "any"
	GroupFailureAll GroupFailurePolicy = "all"
)

// DefaultWorkflowName is used by the create action when no name is given.
const DefaultWorkflowName = "New Workflow"

// Workflow is a multi-step automation graph over scripts and execution targets.
type Workflow struct {
	ID                   int64              `json:"id,omitempty"`
	Name                 string             `json:"name"                             validate:"required"`
	Description          string             `json:"description"`
	TriggerType          TriggerType        `json:"trigger_type"                     validate:"required,oneof=user schedule webhook"`
	ScheduleCron         string             `json:"schedule_cron"                    validate:"required_if=TriggerType schedule"`
	ScheduleTimezone     string             `json:"schedule_timezone"`
	WebhookURL           string             `json:"webhook_url"                      validate:"omitempty,url"`
	WebhookMethod        string             `json:"webhook_method"                   validate:"omitempty,oneof=GET POST PUT PATCH DELETE"`
	WebhookPayload       string             `json:"webhook_payload"`
	MaxRetries           int                `json:"max_retries"                      validate:"gte=0"`
	RetryIntervalSeconds int                `json:"retry_interval_seconds"           validate:"gte=0"`
	GroupFailurePolicy   GroupFailurePolicy `json:"group_failure_policy"             validate:"required,oneof=any all"`
	Nodes                []*Node            `json:"nodes"                            validate:"dive"`
	Edges                []*Edge            `json:"edges"                            validate:"dive"`
}

// NewWorkflow returns the minimal document issued by the create action.
func NewWorkflow(name, description string) *Workflow {
	if strings.TrimSpace(name) == "" {
		name = DefaultWorkflowName
	}

	return &Workflow{
		Name:               name,
		Description:        description,
		TriggerType:        TriggerUser,
		ScheduleTimezone:   "UTC",
		GroupFailurePolicy: GroupFailureAny,
		Nodes:              []*Node{},
		Edges:              []*Edge{},
	}
}

// Normalize fills defaults the backend would otherwise reject and canonicalizes pass-through fields.
func (w *Workflow) Normalize() {
	if w.TriggerType == "" {
		w.TriggerType = TriggerUser
	}

	if w.GroupFailurePolicy == "" {
		w.GroupFailurePolicy = GroupFailureAny
	}

	w.WebhookMethod = strings.ToUpper(strings.TrimSpace(w.WebhookMethod))
	w.ScheduleCron = strings.TrimSpace(w.ScheduleCron)

	if w.Nodes == nil {
		w.Nodes = []*Node{}
	}

	if w.Edges == nil {
		w.Edges = []*Edge{}
	}
}

// Payload builds the full-replacement document sent on save.
func (w *Workflow) Payload() SavePayload {
	payload := SavePayload{
		Name:                 w.Name,
		Description:          w.Description,
		TriggerType:          w.TriggerType,
		ScheduleCron:         w.ScheduleCron,
		ScheduleTimezone:     w.ScheduleTimezone,
		WebhookURL:           w.WebhookURL,
		WebhookMethod:        w.WebhookMethod,
		WebhookPayload:       w.WebhookPayload,
		MaxRetries:           w.MaxRetries,
		RetryIntervalSeconds: w.RetryIntervalSeconds,
		GroupFailurePolicy:   w.GroupFailurePolicy,
		Nodes:                make([]NodePayload, 0, len(w.Nodes)),
		Edges:                make([]EdgePayload, 0, len(w.Edges)),
	}

	for _, n := range w.Nodes {
		np := NodePayload{
			Key:        n.Key,
			Name:       n.Name,
			ScriptID:   n.ScriptID,
			TargetType: n.TargetType,
			TargetID:   n.TargetID,
		}

		if n.Parameters != nil {
			np.Parameters = encodeText(n.Parameters)
		}

		if n.Position != nil {
			np.Position = encodeText(n.Position)
		}

		payload.Nodes = append(payload.Nodes, np)
	}

	for _, e := range w.Edges {
		payload.Edges = append(payload.Edges, EdgePayload{
			Source:    e.Source,
			Target:    e.Target,
			Condition: e.Condition,
		})
	}

	return payload
}

// Clone returns a deep copy of the workflow document.
func (w *Workflow) Clone() *Workflow {
	c := *w

	c.Nodes = make([]*Node, len(w.Nodes))
	for i, n := range w.Nodes {
		c.Nodes[i] = n.Clone()
	}

	c.Edges = make([]*Edge, len(w.Edges))
	for i, e := range w.Edges {
		edge := *e
		c.Edges[i] = &edge
	}

	return &c
}

// SavePayload is the body of the create and save calls.
type SavePayload struct {
	Name                 string             `json:"name"`
	Description          string             `json:"description"`
	TriggerType          TriggerType        `json:"trigger_type"`
	ScheduleCron         string             `json:"schedule_cron"`
	ScheduleTimezone     string             `json:"schedule_timezone"`
	WebhookURL           string             `json:"webhook_url"`
	WebhookMethod        string             `json:"webhook_method"`
	WebhookPayload       string             `json:"webhook_payload"`
	MaxRetries           int                `json:"max_retries"`
	RetryIntervalSeconds int                `json:"retry_interval_seconds"`
	GroupFailurePolicy   GroupFailurePolicy `json:"group_failure_policy"`
	Nodes                []NodePayload      `json:"nodes"`
	Edges                []EdgePayload      `json:"edges"`
}

type NodePayload struct {
	Key        string     `json:"key"`
	Name       string     `json:"name"`
	ScriptID   int64      `json:"script_id"`
	TargetType TargetType `json:"target_type"`
	TargetID   int64      `json:"target_id"`
	// Parameters and Position travel as JSON strings to match the backend's text columns.
	Parameters string `json:"parameters,omitempty"`
	Position   string `json:"position,omitempty"`
}

type EdgePayload struct {
	Source    string        `json:"source"`
	Target    string        `json:"target"`
	Condition EdgeCondition `json:"condition"`
}

// WorkflowSummary is one row of the workflow list view.
type WorkflowSummary struct {
	ID               int64       `json:"id"`
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	TriggerType      TriggerType `json:"trigger_type"`
	ScheduleCron     string      `json:"schedule_cron,omitempty"`
	ScheduleTimezone string      `json:"schedule_timezone,omitempty"`
	LastRunAt        *Timestamp  `json:"last_run_at,omitempty"`
	LastRunID        *int64      `json:"last_run_id,omitempty"`
	NextRunAt        *Timestamp  `json:"next_run_at,omitempty"`
	Runs24h          int         `json:"runs_24h"`
	LastResult       string      `json:"last_result,omitempty"`
}
