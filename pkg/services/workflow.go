package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/birun/console/pkg/eventbus"
	"github.com/birun/console/pkg/events"
	"github.com/birun/console/pkg/graph"
	"github.com/birun/console/pkg/log"
	"github.com/birun/console/pkg/models"
	"github.com/birun/console/pkg/persistence"
	"github.com/birun/console/pkg/schedule"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

type Workflow struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service. A nil publisher discards events.
func NewWorkflow(persistence persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Workflow {
	if publisher == nil {
		publisher = eventbus.Discard
	}

	return &Workflow{
		persistence: persistence,
		publisher:   publisher,
		validate:    newValidator(),
		logger:      log.OrDefault(logger, "workflow-service"),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}

		return name
	})

	return v
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns the workflow summaries shown on the list view.
func (w *Workflow) List(ctx context.Context) ([]models.WorkflowSummary, error) {
	summaries, err := w.persistence.Workflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return summaries, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id int64) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// Create stores the minimal default document and returns it with its assigned id.
func (w *Workflow) Create(ctx context.Context, name, description string) (*models.Workflow, error) {
	workflow := models.NewWorkflow(name, description)

	id, err := w.persistence.CreateWorkflow(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	workflow.ID = id

	w.publish(ctx, id, events.WorkflowCreated{
		BaseEvent: events.NewBaseEvent(events.WorkflowCreatedEvent, id),
		Name:      workflow.Name,
	})

	return workflow, nil
}

// Validate runs every local check a save performs: graph structure first, then fields, then the schedule.
func (w *Workflow) Validate(workflow *models.Workflow) error {
	if workflow == nil {
		return ErrWorkflowNil
	}

	if violations := graph.Validate(workflow.Nodes, workflow.Edges); len(violations) > 0 {
		return &graph.ValidationError{Violations: violations}
	}

	if err := w.validate.Struct(workflow); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError("Validate", "INVALID_FIELD", fieldMessages(validationErrors), ErrInvalidRequest)
		}

		return NewValidationError("Validate", "INVALID_FIELD", err.Error(), ErrInvalidRequest)
	}

	if workflow.TriggerType == models.TriggerSchedule {
		if err := schedule.Check(workflow.ScheduleCron); err != nil {
			return NewValidationError("Validate", "INVALID_SCHEDULE", err.Error(), ErrInvalidSchedule)
		}

		if err := schedule.CheckTimezone(workflow.ScheduleTimezone); err != nil {
			return NewValidationError("Validate", "INVALID_TIMEZONE", err.Error(), ErrInvalidSchedule)
		}
	}

	return nil
}

func fieldMessages(errs validator.ValidationErrors) string {
	messages := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := strings.TrimPrefix(fe.Namespace(), "Workflow.")

		switch fe.Tag() {
		case "required", "required_if":
			messages = append(messages, field+" is required")
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		case "gte":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is not a valid %s", field, fe.Tag()))
		}
	}

	return strings.Join(messages, "; ")
}

// Save replaces the stored document. Nothing is sent to persistence while Validate fails.
func (w *Workflow) Save(ctx context.Context, workflow *models.Workflow) error {
	if workflow == nil {
		return ErrWorkflowNil
	}

	doc := workflow.Clone()
	doc.Normalize()

	if err := w.Validate(doc); err != nil {
		w.logger.Debug("Save refused", "workflow_id", doc.ID, "error", err)
		return err
	}

	if doc.ID <= 0 {
		return persistence.NewWorkflowError("SaveWorkflow", doc.ID, persistence.ErrInvalidWorkflowID)
	}

	if err := w.persistence.SaveWorkflow(ctx, doc); err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	w.logger.Info("Workflow saved", "workflow_id", doc.ID, "nodes", len(doc.Nodes), "edges", len(doc.Edges))

	w.publish(ctx, doc.ID, events.WorkflowSaved{
		BaseEvent: events.NewBaseEvent(events.WorkflowSavedEvent, doc.ID),
		Name:      doc.Name,
		NodeCount: len(doc.Nodes),
		EdgeCount: len(doc.Edges),
	})

	return nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, id int64) error {
	err := w.persistence.DeleteWorkflow(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	w.publish(ctx, id, events.WorkflowDeleted{BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, id)})

	return nil
}

// Decode parses an exported workflow document after checking it against the document schema.
func (w *Workflow) Decode(data []byte) (*models.Workflow, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, NewValidationError("Decode", "INVALID_JSON", err.Error(), ErrInvalidDocument)
	}

	if err := models.ValidateDocument(raw); err != nil {
		return nil, NewValidationError("Decode", "SCHEMA_MISMATCH", err.Error(), ErrInvalidDocument)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, NewValidationError("Decode", "INVALID_JSON", err.Error(), ErrInvalidDocument)
	}

	workflow.Normalize()

	return &workflow, nil
}

func (w *Workflow) publish(ctx context.Context, id int64, event eventbus.Event) {
	if err := w.publisher.Publish(ctx, strconv.FormatInt(id, 10), event); err != nil {
		w.logger.Warn("Failed to publish event", "event_type", event.GetType(), "workflow_id", id, "error", err)
	}
}
