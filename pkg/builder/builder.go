// Package builder is the workflow editor: the graph, its canvas, the trigger settings and save gating.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/birun/console/pkg/canvas"
	"github.com/birun/console/pkg/graph"
	"github.com/birun/console/pkg/log"
	"github.com/birun/console/pkg/models"
	"github.com/birun/console/pkg/schedule"
)

const settingsSubject = "settings"

var ErrNotEditing = errors.New("node is not open for editing")

// Saver persists a validated document, normally *services.Workflow.
type Saver interface {
	Save(ctx context.Context, workflow *models.Workflow) error
}

// DefaultSchedule seeds the schedule form when a workflow has no expression yet.
var DefaultSchedule = schedule.Spec{Mode: schedule.DailyAtTime, Time: "09:00"}

// Settings is the workflow-level form: everything in the document except nodes and edges.
type Settings struct {
	Name                 string
	Description          string
	TriggerType          models.TriggerType
	Schedule             schedule.Spec
	Timezone             string
	WebhookURL           string
	WebhookMethod        string
	WebhookPayload       string
	MaxRetries           int
	RetryIntervalSeconds int
	GroupFailurePolicy   models.GroupFailurePolicy
}

type Builder struct {
	doc      *models.Workflow
	graph    *graph.Graph
	canvas   *canvas.Controller
	settings *canvas.Dialog
	saver    Saver
	logger   *slog.Logger
	dirty    bool
}

// New opens w for editing. w itself is not modified; Document returns the edited copy.
func New(w *models.Workflow, saver Saver, logger *slog.Logger) *Builder {
	doc := w.Clone()
	doc.Normalize()

	logger = log.OrDefault(logger, "builder")
	g := graph.FromWorkflow(doc)

	settings := canvas.NewDialog()
	controller := canvas.NewController(g, logger)
	controller.AddModal(settings)

	return &Builder{
		doc:      doc,
		graph:    g,
		canvas:   controller,
		settings: settings,
		saver:    saver,
		logger:   logger.With("workflow_id", doc.ID),
	}
}

func (b *Builder) Canvas() *canvas.Controller { return b.canvas }

func (b *Builder) Graph() *graph.Graph { return b.graph }

// SettingsDialog is the dialog behind the workflow settings form.
func (b *Builder) SettingsDialog() *canvas.Dialog { return b.settings }

// Dirty reports unsaved changes made through the builder. Canvas gestures mark it via Touch.
func (b *Builder) Dirty() bool { return b.dirty }

// Touch marks the document as changed.
func (b *Builder) Touch() { b.dirty = true }

// Document returns the current document with the graph applied.
func (b *Builder) Document() *models.Workflow {
	doc := b.doc.Clone()
	b.graph.Apply(doc)

	return doc
}

// Violations lists what currently blocks a save.
func (b *Builder) Violations() []graph.Violation {
	return b.graph.Validate()
}

// Settings returns the form values for the current document.
func (b *Builder) Settings() Settings {
	spec := DefaultSchedule
	if b.doc.ScheduleCron != "" {
		spec = schedule.EditState(b.doc.ScheduleCron)
	}

	return Settings{
		Name:                 b.doc.Name,
		Description:          b.doc.Description,
		TriggerType:          b.doc.TriggerType,
		Schedule:             spec,
		Timezone:             b.doc.ScheduleTimezone,
		WebhookURL:           b.doc.WebhookURL,
		WebhookMethod:        b.doc.WebhookMethod,
		WebhookPayload:       b.doc.WebhookPayload,
		MaxRetries:           b.doc.MaxRetries,
		RetryIntervalSeconds: b.doc.RetryIntervalSeconds,
		GroupFailurePolicy:   b.doc.GroupFailurePolicy,
	}
}

// ScheduleLabel describes the current expression for the list and header views.
func (b *Builder) ScheduleLabel() string {
	if b.doc.TriggerType != models.TriggerSchedule || b.doc.ScheduleCron == "" {
		return ""
	}

	return schedule.Label(b.doc.ScheduleCron)
}

// ApplySettings copies s into the document. For schedule triggers the expression is derived from s.Schedule.
func (b *Builder) ApplySettings(s Settings) error {
	cronExpr := b.doc.ScheduleCron

	if s.TriggerType == models.TriggerSchedule {
		expr, err := schedule.Derive(s.Schedule)
		if err != nil {
			return fmt.Errorf("schedule: %w", err)
		}

		cronExpr = expr
	}

	b.doc.Name = s.Name
	b.doc.Description = s.Description
	b.doc.TriggerType = s.TriggerType
	b.doc.ScheduleCron = cronExpr
	b.doc.ScheduleTimezone = s.Timezone
	b.doc.WebhookURL = s.WebhookURL
	b.doc.WebhookMethod = s.WebhookMethod
	b.doc.WebhookPayload = s.WebhookPayload
	b.doc.MaxRetries = s.MaxRetries
	b.doc.RetryIntervalSeconds = s.RetryIntervalSeconds
	b.doc.GroupFailurePolicy = s.GroupFailurePolicy
	b.doc.Normalize()

	b.dirty = true

	return nil
}

func (b *Builder) OpenSettings() error {
	return b.settings.Edit(settingsSubject)
}

// SaveSettings applies s and saves the workflow from the settings dialog. On failure the dialog
// returns to editing with the entered values kept by the caller.
func (b *Builder) SaveSettings(ctx context.Context, s Settings) error {
	if err := b.settings.BeginSave(); err != nil {
		return err
	}

	err := b.ApplySettings(s)
	if err == nil {
		err = b.Save(ctx)
	}

	if endErr := b.settings.EndSave(err); endErr != nil {
		return errors.Join(err, endErr)
	}

	return err
}

// SaveNode applies patch to the node open in the canvas edit dialog and closes it.
func (b *Builder) SaveNode(key string, patch graph.NodePatch) error {
	dialog := b.canvas.Dialog()

	if dialog.State() != canvas.DialogEditing || dialog.Subject() != key {
		return fmt.Errorf("%w: %s", ErrNotEditing, key)
	}

	if err := dialog.BeginSave(); err != nil {
		return err
	}

	err := b.graph.UpdateNode(key, patch)
	if err == nil {
		b.dirty = true
	}

	if endErr := dialog.EndSave(err); endErr != nil {
		return errors.Join(err, endErr)
	}

	return err
}

// Save checks the graph locally and hands the document to the saver. No save is attempted while
// the graph has violations.
func (b *Builder) Save(ctx context.Context) error {
	if err := b.graph.Check(); err != nil {
		b.logger.Debug("Save blocked", "error", err)
		return err
	}

	doc := b.Document()

	if err := b.saver.Save(ctx, doc); err != nil {
		return err
	}

	b.doc = doc
	b.dirty = false

	return nil
}
