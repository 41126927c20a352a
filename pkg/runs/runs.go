// Package runs starts workflow runs and follows them until they reach a terminal status.
package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/birun/console/pkg/eventbus"
	"github.com/birun/console/pkg/events"
	"github.com/birun/console/pkg/log"
	"github.com/birun/console/pkg/models"
)

const DefaultPollInterval = 2 * time.Second

// ErrMonitorStopped is returned by Watcher.Wait when the watcher was stopped before a terminal status.
var ErrMonitorStopped = errors.New("run monitor stopped")

// API is the subset of the backend run endpoints the orchestrator needs.
type API interface {
	StartRun(ctx context.Context, workflowID int64) (*models.RunStarted, error)
	GetRun(ctx context.Context, runID int64) (*models.WorkflowRun, error)
	ListRuns(ctx context.Context, workflowID int64) ([]models.WorkflowRun, error)
}

type Config struct {
	PollInterval time.Duration
	Publisher    eventbus.EventPublisher
	Logger       *slog.Logger
}

type Orchestrator struct {
	api       API
	interval  time.Duration
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

func NewOrchestrator(api API, cfg Config) *Orchestrator {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = eventbus.Discard
	}

	return &Orchestrator{
		api:       api,
		interval:  interval,
		publisher: publisher,
		logger:    log.OrDefault(cfg.Logger, "runs"),
	}
}

// StartRun starts a run of workflowID and returns its id. The api error is kept in the chain so
// callers can show the server's message.
func (o *Orchestrator) StartRun(ctx context.Context, workflowID int64) (int64, error) {
	started, err := o.api.StartRun(ctx, workflowID)
	if err != nil {
		return 0, fmt.Errorf("start run of workflow %d: %w", workflowID, err)
	}

	o.logger.Info("Run started", "workflow_id", workflowID, "run_id", started.RunID)

	o.publish(ctx, runKey(started.RunID), events.RunStarted{
		BaseEvent: events.NewBaseEvent(events.RunStartedEvent, workflowID),
		RunID:     started.RunID,
	})

	return started.RunID, nil
}

func (o *Orchestrator) ListRuns(ctx context.Context, workflowID int64) ([]models.WorkflowRun, error) {
	runs, err := o.api.ListRuns(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list runs of workflow %d: %w", workflowID, err)
	}

	return runs, nil
}

func (o *Orchestrator) publish(ctx context.Context, key string, event eventbus.Event) {
	if err := o.publisher.Publish(ctx, key, event); err != nil {
		o.logger.Debug("Failed to publish run event", "event_type", event.GetType(), "error", err)
	}
}

func runKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
