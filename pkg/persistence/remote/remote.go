// Package remote stores workflows through the backend HTTP API.
package remote

import (
	"context"
	"errors"

	"github.com/birun/console/pkg/api"
	"github.com/birun/console/pkg/models"
	"github.com/birun/console/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of an api.Client.
type Persistence struct {
	client *api.Client
}

var _ persistence.Persistence = (*Persistence)(nil)

func NewPersistence(client *api.Client) *Persistence {
	return &Persistence{client: client}
}

// wrap keeps the api.Error in the chain and adds ErrWorkflowNotFound for 404s.
func wrap(op string, id int64, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, api.ErrNotFound) {
		return persistence.NewWorkflowError(op, id, errors.Join(persistence.ErrWorkflowNotFound, err))
	}

	return err
}

func (p *Persistence) Workflows(ctx context.Context) ([]models.WorkflowSummary, error) {
	return p.client.ListWorkflows(ctx)
}

func (p *Persistence) WorkflowByID(ctx context.Context, id int64) (*models.Workflow, error) {
	w, err := p.client.GetWorkflow(ctx, id)
	if err != nil {
		return nil, wrap("WorkflowByID", id, err)
	}

	w.ID = id

	return w, nil
}

func (p *Persistence) CreateWorkflow(ctx context.Context, workflow *models.Workflow) (int64, error) {
	return p.client.CreateWorkflow(ctx, workflow.Payload())
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID <= 0 {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, persistence.ErrInvalidWorkflowID)
	}

	return wrap("SaveWorkflow", workflow.ID, p.client.SaveWorkflow(ctx, workflow.ID, workflow.Payload()))
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, id int64) error {
	return wrap("DeleteWorkflow", id, p.client.DeleteWorkflow(ctx, id))
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}
