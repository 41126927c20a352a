// Package persistence provides the storage abstraction for workflow documents.
package persistence

import (
	"context"

	"github.com/birun/console/pkg/models"
)

// Persistence stores whole workflow documents. Saves replace nodes and edges entirely; the last save wins.
type Persistence interface {
	Workflows(ctx context.Context) ([]models.WorkflowSummary, error)
	WorkflowByID(ctx context.Context, id int64) (*models.Workflow, error)
	CreateWorkflow(ctx context.Context, workflow *models.Workflow) (int64, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id int64) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
