package api

import (
	"context"
	"net/http"

	"github.com/birun/console/pkg/models"
)

type workflowList struct {
	Workflows []models.WorkflowSummary `json:"workflows"`
}

type createdResponse struct {
	ID int64 `json:"id"`
}

func (c *Client) ListWorkflows(ctx context.Context) ([]models.WorkflowSummary, error) {
	var out workflowList
	if err := c.do(ctx, "ListWorkflows", http.MethodGet, "/api/workflows/", nil, nil, &out); err != nil {
		return nil, err
	}

	return out.Workflows, nil
}

func (c *Client) GetWorkflow(ctx context.Context, id int64) (*models.Workflow, error) {
	var out models.Workflow
	if err := c.do(ctx, "GetWorkflow", http.MethodGet, idPath("/api/workflows/%s", id), nil, nil, &out); err != nil {
		return nil, err
	}

	out.Normalize()

	return &out, nil
}

// CreateWorkflow stores a new document and returns its server-assigned id.
func (c *Client) CreateWorkflow(ctx context.Context, payload models.SavePayload) (int64, error) {
	var out createdResponse
	if err := c.do(ctx, "CreateWorkflow", http.MethodPost, "/api/workflows/", nil, payload, &out); err != nil {
		return 0, err
	}

	return out.ID, nil
}

// SaveWorkflow replaces the whole document, nodes and edges included.
func (c *Client) SaveWorkflow(ctx context.Context, id int64, payload models.SavePayload) error {
	return c.do(ctx, "SaveWorkflow", http.MethodPut, idPath("/api/workflows/%s", id), nil, payload, nil)
}

func (c *Client) DeleteWorkflow(ctx context.Context, id int64) error {
	return c.do(ctx, "DeleteWorkflow", http.MethodDelete, idPath("/api/workflows/%s", id), nil, nil, nil)
}
