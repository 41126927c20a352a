package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/birun/console/pkg/models"
)

type runList struct {
	Runs []models.WorkflowRun `json:"runs"`
}

// StartRun asks the backend to run a workflow now.
func (c *Client) StartRun(ctx context.Context, workflowID int64) (*models.RunStarted, error) {
	var out models.RunStarted
	if err := c.do(ctx, "StartRun", http.MethodPost, idPath("/api/workflows/%s/run", workflowID), nil, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) GetRun(ctx context.Context, runID int64) (*models.WorkflowRun, error) {
	var out models.WorkflowRun
	if err := c.do(ctx, "GetRun", http.MethodGet, idPath("/api/workflows/runs/%s", runID), nil, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ListRuns returns the most recent runs of a workflow, newest first.
func (c *Client) ListRuns(ctx context.Context, workflowID int64) ([]models.WorkflowRun, error) {
	var out runList
	if err := c.do(ctx, "ListRuns", http.MethodGet, idPath("/api/workflows/%s/runs", workflowID), nil, nil, &out); err != nil {
		return nil, err
	}

	return out.Runs, nil
}

// PreviewCron asks the backend for the next fire times of expr in tz. count is clamped to 1..10.
func (c *Client) PreviewCron(ctx context.Context, expr, tz string, count int) (*models.CronPreview, error) {
	if count <= 0 {
		count = DefaultPreviewCount
	}

	count = min(count, MaxPreviewCount)

	query := url.Values{}
	query.Set("expr", expr)
	query.Set("count", strconv.Itoa(count))

	if tz != "" {
		query.Set("tz", tz)
	}

	var out models.CronPreview
	if err := c.do(ctx, "PreviewCron", http.MethodGet, "/api/schedules/cron/preview", query, nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
