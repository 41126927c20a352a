package mocks

import (
	"context"

	"github.com/birun/console/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockRunAPI is a mock implementation of runs.API interface.
type MockRunAPI struct {
	mock.Mock
}

func (m *MockRunAPI) StartRun(ctx context.Context, workflowID int64) (*models.RunStarted, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.RunStarted), args.Error(1)
}

func (m *MockRunAPI) GetRun(ctx context.Context, runID int64) (*models.WorkflowRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowRun), args.Error(1)
}

func (m *MockRunAPI) ListRuns(ctx context.Context, workflowID int64) ([]models.WorkflowRun, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.WorkflowRun), args.Error(1)
}
