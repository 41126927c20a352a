package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/birun/console/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		err := persistence.NewWorkflowError("WorkflowByID", 123, persistence.ErrWorkflowNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(err))
		assert.True(t, errors.Is(err, persistence.ErrWorkflowNotFound))
		assert.True(t, persistence.IsWorkflowNotFound(fmt.Errorf("wrapped: %w", err)))
		assert.False(t, persistence.IsWorkflowNotFound(errors.New("other")))
	})

	t.Run("workflow error contains context", func(t *testing.T) {
		err := persistence.NewWorkflowError("SaveWorkflow", 123, persistence.ErrInvalidWorkflowID)

		assert.Contains(t, err.Error(), "SaveWorkflow")
		assert.Contains(t, err.Error(), "123")
		assert.Contains(t, err.Error(), "invalid workflow id")
	})
}
