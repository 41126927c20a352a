// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"fmt"

	"github.com/birun/console/pkg/models"
)

// CreateTestNode creates a runnable node with default values that can be overridden.
func CreateTestNode(key string, overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		Key:        key,
		Name:       "Test " + key,
		ScriptID:   1,
		TargetType: models.TargetServer,
		TargetID:   1,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithScript sets the script the node runs.
func WithScript(scriptID int64) func(*models.Node) {
	return func(n *models.Node) {
		n.ScriptID = scriptID
	}
}

// WithTarget sets where the node runs.
func WithTarget(targetType models.TargetType, targetID int64) func(*models.Node) {
	return func(n *models.Node) {
		n.TargetType = targetType
		n.TargetID = targetID
	}
}

// WithoutTarget clears the target, leaving the node incomplete.
func WithoutTarget() func(*models.Node) {
	return func(n *models.Node) {
		n.TargetType = ""
		n.TargetID = 0
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.Node) {
	return func(n *models.Node) {
		n.Position = &models.Position{X: x, Y: y}
	}
}

// CreateTestWorkflow creates a test workflow without nodes.
func CreateTestWorkflow(id int64) *models.Workflow {
	w := models.NewWorkflow("Test Workflow", "A workflow for testing")
	w.ID = id

	return w
}

// CreateTestChain creates a workflow of n runnable nodes N1..Nn linked by on_success edges.
func CreateTestChain(id int64, n int) *models.Workflow {
	w := CreateTestWorkflow(id)

	for i := 1; i <= n; i++ {
		w.Nodes = append(w.Nodes, CreateTestNode(fmt.Sprintf("N%d", i), WithScript(int64(i)), WithTarget(models.TargetServer, int64(i))))

		if i > 1 {
			w.Edges = append(w.Edges, &models.Edge{
				Source:    fmt.Sprintf("N%d", i-1),
				Target:    fmt.Sprintf("N%d", i),
				Condition: models.OnSuccess,
			})
		}
	}

	return w
}
