package graph

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/birun/console/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_TooFewNodes(t *testing.T) {
	g := New()
	assert.Equal(t, []ViolationCode{TooFewNodes}, Codes(g.Validate()))

	g.AddNode()
	bind(t, g, "N1", 1, 1)

	violations := g.Validate()
	assert.Equal(t, []ViolationCode{TooFewNodes}, Codes(violations))
}

func TestValidate_SingleNodeExemptFromConnectivity(t *testing.T) {
	g := New()
	g.AddNode()

	codes := Codes(g.Validate())
	assert.NotContains(t, codes, UnconnectedNode)
	assert.Contains(t, codes, MissingScriptOrTarget)
}

func TestValidate_UnconnectedNode(t *testing.T) {
	g := New()
	for range 3 {
		g.AddNode()
	}

	bind(t, g, "N1", 1, 1)
	bind(t, g, "N2", 1, 1)
	bind(t, g, "N3", 1, 1)
	mustEdge(t, g, "N1", "N2", models.OnSuccess)

	violations := g.Validate()
	require.Len(t, violations, 1)
	assert.Equal(t, UnconnectedNode, violations[0].Code)
	assert.Equal(t, []string{"N3"}, violations[0].NodeKeys)
	assert.Contains(t, violations[0].Message, "N3")
}

func TestValidate_DanglingEdge(t *testing.T) {
	w := &models.Workflow{
		Nodes: []*models.Node{
			{Key: "A", ScriptID: 1, TargetType: models.TargetServer, TargetID: 1},
			{Key: "B", ScriptID: 1, TargetType: models.TargetServer, TargetID: 1},
		},
		Edges: []*models.Edge{
			{Source: "A", Target: "B", Condition: models.OnSuccess},
			{Source: "A", Target: "Z", Condition: models.OnFailure},
		},
	}

	violations := FromWorkflow(w).Validate()
	require.Len(t, violations, 1)
	assert.Equal(t, DanglingEdge, violations[0].Code)
	assert.Equal(t, []string{"Z"}, violations[0].NodeKeys)
	require.NotNil(t, violations[0].EdgeIndex)
	assert.Equal(t, 1, *violations[0].EdgeIndex)
}

func TestValidate_DuplicateKey(t *testing.T) {
	nodes := []*models.Node{
		{Key: "A", ScriptID: 1, TargetType: models.TargetServer, TargetID: 1},
		{Key: "A", ScriptID: 2, TargetType: models.TargetServer, TargetID: 1},
	}
	edges := []*models.Edge{{Source: "A", Target: "A", Condition: models.OnSuccess}}

	assert.Equal(t, []ViolationCode{DuplicateKey}, Codes(Validate(nodes, edges)))
}

func TestValidate_BranchingScenario(t *testing.T) {
	w := &models.Workflow{
		Nodes: []*models.Node{
			{Key: "A", ScriptID: 1, TargetType: models.TargetServer, TargetID: 1},
			{Key: "B", ScriptID: 2},
			{Key: "C", ScriptID: 3},
		},
		Edges: []*models.Edge{
			{Source: "A", Target: "B", Condition: models.OnSuccess},
			{Source: "A", Target: "C", Condition: models.OnFailure},
		},
	}
	g := FromWorkflow(w)

	violations := g.Validate()
	require.Len(t, violations, 2)

	for i, key := range []string{"B", "C"} {
		assert.Equal(t, MissingScriptOrTarget, violations[i].Code)
		assert.Equal(t, []string{key}, violations[i].NodeKeys)
		assert.Contains(t, violations[i].Message, key)
		assert.Contains(t, violations[i].Message, "a target")
	}

	err := g.Check()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidGraph)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Violations, 2)

	group := models.TargetGroup
	target := int64(4)
	require.NoError(t, g.UpdateNode("B", NodePatch{TargetType: &group, TargetID: &target}))
	require.NoError(t, g.UpdateNode("C", NodePatch{TargetType: &group, TargetID: &target}))

	assert.Empty(t, g.Validate())
	assert.NoError(t, g.Check())
}

func TestValidate_DoesNotMutate(t *testing.T) {
	g := New()
	g.AddNode()
	g.AddNode()
	mustEdge(t, g, "N1", "N9", models.OnSuccess)

	before := g.Edges()
	g.Validate()
	assert.Equal(t, before, g.Edges())
}

func TestValidate_WellFormedGraphsAreClean(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))

	for range 100 {
		g := New()

		count := 2 + r.IntN(8)
		for i := range count {
			n := g.AddNode()
			bind(t, g, n.Key, int64(1+r.IntN(5)), int64(1+i))
		}

		nodes := g.Nodes()

		// chain every node so that in+out degree is positive
		for i := 1; i < count; i++ {
			mustEdge(t, g, nodes[r.IntN(i)].Key, nodes[i].Key, models.OnSuccess)
		}

		for range r.IntN(5) {
			mustEdge(t, g, nodes[r.IntN(count)].Key, nodes[r.IntN(count)].Key, models.OnFailure)
		}

		assert.Empty(t, g.Validate())
	}
}
