// Package graph holds the node/edge aggregate of one workflow and its structural validator.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/birun/console/pkg/models"
)

var (
	ErrNodeNotFound     = errors.New("node not found")
	ErrInvalidCondition = errors.New("invalid edge condition")
)

// Layout of nodes created without an explicit position.
const (
	DefaultOriginX   = 40
	DefaultOriginY   = 40
	DefaultColumnGap = 220
	DefaultRowGap    = 120
	DefaultColumns   = 4
)

// Graph owns the nodes and edges of one workflow. It is not safe for concurrent use.
type Graph struct {
	nodes []*models.Node
	edges []*models.Edge
	seq   int
}

func New() *Graph {
	return &Graph{}
}

// FromWorkflow copies the graph of w. Nodes without a position get a default layout slot.
func FromWorkflow(w *models.Workflow) *Graph {
	g := New()

	for i, n := range w.Nodes {
		node := n.Clone()
		if node.Position == nil {
			pos := DefaultPosition(i)
			node.Position = &pos
		}

		g.nodes = append(g.nodes, node)
		g.bumpSeq(node.Key)
	}

	for _, e := range w.Edges {
		edge := *e
		g.edges = append(g.edges, &edge)
	}

	return g
}

// DefaultPosition returns the layout slot for the i-th node.
func DefaultPosition(i int) models.Position {
	return models.Position{
		X: float64(DefaultOriginX + (i%DefaultColumns)*DefaultColumnGap),
		Y: float64(DefaultOriginY + (i/DefaultColumns)*DefaultRowGap),
	}
}

func (g *Graph) bumpSeq(key string) {
	n, ok := keySeq(key)
	if ok && n > g.seq {
		g.seq = n
	}
}

func keySeq(key string) (int, bool) {
	rest, found := strings.CutPrefix(key, "N")
	if !found {
		return 0, false
	}

	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}

	return n, true
}

// AddNode appends a node with a fresh "N{n}" key at the next default position.
func (g *Graph) AddNode() *models.Node {
	key := g.nextKey()
	pos := DefaultPosition(len(g.nodes))

	node := &models.Node{
		Key:      key,
		Name:     key,
		Position: &pos,
	}
	g.nodes = append(g.nodes, node)

	return node
}

func (g *Graph) nextKey() string {
	for {
		g.seq++

		key := "N" + strconv.Itoa(g.seq)
		if g.index(key) < 0 {
			return key
		}
	}
}

// AddEdge appends an edge. Identical edges are kept as-is.
func (g *Graph) AddEdge(source, target string, condition models.EdgeCondition) (*models.Edge, error) {
	if condition != models.OnSuccess && condition != models.OnFailure {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCondition, condition)
	}

	edge := &models.Edge{Source: source, Target: target, Condition: condition}
	g.edges = append(g.edges, edge)

	return edge, nil
}

// DeleteNode removes the node and every edge touching it. It reports whether the node existed.
func (g *Graph) DeleteNode(key string) bool {
	i := g.index(key)
	if i < 0 {
		return false
	}

	g.nodes = slices.Delete(g.nodes, i, i+1)
	g.edges = slices.DeleteFunc(g.edges, func(e *models.Edge) bool {
		return e.Touches(key)
	})

	return true
}

// DeleteEdge removes the i-th edge.
func (g *Graph) DeleteEdge(i int) bool {
	if i < 0 || i >= len(g.edges) {
		return false
	}

	g.edges = slices.Delete(g.edges, i, i+1)

	return true
}

// MoveNode sets the node position. Edges are untouched.
func (g *Graph) MoveNode(key string, pos models.Position) error {
	node, ok := g.Node(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, key)
	}

	node.Position = &pos

	return nil
}

// NodePatch holds the editable fields of a node; nil fields are left unchanged.
type NodePatch struct {
	Name       *string
	ScriptID   *int64
	TargetType *models.TargetType
	TargetID   *int64
	Parameters map[string]any
}

// UpdateNode applies patch to the node with the given key.
func (g *Graph) UpdateNode(key string, patch NodePatch) error {
	node, ok := g.Node(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, key)
	}

	if patch.Name != nil {
		node.Name = *patch.Name
	}

	if patch.ScriptID != nil {
		node.ScriptID = *patch.ScriptID
	}

	if patch.TargetType != nil {
		node.TargetType = *patch.TargetType
	}

	if patch.TargetID != nil {
		node.TargetID = *patch.TargetID
	}

	if patch.Parameters != nil {
		node.Parameters = patch.Parameters
	}

	return nil
}

// Node returns the live node for key.
func (g *Graph) Node(key string) (*models.Node, bool) {
	i := g.index(key)
	if i < 0 {
		return nil, false
	}

	return g.nodes[i], true
}

func (g *Graph) index(key string) int {
	return slices.IndexFunc(g.nodes, func(n *models.Node) bool {
		return n.Key == key
	})
}

// Nodes returns copies of the nodes in insertion order.
func (g *Graph) Nodes() []*models.Node {
	out := make([]*models.Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.Clone()
	}

	return out
}

// Edges returns copies of the edges in insertion order.
func (g *Graph) Edges() []*models.Edge {
	out := make([]*models.Edge, len(g.edges))
	for i, e := range g.edges {
		edge := *e
		out[i] = &edge
	}

	return out
}

func (g *Graph) Len() int {
	return len(g.nodes)
}

// Apply replaces the nodes and edges of w with copies of the graph.
func (g *Graph) Apply(w *models.Workflow) {
	w.Nodes = g.Nodes()
	w.Edges = g.Edges()
}
