package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/birun/console/pkg/models"
)

// ErrInvalidGraph is matched by every ValidationError.
var ErrInvalidGraph = errors.New("invalid workflow graph")

// MinNodes is the smallest graph that can be saved.
const MinNodes = 2

type ViolationCode string

const (
	MissingScriptOrTarget ViolationCode = "missing_script_or_target"
	UnconnectedNode       ViolationCode = "unconnected_node"
	DanglingEdge          ViolationCode = "dangling_edge"
	TooFewNodes           ViolationCode = "too_few_nodes"
	DuplicateKey          ViolationCode = "duplicate_key"
)

// Violation is one structural problem. NodeKeys names the affected nodes; EdgeIndex is set for edge violations.
type Violation struct {
	Code      ViolationCode `json:"code"`
	Message   string        `json:"message"`
	NodeKeys  []string      `json:"node_keys,omitempty"`
	EdgeIndex *int          `json:"edge_index,omitempty"`
}

func (v Violation) String() string {
	return v.Message
}

// Validate returns every structural violation of the current nodes and edges. It does not mutate the graph.
func (g *Graph) Validate() []Violation {
	return Validate(g.nodes, g.edges)
}

// Validate checks nodes and edges against the save invariants.
func Validate(nodes []*models.Node, edges []*models.Edge) []Violation {
	var violations []Violation

	if len(nodes) < MinNodes {
		violations = append(violations, Violation{
			Code:    TooFewNodes,
			Message: fmt.Sprintf("Add at least %d nodes before saving", MinNodes),
		})
	}

	keys := make(map[string]*models.Node, len(nodes))
	for _, n := range nodes {
		if _, dup := keys[n.Key]; dup {
			violations = append(violations, Violation{
				Code:     DuplicateKey,
				Message:  fmt.Sprintf("Node key %q is used more than once", n.Key),
				NodeKeys: []string{n.Key},
			})

			continue
		}

		keys[n.Key] = n
	}

	degree := make(map[string]int, len(nodes))

	for i, e := range edges {
		_, sourceOK := keys[e.Source]
		_, targetOK := keys[e.Target]

		if !sourceOK || !targetOK {
			index := i
			violations = append(violations, Violation{
				Code:      DanglingEdge,
				Message:   fmt.Sprintf("Edge %s -> %s references a missing node", edgeEnd(e.Source), edgeEnd(e.Target)),
				NodeKeys:  danglingKeys(e, sourceOK, targetOK),
				EdgeIndex: &index,
			})

			continue
		}

		degree[e.Source]++
		degree[e.Target]++
	}

	for _, n := range nodes {
		if !n.HasScript() || !n.HasTarget() {
			violations = append(violations, Violation{
				Code:     MissingScriptOrTarget,
				Message:  fmt.Sprintf("Node %s is missing %s", n.Label(), missingParts(n)),
				NodeKeys: []string{n.Key},
			})
		}
	}

	if len(nodes) >= MinNodes {
		for _, n := range nodes {
			if degree[n.Key] == 0 {
				violations = append(violations, Violation{
					Code:     UnconnectedNode,
					Message:  fmt.Sprintf("Node %s is not connected to any other node", n.Label()),
					NodeKeys: []string{n.Key},
				})
			}
		}
	}

	return violations
}

func edgeEnd(key string) string {
	if key == "" {
		return "(none)"
	}

	return key
}

func danglingKeys(e *models.Edge, sourceOK, targetOK bool) []string {
	var keys []string
	if !sourceOK && e.Source != "" {
		keys = append(keys, e.Source)
	}

	if !targetOK && e.Target != "" {
		keys = append(keys, e.Target)
	}

	return keys
}

func missingParts(n *models.Node) string {
	switch {
	case !n.HasScript() && !n.HasTarget():
		return "a script and a target"
	case !n.HasScript():
		return "a script"
	default:
		return "a target"
	}
}

// ValidationError carries the violations that blocked a save.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	messages := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		messages[i] = v.Message
	}

	return fmt.Sprintf("%s: %s", ErrInvalidGraph, strings.Join(messages, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidGraph
}

// Check returns a *ValidationError when the graph has violations.
func (g *Graph) Check() error {
	if violations := g.Validate(); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	return nil
}

// Codes collects the distinct codes in violations, in first-seen order.
func Codes(violations []Violation) []ViolationCode {
	seen := map[ViolationCode]bool{}

	var codes []ViolationCode
	for _, v := range violations {
		if !seen[v.Code] {
			seen[v.Code] = true
			codes = append(codes, v.Code)
		}
	}

	return codes
}
