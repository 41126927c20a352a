package canvas

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/birun/console/pkg/graph"
	"github.com/birun/console/pkg/models"
)

const (
	SuccessColor = "#16a34a"
	FailureColor = "#dc2626"
	canvasMargin = 40.0
)

func EdgeColor(condition models.EdgeCondition) string {
	if condition == models.OnFailure {
		return FailureColor
	}

	return SuccessColor
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CurvePath is the SVG path of the cubic curve from a source anchor to a target anchor.
func CurvePath(from, to Point) string {
	return fmt.Sprintf("M %s %s C %s %s, %s %s, %s %s",
		num(from.X), num(from.Y),
		num(from.X+CurveOffset), num(from.Y),
		num(to.X-CurveOffset), num(to.Y),
		num(to.X), num(to.Y),
	)
}

type NodeBox struct {
	Key        string
	Label      string
	X, Y       float64
	Width      float64
	Height     float64
	Selected   bool
	Incomplete bool
}

type EdgeShape struct {
	Index     int
	Source    string
	Target    string
	Condition models.EdgeCondition
	Path      string
	Color     string
	Preview   bool
}

type Scene struct {
	Nodes   []NodeBox
	Edges   []EdgeShape
	Preview *EdgeShape
	Width   float64
	Height  float64
}

// Project draws the graph. Edges with a missing endpoint are skipped.
func Project(g *graph.Graph, selected string) Scene {
	nodes := g.Nodes()
	byKey := make(map[string]*models.Node, len(nodes))

	var scene Scene

	for _, n := range nodes {
		byKey[n.Key] = n
		o := origin(n)

		scene.Nodes = append(scene.Nodes, NodeBox{
			Key:        n.Key,
			Label:      n.Label(),
			X:          o.X,
			Y:          o.Y,
			Width:      NodeWidth,
			Height:     NodeHeight,
			Selected:   n.Key == selected,
			Incomplete: !n.HasScript() || !n.HasTarget(),
		})

		scene.Width = max(scene.Width, o.X+NodeWidth+canvasMargin)
		scene.Height = max(scene.Height, o.Y+NodeHeight+canvasMargin)
	}

	for i, e := range g.Edges() {
		source, ok := byKey[e.Source]
		if !ok {
			continue
		}

		target, ok := byKey[e.Target]
		if !ok {
			continue
		}

		scene.Edges = append(scene.Edges, EdgeShape{
			Index:     i,
			Source:    e.Source,
			Target:    e.Target,
			Condition: e.Condition,
			Path:      CurvePath(RightAnchor(source), LeftAnchor(target)),
			Color:     EdgeColor(e.Condition),
		})
	}

	return scene
}

// SVG renders the scene as a standalone SVG document.
func (s Scene) SVG() string {
	var b strings.Builder

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(s.Width), num(s.Height), num(s.Width), num(s.Height))

	edges := s.Edges
	if s.Preview != nil {
		edges = append(edges[:len(edges):len(edges)], *s.Preview)
	}

	for _, e := range edges {
		dash := ""
		if e.Preview {
			dash = ` stroke-dasharray="6 4"`
		}

		fmt.Fprintf(&b, `  <path d="%s" fill="none" stroke="%s" stroke-width="2"%s/>`+"\n", e.Path, e.Color, dash)
	}

	for _, n := range s.Nodes {
		stroke := "#64748b"
		if n.Selected {
			stroke = "#2563eb"
		} else if n.Incomplete {
			stroke = "#f59e0b"
		}

		fmt.Fprintf(&b, `  <g data-key="%s">`+"\n", html.EscapeString(n.Key))
		fmt.Fprintf(&b, `    <rect x="%s" y="%s" width="%s" height="%s" rx="8" fill="#ffffff" stroke="%s"/>`+"\n",
			num(n.X), num(n.Y), num(n.Width), num(n.Height), stroke)
		fmt.Fprintf(&b, `    <text x="%s" y="%s" font-family="sans-serif" font-size="13">%s</text>`+"\n",
			num(n.X+12), num(n.Y+n.Height/2+4), html.EscapeString(n.Label))
		fmt.Fprintf(&b, `    <circle cx="%s" cy="%s" r="%s" fill="%s"/>`+"\n",
			num(n.X+n.Width), num(n.Y+n.Height/2), num(ConnectorRadius), stroke)
		b.WriteString("  </g>\n")
	}

	b.WriteString("</svg>\n")

	return b.String()
}
