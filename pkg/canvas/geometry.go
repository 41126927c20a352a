// Package canvas turns pointer and keyboard gestures on the workflow editor into graph mutations
// and projects the graph into drawable shapes.
package canvas

import (
	"math"

	"github.com/birun/console/pkg/models"
)

// Node box and affordance dimensions in canvas units.
const (
	NodeWidth       = 180.0
	NodeHeight      = 64.0
	GridSize        = 20.0
	ConnectorRadius = 8.0
	ControlSize     = 18.0
	CurveOffset     = 80.0
)

type Point struct {
	X float64
	Y float64
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Button is the pointer button of a press or release.
type Button int

const (
	Primary Button = iota
	Secondary
)

// Condition maps the button to the edge condition it arms.
func (b Button) Condition() models.EdgeCondition {
	if b == Secondary {
		return models.OnFailure
	}

	return models.OnSuccess
}

// Region is the part of a node box under the pointer.
type Region int

const (
	RegionNone Region = iota
	RegionBody
	RegionConnector
	RegionEdit
	RegionDelete
)

// Hit is the result of a hit test.
type Hit struct {
	Key    string
	Region Region
}

func (h Hit) IsNode() bool {
	return h.Region != RegionNone
}

func origin(n *models.Node) Point {
	if n.Position == nil {
		return Point{}
	}

	return Point{X: n.Position.X, Y: n.Position.Y}
}

// RightAnchor is the source anchor of outgoing edges, also the connector centre.
func RightAnchor(n *models.Node) Point {
	o := origin(n)
	return Point{X: o.X + NodeWidth, Y: o.Y + NodeHeight/2}
}

// LeftAnchor is the target anchor of incoming edges.
func LeftAnchor(n *models.Node) Point {
	o := origin(n)
	return Point{X: o.X, Y: o.Y + NodeHeight/2}
}

func controlRect(n *models.Node, r Region) (lo, hi Point) {
	o := origin(n)
	right := o.X + NodeWidth

	if r == RegionEdit {
		right -= ControlSize
	}

	return Point{X: right - ControlSize, Y: o.Y}, Point{X: right, Y: o.Y + ControlSize}
}

func inRect(p, lo, hi Point) bool {
	return p.X >= lo.X && p.X <= hi.X && p.Y >= lo.Y && p.Y <= hi.Y
}

// HitTest finds the topmost node region under p. Later nodes are drawn above earlier ones.
func HitTest(nodes []*models.Node, p Point) Hit {
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]

		c := RightAnchor(n)
		if math.Hypot(p.X-c.X, p.Y-c.Y) <= ConnectorRadius {
			return Hit{Key: n.Key, Region: RegionConnector}
		}

		for _, r := range []Region{RegionDelete, RegionEdit} {
			if lo, hi := controlRect(n, r); inRect(p, lo, hi) {
				return Hit{Key: n.Key, Region: r}
			}
		}

		o := origin(n)
		if inRect(p, o, Point{X: o.X + NodeWidth, Y: o.Y + NodeHeight}) {
			return Hit{Key: n.Key, Region: RegionBody}
		}
	}

	return Hit{}
}

// Snap rounds p to the nearest grid increment and clamps it to non-negative coordinates.
func Snap(p Point) models.Position {
	return models.Position{
		X: max(0, math.Round(p.X/GridSize)*GridSize),
		Y: max(0, math.Round(p.Y/GridSize)*GridSize),
	}
}
