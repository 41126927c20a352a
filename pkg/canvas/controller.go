package canvas

import (
	"log/slog"

	"github.com/birun/console/pkg/graph"
	"github.com/birun/console/pkg/log"
	"github.com/birun/console/pkg/models"
)

// GestureState is the phase of the pointer gesture in progress.
type GestureState string

const (
	GestureIdle             GestureState = "idle"
	GestureDragging         GestureState = "dragging"
	GestureHandleConnecting GestureState = "handle-connecting"
	GestureConnectArmed     GestureState = "connect-armed"
)

// EventKind tells the host what a gesture did.
type EventKind string

const (
	EventNone         EventKind = ""
	EventSelected     EventKind = "selected"
	EventDeselected   EventKind = "deselected"
	EventMoved        EventKind = "moved"
	EventConnectArmed EventKind = "connect-armed"
	EventEdgeAdded    EventKind = "edge-added"
	EventNodeDeleted  EventKind = "node-deleted"
	EventEditOpened   EventKind = "edit-opened"
	EventDeleteAsked  EventKind = "delete-asked"
	EventCancelled    EventKind = "cancelled"
)

type Event struct {
	Kind EventKind
	Key  string
	Edge *models.Edge
}

// Keys handled by KeyDown.
const (
	KeyDelete    = "Delete"
	KeyBackspace = "Backspace"
	KeyEscape    = "Escape"
)

type gesture struct {
	state     GestureState
	key       string
	offset    Point
	condition models.EdgeCondition
	pointer   Point
	moved     bool
}

// Controller translates gestures into graph mutations. It must be driven from a single goroutine.
type Controller struct {
	graph     *graph.Graph
	dialog    *Dialog
	logger    *slog.Logger
	gesture   gesture
	selected  string
	textFocus bool
	modals    []*Dialog
}

func NewController(g *graph.Graph, logger *slog.Logger) *Controller {
	return &Controller{
		graph:   g,
		dialog:  NewDialog(),
		logger:  log.OrDefault(logger, "canvas"),
		gesture: gesture{state: GestureIdle},
	}
}

func (c *Controller) Graph() *graph.Graph { return c.graph }

// Dialog is the node dialog driven by the edit and delete affordances.
func (c *Controller) Dialog() *Dialog { return c.dialog }

func (c *Controller) Selected() string { return c.selected }

func (c *Controller) State() GestureState { return c.gesture.state }

// ArmedCondition is the condition of the connection in progress, empty when none.
func (c *Controller) ArmedCondition() models.EdgeCondition {
	switch c.gesture.state {
	case GestureHandleConnecting, GestureConnectArmed:
		return c.gesture.condition
	default:
		return ""
	}
}

// SetTextFocus records whether a text-entry control currently has focus.
func (c *Controller) SetTextFocus(focused bool) {
	c.textFocus = focused
}

// AddModal registers a dialog owned outside the canvas. While it is open, keys do not delete nodes.
func (c *Controller) AddModal(d *Dialog) {
	c.modals = append(c.modals, d)
}

// modalOpen reports whether the node dialog or a registered modal is open.
func (c *Controller) modalOpen() bool {
	if c.dialog.IsOpen() {
		return true
	}

	for _, d := range c.modals {
		if d.IsOpen() {
			return true
		}
	}

	return false
}

// Select makes key the single selected node. An empty key clears the selection.
func (c *Controller) Select(key string) Event {
	if key == "" {
		if c.selected == "" {
			return Event{}
		}

		c.selected = ""

		return Event{Kind: EventDeselected}
	}

	if _, ok := c.graph.Node(key); !ok {
		return Event{}
	}

	c.selected = key

	return Event{Kind: EventSelected, Key: key}
}

// ArmConnect starts a click-click connection from source; the next node clicked becomes the target.
func (c *Controller) ArmConnect(source string, condition models.EdgeCondition) Event {
	if _, ok := c.graph.Node(source); !ok {
		return Event{}
	}

	c.gesture = gesture{state: GestureConnectArmed, key: source, condition: condition, pointer: RightAnchor(c.mustNode(source))}
	c.selected = source

	return Event{Kind: EventConnectArmed, Key: source}
}

func (c *Controller) mustNode(key string) *models.Node {
	n, _ := c.graph.Node(key)
	return n
}

func (c *Controller) hit(p Point) Hit {
	return HitTest(c.graph.Nodes(), p)
}

// AddNode appends a node and selects it.
func (c *Controller) AddNode() *models.Node {
	n := c.graph.AddNode()
	c.selected = n.Key

	return n
}

// PointerDown handles a press at p.
func (c *Controller) PointerDown(p Point, b Button) Event {
	h := c.hit(p)

	if c.gesture.state == GestureConnectArmed {
		return c.commitArmed(h)
	}

	c.gesture = gesture{state: GestureIdle}

	switch h.Region {
	case RegionNone:
		return c.Select("")
	case RegionConnector:
		c.selected = h.Key
		c.gesture = gesture{state: GestureHandleConnecting, key: h.Key, condition: b.Condition(), pointer: p}

		return Event{Kind: EventSelected, Key: h.Key}
	case RegionEdit:
		c.selected = h.Key
		if err := c.dialog.Edit(h.Key); err != nil {
			c.logger.Debug("Edit dialog not opened", "node", h.Key, "error", err)
			return Event{}
		}

		return Event{Kind: EventEditOpened, Key: h.Key}
	case RegionDelete:
		c.selected = h.Key
		if err := c.dialog.ConfirmDelete(h.Key); err != nil {
			c.logger.Debug("Delete confirmation not opened", "node", h.Key, "error", err)
			return Event{}
		}

		return Event{Kind: EventDeleteAsked, Key: h.Key}
	default:
		ev := c.Select(h.Key)

		if b == Primary {
			c.gesture = gesture{
				state:  GestureDragging,
				key:    h.Key,
				offset: p.Sub(origin(c.mustNode(h.Key))),
			}
		}

		return ev
	}
}

func (c *Controller) commitArmed(h Hit) Event {
	source, condition := c.gesture.key, c.gesture.condition
	c.gesture = gesture{state: GestureIdle}

	if !h.IsNode() || h.Key == source {
		return Event{Kind: EventCancelled, Key: source}
	}

	return c.connect(source, h.Key, condition)
}

func (c *Controller) connect(source, target string, condition models.EdgeCondition) Event {
	edge, err := c.graph.AddEdge(source, target, condition)
	if err != nil {
		c.logger.Debug("Edge rejected", "source", source, "target", target, "error", err)
		return Event{}
	}

	c.logger.Debug("Edge added", "source", source, "target", target, "condition", condition)

	return Event{Kind: EventEdgeAdded, Key: target, Edge: edge}
}

// PointerMove handles pointer motion to p.
func (c *Controller) PointerMove(p Point) Event {
	switch c.gesture.state {
	case GestureDragging:
		pos := Snap(p.Sub(c.gesture.offset))

		n := c.mustNode(c.gesture.key)
		if n == nil {
			c.gesture = gesture{state: GestureIdle}
			return Event{}
		}

		if n.Position != nil && *n.Position == pos {
			return Event{}
		}

		_ = c.graph.MoveNode(c.gesture.key, pos)

		return Event{Kind: EventMoved, Key: c.gesture.key}
	case GestureHandleConnecting:
		c.gesture.moved = c.gesture.moved || p != c.gesture.pointer
		c.gesture.pointer = p
	case GestureConnectArmed:
		c.gesture.pointer = p
	}

	return Event{}
}

// PointerUp handles a release at p.
func (c *Controller) PointerUp(p Point, _ Button) Event {
	switch c.gesture.state {
	case GestureDragging:
		c.gesture = gesture{state: GestureIdle}
	case GestureHandleConnecting:
		source, condition := c.gesture.key, c.gesture.condition
		h := c.hit(p)

		switch {
		case h.IsNode() && h.Key != source:
			c.gesture = gesture{state: GestureIdle}
			return c.connect(source, h.Key, condition)
		case h.Key == source && !c.gesture.moved:
			c.gesture = gesture{state: GestureConnectArmed, key: source, condition: condition, pointer: p}
			return Event{Kind: EventConnectArmed, Key: source}
		default:
			c.gesture = gesture{state: GestureIdle}
			return Event{Kind: EventCancelled, Key: source}
		}
	}

	return Event{}
}

// KeyDown handles a key press. Delete and Backspace are ignored while text entry or a dialog has focus.
func (c *Controller) KeyDown(key string) Event {
	switch key {
	case KeyEscape:
		if c.dialog.IsOpen() {
			_ = c.dialog.Cancel()
		}

		if c.gesture.state != GestureIdle {
			source := c.gesture.key
			c.gesture = gesture{state: GestureIdle}

			return Event{Kind: EventCancelled, Key: source}
		}

		return Event{}
	case KeyDelete, KeyBackspace:
		if c.textFocus || c.modalOpen() || c.selected == "" {
			return Event{}
		}

		return c.deleteNode(c.selected)
	default:
		return Event{}
	}
}

// ConfirmDelete accepts the pending delete confirmation and removes the node.
func (c *Controller) ConfirmDelete() (Event, error) {
	key, err := c.dialog.Confirm()
	if err != nil {
		return Event{}, err
	}

	return c.deleteNode(key), nil
}

func (c *Controller) deleteNode(key string) Event {
	if !c.graph.DeleteNode(key) {
		return Event{}
	}

	if c.selected == key {
		c.selected = ""
	}

	if c.gesture.key == key {
		c.gesture = gesture{state: GestureIdle}
	}

	c.logger.Debug("Node deleted", "node", key)

	return Event{Kind: EventNodeDeleted, Key: key}
}

// Preview is the live connection curve, nil when no connection is in progress.
func (c *Controller) Preview() *EdgeShape {
	switch c.gesture.state {
	case GestureHandleConnecting, GestureConnectArmed:
	default:
		return nil
	}

	source := c.mustNode(c.gesture.key)
	if source == nil {
		return nil
	}

	from := RightAnchor(source)

	return &EdgeShape{
		Index:     -1,
		Source:    source.Key,
		Condition: c.gesture.condition,
		Path:      CurvePath(from, c.gesture.pointer),
		Color:     EdgeColor(c.gesture.condition),
		Preview:   true,
	}
}

// Scene is the read-only projection of the graph and gesture state.
func (c *Controller) Scene() Scene {
	scene := Project(c.graph, c.selected)
	scene.Preview = c.Preview()

	return scene
}
