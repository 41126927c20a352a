package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TargetType selects whether a node runs against a single server or a server group.
type TargetType string

const (
	TargetServer TargetType = "server"
	TargetGroup  TargetType = "group"
)

// EdgeCondition gates an edge on the outcome of its source node.
type EdgeCondition string

const (
	OnSuccess EdgeCondition = "on_success"
	OnFailure EdgeCondition = "on_failure"
)

// Position is a client-local layout hint in canvas coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node binds a script to an execution target.
type Node struct {
	ID         int64          `json:"id,omitempty"`
	Key        string         `json:"key"                   validate:"required"`
	Name       string         `json:"name"`
	ScriptID   int64          `json:"script_id"             validate:"gte=0"`
	TargetType TargetType     `json:"target_type"           validate:"omitempty,oneof=server group"`
	TargetID   int64          `json:"target_id"             validate:"gte=0"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Position   *Position      `json:"position,omitempty"`
}

func (n *Node) HasScript() bool {
	return n.ScriptID > 0
}

func (n *Node) HasTarget() bool {
	return n.TargetType != "" && n.TargetID > 0
}

// Label is the name shown to operators, falling back to the key.
func (n *Node) Label() string {
	if n.Name != "" {
		return n.Name
	}

	return n.Key
}

func (n *Node) Clone() *Node {
	c := *n

	if n.Position != nil {
		p := *n.Position
		c.Position = &p
	}

	if n.Parameters != nil {
		c.Parameters = make(map[string]any, len(n.Parameters))
		for k, v := range n.Parameters {
			c.Parameters[k] = v
		}
	}

	return &c
}

// UnmarshalJSON accepts parameters and position either as JSON objects or as
// JSON-encoded strings, which is how the backend stores and returns them.
func (n *Node) UnmarshalJSON(data []byte) error {
	type alias Node

	var raw struct {
		alias
		Parameters json.RawMessage `json:"parameters"`
		Position   json.RawMessage `json:"position"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*n = Node(raw.alias)
	n.Parameters = nil
	n.Position = nil

	if err := decodeText(raw.Parameters, &n.Parameters); err != nil {
		return fmt.Errorf("node %q parameters: %w", n.Key, err)
	}

	// Position is a layout hint; an unreadable one is re-derived on load.
	var pos Position
	if ok, err := decodeTextOK(raw.Position, &pos); err == nil && ok {
		n.Position = &pos
	}

	return nil
}

func decodeText(raw json.RawMessage, v any) error {
	_, err := decodeTextOK(raw, v)
	return err
}

// decodeTextOK decodes raw into v whether it holds the value itself or a
// string wrapping its JSON encoding. Null and empty strings leave v untouched.
func decodeTextOK(raw json.RawMessage, v any) (bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false, nil
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return false, err
		}

		text = string(bytes.TrimSpace([]byte(text)))
		if text == "" || text == "null" {
			return false, nil
		}

		raw = json.RawMessage(text)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}

	return true, nil
}

// encodeText renders v as the JSON string stored in the backend's text columns.
func encodeText(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	return string(data)
}

// Edge is a directed, condition-tagged transition between two node keys.
type Edge struct {
	ID        int64         `json:"id,omitempty"`
	Source    string        `json:"source"    validate:"required"`
	Target    string        `json:"target"    validate:"required"`
	Condition EdgeCondition `json:"condition" validate:"required,oneof=on_success on_failure"`
}

// Touches reports whether the edge has key as either endpoint.
func (e *Edge) Touches(key string) bool {
	return e.Source == key || e.Target == key
}
