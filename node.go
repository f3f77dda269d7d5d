package cmdflow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies what a node does in a command flow.
type Kind string

const (
	KindTrigger   Kind = "trigger"
	KindOption    Kind = "option"
	KindAction    Kind = "action"
	KindCondition Kind = "condition"
)

// Category is the palette grouping of a node. It drives socket compatibility and presentation.
type Category string

const (
	CategoryTriggers   Category = "triggers"
	CategoryOptions    Category = "options"
	CategoryActions    Category = "actions"
	CategoryConditions Category = "conditions"
)

// CategoryOf returns the category every node of the given kind belongs to.
func CategoryOf(k Kind) (Category, bool) {
	switch k {
	case KindTrigger:
		return CategoryTriggers, true
	case KindOption:
		return CategoryOptions, true
	case KindAction:
		return CategoryActions, true
	case KindCondition:
		return CategoryConditions, true
	}
	return "", false
}

// Socket is a named connection point on a node.
type Socket string

const (
	SocketInput  Socket = "input"
	SocketOutput Socket = "output"
	SocketElse   Socket = "else"
)

// Position is a free-form canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a single step of a command flow.
// Connections mirrors the edge list (socket -> peer node ids) and is never persisted.
type Node struct {
	ID          string              `json:"id"`
	Kind        Kind                `json:"kind"`
	Category    Category            `json:"category"`
	Label       string              `json:"label"`
	Position    Position            `json:"position"`
	Data        NodeData            `json:"data"`
	Connections map[Socket][]string `json:"-"`
}

// Edge is a directed connection between two node sockets.
// Its ID is derived from the endpoints, so re-creating the same edge yields the same ID.
type Edge struct {
	ID         string `json:"id"`
	FromNodeID string `json:"fromNodeId"`
	ToNodeID   string `json:"toNodeId"`
	FromSocket Socket `json:"fromSocket"`
	ToSocket   Socket `json:"toSocket"`
}

const edgeArrow = "->"

// EdgeID returns the deterministic identifier of the edge between the given sockets.
// It is unambiguous as long as both node IDs pass ValidNodeID.
func EdgeID(fromID, toID string, fromSocket, toSocket Socket) string {
	return fmt.Sprintf("%s.%s%s%s.%s", fromID, fromSocket, edgeArrow, toID, toSocket)
}

// ValidNodeID reports whether id can name a node: non-empty and free of the "->"
// that separates the two ends of an edge ID.
func ValidNodeID(id string) bool {
	return id != "" && !strings.Contains(id, edgeArrow)
}

// Sockets lists the sockets a node currently exposes.
func (n Node) Sockets() []Socket {
	switch n.Kind {
	case KindTrigger, KindOption:
		return []Socket{SocketOutput}
	case KindCondition:
		if d, ok := n.Data.(ConditionData); ok && d.HasElseBranch {
			return []Socket{SocketInput, SocketOutput, SocketElse}
		}
	}
	return []Socket{SocketInput, SocketOutput}
}

// HasSocket reports whether the node exposes s.
func (n Node) HasSocket(s Socket) bool {
	for _, have := range n.Sockets() {
		if have == s {
			return true
		}
	}
	return false
}

// clone returns a deep copy of the node.
func (n Node) clone() Node {
	c := n
	if n.Data != nil {
		c.Data = n.Data.clone()
	}
	c.Connections = make(map[Socket][]string, len(n.Connections))
	for s, peers := range n.Connections {
		c.Connections[s] = append([]string(nil), peers...)
	}
	return c
}

type nodeJSON struct {
	ID       string          `json:"id"`
	Kind     Kind            `json:"kind"`
	Category Category        `json:"category"`
	Label    string          `json:"label"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data"`
}

// UnmarshalJSON decodes a node, picking the data variant from its kind.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	data, err := zeroData(raw.Kind)
	if err != nil {
		return err
	}
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		if data, err = decodeData(raw.Kind, raw.Data); err != nil {
			return fmt.Errorf("cmdflow: node %s data: %w", raw.ID, err)
		}
	}

	*n = Node{
		ID:          raw.ID,
		Kind:        raw.Kind,
		Category:    raw.Category,
		Label:       raw.Label,
		Position:    raw.Position,
		Data:        data,
		Connections: map[Socket][]string{},
	}
	return nil
}
