package cmdflow

import (
	"encoding/json"
	"fmt"
)

// Payload is the stored form of a command graph.
// Name and Description mirror the trigger so list views need not parse the graph.
type Payload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ServerID    string `json:"serverId"`
	Nodes       []Node `json:"nodes"`
	Edges       []Edge `json:"edges"`
}

// Serialize snapshots g for storage under serverID.
func Serialize(g *Graph, serverID string) *Payload {
	td, _ := g.trigger().Data.(TriggerData)
	return &Payload{
		Name:        CommandName(td),
		Description: td.Description,
		ServerID:    serverID,
		Nodes:       g.Nodes(),
		Edges:       g.Edges(),
	}
}

// DecodePayload parses a stored payload. Nodes that fail to decode are skipped rather
// than failing the whole document; only a body that is not a JSON object is an error.
func DecodePayload(b []byte) (*Payload, error) {
	var raw struct {
		Name        string            `json:"name"`
		Description string            `json:"description"`
		ServerID    string            `json:"serverId"`
		Nodes       []json.RawMessage `json:"nodes"`
		Edges       []json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("cmdflow: decode payload: %w", err)
	}

	p := &Payload{Name: raw.Name, Description: raw.Description, ServerID: raw.ServerID}
	for _, rn := range raw.Nodes {
		var n Node
		if err := json.Unmarshal(rn, &n); err != nil {
			continue
		}
		p.Nodes = append(p.Nodes, n)
	}
	for _, re := range raw.Edges {
		var e Edge
		if err := json.Unmarshal(re, &e); err != nil {
			continue
		}
		p.Edges = append(p.Edges, e)
	}
	return p, nil
}

// Deserialize rebuilds a graph from a payload. It never fails: a payload without
// exactly one trigger yields a fresh graph, and whatever else is inconsistent is
// repaired. Duplicate or malformed node IDs are dropped, edges that dangle or break
// the connection rules are dropped, options regain their trigger edge, and a
// condition's else flag follows its else edge.
func Deserialize(p *Payload, opts ...GraphOption) *Graph {
	if p == nil || p.TriggerCount() != 1 {
		return New(opts...)
	}

	g := empty(opts...)
	// The trigger goes in first so no other node can claim its ID.
	for _, n := range p.Nodes {
		if n.Kind == KindTrigger {
			g.load(n)
		}
	}
	if g.trigger() == nil {
		return New(opts...)
	}
	for _, n := range p.Nodes {
		if n.Kind != KindTrigger {
			g.load(n)
		}
	}

	for _, e := range p.Edges {
		from, to := g.byID[e.FromNodeID], g.byID[e.ToNodeID]
		if from == nil || to == nil {
			continue
		}
		e.ID = EdgeID(e.FromNodeID, e.ToNodeID, e.FromSocket, e.ToSocket)
		if g.edgeIndex(e.ID) >= 0 {
			continue
		}
		if err := CheckConnection(*from, *to, e.FromSocket, e.ToSocket, g.edges); err != nil {
			continue
		}
		g.link(e)
	}

	t := g.trigger()
	for _, n := range g.nodes {
		if n.Kind == KindOption && len(n.Connections[SocketInput]) == 0 {
			g.link(Edge{
				ID:         EdgeID(t.ID, n.ID, SocketOutput, SocketInput),
				FromNodeID: t.ID,
				ToNodeID:   n.ID,
				FromSocket: SocketOutput,
				ToSocket:   SocketInput,
			})
		}
	}
	return g
}

// load inserts a stored node with its category and connections reset.
// Nodes with an unknown kind, no data, or an ID that is invalid or taken are skipped.
func (g *Graph) load(n Node) {
	cat, ok := CategoryOf(n.Kind)
	if !ok || !ValidNodeID(n.ID) || n.Data == nil || g.byID[n.ID] != nil {
		return
	}
	n.Category = cat
	n.Connections = map[Socket][]string{}
	if d, isCond := n.Data.(ConditionData); isCond {
		d.HasElseBranch = false
		n.Data = d
	}
	g.insert(n)
}

// TriggerCount returns how many usable trigger nodes the payload holds.
// Anything but one means the payload cannot be loaded as it is.
func (p *Payload) TriggerCount() int {
	return countTriggers(p.Nodes)
}

func countTriggers(nodes []Node) int {
	var c int
	for _, n := range nodes {
		if n.Kind == KindTrigger && ValidNodeID(n.ID) && n.Data != nil {
			c++
		}
	}
	return c
}
