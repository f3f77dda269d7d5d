package cmdflow

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Graph is the in-memory command flow being edited: one trigger, any number of
// options, actions and conditions, and the edges between their sockets.
//
// All mutations run to completion synchronously. A Graph is owned by a single editing
// session and is not safe for concurrent use.
type Graph struct {
	factory *Factory
	nodes   []*Node
	byID    map[string]*Node
	edges   []Edge
}

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithFactory sets the node factory used for new nodes.
func WithFactory(f *Factory) GraphOption {
	return func(g *Graph) {
		g.factory = f
	}
}

var triggerPosition = Position{X: 100, Y: 100}

// New creates a graph holding only a freshly created trigger node.
func New(opts ...GraphOption) *Graph {
	g := empty(opts...)
	t, err := g.factory.CreateNode(KindTrigger, CategoryTriggers, triggerPosition)
	if err != nil {
		panic(fmt.Sprintf("cmdflow: catalog cannot build a trigger: %v", err))
	}
	g.insert(t)
	return g
}

func empty(opts ...GraphOption) *Graph {
	g := &Graph{byID: make(map[string]*Node)}
	for _, opt := range opts {
		opt(g)
	}
	if g.factory == nil {
		g.factory = NewFactory(nil)
	}
	return g
}

// Factory returns the factory the graph creates nodes with.
func (g *Graph) Factory() *Factory { return g.factory }

// Trigger returns the root node.
func (g *Graph) Trigger() Node {
	return g.trigger().clone()
}

func (g *Graph) trigger() *Node {
	for _, n := range g.nodes {
		if n.Kind == KindTrigger {
			return n
		}
	}
	return nil
}

// Node returns a copy of the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// Nodes returns copies of all nodes in creation order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.clone())
	}
	return out
}

// Edges returns all edges in creation order.
func (g *Graph) Edges() []Edge {
	return append([]Edge{}, g.edges...)
}

// Edge returns the edge with the given ID.
func (g *Graph) Edge(id string) (Edge, bool) {
	if i := g.edgeIndex(id); i >= 0 {
		return g.edges[i], true
	}
	return Edge{}, false
}

// NodeOption customizes a node before it is added.
type NodeOption func(*Node) error

// WithData replaces the template data. It must match the node's kind.
func WithData(d NodeData) NodeOption {
	return func(n *Node) error {
		if d == nil || d.Kind() != n.Kind {
			return fmt.Errorf("%w: want %s data", ErrInvalidData, n.Kind)
		}
		n.Data = d.clone()
		return nil
	}
}

// WithLabel replaces the template label.
func WithLabel(label string) NodeOption {
	return func(n *Node) error {
		n.Label = label
		return nil
	}
}

// AddNode creates a node of the given kind at pos and adds it to the graph.
//
// Options are wired to the trigger. A condition whose data has HasElseBranch set is
// added together with its else companion and the else edge.
func (g *Graph) AddNode(kind Kind, category Category, pos Position, opts ...NodeOption) (Node, error) {
	if kind == KindTrigger {
		return Node{}, ErrTriggerExists
	}
	n, err := g.factory.CreateNode(kind, category, pos)
	if err != nil {
		return Node{}, err
	}
	for _, opt := range opts {
		if err := opt(&n); err != nil {
			return Node{}, err
		}
	}
	return g.add(n)
}

// AddBlock adds a node built from the catalog template with the given block ID.
func (g *Graph) AddBlock(blockID string, pos Position) (Node, error) {
	t, err := g.factory.Catalog().Lookup(blockID)
	if err != nil {
		return Node{}, err
	}
	if t.Kind == KindTrigger {
		return Node{}, ErrTriggerExists
	}
	return g.add(g.factory.FromTemplate(t, pos))
}

func (g *Graph) add(n Node) (Node, error) {
	if err := g.checkID(n.ID); err != nil {
		return Node{}, err
	}
	switch n.Kind {
	case KindOption:
		g.insert(n)
		t := g.trigger()
		g.link(Edge{
			ID:         EdgeID(t.ID, n.ID, SocketOutput, SocketInput),
			FromNodeID: t.ID,
			ToNodeID:   n.ID,
			FromSocket: SocketOutput,
			ToSocket:   SocketInput,
		})
	case KindCondition:
		if d, _ := n.Data.(ConditionData); d.HasElseBranch {
			companion, e, err := elseCompanion(g.factory, n)
			if err != nil {
				return Node{}, err
			}
			if companion.ID == n.ID {
				return Node{}, fmt.Errorf("%w: %q", ErrInvalidNodeID, companion.ID)
			}
			if err := g.checkID(companion.ID); err != nil {
				return Node{}, err
			}
			g.insert(n)
			g.insert(companion)
			g.link(e)
			break
		}
		g.insert(n)
	default:
		g.insert(n)
	}
	return g.byID[n.ID].clone(), nil
}

// checkID rejects IDs that cannot be told apart inside an edge ID or are already used.
func (g *Graph) checkID(id string) error {
	if !ValidNodeID(id) || g.byID[id] != nil {
		return fmt.Errorf("%w: %q", ErrInvalidNodeID, id)
	}
	return nil
}

func (g *Graph) insert(n Node) {
	p := n.clone()
	g.nodes = append(g.nodes, &p)
	g.byID[p.ID] = &p
}

// MoveNode sets the position of a node. Unknown IDs are ignored.
func (g *Graph) MoveNode(id string, pos Position) bool {
	n, ok := g.byID[id]
	if !ok {
		return false
	}
	n.Position = pos
	return true
}

// SetLabel renames a node. Unknown IDs are ignored.
func (g *Graph) SetLabel(id, label string) bool {
	n, ok := g.byID[id]
	if !ok {
		return false
	}
	n.Label = label
	return true
}

// DeleteNode removes a node and every edge touching it.
// The trigger cannot be deleted; attempts are ignored.
func (g *Graph) DeleteNode(id string) bool {
	n, ok := g.byID[id]
	if !ok || n.Kind == KindTrigger {
		return false
	}
	g.remove(id)
	return true
}

func (g *Graph) remove(id string) {
	for i := len(g.edges) - 1; i >= 0; i-- {
		if g.edges[i].FromNodeID == id || g.edges[i].ToNodeID == id {
			g.unlink(i)
		}
	}
	for i, n := range g.nodes {
		if n.ID == id {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	delete(g.byID, id)
}

// Connect adds an edge between two node sockets. Empty sockets default to
// output -> input. It returns the edge and whether it was added: re-creating an
// existing edge, unknown nodes and edges rejected by CheckConnection are no-ops.
func (g *Graph) Connect(fromID, toID string, fromSocket, toSocket Socket) (Edge, bool) {
	if fromSocket == "" {
		fromSocket = SocketOutput
	}
	if toSocket == "" {
		toSocket = SocketInput
	}
	id := EdgeID(fromID, toID, fromSocket, toSocket)
	if i := g.edgeIndex(id); i >= 0 {
		return g.edges[i], false
	}
	from, ok := g.byID[fromID]
	if !ok {
		return Edge{}, false
	}
	to, ok := g.byID[toID]
	if !ok {
		return Edge{}, false
	}
	if err := CheckConnection(*from, *to, fromSocket, toSocket, g.edges); err != nil {
		return Edge{}, false
	}
	e := Edge{ID: id, FromNodeID: fromID, ToNodeID: toID, FromSocket: fromSocket, ToSocket: toSocket}
	g.link(e)
	return e, true
}

// Disconnect removes an edge. Unknown IDs are ignored, and so is the edge wiring an
// option to the trigger: it lives exactly as long as the option.
func (g *Graph) Disconnect(edgeID string) bool {
	i := g.edgeIndex(edgeID)
	if i < 0 {
		return false
	}
	if to := g.byID[g.edges[i].ToNodeID]; to != nil && to.Kind == KindOption {
		return false
	}
	g.unlink(i)
	return true
}

func (g *Graph) edgeIndex(id string) int {
	for i, e := range g.edges {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (g *Graph) link(e Edge) {
	g.edges = append(g.edges, e)
	from, to := g.byID[e.FromNodeID], g.byID[e.ToNodeID]
	from.Connections[e.FromSocket] = append(from.Connections[e.FromSocket], to.ID)
	to.Connections[e.ToSocket] = append(to.Connections[e.ToSocket], from.ID)
	if d, isCond := from.Data.(ConditionData); isCond && e.FromSocket == SocketElse {
		d.HasElseBranch = true
		from.Data = d
	}
}

// unlink drops edge i and its mirror entries. Losing the else edge clears the
// condition's HasElseBranch flag; link sets it. The flag and the edge always agree.
func (g *Graph) unlink(i int) {
	e := g.edges[i]
	g.edges = append(g.edges[:i], g.edges[i+1:]...)
	if from, ok := g.byID[e.FromNodeID]; ok {
		dropPeer(from, e.FromSocket, e.ToNodeID)
		if d, isCond := from.Data.(ConditionData); isCond && e.FromSocket == SocketElse {
			d.HasElseBranch = false
			from.Data = d
		}
	}
	if to, ok := g.byID[e.ToNodeID]; ok {
		dropPeer(to, e.ToSocket, e.FromNodeID)
	}
}

func dropPeer(n *Node, s Socket, peer string) {
	peers := n.Connections[s]
	for i, p := range peers {
		if p == peer {
			peers = append(peers[:i], peers[i+1:]...)
			break
		}
	}
	if len(peers) == 0 {
		delete(n.Connections, s)
		return
	}
	n.Connections[s] = peers
}

// UpdateNodeData shallow-merges partial into a node's data. Keys use the JSON field
// names of the node's data type. A "name" change on a trigger or option also renames
// the node, and a "label" key sets the label directly.
//
// Toggling a condition's hasElseBranch creates or removes its else companion.
// Unknown IDs are ignored. Values that do not fit the data type return ErrInvalidData
// and leave the node untouched.
func (g *Graph) UpdateNodeData(id string, partial map[string]any) error {
	n, ok := g.byID[id]
	if !ok {
		return nil
	}
	merged, err := mergeData(n.Data, partial)
	if err != nil {
		return err
	}

	prev, prevLabel := n.Data, n.Label
	prevElse := hasElse(prev)
	n.Data = merged
	if label, ok := partial["label"].(string); ok {
		n.Label = label
	}
	if _, ok := partial["name"]; ok {
		switch d := merged.(type) {
		case TriggerData:
			n.Label = d.Name
		case OptionData:
			n.Label = d.Name
		}
	}

	switch nowElse := hasElse(n.Data); {
	case nowElse && !prevElse:
		if err := g.attachElse(n); err != nil {
			n.Data, n.Label = prev, prevLabel
			return err
		}
	case !nowElse && prevElse:
		g.detachElse(n)
	}
	return nil
}

func hasElse(d NodeData) bool {
	c, ok := d.(ConditionData)
	return ok && c.HasElseBranch
}

func (g *Graph) attachElse(cond *Node) error {
	companion, e, err := elseCompanion(g.factory, *cond)
	if err != nil {
		return err
	}
	if err := g.checkID(companion.ID); err != nil {
		return err
	}
	g.insert(companion)
	g.link(e)
	return nil
}

// detachElse removes the else edge of cond, and the companion when nothing else uses it.
func (g *Graph) detachElse(cond *Node) {
	for i := len(g.edges) - 1; i >= 0; i-- {
		e := g.edges[i]
		if e.FromNodeID != cond.ID || e.FromSocket != SocketElse {
			continue
		}
		g.unlink(i)
		if peer, ok := g.byID[e.ToNodeID]; ok && len(peer.Connections) == 0 {
			g.remove(peer.ID)
		}
	}
}

func mergeData(cur NodeData, partial map[string]any) (NodeData, error) {
	var err error
	switch d := cur.clone().(type) {
	case TriggerData:
		err = decodeInto(partial, &d)
		return d, err
	case OptionData:
		err = decodeInto(partial, &d)
		return d, err
	case ActionData:
		err = decodeInto(partial, &d)
		return d, err
	case ConditionData:
		err = decodeInto(partial, &d)
		return d, err
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidData, cur)
}

func decodeInto(partial map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(partial); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}

// CheckInvariants reports the first structural inconsistency in the graph, or nil.
func (g *Graph) CheckInvariants() error {
	var triggers int
	for _, n := range g.nodes {
		if n.Kind == KindTrigger {
			triggers++
		}
		if g.byID[n.ID] != n {
			return fmt.Errorf("cmdflow: node %s missing from index", n.ID)
		}
	}
	if triggers != 1 {
		return fmt.Errorf("cmdflow: %d trigger nodes", triggers)
	}
	if len(g.byID) != len(g.nodes) {
		return errors.New("cmdflow: node index out of sync")
	}

	want := make(map[string]map[Socket][]string, len(g.nodes))
	for _, n := range g.nodes {
		want[n.ID] = map[Socket][]string{}
	}
	seen := make(map[string]bool, len(g.edges))
	for _, e := range g.edges {
		if seen[e.ID] {
			return fmt.Errorf("cmdflow: duplicate edge %s", e.ID)
		}
		seen[e.ID] = true
		if e.ID != EdgeID(e.FromNodeID, e.ToNodeID, e.FromSocket, e.ToSocket) {
			return fmt.Errorf("cmdflow: edge %s has a foreign id", e.ID)
		}
		if want[e.FromNodeID] == nil || want[e.ToNodeID] == nil {
			return fmt.Errorf("cmdflow: edge %s references a missing node", e.ID)
		}
		want[e.FromNodeID][e.FromSocket] = append(want[e.FromNodeID][e.FromSocket], e.ToNodeID)
		want[e.ToNodeID][e.ToSocket] = append(want[e.ToNodeID][e.ToSocket], e.FromNodeID)
	}

	t := g.trigger()
	for _, n := range g.nodes {
		if !samePeers(want[n.ID], n.Connections) {
			return fmt.Errorf("cmdflow: connections of %s disagree with edges", n.ID)
		}
		switch n.Kind {
		case KindOption:
			if peers := n.Connections[SocketInput]; len(peers) != 1 || peers[0] != t.ID {
				return fmt.Errorf("cmdflow: option %s is not wired to the trigger", n.ID)
			}
		case KindCondition:
			if hasElse(n.Data) != (len(n.Connections[SocketElse]) == 1) {
				return fmt.Errorf("cmdflow: condition %s else flag disagrees with its edges", n.ID)
			}
		}
	}
	return nil
}

func samePeers(a, b map[Socket][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for s, pa := range a {
		pb := b[s]
		if len(pa) != len(pb) {
			return false
		}
		count := make(map[string]int, len(pa))
		for _, p := range pa {
			count[p]++
		}
		for _, p := range pb {
			count[p]--
			if count[p] < 0 {
				return false
			}
		}
	}
	return true
}
