package editor

import "github.com/meikuraledutech/cmdflow"

// Selection is the editor's UI state: which nodes are selected. It lives beside the
// graph, never inside it.
type Selection struct {
	ids   []string
	index map[string]bool
}

// Select replaces the selection.
func (s *Selection) Select(ids ...string) {
	s.Clear()
	for _, id := range ids {
		s.Add(id)
	}
}

// Add extends the selection.
func (s *Selection) Add(id string) {
	if s.index == nil {
		s.index = map[string]bool{}
	}
	if !s.index[id] {
		s.index[id] = true
		s.ids = append(s.ids, id)
	}
}

// Toggle flips whether id is selected.
func (s *Selection) Toggle(id string) {
	if !s.index[id] {
		s.Add(id)
		return
	}
	delete(s.index, id)
	for i, have := range s.ids {
		if have == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = nil
	s.index = nil
}

// IDs returns the selected node ids in selection order.
func (s *Selection) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool { return s.index[id] }

// DeleteFrom deletes the selected nodes from g and clears the selection.
// It returns how many nodes were removed; the trigger is never among them.
func (s *Selection) DeleteFrom(g *cmdflow.Graph) int {
	var n int
	for _, id := range s.ids {
		if g.DeleteNode(id) {
			n++
		}
	}
	s.Clear()
	return n
}

// MoveBy shifts every selected node by (dx, dy).
func (s *Selection) MoveBy(g *cmdflow.Graph, dx, dy float64) {
	for _, id := range s.ids {
		if n, ok := g.Node(id); ok {
			g.MoveNode(id, cmdflow.Position{X: n.Position.X + dx, Y: n.Position.Y + dy})
		}
	}
}
