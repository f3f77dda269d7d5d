package cmdflow_test

import (
	"math/rand"
	"testing"

	"github.com/meikuraledutech/cmdflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edgesFrom(g *cmdflow.Graph, nodeID string, s cmdflow.Socket) []cmdflow.Edge {
	var out []cmdflow.Edge
	for _, e := range g.Edges() {
		if e.FromNodeID == nodeID && e.FromSocket == s {
			out = append(out, e)
		}
	}
	return out
}

func countKind(g *cmdflow.Graph, k cmdflow.Kind) int {
	var c int
	for _, n := range g.Nodes() {
		if n.Kind == k {
			c++
		}
	}
	return c
}

func TestNew_OnlyTrigger(t *testing.T) {
	g := cmdflow.New()

	nodes := g.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, cmdflow.KindTrigger, nodes[0].Kind)
	assert.Equal(t, cmdflow.CategoryTriggers, nodes[0].Category)
	assert.Empty(t, g.Edges())
	assert.NoError(t, g.CheckInvariants())
}

func TestAddNode_OptionAutoWire(t *testing.T) {
	g := cmdflow.New()
	trigger := g.Trigger()

	opt, err := g.AddNode(cmdflow.KindOption, cmdflow.CategoryOptions, cmdflow.Position{X: 10, Y: 10})
	require.NoError(t, err)

	assert.Len(t, g.Nodes(), 2)
	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, trigger.ID, edges[0].FromNodeID)
	assert.Equal(t, opt.ID, edges[0].ToNodeID)
	assert.Equal(t, cmdflow.SocketOutput, edges[0].FromSocket)

	assert.Equal(t, []string{trigger.ID}, opt.Connections[cmdflow.SocketInput])
	assert.Equal(t, []string{opt.ID}, g.Trigger().Connections[cmdflow.SocketOutput])
	assert.NoError(t, g.CheckInvariants())
}

func TestAddNode_Errors(t *testing.T) {
	g := cmdflow.New()

	_, err := g.AddNode(cmdflow.KindTrigger, cmdflow.CategoryTriggers, cmdflow.Position{})
	assert.ErrorIs(t, err, cmdflow.ErrTriggerExists)

	_, err = g.AddNode("webhook", "", cmdflow.Position{})
	assert.ErrorIs(t, err, cmdflow.ErrUnknownKind)

	_, err = g.AddNode(cmdflow.KindAction, cmdflow.CategoryOptions, cmdflow.Position{})
	assert.ErrorIs(t, err, cmdflow.ErrCategoryMismatch)

	_, err = g.AddNode(cmdflow.KindAction, "", cmdflow.Position{}, cmdflow.WithData(cmdflow.OptionData{}))
	assert.ErrorIs(t, err, cmdflow.ErrInvalidData)

	assert.Len(t, g.Nodes(), 1)
}

func TestAddNode_RejectsBadIDs(t *testing.T) {
	ids := []string{"t", "a->b", "dup", "dup"}
	f := cmdflow.NewFactory(nil, cmdflow.WithIDFunc(func(cmdflow.Kind) string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))
	g := cmdflow.New(cmdflow.WithFactory(f))

	_, err := g.AddNode(cmdflow.KindAction, "", cmdflow.Position{})
	assert.ErrorIs(t, err, cmdflow.ErrInvalidNodeID)

	_, err = g.AddNode(cmdflow.KindAction, "", cmdflow.Position{})
	require.NoError(t, err)
	_, err = g.AddNode(cmdflow.KindAction, "", cmdflow.Position{})
	assert.ErrorIs(t, err, cmdflow.ErrInvalidNodeID)

	assert.Len(t, g.Nodes(), 2)
	assert.NoError(t, g.CheckInvariants())
}

func TestUpdateNodeData_ElseToggleFailureRollsBack(t *testing.T) {
	var n int
	f := cmdflow.NewFactory(nil, cmdflow.WithIDFunc(func(k cmdflow.Kind) string {
		n++
		if n > 2 {
			return "bad->id"
		}
		return string(k) + "-" + string(rune('a'+n))
	}))
	g := cmdflow.New(cmdflow.WithFactory(f))
	cond, err := g.AddBlock("condition.compare", cmdflow.Position{})
	require.NoError(t, err)

	err = g.UpdateNodeData(cond.ID, map[string]any{"hasElseBranch": true, "label": "Check"})
	assert.ErrorIs(t, err, cmdflow.ErrInvalidNodeID)

	got, _ := g.Node(cond.ID)
	assert.False(t, got.Data.(cmdflow.ConditionData).HasElseBranch)
	assert.Equal(t, cond.Label, got.Label)
	assert.Len(t, g.Nodes(), 2)
	assert.NoError(t, g.CheckInvariants())
}

func TestAddNode_DefaultDataIsCopied(t *testing.T) {
	g := cmdflow.New()
	a, err := g.AddNode(cmdflow.KindAction, "", cmdflow.Position{})
	require.NoError(t, err)
	require.NoError(t, g.UpdateNodeData(a.ID, map[string]any{"content": "changed"}))

	b, err := g.AddNode(cmdflow.KindAction, "", cmdflow.Position{})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", b.Data.(cmdflow.ActionData).Content)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestAddNode_ElsePairing(t *testing.T) {
	t.Run("with else branch", func(t *testing.T) {
		g := cmdflow.New()
		cond, err := g.AddNode(cmdflow.KindCondition, cmdflow.CategoryConditions, cmdflow.Position{X: 50, Y: 60},
			cmdflow.WithData(cmdflow.ConditionData{Operator: cmdflow.OpEquals, HasElseBranch: true}))
		require.NoError(t, err)

		elseEdges := edgesFrom(g, cond.ID, cmdflow.SocketElse)
		require.Len(t, elseEdges, 1)
		assert.Equal(t, cmdflow.SocketInput, elseEdges[0].ToSocket)

		companion, ok := g.Node(elseEdges[0].ToNodeID)
		require.True(t, ok)
		assert.Equal(t, cmdflow.KindAction, companion.Kind)
		assert.Equal(t, "Else Branch", companion.Label)
		assert.Equal(t, cmdflow.Position{X: 250, Y: 160}, companion.Position)
		assert.Len(t, g.Nodes(), 3)
		assert.Contains(t, cond.Sockets(), cmdflow.SocketElse)
		assert.NoError(t, g.CheckInvariants())
	})

	t.Run("without else branch", func(t *testing.T) {
		g := cmdflow.New()
		cond, err := g.AddNode(cmdflow.KindCondition, "", cmdflow.Position{})
		require.NoError(t, err)

		assert.Empty(t, edgesFrom(g, cond.ID, cmdflow.SocketElse))
		assert.Len(t, g.Nodes(), 2)
		assert.NotContains(t, cond.Sockets(), cmdflow.SocketElse)
	})

	t.Run("if/else block", func(t *testing.T) {
		g := cmdflow.New()
		cond, err := g.AddBlock("condition.if_else", cmdflow.Position{})
		require.NoError(t, err)
		assert.Len(t, edgesFrom(g, cond.ID, cmdflow.SocketElse), 1)
	})
}

func TestDeleteNode_TriggerIgnored(t *testing.T) {
	g := cmdflow.New()
	assert.False(t, g.DeleteNode(g.Trigger().ID))
	assert.Equal(t, 1, countKind(g, cmdflow.KindTrigger))
	assert.False(t, g.DeleteNode("missing"))
}

func TestDeleteNode_Cascade(t *testing.T) {
	g := cmdflow.New()
	trigger := g.Trigger()
	a, _ := g.AddNode(cmdflow.KindAction, "", cmdflow.Position{})
	b, _ := g.AddNode(cmdflow.KindAction, "", cmdflow.Position{})
	_, added := g.Connect(trigger.ID, a.ID, "", "")
	require.True(t, added)
	_, added = g.Connect(a.ID, b.ID, "", "")
	require.True(t, added)

	require.True(t, g.DeleteNode(a.ID))

	for _, e := range g.Edges() {
		assert.NotEqual(t, a.ID, e.FromNodeID)
		assert.NotEqual(t, a.ID, e.ToNodeID)
	}
	for _, n := range g.Nodes() {
		for _, peers := range n.Connections {
			assert.NotContains(t, peers, a.ID)
		}
	}
	_, ok := g.Node(a.ID)
	assert.False(t, ok)
	assert.NoError(t, g.CheckInvariants())
}

func TestConnect(t *testing.T) {
	g := cmdflow.New()
	trigger := g.Trigger()
	a, _ := g.AddNode(cmdflow.KindAction, "", cmdflow.Position{})

	e, added := g.Connect(trigger.ID, a.ID, cmdflow.SocketOutput, cmdflow.SocketInput)
	require.True(t, added)
	again, added := g.Connect(trigger.ID, a.ID, cmdflow.SocketOutput, cmdflow.SocketInput)
	assert.False(t, added)
	assert.Equal(t, e, again)
	assert.Len(t, g.Edges(), 1)

	_, added = g.Connect(a.ID, a.ID, "", "")
	assert.False(t, added, "self loop")
	_, added = g.Connect(a.ID, "missing", "", "")
	assert.False(t, added)
	assert.Len(t, g.Edges(), 1)
	assert.NoError(t, g.CheckInvariants())
}

func TestDisconnect(t *testing.T) {
	g := cmdflow.New()
	trigger := g.Trigger()
	a, _ := g.AddNode(cmdflow.KindAction, "", cmdflow.Position{})
	opt, _ := g.AddNode(cmdflow.KindOption, "", cmdflow.Position{})
	e, _ := g.Connect(trigger.ID, a.ID, "", "")

	assert.True(t, g.Disconnect(e.ID))
	assert.False(t, g.Disconnect(e.ID))

	autoWire := cmdflow.EdgeID(trigger.ID, opt.ID, cmdflow.SocketOutput, cmdflow.SocketInput)
	assert.False(t, g.Disconnect(autoWire), "option edge stays")
	assert.Len(t, g.Edges(), 1)

	n, _ := g.Node(a.ID)
	assert.Empty(t, n.Connections)
	assert.NoError(t, g.CheckInvariants())
}

func TestMoveNode(t *testing.T) {
	g := cmdflow.New()
	a, _ := g.AddNode(cmdflow.KindAction, "", cmdflow.Position{})
	e, _ := g.Connect(g.Trigger().ID, a.ID, "", "")

	assert.True(t, g.MoveNode(a.ID, cmdflow.Position{X: 5, Y: -3}))
	n, _ := g.Node(a.ID)
	assert.Equal(t, cmdflow.Position{X: 5, Y: -3}, n.Position)
	_, ok := g.Edge(e.ID)
	assert.True(t, ok)
	assert.False(t, g.MoveNode("missing", cmdflow.Position{}))
}

func TestUpdateNodeData(t *testing.T) {
	g := cmdflow.New()
	trigger := g.Trigger()

	require.NoError(t, g.UpdateNodeData(trigger.ID, map[string]any{
		"name":            "ban",
		"cooldownSeconds": "30",
	}))
	n := g.Trigger()
	d := n.Data.(cmdflow.TriggerData)
	assert.Equal(t, "ban", d.Name)
	assert.Equal(t, 30, d.CooldownSeconds)
	assert.Equal(t, "A new command", d.Description, "untouched fields survive")
	assert.Equal(t, "ban", n.Label)

	err := g.UpdateNodeData(trigger.ID, map[string]any{"cooldownSeconds": "soon"})
	assert.ErrorIs(t, err, cmdflow.ErrInvalidData)
	assert.Equal(t, 30, g.Trigger().Data.(cmdflow.TriggerData).CooldownSeconds)

	a, _ := g.AddNode(cmdflow.KindAction, "", cmdflow.Position{})
	require.NoError(t, g.UpdateNodeData(a.ID, map[string]any{"label": "Greet", "ephemeral": true}))
	n, _ = g.Node(a.ID)
	assert.Equal(t, "Greet", n.Label)
	assert.True(t, n.Data.(cmdflow.ActionData).Ephemeral)

	opt, _ := g.AddNode(cmdflow.KindOption, "", cmdflow.Position{})
	require.NoError(t, g.UpdateNodeData(opt.ID, map[string]any{"minValue": 1, "maxValue": 10.5}))
	n, _ = g.Node(opt.ID)
	od := n.Data.(cmdflow.OptionData)
	require.NotNil(t, od.MinValue)
	assert.Equal(t, 1.0, *od.MinValue)
	assert.Equal(t, 10.5, *od.MaxValue)

	assert.NoError(t, g.UpdateNodeData("missing", map[string]any{"name": "x"}))
}

func TestUpdateNodeData_ElseToggle(t *testing.T) {
	g := cmdflow.New()
	cond, _ := g.AddNode(cmdflow.KindCondition, "", cmdflow.Position{})

	require.NoError(t, g.UpdateNodeData(cond.ID, map[string]any{"hasElseBranch": true}))
	elseEdges := edgesFrom(g, cond.ID, cmdflow.SocketElse)
	require.Len(t, elseEdges, 1)
	companionID := elseEdges[0].ToNodeID
	assert.NoError(t, g.CheckInvariants())

	require.NoError(t, g.UpdateNodeData(cond.ID, map[string]any{"hasElseBranch": false}))
	assert.Empty(t, edgesFrom(g, cond.ID, cmdflow.SocketElse))
	_, ok := g.Node(companionID)
	assert.False(t, ok, "unused companion removed")
	assert.NoError(t, g.CheckInvariants())
}

func TestUpdateNodeData_ElseToggleKeepsUsedCompanion(t *testing.T) {
	g := cmdflow.New()
	cond, _ := g.AddBlock("condition.if_else", cmdflow.Position{})
	companionID := edgesFrom(g, cond.ID, cmdflow.SocketElse)[0].ToNodeID
	next, _ := g.AddNode(cmdflow.KindAction, "", cmdflow.Position{})
	_, added := g.Connect(companionID, next.ID, "", "")
	require.True(t, added)

	require.NoError(t, g.UpdateNodeData(cond.ID, map[string]any{"hasElseBranch": false}))
	_, ok := g.Node(companionID)
	assert.True(t, ok)
	assert.NoError(t, g.CheckInvariants())
}

func TestElseEdgeClearsFlagWhenRemoved(t *testing.T) {
	g := cmdflow.New()
	cond, _ := g.AddBlock("condition.if_else", cmdflow.Position{})
	e := edgesFrom(g, cond.ID, cmdflow.SocketElse)[0]

	require.True(t, g.DeleteNode(e.ToNodeID))
	n, _ := g.Node(cond.ID)
	assert.False(t, n.Data.(cmdflow.ConditionData).HasElseBranch)
	assert.NoError(t, g.CheckInvariants())

	// Rewiring the else socket turns the branch back on.
	target, _ := g.AddNode(cmdflow.KindAction, "", cmdflow.Position{})
	_, added := g.Connect(cond.ID, target.ID, cmdflow.SocketElse, cmdflow.SocketInput)
	require.True(t, added)
	n, _ = g.Node(cond.ID)
	assert.True(t, n.Data.(cmdflow.ConditionData).HasElseBranch)
	assert.NoError(t, g.CheckInvariants())
}

func TestDeleteCondition_RemovesElseEdge(t *testing.T) {
	g := cmdflow.New()
	cond, _ := g.AddBlock("condition.if_else", cmdflow.Position{})
	require.True(t, g.DeleteNode(cond.ID))

	for _, e := range g.Edges() {
		assert.NotEqual(t, cmdflow.SocketElse, e.FromSocket)
	}
	assert.NoError(t, g.CheckInvariants())
}

// TestRandomOperations drives the graph with random mutations and checks the
// structural invariants after every step.
func TestRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	kinds := []cmdflow.Kind{cmdflow.KindOption, cmdflow.KindAction, cmdflow.KindCondition}
	sockets := []cmdflow.Socket{cmdflow.SocketInput, cmdflow.SocketOutput, cmdflow.SocketElse}

	g := cmdflow.New()
	pick := func() string {
		nodes := g.Nodes()
		return nodes[rng.Intn(len(nodes))].ID
	}

	for step := 0; step < 2000; step++ {
		switch rng.Intn(7) {
		case 0, 1:
			k := kinds[rng.Intn(len(kinds))]
			var opts []cmdflow.NodeOption
			if k == cmdflow.KindCondition && rng.Intn(2) == 0 {
				opts = append(opts, cmdflow.WithData(cmdflow.ConditionData{HasElseBranch: true}))
			}
			_, err := g.AddNode(k, "", cmdflow.Position{X: rng.Float64(), Y: rng.Float64()}, opts...)
			require.NoError(t, err)
		case 2:
			g.DeleteNode(pick())
		case 3:
			g.Connect(pick(), pick(), sockets[rng.Intn(3)], sockets[rng.Intn(3)])
		case 4:
			if edges := g.Edges(); len(edges) > 0 {
				g.Disconnect(edges[rng.Intn(len(edges))].ID)
			}
		case 5:
			require.NoError(t, g.UpdateNodeData(pick(), map[string]any{"hasElseBranch": rng.Intn(2) == 0}))
		case 6:
			g.MoveNode(pick(), cmdflow.Position{X: rng.Float64()})
		}
		require.NoError(t, g.CheckInvariants(), "step %d", step)
		require.Equal(t, 1, countKind(g, cmdflow.KindTrigger))

		trigger := g.Trigger()
		for _, n := range g.Nodes() {
			if n.Kind != cmdflow.KindOption {
				continue
			}
			var fromTrigger int
			for _, e := range g.Edges() {
				if e.ToNodeID == n.ID && e.FromNodeID == trigger.ID {
					fromTrigger++
				}
			}
			require.Equal(t, 1, fromTrigger)
		}
	}
}
