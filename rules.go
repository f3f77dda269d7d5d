package cmdflow

import "errors"

var (
	ErrSelfLoop          = errors.New("cmdflow: node cannot connect to itself")
	ErrSocketDirection   = errors.New("cmdflow: edges run from an output or else socket to an input socket")
	ErrSocketUnavailable = errors.New("cmdflow: node does not expose that socket")
	ErrOptionEdge        = errors.New("cmdflow: options connect only to the trigger")
	ErrElseTaken         = errors.New("cmdflow: else socket already connected")
)

// CheckConnection decides whether an edge from -> to is legal given the existing edges.
// It does not check for duplicates: equal endpoints produce equal edge IDs.
//
// Any condition may originate one else edge; attaching it turns the else branch on.
//
// Options hang off the trigger: the only edge an option may take part in is
// trigger.output -> option.input, and the option never originates an edge.
func CheckConnection(from, to Node, fromSocket, toSocket Socket, edges []Edge) error {
	if from.ID == to.ID {
		return ErrSelfLoop
	}
	if fromSocket == SocketInput || toSocket != SocketInput {
		return ErrSocketDirection
	}
	if from.Kind == KindOption {
		return ErrOptionEdge
	}
	if to.Kind == KindOption {
		if from.Kind != KindTrigger || fromSocket != SocketOutput {
			return ErrOptionEdge
		}
		return nil
	}
	if fromSocket == SocketElse {
		if from.Kind != KindCondition {
			return ErrSocketUnavailable
		}
		for _, e := range edges {
			if e.FromNodeID == from.ID && e.FromSocket == SocketElse {
				return ErrElseTaken
			}
		}
	} else if !from.HasSocket(fromSocket) {
		return ErrSocketUnavailable
	}
	if !to.HasSocket(toSocket) {
		return ErrSocketUnavailable
	}
	return nil
}

// elseOffset places an else companion relative to its condition node.
var elseOffset = Position{X: 200, Y: 100}

const elseLabel = "Else Branch"

// elseCompanion builds the placeholder action that runs when cond does not match.
func elseCompanion(f *Factory, cond Node) (Node, Edge, error) {
	n, err := f.CreateNode(KindAction, CategoryActions, Position{
		X: cond.Position.X + elseOffset.X,
		Y: cond.Position.Y + elseOffset.Y,
	})
	if err != nil {
		return Node{}, Edge{}, err
	}
	n.Label = elseLabel
	if d, ok := n.Data.(ActionData); ok {
		d.Content = "The condition did not match."
		n.Data = d
	}
	return n, Edge{
		ID:         EdgeID(cond.ID, n.ID, SocketElse, SocketInput),
		FromNodeID: cond.ID,
		ToNodeID:   n.ID,
		FromSocket: SocketElse,
		ToSocket:   SocketInput,
	}, nil
}
