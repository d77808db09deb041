package monitor

import (
	"fmt"
	"strings"

	"github.com/fleetvis-io/fleetvis/pkg/vda5050"
)

// NodeView is one rendered node of the network graph.
type NodeView struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	ZIndex int    `json:"zIndex"`
}

// EdgeView is one rendered edge of the network graph.
type EdgeView struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
	Color  string `json:"color"`
}

// Position is a layout coordinate. Y is already flipped into render space.
type Position struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Fixed bool    `json:"fixed,omitempty"`
}

// Graph is the derived view model consumed by the network-graph renderer.
// It is a pure projection of the active order, the vehicle position and the
// color scheme; it is never patched incrementally.
type Graph struct {
	Nodes  map[string]NodeView `json:"nodes"`
	Edges  map[string]EdgeView `json:"edges"`
	Layout map[string]Position `json:"layout"`
}

func newGraph() Graph {
	return Graph{
		Nodes:  map[string]NodeView{},
		Edges:  map[string]EdgeView{},
		Layout: map[string]Position{},
	}
}

// robotNodeKey names the synthetic marker node for a vehicle.
func robotNodeKey(serialNumber string) string {
	return "robot_" + serialNumber
}

// renderPosition flips the protocol y axis into render space.
func renderPosition(x, y float64) Position {
	return Position{X: x, Y: -y}
}

// actionSuffix renders the action-type annotation appended to node and edge
// labels, e.g. " -> pick, drop". Empty when there are no actions.
func actionSuffix(actions []vda5050.Action) string {
	if len(actions) == 0 {
		return ""
	}
	types := make([]string, 0, len(actions))
	for _, a := range actions {
		types = append(types, a.ActionType)
	}
	return " -> " + strings.Join(types, ", ")
}

// buildGraph rebuilds the full view model from an order. The rebuild is
// total: whatever graph existed before is discarded. robotPos seeds the
// vehicle marker's layout entry when the position is already known.
func buildGraph(order *vda5050.Order, serialNumber string, scheme ColorScheme, robotPos *Position) Graph {
	g := newGraph()

	if order != nil {
		for _, node := range order.Nodes {
			color := scheme.NodeStandard
			if len(node.Actions) > 0 {
				color = scheme.NodeAction
			}

			g.Nodes[node.NodeId] = NodeView{
				Name:   fmt.Sprintf("%s - %d%s", serialNumber, node.SequenceId, actionSuffix(node.Actions)),
				Color:  color,
				ZIndex: 1,
			}

			if node.NodePosition != nil {
				pos := renderPosition(node.NodePosition.X, node.NodePosition.Y)
				pos.Fixed = true
				g.Layout[node.NodeId] = pos
			}
		}
	}

	// The vehicle marker always renders above path nodes.
	g.Nodes[robotNodeKey(serialNumber)] = NodeView{
		Name:   serialNumber,
		Color:  robotNodeColor,
		ZIndex: 100,
	}
	if robotPos != nil {
		g.Layout[robotNodeKey(serialNumber)] = *robotPos
	}

	if order != nil {
		for _, edge := range order.Edges {
			color := edgeNeutralTint
			if len(edge.Actions) > 0 {
				color = edgeActionTint
			}

			// Source/target are reversed relative to startNodeId/endNodeId;
			// the render direction convention depends on exactly this.
			g.Edges[edge.EdgeId] = EdgeView{
				Source: edge.EndNodeId,
				Target: edge.StartNodeId,
				Label:  fmt.Sprintf("%s - %d%s", serialNumber, edge.SequenceId, actionSuffix(edge.Actions)),
				Color:  color,
			}
		}
	}

	return g
}

// clone returns a deep copy safe to hand to other goroutines.
func (g Graph) clone() Graph {
	out := Graph{
		Nodes:  make(map[string]NodeView, len(g.Nodes)),
		Edges:  make(map[string]EdgeView, len(g.Edges)),
		Layout: make(map[string]Position, len(g.Layout)),
	}
	for k, v := range g.Nodes {
		out.Nodes[k] = v
	}
	for k, v := range g.Edges {
		out.Edges[k] = v
	}
	for k, v := range g.Layout {
		out.Layout[k] = v
	}
	return out
}
