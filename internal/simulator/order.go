package simulator

import (
	"math/rand"
	"strconv"

	"github.com/google/uuid"

	"github.com/fleetvis-io/fleetvis/pkg/vda5050"
)

// actionTypes are the task kinds randomly attached to order nodes.
var actionTypes = []string{"pick", "drop", "wait", "charge"}

// RandomOrder builds an order along a fresh Manhattan route. Node ids are
// "1".."n"; nodes take the even sequence ids and the edge between node i and
// i+1 the odd one in between, per the VDA5050 sequence convention. Roughly a
// third of the nodes carry a random action.
func RandomOrder(rng *rand.Rand, route []Point, mapId string) *vda5050.Order {
	order := &vda5050.Order{
		OrderId:       uuid.NewString(),
		OrderUpdateId: 0,
		Nodes:         make([]vda5050.Node, 0, len(route)),
		Edges:         make([]vda5050.Edge, 0, len(route)-1),
	}

	for i, p := range route {
		node := vda5050.Node{
			NodeId:     strconv.Itoa(i + 1),
			SequenceId: uint32(2 * i),
			Released:   true,
			NodePosition: &vda5050.NodePosition{
				X:     p.X,
				Y:     p.Y,
				MapId: mapId,
			},
		}
		if rng.Intn(3) == 0 {
			node.Actions = []vda5050.Action{{
				ActionType:   actionTypes[rng.Intn(len(actionTypes))],
				ActionId:     uuid.NewString(),
				BlockingType: "HARD",
			}}
		}
		order.Nodes = append(order.Nodes, node)
	}

	for i := 0; i < len(route)-1; i++ {
		order.Edges = append(order.Edges, vda5050.Edge{
			EdgeId:      strconv.Itoa(i + 1),
			SequenceId:  uint32(2*i + 1),
			Released:    true,
			StartNodeId: order.Nodes[i].NodeId,
			EndNodeId:   order.Nodes[i+1].NodeId,
		})
	}

	return order
}
