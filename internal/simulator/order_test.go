package simulator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomOrderShape(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	route := ManhattanRoute(rng, Cell{Col: 0, Row: 0}, Cell{Col: 3, Row: 2}, 1.0)

	order := RandomOrder(rng, route, "factory")

	assert.NotEmpty(t, order.OrderId)
	require.Len(t, order.Nodes, len(route))
	require.Len(t, order.Edges, len(route)-1)

	for i, node := range order.Nodes {
		assert.EqualValues(t, 2*i, node.SequenceId, "nodes take the even sequence ids")
		require.NotNil(t, node.NodePosition)
		assert.Equal(t, route[i].X, node.NodePosition.X)
		assert.Equal(t, route[i].Y, node.NodePosition.Y)
		assert.Equal(t, "factory", node.NodePosition.MapId)
		assert.True(t, node.Released)
	}

	for i, edge := range order.Edges {
		assert.EqualValues(t, 2*i+1, edge.SequenceId, "edges take the odd sequence ids")
		assert.Equal(t, order.Nodes[i].NodeId, edge.StartNodeId)
		assert.Equal(t, order.Nodes[i+1].NodeId, edge.EndNodeId)
	}
}

func TestRandomOrderIdsAreUnique(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	route := ManhattanRoute(rng, Cell{Col: 0, Row: 0}, Cell{Col: 2, Row: 1}, 1.0)

	first := RandomOrder(rng, route, "m")
	second := RandomOrder(rng, route, "m")
	assert.NotEqual(t, first.OrderId, second.OrderId)
}
