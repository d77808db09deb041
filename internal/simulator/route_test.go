package simulator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManhattanRouteStepsAreAxisAligned(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for run := 0; run < 20; run++ {
		start := Cell{Col: rng.Intn(10), Row: rng.Intn(10)}
		end := Cell{Col: rng.Intn(10), Row: rng.Intn(10)}

		route := ManhattanRoute(rng, start, end, 2.0)
		require.Len(t, route, start.Distance(end)+1)

		for i := 1; i < len(route); i++ {
			dx := route[i].X - route[i-1].X
			dy := route[i].Y - route[i-1].Y
			moved := (dx != 0) != (dy != 0)
			assert.True(t, moved, "step %d must move along exactly one axis (dx=%v dy=%v)", i, dx, dy)
		}
	}
}

func TestManhattanRouteConnectsStartAndEnd(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	const cellSize = 1.5

	start := Cell{Col: 1, Row: 2}
	end := Cell{Col: 4, Row: 0}
	route := ManhattanRoute(rng, start, end, cellSize)

	require.NotEmpty(t, route)
	assert.Equal(t, Point{X: 1 * cellSize, Y: 2 * cellSize}, route[0])
	assert.Equal(t, Point{X: 4 * cellSize, Y: 0}, route[len(route)-1])
}

func TestManhattanRouteDegenerate(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	route := ManhattanRoute(rng, Cell{Col: 3, Row: 3}, Cell{Col: 3, Row: 3}, 1.0)
	assert.Len(t, route, 1, "start == end yields just the start point")
}
