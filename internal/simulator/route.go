package simulator

import "math/rand"

// Point is one waypoint on the simulated factory floor, in meters.
type Point struct {
	X float64
	Y float64
}

// Cell addresses one cell of the factory grid.
type Cell struct {
	Col int
	Row int
}

// Distance returns the Manhattan distance to other, in cells.
func (c Cell) Distance(other Cell) int {
	return abs(other.Col-c.Col) + abs(other.Row-c.Row)
}

// ManhattanRoute walks from start to end in unit steps, one axis at a time,
// the way AGVs travel between shelf lanes. When both axes still have
// remaining distance the next axis is chosen at random, so repeated routes
// between the same cells take different lanes. The result has
// start.Distance(end)+1 points.
func ManhattanRoute(rng *rand.Rand, start, end Cell, cellSize float64) []Point {
	route := make([]Point, 0, start.Distance(end)+1)
	route = append(route, cellPoint(start, cellSize))

	cur := start
	for cur != end {
		dCol := sign(end.Col - cur.Col)
		dRow := sign(end.Row - cur.Row)

		if dCol != 0 && (dRow == 0 || rng.Intn(2) == 0) {
			cur.Col += dCol
		} else {
			cur.Row += dRow
		}
		route = append(route, cellPoint(cur, cellSize))
	}

	return route
}

func cellPoint(c Cell, cellSize float64) Point {
	return Point{X: float64(c.Col) * cellSize, Y: float64(c.Row) * cellSize}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
