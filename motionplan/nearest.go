package motionplan

import "math"

// NearestPassable returns the passable grid point closest to start by path cost, moving through
// impassable points as needed. It returns false when no passable point can be reached.
func NearestPassable(grid *Grid, start Coord) (Coord, bool) {
	found, _, ok := nearestPassable(grid, start)
	return found, ok
}

func nearestPassable(grid *Grid, start Coord) (Coord, int, bool) {
	if !grid.InBounds(start) {
		return Coord{}, 0, false
	}

	costs := make([]float64, grid.PointCount())
	for i := range costs {
		costs[i] = math.Inf(1)
	}

	startIdx := int32(grid.index(start))
	costs[startIdx] = 0

	var open nodeQueue
	open.push(startIdx, 0)

	expanded := 0
	for open.Len() > 0 {
		current, cost := open.pop()
		if cost > costs[current] {
			// superseded by a cheaper entry
			continue
		}

		pos := grid.coord(int(current))
		if grid.CanPointPass(pos) {
			return pos, expanded, true
		}
		expanded++

		for _, neighborPos := range grid.AllNeighbors(pos) {
			neighbor := int32(grid.index(neighborPos))
			newCost := costs[current] + grid.Cost(pos, neighborPos)
			if newCost < costs[neighbor] {
				costs[neighbor] = newCost
				open.push(neighbor, newCost)
			}
		}
	}

	return Coord{}, expanded, false
}
