package motionplan

import (
	"math"

	"github.com/samber/lo"
)

// Finder searches a grid for a path between two passable points. It returns false when the
// goal cannot be reached; that is an expected outcome, not an error.
type Finder func(grid *Grid, start, goal Coord) ([]Coord, bool)

type searchNode struct {
	cost   float64
	parent int32
	closed bool
}

// ThetaStar finds an any-angle path from start to goal. Consecutive points of the returned path
// are always in line of sight of each other. A start equal to goal yields a single point.
func ThetaStar(grid *Grid, start, goal Coord) ([]Coord, bool) {
	path, _, ok := search(grid, start, goal, true)
	return path, ok
}

// AStar finds a path from start to goal moving only between adjacent grid points.
func AStar(grid *Grid, start, goal Coord) ([]Coord, bool) {
	path, _, ok := search(grid, start, goal, false)
	return path, ok
}

// search runs A*, or Theta* when anyAngle is set, and also returns the number of expanded nodes.
func search(grid *Grid, start, goal Coord, anyAngle bool) ([]Coord, int, bool) {
	if !grid.InBounds(start) || !grid.InBounds(goal) {
		return nil, 0, false
	}

	nodes := make([]searchNode, grid.PointCount())
	for i := range nodes {
		nodes[i] = searchNode{cost: math.Inf(1), parent: -1}
	}

	startIdx := int32(grid.index(start))
	goalIdx := int32(grid.index(goal))
	nodes[startIdx].cost = 0

	var open nodeQueue
	open.push(startIdx, grid.Heuristic(start, goal))

	expanded := 0
	for open.Len() > 0 {
		current, _ := open.pop()
		if nodes[current].closed {
			continue
		}
		if current == goalIdx {
			return extractPath(grid, nodes, current), expanded, true
		}

		nodes[current].closed = true
		expanded++

		currentPos := grid.coord(int(current))
		for _, neighborPos := range grid.Neighbors(currentPos) {
			neighbor := int32(grid.index(neighborPos))
			if nodes[neighbor].closed {
				continue
			}
			if updateVertex(grid, nodes, current, neighbor, anyAngle) {
				open.push(neighbor, nodes[neighbor].cost+grid.Heuristic(neighborPos, goal))
			}
		}
	}

	return nil, expanded, false
}

// updateVertex relaxes the edge into next and reports whether its cost went down. With anyAngle
// set, next is first tried as a direct child of current's parent.
func updateVertex(grid *Grid, nodes []searchNode, current, next int32, anyAngle bool) bool {
	nextPos := grid.coord(int(next))

	if parent := nodes[current].parent; anyAngle && parent >= 0 {
		parentPos := grid.coord(int(parent))
		if grid.LineOfSight(parentPos, nextPos) {
			cost := nodes[parent].cost + grid.Cost(parentPos, nextPos)
			if cost < nodes[next].cost {
				nodes[next].cost = cost
				nodes[next].parent = parent
				return true
			}
			return false
		}
	}

	cost := nodes[current].cost + grid.Cost(grid.coord(int(current)), nextPos)
	if cost < nodes[next].cost {
		nodes[next].cost = cost
		nodes[next].parent = current
		return true
	}
	return false
}

func extractPath(grid *Grid, nodes []searchNode, end int32) []Coord {
	var out []Coord
	for idx := end; idx >= 0; idx = nodes[idx].parent {
		out = append(out, grid.coord(int(idx)))
	}
	return lo.Reverse(out)
}
