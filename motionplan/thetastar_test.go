package motionplan

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func pathLength(grid *Grid, path []Coord) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += grid.Cost(path[i-1], path[i])
	}
	return total
}

func checkPath(t *testing.T, grid *Grid, path []Coord, start, goal Coord) {
	t.Helper()
	test.That(t, path, test.ShouldNotBeEmpty)
	test.That(t, path[0], test.ShouldResemble, start)
	test.That(t, path[len(path)-1], test.ShouldResemble, goal)
	for i := 1; i < len(path); i++ {
		test.That(t, grid.LineOfSight(path[i-1], path[i]), test.ShouldBeTrue)
	}
}

// twoWallGrid forces a path over the first wall and under the second.
func twoWallGrid() *Grid {
	return gridWithBlocked(40, 40, func(c Coord) bool {
		return (c.X == 10 && c.Y <= 30) || (c.X == 25 && c.Y >= 10)
	})
}

// enclosedGrid has a closed ring of blocked cells around (5, 5).
func enclosedGrid() *Grid {
	return gridWithBlocked(10, 10, func(c Coord) bool {
		inBox := c.X >= 3 && c.X <= 7 && c.Y >= 3 && c.Y <= 7
		onEdge := c.X == 3 || c.X == 7 || c.Y == 3 || c.Y == 7
		return inBox && onEdge
	})
}

func TestThetaStarThroughGap(t *testing.T) {
	grid := wallGrid()
	start, goal := Coord{0, 2}, Coord{4, 2}

	path, ok := ThetaStar(grid, start, goal)
	test.That(t, ok, test.ShouldBeTrue)
	checkPath(t, grid, path, start, goal)

	// up one, across four, down one
	const manhattan = 6.0
	test.That(t, pathLength(grid, path), test.ShouldBeLessThan, manhattan)

	// every bend is at the gap
	for _, p := range path[1 : len(path)-1] {
		test.That(t, p.X, test.ShouldBeBetween, 0, 4)
		test.That(t, p.Y, test.ShouldBeBetween, 2, 5)
	}
	test.That(t, path[1], test.ShouldResemble, Coord{2, 3})
}

func TestThetaStarSinglePoint(t *testing.T) {
	grid := wallGrid()
	path, ok := ThetaStar(grid, Coord{1, 1}, Coord{1, 1})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, path, test.ShouldResemble, []Coord{{1, 1}})

	path, ok = AStar(grid, Coord{4, 4}, Coord{4, 4})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, path, test.ShouldResemble, []Coord{{4, 4}})
}

func TestThetaStarOpenGrid(t *testing.T) {
	grid := gridWithBlocked(20, 20, func(Coord) bool { return false })
	path, ok := ThetaStar(grid, Coord{0, 0}, Coord{17, 6})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, path, test.ShouldResemble, []Coord{{0, 0}, {17, 6}})
	test.That(t, pathLength(grid, path), test.ShouldAlmostEqual, math.Sqrt(17*17+6*6))
}

func TestFindersAroundWalls(t *testing.T) {
	grid := twoWallGrid()
	start, goal := Coord{2, 2}, Coord{38, 38}

	thetaPath, ok := ThetaStar(grid, start, goal)
	test.That(t, ok, test.ShouldBeTrue)
	checkPath(t, grid, thetaPath, start, goal)

	aStarPath, ok := AStar(grid, start, goal)
	test.That(t, ok, test.ShouldBeTrue)
	checkPath(t, grid, aStarPath, start, goal)
	for i := 1; i < len(aStarPath); i++ {
		dx := aStarPath[i].X - aStarPath[i-1].X
		dy := aStarPath[i].Y - aStarPath[i-1].Y
		test.That(t, dx*dx+dy*dy, test.ShouldBeBetween, 0, 3)
	}

	// any angle paths skip the intermediate points
	test.That(t, len(thetaPath), test.ShouldBeLessThan, len(aStarPath))
}

func TestFindersWithBias(t *testing.T) {
	// every path climbs a row to the gap and comes back down, at least 20 with this bias
	grid := NewGridBuilder(5, 5).WithBias(1, 10).Build(func(c Coord) bool { return !(c.X == 2 && c.Y <= 2) })
	start, goal := Coord{0, 2}, Coord{4, 2}

	path, ok := ThetaStar(grid, start, goal)
	test.That(t, ok, test.ShouldBeTrue)
	checkPath(t, grid, path, start, goal)
	test.That(t, pathLength(grid, path), test.ShouldBeGreaterThanOrEqualTo, 20)
}

func TestThetaStarNoPath(t *testing.T) {
	grid := enclosedGrid()

	_, ok := ThetaStar(grid, Coord{0, 0}, Coord{5, 5})
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = AStar(grid, Coord{0, 0}, Coord{5, 5})
	test.That(t, ok, test.ShouldBeFalse)

	// inside the ring is still connected
	path, ok := ThetaStar(grid, Coord{4, 4}, Coord{7, 7})
	test.That(t, ok, test.ShouldBeTrue)
	checkPath(t, grid, path, Coord{4, 4}, Coord{7, 7})
}

func TestThetaStarOutOfBounds(t *testing.T) {
	grid := wallGrid()
	_, ok := ThetaStar(grid, Coord{-1, 0}, Coord{4, 4})
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = ThetaStar(grid, Coord{0, 0}, Coord{6, 4})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestSearchExpansions(t *testing.T) {
	grid := twoWallGrid()
	_, thetaExpanded, ok := search(grid, Coord{2, 2}, Coord{38, 38}, true)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, thetaExpanded, test.ShouldBeGreaterThan, 0)
	test.That(t, thetaExpanded, test.ShouldBeLessThanOrEqualTo, grid.PointCount())

	_, expanded, ok := search(grid, Coord{3, 3}, Coord{3, 3}, true)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, expanded, test.ShouldEqual, 0)
}

func TestNodeQueueOrder(t *testing.T) {
	var q nodeQueue
	q.push(1, 3)
	q.push(2, 1)
	q.push(3, 2)
	q.push(4, 1)

	var order []int32
	for q.Len() > 0 {
		node, _ := q.pop()
		order = append(order, node)
	}
	// equal priorities come out in insertion order
	test.That(t, order, test.ShouldResemble, []int32{2, 4, 3, 1})
}
