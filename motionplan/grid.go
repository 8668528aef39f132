// Package motionplan plans arm motion in joint space. Joint angles are discretized into a
// passability grid, and an any-angle search over that grid produces the waypoints.
package motionplan

import (
	"fmt"
	"math"
)

// Coord identifies a grid point. X is the bottom joint axis, Y the top joint axis.
type Coord struct {
	X, Y int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// GridBuilder configures the size and cost weighting of a Grid.
type GridBuilder struct {
	Width, Height int
	biasX, biasY  float64
}

// NewGridBuilder returns a builder for a grid of width × height cells with unit bias.
func NewGridBuilder(width, height int) *GridBuilder {
	return &GridBuilder{Width: width, Height: height, biasX: 1, biasY: 1}
}

// WithBias sets the per-axis factors applied to coordinate deltas when computing cost.
func (b *GridBuilder) WithBias(biasX, biasY float64) *GridBuilder {
	b.biasX = biasX
	b.biasY = biasY
	return b
}

// Build samples passable at every grid point in [0, Width] × [0, Height].
func (b *GridBuilder) Build(passable func(Coord) bool) *Grid {
	g := &Grid{
		width:    b.Width,
		height:   b.Height,
		biasX:    b.biasX,
		biasY:    b.biasY,
		passable: make([]bool, (b.Width+1)*(b.Height+1)),
	}
	for y := 0; y <= b.Height; y++ {
		for x := 0; x <= b.Width; x++ {
			c := Coord{x, y}
			g.passable[g.index(c)] = passable(c)
		}
	}
	return g
}

// Grid is the discretized configuration space. It is never modified after Build, so it can be
// shared between concurrent searches.
//
// Each grid point holds one passability bit. A cell is addressed by its minimum corner and is
// passable when that corner is.
type Grid struct {
	width, height int
	biasX, biasY  float64
	passable      []bool
}

// Width returns the number of cells along X.
func (g *Grid) Width() int { return g.width }

// Height returns the number of cells along Y.
func (g *Grid) Height() int { return g.height }

// Bias returns the per-axis cost factors.
func (g *Grid) Bias() (float64, float64) { return g.biasX, g.biasY }

// PointCount is the number of grid points, (Width+1) × (Height+1).
func (g *Grid) PointCount() int { return len(g.passable) }

func (g *Grid) index(c Coord) int {
	return c.X + c.Y*(g.width+1)
}

func (g *Grid) coord(idx int) Coord {
	return Coord{idx % (g.width + 1), idx / (g.width + 1)}
}

// InBounds reports whether c is a grid point.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X <= g.width && c.Y <= g.height
}

// CanPass reports whether the cell at (x, y) is passable. Cells outside [0, W) × [0, H) are not.
func (g *Grid) CanPass(x, y int) bool {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return false
	}
	return g.passable[g.index(Coord{x, y})]
}

// CanPointPass reports whether the grid point is passable. Points outside the grid are not.
func (g *Grid) CanPointPass(c Coord) bool {
	if !g.InBounds(c) {
		return false
	}
	return g.passable[g.index(c)]
}

// PassableRatio returns the fraction of passable cells.
func (g *Grid) PassableRatio() float64 {
	if g.width == 0 || g.height == 0 {
		return 0
	}
	var count int
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if g.CanPass(x, y) {
				count++
			}
		}
	}
	return float64(count) / float64(g.width*g.height)
}

// Cost is the bias weighted euclidean distance between two points.
func (g *Grid) Cost(a, b Coord) float64 {
	dx := float64(a.X-b.X) * g.biasX
	dy := float64(a.Y-b.Y) * g.biasY
	return math.Sqrt(dx*dx + dy*dy)
}

// Heuristic estimates the remaining cost from p to goal. It equals Cost, which keeps it both
// admissible and consistent.
func (g *Grid) Heuristic(p, goal Coord) float64 {
	return g.Cost(p, goal)
}

var neighborOffsets = [8]Coord{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// AllNeighbors returns the up to 8 grid points adjacent to p, passable or not.
func (g *Grid) AllNeighbors(p Coord) []Coord {
	out := make([]Coord, 0, len(neighborOffsets))
	for _, off := range neighborOffsets {
		n := Coord{p.X + off.X, p.Y + off.Y}
		if g.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// Neighbors returns the grid points adjacent to p that are visible from it.
func (g *Grid) Neighbors(p Coord) []Coord {
	out := make([]Coord, 0, len(neighborOffsets))
	for _, off := range neighborOffsets {
		n := Coord{p.X + off.X, p.Y + off.Y}
		if g.InBounds(n) && g.LineOfSight(p, n) {
			out = append(out, n)
		}
	}
	return out
}

// LineOfSight walks every cell the segment from a to b touches and reports whether all of them
// are passable.
//
// A segment running exactly along a grid line touches the cells on both sides and is only
// blocked when both are. A segment passing exactly through a lattice corner other than its
// endpoints touches the two cells flanking that corner, and both must be passable.
func (g *Grid) LineOfSight(a, b Coord) bool {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx, dy := x1-x0, y1-y0

	sx, sy := 1, 1
	if dx < 0 {
		dx, sx = -dx, -1
	}
	if dy < 0 {
		dy, sy = -dy, -1
	}
	// offsets from a point to the cell ahead of it along each axis
	ox, oy := (sx-1)/2, (sy-1)/2

	f := 0
	if dx >= dy {
		for x0 != x1 {
			f += dy
			if f >= dx {
				if !g.CanPass(x0+ox, y0+oy) {
					return false
				}
				y0 += sy
				f -= dx
				if f == 0 && (x0+sx != x1 || y0 != y1) &&
					!(g.CanPass(x0+ox, y0+oy) && g.CanPass(x0+sx+ox, y0-sy+oy)) {
					return false
				}
			}
			if f != 0 && !g.CanPass(x0+ox, y0+oy) {
				return false
			}
			if dy == 0 && !g.CanPass(x0+ox, y0) && !g.CanPass(x0+ox, y0-1) {
				return false
			}
			x0 += sx
		}
		return true
	}

	for y0 != y1 {
		f += dx
		if f >= dy {
			if !g.CanPass(x0+ox, y0+oy) {
				return false
			}
			x0 += sx
			f -= dy
			if f == 0 && (x0 != x1 || y0+sy != y1) &&
				!(g.CanPass(x0+ox, y0+oy) && g.CanPass(x0-sx+ox, y0+sy+oy)) {
				return false
			}
		}
		if f != 0 && !g.CanPass(x0+ox, y0+oy) {
			return false
		}
		if dx == 0 && !g.CanPass(x0, y0+oy) && !g.CanPass(x0-1, y0+oy) {
			return false
		}
		y0 += sy
	}
	return true
}
