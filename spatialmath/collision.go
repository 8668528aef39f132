package spatialmath

import (
	"math"

	"github.com/golang/geo/r2"
)

// CircleRectCollides reports whether a circle intersects the solid part of a rectangle.
//
// For a normal rectangle the solid part is the inside: the circle collides when its center is
// strictly closer than its radius to the nearest point of the rectangle. For an inverted
// rectangle the solid part is the outside: the circle collides when its center is outside the
// bounds, or when it is within its radius of any edge.
func CircleRectCollides(circle Circle, rect Rectangle) bool {
	rel := rect.ToLocal(circle.Center)
	half := rect.HalfSize()

	if rect.Inverted {
		if rel.X < -half.X || rel.X > half.X || rel.Y < -half.Y || rel.Y > half.Y {
			return true
		}
		edgeX := math.Min(half.X+rel.X, half.X-rel.X)
		edgeY := math.Min(half.Y+rel.Y, half.Y-rel.Y)
		return math.Min(edgeX, edgeY) <= circle.Radius
	}

	closest := r2.Point{
		X: Clamp(rel.X, -half.X, half.X),
		Y: Clamp(rel.Y, -half.Y, half.Y),
	}
	d := rel.Sub(closest)
	return d.Dot(d) < circle.Radius*circle.Radius
}

// CircleCollidesAny reports whether the circle collides with any of the rectangles.
func CircleCollidesAny(circle Circle, rects []Rectangle) bool {
	for _, rect := range rects {
		if CircleRectCollides(circle, rect) {
			return true
		}
	}
	return false
}
