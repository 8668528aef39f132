// Package spatialmath defines planar vectors and the collision shapes that bound the arm's
// workspace.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r2"
)

// NewVectorFromAngle returns a vector of the given length pointing at angle radians,
// measured counterclockwise from the +x axis.
func NewVectorFromAngle(angle, length float64) r2.Point {
	return r2.Point{X: length * math.Cos(angle), Y: length * math.Sin(angle)}
}

// Rotate returns v rotated counterclockwise by angle radians.
func Rotate(v r2.Point, angle float64) r2.Point {
	sin, cos := math.Sincos(angle)
	return r2.Point{
		X: v.X*cos - v.Y*sin,
		Y: v.X*sin + v.Y*cos,
	}
}

// Clamp restricts value to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// R2AlmostEqual compares two points with the given tolerance on each axis.
func R2AlmostEqual(a, b r2.Point, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}
