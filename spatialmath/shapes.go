package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Circle is a disc in the arm's plane.
type Circle struct {
	Center r2.Point
	Radius float64
}

// NewCircle instantiates a Circle, rejecting negative radii.
func NewCircle(center r2.Point, radius float64) (Circle, error) {
	if radius < 0 {
		return Circle{}, errors.Errorf("circle radius must be non-negative, got %f", radius)
	}
	return Circle{Center: center, Radius: radius}, nil
}

// Rectangle is an oriented rectangle. Size is the full extent along each local axis and
// Rotation is counterclockwise in radians. An inverted rectangle marks the region outside of
// it as solid, which is how workspace limits are expressed.
type Rectangle struct {
	Center   r2.Point `json:"position"`
	Size     r2.Point `json:"size"`
	Rotation float64  `json:"rotation"`
	Inverted bool     `json:"inverted"`
}

// NewRectangle instantiates a Rectangle, rejecting degenerate sizes.
func NewRectangle(center, size r2.Point, rotation float64, inverted bool) (Rectangle, error) {
	rect := Rectangle{Center: center, Size: size, Rotation: rotation, Inverted: inverted}
	if err := rect.Validate(); err != nil {
		return Rectangle{}, err
	}
	return rect, nil
}

// Validate returns an error if the rectangle has a non-positive extent.
func (r Rectangle) Validate() error {
	if r.Size.X <= 0 || r.Size.Y <= 0 {
		return errors.Errorf("rectangle size must be positive, got %v", r.Size)
	}
	return nil
}

// HalfSize returns the half extents of the rectangle.
func (r Rectangle) HalfSize() r2.Point {
	return r.Size.Mul(0.5)
}

// ToLocal expresses a world point in the rectangle's frame, with the center at the origin
// and the axes aligned with the rectangle's sides.
func (r Rectangle) ToLocal(p r2.Point) r2.Point {
	return Rotate(p.Sub(r.Center), -r.Rotation)
}

// Contains reports whether a world point lies within the rectangle's bounds, edges included.
// Inversion is not taken into account.
func (r Rectangle) Contains(p r2.Point) bool {
	local := r.ToLocal(p)
	half := r.HalfSize()
	return local.X >= -half.X && local.X <= half.X && local.Y >= -half.Y && local.Y <= half.Y
}

func (r Rectangle) String() string {
	kind := "Rectangle"
	if r.Inverted {
		kind = "InvertedRectangle"
	}
	return fmt.Sprintf("%s{center: %v, size: %v, rotation: %.4f}", kind, r.Center, r.Size, r.Rotation)
}
