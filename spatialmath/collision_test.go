package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestInvertedRectangle(t *testing.T) {
	rect, err := NewRectangle(r2.Point{}, r2.Point{X: 2, Y: 2}, 0, true)
	test.That(t, err, test.ShouldBeNil)

	t.Run("inside with margin", func(t *testing.T) {
		test.That(t, CircleRectCollides(Circle{Center: r2.Point{}, Radius: 0.1}, rect), test.ShouldBeFalse)
	})
	t.Run("too close to the inside edge", func(t *testing.T) {
		test.That(t, CircleRectCollides(Circle{Center: r2.Point{X: 0.95}, Radius: 0.1}, rect), test.ShouldBeTrue)
	})
	t.Run("outside the permitted region", func(t *testing.T) {
		test.That(t, CircleRectCollides(Circle{Center: r2.Point{X: 1.5}, Radius: 0.1}, rect), test.ShouldBeTrue)
	})
	t.Run("touching the edge counts", func(t *testing.T) {
		test.That(t, CircleRectCollides(Circle{Center: r2.Point{Y: -0.5}, Radius: 0.5}, rect), test.ShouldBeTrue)
	})
	t.Run("zero radius is only tested against bounds", func(t *testing.T) {
		test.That(t, CircleRectCollides(Circle{Center: r2.Point{X: 0.99, Y: -0.99}}, rect), test.ShouldBeFalse)
		test.That(t, CircleRectCollides(Circle{Center: r2.Point{X: 1.01}}, rect), test.ShouldBeTrue)
	})
}

func TestNormalRectangle(t *testing.T) {
	rect, err := NewRectangle(r2.Point{X: 1, Y: 1}, r2.Point{X: 2, Y: 1}, 0, false)
	test.That(t, err, test.ShouldBeNil)

	for _, tc := range []struct {
		name     string
		center   r2.Point
		radius   float64
		expected bool
	}{
		{"center inside", r2.Point{X: 1, Y: 1}, 0.01, true},
		{"near the side", r2.Point{X: 2.05, Y: 1}, 0.1, true},
		{"clear of the side", r2.Point{X: 2.2, Y: 1}, 0.1, false},
		{"tangent does not collide", r2.Point{X: 1, Y: 2}, 0.5, false},
		{"near a corner", r2.Point{X: 2.05, Y: 1.55}, 0.1, true},
		{"diagonal from a corner", r2.Point{X: 2.1, Y: 1.6}, 0.1, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, CircleRectCollides(Circle{Center: tc.center, Radius: tc.radius}, rect), test.ShouldEqual, tc.expected)
		})
	}
}

func TestRotatedRectangle(t *testing.T) {
	// a long thin bar along the y axis once rotated a quarter turn
	rect, err := NewRectangle(r2.Point{}, r2.Point{X: 4, Y: 0.2}, math.Pi/2, false)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, CircleRectCollides(Circle{Center: r2.Point{Y: 1.8}, Radius: 0.05}, rect), test.ShouldBeTrue)
	test.That(t, CircleRectCollides(Circle{Center: r2.Point{X: 1.8}, Radius: 0.05}, rect), test.ShouldBeFalse)
	test.That(t, rect.Contains(r2.Point{Y: -1.9}), test.ShouldBeTrue)
	test.That(t, rect.Contains(r2.Point{X: -1.9}), test.ShouldBeFalse)
}

func TestCircleCollidesAny(t *testing.T) {
	limits := Rectangle{Size: r2.Point{X: 10, Y: 10}, Inverted: true}
	base := Rectangle{Center: r2.Point{Y: -4}, Size: r2.Point{X: 2, Y: 2}}
	rects := []Rectangle{limits, base}

	test.That(t, CircleCollidesAny(Circle{Radius: 0.5}, rects), test.ShouldBeFalse)
	test.That(t, CircleCollidesAny(Circle{Center: r2.Point{Y: -3}, Radius: 0.5}, rects), test.ShouldBeTrue)
	test.That(t, CircleCollidesAny(Circle{Center: r2.Point{X: 6}, Radius: 0.5}, rects), test.ShouldBeTrue)
	test.That(t, CircleCollidesAny(Circle{Radius: 0.5}, nil), test.ShouldBeFalse)
}

func TestShapeConstructors(t *testing.T) {
	_, err := NewRectangle(r2.Point{}, r2.Point{X: 0, Y: 1}, 0, false)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewCircle(r2.Point{}, -1)
	test.That(t, err, test.ShouldNotBeNil)

	c, err := NewCircle(r2.Point{X: 1}, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Radius, test.ShouldEqual, 2.)

	rect := Rectangle{Size: r2.Point{X: 1, Y: 1}, Inverted: true}
	test.That(t, rect.String(), test.ShouldStartWith, "InvertedRectangle")
}

func TestVectorHelpers(t *testing.T) {
	v := NewVectorFromAngle(math.Pi/2, 2)
	test.That(t, R2AlmostEqual(v, r2.Point{Y: 2}, 1e-9), test.ShouldBeTrue)

	rotated := Rotate(r2.Point{X: 1}, math.Pi)
	test.That(t, rotated.X, test.ShouldAlmostEqual, -1)
	test.That(t, rotated.Y, test.ShouldAlmostEqual, 0)

	test.That(t, Clamp(5, -1, 1), test.ShouldEqual, 1.)
	test.That(t, Clamp(-5, -1, 1), test.ShouldEqual, -1.)
	test.That(t, Clamp(0.5, -1, 1), test.ShouldEqual, 0.5)
}
