package kinematics

import (
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"go.viam.com/armpathfinder/spatialmath"
)

func deg(d float64) float64 {
	return d * math.Pi / 180
}

// unitArm is a simplified geometry where every check can be worked out by hand.
func unitArm() ArmConfig {
	return ArmConfig{
		BottomLength:      1,
		TopLength:         2,
		FrameSize:         1,
		BottomGearRatio:   1,
		TopGearRatio:      1,
		MinBottomAngleDeg: 10,
		MaxBottomAngleDeg: 170,
	}
}

func TestForwardKinematics(t *testing.T) {
	arm := unitArm()
	pose := Pose{Bottom: deg(90), Top: 0}

	mid := arm.Midpoint(pose)
	test.That(t, mid.X, test.ShouldAlmostEqual, 0)
	test.That(t, mid.Y, test.ShouldAlmostEqual, 1)

	end := arm.Endpoint(pose)
	test.That(t, end.X, test.ShouldAlmostEqual, 2)
	test.That(t, end.Y, test.ShouldAlmostEqual, 1)

	end = arm.Endpoint(Pose{Bottom: 0, Top: deg(-90)})
	test.That(t, spatialmath.R2AlmostEqual(end, r2.Point{X: 1, Y: -2}, 1e-9), test.ShouldBeTrue)
}

func TestBottomJointLimits(t *testing.T) {
	arm := unitArm()
	test.That(t, arm.IsValid(Pose{Bottom: deg(9), Top: deg(90)}), test.ShouldBeFalse)
	test.That(t, arm.IsValid(Pose{Bottom: deg(171), Top: deg(90)}), test.ShouldBeFalse)
	test.That(t, arm.IsValid(Pose{Bottom: deg(90), Top: deg(90)}), test.ShouldBeTrue)
	test.That(t, arm.IsValid(Pose{Bottom: deg(-90), Top: deg(90)}), test.ShouldBeFalse)
}

func TestFramePerimeter(t *testing.T) {
	arm := unitArm()

	// elbow out on the right, intake out on the left
	test.That(t, arm.IsValid(Pose{Bottom: deg(45), Top: deg(180)}), test.ShouldBeFalse)
	// both out on the right
	test.That(t, arm.IsValid(Pose{Bottom: deg(45), Top: deg(90)}), test.ShouldBeTrue)
	// intake out on the left, elbow inside the frame
	test.That(t, arm.IsValid(Pose{Bottom: deg(90), Top: deg(180)}), test.ShouldBeTrue)

	// radii count toward the extent
	arm.MidpointRadius = 0.5
	test.That(t, arm.IsValid(Pose{Bottom: deg(90), Top: deg(180)}), test.ShouldBeFalse)
}

func TestCollisionRects(t *testing.T) {
	arm := unitArm()
	arm.IntakeRadius = 0.1
	arm.CollisionRects = []spatialmath.Rectangle{
		{Center: r2.Point{X: 2, Y: 1}, Size: r2.Point{X: 0.5, Y: 0.5}},
	}
	test.That(t, arm.IsValid(Pose{Bottom: deg(90), Top: 0}), test.ShouldBeFalse)
	test.That(t, arm.IsValid(Pose{Bottom: deg(90), Top: deg(90)}), test.ShouldBeTrue)

	arm.CollisionRects = []spatialmath.Rectangle{
		{Size: r2.Point{X: 4, Y: 4}, Inverted: true},
	}
	// wrist at (2, 1) sits on the boundary of the permitted region
	test.That(t, arm.IsValid(Pose{Bottom: deg(90), Top: 0}), test.ShouldBeFalse)
	// wrist at (0, 3) is outside it
	test.That(t, arm.IsValid(Pose{Bottom: deg(90), Top: deg(90)}), test.ShouldBeFalse)
	// wrist at (0, -1) is well inside
	test.That(t, arm.IsValid(Pose{Bottom: deg(90), Top: deg(-90)}), test.ShouldBeTrue)
}

func TestIsValidIsPure(t *testing.T) {
	arm := DefaultArmConfig()
	reference := DefaultArmConfig()

	var first []bool
	for i := 0; i < 3; i++ {
		var results []bool
		for b := 0.0; b < math.Pi; b += 0.05 {
			for top := -1.5 * math.Pi; top < 0.5*math.Pi; top += 0.05 {
				results = append(results, arm.IsValid(Pose{Bottom: b, Top: top}))
			}
		}
		if first == nil {
			first = results
			continue
		}
		test.That(t, results, test.ShouldResemble, first)
	}
	test.That(t, arm, test.ShouldResemble, reference)
}

func TestDefaultArm(t *testing.T) {
	arm := DefaultArmConfig()
	test.That(t, arm.Validate("arm"), test.ShouldBeNil)
	test.That(t, arm.CollisionRects, test.ShouldHaveLength, 2)
	test.That(t, arm.CollisionRects[0].Inverted, test.ShouldBeTrue)
	test.That(t, arm.FrameSize, test.ShouldAlmostEqual, 0.5334, 1e-4)

	// straight up is always reachable
	test.That(t, arm.IsValid(Pose{Bottom: math.Pi / 2, Top: math.Pi / 2}), test.ShouldBeTrue)
	// reaching down through the floor is not
	test.That(t, arm.IsValid(Pose{Bottom: deg(30), Top: -math.Pi / 2}), test.ShouldBeFalse)
	// reaching past the extension limit is not
	test.That(t, arm.IsValid(Pose{Bottom: deg(30), Top: 0}), test.ShouldBeFalse)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		mutate  func(cfg *ArmConfig)
		message string
	}{
		{"no bottom length", func(cfg *ArmConfig) { cfg.BottomLength = 0 }, "bottom_length"},
		{"negative top length", func(cfg *ArmConfig) { cfg.TopLength = -1 }, "top_length"},
		{"no gear ratio", func(cfg *ArmConfig) { cfg.TopGearRatio = 0 }, "top_gear_ratio"},
		{"negative radius", func(cfg *ArmConfig) { cfg.IntakeRadius = -0.1 }, "radii"},
		{"empty joint limits", func(cfg *ArmConfig) { cfg.MinBottomAngleDeg = cfg.MaxBottomAngleDeg }, "min_bottom_angle_deg"},
		{"flat rectangle", func(cfg *ArmConfig) { cfg.CollisionRects[1].Size.Y = 0 }, "collision_rects.1"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultArmConfig()
			tc.mutate(&cfg)
			err := cfg.Validate("arm")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.message)
			test.That(t, strings.Contains(err.Error(), "arm"), test.ShouldBeTrue)
		})
	}
}

func TestPoseString(t *testing.T) {
	test.That(t, Pose{Bottom: 1, Top: -0.5}.String(), test.ShouldEqual, "{bottom: 1.0000, top: -0.5000}")
}
