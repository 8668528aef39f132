// Package kinematics describes the two-joint arm: its geometry, forward kinematics, and the
// validity test that decides whether a pose is reachable without collision.
package kinematics

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/armpathfinder/spatialmath"
)

// Pose is a pair of joint angles in radians. Bottom is measured from the +x axis at the
// shoulder pivot; Top is the absolute angle of the second segment, not relative to Bottom.
type Pose struct {
	Bottom float64 `json:"bottom"`
	Top    float64 `json:"top"`
}

func (p Pose) String() string {
	return fmt.Sprintf("{bottom: %.4f, top: %.4f}", p.Bottom, p.Top)
}

// ArmConfig is the fixed geometry of an arm. Lengths are in meters.
type ArmConfig struct {
	BottomLength    float64 `json:"bottom_length"`
	TopLength       float64 `json:"top_length"`
	IntakeRadius    float64 `json:"intake_radius"`
	MidpointRadius  float64 `json:"midpoint_radius"`
	BottomGearRatio float64 `json:"bottom_gear_ratio"`
	TopGearRatio    float64 `json:"top_gear_ratio"`
	FrameSize       float64 `json:"frame_size"`

	MinBottomAngleDeg float64 `json:"min_bottom_angle_deg"`
	MaxBottomAngleDeg float64 `json:"max_bottom_angle_deg"`

	CollisionRects []spatialmath.Rectangle `json:"collision_rects"`
}

const inchesPerMeter = 39.37

// DefaultArmConfig returns the geometry of the 2023 competition arm.
func DefaultArmConfig() ArmConfig {
	const (
		heightLimit     = 1.98
		extensionLimit  = 1.22
		floorHeight     = 9.62923832 / inchesPerMeter
		bumperThickness = 3.625 / inchesPerMeter
		frameSize       = 21.0 / inchesPerMeter
		baseSize        = frameSize + 2*bumperThickness
		baseHeight      = 4.7522244 / inchesPerMeter
	)

	return ArmConfig{
		BottomLength:      35.0 / inchesPerMeter,
		TopLength:         29.95824774 / inchesPerMeter,
		IntakeRadius:      (6.49785148 + 1.125) / inchesPerMeter,
		MidpointRadius:    3.3 / inchesPerMeter,
		BottomGearRatio:   600,
		TopGearRatio:      288,
		FrameSize:         frameSize,
		MinBottomAngleDeg: 25,
		MaxBottomAngleDeg: 180 - 25,
		CollisionRects: []spatialmath.Rectangle{
			{
				// rules limit on height and extension, bounded below by the floor
				Center:   r2.Point{X: 0, Y: -floorHeight + (heightLimit+floorHeight)/2},
				Size:     r2.Point{X: extensionLimit * 2, Y: heightLimit + floorHeight},
				Inverted: true,
			},
			{
				// drive base
				Center: r2.Point{X: 0, Y: -floorHeight + baseHeight/2},
				Size:   r2.Point{X: baseSize, Y: baseHeight},
			},
		},
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *ArmConfig) Validate(path string) error {
	required := []struct {
		name  string
		value float64
	}{
		{"bottom_length", cfg.BottomLength},
		{"top_length", cfg.TopLength},
		{"frame_size", cfg.FrameSize},
		{"bottom_gear_ratio", cfg.BottomGearRatio},
		{"top_gear_ratio", cfg.TopGearRatio},
	}
	for _, field := range required {
		if field.value <= 0 {
			return goutils.NewConfigValidationFieldRequiredError(path, field.name)
		}
	}
	if cfg.IntakeRadius < 0 || cfg.MidpointRadius < 0 {
		return goutils.NewConfigValidationError(path, errors.New("radii must be non-negative"))
	}
	if cfg.MinBottomAngleDeg >= cfg.MaxBottomAngleDeg {
		return goutils.NewConfigValidationError(path, errors.Errorf(
			"min_bottom_angle_deg (%v) must be less than max_bottom_angle_deg (%v)",
			cfg.MinBottomAngleDeg, cfg.MaxBottomAngleDeg))
	}
	for i, rect := range cfg.CollisionRects {
		if err := rect.Validate(); err != nil {
			return goutils.NewConfigValidationError(fmt.Sprintf("%s.collision_rects.%d", path, i), err)
		}
	}
	return nil
}

// Midpoint returns the position of the elbow joint.
func (cfg *ArmConfig) Midpoint(pose Pose) r2.Point {
	return spatialmath.NewVectorFromAngle(pose.Bottom, cfg.BottomLength)
}

// Endpoint returns the position of the wrist.
func (cfg *ArmConfig) Endpoint(pose Pose) r2.Point {
	return cfg.Midpoint(pose).Add(spatialmath.NewVectorFromAngle(pose.Top, cfg.TopLength))
}

// IsValid reports whether the arm can hold the pose. A pose is invalid when the bottom joint is
// outside its limits, when the elbow and the intake stick out of the frame on opposite sides,
// or when the intake hits one of the collision rectangles.
func (cfg *ArmConfig) IsValid(pose Pose) bool {
	bottomDeg := pose.Bottom * 180 / math.Pi
	if bottomDeg < cfg.MinBottomAngleDeg || bottomDeg > cfg.MaxBottomAngleDeg {
		return false
	}

	mid := cfg.Midpoint(pose)
	end := cfg.Endpoint(pose)

	halfFrame := cfg.FrameSize / 2
	if math.Abs(end.X)+cfg.IntakeRadius >= halfFrame &&
		math.Abs(mid.X)+cfg.MidpointRadius >= halfFrame &&
		math.Signbit(mid.X) != math.Signbit(end.X) {
		return false
	}

	intake := spatialmath.Circle{Center: end, Radius: cfg.IntakeRadius}
	return !spatialmath.CircleCollidesAny(intake, cfg.CollisionRects)
}
