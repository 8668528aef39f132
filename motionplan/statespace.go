package motionplan

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/armpathfinder/kinematics"
)

// AngleRange is a half open joint angle interval [Min, Max) in radians.
type AngleRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns Max - Min.
func (r AngleRange) Span() float64 {
	return r.Max - r.Min
}

// StateSpace maps joint angles onto grid coordinates. The bottom joint runs along X and the top
// joint along Y, each range split into Width or Height cells.
type StateSpace struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Bottom AngleRange `json:"bottom_range"`
	Top    AngleRange `json:"top_range"`
}

// DefaultStateSpace is a 128 × 128 grid over a half turn of the bottom joint and a full turn of
// the top joint.
func DefaultStateSpace() StateSpace {
	return StateSpace{
		Width:  128,
		Height: 128,
		Bottom: AngleRange{Min: 0, Max: math.Pi},
		Top:    AngleRange{Min: -1.5 * math.Pi, Max: 0.5 * math.Pi},
	}
}

// Validate ensures all parts of the config are valid.
func (s *StateSpace) Validate(path string) error {
	if s.Width <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "width")
	}
	if s.Height <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "height")
	}
	if s.Bottom.Span() <= 0 {
		return goutils.NewConfigValidationError(fmt.Sprintf("%s.bottom_range", path),
			errors.Errorf("min (%v) must be less than max (%v)", s.Bottom.Min, s.Bottom.Max))
	}
	if s.Top.Span() <= 0 {
		return goutils.NewConfigValidationError(fmt.Sprintf("%s.top_range", path),
			errors.Errorf("min (%v) must be less than max (%v)", s.Top.Min, s.Top.Max))
	}
	return nil
}

// PoseToState returns the cell containing the pose. Angles are wrapped into their range first,
// so any pose maps to exactly one cell.
func (s *StateSpace) PoseToState(pose kinematics.Pose) Coord {
	return Coord{
		X: angleToState(pose.Bottom, s.Bottom, s.Width),
		Y: angleToState(pose.Top, s.Top, s.Height),
	}
}

// StateToPose returns the pose at a grid point. It inverts PoseToState up to quantization.
func (s *StateSpace) StateToPose(c Coord) kinematics.Pose {
	return kinematics.Pose{
		Bottom: s.Bottom.Min + s.Bottom.Span()*float64(c.X)/float64(s.Width),
		Top:    s.Top.Min + s.Top.Span()*float64(c.Y)/float64(s.Height),
	}
}

func angleToState(angle float64, r AngleRange, resolution int) int {
	span := r.Span()
	wrapped := math.Mod(angle-r.Min, span)
	if wrapped < 0 {
		wrapped += span
	}
	state := int(wrapped / span * float64(resolution))
	// floating point error can land exactly on the resolution
	if state >= resolution {
		state = resolution - 1
	}
	if state < 0 {
		state = 0
	}
	return state
}

// Bias weights each axis by the joint's full range times its gear ratio, so cost tracks motor
// travel rather than cell count.
func (s *StateSpace) Bias(arm *kinematics.ArmConfig) (float64, float64) {
	return s.Bottom.Span() * arm.BottomGearRatio, s.Top.Span() * arm.TopGearRatio
}

// BuildGrid samples the arm's validity at every point of the state space.
func BuildGrid(arm *kinematics.ArmConfig, space StateSpace) *Grid {
	biasX, biasY := space.Bias(arm)
	return NewGridBuilder(space.Width, space.Height).
		WithBias(biasX, biasY).
		Build(func(c Coord) bool {
			return arm.IsValid(space.StateToPose(c))
		})
}
