package armpathfinder

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/armpathfinder/kinematics"
	"go.viam.com/armpathfinder/messenger"
	"go.viam.com/armpathfinder/motionplan"
	"go.viam.com/armpathfinder/spatialmath"
)

// DefaultMessagePrefix prefixes every message name the service uses.
const DefaultMessagePrefix = "Pathfinder:Arm:"

// Names holds the message names of one service instance.
type Names struct {
	Calc    string
	Path    string
	GetInfo string
	Info    string
}

// NewNames returns the message names under prefix.
func NewNames(prefix string) Names {
	if prefix == "" {
		prefix = DefaultMessagePrefix
	}
	return Names{
		Calc:    prefix + "Calc",
		Path:    prefix + "Path",
		GetInfo: prefix + "GetInfo",
		Info:    prefix + "Info",
	}
}

// CalcRequest asks for a path between two poses.
type CalcRequest struct {
	Start kinematics.Pose
	Goal  kinematics.Pose
}

// EncodeCalc encodes a Calc payload.
func EncodeCalc(req CalcRequest) []byte {
	data, _ := messenger.NewMessageBuilder().
		AddDouble(req.Start.Bottom).
		AddDouble(req.Start.Top).
		AddDouble(req.Goal.Bottom).
		AddDouble(req.Goal.Top).
		Bytes()
	return data
}

// DecodeCalc decodes a Calc payload. Trailing bytes are ignored.
func DecodeCalc(data []byte) (CalcRequest, error) {
	r := messenger.NewMessageReader(data)
	var values [4]float64
	for i := range values {
		v, err := r.ReadDouble()
		if err != nil {
			return CalcRequest{}, errors.Wrap(err, "decoding calc request")
		}
		values[i] = v
	}
	return CalcRequest{
		Start: kinematics.Pose{Bottom: values[0], Top: values[1]},
		Goal:  kinematics.Pose{Bottom: values[2], Top: values[3]},
	}, nil
}

// EncodePath encodes a Path payload. Waypoints are only written when found is true.
func EncodePath(found bool, path []kinematics.Pose) []byte {
	builder := messenger.NewMessageBuilder().AddBoolean(found)
	if found {
		builder.AddInt(int32(len(path)))
		for _, pose := range path {
			builder.AddDouble(pose.Bottom).AddDouble(pose.Top)
		}
	}
	data, _ := builder.Bytes()
	return data
}

// DecodePath decodes a Path payload.
func DecodePath(data []byte) (bool, []kinematics.Pose, error) {
	r := messenger.NewMessageReader(data)
	found, err := r.ReadBoolean()
	if err != nil {
		return false, nil, errors.Wrap(err, "decoding path")
	}
	if !found {
		return false, nil, nil
	}
	count, err := r.ReadInt()
	if err != nil {
		return false, nil, errors.Wrap(err, "decoding path length")
	}
	if count < 0 {
		return false, nil, errors.Errorf("negative path length %d", count)
	}
	// each waypoint is two doubles
	if r.Remaining() < int(count)*16 {
		return false, nil, errors.Wrapf(messenger.ErrShortPayload, "path of %d waypoints", count)
	}
	path := make([]kinematics.Pose, 0, count)
	for i := int32(0); i < count; i++ {
		bottom, err := r.ReadDouble()
		if err != nil {
			return false, nil, err
		}
		top, err := r.ReadDouble()
		if err != nil {
			return false, nil, err
		}
		path = append(path, kinematics.Pose{Bottom: bottom, Top: top})
	}
	return true, path, nil
}

// Info describes the configuration space a service plans in, for display by other
// processes.
type Info struct {
	Width     int
	Height    int
	Bottom    motionplan.AngleRange
	Top       motionplan.AngleRange
	FrameSize float64
	Rects     []spatialmath.Rectangle
	// Cells is row-major, Width cells per row.
	Cells []bool
}

// NewInfo describes planner's grid.
func NewInfo(planner *motionplan.Planner) Info {
	grid := planner.Grid()
	space := planner.Space()
	arm := planner.Arm()
	cells := make([]bool, 0, grid.Width()*grid.Height())
	for y := 0; y < grid.Height(); y++ {
		for x := 0; x < grid.Width(); x++ {
			cells = append(cells, grid.CanPass(x, y))
		}
	}
	return Info{
		Width:     grid.Width(),
		Height:    grid.Height(),
		Bottom:    space.Bottom,
		Top:       space.Top,
		FrameSize: arm.FrameSize,
		Rects:     append([]spatialmath.Rectangle(nil), arm.CollisionRects...),
		Cells:     cells,
	}
}

// PassableCount returns the number of passable cells.
func (info Info) PassableCount() int {
	return lo.CountBy(info.Cells, func(passable bool) bool { return passable })
}

// EncodeInfo encodes an Info payload.
func EncodeInfo(info Info) []byte {
	builder := messenger.NewMessageBuilder().
		AddInt(int32(info.Width)).
		AddInt(int32(info.Height)).
		AddDouble(info.Bottom.Min).
		AddDouble(info.Bottom.Max).
		AddDouble(info.Top.Min).
		AddDouble(info.Top.Max).
		AddDouble(info.FrameSize).
		AddInt(int32(len(info.Rects)))
	for _, rect := range info.Rects {
		builder.
			AddDouble(rect.Center.X).
			AddDouble(rect.Center.Y).
			AddDouble(rect.Size.X).
			AddDouble(rect.Size.Y).
			AddDouble(rect.Rotation).
			AddBoolean(rect.Inverted)
	}
	for _, passable := range info.Cells {
		builder.AddBoolean(passable)
	}
	data, _ := builder.Bytes()
	return data
}

// DecodeInfo decodes an Info payload.
func DecodeInfo(data []byte) (Info, error) {
	r := messenger.NewMessageReader(data)
	var info Info
	ints := func(dst ...*int) error {
		for _, d := range dst {
			v, err := r.ReadInt()
			if err != nil {
				return err
			}
			*d = int(v)
		}
		return nil
	}
	doubles := func(dst ...*float64) error {
		for _, d := range dst {
			v, err := r.ReadDouble()
			if err != nil {
				return err
			}
			*d = v
		}
		return nil
	}

	if err := ints(&info.Width, &info.Height); err != nil {
		return Info{}, errors.Wrap(err, "decoding info size")
	}
	if info.Width < 0 || info.Height < 0 {
		return Info{}, errors.Errorf("negative grid size %dx%d", info.Width, info.Height)
	}
	if err := doubles(&info.Bottom.Min, &info.Bottom.Max, &info.Top.Min, &info.Top.Max, &info.FrameSize); err != nil {
		return Info{}, errors.Wrap(err, "decoding info ranges")
	}

	var rectCount int
	if err := ints(&rectCount); err != nil {
		return Info{}, errors.Wrap(err, "decoding info shape count")
	}
	if rectCount < 0 {
		return Info{}, errors.Errorf("negative shape count %d", rectCount)
	}
	for i := 0; i < rectCount; i++ {
		var center, size r2.Point
		var rect spatialmath.Rectangle
		if err := doubles(&center.X, &center.Y, &size.X, &size.Y, &rect.Rotation); err != nil {
			return Info{}, errors.Wrapf(err, "decoding shape %d", i)
		}
		inverted, err := r.ReadBoolean()
		if err != nil {
			return Info{}, errors.Wrapf(err, "decoding shape %d", i)
		}
		rect.Center, rect.Size, rect.Inverted = center, size, inverted
		info.Rects = append(info.Rects, rect)
	}

	cellCount := info.Width * info.Height
	if r.Remaining() < cellCount {
		return Info{}, errors.Wrapf(messenger.ErrShortPayload, "grid of %d cells", cellCount)
	}
	info.Cells = lo.Map(r.ReadAllData()[:cellCount], func(b byte, _ int) bool { return b != 0 })
	return info, nil
}
