package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFrame is returned when an anchor has no usable planar context.
var ErrInvalidFrame = errors.New("invalid frame: anchor has no planar context")

// PlanarContext carries the two in-plane direction vectors associated with an
// anchor, typically the X and Y axes of the sketch the anchor point lies on.
type PlanarContext struct {
	XDir Vec3
	YDir Vec3
}

// Anchor is a user-selected reference point together with its planar context.
// The context is optional at the type level; resolving an anchor without one
// fails with ErrInvalidFrame.
type Anchor struct {
	Point Vec3
	Plane *PlanarContext
}

// Frame is an orthonormal local coordinate system: an origin plus unit X, Y
// in-plane axes and the unit normal Z = X × Y. Frames are value types and
// are computed fresh for every operation; they are never cached across edits.
type Frame struct {
	Origin Vec3
	X, Y, Z Vec3
}

// Resolve derives a Frame from an anchor. The two supplied direction vectors
// are normalized independently; they are trusted to already be orthogonal
// (sketch axes are) and are NOT re-orthogonalized — non-orthogonal input
// produces a skewed placement, which is the caller's responsibility.
//
// Failure modes: ErrInvalidFrame when the planar context is missing or its
// axes are parallel, ErrDegenerateVector when either axis has zero length.
func Resolve(a Anchor) (Frame, error) {
	if a.Plane == nil {
		return Frame{}, ErrInvalidFrame
	}
	return NewFrame(a.Point, a.Plane.XDir, a.Plane.YDir)
}

// NewFrame builds a Frame from an origin and two in-plane direction vectors.
func NewFrame(origin, xDir, yDir Vec3) (Frame, error) {
	x, err := xDir.Normalized()
	if err != nil {
		return Frame{}, fmt.Errorf("frame X axis: %w", err)
	}
	y, err := yDir.Normalized()
	if err != nil {
		return Frame{}, fmt.Errorf("frame Y axis: %w", err)
	}
	// Parallel axes have no well-defined normal.
	z, err := x.Cross(y).Normalized()
	if err != nil {
		return Frame{}, fmt.Errorf("frame axes are parallel: %w", ErrInvalidFrame)
	}
	return Frame{Origin: origin, X: x, Y: y, Z: z}, nil
}

// WorldFrame returns the identity frame at the global origin.
func WorldFrame() Frame {
	return Frame{
		X: Vec3{X: 1},
		Y: Vec3{Y: 1},
		Z: Vec3{Z: 1},
	}
}

// ToWorld maps a frame-local point into world coordinates.
func (f Frame) ToWorld(p Vec3) Vec3 {
	return f.Origin.
		Add(f.X.Scale(p.X)).
		Add(f.Y.Scale(p.Y)).
		Add(f.Z.Scale(p.Z))
}

// EulerZYX decomposes the frame's rotation into Euler angles (degrees) such
// that Rz(z)·Ry(y)·Rx(x) maps the world basis onto the frame basis. This is
// the composition order the sdfx kernel backend applies rotations in.
func (f Frame) EulerZYX() (x, y, z float64) {
	// Rotation matrix columns are the frame axes.
	r00, r10, r20 := f.X.X, f.X.Y, f.X.Z
	r01, r11 := f.Y.X, f.Y.Y
	r21, r22 := f.Y.Z, f.Z.Z

	if math.Abs(r20) > 1-Epsilon {
		// Gimbal lock: pitch is ±90°, roll and yaw are coupled.
		y = math.Copysign(math.Pi/2, -r20)
		x = 0
		z = math.Atan2(-r01, r11)
	} else {
		y = math.Asin(-r20)
		x = math.Atan2(r21, r22)
		z = math.Atan2(r10, r00)
	}

	const toDeg = 180 / math.Pi
	return x * toDeg, y * toDeg, z * toDeg
}

// IsIdentity reports whether the frame is axis-aligned at the world origin
// within tolerance. Builders skip the orientation transform for such frames.
func (f Frame) IsIdentity() bool {
	id := WorldFrame()
	return f.Origin.Sub(id.Origin).Length() < Epsilon &&
		f.X.Sub(id.X).Length() < Epsilon &&
		f.Y.Sub(id.Y).Length() < Epsilon &&
		f.Z.Sub(id.Z).Length() < Epsilon
}
