// Package geom provides the vector and coordinate-frame math used to place
// relief geometry. A Frame is an orthonormal local coordinate system derived
// from a user-picked anchor; all placement computation happens relative to it.
package geom

import (
	"errors"
	"fmt"
	"math"
)

// Epsilon is the tolerance for degeneracy checks on lengths and dot products.
const Epsilon = 1e-9

// ErrDegenerateVector is returned when a direction vector has (near) zero length.
var ErrDegenerateVector = errors.New("degenerate vector: zero length")

// Vec3 is a 3D vector or point in modeling units.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and w.
func (v Vec3) Dot(w Vec3) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Cross returns the cross product v × w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

// Length returns the Euclidean length of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalized returns the unit vector in the direction of v.
// A vector of (near) zero length yields ErrDegenerateVector, never a NaN.
func (v Vec3) Normalized() (Vec3, error) {
	l := v.Length()
	if l < Epsilon {
		return Vec3{}, fmt.Errorf("normalize (%g, %g, %g): %w", v.X, v.Y, v.Z, ErrDegenerateVector)
	}
	return v.Scale(1 / l), nil
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}
