// Package geo holds the vector and yaw helpers shared by the simulation
// packages. Positions are r3.Vec in metres with Y up; the ground plane is X/Z.
// Yaw 0 faces +Z and a positive yaw turns toward +X.
package geo

import (
	"errors"
	"math"

	"github.com/robolab-sim/engine/pkg/core"

	geom "github.com/peterstace/simplefeatures/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidCoordinates is returned for positions with NaN or infinite components.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// NormalizeYaw wraps an angle into (-pi, pi].
func NormalizeYaw(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// Forward is the unit heading for a yaw on the ground plane.
func Forward(yaw float64) r3.Vec {
	return r3.Vec{X: math.Sin(yaw), Y: 0, Z: math.Cos(yaw)}
}

// Right is the unit vector 90 degrees clockwise of Forward when seen from above.
func Right(yaw float64) r3.Vec {
	return r3.Vec{X: math.Cos(yaw), Y: 0, Z: -math.Sin(yaw)}
}

// RadToDeg converts radians to degrees.
func RadToDeg(r float64) float64 {
	return r * 180 / math.Pi
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Planar projects a position onto the ground plane (X stays X, Z becomes Y).
func Planar(v r3.Vec) geom.XY {
	return geom.XY{X: v.X, Y: v.Z}
}

// PlanarDistance is the X/Z distance between two positions.
func PlanarDistance(a, b r3.Vec) float64 {
	return Planar(a).Sub(Planar(b)).Length()
}

// ToPosition3D converts a vector into the storage record type.
func ToPosition3D(v r3.Vec) core.Position3D {
	return core.Position3D{X: v.X, Y: v.Y, Z: v.Z}
}

// FromPosition3D converts a storage record back into a vector.
func FromPosition3D(p core.Position3D) r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}
