// Package environment describes the static arena a robot drives in: a
// rectangular ground bound plus box and cylinder obstacles.
package environment

import (
	"fmt"
	"math"

	"github.com/robolab-sim/engine/internal/geo"
	"github.com/robolab-sim/engine/pkg/core"

	geom "github.com/peterstace/simplefeatures/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// RobotRadius is the footprint every robot kind is treated as having.
const RobotRadius = 0.5

// Shape is the obstacle footprint type.
type Shape string

const (
	ShapeBox      Shape = "box"
	ShapeCylinder Shape = "cylinder"
)

// Bounds is the drivable X/Z rectangle.
type Bounds struct {
	MinX float64 `json:"minX"`
	MaxX float64 `json:"maxX"`
	MinZ float64 `json:"minZ"`
	MaxZ float64 `json:"maxZ"`
}

// Contains reports whether the planar point lies inside or on the bounds.
func (b Bounds) Contains(xy geom.XY) bool {
	return xy.X >= b.MinX && xy.X <= b.MaxX && xy.Y >= b.MinZ && xy.Y <= b.MaxZ
}

// Obstacle is a static box or cylinder. HalfDimensions is used by boxes,
// Radius by cylinders.
type Obstacle struct {
	Shape          Shape   `json:"shape"`
	Position       r3.Vec  `json:"position"`
	HalfDimensions r3.Vec  `json:"halfDimensions,omitempty"`
	Radius         float64 `json:"radius,omitempty"`
}

// blocks reports whether a robot centred at xy would overlap the obstacle.
func (o Obstacle) blocks(xy geom.XY) bool {
	d := xy.Sub(geo.Planar(o.Position))
	switch o.Shape {
	case ShapeBox:
		return math.Abs(d.X) < o.HalfDimensions.X+RobotRadius &&
			math.Abs(d.Y) < o.HalfDimensions.Z+RobotRadius
	case ShapeCylinder:
		return d.Length() < o.Radius+RobotRadius
	default:
		return false
	}
}

// Environment is immutable once built; the collision predicate only reads it.
type Environment struct {
	bounds    Bounds
	obstacles []Obstacle
}

// New validates the bounds and obstacles and builds an Environment.
func New(bounds Bounds, obstacles ...Obstacle) (*Environment, error) {
	if bounds.MinX >= bounds.MaxX || bounds.MinZ >= bounds.MaxZ {
		return nil, fmt.Errorf("invalid bounds: %+v", bounds)
	}
	for i, o := range obstacles {
		if !geo.IsFinite(o.Position) {
			return nil, fmt.Errorf("obstacle %d: %w", i, geo.ErrInvalidCoordinates)
		}
		switch o.Shape {
		case ShapeBox:
			if o.HalfDimensions.X <= 0 || o.HalfDimensions.Z <= 0 {
				return nil, fmt.Errorf("obstacle %d: box needs positive half dimensions", i)
			}
		case ShapeCylinder:
			if o.Radius <= 0 {
				return nil, fmt.Errorf("obstacle %d: cylinder needs a positive radius", i)
			}
		default:
			return nil, fmt.Errorf("obstacle %d: unknown shape %q", i, o.Shape)
		}
	}
	obs := make([]Obstacle, len(obstacles))
	copy(obs, obstacles)
	return &Environment{bounds: bounds, obstacles: obs}, nil
}

// Open returns an obstacle free environment with the given bounds.
func Open(bounds Bounds) *Environment {
	return &Environment{bounds: bounds}
}

// Bounds returns the drivable rectangle.
func (e *Environment) Bounds() Bounds {
	return e.bounds
}

// Obstacles returns a copy of the obstacle list in declaration order.
func (e *Environment) Obstacles() []Obstacle {
	out := make([]Obstacle, len(e.obstacles))
	copy(out, e.obstacles)
	return out
}

// Collides reports whether a robot centred at position would leave the
// bounds or overlap any obstacle. Height is ignored.
func (e *Environment) Collides(position r3.Vec) bool {
	if !geo.IsFinite(position) {
		return true
	}
	xy := geo.Planar(position)
	if !e.bounds.Contains(xy) {
		return true
	}
	for _, o := range e.obstacles {
		if o.blocks(xy) {
			return true
		}
	}
	return false
}

// Info summarises the environment for session records.
func (e *Environment) Info() core.EnvironmentInfo {
	return core.EnvironmentInfo{
		MinX:          e.bounds.MinX,
		MaxX:          e.bounds.MaxX,
		MinZ:          e.bounds.MinZ,
		MaxZ:          e.bounds.MaxZ,
		ObstacleCount: len(e.obstacles),
	}
}
