// Package robot holds the mutable physical state of a simulated robot and
// the per-kind constants that the interpreter and integrator share.
package robot

import (
	"maps"
	"slices"

	"github.com/robolab-sim/engine/internal/geo"
	"github.com/robolab-sim/engine/pkg/core"

	"gonum.org/v1/gonum/spatial/r3"
)

// MaxBattery is the level a new robot starts at.
const MaxBattery = 100.0

// CollisionFault is appended to the error log when a step is rejected.
const CollisionFault = "Collision detected"

// State is the physical state of one robot. It is not safe for concurrent
// use; the owning session serialises access.
type State struct {
	Kind    core.RobotKind
	Profile Profile

	Position        r3.Vec
	Yaw             float64
	Velocity        r3.Vec
	AngularVelocity float64

	// JointAngles is only populated for arms.
	JointAngles map[string]float64
	// ActiveJoint is the joint the last arm move addressed.
	ActiveJoint string

	BatteryLevel float64
	IsGrabbing   bool
	IsMoving     bool

	ErrorLog         []string
	DistanceTraveled float64
}

// NewState creates a robot of the given kind at the origin with a full
// battery.
func NewState(kind core.RobotKind) (*State, error) {
	p, err := ProfileFor(kind)
	if err != nil {
		return nil, err
	}
	s := &State{
		Kind:         kind,
		Profile:      p,
		Position:     r3.Vec{Y: p.StartHeight()},
		BatteryLevel: MaxBattery,
	}
	if p.Mobility == Fixed {
		s.JointAngles = make(map[string]float64, len(jointLimits))
		for _, name := range JointNames() {
			s.JointAngles[name] = 0
		}
	}
	return s, nil
}

// LogFault appends to the error log.
func (s *State) LogFault(msg string) {
	s.ErrorLog = append(s.ErrorLog, msg)
}

// Halt zeroes all commanded motion.
func (s *State) Halt() {
	s.Velocity = r3.Vec{}
	s.AngularVelocity = 0
	s.IsMoving = false
}

// SetBattery stores a battery level clamped to [0, MaxBattery].
func (s *State) SetBattery(level float64) {
	s.BatteryLevel = geo.Clamp(level, 0, MaxBattery)
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.JointAngles = maps.Clone(s.JointAngles)
	c.ErrorLog = slices.Clone(s.ErrorLog)
	return &c
}

// Snapshot copies the state into the storage record form.
func (s *State) Snapshot() core.RobotSnapshot {
	return core.RobotSnapshot{
		Kind:             s.Kind,
		Position:         geo.ToPosition3D(s.Position),
		Yaw:              s.Yaw,
		Velocity:         geo.ToPosition3D(s.Velocity),
		AngularVelocity:  s.AngularVelocity,
		JointAngles:      maps.Clone(s.JointAngles),
		BatteryLevel:     s.BatteryLevel,
		IsGrabbing:       s.IsGrabbing,
		IsMoving:         s.IsMoving,
		DistanceTraveled: s.DistanceTraveled,
		ErrorCount:       len(s.ErrorLog),
	}
}
