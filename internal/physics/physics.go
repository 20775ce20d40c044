// Package physics advances a robot.State by one tick: per-kind damping,
// velocity integration, collision rejection and battery drain.
package physics

import (
	"math"

	"github.com/robolab-sim/engine/internal/geo"
	"github.com/robolab-sim/engine/internal/robot"

	"gonum.org/v1/gonum/spatial/r3"
)

// Collider is the read-only view of the environment the integrator needs.
type Collider interface {
	Collides(position r3.Vec) bool
}

// StepResult describes what a single tick did to the robot.
type StepResult struct {
	// Delta is the committed position change. Zero when the step collided.
	Delta     r3.Vec
	// YawDelta is the committed rotation in radians, not wrapped.
	YawDelta  float64
	// Candidate is the position the step tried to reach.
	Candidate r3.Vec
	Collided  bool
	Drained   float64
}

// Step integrates s over dt seconds against env. It never fails: a
// collision is recorded in the robot's error log and halts it.
func Step(s *robot.State, env Collider, dt float64) StepResult {
	var res StepResult
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return res
	}

	p := s.Profile
	if p.Mobility != robot.Fixed {
		damp(s, dt)
		res = integrate(s, env, dt)
	}

	res.Drained = drain(s, dt)
	return res
}

// damp applies Damping^dt. Drones first pull vertical velocity toward
// the hover altitude; legged robots never move vertically.
func damp(s *robot.State, dt float64) {
	p := s.Profile
	if p.Mobility == robot.Air {
		s.Velocity.Y += (p.HoverHeight - s.Position.Y) * p.HoverGain * dt
	}
	k := math.Pow(p.Damping, dt)
	s.Velocity = r3.Scale(k, s.Velocity)
	s.AngularVelocity *= k
	switch p.Mobility {
	case robot.Air:
		s.Velocity.Y *= math.Pow(p.VerticalDamping, dt)
	case robot.Legged:
		s.Velocity.Y = 0
	}
}

func integrate(s *robot.State, env Collider, dt float64) StepResult {
	step := r3.Scale(dt, s.Velocity)
	candidate := r3.Add(s.Position, step)
	if s.Profile.Mobility == robot.Legged {
		candidate.Y = s.Profile.StanceHeight
	}

	res := StepResult{Candidate: candidate}
	if env != nil && env.Collides(candidate) {
		s.Halt()
		s.LogFault(robot.CollisionFault)
		res.Collided = true
		return res
	}

	res.Delta = r3.Sub(candidate, s.Position)
	res.YawDelta = s.AngularVelocity * dt
	s.Position = candidate
	s.Yaw = geo.NormalizeYaw(s.Yaw + res.YawDelta)
	s.DistanceTraveled += r3.Norm(step)
	return res
}

func drain(s *robot.State, dt float64) float64 {
	rates := s.Profile.Drain
	rate := rates.Idle
	if s.IsMoving {
		rate = rates.Rotating
		if s.Profile.Mobility == robot.Fixed || geo.Planar(s.Velocity).Length() > 0 {
			rate = rates.Moving
		}
	}
	before := s.BatteryLevel
	s.SetBattery(before - rate*dt)
	return before - s.BatteryLevel
}
