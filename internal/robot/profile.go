package robot

import (
	"fmt"

	"github.com/robolab-sim/engine/pkg/core"
)

// Mobility selects how the integrator treats a kind.
type Mobility int

const (
	// Ground robots are damped by ground friction.
	Ground Mobility = iota
	// Air robots are damped by air resistance and hold a hover altitude.
	Air
	// Legged robots grip harder and keep a fixed stance height.
	Legged
	// Fixed robots have a stationary base; only joints move.
	Fixed
)

func (m Mobility) String() string {
	switch m {
	case Ground:
		return "ground"
	case Air:
		return "air"
	case Legged:
		return "legged"
	case Fixed:
		return "fixed"
	}
	return fmt.Sprintf("mobility(%d)", int(m))
}

// DrainRates are battery percentage points per second.
type DrainRates struct {
	Moving   float64
	Rotating float64
	Idle     float64
}

// Profile holds every per-kind constant. It is the single lookup point for
// damping and command interpretation rules.
type Profile struct {
	Kind     core.RobotKind
	Mobility Mobility

	// MaxSpeed in m/s at speed 1.0.
	MaxSpeed      float64
	// RotationSpeed in rad/s at speed 1.0.
	RotationSpeed float64
	// Damping is applied as Damping^dt to velocity and angular velocity.
	Damping       float64

	HoverHeight     float64
	HoverGain       float64
	// VerticalDamping settles the hover controller; air robots only.
	VerticalDamping float64
	StanceHeight    float64

	// JointStep is the angle in radians a single joint move adds.
	JointStep float64

	Drain DrainRates
}

// StartHeight is the Y a freshly created robot of this kind stands at.
func (p Profile) StartHeight() float64 {
	if p.Mobility == Legged {
		return p.StanceHeight
	}
	return 0
}

var profiles = map[core.RobotKind]Profile{
	core.KindMobile: {
		Kind:          core.KindMobile,
		Mobility:      Ground,
		MaxSpeed:      8,
		RotationSpeed: 1.5,
		Damping:       0.98,
		Drain:         DrainRates{Moving: 0.5, Rotating: 0.25, Idle: 0.01},
	},
	core.KindTank: {
		Kind:          core.KindTank,
		Mobility:      Ground,
		MaxSpeed:      4,
		RotationSpeed: 1.0,
		Damping:       0.98,
		Drain:         DrainRates{Moving: 0.8, Rotating: 0.4, Idle: 0.02},
	},
	core.KindHumanoid: {
		Kind:          core.KindHumanoid,
		Mobility:      Ground,
		MaxSpeed:      3,
		RotationSpeed: 1.2,
		Damping:       0.98,
		Drain:         DrainRates{Moving: 0.6, Rotating: 0.3, Idle: 0.02},
	},
	core.KindSpider: {
		Kind:          core.KindSpider,
		Mobility:      Legged,
		MaxSpeed:      4,
		RotationSpeed: 1.8,
		Damping:       0.9,
		StanceHeight:  0.3,
		Drain:         DrainRates{Moving: 0.7, Rotating: 0.35, Idle: 0.02},
	},
	core.KindDrone: {
		Kind:            core.KindDrone,
		Mobility:        Air,
		MaxSpeed:        8,
		RotationSpeed:   2.0,
		Damping:         0.995,
		HoverHeight:     2,
		HoverGain:       2,
		VerticalDamping: 0.1,
		Drain:           DrainRates{Moving: 1.0, Rotating: 0.6, Idle: 0.3},
	},
	core.KindArm: {
		Kind:      core.KindArm,
		Mobility:  Fixed,
		Damping:   1,
		JointStep: 0.05,
		Drain:     DrainRates{Moving: 0.3, Rotating: 0.3, Idle: 0.01},
	},
}

// ProfileFor returns the constants for a kind.
func ProfileFor(kind core.RobotKind) (Profile, error) {
	p, ok := profiles[kind]
	if !ok {
		return Profile{}, fmt.Errorf("no profile for robot kind %q", kind)
	}
	return p, nil
}
