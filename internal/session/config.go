package session

import (
	"fmt"
	"time"

	"github.com/robolab-sim/engine/internal/config"
	"github.com/robolab-sim/engine/internal/environment"
	"github.com/robolab-sim/engine/internal/sequencer"
	"github.com/robolab-sim/engine/pkg/core"
)

// Config holds the per-session simulation settings.
type Config struct {
	RobotKind core.RobotKind
	// Bounds is the arena used until a challenge brings its own.
	Bounds environment.Bounds
	// SampleEvery publishes a state sample every N ticks; 0 disables sampling.
	SampleEvery int
	// StopOnDepletedBattery halts the robot on any tick that ends at 0%.
	StopOnDepletedBattery bool
	SettleGap             time.Duration
	TickInterval          time.Duration
}

// DefaultConfig is a mobile robot in a 20x20 arena at 60 ticks per second.
func DefaultConfig() Config {
	return Config{
		RobotKind:    core.KindMobile,
		Bounds:       environment.Bounds{MinX: -10, MaxX: 10, MinZ: -10, MaxZ: 10},
		SampleEvery:  6,
		SettleGap:    sequencer.DefaultSettleGap,
		TickInterval: time.Second / 60,
	}
}

// ConfigFrom builds a Config from the loaded simulation settings.
func ConfigFrom(sc config.SimulationConfig, bounds environment.Bounds) (Config, error) {
	kind, err := core.ParseRobotKind(sc.RobotKind)
	if err != nil {
		return Config{}, fmt.Errorf("simulation.robotKind: %w", err)
	}
	return Config{
		RobotKind:             kind,
		Bounds:                bounds,
		SampleEvery:           sc.SampleEvery,
		StopOnDepletedBattery: sc.StopOnDepletedBattery,
		SettleGap:             sc.SettleGap,
		TickInterval:          sc.TickInterval(),
	}, nil
}
