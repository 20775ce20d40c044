package parser

import (
	"github.com/robolab-sim/engine/internal/environment"
	"github.com/robolab-sim/engine/internal/objective"
	"github.com/robolab-sim/engine/pkg/core"
)

// ParsedChallenge holds a challenge with its objective criteria already
// extracted. Environment is nil when the challenge does not define an arena.
type ParsedChallenge struct {
	Challenge   core.Challenge
	Criteria    []objective.Criterion
	Environment *environment.Environment
}

// rawAction is the wire shape of one program entry.
type rawAction struct {
	Action     string   `json:"action"`
	Direction  string   `json:"direction,omitempty"`
	Speed      *float64 `json:"speed,omitempty"`
	Joint      string   `json:"joint,omitempty"`
	DurationMs float64  `json:"durationMs"`
}

type rawEnvironment struct {
	Bounds    environment.Bounds     `json:"bounds"`
	Obstacles []environment.Obstacle `json:"obstacles"`
}

type rawChallenge struct {
	core.Challenge
	Environment *rawEnvironment `json:"environment,omitempty"`
}
