// pkg/core/events.go
package core

import (
	"time"
)

// ObjectiveCompleted is emitted once when an objective's progress first
// reaches its threshold, or when it is explicitly marked complete.
type ObjectiveCompleted struct {
	SessionID   string    `json:"sessionId"`
	ChallengeID string    `json:"challengeId"`
	ObjectiveID string    `json:"objectiveId"`
	Tick        uint64    `json:"tick"`
	Time        time.Time `json:"time"`
	Progress    float64   `json:"progress"`
}

// ChallengeCompleted is emitted once when every objective of a challenge
// has completed.
type ChallengeCompleted struct {
	SessionID   string    `json:"sessionId"`
	ChallengeID string    `json:"challengeId"`
	Tick        uint64    `json:"tick"`
	Time        time.Time `json:"time"`
}

// CollisionEvent records an integrator step that was rejected because the
// candidate position collided with the environment.
type CollisionEvent struct {
	SessionID string     `json:"sessionId"`
	Tick      uint64     `json:"tick"`
	Time      time.Time  `json:"time"`
	Position  Position3D `json:"position"`
	Candidate Position3D `json:"candidate"`
}

// SequenceStep reports progress of the execution sequencer.
type SequenceStep struct {
	SessionID string    `json:"sessionId"`
	Index     int       `json:"index"`
	Total     int       `json:"total"`
	Action    string    `json:"action"`
	Time      time.Time `json:"time"`
	Err       string    `json:"error,omitempty"`
}
