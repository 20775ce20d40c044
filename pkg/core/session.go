// pkg/core/session.go
package core

import "time"

// Session describes one simulation run of a single robot.
type Session struct {
	ID          string
	RobotKind   RobotKind
	ChallengeID string
	StartTime   time.Time
	EndTime     time.Time
	Environment EnvironmentInfo
}

// EnvironmentInfo summarizes the static arena a session runs in.
type EnvironmentInfo struct {
	MinX          float64
	MaxX          float64
	MinZ          float64
	MaxZ          float64
	ObstacleCount int
}
