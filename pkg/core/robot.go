// pkg/core/robot.go
package core

import (
	"fmt"
	"strings"
	"time"
)

// RobotKind selects the kinematic model of a simulated robot.
type RobotKind string

// Supported robot kinds. The set is closed: every kind has a damping rule
// and an interpretation rule in internal/robot.
const (
	KindMobile   RobotKind = "mobile"
	KindArm      RobotKind = "arm"
	KindDrone    RobotKind = "drone"
	KindSpider   RobotKind = "spider"
	KindTank     RobotKind = "tank"
	KindHumanoid RobotKind = "humanoid"
)

// AllKinds returns every robot kind in display order.
func AllKinds() []RobotKind {
	return []RobotKind{KindMobile, KindArm, KindDrone, KindSpider, KindTank, KindHumanoid}
}

// ParseRobotKind converts a user-supplied name into a RobotKind.
func ParseRobotKind(s string) (RobotKind, error) {
	k := RobotKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown robot kind %q", s)
}

// Position3D is a plain position record used by storage and streaming.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// RobotSnapshot is a point-in-time copy of a robot's physical state.
type RobotSnapshot struct {
	Kind             RobotKind          `json:"kind"`
	Position         Position3D         `json:"position"`
	Yaw              float64            `json:"yaw"`
	Velocity         Position3D         `json:"velocity"`
	AngularVelocity  float64            `json:"angularVelocity"`
	JointAngles      map[string]float64 `json:"jointAngles,omitempty"`
	BatteryLevel     float64            `json:"batteryLevel"`
	IsGrabbing       bool               `json:"isGrabbing"`
	IsMoving         bool               `json:"isMoving"`
	DistanceTraveled float64            `json:"distanceTraveled"`
	ErrorCount       int                `json:"errorCount"`
}

// RobotStateSample is a snapshot tagged with the tick it was taken on.
type RobotStateSample struct {
	SessionID string
	Tick      uint64
	Time      time.Time
	Snapshot  RobotSnapshot
}
