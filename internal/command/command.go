// Package command defines the closed set of robot commands and translates
// them into target velocities and joint angles on a robot.State.
package command

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrUnknownAction is returned for an action name outside the closed set.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidCommand is returned for a field combination a command cannot carry.
	ErrInvalidCommand = errors.New("invalid command")
	// ErrUnsupported is returned when a robot kind cannot perform a command.
	ErrUnsupported = errors.New("command not supported by robot kind")
	// ErrUnknownJoint is returned for an arm joint without limits.
	ErrUnknownJoint = errors.New("unknown joint")
)

// Action names as they appear in action lists.
const (
	ActionMove    = "move"
	ActionRotate  = "rotate"
	ActionGrab    = "grab"
	ActionRelease = "release"
	ActionStop    = "stop"
)

// Speed bounds. Requests without a speed use DefaultSpeed.
const (
	MinSpeed     = 0.1
	MaxSpeed     = 1.0
	DefaultSpeed = 0.5
)

// Direction of a move, rotate or joint command.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
	Left     Direction = "left"
	Right    Direction = "right"
)

// Sign is +1 for forward and right, -1 for backward and left.
func (d Direction) Sign() float64 {
	if d == Backward || d == Left {
		return -1
	}
	return 1
}

// Lateral reports whether the direction strafes rather than drives.
func (d Direction) Lateral() bool {
	return d == Left || d == Right
}

func parseDirection(s string) (Direction, bool) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Forward, Backward, Left, Right:
		return d, true
	}
	return "", false
}

// Command is one of Move, MoveJoint, Rotate, Grab, Release or Stop.
type Command interface {
	Action() string
	fmt.Stringer
}

// Move drives the chassis along its forward or right axis.
type Move struct {
	Direction Direction
	Speed     float64
}

// MoveJoint steps one arm joint.
type MoveJoint struct {
	Joint     string
	Direction Direction
}

// Rotate spins the chassis about the vertical axis. Direction is Left or Right.
type Rotate struct {
	Direction Direction
	Speed     float64
}

// Grab closes the gripper.
type Grab struct{}

// Release opens the gripper.
type Release struct{}

// Stop halts all commanded motion.
type Stop struct{}

func (Move) Action() string { return ActionMove }

func (MoveJoint) Action() string { return ActionMove }

func (Rotate) Action() string { return ActionRotate }

func (Grab) Action() string { return ActionGrab }

func (Release) Action() string { return ActionRelease }

func (Stop) Action() string { return ActionStop }

func (c Move) String() string {
	return fmt.Sprintf("move %s %.2f", c.Direction, c.Speed)
}

func (c MoveJoint) String() string {
	return fmt.Sprintf("move %s joint=%s", c.Direction, c.Joint)
}

func (c Rotate) String() string {
	return fmt.Sprintf("rotate %s %.2f", c.Direction, c.Speed)
}

func (Grab) String() string { return ActionGrab }

func (Release) String() string { return ActionRelease }

func (Stop) String() string { return ActionStop }

// Request is the loose shape authoring surfaces produce. Parse turns it
// into a Command.
type Request struct {
	Action    string  `json:"action"`
	Direction string  `json:"direction,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
	Joint     string  `json:"joint,omitempty"`
}

// ClampSpeed maps a requested speed into [MinSpeed, MaxSpeed]. Zero means
// the request left speed out.
func ClampSpeed(speed float64) float64 {
	switch {
	case speed == 0 || math.IsNaN(speed):
		return DefaultSpeed
	case speed < MinSpeed:
		return MinSpeed
	case speed > MaxSpeed:
		return MaxSpeed
	}
	return speed
}

// Parse validates a request and builds the matching command.
func Parse(r Request) (Command, error) {
	action := strings.ToLower(strings.TrimSpace(r.Action))
	switch action {
	case ActionMove:
		dir, ok := parseDirection(r.Direction)
		if !ok {
			return nil, fmt.Errorf("%w: move direction %q", ErrInvalidCommand, r.Direction)
		}
		if r.Joint != "" {
			return MoveJoint{Joint: strings.ToLower(strings.TrimSpace(r.Joint)), Direction: dir}, nil
		}
		return Move{Direction: dir, Speed: ClampSpeed(r.Speed)}, nil
	case ActionRotate:
		if r.Joint != "" {
			return nil, fmt.Errorf("%w: rotate does not take a joint", ErrInvalidCommand)
		}
		dir, ok := parseDirection(r.Direction)
		if !ok || !dir.Lateral() {
			return nil, fmt.Errorf("%w: rotate direction %q", ErrInvalidCommand, r.Direction)
		}
		return Rotate{Direction: dir, Speed: ClampSpeed(r.Speed)}, nil
	case ActionGrab:
		return Grab{}, nil
	case ActionRelease:
		return Release{}, nil
	case ActionStop:
		return Stop{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, r.Action)
}
