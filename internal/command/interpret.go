package command

import (
	"fmt"

	"github.com/robolab-sim/engine/internal/geo"
	"github.com/robolab-sim/engine/internal/robot"

	"gonum.org/v1/gonum/spatial/r3"
)

// Interpret applies a command to the target fields of a robot: velocity,
// angular velocity, joint angles and the grab flag. Position and yaw are
// left to the integrator. A rejected command leaves the state unchanged.
func Interpret(s *robot.State, c Command) error {
	switch c := c.(type) {
	case Move:
		return move(s, c)
	case MoveJoint:
		return moveJoint(s, c)
	case Rotate:
		return rotate(s, c)
	case Grab:
		s.IsGrabbing = true
	case Release:
		s.IsGrabbing = false
	case Stop:
		s.Halt()
		s.ActiveJoint = ""
	case nil:
		return fmt.Errorf("%w: nil command", ErrInvalidCommand)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, c)
	}
	return nil
}

func move(s *robot.State, c Move) error {
	if s.Profile.Mobility == robot.Fixed {
		return fmt.Errorf("%w: %s needs a joint on %s", ErrUnsupported, c, s.Kind)
	}
	heading := geo.Forward(s.Yaw)
	if c.Direction.Lateral() {
		heading = geo.Right(s.Yaw)
	}
	v := r3.Scale(c.Direction.Sign()*ClampSpeed(c.Speed)*s.Profile.MaxSpeed, heading)
	// Vertical velocity belongs to the hover controller.
	v.Y = s.Velocity.Y
	s.Velocity = v
	s.IsMoving = true
	return nil
}

func moveJoint(s *robot.State, c MoveJoint) error {
	if s.Profile.Mobility != robot.Fixed {
		return fmt.Errorf("%w: joint moves on %s", ErrUnsupported, s.Kind)
	}
	limit, ok := robot.JointLimit(c.Joint)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJoint, c.Joint)
	}
	if s.JointAngles == nil {
		s.JointAngles = make(map[string]float64)
	}
	angle := s.JointAngles[c.Joint] + c.Direction.Sign()*s.Profile.JointStep
	s.JointAngles[c.Joint] = limit.Clamp(angle)
	s.ActiveJoint = c.Joint
	s.IsMoving = true
	return nil
}

func rotate(s *robot.State, c Rotate) error {
	if s.Profile.Mobility == robot.Fixed {
		return fmt.Errorf("%w: rotate on %s", ErrUnsupported, s.Kind)
	}
	s.AngularVelocity = c.Direction.Sign() * ClampSpeed(c.Speed) * s.Profile.RotationSpeed
	s.IsMoving = true
	return nil
}
