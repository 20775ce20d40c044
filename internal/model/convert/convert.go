package convert

import (
	"encoding/json"

	"github.com/robolab-sim/engine/internal/model"
	"github.com/robolab-sim/engine/pkg/core"

	"gorm.io/datatypes"
)

// jsonToJointAngles decodes stored joint angles. Empty objects decode to nil.
func jsonToJointAngles(data datatypes.JSON) map[string]float64 {
	if len(data) == 0 {
		return nil
	}
	var angles map[string]float64
	if err := json.Unmarshal(data, &angles); err != nil || len(angles) == 0 {
		return nil
	}
	return angles
}

// SessionToCore converts a GORM Session to a core.Session.
func SessionToCore(s model.Session) core.Session {
	out := core.Session{
		ID:          s.ID,
		RobotKind:   core.RobotKind(s.RobotKind),
		ChallengeID: s.ChallengeID,
		StartTime:   s.StartTime,
		Environment: core.EnvironmentInfo{
			MinX:          s.Arena.MinX,
			MaxX:          s.Arena.MaxX,
			MinZ:          s.Arena.MinZ,
			MaxZ:          s.Arena.MaxZ,
			ObstacleCount: s.Arena.ObstacleCount,
		},
	}
	if s.EndTime.Valid {
		out.EndTime = s.EndTime.Time
	}
	return out
}

// RobotStateToCore converts a GORM RobotState back to a tagged snapshot.
// The robot kind is not stored per sample and must be filled by the caller.
func RobotStateToCore(s model.RobotState) core.RobotStateSample {
	return core.RobotStateSample{
		SessionID: s.SessionID,
		Tick:      s.Tick,
		Time:      s.Time,
		Snapshot: core.RobotSnapshot{
			Position:         core.Position3D{X: s.X, Y: s.Y, Z: s.Z},
			Yaw:              s.Yaw,
			Velocity:         core.Position3D{X: s.VelocityX, Y: s.VelocityY, Z: s.VelocityZ},
			AngularVelocity:  s.AngularVelocity,
			JointAngles:      jsonToJointAngles(s.JointAngles),
			BatteryLevel:     s.BatteryLevel,
			IsGrabbing:       s.IsGrabbing,
			IsMoving:         s.IsMoving,
			DistanceTraveled: s.DistanceTraveled,
			ErrorCount:       s.ErrorCount,
		},
	}
}

// CollisionToCore converts a GORM Collision to a core.CollisionEvent.
func CollisionToCore(c model.Collision) core.CollisionEvent {
	return core.CollisionEvent{
		SessionID: c.SessionID,
		Tick:      c.Tick,
		Time:      c.Time,
		Position:  core.Position3D{X: c.X, Y: c.Y, Z: c.Z},
		Candidate: core.Position3D{X: c.CandidateX, Y: c.CandidateY, Z: c.CandidateZ},
	}
}

// ObjectiveCompletionToCore converts a GORM ObjectiveCompletion.
func ObjectiveCompletionToCore(o model.ObjectiveCompletion) core.ObjectiveCompleted {
	return core.ObjectiveCompleted{
		SessionID:   o.SessionID,
		ChallengeID: o.ChallengeID,
		ObjectiveID: o.ObjectiveID,
		Tick:        o.Tick,
		Time:        o.Time,
		Progress:    o.Progress,
	}
}

// ChallengeCompletionToCore converts a GORM ChallengeCompletion.
func ChallengeCompletionToCore(c model.ChallengeCompletion) core.ChallengeCompleted {
	return core.ChallengeCompleted{
		SessionID:   c.SessionID,
		ChallengeID: c.ChallengeID,
		Tick:        c.Tick,
		Time:        c.Time,
	}
}

// SequenceStepToCore converts a GORM SequenceStep.
func SequenceStepToCore(s model.SequenceStep) core.SequenceStep {
	return core.SequenceStep{
		SessionID: s.SessionID,
		Index:     s.Index,
		Total:     s.Total,
		Action:    s.Action,
		Time:      s.Time,
		Err:       s.Error,
	}
}
