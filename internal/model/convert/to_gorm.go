// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"

	"github.com/robolab-sim/engine/internal/model"
	"github.com/robolab-sim/engine/pkg/core"

	"gorm.io/datatypes"
)

// jointAnglesToJSON converts arm joint angles to datatypes.JSON for DB storage.
func jointAnglesToJSON(angles map[string]float64) datatypes.JSON {
	if len(angles) == 0 {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(angles)
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session to a GORM model.Session.
// A zero EndTime is stored as NULL.
func CoreToSession(s core.Session) model.Session {
	return model.Session{
		ID:          s.ID,
		RobotKind:   string(s.RobotKind),
		ChallengeID: s.ChallengeID,
		StartTime:   s.StartTime,
		EndTime:     sql.NullTime{Time: s.EndTime, Valid: !s.EndTime.IsZero()},
		Arena: model.Arena{
			MinX:          s.Environment.MinX,
			MaxX:          s.Environment.MaxX,
			MinZ:          s.Environment.MinZ,
			MaxZ:          s.Environment.MaxZ,
			ObstacleCount: s.Environment.ObstacleCount,
		},
	}
}

// CoreToRobotState flattens a state sample into a GORM model.RobotState.
func CoreToRobotState(s core.RobotStateSample) model.RobotState {
	snap := s.Snapshot
	return model.RobotState{
		Time:             s.Time,
		SessionID:        s.SessionID,
		Tick:             s.Tick,
		X:                snap.Position.X,
		Y:                snap.Position.Y,
		Z:                snap.Position.Z,
		Yaw:              snap.Yaw,
		VelocityX:        snap.Velocity.X,
		VelocityY:        snap.Velocity.Y,
		VelocityZ:        snap.Velocity.Z,
		AngularVelocity:  snap.AngularVelocity,
		JointAngles:      jointAnglesToJSON(snap.JointAngles),
		BatteryLevel:     snap.BatteryLevel,
		IsGrabbing:       snap.IsGrabbing,
		IsMoving:         snap.IsMoving,
		DistanceTraveled: snap.DistanceTraveled,
		ErrorCount:       snap.ErrorCount,
	}
}

// CoreToCollision converts a core.CollisionEvent to a GORM model.Collision.
func CoreToCollision(e core.CollisionEvent) model.Collision {
	return model.Collision{
		Time:       e.Time,
		SessionID:  e.SessionID,
		Tick:       e.Tick,
		X:          e.Position.X,
		Y:          e.Position.Y,
		Z:          e.Position.Z,
		CandidateX: e.Candidate.X,
		CandidateY: e.Candidate.Y,
		CandidateZ: e.Candidate.Z,
	}
}

// CoreToObjectiveCompletion converts a core.ObjectiveCompleted event.
func CoreToObjectiveCompletion(e core.ObjectiveCompleted) model.ObjectiveCompletion {
	return model.ObjectiveCompletion{
		Time:        e.Time,
		SessionID:   e.SessionID,
		ChallengeID: e.ChallengeID,
		ObjectiveID: e.ObjectiveID,
		Tick:        e.Tick,
		Progress:    e.Progress,
	}
}

// CoreToChallengeCompletion converts a core.ChallengeCompleted event.
func CoreToChallengeCompletion(e core.ChallengeCompleted) model.ChallengeCompletion {
	return model.ChallengeCompletion{
		Time:        e.Time,
		SessionID:   e.SessionID,
		ChallengeID: e.ChallengeID,
		Tick:        e.Tick,
	}
}

// CoreToSequenceStep converts a core.SequenceStep. Long errors are cut to
// the column size.
func CoreToSequenceStep(s core.SequenceStep) model.SequenceStep {
	errText := s.Err
	if len(errText) > 255 {
		errText = errText[:255]
	}
	return model.SequenceStep{
		Time:      s.Time,
		SessionID: s.SessionID,
		Index:     s.Index,
		Total:     s.Total,
		Action:    s.Action,
		Error:     errText,
	}
}
