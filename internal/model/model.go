package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&Session{},
	&RobotState{},
	&Collision{},
	&ObjectiveCompletion{},
	&ChallengeCompletion{},
	&SequenceStep{},
	&ChallengeProgress{},
}

////////////////////////
// SESSION MODELS
////////////////////////

// Session is one simulation run of a single robot
type Session struct {
	ID          string       `json:"id" gorm:"primaryKey;size:36"`
	RobotKind   string       `json:"robotKind" gorm:"size:16"`
	ChallengeID string       `json:"challengeId" gorm:"size:64;index:idx_session_challenge_id"`
	StartTime   time.Time    `json:"startTime" gorm:"index:idx_session_start"`
	EndTime     sql.NullTime `json:"endTime"`
	Arena       Arena        `json:"arena" gorm:"embedded;embeddedPrefix:arena_"`
}

func (*Session) TableName() string {
	return "sessions"
}

// Arena is the static environment summary stored with a session
type Arena struct {
	MinX          float64 `json:"minX"`
	MaxX          float64 `json:"maxX"`
	MinZ          float64 `json:"minZ"`
	MaxZ          float64 `json:"maxZ"`
	ObstacleCount int     `json:"obstacleCount"`
}

// RobotState is a sampled snapshot of the robot at a tick
type RobotState struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	SessionID string    `json:"sessionId" gorm:"size:36;index:idx_robotstate_session_id"`
	Tick      uint64    `json:"tick" gorm:"index:idx_robotstate_tick"`

	X                float64        `json:"x"`
	Y                float64        `json:"y"`
	Z                float64        `json:"z"`
	Yaw              float64        `json:"yaw"`
	VelocityX        float64        `json:"velocityX"`
	VelocityY        float64        `json:"velocityY"`
	VelocityZ        float64        `json:"velocityZ"`
	AngularVelocity  float64        `json:"angularVelocity"`
	JointAngles      datatypes.JSON `json:"jointAngles"`
	BatteryLevel     float64        `json:"batteryLevel"`
	IsGrabbing       bool           `json:"isGrabbing" gorm:"default:false"`
	IsMoving         bool           `json:"isMoving" gorm:"default:false"`
	DistanceTraveled float64        `json:"distanceTraveled"`
	ErrorCount       int            `json:"errorCount"`
}

func (*RobotState) TableName() string {
	return "robot_states"
}

////////////////////////
// EVENT MODELS
////////////////////////

// Collision is an integrator step rejected by the environment
type Collision struct {
	ID         uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time       time.Time `json:"time"`
	SessionID  string    `json:"sessionId" gorm:"size:36;index:idx_collision_session_id"`
	Tick       uint64    `json:"tick"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Z          float64   `json:"z"`
	CandidateX float64   `json:"candidateX"`
	CandidateY float64   `json:"candidateY"`
	CandidateZ float64   `json:"candidateZ"`
}

func (*Collision) TableName() string {
	return "collisions"
}

// ObjectiveCompletion records the first completion of an objective
type ObjectiveCompletion struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time `json:"time"`
	SessionID   string    `json:"sessionId" gorm:"size:36;index:idx_objective_session_id"`
	ChallengeID string    `json:"challengeId" gorm:"size:64"`
	ObjectiveID string    `json:"objectiveId" gorm:"size:64"`
	Tick        uint64    `json:"tick"`
	Progress    float64   `json:"progress"`
}

func (*ObjectiveCompletion) TableName() string {
	return "objective_completions"
}

// ChallengeCompletion records the tick every objective of a challenge was done
type ChallengeCompletion struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time `json:"time"`
	SessionID   string    `json:"sessionId" gorm:"size:36;index:idx_challenge_session_id"`
	ChallengeID string    `json:"challengeId" gorm:"size:64"`
	Tick        uint64    `json:"tick"`
}

func (*ChallengeCompletion) TableName() string {
	return "challenge_completions"
}

// SequenceStep records one action executed by the sequencer
type SequenceStep struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	SessionID string    `json:"sessionId" gorm:"size:36;index:idx_sequencestep_session_id"`
	Index     int       `json:"index"`
	Total     int       `json:"total"`
	Action    string    `json:"action" gorm:"size:64"`
	Error     string    `json:"error" gorm:"size:255"`
}

func (*SequenceStep) TableName() string {
	return "sequence_steps"
}

////////////////////////
// CURRICULUM MODELS
////////////////////////

// ChallengeProgress marks a challenge completed by a learner
type ChallengeProgress struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Learner     string    `json:"learner" gorm:"size:64;uniqueIndex:idx_progress_learner_challenge"`
	ChallengeID string    `json:"challengeId" gorm:"size:64;uniqueIndex:idx_progress_learner_challenge"`
	CompletedAt time.Time `json:"completedAt"`
}

func (*ChallengeProgress) TableName() string {
	return "challenge_progress"
}
