// internal/storage/storage.go
package storage

import "github.com/robolab-sim/engine/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession() error

	// State recording
	RecordRobotState(s *core.RobotStateSample) error

	// Event recording
	RecordCollision(e *core.CollisionEvent) error
	RecordObjectiveCompleted(e *core.ObjectiveCompleted) error
	RecordChallengeCompleted(e *core.ChallengeCompleted) error
	RecordSequenceStep(e *core.SequenceStep) error
}

// Exportable is an optional interface for storage backends that write a
// session file when the session ends.
type Exportable interface {
	GetExportedFilePath() string
}
