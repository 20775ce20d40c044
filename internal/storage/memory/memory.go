// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sync"

	"github.com/robolab-sim/engine/internal/config"
	"github.com/robolab-sim/engine/pkg/core"
)

// ErrNoSession is returned when a record arrives outside a session.
var ErrNoSession = errors.New("no session started")

// Backend keeps one session in memory and exports it to JSON when the
// session ends.
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	states     []core.RobotStateSample
	collisions []core.CollisionEvent
	objectives []core.ObjectiveCompleted
	challenges []core.ChallengeCompleted
	steps      []core.SequenceStep

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session and drops anything recorded
// for the previous one.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := *s
	b.session = &cp
	b.states = nil
	b.collisions = nil
	b.objectives = nil
	b.challenges = nil
	b.steps = nil
	return nil
}

// EndSession exports the session. The recorded data stays readable until
// the next StartSession.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	return b.exportJSON()
}

// GetExportedFilePath returns the file written by the last EndSession.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// RecordRobotState appends a state sample.
func (b *Backend) RecordRobotState(s *core.RobotStateSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.states = append(b.states, *s)
	return nil
}

// RecordCollision appends a collision.
func (b *Backend) RecordCollision(e *core.CollisionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.collisions = append(b.collisions, *e)
	return nil
}

// RecordObjectiveCompleted appends an objective completion.
func (b *Backend) RecordObjectiveCompleted(e *core.ObjectiveCompleted) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.objectives = append(b.objectives, *e)
	return nil
}

// RecordChallengeCompleted appends a challenge completion and stamps the
// session with the challenge if it had none.
func (b *Backend) RecordChallengeCompleted(e *core.ChallengeCompleted) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	if b.session.ChallengeID == "" {
		b.session.ChallengeID = e.ChallengeID
	}
	b.challenges = append(b.challenges, *e)
	return nil
}

// RecordSequenceStep appends a sequencer step.
func (b *Backend) RecordSequenceStep(e *core.SequenceStep) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.steps = append(b.steps, *e)
	return nil
}

// Counts reports how many records of each kind are held.
type Counts struct {
	States     int
	Collisions int
	Objectives int
	Challenges int
	Steps      int
}

// Counts returns the number of records held for the current session.
func (b *Backend) Counts() Counts {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Counts{
		States:     len(b.states),
		Collisions: len(b.collisions),
		Objectives: len(b.objectives),
		Challenges: len(b.challenges),
		Steps:      len(b.steps),
	}
}
