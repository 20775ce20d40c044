// Package gormstorage implements the storage.Backend interface on GORM
// with internal queues and a background DB writer goroutine. It serves
// both postgres and sqlite.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robolab-sim/engine/internal/config"
	"github.com/robolab-sim/engine/internal/database"
	"github.com/robolab-sim/engine/internal/model"
	"github.com/robolab-sim/engine/internal/model/convert"
	"github.com/robolab-sim/engine/internal/queue"
	"github.com/robolab-sim/engine/pkg/core"

	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued records are written.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	// DB is used as is when set; otherwise Init connects to postgres
	// with DBConfig.
	DB       *gorm.DB
	DBConfig config.DBConfig
	Logger   *slog.Logger
	// FlushInterval defaults to DefaultFlushInterval.
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	RobotStates          *queue.Queue[model.RobotState]
	Collisions           *queue.Queue[model.Collision]
	ObjectiveCompletions *queue.Queue[model.ObjectiveCompletion]
	ChallengeCompletions *queue.Queue[model.ChallengeCompletion]
	SequenceSteps        *queue.Queue[model.SequenceStep]
}

func newQueues() *queues {
	return &queues{
		RobotStates:          queue.New[model.RobotState](),
		Collisions:           queue.New[model.Collision](),
		ObjectiveCompletions: queue.New[model.ObjectiveCompletion](),
		ChallengeCompletions: queue.New[model.ChallengeCompletion](),
		SequenceSteps:        queue.New[model.SequenceStep](),
	}
}

// pending is the number of queued rows.
func (q *queues) pending() int {
	return q.RobotStates.Len() + q.Collisions.Len() + q.ObjectiveCompletions.Len() +
		q.ChallengeCompletions.Len() + q.SequenceSteps.Len()
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	log    *slog.Logger
	queues *queues

	mu        sync.Mutex // serialises flushes
	sessionID string

	stopChan chan struct{}
	stopped  chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		log:    deps.Logger.With("component", "gormstorage"),
		queues: newQueues(),
	}
}

// DB returns the connection the backend writes to. It is nil before a
// postgres backend's Init.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init connects if needed, migrates the schema and starts the DB writer
// goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres(b.deps.DBConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.log.Info("migrating schema", "dialect", b.deps.DB.Name())
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.stopped = make(chan struct{})
	go b.writerLoop()
	return nil
}

// Close stops the DB writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	<-b.stopped
	return nil
}

// StartSession inserts the session row synchronously so queued records
// always reference an existing session.
func (b *Backend) StartSession(s *core.Session) error {
	if b.deps.DB == nil {
		return errors.New("database not initialised")
	}
	row := convert.CoreToSession(*s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	b.mu.Lock()
	b.sessionID = s.ID
	b.mu.Unlock()
	return nil
}

// EndSession flushes every queue and stamps the session's end time.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	id := b.sessionID
	b.sessionID = ""
	b.mu.Unlock()

	if id == "" {
		return nil
	}
	b.Flush()
	if n := b.queues.pending(); n > 0 {
		b.log.Warn("rows left unwritten at session end", "sessionId", id, "pending", n)
	}
	return b.deps.DB.Model(&model.Session{}).
		Where("id = ?", id).
		Update("end_time", time.Now()).Error
}

// RecordRobotState converts and queues a robot state sample.
func (b *Backend) RecordRobotState(s *core.RobotStateSample) error {
	b.queues.RobotStates.Push(convert.CoreToRobotState(*s))
	return nil
}

// RecordCollision converts and queues a collision.
func (b *Backend) RecordCollision(e *core.CollisionEvent) error {
	b.queues.Collisions.Push(convert.CoreToCollision(*e))
	return nil
}

// RecordObjectiveCompleted converts and queues an objective completion.
func (b *Backend) RecordObjectiveCompleted(e *core.ObjectiveCompleted) error {
	b.queues.ObjectiveCompletions.Push(convert.CoreToObjectiveCompletion(*e))
	return nil
}

// RecordChallengeCompleted converts and queues a challenge completion and
// stamps the session row with the challenge.
func (b *Backend) RecordChallengeCompleted(e *core.ChallengeCompleted) error {
	b.queues.ChallengeCompletions.Push(convert.CoreToChallengeCompletion(*e))
	if b.deps.DB == nil {
		return nil
	}
	return b.deps.DB.Model(&model.Session{}).
		Where("id = ? AND challenge_id = ?", e.SessionID, "").
		Update("challenge_id", e.ChallengeID).Error
}

// RecordSequenceStep converts and queues a sequencer step.
func (b *Backend) RecordSequenceStep(e *core.SequenceStep) error {
	b.queues.SequenceSteps.Push(convert.CoreToSequenceStep(*e))
	return nil
}

// writeQueue writes all items from a queue to the database in a
// transaction. A failed batch goes back to the head of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) {
	if q.Empty() {
		return
	}

	items := q.GetAndEmpty()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		log.Error("failed to write queue", "queue", name, "count", len(items), "error", err)
		q.PushFront(items...)
	}
}

// Flush writes every queue now.
func (b *Backend) Flush() {
	if b.deps.DB == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	db := b.deps.DB
	writeQueue(db, b.queues.RobotStates, "robot states", b.log)
	writeQueue(db, b.queues.Collisions, "collisions", b.log)
	writeQueue(db, b.queues.ObjectiveCompletions, "objective completions", b.log)
	writeQueue(db, b.queues.ChallengeCompletions, "challenge completions", b.log)
	writeQueue(db, b.queues.SequenceSteps, "sequence steps", b.log)
}

// writerLoop periodically drains queues into the DB until Close.
func (b *Backend) writerLoop() {
	defer close(b.stopped)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.Flush()
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}
