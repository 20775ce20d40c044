// Package session owns one simulated robot: its physical state, the arena
// it drives in, the loaded challenge and the sequencer that drives it. A
// Session is the single writer of robot state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robolab-sim/engine/internal/cache"
	"github.com/robolab-sim/engine/internal/command"
	"github.com/robolab-sim/engine/internal/curriculum"
	"github.com/robolab-sim/engine/internal/dispatcher"
	"github.com/robolab-sim/engine/internal/environment"
	"github.com/robolab-sim/engine/internal/geo"
	"github.com/robolab-sim/engine/internal/objective"
	"github.com/robolab-sim/engine/internal/parser"
	"github.com/robolab-sim/engine/internal/physics"
	"github.com/robolab-sim/engine/internal/robot"
	"github.com/robolab-sim/engine/internal/sensor"
	"github.com/robolab-sim/engine/internal/sequencer"
	"github.com/robolab-sim/engine/pkg/core"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNoChallenge is returned by operations that need a loaded challenge.
var ErrNoChallenge = errors.New("no challenge loaded")

// Publisher receives engine notifications. *dispatcher.Dispatcher
// satisfies it.
type Publisher interface {
	Publish(command string, payload any) error
}

// Dependencies are the collaborators a Session uses. Every field is
// optional.
type Dependencies struct {
	Publisher Publisher
	Parser    *parser.Parser
	Criteria  *cache.CriteriaCache
	Progress  curriculum.Progress
	Logger    *slog.Logger
}

// TickResult describes one tick.
type TickResult struct {
	Tick      uint64
	Step      physics.StepResult
	Objective objective.Result
	Sampled   bool
	// Halted is set when the depleted battery policy stopped the robot.
	Halted bool
}

// ObjectiveStatus is the progress of one objective of the loaded challenge.
type ObjectiveStatus struct {
	Criterion objective.Criterion `json:"criterion"`
	Progress  float64             `json:"progress"`
	Completed bool                `json:"completed"`
}

// Status is a point-in-time summary for hosts.
type Status struct {
	SessionID   string               `json:"sessionId"`
	Tick        uint64               `json:"tick"`
	Robot       core.RobotSnapshot   `json:"robot"`
	ChallengeID string               `json:"challengeId,omitempty"`
	Objectives  []ObjectiveStatus    `json:"objectives,omitempty"`
	Finished    bool                 `json:"finished"`
	Sequencer   string               `json:"sequencer"`
	Collisions  int                  `json:"collisions"`
	Environment core.EnvironmentInfo `json:"environment"`
}

// logMeta is read by the logging context provider without taking mu.
type logMeta struct {
	kind        core.RobotKind
	challengeID string
}

// Session is safe for concurrent use.
type Session struct {
	id   string
	cfg  Config
	deps Dependencies
	log  *slog.Logger

	mu        sync.Mutex
	state     *robot.State
	arena     *environment.Environment
	env       *environment.Environment
	eval      *objective.Evaluator
	tick      uint64
	startTime time.Time
	endTime   time.Time

	challenge  *curriculum.Context
	collisions cache.SafeCounter
	meta       atomic.Pointer[logMeta]

	sensors *sensor.Bank
	seq     *sequencer.Sequencer

	// OTEL metrics
	ticks     metric.Int64Counter
	collided  metric.Int64Counter
	completed metric.Int64Counter
}

// New creates a session with a fresh robot of cfg.RobotKind in an
// obstacle-free arena of cfg.Bounds.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(cfg Config, deps Dependencies) (*Session, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	if deps.Criteria == nil {
		deps.Criteria = cache.NewCriteriaCache()
	}

	arena, err := environment.New(cfg.Bounds)
	if err != nil {
		return nil, fmt.Errorf("session arena: %w", err)
	}
	state, err := robot.NewState(cfg.RobotKind)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		deps:      deps,
		state:     state,
		arena:     arena,
		env:       arena,
		eval:      objective.NewEvaluator(),
		challenge: curriculum.NewContext(),
		startTime: time.Now(),
	}
	s.log = deps.Logger.With("component", "session", "sessionId", s.id)
	s.meta.Store(&logMeta{kind: cfg.RobotKind})
	s.sensors = sensor.NewBank(s)

	s.seq, err = sequencer.New(s,
		sequencer.WithSettleGap(cfg.SettleGap),
		sequencer.WithLogger(s.log),
		sequencer.WithStepHook(s.reportStep),
	)
	if err != nil {
		return nil, err
	}

	m := meter()

	s.ticks, err = m.Int64Counter(
		"session.ticks",
		metric.WithDescription("Total integrator ticks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	s.collided, err = m.Int64Counter(
		"session.collisions",
		metric.WithDescription("Total steps rejected by collision"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating collisions counter: %w", err)
	}

	s.completed, err = m.Int64Counter(
		"session.objectives.completed",
		metric.WithDescription("Total objectives completed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating objectives counter: %w", err)
	}

	return s, nil
}

// ID is the session's UUID.
func (s *Session) ID() string {
	return s.id
}

// Sequencer returns the session's sequencer. Its target is the session.
func (s *Session) Sequencer() *sequencer.Sequencer {
	return s.seq
}

// Sensors returns the sensor bank reading this session's robot.
func (s *Session) Sensors() *sensor.Bank {
	return s.sensors
}

// ReadSensor reads one sensor of the current robot.
func (s *Session) ReadSensor(ctx context.Context, t sensor.Type) (sensor.Reading, error) {
	return s.sensors.Read(ctx, t)
}

// LogAttrs returns the attributes added to every log record while this
// session is active. It never blocks on the session lock.
func (s *Session) LogAttrs() []slog.Attr {
	m := s.meta.Load()
	attrs := []slog.Attr{
		slog.String("sessionId", s.id),
		slog.String("robot", string(m.kind)),
	}
	if m.challengeID != "" {
		attrs = append(attrs, slog.String("challengeId", m.challengeID))
	}
	return attrs
}

// Info describes the session for storage records.
func (s *Session) Info() core.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

func (s *Session) infoLocked() core.Session {
	return core.Session{
		ID:          s.id,
		RobotKind:   s.state.Kind,
		ChallengeID: s.eval.ChallengeID(),
		StartTime:   s.startTime,
		EndTime:     s.endTime,
		Environment: s.env.Info(),
	}
}

// Begin announces the session.
func (s *Session) Begin() {
	info := s.Info()
	s.log.Info("session started", "robot", info.RobotKind)
	s.publish(dispatcher.EventSessionStarted, info)
}

// End aborts any active run, stamps the end time and announces it.
func (s *Session) End() {
	s.seq.Abort()

	s.mu.Lock()
	if s.endTime.IsZero() {
		s.endTime = time.Now()
	}
	info := s.infoLocked()
	s.mu.Unlock()

	s.log.Info("session ended", "ticks", s.Tick(), "collisions", s.collisions.Value())
	s.publish(dispatcher.EventSessionEnded, info)
}

// SelectRobot replaces the robot with a fresh one of the given kind and
// resets objective progress. An active program is aborted first; it never
// carries over to the new robot.
func (s *Session) SelectRobot(kind core.RobotKind) error {
	state, err := robot.NewState(kind)
	if err != nil {
		return err
	}

	s.seq.Abort()

	s.mu.Lock()
	s.state = state
	s.eval.Reset()
	s.mu.Unlock()

	s.updateMeta(func(m *logMeta) { m.kind = kind })
	s.log.Info("robot selected", "robot", kind)
	return nil
}

// LoadChallenge loads a challenge's objectives and resets their progress.
// Criteria parsed with the challenge replace any cached for its id; a
// challenge without them reuses the cache or parses its objectives. A
// challenge that brings its own arena, or asks for another robot kind,
// gets a fresh robot.
func (s *Session) LoadChallenge(pc parser.ParsedChallenge) error {
	ch := pc.Challenge
	if ch.ID == "" {
		return errors.New("challenge has no id")
	}

	criteria := pc.Criteria
	if criteria != nil {
		s.deps.Criteria.Set(ch.ID, criteria)
	} else {
		criteria = s.deps.Criteria.GetOrCompute(ch.ID, func() []objective.Criterion {
			return s.deps.Parser.ParseCriteria(ch.Objectives)
		})
	}

	s.mu.Lock()
	kind := s.state.Kind
	if ch.RobotKind != "" {
		kind = ch.RobotKind
	}
	if pc.Environment != nil || kind != s.state.Kind {
		fresh, err := robot.NewState(kind)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.state = fresh
	}
	if pc.Environment != nil {
		s.env = pc.Environment
	} else {
		s.env = s.arena
	}
	s.eval.Load(ch.ID, criteria)
	s.mu.Unlock()

	s.challenge.SetChallenge(&ch, criteria)
	s.updateMeta(func(m *logMeta) {
		m.kind = kind
		m.challengeID = ch.ID
	})

	s.log.Info("challenge loaded", "challengeId", ch.ID, "objectives", len(criteria))
	for _, c := range criteria {
		s.log.Debug("objective criterion", "criterion", c.String())
	}
	return nil
}

// Challenge returns the loaded challenge.
func (s *Session) Challenge() *core.Challenge {
	return s.challenge.GetChallenge()
}

// Apply interprets a command against the robot. It implements
// sequencer.Target.
func (s *Session) Apply(c command.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return command.Interpret(s.state, c)
}

// Collides reports whether a robot centred at position would collide in
// the current arena.
func (s *Session) Collides(position r3.Vec) bool {
	s.mu.Lock()
	env := s.env
	s.mu.Unlock()
	return env.Collides(position)
}

// Snapshot copies the robot's current state.
func (s *Session) Snapshot() core.RobotSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// Robot returns a deep copy of the robot state.
func (s *Session) Robot() *robot.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Tick returns the number of ticks run so far.
func (s *Session) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Collisions returns the number of rejected steps so far.
func (s *Session) Collisions() int {
	return s.collisions.Value()
}

// Step advances the session by dt seconds: integrate, then evaluate, then
// publish whatever the tick produced.
func (s *Session) Step(dt float64) TickResult {
	s.mu.Lock()
	s.tick++
	res := TickResult{Tick: s.tick}
	res.Step = physics.Step(s.state, s.env, dt)
	res.Objective = s.eval.Update(res.Step.Delta, res.Step.YawDelta)

	if s.cfg.StopOnDepletedBattery && s.state.BatteryLevel <= 0 &&
		(s.state.IsMoving || s.state.AngularVelocity != 0 || s.state.Velocity != (r3.Vec{})) {
		s.state.Halt()
		res.Halted = true
	}

	now := time.Now()
	var collision *core.CollisionEvent
	if res.Step.Collided {
		collision = &core.CollisionEvent{
			SessionID: s.id,
			Tick:      s.tick,
			Time:      now,
			Position:  geo.ToPosition3D(s.state.Position),
			Candidate: geo.ToPosition3D(res.Step.Candidate),
		}
	}
	var sample *core.RobotStateSample
	if s.cfg.SampleEvery > 0 && s.tick%uint64(s.cfg.SampleEvery) == 0 {
		sample = &core.RobotStateSample{SessionID: s.id, Tick: s.tick, Time: now, Snapshot: s.state.Snapshot()}
		res.Sampled = true
	}
	s.mu.Unlock()

	ctx := context.Background()
	s.ticks.Add(ctx, 1)

	if collision != nil {
		s.collisions.Inc()
		s.collided.Add(ctx, 1)
		s.log.Debug("collision", "tick", res.Tick, "candidate", collision.Candidate)
		s.publish(dispatcher.EventCollision, *collision)
	}
	s.announce(res.Objective, res.Tick, now)
	if res.Halted {
		s.log.Warn("battery depleted, robot stopped", "tick", res.Tick)
	}
	if sample != nil {
		s.publish(dispatcher.EventRobotState, *sample)
	}
	return res
}

// MarkObjective completes an objective explicitly, for objectives whose
// description yields no motion criterion. It reports false when the
// objective is unknown or already complete.
func (s *Session) MarkObjective(objectiveID string) (objective.Result, bool, error) {
	s.mu.Lock()
	if s.eval.ChallengeID() == "" {
		s.mu.Unlock()
		return objective.Result{}, false, ErrNoChallenge
	}
	res, ok := s.eval.MarkCompleted(objectiveID)
	tick := s.tick
	s.mu.Unlock()

	if ok {
		s.announce(res, tick, time.Now())
	}
	return res, ok, nil
}

// Status summarises the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		SessionID:   s.id,
		Tick:        s.tick,
		Robot:       s.state.Snapshot(),
		ChallengeID: s.eval.ChallengeID(),
		Finished:    s.eval.Finished(),
		Environment: s.env.Info(),
	}
	for _, c := range s.eval.Criteria() {
		st.Objectives = append(st.Objectives, ObjectiveStatus{
			Criterion: c,
			Progress:  s.eval.Progress(c.ObjectiveID),
			Completed: s.eval.Completed(c.ObjectiveID),
		})
	}
	s.mu.Unlock()

	st.Sequencer = s.seq.State().String()
	st.Collisions = s.collisions.Value()
	return st
}

// Run ticks the session every interval until ctx is done.
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid tick interval %s", interval)
	}
	dt := interval.Seconds()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Step(dt)
		}
	}
}

// announce publishes completions and records a finished challenge.
func (s *Session) announce(res objective.Result, tick uint64, now time.Time) {
	if res.Empty() {
		return
	}
	ctx := context.Background()
	for _, c := range res.Completed {
		s.completed.Add(ctx, 1, metric.WithAttributes(attribute.String("challenge", res.ChallengeID)))
		s.log.Info("objective completed", "challengeId", res.ChallengeID, "objectiveId", c.ObjectiveID, "progress", c.Progress)
		s.publish(dispatcher.EventObjectiveCompleted, core.ObjectiveCompleted{
			SessionID:   s.id,
			ChallengeID: res.ChallengeID,
			ObjectiveID: c.ObjectiveID,
			Tick:        tick,
			Time:        now,
			Progress:    c.Progress,
		})
	}
	if !res.ChallengeCompleted {
		return
	}

	s.log.Info("challenge completed", "challengeId", res.ChallengeID)
	if s.deps.Progress != nil {
		if err := s.deps.Progress.MarkCompleted(ctx, res.ChallengeID, now); err != nil {
			s.log.Error("failed to record challenge progress", "error", err)
		}
	}
	s.publish(dispatcher.EventChallengeCompleted, core.ChallengeCompleted{
		SessionID:   s.id,
		ChallengeID: res.ChallengeID,
		Tick:        tick,
		Time:        now,
	})
}

func (s *Session) reportStep(st sequencer.Step) {
	step := core.SequenceStep{
		SessionID: s.id,
		Index:     st.Index,
		Total:     st.Total,
		Action:    st.Action.String(),
		Time:      time.Now(),
	}
	if st.Err != nil {
		step.Err = st.Err.Error()
	}
	s.publish(dispatcher.EventSequenceStep, step)
}

func (s *Session) publish(event string, payload any) {
	if s.deps.Publisher == nil {
		return
	}
	if err := s.deps.Publisher.Publish(event, payload); err != nil {
		s.log.Warn("failed to publish event", "event", event, "error", err)
	}
}

func (s *Session) updateMeta(fn func(*logMeta)) {
	m := *s.meta.Load()
	fn(&m)
	s.meta.Store(&m)
}
