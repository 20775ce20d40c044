package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/robolab-sim/engine/internal/cache"
	"github.com/robolab-sim/engine/internal/command"
	"github.com/robolab-sim/engine/internal/curriculum"
	"github.com/robolab-sim/engine/internal/dispatcher"
	"github.com/robolab-sim/engine/internal/environment"
	"github.com/robolab-sim/engine/internal/objective"
	"github.com/robolab-sim/engine/internal/parser"
	"github.com/robolab-sim/engine/internal/sensor"
	"github.com/robolab-sim/engine/internal/sequencer"
	"github.com/robolab-sim/engine/pkg/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const dt = 1.0 / 60

type published struct {
	event   string
	payload any
}

type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{event, payload})
	return nil
}

func (r *recorder) of(event string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.event == event {
			out = append(out, e.payload)
		}
	}
	return out
}

func newSession(t *testing.T, cfg Config) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	s, err := New(cfg, Dependencies{Publisher: rec})
	require.NoError(t, err)
	return s, rec
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Bounds = environment.Bounds{MinX: -50, MaxX: 50, MinZ: -50, MaxZ: 50}
	cfg.SampleEvery = 0
	cfg.SettleGap = 0
	return cfg
}

func challenge(id string, objectives ...core.Objective) parser.ParsedChallenge {
	ch := core.Challenge{ID: id, Objectives: objectives}
	return parser.ParsedChallenge{
		Challenge: ch,
		Criteria:  parser.NewParser(nil).ParseCriteria(objectives),
	}
}

func steps(s *Session, n int) {
	for range n {
		s.Step(dt)
	}
}

func TestNew(t *testing.T) {
	s, _ := newSession(t, testConfig())

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, core.KindMobile, s.Snapshot().Kind)
	assert.Equal(t, 100.0, s.Snapshot().BatteryLevel)
	assert.Equal(t, sequencer.Idle, s.Sequencer().State())

	info := s.Info()
	assert.Equal(t, s.ID(), info.ID)
	assert.Equal(t, core.KindMobile, info.RobotKind)
	assert.Equal(t, -50.0, info.Environment.MinX)
	assert.True(t, info.EndTime.IsZero())
}

func TestNew_InvalidBounds(t *testing.T) {
	cfg := testConfig()
	cfg.Bounds = environment.Bounds{MinX: 5, MaxX: -5, MinZ: -5, MaxZ: 5}
	_, err := New(cfg, Dependencies{})
	assert.Error(t, err)
}

func TestBeginEnd(t *testing.T) {
	s, rec := newSession(t, testConfig())

	s.Begin()
	s.End()

	require.Len(t, rec.of(dispatcher.EventSessionStarted), 1)
	ended := rec.of(dispatcher.EventSessionEnded)
	require.Len(t, ended, 1)
	info := ended[0].(core.Session)
	assert.Equal(t, s.ID(), info.ID)
	assert.False(t, info.EndTime.IsZero())
}

func TestStep_DriveForwardCompletesObjective(t *testing.T) {
	s, rec := newSession(t, testConfig())
	progress := curriculum.NewMemoryProgress()
	s.deps.Progress = progress

	require.NoError(t, s.LoadChallenge(challenge("first-steps",
		core.Objective{ID: "fwd", Description: "Move forward 5 meters"})))
	require.NoError(t, s.Apply(command.Move{Direction: command.Forward, Speed: 0.5}))

	steps(s, 120)

	assert.Greater(t, s.Snapshot().Position.Z, 5.0)
	completed := rec.of(dispatcher.EventObjectiveCompleted)
	require.Len(t, completed, 1)
	oc := completed[0].(core.ObjectiveCompleted)
	assert.Equal(t, "first-steps", oc.ChallengeID)
	assert.Equal(t, "fwd", oc.ObjectiveID)
	assert.GreaterOrEqual(t, oc.Progress, 5.0)
	assert.Equal(t, s.ID(), oc.SessionID)

	require.Len(t, rec.of(dispatcher.EventChallengeCompleted), 1)
	done, err := progress.IsCompleted(context.Background(), "first-steps")
	require.NoError(t, err)
	assert.True(t, done)

	// further motion does not complete anything again
	require.NoError(t, s.Apply(command.Move{Direction: command.Forward, Speed: 1}))
	steps(s, 60)
	assert.Len(t, rec.of(dispatcher.EventObjectiveCompleted), 1)
	assert.Len(t, rec.of(dispatcher.EventChallengeCompleted), 1)
}

func TestStep_RotateCompletesAtNinetyDegrees(t *testing.T) {
	s, rec := newSession(t, testConfig())
	require.NoError(t, s.LoadChallenge(parser.ParsedChallenge{
		Challenge: core.Challenge{ID: "turn"},
		Criteria: []objective.Criterion{
			{ObjectiveID: "r90", Kind: objective.KindRotate, Axis: objective.AxisY, Sign: 1, Threshold: 90},
		},
	}))
	require.NoError(t, s.Apply(command.Rotate{Direction: command.Right, Speed: 1}))

	for i := 0; i < 600 && len(rec.of(dispatcher.EventObjectiveCompleted)) == 0; i++ {
		res := s.Step(dt)
		if res.Objective.Empty() {
			continue
		}
		assert.GreaterOrEqual(t, res.Objective.Completed[0].Progress, 90.0)
	}
	require.Len(t, rec.of(dispatcher.EventObjectiveCompleted), 1)
}

func TestStep_CollisionIsPublished(t *testing.T) {
	s, rec := newSession(t, testConfig())
	env, err := environment.New(
		environment.Bounds{MinX: -5, MaxX: 5, MinZ: -5, MaxZ: 5},
		environment.Obstacle{Shape: environment.ShapeBox, Position: r3.Vec{X: 2}, HalfDimensions: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}},
	)
	require.NoError(t, err)
	pc := challenge("walls")
	pc.Environment = env
	require.NoError(t, s.LoadChallenge(pc))
	require.NoError(t, s.Apply(command.Move{Direction: command.Right, Speed: 1}))

	steps(s, 60)

	snap := s.Snapshot()
	assert.Less(t, snap.Position.X, 1.0)
	assert.False(t, snap.IsMoving)
	assert.Equal(t, 1, snap.ErrorCount)
	assert.Equal(t, 1, s.Collisions())

	collisions := rec.of(dispatcher.EventCollision)
	require.Len(t, collisions, 1)
	ev := collisions[0].(core.CollisionEvent)
	assert.Greater(t, ev.Candidate.X, ev.Position.X)
	assert.Equal(t, 1, s.Info().Environment.ObstacleCount)
}

func TestStep_SamplesState(t *testing.T) {
	cfg := testConfig()
	cfg.SampleEvery = 3
	s, rec := newSession(t, cfg)

	var sampled int
	for range 9 {
		if s.Step(dt).Sampled {
			sampled++
		}
	}
	assert.Equal(t, 3, sampled)
	samples := rec.of(dispatcher.EventRobotState)
	require.Len(t, samples, 3)
	assert.Equal(t, uint64(9), samples[2].(core.RobotStateSample).Tick)
	assert.Equal(t, uint64(9), s.Tick())
}

func TestStep_DepletedBatteryPolicy(t *testing.T) {
	tests := []struct {
		name string
		stop bool
	}{
		{"halts", true},
		{"keeps moving", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Bounds = environment.Bounds{MinX: -1000, MaxX: 1000, MinZ: -1000, MaxZ: 1000}
			cfg.StopOnDepletedBattery = tt.stop
			s, _ := newSession(t, cfg)
			require.NoError(t, s.Apply(command.Move{Direction: command.Forward, Speed: 0.5}))

			var halted bool
			for range 40 {
				if s.Step(10).Halted {
					halted = true
				}
			}

			snap := s.Snapshot()
			assert.Zero(t, snap.BatteryLevel)
			assert.Equal(t, tt.stop, halted)
			assert.Equal(t, !tt.stop, snap.IsMoving)
		})
	}
}

func TestMarkObjective(t *testing.T) {
	s, rec := newSession(t, testConfig())

	_, _, err := s.MarkObjective("gem")
	require.ErrorIs(t, err, ErrNoChallenge)

	require.NoError(t, s.LoadChallenge(challenge("collect",
		core.Objective{ID: "gem", Description: "Collect the gem"})))

	res, ok, err := s.MarkObjective("missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, res.Empty())

	res, ok, err = s.MarkObjective("gem")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, res.ChallengeCompleted)

	_, ok, err = s.MarkObjective("gem")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Len(t, rec.of(dispatcher.EventObjectiveCompleted), 1)
	assert.Len(t, rec.of(dispatcher.EventChallengeCompleted), 1)
}

func TestSelectRobot(t *testing.T) {
	s, _ := newSession(t, testConfig())
	require.NoError(t, s.LoadChallenge(challenge("fwd",
		core.Objective{ID: "fwd", Description: "Move forward 50 meters"})))
	require.NoError(t, s.Apply(command.Move{Direction: command.Forward, Speed: 1}))
	steps(s, 30)
	require.Positive(t, s.Status().Objectives[0].Progress)

	require.NoError(t, s.SelectRobot(core.KindArm))

	snap := s.Snapshot()
	assert.Equal(t, core.KindArm, snap.Kind)
	assert.Zero(t, snap.Position.Z)
	assert.Zero(t, s.Status().Objectives[0].Progress)
	assert.ErrorIs(t, s.Apply(command.Move{Direction: command.Forward}), command.ErrUnsupported)

	assert.Error(t, s.SelectRobot("hovercraft"))
	assert.Equal(t, core.KindArm, s.Snapshot().Kind)
}

func TestSelectRobot_AbortsActiveProgram(t *testing.T) {
	s, _ := newSession(t, testConfig())

	done := s.Sequencer().Start(context.Background(), []sequencer.Action{
		{Request: command.Request{Action: "move", Direction: "forward", Speed: 1}, Duration: 10 * time.Second},
		{Request: command.Request{Action: "rotate", Direction: "left"}, Duration: 10 * time.Second},
	})
	require.Eventually(t, func() bool { return s.Snapshot().IsMoving }, time.Second, time.Millisecond)

	require.NoError(t, s.SelectRobot(core.KindTank))
	assert.Equal(t, sequencer.Aborted, s.Sequencer().State())

	select {
	case out := <-done:
		assert.True(t, out.Aborted)
		assert.Zero(t, out.Executed)
	case <-time.After(time.Second):
		t.Fatal("program still running after robot change")
	}

	snap := s.Snapshot()
	assert.Equal(t, core.KindTank, snap.Kind)
	assert.False(t, snap.IsMoving)
	assert.Zero(t, snap.AngularVelocity)
}

func TestSelectRobot_ArmJointSaturates(t *testing.T) {
	s, _ := newSession(t, testConfig())
	require.NoError(t, s.SelectRobot(core.KindArm))

	for range 100 {
		require.NoError(t, s.Apply(command.MoveJoint{Joint: "elbow", Direction: command.Forward}))
	}
	assert.InDelta(t, 1.5707963267948966, s.Snapshot().JointAngles["elbow"], 1e-12)
}

func TestLoadChallenge_CachesCriteria(t *testing.T) {
	criteria := cache.NewCriteriaCache()
	s, err := New(testConfig(), Dependencies{Criteria: criteria})
	require.NoError(t, err)

	cached := []objective.Criterion{objective.None("only")}
	criteria.Set("cached", cached)

	// a catalog entry arrives without parsed criteria
	require.NoError(t, s.LoadChallenge(parser.ParsedChallenge{Challenge: core.Challenge{
		ID:         "cached",
		Objectives: []core.Objective{{ID: "fwd", Description: "Move forward 5 meters"}},
	}}))
	st := s.Status()
	require.Len(t, st.Objectives, 1)
	assert.Equal(t, cached[0], st.Objectives[0].Criterion)

	require.NoError(t, s.LoadChallenge(challenge("fresh",
		core.Objective{ID: "fwd", Description: "Move forward 5 meters"})))
	assert.Equal(t, 2, criteria.Len())
	assert.Equal(t, objective.KindMove, s.Status().Objectives[0].Criterion.Kind)
}

func TestLoadChallenge_ReloadRecomputesCriteria(t *testing.T) {
	criteria := cache.NewCriteriaCache()
	s, err := New(testConfig(), Dependencies{Criteria: criteria})
	require.NoError(t, err)

	require.NoError(t, s.LoadChallenge(challenge("c1",
		core.Objective{ID: "o", Description: "Move forward 5 meters"})))
	require.NoError(t, s.LoadChallenge(challenge("c1",
		core.Objective{ID: "o", Description: "Move backward 2 meters"})))

	st := s.Status()
	require.Len(t, st.Objectives, 1)
	got := st.Objectives[0].Criterion
	assert.Equal(t, objective.KindMove, got.Kind)
	assert.Equal(t, -1, got.Sign)
	assert.Equal(t, 2.0, got.Threshold)

	stored, ok := criteria.Get("c1")
	require.True(t, ok)
	assert.Equal(t, got, stored[0])
}

func TestLoadChallenge_ParsesMissingCriteria(t *testing.T) {
	s, _ := newSession(t, testConfig())

	require.NoError(t, s.LoadChallenge(parser.ParsedChallenge{Challenge: core.Challenge{
		ID:         "raw",
		Objectives: []core.Objective{{ID: "spin", Description: "Rotate 90 degrees to the right"}},
	}}))

	st := s.Status()
	require.Len(t, st.Objectives, 1)
	assert.Equal(t, objective.KindRotate, st.Objectives[0].Criterion.Kind)
	assert.Equal(t, "raw", s.Challenge().ID)
}

func TestLoadChallenge_RobotReplacement(t *testing.T) {
	s, _ := newSession(t, testConfig())
	require.NoError(t, s.Apply(command.Move{Direction: command.Forward, Speed: 1}))
	steps(s, 30)
	require.Positive(t, s.Snapshot().Position.Z)

	// same kind and arena: the robot keeps its pose
	require.NoError(t, s.LoadChallenge(challenge("keep")))
	assert.Positive(t, s.Snapshot().Position.Z)

	pc := challenge("drone")
	pc.Challenge.RobotKind = core.KindDrone
	require.NoError(t, s.LoadChallenge(pc))
	assert.Equal(t, core.KindDrone, s.Snapshot().Kind)
	assert.Zero(t, s.Snapshot().DistanceTraveled)

	env := environment.Open(environment.Bounds{MinX: -1, MaxX: 1, MinZ: -1, MaxZ: 1})
	pc = challenge("small")
	pc.Environment = env
	require.NoError(t, s.Apply(command.Move{Direction: command.Forward, Speed: 0.1}))
	steps(s, 10)
	require.NoError(t, s.LoadChallenge(pc))
	assert.Zero(t, s.Snapshot().DistanceTraveled)
	assert.Equal(t, 1.0, s.Info().Environment.MaxX)

	assert.Error(t, s.LoadChallenge(parser.ParsedChallenge{}))
}

func TestLogAttrs(t *testing.T) {
	s, _ := newSession(t, testConfig())

	attrs := s.LogAttrs()
	require.Len(t, attrs, 2)
	assert.Equal(t, s.ID(), attrs[0].Value.String())
	assert.Equal(t, "mobile", attrs[1].Value.String())

	require.NoError(t, s.LoadChallenge(challenge("intro")))
	require.NoError(t, s.SelectRobot(core.KindTank))
	attrs = s.LogAttrs()
	require.Len(t, attrs, 3)
	assert.Equal(t, "tank", attrs[1].Value.String())
	assert.Equal(t, "intro", attrs[2].Value.String())
}

func TestReadSensor(t *testing.T) {
	s, _ := newSession(t, testConfig())

	r, err := s.ReadSensor(context.Background(), sensor.Battery)
	require.NoError(t, err)
	assert.Equal(t, 100.0, r.Value)

	r, err = s.ReadSensor(context.Background(), sensor.Distance)
	require.NoError(t, err)
	assert.Equal(t, sensor.MaxRange, r.Value)
}

func TestSequencerDrivesSession(t *testing.T) {
	s, rec := newSession(t, testConfig())

	out := s.Sequencer().Run(context.Background(), []sequencer.Action{
		{Request: command.Request{Action: "move", Direction: "forward", Speed: 1}, Duration: time.Millisecond},
		{Request: command.Request{Action: "jump"}, Duration: time.Millisecond},
		{Request: command.Request{Action: "rotate", Direction: "left"}, Duration: time.Millisecond},
	})

	assert.Equal(t, sequencer.Outcome{Total: 3, Executed: 2, Failed: 1}, out)
	stepEvents := rec.of(dispatcher.EventSequenceStep)
	require.Len(t, stepEvents, 3)
	failed := stepEvents[1].(core.SequenceStep)
	assert.Equal(t, 1, failed.Index)
	assert.NotEmpty(t, failed.Err)

	snap := s.Snapshot()
	assert.False(t, snap.IsMoving, "a run ends with a stop")
	assert.Zero(t, snap.AngularVelocity)
}

func TestRun(t *testing.T) {
	s, _ := newSession(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx, time.Millisecond))
	assert.Positive(t, s.Tick())

	assert.Error(t, s.Run(context.Background(), 0))
}

func TestStatus(t *testing.T) {
	s, _ := newSession(t, testConfig())
	require.NoError(t, s.LoadChallenge(challenge("status",
		core.Objective{ID: "a", Description: "Move forward 1 meter"},
		core.Objective{ID: "b", Description: "Find the exit"})))
	require.NoError(t, s.Apply(command.Move{Direction: command.Forward, Speed: 1}))
	steps(s, 60)

	st := s.Status()
	assert.Equal(t, "status", st.ChallengeID)
	assert.Equal(t, "idle", st.Sequencer)
	assert.Equal(t, uint64(60), st.Tick)
	assert.False(t, st.Finished)
	require.Len(t, st.Objectives, 2)
	assert.True(t, st.Objectives[0].Completed)
	assert.False(t, st.Objectives[1].Completed)
}
