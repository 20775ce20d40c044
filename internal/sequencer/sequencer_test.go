package sequencer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robolab-sim/engine/internal/command"
	"github.com/robolab-sim/engine/internal/robot"
	"github.com/robolab-sim/engine/pkg/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Target that records every command and drives a robot.
type recorder struct {
	mu    sync.Mutex
	cmds  []command.Command
	state *robot.State
}

func newRecorder(t *testing.T, kind core.RobotKind) *recorder {
	t.Helper()
	s, err := robot.NewState(kind)
	require.NoError(t, err)
	return &recorder{state: s}
}

func (r *recorder) Apply(c command.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, c)
	return command.Interpret(r.state, c)
}

func (r *recorder) commands() []command.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]command.Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

func (r *recorder) snapshot() core.RobotSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Snapshot()
}

func (r *recorder) count(match func(command.Command) bool) int {
	n := 0
	for _, c := range r.commands() {
		if match(c) {
			n++
		}
	}
	return n
}

func isMove(c command.Command) bool {
	_, ok := c.(command.Move)
	return ok
}

func newTestSequencer(t *testing.T, target Target, opts ...Option) *Sequencer {
	t.Helper()
	opts = append([]Option{WithSettleGap(time.Millisecond)}, opts...)
	s, err := New(target, opts...)
	require.NoError(t, err)
	return s
}

func moveAction(dir string, d time.Duration) Action {
	return Action{Request: command.Request{Action: "move", Direction: dir, Speed: 0.5}, Duration: d}
}

func waitForState(t *testing.T, s *Sequencer, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return s.State() == want }, time.Second, time.Millisecond)
}

func TestNew_NilTarget(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestRun_StopWrapsEveryAction(t *testing.T) {
	rec := newRecorder(t, core.KindMobile)
	s := newTestSequencer(t, rec)

	out := s.Run(context.Background(), []Action{
		moveAction("forward", 5*time.Millisecond),
		{Request: command.Request{Action: "rotate", Direction: "left"}, Duration: 5 * time.Millisecond},
	})

	assert.Equal(t, Outcome{Total: 2, Executed: 2}, out)
	assert.Equal(t, Idle, s.State())

	want := []command.Command{
		command.Stop{}, command.Move{Direction: command.Forward, Speed: 0.5}, command.Stop{},
		command.Stop{}, command.Rotate{Direction: command.Left, Speed: command.DefaultSpeed}, command.Stop{},
		command.Stop{},
	}
	assert.Equal(t, want, rec.commands())
	assert.False(t, rec.snapshot().IsMoving)
}

func TestRun_UnknownActionLoggedAndSkipped(t *testing.T) {
	rec := newRecorder(t, core.KindMobile)
	var steps []Step
	s := newTestSequencer(t, rec, WithStepHook(func(st Step) { steps = append(steps, st) }))

	out := s.Run(context.Background(), []Action{
		{Request: command.Request{Action: "dance"}, Duration: time.Millisecond},
		moveAction("backward", time.Millisecond),
	})

	assert.Equal(t, Outcome{Total: 2, Executed: 1, Failed: 1}, out)
	require.Len(t, steps, 2)
	assert.True(t, errors.Is(steps[0].Err, command.ErrUnknownAction))
	assert.NoError(t, steps[1].Err)
	assert.Equal(t, 1, rec.count(isMove))
}

func TestRun_UnsupportedCommandContinues(t *testing.T) {
	rec := newRecorder(t, core.KindArm)
	s := newTestSequencer(t, rec)

	out := s.Run(context.Background(), []Action{
		{Request: command.Request{Action: "rotate", Direction: "right"}, Duration: time.Hour},
		{Request: command.Request{Action: "move", Direction: "forward", Joint: "elbow"}, Duration: time.Millisecond},
	})

	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, 1, out.Executed)
	assert.False(t, out.Aborted)
	assert.Positive(t, rec.snapshot().JointAngles["elbow"])
}

func TestRun_CancelDuringSecondHold(t *testing.T) {
	rec := newRecorder(t, core.KindMobile)
	var mu sync.Mutex
	var steps []Step
	s := newTestSequencer(t, rec, WithStepHook(func(st Step) {
		mu.Lock()
		steps = append(steps, st)
		mu.Unlock()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	actions := []Action{
		moveAction("forward", time.Millisecond),
		moveAction("left", 10*time.Second),
		moveAction("right", time.Millisecond),
	}

	done := s.Start(ctx, actions)
	require.Eventually(t, func() bool { return rec.count(isMove) == 2 }, time.Second, time.Millisecond)

	start := time.Now()
	cancel()
	out := <-done

	assert.Less(t, time.Since(start), time.Second, "hold ended through cancellation, not its timer")
	assert.True(t, out.Aborted)
	assert.Equal(t, 1, out.Executed)
	assert.Zero(t, out.Failed, "cancellation is not a failure")
	assert.Equal(t, Aborted, s.State())
	assert.Zero(t, s.Pending())

	cmds := rec.commands()
	assert.Equal(t, command.Stop{}, cmds[len(cmds)-1])
	assert.Equal(t, 2, rec.count(isMove), "third action never ran")

	snap := rec.snapshot()
	assert.False(t, snap.IsMoving)
	assert.Zero(t, snap.Velocity)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, steps, 2)
	assert.True(t, errors.Is(steps[1].Err, context.Canceled))
}

func TestAbort_AtAnyIndexLeavesRobotStopped(t *testing.T) {
	for idx := 0; idx < 3; idx++ {
		rec := newRecorder(t, core.KindMobile)
		s := newTestSequencer(t, rec)

		actions := make([]Action, 3)
		for i := range actions {
			d := time.Millisecond
			if i == idx {
				d = 10 * time.Second
			}
			actions[i] = moveAction("forward", d)
		}

		done := s.Start(context.Background(), actions)
		require.Eventually(t, func() bool { return rec.count(isMove) == idx+1 }, time.Second, time.Millisecond)

		assert.True(t, s.Abort())
		snap := rec.snapshot()
		assert.False(t, snap.IsMoving, "index %d", idx)
		assert.Zero(t, snap.Velocity, "index %d", idx)

		out := <-done
		assert.True(t, out.Aborted)
	}
}

func TestAbort_WhenIdle(t *testing.T) {
	s := newTestSequencer(t, newRecorder(t, core.KindMobile))
	assert.False(t, s.Abort())
	assert.Equal(t, Idle, s.State())
}

func TestToggle_AbortsActiveRun(t *testing.T) {
	rec := newRecorder(t, core.KindMobile)
	s := newTestSequencer(t, rec)

	done := s.Start(context.Background(), []Action{moveAction("forward", 10*time.Second)})
	waitForState(t, s, Running)

	_, started := s.Toggle(context.Background(), []Action{moveAction("backward", time.Millisecond)})
	assert.False(t, started)
	assert.True(t, (<-done).Aborted)
	assert.Equal(t, 1, rec.count(isMove), "toggle did not start a second run")

	out, started := s.Toggle(context.Background(), []Action{moveAction("backward", time.Millisecond)})
	assert.True(t, started)
	assert.Equal(t, 1, out.Executed)
	assert.Equal(t, Idle, s.State())
}

func TestRun_ReplacesActiveRun(t *testing.T) {
	rec := newRecorder(t, core.KindMobile)
	s := newTestSequencer(t, rec)

	first := s.Start(context.Background(), []Action{moveAction("forward", 10*time.Second)})
	waitForState(t, s, Running)
	require.Eventually(t, func() bool { return rec.count(isMove) == 1 }, time.Second, time.Millisecond)

	out := s.Run(context.Background(), []Action{moveAction("right", time.Millisecond)})

	assert.True(t, (<-first).Aborted)
	assert.Equal(t, Outcome{Total: 1, Executed: 1}, out)

	// the first run's cleanup stop lands before the second run's commands
	cmds := rec.commands()
	var moves []command.Command
	for _, c := range cmds {
		if isMove(c) {
			moves = append(moves, c)
		}
	}
	require.Len(t, moves, 2)
	assert.Equal(t, command.Right, moves[1].(command.Move).Direction)
}

func TestRun_ParentContextAlreadyCancelled(t *testing.T) {
	rec := newRecorder(t, core.KindMobile)
	s := newTestSequencer(t, rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := s.Run(ctx, []Action{moveAction("forward", time.Second)})

	assert.True(t, out.Aborted)
	assert.Zero(t, rec.count(isMove))
	assert.Equal(t, []command.Command{command.Stop{}}, rec.commands())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "aborted", Aborted.String())
}

func TestAction_String(t *testing.T) {
	a := Action{Request: command.Request{Action: "move", Direction: "forward", Joint: "elbow"}, Duration: 2 * time.Second}
	assert.Equal(t, "move forward joint=elbow for 2s", a.String())
}
