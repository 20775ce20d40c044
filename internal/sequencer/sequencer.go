// Package sequencer runs an ordered list of timed robot actions as a single
// cancellable run. At most one run is active per Sequencer.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robolab-sim/engine/internal/command"
	"github.com/robolab-sim/engine/internal/queue"

	"go.opentelemetry.io/otel/metric"
)

// DefaultSettleGap is the pause between the pre-action stop and the action.
const DefaultSettleGap = 100 * time.Millisecond

// State of the sequencer.
type State int

const (
	Idle State = iota
	Running
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Action is one entry of a program: a command request held for Duration.
// The request is only validated when the action is reached.
type Action struct {
	Request  command.Request
	Duration time.Duration
}

func (a Action) String() string {
	s := a.Request.Action
	if a.Request.Direction != "" {
		s += " " + a.Request.Direction
	}
	if a.Request.Joint != "" {
		s += " joint=" + a.Request.Joint
	}
	return fmt.Sprintf("%s for %s", s, a.Duration)
}

// Target receives the commands a run issues.
type Target interface {
	Apply(c command.Command) error
}

// Step reports one finished action.
type Step struct {
	Index  int
	Total  int
	Action Action
	Err    error
}

// Outcome summarises a finished run.
type Outcome struct {
	Total    int
	Executed int
	Failed   int
	Aborted  bool
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithSettleGap overrides DefaultSettleGap.
func WithSettleGap(d time.Duration) Option {
	return func(s *Sequencer) {
		s.settleGap = d
	}
}

// WithLogger sets the logger for skipped actions.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sequencer) {
		s.logger = l
	}
}

// WithStepHook registers a callback invoked after every action.
func WithStepHook(fn func(Step)) Option {
	return func(s *Sequencer) {
		s.onStep = fn
	}
}

// Sequencer serialises timed actions against a Target.
type Sequencer struct {
	target    Target
	logger    *slog.Logger
	settleGap time.Duration
	onStep    func(Step)

	pending *queue.Queue[Action]

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}

	// OTEL metrics
	runsStarted metric.Int64Counter
	runsAborted metric.Int64Counter
	executed    metric.Int64Counter
	failed      metric.Int64Counter
}

// New creates a Sequencer driving target.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(target Target, opts ...Option) (*Sequencer, error) {
	if target == nil {
		return nil, errors.New("sequencer: nil target")
	}
	s := &Sequencer{
		target:    target,
		logger:    slog.Default(),
		settleGap: DefaultSettleGap,
		pending:   queue.New[Action](),
	}
	for _, opt := range opts {
		opt(s)
	}

	m := meter()
	var err error

	s.runsStarted, err = m.Int64Counter(
		"sequencer.runs.started",
		metric.WithDescription("Total runs started"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runs started counter: %w", err)
	}

	s.runsAborted, err = m.Int64Counter(
		"sequencer.runs.aborted",
		metric.WithDescription("Total runs cancelled before finishing"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runs aborted counter: %w", err)
	}

	s.executed, err = m.Int64Counter(
		"sequencer.actions.executed",
		metric.WithDescription("Total actions held to completion"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating executed counter: %w", err)
	}

	s.failed, err = m.Int64Counter(
		"sequencer.actions.failed",
		metric.WithDescription("Total actions skipped because they could not be applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return s, nil
}

// State returns the current state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns how many actions of the active run have not started.
func (s *Sequencer) Pending() int {
	return s.pending.Len()
}

// Run executes actions in order and blocks until the run ends. A run that
// is already active is cancelled, and its cleanup awaited, first.
// Cancelling ctx or calling Abort ends the run early; that is reported as
// Outcome.Aborted, not as a failure.
func (s *Sequencer) Run(ctx context.Context, actions []Action) Outcome {
	for {
		s.mu.Lock()
		if s.state != Running {
			break
		}
		cancel, done := s.cancel, s.done
		s.mu.Unlock()

		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return Outcome{Total: len(actions), Aborted: true}
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.state = Running
	s.cancel = cancel
	s.done = done
	s.pending.Reset(actions...)
	s.mu.Unlock()

	s.runsStarted.Add(ctx, 1)
	out := s.execute(runCtx, len(actions))
	cancel()

	s.mu.Lock()
	if out.Aborted {
		s.state = Aborted
	} else {
		s.state = Idle
	}
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()
	close(done)

	return out
}

// Start runs actions in the background. The channel receives the outcome
// once and is then closed.
func (s *Sequencer) Start(ctx context.Context, actions []Action) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		ch <- s.Run(ctx, actions)
	}()
	return ch
}

// Toggle starts a run when idle. When a run is active it aborts that run
// instead and reports started=false.
func (s *Sequencer) Toggle(ctx context.Context, actions []Action) (out Outcome, started bool) {
	if s.Abort() {
		return Outcome{}, false
	}
	return s.Run(ctx, actions), true
}

// Abort cancels the active run and waits for its cleanup stop. It reports
// whether a run was active.
func (s *Sequencer) Abort() bool {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return false
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	return true
}

func (s *Sequencer) execute(ctx context.Context, total int) Outcome {
	out := Outcome{Total: total}
	defer s.stop()

	for i := 0; ; i++ {
		if ctx.Err() != nil {
			out.Aborted = true
			break
		}
		a, ok := s.pending.TryPop()
		if !ok {
			break
		}

		err := s.step(ctx, a)
		switch {
		case isCancellation(err):
			out.Aborted = true
		case err != nil:
			out.Failed++
			s.failed.Add(ctx, 1)
			s.logger.Warn("skipping action", "index", i, "action", a.String(), "error", err)
		default:
			out.Executed++
			s.executed.Add(ctx, 1)
		}
		s.report(Step{Index: i, Total: total, Action: a, Err: err})
		if out.Aborted {
			break
		}
	}

	if out.Aborted {
		s.pending.Clear()
		s.runsAborted.Add(context.Background(), 1)
	}
	return out
}

// step runs stop, settle, command, hold, stop for one action.
func (s *Sequencer) step(ctx context.Context, a Action) error {
	cmd, err := command.Parse(a.Request)
	if err != nil {
		return err
	}

	s.stop()
	if err := wait(ctx, s.settleGap); err != nil {
		return err
	}
	if err := s.target.Apply(cmd); err != nil {
		return fmt.Errorf("applying %s: %w", cmd, err)
	}
	if err := wait(ctx, a.Duration); err != nil {
		return err
	}
	s.stop()
	return nil
}

func (s *Sequencer) stop() {
	if err := s.target.Apply(command.Stop{}); err != nil {
		s.logger.Error("stop failed", "error", err)
	}
}

func (s *Sequencer) report(st Step) {
	if s.onStep != nil {
		s.onStep(st)
	}
}

// wait blocks for d or until ctx is done, whichever comes first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
