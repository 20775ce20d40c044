package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/robolab-sim/engine/internal/command"
	"github.com/robolab-sim/engine/internal/curriculum"
	"github.com/robolab-sim/engine/internal/dispatcher"
	"github.com/robolab-sim/engine/internal/parser"
	"github.com/robolab-sim/engine/internal/sensor"
	"github.com/robolab-sim/engine/internal/sequencer"
	"github.com/robolab-sim/engine/internal/session"
	"github.com/robolab-sim/engine/internal/util"
	"github.com/robolab-sim/engine/pkg/core"
)

// Host commands served by the Service.
const (
	CmdRobotSelect   = ":ROBOT:SELECT:"
	CmdChallengeLoad = ":CHALLENGE:LOAD:"
	CmdChallengeList = ":CHALLENGE:LIST:"
	CmdRun           = ":RUN:"
	CmdToggle        = ":TOGGLE:"
	CmdStop          = ":STOP:"
	CmdSensor        = ":SENSOR:"
	CmdObjectiveMark = ":OBJECTIVE:MARK:"
	CmdStatus        = ":STATUS:"
)

// DefaultSensorTimeout bounds a single :SENSOR: read.
const DefaultSensorTimeout = 2 * time.Second

var (
	// ErrMissingArgument is returned when a command is sent without its argument.
	ErrMissingArgument = errors.New("missing argument")
	// ErrNoCatalog is returned when a challenge id is loaded without a catalog.
	ErrNoCatalog = errors.New("no challenge catalog configured")
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Session  *session.Session
	Parser   *parser.Parser
	Catalog  *curriculum.Catalog
	Progress curriculum.Progress
	Logger   *slog.Logger

	SensorTimeout time.Duration
}

// MarkResult answers :OBJECTIVE:MARK:.
type MarkResult struct {
	ObjectiveID        string `json:"objectiveId"`
	Marked             bool   `json:"marked"`
	ChallengeCompleted bool   `json:"challengeCompleted"`
}

// Service translates host commands into session and sequencer calls.
type Service struct {
	deps Dependencies
	ctx  context.Context
	log  *slog.Logger

	mu      sync.Mutex
	last    sequencer.Outcome
	hasLast bool
	runs    sync.WaitGroup
}

// NewService creates a new handler service. Runs started by :RUN: and
// :TOGGLE: are cancelled when ctx ends.
func NewService(ctx context.Context, deps Dependencies) (*Service, error) {
	if deps.Session == nil {
		return nil, errors.New("handlers: session is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	if deps.Progress == nil {
		deps.Progress = curriculum.NewMemoryProgress()
	}
	if deps.SensorTimeout <= 0 {
		deps.SensorTimeout = DefaultSensorTimeout
	}
	return &Service{
		deps: deps,
		ctx:  ctx,
		log:  deps.Logger.With("component", "handlers"),
	}, nil
}

// Register adds every host command to the dispatcher.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(CmdRobotSelect, s.handleRobotSelect, dispatcher.Logged())
	d.Register(CmdChallengeLoad, s.handleChallengeLoad, dispatcher.Logged())
	d.Register(CmdChallengeList, s.handleChallengeList)
	d.Register(CmdRun, s.handleRun, dispatcher.Logged())
	d.Register(CmdToggle, s.handleToggle, dispatcher.Logged())
	d.Register(CmdStop, s.handleStop, dispatcher.Logged())
	d.Register(CmdSensor, s.handleSensor)
	d.Register(CmdObjectiveMark, s.handleObjectiveMark, dispatcher.Logged())
	d.Register(CmdStatus, s.handleStatus)
}

// LastOutcome returns the outcome of the most recent finished run.
func (s *Service) LastOutcome() (sequencer.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

// Wait blocks until every run started through the service has finished.
func (s *Service) Wait() {
	s.runs.Wait()
}

func (s *Service) handleRobotSelect(e dispatcher.Event) (any, error) {
	arg, err := firstArg(e)
	if err != nil {
		return nil, err
	}
	kind, err := core.ParseRobotKind(arg)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Session.SelectRobot(kind); err != nil {
		return nil, err
	}
	return string(kind), nil
}

// handleChallengeLoad accepts a challenge definition (JSON), a path to one,
// or the id of a catalog challenge. Catalog challenges must be unlocked.
func (s *Service) handleChallengeLoad(e dispatcher.Event) (any, error) {
	arg, err := firstArg(e)
	if err != nil {
		return nil, err
	}

	var pc parser.ParsedChallenge
	switch {
	case looksLikeJSON(arg):
		pc, err = s.deps.Parser.ParseChallenge([]byte(arg))
	case fileExists(arg):
		var data []byte
		data, err = os.ReadFile(arg)
		if err == nil {
			pc, err = s.deps.Parser.ParseChallenge(data)
		}
	default:
		pc, err = s.openCatalogChallenge(arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	if err := s.deps.Session.LoadChallenge(pc); err != nil {
		return nil, err
	}
	return pc.Challenge.ID, nil
}

func (s *Service) openCatalogChallenge(id string) (parser.ParsedChallenge, error) {
	if s.deps.Catalog == nil {
		return parser.ParsedChallenge{}, ErrNoCatalog
	}
	ch, err := s.deps.Catalog.Open(s.ctx, s.deps.Progress, id)
	if err != nil {
		return parser.ParsedChallenge{}, err
	}
	return parser.ParsedChallenge{Challenge: ch}, nil
}

// handleChallengeList returns the ids of unlocked catalog challenges.
func (s *Service) handleChallengeList(e dispatcher.Event) (any, error) {
	if s.deps.Catalog == nil {
		return nil, ErrNoCatalog
	}
	unlocked, err := s.deps.Catalog.Unlocked(s.ctx, s.deps.Progress)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(unlocked))
	for i, ch := range unlocked {
		ids[i] = ch.ID
	}
	return ids, nil
}

// handleRun starts a program in the background, replacing any active run.
func (s *Service) handleRun(e dispatcher.Event) (any, error) {
	actions, err := s.deps.Parser.ParseActionArgs(e.Args)
	if err != nil {
		return nil, err
	}
	s.start(actions)
	return "started", nil
}

// handleToggle aborts the active run, or starts the program when idle.
func (s *Service) handleToggle(e dispatcher.Event) (any, error) {
	if s.deps.Session.Sequencer().Abort() {
		return "aborted", nil
	}
	actions, err := s.deps.Parser.ParseActionArgs(e.Args)
	if err != nil {
		return nil, err
	}
	s.start(actions)
	return "started", nil
}

func (s *Service) handleStop(e dispatcher.Event) (any, error) {
	aborted := s.deps.Session.Sequencer().Abort()
	if err := s.deps.Session.Apply(command.Stop{}); err != nil {
		return nil, err
	}
	if aborted {
		return "aborted", nil
	}
	return "stopped", nil
}

// handleSensor reads one sensor, or several when the argument is a list.
func (s *Service) handleSensor(e dispatcher.Event) (any, error) {
	if len(e.Args) == 0 {
		return nil, fmt.Errorf("%s: %w", e.Command, ErrMissingArgument)
	}
	names := util.ParseStringList(e.Args[0])
	if len(names) == 0 {
		return nil, fmt.Errorf("%s: %w", e.Command, ErrMissingArgument)
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.deps.SensorTimeout)
	defer cancel()

	readings := make([]sensor.Reading, 0, len(names))
	for _, name := range names {
		t, err := sensor.ParseType(name)
		if err != nil {
			return nil, err
		}
		r, err := s.deps.Session.ReadSensor(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", t, err)
		}
		readings = append(readings, r)
	}
	if len(readings) == 1 {
		return readings[0], nil
	}
	return readings, nil
}

func (s *Service) handleObjectiveMark(e dispatcher.Event) (any, error) {
	id, err := firstArg(e)
	if err != nil {
		return nil, err
	}
	res, ok, err := s.deps.Session.MarkObjective(id)
	if err != nil {
		return nil, err
	}
	return MarkResult{
		ObjectiveID:        id,
		Marked:             ok,
		ChallengeCompleted: res.ChallengeCompleted,
	}, nil
}

func (s *Service) handleStatus(e dispatcher.Event) (any, error) {
	return s.deps.Session.Status(), nil
}

func (s *Service) start(actions []sequencer.Action) {
	done := s.deps.Session.Sequencer().Start(s.ctx, actions)
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		out := <-done
		s.mu.Lock()
		s.last = out
		s.hasLast = true
		s.mu.Unlock()
		s.log.Info("program finished",
			"total", out.Total,
			"executed", out.Executed,
			"failed", out.Failed,
			"aborted", out.Aborted)
	}()
}

func firstArg(e dispatcher.Event) (string, error) {
	if len(e.Args) == 0 {
		return "", fmt.Errorf("%s: %w", e.Command, ErrMissingArgument)
	}
	arg := util.CleanArg(e.Args[0])
	if arg == "" {
		return "", fmt.Errorf("%s: %w", e.Command, ErrMissingArgument)
	}
	return arg, nil
}

func looksLikeJSON(s string) bool {
	b := bytes.TrimSpace([]byte(s))
	return len(b) > 0 && b[0] == '{'
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
