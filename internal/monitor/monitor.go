package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/robolab-sim/engine/internal/influx"
	"github.com/robolab-sim/engine/internal/session"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// DefaultInterval is how often a performance snapshot is taken.
const DefaultInterval = 10 * time.Second

// PointWriter accepts influx points. *influx.Manager implements it.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// QueueReporter reports events accepted but not yet handled.
// *dispatcher.Dispatcher implements it.
type QueueReporter interface {
	Pending() int64
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Session  *session.Session
	Influx   PointWriter
	Queue    QueueReporter
	Logger   *slog.Logger
	Interval time.Duration
	// StatusPath, when set, is rewritten with the latest snapshot as JSON.
	StatusPath string
}

// Service periodically samples session performance.
type Service struct {
	deps Dependencies

	mu        sync.RWMutex
	isRunning bool
	last      influx.Performance
	samples   int
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Last returns the most recent snapshot and how many were taken.
func (s *Service) Last() (influx.Performance, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.samples
}

// Collect takes a performance snapshot of the session.
func (s *Service) Collect() influx.Performance {
	st := s.deps.Session.Status()
	p := influx.Performance{
		Time:           time.Now(),
		SessionID:      st.SessionID,
		RobotKind:      st.Robot.Kind,
		ChallengeID:    st.ChallengeID,
		Tick:           st.Tick,
		Battery:        st.Robot.BatteryLevel,
		Distance:       st.Robot.DistanceTraveled,
		Collisions:     st.Collisions,
		Errors:         st.Robot.ErrorCount,
		Sequencer:      st.Sequencer,
		PendingActions: s.deps.Session.Sequencer().Pending(),
	}
	if s.deps.Queue != nil {
		p.QueuedEvents = s.deps.Queue.Pending()
	}
	return p
}

// Sample collects a snapshot and reports it to every configured sink.
func (s *Service) Sample() influx.Performance {
	p := s.Collect()

	s.mu.Lock()
	s.last = p
	s.samples++
	s.mu.Unlock()

	s.deps.Logger.Debug("performance snapshot",
		"tick", p.Tick,
		"battery", p.Battery,
		"distance", p.Distance,
		"collisions", p.Collisions,
		"sequencer", p.Sequencer,
		"pendingActions", p.PendingActions,
		"queuedEvents", p.QueuedEvents)

	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(influx.PerformancePoint(p)); err != nil {
			s.deps.Logger.Error("Error writing performance point", "error", err)
		}
	}
	if s.deps.StatusPath != "" {
		if err := writeStatus(s.deps.StatusPath, p); err != nil {
			s.deps.Logger.Error("Error writing status file", "error", err)
		}
	}
	return p
}

// Run samples every interval until ctx is done. A final sample is taken
// on the way out.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("monitor already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Sample()
			return nil
		case <-ticker.C:
			s.Sample()
		}
	}
}

func writeStatus(path string, p influx.Performance) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
