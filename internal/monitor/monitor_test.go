package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/robolab-sim/engine/internal/command"
	"github.com/robolab-sim/engine/internal/environment"
	"github.com/robolab-sim/engine/internal/influx"
	"github.com/robolab-sim/engine/internal/session"
	"github.com/robolab-sim/engine/pkg/core"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

type mockWriter struct {
	mu     sync.Mutex
	points []*influxdb2_write.Point
	err    error
}

func (w *mockWriter) WritePoint(p *influxdb2_write.Point) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.points = append(w.points, p)
	return w.err
}

func (w *mockWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.points)
}

type fixedQueue int64

func (q fixedQueue) Pending() int64 { return int64(q) }

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.Bounds = environment.Bounds{MinX: -50, MaxX: 50, MinZ: -50, MaxZ: 50}
	cfg.SampleEvery = 0
	s, err := session.New(cfg, session.Dependencies{})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return s
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(Dependencies{Session: newTestSession(t)})

	if svc.deps.Interval != DefaultInterval {
		t.Errorf("expected default interval, got %s", svc.deps.Interval)
	}
	if svc.IsRunning() {
		t.Error("expected service not running")
	}
}

func TestCollect(t *testing.T) {
	sess := newTestSession(t)
	if err := sess.Apply(command.Move{Direction: command.Forward, Speed: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 30 {
		sess.Step(1.0 / 60)
	}

	svc := NewService(Dependencies{Session: sess, Queue: fixedQueue(7)})
	p := svc.Collect()

	if p.SessionID != sess.ID() {
		t.Errorf("expected session id %s, got %s", sess.ID(), p.SessionID)
	}
	if p.RobotKind != core.KindMobile {
		t.Errorf("expected mobile robot, got %s", p.RobotKind)
	}
	if p.Tick != 30 {
		t.Errorf("expected tick 30, got %d", p.Tick)
	}
	if p.Distance <= 0 {
		t.Errorf("expected positive distance, got %f", p.Distance)
	}
	if p.Battery >= 100 {
		t.Errorf("expected battery drain, got %f", p.Battery)
	}
	if p.QueuedEvents != 7 {
		t.Errorf("expected 7 queued events, got %d", p.QueuedEvents)
	}
	if p.Sequencer != "idle" {
		t.Errorf("expected idle sequencer, got %s", p.Sequencer)
	}
}

func TestSample_WritesSinks(t *testing.T) {
	writer := &mockWriter{}
	statusPath := filepath.Join(t.TempDir(), "status.json")
	svc := NewService(Dependencies{
		Session:    newTestSession(t),
		Influx:     writer,
		StatusPath: statusPath,
	})

	svc.Sample()

	if writer.count() != 1 {
		t.Errorf("expected 1 point, got %d", writer.count())
	}
	data, err := os.ReadFile(statusPath)
	if err != nil {
		t.Fatalf("failed to read status file: %v", err)
	}
	var p influx.Performance
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("status file is not JSON: %v", err)
	}
	if p.Battery != 100 {
		t.Errorf("expected battery 100 in status file, got %f", p.Battery)
	}
	if _, n := svc.Last(); n != 1 {
		t.Errorf("expected 1 sample, got %d", n)
	}
}

func TestSample_InfluxErrorIsNotFatal(t *testing.T) {
	writer := &mockWriter{err: errors.New("influx down")}
	svc := NewService(Dependencies{Session: newTestSession(t), Influx: writer})

	svc.Sample()
	svc.Sample()

	if _, n := svc.Last(); n != 2 {
		t.Errorf("expected 2 samples, got %d", n)
	}
}

func TestRun(t *testing.T) {
	writer := &mockWriter{}
	svc := NewService(Dependencies{
		Session:  newTestSession(t),
		Influx:   writer,
		Interval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for writer.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !svc.IsRunning() {
		t.Error("expected service running")
	}
	if err := svc.Run(ctx); err == nil {
		t.Error("expected error starting a second run")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if writer.count() < 3 {
		t.Errorf("expected at least 3 points, got %d", writer.count())
	}
	if svc.IsRunning() {
		t.Error("expected service stopped")
	}
}
