package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robolab-sim/engine/internal/cache"
	"github.com/robolab-sim/engine/internal/dispatcher"
	"github.com/robolab-sim/engine/internal/storage"
)

// ErrUnexpectedPayload is returned when an event carries the wrong type.
var ErrUnexpectedPayload = errors.New("unexpected payload")

// DefaultDrainTimeout bounds how long a session end waits for buffered
// records.
const DefaultDrainTimeout = 5 * time.Second

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Logger       *slog.Logger
	DrainTimeout time.Duration
}

// Manager forwards engine notifications to a storage backend.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	d       *dispatcher.Dispatcher

	written cache.SafeCounter
	failed  cache.SafeCounter
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.DrainTimeout <= 0 {
		deps.DrainTimeout = DefaultDrainTimeout
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// Written returns the number of records the backend accepted.
func (m *Manager) Written() int {
	return m.written.Value()
}

// Failed returns the number of records the backend rejected.
func (m *Manager) Failed() int {
	return m.failed.Value()
}

func (m *Manager) record(err error) error {
	if err != nil {
		m.failed.Inc()
		return err
	}
	m.written.Inc()
	return nil
}

func unexpected(e dispatcher.Event) error {
	return fmt.Errorf("%w for %s: %T", ErrUnexpectedPayload, e.Command, e.Payload)
}
