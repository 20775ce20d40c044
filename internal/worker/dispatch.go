package worker

import (
	"context"
	"fmt"

	"github.com/robolab-sim/engine/internal/dispatcher"
	"github.com/robolab-sim/engine/pkg/core"
)

// RegisterHandlers registers all storage handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	m.d = d

	// Session lifecycle - sync (records must find the session row)
	d.Register(dispatcher.EventSessionStarted, m.handleSessionStarted, dispatcher.Logged())
	d.Register(dispatcher.EventSessionEnded, m.handleSessionEnded, dispatcher.Logged())

	// High-volume state samples - buffered
	d.Register(dispatcher.EventRobotState, m.handleRobotState, dispatcher.Buffered(10000))

	// Events - buffered
	d.Register(dispatcher.EventCollision, m.handleCollision, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(dispatcher.EventObjectiveCompleted, m.handleObjectiveCompleted, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(dispatcher.EventChallengeCompleted, m.handleChallengeCompleted, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(dispatcher.EventSequenceStep, m.handleSequenceStep, dispatcher.Buffered(1000), dispatcher.Logged())
}

func (m *Manager) handleSessionStarted(e dispatcher.Event) (any, error) {
	s, ok := e.Payload.(core.Session)
	if !ok {
		return nil, unexpected(e)
	}
	if err := m.backend.StartSession(&s); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	m.deps.Logger.Info("recording session", "sessionId", s.ID, "robot", s.RobotKind)
	return nil, nil
}

// handleSessionEnded waits for buffered records of the session before
// closing it in the backend.
func (m *Manager) handleSessionEnded(e dispatcher.Event) (any, error) {
	s, ok := e.Payload.(core.Session)
	if !ok {
		return nil, unexpected(e)
	}

	if m.d != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.deps.DrainTimeout)
		err := m.d.Drain(ctx)
		cancel()
		if err != nil {
			m.deps.Logger.Warn("ending session with records still queued", "sessionId", s.ID, "error", err)
		}
	}

	if err := m.backend.EndSession(); err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}
	m.deps.Logger.Info("session recorded", "sessionId", s.ID, "written", m.Written(), "failed", m.Failed())
	return nil, nil
}

func (m *Manager) handleRobotState(e dispatcher.Event) (any, error) {
	s, ok := e.Payload.(core.RobotStateSample)
	if !ok {
		return nil, unexpected(e)
	}
	return nil, m.record(m.backend.RecordRobotState(&s))
}

func (m *Manager) handleCollision(e dispatcher.Event) (any, error) {
	c, ok := e.Payload.(core.CollisionEvent)
	if !ok {
		return nil, unexpected(e)
	}
	return nil, m.record(m.backend.RecordCollision(&c))
}

func (m *Manager) handleObjectiveCompleted(e dispatcher.Event) (any, error) {
	o, ok := e.Payload.(core.ObjectiveCompleted)
	if !ok {
		return nil, unexpected(e)
	}
	return nil, m.record(m.backend.RecordObjectiveCompleted(&o))
}

func (m *Manager) handleChallengeCompleted(e dispatcher.Event) (any, error) {
	c, ok := e.Payload.(core.ChallengeCompleted)
	if !ok {
		return nil, unexpected(e)
	}
	return nil, m.record(m.backend.RecordChallengeCompleted(&c))
}

func (m *Manager) handleSequenceStep(e dispatcher.Event) (any, error) {
	s, ok := e.Payload.(core.SequenceStep)
	if !ok {
		return nil, unexpected(e)
	}
	return nil, m.record(m.backend.RecordSequenceStep(&s))
}
