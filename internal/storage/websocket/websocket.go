// Package wsstorage streams a session over a WebSocket as it runs.
package wsstorage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robolab-sim/engine/pkg/core"
	"github.com/robolab-sim/engine/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams session data to a collector. It implements
// storage.Backend but not storage.Exportable.
type Backend struct {
	conn *connection
	cfg  Config

	mu        sync.Mutex
	sessionID string
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "wsstorage")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope queues a message without waiting for the server.
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartSession sends start_session and waits for the server ack. The
// message is kept for replay after a reconnect.
func (b *Backend) StartSession(s *core.Session) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.sessionID = s.ID
	b.mu.Unlock()
	b.conn.setStartMessage(data)

	return b.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// EndSession sends end_session and waits for the server ack.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	id := b.sessionID
	b.sessionID = ""
	b.mu.Unlock()

	data, err := marshalEnvelope(streaming.TypeEndSession, streaming.EndSessionPayload{SessionID: id})
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndSession, ackTimeout)

	// the session is over even if the ack never came
	b.conn.setStartMessage(nil)

	return err
}

func (b *Backend) RecordRobotState(s *core.RobotStateSample) error {
	return b.sendEnvelope(streaming.TypeRobotState, streaming.NewRobotStatePayload(s))
}

func (b *Backend) RecordCollision(e *core.CollisionEvent) error {
	return b.sendEnvelope(streaming.TypeCollision, e)
}

func (b *Backend) RecordObjectiveCompleted(e *core.ObjectiveCompleted) error {
	return b.sendEnvelope(streaming.TypeObjectiveCompleted, e)
}

func (b *Backend) RecordChallengeCompleted(e *core.ChallengeCompleted) error {
	return b.sendEnvelope(streaming.TypeChallengeCompleted, e)
}

func (b *Backend) RecordSequenceStep(e *core.SequenceStep) error {
	return b.sendEnvelope(streaming.TypeSequenceStep, e)
}
