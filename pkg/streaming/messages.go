// Package streaming defines the wire format a session is streamed in.
// Every message is a JSON Envelope; the server answers session
// boundaries with an AckMessage.
package streaming

import (
	"encoding/json"

	"github.com/robolab-sim/engine/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession       = "start_session"
	TypeEndSession         = "end_session"
	TypeRobotState         = "robot_state"
	TypeCollision          = "collision"
	TypeObjectiveCompleted = "objective_completed"
	TypeChallengeCompleted = "challenge_completed"
	TypeSequenceStep       = "sequence_step"

	TypeAck = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload carries the session being recorded.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
}

// EndSessionPayload closes the session opened by start_session.
type EndSessionPayload struct {
	SessionID string `json:"sessionId"`
}

// RobotStatePayload is one sampled robot state.
type RobotStatePayload struct {
	SessionID string             `json:"sessionId"`
	Tick      uint64             `json:"tick"`
	Time      int64              `json:"time"` // unix millis
	Robot     core.RobotSnapshot `json:"robot"`
}

// NewRobotStatePayload flattens a sample for the wire.
func NewRobotStatePayload(s *core.RobotStateSample) RobotStatePayload {
	return RobotStatePayload{
		SessionID: s.SessionID,
		Tick:      s.Tick,
		Time:      s.Time.UnixMilli(),
		Robot:     s.Snapshot,
	}
}
