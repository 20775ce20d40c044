package streaming

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/robolab-sim/engine/pkg/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeKeepsPayloadRaw(t *testing.T) {
	env := Envelope{Type: TypeCollision, Payload: json.RawMessage(`{"tick":7}`)}
	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"collision","payload":{"tick":7}}`, string(data))

	var back Envelope
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, TypeCollision, back.Type)
	assert.JSONEq(t, `{"tick":7}`, string(back.Payload))
}

func TestNewRobotStatePayload(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewRobotStatePayload(&core.RobotStateSample{
		SessionID: "s1",
		Tick:      12,
		Time:      now,
		Snapshot:  core.RobotSnapshot{Kind: core.KindTank, BatteryLevel: 80},
	})

	assert.Equal(t, "s1", p.SessionID)
	assert.Equal(t, uint64(12), p.Tick)
	assert.Equal(t, now.UnixMilli(), p.Time)
	assert.Equal(t, core.KindTank, p.Robot.Kind)
}
