package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robolab-sim/engine/internal/command"
	"github.com/robolab-sim/engine/internal/sequencer"
)

// ParseActions decodes a program, either a bare JSON array of actions or an
// object with an "actions" array. Action names are not validated here; the
// sequencer skips entries it cannot apply.
func (p *Parser) ParseActions(data []byte) ([]sequencer.Action, error) {
	data = bytes.TrimSpace(data)
	var raw []rawAction
	if len(data) > 0 && data[0] == '{' {
		var wrapper struct {
			Actions []rawAction `json:"actions"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("error unmarshalling program: %w", err)
		}
		raw = wrapper.Actions
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error unmarshalling program: %w", err)
	}

	actions := make([]sequencer.Action, 0, len(raw))
	for i, r := range raw {
		if r.DurationMs < 0 {
			p.logger.Warn("negative action duration, holding for zero", "index", i, "durationMs", r.DurationMs)
			r.DurationMs = 0
		}
		req := command.Request{
			Action:    r.Action,
			Direction: r.Direction,
			Joint:     r.Joint,
		}
		if r.Speed != nil {
			req.Speed = *r.Speed
		}
		actions = append(actions, sequencer.Action{
			Request:  req,
			Duration: time.Duration(r.DurationMs * float64(time.Millisecond)),
		})
	}

	p.logger.Debug("parsed program", "actions", len(actions))
	return actions, nil
}

// ParseActionArgs decodes a program passed as a host command argument.
func (p *Parser) ParseActionArgs(data []string) ([]sequencer.Action, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("missing program argument")
	}
	return p.ParseActions([]byte(cleanArgs(data)[0]))
}
