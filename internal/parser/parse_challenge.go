package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/robolab-sim/engine/internal/environment"
	"github.com/robolab-sim/engine/internal/objective"
	"github.com/robolab-sim/engine/pkg/core"
)

// ParseChallenge decodes a challenge definition and derives the criterion
// of every objective.
func (p *Parser) ParseChallenge(data []byte) (ParsedChallenge, error) {
	var parsed ParsedChallenge

	var raw rawChallenge
	if err := json.Unmarshal(data, &raw); err != nil {
		return parsed, fmt.Errorf("error unmarshalling challenge: %w", err)
	}
	ch := raw.Challenge
	ch.ID = strings.TrimSpace(ch.ID)
	if ch.ID == "" {
		return parsed, fmt.Errorf("challenge has no id")
	}
	if ch.RobotKind != "" {
		kind, err := core.ParseRobotKind(string(ch.RobotKind))
		if err != nil {
			return parsed, fmt.Errorf("challenge %s: %w", ch.ID, err)
		}
		ch.RobotKind = kind
	}

	if raw.Environment != nil {
		env, err := environment.New(raw.Environment.Bounds, raw.Environment.Obstacles...)
		if err != nil {
			return parsed, fmt.Errorf("challenge %s environment: %w", ch.ID, err)
		}
		parsed.Environment = env
	}

	parsed.Challenge = ch
	parsed.Criteria = p.ParseCriteria(ch.Objectives)

	p.logger.Debug("parsed challenge",
		"challengeId", ch.ID,
		"objectives", len(ch.Objectives))

	return parsed, nil
}

// ParseCriteria derives one criterion per objective, in order.
func (p *Parser) ParseCriteria(objectives []core.Objective) []objective.Criterion {
	criteria := make([]objective.Criterion, len(objectives))
	for i, o := range objectives {
		criteria[i] = p.ParseCriterion(o.ID, o.Description)
	}
	return criteria
}

// ParseCatalog decodes a JSON array of challenges.
func (p *Parser) ParseCatalog(data []byte) ([]ParsedChallenge, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("error unmarshalling catalog: %w", err)
	}
	out := make([]ParsedChallenge, 0, len(raws))
	for i, r := range raws {
		pc, err := p.ParseChallenge(r)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		out = append(out, pc)
	}
	return out, nil
}
