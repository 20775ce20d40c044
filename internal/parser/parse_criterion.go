package parser

import (
	"regexp"
	"strings"

	"github.com/robolab-sim/engine/internal/objective"
)

var (
	moveVerbRe   = regexp.MustCompile(`(?i)\b(move|moves|drive|go|travel|walk|roll|crawl|fly)\b`)
	rotateVerbRe = regexp.MustCompile(`(?i)\b(rotate|rotates|turn|turns|spin|spins)\b`)
	directionRe  = regexp.MustCompile(`(?i)\b(forwards?|backwards?|left|right)\b`)
	numberRe     = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// ParseCriterion extracts a motion criterion from an objective description
// such as "Move forward 5 meters" or "Rotate 90 degrees to the right".
// Descriptions that match neither shape give objective.KindNone; this
// never fails.
func (p *Parser) ParseCriterion(objectiveID, description string) objective.Criterion {
	c := objective.None(objectiveID)

	moveLoc := moveVerbRe.FindStringIndex(description)
	rotLoc := rotateVerbRe.FindStringIndex(description)
	num := numberRe.FindString(description)
	if num == "" {
		return c
	}
	threshold, err := parseFloat(num)
	if err != nil || threshold <= 0 {
		return c
	}
	dir := strings.ToLower(directionRe.FindString(description))

	switch {
	case rotLoc != nil && (moveLoc == nil || rotLoc[0] < moveLoc[0]):
		c.Kind = objective.KindRotate
		c.Axis = objective.AxisY
		c.Threshold = threshold
		switch dir {
		case "right":
			c.Sign = 1
		case "left":
			c.Sign = -1
		}
	case moveLoc != nil && dir != "":
		c.Kind = objective.KindMove
		c.Threshold = threshold
		switch strings.TrimSuffix(dir, "s") {
		case "forward":
			c.Axis, c.Sign = objective.AxisZ, 1
		case "backward":
			c.Axis, c.Sign = objective.AxisZ, -1
		case "right":
			c.Axis, c.Sign = objective.AxisX, 1
		case "left":
			c.Axis, c.Sign = objective.AxisX, -1
		}
	default:
		return c
	}

	p.logger.Debug("parsed objective criterion", "objectiveId", objectiveID, "criterion", c.String())
	return c
}
