package parser

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/robolab-sim/engine/internal/util"
)

// parseFloat accepts plain or quoted numbers and rejects NaN and infinities.
func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(util.TrimQuotes(s)), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parseFloat: %q is not finite", s)
	}
	return f, nil
}

// cleanArgs strips the quoting hosts wrap string arguments in.
func cleanArgs(data []string) []string {
	out := make([]string, len(data))
	for i, v := range data {
		out[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}
	return out
}

// Parser provides pure text/JSON -> engine type conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}
