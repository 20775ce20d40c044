package curriculum

import (
	"sync"

	"github.com/robolab-sim/engine/internal/objective"
	"github.com/robolab-sim/engine/pkg/core"
)

// Context holds the challenge currently loaded into a session.
type Context struct {
	mu        sync.RWMutex
	Challenge *core.Challenge
	Criteria  []objective.Criterion
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		Challenge: &core.Challenge{Title: "No challenge loaded"},
	}
}

// GetChallenge returns the current challenge
func (c *Context) GetChallenge() *core.Challenge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Challenge
}

// GetCriteria returns the criteria of the current challenge
func (c *Context) GetCriteria() []objective.Criterion {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Criteria
}

// Loaded reports whether a real challenge has been set.
func (c *Context) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Challenge != nil && c.Challenge.ID != ""
}

// SetChallenge sets the current challenge and its criteria
func (c *Context) SetChallenge(ch *core.Challenge, criteria []objective.Criterion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Challenge = ch
	c.Criteria = criteria
}
