// Package curriculum tracks the challenge catalog, which challenges a learner
// has unlocked and the challenge currently loaded into a session.
package curriculum

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/robolab-sim/engine/pkg/core"
)

var (
	// ErrUnknownChallenge is returned for ids not present in the catalog.
	ErrUnknownChallenge = errors.New("unknown challenge")
	// ErrLocked is returned when a locked challenge is requested.
	ErrLocked = errors.New("challenge is locked")
)

// Catalog is an immutable, ordered set of challenges linked by
// nextChallengeIds.
type Catalog struct {
	order        []string
	challenges   map[string]core.Challenge
	predecessors map[string][]string
}

// NewCatalog validates ids and links. Every id listed in nextChallengeIds
// must exist in the catalog.
func NewCatalog(challenges ...core.Challenge) (*Catalog, error) {
	c := &Catalog{
		challenges:   make(map[string]core.Challenge, len(challenges)),
		predecessors: make(map[string][]string),
	}

	for _, ch := range challenges {
		if ch.ID == "" {
			return nil, fmt.Errorf("challenge %q has no id", ch.Title)
		}
		if _, dup := c.challenges[ch.ID]; dup {
			return nil, fmt.Errorf("duplicate challenge id %q", ch.ID)
		}
		c.challenges[ch.ID] = ch
		c.order = append(c.order, ch.ID)
	}

	for _, id := range c.order {
		for _, next := range c.challenges[id].NextChallengeIDs {
			if _, ok := c.challenges[next]; !ok {
				return nil, fmt.Errorf("challenge %s: next challenge %q: %w", id, next, ErrUnknownChallenge)
			}
			if next == id || slices.Contains(c.predecessors[next], id) {
				continue
			}
			c.predecessors[next] = append(c.predecessors[next], id)
		}
	}

	return c, nil
}

// Len returns the number of challenges.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Get looks up a challenge by id.
func (c *Catalog) Get(id string) (core.Challenge, bool) {
	ch, ok := c.challenges[id]
	return ch, ok
}

// All returns the challenges in catalog order.
func (c *Catalog) All() []core.Challenge {
	out := make([]core.Challenge, len(c.order))
	for i, id := range c.order {
		out[i] = c.challenges[id]
	}
	return out
}

// Roots returns the ids no other challenge points to.
func (c *Catalog) Roots() []string {
	var roots []string
	for _, id := range c.order {
		if len(c.predecessors[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Predecessors returns the ids listing id in their nextChallengeIds.
func (c *Catalog) Predecessors(id string) []string {
	return slices.Clone(c.predecessors[id])
}

// IsUnlocked reports whether id is a root or has a completed predecessor.
func (c *Catalog) IsUnlocked(ctx context.Context, progress Progress, id string) (bool, error) {
	if _, ok := c.challenges[id]; !ok {
		return false, fmt.Errorf("%q: %w", id, ErrUnknownChallenge)
	}

	preds := c.predecessors[id]
	if len(preds) == 0 {
		return true, nil
	}
	for _, p := range preds {
		done, err := progress.IsCompleted(ctx, p)
		if err != nil {
			return false, fmt.Errorf("checking progress of %s: %w", p, err)
		}
		if done {
			return true, nil
		}
	}
	return false, nil
}

// Unlocked returns every unlocked challenge in catalog order.
func (c *Catalog) Unlocked(ctx context.Context, progress Progress) ([]core.Challenge, error) {
	var out []core.Challenge
	for _, id := range c.order {
		ok, err := c.IsUnlocked(ctx, progress, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c.challenges[id])
		}
	}
	return out, nil
}

// Open returns the challenge if it is unlocked, ErrLocked otherwise.
func (c *Catalog) Open(ctx context.Context, progress Progress, id string) (core.Challenge, error) {
	ok, err := c.IsUnlocked(ctx, progress, id)
	if err != nil {
		return core.Challenge{}, err
	}
	if !ok {
		return core.Challenge{}, fmt.Errorf("%q: %w", id, ErrLocked)
	}
	return c.challenges[id], nil
}
