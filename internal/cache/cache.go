package cache

import (
	"slices"
	"sync"

	"github.com/robolab-sim/engine/internal/objective"
)

// CriteriaCache keeps the parsed criteria of each challenge so reloading a
// challenge does not re-run the description parser.
type CriteriaCache struct {
	m        sync.Mutex
	criteria map[string][]objective.Criterion
}

func NewCriteriaCache() *CriteriaCache {
	return &CriteriaCache{
		criteria: make(map[string][]objective.Criterion),
	}
}

func (c *CriteriaCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.criteria = make(map[string][]objective.Criterion)
}

// Get returns a copy of the cached criteria for a challenge.
func (c *CriteriaCache) Get(challengeID string) ([]objective.Criterion, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if cr, ok := c.criteria[challengeID]; ok {
		return slices.Clone(cr), true
	}
	return nil, false
}

func (c *CriteriaCache) Set(challengeID string, criteria []objective.Criterion) {
	c.m.Lock()
	defer c.m.Unlock()
	c.criteria[challengeID] = slices.Clone(criteria)
}

// GetOrCompute returns the cached criteria, calling compute and storing its
// result on a miss. compute runs under the cache lock.
func (c *CriteriaCache) GetOrCompute(challengeID string, compute func() []objective.Criterion) []objective.Criterion {
	c.m.Lock()
	defer c.m.Unlock()
	if cr, ok := c.criteria[challengeID]; ok {
		return slices.Clone(cr)
	}
	cr := compute()
	c.criteria[challengeID] = slices.Clone(cr)
	return cr
}

func (c *CriteriaCache) Delete(challengeID string) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.criteria, challengeID)
}

func (c *CriteriaCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.criteria)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
