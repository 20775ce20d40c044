package curriculum

import (
	"context"
	"testing"
	"time"

	"github.com/robolab-sim/engine/pkg/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// intro → {drive, turn}; drive → maze; turn → maze; sandbox stands alone
func testChallenges() []core.Challenge {
	return []core.Challenge{
		{ID: "intro", NextChallengeIDs: []string{"drive", "turn"}},
		{ID: "drive", NextChallengeIDs: []string{"maze"}},
		{ID: "turn", NextChallengeIDs: []string{"maze"}},
		{ID: "maze"},
		{ID: "sandbox"},
	}
}

func TestNewCatalog(t *testing.T) {
	c, err := NewCatalog(testChallenges()...)
	require.NoError(t, err)

	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []string{"intro", "sandbox"}, c.Roots())
	assert.Equal(t, []string{"drive", "turn"}, c.Predecessors("maze"))
	assert.Empty(t, c.Predecessors("intro"))

	ch, ok := c.Get("turn")
	require.True(t, ok)
	assert.Equal(t, []string{"maze"}, ch.NextChallengeIDs)

	all := c.All()
	require.Len(t, all, 5)
	assert.Equal(t, "intro", all[0].ID)
	assert.Equal(t, "sandbox", all[4].ID)
}

func TestNewCatalog_Errors(t *testing.T) {
	_, err := NewCatalog(core.Challenge{Title: "nameless"})
	assert.Error(t, err)

	_, err = NewCatalog(core.Challenge{ID: "a"}, core.Challenge{ID: "a"})
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewCatalog(core.Challenge{ID: "a", NextChallengeIDs: []string{"ghost"}})
	assert.ErrorIs(t, err, ErrUnknownChallenge)
}

func TestNewCatalog_SelfLinkDoesNotLock(t *testing.T) {
	c, err := NewCatalog(core.Challenge{ID: "loop", NextChallengeIDs: []string{"loop"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"loop"}, c.Roots())
}

func unlockedIDs(t *testing.T, c *Catalog, p Progress) []string {
	t.Helper()
	chs, err := c.Unlocked(context.Background(), p)
	require.NoError(t, err)
	ids := make([]string, len(chs))
	for i, ch := range chs {
		ids[i] = ch.ID
	}
	return ids
}

func TestUnlockRule(t *testing.T) {
	ctx := context.Background()
	c, err := NewCatalog(testChallenges()...)
	require.NoError(t, err)
	p := NewMemoryProgress()

	assert.Equal(t, []string{"intro", "sandbox"}, unlockedIDs(t, c, p))

	require.NoError(t, p.MarkCompleted(ctx, "intro", time.Now()))
	assert.Equal(t, []string{"intro", "drive", "turn", "sandbox"}, unlockedIDs(t, c, p))

	// any completed predecessor is enough
	require.NoError(t, p.MarkCompleted(ctx, "turn", time.Now()))
	assert.Equal(t, []string{"intro", "drive", "turn", "maze", "sandbox"}, unlockedIDs(t, c, p))
}

func TestIsUnlocked_Unknown(t *testing.T) {
	c, err := NewCatalog(testChallenges()...)
	require.NoError(t, err)

	_, err = c.IsUnlocked(context.Background(), NewMemoryProgress(), "nope")
	assert.ErrorIs(t, err, ErrUnknownChallenge)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	c, err := NewCatalog(testChallenges()...)
	require.NoError(t, err)
	p := NewMemoryProgress()

	_, err = c.Open(ctx, p, "maze")
	assert.ErrorIs(t, err, ErrLocked)

	ch, err := c.Open(ctx, p, "intro")
	require.NoError(t, err)
	assert.Equal(t, "intro", ch.ID)
}
