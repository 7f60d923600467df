package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldownUnknownUserHasNoCooldown(t *testing.T) {
	c, err := NewCooldownClock(context.Background(), newTestStore(t))
	require.NoError(t, err)

	remaining := c.Remaining("user1", time.Now(), time.Minute)
	assert.LessOrEqual(t, remaining, time.Duration(0))
}

func TestCooldownRemaining(t *testing.T) {
	ctx := context.Background()
	c, err := NewCooldownClock(ctx, newTestStore(t))
	require.NoError(t, err)

	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, c.Touch(ctx, "user1", base))

	// 20s into a 60s cooldown leaves 40s.
	remaining := c.Remaining("user1", base.Add(20*time.Second), time.Minute)
	assert.Equal(t, 40*time.Second, remaining)

	// Past the window.
	remaining = c.Remaining("user1", base.Add(2*time.Minute), time.Minute)
	assert.LessOrEqual(t, remaining, time.Duration(0))
}

func TestCooldownSurvivesReload(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	c, err := NewCooldownClock(ctx, st)
	require.NoError(t, err)

	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, c.Touch(ctx, "user1", base))

	c2, err := NewCooldownClock(ctx, st)
	require.NoError(t, err)

	remaining := c2.Remaining("user1", base.Add(30*time.Second), time.Minute)
	assert.Equal(t, 30*time.Second, remaining)
}
