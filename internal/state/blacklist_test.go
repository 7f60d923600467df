package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlacklistSeed(t *testing.T) {
	b, err := NewBlacklist(context.Background(), newTestStore(t), []string{"spammer"})
	require.NoError(t, err)

	assert.True(t, b.Contains("spammer"))
	assert.False(t, b.Contains("alice"))
}

func TestBlacklistAddRemove(t *testing.T) {
	ctx := context.Background()
	b, err := NewBlacklist(ctx, newTestStore(t), nil)
	require.NoError(t, err)

	require.NoError(t, b.Add(ctx, "mallory"))
	assert.True(t, b.Contains("mallory"))

	require.NoError(t, b.Remove(ctx, "mallory"))
	assert.False(t, b.Contains("mallory"))
}

func TestBlacklistMergesSeedWithPersisted(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	b, err := NewBlacklist(ctx, st, nil)
	require.NoError(t, err)
	require.NoError(t, b.Add(ctx, "persisted"))

	b2, err := NewBlacklist(ctx, st, []string{"seeded"})
	require.NoError(t, err)
	assert.True(t, b2.Contains("persisted"))
	assert.True(t, b2.Contains("seeded"))
}
