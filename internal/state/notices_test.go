package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoticeLogMarkIfNew(t *testing.T) {
	ctx := context.Background()
	n, err := NewNoticeLog(ctx, newTestStore(t))
	require.NoError(t, err)

	first, err := n.MarkIfNew(ctx, "2025-06-15", "venue-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := n.MarkIfNew(ctx, "2025-06-15", "venue-1")
	require.NoError(t, err)
	assert.False(t, again)

	// A different venue in the same period is its own entry.
	other, err := n.MarkIfNew(ctx, "2025-06-15", "venue-2")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestNoticeLogSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	n, err := NewNoticeLog(ctx, st)
	require.NoError(t, err)
	first, err := n.MarkIfNew(ctx, "2025-06-15", "venue-1")
	require.NoError(t, err)
	require.True(t, first)

	n2, err := NewNoticeLog(ctx, st)
	require.NoError(t, err)
	again, err := n2.MarkIfNew(ctx, "2025-06-15", "venue-1")
	require.NoError(t, err)
	assert.False(t, again)
}

func TestNoticeLogPrunesOldPeriods(t *testing.T) {
	ctx := context.Background()
	n, err := NewNoticeLog(ctx, newTestStore(t))
	require.NoError(t, err)

	_, err = n.MarkIfNew(ctx, "2025-06-15", "venue-1")
	require.NoError(t, err)
	_, err = n.MarkIfNew(ctx, "2025-06-16", "venue-1")
	require.NoError(t, err)

	// Rollover drops the stale entry, so marking it again reports new.
	first, err := n.MarkIfNew(ctx, "2025-06-15", "venue-1")
	require.NoError(t, err)
	assert.True(t, first)
}
