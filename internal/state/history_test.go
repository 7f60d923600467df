package state

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/97woo/tgbot/internal/types"
)

func TestDropHistoryAppend(t *testing.T) {
	ctx := context.Background()
	h, err := NewDropHistory(ctx, newTestStore(t))
	require.NoError(t, err)

	assert.Equal(t, 0, h.Len())

	require.NoError(t, h.Append(ctx, types.DropRecord{ID: "1", VenueID: "v1", UserID: "alice"}))
	require.NoError(t, h.Append(ctx, types.DropRecord{ID: "2", VenueID: "v2", UserID: "bob"}))
	require.NoError(t, h.Append(ctx, types.DropRecord{ID: "3", VenueID: "v1", UserID: "carol"}))

	assert.Equal(t, 3, h.Len())

	v1 := h.ForVenue("v1")
	require.Len(t, v1, 2)
	assert.Equal(t, "alice", v1[0].UserID)
	assert.Equal(t, "carol", v1[1].UserID)
}

func TestDropHistoryRecent(t *testing.T) {
	ctx := context.Background()
	h, err := NewDropHistory(ctx, newTestStore(t))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Append(ctx, types.DropRecord{ID: fmt.Sprint(i)}))
	}

	recent := h.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "3", recent[0].ID)
	assert.Equal(t, "4", recent[1].ID)

	// Asking for more than exists returns everything.
	assert.Len(t, h.Recent(100), 5)
}

func TestDropHistorySurvivesReload(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	h, err := NewDropHistory(ctx, st)
	require.NoError(t, err)
	require.NoError(t, h.Append(ctx, types.DropRecord{ID: "1", TxHash: "0xabc"}))

	h2, err := NewDropHistory(ctx, st)
	require.NoError(t, err)
	require.Equal(t, 1, h2.Len())
	assert.Equal(t, "0xabc", h2.Recent(1)[0].TxHash)
}
