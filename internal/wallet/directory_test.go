package wallet

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/97woo/tgbot/internal/store"
)

func newTestDirectory(t *testing.T) (*Directory, store.Store) {
	t.Helper()

	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "dropbot.json"))
	require.NoError(t, err)

	d, err := NewDirectory(context.Background(), st)
	require.NoError(t, err)
	return d, st
}

func TestDirectorySetAndGet(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, d.Set(ctx, "user1", strings.ToLower(checksummed)))

	addr, ok := d.Get("user1")
	require.True(t, ok)
	assert.Equal(t, checksummed, addr.Hex())

	_, ok = d.Get("unknown")
	assert.False(t, ok)
}

func TestDirectoryRejectsInvalidAddress(t *testing.T) {
	d, _ := newTestDirectory(t)

	err := d.Set(context.Background(), "user1", "0x1234")
	assert.Error(t, err)
	assert.Equal(t, 0, d.Count())
}

func TestDirectoryOverwrite(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	other := "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	require.NoError(t, d.Set(ctx, "user1", checksummed))
	require.NoError(t, d.Set(ctx, "user1", other))

	addr, ok := d.Get("user1")
	require.True(t, ok)
	assert.Equal(t, other, addr.Hex())
	assert.Equal(t, 1, d.Count())
}

func TestDirectoryRemove(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, d.Set(ctx, "user1", checksummed))

	removed, err := d.Remove(ctx, "user1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, d.Count())

	removed, err = d.Remove(ctx, "user1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDirectorySurvivesReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dropbot.json")

	st, err := store.NewFileStore(path)
	require.NoError(t, err)

	d, err := NewDirectory(ctx, st)
	require.NoError(t, err)
	require.NoError(t, d.Set(ctx, "user1", checksummed))

	// Fresh directory over the same file sees the registration.
	st2, err := store.NewFileStore(path)
	require.NoError(t, err)
	d2, err := NewDirectory(ctx, st2)
	require.NoError(t, err)

	addr, ok := d2.Get("user1")
	require.True(t, ok)
	assert.Equal(t, checksummed, addr.Hex())
}
