package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreWithClient(client)
	t.Cleanup(func() { _ = s.Close() })

	return s, mr
}

func TestRedisStorePutGet(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	in := map[string]string{"user1": "0xabc"}
	require.NoError(t, s.Put(ctx, DocWallets, in))

	var out map[string]string
	found, err := s.Get(ctx, DocWallets, &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)
}

func TestRedisStoreGetMissing(t *testing.T) {
	s, _ := newTestRedisStore(t)

	var v map[string]string
	found, err := s.Get(context.Background(), DocLedger, &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStorePutPreservesSiblings(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, DocWallets, map[string]string{"user1": "0xabc"}))
	require.NoError(t, s.Put(ctx, DocLedger, map[string]string{"2025-01-01": "100"}))
	require.NoError(t, s.Put(ctx, DocWallets, map[string]string{"user2": "0xdef"}))

	var ledger map[string]string
	found, err := s.Get(ctx, DocLedger, &ledger)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, map[string]string{"2025-01-01": "100"}, ledger)
}

func TestRedisStoreDelete(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, DocWinners, map[string]string{"venue1": "user1"}))
	require.NoError(t, s.Delete(ctx, DocWinners))

	var v map[string]string
	found, err := s.Get(ctx, DocWinners, &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStoreAllDocumentsInOneHash(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, DocWallets, map[string]string{}))
	require.NoError(t, s.Put(ctx, DocLedger, map[string]string{}))

	// Documents live as fields of the single hash key.
	fields, err := mr.HKeys(documentsKey)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{DocWallets, DocLedger}, fields)
}
