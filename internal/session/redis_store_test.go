package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/domain"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)

	client := red.NewClient(&red.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return client, server
}

func TestRedisStore_SaveLoadDelete(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewRedisStore(client, "test:session")
	ctx := context.Background()
	identity := domain.Identity{UserID: "u-1", Username: "alice"}

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.Save(ctx, "s-1", identity, time.Hour))
	assert.True(t, server.Exists("test:session:s-1"))
	assert.Equal(t, time.Hour, server.TTL("test:session:s-1"))

	got, ok, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, identity, got)

	require.NoError(t, store.Delete(ctx, "s-1"))
	require.NoError(t, store.Delete(ctx, "s-1"))

	_, ok, err = store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Expiry(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewRedisStore(client, "")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s-1", domain.Identity{UserID: "u-1", Username: "bob"}, time.Minute))
	assert.True(t, server.Exists(defaultKeyPrefix+":s-1"))

	server.FastForward(2 * time.Minute)

	_, ok, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_InvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewRedisStore(client, "test:session")
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, "", domain.Identity{UserID: "u-1"}, time.Minute))
	assert.Error(t, store.Save(ctx, "s-1", domain.Identity{UserID: "u-1"}, 0))

	_, ok, err := store.Load(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Unavailable(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	client := red.NewClient(&red.Options{Addr: server.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "test:session")
	server.Close()

	_, _, err = store.Load(context.Background(), "s-1")
	assert.Error(t, err)
	assert.Error(t, store.Ping(context.Background()))
}

func TestDialRedis(t *testing.T) {
	_, server := newTestRedis(t)

	client, err := DialRedis(context.Background(), RedisOptions{Addr: server.Addr()})
	require.NoError(t, err)
	_ = client.Close()
}
