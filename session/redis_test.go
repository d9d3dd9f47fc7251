package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-client/config"
)

func tempRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewRedisStore(mr.Addr(), "", 0, ttl)
	require.NoError(t, store.Connect(context.Background()))
	t.Cleanup(func() { store.Close() })
	return mr, store
}

func TestRedisSetGetDelete(t *testing.T) {
	ctx := context.Background()
	mr, store := tempRedis(t, 0)

	_, ok, err := store.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, KeyToken, "tok-1"))
	require.NoError(t, store.Set(ctx, KeyUser, `{"username":"alice"}`))
	assert.True(t, mr.Exists(redisKeyPrefix+KeyToken))
	assert.Zero(t, mr.TTL(redisKeyPrefix+KeyToken))

	v, ok, err := store.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", v)

	require.NoError(t, store.Delete(ctx, KeyToken, KeyUser))
	require.NoError(t, store.Delete(ctx))
	_, ok, err = store.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisExpiresWithTTL(t *testing.T) {
	ctx := context.Background()
	mr, store := tempRedis(t, time.Hour)

	require.NoError(t, store.Set(ctx, KeyToken, "tok-1"))
	assert.Equal(t, time.Hour, mr.TTL(redisKeyPrefix+KeyToken))

	mr.FastForward(time.Hour + time.Second)
	_, ok, err := store.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	store := NewRedisStore(addr, "", 0, 0)
	defer store.Close()
	assert.Error(t, store.Connect(context.Background()))
}

func TestOpenRedisSession(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	store, err := Open(ctx, config.SessionConfig{Backend: config.BackendRedis, RedisAddr: mr.Addr(), RedisTTL: time.Minute})
	require.NoError(t, err)
	defer store.Close()

	s := New(store)
	require.NoError(t, s.Start(ctx, "tok-1", nil))
	assert.True(t, s.Active(ctx))
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+KeyToken))
}
