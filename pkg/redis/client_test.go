package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/weddingplanner-backend/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return Wrap(raw), mr
}

func TestBoundedRPushRespectsLimitAndTTL(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	key := client.ActionLogKey("device-1")

	for i := 1; i <= 2; i++ {
		n, err := client.BoundedRPush(ctx, key, "entry", 2, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}

	_, err := client.BoundedRPush(ctx, key, "overflow", 2, time.Hour)
	assert.ErrorIs(t, err, ErrListFull)

	values, err := client.LRange(ctx, key, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"entry", "entry"}, values)
	assert.Equal(t, time.Hour, mr.TTL(key))
}

func TestBoundedRPushZeroMaxIsUnbounded(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	key := client.ActionLogKey("device-2")

	for i := 0; i < 5; i++ {
		_, err := client.BoundedRPush(ctx, key, i, 0, 0)
		require.NoError(t, err)
	}
	n, err := client.LLen(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, time.Duration(0), mr.TTL(key))
}

func TestTrimHeadKeepsTailAndRestoresRetained(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	key := client.ActionLogKey("device-3")

	for _, v := range []string{"a", "b", "c", "d"} {
		_, err := client.BoundedRPush(ctx, key, v, 0, time.Hour)
		require.NoError(t, err)
	}

	require.NoError(t, client.TrimHead(ctx, key, 3, time.Hour, "a", "c"))

	values, err := client.LRange(ctx, key, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, values)
}

func TestTrimHeadEmptiesList(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	key := client.ActionLogKey("device-4")

	_, err := client.BoundedRPush(ctx, key, "a", 0, time.Hour)
	require.NoError(t, err)
	require.NoError(t, client.TrimHead(ctx, key, 1, time.Hour))

	n, err := client.LLen(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, mr.Exists(key))
}

func TestReleaseLockOnlyForOwner(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	key := client.ReplayLockKey("device-5")

	ok, err := client.SetNX(ctx, key, "token-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.SetNX(ctx, key, "token-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	released, err := client.ReleaseLock(ctx, key, "token-b")
	require.NoError(t, err)
	assert.False(t, released)

	released, err = client.ReleaseLock(ctx, key, "token-a")
	require.NoError(t, err)
	assert.True(t, released)

	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, goredis.Nil)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "wp:action_log:abc", client.ActionLogKey("abc"))
	assert.Equal(t, "wp:replay_lock:abc", client.ReplayLockKey(" abc "))
	assert.Equal(t, "wp:idempotency:dev|POST:k1", client.IdempotencyKey("dev|POST", "k1"))
	assert.Equal(t, "wp", client.buildKey())
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	assert.Error(t, client.Ping(ctx))
	_, err := client.LLen(ctx, "k")
	assert.Error(t, err)
	assert.NoError(t, client.Close())
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://localhost:6380/2",
		PoolSize:    7,
		DialTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 4})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 4, opts.DB)
}
