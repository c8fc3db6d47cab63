package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store/drivers/redis"
	"github.com/stretchr/testify/require"
)

func setupBlacklist(t *testing.T) (*miniredis.Miniredis, *redis.Blacklist) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(redis.Config{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, redis.NewBlacklist(client, "")
}

func TestBlacklist(t *testing.T) {
	ctx := context.Background()
	mr, bl := setupBlacklist(t)

	t.Run("membership", func(t *testing.T) {
		member, err := bl.IsMember(ctx, "jti-aaaaaaaaaaaaaaaa")
		require.NoError(t, err)
		require.False(t, member)

		require.NoError(t, bl.Add(ctx, "jti-aaaaaaaaaaaaaaaa", time.Minute))

		member, err = bl.IsMember(ctx, "jti-aaaaaaaaaaaaaaaa")
		require.NoError(t, err)
		require.True(t, member)
		require.True(t, mr.Exists(redis.DefaultPrefix+"jti-aaaaaaaaaaaaaaaa"))
	})

	t.Run("add is idempotent and keeps first ttl", func(t *testing.T) {
		require.NoError(t, bl.Add(ctx, "jti-bbbbbbbbbbbbbbbb", time.Minute))
		require.NoError(t, bl.Add(ctx, "jti-bbbbbbbbbbbbbbbb", time.Hour))

		require.Equal(t, time.Minute, mr.TTL(redis.DefaultPrefix+"jti-bbbbbbbbbbbbbbbb"))
	})

	t.Run("ttl has a one second floor", func(t *testing.T) {
		require.NoError(t, bl.Add(ctx, "jti-cccccccccccccccc", 10*time.Millisecond))
		require.Equal(t, time.Second, mr.TTL(redis.DefaultPrefix+"jti-cccccccccccccccc"))
	})

	t.Run("entries expire", func(t *testing.T) {
		require.NoError(t, bl.Add(ctx, "jti-dddddddddddddddd", 30*time.Second))
		mr.FastForward(31 * time.Second)

		member, err := bl.IsMember(ctx, "jti-dddddddddddddddd")
		require.NoError(t, err)
		require.False(t, member)
	})

	t.Run("empty jti", func(t *testing.T) {
		_, err := bl.IsMember(ctx, "")
		require.Error(t, err)
		require.Error(t, bl.Add(ctx, "", time.Minute))
	})
}

func TestBlacklistUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, bl := setupBlacklist(t)

	require.NoError(t, bl.Ping(ctx))
	mr.SetError("LOADING")

	_, err := bl.IsMember(ctx, "jti-eeeeeeeeeeeeeeee")
	require.Error(t, err)
	require.Error(t, bl.Add(ctx, "jti-eeeeeeeeeeeeeeee", time.Minute))
	require.Error(t, bl.Ping(ctx))
}

func TestBlacklistCustomPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(redis.Config{Addr: mr.Addr()})
	defer client.Close()

	bl := redis.NewBlacklist(client, "custom:")
	require.NoError(t, bl.Add(context.Background(), "jti-ffffffffffffffff", time.Minute))
	require.True(t, mr.Exists("custom:jti-ffffffffffffffff"))
}
