package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestStockLockIDDeterministic(t *testing.T) {
	a := StockLockID(1, 2, "kg")
	b := StockLockID(1, 2, "kg")
	require.Equal(t, a, b)
	require.NotEqual(t, a, StockLockID(1, 2, "pc"))
	require.NotEqual(t, a, StockLockID(2, 1, "kg"))
}

func TestExclusiveLockMutualExclusion(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	first := NewExclusiveLock(client, RecomputeLockKey)
	ok, err := first.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	second := NewExclusiveLock(client, RecomputeLockKey)
	ok, err = second.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, first.Release(ctx))

	ok, err = second.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestExclusiveLockReleaseOnlyOwn(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	holder := NewExclusiveLock(client, RecomputeLockKey)
	ok, err := holder.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// A lock that never acquired must not free the holder's key.
	bystander := NewExclusiveLock(client, RecomputeLockKey)
	require.NoError(t, bystander.Release(ctx))

	stillHeld, err := client.Exists(ctx, RecomputeLockKey).Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, stillHeld)
}
