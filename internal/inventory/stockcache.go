package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const stockVersionKey = "stock:version"

// StockCache caches derived stock values in redis, versioned so a
// single bump invalidates everything after a write. Concurrent reads of
// the same key collapse into one aggregation query via singleflight.
type StockCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewStockCache instantiates the cache helper. A nil client degrades to
// pass-through loads.
func NewStockCache(client *redis.Client, ttl time.Duration) *StockCache {
	return &StockCache{client: client, ttl: ttl}
}

func (c *StockCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, stockVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, stockVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Fetch returns the cached stock for key or populates it via loader.
func (c *StockCache) Fetch(ctx context.Context, key StockKey, loader func(context.Context) (decimal.Decimal, error)) (decimal.Decimal, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	ver, err := c.version(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	cacheKey := fmt.Sprintf("stock:%s:%d", key.String(), ver)
	raw, err := c.client.Get(ctx, cacheKey).Result()
	if err == nil {
		return decimal.NewFromString(raw)
	}
	if !errors.Is(err, redis.Nil) {
		return decimal.Zero, err
	}
	result := c.group.DoChan(cacheKey, func() (interface{}, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, cacheKey, value.String(), c.ttl).Err(); err != nil {
			return nil, err
		}
		return value, nil
	})
	select {
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return decimal.Zero, res.Err
		}
		return res.Val.(decimal.Decimal), nil
	}
}

// Bump invalidates every cached stock value.
func (c *StockCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, stockVersionKey).Err()
}
