package shared

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RecomputeLockKey is the redis key guarding the balance recomputation
// critical section. Recomputation resets every account balance, so it
// must never overlap with posting activity.
const RecomputeLockKey = "ledger:recompute:lock"

// StockLockID hashes a (material, location, unit) triple into a bigint
// suitable for pg_advisory_xact_lock, serialising the check-then-insert
// on outbound movements per stock key.
func StockLockID(materialID, locationID int64, unit string) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "stock:%d:%d:%s", materialID, locationID, unit)
	return int64(h.Sum64())
}

// ExclusiveLock is a SetNX-based redis lock with expiry.
type ExclusiveLock struct {
	client *redis.Client
	key    string
	token  string
}

// NewExclusiveLock builds a lock around the given key.
func NewExclusiveLock(client *redis.Client, key string) *ExclusiveLock {
	return &ExclusiveLock{client: client, key: key}
}

// Acquire attempts to take the lock for ttl. It returns false when the
// lock is already held elsewhere.
func (l *ExclusiveLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release drops the lock when still owned by this holder.
func (l *ExclusiveLock) Release(ctx context.Context) error {
	if l == nil || l.client == nil || l.token == "" {
		return nil
	}
	current, err := l.client.Get(ctx, l.key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if current != l.token {
		return nil
	}
	return l.client.Del(ctx, l.key).Err()
}
