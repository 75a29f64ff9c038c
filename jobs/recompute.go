package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/keystone-erp/keystone-ledger/internal/accounting/journals"
	"github.com/keystone-erp/keystone-ledger/internal/shared"
)

// RecomputeJob rebuilds every account balance from posted entries. The
// redis lock keeps the global reset-and-replay exclusive with respect
// to other recomputation runs; posting services must observe the same
// lock when the job is active.
type RecomputeJob struct {
	Journals *journals.Service
	Redis    *redis.Client
	LockTTL  time.Duration
	Logger   *slog.Logger
}

// NewRecomputeJob initialises the recomputation handler.
func NewRecomputeJob(journalSvc *journals.Service, redisClient *redis.Client, lockTTL time.Duration, logger *slog.Logger) *RecomputeJob {
	if logger == nil {
		logger = slog.Default()
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	return &RecomputeJob{Journals: journalSvc, Redis: redisClient, LockTTL: lockTTL, Logger: logger}
}

// Handle executes the recomputation under the exclusive ledger lock.
func (j *RecomputeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Journals == nil {
		return errors.New("recompute: handler not configured")
	}
	var payload RecomputePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	lock := shared.NewExclusiveLock(j.Redis, shared.RecomputeLockKey)
	ok, err := lock.Acquire(ctx, j.LockTTL)
	if err != nil {
		return err
	}
	if !ok {
		j.Logger.Warn("recompute already running, skipping",
			slog.String("reason", payload.Reason))
		return nil
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			j.Logger.Warn("recompute lock release failed", slog.Any("error", err))
		}
	}()

	start := time.Now()
	summary, err := j.Journals.Recompute(ctx)
	if err != nil {
		j.Logger.Error("recompute failed", slog.Any("error", err))
		return err
	}
	j.Logger.Info("recompute completed",
		slog.String("reason", payload.Reason),
		slog.Int64("requested_by", payload.RequestedBy),
		slog.Int("entries", summary.EntriesProcessed),
		slog.Int("accounts", summary.AccountsTouched),
		slog.Duration("duration", time.Since(start)))
	return nil
}
