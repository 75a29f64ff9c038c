package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerRecompute rebuilds every account balance from the
	// posted journal.
	TaskLedgerRecompute = "ledger:recompute"
	// TaskGLIntegrity scans posted entries for debit/credit drift.
	TaskGLIntegrity = "ledger:integrity"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "ledger:idempotency_cleanup"
)

// RecomputePayload parametrises a balance recomputation run.
type RecomputePayload struct {
	Reason      string `json:"reason"`
	RequestedBy int64  `json:"requested_by"`
}

// NewRecomputeTask constructs the recomputation task.
func NewRecomputeTask(payload RecomputePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerRecompute, data), nil
}

// IntegrityPayload parametrises an integrity scan.
type IntegrityPayload struct {
	// Since restricts the scan to entries dated on or after this time.
	// Zero scans the full ledger.
	Since time.Time `json:"since"`
}

// NewIntegrityTask constructs the integrity scan task.
func NewIntegrityTask(payload IntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, data), nil
}

// IdempotencyCleanupPayload parametrises key pruning.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
