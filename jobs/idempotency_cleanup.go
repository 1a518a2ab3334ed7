package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-pharmacy/internal/jobs"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

const defaultIdempotencyRetention = 72 * time.Hour

// KeyCleaner removes processed request keys older than a retention.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob prunes the idempotency key table.
type IdempotencyCleanupJob struct {
	Store   KeyCleaner
	Locker  *cache.Locker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func NewIdempotencyCleanupJob(store KeyCleaner, locker *cache.Locker, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Store: store, Locker: locker, Logger: logger, Metrics: metrics}
}

func (j *IdempotencyCleanupJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: dependencies not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Retention <= 0 {
		payload.Retention = defaultIdempotencyRetention
	}

	err = j.Locker.WithLock(ctx, shared.JobLockKey(TaskIdempotencyCleanup), time.Minute, func(ctx context.Context) (err error) {
		tracker := j.Metrics.Track(TaskIdempotencyCleanup)
		defer func() { err = tracker.End(err) }()

		removed, err := j.Store.Cleanup(ctx, payload.Retention)
		if err != nil {
			return err
		}
		if j.Logger != nil {
			j.Logger.Info("idempotency cleanup completed", slog.Int64("removed", removed), slog.Duration("retention", payload.Retention))
		}
		return nil
	})
	if errors.Is(err, cache.ErrLocked) {
		return nil
	}
	return err
}
