package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-pharmacy/internal/jobs"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/ledger"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

const reconcileLockTTL = 10 * time.Minute

// Reconciler compares medicine quantities with their ledger balances.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]ledger.Discrepancy, error)
}

// LedgerReconcileJob runs the reconcile under a Redis lock so only one worker does it at a time.
type LedgerReconcileJob struct {
	Ledger  Reconciler
	Locker  *cache.Locker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLedgerReconcileJob constructs the job handler.
func NewLedgerReconcileJob(ledger Reconciler, locker *cache.Locker, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerReconcileJob {
	return &LedgerReconcileJob{Ledger: ledger, Locker: locker, Logger: logger, Metrics: metrics}
}

// Handle executes the reconcile. A run that finds the lock taken is skipped without error.
func (j *LedgerReconcileJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Ledger == nil {
		return errors.New("ledger reconcile: dependencies not configured")
	}
	err = j.Locker.WithLock(ctx, shared.LedgerReconcileLockKey(), reconcileLockTTL, j.run)
	if errors.Is(err, cache.ErrLocked) {
		j.log().Info("ledger reconcile already running elsewhere")
		return nil
	}
	return err
}

func (j *LedgerReconcileJob) run(ctx context.Context) (err error) {
	tracker := j.Metrics.Track(TaskLedgerReconcile)
	defer func() { err = tracker.End(err) }()

	found, err := j.Ledger.Reconcile(ctx)
	if err != nil {
		j.log().Error("ledger reconcile", slog.Any("error", err))
		return err
	}
	j.Metrics.SetDiscrepancies(len(found))
	for _, d := range found {
		j.log().Error("ledger discrepancy",
			slog.Int64("medicine_id", d.MedicineID),
			slog.String("name", d.MedicineName),
			slog.Int("on_hand", d.OnHand),
			slog.Int("ledger_balance", d.LedgerBalance),
			slog.Int("difference", d.Difference()),
		)
	}
	j.log().Info("ledger reconcile completed", slog.Int("discrepancies", len(found)))
	return nil
}

func (j *LedgerReconcileJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
