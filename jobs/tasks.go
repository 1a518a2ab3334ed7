package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockAlerts reports low-stock and soon-to-expire medicines.
	TaskStockAlerts = "inventory:stock-alerts"
	// TaskLedgerReconcile compares on-hand quantities with the stock ledger.
	TaskLedgerReconcile = "ledger:reconcile"
	// TaskIdempotencyCleanup drops expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// StockAlertsPayload overrides the expiry window of a single run.
type StockAlertsPayload struct {
	WithinDays int `json:"within_days,omitempty"`
}

// LedgerReconcilePayload records who asked for an ad-hoc reconcile.
type LedgerReconcilePayload struct {
	RequestedBy int64     `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// IdempotencyCleanupPayload configures the retention of processed keys.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewStockAlertsTask constructs the stock alerts task.
func NewStockAlertsTask(withinDays int) (*asynq.Task, error) {
	return newTask(TaskStockAlerts, StockAlertsPayload{WithinDays: withinDays})
}

// NewLedgerReconcileTask constructs the reconcile task.
func NewLedgerReconcileTask(requestedBy int64, at time.Time) (*asynq.Task, error) {
	return newTask(TaskLedgerReconcile, LedgerReconcilePayload{RequestedBy: requestedBy, RequestedAt: at})
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	return newTask(TaskIdempotencyCleanup, IdempotencyCleanupPayload{Retention: retention})
}

func newTask(taskType string, payload any) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, asynq.Queue(QueueDefault)), nil
}
