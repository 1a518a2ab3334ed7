package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/inventory"
	jobmetrics "github.com/odyssey-erp/odyssey-pharmacy/internal/jobs"
)

// StockReader lists the medicines that need attention.
type StockReader interface {
	ListLowStock(ctx context.Context) ([]inventory.MedicineView, error)
	ListExpiring(ctx context.Context, withinDays int) ([]inventory.MedicineView, error)
}

// StockAlertsJob logs low-stock and expiring medicines.
type StockAlertsJob struct {
	Stock   StockReader
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewStockAlertsJob constructs the job handler.
func NewStockAlertsJob(stock StockReader, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockAlertsJob {
	return &StockAlertsJob{Stock: stock, Logger: logger, Metrics: metrics}
}

// Handle executes one alert run.
func (j *StockAlertsJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Stock == nil {
		return errors.New("stock alerts: dependencies not configured")
	}
	var payload StockAlertsPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.Metrics.Track(TaskStockAlerts)
	defer func() { err = tracker.End(err) }()

	low, err := j.Stock.ListLowStock(ctx)
	if err != nil {
		j.log().Error("list low stock", slog.Any("error", err))
		return err
	}
	expiring, err := j.Stock.ListExpiring(ctx, payload.WithinDays)
	if err != nil {
		j.log().Error("list expiring", slog.Any("error", err))
		return err
	}

	for _, m := range low {
		j.log().Warn("low stock",
			slog.Int64("medicine_id", m.ID),
			slog.String("name", m.Name),
			slog.Int("quantity", m.Quantity),
			slog.Int("reorder_level", m.ReorderLevel),
		)
	}
	for _, m := range expiring {
		j.log().Warn("expiring soon",
			slog.Int64("medicine_id", m.ID),
			slog.String("name", m.Name),
			slog.String("batch", m.BatchNumber),
			slog.Int("days_to_expiry", m.DaysToExpiry),
		)
	}
	j.Metrics.SetStockAlerts("low_stock", len(low))
	j.Metrics.SetStockAlerts("expiring", len(expiring))
	j.log().Info("stock alerts completed", slog.Int("low_stock", len(low)), slog.Int("expiring", len(expiring)))
	return nil
}

func (j *StockAlertsJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
