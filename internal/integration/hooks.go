package integration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/billing"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/inventory"
)

// Metrics is the subset of observability.Metrics the hooks feed.
type Metrics interface {
	BillCommitted(outcome string)
	BillFailed(operation, reason string)
	StockMoved(kind string, qty int)
}

// Invalidator drops derived read models after a committed change.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Hooks fans committed billing and inventory events out to metrics and the dashboard cache.
type Hooks struct {
	metrics Metrics
	cache   Invalidator
	logger  *slog.Logger
}

// NewHooks constructs integration hooks. Any dependency may be nil.
func NewHooks(metrics Metrics, cache Invalidator, logger *slog.Logger) *Hooks {
	return &Hooks{metrics: metrics, cache: cache, logger: logger}
}

var outcomes = map[billing.EventType]string{
	billing.EventBillCreated:     "created",
	billing.EventBillCancelled:   "cancelled",
	billing.EventBillRefunded:    "refunded",
	billing.EventPaymentRecorded: "payment",
}

// HandleBillEvent records a committed bill operation.
func (h *Hooks) HandleBillEvent(ctx context.Context, evt billing.BillEvent) error {
	if h == nil {
		return nil
	}
	outcome, ok := outcomes[evt.Type]
	if !ok {
		return fmt.Errorf("integration: unknown bill event %q", evt.Type)
	}
	if h.metrics != nil {
		h.metrics.BillCommitted(outcome)
		for _, mv := range evt.Movements {
			h.metrics.StockMoved(mv.Kind, mv.Quantity)
		}
	}
	if h.logger != nil {
		h.logger.Debug("bill event",
			slog.String("type", string(evt.Type)),
			slog.Int64("bill_id", evt.BillID),
			slog.String("bill_number", evt.BillNumber),
			slog.String("amount", evt.Amount.StringFixed(2)),
		)
	}
	return h.invalidate(ctx)
}

// HandleBillFailure counts a rolled back bill operation.
func (h *Hooks) HandleBillFailure(_ context.Context, operation, reason string) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.BillFailed(operation, reason)
}

// HandleStockMoved records an inventory adjustment, write-off or initial stock.
func (h *Hooks) HandleStockMoved(ctx context.Context, evt inventory.StockMovedEvent) error {
	if h == nil {
		return nil
	}
	if h.metrics != nil {
		h.metrics.StockMoved(evt.Kind, evt.Quantity)
	}
	return h.invalidate(ctx)
}

func (h *Hooks) invalidate(ctx context.Context) error {
	if h.cache == nil {
		return nil
	}
	if err := h.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("integration: invalidate dashboard: %w", err)
	}
	return nil
}
