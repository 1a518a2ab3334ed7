package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventBillCreated     EventType = "bill.created"
	EventBillCancelled   EventType = "bill.cancelled"
	EventBillRefunded    EventType = "bill.refunded"
	EventPaymentRecorded EventType = "bill.payment"
)

// StockMovement is one quantity change made while processing a bill.
type StockMovement struct {
	MedicineID int64
	Kind       string
	Quantity   int
}

// BillEvent is emitted after a committed bill operation.
type BillEvent struct {
	Type       EventType
	BillID     int64
	BillNumber string
	Amount     decimal.Decimal
	Movements  []StockMovement
	ActorID    int64
	At         time.Time
}

// IntegrationHandler receives billing events after commit and failures after rollback.
type IntegrationHandler interface {
	HandleBillEvent(ctx context.Context, evt BillEvent) error
	HandleBillFailure(ctx context.Context, operation, reason string)
}
