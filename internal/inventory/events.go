package inventory

import (
	"context"
	"time"
)

// StockMovedEvent is emitted after a committed quantity change made by this package.
type StockMovedEvent struct {
	MedicineID  int64
	Kind        string
	Quantity    int
	NewQuantity int
	ActorID     int64
	At          time.Time
}

// IntegrationHandler receives inventory events after commit.
type IntegrationHandler interface {
	HandleStockMoved(ctx context.Context, evt StockMovedEvent) error
}
