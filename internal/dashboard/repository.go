package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// BillStats aggregates bills created in a window.
type BillStats struct {
	Bills          int
	CompletedSales decimal.Decimal
	Outstanding    decimal.Decimal
	Cancelled      int
	Refunded       int
}

// StockStats counts medicines per availability bucket.
type StockStats struct {
	Medicines    int
	LowStock     int
	OutOfStock   int
	Expired      int
	ExpiringSoon int
	StockValue   decimal.Decimal
}

// Repository reads the aggregates behind the summary.
type Repository interface {
	BillStats(ctx context.Context, from, to time.Time) (BillStats, error)
	StockStats(ctx context.Context, today, until time.Time) (StockStats, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) BillStats(ctx context.Context, from, to time.Time) (BillStats, error) {
	var s BillStats
	err := r.pool.QueryRow(ctx, `SELECT
    COUNT(*),
    COALESCE(SUM(total_amount) FILTER (WHERE status = 'completed'), 0),
    COALESCE(SUM(GREATEST(amount_due, 0)) FILTER (WHERE status = 'completed'), 0),
    COUNT(*) FILTER (WHERE status = 'cancelled'),
    COUNT(*) FILTER (WHERE status = 'refunded')
FROM bills
WHERE created_at >= $1 AND created_at < $2
  AND id NOT IN (SELECT refund_bill_id FROM bill_refunds)`, from, to).
		Scan(&s.Bills, &s.CompletedSales, &s.Outstanding, &s.Cancelled, &s.Refunded)
	if err != nil {
		return BillStats{}, fmt.Errorf("dashboard: bill stats: %w", err)
	}
	return s, nil
}

func (r *pgRepository) StockStats(ctx context.Context, today, until time.Time) (StockStats, error) {
	var s StockStats
	err := r.pool.QueryRow(ctx, `SELECT
    COUNT(*),
    COUNT(*) FILTER (WHERE expiry_date >= $1 AND quantity > 0 AND quantity <= reorder_level),
    COUNT(*) FILTER (WHERE expiry_date >= $1 AND quantity = 0),
    COUNT(*) FILTER (WHERE expiry_date < $1),
    COUNT(*) FILTER (WHERE expiry_date >= $1 AND expiry_date <= $2 AND quantity > 0),
    COALESCE(SUM(quantity * cost_price) FILTER (WHERE expiry_date >= $1), 0)
FROM medicines`, today.Format("2006-01-02"), until.Format("2006-01-02")).
		Scan(&s.Medicines, &s.LowStock, &s.OutOfStock, &s.Expired, &s.ExpiringSoon, &s.StockValue)
	if err != nil {
		return StockStats{}, fmt.Errorf("dashboard: stock stats: %w", err)
	}
	return s, nil
}
