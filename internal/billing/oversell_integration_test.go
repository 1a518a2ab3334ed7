//go:build integration

package billing

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// Run with: PHARMACY_TEST_PG_DSN=postgres://... go test -tags integration ./internal/billing/
func TestPostgresConcurrentBuyersNeverOversell(t *testing.T) {
	dsn := os.Getenv("PHARMACY_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("PHARMACY_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	require.NoError(t, db.Migrate(dsn))
	pool, err := db.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	var medID int64
	err = pool.QueryRow(ctx, `INSERT INTO medicines
		(name, category, manufacturer, quantity, cost_price, selling_price, manufacturing_date, expiry_date, batch_number)
		VALUES ('Race Test 10mg', 'tablet', 'Acme', 5, 6.00, 10.00, $1, $2, 'RACE-01')
		RETURNING id`, time.Now().AddDate(-1, 0, 0), time.Now().AddDate(1, 0, 0)).Scan(&medID)
	require.NoError(t, err)

	svc := NewService(NewRepository(pool), nil, nil, nil, ServiceConfig{}, nil)

	const buyers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		shortages int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateBill(ctx, CreateBillInput{
				PaymentMethod: PaymentCash,
				Items:         []ItemInput{{MedicineID: medID, Quantity: 5}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, shared.ErrInsufficientStock):
				shortages++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, buyers-1, shortages)

	var qty, balance int
	require.NoError(t, pool.QueryRow(ctx, `SELECT quantity FROM medicines WHERE id = $1`, medID).Scan(&qty))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COALESCE(SUM(CASE WHEN transaction_type IN ('sale','expired','damaged') THEN -quantity ELSE quantity END), 0)
		FROM stock_transactions WHERE medicine_id = $1`, medID).Scan(&balance))
	assert.Equal(t, 0, qty)
	assert.Equal(t, -5, balance)
}
