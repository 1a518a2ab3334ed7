package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

type memoryReader struct {
	entries  []Entry
	onHand   map[int64]int
	lastList Filter
}

func (m *memoryReader) List(_ context.Context, filter Filter) ([]Entry, error) {
	m.lastList = filter
	var out []Entry
	for _, e := range m.entries {
		if filter.MedicineID != 0 && (e.MedicineID == nil || *e.MedicineID != filter.MedicineID) {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryReader) Balance(_ context.Context, medicineID int64, asOf time.Time) (int, error) {
	total := 0
	for _, e := range m.entries {
		if e.MedicineID == nil || *e.MedicineID != medicineID {
			continue
		}
		if !asOf.IsZero() && e.CreatedAt.After(asOf) {
			continue
		}
		total += e.SignedQuantity()
	}
	return total, nil
}

func (m *memoryReader) Discrepancies(ctx context.Context) ([]Discrepancy, error) {
	var out []Discrepancy
	for id, qty := range m.onHand {
		balance, _ := m.Balance(ctx, id, time.Time{})
		if balance != qty {
			out = append(out, Discrepancy{MedicineID: id, OnHand: qty, LedgerBalance: balance})
		}
	}
	return out, nil
}

func TestKindSign(t *testing.T) {
	assert.Equal(t, 1, KindPurchase.Sign())
	assert.Equal(t, 1, KindReturn.Sign())
	assert.Equal(t, -1, KindSale.Sign())
	assert.Equal(t, -1, KindExpired.Sign())
	assert.Equal(t, -1, KindDamaged.Sign())
	assert.False(t, Kind("adjustment").Valid())
}

func TestNewEntryComputesTotal(t *testing.T) {
	e := NewEntry(4, KindSale, 3, decimal.RequireFromString("12.35"), "Bill: BILL-20240101-0001")
	assert.True(t, e.TotalAmount.Equal(decimal.RequireFromString("37.05")))
	assert.Equal(t, -3, e.SignedQuantity())
	require.NoError(t, Validate(e))
}

func TestMoneyHelpers(t *testing.T) {
	assert.True(t, RoundMoney(decimal.RequireFromString("2.345")).Equal(decimal.RequireFromString("2.34")))
	assert.True(t, RoundMoney(decimal.RequireFromString("2.355")).Equal(decimal.RequireFromString("2.36")))
	assert.True(t, HasCents(decimal.RequireFromString("1.50")))
	assert.True(t, HasCents(decimal.RequireFromString("1.500")))
	assert.False(t, HasCents(decimal.RequireFromString("1.005")))
	assert.True(t, LineTotal(5, decimal.RequireFromString("1.01")).Equal(decimal.RequireFromString("5.05")))
}

func TestValidateRejectsBadEntries(t *testing.T) {
	cases := map[string]Entry{
		"no medicine":    {Kind: KindSale, Quantity: 1},
		"unknown kind":   NewEntry(1, Kind("gift"), 1, decimal.Zero, ""),
		"zero quantity":  NewEntry(1, KindSale, 0, decimal.Zero, ""),
		"negative price": NewEntry(1, KindPurchase, 1, decimal.NewFromInt(-1), ""),
		"sub-cent price": NewEntry(1, KindSale, 5, decimal.RequireFromString("1.005"), ""),
	}
	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, Validate(e), shared.ErrValidation)
		})
	}
}

func TestServiceListValidatesFilter(t *testing.T) {
	svc := NewService(&memoryReader{})
	_, err := svc.List(context.Background(), Filter{Kind: "refund"})
	require.ErrorIs(t, err, shared.ErrValidation)

	now := time.Now()
	_, err = svc.List(context.Background(), Filter{From: now, To: now.Add(-time.Hour)})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceListCapsLimit(t *testing.T) {
	repo := &memoryReader{}
	svc := NewService(repo)
	_, err := svc.List(context.Background(), Filter{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, 1000, repo.lastList.Limit)
}

func TestReconcileReportsOnlyMismatches(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	entry := func(id int64, kind Kind, qty int, at time.Time) Entry {
		e := NewEntry(id, kind, qty, decimal.NewFromInt(10), "")
		e.CreatedAt = at
		return e
	}
	repo := &memoryReader{
		entries: []Entry{
			entry(1, KindPurchase, 50, base),
			entry(1, KindSale, 5, base.Add(time.Hour)),
			entry(1, KindReturn, 5, base.Add(2*time.Hour)),
			entry(2, KindPurchase, 20, base),
			entry(2, KindDamaged, 2, base.Add(time.Hour)),
		},
		onHand: map[int64]int{1: 50, 2: 20},
	}
	svc := NewService(repo)

	discrepancies, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, discrepancies, 1)
	assert.Equal(t, int64(2), discrepancies[0].MedicineID)
	assert.Equal(t, 2, discrepancies[0].Difference())

	balance, err := svc.BalanceAt(context.Background(), 1, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 45, balance)

	_, err = svc.BalanceAt(context.Background(), 0, time.Time{})
	require.ErrorIs(t, err, shared.ErrValidation)
}
