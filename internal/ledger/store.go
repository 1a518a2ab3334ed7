package ledger

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// Store is the append-only write path. It runs on whatever transaction it is given.
type Store struct {
	db db.DBTX
}

// NewStore binds a Store to a pool or transaction.
func NewStore(q db.DBTX) *Store {
	return &Store{db: q}
}

// Validate checks the invariants of an entry before it is written.
func Validate(e Entry) error {
	if e.MedicineID == nil || *e.MedicineID <= 0 {
		return shared.Invalid("medicine_id", "is required")
	}
	if !e.Kind.Valid() {
		return shared.Invalid("transaction_type", "is not a known kind")
	}
	if e.Quantity <= 0 {
		return shared.Invalid("quantity", "must be greater than 0")
	}
	if e.UnitPrice.IsNegative() {
		return shared.Invalid("price_per_unit", "must be greater than or equal to 0")
	}
	if !HasCents(e.UnitPrice) {
		return shared.Invalid("price_per_unit", "must have at most 2 decimal places")
	}
	return nil
}

// Append writes a new entry. The total is always recomputed from quantity and unit price.
func (s *Store) Append(ctx context.Context, e Entry) (Entry, error) {
	if err := Validate(e); err != nil {
		return Entry{}, err
	}
	e.TotalAmount = LineTotal(e.Quantity, e.UnitPrice)
	err := s.db.QueryRow(ctx, `INSERT INTO stock_transactions
    (medicine_id, transaction_type, quantity, price_per_unit, total_amount, notes, bill_id, bill_reference, performed_by, transaction_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
RETURNING id, transaction_date`,
		*e.MedicineID, string(e.Kind), e.Quantity, e.UnitPrice, e.TotalAmount, e.Note,
		nullInt(e.BillID), e.BillNumber, nullInt(e.ActorID)).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: append: %w", err)
	}
	return e, nil
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
