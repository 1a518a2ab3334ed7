package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

const medicineColumns = `id, name, generic_name, category, manufacturer, description, quantity, reorder_level,
    cost_price, selling_price, manufacturing_date, expiry_date, batch_number, rack_number,
    COALESCE(created_by, 0), created_at, updated_at`

// Registry is the only write path for medicine quantities. It runs on the transaction it is given.
type Registry struct {
	db db.DBTX
}

// NewRegistry binds a Registry to a pool or transaction.
func NewRegistry(q db.DBTX) *Registry {
	return &Registry{db: q}
}

// Get loads a medicine without locking it.
func (r *Registry) Get(ctx context.Context, id int64) (Medicine, error) {
	m, err := scanMedicine(r.db.QueryRow(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Medicine{}, shared.NotFound("medicine", id)
	}
	if err != nil {
		return Medicine{}, fmt.Errorf("inventory: get medicine: %w", err)
	}
	return m, nil
}

// LockMedicines row-locks the given medicines in ascending id order and returns them keyed by id.
// Locking in a fixed order keeps concurrent multi-item bills from deadlocking.
func (r *Registry) LockMedicines(ctx context.Context, ids []int64) (map[int64]Medicine, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	locked := make(map[int64]Medicine, len(sorted))
	for _, id := range sorted {
		m, err := scanMedicine(r.db.QueryRow(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("medicine", id)
		}
		if err != nil {
			return nil, fmt.Errorf("inventory: lock medicine %d: %w", id, err)
		}
		locked[id] = m
	}
	return locked, nil
}

// Decrement removes qty units, failing without mutation when stock is short.
func (r *Registry) Decrement(ctx context.Context, id int64, qty int) (Medicine, error) {
	if qty <= 0 {
		return Medicine{}, shared.Invalid("quantity", "must be greater than 0")
	}
	m, err := scanMedicine(r.db.QueryRow(ctx, `UPDATE medicines
SET quantity = quantity - $2, updated_at = NOW()
WHERE id = $1 AND quantity >= $2
RETURNING `+medicineColumns, id, qty))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Medicine{}, fmt.Errorf("inventory: decrement medicine %d: %w", id, err)
	}
	var (
		name      string
		available int
	)
	err = r.db.QueryRow(ctx, `SELECT name, quantity FROM medicines WHERE id = $1`, id).Scan(&name, &available)
	if errors.Is(err, pgx.ErrNoRows) {
		return Medicine{}, shared.NotFound("medicine", id)
	}
	if err != nil {
		return Medicine{}, fmt.Errorf("inventory: decrement medicine %d: %w", id, err)
	}
	return Medicine{}, &shared.InsufficientStockError{MedicineID: id, MedicineName: name, Available: available, Requested: qty}
}

// Increment adds qty units.
func (r *Registry) Increment(ctx context.Context, id int64, qty int) (Medicine, error) {
	if qty <= 0 {
		return Medicine{}, shared.Invalid("quantity", "must be greater than 0")
	}
	m, err := scanMedicine(r.db.QueryRow(ctx, `UPDATE medicines
SET quantity = quantity + $2, updated_at = NOW()
WHERE id = $1
RETURNING `+medicineColumns, id, qty))
	if errors.Is(err, pgx.ErrNoRows) {
		return Medicine{}, shared.NotFound("medicine", id)
	}
	if err != nil {
		return Medicine{}, fmt.Errorf("inventory: increment medicine %d: %w", id, err)
	}
	return m, nil
}

func scanMedicine(row pgx.Row) (Medicine, error) {
	var (
		m        Medicine
		category string
	)
	err := row.Scan(&m.ID, &m.Name, &m.GenericName, &category, &m.Manufacturer, &m.Description, &m.Quantity, &m.ReorderLevel,
		&m.CostPrice, &m.SellingPrice, &m.ManufacturingDate, &m.ExpiryDate, &m.BatchNumber, &m.RackNumber,
		&m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	m.Category = Category(category)
	return m, err
}
