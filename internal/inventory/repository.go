package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/ledger"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// Repository persists medicines in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	Insert(ctx context.Context, m Medicine) (Medicine, error)
	Update(ctx context.Context, m Medicine) (Medicine, error)
	Delete(ctx context.Context, id int64) error
	IsReferenced(ctx context.Context, id int64) (bool, error)
	LockMedicines(ctx context.Context, ids []int64) (map[int64]Medicine, error)
	Decrement(ctx context.Context, id int64, qty int) (Medicine, error)
	Increment(ctx context.Context, id int64, qty int) (Medicine, error)
	AppendLedger(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
}

type txRepo struct {
	*Registry
	tx     pgx.Tx
	ledger *ledger.Store
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{Registry: NewRegistry(tx), tx: tx, ledger: ledger.NewStore(tx)})
	})
}

// Get loads a medicine by id.
func (r *Repository) Get(ctx context.Context, id int64) (Medicine, error) {
	return NewRegistry(r.pool).Get(ctx, id)
}

// List returns medicines matching filter, newest first, with the total match count.
func (r *Repository) List(ctx context.Context, filter ListFilter, today time.Time) ([]Medicine, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "$?", fmt.Sprintf("$%d", len(args))))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		add("(name ILIKE $? OR generic_name ILIKE $? OR manufacturer ILIKE $? OR batch_number ILIKE $?)", "%"+s+"%")
	}
	if filter.Category != "" {
		add("category = $?", string(filter.Category))
	}
	if filter.Status != "" {
		args = append(args, today)
		day := fmt.Sprintf("$%d::date", len(args))
		switch filter.Status {
		case StatusExpired:
			conds = append(conds, "expiry_date < "+day)
		case StatusOutOfStock:
			conds = append(conds, "expiry_date >= "+day+" AND quantity = 0")
		case StatusLowStock:
			conds = append(conds, "expiry_date >= "+day+" AND quantity > 0 AND quantity <= reorder_level")
		case StatusInStock:
			conds = append(conds, "expiry_date >= "+day+" AND quantity > reorder_level")
		}
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM medicines `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("inventory: count medicines: %w", err)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM medicines %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		medicineColumns, where, len(args)-1, len(args))
	medicines, err := r.collect(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return medicines, total, nil
}

// ListExpiring returns unexpired medicines with stock whose expiry falls on or before until.
func (r *Repository) ListExpiring(ctx context.Context, today, until time.Time) ([]Medicine, error) {
	return r.collect(ctx, `SELECT `+medicineColumns+` FROM medicines
WHERE quantity > 0 AND expiry_date >= $1::date AND expiry_date <= $2::date
ORDER BY expiry_date, id`, today, until)
}

// ListLowStock returns unexpired medicines at or below their reorder level.
func (r *Repository) ListLowStock(ctx context.Context, today time.Time) ([]Medicine, error) {
	return r.collect(ctx, `SELECT `+medicineColumns+` FROM medicines
WHERE quantity <= reorder_level AND expiry_date >= $1::date
ORDER BY quantity, id`, today)
}

func (r *Repository) collect(ctx context.Context, query string, args ...any) ([]Medicine, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory: query medicines: %w", err)
	}
	defer rows.Close()
	medicines := []Medicine{}
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, fmt.Errorf("inventory: scan medicine: %w", err)
		}
		medicines = append(medicines, m)
	}
	return medicines, rows.Err()
}

func (t *txRepo) Insert(ctx context.Context, m Medicine) (Medicine, error) {
	created, err := scanMedicine(t.tx.QueryRow(ctx, `INSERT INTO medicines
    (name, generic_name, category, manufacturer, description, quantity, reorder_level, cost_price, selling_price,
     manufacturing_date, expiry_date, batch_number, rack_number, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING `+medicineColumns,
		m.Name, m.GenericName, string(m.Category), m.Manufacturer, m.Description, m.Quantity, m.ReorderLevel,
		m.CostPrice, m.SellingPrice, m.ManufacturingDate, m.ExpiryDate, m.BatchNumber, m.RackNumber, nullActor(m.CreatedBy)))
	if err != nil {
		return Medicine{}, fmt.Errorf("inventory: insert medicine: %w", err)
	}
	return created, nil
}

func (t *txRepo) Update(ctx context.Context, m Medicine) (Medicine, error) {
	updated, err := scanMedicine(t.tx.QueryRow(ctx, `UPDATE medicines SET
    name = $2, generic_name = $3, category = $4, manufacturer = $5, description = $6, reorder_level = $7,
    cost_price = $8, selling_price = $9, manufacturing_date = $10, expiry_date = $11, batch_number = $12,
    rack_number = $13, updated_at = NOW()
WHERE id = $1
RETURNING `+medicineColumns,
		m.ID, m.Name, m.GenericName, string(m.Category), m.Manufacturer, m.Description, m.ReorderLevel,
		m.CostPrice, m.SellingPrice, m.ManufacturingDate, m.ExpiryDate, m.BatchNumber, m.RackNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return Medicine{}, shared.NotFound("medicine", m.ID)
	}
	if err != nil {
		return Medicine{}, fmt.Errorf("inventory: update medicine: %w", err)
	}
	return updated, nil
}

func (t *txRepo) Delete(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("inventory: delete medicine: %w", db.ClassifyError(err))
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("medicine", id)
	}
	return nil
}

func (t *txRepo) IsReferenced(ctx context.Context, id int64) (bool, error) {
	var referenced bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bill_items WHERE medicine_id = $1)`, id).Scan(&referenced)
	if err != nil {
		return false, fmt.Errorf("inventory: check references: %w", err)
	}
	return referenced, nil
}

func (t *txRepo) AppendLedger(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	return t.ledger.Append(ctx, e)
}

func nullActor(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
