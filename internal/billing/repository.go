package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/customers"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/inventory"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/ledger"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// Repository serves bill reads and opens bill transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetBill(ctx context.Context, id int64) (Bill, error)
	ListBills(ctx context.Context, filter ListFilter) ([]BillSummary, int, error)
	ListRefunds(ctx context.Context, billID int64) ([]Refund, error)
	ListPayments(ctx context.Context, billID int64) ([]Payment, error)
	GetCustomer(ctx context.Context, id int64) (*customers.Customer, error)
	MedicineCosts(ctx context.Context, ids []int64) (map[int64]decimal.Decimal, error)
}

// TxRepository is everything a bill operation touches inside one transaction.
type TxRepository interface {
	ResolveCustomer(ctx context.Context, in customers.ResolveInput) (customers.Customer, error)
	NextBillNumber(ctx context.Context, day time.Time) (string, error)
	InsertBill(ctx context.Context, b Bill) (Bill, error)
	LockBill(ctx context.Context, id int64) (Bill, error)
	UpdateTotals(ctx context.Context, b Bill) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	InsertItem(ctx context.Context, item BillItem) (BillItem, error)
	ListItems(ctx context.Context, billID int64) ([]BillItem, error)
	LockMedicines(ctx context.Context, ids []int64) (map[int64]inventory.Medicine, error)
	DecrementStock(ctx context.Context, medicineID int64, qty int) (inventory.Medicine, error)
	IncrementStock(ctx context.Context, medicineID int64, qty int) (inventory.Medicine, error)
	AppendLedger(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	InsertRefund(ctx context.Context, r Refund) (Refund, error)
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
}

const billColumns = `id, bill_number, customer_id, customer_name, customer_phone, subtotal, discount_percentage,
    discount_amount, tax_percentage, tax_amount, total_amount, payment_method, amount_paid, amount_due, status,
    notes, COALESCE(created_by, 0), created_at, updated_at`

const itemColumns = `id, bill_id, medicine_id, medicine_name, batch_number, quantity, unit_price, total_price, created_at`

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// WithTx runs fn under READ COMMITTED: a transaction blocked on a medicine row lock re-reads the
// committed quantity once the lock is released, so an oversell surfaces as insufficient stock.
func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{
			tx:        tx,
			registry:  inventory.NewRegistry(tx),
			ledger:    ledger.NewStore(tx),
			customers: customers.NewStore(tx),
		})
	})
}

func (r *pgRepository) GetBill(ctx context.Context, id int64) (Bill, error) {
	b, err := scanBill(r.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, shared.NotFound("bill", id)
	}
	if err != nil {
		return Bill{}, fmt.Errorf("billing: get bill: %w", err)
	}
	b.Items, err = listItems(ctx, r.pool, id)
	if err != nil {
		return Bill{}, err
	}
	return b, nil
}

func (r *pgRepository) ListBills(ctx context.Context, filter ListFilter) ([]BillSummary, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", argPos))
		args = append(args, string(filter.Status))
		argPos++
	}
	if filter.PaymentMethod != "" {
		conditions = append(conditions, fmt.Sprintf("b.payment_method = $%d", argPos))
		args = append(args, string(filter.PaymentMethod))
		argPos++
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		conditions = append(conditions, fmt.Sprintf("(b.bill_number ILIKE $%d OR b.customer_name ILIKE $%d OR b.customer_phone ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+s+"%")
		argPos++
	}
	if !filter.DateFrom.IsZero() {
		conditions = append(conditions, fmt.Sprintf("b.created_at >= $%d", argPos))
		args = append(args, filter.DateFrom)
		argPos++
	}
	if !filter.DateTo.IsZero() {
		conditions = append(conditions, fmt.Sprintf("b.created_at <= $%d", argPos))
		args = append(args, filter.DateTo)
		argPos++
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM bills b "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("billing: count bills: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT b.id, b.bill_number, b.customer_name, b.customer_phone, b.total_amount, b.amount_paid,
    b.amount_due, b.payment_method, b.status, (SELECT COUNT(*) FROM bill_items bi WHERE bi.bill_id = b.id), b.created_at
FROM bills b
%s
ORDER BY b.created_at DESC, b.id DESC
LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("billing: list bills: %w", err)
	}
	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (BillSummary, error) {
		var (
			s              BillSummary
			method, status string
		)
		err := row.Scan(&s.ID, &s.BillNumber, &s.CustomerName, &s.CustomerPhone, &s.TotalAmount, &s.AmountPaid,
			&s.AmountDue, &method, &status, &s.ItemCount, &s.CreatedAt)
		s.PaymentMethod = PaymentMethod(method)
		s.Status = Status(status)
		return s, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("billing: scan bills: %w", err)
	}
	return summaries, total, nil
}

func (r *pgRepository) ListRefunds(ctx context.Context, billID int64) ([]Refund, error) {
	rows, err := r.pool.Query(ctx, `SELECT br.id, br.original_bill_id, br.refund_bill_id, rb.bill_number, br.reason,
    br.refund_amount, COALESCE(br.processed_by, 0), br.refund_date
FROM bill_refunds br
JOIN bills rb ON rb.id = br.refund_bill_id
WHERE br.original_bill_id = $1 OR br.refund_bill_id = $1
ORDER BY br.refund_date`, billID)
	if err != nil {
		return nil, fmt.Errorf("billing: list refunds: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Refund, error) {
		var rf Refund
		err := row.Scan(&rf.ID, &rf.OriginalBillID, &rf.RefundBillID, &rf.RefundBillNumber, &rf.Reason,
			&rf.Amount, &rf.ProcessedBy, &rf.RefundDate)
		return rf, err
	})
}

func (r *pgRepository) ListPayments(ctx context.Context, billID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, bill_id, payment_method, amount, transaction_reference, notes,
    COALESCE(created_by, 0), payment_date
FROM bill_payments WHERE bill_id = $1 ORDER BY payment_date, id`, billID)
	if err != nil {
		return nil, fmt.Errorf("billing: list payments: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Payment, error) {
		var (
			p      Payment
			method string
		)
		err := row.Scan(&p.ID, &p.BillID, &method, &p.Amount, &p.Reference, &p.Notes, &p.CreatedBy, &p.PaidAt)
		p.Method = PaymentMethod(method)
		return p, err
	})
}

func (r *pgRepository) GetCustomer(ctx context.Context, id int64) (*customers.Customer, error) {
	return customers.NewRepository(r.pool).Get(ctx, id)
}

func (r *pgRepository) MedicineCosts(ctx context.Context, ids []int64) (map[int64]decimal.Decimal, error) {
	costs := make(map[int64]decimal.Decimal, len(ids))
	if len(ids) == 0 {
		return costs, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, cost_price FROM medicines WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("billing: medicine costs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   int64
			cost decimal.Decimal
		)
		if err := rows.Scan(&id, &cost); err != nil {
			return nil, fmt.Errorf("billing: scan medicine cost: %w", err)
		}
		costs[id] = cost
	}
	return costs, rows.Err()
}

type pgTx struct {
	tx        pgx.Tx
	registry  *inventory.Registry
	ledger    *ledger.Store
	customers *customers.Store
}

func (t *pgTx) ResolveCustomer(ctx context.Context, in customers.ResolveInput) (customers.Customer, error) {
	return t.customers.Resolve(ctx, in)
}

// NextBillNumber increments the per-day counter row. The row lock is held until commit, so
// concurrent creators get distinct, gap-free sequence values.
func (t *pgTx) NextBillNumber(ctx context.Context, day time.Time) (string, error) {
	day = day.UTC()
	var seq int
	err := t.tx.QueryRow(ctx, `INSERT INTO bill_sequences (day, last_seq) VALUES ($1::date, 1)
ON CONFLICT (day) DO UPDATE SET last_seq = bill_sequences.last_seq + 1
RETURNING last_seq`, day.Format("2006-01-02")).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("billing: next bill number: %w", err)
	}
	return FormatNumber(day, seq), nil
}

func (t *pgTx) InsertBill(ctx context.Context, b Bill) (Bill, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO bills
    (bill_number, customer_id, customer_name, customer_phone, subtotal, discount_percentage, discount_amount,
     tax_percentage, tax_amount, total_amount, payment_method, amount_paid, amount_due, status, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
RETURNING id, created_at, updated_at`,
		b.BillNumber, b.CustomerID, b.CustomerName, b.CustomerPhone, b.Subtotal, b.DiscountPercentage, b.DiscountAmount,
		b.TaxPercentage, b.TaxAmount, b.TotalAmount, string(b.PaymentMethod), b.AmountPaid, b.AmountDue,
		string(b.Status), b.Notes, nullInt(b.CreatedBy)).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Bill{}, fmt.Errorf("billing: insert bill: %w", err)
	}
	return b, nil
}

func (t *pgTx) LockBill(ctx context.Context, id int64) (Bill, error) {
	b, err := scanBill(t.tx.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, shared.NotFound("bill", id)
	}
	if err != nil {
		return Bill{}, fmt.Errorf("billing: lock bill: %w", err)
	}
	b.Items, err = listItems(ctx, t.tx, id)
	if err != nil {
		return Bill{}, err
	}
	return b, nil
}

func (t *pgTx) UpdateTotals(ctx context.Context, b Bill) error {
	_, err := t.tx.Exec(ctx, `UPDATE bills SET subtotal = $2, discount_amount = $3, tax_amount = $4, total_amount = $5,
    amount_paid = $6, amount_due = $7, updated_at = NOW()
WHERE id = $1`, b.ID, b.Subtotal, b.DiscountAmount, b.TaxAmount, b.TotalAmount, b.AmountPaid, b.AmountDue)
	if err != nil {
		return fmt.Errorf("billing: update totals: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateStatus(ctx context.Context, id int64, status Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE bills SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("billing: update status: %w", err)
	}
	return nil
}

func (t *pgTx) InsertItem(ctx context.Context, item BillItem) (BillItem, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO bill_items
    (bill_id, medicine_id, medicine_name, batch_number, quantity, unit_price, total_price)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id, created_at`,
		item.BillID, item.MedicineID, item.MedicineName, item.BatchNumber, item.Quantity, item.UnitPrice, item.TotalPrice).
		Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return BillItem{}, fmt.Errorf("billing: insert item: %w", err)
	}
	return item, nil
}

func (t *pgTx) ListItems(ctx context.Context, billID int64) ([]BillItem, error) {
	return listItems(ctx, t.tx, billID)
}

func (t *pgTx) LockMedicines(ctx context.Context, ids []int64) (map[int64]inventory.Medicine, error) {
	return t.registry.LockMedicines(ctx, ids)
}

func (t *pgTx) DecrementStock(ctx context.Context, medicineID int64, qty int) (inventory.Medicine, error) {
	return t.registry.Decrement(ctx, medicineID, qty)
}

func (t *pgTx) IncrementStock(ctx context.Context, medicineID int64, qty int) (inventory.Medicine, error) {
	return t.registry.Increment(ctx, medicineID, qty)
}

func (t *pgTx) AppendLedger(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	return t.ledger.Append(ctx, e)
}

func (t *pgTx) InsertRefund(ctx context.Context, rf Refund) (Refund, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO bill_refunds (original_bill_id, refund_bill_id, reason, refund_amount, processed_by)
VALUES ($1,$2,$3,$4,$5)
RETURNING id, refund_date`, rf.OriginalBillID, rf.RefundBillID, rf.Reason, rf.Amount, nullInt(rf.ProcessedBy)).
		Scan(&rf.ID, &rf.RefundDate)
	if err != nil {
		return Refund{}, fmt.Errorf("billing: insert refund: %w", err)
	}
	return rf, nil
}

func (t *pgTx) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO bill_payments (bill_id, payment_method, amount, transaction_reference, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, payment_date`, p.BillID, string(p.Method), p.Amount, p.Reference, p.Notes, nullInt(p.CreatedBy)).
		Scan(&p.ID, &p.PaidAt)
	if err != nil {
		return Payment{}, fmt.Errorf("billing: insert payment: %w", err)
	}
	return p, nil
}

func listItems(ctx context.Context, q db.DBTX, billID int64) ([]BillItem, error) {
	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM bill_items WHERE bill_id = $1 ORDER BY id`, billID)
	if err != nil {
		return nil, fmt.Errorf("billing: list items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (BillItem, error) {
		var it BillItem
		err := row.Scan(&it.ID, &it.BillID, &it.MedicineID, &it.MedicineName, &it.BatchNumber, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.CreatedAt)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("billing: scan items: %w", err)
	}
	return items, nil
}

func scanBill(row pgx.Row) (Bill, error) {
	var (
		b              Bill
		method, status string
	)
	err := row.Scan(&b.ID, &b.BillNumber, &b.CustomerID, &b.CustomerName, &b.CustomerPhone, &b.Subtotal,
		&b.DiscountPercentage, &b.DiscountAmount, &b.TaxPercentage, &b.TaxAmount, &b.TotalAmount, &method,
		&b.AmountPaid, &b.AmountDue, &status, &b.Notes, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	b.PaymentMethod = PaymentMethod(method)
	b.Status = Status(status)
	return b, err
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
