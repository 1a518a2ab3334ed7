package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository serves ledger reads from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const signedQty = `CASE WHEN st.transaction_type IN ('purchase','return') THEN st.quantity ELSE -st.quantity END`

// List returns entries matching filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.MedicineID != 0 {
		add("st.medicine_id = $%d", filter.MedicineID)
	}
	if filter.Kind != "" {
		add("st.transaction_type = $%d", string(filter.Kind))
	}
	if filter.BillID != 0 {
		add("st.bill_id = $%d", filter.BillID)
	}
	if filter.BillNumber != "" {
		add("st.bill_reference = $%d", filter.BillNumber)
	}
	if !filter.From.IsZero() {
		add("st.transaction_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("st.transaction_date <= $%d", filter.To)
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT st.id, st.medicine_id, st.transaction_type, st.quantity, st.price_per_unit, st.total_amount,
    st.notes, COALESCE(st.bill_id, 0), st.bill_reference, COALESCE(st.performed_by, 0), st.transaction_date
FROM stock_transactions st
%s
ORDER BY st.transaction_date DESC, st.id DESC
LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()
	entries := []Entry{}
	for rows.Next() {
		var (
			e    Entry
			kind string
		)
		if err := rows.Scan(&e.ID, &e.MedicineID, &kind, &e.Quantity, &e.UnitPrice, &e.TotalAmount,
			&e.Note, &e.BillID, &e.BillNumber, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		e.Kind = Kind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	return entries, nil
}

// Balance sums signed quantities for a medicine up to asOf (all time when zero).
func (r *Repository) Balance(ctx context.Context, medicineID int64, asOf time.Time) (int, error) {
	var balance int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(`+signedQty+`), 0)
FROM stock_transactions st
WHERE st.medicine_id = $1 AND st.transaction_date <= COALESCE($2, 'infinity'::timestamptz)`, medicineID, nullTime(asOf)).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("ledger: balance: %w", err)
	}
	return balance, nil
}

// Discrepancies lists medicines whose live quantity differs from the ledger sum.
func (r *Repository) Discrepancies(ctx context.Context) ([]Discrepancy, error) {
	rows, err := r.pool.Query(ctx, `SELECT m.id, m.name, m.quantity, COALESCE(SUM(`+signedQty+`), 0) AS balance
FROM medicines m
LEFT JOIN stock_transactions st ON st.medicine_id = m.id
GROUP BY m.id, m.name, m.quantity
HAVING m.quantity <> COALESCE(SUM(`+signedQty+`), 0)
ORDER BY m.id`)
	if err != nil {
		return nil, fmt.Errorf("ledger: discrepancies: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Discrepancy, error) {
		var d Discrepancy
		err := row.Scan(&d.MedicineID, &d.MedicineName, &d.OnHand, &d.LedgerBalance)
		return d, err
	})
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
