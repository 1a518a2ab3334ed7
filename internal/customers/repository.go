package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
	Update(ctx context.Context, c Customer) (*Customer, error)
	Stats(ctx context.Context, id int64) (Stats, error)
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("customer", id)
	}
	if err != nil {
		return nil, fmt.Errorf("customers: get: %w", err)
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if s := strings.TrimSpace(req.Search); s != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d OR doctor_name ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+s+"%")
		argPos++
	}
	if req.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *req.IsActive)
		argPos++
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM customers "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("customers: count: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf("SELECT %s FROM customers %s ORDER BY name, id LIMIT $%d OFFSET $%d", customerColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("customers: list: %w", err)
	}
	defer rows.Close()
	customers := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("customers: scan: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (r *repository) Update(ctx context.Context, c Customer) (*Customer, error) {
	updated, err := scanCustomer(r.db.QueryRow(ctx, `UPDATE customers SET
    name = $2, phone = $3, email = $4, address = $5, doctor_name = $6, prescription_number = $7,
    is_active = $8, updated_at = NOW()
WHERE id = $1
RETURNING `+customerColumns,
		c.ID, c.Name, c.Phone, c.Email, c.Address, c.DoctorName, c.PrescriptionNumber, c.IsActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("customer", c.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("customers: update: %w", db.ClassifyError(err))
	}
	return &updated, nil
}

func (r *repository) Stats(ctx context.Context, id int64) (Stats, error) {
	stats := Stats{CustomerID: id}
	err := r.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total_amount), 0), MAX(created_at)
FROM bills WHERE customer_id = $1 AND status = 'completed'`, id).
		Scan(&stats.TotalPurchases, &stats.TotalSpent, &stats.LastPurchaseDate)
	if err != nil {
		return Stats{}, fmt.Errorf("customers: stats: %w", err)
	}
	return stats, nil
}
