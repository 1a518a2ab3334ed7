package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

const customerColumns = `id, name, phone, email, address, doctor_name, prescription_number, is_active, created_at, updated_at`

// Store resolves customers inside the caller's transaction.
type Store struct {
	db db.DBTX
}

// NewStore binds a Store to a pool or transaction.
func NewStore(q db.DBTX) *Store {
	return &Store{db: q}
}

// Resolve finds or creates the customer for (phone, name). Non-empty address, doctor and
// prescription values overwrite the stored ones.
func (s *Store) Resolve(ctx context.Context, in ResolveInput) (Customer, error) {
	in = normalizeResolve(in)
	if in.Name == "" {
		return Customer{}, shared.Invalid("customer_name", "is required")
	}
	c, err := scanCustomer(s.db.QueryRow(ctx, `INSERT INTO customers (name, phone, address, doctor_name, prescription_number)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT ON CONSTRAINT customers_phone_name_key DO UPDATE SET
    address = COALESCE(NULLIF(EXCLUDED.address, ''), customers.address),
    doctor_name = COALESCE(NULLIF(EXCLUDED.doctor_name, ''), customers.doctor_name),
    prescription_number = COALESCE(NULLIF(EXCLUDED.prescription_number, ''), customers.prescription_number),
    updated_at = NOW()
RETURNING `+customerColumns, in.Name, in.Phone, in.Address, in.DoctorName, in.PrescriptionNumber))
	if err != nil {
		return Customer{}, fmt.Errorf("customers: resolve: %w", err)
	}
	return c, nil
}

func normalizeResolve(in ResolveInput) ResolveInput {
	return ResolveInput{
		Name:               strings.TrimSpace(in.Name),
		Phone:              strings.TrimSpace(in.Phone),
		Address:            strings.TrimSpace(in.Address),
		DoctorName:         strings.TrimSpace(in.DoctorName),
		PrescriptionNumber: strings.TrimSpace(in.PrescriptionNumber),
	}
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.DoctorName, &c.PrescriptionNumber,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
