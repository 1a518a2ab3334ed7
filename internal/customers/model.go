package customers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is identified by the pair (phone, name). Phone may be empty.
type Customer struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Phone              string    `json:"phone"`
	Email              *string   `json:"email,omitempty"`
	Address            string    `json:"address"`
	DoctorName         string    `json:"doctor_name"`
	PrescriptionNumber string    `json:"prescription_number"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Stats summarises completed purchases of a customer.
type Stats struct {
	CustomerID       int64           `json:"customer_id"`
	TotalPurchases   int             `json:"total_purchases"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
	LastPurchaseDate *time.Time      `json:"last_purchase_date,omitempty"`
}

// ResolveInput identifies a customer at billing time and carries optional details to refresh.
type ResolveInput struct {
	Name               string
	Phone              string
	Address            string
	DoctorName         string
	PrescriptionNumber string
}
