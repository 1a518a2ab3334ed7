package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/customers"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentUPI    PaymentMethod = "upi"
	PaymentCheque PaymentMethod = "cheque"
	PaymentCredit PaymentMethod = "credit"
	PaymentOther  PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentCheque, PaymentCredit, PaymentOther:
		return true
	}
	return false
}

type Bill struct {
	ID                 int64           `json:"id"`
	BillNumber         string          `json:"bill_number"`
	CustomerID         *int64          `json:"customer_id,omitempty"`
	CustomerName       string          `json:"customer_name"`
	CustomerPhone      string          `json:"customer_phone"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	TaxPercentage      decimal.Decimal `json:"tax_percentage"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	PaymentMethod      PaymentMethod   `json:"payment_method"`
	AmountPaid         decimal.Decimal `json:"amount_paid"`
	AmountDue          decimal.Decimal `json:"amount_due"`
	Status             Status          `json:"status"`
	Notes              string          `json:"notes"`
	CreatedBy          int64           `json:"created_by,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Items              []BillItem      `json:"items,omitempty"`
}

// IsPaid reports whether nothing remains due.
func (b Bill) IsPaid() bool {
	return !b.AmountDue.IsPositive()
}

// ChangeAmount is the overpayment owed back to the customer.
func (b Bill) ChangeAmount() decimal.Decimal {
	if b.AmountDue.IsNegative() {
		return b.AmountDue.Neg()
	}
	return decimal.Zero
}

func (b Bill) TotalItems() int {
	return len(b.Items)
}

func (b Bill) TotalQuantity() int {
	total := 0
	for _, item := range b.Items {
		total += item.Quantity
	}
	return total
}

// BillItem snapshots the medicine name and batch at sale time.
type BillItem struct {
	ID           int64           `json:"id"`
	BillID       int64           `json:"bill_id"`
	MedicineID   int64           `json:"medicine_id"`
	MedicineName string          `json:"medicine_name"`
	BatchNumber  string          `json:"batch_number"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Refund links an original bill to the reversing bill created for it.
type Refund struct {
	ID               int64           `json:"id"`
	OriginalBillID   int64           `json:"original_bill_id"`
	RefundBillID     int64           `json:"refund_bill_id"`
	RefundBillNumber string          `json:"refund_bill_number,omitempty"`
	Reason           string          `json:"reason"`
	Amount           decimal.Decimal `json:"refund_amount"`
	ProcessedBy      int64           `json:"processed_by,omitempty"`
	RefundDate       time.Time       `json:"refund_date"`
}

type Payment struct {
	ID        int64           `json:"id"`
	BillID    int64           `json:"bill_id"`
	Method    PaymentMethod   `json:"payment_method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"transaction_reference"`
	Notes     string          `json:"notes"`
	CreatedBy int64           `json:"created_by,omitempty"`
	PaidAt    time.Time       `json:"payment_date"`
}

type ItemView struct {
	BillItem
	Profit *decimal.Decimal `json:"profit,omitempty"`
}

type BillView struct {
	Bill
	Items         []ItemView          `json:"items"`
	Customer      *customers.Customer `json:"customer,omitempty"`
	Refunds       []Refund            `json:"refunds"`
	Payments      []Payment           `json:"payments"`
	IsPaid        bool                `json:"is_paid"`
	ChangeAmount  decimal.Decimal     `json:"change_amount"`
	TotalItems    int                 `json:"total_items"`
	TotalQuantity int                 `json:"total_quantity"`
}

type BillSummary struct {
	ID            int64           `json:"id"`
	BillNumber    string          `json:"bill_number"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        Status          `json:"status"`
	ItemCount     int             `json:"item_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ListFilter struct {
	Status        Status
	PaymentMethod PaymentMethod
	Search        string
	DateFrom      time.Time
	DateTo        time.Time
	Limit         int
	Offset        int
}
