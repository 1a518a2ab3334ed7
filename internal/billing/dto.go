package billing

import (
	"github.com/shopspring/decimal"
)

type CreateBillItemRequest struct {
	MedicineID int64            `json:"medicine_id" validate:"required,gt=0"`
	Quantity   int              `json:"quantity" validate:"required,gte=1"`
	UnitPrice  *decimal.Decimal `json:"unit_price,omitempty"`
}

type CreateBillRequest struct {
	CustomerName       string                  `json:"customer_name" validate:"max=200"`
	CustomerPhone      string                  `json:"customer_phone" validate:"max=20"`
	CustomerAddress    string                  `json:"customer_address" validate:"max=500"`
	DoctorName         string                  `json:"doctor_name" validate:"max=200"`
	PrescriptionNumber string                  `json:"prescription_number" validate:"max=100"`
	DiscountPercentage decimal.Decimal         `json:"discount_percentage"`
	TaxPercentage      decimal.Decimal         `json:"tax_percentage"`
	PaymentMethod      string                  `json:"payment_method" validate:"omitempty,oneof=cash card upi cheque credit other"`
	AmountPaid         decimal.Decimal         `json:"amount_paid"`
	Notes              string                  `json:"notes" validate:"max=1000"`
	Items              []CreateBillItemRequest `json:"items" validate:"dive"`
}

// ToInput converts the request. Empty items are rejected later by the service.
func (r CreateBillRequest) ToInput(actorID int64, idempotencyKey string) CreateBillInput {
	items := make([]ItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, ItemInput{MedicineID: it.MedicineID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	method := PaymentMethod(r.PaymentMethod)
	if method == "" {
		method = PaymentCash
	}
	return CreateBillInput{
		CustomerName:       r.CustomerName,
		CustomerPhone:      r.CustomerPhone,
		CustomerAddress:    r.CustomerAddress,
		DoctorName:         r.DoctorName,
		PrescriptionNumber: r.PrescriptionNumber,
		DiscountPercentage: r.DiscountPercentage,
		TaxPercentage:      r.TaxPercentage,
		PaymentMethod:      method,
		AmountPaid:         r.AmountPaid,
		Notes:              r.Notes,
		Items:              items,
		ActorID:            actorID,
		IdempotencyKey:     idempotencyKey,
	}
}

// ItemInput is one requested line. A nil or zero UnitPrice means the medicine's selling price.
type ItemInput struct {
	MedicineID int64
	Quantity   int
	UnitPrice  *decimal.Decimal
}

type CreateBillInput struct {
	CustomerName       string
	CustomerPhone      string
	CustomerAddress    string
	DoctorName         string
	PrescriptionNumber string
	DiscountPercentage decimal.Decimal
	TaxPercentage      decimal.Decimal
	PaymentMethod      PaymentMethod
	AmountPaid         decimal.Decimal
	Notes              string
	Items              []ItemInput
	ActorID            int64
	IdempotencyKey     string
}

type CreateBillResult struct {
	BillID     int64  `json:"bill_id"`
	BillNumber string `json:"bill_number"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type RefundRequest struct {
	Reason string           `json:"reason" validate:"required,max=500"`
	Amount *decimal.Decimal `json:"refund_amount,omitempty"`
}

type RefundInput struct {
	BillID  int64
	Reason  string
	Amount  *decimal.Decimal
	ActorID int64
}

type RefundResult struct {
	RefundID         int64           `json:"refund_id"`
	RefundBillID     int64           `json:"refund_bill_id"`
	RefundBillNumber string          `json:"refund_bill_number"`
	Amount           decimal.Decimal `json:"refund_amount"`
}

type PaymentRequest struct {
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=cash card upi cheque credit other"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"transaction_reference" validate:"max=100"`
	Notes         string          `json:"notes" validate:"max=500"`
}

type PaymentInput struct {
	BillID    int64
	Method    PaymentMethod
	Amount    decimal.Decimal
	Reference string
	Notes     string
	ActorID   int64
}
