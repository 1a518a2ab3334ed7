package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind enumerates stock-affecting events.
type Kind string

const (
	// KindPurchase records stock received.
	KindPurchase Kind = "purchase"
	// KindSale records stock sold on a bill.
	KindSale Kind = "sale"
	// KindReturn records stock restored by a cancelled or refunded bill.
	KindReturn Kind = "return"
	// KindExpired records stock written off past its expiry date.
	KindExpired Kind = "expired"
	// KindDamaged records stock written off as damaged.
	KindDamaged Kind = "damaged"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPurchase, KindSale, KindReturn, KindExpired, KindDamaged:
		return true
	}
	return false
}

// Sign is +1 for kinds that add stock and -1 for kinds that remove it.
func (k Kind) Sign() int {
	if k == KindPurchase || k == KindReturn {
		return 1
	}
	return -1
}

// Entry is one immutable ledger row. MedicineID is nil once the medicine has been deleted.
type Entry struct {
	ID          int64           `json:"id"`
	MedicineID  *int64          `json:"medicine_id"`
	Kind        Kind            `json:"transaction_type"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"price_per_unit"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Note        string          `json:"notes"`
	BillID      int64           `json:"bill_id,omitempty"`
	BillNumber  string          `json:"bill_reference,omitempty"`
	ActorID     int64           `json:"performed_by,omitempty"`
	CreatedAt   time.Time       `json:"transaction_date"`
}

// SignedQuantity returns the quantity with the direction of the kind applied.
func (e Entry) SignedQuantity() int {
	return e.Kind.Sign() * e.Quantity
}

// Filter narrows ledger queries.
type Filter struct {
	MedicineID int64
	Kind       Kind
	BillID     int64
	BillNumber string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// Discrepancy describes a medicine whose live quantity disagrees with its ledger.
type Discrepancy struct {
	MedicineID    int64  `json:"medicine_id"`
	MedicineName  string `json:"medicine_name"`
	OnHand        int    `json:"on_hand"`
	LedgerBalance int    `json:"ledger_balance"`
}

// Difference is OnHand minus LedgerBalance.
func (d Discrepancy) Difference() int {
	return d.OnHand - d.LedgerBalance
}

// RoundMoney rounds to cents with banker's rounding. Every stored amount goes through it.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// HasCents reports whether d fits a NUMERIC(_,2) column without rounding.
func HasCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// LineTotal is quantity times unit price, rounded to cents.
func LineTotal(qty int, unitPrice decimal.Decimal) decimal.Decimal {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(qty))))
}

// NewEntry builds an entry for medicineID with the total computed from quantity and unit price.
func NewEntry(medicineID int64, kind Kind, qty int, unitPrice decimal.Decimal, note string) Entry {
	id := medicineID
	return Entry{
		MedicineID:  &id,
		Kind:        kind,
		Quantity:    qty,
		UnitPrice:   unitPrice,
		TotalAmount: LineTotal(qty, unitPrice),
		Note:        note,
	}
}
