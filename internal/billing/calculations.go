package billing

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/ledger"
)

var hundred = decimal.NewFromInt(100)

// round applies banker's rounding to cents.
func round(d decimal.Decimal) decimal.Decimal {
	return ledger.RoundMoney(d)
}

// LineTotal is quantity times unit price.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return ledger.LineTotal(quantity, unitPrice)
}

// Totals holds the derived amounts of a bill.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	AmountDue      decimal.Decimal
}

// CalculateTotals derives every amount from the persisted items. Each derived amount is rounded
// before it feeds the next one, so TotalAmount == Subtotal - DiscountAmount + TaxAmount holds exactly.
func CalculateTotals(items []BillItem, discountPercent, taxPercent, amountPaid decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.TotalPrice)
	}
	subtotal = round(subtotal)
	discount := round(subtotal.Mul(discountPercent).Div(hundred))
	taxable := subtotal.Sub(discount)
	tax := round(taxable.Mul(taxPercent).Div(hundred))
	total := taxable.Add(tax)
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		TotalAmount:    total,
		AmountDue:      total.Sub(amountPaid),
	}
}

// Apply copies t onto b.
func (t Totals) Apply(b *Bill) {
	b.Subtotal = t.Subtotal
	b.DiscountAmount = t.DiscountAmount
	b.TaxAmount = t.TaxAmount
	b.TotalAmount = t.TotalAmount
	b.AmountDue = t.AmountDue
}

// Recompute refreshes the derived amounts of b from its items. A refunded bill owes nothing: its
// amount paid records money handed back, not money owed.
func Recompute(b *Bill) {
	CalculateTotals(b.Items, b.DiscountPercentage, b.TaxPercentage, b.AmountPaid).Apply(b)
	if b.Status == StatusRefunded {
		b.AmountDue = decimal.Zero
	}
}
