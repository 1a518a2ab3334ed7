package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/ledger"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

func invalidTransition(b Bill, to Status) error {
	return &shared.InvalidTransitionError{Entity: "bill", ID: b.ID, From: string(b.Status), To: string(to)}
}

func itemMedicineIDs(items []BillItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.MedicineID)
	}
	return ids
}

// CancelBill moves a completed bill to cancelled and puts every sold unit back on the shelf with a
// return entry. Any other starting status is rejected.
func (s *Service) CancelBill(ctx context.Context, billID, actorID int64, reason string) (Bill, error) {
	var (
		bill      Bill
		movements []StockMovement
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		movements = nil
		var err error
		bill, err = tx.LockBill(ctx, billID)
		if err != nil {
			return err
		}
		if bill.Status != StatusCompleted {
			return invalidTransition(bill, StatusCancelled)
		}
		if _, err := tx.LockMedicines(ctx, itemMedicineIDs(bill.Items)); err != nil {
			return err
		}
		note := "Cancelled bill: " + bill.BillNumber
		if r := strings.TrimSpace(reason); r != "" {
			note += " (" + r + ")"
		}
		for _, it := range bill.Items {
			if _, err := tx.IncrementStock(ctx, it.MedicineID, it.Quantity); err != nil {
				return err
			}
			entry := ledger.NewEntry(it.MedicineID, ledger.KindReturn, it.Quantity, it.UnitPrice, note)
			entry.BillID = bill.ID
			entry.BillNumber = bill.BillNumber
			entry.ActorID = actorID
			if _, err := tx.AppendLedger(ctx, entry); err != nil {
				return err
			}
			movements = append(movements, StockMovement{MedicineID: it.MedicineID, Kind: string(ledger.KindReturn), Quantity: it.Quantity})
		}
		bill.Status = StatusCancelled
		return tx.UpdateStatus(ctx, bill.ID, StatusCancelled)
	})
	if err != nil {
		s.fail(ctx, "cancel", err)
		return Bill{}, err
	}
	s.record(ctx, actorID, "bill:cancel", bill.ID, map[string]any{"bill_number": bill.BillNumber, "reason": reason})
	s.emit(ctx, BillEvent{Type: EventBillCancelled, BillID: bill.ID, BillNumber: bill.BillNumber, Amount: bill.TotalAmount, Movements: movements, ActorID: actorID})
	return bill, nil
}

// RefundBill reverses a completed bill. A reversing bill with the same items and percentages is
// created in status refunded, stock is restored against it and the original becomes refunded.
func (s *Service) RefundBill(ctx context.Context, in RefundInput) (RefundResult, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		err := shared.Invalid("reason", "is required")
		s.fail(ctx, "refund", err)
		return RefundResult{}, err
	}
	var (
		result    RefundResult
		original  Bill
		movements []StockMovement
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		movements = nil
		var err error
		original, err = tx.LockBill(ctx, in.BillID)
		if err != nil {
			return err
		}
		if original.Status != StatusCompleted {
			return invalidTransition(original, StatusRefunded)
		}
		amount := original.TotalAmount
		if in.Amount != nil {
			if !ledger.HasCents(*in.Amount) {
				return shared.Invalid("refund_amount", "must have at most 2 decimal places")
			}
			amount = *in.Amount
		}
		if !amount.IsPositive() || amount.GreaterThan(original.TotalAmount) {
			return shared.Invalid("refund_amount", fmt.Sprintf("must be greater than 0 and at most %s", original.TotalAmount.StringFixed(2)))
		}

		number, err := tx.NextBillNumber(ctx, s.now())
		if err != nil {
			return err
		}
		reversing, err := tx.InsertBill(ctx, Bill{
			BillNumber:         number,
			CustomerID:         original.CustomerID,
			CustomerName:       original.CustomerName,
			CustomerPhone:      original.CustomerPhone,
			Subtotal:           decimal.Zero,
			DiscountPercentage: original.DiscountPercentage,
			DiscountAmount:     decimal.Zero,
			TaxPercentage:      original.TaxPercentage,
			TaxAmount:          decimal.Zero,
			TotalAmount:        decimal.Zero,
			PaymentMethod:      original.PaymentMethod,
			AmountPaid:         amount,
			AmountDue:          decimal.Zero,
			Status:             StatusRefunded,
			Notes:              fmt.Sprintf("Refund for bill %s: %s", original.BillNumber, reason),
			CreatedBy:          in.ActorID,
		})
		if err != nil {
			return err
		}
		if _, err := tx.LockMedicines(ctx, itemMedicineIDs(original.Items)); err != nil {
			return err
		}
		note := "Refund of bill: " + original.BillNumber
		for _, it := range original.Items {
			if _, err := tx.InsertItem(ctx, BillItem{
				BillID:       reversing.ID,
				MedicineID:   it.MedicineID,
				MedicineName: it.MedicineName,
				BatchNumber:  it.BatchNumber,
				Quantity:     it.Quantity,
				UnitPrice:    it.UnitPrice,
				TotalPrice:   it.TotalPrice,
			}); err != nil {
				return err
			}
			if _, err := tx.IncrementStock(ctx, it.MedicineID, it.Quantity); err != nil {
				return err
			}
			entry := ledger.NewEntry(it.MedicineID, ledger.KindReturn, it.Quantity, it.UnitPrice, note)
			entry.BillID = reversing.ID
			entry.BillNumber = reversing.BillNumber
			entry.ActorID = in.ActorID
			if _, err := tx.AppendLedger(ctx, entry); err != nil {
				return err
			}
			movements = append(movements, StockMovement{MedicineID: it.MedicineID, Kind: string(ledger.KindReturn), Quantity: it.Quantity})
		}
		reversing.Items, err = tx.ListItems(ctx, reversing.ID)
		if err != nil {
			return err
		}
		Recompute(&reversing)
		if err := tx.UpdateTotals(ctx, reversing); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, original.ID, StatusRefunded); err != nil {
			return err
		}
		refund, err := tx.InsertRefund(ctx, Refund{
			OriginalBillID: original.ID,
			RefundBillID:   reversing.ID,
			Reason:         reason,
			Amount:         amount,
			ProcessedBy:    in.ActorID,
		})
		if err != nil {
			return err
		}
		result = RefundResult{RefundID: refund.ID, RefundBillID: reversing.ID, RefundBillNumber: reversing.BillNumber, Amount: amount}
		return nil
	})
	if err != nil {
		s.fail(ctx, "refund", err)
		return RefundResult{}, err
	}
	s.record(ctx, in.ActorID, "bill:refund", original.ID, map[string]any{
		"bill_number":        original.BillNumber,
		"refund_bill_number": result.RefundBillNumber,
		"amount":             result.Amount.StringFixed(2),
		"reason":             reason,
	})
	s.emit(ctx, BillEvent{Type: EventBillRefunded, BillID: original.ID, BillNumber: original.BillNumber, Amount: result.Amount, Movements: movements, ActorID: in.ActorID})
	return result, nil
}

// RecordPayment adds a payment to a completed bill and recomputes the amount due.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (Payment, error) {
	if err := validateMoney("amount", in.Amount); err != nil {
		return Payment{}, err
	}
	if !in.Amount.IsPositive() {
		return Payment{}, shared.Invalid("amount", "must be greater than 0")
	}
	if !in.Method.Valid() {
		return Payment{}, shared.Invalid("payment_method", "is not a known payment method")
	}
	var (
		payment Payment
		bill    Bill
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		bill, err = tx.LockBill(ctx, in.BillID)
		if err != nil {
			return err
		}
		if bill.Status != StatusCompleted {
			return &shared.InvalidTransitionError{Entity: "bill", ID: bill.ID, From: string(bill.Status), To: "paid"}
		}
		bill.AmountPaid = bill.AmountPaid.Add(in.Amount)
		Recompute(&bill)
		if err := tx.UpdateTotals(ctx, bill); err != nil {
			return err
		}
		payment, err = tx.InsertPayment(ctx, Payment{
			BillID:    bill.ID,
			Method:    in.Method,
			Amount:    in.Amount,
			Reference: strings.TrimSpace(in.Reference),
			Notes:     strings.TrimSpace(in.Notes),
			CreatedBy: in.ActorID,
		})
		return err
	})
	if err != nil {
		s.fail(ctx, "payment", err)
		return Payment{}, err
	}
	s.record(ctx, in.ActorID, "bill:payment", bill.ID, map[string]any{"amount": payment.Amount.StringFixed(2), "method": string(payment.Method)})
	s.emit(ctx, BillEvent{Type: EventPaymentRecorded, BillID: bill.ID, BillNumber: bill.BillNumber, Amount: payment.Amount, ActorID: in.ActorID})
	return payment, nil
}
