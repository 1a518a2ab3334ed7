package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/ledger"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

func (f *fixture) sell(t *testing.T, medicineID int64, qty int) CreateBillResult {
	t.Helper()
	res, err := f.svc.CreateBill(context.Background(), CreateBillInput{
		CustomerName:       "Asha",
		DiscountPercentage: dec("10"),
		TaxPercentage:      dec("5"),
		PaymentMethod:      PaymentCash,
		AmountPaid:         dec("47.25"),
		Items:              []ItemInput{{MedicineID: medicineID, Quantity: qty}},
	})
	require.NoError(t, err)
	return res
}

func TestCancelBillRestoresStock(t *testing.T) {
	f := newFixture(t, ServiceConfig{})
	med := f.paracetamol(50)
	res := f.sell(t, med.ID, 5)
	require.Equal(t, 45, f.repo.medicine(med.ID).Quantity)

	bill, err := f.svc.CancelBill(context.Background(), res.BillID, 9, "customer changed mind")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, bill.Status)
	assert.Equal(t, StatusCancelled, f.repo.bill(res.BillID).Status)
	assert.Equal(t, 50, f.repo.medicine(med.ID).Quantity)
	assert.Equal(t, 50, f.repo.ledgerBalance(med.ID))

	var returns []ledger.Entry
	for _, e := range f.repo.snapshot().entries {
		if e.Kind == ledger.KindReturn {
			returns = append(returns, e)
		}
	}
	require.Len(t, returns, 1)
	assert.Equal(t, 5, returns[0].Quantity)
	assert.Equal(t, res.BillID, returns[0].BillID)
	assert.Contains(t, returns[0].Note, "Cancelled bill: "+res.BillNumber)

	_, err = f.svc.CancelBill(context.Background(), res.BillID, 9, "")
	var transition *shared.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, "cancelled", transition.From)
	assert.Equal(t, 50, f.repo.medicine(med.ID).Quantity)
	assert.Contains(t, f.hooks.failures, "cancel:invalid_transition")
}

func TestCancelBillNotFound(t *testing.T) {
	f := newFixture(t, ServiceConfig{})
	_, err := f.svc.CancelBill(context.Background(), 42, 1, "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRefundBillCreatesReversingBill(t *testing.T) {
	f := newFixture(t, ServiceConfig{})
	med := f.paracetamol(50)
	res := f.sell(t, med.ID, 5)

	result, err := f.svc.RefundBill(context.Background(), RefundInput{BillID: res.BillID, Reason: "wrong strength", ActorID: 3})
	require.NoError(t, err)
	assert.Equal(t, "BILL-20260314-0002", result.RefundBillNumber)
	assertDecimal(t, "47.25", result.Amount, "refund amount")

	original := f.repo.bill(res.BillID)
	assert.Equal(t, StatusRefunded, original.Status)
	reversing := f.repo.bill(result.RefundBillID)
	assert.Equal(t, StatusRefunded, reversing.Status)
	assert.Equal(t, original.CustomerID, reversing.CustomerID)
	require.Len(t, reversing.Items, 1)
	assertDecimal(t, "47.25", reversing.TotalAmount, "reversing total")
	assertDecimal(t, "47.25", reversing.AmountPaid, "reversing paid")
	assert.Contains(t, reversing.Notes, res.BillNumber)

	assert.Equal(t, 50, f.repo.medicine(med.ID).Quantity)
	assert.Equal(t, 50, f.repo.ledgerBalance(med.ID))

	view, err := f.svc.GetBill(context.Background(), res.BillID)
	require.NoError(t, err)
	require.Len(t, view.Refunds, 1)
	assert.Equal(t, result.RefundBillNumber, view.Refunds[0].RefundBillNumber)

	_, err = f.svc.RefundBill(context.Background(), RefundInput{BillID: res.BillID, Reason: "again"})
	assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)
	_, err = f.svc.CancelBill(context.Background(), res.BillID, 1, "")
	assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)
	assert.Equal(t, 50, f.repo.medicine(med.ID).Quantity)
}

func TestRefundBillValidation(t *testing.T) {
	f := newFixture(t, ServiceConfig{})
	med := f.paracetamol(50)
	res := f.sell(t, med.ID, 5)
	before := f.repo.snapshot()

	_, err := f.svc.RefundBill(context.Background(), RefundInput{BillID: res.BillID, Reason: "  "})
	assert.ErrorIs(t, err, shared.ErrValidation)

	tooMuch := dec("47.26")
	_, err = f.svc.RefundBill(context.Background(), RefundInput{BillID: res.BillID, Reason: "x", Amount: &tooMuch})
	assert.ErrorIs(t, err, shared.ErrValidation)

	zero := dec("0")
	_, err = f.svc.RefundBill(context.Background(), RefundInput{BillID: res.BillID, Reason: "x", Amount: &zero})
	assert.ErrorIs(t, err, shared.ErrValidation)

	after := f.repo.snapshot()
	assert.Len(t, after.bills, len(before.bills))
	assert.Equal(t, before.sequences, after.sequences)
	assert.Equal(t, StatusCompleted, f.repo.bill(res.BillID).Status)

	subCent := dec("10.005")
	_, err = f.svc.RefundBill(context.Background(), RefundInput{BillID: res.BillID, Reason: "x", Amount: &subCent})
	assert.ErrorIs(t, err, shared.ErrValidation)

	partial := dec("20")
	result, err := f.svc.RefundBill(context.Background(), RefundInput{BillID: res.BillID, Reason: "partial", Amount: &partial})
	require.NoError(t, err)
	assertDecimal(t, "20.00", result.Amount, "partial refund")

	// Stock comes back in full; the amount only records the money returned.
	assert.Equal(t, 50, f.repo.medicine(med.ID).Quantity)
	reversing := f.repo.bill(result.RefundBillID)
	assertDecimal(t, "20.00", reversing.AmountPaid, "reversing paid")
	assertDecimal(t, "0", reversing.AmountDue, "reversing due")

	recalculated, err := f.svc.Recalculate(context.Background(), reversing.ID)
	require.NoError(t, err)
	assertDecimal(t, "0", recalculated.AmountDue, "reversing due after recalculate")
}

func TestRefundCancelledBillIsRejected(t *testing.T) {
	f := newFixture(t, ServiceConfig{})
	med := f.paracetamol(50)
	res := f.sell(t, med.ID, 5)
	_, err := f.svc.CancelBill(context.Background(), res.BillID, 1, "")
	require.NoError(t, err)

	_, err = f.svc.RefundBill(context.Background(), RefundInput{BillID: res.BillID, Reason: "late"})
	assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)
	assert.Equal(t, 50, f.repo.medicine(med.ID).Quantity)
}

func TestRecordPayment(t *testing.T) {
	f := newFixture(t, ServiceConfig{})
	med := f.paracetamol(50)
	res, err := f.svc.CreateBill(context.Background(), CreateBillInput{
		PaymentMethod: PaymentCredit,
		Items:         []ItemInput{{MedicineID: med.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	assertDecimal(t, "30.00", f.repo.bill(res.BillID).AmountDue, "due before")

	p, err := f.svc.RecordPayment(context.Background(), PaymentInput{BillID: res.BillID, Method: PaymentUPI, Amount: dec("12.50"), Reference: " UPI-1 "})
	require.NoError(t, err)
	assert.Equal(t, "UPI-1", p.Reference)
	bill := f.repo.bill(res.BillID)
	assertDecimal(t, "12.50", bill.AmountPaid, "paid")
	assertDecimal(t, "17.50", bill.AmountDue, "due after")
	assert.Equal(t, 47, f.repo.medicine(med.ID).Quantity)

	_, err = f.svc.RecordPayment(context.Background(), PaymentInput{BillID: res.BillID, Method: PaymentCash, Amount: dec("0")})
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.RecordPayment(context.Background(), PaymentInput{BillID: res.BillID, Method: PaymentCash, Amount: dec("0.001")})
	assert.ErrorIs(t, err, shared.ErrValidation)
	assertDecimal(t, "12.50", f.repo.bill(res.BillID).AmountPaid, "paid unchanged")
	_, err = f.svc.RecordPayment(context.Background(), PaymentInput{BillID: res.BillID, Method: "barter", Amount: dec("1")})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.CancelBill(context.Background(), res.BillID, 1, "")
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(context.Background(), PaymentInput{BillID: res.BillID, Method: PaymentCash, Amount: dec("1")})
	assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)
}

func TestLedgerReconcilesAfterMixedOperations(t *testing.T) {
	f := newFixture(t, ServiceConfig{})
	a := f.paracetamol(40)
	b := f.paracetamol(15)

	first := f.sell(t, a.ID, 5)
	second, err := f.svc.CreateBill(context.Background(), CreateBillInput{
		PaymentMethod: PaymentCard,
		Items:         []ItemInput{{MedicineID: a.ID, Quantity: 3}, {MedicineID: b.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	_, err = f.svc.CancelBill(context.Background(), first.BillID, 1, "")
	require.NoError(t, err)
	_, err = f.svc.RefundBill(context.Background(), RefundInput{BillID: second.BillID, Reason: "returned"})
	require.NoError(t, err)
	_, err = f.svc.CreateBill(context.Background(), CreateBillInput{
		PaymentMethod: PaymentCash,
		Items:         []ItemInput{{MedicineID: b.ID, Quantity: 15}},
	})
	require.NoError(t, err)

	for _, id := range []int64{a.ID, b.ID} {
		assert.Equal(t, f.repo.medicine(id).Quantity, f.repo.ledgerBalance(id), "medicine %d", id)
	}
	assert.Equal(t, 40, f.repo.medicine(a.ID).Quantity)
	assert.Equal(t, 0, f.repo.medicine(b.ID).Quantity)
}
