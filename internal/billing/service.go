package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/customers"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/ledger"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

const idempotencyModule = "billing"

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort reserves client request keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

type ServiceConfig struct {
	AllowExpiredSale bool
}

type Service struct {
	repo         Repository
	audit        AuditPort
	idempotency  IdempotencyPort
	integration  IntegrationHandler
	logger       *slog.Logger
	allowExpired bool
	now          func() time.Time
}

func NewService(repo Repository, audit AuditPort, idem IdempotencyPort, integration IntegrationHandler, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:         repo,
		audit:        audit,
		idempotency:  idem,
		integration:  integration,
		logger:       logger,
		allowExpired: cfg.AllowExpiredSale,
		now:          time.Now,
	}
}

// CreateBill validates the request, then in one transaction resolves the customer, allocates the bill
// number, decrements stock for every line, writes the items and their sale ledger entries and stores
// the totals computed from the persisted items. Nothing is persisted when any step fails.
func (s *Service) CreateBill(ctx context.Context, in CreateBillInput) (CreateBillResult, error) {
	if err := validateCreate(in); err != nil {
		s.fail(ctx, "create", err)
		return CreateBillResult{}, err
	}
	key, err := shared.NormalizeIdempotencyKey(in.IdempotencyKey)
	if err != nil {
		s.fail(ctx, "create", err)
		return CreateBillResult{}, err
	}
	if key != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			s.fail(ctx, "create", err)
			return CreateBillResult{}, err
		}
	}

	now := s.now()
	var (
		bill      Bill
		movements []StockMovement
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bill, movements = Bill{}, nil
		var customerID *int64
		name := strings.TrimSpace(in.CustomerName)
		if name != "" {
			c, err := tx.ResolveCustomer(ctx, customers.ResolveInput{
				Name:               name,
				Phone:              in.CustomerPhone,
				Address:            in.CustomerAddress,
				DoctorName:         in.DoctorName,
				PrescriptionNumber: in.PrescriptionNumber,
			})
			if err != nil {
				return err
			}
			customerID = &c.ID
		}

		number, err := tx.NextBillNumber(ctx, now)
		if err != nil {
			return err
		}
		bill, err = tx.InsertBill(ctx, Bill{
			BillNumber:         number,
			CustomerID:         customerID,
			CustomerName:       name,
			CustomerPhone:      strings.TrimSpace(in.CustomerPhone),
			Subtotal:           decimal.Zero,
			DiscountPercentage: in.DiscountPercentage,
			DiscountAmount:     decimal.Zero,
			TaxPercentage:      in.TaxPercentage,
			TaxAmount:          decimal.Zero,
			TotalAmount:        decimal.Zero,
			PaymentMethod:      in.PaymentMethod,
			AmountPaid:         in.AmountPaid,
			AmountDue:          decimal.Zero,
			Status:             StatusCompleted,
			Notes:              strings.TrimSpace(in.Notes),
			CreatedBy:          in.ActorID,
		})
		if err != nil {
			return err
		}

		ids := make([]int64, 0, len(in.Items))
		for _, it := range in.Items {
			ids = append(ids, it.MedicineID)
		}
		medicines, err := tx.LockMedicines(ctx, ids)
		if err != nil {
			return err
		}

		for _, it := range in.Items {
			med := medicines[it.MedicineID]
			if !s.allowExpired && med.IsExpired(now) {
				return shared.Invalid("items", fmt.Sprintf("medicine %s (id %d) expired on %s", med.Name, med.ID, med.ExpiryDate.Format("2006-01-02")))
			}
			price := med.SellingPrice
			if it.UnitPrice != nil && !it.UnitPrice.IsZero() {
				price = *it.UnitPrice
			}
			if _, err := tx.DecrementStock(ctx, med.ID, it.Quantity); err != nil {
				return err
			}
			if _, err := tx.InsertItem(ctx, BillItem{
				BillID:       bill.ID,
				MedicineID:   med.ID,
				MedicineName: med.Name,
				BatchNumber:  med.BatchNumber,
				Quantity:     it.Quantity,
				UnitPrice:    price,
				TotalPrice:   LineTotal(it.Quantity, price),
			}); err != nil {
				return err
			}
			entry := ledger.NewEntry(med.ID, ledger.KindSale, it.Quantity, price, "Bill: "+number)
			entry.BillID = bill.ID
			entry.BillNumber = number
			entry.ActorID = in.ActorID
			if _, err := tx.AppendLedger(ctx, entry); err != nil {
				return err
			}
			movements = append(movements, StockMovement{MedicineID: med.ID, Kind: string(ledger.KindSale), Quantity: it.Quantity})
		}

		bill.Items, err = tx.ListItems(ctx, bill.ID)
		if err != nil {
			return err
		}
		Recompute(&bill)
		return tx.UpdateTotals(ctx, bill)
	})
	if err != nil {
		if key != "" && s.idempotency != nil {
			if relErr := s.idempotency.Delete(ctx, key, idempotencyModule); relErr != nil {
				s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", relErr))
			}
		}
		s.fail(ctx, "create", err)
		return CreateBillResult{}, err
	}

	s.record(ctx, in.ActorID, "bill:create", bill.ID, map[string]any{
		"bill_number": bill.BillNumber,
		"total":       bill.TotalAmount.StringFixed(2),
		"items":       len(bill.Items),
	})
	s.emit(ctx, BillEvent{Type: EventBillCreated, BillID: bill.ID, BillNumber: bill.BillNumber, Amount: bill.TotalAmount, Movements: movements, ActorID: in.ActorID})
	return CreateBillResult{BillID: bill.ID, BillNumber: bill.BillNumber}, nil
}

// Recalculate recomputes the derived amounts of a bill from its current items. It never touches stock.
func (s *Service) Recalculate(ctx context.Context, billID int64) (Bill, error) {
	var bill Bill
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		bill, err = tx.LockBill(ctx, billID)
		if err != nil {
			return err
		}
		Recompute(&bill)
		return tx.UpdateTotals(ctx, bill)
	})
	if err != nil {
		return Bill{}, err
	}
	return bill, nil
}

// GetBill returns the bill with items, customer, refunds, payments and derived fields.
func (s *Service) GetBill(ctx context.Context, id int64) (BillView, error) {
	bill, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return BillView{}, err
	}
	view := BillView{
		Bill:          bill,
		IsPaid:        bill.IsPaid(),
		ChangeAmount:  bill.ChangeAmount(),
		TotalItems:    bill.TotalItems(),
		TotalQuantity: bill.TotalQuantity(),
	}
	if bill.CustomerID != nil {
		c, err := s.repo.GetCustomer(ctx, *bill.CustomerID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return BillView{}, err
		}
		view.Customer = c
	}
	ids := make([]int64, 0, len(bill.Items))
	for _, it := range bill.Items {
		ids = append(ids, it.MedicineID)
	}
	costs, err := s.repo.MedicineCosts(ctx, ids)
	if err != nil {
		return BillView{}, err
	}
	view.Items = make([]ItemView, 0, len(bill.Items))
	for _, it := range bill.Items {
		iv := ItemView{BillItem: it}
		if cost, ok := costs[it.MedicineID]; ok {
			profit := it.UnitPrice.Sub(cost).Mul(decimal.NewFromInt(int64(it.Quantity)))
			iv.Profit = &profit
		}
		view.Items = append(view.Items, iv)
	}
	if view.Refunds, err = s.repo.ListRefunds(ctx, id); err != nil {
		return BillView{}, err
	}
	if view.Payments, err = s.repo.ListPayments(ctx, id); err != nil {
		return BillView{}, err
	}
	return view, nil
}

// ListBills returns a filtered page of bill summaries and the total count.
func (s *Service) ListBills(ctx context.Context, filter ListFilter) ([]BillSummary, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, shared.Invalid("status", "is not a known bill status")
	}
	if filter.PaymentMethod != "" && !filter.PaymentMethod.Valid() {
		return nil, 0, shared.Invalid("payment_method", "is not a known payment method")
	}
	if !filter.DateFrom.IsZero() && !filter.DateTo.IsZero() && filter.DateTo.Before(filter.DateFrom) {
		return nil, 0, shared.Invalid("date_to", "must not be before date_from")
	}
	return s.repo.ListBills(ctx, filter)
}

func validateCreate(in CreateBillInput) error {
	if len(in.Items) == 0 {
		return shared.Invalid("items", "at least one item is required")
	}
	for i, it := range in.Items {
		if it.MedicineID <= 0 {
			return shared.Invalid(fmt.Sprintf("items[%d].medicine_id", i), "is required")
		}
		if it.Quantity < 1 {
			return shared.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
		if it.UnitPrice != nil {
			if err := validateMoney(fmt.Sprintf("items[%d].unit_price", i), *it.UnitPrice); err != nil {
				return err
			}
		}
	}
	if err := validatePercent("discount_percentage", in.DiscountPercentage); err != nil {
		return err
	}
	if err := validatePercent("tax_percentage", in.TaxPercentage); err != nil {
		return err
	}
	if err := validateMoney("amount_paid", in.AmountPaid); err != nil {
		return err
	}
	if !in.PaymentMethod.Valid() {
		return shared.Invalid("payment_method", "is not a known payment method")
	}
	return nil
}

// validatePercent admits 0..100 with at most 2 decimal places, the scale of the stored column.
func validatePercent(field string, v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(hundred) {
		return shared.Invalid(field, "must be between 0 and 100")
	}
	if !ledger.HasCents(v) {
		return shared.Invalid(field, "must have at most 2 decimal places")
	}
	return nil
}

// validateMoney admits non-negative amounts in whole cents.
func validateMoney(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return shared.Invalid(field, "must be greater than or equal to 0")
	}
	if !ledger.HasCents(v) {
		return shared.Invalid(field, "must have at most 2 decimal places")
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, billID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "bill",
		EntityID: fmt.Sprintf("%d", billID),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit bill", slog.String("action", action), slog.Int64("bill_id", billID), slog.Any("error", err))
	}
}

func (s *Service) emit(ctx context.Context, evt BillEvent) {
	if s.integration == nil {
		return
	}
	evt.At = s.now()
	if err := s.integration.HandleBillEvent(ctx, evt); err != nil {
		s.logger.Warn("bill event hook", slog.String("type", string(evt.Type)), slog.Int64("bill_id", evt.BillID), slog.Any("error", err))
	}
}

func (s *Service) fail(ctx context.Context, operation string, err error) {
	if s.integration == nil {
		return
	}
	s.integration.HandleBillFailure(ctx, operation, FailureReason(err))
}

// FailureReason classifies err into a low-cardinality label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, shared.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, shared.ErrValidation):
		return "validation"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrInvalidStateTransition):
		return "invalid_transition"
	case errors.Is(err, shared.ErrIdempotencyConflict):
		return "duplicate_request"
	case errors.Is(err, shared.ErrConcurrencyConflict):
		return "concurrency_conflict"
	default:
		return "internal"
	}
}
