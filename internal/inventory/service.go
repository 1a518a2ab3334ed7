package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/ledger"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Medicine, error)
	List(ctx context.Context, filter ListFilter, today time.Time) ([]Medicine, int, error)
	ListExpiring(ctx context.Context, today, until time.Time) ([]Medicine, error)
	ListLowStock(ctx context.Context, today time.Time) ([]Medicine, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	ExpiryWarningDays int
}

// Service coordinates medicine intake, edits and manual stock changes.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	integration IntegrationHandler
	logger      *slog.Logger
	warnDays    int
	now         func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cfg ServiceConfig, integration IntegrationHandler, logger *slog.Logger) *Service {
	if cfg.ExpiryWarningDays <= 0 {
		cfg.ExpiryWarningDays = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, integration: integration, logger: logger, warnDays: cfg.ExpiryWarningDays, now: time.Now}
}

// ExpiryWarningDays is the configured look-ahead for expiry alerts.
func (s *Service) ExpiryWarningDays() int {
	return s.warnDays
}

// CreateMedicine registers a medicine. Initial stock is recorded as a purchase at cost price.
func (s *Service) CreateMedicine(ctx context.Context, input MedicineInput, actorID int64) (Medicine, error) {
	if err := validateInput(input, true); err != nil {
		return Medicine{}, err
	}
	m := fromInput(input)
	m.CreatedBy = actorID

	var created Medicine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = tx.Insert(ctx, m)
		if err != nil {
			return err
		}
		if created.Quantity == 0 {
			return nil
		}
		entry := ledger.NewEntry(created.ID, ledger.KindPurchase, created.Quantity, created.CostPrice, "Initial stock")
		entry.ActorID = actorID
		_, err = tx.AppendLedger(ctx, entry)
		return err
	})
	if err != nil {
		return Medicine{}, err
	}
	s.record(ctx, actorID, "medicine:create", created.ID, map[string]any{"name": created.Name, "quantity": created.Quantity})
	if created.Quantity > 0 {
		s.emit(ctx, StockMovedEvent{MedicineID: created.ID, Kind: string(ledger.KindPurchase), Quantity: created.Quantity, NewQuantity: created.Quantity, ActorID: actorID})
	}
	return created, nil
}

// UpdateMedicine changes descriptive and pricing fields. Quantity is left untouched.
func (s *Service) UpdateMedicine(ctx context.Context, id int64, input MedicineInput, actorID int64) (Medicine, error) {
	if err := validateInput(input, false); err != nil {
		return Medicine{}, err
	}
	m := fromInput(input)
	m.ID = id
	var updated Medicine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		updated, err = tx.Update(ctx, m)
		return err
	})
	if err != nil {
		return Medicine{}, err
	}
	s.record(ctx, actorID, "medicine:update", id, map[string]any{"name": updated.Name})
	return updated, nil
}

// DeleteMedicine removes a medicine that no bill references. Its ledger rows stay with a nulled reference.
func (s *Service) DeleteMedicine(ctx context.Context, id int64, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		referenced, err := tx.IsReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("%w: medicine %d appears on bills", shared.ErrReferenced, id)
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "medicine:delete", id, nil)
	return nil
}

// GetMedicine returns a medicine with derived fields.
func (s *Service) GetMedicine(ctx context.Context, id int64) (MedicineView, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return MedicineView{}, err
	}
	return NewView(m, s.now()), nil
}

// ListMedicines returns a filtered page of medicines and the total count.
func (s *Service) ListMedicines(ctx context.Context, filter ListFilter) ([]MedicineView, int, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, 0, shared.Invalid("category", "is not a known category")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, shared.Invalid("status", "is not a known stock status")
	}
	now := s.now()
	medicines, total, err := s.repo.List(ctx, filter, now)
	if err != nil {
		return nil, 0, err
	}
	views := make([]MedicineView, 0, len(medicines))
	for _, m := range medicines {
		views = append(views, NewView(m, now))
	}
	return views, total, nil
}

// ListExpiring returns stocked medicines expiring within the given number of days (configured default when <= 0).
func (s *Service) ListExpiring(ctx context.Context, withinDays int) ([]MedicineView, error) {
	if withinDays <= 0 {
		withinDays = s.warnDays
	}
	now := s.now()
	medicines, err := s.repo.ListExpiring(ctx, now, now.AddDate(0, 0, withinDays))
	if err != nil {
		return nil, err
	}
	views := make([]MedicineView, 0, len(medicines))
	for _, m := range medicines {
		views = append(views, NewView(m, now))
	}
	return views, nil
}

// ListLowStock returns unexpired medicines at or below their reorder level.
func (s *Service) ListLowStock(ctx context.Context) ([]MedicineView, error) {
	now := s.now()
	medicines, err := s.repo.ListLowStock(ctx, now)
	if err != nil {
		return nil, err
	}
	views := make([]MedicineView, 0, len(medicines))
	for _, m := range medicines {
		views = append(views, NewView(m, now))
	}
	return views, nil
}

// AdjustStock sets a medicine to an absolute quantity. Increases are recorded as purchases at cost
// price, decreases as sales at selling price. An unchanged quantity writes nothing.
func (s *Service) AdjustStock(ctx context.Context, input AdjustInput) (Movement, error) {
	if input.NewQuantity < 0 {
		return Movement{}, shared.Invalid("quantity", "must be greater than or equal to 0")
	}
	move := Movement{MedicineID: input.MedicineID}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.LockMedicines(ctx, []int64{input.MedicineID})
		if err != nil {
			return err
		}
		current := locked[input.MedicineID]
		delta := input.NewQuantity - current.Quantity
		move.Delta = delta
		move.NewQuantity = current.Quantity
		if delta == 0 {
			return nil
		}
		var (
			updated Medicine
			entry   ledger.Entry
		)
		note := adjustmentNote(input.Note)
		if delta > 0 {
			updated, err = tx.Increment(ctx, current.ID, delta)
			entry = ledger.NewEntry(current.ID, ledger.KindPurchase, delta, current.CostPrice, note)
		} else {
			updated, err = tx.Decrement(ctx, current.ID, -delta)
			entry = ledger.NewEntry(current.ID, ledger.KindSale, -delta, current.SellingPrice, note)
		}
		if err != nil {
			return err
		}
		entry.ActorID = input.ActorID
		appended, err := tx.AppendLedger(ctx, entry)
		if err != nil {
			return err
		}
		move.Kind = string(appended.Kind)
		move.NewQuantity = updated.Quantity
		move.EntryID = appended.ID
		return nil
	})
	if err != nil {
		return Movement{}, err
	}
	if move.Delta != 0 {
		s.record(ctx, input.ActorID, "medicine:adjust", input.MedicineID, map[string]any{"delta": move.Delta, "quantity": move.NewQuantity, "note": input.Note})
		s.emit(ctx, StockMovedEvent{MedicineID: input.MedicineID, Kind: move.Kind, Quantity: abs(move.Delta), NewQuantity: move.NewQuantity, ActorID: input.ActorID})
	}
	return move, nil
}

// WriteOff removes expired or damaged stock, valued at cost price.
func (s *Service) WriteOff(ctx context.Context, input WriteOffInput) (Movement, error) {
	kind := ledger.Kind(strings.ToLower(strings.TrimSpace(input.Kind)))
	if kind != ledger.KindExpired && kind != ledger.KindDamaged {
		return Movement{}, shared.Invalid("transaction_type", "must be expired or damaged")
	}
	if input.Quantity <= 0 {
		return Movement{}, shared.Invalid("quantity", "must be greater than 0")
	}
	move := Movement{MedicineID: input.MedicineID, Kind: string(kind), Delta: -input.Quantity}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.LockMedicines(ctx, []int64{input.MedicineID})
		if err != nil {
			return err
		}
		current := locked[input.MedicineID]
		updated, err := tx.Decrement(ctx, current.ID, input.Quantity)
		if err != nil {
			return err
		}
		note := strings.TrimSpace(input.Note)
		if note == "" {
			note = fmt.Sprintf("Written off as %s", kind)
		}
		entry := ledger.NewEntry(current.ID, kind, input.Quantity, current.CostPrice, note)
		entry.ActorID = input.ActorID
		appended, err := tx.AppendLedger(ctx, entry)
		if err != nil {
			return err
		}
		move.NewQuantity = updated.Quantity
		move.EntryID = appended.ID
		return nil
	})
	if err != nil {
		return Movement{}, err
	}
	s.record(ctx, input.ActorID, "medicine:write-off", input.MedicineID, map[string]any{"kind": string(kind), "quantity": input.Quantity})
	s.emit(ctx, StockMovedEvent{MedicineID: input.MedicineID, Kind: string(kind), Quantity: input.Quantity, NewQuantity: move.NewQuantity, ActorID: input.ActorID})
	return move, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "medicine",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit medicine", slog.String("action", action), slog.Int64("medicine_id", id), slog.Any("error", err))
	}
}

func (s *Service) emit(ctx context.Context, evt StockMovedEvent) {
	if s.integration == nil {
		return
	}
	evt.At = s.now()
	if err := s.integration.HandleStockMoved(ctx, evt); err != nil {
		s.logger.Warn("stock moved hook", slog.Int64("medicine_id", evt.MedicineID), slog.Any("error", err))
	}
}

func validateInput(in MedicineInput, creating bool) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return shared.Invalid("name", "is required")
	case !in.Category.Valid():
		return shared.Invalid("category", "is not a known category")
	case strings.TrimSpace(in.Manufacturer) == "":
		return shared.Invalid("manufacturer", "is required")
	case strings.TrimSpace(in.BatchNumber) == "":
		return shared.Invalid("batch_number", "is required")
	case creating && in.Quantity < 0:
		return shared.Invalid("quantity", "must be greater than or equal to 0")
	case in.ReorderLevel < 0:
		return shared.Invalid("reorder_level", "must be greater than or equal to 0")
	case in.CostPrice.IsNegative():
		return shared.Invalid("cost_price", "must be greater than or equal to 0")
	case in.SellingPrice.IsNegative():
		return shared.Invalid("selling_price", "must be greater than or equal to 0")
	case in.ManufacturingDate.IsZero():
		return shared.Invalid("manufacturing_date", "is required")
	case in.ExpiryDate.IsZero():
		return shared.Invalid("expiry_date", "is required")
	case !in.ExpiryDate.After(in.ManufacturingDate):
		return shared.Invalid("expiry_date", "must be after manufacturing_date")
	}
	return nil
}

func fromInput(in MedicineInput) Medicine {
	return Medicine{
		Name:              strings.TrimSpace(in.Name),
		GenericName:       strings.TrimSpace(in.GenericName),
		Category:          in.Category,
		Manufacturer:      strings.TrimSpace(in.Manufacturer),
		Description:       strings.TrimSpace(in.Description),
		Quantity:          in.Quantity,
		ReorderLevel:      in.ReorderLevel,
		CostPrice:         ledger.RoundMoney(in.CostPrice),
		SellingPrice:      ledger.RoundMoney(in.SellingPrice),
		ManufacturingDate: in.ManufacturingDate,
		ExpiryDate:        in.ExpiryDate,
		BatchNumber:       strings.TrimSpace(in.BatchNumber),
		RackNumber:        strings.TrimSpace(in.RackNumber),
	}
}

func adjustmentNote(note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return "Stock adjustment"
	}
	return "Stock adjustment: " + note
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
