package billing

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/customers"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/inventory"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/ledger"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

type memoryState struct {
	medicines map[int64]inventory.Medicine
	bills     map[int64]Bill
	items     []BillItem
	entries   []ledger.Entry
	customers map[int64]customers.Customer
	sequences map[string]int
	refunds   []Refund
	payments  []Payment
	nextID    int64
}

func (s memoryState) clone() memoryState {
	return memoryState{
		medicines: maps.Clone(s.medicines),
		bills:     maps.Clone(s.bills),
		items:     slices.Clone(s.items),
		entries:   slices.Clone(s.entries),
		customers: maps.Clone(s.customers),
		sequences: maps.Clone(s.sequences),
		refunds:   slices.Clone(s.refunds),
		payments:  slices.Clone(s.payments),
		nextID:    s.nextID,
	}
}

type memoryRepo struct {
	mu    sync.Mutex
	state memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		medicines: make(map[int64]inventory.Medicine),
		bills:     make(map[int64]Bill),
		customers: make(map[int64]customers.Customer),
		sequences: make(map[string]int),
	}}
}

func (r *memoryRepo) addMedicine(m inventory.Medicine) inventory.Medicine {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.nextID++
	m.ID = r.state.nextID
	if m.ExpiryDate.IsZero() {
		m.ExpiryDate = time.Now().AddDate(1, 0, 0)
	}
	r.state.medicines[m.ID] = m
	if m.Quantity > 0 {
		e := ledger.NewEntry(m.ID, ledger.KindPurchase, m.Quantity, m.CostPrice, "Initial stock")
		r.state.nextID++
		e.ID = r.state.nextID
		r.state.entries = append(r.state.entries, e)
	}
	return m
}

func (r *memoryRepo) medicine(id int64) inventory.Medicine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.medicines[id]
}

func (r *memoryRepo) bill(id int64) Bill {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.state.bills[id]
	b.Items = r.state.itemsOf(id)
	return b
}

func (r *memoryRepo) snapshot() memoryState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// ledgerBalance sums the signed ledger quantities of a medicine.
func (r *memoryRepo) ledgerBalance(id int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, e := range r.state.entries {
		if e.MedicineID != nil && *e.MedicineID == id {
			total += e.SignedQuantity()
		}
	}
	return total
}

func (s *memoryState) itemsOf(billID int64) []BillItem {
	var out []BillItem
	for _, it := range s.items {
		if it.BillID == billID {
			out = append(out, it)
		}
	}
	return out
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := r.state.clone()
	if err := fn(ctx, &memoryTx{state: &r.state}); err != nil {
		r.state = saved
		return err
	}
	return nil
}

func (r *memoryRepo) GetBill(_ context.Context, id int64) (Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.state.bills[id]
	if !ok {
		return Bill{}, shared.NotFound("bill", id)
	}
	b.Items = r.state.itemsOf(id)
	return b, nil
}

func (r *memoryRepo) ListBills(_ context.Context, filter ListFilter) ([]BillSummary, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []BillSummary
	for _, b := range r.state.bills {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(b.BillNumber, filter.Search) && !strings.Contains(b.CustomerName, filter.Search) {
			continue
		}
		out = append(out, BillSummary{
			ID:           b.ID,
			BillNumber:   b.BillNumber,
			CustomerName: b.CustomerName,
			TotalAmount:  b.TotalAmount,
			Status:       b.Status,
			ItemCount:    len(r.state.itemsOf(b.ID)),
		})
	}
	slices.SortFunc(out, func(a, b BillSummary) int { return int(a.ID - b.ID) })
	return out, len(out), nil
}

func (r *memoryRepo) ListRefunds(_ context.Context, billID int64) ([]Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Refund
	for _, rf := range r.state.refunds {
		if rf.OriginalBillID == billID || rf.RefundBillID == billID {
			rf.RefundBillNumber = r.state.bills[rf.RefundBillID].BillNumber
			out = append(out, rf)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListPayments(_ context.Context, billID int64) ([]Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Payment
	for _, p := range r.state.payments {
		if p.BillID == billID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetCustomer(_ context.Context, id int64) (*customers.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.state.customers[id]
	if !ok {
		return nil, shared.NotFound("customer", id)
	}
	return &c, nil
}

func (r *memoryRepo) MedicineCosts(_ context.Context, ids []int64) (map[int64]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]decimal.Decimal, len(ids))
	for _, id := range ids {
		if m, ok := r.state.medicines[id]; ok {
			out[id] = m.CostPrice
		}
	}
	return out, nil
}

type memoryTx struct {
	state *memoryState
}

func (tx *memoryTx) id() int64 {
	tx.state.nextID++
	return tx.state.nextID
}

func (tx *memoryTx) ResolveCustomer(_ context.Context, in customers.ResolveInput) (customers.Customer, error) {
	for id, c := range tx.state.customers {
		if c.Name == in.Name && c.Phone == in.Phone {
			if in.DoctorName != "" {
				c.DoctorName = in.DoctorName
			}
			if in.Address != "" {
				c.Address = in.Address
			}
			if in.PrescriptionNumber != "" {
				c.PrescriptionNumber = in.PrescriptionNumber
			}
			tx.state.customers[id] = c
			return c, nil
		}
	}
	c := customers.Customer{
		ID:                 tx.id(),
		Name:               in.Name,
		Phone:              in.Phone,
		Address:            in.Address,
		DoctorName:         in.DoctorName,
		PrescriptionNumber: in.PrescriptionNumber,
		IsActive:           true,
	}
	tx.state.customers[c.ID] = c
	return c, nil
}

func (tx *memoryTx) NextBillNumber(_ context.Context, day time.Time) (string, error) {
	day = day.UTC()
	key := day.Format("2006-01-02")
	tx.state.sequences[key]++
	return FormatNumber(day, tx.state.sequences[key]), nil
}

func (tx *memoryTx) InsertBill(_ context.Context, b Bill) (Bill, error) {
	for _, existing := range tx.state.bills {
		if existing.BillNumber == b.BillNumber {
			return Bill{}, shared.ErrDuplicate
		}
	}
	b.ID = tx.id()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	b.Items = nil
	tx.state.bills[b.ID] = b
	return b, nil
}

func (tx *memoryTx) LockBill(_ context.Context, id int64) (Bill, error) {
	b, ok := tx.state.bills[id]
	if !ok {
		return Bill{}, shared.NotFound("bill", id)
	}
	b.Items = tx.state.itemsOf(id)
	return b, nil
}

func (tx *memoryTx) UpdateTotals(_ context.Context, b Bill) error {
	current, ok := tx.state.bills[b.ID]
	if !ok {
		return shared.NotFound("bill", b.ID)
	}
	current.Subtotal = b.Subtotal
	current.DiscountAmount = b.DiscountAmount
	current.TaxAmount = b.TaxAmount
	current.TotalAmount = b.TotalAmount
	current.AmountPaid = b.AmountPaid
	current.AmountDue = b.AmountDue
	tx.state.bills[b.ID] = current
	return nil
}

func (tx *memoryTx) UpdateStatus(_ context.Context, id int64, status Status) error {
	b, ok := tx.state.bills[id]
	if !ok {
		return shared.NotFound("bill", id)
	}
	b.Status = status
	tx.state.bills[id] = b
	return nil
}

func (tx *memoryTx) InsertItem(_ context.Context, item BillItem) (BillItem, error) {
	item.ID = tx.id()
	item.CreatedAt = time.Now()
	tx.state.items = append(tx.state.items, item)
	return item, nil
}

func (tx *memoryTx) ListItems(_ context.Context, billID int64) ([]BillItem, error) {
	return tx.state.itemsOf(billID), nil
}

func (tx *memoryTx) LockMedicines(_ context.Context, ids []int64) (map[int64]inventory.Medicine, error) {
	out := make(map[int64]inventory.Medicine, len(ids))
	for _, id := range ids {
		m, ok := tx.state.medicines[id]
		if !ok {
			return nil, shared.NotFound("medicine", id)
		}
		out[id] = m
	}
	return out, nil
}

func (tx *memoryTx) DecrementStock(_ context.Context, id int64, qty int) (inventory.Medicine, error) {
	m, ok := tx.state.medicines[id]
	if !ok {
		return inventory.Medicine{}, shared.NotFound("medicine", id)
	}
	if m.Quantity < qty {
		return inventory.Medicine{}, &shared.InsufficientStockError{MedicineID: id, MedicineName: m.Name, Available: m.Quantity, Requested: qty}
	}
	m.Quantity -= qty
	tx.state.medicines[id] = m
	return m, nil
}

func (tx *memoryTx) IncrementStock(_ context.Context, id int64, qty int) (inventory.Medicine, error) {
	m, ok := tx.state.medicines[id]
	if !ok {
		return inventory.Medicine{}, shared.NotFound("medicine", id)
	}
	m.Quantity += qty
	tx.state.medicines[id] = m
	return m, nil
}

func (tx *memoryTx) AppendLedger(_ context.Context, e ledger.Entry) (ledger.Entry, error) {
	if err := ledger.Validate(e); err != nil {
		return ledger.Entry{}, err
	}
	e.ID = tx.id()
	e.CreatedAt = time.Now()
	tx.state.entries = append(tx.state.entries, e)
	return e, nil
}

func (tx *memoryTx) InsertRefund(_ context.Context, rf Refund) (Refund, error) {
	for _, existing := range tx.state.refunds {
		if existing.OriginalBillID == rf.OriginalBillID {
			return Refund{}, shared.ErrDuplicate
		}
	}
	rf.ID = tx.id()
	rf.RefundDate = time.Now()
	tx.state.refunds = append(tx.state.refunds, rf)
	return rf, nil
}

func (tx *memoryTx) InsertPayment(_ context.Context, p Payment) (Payment, error) {
	p.ID = tx.id()
	p.PaidAt = time.Now()
	tx.state.payments = append(tx.state.payments, p)
	return p, nil
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]bool)}
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[module+":"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+":"+key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, module+":"+key)
	return nil
}

type recordingHooks struct {
	mu       sync.Mutex
	events   []BillEvent
	failures []string
}

func (h *recordingHooks) HandleBillEvent(_ context.Context, evt BillEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, evt)
	return nil
}

func (h *recordingHooks) HandleBillFailure(_ context.Context, operation, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, operation+":"+reason)
}

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, log.Action)
	return nil
}
