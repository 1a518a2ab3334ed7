package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies a medicine by dosage form.
type Category string

const (
	CategoryTablet    Category = "tablet"
	CategoryCapsule   Category = "capsule"
	CategorySyrup     Category = "syrup"
	CategoryInjection Category = "injection"
	CategoryOintment  Category = "ointment"
	CategoryDrops     Category = "drops"
	CategoryInhaler   Category = "inhaler"
	CategoryOther     Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryTablet, CategoryCapsule, CategorySyrup, CategoryInjection,
		CategoryOintment, CategoryDrops, CategoryInhaler, CategoryOther:
		return true
	}
	return false
}

// StockStatus is the derived availability of a medicine.
type StockStatus string

const (
	StatusExpired    StockStatus = "expired"
	StatusOutOfStock StockStatus = "out_of_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusInStock    StockStatus = "in_stock"
)

// Valid reports whether s is a known status.
func (s StockStatus) Valid() bool {
	switch s {
	case StatusExpired, StatusOutOfStock, StatusLowStock, StatusInStock:
		return true
	}
	return false
}

// Medicine is a stocked product. Quantity only changes through the registry.
type Medicine struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	GenericName       string          `json:"generic_name"`
	Category          Category        `json:"category"`
	Manufacturer      string          `json:"manufacturer"`
	Description       string          `json:"description"`
	Quantity          int             `json:"quantity"`
	ReorderLevel      int             `json:"reorder_level"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	ManufacturingDate time.Time       `json:"manufacturing_date"`
	ExpiryDate        time.Time       `json:"expiry_date"`
	BatchNumber       string          `json:"batch_number"`
	RackNumber        string          `json:"rack_number"`
	CreatedBy         int64           `json:"created_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsLowStock reports whether quantity has reached the reorder level.
func (m Medicine) IsLowStock() bool {
	return m.Quantity <= m.ReorderLevel
}

// IsExpired reports whether the expiry date is before the calendar day of now.
func (m Medicine) IsExpired(now time.Time) bool {
	return m.DaysToExpiry(now) < 0
}

// StockStatus derives availability. Expiry wins over quantity.
func (m Medicine) StockStatus(now time.Time) StockStatus {
	switch {
	case m.IsExpired(now):
		return StatusExpired
	case m.Quantity == 0:
		return StatusOutOfStock
	case m.IsLowStock():
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// DaysToExpiry counts calendar days from now until expiry. Negative once expired.
func (m Medicine) DaysToExpiry(now time.Time) int {
	return int(civilDay(m.ExpiryDate).Sub(civilDay(now)).Hours() / 24)
}

// MarginPerUnit is selling price minus cost price.
func (m Medicine) MarginPerUnit() decimal.Decimal {
	return m.SellingPrice.Sub(m.CostPrice)
}

func civilDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// MedicineView adds derived fields for API responses.
type MedicineView struct {
	Medicine
	StockStatus  StockStatus `json:"stock_status"`
	IsLowStock   bool        `json:"is_low_stock"`
	IsExpired    bool        `json:"is_expired"`
	DaysToExpiry int         `json:"days_to_expiry"`
}

// NewView derives the presentation fields of m.
func NewView(m Medicine, now time.Time) MedicineView {
	return MedicineView{
		Medicine:     m,
		StockStatus:  m.StockStatus(now),
		IsLowStock:   m.IsLowStock(),
		IsExpired:    m.IsExpired(now),
		DaysToExpiry: m.DaysToExpiry(now),
	}
}

// MedicineInput carries the editable fields of a medicine. Quantity is only read on create.
type MedicineInput struct {
	Name              string
	GenericName       string
	Category          Category
	Manufacturer      string
	Description       string
	Quantity          int
	ReorderLevel      int
	CostPrice         decimal.Decimal
	SellingPrice      decimal.Decimal
	ManufacturingDate time.Time
	ExpiryDate        time.Time
	BatchNumber       string
	RackNumber        string
}

// ListFilter narrows medicine listings.
type ListFilter struct {
	Search   string
	Category Category
	Status   StockStatus
	Limit    int
	Offset   int
}

// AdjustInput sets a medicine to an absolute quantity.
type AdjustInput struct {
	MedicineID  int64
	NewQuantity int
	Note        string
	ActorID     int64
}

// WriteOffInput removes stock as expired or damaged.
type WriteOffInput struct {
	MedicineID int64
	Kind       string
	Quantity   int
	Note       string
	ActorID    int64
}

// Movement summarises a stock change applied by the service.
type Movement struct {
	MedicineID  int64  `json:"medicine_id"`
	Kind        string `json:"transaction_type,omitempty"`
	Delta       int    `json:"delta"`
	NewQuantity int    `json:"quantity"`
	EntryID     int64  `json:"transaction_id,omitempty"`
}
