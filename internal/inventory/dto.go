package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

const dateLayout = "2006-01-02"

// MedicineRequest is the JSON body for create and update.
type MedicineRequest struct {
	Name              string          `json:"name" validate:"required,max=200"`
	GenericName       string          `json:"generic_name" validate:"max=200"`
	Category          string          `json:"category" validate:"required,oneof=tablet capsule syrup injection ointment drops inhaler other"`
	Manufacturer      string          `json:"manufacturer" validate:"required,max=200"`
	Description       string          `json:"description"`
	Quantity          int             `json:"quantity" validate:"gte=0"`
	ReorderLevel      *int            `json:"reorder_level" validate:"omitempty,gte=0"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	ManufacturingDate string          `json:"manufacturing_date" validate:"required,datetime=2006-01-02"`
	ExpiryDate        string          `json:"expiry_date" validate:"required,datetime=2006-01-02"`
	BatchNumber       string          `json:"batch_number" validate:"required,max=100"`
	RackNumber        string          `json:"rack_number" validate:"max=50"`
}

// ToInput converts the request into a MedicineInput.
func (r MedicineRequest) ToInput() (MedicineInput, error) {
	mfg, err := time.Parse(dateLayout, r.ManufacturingDate)
	if err != nil {
		return MedicineInput{}, shared.Invalid("manufacturing_date", "must be YYYY-MM-DD")
	}
	exp, err := time.Parse(dateLayout, r.ExpiryDate)
	if err != nil {
		return MedicineInput{}, shared.Invalid("expiry_date", "must be YYYY-MM-DD")
	}
	reorder := 10
	if r.ReorderLevel != nil {
		reorder = *r.ReorderLevel
	}
	return MedicineInput{
		Name:              r.Name,
		GenericName:       r.GenericName,
		Category:          Category(r.Category),
		Manufacturer:      r.Manufacturer,
		Description:       r.Description,
		Quantity:          r.Quantity,
		ReorderLevel:      reorder,
		CostPrice:         r.CostPrice,
		SellingPrice:      r.SellingPrice,
		ManufacturingDate: mfg,
		ExpiryDate:        exp,
		BatchNumber:       r.BatchNumber,
		RackNumber:        r.RackNumber,
	}, nil
}

// AdjustRequest sets the absolute quantity of a medicine.
type AdjustRequest struct {
	Quantity *int   `json:"quantity" validate:"required,gte=0"`
	Note     string `json:"note" validate:"max=500"`
}

// WriteOffRequest removes expired or damaged units.
type WriteOffRequest struct {
	Type     string `json:"transaction_type" validate:"required,oneof=expired damaged"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Note     string `json:"note" validate:"max=500"`
}
