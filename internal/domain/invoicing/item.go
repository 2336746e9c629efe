package invoicing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/invoicing/internal/domain/shared"
)

// ItemUnit represents the unit a line item is counted in
type ItemUnit string

const (
	UnitEmpty  ItemUnit = "EMPTY"
	UnitPieces ItemUnit = "PIECES"
	UnitHours  ItemUnit = "HOURS"
)

// IsValid checks if the unit is a valid ItemUnit
func (u ItemUnit) IsValid() bool {
	switch u {
	case UnitEmpty, UnitPieces, UnitHours:
		return true
	}
	return false
}

// MaxItemWeight is the highest allowed ordering weight
const MaxItemWeight = 19

// Item is a single invoice line.
//
// TaxRate is nil when no rate was given at creation; the taxation
// resolver fills it exactly once during item creation and it is never
// recomputed afterwards.
type Item struct {
	shared.BaseEntity
	InvoiceID uuid.UUID
	Title     string
	Quantity  decimal.Decimal
	Unit      ItemUnit
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	TaxRate   *decimal.Decimal
	Tag       string
	Weight    int
}

// NewItem creates a new line item. A nil taxRate means "not set yet";
// the caller is expected to resolve it before the item is persisted.
func NewItem(title string, quantity, unitPrice, discount decimal.Decimal, taxRate *decimal.Decimal, unit ItemUnit, weight int) (*Item, error) {
	if title == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Item title cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Item quantity cannot be negative")
	}
	if discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Item discount must be between 0 and 100")
	}
	if weight < 0 || weight > MaxItemWeight {
		return nil, shared.NewDomainError("INVALID_INPUT", "Item weight must be between 0 and 19")
	}
	if unit == "" {
		unit = UnitPieces
	}
	if !unit.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid item unit")
	}

	item := &Item{
		BaseEntity: shared.NewBaseEntity(),
		Title:      title,
		Quantity:   quantity,
		Unit:       unit,
		UnitPrice:  unitPrice,
		Discount:   discount,
		Weight:     weight,
	}
	if taxRate != nil {
		rate := *taxRate
		item.TaxRate = &rate
	}
	return item, nil
}

// HasTaxRate returns true once a tax rate is set, explicitly or by
// resolution. A zero rate counts as set.
func (i *Item) HasTaxRate() bool {
	return i.TaxRate != nil
}

// ResolveTaxRate sets the tax rate if and only if none is set yet.
// It returns true when the rate was applied.
func (i *Item) ResolveTaxRate(rate decimal.Decimal) bool {
	if i.TaxRate != nil {
		return false
	}
	r := rate
	i.TaxRate = &r
	i.Touch()
	return true
}

// String returns the item title
func (i *Item) String() string {
	return i.Title
}
