package inventory

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/shared"
)

// StockRecord is a catalog entry for a consumable item and its on-hand quantity.
// CurrentStock never goes negative.
type StockRecord struct {
	shared.BaseEntity
	ItemCode     string
	ItemName     string
	ModelNumber  string
	Manufacturer string
	Category     string
	Location     string
	CurrentStock decimal.Decimal
	Version      int
}

// NaturalKey identifies a catalog entry independent of its generated code
type NaturalKey struct {
	ModelNumber string
	ItemName    string
}

// NewNaturalKey trims whitespace so lookups are not fooled by padding
func NewNaturalKey(modelNumber, itemName string) NaturalKey {
	return NaturalKey{
		ModelNumber: strings.TrimSpace(modelNumber),
		ItemName:    strings.TrimSpace(itemName),
	}
}

func (k NaturalKey) String() string {
	return fmt.Sprintf("%s/%s", k.ModelNumber, k.ItemName)
}

// NewStockRecord creates an empty catalog entry
func NewStockRecord(itemCode string, key NaturalKey, manufacturer, category string) (*StockRecord, error) {
	if strings.TrimSpace(itemCode) == "" {
		return nil, shared.NewValidationError("item_code", "is required")
	}
	if key.ItemName == "" {
		return nil, shared.NewValidationError("item_name", "is required")
	}
	return &StockRecord{
		BaseEntity:   shared.NewBaseEntity(),
		ItemCode:     itemCode,
		ItemName:     key.ItemName,
		ModelNumber:  key.ModelNumber,
		Manufacturer: manufacturer,
		Category:     category,
		CurrentStock: decimal.Zero,
		Version:      1,
	}, nil
}

// Key returns the natural key of the record
func (s *StockRecord) Key() NaturalKey {
	return NewNaturalKey(s.ModelNumber, s.ItemName)
}

// CanFulfill reports whether quantity can be dispatched
func (s *StockRecord) CanFulfill(quantity decimal.Decimal) bool {
	return s.CurrentStock.GreaterThanOrEqual(quantity)
}

// ValidateMovement checks a manual stock movement quantity
func ValidateMovement(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewValidationError("quantity", "must be greater than zero")
	}
	return shared.CheckQuantityScale("quantity", quantity)
}
