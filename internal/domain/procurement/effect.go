package procurement

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/shared"
)

// EffectKind names the downstream effect of a receipt
type EffectKind string

const (
	EffectStockIncrement EffectKind = "STOCK_INCREMENT"
	EffectAssetCreation  EffectKind = "ASSET_CREATION"
	EffectStatusOnly     EffectKind = "STATUS_ONLY"
)

// ReceiptEffect is what a successful delivery does outside the order.
// The set of implementations is closed: StockIncrement, AssetCreation and StatusOnly.
type ReceiptEffect interface {
	Kind() EffectKind
	sealed()
}

// StockIncrement adds received goods to an inventory item
type StockIncrement struct {
	ItemCode  string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// AssetCreation registers one asset per received unit
type AssetCreation struct {
	Units        int
	Name         string
	Manufacturer string
	ModelNumber  string
	Category     string
	Supplier     string
	UnitPrice    decimal.Decimal
	OrderNumber  string
	LineID       uuid.UUID
}

// StatusOnly is a service receipt: only line and order status move
type StatusOnly struct {
	ServiceType    ServiceType
	RelatedAssetID *uuid.UUID
}

func (StockIncrement) Kind() EffectKind { return EffectStockIncrement }
func (AssetCreation) Kind() EffectKind  { return EffectAssetCreation }
func (StatusOnly) Kind() EffectKind     { return EffectStatusOnly }

func (StockIncrement) sealed() {}
func (AssetCreation) sealed()  {}
func (StatusOnly) sealed()     {}

func (o *Order) effectFor(line *OrderLine, quantity decimal.Decimal) (ReceiptEffect, error) {
	if line.LineType == LineTypeService {
		return StatusOnly{ServiceType: line.ServiceType, RelatedAssetID: line.RelatedAssetID}, nil
	}

	switch o.OrderType {
	case OrderTypeInventory:
		if line.ReferenceCode == "" {
			return nil, shared.NewDomainError("MISSING_ITEM_CODE",
				fmt.Sprintf("order %s line %d has no stock item", o.OrderNumber, line.LineNo))
		}
		return StockIncrement{ItemCode: line.ReferenceCode, Quantity: quantity, UnitPrice: line.UnitPrice}, nil
	case OrderTypeAsset:
		if !quantity.IsInteger() {
			return nil, shared.NewValidationError("quantity",
				fmt.Sprintf("asset deliveries must be whole units, got %s", quantity))
		}
		return AssetCreation{
			Units:        int(quantity.IntPart()),
			Name:         line.ItemName,
			Manufacturer: line.Manufacturer,
			ModelNumber:  line.ModelNumber,
			Category:     line.Category,
			Supplier:     o.Supplier,
			UnitPrice:    line.UnitPrice,
			OrderNumber:  o.OrderNumber,
			LineID:       line.ID,
		}, nil
	}
	return nil, shared.NewDomainError("INVALID_ORDER_TYPE", fmt.Sprintf("order %s has type %q", o.OrderNumber, o.OrderType))
}
