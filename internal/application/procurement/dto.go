package procurement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/procurement"
)

// DateLayout is the wire format of order dates
const DateLayout = "2006-01-02"

// ==================== Registration DTOs ====================

// RegisterOrderRequest represents a request to register a purchase order
type RegisterOrderRequest struct {
	OrderType   string              `json:"order_type" validate:"required"`
	Supplier    string              `json:"supplier" validate:"required,max=200"`
	OrderDate   string              `json:"order_date" validate:"omitempty,datetime=2006-01-02"`
	Operator    string              `json:"operator" validate:"required,max=100"`
	ShippingFee decimal.Decimal     `json:"shipping_fee" validate:"gte=0"`
	Remarks     string              `json:"remarks" validate:"max=1000"`
	Lines       []RegisterOrderLine `json:"lines" validate:"required,min=1,dive"`
}

// RegisterOrderLine represents one line of a registration request.
// An empty line_type means ITEM.
type RegisterOrderLine struct {
	LineType         string                 `json:"line_type"`
	ServiceType      string                 `json:"service_type"`
	ItemCode         string                 `json:"item_code" validate:"max=50"`
	RelatedAssetID   *uuid.UUID             `json:"related_asset_id"`
	RelatedAssetCode string                 `json:"related_asset_code" validate:"max=50"`
	ItemName         string                 `json:"item_name" validate:"max=200"`
	ModelNumber      string                 `json:"model_number" validate:"max=100"`
	Manufacturer     string                 `json:"manufacturer" validate:"max=100"`
	Category         string                 `json:"category" validate:"max=100"`
	Quantity         decimal.Decimal        `json:"quantity" validate:"gt=0"`
	UnitPrice        decimal.Decimal        `json:"unit_price" validate:"gte=0"`
	Remarks          string                 `json:"remarks" validate:"max=1000"`
	Services         []RegisterOrderService `json:"services" validate:"omitempty,dive"`
}

// RegisterOrderService is a calibration or repair ordered together with new equipment
type RegisterOrderService struct {
	ServiceType string          `json:"service_type" validate:"required"`
	ItemName    string          `json:"item_name" validate:"max=200"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"gte=0"`
	Remarks     string          `json:"remarks" validate:"max=1000"`
}

// ==================== Receipt DTOs ====================

// ReceiveRequest represents one delivery batch against an order
type ReceiveRequest struct {
	OrderNumber    string     `json:"order_number" validate:"required"`
	Operator       string     `json:"operator" validate:"required,max=100"`
	IdempotencyKey string     `json:"idempotency_key" validate:"max=200"`
	Deliveries     []Delivery `json:"deliveries" validate:"required,min=1,dive"`
}

// Delivery is the quantity that arrived for one line
type Delivery struct {
	LineID              uuid.UUID        `json:"line_id" validate:"required"`
	Quantity            decimal.Decimal  `json:"quantity" validate:"gt=0"`
	ConfirmedUnitPrice  *decimal.Decimal `json:"confirmed_unit_price"`
	CalibrationRequired bool             `json:"calibration_required"`
	Remarks             string           `json:"remarks" validate:"max=1000"`
}

// ReceiveResult reports what a delivery batch did
type ReceiveResult struct {
	OrderNumber string                  `json:"order_number"`
	Status      procurement.OrderStatus `json:"status"`
	Subtotal    decimal.Decimal         `json:"subtotal"`
	Lines       []LineOutcome           `json:"lines"`
}

// LineOutcome is the result of one delivery
type LineOutcome struct {
	LineID         uuid.UUID              `json:"line_id"`
	LineNo         int                    `json:"line_no"`
	Delivered      decimal.Decimal        `json:"delivered"`
	Received       decimal.Decimal        `json:"received"`
	Ordered        decimal.Decimal        `json:"ordered"`
	Status         procurement.LineStatus `json:"status"`
	Effect         procurement.EffectKind `json:"effect"`
	AssetCodes     []string               `json:"asset_codes,omitempty"`
	JournalNumbers []string               `json:"journal_numbers,omitempty"`
}

// ==================== Query DTOs ====================

// OrderView is an order with its lines as returned by lookups
type OrderView struct {
	ID          uuid.UUID               `json:"id"`
	OrderNumber string                  `json:"order_number"`
	OrderType   procurement.OrderType   `json:"order_type"`
	Supplier    string                  `json:"supplier"`
	OrderDate   string                  `json:"order_date"`
	Status      procurement.OrderStatus `json:"status"`
	Subtotal    decimal.Decimal         `json:"subtotal"`
	ShippingFee decimal.Decimal         `json:"shipping_fee"`
	Total       decimal.Decimal         `json:"total"`
	Operator    string                  `json:"operator"`
	Remarks     string                  `json:"remarks,omitempty"`
	Lines       []LineView              `json:"lines"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// LineView is one order line
type LineView struct {
	ID               uuid.UUID               `json:"id"`
	LineNo           int                     `json:"line_no"`
	LineType         procurement.LineType    `json:"line_type"`
	ServiceType      procurement.ServiceType `json:"service_type,omitempty"`
	ReferenceCode    string                  `json:"reference_code,omitempty"`
	RelatedAssetID   *uuid.UUID              `json:"related_asset_id,omitempty"`
	RelatedAssetCode string                  `json:"related_asset_code,omitempty"`
	LinkedLineID     *uuid.UUID              `json:"linked_line_id,omitempty"`
	ItemName         string                  `json:"item_name"`
	ModelNumber      string                  `json:"model_number,omitempty"`
	Manufacturer     string                  `json:"manufacturer,omitempty"`
	Category         string                  `json:"category,omitempty"`
	Ordered          decimal.Decimal         `json:"ordered"`
	Received         decimal.Decimal         `json:"received"`
	UnitPrice        decimal.Decimal         `json:"unit_price"`
	Amount           decimal.Decimal         `json:"amount"`
	Status           procurement.LineStatus  `json:"status"`
	Remarks          string                  `json:"remarks,omitempty"`
}

// ToOrderView converts a domain order to its view
func ToOrderView(o *procurement.Order) *OrderView {
	view := &OrderView{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		OrderType:   o.OrderType,
		Supplier:    o.Supplier,
		OrderDate:   o.OrderDate.Format(DateLayout),
		Status:      o.Status,
		Subtotal:    o.Subtotal,
		ShippingFee: o.ShippingFee,
		Total:       o.Total(),
		Operator:    o.Operator,
		Remarks:     o.Remarks,
		Lines:       make([]LineView, 0, len(o.Lines)),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	for _, l := range o.Lines {
		view.Lines = append(view.Lines, LineView{
			ID:             l.ID,
			LineNo:         l.LineNo,
			LineType:       l.LineType,
			ServiceType:    l.ServiceType,
			ReferenceCode:  l.ReferenceCode,
			RelatedAssetID: l.RelatedAssetID,
			LinkedLineID:   l.LinkedLineID,
			ItemName:       l.ItemName,
			ModelNumber:    l.ModelNumber,
			Manufacturer:   l.Manufacturer,
			Category:       l.Category,
			Ordered:        l.OrderedQuantity,
			Received:       l.ReceivedQuantity,
			UnitPrice:      l.UnitPrice,
			Amount:         l.Amount(),
			Status:         l.Status,
			Remarks:        l.Remarks,
		})
	}
	return view
}
