package procurement

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/shared"
)

// Order is the purchase order aggregate: a header plus its lines.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber string
	Supplier    string
	OrderDate   time.Time
	OrderType   OrderType
	ShippingFee decimal.Decimal
	Subtotal    decimal.Decimal
	Status      OrderStatus
	Operator    string
	Remarks     string
	Lines       []*OrderLine
}

// NewOrder creates an OPEN order without lines
func NewOrder(orderNumber, supplier string, orderType OrderType, orderDate time.Time, operator string) (*Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.NewValidationError("order_number", "is required")
	}
	if !orderType.IsValid() {
		return nil, shared.NewValidationError("order_type", fmt.Sprintf("%q is not INVENTORY or ASSET", orderType))
	}
	if strings.TrimSpace(supplier) == "" {
		return nil, shared.NewValidationError("supplier", "is required")
	}
	if orderDate.IsZero() {
		return nil, shared.NewValidationError("order_date", "is required")
	}

	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		Supplier:          supplier,
		OrderDate:         orderDate,
		OrderType:         orderType,
		ShippingFee:       decimal.Zero,
		Subtotal:          decimal.Zero,
		Status:            OrderStatusOpen,
		Operator:          operator,
	}, nil
}

// LineSpec describes a line to add to an order
type LineSpec struct {
	LineType       LineType
	ServiceType    ServiceType
	ReferenceCode  string
	RelatedAssetID *uuid.UUID
	LinkedLineID   *uuid.UUID
	ItemName       string
	ModelNumber    string
	Manufacturer   string
	Category       string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	Remarks        string
}

// AddLine appends an UNRECEIVED line after enforcing the order-type rules:
// inventory orders carry only ITEM lines, and every service on an asset order
// targets either an existing asset or an ITEM line of this order.
func (o *Order) AddLine(spec LineSpec) (*OrderLine, error) {
	field := func(name string) string { return fmt.Sprintf("lines[%d].%s", len(o.Lines), name) }

	if !spec.Quantity.IsPositive() {
		return nil, shared.NewValidationError(field("quantity"), "must be greater than zero")
	}
	if err := shared.CheckQuantityScale(field("quantity"), spec.Quantity); err != nil {
		return nil, err
	}
	if spec.UnitPrice.IsNegative() {
		return nil, shared.NewValidationError(field("unit_price"), "cannot be negative")
	}

	switch spec.LineType {
	case LineTypeItem:
		if strings.TrimSpace(spec.ItemName) == "" {
			return nil, shared.NewValidationError(field("item_name"), "is required")
		}
		if spec.LinkedLineID != nil || spec.RelatedAssetID != nil {
			return nil, shared.NewValidationError(field("line_type"), "ITEM lines cannot link to other lines or assets")
		}
	case LineTypeService:
		if o.OrderType != OrderTypeAsset {
			return nil, shared.NewValidationError(field("line_type"), "inventory orders cannot contain services")
		}
		if spec.ServiceType.Category() == "" {
			return nil, shared.NewValidationError(field("service_type"), "must be CALIBRATION or REPAIR")
		}
		if spec.RelatedAssetID == nil && spec.LinkedLineID == nil {
			return nil, shared.NewValidationError(field("related_asset_id"), "a service must target an existing asset")
		}
		if spec.LinkedLineID != nil {
			parent := o.Line(*spec.LinkedLineID)
			if parent == nil || parent.LineType != LineTypeItem {
				return nil, shared.NewValidationError(field("linked_line_id"), "must reference an ITEM line of this order")
			}
		}
		if spec.Category == "" {
			spec.Category = spec.ServiceType.Category()
		}
	default:
		return nil, shared.NewValidationError(field("line_type"), fmt.Sprintf("%q is not ITEM or SERVICE", spec.LineType))
	}

	now := time.Now()
	line := &OrderLine{
		ID:               uuid.New(),
		OrderID:          o.ID,
		LineNo:           len(o.Lines) + 1,
		LineType:         spec.LineType,
		ServiceType:      spec.ServiceType,
		ReferenceCode:    spec.ReferenceCode,
		RelatedAssetID:   spec.RelatedAssetID,
		LinkedLineID:     spec.LinkedLineID,
		ItemName:         spec.ItemName,
		ModelNumber:      spec.ModelNumber,
		Manufacturer:     spec.Manufacturer,
		Category:         spec.Category,
		OrderedQuantity:  spec.Quantity,
		ReceivedQuantity: decimal.Zero,
		UnitPrice:        spec.UnitPrice.Round(2),
		Status:           LineStatusUnreceived,
		Remarks:          spec.Remarks,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if line.LineType == LineTypeItem {
		line.ServiceType = ""
	}
	o.Lines = append(o.Lines, line)
	o.RecalculateSubtotal()
	return line, nil
}

// SetShippingFee records the shipping cost charged on the order
func (o *Order) SetShippingFee(fee decimal.Decimal) error {
	if fee.IsNegative() {
		return shared.NewValidationError("shipping_fee", "cannot be negative")
	}
	o.ShippingFee = fee.Round(2)
	return nil
}

// Line returns the line with the given id, or nil
func (o *Order) Line(lineID uuid.UUID) *OrderLine {
	for _, l := range o.Lines {
		if l.ID == lineID {
			return l
		}
	}
	return nil
}

// Receive applies one delivery to a line and returns the downstream effect it implies.
// The effect is resolved before the line is touched, so a rejected delivery leaves the order unchanged.
func (o *Order) Receive(lineID uuid.UUID, quantity decimal.Decimal) (ReceiptEffect, error) {
	line := o.Line(lineID)
	if line == nil {
		return nil, shared.NewNotFoundError("order line", fmt.Sprintf("%s/%s", o.OrderNumber, lineID))
	}

	if err := line.CheckDelivery(quantity); err != nil {
		return nil, o.withOrderContext(err)
	}
	effect, err := o.effectFor(line, quantity)
	if err != nil {
		return nil, err
	}
	if err := line.ApplyDelivery(quantity); err != nil {
		return nil, o.withOrderContext(err)
	}
	return effect, nil
}

func (o *Order) withOrderContext(err error) error {
	var over *shared.OverReceiptError
	if errors.As(err, &over) {
		over.OrderNumber = o.OrderNumber
	}
	return err
}

// Rollup re-derives the header status from the lines:
// COMPLETE iff every line is COMPLETE, PARTIALLY_RECEIVED once anything was received.
func (o *Order) Rollup() {
	if len(o.Lines) == 0 {
		return
	}

	allComplete, anyReceived := true, false
	for _, l := range o.Lines {
		if l.Status != LineStatusComplete {
			allComplete = false
		}
		if l.ReceivedQuantity.IsPositive() {
			anyReceived = true
		}
	}

	switch {
	case allComplete:
		o.Status = OrderStatusComplete
	case anyReceived:
		o.Status = OrderStatusPartiallyReceived
	default:
		o.Status = OrderStatusOpen
	}
	o.Touch()
}

// RecalculateSubtotal sums ordered quantity times unit price over all lines, rounded to cents
func (o *Order) RecalculateSubtotal() {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Amount())
	}
	o.Subtotal = total.Round(2)
}

// Total is subtotal plus shipping
func (o *Order) Total() decimal.Decimal {
	return o.Subtotal.Add(o.ShippingFee)
}

// IsComplete reports whether every line is fully received
func (o *Order) IsComplete() bool {
	return o.Status == OrderStatusComplete
}
