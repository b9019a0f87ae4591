package procurement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/shared"
)

// OrderLine is one requested item or service on an order.
// 0 <= ReceivedQuantity <= OrderedQuantity holds at all times.
type OrderLine struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	LineNo           int
	LineType         LineType
	ServiceType      ServiceType // SERVICE lines only
	ReferenceCode    string      // stock item code or asset code
	RelatedAssetID   *uuid.UUID  // existing asset a standalone service targets
	LinkedLineID     *uuid.UUID  // parent ITEM line of a nested service
	ItemName         string
	ModelNumber      string
	Manufacturer     string
	Category         string
	OrderedQuantity  decimal.Decimal
	ReceivedQuantity decimal.Decimal
	UnitPrice        decimal.Decimal
	Status           LineStatus
	Remarks          string
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RemainingQuantity returns the quantity still outstanding
func (l *OrderLine) RemainingQuantity() decimal.Decimal {
	return l.OrderedQuantity.Sub(l.ReceivedQuantity)
}

// IsFullyReceived reports whether nothing is outstanding
func (l *OrderLine) IsFullyReceived() bool {
	return l.ReceivedQuantity.GreaterThanOrEqual(l.OrderedQuantity)
}

// IsService reports whether the line orders work rather than goods
func (l *OrderLine) IsService() bool {
	return l.LineType == LineTypeService
}

// Amount is ordered quantity times unit price
func (l *OrderLine) Amount() decimal.Decimal {
	return l.OrderedQuantity.Mul(l.UnitPrice)
}

// CheckDelivery validates delta against the line without mutating it
func (l *OrderLine) CheckDelivery(delta decimal.Decimal) error {
	if !delta.IsPositive() {
		return shared.NewValidationError("quantity", "must be greater than zero")
	}
	if err := shared.CheckQuantityScale("quantity", delta); err != nil {
		return err
	}
	if l.IsFullyReceived() || l.ReceivedQuantity.Add(delta).GreaterThan(l.OrderedQuantity) {
		return &shared.OverReceiptError{
			LineID:    l.ID,
			LineNo:    l.LineNo,
			Ordered:   l.OrderedQuantity,
			Received:  l.ReceivedQuantity,
			Attempted: delta,
		}
	}
	return nil
}

// ApplyDelivery adds delta to the received quantity and re-derives the status.
// On error the line is unchanged.
func (l *OrderLine) ApplyDelivery(delta decimal.Decimal) error {
	if err := l.CheckDelivery(delta); err != nil {
		return err
	}
	l.ReceivedQuantity = l.ReceivedQuantity.Add(delta)
	l.Status = deriveLineStatus(l.ReceivedQuantity, l.OrderedQuantity)
	l.UpdatedAt = time.Now()
	return nil
}

// ConfirmPrice replaces the unit price with the invoiced one
func (l *OrderLine) ConfirmPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewValidationError("unit_price", "cannot be negative")
	}
	l.UnitPrice = price.Round(2)
	l.UpdatedAt = time.Now()
	return nil
}

func deriveLineStatus(received, ordered decimal.Decimal) LineStatus {
	switch {
	case received.GreaterThanOrEqual(ordered):
		return LineStatusComplete
	case received.IsPositive():
		return LineStatusPartial
	default:
		return LineStatusUnreceived
	}
}
