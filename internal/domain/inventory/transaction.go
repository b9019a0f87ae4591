package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/shared"
)

// TransactionType classifies an inventory journal entry
type TransactionType string

const (
	// TransactionTypeOrderRegistered records an item put on order; stock is unchanged
	TransactionTypeOrderRegistered TransactionType = "ORDER_REGISTERED"
	// TransactionTypePurchaseReceive records goods received against an order
	TransactionTypePurchaseReceive TransactionType = "PURCHASE_RECEIVE"
	TransactionTypeManualReceive   TransactionType = "MANUAL_RECEIVE"
	TransactionTypeManualDispatch  TransactionType = "MANUAL_DISPATCH"
)

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeOrderRegistered, TransactionTypePurchaseReceive,
		TransactionTypeManualReceive, TransactionTypeManualDispatch:
		return true
	}
	return false
}

// StockDelta returns the signed change a transaction of this type applies to quantity
func (t TransactionType) StockDelta(quantity decimal.Decimal) decimal.Decimal {
	switch t {
	case TransactionTypePurchaseReceive, TransactionTypeManualReceive:
		return quantity
	case TransactionTypeManualDispatch:
		return quantity.Neg()
	}
	return decimal.Zero
}

// Transaction is an append-only journal entry
type Transaction struct {
	ID                uuid.UUID
	TransactionNumber string
	Type              TransactionType
	ItemCode          string
	OrderNumber       string
	Quantity          decimal.Decimal
	UnitPrice         decimal.Decimal
	Supplier          string
	Operator          string
	Remarks           string
	OccurredAt        time.Time
}

// NewTransaction creates a journal entry. Quantity is always positive; the type gives the direction.
func NewTransaction(number string, txType TransactionType, itemCode string, quantity decimal.Decimal, operator string) (*Transaction, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewValidationError("transaction_number", "is required")
	}
	if !txType.IsValid() {
		return nil, shared.NewValidationError("transaction_type", "is not a known transaction type")
	}
	if strings.TrimSpace(itemCode) == "" {
		return nil, shared.NewValidationError("item_code", "is required")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewValidationError("quantity", "must be greater than zero")
	}
	return &Transaction{
		ID:                uuid.New(),
		TransactionNumber: number,
		Type:              txType,
		ItemCode:          itemCode,
		Quantity:          quantity,
		UnitPrice:         decimal.Zero,
		Operator:          operator,
		OccurredAt:        time.Now(),
	}, nil
}

// WithOrder ties the entry to a purchase order
func (t *Transaction) WithOrder(orderNumber, supplier string) *Transaction {
	t.OrderNumber = orderNumber
	t.Supplier = supplier
	return t
}

// WithUnitPrice sets the price per unit
func (t *Transaction) WithUnitPrice(price decimal.Decimal) *Transaction {
	t.UnitPrice = price
	return t
}

// WithRemarks sets free text remarks
func (t *Transaction) WithRemarks(remarks string) *Transaction {
	t.Remarks = remarks
	return t
}

// SignedQuantity returns the stock change this entry represents
func (t *Transaction) SignedQuantity() decimal.Decimal {
	return t.Type.StockDelta(t.Quantity)
}
