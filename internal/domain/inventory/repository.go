package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

// StockRepository persists the stock catalog.
// Increment and Decrement are single atomic statements so concurrent movements never lose updates.
type StockRepository interface {
	FindByCode(ctx context.Context, itemCode string) (*StockRecord, error)
	FindByNaturalKey(ctx context.Context, key NaturalKey) (*StockRecord, error)
	Create(ctx context.Context, record *StockRecord) error
	Increment(ctx context.Context, itemCode string, quantity decimal.Decimal) error
	// Decrement fails with shared.ErrInsufficientStock instead of going negative
	Decrement(ctx context.Context, itemCode string, quantity decimal.Decimal) error
}

// TransactionRepository is the append-only inventory journal
type TransactionRepository interface {
	Append(ctx context.Context, tx *Transaction) error
	ListByItem(ctx context.Context, itemCode string) ([]Transaction, error)
	ListByOrder(ctx context.Context, orderNumber string) ([]Transaction, error)
}
