package procurement

import "context"

// OrderRepository persists orders together with their lines
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	FindByNumber(ctx context.Context, orderNumber string) (*Order, error)
	// FindByNumberForUpdate loads the order and holds a row lock on the header
	// until the surrounding transaction ends.
	FindByNumberForUpdate(ctx context.Context, orderNumber string) (*Order, error)
	// SaveReceipt writes received quantities, line statuses and the header
	// status/subtotal, failing with a concurrency error if any version moved.
	SaveReceipt(ctx context.Context, order *Order) error
}
