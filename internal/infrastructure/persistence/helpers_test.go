package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/inventory"
	"github.com/stockroom/backend/internal/domain/procurement"
	"github.com/stockroom/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/require"
)

// newTestDatabase opens a private in-memory sqlite database with every table created
func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, Options{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedStock(t *testing.T, db *Database, code, model, name string) *inventory.StockRecord {
	t.Helper()
	rec, err := inventory.NewStockRecord(code, inventory.NewNaturalKey(model, name), "Fluke", "Meters")
	require.NoError(t, err)
	require.NoError(t, NewGormStockRepository(db.DB).Create(context.Background(), rec))
	return rec
}

// newInventoryOrder builds an order with one ITEM line of the given quantity against itemCode
func newInventoryOrder(t *testing.T, number, itemCode string, qty int64) *procurement.Order {
	t.Helper()
	order, err := procurement.NewOrder(number, "Acme Supply", procurement.OrderTypeInventory,
		time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), "alice")
	require.NoError(t, err)
	_, err = order.AddLine(procurement.LineSpec{
		LineType:      procurement.LineTypeItem,
		ReferenceCode: itemCode,
		ItemName:      "Digital multimeter",
		ModelNumber:   "DMM-87V",
		Quantity:      decimal.NewFromInt(qty),
		UnitPrice:     decimal.RequireFromString("39.99"),
	})
	require.NoError(t, err)
	return order
}

func decimalEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}
