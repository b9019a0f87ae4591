package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	appnumbering "github.com/stockroom/backend/internal/application/numbering"
	"github.com/stockroom/backend/internal/application/txn"
	"github.com/stockroom/backend/internal/domain/inventory"
	"github.com/stockroom/backend/internal/domain/numbering"
	"github.com/stockroom/backend/internal/infrastructure/config"
	"github.com/stockroom/backend/internal/infrastructure/logger"
	"github.com/stockroom/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// testDate falls in fiscal period 56
var testDate = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func testNumberer() *appnumbering.Numberer {
	return appnumbering.FromConfig(config.NumberingConfig{
		Department: "S",
		BaseTerm:   56,
		BaseYear:   2024,
		Order:      config.SchemeConfig{Prefix: "PO", Width: 5},
		Item:       config.SchemeConfig{Prefix: "SG", Width: 6},
		Asset:      config.SchemeConfig{Prefix: "EQ", Width: 5},
		Journal:    config.SchemeConfig{Prefix: "S", Width: 6},
	},
		appnumbering.WithLocation(time.UTC),
		appnumbering.WithClock(func() time.Time { return testDate }),
	)
}

func testProcurementConfig() config.ProcurementConfig {
	return config.ProcurementConfig{
		IdempotencyTTL: time.Hour,
		OrderLockTTL:   30 * time.Second,
	}
}

// fixture wires the services to a private in-memory sqlite database
type fixture struct {
	db           *persistence.Database
	registration *RegistrationService
	receipts     *ReceiptService
	queries      *QueryService
}

func newFixture(t *testing.T, cfg config.ProcurementConfig) *fixture {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, persistence.Options{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	log := zaptest.NewLogger(t)
	numberer := testNumberer()
	return &fixture{
		db:           db,
		registration: NewRegistrationService(db.Scope(), numberer, log),
		receipts:     NewReceiptService(db.Scope(), numberer, cfg, log),
		queries:      NewQueryService(db.Scope()),
	}
}

func (f *fixture) register(t *testing.T, req RegisterOrderRequest) *OrderView {
	t.Helper()
	number, err := f.registration.RegisterOrder(context.Background(), req)
	require.NoError(t, err)
	view, err := f.queries.GetByOrderNumber(context.Background(), number)
	require.NoError(t, err)
	return view
}

func (f *fixture) stock(t *testing.T, itemCode string) *inventory.StockRecord {
	t.Helper()
	rec, err := persistence.NewGormStockRepository(f.db.DB).FindByCode(context.Background(), itemCode)
	require.NoError(t, err)
	return rec
}

func (f *fixture) journal(t *testing.T, orderNumber string) []inventory.Transaction {
	t.Helper()
	entries, err := persistence.NewGormInventoryTransactionRepository(f.db.DB).ListByOrder(context.Background(), orderNumber)
	require.NoError(t, err)
	return entries
}

func (f *fixture) issued(t *testing.T, typ numbering.Type) int64 {
	t.Helper()
	n, err := persistence.NewGormSequenceRepository(f.db.DB).Current(context.Background(),
		numbering.Key{Department: "S", Type: typ, Period: 56})
	require.NoError(t, err)
	return n
}

func inventoryRequest(lines ...RegisterOrderLine) RegisterOrderRequest {
	return RegisterOrderRequest{
		OrderType: "INVENTORY",
		Supplier:  "Acme Supply",
		Operator:  "alice",
		Lines:     lines,
	}
}

func assetRequest(lines ...RegisterOrderLine) RegisterOrderRequest {
	return RegisterOrderRequest{
		OrderType: "ASSET",
		Supplier:  "Keysight Direct",
		Operator:  "bob",
		Lines:     lines,
	}
}

func itemLine(name, model string, qty int64, price string) RegisterOrderLine {
	return RegisterOrderLine{
		ItemName:     name,
		ModelNumber:  model,
		Manufacturer: "Fluke",
		Category:     "Meters",
		Quantity:     decimal.NewFromInt(qty),
		UnitPrice:    decimal.RequireFromString(price),
	}
}

func delivery(line LineView, qty int64) Delivery {
	return Delivery{LineID: line.ID, Quantity: decimal.NewFromInt(qty)}
}

func decimalEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

// taggedCtx matches a context carrying the given operator and request id
func taggedCtx(operator, requestID string) any {
	return mock.MatchedBy(func(ctx context.Context) bool {
		return logger.GetOperator(ctx) == operator && logger.GetRequestID(ctx) == requestID
	})
}

// MockScope is a mock implementation of txn.Scope
type MockScope struct {
	mock.Mock
}

func (m *MockScope) Execute(ctx context.Context, fn func(repos txn.Repositories) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}
