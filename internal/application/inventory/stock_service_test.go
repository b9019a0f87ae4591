package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	appnumbering "github.com/stockroom/backend/internal/application/numbering"
	"github.com/stockroom/backend/internal/application/txn"
	"github.com/stockroom/backend/internal/domain/inventory"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/config"
	"github.com/stockroom/backend/internal/infrastructure/logger"
	"github.com/stockroom/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newStockService(t *testing.T) *StockService {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, persistence.Options{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	numberer := appnumbering.FromConfig(config.NumberingConfig{
		Department: "S",
		BaseTerm:   56,
		BaseYear:   2024,
		Item:       config.SchemeConfig{Prefix: "SG", Width: 6},
		Journal:    config.SchemeConfig{Prefix: "S", Width: 6},
	},
		appnumbering.WithLocation(time.UTC),
		appnumbering.WithClock(func() time.Time { return time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC) }),
	)
	return NewStockService(db.Scope(), numberer, zaptest.NewLogger(t))
}

func movement(code string, qty int64) MovementRequest {
	return MovementRequest{ItemCode: code, Quantity: decimal.NewFromInt(qty), Operator: "dave"}
}

func TestStockService_CreateStock(t *testing.T) {
	ctx := context.Background()
	svc := newStockService(t)

	rec, err := svc.CreateStock(ctx, CreateStockRequest{
		ItemName:    "Hex bolt M6",
		ModelNumber: "HB-M6",
		Category:    "Fasteners",
		Location:    "Shelf B2",
	})
	require.NoError(t, err)
	assert.Equal(t, "SG57-000001", rec.ItemCode)
	assert.Equal(t, "Shelf B2", rec.Location)
	assert.True(t, rec.CurrentStock.IsZero())

	t.Run("duplicate natural key", func(t *testing.T) {
		_, err := svc.CreateStock(ctx, CreateStockRequest{ItemName: " Hex bolt M6", ModelNumber: "HB-M6 "})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("name is required", func(t *testing.T) {
		_, err := svc.CreateStock(ctx, CreateStockRequest{ModelNumber: "HB-M8"})
		var ve *shared.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "item_name", ve.Field)
	})
}

func TestStockService_Movements(t *testing.T) {
	ctx := context.Background()
	svc := newStockService(t)
	rec, err := svc.CreateStock(ctx, CreateStockRequest{ItemName: "Cable tie", ModelNumber: "CT-200"})
	require.NoError(t, err)

	number, err := svc.ReceiveStock(ctx, movement(rec.ItemCode, 8))
	require.NoError(t, err)
	assert.Equal(t, "S57-000001", number)

	number, err = svc.DispatchStock(ctx, movement(rec.ItemCode, 3))
	require.NoError(t, err)
	assert.Equal(t, "S57-000002", number)

	t.Run("dispatch beyond the balance", func(t *testing.T) {
		_, err := svc.DispatchStock(ctx, movement(rec.ItemCode, 6))
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	})

	t.Run("zero quantity", func(t *testing.T) {
		_, err := svc.ReceiveStock(ctx, movement(rec.ItemCode, 0))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("sub-cent quantity", func(t *testing.T) {
		req := movement(rec.ItemCode, 0)
		req.Quantity = decimal.RequireFromString("0.001")
		_, err := svc.ReceiveStock(ctx, req)
		var ve *shared.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "quantity", ve.Field)
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := svc.DispatchStock(ctx, movement("SG57-009999", 1))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	detail, err := svc.GetStock(ctx, rec.ItemCode)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(detail.CurrentStock), "stock %s", detail.CurrentStock)
	require.Len(t, detail.Transactions, 2)
	assert.Equal(t, inventory.TransactionTypeManualReceive, detail.Transactions[0].Type)
	assert.Equal(t, inventory.TransactionTypeManualDispatch, detail.Transactions[1].Type)
	assert.True(t, decimal.NewFromInt(-3).Equal(detail.Transactions[1].StockDelta))
	assert.Equal(t, "dave", detail.Transactions[1].Operator)
}

// operatorScope records the operator tagged on each transaction context
type operatorScope struct {
	txn.Scope
	operators []string
}

func (s *operatorScope) Execute(ctx context.Context, fn func(repos txn.Repositories) error) error {
	s.operators = append(s.operators, logger.GetOperator(ctx))
	return s.Scope.Execute(ctx, fn)
}

func TestStockService_MovementsRunUnderTheOperator(t *testing.T) {
	ctx := context.Background()
	svc := newStockService(t)
	rec, err := svc.CreateStock(ctx, CreateStockRequest{ItemName: "Solder wire", ModelNumber: "SW-1"})
	require.NoError(t, err)

	scope := &operatorScope{Scope: svc.scope}
	svc.scope = scope

	_, err = svc.ReceiveStock(ctx, movement(rec.ItemCode, 4))
	require.NoError(t, err)
	dispatch := movement(rec.ItemCode, 1)
	dispatch.Operator = "erin"
	_, err = svc.DispatchStock(ctx, dispatch)
	require.NoError(t, err)

	assert.Equal(t, []string{"dave", "erin"}, scope.operators)
}

func TestStockService_ConcurrentDispatchNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	svc := newStockService(t)
	rec, err := svc.CreateStock(ctx, CreateStockRequest{ItemName: "Fuse 2A", ModelNumber: "F-2A"})
	require.NoError(t, err)
	_, err = svc.ReceiveStock(ctx, movement(rec.ItemCode, 5))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.DispatchStock(ctx, movement(rec.ItemCode, 1)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, shared.ErrInsufficientStock)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	detail, err := svc.GetStock(ctx, rec.ItemCode)
	require.NoError(t, err)
	assert.True(t, detail.CurrentStock.IsZero())
}
