package procurement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/asset"
	"github.com/stockroom/backend/internal/domain/inventory"
	"github.com/stockroom/backend/internal/domain/numbering"
	"github.com/stockroom/backend/internal/domain/procurement"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/cache"
	"github.com/stockroom/backend/internal/infrastructure/lock"
	"github.com/stockroom/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receiveRequest(orderNumber string, deliveries ...Delivery) ReceiveRequest {
	return ReceiveRequest{OrderNumber: orderNumber, Operator: "carol", Deliveries: deliveries}
}

func TestReceiptService_PartialCompleteThenOverReceipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testProcurementConfig())
	order := f.register(t, inventoryRequest(itemLine("Digital multimeter", "DMM-87V", 10, "39.99")))
	line := order.Lines[0]

	result, err := f.receipts.Receive(ctx, receiveRequest(order.OrderNumber, delivery(line, 6)))
	require.NoError(t, err)
	assert.Equal(t, procurement.OrderStatusPartiallyReceived, result.Status)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, procurement.LineStatusPartial, result.Lines[0].Status)
	assert.Equal(t, procurement.EffectStockIncrement, result.Lines[0].Effect)
	decimalEqual(t, "6", result.Lines[0].Received)
	assert.Equal(t, []string{"S56-000002"}, result.Lines[0].JournalNumbers)
	decimalEqual(t, "6", f.stock(t, line.ReferenceCode).CurrentStock)

	result, err = f.receipts.Receive(ctx, receiveRequest(order.OrderNumber, delivery(line, 4)))
	require.NoError(t, err)
	assert.Equal(t, procurement.OrderStatusComplete, result.Status)
	assert.Equal(t, procurement.LineStatusComplete, result.Lines[0].Status)
	decimalEqual(t, "10", f.stock(t, line.ReferenceCode).CurrentStock)

	_, err = f.receipts.Receive(ctx, receiveRequest(order.OrderNumber, delivery(line, 1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrOverReceipt)
	var over *shared.OverReceiptError
	require.ErrorAs(t, err, &over)
	assert.Equal(t, order.OrderNumber, over.OrderNumber)
	decimalEqual(t, "10", over.Ordered)
	decimalEqual(t, "10", over.Received)

	decimalEqual(t, "10", f.stock(t, line.ReferenceCode).CurrentStock)
	view, err := f.queries.GetByOrderNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, procurement.OrderStatusComplete, view.Status)
	decimalEqual(t, "10", view.Lines[0].Received)

	var receipts int
	for _, e := range f.journal(t, order.OrderNumber) {
		if e.Type == inventory.TransactionTypePurchaseReceive {
			receipts++
			assert.Equal(t, "carol", e.Operator)
			decimalEqual(t, "39.99", e.UnitPrice)
		}
	}
	assert.Equal(t, 2, receipts)
}

func TestReceiptService_BatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testProcurementConfig())
	order := f.register(t, inventoryRequest(
		itemLine("Digital multimeter", "DMM-87V", 10, "39.99"),
		itemLine("Test lead set", "TL-71", 5, "12.50"),
	))
	journalBefore := f.issued(t, numbering.TypeJournal)

	_, err := f.receipts.Receive(ctx, receiveRequest(order.OrderNumber,
		delivery(order.Lines[0], 3),
		delivery(order.Lines[1], 6),
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrOverReceipt)

	view, err := f.queries.GetByOrderNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, procurement.OrderStatusOpen, view.Status)
	for _, l := range view.Lines {
		assert.True(t, l.Received.IsZero(), "line %d received %s", l.LineNo, l.Received)
		assert.Equal(t, procurement.LineStatusUnreceived, l.Status)
	}
	assert.True(t, f.stock(t, order.Lines[0].ReferenceCode).CurrentStock.IsZero())
	assert.Equal(t, journalBefore, f.issued(t, numbering.TypeJournal))
}

func TestReceiptService_RejectsBadDeliveries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testProcurementConfig())
	order := f.register(t, inventoryRequest(itemLine("Digital multimeter", "DMM-87V", 10, "39.99")))

	t.Run("zero quantity", func(t *testing.T) {
		_, err := f.receipts.Receive(ctx, receiveRequest(order.OrderNumber, delivery(order.Lines[0], 0)))
		var ve *shared.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "deliveries[0].quantity", ve.Field)
	})

	t.Run("no deliveries", func(t *testing.T) {
		_, err := f.receipts.Receive(ctx, receiveRequest(order.OrderNumber))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.receipts.Receive(ctx, receiveRequest("PO56-09999", delivery(order.Lines[0], 1)))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("unknown line", func(t *testing.T) {
		_, err := f.receipts.Receive(ctx, receiveRequest(order.OrderNumber,
			Delivery{LineID: uuid.New(), Quantity: decimal.NewFromInt(1)}))
		var nf *shared.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "order line", nf.Resource)
	})

	assert.True(t, f.stock(t, order.Lines[0].ReferenceCode).CurrentStock.IsZero())
}

func TestReceiptService_AssetOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testProcurementConfig())

	equipment := itemLine("Oscilloscope", "DSOX1204G", 2, "1250.00")
	equipment.Manufacturer = "Keysight"
	equipment.Category = "Oscilloscopes"
	equipment.Services = []RegisterOrderService{{ServiceType: "CALIBRATION", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("180.00")}}
	order := f.register(t, assetRequest(equipment))
	item, service := order.Lines[0], order.Lines[1]

	t.Run("fractional units are rejected", func(t *testing.T) {
		_, err := f.receipts.Receive(ctx, receiveRequest(order.OrderNumber,
			Delivery{LineID: item.ID, Quantity: decimal.RequireFromString("1.5")}))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("one asset per unit with attributes copied", func(t *testing.T) {
		d := delivery(item, 1)
		d.CalibrationRequired = true
		result, err := f.receipts.Receive(ctx, receiveRequest(order.OrderNumber, d))
		require.NoError(t, err)
		assert.Equal(t, procurement.EffectAssetCreation, result.Lines[0].Effect)
		assert.Equal(t, []string{"EQ56-00001"}, result.Lines[0].AssetCodes)
		assert.Equal(t, procurement.OrderStatusPartiallyReceived, result.Status)

		assets, err := persistence.NewGormAssetRepository(f.db.DB).ListBySourceLine(ctx, item.ID)
		require.NoError(t, err)
		require.Len(t, assets, 1)
		a := assets[0]
		assert.Equal(t, "Oscilloscope", a.Name)
		assert.Equal(t, "Oscilloscopes", a.Category)
		assert.Equal(t, "Keysight Direct", a.Supplier)
		assert.Equal(t, "Keysight", a.Manufacturer)
		assert.Equal(t, "DSOX1204G", a.ModelNumber)
		assert.Equal(t, asset.StatusDelivered, a.Status)
		assert.Equal(t, order.OrderNumber, a.SourceOrderNumber)
		assert.True(t, a.CalibrationRequired)
		decimalEqual(t, "1250.00", a.PurchasePrice)
	})

	t.Run("service receipt only moves status", func(t *testing.T) {
		result, err := f.receipts.Receive(ctx, receiveRequest(order.OrderNumber,
			delivery(item, 1),
			delivery(service, 1),
		))
		require.NoError(t, err)
		assert.Equal(t, []string{"EQ56-00002"}, result.Lines[0].AssetCodes)
		assert.Equal(t, procurement.EffectStatusOnly, result.Lines[1].Effect)
		assert.Empty(t, result.Lines[1].AssetCodes)
		assert.Equal(t, procurement.OrderStatusComplete, result.Status)

		view, err := f.queries.GetByOrderNumber(ctx, order.OrderNumber)
		require.NoError(t, err)
		// the equipment line keeps the first asset code it produced
		assert.Equal(t, "EQ56-00001", view.Lines[0].ReferenceCode)
		assert.Equal(t, int64(2), f.issued(t, numbering.TypeAsset))
		assert.Equal(t, int64(0), f.issued(t, numbering.TypeJournal))
	})
}

func TestReceiptService_PriceConfirmation(t *testing.T) {
	ctx := context.Background()
	confirmed := decimal.RequireFromString("45.00")

	t.Run("updates the line and subtotal when enabled", func(t *testing.T) {
		cfg := testProcurementConfig()
		cfg.RecalculateSubtotal = true
		f := newFixture(t, cfg)
		order := f.register(t, inventoryRequest(itemLine("Digital multimeter", "DMM-87V", 10, "39.99")))

		d := delivery(order.Lines[0], 4)
		d.ConfirmedUnitPrice = &confirmed
		result, err := f.receipts.Receive(ctx, receiveRequest(order.OrderNumber, d))
		require.NoError(t, err)
		decimalEqual(t, "450.00", result.Subtotal)

		view, err := f.queries.GetByOrderNumber(ctx, order.OrderNumber)
		require.NoError(t, err)
		decimalEqual(t, "45.00", view.Lines[0].UnitPrice)
		decimalEqual(t, "450.00", view.Subtotal)

		entries := f.journal(t, order.OrderNumber)
		last := entries[len(entries)-1]
		assert.Equal(t, inventory.TransactionTypePurchaseReceive, last.Type)
		decimalEqual(t, "45.00", last.UnitPrice)
	})

	t.Run("ignored when disabled", func(t *testing.T) {
		f := newFixture(t, testProcurementConfig())
		order := f.register(t, inventoryRequest(itemLine("Digital multimeter", "DMM-87V", 10, "39.99")))

		d := delivery(order.Lines[0], 4)
		d.ConfirmedUnitPrice = &confirmed
		result, err := f.receipts.Receive(ctx, receiveRequest(order.OrderNumber, d))
		require.NoError(t, err)
		decimalEqual(t, "399.90", result.Subtotal)
	})
}

func TestReceiptService_ConcurrentDeliveriesNeverOverReceive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testProcurementConfig())
	order := f.register(t, inventoryRequest(itemLine("Digital multimeter", "DMM-87V", 10, "39.99")))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.receipts.Receive(ctx, receiveRequest(order.OrderNumber, delivery(order.Lines[0], 6)))
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, shared.ErrOverReceipt):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	decimalEqual(t, "6", f.stock(t, order.Lines[0].ReferenceCode).CurrentStock)
}

func TestReceiptService_Idempotency(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate key is rejected without touching the order", func(t *testing.T) {
		f := newFixture(t, testProcurementConfig())
		store := cache.NewInMemoryIdempotencyStore(time.Minute)
		t.Cleanup(func() { _ = store.Close() })
		f.receipts.SetIdempotencyStore(store)
		order := f.register(t, inventoryRequest(itemLine("Digital multimeter", "DMM-87V", 10, "39.99")))

		req := receiveRequest(order.OrderNumber, delivery(order.Lines[0], 2))
		req.IdempotencyKey = "dlv-2025-03-14-001"
		_, err := f.receipts.Receive(ctx, req)
		require.NoError(t, err)

		_, err = f.receipts.Receive(ctx, req)
		assert.ErrorIs(t, err, shared.ErrDuplicateDelivery)
		decimalEqual(t, "2", f.stock(t, order.Lines[0].ReferenceCode).CurrentStock)
	})

	t.Run("failed batch releases its key", func(t *testing.T) {
		f := newFixture(t, testProcurementConfig())
		store := cache.NewInMemoryIdempotencyStore(time.Minute)
		t.Cleanup(func() { _ = store.Close() })
		f.receipts.SetIdempotencyStore(store)
		order := f.register(t, inventoryRequest(itemLine("Digital multimeter", "DMM-87V", 10, "39.99")))

		req := receiveRequest(order.OrderNumber, delivery(order.Lines[0], 11))
		req.IdempotencyKey = "dlv-2025-03-14-002"
		_, err := f.receipts.Receive(ctx, req)
		assert.ErrorIs(t, err, shared.ErrOverReceipt)
		assert.Equal(t, 0, store.Size())

		req.Deliveries[0].Quantity = decimal.NewFromInt(10)
		result, err := f.receipts.Receive(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, procurement.OrderStatusComplete, result.Status)
	})

	t.Run("store failure aborts before the transaction", func(t *testing.T) {
		scope := new(MockScope)
		store := new(MockIdempotencyStore)
		store.On("Claim", mock.Anything, "dlv-1", time.Hour).Return(false, errors.New("redis: connection refused")).Once()

		svc := NewReceiptService(scope, testNumberer(), testProcurementConfig(), zap.NewNop())
		svc.SetIdempotencyStore(store)

		req := receiveRequest("PO56-00001", Delivery{LineID: uuid.New(), Quantity: decimal.NewFromInt(1)})
		req.IdempotencyKey = "dlv-1"
		_, err := svc.Receive(ctx, req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "claim idempotency key")

		scope.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("infrastructure failure releases the key", func(t *testing.T) {
		scope := new(MockScope)
		scope.On("Execute", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()
		store := new(MockIdempotencyStore)
		store.On("Claim", mock.Anything, "dlv-2", time.Hour).Return(true, nil).Once()
		store.On("Release", mock.Anything, "dlv-2").Return(nil).Once()

		svc := NewReceiptService(scope, testNumberer(), testProcurementConfig(), zap.NewNop())
		svc.SetIdempotencyStore(store)

		req := receiveRequest("PO56-00001", Delivery{LineID: uuid.New(), Quantity: decimal.NewFromInt(1)})
		req.IdempotencyKey = "dlv-2"
		_, err := svc.Receive(ctx, req)
		assert.EqualError(t, err, "connection reset")

		scope.AssertExpectations(t)
		store.AssertExpectations(t)
	})
}

func TestReceiptService_TagsContextWithOperatorAndKey(t *testing.T) {
	ctx := context.Background()

	t.Run("keyed batch", func(t *testing.T) {
		scope := new(MockScope)
		scope.On("Execute", taggedCtx("carol", "dlv-3"), mock.Anything).Return(errors.New("connection reset")).Once()
		store := new(MockIdempotencyStore)
		store.On("Claim", mock.Anything, "dlv-3", time.Hour).Return(true, nil).Once()
		store.On("Release", mock.Anything, "dlv-3").Return(nil).Once()

		svc := NewReceiptService(scope, testNumberer(), testProcurementConfig(), zap.NewNop())
		svc.SetIdempotencyStore(store)

		req := receiveRequest("PO56-00001", Delivery{LineID: uuid.New(), Quantity: decimal.NewFromInt(1)})
		req.IdempotencyKey = "dlv-3"
		_, err := svc.Receive(ctx, req)
		assert.EqualError(t, err, "connection reset")
		scope.AssertExpectations(t)
	})

	t.Run("unkeyed batch", func(t *testing.T) {
		scope := new(MockScope)
		scope.On("Execute", taggedCtx("carol", ""), mock.Anything).Return(errors.New("connection reset")).Once()

		svc := NewReceiptService(scope, testNumberer(), testProcurementConfig(), zap.NewNop())
		_, err := svc.Receive(ctx, receiveRequest("PO56-00001", Delivery{LineID: uuid.New(), Quantity: decimal.NewFromInt(1)}))
		assert.EqualError(t, err, "connection reset")
		scope.AssertExpectations(t)
	})
}

func TestReceiptService_OrderLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testProcurementConfig())
	locker := lock.NewLocalLocker()
	f.receipts.SetLocker(locker)
	order := f.register(t, inventoryRequest(itemLine("Digital multimeter", "DMM-87V", 10, "39.99")))

	held, err := locker.Acquire(ctx, "order:"+order.OrderNumber, time.Minute)
	require.NoError(t, err)

	_, err = f.receipts.Receive(ctx, receiveRequest(order.OrderNumber, delivery(order.Lines[0], 1)))
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.True(t, f.stock(t, order.Lines[0].ReferenceCode).CurrentStock.IsZero())

	require.NoError(t, held.Release(ctx))

	_, err = f.receipts.Receive(ctx, receiveRequest(order.OrderNumber, delivery(order.Lines[0], 1)))
	require.NoError(t, err)

	// the lease taken by Receive was released again
	again, err := locker.Acquire(ctx, "order:"+order.OrderNumber, time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}
