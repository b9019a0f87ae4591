package telemetry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

// newManualMeter returns a meter whose data can be collected on demand.
func newManualMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader, mp
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	want := attribute.NewSet(attrs...)
	var total int64
	for _, dp := range sum.DataPoints {
		if len(attrs) == 0 || dp.Attributes.Equals(&want) {
			total += dp.Value
		}
	}
	return total
}

func TestCounter_AddAndInc(t *testing.T) {
	reader, mp := newManualMeter(t)
	ctx := context.Background()

	counter, err := telemetry.NewCounter(mp.Meter("test"), "test_counter", "Test counter", "1")
	require.NoError(t, err)

	counter.Add(ctx, 5, attribute.String("kind", "a"))
	counter.Inc(ctx, attribute.String("kind", "a"))
	counter.Inc(ctx, attribute.String("kind", "b"))

	data := collect(t, reader)["test_counter"]
	assert.Equal(t, int64(6), sumFor(t, data, attribute.String("kind", "a")))
	assert.Equal(t, int64(1), sumFor(t, data, attribute.String("kind", "b")))
}

func TestHistogram_CustomBoundaries(t *testing.T) {
	reader, mp := newManualMeter(t)

	h, err := telemetry.NewHistogram(mp.Meter("test"), telemetry.HistogramOpts{
		Name:       "test_duration",
		Unit:       "s",
		Boundaries: []float64{0.1, 1},
	})
	require.NoError(t, err)
	h.RecordDuration(context.Background(), 500*time.Millisecond)
	h.Record(context.Background(), 2)

	hist, ok := collect(t, reader)["test_duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.Equal(t, []float64{0.1, 1}, hist.DataPoints[0].Bounds)
}

func TestNewProcurementMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewProcurementMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestProcurementMetrics_Record(t *testing.T) {
	reader, mp := newManualMeter(t)
	ctx := context.Background()

	m, err := telemetry.NewProcurementMetrics(mp.Meter("stockroom"))
	require.NoError(t, err)

	m.RecordOrderRegistered(ctx, "INVENTORY", telemetry.OutcomeSuccess)
	m.RecordReceipt(ctx, telemetry.OutcomeSuccess, "", 20*time.Millisecond)
	m.RecordReceipt(ctx, telemetry.OutcomeRejected, "OVER_RECEIPT", 5*time.Millisecond)
	m.RecordLineReceived(ctx, "STOCK_INCREMENT")
	m.RecordLineReceived(ctx, "STOCK_INCREMENT")
	m.RecordAssetsCreated(ctx, 3)
	m.RecordAssetsCreated(ctx, 0)
	m.RecordNumberIssued(ctx, "ORDER")
	m.RecordStockMovement(ctx, "dispatch", telemetry.OutcomeRejected)

	data := collect(t, reader)
	assert.Equal(t, int64(1), sumFor(t, data["stockroom_orders_registered_total"]))
	assert.Equal(t, int64(1), sumFor(t, data["stockroom_receipts_total"],
		telemetry.AttrOutcome.String("rejected"), telemetry.AttrErrorCode.String("OVER_RECEIPT")))
	assert.Equal(t, int64(2), sumFor(t, data["stockroom_lines_received_total"]))
	assert.Equal(t, int64(3), sumFor(t, data["stockroom_assets_created_total"]))
	assert.Equal(t, int64(1), sumFor(t, data["stockroom_document_numbers_issued_total"],
		telemetry.AttrNumbering.String("ORDER")))
	assert.Equal(t, int64(1), sumFor(t, data["stockroom_stock_movements_total"]))
	assert.Contains(t, data, "stockroom_receipt_duration_seconds")
}

func TestNoopProcurementMetrics(t *testing.T) {
	m := telemetry.NewNoopProcurementMetrics()
	require.NotNil(t, m)
	assert.NotPanics(t, func() {
		m.RecordReceipt(context.Background(), telemetry.OutcomeFailed, "INTERNAL", time.Second)
	})
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, telemetry.OutcomeSuccess, telemetry.OutcomeOf(nil))
	assert.Equal(t, telemetry.OutcomeRejected, telemetry.OutcomeOf(shared.NewValidationError("quantity", "is required")))
	assert.Equal(t, telemetry.OutcomeRejected, telemetry.OutcomeOf(fmt.Errorf("receive: %w", shared.ErrDuplicateDelivery)))
	assert.Equal(t, telemetry.OutcomeFailed, telemetry.OutcomeOf(errors.New("connection reset")))
}

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	p, err := telemetry.Setup(ctx, telemetry.Config{Enabled: false, ServiceName: "test"}, logger)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NotNil(t, p.Meter("test"))
	assert.Same(t, logger, p.BridgeLogger(logger, 0))
	assert.NoError(t, p.Shutdown(ctx))
}
