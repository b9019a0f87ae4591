package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/stockroom/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Outcome labels the result of a service call.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected" // business rule violation, nothing persisted
	OutcomeFailed   Outcome = "failed"   // infrastructure failure
)

// OutcomeOf classifies err: nil succeeds, a domain error is a rejection, anything else failed.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case shared.CodeOf(err) != "INTERNAL":
		return OutcomeRejected
	}
	return OutcomeFailed
}

// ProcurementMetrics counts registrations, receipts, effects and numbers issued.
type ProcurementMetrics struct {
	ordersRegistered *Counter
	receipts         *Counter
	linesReceived    *Counter
	assetsCreated    *Counter
	numbersIssued    *Counter
	stockMovements   *Counter
	receiptDuration  *Histogram
}

// NewProcurementMetrics creates the instruments on meter.
func NewProcurementMetrics(meter metric.Meter) (*ProcurementMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &ProcurementMetrics{}
	var err error
	if m.ordersRegistered, err = NewCounter(meter, "stockroom_orders_registered_total",
		"Purchase orders registered", "{orders}"); err != nil {
		return nil, err
	}
	if m.receipts, err = NewCounter(meter, "stockroom_receipts_total",
		"Delivery batches submitted", "{batches}"); err != nil {
		return nil, err
	}
	if m.linesReceived, err = NewCounter(meter, "stockroom_lines_received_total",
		"Order line deliveries applied", "{lines}"); err != nil {
		return nil, err
	}
	if m.assetsCreated, err = NewCounter(meter, "stockroom_assets_created_total",
		"Assets created from deliveries", "{assets}"); err != nil {
		return nil, err
	}
	if m.numbersIssued, err = NewCounter(meter, "stockroom_document_numbers_issued_total",
		"Document numbers allocated", "{numbers}"); err != nil {
		return nil, err
	}
	if m.stockMovements, err = NewCounter(meter, "stockroom_stock_movements_total",
		"Manual stock receive and dispatch calls", "{movements}"); err != nil {
		return nil, err
	}
	if m.receiptDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "stockroom_receipt_duration_seconds",
		Description: "Time to reconcile one delivery batch",
		Unit:        "s",
		Boundaries:  ServiceDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// NewNoopProcurementMetrics returns metrics that record nothing
func NewNoopProcurementMetrics() *ProcurementMetrics {
	m, _ := NewProcurementMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

// RecordOrderRegistered counts one registration attempt
func (m *ProcurementMetrics) RecordOrderRegistered(ctx context.Context, orderType string, outcome Outcome) {
	m.ordersRegistered.Inc(ctx, AttrOrderType.String(orderType), AttrOutcome.String(string(outcome)))
}

// RecordReceipt counts one batch and its duration; code is the error code for failures
func (m *ProcurementMetrics) RecordReceipt(ctx context.Context, outcome Outcome, code string, elapsed time.Duration) {
	m.receipts.Inc(ctx, AttrOutcome.String(string(outcome)), AttrErrorCode.String(code))
	m.receiptDuration.RecordDuration(ctx, elapsed, AttrOutcome.String(string(outcome)))
}

// RecordLineReceived counts one applied delivery by effect kind
func (m *ProcurementMetrics) RecordLineReceived(ctx context.Context, effectKind string) {
	m.linesReceived.Inc(ctx, AttrEffectKind.String(effectKind))
}

// RecordAssetsCreated adds n created assets
func (m *ProcurementMetrics) RecordAssetsCreated(ctx context.Context, n int) {
	if n > 0 {
		m.assetsCreated.Add(ctx, int64(n))
	}
}

// RecordNumberIssued counts one allocated document number
func (m *ProcurementMetrics) RecordNumberIssued(ctx context.Context, numberingType string) {
	m.numbersIssued.Inc(ctx, AttrNumbering.String(numberingType))
}

// RecordStockMovement counts one manual movement
func (m *ProcurementMetrics) RecordStockMovement(ctx context.Context, movement string, outcome Outcome) {
	m.stockMovements.Inc(ctx, AttrMovement.String(movement), AttrOutcome.String(string(outcome)))
}
