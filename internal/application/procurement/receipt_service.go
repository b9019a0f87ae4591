package procurement

import (
	"context"
	"fmt"
	"time"

	appnumbering "github.com/stockroom/backend/internal/application/numbering"
	"github.com/stockroom/backend/internal/application/txn"
	"github.com/stockroom/backend/internal/application/validation"
	"github.com/stockroom/backend/internal/domain/asset"
	"github.com/stockroom/backend/internal/domain/inventory"
	"github.com/stockroom/backend/internal/domain/numbering"
	"github.com/stockroom/backend/internal/domain/procurement"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/config"
	"github.com/stockroom/backend/internal/infrastructure/logger"
	"github.com/stockroom/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ReceiptService reconciles deliveries against purchase orders
type ReceiptService struct {
	scope       txn.Scope
	numberer    *appnumbering.Numberer
	cfg         config.ProcurementConfig
	idempotency shared.IdempotencyStore
	locker      shared.Locker
	logger      *zap.Logger
	metrics     *telemetry.ProcurementMetrics
}

// NewReceiptService creates a new ReceiptService.
// Idempotency and order locking are off until a store and locker are set.
func NewReceiptService(scope txn.Scope, numberer *appnumbering.Numberer, cfg config.ProcurementConfig, log *zap.Logger) *ReceiptService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReceiptService{
		scope:    scope,
		numberer: numberer,
		cfg:      cfg,
		logger:   log,
		metrics:  telemetry.NewNoopProcurementMetrics(),
	}
}

// SetIdempotencyStore enables duplicate detection on ReceiveRequest.IdempotencyKey
func (s *ReceiptService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetLocker serializes receipts per order across processes
func (s *ReceiptService) SetLocker(locker shared.Locker) {
	s.locker = locker
}

// SetMetrics sets the procurement metrics collector
func (s *ReceiptService) SetMetrics(m *telemetry.ProcurementMetrics) {
	if m != nil {
		s.metrics = m
	}
}

// Receive applies a batch of deliveries to one order.
// The batch is all-or-nothing: the first rejected delivery rolls back every
// line, stock movement, asset and number of the batch.
func (s *ReceiptService) Receive(ctx context.Context, req ReceiveRequest) (*ReceiveResult, error) {
	start := time.Now()
	ctx = logger.WithOperator(ctx, req.Operator)
	if req.IdempotencyKey != "" {
		ctx = logger.WithRequestID(ctx, req.IdempotencyKey)
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "procurement", "receive",
		telemetry.WithAttribute(telemetry.SpanAttrOrderNumber, req.OrderNumber),
		telemetry.WithAttribute(telemetry.SpanAttrDeliveries, len(req.Deliveries)),
	)
	defer span.End()

	log := logger.WithTraceContext(ctx, s.logger).With(
		zap.String("order_number", req.OrderNumber),
		zap.String("operator", req.Operator),
		zap.Int("deliveries", len(req.Deliveries)),
	)
	if req.IdempotencyKey != "" {
		log = log.With(zap.String("idempotency_key", req.IdempotencyKey))
	}

	result, err := s.receive(ctx, req, log)

	outcome := telemetry.OutcomeOf(err)
	code := ""
	if err != nil {
		code = shared.CodeOf(err)
		telemetry.RecordError(span, err)
	}
	s.metrics.RecordReceipt(ctx, outcome, code, time.Since(start))

	switch outcome {
	case telemetry.OutcomeSuccess:
		telemetry.SetAttribute(span, telemetry.SpanAttrOrderStatus, string(result.Status))
		log.Info("deliveries received", zap.String("status", string(result.Status)))
	case telemetry.OutcomeRejected:
		log.Warn("receipt rejected", zap.String("code", code), zap.Error(err))
	default:
		log.Error("receipt failed", zap.Error(err))
	}
	return result, err
}

func (s *ReceiptService) receive(ctx context.Context, req ReceiveRequest, log *zap.Logger) (_ *ReceiveResult, err error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	if s.idempotency != nil && req.IdempotencyKey != "" {
		claimed, err := s.idempotency.Claim(ctx, req.IdempotencyKey, s.cfg.IdempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("claim idempotency key: %w", err)
		}
		if !claimed {
			return nil, fmt.Errorf("idempotency key %q: %w", req.IdempotencyKey, shared.ErrDuplicateDelivery)
		}
		defer func() {
			if err == nil {
				return
			}
			// a failed batch changed nothing, so the caller may resubmit it
			if relErr := s.idempotency.Release(context.WithoutCancel(ctx), req.IdempotencyKey); relErr != nil {
				log.Warn("failed to release idempotency key", zap.Error(relErr))
			}
		}()
	}

	if s.locker != nil {
		lease, err := s.locker.Acquire(ctx, "order:"+req.OrderNumber, s.cfg.OrderLockTTL)
		if err != nil {
			return nil, err
		}
		defer func() {
			if relErr := lease.Release(context.WithoutCancel(ctx)); relErr != nil {
				log.Warn("failed to release order lock", zap.Error(relErr))
			}
		}()
	}

	var result *ReceiveResult
	err = s.scope.Execute(ctx, func(repos txn.Repositories) error {
		order, err := repos.Orders().FindByNumberForUpdate(ctx, req.OrderNumber)
		if err != nil {
			return err
		}

		outcomes := make([]LineOutcome, 0, len(req.Deliveries))
		repriced := false
		for _, d := range req.Deliveries {
			if d.ConfirmedUnitPrice != nil {
				if !s.cfg.RecalculateSubtotal {
					log.Debug("confirmed unit price ignored", zap.String("line_id", d.LineID.String()))
				} else if line := order.Line(d.LineID); line != nil {
					if err := line.ConfirmPrice(*d.ConfirmedUnitPrice); err != nil {
						return err
					}
					repriced = true
				}
			}

			outcome, err := s.apply(ctx, repos, order, d, req.Operator)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, *outcome)
		}

		if repriced {
			order.RecalculateSubtotal()
		}
		order.Rollup()
		if err := repos.Orders().SaveReceipt(ctx, order); err != nil {
			return fmt.Errorf("save receipt for %s: %w", order.OrderNumber, err)
		}

		result = &ReceiveResult{
			OrderNumber: order.OrderNumber,
			Status:      order.Status,
			Subtotal:    order.Subtotal,
			Lines:       outcomes,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, o := range result.Lines {
		s.metrics.RecordLineReceived(ctx, string(o.Effect))
		s.metrics.RecordAssetsCreated(ctx, len(o.AssetCodes))
	}
	return result, nil
}

// apply books one delivery on its line and carries out the effect the line implies
func (s *ReceiptService) apply(ctx context.Context, repos txn.Repositories, order *procurement.Order, d Delivery, operator string) (*LineOutcome, error) {
	effect, err := order.Receive(d.LineID, d.Quantity)
	if err != nil {
		return nil, err
	}
	line := order.Line(d.LineID)

	outcome := &LineOutcome{
		LineID:    line.ID,
		LineNo:    line.LineNo,
		Delivered: d.Quantity,
		Received:  line.ReceivedQuantity,
		Ordered:   line.OrderedQuantity,
		Status:    line.Status,
		Effect:    effect.Kind(),
	}

	switch e := effect.(type) {
	case procurement.StockIncrement:
		if err := repos.Stock().Increment(ctx, e.ItemCode, e.Quantity); err != nil {
			return nil, fmt.Errorf("increment stock %s: %w", e.ItemCode, err)
		}
		number, err := s.numberer.NextToday(ctx, repos.Sequences(), numbering.TypeJournal)
		if err != nil {
			return nil, err
		}
		entry, err := inventory.NewTransaction(number, inventory.TransactionTypePurchaseReceive, e.ItemCode, e.Quantity, operator)
		if err != nil {
			return nil, err
		}
		entry.WithOrder(order.OrderNumber, order.Supplier).WithUnitPrice(e.UnitPrice).WithRemarks(d.Remarks)
		if err := repos.Journal().Append(ctx, entry); err != nil {
			return nil, fmt.Errorf("journal receipt %s: %w", number, err)
		}
		outcome.JournalNumbers = []string{number}

	case procurement.AssetCreation:
		codes, err := s.createAssets(ctx, repos, e, d)
		if err != nil {
			return nil, err
		}
		if line.ReferenceCode == "" && len(codes) > 0 {
			line.ReferenceCode = codes[0]
		}
		outcome.AssetCodes = codes

	case procurement.StatusOnly:
		// the line status already moved; services leave stock and assets alone
	}
	return outcome, nil
}

// createAssets registers one DELIVERED asset per received unit
func (s *ReceiptService) createAssets(ctx context.Context, repos txn.Repositories, e procurement.AssetCreation, d Delivery) ([]string, error) {
	codes := make([]string, 0, e.Units)
	lineID := e.LineID
	for i := 0; i < e.Units; i++ {
		code, err := s.numberer.NextToday(ctx, repos.Sequences(), numbering.TypeAsset)
		if err != nil {
			return nil, err
		}
		a, err := asset.NewDelivered(code, asset.Spec{
			Name:                e.Name,
			Manufacturer:        e.Manufacturer,
			ModelNumber:         e.ModelNumber,
			Category:            e.Category,
			Supplier:            e.Supplier,
			PurchasePrice:       e.UnitPrice,
			CalibrationRequired: d.CalibrationRequired,
			SourceOrderNumber:   e.OrderNumber,
			SourceLineID:        &lineID,
			Remarks:             d.Remarks,
		})
		if err != nil {
			return nil, err
		}
		if err := repos.Assets().Create(ctx, a); err != nil {
			return nil, fmt.Errorf("create asset %s: %w", code, err)
		}
		codes = append(codes, code)
	}
	return codes, nil
}
