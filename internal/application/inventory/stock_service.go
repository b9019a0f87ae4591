package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	appnumbering "github.com/stockroom/backend/internal/application/numbering"
	"github.com/stockroom/backend/internal/application/txn"
	"github.com/stockroom/backend/internal/application/validation"
	"github.com/stockroom/backend/internal/domain/inventory"
	"github.com/stockroom/backend/internal/domain/numbering"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/logger"
	"github.com/stockroom/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Movement names used in logs and metrics
const (
	MovementReceive  = "receive"
	MovementDispatch = "dispatch"
)

// StockService maintains the stock catalog and manual stock movements
type StockService struct {
	scope    txn.Scope
	numberer *appnumbering.Numberer
	logger   *zap.Logger
	metrics  *telemetry.ProcurementMetrics
}

// NewStockService creates a new StockService
func NewStockService(scope txn.Scope, numberer *appnumbering.Numberer, log *zap.Logger) *StockService {
	if log == nil {
		log = zap.NewNop()
	}
	return &StockService{
		scope:    scope,
		numberer: numberer,
		logger:   log,
		metrics:  telemetry.NewNoopProcurementMetrics(),
	}
}

// SetMetrics sets the metrics collector
func (s *StockService) SetMetrics(m *telemetry.ProcurementMetrics) {
	if m != nil {
		s.metrics = m
	}
}

// CreateStock adds a catalog entry under a newly issued item code.
// An entry with the same model number and item name already existing is ErrAlreadyExists.
func (s *StockService) CreateStock(ctx context.Context, req CreateStockRequest) (*StockResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	key := inventory.NewNaturalKey(req.ModelNumber, req.ItemName)

	var created *inventory.StockRecord
	err := s.scope.Execute(ctx, func(repos txn.Repositories) error {
		if _, err := repos.Stock().FindByNaturalKey(ctx, key); err == nil {
			return fmt.Errorf("stock item %s: %w", key, shared.ErrAlreadyExists)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		code, err := s.numberer.NextToday(ctx, repos.Sequences(), numbering.TypeItem)
		if err != nil {
			return err
		}
		rec, err := inventory.NewStockRecord(code, key, req.Manufacturer, req.Category)
		if err != nil {
			return err
		}
		rec.Location = req.Location
		if err := repos.Stock().Create(ctx, rec); err != nil {
			return err
		}
		created = rec
		return nil
	})

	log := logger.WithTraceContext(ctx, s.logger).With(zap.String("natural_key", key.String()))
	if err != nil {
		logOutcome(log, "stock item creation", err)
		return nil, err
	}
	log.Info("stock item created", zap.String("item_code", created.ItemCode))
	return ToStockResponse(created), nil
}

// ReceiveStock adds quantity to an item outside of any order and returns the journal number
func (s *StockService) ReceiveStock(ctx context.Context, req ManualReceiveRequest) (string, error) {
	return s.move(ctx, MovementReceive, inventory.TransactionTypeManualReceive, req, inventory.StockRepository.Increment)
}

// DispatchStock takes quantity out of an item and returns the journal number.
// Stock never goes negative: a dispatch larger than the balance is ErrInsufficientStock.
func (s *StockService) DispatchStock(ctx context.Context, req DispatchRequest) (string, error) {
	return s.move(ctx, MovementDispatch, inventory.TransactionTypeManualDispatch, req, inventory.StockRepository.Decrement)
}

func (s *StockService) move(
	ctx context.Context,
	movement string,
	txType inventory.TransactionType,
	req MovementRequest,
	apply func(repo inventory.StockRepository, ctx context.Context, itemCode string, quantity decimal.Decimal) error,
) (string, error) {
	ctx = logger.WithOperator(ctx, req.Operator)
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", movement+"_stock",
		telemetry.WithAttribute(telemetry.SpanAttrItemCode, req.ItemCode),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity.String()),
	)
	defer span.End()

	log := logger.WithTraceContext(ctx, s.logger).With(
		zap.String("movement", movement),
		zap.String("item_code", req.ItemCode),
		zap.String("quantity", req.Quantity.String()),
		zap.String("operator", req.Operator),
	)

	var number string
	err := validation.Struct(req)
	if err == nil {
		err = inventory.ValidateMovement(req.Quantity)
	}
	if err == nil {
		req.ItemCode = strings.TrimSpace(req.ItemCode)
		err = s.scope.Execute(ctx, func(repos txn.Repositories) error {
			if _, err := repos.Stock().FindByCode(ctx, req.ItemCode); err != nil {
				return err
			}
			if err := apply(repos.Stock(), ctx, req.ItemCode, req.Quantity); err != nil {
				return err
			}

			n, err := s.numberer.NextToday(ctx, repos.Sequences(), numbering.TypeJournal)
			if err != nil {
				return err
			}
			entry, err := inventory.NewTransaction(n, txType, req.ItemCode, req.Quantity, req.Operator)
			if err != nil {
				return err
			}
			entry.WithRemarks(req.Remarks)
			if err := repos.Journal().Append(ctx, entry); err != nil {
				return fmt.Errorf("journal %s: %w", n, err)
			}
			number = n
			return nil
		})
	}

	s.metrics.RecordStockMovement(ctx, movement, telemetry.OutcomeOf(err))
	if err != nil {
		telemetry.RecordError(span, err)
		logOutcome(log, "stock "+movement, err)
		return "", err
	}
	log.Info("stock moved", zap.String("transaction_number", number))
	return number, nil
}

// GetStock returns a catalog entry together with its journal, oldest first
func (s *StockService) GetStock(ctx context.Context, itemCode string) (*StockDetailResponse, error) {
	itemCode = strings.TrimSpace(itemCode)
	if itemCode == "" {
		return nil, shared.NewValidationError("item_code", "is required")
	}

	var detail *StockDetailResponse
	err := s.scope.Execute(ctx, func(repos txn.Repositories) error {
		rec, err := repos.Stock().FindByCode(ctx, itemCode)
		if err != nil {
			return err
		}
		entries, err := repos.Journal().ListByItem(ctx, itemCode)
		if err != nil {
			return err
		}
		detail = &StockDetailResponse{
			StockResponse: *ToStockResponse(rec),
			Transactions:  make([]TransactionResponse, 0, len(entries)),
		}
		for _, e := range entries {
			detail.Transactions = append(detail.Transactions, ToTransactionResponse(e))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func logOutcome(log *zap.Logger, what string, err error) {
	if telemetry.OutcomeOf(err) == telemetry.OutcomeRejected {
		log.Warn(what+" rejected", zap.String("code", shared.CodeOf(err)), zap.Error(err))
		return
	}
	log.Error(what+" failed", zap.Error(err))
}
