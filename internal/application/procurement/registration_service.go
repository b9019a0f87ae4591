package procurement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appnumbering "github.com/stockroom/backend/internal/application/numbering"
	"github.com/stockroom/backend/internal/application/txn"
	"github.com/stockroom/backend/internal/application/validation"
	"github.com/stockroom/backend/internal/domain/asset"
	"github.com/stockroom/backend/internal/domain/inventory"
	"github.com/stockroom/backend/internal/domain/numbering"
	"github.com/stockroom/backend/internal/domain/procurement"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/logger"
	"github.com/stockroom/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RegistrationService registers purchase orders
type RegistrationService struct {
	scope    txn.Scope
	numberer *appnumbering.Numberer
	logger   *zap.Logger
	metrics  *telemetry.ProcurementMetrics
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(scope txn.Scope, numberer *appnumbering.Numberer, log *zap.Logger) *RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{
		scope:    scope,
		numberer: numberer,
		logger:   log,
		metrics:  telemetry.NewNoopProcurementMetrics(),
	}
}

// SetMetrics sets the procurement metrics collector
func (s *RegistrationService) SetMetrics(m *telemetry.ProcurementMetrics) {
	if m != nil {
		s.metrics = m
	}
}

// RegisterOrder validates req, allocates an order number and persists the
// order with its lines. Stock records, journal entries and numbers are
// written in the same transaction, so a rejected order leaves nothing behind.
func (s *RegistrationService) RegisterOrder(ctx context.Context, req RegisterOrderRequest) (string, error) {
	ctx = logger.WithOperator(ctx, req.Operator)
	ctx, span := telemetry.StartServiceSpan(ctx, "procurement", "register_order")
	defer span.End()

	log := logger.WithTraceContext(ctx, s.logger).With(
		zap.String("order_type", req.OrderType),
		zap.String("supplier", req.Supplier),
		zap.String("operator", req.Operator),
	)

	orderType, orderDate, err := s.check(req)
	if err != nil {
		s.finish(ctx, span, log, req.OrderType, err)
		return "", err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderType, string(orderType))

	var orderNumber string
	err = s.scope.Execute(ctx, func(repos txn.Repositories) error {
		number, err := s.numberer.Next(ctx, repos.Sequences(), numbering.TypeOrder, orderDate)
		if err != nil {
			return err
		}

		order, err := procurement.NewOrder(number, strings.TrimSpace(req.Supplier), orderType, orderDate, req.Operator)
		if err != nil {
			return err
		}
		order.Remarks = req.Remarks
		if err := order.SetShippingFee(req.ShippingFee); err != nil {
			return err
		}

		for _, line := range req.Lines {
			if err := s.addLine(ctx, repos, order, line); err != nil {
				return err
			}
		}

		if err := repos.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order %s: %w", number, err)
		}
		if order.OrderType == procurement.OrderTypeInventory {
			if err := s.journalRegistration(ctx, repos, order); err != nil {
				return err
			}
		}
		orderNumber = number
		return nil
	})
	if err != nil {
		s.finish(ctx, span, log, string(orderType), err)
		return "", err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrOrderNumber, orderNumber)
	s.finish(ctx, span, log.With(zap.String("order_number", orderNumber)), string(orderType), nil)
	return orderNumber, nil
}

// check runs every validation that needs no database access
func (s *RegistrationService) check(req RegisterOrderRequest) (procurement.OrderType, time.Time, error) {
	if err := validation.Struct(req); err != nil {
		return "", time.Time{}, err
	}

	orderType, err := procurement.ParseOrderType(req.OrderType)
	if err != nil {
		return "", time.Time{}, err
	}

	orderDate := s.numberer.Today()
	if req.OrderDate != "" {
		orderDate, err = time.ParseInLocation(DateLayout, req.OrderDate, orderDate.Location())
		if err != nil {
			return "", time.Time{}, shared.NewValidationError("order_date", "must be a date formatted as "+DateLayout)
		}
	}

	for i, line := range req.Lines {
		field := func(name string) string { return fmt.Sprintf("lines[%d].%s", i, name) }

		lineType, err := procurement.ParseLineType(line.LineType)
		if err != nil {
			return "", time.Time{}, shared.NewValidationError(field("line_type"), "must be ITEM or SERVICE")
		}

		if orderType == procurement.OrderTypeInventory {
			if lineType == procurement.LineTypeService || len(line.Services) > 0 {
				return "", time.Time{}, shared.NewValidationError(field("line_type"), "inventory orders cannot contain services")
			}
		}

		switch lineType {
		case procurement.LineTypeItem:
			if strings.TrimSpace(line.ItemName) == "" && strings.TrimSpace(line.ItemCode) == "" {
				return "", time.Time{}, shared.NewValidationError(field("item_name"), "is required")
			}
			for j, svc := range line.Services {
				if _, err := procurement.ParseServiceType(svc.ServiceType); err != nil {
					return "", time.Time{}, shared.NewValidationError(
						fmt.Sprintf("lines[%d].services[%d].service_type", i, j), "must be CALIBRATION or REPAIR")
				}
			}
		case procurement.LineTypeService:
			if _, err := procurement.ParseServiceType(line.ServiceType); err != nil {
				return "", time.Time{}, shared.NewValidationError(field("service_type"), "must be CALIBRATION or REPAIR")
			}
			if line.RelatedAssetID == nil && strings.TrimSpace(line.RelatedAssetCode) == "" {
				return "", time.Time{}, shared.NewValidationError(field("related_asset_id"), "a service must target an existing asset")
			}
			if len(line.Services) > 0 {
				return "", time.Time{}, shared.NewValidationError(field("services"), "only ITEM lines can carry services")
			}
		}
	}
	return orderType, orderDate, nil
}

func (s *RegistrationService) addLine(ctx context.Context, repos txn.Repositories, order *procurement.Order, line RegisterOrderLine) error {
	lineType, _ := procurement.ParseLineType(line.LineType)

	if lineType == procurement.LineTypeService {
		return s.addStandaloneService(ctx, repos, order, line)
	}

	spec := procurement.LineSpec{
		LineType:     procurement.LineTypeItem,
		ItemName:     strings.TrimSpace(line.ItemName),
		ModelNumber:  strings.TrimSpace(line.ModelNumber),
		Manufacturer: line.Manufacturer,
		Category:     line.Category,
		Quantity:     line.Quantity,
		UnitPrice:    line.UnitPrice,
		Remarks:      line.Remarks,
	}
	if order.OrderType == procurement.OrderTypeInventory {
		stock, err := s.resolveStock(ctx, repos, order.OrderDate, line)
		if err != nil {
			return err
		}
		spec.ReferenceCode = stock.ItemCode
		spec.ItemName = stock.ItemName
		spec.ModelNumber = stock.ModelNumber
		if spec.Manufacturer == "" {
			spec.Manufacturer = stock.Manufacturer
		}
		if spec.Category == "" {
			spec.Category = stock.Category
		}
	}

	parent, err := order.AddLine(spec)
	if err != nil {
		return err
	}

	for _, svc := range line.Services {
		serviceType, _ := procurement.ParseServiceType(svc.ServiceType)
		name := strings.TrimSpace(svc.ItemName)
		if name == "" {
			name = parent.ItemName
		}
		parentID := parent.ID
		if _, err := order.AddLine(procurement.LineSpec{
			LineType:     procurement.LineTypeService,
			ServiceType:  serviceType,
			LinkedLineID: &parentID,
			ItemName:     name,
			ModelNumber:  parent.ModelNumber,
			Manufacturer: parent.Manufacturer,
			Quantity:     svc.Quantity,
			UnitPrice:    svc.UnitPrice,
			Remarks:      svc.Remarks,
		}); err != nil {
			return err
		}
	}
	return nil
}

// addStandaloneService adds a service on equipment the organisation already owns
func (s *RegistrationService) addStandaloneService(ctx context.Context, repos txn.Repositories, order *procurement.Order, line RegisterOrderLine) error {
	target, err := s.resolveAsset(ctx, repos, line)
	if err != nil {
		return err
	}
	serviceType, _ := procurement.ParseServiceType(line.ServiceType)

	name := strings.TrimSpace(line.ItemName)
	if name == "" {
		name = target.Name
	}
	targetID := target.ID
	_, err = order.AddLine(procurement.LineSpec{
		LineType:       procurement.LineTypeService,
		ServiceType:    serviceType,
		ReferenceCode:  target.AssetCode,
		RelatedAssetID: &targetID,
		ItemName:       name,
		ModelNumber:    target.ModelNumber,
		Manufacturer:   target.Manufacturer,
		Quantity:       line.Quantity,
		UnitPrice:      line.UnitPrice,
		Remarks:        line.Remarks,
	})
	return err
}

func (s *RegistrationService) resolveAsset(ctx context.Context, repos txn.Repositories, line RegisterOrderLine) (*asset.Asset, error) {
	if line.RelatedAssetID != nil {
		return repos.Assets().FindByID(ctx, *line.RelatedAssetID)
	}
	return repos.Assets().FindByCode(ctx, strings.TrimSpace(line.RelatedAssetCode))
}

// resolveStock finds the catalog entry an inventory line orders, creating it when
// neither the code nor the natural key is known yet.
func (s *RegistrationService) resolveStock(ctx context.Context, repos txn.Repositories, date time.Time, line RegisterOrderLine) (*inventory.StockRecord, error) {
	if code := strings.TrimSpace(line.ItemCode); code != "" {
		return repos.Stock().FindByCode(ctx, code)
	}

	key := inventory.NewNaturalKey(line.ModelNumber, line.ItemName)
	rec, err := repos.Stock().FindByNaturalKey(ctx, key)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("lookup stock %s: %w", key, err)
	}

	code, err := s.numberer.Next(ctx, repos.Sequences(), numbering.TypeItem, date)
	if err != nil {
		return nil, err
	}
	rec, err = inventory.NewStockRecord(code, key, line.Manufacturer, line.Category)
	if err != nil {
		return nil, err
	}
	if err := repos.Stock().Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create stock %s: %w", code, err)
	}
	logger.WithTraceContext(ctx, s.logger).Info("stock item created on registration",
		zap.String("item_code", code),
		zap.String("natural_key", key.String()),
	)
	return rec, nil
}

// journalRegistration writes one ORDER_REGISTERED entry per inventory line; stock is unchanged
func (s *RegistrationService) journalRegistration(ctx context.Context, repos txn.Repositories, order *procurement.Order) error {
	for _, line := range order.Lines {
		number, err := s.numberer.NextToday(ctx, repos.Sequences(), numbering.TypeJournal)
		if err != nil {
			return err
		}
		entry, err := inventory.NewTransaction(number, inventory.TransactionTypeOrderRegistered,
			line.ReferenceCode, line.OrderedQuantity, order.Operator)
		if err != nil {
			return err
		}
		entry.WithOrder(order.OrderNumber, order.Supplier).WithUnitPrice(line.UnitPrice).WithRemarks(line.Remarks)
		if err := repos.Journal().Append(ctx, entry); err != nil {
			return fmt.Errorf("journal order %s line %d: %w", order.OrderNumber, line.LineNo, err)
		}
	}
	return nil
}

func (s *RegistrationService) finish(ctx context.Context, span trace.Span, log *zap.Logger, orderType string, err error) {
	outcome := telemetry.OutcomeOf(err)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	s.metrics.RecordOrderRegistered(ctx, orderType, outcome)
	switch outcome {
	case telemetry.OutcomeSuccess:
		log.Info("order registered")
	case telemetry.OutcomeRejected:
		log.Warn("order registration rejected", zap.String("code", shared.CodeOf(err)), zap.Error(err))
	default:
		log.Error("order registration failed", zap.Error(err))
	}
}
