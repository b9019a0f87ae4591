package asset

import (
	"context"
	"strings"
	"time"

	appnumbering "github.com/stockroom/backend/internal/application/numbering"
	"github.com/stockroom/backend/internal/application/txn"
	"github.com/stockroom/backend/internal/application/validation"
	"github.com/stockroom/backend/internal/domain/asset"
	"github.com/stockroom/backend/internal/domain/numbering"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/logger"
	"github.com/stockroom/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AssetService maintains the asset register outside of purchase receipts
type AssetService struct {
	scope    txn.Scope
	numberer *appnumbering.Numberer
	logger   *zap.Logger
	metrics  *telemetry.ProcurementMetrics
}

// NewAssetService creates a new AssetService
func NewAssetService(scope txn.Scope, numberer *appnumbering.Numberer, log *zap.Logger) *AssetService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AssetService{
		scope:    scope,
		numberer: numberer,
		logger:   log,
		metrics:  telemetry.NewNoopProcurementMetrics(),
	}
}

// SetMetrics sets the metrics collector
func (s *AssetService) SetMetrics(m *telemetry.ProcurementMetrics) {
	if m != nil {
		s.metrics = m
	}
}

// RegisterAsset enters an existing piece of equipment under a newly issued asset code.
// The asset starts REGISTERED and has no source order.
func (s *AssetService) RegisterAsset(ctx context.Context, req RegisterAssetRequest) (*AssetResponse, error) {
	ctx = logger.WithOperator(ctx, req.Operator)
	ctx, span := telemetry.StartServiceSpan(ctx, "asset", "register_asset")
	defer span.End()

	log := logger.WithTraceContext(ctx, s.logger).With(
		zap.String("asset_name", req.AssetName),
		zap.String("operator", req.Operator),
	)

	var created *asset.Asset
	cal, err := s.registerCalibration(req)
	if err == nil {
		err = s.scope.Execute(ctx, func(repos txn.Repositories) error {
			code, err := s.numberer.NextToday(ctx, repos.Sequences(), numbering.TypeAsset)
			if err != nil {
				return err
			}
			a, err := asset.NewRegistered(code, asset.Spec{
				Name:                strings.TrimSpace(req.AssetName),
				Manufacturer:        req.Manufacturer,
				ModelNumber:         req.ModelNumber,
				Category:            strings.TrimSpace(req.Category),
				Supplier:            strings.TrimSpace(req.Supplier),
				SerialNumber:        req.SerialNumber,
				Location:            req.Location,
				PurchasePrice:       req.PurchasePrice,
				CalibrationRequired: cal.Required,
				Remarks:             req.Remarks,
			}, cal)
			if err != nil {
				return err
			}
			if err := repos.Assets().Create(ctx, a); err != nil {
				return err
			}
			created = a
			return nil
		})
	}

	if err != nil {
		telemetry.RecordError(span, err)
		logOutcome(log, "asset registration", err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrAssetCode, created.AssetCode)
	s.metrics.RecordAssetsCreated(ctx, 1)
	log.Info("asset registered", zap.String("asset_code", created.AssetCode))
	return ToAssetResponse(created), nil
}

func (s *AssetService) registerCalibration(req RegisterAssetRequest) (asset.Calibration, error) {
	if err := validation.Struct(req); err != nil {
		return asset.Calibration{}, err
	}
	cal := asset.Calibration{Required: req.CalibrationRequired}
	var err error
	if cal.LastDate, err = s.parseDate("last_calibration_date", req.LastCalibrationDate); err != nil {
		return asset.Calibration{}, err
	}
	if cal.NextDueDate, err = s.parseDate("next_calibration_date", req.NextCalibrationDate); err != nil {
		return asset.Calibration{}, err
	}
	return cal, cal.Validate()
}

// UpdateAsset changes the serial number, location, remarks, status and
// calibration schedule of an asset. Calibration fields not given keep their
// stored value, and the resulting schedule must be consistent as a whole.
func (s *AssetService) UpdateAsset(ctx context.Context, req UpdateAssetRequest) (*AssetResponse, error) {
	ctx = logger.WithOperator(ctx, req.Operator)
	ctx, span := telemetry.StartServiceSpan(ctx, "asset", "update_asset",
		telemetry.WithAttribute(telemetry.SpanAttrAssetCode, req.AssetCode),
	)
	defer span.End()

	log := logger.WithTraceContext(ctx, s.logger).With(
		zap.String("asset_code", req.AssetCode),
		zap.String("operator", req.Operator),
	)

	var updated *asset.Asset
	err := validation.Struct(req)
	if err == nil {
		err = s.scope.Execute(ctx, func(repos txn.Repositories) error {
			a, err := repos.Assets().FindByCode(ctx, strings.TrimSpace(req.AssetCode))
			if err != nil {
				return err
			}
			amendment, err := s.amendment(req, a.Calibration())
			if err != nil {
				return err
			}
			if err := a.Amend(amendment); err != nil {
				return err
			}
			if err := repos.Assets().Update(ctx, a); err != nil {
				return err
			}
			updated = a
			return nil
		})
	}

	if err != nil {
		telemetry.RecordError(span, err)
		logOutcome(log, "asset update", err)
		return nil, err
	}
	log.Info("asset updated", zap.String("status", string(updated.Status)))
	return ToAssetResponse(updated), nil
}

func (s *AssetService) amendment(req UpdateAssetRequest, current asset.Calibration) (asset.Amendment, error) {
	m := asset.Amendment{
		SerialNumber: req.SerialNumber,
		Location:     req.Location,
		Remarks:      req.Remarks,
	}
	if req.Status != nil {
		status := asset.Status(*req.Status)
		m.Status = &status
	}
	if !req.touchesCalibration() {
		return m, nil
	}

	cal := current
	if req.CalibrationRequired != nil {
		cal.Required = *req.CalibrationRequired
	}
	var err error
	if req.LastCalibrationDate != nil {
		if cal.LastDate, err = s.parseDate("last_calibration_date", *req.LastCalibrationDate); err != nil {
			return m, err
		}
	}
	if req.NextCalibrationDate != nil {
		if cal.NextDueDate, err = s.parseDate("next_calibration_date", *req.NextCalibrationDate); err != nil {
			return m, err
		}
	}
	m.Calibration = &cal
	return m, nil
}

// parseDate reads an optional calendar date in the numbering time zone
func (s *AssetService) parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(DateLayout, value, s.numberer.Today().Location())
	if err != nil {
		return nil, shared.NewValidationError(field, "must be a date formatted as "+DateLayout)
	}
	return &d, nil
}

func logOutcome(log *zap.Logger, what string, err error) {
	if telemetry.OutcomeOf(err) == telemetry.OutcomeRejected {
		log.Warn(what+" rejected", zap.String("code", shared.CodeOf(err)), zap.Error(err))
		return
	}
	log.Error(what+" failed", zap.Error(err))
}
