package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stockroom/backend/internal/domain/asset"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAssetRepository implements asset.Repository using GORM
type GormAssetRepository struct {
	db *gorm.DB
}

// NewGormAssetRepository creates a new GormAssetRepository
func NewGormAssetRepository(db *gorm.DB) *GormAssetRepository {
	return &GormAssetRepository{db: db}
}

// Create inserts an asset
func (r *GormAssetRepository) Create(ctx context.Context, a *asset.Asset) error {
	if err := r.db.WithContext(ctx).Create(models.AssetRecordModelFromDomain(a)).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("asset %s: %w", a.AssetCode, shared.ErrAlreadyExists)
		}
		if isContention(err) {
			return shared.NewConcurrencyError("asset", a.AssetCode, err)
		}
		return err
	}
	return nil
}

// Update writes the register fields of a; identity, purchase and source columns are never rewritten
func (r *GormAssetRepository) Update(ctx context.Context, a *asset.Asset) error {
	result := r.db.WithContext(ctx).Model(&models.AssetRecordModel{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"serial_number":        a.SerialNumber,
			"location":             a.Location,
			"remarks":              a.Remarks,
			"status":               a.Status,
			"calibration_required": a.CalibrationRequired,
			"last_calibrated_at":   a.LastCalibratedAt,
			"next_calibration_due": a.NextCalibrationDue,
			"updated_at":           time.Now(),
		})
	if result.Error != nil {
		if isContention(result.Error) {
			return shared.NewConcurrencyError("asset", a.AssetCode, result.Error)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("asset", a.AssetCode)
	}
	return nil
}

// FindByID finds an asset by its ID
func (r *GormAssetRepository) FindByID(ctx context.Context, id uuid.UUID) (*asset.Asset, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id), id.String())
}

// FindByCode finds an asset by its asset code
func (r *GormAssetRepository) FindByCode(ctx context.Context, assetCode string) (*asset.Asset, error) {
	return r.first(r.db.WithContext(ctx).Where("asset_code = ?", assetCode), assetCode)
}

// ListBySourceLine returns the assets created from one order line, in code order
func (r *GormAssetRepository) ListBySourceLine(ctx context.Context, lineID uuid.UUID) ([]asset.Asset, error) {
	var rows []models.AssetRecordModel
	if err := r.db.WithContext(ctx).
		Where("source_line_id = ?", lineID).
		Order("asset_code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	assets := make([]asset.Asset, len(rows))
	for i := range rows {
		assets[i] = *rows[i].ToDomain()
	}
	return assets, nil
}

func (r *GormAssetRepository) first(query *gorm.DB, key string) (*asset.Asset, error) {
	var model models.AssetRecordModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("asset", key)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var _ asset.Repository = (*GormAssetRepository)(nil)
