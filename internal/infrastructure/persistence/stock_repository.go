package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/inventory"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStockRepository implements inventory.StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// FindByCode finds a stock record by item code
func (r *GormStockRepository) FindByCode(ctx context.Context, itemCode string) (*inventory.StockRecord, error) {
	var model models.StockRecordModel
	if err := r.db.WithContext(ctx).Where("item_code = ?", itemCode).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("stock item", itemCode)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNaturalKey finds a stock record by (model number, item name)
func (r *GormStockRepository) FindByNaturalKey(ctx context.Context, key inventory.NaturalKey) (*inventory.StockRecord, error) {
	var model models.StockRecordModel
	if err := r.db.WithContext(ctx).
		Where("model_number = ? AND item_name = ?", key.ModelNumber, key.ItemName).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("stock item", key.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new stock record. A clash on the item code or the natural key is ErrAlreadyExists.
func (r *GormStockRepository) Create(ctx context.Context, record *inventory.StockRecord) error {
	if err := r.db.WithContext(ctx).Create(models.StockRecordModelFromDomain(record)).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("stock item %s: %w", record.Key(), shared.ErrAlreadyExists)
		}
		if isContention(err) {
			return shared.NewConcurrencyError("stock item", record.ItemCode, err)
		}
		return err
	}
	return nil
}

// Increment adds quantity in a single UPDATE so concurrent receipts never lose an addition
func (r *GormStockRepository) Increment(ctx context.Context, itemCode string, quantity decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&models.StockRecordModel{}).
		Where("item_code = ?", itemCode).
		Updates(map[string]any{
			"current_stock": gorm.Expr("current_stock + ?", quantity),
			"version":       gorm.Expr("version + 1"),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		if isContention(result.Error) {
			return shared.NewConcurrencyError("stock item", itemCode, result.Error)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("stock item", itemCode)
	}
	return nil
}

// Decrement subtracts quantity only while enough stock remains
func (r *GormStockRepository) Decrement(ctx context.Context, itemCode string, quantity decimal.Decimal) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&models.StockRecordModel{}).
		Where("item_code = ? AND current_stock >= ?", itemCode, quantity).
		Updates(map[string]any{
			"current_stock": gorm.Expr("current_stock - ?", quantity),
			"version":       gorm.Expr("version + 1"),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		if isContention(result.Error) {
			return shared.NewConcurrencyError("stock item", itemCode, result.Error)
		}
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.StockRecordModel{}).Where("item_code = ?", itemCode).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.NewNotFoundError("stock item", itemCode)
	}
	return fmt.Errorf("stock item %s, requested %s: %w", itemCode, quantity, shared.ErrInsufficientStock)
}

var _ inventory.StockRepository = (*GormStockRepository)(nil)
