package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stockroom/backend/internal/domain/procurement"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements procurement.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create inserts the header and all lines in one statement batch
func (r *GormOrderRepository) Create(ctx context.Context, order *procurement.Order) error {
	model := models.PurchaseOrderModelFromDomain(order)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order %s: %w", order.OrderNumber, shared.ErrAlreadyExists)
		}
		if isContention(err) {
			return shared.NewConcurrencyError("order", order.OrderNumber, err)
		}
		return err
	}
	return nil
}

// FindByNumber loads an order with its lines in line order
func (r *GormOrderRepository) FindByNumber(ctx context.Context, orderNumber string) (*procurement.Order, error) {
	var model models.PurchaseOrderModel
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Where("order_number = ?", orderNumber).
		First(&model).Error
	if err != nil {
		return nil, r.notFound(orderNumber, err)
	}
	return model.ToDomain(), nil
}

// FindByNumberForUpdate locks the header row, then the line rows, for the rest of the transaction.
// Locks are always taken header first so two receipts on one order cannot deadlock.
func (r *GormOrderRepository) FindByNumberForUpdate(ctx context.Context, orderNumber string) (*procurement.Order, error) {
	db := r.db.WithContext(ctx)

	var model models.PurchaseOrderModel
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_number = ?", orderNumber).
		First(&model).Error
	if err != nil {
		return nil, r.notFound(orderNumber, err)
	}

	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", model.ID).
		Order("line_no ASC").
		Find(&model.Lines).Error; err != nil {
		if isContention(err) {
			return nil, shared.NewConcurrencyError("order", orderNumber, err)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SaveReceipt writes the columns a receipt may change of the header and every line.
// Each row is guarded by its version; a stale row aborts with a ConcurrencyError.
// On success the in-memory versions are advanced to match the database.
func (r *GormOrderRepository) SaveReceipt(ctx context.Context, order *procurement.Order) error {
	db := r.db.WithContext(ctx)
	now := time.Now()

	result := db.Model(&models.PurchaseOrderModel{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]any{
			"status":     order.Status,
			"subtotal":   order.Subtotal,
			"version":    order.Version + 1,
			"updated_at": now,
		})
	if err := r.checkUpdate(result, order.OrderNumber); err != nil {
		return err
	}

	for _, line := range order.Lines {
		result := db.Model(&models.PurchaseOrderLineModel{}).
			Where("id = ? AND version = ?", line.ID, line.Version).
			Updates(map[string]any{
				"received_quantity": line.ReceivedQuantity,
				"reference_code":    line.ReferenceCode,
				"unit_price":        line.UnitPrice,
				"status":            line.Status,
				"version":           line.Version + 1,
				"updated_at":        now,
			})
		if err := r.checkUpdate(result, fmt.Sprintf("%s#%d", order.OrderNumber, line.LineNo)); err != nil {
			return err
		}
	}

	order.IncrementVersion()
	order.UpdatedAt = now
	for _, line := range order.Lines {
		line.Version++
		line.UpdatedAt = now
	}
	return nil
}

func (r *GormOrderRepository) checkUpdate(result *gorm.DB, key string) error {
	if result.Error != nil {
		if isContention(result.Error) {
			return shared.NewConcurrencyError("order", key, result.Error)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewConcurrencyError("order", key, errors.New("version changed since load"))
	}
	return nil
}

func (r *GormOrderRepository) notFound(orderNumber string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError("order", orderNumber)
	}
	if isContention(err) {
		return shared.NewConcurrencyError("order", orderNumber, err)
	}
	return err
}

var _ procurement.OrderRepository = (*GormOrderRepository)(nil)
