package persistence

import (
	"context"
	"fmt"

	"github.com/stockroom/backend/internal/domain/inventory"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInventoryTransactionRepository implements inventory.TransactionRepository using GORM.
// Rows are only ever inserted.
type GormInventoryTransactionRepository struct {
	db *gorm.DB
}

// NewGormInventoryTransactionRepository creates a new GormInventoryTransactionRepository
func NewGormInventoryTransactionRepository(db *gorm.DB) *GormInventoryTransactionRepository {
	return &GormInventoryTransactionRepository{db: db}
}

// Append inserts a journal entry
func (r *GormInventoryTransactionRepository) Append(ctx context.Context, tx *inventory.Transaction) error {
	if err := r.db.WithContext(ctx).Create(models.InventoryTransactionModelFromDomain(tx)).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transaction %s: %w", tx.TransactionNumber, shared.ErrAlreadyExists)
		}
		if isContention(err) {
			return shared.NewConcurrencyError("transaction", tx.TransactionNumber, err)
		}
		return err
	}
	return nil
}

// ListByItem returns the journal of one item, oldest first
func (r *GormInventoryTransactionRepository) ListByItem(ctx context.Context, itemCode string) ([]inventory.Transaction, error) {
	return r.list(r.db.WithContext(ctx).Where("item_code = ?", itemCode))
}

// ListByOrder returns every entry posted against an order, oldest first
func (r *GormInventoryTransactionRepository) ListByOrder(ctx context.Context, orderNumber string) ([]inventory.Transaction, error) {
	return r.list(r.db.WithContext(ctx).Where("order_number = ?", orderNumber))
}

func (r *GormInventoryTransactionRepository) list(query *gorm.DB) ([]inventory.Transaction, error) {
	var rows []models.InventoryTransactionModel
	if err := query.Order("occurred_at ASC, transaction_number ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	txs := make([]inventory.Transaction, len(rows))
	for i := range rows {
		txs[i] = *rows[i].ToDomain()
	}
	return txs, nil
}

var _ inventory.TransactionRepository = (*GormInventoryTransactionRepository)(nil)
