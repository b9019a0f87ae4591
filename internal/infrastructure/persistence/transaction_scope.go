package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/stockroom/backend/internal/application/txn"
	"github.com/stockroom/backend/internal/domain/asset"
	"github.com/stockroom/backend/internal/domain/inventory"
	"github.com/stockroom/backend/internal/domain/numbering"
	"github.com/stockroom/backend/internal/domain/procurement"
	"gorm.io/gorm"
)

// GormTransactionScope implements txn.Scope using GORM transactions.
type GormTransactionScope struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormTransactionScope creates a new GormTransactionScope.
// A positive lockTimeout bounds every row-lock wait inside the transaction
// on PostgreSQL; other dialects ignore it.
func NewGormTransactionScope(db *gorm.DB, lockTimeout time.Duration) *GormTransactionScope {
	return &GormTransactionScope{db: db, lockTimeout: lockTimeout}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos txn.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			// SET does not take bind parameters
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("set lock_timeout: %w", err)
			}
		}
		return fn(&gormRepositories{tx: tx})
	})
}

// gormRepositories hands out repositories bound to one transaction.
type gormRepositories struct {
	tx *gorm.DB
}

func (r *gormRepositories) Orders() procurement.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormRepositories) Stock() inventory.StockRepository {
	return NewGormStockRepository(r.tx)
}

func (r *gormRepositories) Journal() inventory.TransactionRepository {
	return NewGormInventoryTransactionRepository(r.tx)
}

func (r *gormRepositories) Assets() asset.Repository {
	return NewGormAssetRepository(r.tx)
}

func (r *gormRepositories) Sequences() numbering.SequenceRepository {
	return NewGormSequenceRepository(r.tx)
}

var (
	_ txn.Scope        = (*GormTransactionScope)(nil)
	_ txn.Repositories = (*gormRepositories)(nil)
)
