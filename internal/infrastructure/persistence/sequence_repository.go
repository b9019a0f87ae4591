package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/stockroom/backend/internal/domain/numbering"
	"github.com/stockroom/backend/internal/domain/shared"
	"github.com/stockroom/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSequenceRepository allocates document sequence values from sequence_counters.
// It must be built on a transaction handle; see GormTransactionScope.
type GormSequenceRepository struct {
	db *gorm.DB
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB) *GormSequenceRepository {
	return &GormSequenceRepository{db: db}
}

func counterWhere(db *gorm.DB, key numbering.Key) *gorm.DB {
	return db.Where("department_code = ? AND numbering_type = ? AND fiscal_period = ?",
		key.Department, string(key.Type), key.Period)
}

// Allocate increments the counter for key by one and returns the new value.
// The row is created at zero on first use, then locked FOR UPDATE for the rest
// of the transaction, so concurrent callers on the same key queue behind each other.
// A rollback of the caller's transaction returns the value to the pool.
func (r *GormSequenceRepository) Allocate(ctx context.Context, key numbering.Key) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	db := r.db.WithContext(ctx)

	seed := models.SequenceCounterModelFromDomain(numbering.NewCounter(key))
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return 0, r.wrap(key, "seed", err)
	}

	var m models.SequenceCounterModel
	if err := counterWhere(db.Clauses(clause.Locking{Strength: "UPDATE"}), key).First(&m).Error; err != nil {
		return 0, r.wrap(key, "lock", err)
	}

	counter := m.ToDomain()
	expected := counter.Version
	next := counter.Advance()

	result := counterWhere(db.Model(&models.SequenceCounterModel{}), key).
		Where("version = ?", expected).
		Updates(map[string]any{
			"current_value": counter.Value,
			"version":       counter.Version,
			"updated_at":    counter.UpdatedAt,
		})
	if result.Error != nil {
		return 0, r.wrap(key, "advance", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, shared.NewConcurrencyError("sequence", key.String(), errors.New("counter version moved"))
	}
	return next, nil
}

// Current returns the last value issued for key, or 0 if the key was never used
func (r *GormSequenceRepository) Current(ctx context.Context, key numbering.Key) (int64, error) {
	var m models.SequenceCounterModel
	err := counterWhere(r.db.WithContext(ctx), key).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, r.wrap(key, "read", err)
	}
	return m.CurrentValue, nil
}

func (r *GormSequenceRepository) wrap(key numbering.Key, step string, err error) error {
	if isContention(err) {
		return shared.NewConcurrencyError("sequence", key.String(), err)
	}
	return fmt.Errorf("sequence %s %s: %w", key, step, err)
}

var _ numbering.SequenceRepository = (*GormSequenceRepository)(nil)
