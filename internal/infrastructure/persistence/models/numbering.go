package models

import (
	"time"

	"github.com/stockroom/backend/internal/domain/numbering"
)

// SequenceCounterModel is one row per (department, numbering type, fiscal period).
type SequenceCounterModel struct {
	DepartmentCode string    `gorm:"type:varchar(10);primaryKey"`
	NumberingType  string    `gorm:"type:varchar(20);primaryKey"`
	FiscalPeriod   int       `gorm:"primaryKey;autoIncrement:false"`
	CurrentValue   int64     `gorm:"not null;default:0"`
	Version        int       `gorm:"not null;default:1"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SequenceCounterModel) TableName() string {
	return "sequence_counters"
}

// ToDomain converts the persistence model to a domain Counter
func (m *SequenceCounterModel) ToDomain() *numbering.Counter {
	return &numbering.Counter{
		Key: numbering.Key{
			Department: m.DepartmentCode,
			Type:       numbering.Type(m.NumberingType),
			Period:     m.FiscalPeriod,
		},
		Value:     m.CurrentValue,
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// SequenceCounterModelFromDomain creates a persistence model from a domain Counter
func SequenceCounterModelFromDomain(c *numbering.Counter) *SequenceCounterModel {
	return &SequenceCounterModel{
		DepartmentCode: c.Department,
		NumberingType:  string(c.Type),
		FiscalPeriod:   c.Period,
		CurrentValue:   c.Value,
		Version:        c.Version,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
