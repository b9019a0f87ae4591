package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/asset"
)

// AssetRecordModel is the persistence model for an Asset.
type AssetRecordModel struct {
	BaseModel
	AssetCode           string          `gorm:"type:varchar(30);not null;uniqueIndex"`
	AssetName           string          `gorm:"type:varchar(200);not null"`
	Manufacturer        string          `gorm:"type:varchar(200)"`
	ModelNumber         string          `gorm:"type:varchar(100)"`
	Category            string          `gorm:"type:varchar(100)"`
	Supplier            string          `gorm:"type:varchar(200)"`
	SerialNumber        string          `gorm:"type:varchar(100)"`
	PurchasePrice       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Status              asset.Status    `gorm:"type:varchar(20);not null"`
	Location            string          `gorm:"type:varchar(100)"`
	CalibrationRequired bool            `gorm:"not null;default:false"`
	LastCalibratedAt    *time.Time
	NextCalibrationDue  *time.Time
	SourceOrderNumber   string     `gorm:"type:varchar(30);index"`
	SourceLineID        *uuid.UUID `gorm:"type:uuid;index"`
	Remarks             string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AssetRecordModel) TableName() string {
	return "asset_records"
}

// ToDomain converts the persistence model to a domain Asset.
func (m *AssetRecordModel) ToDomain() *asset.Asset {
	return &asset.Asset{
		BaseEntity:          m.BaseModel.ToDomain(),
		AssetCode:           m.AssetCode,
		Name:                m.AssetName,
		Manufacturer:        m.Manufacturer,
		ModelNumber:         m.ModelNumber,
		Category:            m.Category,
		Supplier:            m.Supplier,
		SerialNumber:        m.SerialNumber,
		PurchasePrice:       m.PurchasePrice,
		Status:              m.Status,
		Location:            m.Location,
		CalibrationRequired: m.CalibrationRequired,
		LastCalibratedAt:    m.LastCalibratedAt,
		NextCalibrationDue:  m.NextCalibrationDue,
		SourceOrderNumber:   m.SourceOrderNumber,
		SourceLineID:        m.SourceLineID,
		Remarks:             m.Remarks,
	}
}

// AssetRecordModelFromDomain creates a persistence model from a domain Asset.
func AssetRecordModelFromDomain(a *asset.Asset) *AssetRecordModel {
	m := &AssetRecordModel{
		AssetCode:           a.AssetCode,
		AssetName:           a.Name,
		Manufacturer:        a.Manufacturer,
		ModelNumber:         a.ModelNumber,
		Category:            a.Category,
		Supplier:            a.Supplier,
		SerialNumber:        a.SerialNumber,
		PurchasePrice:       a.PurchasePrice,
		Status:              a.Status,
		Location:            a.Location,
		CalibrationRequired: a.CalibrationRequired,
		LastCalibratedAt:    a.LastCalibratedAt,
		NextCalibrationDue:  a.NextCalibrationDue,
		SourceOrderNumber:   a.SourceOrderNumber,
		SourceLineID:        a.SourceLineID,
		Remarks:             a.Remarks,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}
