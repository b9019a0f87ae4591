package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/inventory"
)

// StockRecordModel is the persistence model for a StockRecord.
type StockRecordModel struct {
	BaseModel
	ItemCode     string          `gorm:"type:varchar(30);not null;uniqueIndex"`
	ItemName     string          `gorm:"type:varchar(200);not null;uniqueIndex:idx_stock_natural_key,priority:2"`
	ModelNumber  string          `gorm:"type:varchar(100);not null;default:'';uniqueIndex:idx_stock_natural_key,priority:1"`
	Manufacturer string          `gorm:"type:varchar(200)"`
	Category     string          `gorm:"type:varchar(100)"`
	Location     string          `gorm:"type:varchar(100)"`
	CurrentStock decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Version      int             `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (StockRecordModel) TableName() string {
	return "stock_records"
}

// ToDomain converts the persistence model to a domain StockRecord.
func (m *StockRecordModel) ToDomain() *inventory.StockRecord {
	return &inventory.StockRecord{
		BaseEntity:   m.BaseModel.ToDomain(),
		ItemCode:     m.ItemCode,
		ItemName:     m.ItemName,
		ModelNumber:  m.ModelNumber,
		Manufacturer: m.Manufacturer,
		Category:     m.Category,
		Location:     m.Location,
		CurrentStock: m.CurrentStock,
		Version:      m.Version,
	}
}

// StockRecordModelFromDomain creates a persistence model from a domain StockRecord.
func StockRecordModelFromDomain(s *inventory.StockRecord) *StockRecordModel {
	m := &StockRecordModel{
		ItemCode:     s.ItemCode,
		ItemName:     s.ItemName,
		ModelNumber:  s.ModelNumber,
		Manufacturer: s.Manufacturer,
		Category:     s.Category,
		Location:     s.Location,
		CurrentStock: s.CurrentStock,
		Version:      s.Version,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}

// InventoryTransactionModel is an append-only journal row.
type InventoryTransactionModel struct {
	ID                uuid.UUID                 `gorm:"type:uuid;primary_key"`
	TransactionNumber string                    `gorm:"type:varchar(30);not null;uniqueIndex"`
	TransactionType   inventory.TransactionType `gorm:"type:varchar(30);not null"`
	ItemCode          string                    `gorm:"type:varchar(30);not null;index"`
	OrderNumber       string                    `gorm:"type:varchar(30);index"`
	Quantity          decimal.Decimal           `gorm:"type:decimal(18,2);not null"`
	UnitPrice         decimal.Decimal           `gorm:"type:decimal(18,2);not null;default:0"`
	Supplier          string                    `gorm:"type:varchar(200)"`
	Operator          string                    `gorm:"type:varchar(100)"`
	Remarks           string                    `gorm:"type:text"`
	OccurredAt        time.Time                 `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (InventoryTransactionModel) TableName() string {
	return "inventory_transactions"
}

// ToDomain converts the persistence model to a domain Transaction.
func (m *InventoryTransactionModel) ToDomain() *inventory.Transaction {
	return &inventory.Transaction{
		ID:                m.ID,
		TransactionNumber: m.TransactionNumber,
		Type:              m.TransactionType,
		ItemCode:          m.ItemCode,
		OrderNumber:       m.OrderNumber,
		Quantity:          m.Quantity,
		UnitPrice:         m.UnitPrice,
		Supplier:          m.Supplier,
		Operator:          m.Operator,
		Remarks:           m.Remarks,
		OccurredAt:        m.OccurredAt,
	}
}

// InventoryTransactionModelFromDomain creates a persistence model from a domain Transaction.
func InventoryTransactionModelFromDomain(t *inventory.Transaction) *InventoryTransactionModel {
	return &InventoryTransactionModel{
		ID:                t.ID,
		TransactionNumber: t.TransactionNumber,
		TransactionType:   t.Type,
		ItemCode:          t.ItemCode,
		OrderNumber:       t.OrderNumber,
		Quantity:          t.Quantity,
		UnitPrice:         t.UnitPrice,
		Supplier:          t.Supplier,
		Operator:          t.Operator,
		Remarks:           t.Remarks,
		OccurredAt:        t.OccurredAt,
	}
}
