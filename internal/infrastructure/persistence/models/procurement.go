package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/procurement"
)

// PurchaseOrderModel is the persistence model for the Order aggregate root.
type PurchaseOrderModel struct {
	AggregateModel
	OrderNumber string                   `gorm:"type:varchar(30);not null;uniqueIndex"`
	Supplier    string                   `gorm:"type:varchar(200);not null"`
	OrderDate   time.Time                `gorm:"type:date;not null"`
	OrderType   procurement.OrderType    `gorm:"type:varchar(20);not null"`
	ShippingFee decimal.Decimal          `gorm:"type:decimal(18,2);not null;default:0"`
	Subtotal    decimal.Decimal          `gorm:"type:decimal(18,2);not null;default:0"`
	Status      procurement.OrderStatus  `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Operator    string                   `gorm:"type:varchar(100)"`
	Remarks     string                   `gorm:"type:text"`
	Lines       []PurchaseOrderLineModel `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *PurchaseOrderModel) ToDomain() *procurement.Order {
	order := &procurement.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		Supplier:          m.Supplier,
		OrderDate:         m.OrderDate,
		OrderType:         m.OrderType,
		ShippingFee:       m.ShippingFee,
		Subtotal:          m.Subtotal,
		Status:            m.Status,
		Operator:          m.Operator,
		Remarks:           m.Remarks,
		Lines:             make([]*procurement.OrderLine, len(m.Lines)),
	}
	for i := range m.Lines {
		order.Lines[i] = m.Lines[i].ToDomain()
	}
	return order
}

// PurchaseOrderModelFromDomain creates a new persistence model from a domain Order.
func PurchaseOrderModelFromDomain(o *procurement.Order) *PurchaseOrderModel {
	m := &PurchaseOrderModel{
		OrderNumber: o.OrderNumber,
		Supplier:    o.Supplier,
		OrderDate:   o.OrderDate,
		OrderType:   o.OrderType,
		ShippingFee: o.ShippingFee,
		Subtotal:    o.Subtotal,
		Status:      o.Status,
		Operator:    o.Operator,
		Remarks:     o.Remarks,
		Lines:       make([]PurchaseOrderLineModel, len(o.Lines)),
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	for i, l := range o.Lines {
		m.Lines[i] = *PurchaseOrderLineModelFromDomain(l)
	}
	return m
}

// PurchaseOrderLineModel is the persistence model for an OrderLine.
type PurchaseOrderLineModel struct {
	ID               uuid.UUID               `gorm:"type:uuid;primary_key"`
	OrderID          uuid.UUID               `gorm:"type:uuid;not null;index"`
	LineNo           int                     `gorm:"not null"`
	LineType         procurement.LineType    `gorm:"type:varchar(10);not null"`
	ServiceType      procurement.ServiceType `gorm:"type:varchar(20)"`
	ReferenceCode    string                  `gorm:"type:varchar(30);index"`
	RelatedAssetID   *uuid.UUID              `gorm:"type:uuid"`
	LinkedLineID     *uuid.UUID              `gorm:"type:uuid"`
	ItemName         string                  `gorm:"type:varchar(200)"`
	ModelNumber      string                  `gorm:"type:varchar(100)"`
	Manufacturer     string                  `gorm:"type:varchar(200)"`
	Category         string                  `gorm:"type:varchar(100)"`
	OrderedQuantity  decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	ReceivedQuantity decimal.Decimal         `gorm:"type:decimal(18,2);not null;default:0"`
	UnitPrice        decimal.Decimal         `gorm:"type:decimal(18,2);not null;default:0"`
	Status           procurement.LineStatus  `gorm:"type:varchar(20);not null;default:'UNRECEIVED'"`
	Remarks          string                  `gorm:"type:text"`
	Version          int                     `gorm:"not null;default:1"`
	CreatedAt        time.Time               `gorm:"not null"`
	UpdatedAt        time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderLineModel) TableName() string {
	return "purchase_order_lines"
}

// ToDomain converts the persistence model to a domain OrderLine.
func (m *PurchaseOrderLineModel) ToDomain() *procurement.OrderLine {
	return &procurement.OrderLine{
		ID:               m.ID,
		OrderID:          m.OrderID,
		LineNo:           m.LineNo,
		LineType:         m.LineType,
		ServiceType:      m.ServiceType,
		ReferenceCode:    m.ReferenceCode,
		RelatedAssetID:   m.RelatedAssetID,
		LinkedLineID:     m.LinkedLineID,
		ItemName:         m.ItemName,
		ModelNumber:      m.ModelNumber,
		Manufacturer:     m.Manufacturer,
		Category:         m.Category,
		OrderedQuantity:  m.OrderedQuantity,
		ReceivedQuantity: m.ReceivedQuantity,
		UnitPrice:        m.UnitPrice,
		Status:           m.Status,
		Remarks:          m.Remarks,
		Version:          m.Version,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// PurchaseOrderLineModelFromDomain creates a persistence model from a domain OrderLine.
func PurchaseOrderLineModelFromDomain(l *procurement.OrderLine) *PurchaseOrderLineModel {
	return &PurchaseOrderLineModel{
		ID:               l.ID,
		OrderID:          l.OrderID,
		LineNo:           l.LineNo,
		LineType:         l.LineType,
		ServiceType:      l.ServiceType,
		ReferenceCode:    l.ReferenceCode,
		RelatedAssetID:   l.RelatedAssetID,
		LinkedLineID:     l.LinkedLineID,
		ItemName:         l.ItemName,
		ModelNumber:      l.ModelNumber,
		Manufacturer:     l.Manufacturer,
		Category:         l.Category,
		OrderedQuantity:  l.OrderedQuantity,
		ReceivedQuantity: l.ReceivedQuantity,
		UnitPrice:        l.UnitPrice,
		Status:           l.Status,
		Remarks:          l.Remarks,
		Version:          l.Version,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}
