package asset

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/shared"
)

// Status is the lifecycle state of a physical asset
type Status string

const (
	StatusOrdered    Status = "ORDERED"
	StatusDelivered  Status = "DELIVERED"
	StatusRegistered Status = "REGISTERED"
)

// Asset is one physical unit of tracked equipment
type Asset struct {
	shared.BaseEntity
	AssetCode           string
	Name                string
	Manufacturer        string
	ModelNumber         string
	Category            string
	Supplier            string
	SerialNumber        string
	PurchasePrice       decimal.Decimal
	Status              Status
	Location            string
	CalibrationRequired bool
	LastCalibratedAt    *time.Time
	NextCalibrationDue  *time.Time
	SourceOrderNumber   string
	SourceLineID        *uuid.UUID
	Remarks             string
}

// IsValid reports whether s is a known asset status
func (s Status) IsValid() bool {
	switch s {
	case StatusOrdered, StatusDelivered, StatusRegistered:
		return true
	}
	return false
}

// Spec carries the attributes copied onto a new asset
type Spec struct {
	Name                string
	Manufacturer        string
	ModelNumber         string
	Category            string
	Supplier            string
	SerialNumber        string
	Location            string
	PurchasePrice       decimal.Decimal
	CalibrationRequired bool
	SourceOrderNumber   string
	SourceLineID        *uuid.UUID
	Remarks             string
}

// NewDelivered creates an asset for a unit that just arrived
func NewDelivered(assetCode string, spec Spec) (*Asset, error) {
	if strings.TrimSpace(assetCode) == "" {
		return nil, shared.NewValidationError("asset_code", "is required")
	}
	if strings.TrimSpace(spec.Name) == "" {
		return nil, shared.NewValidationError("asset_name", "is required")
	}
	if spec.PurchasePrice.IsNegative() {
		return nil, shared.NewValidationError("purchase_price", "cannot be negative")
	}
	if err := shared.CheckScale("purchase_price", spec.PurchasePrice, 2); err != nil {
		return nil, err
	}
	return &Asset{
		BaseEntity:          shared.NewBaseEntity(),
		AssetCode:           assetCode,
		Name:                spec.Name,
		Manufacturer:        spec.Manufacturer,
		ModelNumber:         spec.ModelNumber,
		Category:            spec.Category,
		Supplier:            spec.Supplier,
		SerialNumber:        spec.SerialNumber,
		Location:            spec.Location,
		PurchasePrice:       spec.PurchasePrice,
		Status:              StatusDelivered,
		CalibrationRequired: spec.CalibrationRequired,
		SourceOrderNumber:   spec.SourceOrderNumber,
		SourceLineID:        spec.SourceLineID,
		Remarks:             spec.Remarks,
	}, nil
}

// Calibration is the calibration schedule of an asset
type Calibration struct {
	Required    bool
	LastDate    *time.Time
	NextDueDate *time.Time
}

// Validate requires both dates, next strictly after last, when calibration is required.
// Optional dates that are both given must still be in order.
func (c Calibration) Validate() error {
	if c.Required {
		if c.LastDate == nil {
			return shared.NewValidationError("last_calibration_date", "is required when calibration is required")
		}
		if c.NextDueDate == nil {
			return shared.NewValidationError("next_calibration_date", "is required when calibration is required")
		}
	}
	if c.LastDate != nil && c.NextDueDate != nil && !c.NextDueDate.After(*c.LastDate) {
		return shared.NewValidationError("next_calibration_date", "must be after last_calibration_date")
	}
	return nil
}

// NewRegistered creates an asset entered by hand into the register
func NewRegistered(assetCode string, spec Spec, cal Calibration) (*Asset, error) {
	if strings.TrimSpace(spec.Category) == "" {
		return nil, shared.NewValidationError("category", "is required")
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	a, err := NewDelivered(assetCode, spec)
	if err != nil {
		return nil, err
	}
	a.Status = StatusRegistered
	a.applyCalibration(cal)
	return a, nil
}

// Calibration returns the current calibration schedule
func (a *Asset) Calibration() Calibration {
	return Calibration{Required: a.CalibrationRequired, LastDate: a.LastCalibratedAt, NextDueDate: a.NextCalibrationDue}
}

func (a *Asset) applyCalibration(c Calibration) {
	a.CalibrationRequired = c.Required
	a.LastCalibratedAt = c.LastDate
	a.NextCalibrationDue = c.NextDueDate
}

// Amendment lists the register fields to change; nil fields are left as they are
type Amendment struct {
	SerialNumber *string
	Location     *string
	Remarks      *string
	Status       *Status
	Calibration  *Calibration
}

// Amend applies m atomically: on error the asset is unchanged
func (a *Asset) Amend(m Amendment) error {
	if m.Status != nil && !m.Status.IsValid() {
		return shared.NewValidationError("status", "unknown asset status "+string(*m.Status))
	}
	if m.Calibration != nil {
		if err := m.Calibration.Validate(); err != nil {
			return err
		}
	}

	if m.SerialNumber != nil {
		a.SerialNumber = *m.SerialNumber
	}
	if m.Location != nil {
		a.Location = *m.Location
	}
	if m.Remarks != nil {
		a.Remarks = *m.Remarks
	}
	if m.Status != nil {
		a.Status = *m.Status
	}
	if m.Calibration != nil {
		a.applyCalibration(*m.Calibration)
	}
	a.Touch()
	return nil
}

// Repository persists assets
type Repository interface {
	Create(ctx context.Context, a *Asset) error
	// Update writes the register fields an Amendment can change
	Update(ctx context.Context, a *Asset) error
	FindByID(ctx context.Context, id uuid.UUID) (*Asset, error)
	FindByCode(ctx context.Context, assetCode string) (*Asset, error)
	ListBySourceLine(ctx context.Context, lineID uuid.UUID) ([]Asset, error)
}
