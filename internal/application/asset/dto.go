package asset

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/asset"
)

// DateLayout is the wire format of calibration dates
const DateLayout = "2006-01-02"

// RegisterAssetRequest enters an asset into the register by hand
type RegisterAssetRequest struct {
	AssetName           string          `json:"asset_name" validate:"required,max=200"`
	Category            string          `json:"category" validate:"required,max=100"`
	Supplier            string          `json:"supplier" validate:"required,max=200"`
	SerialNumber        string          `json:"serial_number" validate:"max=100"`
	Manufacturer        string          `json:"manufacturer" validate:"max=200"`
	ModelNumber         string          `json:"model_number" validate:"max=100"`
	PurchasePrice       decimal.Decimal `json:"purchase_price" validate:"gte=0"`
	Location            string          `json:"location" validate:"max=100"`
	Remarks             string          `json:"remarks" validate:"max=1000"`
	CalibrationRequired bool            `json:"calibration_required"`
	LastCalibrationDate string          `json:"last_calibration_date" validate:"omitempty,datetime=2006-01-02"`
	NextCalibrationDate string          `json:"next_calibration_date" validate:"omitempty,datetime=2006-01-02"`
	Operator            string          `json:"operator" validate:"required,max=100"`
}

// UpdateAssetRequest changes the register fields of an asset.
// Nil fields keep their value; an empty calibration date clears it.
type UpdateAssetRequest struct {
	AssetCode           string  `json:"asset_code" validate:"required,max=30"`
	SerialNumber        *string `json:"serial_number,omitempty" validate:"omitempty,max=100"`
	Location            *string `json:"location,omitempty" validate:"omitempty,max=100"`
	Remarks             *string `json:"remarks,omitempty" validate:"omitempty,max=1000"`
	Status              *string `json:"status,omitempty" validate:"omitempty,oneof=ORDERED DELIVERED REGISTERED"`
	CalibrationRequired *bool   `json:"calibration_required,omitempty"`
	LastCalibrationDate *string `json:"last_calibration_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	NextCalibrationDate *string `json:"next_calibration_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Operator            string  `json:"operator" validate:"required,max=100"`
}

func (r UpdateAssetRequest) touchesCalibration() bool {
	return r.CalibrationRequired != nil || r.LastCalibrationDate != nil || r.NextCalibrationDate != nil
}

// AssetResponse represents one register entry
type AssetResponse struct {
	AssetCode           string          `json:"asset_code"`
	AssetName           string          `json:"asset_name"`
	Category            string          `json:"category,omitempty"`
	Supplier            string          `json:"supplier,omitempty"`
	Manufacturer        string          `json:"manufacturer,omitempty"`
	ModelNumber         string          `json:"model_number,omitempty"`
	SerialNumber        string          `json:"serial_number,omitempty"`
	PurchasePrice       decimal.Decimal `json:"purchase_price"`
	Status              asset.Status    `json:"status"`
	Location            string          `json:"location,omitempty"`
	CalibrationRequired bool            `json:"calibration_required"`
	LastCalibrationDate string          `json:"last_calibration_date,omitempty"`
	NextCalibrationDate string          `json:"next_calibration_date,omitempty"`
	SourceOrderNumber   string          `json:"source_order_number,omitempty"`
	Remarks             string          `json:"remarks,omitempty"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ToAssetResponse converts a domain Asset to AssetResponse
func ToAssetResponse(a *asset.Asset) *AssetResponse {
	return &AssetResponse{
		AssetCode:           a.AssetCode,
		AssetName:           a.Name,
		Category:            a.Category,
		Supplier:            a.Supplier,
		Manufacturer:        a.Manufacturer,
		ModelNumber:         a.ModelNumber,
		SerialNumber:        a.SerialNumber,
		PurchasePrice:       a.PurchasePrice,
		Status:              a.Status,
		Location:            a.Location,
		CalibrationRequired: a.CalibrationRequired,
		LastCalibrationDate: formatDate(a.LastCalibratedAt),
		NextCalibrationDate: formatDate(a.NextCalibrationDue),
		SourceOrderNumber:   a.SourceOrderNumber,
		Remarks:             a.Remarks,
		UpdatedAt:           a.UpdatedAt,
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
