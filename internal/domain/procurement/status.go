package procurement

import (
	"fmt"
	"strings"

	"github.com/stockroom/backend/internal/domain/shared"
)

// OrderType decides which downstream effect an ITEM receipt has
type OrderType string

const (
	OrderTypeInventory OrderType = "INVENTORY"
	OrderTypeAsset     OrderType = "ASSET"
)

// ParseOrderType accepts the canonical names case-insensitively, plus the legacy INVENT spelling.
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INVENTORY", "INVENT":
		return OrderTypeInventory, nil
	case "ASSET":
		return OrderTypeAsset, nil
	case "":
		return "", shared.NewValidationError("order_type", "is required")
	}
	return "", shared.NewValidationError("order_type", fmt.Sprintf("%q is not INVENTORY or ASSET", s))
}

// IsValid checks if the order type is known
func (t OrderType) IsValid() bool {
	return t == OrderTypeInventory || t == OrderTypeAsset
}

// OrderStatus is derived from line statuses by Rollup
type OrderStatus string

const (
	OrderStatusOpen              OrderStatus = "OPEN"
	OrderStatusPartiallyReceived OrderStatus = "PARTIALLY_RECEIVED"
	OrderStatusComplete          OrderStatus = "COMPLETE"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusOpen, OrderStatusPartiallyReceived, OrderStatusComplete:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// LineType distinguishes physical goods from services performed on assets
type LineType string

const (
	LineTypeItem    LineType = "ITEM"
	LineTypeService LineType = "SERVICE"
)

// ParseLineType is case-insensitive; empty means ITEM
func ParseLineType(s string) (LineType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ITEM":
		return LineTypeItem, nil
	case "SERVICE":
		return LineTypeService, nil
	}
	return "", shared.NewValidationError("line_type", fmt.Sprintf("%q is not ITEM or SERVICE", s))
}

// ServiceType is the kind of work a SERVICE line orders
type ServiceType string

const (
	ServiceTypeCalibration ServiceType = "CALIBRATION"
	ServiceTypeRepair      ServiceType = "REPAIR"
)

// ParseServiceType is case-insensitive
func ParseServiceType(s string) (ServiceType, error) {
	switch ServiceType(strings.ToUpper(strings.TrimSpace(s))) {
	case ServiceTypeCalibration:
		return ServiceTypeCalibration, nil
	case ServiceTypeRepair:
		return ServiceTypeRepair, nil
	}
	return "", shared.NewValidationError("service_type", fmt.Sprintf("%q is not CALIBRATION or REPAIR", s))
}

// Category is the catalog category recorded on service lines
func (t ServiceType) Category() string {
	switch t {
	case ServiceTypeCalibration:
		return "Calibration request"
	case ServiceTypeRepair:
		return "Repair request"
	}
	return ""
}

// LineStatus follows UNRECEIVED -> PARTIAL -> COMPLETE and never moves back
type LineStatus string

const (
	LineStatusUnreceived LineStatus = "UNRECEIVED"
	LineStatusPartial    LineStatus = "PARTIAL"
	LineStatusComplete   LineStatus = "COMPLETE"
)

// IsValid checks if the status is a valid LineStatus
func (s LineStatus) IsValid() bool {
	switch s {
	case LineStatusUnreceived, LineStatusPartial, LineStatusComplete:
		return true
	}
	return false
}
