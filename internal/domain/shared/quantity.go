package shared

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// QuantityScale is the number of decimal places quantities are stored with
const QuantityScale = 2

// CheckQuantityScale rejects quantities finer than QuantityScale places.
// Storage would round them, and a rounded received quantity no longer agrees with its line status.
func CheckQuantityScale(field string, q decimal.Decimal) error {
	return CheckScale(field, q, QuantityScale)
}

// CheckScale rejects values with significant digits beyond places decimals.
// Trailing zeros are accepted, so 1.500 passes a two-place check.
func CheckScale(field string, d decimal.Decimal, places int32) error {
	if d.Exponent() < -places && !d.Equal(d.Round(places)) {
		return NewValidationError(field, fmt.Sprintf("must have at most %d decimal places, got %s", places, d))
	}
	return nil
}
