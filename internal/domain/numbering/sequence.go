package numbering

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stockroom/backend/internal/domain/shared"
)

// Type identifies an independent numbering stream
type Type string

const (
	TypeOrder   Type = "ORDER" // purchase order numbers
	TypeItem    Type = "ITEM"  // stock item codes
	TypeAsset   Type = "ASSET" // asset codes
	TypeJournal Type = "TX"    // inventory transaction numbers
)

// IsValid checks if the type is a known numbering type
func (t Type) IsValid() bool {
	switch t {
	case TypeOrder, TypeItem, TypeAsset, TypeJournal:
		return true
	}
	return false
}

// Key identifies one counter row
type Key struct {
	Department string
	Type       Type
	Period     int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Department, k.Type, k.Period)
}

// Validate rejects keys that could never have been issued
func (k Key) Validate() error {
	if strings.TrimSpace(k.Department) == "" {
		return shared.NewValidationError("department", "is required")
	}
	if !k.Type.IsValid() {
		return shared.NewValidationError("numbering_type", fmt.Sprintf("%q is not a numbering type", k.Type))
	}
	if k.Period < 0 {
		return shared.NewValidationError("fiscal_period", "cannot be negative")
	}
	return nil
}

// Counter is the persisted high-water mark of one numbering stream.
// Value never decreases; each Advance returns a value strictly greater than any before it.
type Counter struct {
	Key
	Value     int64
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCounter creates a counter that has not issued anything yet
func NewCounter(key Key) *Counter {
	now := time.Now()
	return &Counter{Key: key, Value: 0, Version: 1, CreatedAt: now, UpdatedAt: now}
}

// Advance increments the counter by exactly one and returns the new value
func (c *Counter) Advance() int64 {
	c.Value++
	c.Version++
	c.UpdatedAt = time.Now()
	return c.Value
}

// SequenceRepository allocates sequence values.
// Allocate must run inside the caller's transaction: the increment is
// committed or rolled back together with the document that consumes it.
type SequenceRepository interface {
	Allocate(ctx context.Context, key Key) (int64, error)
	// Current returns the last issued value, or 0 when nothing was issued
	Current(ctx context.Context, key Key) (int64, error)
}
