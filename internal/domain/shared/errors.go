package shared

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrOverReceipt         = NewDomainError("OVER_RECEIPT", "Delivery exceeds the outstanding quantity")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrDuplicateDelivery   = NewDomainError("DUPLICATE_DELIVERY", "Delivery was already submitted")
)

// ValidationError reports a malformed or incomplete request.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Is matches ErrInvalidInput
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Resource string
	Key      string
}

// NewNotFoundError creates a not-found error for resource identified by key
func NewNotFoundError(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// Is matches ErrNotFound
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// OverReceiptError reports a delivery that would push received past ordered,
// or that targets a line which is already fully received.
type OverReceiptError struct {
	OrderNumber string
	LineID      uuid.UUID
	LineNo      int
	Ordered     decimal.Decimal
	Received    decimal.Decimal
	Attempted   decimal.Decimal
}

func (e *OverReceiptError) Error() string {
	if e.Received.GreaterThanOrEqual(e.Ordered) {
		return fmt.Sprintf("order %s line %d is already fully received (%s of %s), attempted %s more",
			e.OrderNumber, e.LineNo, e.Received, e.Ordered, e.Attempted)
	}
	return fmt.Sprintf("order %s line %d: receiving %s on top of %s exceeds ordered %s",
		e.OrderNumber, e.LineNo, e.Attempted, e.Received, e.Ordered)
}

// Is matches ErrOverReceipt
func (e *OverReceiptError) Is(target error) bool { return target == ErrOverReceipt }

// ConcurrencyError reports a lock timeout, deadlock or stale version.
// Callers may resubmit.
type ConcurrencyError struct {
	Resource string
	Key      string
	Err      error
}

// NewConcurrencyError wraps cause as a conflict on resource/key
func NewConcurrencyError(resource, key string, cause error) *ConcurrencyError {
	return &ConcurrencyError{Resource: resource, Key: key, Err: cause}
}

func (e *ConcurrencyError) Error() string {
	msg := fmt.Sprintf("concurrent modification of %s %q", e.Resource, e.Key)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches ErrConcurrencyConflict
func (e *ConcurrencyError) Is(target error) bool { return target == ErrConcurrencyConflict }

func (e *ConcurrencyError) Unwrap() error { return e.Err }

// CodeOf returns the stable error code for err, or INTERNAL for anything
// that is not a domain error.
func CodeOf(err error) string {
	for _, sentinel := range []*DomainError{
		ErrInvalidInput, ErrNotFound, ErrOverReceipt, ErrConcurrencyConflict,
		ErrInsufficientStock, ErrAlreadyExists, ErrDuplicateDelivery, ErrInvalidState,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Code
		}
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL"
}
