// Package validation runs go-playground/validator over request structs and
// reports the first failure as a shared.ValidationError keyed by JSON path.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stockroom/backend/internal/domain/shared"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Use JSON tag names for field names in errors
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// decimals compare by value so gt/gte/lte work on quantities and prices
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			d, ok := field.Interface().(decimal.Decimal)
			if !ok {
				return nil
			}
			f, _ := d.Float64()
			return f
		}, decimal.Decimal{})
		instance = v
	})
	return instance
}

// Struct validates s against its `validate` tags
func Struct(s any) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	first := fieldErrs[0]
	return shared.NewValidationError(fieldPath(first), message(first))
}

// fieldPath drops the root struct name: "RegisterOrderRequest.lines[0].item_name" -> "lines[0].item_name"
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + e.Param()
	case "min":
		if e.Kind() == reflect.Slice {
			return "must have at least " + e.Param() + " entries"
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "must be at most " + e.Param() + " characters"
		}
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be at least " + e.Param()
	case "datetime":
		return "must be a date formatted as " + e.Param()
	case "required_with":
		return "is required with " + e.Param()
	case "excluded_with":
		return "cannot be combined with " + e.Param()
	}
	return "failed " + e.Tag() + " validation"
}
