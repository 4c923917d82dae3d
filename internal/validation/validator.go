// Package validation checks request bodies against their `validate` struct tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-rental/internal/errs"
)

type Validator struct {
	v *validator.Validate
}

var std = New()

// New returns a validator that reports fields by their JSON names and compares
// decimal.Decimal fields numerically.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	return &Validator{v: v}
}

// Validate checks i and reports every failed field as one VALIDATION error. The message
// names the first failure; details list all of them.
func (v *Validator) Validate(i any) error {
	err := v.v.Struct(i)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return errs.Internal(err, "validate %T", i)
	}
	problems := make([]string, 0, len(fields))
	for _, fe := range fields {
		problems = append(problems, describe(fe))
	}
	return errs.Validation("%s", problems[0]).WithDetails(problems)
}

// Struct validates i with the shared validator.
func Struct(i any) error {
	return std.Validate(i)
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

// path drops the root struct name from the namespace, e.g. "CreateRequest.pickup.at" -> "pickup.at".
func path(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	field := path(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		if fe.Param() == "0" {
			return field + " must not be negative"
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	case "email":
		return field + " must be a valid email"
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
