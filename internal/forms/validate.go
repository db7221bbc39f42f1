// Package forms declares the typed forms submitted by the storefront and
// validates them before any remote request is made.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/xpro-storefront/internal/common"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	mustRegister(v, "password", validPassword)
	mustRegister(v, "fraction", validFraction)
	mustRegister(v, "notfuture", notFutureYear)
	v.RegisterStructValidation(legalAddressRules, LegalAddress{})
	return v
}

// Validator exposes the shared validator so callers can register it in
// their dependency graph.
func Validator() *validator.Validate { return validate }

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Errorf("register %s validation: %w", tag, err))
	}
}

// validPassword requires at least 8 characters with a letter and a digit.
func validPassword(fl validator.FieldLevel) bool {
	pw := fl.Field().String()
	if len([]rune(pw)) < 8 {
		return false
	}
	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// validFraction accepts decimals in (0, 1].
func validFraction(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.IsPositive() && d.LessThanOrEqual(decimal.NewFromInt(1))
}

func notFutureYear(fl validator.FieldLevel) bool {
	return fl.Field().Int() <= int64(time.Now().Year())
}

func legalAddressRules(sl validator.StructLevel) {
	addr := sl.Current().Interface().(LegalAddress)
	switch strings.ToUpper(addr.Country) {
	case "US", "CA":
		if strings.TrimSpace(addr.StateOrTerritory) == "" {
			sl.ReportError(addr.StateOrTerritory, "state_or_territory", "StateOrTerritory", "required", "")
		}
		if strings.TrimSpace(addr.PostalCode) == "" {
			sl.ReportError(addr.PostalCode, "postal_code", "PostalCode", "required", "")
		}
	}
}

// Validate checks form and returns a *common.ValidationError keyed by JSON
// field path, or nil.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &common.ValidationError{Fields: map[string]string{}}
	for _, fe := range fieldErrs {
		key := fieldKey(fe.Namespace())
		if out.Field(key) != "" {
			continue
		}
		out.Set(key, message(fe))
	}
	return out
}

// fieldKey drops the top-level struct name: "RegisterDetails.legal_address.city"
// becomes "legal_address.city".
func fieldKey(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "This field is required"
	case "email":
		return "Invalid email"
	case "password":
		return "Password must be at least 8 characters and contain at least one letter and one number"
	case "eqfield":
		return "Passwords must match"
	case "gtfield":
		return "Must be after the activation date"
	case "fraction":
		return "Must be greater than 0 and at most 1"
	case "notfuture":
		return "Cannot be in the future"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	case "min", "gte":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Select at least %s", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters", fe.Param())
		}
		return "Must be at least " + fe.Param()
	case "max", "lte":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Select at most %s", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters", fe.Param())
		}
		return "Must be at most " + fe.Param()
	case "gt":
		return "Must be greater than " + fe.Param()
	default:
		return "Invalid value"
	}
}
