package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// FieldError describes a single invalid form field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every failing field of a record.
type ValidationError struct {
	Resource string
	Fields   []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Message))
	}
	return fmt.Sprintf("invalid %s: %s", e.Resource, strings.Join(parts, "; "))
}

// Has reports whether the given field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// validator accumulates field errors for one record.
type validator struct {
	resource string
	fields   []FieldError
}

func newValidator(resource string) *validator {
	return &validator{resource: resource}
}

func (v *validator) fail(field, msg string) {
	v.fields = append(v.fields, FieldError{Field: field, Message: msg})
}

func (v *validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.fail(field, "is required")
	}
}

func (v *validator) positive(field string, amount decimal.Decimal) {
	if !amount.IsPositive() {
		v.fail(field, "must be greater than zero")
	}
}

func (v *validator) nonNegative(field string, n float64) {
	if n < 0 {
		v.fail(field, "must not be negative")
	}
}

func (v *validator) money(m Money) {
	v.positive("amount", m.Amount)
	switch {
	case m.Currency == "":
		v.fail("currency", "is required")
	case !currencyPattern.MatchString(m.Currency):
		v.fail("currency", fmt.Sprintf("%q must be a three-letter ISO code", m.Currency))
	}
}

// ordered checks start <= end when both are set.
func (v *validator) ordered(startField string, start *time.Time, endField string, end *time.Time) {
	if start == nil || end == nil {
		return
	}
	if end.Before(*start) {
		v.fail(endField, fmt.Sprintf("must not be before %s", startField))
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Resource: v.resource, Fields: v.fields}
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
