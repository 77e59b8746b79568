package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/reconcile"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

const dateLayout = "2006-01-02"

// field is one editable record attribute exposed as a string flag. Only flags
// the user actually passed are applied, so the same fields serve add and
// update.
type field[T any] struct {
	name  string
	usage string
	set   func(e editCtx, item *T, value string) error
}

type editCtx struct {
	ctx context.Context
	ws  *reconcile.Workspace
}

func bindFields[T any](fs *pflag.FlagSet, fields []field[T]) {
	for _, f := range fields {
		fs.String(f.name, "", f.usage)
	}
}

// applyFields copies every changed flag onto item and reports how many were
// applied.
func applyFields[T any](e editCtx, fs *pflag.FlagSet, fields []field[T], item *T) (int, error) {
	applied := 0
	for _, f := range fields {
		if !fs.Changed(f.name) {
			continue
		}
		v, err := fs.GetString(f.name)
		if err != nil {
			return applied, err
		}
		if err := f.set(e, item, strings.TrimSpace(v)); err != nil {
			return applied, fmt.Errorf("--%s: %w", f.name, err)
		}
		applied++
	}
	return applied, nil
}

func textField[T any](name, usage string, ptr func(*T) *string) field[T] {
	return field[T]{name: name, usage: usage, set: func(_ editCtx, item *T, v string) error {
		*ptr(item) = v
		return nil
	}}
}

// enumField accepts the value case-insensitively with "-" for "_", so
// "on-hold" sets on_hold.
func enumField[T any, E ~string](name, usage string, ptr func(*T) *E) field[T] {
	return field[T]{name: name, usage: usage, set: func(_ editCtx, item *T, v string) error {
		*ptr(item) = E(strings.ReplaceAll(strings.ToLower(v), "-", "_"))
		return nil
	}}
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", v)
	}
	return t, nil
}

func dateField[T any](name, usage string, ptr func(*T) *time.Time) field[T] {
	return field[T]{name: name, usage: usage, set: func(_ editCtx, item *T, v string) error {
		t, err := parseDate(v)
		if err != nil {
			return err
		}
		*ptr(item) = t
		return nil
	}}
}

// optDateField clears the date when given "" or "none".
func optDateField[T any](name, usage string, ptr func(*T) **time.Time) field[T] {
	return field[T]{name: name, usage: usage + ` (YYYY-MM-DD, "none" clears)`, set: func(_ editCtx, item *T, v string) error {
		if v == "" || strings.EqualFold(v, "none") {
			*ptr(item) = nil
			return nil
		}
		t, err := parseDate(v)
		if err != nil {
			return err
		}
		*ptr(item) = &t
		return nil
	}}
}

func amountField[T any](ptr func(*T) *domain.Money) field[T] {
	return field[T]{name: "amount", usage: "Amount, e.g. 1250.50", set: func(_ editCtx, item *T, v string) error {
		d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", ""))
		if err != nil {
			return fmt.Errorf("invalid amount %q", v)
		}
		ptr(item).Amount = d
		return nil
	}}
}

func currencyField[T any](ptr func(*T) *domain.Money) field[T] {
	return field[T]{name: "currency", usage: "ISO 4217 currency code, e.g. EUR", set: func(_ editCtx, item *T, v string) error {
		ptr(item).Currency = domain.NormalizeCurrency(v)
		return nil
	}}
}

func hoursField[T any](name, usage string, ptr func(*T) *float64) field[T] {
	return field[T]{name: name, usage: usage, set: func(_ editCtx, item *T, v string) error {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", v)
		}
		*ptr(item) = h
		return nil
	}}
}

// refField resolves an ID or unique prefix of a record in resource. An empty
// value clears the reference.
func refField[T any](name, usage, resource string, ptr func(*T) *string) field[T] {
	return field[T]{name: name, usage: usage + " (ID or unique prefix)", set: func(e editCtx, item *T, v string) error {
		if v == "" {
			*ptr(item) = ""
			return nil
		}
		id, err := resolveRef(e.ctx, e.ws, resource, v)
		if err != nil {
			return err
		}
		*ptr(item) = id
		return nil
	}}
}
