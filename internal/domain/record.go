package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is implemented by every resource the client mirrors. The ID is the
// server-assigned identifier and is the only key the sync layers rely on.
type Record interface {
	GetID() string
}

// Money is an amount/currency pair. It is embedded in financial records so
// the JSON fields stay flat ("amount", "currency").
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Price returns the record's amount and currency.
func (m Money) Price() Money { return m }

// Priced is implemented by records that carry a Money value.
type Priced interface {
	Record
	Price() Money
}

// Dated is implemented by records that can be placed on a timeline for
// date-bucketed aggregation.
type Dated interface {
	OccurredAt() time.Time
}

// PricedDated combines Priced and Dated.
type PricedDated interface {
	Priced
	Dated
}

// IDs returns the identifiers of items in order.
func IDs[T Record](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.GetID())
	}
	return out
}
