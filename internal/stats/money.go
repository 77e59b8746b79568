// Package stats computes the figures shown by the stats and dashboard views
// from mirrored or freshly fetched lists. Every function accepts empty input
// and returns zero values for it.
package stats

import (
	"sort"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/shopspring/decimal"
)

// TotalsByCurrency sums amounts per currency code. Amounts in different
// currencies are never added together.
func TotalsByCurrency[T domain.Priced](items []T) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, it := range items {
		m := it.Price()
		cur := domain.NormalizeCurrency(m.Currency)
		out[cur] = out[cur].Add(m.Amount)
	}
	return out
}

// TotalForCurrency sums only the records in currency.
func TotalForCurrency[T domain.Priced](items []T, currency string) decimal.Decimal {
	currency = domain.NormalizeCurrency(currency)
	total := decimal.Zero
	for _, it := range items {
		m := it.Price()
		if domain.NormalizeCurrency(m.Currency) == currency {
			total = total.Add(m.Amount)
		}
	}
	return total
}

// Currencies returns the distinct currency codes of items, sorted.
func Currencies[T domain.Priced](items []T) []string {
	totals := TotalsByCurrency(items)
	out := make([]string, 0, len(totals))
	for cur := range totals {
		out = append(out, cur)
	}
	sort.Strings(out)
	return out
}

// MonthTotal is the sum of one calendar month.
type MonthTotal struct {
	Month time.Time // first day of the month, UTC
	Total decimal.Decimal
	Count int
}

// MonthlyBuckets sums records in currency by calendar month from the month
// of from through the month of to. Months without records are included with a
// zero total. An inverted range yields nil.
func MonthlyBuckets[T domain.PricedDated](items []T, currency string, from, to time.Time) []MonthTotal {
	start := monthOf(from)
	end := monthOf(to)
	if end.Before(start) {
		return nil
	}

	var out []MonthTotal
	index := make(map[time.Time]int)
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		index[m] = len(out)
		out = append(out, MonthTotal{Month: m, Total: decimal.Zero})
	}

	currency = domain.NormalizeCurrency(currency)
	for _, it := range items {
		price := it.Price()
		if domain.NormalizeCurrency(price.Currency) != currency {
			continue
		}
		i, ok := index[monthOf(it.OccurredAt())]
		if !ok {
			continue
		}
		out[i].Total = out[i].Total.Add(price.Amount)
		out[i].Count++
	}
	return out
}

func monthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// CategoryTotal is the sum of one expense category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
	Count    int
}

// Uncategorized labels expenses without a category.
const Uncategorized = "uncategorized"

// ExpensesByCategory sums expenses in currency per category, largest first.
func ExpensesByCategory(expenses []domain.Expense, currency string) []CategoryTotal {
	currency = domain.NormalizeCurrency(currency)
	byCat := make(map[string]*CategoryTotal)
	for _, e := range expenses {
		if domain.NormalizeCurrency(e.Currency) != currency {
			continue
		}
		cat := domain.CoalesceStr(e.Category, Uncategorized)
		ct, ok := byCat[cat]
		if !ok {
			ct = &CategoryTotal{Category: cat, Total: decimal.Zero}
			byCat[cat] = ct
		}
		ct.Total = ct.Total.Add(e.Amount)
		ct.Count++
	}

	out := make([]CategoryTotal, 0, len(byCat))
	for _, ct := range byCat {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}
