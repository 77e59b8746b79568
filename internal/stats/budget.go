package stats

import (
	"sort"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/shopspring/decimal"
)

// Utilization compares what a project budgeted with what it spent in one
// currency. Spent counts costs and project-bound expenses.
type Utilization struct {
	ProjectID   string
	Currency    string
	Budgeted    decimal.Decimal
	Spent       decimal.Decimal
	Remaining   decimal.Decimal
	PercentUsed float64
	OverBudget  bool
}

type utilKey struct {
	project  string
	currency string
}

// BudgetUtilization groups budgets, costs and expenses by project and
// currency, ordered by project then currency. Expenses without a project are
// not attributed to any budget. A pair with spending but no budget is
// reported over budget with PercentUsed 0.
func BudgetUtilization(budgets []domain.Budget, costs []domain.Cost, expenses []domain.Expense) []Utilization {
	rows := make(map[utilKey]*Utilization)
	row := func(project, currency string) *Utilization {
		k := utilKey{project: project, currency: domain.NormalizeCurrency(currency)}
		u, ok := rows[k]
		if !ok {
			u = &Utilization{ProjectID: k.project, Currency: k.currency, Budgeted: decimal.Zero, Spent: decimal.Zero}
			rows[k] = u
		}
		return u
	}

	for _, b := range budgets {
		u := row(b.ProjectID, b.Currency)
		u.Budgeted = u.Budgeted.Add(b.Amount)
	}
	for _, c := range costs {
		u := row(c.ProjectID, c.Currency)
		u.Spent = u.Spent.Add(c.Amount)
	}
	for _, e := range expenses {
		if e.ProjectID == "" {
			continue
		}
		u := row(e.ProjectID, e.Currency)
		u.Spent = u.Spent.Add(e.Amount)
	}

	out := make([]Utilization, 0, len(rows))
	for _, u := range rows {
		u.Remaining = u.Budgeted.Sub(u.Spent)
		u.OverBudget = u.Spent.GreaterThan(u.Budgeted)
		if u.Budgeted.IsPositive() {
			u.PercentUsed = u.Spent.Div(u.Budgeted).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProjectID != out[j].ProjectID {
			return out[i].ProjectID < out[j].ProjectID
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}
