package formatter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/stats"
	"github.com/shopspring/decimal"
)

const barWidth = 16

// FormatUtilization renders budget usage per project and currency.
func FormatUtilization(rows []stats.Utilization, projects Names) string {
	if len(rows) == 0 {
		return Dim("No budgets or spending recorded.")
	}
	out := make([][]string, 0, len(rows))
	for _, u := range rows {
		usage := RenderUsage(u.PercentUsed, barWidth)
		if u.Budgeted.IsZero() {
			usage = StyleRed.Render("unbudgeted")
		}
		remaining := FormatAmount(u.Remaining)
		if u.OverBudget {
			remaining = StyleRed.Render(remaining)
		}
		out = append(out, []string{
			projects.Of(u.ProjectID),
			u.Currency,
			FormatAmount(u.Budgeted),
			FormatAmount(u.Spent),
			remaining,
			usage,
		})
	}
	t := Table{
		Headers: []string{"PROJECT", "CUR", "BUDGETED", "SPENT", "REMAINING", "USED"},
		Rows:    out,
		Align:   RightAlign(6, 2, 3, 4),
	}
	return RenderBox("Budget utilization", t.Render())
}

// CurrencyTotals is one line of the totals view.
type CurrencyTotals struct {
	Label  string
	Totals map[string]decimal.Decimal
}

// FormatCurrencyTotals renders a row per label and a column per currency.
func FormatCurrencyTotals(lines []CurrencyTotals) string {
	seen := make(map[string]bool)
	var currencies []string
	for _, l := range lines {
		for c := range l.Totals {
			if !seen[c] {
				seen[c] = true
				currencies = append(currencies, c)
			}
		}
	}
	if len(currencies) == 0 {
		return Dim("No financial records.")
	}
	sort.Strings(currencies)

	headers := append([]string{""}, currencies...)
	right := make([]int, 0, len(currencies))
	for i := range currencies {
		right = append(right, i+1)
	}
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		row := []string{Bold(l.Label)}
		for _, c := range currencies {
			amt, ok := l.Totals[c]
			if !ok {
				row = append(row, Dim("--"))
				continue
			}
			row = append(row, FormatAmount(amt))
		}
		rows = append(rows, row)
	}
	t := Table{Headers: headers, Rows: rows, Align: RightAlign(len(headers), right...)}
	return RenderBox("Totals by currency", t.Render())
}

// FormatMonthly renders month buckets with a bar scaled to the largest month.
func FormatMonthly(title, currency string, months []stats.MonthTotal) string {
	if len(months) == 0 {
		return Dim("No months in range.")
	}
	peak := decimal.Zero
	sum := decimal.Zero
	for _, m := range months {
		if m.Total.GreaterThan(peak) {
			peak = m.Total
		}
		sum = sum.Add(m.Total)
	}
	rows := make([][]string, 0, len(months))
	for _, m := range months {
		bar := ""
		if peak.IsPositive() {
			n := int(m.Total.Div(peak).Mul(decimal.NewFromInt(barWidth)).Round(0).IntPart())
			bar = StyleBlue.Render(strings.Repeat(filledBlock, n))
		}
		rows = append(rows, []string{
			m.Month.Format("2006-01"),
			strconv.Itoa(m.Count),
			FormatAmount(m.Total),
			bar,
		})
	}
	t := Table{
		Headers: []string{"MONTH", "ITEMS", currency, ""},
		Rows:    rows,
		Align:   RightAlign(4, 1, 2),
		Footer:  []string{Bold("Total"), "", Bold(FormatAmount(sum)), ""},
	}
	return RenderBox(title, t.Render())
}

// FormatTaskStats renders the status breakdown and completion rate.
func FormatTaskStats(counts map[domain.TaskStatus]int, completion float64) string {
	total := 0
	for _, n := range counts {
		total += n
	}
	rows := make([][]string, 0, len(domain.TaskStatuses))
	for _, s := range domain.TaskStatuses {
		rows = append(rows, []string{TaskStatusPill(s), strconv.Itoa(counts[s])})
	}
	t := Table{
		Headers: []string{"STATUS", "TASKS"},
		Rows:    rows,
		Align:   RightAlign(2, 1),
		Footer:  []string{Bold("Total"), Bold(strconv.Itoa(total))},
	}
	body := t.Render() + "\n" + fmt.Sprintf("%s  %s", Dim("Completion"), RenderProgress(completion, barWidth))
	return RenderBox("Tasks", body)
}

// FormatCategories renders expense totals per category for one currency.
func FormatCategories(currency string, cats []stats.CategoryTotal) string {
	if len(cats) == 0 {
		return Dim(fmt.Sprintf("No %s expenses.", currency))
	}
	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, []string{StylePurple.Render(c.Category), strconv.Itoa(c.Count), FormatAmount(c.Total)})
	}
	t := Table{
		Headers: []string{"CATEGORY", "ITEMS", currency},
		Rows:    rows,
		Align:   RightAlign(3, 1, 2),
	}
	return RenderBox("Expenses by category", t.Render())
}

// FormatVelocity renders done/total tasks per sprint.
func FormatVelocity(vs []stats.Velocity) string {
	if len(vs) == 0 {
		return Dim("No sprints found.")
	}
	rows := make([][]string, 0, len(vs))
	for _, v := range vs {
		pct := 0.0
		if v.Total > 0 {
			pct = float64(v.Done) / float64(v.Total) * 100
		}
		rows = append(rows, []string{
			Bold(v.Name),
			SprintStatusPill(v.Status),
			fmt.Sprintf("%d/%d", v.Done, v.Total),
			RenderProgress(pct, barWidth/2),
		})
	}
	t := Table{
		Headers: []string{"SPRINT", "STATUS", "DONE", "PROGRESS"},
		Rows:    rows,
		Align:   RightAlign(4, 2),
	}
	return RenderBox("Sprint velocity", t.Render())
}
