package formatter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		titleRendered := StyleHeader.Render(strings.ToUpper(title))
		inner := titleRendered + "\n\n" + strings.TrimRight(content, "\n")
		return boxStyle.Render(inner)
	}

	return boxStyle.Render(strings.TrimRight(content, "\n"))
}

// RelativeDate returns a human-friendly relative date string.
func RelativeDate(t time.Time) string {
	return RelativeDateFrom(t, time.Now())
}

// RelativeDateFrom returns a human-friendly relative date string from a reference time.
func RelativeDateFrom(t time.Time, now time.Time) string {
	diff := t.Sub(now)
	days := int(math.Round(diff.Hours() / 24))

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days == -1:
		return "Yesterday"
	case days > 0 && days < 14:
		return fmt.Sprintf("In %dd", days)
	case days > 0 && days < 60:
		return fmt.Sprintf("In %dw", days/7)
	case days > 0:
		return fmt.Sprintf("In %dmo", days/30)
	case days < 0 && days > -14:
		return fmt.Sprintf("%dd ago", -days)
	case days < 0 && days > -60:
		return fmt.Sprintf("%dw ago", -days/7)
	default:
		return fmt.Sprintf("%dmo ago", -days/30)
	}
}

// DueDateStyled colors a due date by urgency. Finished work is never urgent.
func DueDateStyled(due *time.Time, done bool, now time.Time) string {
	if due == nil {
		return Dim("--")
	}
	text := RelativeDateFrom(*due, now)
	if done {
		return Dim(text)
	}
	days := int(math.Round(due.Sub(now).Hours() / 24))
	switch {
	case days <= 2:
		return StyleRed.Render(text)
	case days <= 7:
		return StyleYellow.Render(text)
	default:
		return StyleFg.Render(text)
	}
}

// ShortDate formats a calendar date as 2006-01-02.
func ShortDate(t time.Time) string {
	if t.IsZero() {
		return Dim("--")
	}
	return t.Format("2006-01-02")
}

// OptionalDate formats a nullable date.
func OptionalDate(t *time.Time) string {
	if t == nil {
		return Dim("--")
	}
	return ShortDate(*t)
}

// DateRange renders "start → end", leaving open ends as "…".
func DateRange(start, end *time.Time) string {
	if start == nil && end == nil {
		return Dim("--")
	}
	s, e := "…", "…"
	if start != nil {
		s = start.Format("2006-01-02")
	}
	if end != nil {
		e = end.Format("2006-01-02")
	}
	return s + " → " + e
}

// HumanTimestamp returns a human-friendly relative timestamp string.
func HumanTimestamp(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case t.IsZero():
		return Dim("never")
	case diff < 0:
		return t.Format("Jan 2, 2006")
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 48*time.Hour:
		return "Yesterday"
	default:
		return t.Format("Jan 2, 2006")
	}
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	return StyleDim.Render(domain.ShortID(id))
}

// FormatAmount renders an amount with two decimals and thousands separators,
// e.g. "12,500.00".
func FormatAmount(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	if w, err := decimal.NewFromString(whole); err == nil && w.IsInteger() && w.LessThan(decimal.NewFromInt(math.MaxInt64)) {
		whole = humanize.Comma(w.IntPart())
	}
	sign := ""
	if d.IsNegative() && !d.Round(2).IsZero() {
		sign = "-"
	}
	return sign + whole + "." + frac
}

// FormatMoney renders "12,500.00 EUR".
func FormatMoney(m domain.Money) string {
	if m.Currency == "" {
		return FormatAmount(m.Amount)
	}
	return FormatAmount(m.Amount) + " " + m.Currency
}

// FormatTotals renders one line per currency, sorted by currency code.
func FormatTotals(totals map[string]decimal.Decimal, currencies []string) string {
	if len(currencies) == 0 {
		return Dim("--")
	}
	parts := make([]string, 0, len(currencies))
	for _, c := range currencies {
		parts = append(parts, FormatMoney(domain.Money{Amount: totals[c], Currency: c}))
	}
	return strings.Join(parts, ", ")
}

// FormatPercent renders a percentage with one decimal.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// Truncate shortens s to width visible cells, ending with "…".
func Truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

// OrDash returns s, or a dimmed "--" when it is blank.
func OrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return Dim("--")
	}
	return s
}
