package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Align is the horizontal alignment of a table column.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

const colGap = 2

// Table is a column-aligned listing with a header separator line. Widths are
// measured on visible text so styled cells line up.
type Table struct {
	Headers []string
	Rows    [][]string
	// Align holds per-column alignment; missing entries are left-aligned.
	Align []Align
	// Footer is rendered below a second separator, e.g. a totals row.
	Footer []string
}

// RenderTable renders a left-aligned table.
func RenderTable(headers []string, rows [][]string) string {
	return Table{Headers: headers, Rows: rows}.Render()
}

// RightAlign returns an alignment slice with the given columns right-aligned.
func RightAlign(cols int, right ...int) []Align {
	out := make([]Align, cols)
	for _, i := range right {
		if i >= 0 && i < cols {
			out[i] = AlignRight
		}
	}
	return out
}

func (t Table) Render() string {
	cols := len(t.Headers)
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	measure := func(row []string) {
		for i := 0; i < cols && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.Headers)
	for _, row := range t.Rows {
		measure(row)
	}
	measure(t.Footer)

	var b strings.Builder
	headers := make([]string, cols)
	for i, h := range t.Headers {
		headers[i] = StyleHeader.Render(h)
	}
	t.writeRow(&b, headers, widths)
	writeSeparator(&b, widths)
	for _, row := range t.Rows {
		t.writeRow(&b, row, widths)
	}
	if len(t.Footer) > 0 {
		writeSeparator(&b, widths)
		t.writeRow(&b, t.Footer, widths)
	}
	return b.String()
}

func (t Table) align(i int) Align {
	if i < len(t.Align) {
		return t.Align[i]
	}
	return AlignLeft
}

func (t Table) writeRow(b *strings.Builder, row []string, widths []int) {
	last := len(widths) - 1
	for i := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		pad := max(widths[i]-lipgloss.Width(cell), 0)
		if t.align(i) == AlignRight {
			b.WriteString(strings.Repeat(" ", pad))
			b.WriteString(cell)
		} else {
			b.WriteString(cell)
			if i < last {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		if i < last {
			b.WriteString(strings.Repeat(" ", colGap))
		}
	}
	b.WriteString("\n")
}

func writeSeparator(b *strings.Builder, widths []int) {
	for i, w := range widths {
		b.WriteString(StyleDim.Render(strings.Repeat("─", w)))
		if i < len(widths)-1 {
			b.WriteString(strings.Repeat(" ", colGap))
		}
	}
	b.WriteString("\n")
}
