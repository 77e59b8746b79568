package formatter

import (
	"fmt"
	"strings"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderUsage renders a budget usage bar like [████░░░░]  45.0%.
// pct is a percentage (0-100+). The bar is green below 75%, yellow up to
// 100% and red once the budget is exceeded.
func RenderUsage(pct float64, width int) string {
	if width < 2 {
		width = 2
	}
	frac := pct / 100
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	filled := int(frac * float64(width))
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	style := StyleGreen
	switch {
	case pct > 100:
		style = StyleRed
	case pct >= 75:
		style = StyleYellow
	}
	return fmt.Sprintf("[%s] %6s", style.Render(bar), FormatPercent(pct))
}

// RenderProgress renders a completion bar; more done is greener.
func RenderProgress(pct float64, width int) string {
	if width < 2 {
		width = 2
	}
	frac := min(max(pct/100, 0), 1)
	filled := int(frac * float64(width))
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	style := StyleGreen
	if frac < 0.33 {
		style = StyleRed
	} else if frac < 0.66 {
		style = StyleYellow
	}
	return fmt.Sprintf("[%s] %6s", style.Render(bar), FormatPercent(pct))
}
