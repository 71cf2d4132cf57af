package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/theirongolddev/paycheck/internal/cli"
	"github.com/theirongolddev/paycheck/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Sparkline renders a unicode sparkline from values. Negative values are
// drawn relative to the series minimum.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active
	style := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	return style.Render(cli.RenderSparkline(values))
}

// BarChart renders money amounts as vertical bars over a labelled y-axis,
// using eighth blocks for the partial top cell. Negative values draw as
// empty columns. When the series is wider than the chart only the most
// recent values are kept.
func BarChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active

	peak := 1.0
	for _, v := range values {
		peak = math.Max(peak, v)
	}
	step := chartTickStep(peak)
	for math.Ceil(peak/step) > float64(max(height/2, 2)) {
		step *= 2
	}
	ticks := max(int(math.Ceil(peak/step)), 1)
	ceiling := step * float64(ticks)
	rowsPerTick := max(height/ticks, 2)
	rows := rowsPerTick * ticks

	labelW := max(lipgloss.Width(formatChartLabel(ceiling))+1, 4)
	plotW := max(width-labelW-1, 5)

	barW, gap := 1, 1
	if fit := (plotW+1)/len(values) - 1; fit > 1 {
		barW = min(fit, 6)
	}
	if len(values)*(barW+gap)-gap > plotW {
		gap = 0
	}
	if len(values) > plotW {
		values = values[len(values)-plotW:]
		if len(labels) > plotW {
			labels = labels[len(labels)-plotW:]
		}
	}
	n := len(values)
	axisLen := n*(barW+gap) - gap

	eighths := make([]int, n)
	for i, v := range values {
		if v > 0 {
			eighths[i] = int(math.Round(v / ceiling * float64(rows*8)))
		}
	}

	blocks := []rune(" ▁▂▃▄▅▆▇█")
	axis := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	bar := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	for r := rows; r >= 1; r-- {
		label := ""
		if r%rowsPerTick == 0 {
			label = formatChartLabel(step * float64(r/rowsPerTick))
		}
		b.WriteString(axis.Render(fmt.Sprintf("%*s│", labelW, label)))

		var line strings.Builder
		for i, e := range eighths {
			if i > 0 {
				line.WriteString(strings.Repeat(" ", gap))
			}
			fill := min(max(e-(r-1)*8, 0), 8)
			line.WriteString(strings.Repeat(string(blocks[fill]), barW))
		}
		b.WriteString(bar.Render(line.String()))
		b.WriteString("\n")
	}
	b.WriteString(axis.Render(fmt.Sprintf("%*s└", labelW, "0") + strings.Repeat("─", axisLen)))

	if len(labels) != n {
		return b.String()
	}
	first, last := labels[0], labels[n-1]
	xs := first
	if n > 1 {
		pad := axisLen - len(first) - len(last)
		if pad > 0 {
			xs += strings.Repeat(" ", pad) + last
		}
	}
	if len(xs) > axisLen {
		xs = xs[:axisLen]
	}
	b.WriteString("\n")
	b.WriteString(blank.Render(strings.Repeat(" ", labelW+1)))
	b.WriteString(axis.Render(xs))
	return b.String()
}

// chartTickStep computes a nice tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	exp := math.Floor(math.Log10(rough))
	base := math.Pow(10, exp)
	frac := rough / base

	switch {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

// formatChartLabel renders an axis tick as a short money amount.
func formatChartLabel(v float64) string {
	if v > 0 && v < 1 {
		return cli.FormatMoney(decimal.NewFromFloat(v))
	}
	return cli.FormatMoneyShort(decimal.NewFromFloat(math.Round(v)))
}
