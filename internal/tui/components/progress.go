package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/paycheck/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders a block progress bar with percentage.
func ProgressBar(pct float64, width int) string {
	t := theme.Active
	pct = clamp01(pct)
	filled := min(int(pct*float64(width)), width)

	var barColor lipgloss.Color
	switch {
	case pct >= 0.8:
		barColor = t.AccentBright
	case pct >= 0.5:
		barColor = t.Accent
	default:
		barColor = t.Cyan
	}

	filledStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	b.WriteString(filledStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(emptyStyle.Render(strings.Repeat("░", width-filled)))

	return b.String() + spaceStyle.Render(" ") + pctStyle.Render(fmt.Sprintf("%.0f%%", pct*100))
}

func clamp01(f float64) float64 {
	return max(0, min(f, 1))
}

// ColorForRemaining colors a share of budget still available: plenty is
// green, running low turns yellow then red.
func ColorForRemaining(pct float64) lipgloss.Color {
	t := theme.Active
	switch {
	case pct >= 0.5:
		return t.Green
	case pct >= 0.2:
		return t.Yellow
	case pct > 0:
		return t.Orange
	default:
		return t.Red
	}
}

// LabeledBar renders "label  [bar] pct  detail" using a bubbles progress bar.
// pct is 0-1; color picks the fill.
func LabeledBar(label string, pct float64, detail string, color lipgloss.Color, labelW, barWidth int) string {
	t := theme.Active
	pct = clamp01(pct)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	detailStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	if lipgloss.Width(label) > labelW {
		label = string([]rune(label)[:max(labelW-1, 0)]) + "…"
	}

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		bar.ViewAs(pct) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%3.0f%%", pct*100)) +
		spaceStyle.Render("  ") +
		detailStyle.Render(detail)
}

// CompactBar renders a tiny status-bar-sized indicator.
func CompactBar(label string, pct float64, color lipgloss.Color, width int) string {
	t := theme.Active
	pct = clamp01(pct)

	barW := max(width-lipgloss.Width(label)-6, 4)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barW),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(label) +
		spaceStyle.Render(" ") +
		bar.ViewAs(pct) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%2.0f%%", pct*100))
}
