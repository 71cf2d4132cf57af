package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/paycheck/internal/cli"
	"github.com/theirongolddev/paycheck/internal/engine"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/tui/components"
	"github.com/theirongolddev/paycheck/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

func (a App) renderTriageTab(cw, h int) string {
	t := theme.Active
	r := a.views.Triage
	m := r.Metrics
	var b strings.Builder

	// Row 1: Stress + metric cards
	buffer := "-"
	switch {
	case m.LiquidityBufferInfinite:
		buffer = "∞"
	case m.LiquidityBufferDays != nil:
		buffer = m.LiquidityBufferDays.StringFixed(0) + " days"
	}
	burnColor := t.Green
	if m.BurnRatePct.GreaterThan(model.Hundred) {
		burnColor = t.Red
	} else if m.BurnRatePct.GreaterThanOrEqual(decimal.NewFromInt(85)) {
		burnColor = t.Yellow
	}
	cards := []components.Metric{
		{Label: "Stress", Value: fmt.Sprintf("%d / 100", r.StressScore), Delta: string(r.StressLevel), Color: stressColor(r.StressLevel)},
		{Label: "Burn rate", Value: cli.FormatPercent(m.BurnRatePct), Delta: "of income spent", Color: burnColor},
		{Label: "Liquidity buffer", Value: buffer, Delta: "fixed " + cli.FormatMoneyShort(m.MonthlyFixedCosts) + "/mo"},
		{Label: "Cleanup", Value: fmt.Sprintf("%d pending · %d uncategorized", m.PendingCount, m.UncategorizedCount),
			Delta: cli.FormatMoneyShort(m.PendingTotal.Add(m.UncategorizedTotal)) + " to review"},
	}
	cardRow := components.MetricCardRow(cards, cw)
	b.WriteString(cardRow)
	b.WriteString("\n")

	// Row 2: Stress components
	innerW := components.CardInnerWidth(cw)
	barW := max(innerW-40, 10)
	comps := []struct {
		label  string
		v, max float64
	}{
		{"Burn rate", r.Components.BurnRate, engine.BurnWeight},
		{"Liquidity", r.Components.Liquidity, engine.LiquidityWeight},
		{"Cleanup", r.Components.Cleanup, engine.CleanupWeight},
	}
	var comp strings.Builder
	for i, c := range comps {
		if i > 0 {
			comp.WriteString("\n")
		}
		// Low is healthy.
		share := c.v / c.max
		comp.WriteString(components.LabeledBar(c.label, share, fmt.Sprintf("%.0f of %.0f", c.v, c.max),
			components.ColorForRemaining(1-share), 12, barW))
	}
	subShare := cli.FormatPercent(m.SubscriptionSharePct) + " of fixed costs are subscriptions"
	comp.WriteString("\n")
	comp.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render(subShare))
	compCard := components.ContentCard("Stress Components", comp.String(), cw)
	b.WriteString(compCard)
	b.WriteString("\n")

	// Row 3: Actions
	if len(r.Actions) == 0 {
		b.WriteString(components.ContentCard("Actions",
			lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface).Render("Nothing needs attention"), cw))
		return b.String()
	}

	lines := actionLines(r.Actions, innerW)
	visible := max(h-lipgloss.Height(cardRow)-lipgloss.Height(compCard)-4, 3)
	from, to := scrollWindow(len(lines), visible, a.triageScroll)
	title := fmt.Sprintf("Actions (%d)", len(r.Actions))
	if from > 0 || to < len(lines) {
		title += fmt.Sprintf("  [%d-%d of %d]", from+1, to, len(lines))
	}
	b.WriteString(components.ContentCard(title, strings.Join(lines[from:to], "\n"), cw))
	return b.String()
}

func actionLines(actions []model.TriageAction, innerW int) []string {
	t := theme.Active
	titleStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	titleW := max(innerW-10-12-12-12, 10)
	lines := make([]string, 0, len(actions)*2)
	for _, act := range actions {
		sev := lipgloss.NewStyle().Foreground(t.ForSeverity(act.Severity)).Background(t.Surface).Bold(true)
		due := ""
		if act.DueDate != nil {
			due = act.DueDate.Format("Jan 02")
		}
		lines = append(lines,
			sev.Render(fmt.Sprintf("%-10s", strings.ToUpper(string(act.Severity))))+
				mutedStyle.Render(fmt.Sprintf("%-12s", act.Area))+
				titleStyle.Render(fmt.Sprintf("%-*s", titleW, cli.Truncate(act.Title, titleW)))+
				mutedStyle.Render(fmt.Sprintf("%12s", cli.FormatOptional(act.ImpactAmount)))+
				dimStyle.Render(fmt.Sprintf("%12s", due)))
		if act.Detail != "" {
			lines = append(lines, dimStyle.Render(strings.Repeat(" ", 22)+cli.Truncate(act.Detail, max(innerW-22, 10))))
		}
	}
	return lines
}

func stressColor(l model.StressLevel) lipgloss.Color {
	t := theme.Active
	switch l {
	case model.StressLow:
		return t.Green
	case model.StressModerate:
		return t.Yellow
	case model.StressHigh:
		return t.Orange
	}
	return t.Red
}
