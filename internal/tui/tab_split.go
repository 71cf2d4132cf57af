package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/paycheck/internal/cli"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/tui/components"
	"github.com/theirongolddev/paycheck/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

func (a App) renderSplitTab(cw int) string {
	t := theme.Active
	snap := a.views.Split
	alloc := snap.Allocation
	var b strings.Builder

	// Row 1: Metric cards
	floorDelta := "floor " + cli.FormatMoney(alloc.FreeMoneyFloorTarget)
	freeColor := t.Green
	if !alloc.FreeMoneyFloorMet {
		floorDelta += " not met"
		freeColor = t.Orange
	}
	shortColor := t.TextPrimary
	if snap.Totals.Shortfall.IsPositive() {
		shortColor = t.Red
	}
	cards := []components.Metric{
		{Label: "Salary", Value: cli.FormatMoney(snap.SalaryConsidered), Delta: "from " + snap.SalarySource, Color: t.GreenBright},
		{Label: "Reserved", Value: cli.FormatMoney(snap.Totals.Allocated), Delta: "of " + cli.FormatMoney(snap.Totals.Requested) + " requested"},
		{Label: "Free money", Value: cli.FormatMoney(alloc.FreeMoney), Delta: floorDelta, Color: freeColor},
		{Label: "Shortfall", Value: cli.FormatMoney(snap.Totals.Shortfall), Delta: "coverage " + cli.FormatPercent(snap.Totals.CommitmentCoverageRatio.Mul(model.Hundred)), Color: shortColor},
	}
	b.WriteString(components.MetricCardRow(cards, cw))
	b.WriteString("\n")

	// Row 2: Waterfall
	innerW := components.CardInnerWidth(cw)
	labelW := 18
	barW := max(innerW-labelW-24, 10)
	share := func(d decimal.Decimal) float64 {
		if !snap.SalaryConsidered.IsPositive() {
			return 0
		}
		f, _ := d.Div(snap.SalaryConsidered).Float64()
		return f
	}
	steps := []struct {
		label string
		amt   decimal.Decimal
		color lipgloss.Color
	}{
		{"Commitments", alloc.Commitments, t.Red},
		{"Planned expenses", alloc.PlannedExpenses, t.Orange},
		{"Goals", alloc.Goals, t.Blue},
		{"Free money", alloc.FreeMoney, t.Green},
	}
	var fall strings.Builder
	for i, s := range steps {
		if i > 0 {
			fall.WriteString("\n")
		}
		fall.WriteString(components.LabeledBar(s.label, share(s.amt), cli.FormatMoney(s.amt), s.color, labelW, barW))
	}
	if snap.StatusMessage != "" {
		fall.WriteString("\n\n")
		fall.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(snap.StatusMessage))
	}
	b.WriteString(components.ContentCard("Salary Split", fall.String(), cw))
	b.WriteString("\n")

	// Row 3: Goal and planned-expense buckets
	halves := components.LayoutRow(cw, 2)
	goalW := halves[0]
	planW := halves[1]
	if a.isCompactLayout() {
		goalW, planW = cw, cw
	}

	goalRows := make([]bucketRow, 0, len(snap.Buckets.Goals))
	for _, g := range snap.Buckets.Goals {
		goalRows = append(goalRows, bucketRow{fmt.Sprintf("%d. %s", g.Priority, g.GoalName), g.Requested, g.Allocated})
	}
	planRows := make([]bucketRow, 0, len(snap.Buckets.PlannedExpenses))
	for _, p := range snap.Buckets.PlannedExpenses {
		planRows = append(planRows, bucketRow{p.CategoryName, p.Requested, p.Allocated})
	}
	goalCard := components.ContentCard("Goals", renderBuckets(goalRows, components.CardInnerWidth(goalW), "No active goals"), goalW)
	planCard := components.ContentCard("Planned Expenses", renderBuckets(planRows, components.CardInnerWidth(planW), "No budget rules"), planW)

	if a.isCompactLayout() {
		b.WriteString(goalCard)
		b.WriteString("\n")
		b.WriteString(planCard)
	} else {
		b.WriteString(components.CardRow([]string{goalCard, planCard}))
	}

	// Row 4: Goal progress
	if active := activeGoals(a.views.Goals); len(active) > 0 {
		innerW := components.CardInnerWidth(cw)
		nameW := max(innerW/4, 12)
		amtW := 22
		barW := max(innerW-nameW-amtW-8, 10)
		nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
		amtStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
		space := lipgloss.NewStyle().Background(t.Surface).Render(" ")
		lines := make([]string, len(active))
		for i, g := range active {
			pct, _ := g.Progress().Div(model.Hundred).Float64()
			lines[i] = nameStyle.Render(fmt.Sprintf("%-*s", nameW, cli.Truncate(g.Name, nameW))) + space +
				amtStyle.Render(fmt.Sprintf("%*s", amtW, cli.FormatMoneyShort(g.CurrentAmount)+" / "+cli.FormatMoneyShort(g.TargetAmount))) + space +
				components.ProgressBar(pct, barW)
		}
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Goal Progress", strings.Join(lines, "\n"), cw))
	}

	// Row 5: Warnings
	if len(snap.Warnings) > 0 {
		warn := lipgloss.NewStyle().Foreground(t.Yellow).Background(t.Surface)
		lines := make([]string, len(snap.Warnings))
		for i, w := range snap.Warnings {
			lines[i] = warn.Render("! " + w)
		}
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Warnings", strings.Join(lines, "\n"), cw))
	}

	return b.String()
}

type bucketRow struct {
	name      string
	requested decimal.Decimal
	allocated decimal.Decimal
}

// renderBuckets draws one funded-vs-requested bar per bucket.
func renderBuckets(rows []bucketRow, innerW int, empty string) string {
	t := theme.Active
	if len(rows) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render(empty)
	}
	labelW := max(innerW/3, 10)
	barW := max(innerW-labelW-26, 6)

	var body strings.Builder
	for i, r := range rows {
		pct := 1.0
		if r.requested.IsPositive() {
			pct, _ = r.allocated.Div(r.requested).Float64()
		}
		if i > 0 {
			body.WriteString("\n")
		}
		body.WriteString(components.LabeledBar(r.name, pct,
			cli.FormatMoneyShort(r.allocated)+"/"+cli.FormatMoneyShort(r.requested),
			components.ColorForRemaining(pct), labelW, barW))
	}
	return body.String()
}

func activeGoals(goals []model.Goal) []model.Goal {
	out := make([]model.Goal, 0, len(goals))
	for _, g := range goals {
		if !g.IsCompleted {
			out = append(out, g)
		}
	}
	return out
}
