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

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	sum := a.views.Summary
	sts := sum.SafeToSpendStats
	var b strings.Builder

	// Row 1: Metric cards
	stateColor := t.ForState(sts.ColorState)
	cards := []components.Metric{
		{
			Label: "Safe today",
			Value: cli.FormatMoney(sts.Breakdown.RemainingToday),
			Delta: "limit " + cli.FormatMoney(sts.DailyLimit) + "/day",
			Color: stateColor,
		},
		{
			Label: "Left this month",
			Value: cli.FormatMoney(sts.Breakdown.RemainingBudget),
			Delta: fmt.Sprintf("%d days left", sts.DaysLeftInMonth),
			Color: stateColor,
		},
		{
			Label: "Balance",
			Value: cli.FormatMoney(sum.TotalBalance),
			Delta: cli.FormatDelta(sum.BalanceChange) + " vs last month",
		},
		{
			Label: "Health",
			Value: fmt.Sprintf("%d · %s", sum.HealthScore.Score, sum.HealthScore.Label),
			Delta: sum.HealthScore.Message,
			Color: healthColor(sum.HealthScore.Score),
		},
	}
	b.WriteString(components.MetricCardRow(cards, cw))
	b.WriteString("\n")

	// Row 2: free-money gauge
	innerW := components.CardInnerWidth(cw)
	pct, _ := sts.Percentage.Div(model.Hundred).Float64()
	var gauge strings.Builder
	gauge.WriteString(components.LabeledBar("Remaining", pct,
		cli.FormatMoney(sts.Breakdown.RemainingBudget)+" of "+cli.FormatMoney(sts.Breakdown.MonthlyFreeBudget),
		stateColor, 12, max(innerW-50, 10)))
	gauge.WriteString("\n")
	gauge.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(sts.StatusMessage))
	b.WriteString(components.ContentCard("Safe to Spend · "+string(sts.ColorState), gauge.String(), cw))
	b.WriteString("\n")

	// Row 3: Spending chart
	if len(sum.SpendingChart) > 0 {
		vals := make([]float64, len(sum.SpendingChart))
		labels := make([]string, len(sum.SpendingChart))
		for i, p := range sum.SpendingChart {
			vals[i], _ = p.Amount.Float64()
			labels[i] = p.Label
		}
		chartH := 10
		if a.isCompactLayout() {
			chartH = 7
		}
		b.WriteString(components.ContentCard(
			fmt.Sprintf("Daily Spending (%dd)", len(vals)),
			components.BarChart(vals, labels, t.Blue, innerW, chartH),
			cw,
		))
		b.WriteString("\n")
	}

	// Row 4: Income/expenses + categories
	halves := components.LayoutRow(cw, 2)

	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	var flow strings.Builder
	fmt.Fprintf(&flow, "%s %s %s\n",
		muted.Render(fmt.Sprintf("%-10s", "Income")),
		lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface).Render(fmt.Sprintf("%12s", cli.FormatMoney(sum.MonthlyIncome))),
		muted.Render(cli.FormatDelta(sum.IncomeChange)))
	fmt.Fprintf(&flow, "%s %s %s\n",
		muted.Render(fmt.Sprintf("%-10s", "Expenses")),
		lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Render(fmt.Sprintf("%12s", cli.FormatMoney(sum.MonthlyExpenses))),
		muted.Render(cli.FormatDelta(sum.ExpensesChange)))
	fmt.Fprintf(&flow, "%s %s",
		muted.Render(fmt.Sprintf("%-10s", "Savings")),
		lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Render(fmt.Sprintf("%12s", cli.FormatMoney(sum.TotalSavings))))

	spent := 0.0
	if sum.MonthlyIncome.IsPositive() {
		spent, _ = sum.MonthlyExpenses.Div(sum.MonthlyIncome).Float64()
	}
	flow.WriteString("\n\n")
	flow.WriteString(components.CompactBar("Spent of income", spent,
		components.ColorForRemaining(1-spent), components.CardInnerWidth(halves[0])))

	catBody := renderCategoryBars(sum.CategoryChart, components.CardInnerWidth(halves[1]))

	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("This Month", flow.String(), cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Top Categories", catBody, cw))
	} else {
		b.WriteString(components.CardRow([]string{
			components.ContentCard("This Month", flow.String(), halves[0]),
			components.ContentCard("Top Categories", catBody, halves[1]),
		}))
	}

	return b.String()
}

func renderCategoryBars(slices []model.CategorySlice, innerW int) string {
	t := theme.Active
	if len(slices) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("No spending yet this month")
	}

	limit := min(len(slices), 6)
	maxAmt := decimal.Zero
	for _, s := range slices[:limit] {
		maxAmt = decimal.Max(maxAmt, s.Amount)
	}

	nameW := max(innerW/3, 10)
	amtW := 10
	barMax := max(innerW-nameW-amtW-2, 1)

	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	amtStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var body strings.Builder
	for i, s := range slices[:limit] {
		barLen := 0
		if maxAmt.IsPositive() {
			barLen = int(s.Amount.Div(maxAmt).Mul(decimal.NewFromInt(int64(barMax))).IntPart())
		}
		if i > 0 {
			body.WriteString("\n")
		}
		fmt.Fprintf(&body, "%s %s %s",
			nameStyle.Render(fmt.Sprintf("%-*s", nameW, cli.Truncate(s.Name, nameW))),
			amtStyle.Render(fmt.Sprintf("%*s", amtW, cli.FormatMoneyShort(s.Amount))),
			barStyle.Render(strings.Repeat("█", barLen)))
	}
	return body.String()
}

func healthColor(score int) lipgloss.Color {
	t := theme.Active
	switch {
	case score >= 70:
		return t.Green
	case score >= 40:
		return t.Yellow
	case score > 0:
		return t.Red
	default:
		return t.TextMuted
	}
}
