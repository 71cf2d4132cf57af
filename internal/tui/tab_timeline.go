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

func (a App) renderTimelineTab(cw, h int) string {
	t := theme.Active
	tl := a.views.Timeline
	var b strings.Builder

	// Row 1: Summary cards
	next, until := "-", "no salary on record"
	if tl.Summary.NextSalaryDate != nil {
		next = cli.FormatDate(*tl.Summary.NextSalaryDate)
	}
	if tl.Summary.DaysUntilSalary != nil {
		until = fmt.Sprintf("in %d days", *tl.Summary.DaysUntilSalary)
	}
	endColor := t.Green
	if tl.Summary.ProjectedMonthEndBalance.IsNegative() {
		endColor = t.Red
	}
	cards := []components.Metric{
		{Label: "Next salary", Value: next, Delta: until, Color: t.GreenBright},
		{Label: "Upcoming commitments", Value: cli.FormatMoney(tl.Summary.UpcomingCommitments), Delta: "through " + cli.FormatDate(tl.To)},
		{Label: "Month-end balance", Value: cli.FormatMoney(tl.Summary.ProjectedMonthEndBalance), Delta: "projected", Color: endColor},
	}
	cardRow := components.MetricCardRow(cards, cw)
	b.WriteString(cardRow)
	b.WriteString("\n")

	// Row 2: Day list
	lines := timelineLines(tl, components.CardInnerWidth(cw))
	if len(lines) == 0 {
		b.WriteString(components.ContentCard("Timeline",
			lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("Nothing scheduled"), cw))
		return b.String()
	}

	visible := max(h-lipgloss.Height(cardRow)-3, 3)
	from, to := scrollWindow(len(lines), visible, a.timelineScroll)
	title := fmt.Sprintf("Timeline %s – %s", tl.From.Format("Jan 02"), tl.To.Format("Jan 02"))
	if from > 0 || to < len(lines) {
		title += fmt.Sprintf("  [%d-%d of %d]", from+1, to, len(lines))
	}
	b.WriteString(components.ContentCard(title, strings.Join(lines[from:to], "\n"), cw))
	return b.String()
}

// timelineLines flattens days into one header line each followed by their events.
func timelineLines(tl model.Timeline, innerW int) []string {
	t := theme.Active
	dayStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	todayStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceHover).Bold(true)
	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	doneStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	nameW := max(innerW-4-14-12-22, 10)
	var lines []string
	for _, d := range tl.Days {
		hs := dayStyle
		label := cli.FormatDate(d.Date)
		if d.Date.Equal(tl.Today) {
			hs = todayStyle
			label += " · today"
		}
		lines = append(lines, hs.Render(fmt.Sprintf("%-22s", label))+
			dimStyle.Render("  net ")+
			lipgloss.NewStyle().Foreground(amountColor(d.NetDelta.Sign())).Background(t.Surface).Render(cli.FormatDelta(d.NetDelta)))

		for _, ev := range d.Events {
			ns := nameStyle
			if ev.IsCompleted {
				ns = doneStyle
			}
			mark := "○"
			if ev.IsCompleted {
				mark = "●"
			}
			sign := eventSign(ev)
			line := dimStyle.Render("  "+mark+" ") +
				lipgloss.NewStyle().Foreground(eventColor(ev.Type)).Background(t.Surface).Render(fmt.Sprintf("%-14s", eventTypeLabel(ev.Type))) +
				ns.Render(fmt.Sprintf("%-*s", nameW, cli.Truncate(ev.Name, nameW))) +
				lipgloss.NewStyle().Foreground(amountColor(sign)).Background(t.Surface).Render(fmt.Sprintf("%12s", signedMoney(ev.Amount.Abs(), sign)))
			if ev.PaymentStatus != "" {
				line += dimStyle.Render("  ") +
					lipgloss.NewStyle().Foreground(t.ForPayment(ev.PaymentStatus)).Background(t.Surface).Render(string(ev.PaymentStatus))
			}
			lines = append(lines, line)
		}
	}
	return lines
}

// eventSign is +1 for money in, -1 for money out, 0 for estimates.
func eventSign(ev model.Event) int {
	switch ev.Type {
	case model.EventSalary:
		return 1
	case model.EventProjection:
		return 0
	case model.EventTransaction:
		if td, ok := ev.Details.(model.TransactionDetails); ok && td.Type == model.Income {
			return 1
		}
	}
	return -1
}

func signedMoney(abs decimal.Decimal, sign int) string {
	switch {
	case sign > 0:
		return cli.FormatDelta(abs)
	case sign < 0:
		return cli.FormatMoney(abs.Neg())
	}
	return "~" + cli.FormatMoney(abs)
}

func amountColor(sign int) lipgloss.Color {
	t := theme.Active
	switch {
	case sign > 0:
		return t.Green
	case sign < 0:
		return t.Red
	}
	return t.TextMuted
}

func eventColor(et model.EventType) lipgloss.Color {
	t := theme.Active
	switch et {
	case model.EventSalary:
		return t.GreenBright
	case model.EventBillDue:
		return t.Orange
	case model.EventSubscription:
		return t.Magenta
	case model.EventGoalContribution:
		return t.Blue
	case model.EventProjection:
		return t.TextDim
	}
	return t.Cyan
}

func eventTypeLabel(et model.EventType) string {
	switch et {
	case model.EventSalary:
		return "salary"
	case model.EventBillDue:
		return "bill"
	case model.EventSubscription:
		return "subscription"
	case model.EventGoalContribution:
		return "goal"
	case model.EventTransaction:
		return "transaction"
	case model.EventProjection:
		return "projection"
	}
	return strings.ToLower(string(et))
}
