package engine

import (
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/pipeline"

	"github.com/shopspring/decimal"
)

var (
	carefreeAbove = decimal.NewFromInt(50)
	mindfulAbove  = decimal.NewFromInt(20)
)

// ColorFor classifies a remaining-budget percentage.
func ColorFor(pct decimal.Decimal) model.ColorState {
	switch {
	case pct.GreaterThan(carefreeAbove):
		return model.Carefree
	case pct.GreaterThan(mindfulAbove):
		return model.Mindful
	default:
		return model.Careful
	}
}

// ColorMessage is the one-line status shown with a color state.
func ColorMessage(c model.ColorState) string {
	switch c {
	case model.Carefree:
		return "You are doing great. Spend freely."
	case model.Mindful:
		return "Mindful spending keeps you on track."
	default:
		return "Easy does it. You are close to the edge."
	}
}

// SafeToSpend computes today's allowance. The monthly total is free money
// minus discretionary spend so far this month; the daily limit re-divides
// it by the days left (today included), so yesterday's under- or overspend
// is absorbed automatically.
func SafeToSpend(l *pipeline.Ledger, s Settings) (model.SafeToSpend, error) {
	alloc, err := SalarySplit(l, s, nil)
	if err != nil {
		return model.SafeToSpend{}, err
	}

	today := l.Today()
	from, to := l.MonthBounds()
	free := alloc.Allocation.FreeMoney

	spentMonth := pipeline.Sum(l.DiscretionaryExpenses(from, to))
	monthlySafe := model.NonNegative(free.Sub(spentMonth))
	daysLeft := today.DaysLeftInMonth()
	daily := decimal.Zero
	if daysLeft > 0 {
		daily = model.Cents(monthlySafe.Div(decimal.NewFromInt(int64(daysLeft))))
	}

	// Share of the month's free money still unspent.
	pct := decimal.Zero
	if free.IsPositive() {
		pct = decimal.Min(model.Hundred, model.Cents(model.Percent(monthlySafe, free)))
	}
	color := ColorFor(pct)

	incomeToday := l.IncomeBetween(today, today)
	committedToday := pipeline.Sum(l.CommittedExpenses(today, today)).
		Add(TotalMonthly(DueUnsettled(l, s, today)))
	spentToday := pipeline.Sum(l.DiscretionaryExpenses(today, today))

	return model.SafeToSpend{
		Date:             today,
		DailyLimit:       daily,
		MonthlySafeTotal: monthlySafe,
		DaysLeftInMonth:  daysLeft,
		Percentage:       pct,
		ColorState:       color,
		StatusMessage:    ColorMessage(color),
		Breakdown: model.SafeToSpendBreakdown{
			IncomeToday:       incomeToday,
			CommittedToday:    committedToday,
			SpentToday:        spentToday,
			RemainingToday:    incomeToday.Sub(committedToday).Sub(spentToday),
			SpentThisMonth:    spentMonth,
			RemainingBudget:   monthlySafe,
			MonthlyFreeBudget: free,
		},
		Allocation: alloc,
	}, nil
}
