package engine

import (
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/pipeline"

	"github.com/shopspring/decimal"
)

// Chart ranges for the dashboard spending chart.
const (
	ChartWeek  = "week"
	ChartMonth = "month"
)

// CalcChange is the percentage change from previous to current. With no
// previous value it reports 100 for any growth and 0 otherwise.
func CalcChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsPositive() {
			return model.Hundred
		}
		return decimal.Zero
	}
	return model.Cents(current.Sub(previous).Div(previous.Abs()).Mul(model.Hundred))
}

var (
	ratioHigh = decimal.RequireFromString("0.9")
	ratioWarn = decimal.RequireFromString("0.7")
	ratioGood = decimal.RequireFromString("0.5")
)

// HealthScore rates the month from 0 to 100: spending relative to income
// moves the score, each overdue bill costs 15 points.
func HealthScore(income, expenses decimal.Decimal, overdueBills int) model.HealthScore {
	if income.IsZero() && expenses.IsZero() && overdueBills == 0 {
		return model.HealthScore{Score: 0, Label: "No Data", Message: "Add income & expenses to see your score"}
	}

	score := 100
	if income.IsPositive() {
		ratio := expenses.Div(income)
		switch {
		case ratio.GreaterThan(ratioHigh):
			score -= 30
		case ratio.GreaterThan(ratioWarn):
			score -= 10
		case ratio.LessThan(ratioGood):
			score += 10
		}
	}
	score -= 15 * overdueBills
	score = max(0, min(score, 100))

	switch {
	case score >= 80:
		return model.HealthScore{Score: score, Label: "Excellent", Message: "Financial Health is Excellent"}
	case score >= 60:
		return model.HealthScore{Score: score, Label: "Good", Message: "Financial Health is Good"}
	case score >= 40:
		return model.HealthScore{Score: score, Label: "Needs Attention", Message: "Financial Health Needs Attention"}
	default:
		return model.HealthScore{Score: score, Label: "Critical", Message: "Critical Financial Status"}
	}
}

// Summarize builds the dashboard landing view.
func Summarize(l *pipeline.Ledger, s Settings, chartRange string) (model.DashboardSummary, error) {
	safe, err := SafeToSpend(l, s)
	if err != nil {
		return model.DashboardSummary{}, err
	}

	today := l.Today()
	from, to := l.MonthBounds()
	prevFrom, prevTo := l.PreviousMonthBounds()

	income := l.IncomeBetween(from, to)
	expenses := l.ExpensesBetween(from, to)
	balance := l.TotalBalance()
	prevBalance := l.BalanceAt(from.AddDays(-1))

	savings := decimal.Zero
	for _, g := range l.Snapshot().Goals {
		savings = savings.Add(g.CurrentAmount)
	}

	chartFrom := today.AddDays(-6)
	if chartRange == ChartMonth {
		chartFrom = from
	}

	recent := l.RecentTransactions(5)
	if recent == nil {
		recent = []model.Transaction{}
	}

	return model.DashboardSummary{
		TotalBalance:       balance,
		BalanceChange:      CalcChange(balance, prevBalance),
		MonthlyIncome:      income,
		MonthlyExpenses:    expenses,
		IncomeChange:       CalcChange(income, l.IncomeBetween(prevFrom, prevTo)),
		ExpensesChange:     CalcChange(expenses, l.ExpensesBetween(prevFrom, prevTo)),
		TotalSavings:       savings,
		HealthScore:        HealthScore(income, expenses, len(OverdueBills(l))),
		RecentTransactions: recent,
		SpendingChart:      l.DailySpending(chartFrom, today),
		CategoryChart:      l.CategorySpending(from, to),
		SafeToSpendStats:   safe,
	}, nil
}
