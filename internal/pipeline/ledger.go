// Package pipeline reads ledger snapshots into time-windowed views and
// aggregations, and loads ledger imports through a bounded worker pool.
package pipeline

import (
	"time"

	"github.com/theirongolddev/paycheck/internal/model"

	"github.com/shopspring/decimal"
)

// Ledger is a read-only view over one snapshot at a fixed "now".
type Ledger struct {
	snap  *model.Snapshot
	now   time.Time
	today model.Date
	ruled map[string]struct{}
}

// NewLedger wraps snap. All window helpers use UTC calendar days.
func NewLedger(snap *model.Snapshot, now time.Time) *Ledger {
	if snap == nil {
		snap = &model.Snapshot{}
	}
	ruled := make(map[string]struct{}, len(snap.Rules))
	for _, r := range snap.Rules {
		ruled[r.CategoryID] = struct{}{}
	}
	return &Ledger{snap: snap, now: now.UTC(), today: model.DateOf(now), ruled: ruled}
}

// Snapshot returns the underlying snapshot.
func (l *Ledger) Snapshot() *model.Snapshot { return l.snap }

// Now returns the instant the view was built for.
func (l *Ledger) Now() time.Time { return l.now }

// Today returns the current calendar day.
func (l *Ledger) Today() model.Date { return l.today }

// MonthBounds returns the first and last day of the current month.
func (l *Ledger) MonthBounds() (from, to model.Date) {
	return l.today.MonthStart(), l.today.MonthEnd()
}

// PreviousMonthBounds returns the first and last day of the previous month.
func (l *Ledger) PreviousMonthBounds() (from, to model.Date) {
	start := l.today.MonthStart().AddDays(-1).MonthStart()
	return start, start.MonthEnd()
}

func within(t time.Time, from, to model.Date) bool {
	d := model.DateOf(t)
	return !d.Before(from) && !d.After(to)
}

// TransactionsBetween returns transactions that occurred on days in [from, to].
func (l *Ledger) TransactionsBetween(from, to model.Date) []model.Transaction {
	var out []model.Transaction
	for _, t := range l.snap.Transactions {
		if within(t.OccurredAt, from, to) {
			out = append(out, t)
		}
	}
	return out
}

// CompletedExpenses returns settled expenses in [from, to].
func (l *Ledger) CompletedExpenses(from, to model.Date) []model.Transaction {
	var out []model.Transaction
	for _, t := range l.TransactionsBetween(from, to) {
		if t.Type == model.Expense && t.IsCompleted() {
			out = append(out, t)
		}
	}
	return out
}

// CompletedIncome returns settled income in [from, to].
func (l *Ledger) CompletedIncome(from, to model.Date) []model.Transaction {
	var out []model.Transaction
	for _, t := range l.TransactionsBetween(from, to) {
		if t.Type == model.Income && t.IsCompleted() {
			out = append(out, t)
		}
	}
	return out
}

// IncomeBetween sums settled income in [from, to].
func (l *Ledger) IncomeBetween(from, to model.Date) decimal.Decimal {
	return Sum(l.CompletedIncome(from, to))
}

// ExpensesBetween sums settled expenses in [from, to].
func (l *Ledger) ExpensesBetween(from, to model.Date) decimal.Decimal {
	return Sum(l.CompletedExpenses(from, to))
}

// IsDiscretionary reports whether a settled expense comes out of free money:
// it pays no bill, subscription or goal, and its category has no budget rule.
func (l *Ledger) IsDiscretionary(t model.Transaction) bool {
	if t.Type != model.Expense || !t.IsCompleted() || t.IsLinked() {
		return false
	}
	if t.CategoryID == "" {
		return true
	}
	_, ruled := l.ruled[t.CategoryID]
	return !ruled
}

// DiscretionaryExpenses returns settled discretionary expenses in [from, to].
func (l *Ledger) DiscretionaryExpenses(from, to model.Date) []model.Transaction {
	var out []model.Transaction
	for _, t := range l.TransactionsBetween(from, to) {
		if l.IsDiscretionary(t) {
			out = append(out, t)
		}
	}
	return out
}

// CommittedExpenses returns settled expenses in [from, to] that pay a bill,
// subscription or goal.
func (l *Ledger) CommittedExpenses(from, to model.Date) []model.Transaction {
	var out []model.Transaction
	for _, t := range l.CompletedExpenses(from, to) {
		if t.IsLinked() {
			out = append(out, t)
		}
	}
	return out
}

// CategorySpent sums settled expenses in a category over [from, to].
func (l *Ledger) CategorySpent(categoryID string, from, to model.Date) decimal.Decimal {
	total := decimal.Zero
	for _, t := range l.CompletedExpenses(from, to) {
		if t.CategoryID == categoryID {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// PendingTransactions returns every unsettled transaction.
func (l *Ledger) PendingTransactions() []model.Transaction {
	var out []model.Transaction
	for _, t := range l.snap.Transactions {
		if !t.IsCompleted() {
			out = append(out, t)
		}
	}
	return out
}

// UncategorizedExpenses returns expenses since the given day with no
// category (or a category that no longer exists).
func (l *Ledger) UncategorizedExpenses(since model.Date) []model.Transaction {
	var out []model.Transaction
	for _, t := range l.snap.Transactions {
		if t.Type != model.Expense || model.DateOf(t.OccurredAt).Before(since) {
			continue
		}
		if t.CategoryID == "" || l.snap.CategoryName(t.CategoryID) == "" {
			out = append(out, t)
		}
	}
	return out
}

// GoalLogsBetween returns contributions made on days in [from, to].
func (l *Ledger) GoalLogsBetween(from, to model.Date) []model.GoalLog {
	var out []model.GoalLog
	for _, g := range l.snap.GoalLogs {
		if within(g.CreatedAt, from, to) {
			out = append(out, g)
		}
	}
	return out
}

// TotalBalance is all settled income minus all settled expenses.
func (l *Ledger) TotalBalance() decimal.Decimal {
	total := decimal.Zero
	for _, t := range l.snap.Transactions {
		if t.IsCompleted() {
			total = total.Add(t.SignedAmount())
		}
	}
	return total
}

// BalanceAt is the settled balance at the end of day.
func (l *Ledger) BalanceAt(day model.Date) decimal.Decimal {
	total := decimal.Zero
	for _, t := range l.snap.Transactions {
		if t.IsCompleted() && !model.DateOf(t.OccurredAt).After(day) {
			total = total.Add(t.SignedAmount())
		}
	}
	return total
}

// ActiveSubscriptions returns subscriptions that still renew.
func (l *Ledger) ActiveSubscriptions() []model.Subscription {
	var out []model.Subscription
	for _, s := range l.snap.Subscriptions {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out
}

// OpenGoals returns goals that are not completed, in allocation order.
func (l *Ledger) OpenGoals() []model.Goal {
	var out []model.Goal
	for _, g := range l.snap.Goals {
		if !g.IsCompleted {
			out = append(out, g)
		}
	}
	return out
}

// ActiveIncomeSources returns income sources marked active.
func (l *Ledger) ActiveIncomeSources() []model.IncomeSource {
	var out []model.IncomeSource
	for _, s := range l.snap.IncomeSources {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out
}

// IncomeMonthsBefore counts distinct calendar months before day's month
// that recorded settled income.
func (l *Ledger) IncomeMonthsBefore(day model.Date) int {
	start := day.MonthStart()
	months := make(map[string]struct{})
	for _, t := range l.snap.Transactions {
		if t.Type != model.Income || !t.IsCompleted() {
			continue
		}
		d := model.DateOf(t.OccurredAt)
		if d.Before(start) {
			months[d.Format("2006-01")] = struct{}{}
		}
	}
	return len(months)
}

// TypicalIncomeDay returns the most frequent day-of-month of settled income
// before today. Ties go to the earlier day.
func (l *Ledger) TypicalIncomeDay() (int, bool) {
	counts := make(map[int]int)
	for _, t := range l.snap.Transactions {
		if t.Type != model.Income || !t.IsCompleted() {
			continue
		}
		d := model.DateOf(t.OccurredAt)
		if d.Before(l.today) {
			counts[d.Day()]++
		}
	}
	best, bestN := 0, 0
	for day := 1; day <= 31; day++ {
		if n := counts[day]; n > bestN {
			best, bestN = day, n
		}
	}
	return best, bestN > 0
}

// Sum totals transaction magnitudes.
func Sum(txns []model.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		total = total.Add(t.Amount)
	}
	return total
}
