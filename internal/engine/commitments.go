package engine

import (
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/pipeline"

	"github.com/shopspring/decimal"
)

// CommitmentItem is one recurring obligation normalized to a month.
type CommitmentItem struct {
	Kind    model.SourceType `json:"kind"`
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Monthly decimal.Decimal  `json:"monthly"`
	DueOn   model.Date       `json:"due_on"`
	Autopay bool             `json:"autopay"`
}

// Commitments is the month's non-discretionary load.
type Commitments struct {
	Bills         decimal.Decimal  `json:"bills"`
	Subscriptions decimal.Decimal  `json:"subscriptions"`
	GoalMinimums  decimal.Decimal  `json:"goal_minimums"`
	Total         decimal.Decimal  `json:"total"`
	Items         []CommitmentItem `json:"items"`
}

// Recurring is the bills and subscriptions portion, which is what the
// allocation reserves before budget rules. Goal minimums are funded in the
// goal step instead.
func (c Commitments) Recurring() decimal.Decimal {
	return c.Bills.Add(c.Subscriptions)
}

// ResolveCommitments sums every bill, every active subscription (yearly
// divided by 12) and the monthly contribution of every open goal. Bill due
// dates are clamped to the current month's length.
func ResolveCommitments(l *pipeline.Ledger, s Settings) Commitments {
	today := l.Today()
	snap := l.Snapshot()
	c := Commitments{
		Bills:         decimal.Zero,
		Subscriptions: decimal.Zero,
		GoalMinimums:  decimal.Zero,
	}

	for _, b := range snap.Bills {
		c.Bills = c.Bills.Add(b.AmountEstimated)
		c.Items = append(c.Items, CommitmentItem{
			Kind:    model.SourceBill,
			ID:      b.ID,
			Name:    b.Name,
			Monthly: b.AmountEstimated,
			DueOn:   b.DueIn(today),
			Autopay: b.AutopayEnabled,
		})
	}

	for _, sub := range l.ActiveSubscriptions() {
		monthly := model.Cents(sub.MonthlyAmount())
		c.Subscriptions = c.Subscriptions.Add(monthly)
		c.Items = append(c.Items, CommitmentItem{
			Kind:    model.SourceSubscription,
			ID:      sub.ID,
			Name:    sub.Name,
			Monthly: monthly,
			DueOn:   sub.NextBillingDate,
			Autopay: true,
		})
	}

	contribDay := ContributionDay(l, s)
	for _, g := range l.OpenGoals() {
		if g.MonthlyContribution == nil || !g.MonthlyContribution.IsPositive() {
			continue
		}
		c.GoalMinimums = c.GoalMinimums.Add(*g.MonthlyContribution)
		c.Items = append(c.Items, CommitmentItem{
			Kind:    model.SourceGoal,
			ID:      g.ID,
			Name:    g.Name,
			Monthly: *g.MonthlyContribution,
			DueOn:   model.ClampDay(today.Year(), today.Month(), contribDay),
			Autopay: true,
		})
	}

	c.Total = c.Bills.Add(c.Subscriptions).Add(c.GoalMinimums)
	return c
}

// DueUnsettled returns the commitments that fall due on day and have not
// been paid yet this cycle.
func DueUnsettled(l *pipeline.Ledger, s Settings, day model.Date) []CommitmentItem {
	var out []CommitmentItem
	snap := l.Snapshot()
	for _, b := range snap.Bills {
		if b.DueIn(day).Equal(day) && !b.PaidSince(day.MonthStart()) {
			out = append(out, CommitmentItem{Kind: model.SourceBill, ID: b.ID, Name: b.Name,
				Monthly: b.AmountEstimated, DueOn: day, Autopay: b.AutopayEnabled})
		}
	}
	for _, sub := range l.ActiveSubscriptions() {
		if sub.NextBillingDate.Equal(day) {
			out = append(out, CommitmentItem{Kind: model.SourceSubscription, ID: sub.ID, Name: sub.Name,
				Monthly: sub.Amount, DueOn: day, Autopay: true})
		}
	}
	if model.ClampDay(day.Year(), day.Month(), ContributionDay(l, s)).Equal(day) {
		for _, g := range l.OpenGoals() {
			if g.MonthlyContribution == nil || !g.MonthlyContribution.IsPositive() {
				continue
			}
			if contributedOn(l, g.ID, day) {
				continue
			}
			out = append(out, CommitmentItem{Kind: model.SourceGoal, ID: g.ID, Name: g.Name,
				Monthly: *g.MonthlyContribution, DueOn: day, Autopay: true})
		}
	}
	return out
}

func contributedOn(l *pipeline.Ledger, goalID string, day model.Date) bool {
	for _, log := range l.GoalLogsBetween(day, day) {
		if log.GoalID == goalID {
			return true
		}
	}
	return false
}

// TotalMonthly sums item amounts.
func TotalMonthly(items []CommitmentItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Monthly)
	}
	return total
}

// isOverdue reports whether this month's due date passed more than a day
// ago without a payment.
func isOverdue(b model.Bill, today model.Date) bool {
	due := b.DueIn(today)
	return !b.PaidSince(due) && today.DaysUntil(due) < -1
}

// OverdueBills returns bills whose due date this month has passed unpaid.
func OverdueBills(l *pipeline.Ledger) []model.Bill {
	var out []model.Bill
	for _, b := range l.Snapshot().Bills {
		if isOverdue(b, l.Today()) {
			out = append(out, b)
		}
	}
	return out
}
