package engine

import (
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/pipeline"
)

// MaxPrepareDays bounds how far ahead payment orders are prepared.
const MaxPrepareDays = 90

// PaymentCandidates lists the payment orders autopilot would prepare for
// the next daysAhead days: autopay bills not yet paid this cycle, active
// subscription renewals, and goal contributions on the contribution day.
// The result carries no id or status; callers dedupe on PaymentOrder.Key.
func PaymentCandidates(l *pipeline.Ledger, s Settings, daysAhead int) []model.PaymentOrder {
	daysAhead = max(0, min(daysAhead, MaxPrepareDays))
	today := l.Today()
	horizon := today.AddDays(daysAhead)
	snap := l.Snapshot()

	var out []model.PaymentOrder
	for _, b := range snap.Bills {
		if !b.AutopayEnabled || !b.AmountEstimated.IsPositive() {
			continue
		}
		for _, due := range occurrences(b.DueDay, today, horizon) {
			if b.PaidSince(due.MonthStart()) {
				continue
			}
			out = append(out, model.PaymentOrder{
				SourceType: model.SourceBill,
				SourceID:   b.ID,
				Name:       b.Name,
				Amount:     b.AmountEstimated,
				DueOn:      due,
			})
		}
	}

	for _, sub := range l.ActiveSubscriptions() {
		for _, due := range SubscriptionDates(sub, today, horizon) {
			out = append(out, model.PaymentOrder{
				SourceType: model.SourceSubscription,
				SourceID:   sub.ID,
				Name:       sub.Name,
				Amount:     sub.Amount,
				DueOn:      due,
			})
		}
	}

	contribDay := ContributionDay(l, s)
	for _, g := range orderedGoals(snap.Goals) {
		req := GoalRequest(g, today, s.CatchUp)
		if !req.IsPositive() {
			continue
		}
		for _, due := range occurrences(contribDay, today, horizon) {
			if due.Equal(today) && contributedOn(l, g.ID, today) {
				continue
			}
			out = append(out, model.PaymentOrder{
				SourceType: model.SourceGoal,
				SourceID:   g.ID,
				Name:       g.Name,
				Amount:     req,
				DueOn:      due,
			})
		}
	}
	return out
}
