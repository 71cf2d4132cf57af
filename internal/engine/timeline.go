package engine

import (
	"fmt"
	"sort"

	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/pipeline"

	"github.com/shopspring/decimal"
)

// Window limits for ProjectTimeline.
const (
	MaxDaysPast   = 90
	MaxDaysFuture = 365
)

// ClampWindow bounds a requested timeline window.
func ClampWindow(daysPast, daysFuture int) (int, int) {
	daysPast = max(0, min(daysPast, MaxDaysPast))
	daysFuture = max(1, min(daysFuture, MaxDaysFuture))
	return daysPast, daysFuture
}

// ProjectTimeline lists cash events from daysPast before today to
// daysFuture after it. Past days show only settled transactions and goal
// contributions; today and later add projected salary, bills,
// subscriptions, goal contributions and a month-end balance estimate.
// Projected events that already have a payment order carry its id and
// status. Nothing here creates payment orders.
func ProjectTimeline(l *pipeline.Ledger, s Settings, daysPast, daysFuture int) (model.Timeline, error) {
	daysPast, daysFuture = ClampWindow(daysPast, daysFuture)
	today := l.Today()
	from, to := today.AddDays(-daysPast), today.AddDays(daysFuture)
	snap := l.Snapshot()

	orders := make(map[model.PaymentKey]model.PaymentOrder, len(snap.PaymentOrders))
	for _, o := range snap.PaymentOrders {
		if o.Status != model.StatusCancelled {
			orders[o.Key()] = o
		}
	}
	link := func(ev *model.Event, src model.SourceType, id string) {
		o, ok := orders[model.PaymentKey{SourceType: src, SourceID: id, DueOn: ev.Date.String()}]
		if !ok {
			return
		}
		ev.PaymentOrderID = o.ID
		ev.PaymentStatus = o.Status
		ev.ProviderAction = o.ProviderActionURL
		if o.Status == model.StatusApproved {
			ev.IsCompleted = true
		}
	}

	goalsByID := make(map[string]model.Goal, len(snap.Goals))
	for _, g := range snap.Goals {
		goalsByID[g.ID] = g
	}

	var events []model.Event

	// Actuals up to and including today.
	for _, t := range l.TransactionsBetween(from, today) {
		if !t.IsCompleted() || t.GoalID != "" {
			continue
		}
		name := t.Description
		if name == "" {
			name = string(t.Type)
		}
		ev := model.NewEvent("txn:"+t.ID, model.DateOf(t.OccurredAt), name, t.SignedAmount(), model.TransactionDetails{
			TransactionID: t.ID,
			Type:          t.Type,
			CategoryID:    t.CategoryID,
			Status:        t.Status,
		})
		ev.IsCompleted = true
		events = append(events, ev)
	}
	for _, gl := range l.GoalLogsBetween(from, today) {
		g := goalsByID[gl.GoalID]
		ev := model.NewEvent("goallog:"+gl.ID, model.DateOf(gl.CreatedAt), g.Name, gl.Amount.Neg(), model.GoalDetails{
			GoalID:   gl.GoalID,
			LogID:    gl.ID,
			Progress: g.Progress(),
		})
		ev.IsCompleted = true
		events = append(events, ev)
	}

	// Projections from today on.
	monthStart := today.MonthStart()
	for _, b := range snap.Bills {
		for _, due := range occurrences(b.DueDay, today, to) {
			if due.MonthStart().Equal(monthStart) && b.PaidSince(monthStart) {
				continue
			}
			ev := model.NewEvent(fmt.Sprintf("bill:%s:%s", b.ID, due), due, b.Name, b.AmountEstimated.Neg(), model.BillDetails{
				BillID:         b.ID,
				DueDay:         b.DueDay,
				AutopayEnabled: b.AutopayEnabled,
				CategoryID:     b.CategoryID,
			})
			ev.IsAutomatic = b.AutopayEnabled
			link(&ev, model.SourceBill, b.ID)
			events = append(events, ev)
		}
	}

	for _, sub := range l.ActiveSubscriptions() {
		for _, due := range SubscriptionDates(sub, today, to) {
			ev := model.NewEvent(fmt.Sprintf("sub:%s:%s", sub.ID, due), due, sub.Name, sub.Amount.Neg(), model.SubscriptionDetails{
				SubscriptionID: sub.ID,
				BillingCycle:   sub.BillingCycle,
			})
			ev.IsAutomatic = true
			link(&ev, model.SourceSubscription, sub.ID)
			events = append(events, ev)
		}
	}

	contribDay := ContributionDay(l, s)
	goalReqs := make(map[string]decimal.Decimal)
	for _, g := range orderedGoals(snap.Goals) {
		req := GoalRequest(g, today, s.CatchUp)
		if !req.IsPositive() {
			continue
		}
		goalReqs[g.ID] = req
		for _, due := range occurrences(contribDay, today, to) {
			if due.Equal(today) && contributedOn(l, g.ID, today) {
				continue
			}
			ev := model.NewEvent(fmt.Sprintf("goal:%s:%s", g.ID, due), due, g.Name, req.Neg(), model.GoalDetails{
				GoalID:   g.ID,
				Progress: g.Progress(),
			})
			ev.IsAutomatic = true
			link(&ev, model.SourceGoal, g.ID)
			events = append(events, ev)
		}
	}

	salary := ExpectedSalary(l, s)
	if day, ok := SalaryDay(l, s); ok && salary.IsPositive() {
		prepared := preparedPayments(l, orderedGoals(snap.Goals), goalReqs)
		for _, payday := range occurrences(day, today, to) {
			if payday.Equal(today) && l.IncomeBetween(today, today).IsPositive() {
				continue
			}
			details := model.SalaryDetails{
				AutoPreparedPayments: prepared,
				RemainingAfter:       salary.Sub(sumPrepared(prepared)),
			}
			if srcs := l.ActiveIncomeSources(); len(srcs) > 0 {
				details.SourceID = srcs[0].ID
			}
			events = append(events, model.NewEvent("salary:"+payday.String(), payday, "Salary", salary, details))
		}
	}

	projDate := today.MonthEnd()
	if !projDate.After(today) {
		projDate = today.AddDays(1).MonthEnd()
	}
	projected := projectBalance(l, events, projDate)
	if !projDate.After(to) {
		history := l.IncomeMonthsBefore(today)
		ev := model.NewEvent("projection:"+projDate.String(), projDate, "Projected balance", projected, model.ProjectionDetails{
			Kind:        "month_end_balance",
			Confidence:  confidenceFor(history),
			Occurrences: history,
			Basis:       "current balance plus projected salary minus projected commitments",
		})
		events = append(events, ev)
	}

	sortEvents(events)
	if events == nil {
		events = []model.Event{}
	}

	tl := model.Timeline{
		Today:  today,
		From:   from,
		To:     to,
		Events: events,
		Days:   groupDays(events),
		Summary: model.TimelineSummary{
			UpcomingCommitments:      decimal.Zero,
			ProjectedMonthEndBalance: projected,
		},
	}
	for _, ev := range events {
		if ev.Date.Before(today) {
			continue
		}
		if ev.Type == model.EventSalary && tl.Summary.NextSalaryDate == nil {
			d := ev.Date
			days := today.DaysUntil(d)
			tl.Summary.NextSalaryDate = &d
			tl.Summary.DaysUntilSalary = &days
		}
		if ev.Type != model.EventProjection && !ev.IsCompleted && ev.Amount.IsNegative() {
			tl.Summary.UpcomingCommitments = tl.Summary.UpcomingCommitments.Add(ev.Amount.Abs())
		}
	}
	return tl, nil
}

// SubscriptionDates lists renewals in [from, to], rolling a stale next
// billing date forward by whole cycles.
func SubscriptionDates(sub model.Subscription, from, to model.Date) []model.Date {
	if sub.NextBillingDate.IsZero() {
		return nil
	}
	anchor := sub.NextBillingDate.Day()
	cycle := sub.CycleMonths()
	var out []model.Date
	d := sub.NextBillingDate
	for i := 1; !d.After(to); i++ {
		if !d.Before(from) {
			out = append(out, d)
		}
		d = sub.NextBillingDate.AddMonthsClamped(i*cycle, anchor)
	}
	return out
}

// ExpectedSalary is the salary a projected payday brings in: configured
// income sources, then the manual salary, then last month's income.
func ExpectedSalary(l *pipeline.Ledger, s Settings) decimal.Decimal {
	total := decimal.Zero
	for _, src := range l.ActiveIncomeSources() {
		total = total.Add(src.MonthlyAmount())
	}
	if total.IsPositive() {
		return model.Cents(total)
	}
	if s.ManualSalary != nil {
		return *s.ManualSalary
	}
	from, to := l.PreviousMonthBounds()
	return l.IncomeBetween(from, to)
}

// preparedPayments lists what autopilot deducts on payday in waterfall
// order: autopay bills, subscriptions, then goals by priority.
func preparedPayments(l *pipeline.Ledger, goals []model.Goal, reqs map[string]decimal.Decimal) []model.PreparedPayment {
	out := []model.PreparedPayment{}
	for _, b := range l.Snapshot().Bills {
		if b.AutopayEnabled {
			out = append(out, model.PreparedPayment{Kind: model.SourceBill, ID: b.ID, Name: b.Name, Amount: b.AmountEstimated})
		}
	}
	for _, sub := range l.ActiveSubscriptions() {
		out = append(out, model.PreparedPayment{Kind: model.SourceSubscription, ID: sub.ID, Name: sub.Name, Amount: model.Cents(sub.MonthlyAmount())})
	}
	for _, g := range goals {
		if req, ok := reqs[g.ID]; ok {
			out = append(out, model.PreparedPayment{Kind: model.SourceGoal, ID: g.ID, Name: g.Name, Amount: req})
		}
	}
	return out
}

func sumPrepared(ps []model.PreparedPayment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range ps {
		total = total.Add(p.Amount)
	}
	return total
}

// projectBalance adds every unsettled projected event up to day to today's
// settled balance.
func projectBalance(l *pipeline.Ledger, events []model.Event, day model.Date) decimal.Decimal {
	balance := l.BalanceAt(l.Today())
	for _, ev := range events {
		if ev.IsCompleted || ev.Type == model.EventTransaction || ev.Date.After(day) {
			continue
		}
		if ev.Date.Before(l.Today()) {
			continue
		}
		balance = balance.Add(ev.Amount)
	}
	return balance
}

func confidenceFor(months int) model.Confidence {
	switch {
	case months >= 3:
		return model.ConfidenceHigh
	case months >= 1:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func sortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Type.Order() != b.Type.Order() {
			return a.Type.Order() < b.Type.Order()
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// groupDays buckets sorted events by date. The projection is an estimate,
// not a movement, so it does not count toward a day's net delta.
func groupDays(events []model.Event) []model.TimelineDay {
	days := []model.TimelineDay{}
	for _, ev := range events {
		if n := len(days); n == 0 || !days[n-1].Date.Equal(ev.Date) {
			days = append(days, model.TimelineDay{Date: ev.Date, NetDelta: decimal.Zero})
		}
		day := &days[len(days)-1]
		day.Events = append(day.Events, ev)
		if ev.Type != model.EventProjection {
			day.NetDelta = day.NetDelta.Add(ev.Amount)
		}
	}
	return days
}
