package engine

import (
	"slices"
	"testing"
	"time"

	"github.com/theirongolddev/paycheck/internal/model"
)

func eventsOf(tl model.Timeline, typ model.EventType) []model.Event {
	var out []model.Event
	for _, ev := range tl.Events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestTimelineBillDueDay31InFebruary(t *testing.T) {
	snap := &model.Snapshot{Bills: []model.Bill{{ID: "b1", Name: "Rent", AmountEstimated: dec("900"), DueDay: 31}}}

	tl, err := ProjectTimeline(ledgerAt(t, snap, 2026, 2, 10), testSettings(), 0, 30)
	if err != nil {
		t.Fatal(err)
	}
	bills := eventsOf(tl, model.EventBillDue)
	if len(bills) != 1 {
		t.Fatalf("bill events = %d, want 1", len(bills))
	}
	if got := bills[0].Date.String(); got != "2026-02-28" {
		t.Errorf("due = %s, want 2026-02-28", got)
	}
	if !bills[0].Amount.Equal(dec("-900")) {
		t.Errorf("amount = %s, want -900", bills[0].Amount)
	}
}

func timelineSnapshot() *model.Snapshot {
	return &model.Snapshot{
		IncomeSources: []model.IncomeSource{{ID: "job", Name: "Job", Amount: dec("3000"), Frequency: model.FreqMonthly, Payday: 25, IsActive: true}},
		Bills: []model.Bill{
			{ID: "rent", Name: "Rent", AmountEstimated: dec("1000"), DueDay: 1, AutopayEnabled: true},
			{ID: "water", Name: "Water", AmountEstimated: dec("50"), DueDay: 5},
		},
		Subscriptions: []model.Subscription{{ID: "music", Name: "Music", Amount: dec("10"), BillingCycle: model.Monthly,
			NextBillingDate: model.NewDate(2026, 3, 20), IsActive: true}},
		Goals: []model.Goal{{ID: "trip", Name: "Trip", TargetAmount: dec("2000"), CurrentAmount: dec("500"),
			MonthlyContribution: decp("200"), Priority: 1}},
	}
}

func TestTimelineProjection(t *testing.T) {
	tl, err := ProjectTimeline(ledgerAt(t, timelineSnapshot(), 2026, 3, 15), testSettings(), 0, 20)
	if err != nil {
		t.Fatal(err)
	}

	salaries := eventsOf(tl, model.EventSalary)
	if len(salaries) != 1 || salaries[0].Date.String() != "2026-03-25" {
		t.Fatalf("salary events = %+v", salaries)
	}
	details := salaries[0].Details.(model.SalaryDetails)
	var names []string
	for _, p := range details.AutoPreparedPayments {
		names = append(names, p.Name)
	}
	if want := []string{"Rent", "Music", "Trip"}; !slices.Equal(names, want) {
		t.Errorf("prepared = %v, want %v", names, want)
	}
	if !details.RemainingAfter.Equal(dec("1790")) {
		t.Errorf("remaining_after = %s, want 1790", details.RemainingAfter)
	}

	goals := eventsOf(tl, model.EventGoalContribution)
	if len(goals) != 1 || goals[0].Date.String() != "2026-03-25" {
		t.Fatalf("goal events = %+v", goals)
	}
	if p := goals[0].Details.(model.GoalDetails).Progress; !p.Equal(dec("25")) {
		t.Errorf("progress = %s, want 25", p)
	}

	bills := eventsOf(tl, model.EventBillDue)
	if len(bills) != 1 || bills[0].Name != "Rent" || bills[0].Date.String() != "2026-04-01" {
		t.Errorf("bill events = %+v", bills)
	}
	if !bills[0].IsAutomatic {
		t.Error("autopay bill should be automatic")
	}

	proj := eventsOf(tl, model.EventProjection)
	if len(proj) != 1 || proj[0].Date.String() != "2026-03-31" {
		t.Fatalf("projection = %+v", proj)
	}
	// 0 balance + 3000 salary - 10 music - 200 trip.
	if !proj[0].Amount.Equal(dec("2790")) {
		t.Errorf("projected = %s, want 2790", proj[0].Amount)
	}
	if c := proj[0].Details.(model.ProjectionDetails).Confidence; c != model.ConfidenceLow {
		t.Errorf("confidence = %s, want low", c)
	}

	s := tl.Summary
	if s.NextSalaryDate == nil || s.NextSalaryDate.String() != "2026-03-25" || *s.DaysUntilSalary != 10 {
		t.Errorf("next salary = %v in %v days", s.NextSalaryDate, s.DaysUntilSalary)
	}
	if !s.UpcomingCommitments.Equal(dec("1210")) {
		t.Errorf("upcoming = %s, want 1210", s.UpcomingCommitments)
	}

	for _, day := range tl.Days {
		if day.Date.String() != "2026-03-25" {
			continue
		}
		if day.Events[0].Type != model.EventSalary {
			t.Errorf("first event on payday = %s, want SALARY", day.Events[0].Type)
		}
		if !day.NetDelta.Equal(dec("2800")) {
			t.Errorf("payday net = %s, want 2800", day.NetDelta)
		}
	}
}

func TestProjectionConfidenceFollowsIncomeHistory(t *testing.T) {
	paid := []time.Time{
		time.Date(2026, 2, 25, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 25, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 24, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 11, 25, 9, 0, 0, 0, time.UTC),
	}
	tests := []struct {
		months int
		want   model.Confidence
	}{
		{0, model.ConfidenceLow},
		{1, model.ConfidenceMedium},
		{2, model.ConfidenceMedium},
		{3, model.ConfidenceHigh},
		{4, model.ConfidenceHigh},
	}
	for _, tt := range tests {
		snap := timelineSnapshot()
		// Income this month and unsettled income never count as history.
		snap.Transactions = []model.Transaction{
			{ID: "this-month", Type: model.Income, Amount: dec("100"), Status: model.Completed,
				OccurredAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
			{ID: "pending", Type: model.Income, Amount: dec("100"), Status: model.Pending,
				OccurredAt: time.Date(2025, 10, 25, 9, 0, 0, 0, time.UTC)},
		}
		for _, at := range paid[:tt.months] {
			snap.Transactions = append(snap.Transactions, model.Transaction{
				ID: "salary-" + at.Format("2006-01"), Type: model.Income, Amount: dec("3000"),
				Status: model.Completed, OccurredAt: at,
			})
		}

		tl, err := ProjectTimeline(ledgerAt(t, snap, 2026, 3, 15), testSettings(), 0, 20)
		if err != nil {
			t.Fatal(err)
		}
		proj := eventsOf(tl, model.EventProjection)
		if len(proj) != 1 {
			t.Fatalf("%d months: projection events = %d, want 1", tt.months, len(proj))
		}
		if got := proj[0].Details.(model.ProjectionDetails).Confidence; got != tt.want {
			t.Errorf("%d months of income: confidence = %s, want %s", tt.months, got, tt.want)
		}
	}
}

func TestTimelinePastShowsOnlyActuals(t *testing.T) {
	snap := timelineSnapshot()
	snap.Transactions = []model.Transaction{
		expense("coffee", "4", 10, func(t *model.Transaction) { t.Description = "Coffee" }),
		expense("pending", "9", 11, func(t *model.Transaction) { t.Status = model.Pending }),
		expense("saved", "50", 12, func(t *model.Transaction) { t.GoalID = "trip" }),
	}
	snap.GoalLogs = []model.GoalLog{{ID: "log1", GoalID: "trip", Amount: dec("50"), TransactionID: "saved",
		CreatedAt: time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)}}

	tl, err := ProjectTimeline(ledgerAt(t, snap, 2026, 3, 15), testSettings(), 7, 1)
	if err != nil {
		t.Fatal(err)
	}
	var past []string
	for _, ev := range tl.Events {
		if ev.Date.Before(model.NewDate(2026, 3, 15)) {
			if !ev.IsCompleted {
				t.Errorf("past event %s is not completed", ev.ID)
			}
			past = append(past, ev.ID)
		}
	}
	if want := []string{"txn:coffee", "goallog:log1"}; !slices.Equal(past, want) {
		t.Errorf("past events = %v, want %v", past, want)
	}
}

func TestTimelineLinksPaymentOrders(t *testing.T) {
	snap := timelineSnapshot()
	snap.PaymentOrders = []model.PaymentOrder{{
		ID: "po1", SourceType: model.SourceSubscription, SourceID: "music",
		DueOn: model.NewDate(2026, 3, 20), Status: model.StatusFailed,
	}}

	tl, err := ProjectTimeline(ledgerAt(t, snap, 2026, 3, 15), testSettings(), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	subs := eventsOf(tl, model.EventSubscription)
	if len(subs) != 1 {
		t.Fatalf("subscription events = %d", len(subs))
	}
	if subs[0].PaymentOrderID != "po1" || subs[0].PaymentStatus != model.StatusFailed {
		t.Errorf("link = %q %q", subs[0].PaymentOrderID, subs[0].PaymentStatus)
	}
	if subs[0].IsCompleted {
		t.Error("failed payment should not complete the event")
	}
}

func TestClampWindow(t *testing.T) {
	tests := []struct{ past, future, wantPast, wantFuture int }{
		{-5, 0, 0, 1},
		{500, 1000, 90, 365},
		{7, 30, 7, 30},
	}
	for _, tt := range tests {
		p, f := ClampWindow(tt.past, tt.future)
		if p != tt.wantPast || f != tt.wantFuture {
			t.Errorf("ClampWindow(%d, %d) = %d, %d; want %d, %d", tt.past, tt.future, p, f, tt.wantPast, tt.wantFuture)
		}
	}
}

func TestSubscriptionDates(t *testing.T) {
	monthly := model.Subscription{BillingCycle: model.Monthly, NextBillingDate: model.NewDate(2026, 1, 31)}
	var got []string
	for _, d := range SubscriptionDates(monthly, model.NewDate(2026, 1, 1), model.NewDate(2026, 4, 30)) {
		got = append(got, d.String())
	}
	if want := []string{"2026-01-31", "2026-02-28", "2026-03-31", "2026-04-30"}; !slices.Equal(got, want) {
		t.Errorf("monthly = %v, want %v", got, want)
	}

	yearly := model.Subscription{BillingCycle: model.Yearly, NextBillingDate: model.NewDate(2026, 1, 31)}
	got = nil
	for _, d := range SubscriptionDates(yearly, model.NewDate(2026, 3, 1), model.NewDate(2028, 3, 1)) {
		got = append(got, d.String())
	}
	if want := []string{"2027-01-31", "2028-01-31"}; !slices.Equal(got, want) {
		t.Errorf("yearly = %v, want %v", got, want)
	}
}
