package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/theirongolddev/paycheck/internal/config"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/pipeline"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal { return model.DecPtr(dec(s)) }

func datep(y int, m time.Month, d int) *model.Date {
	day := model.NewDate(y, m, d)
	return &day
}

var march15 = model.NewDate(2026, 3, 15)

func testSettings() Settings {
	return Settings{FloorPct: dec("10"), CatchUp: config.CatchUpLarger}
}

func ledgerAt(t *testing.T, snap *model.Snapshot, y int, m time.Month, d int) *pipeline.Ledger {
	t.Helper()
	return pipeline.NewLedger(snap, time.Date(y, m, d, 12, 0, 0, 0, time.UTC))
}

func scenarioInput() AllocationInput {
	return AllocationInput{
		Salary:      dec("5000"),
		Commitments: Commitments{Bills: dec("2000"), Subscriptions: decimal.Zero},
		Rules: []model.BudgetRule{
			{ID: "r1", CategoryID: "c1", AllocationType: model.AllocFixed, AllocationValue: dec("1500")},
		},
		Goals: []model.Goal{
			{ID: "g1", Name: "House", TargetAmount: dec("100000"), CurrentAmount: decimal.Zero, MonthlyContribution: decp("2000"), Priority: 1},
		},
		Categories: map[string]string{"c1": "Groceries"},
		Policy:     testSettings().Policy(),
		Today:      march15,
	}
}

func TestAllocateScenario(t *testing.T) {
	got, err := Allocate(scenarioInput())
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	a := got.Allocation
	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"commitments", a.Commitments, "2000"},
		{"planned_expenses", a.PlannedExpenses, "1500"},
		{"goals", a.Goals, "1500"},
		{"free_money", a.FreeMoney, "0"},
		{"floor_target", a.FreeMoneyFloorTarget, "500"},
		{"requested", got.Totals.Requested, "5500"},
		{"allocated", got.Totals.Allocated, "5000"},
		{"shortfall", got.Totals.Shortfall, "500"},
		{"coverage", got.Totals.CommitmentCoverageRatio, "2.5"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if a.FreeMoneyFloorMet {
		t.Error("free_money_floor_met = true, want false")
	}
	if !slices.Contains(got.Warnings, "goal_underfunded:g1") {
		t.Errorf("warnings = %v, want goal_underfunded:g1", got.Warnings)
	}
	if !slices.Contains(got.Warnings, WarnBelowFloor) {
		t.Errorf("warnings = %v, want %s", got.Warnings, WarnBelowFloor)
	}
	if got.StatusMessage != msgGoalsPartial {
		t.Errorf("status = %q, want %q", got.StatusMessage, msgGoalsPartial)
	}
	if got.Buckets.PlannedExpenses[0].CategoryName != "Groceries" {
		t.Errorf("category name = %q", got.Buckets.PlannedExpenses[0].CategoryName)
	}
}

func TestAllocateCommitmentsExceedSalary(t *testing.T) {
	in := scenarioInput()
	in.Salary = dec("1000")
	in.Commitments.Bills = dec("1500")

	got, err := Allocate(in)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	a := got.Allocation
	if !a.Commitments.Equal(dec("1000")) {
		t.Errorf("commitments = %s, want clamped to 1000", a.Commitments)
	}
	if !a.PlannedExpenses.IsZero() || !a.Goals.IsZero() || !a.FreeMoney.IsZero() {
		t.Errorf("downstream buckets = %s/%s/%s, want all zero", a.PlannedExpenses, a.Goals, a.FreeMoney)
	}
	want := []string{WarnCommitmentsExceedSalary, "planned_expense_underfunded:r1", "goal_underfunded:g1", WarnBelowFloor}
	if !slices.Equal(got.Warnings, want) {
		t.Errorf("warnings = %v, want %v", got.Warnings, want)
	}
	if got.StatusMessage != msgUncovered {
		t.Errorf("status = %q", got.StatusMessage)
	}
}

func TestAllocateConservation(t *testing.T) {
	for _, salary := range []string{"0", "100", "2000", "2500", "3500", "5000", "5500", "12000"} {
		in := scenarioInput()
		in.Salary = dec(salary)
		got, err := Allocate(in)
		if err != nil {
			t.Fatalf("Allocate(%s): %v", salary, err)
		}
		a := got.Allocation
		for _, part := range []decimal.Decimal{a.Commitments, a.PlannedExpenses, a.Goals, a.FreeMoney} {
			if part.IsNegative() {
				t.Errorf("salary %s: negative bucket %s", salary, part)
			}
		}
		sum := a.Commitments.Add(a.PlannedExpenses).Add(a.Goals).Add(a.FreeMoney)
		if !sum.Equal(in.Salary) {
			t.Errorf("salary %s: buckets sum to %s", salary, sum)
		}
		funded := a.Commitments.Add(a.PlannedExpenses).Add(a.Goals)
		if want := decimal.Min(in.Salary, got.Totals.Requested); !funded.Equal(want) {
			t.Errorf("salary %s: funded = %s, want %s", salary, funded, want)
		}
	}
}

func TestAllocateIdempotent(t *testing.T) {
	in := scenarioInput()
	first, err := Allocate(in)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Allocate(in)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Errorf("outputs differ:\n%s\n%s", a, b)
	}
}

func TestAllocateFreeMoneyMonotonic(t *testing.T) {
	in := scenarioInput()
	in.Rules = append(in.Rules, model.BudgetRule{
		ID: "r2", CategoryID: "c2", AllocationType: model.AllocPercent,
		AllocationValue: dec("20"), MonthlyLimit: decp("900"), Position: 1,
	})
	in.Categories["c2"] = "Fun"

	prev := decimal.Zero
	for s := int64(0); s <= 12000; s += 250 {
		in.Salary = decimal.NewFromInt(s)
		got, err := Allocate(in)
		if err != nil {
			t.Fatal(err)
		}
		if got.Allocation.FreeMoney.LessThan(prev) {
			t.Fatalf("salary %d: free money %s dropped below %s", s, got.Allocation.FreeMoney, prev)
		}
		prev = got.Allocation.FreeMoney
	}
}

func TestAllocateRuleOrderAndPercent(t *testing.T) {
	in := scenarioInput()
	in.Salary = dec("3000")
	in.Commitments = Commitments{Bills: decimal.Zero, Subscriptions: decimal.Zero}
	in.Goals = nil
	in.Categories = map[string]string{"a": "A", "b": "B", "c": "C"}
	in.Rules = []model.BudgetRule{
		{ID: "late", CategoryID: "a", AllocationType: model.AllocFixed, AllocationValue: dec("100"), Position: 2},
		{ID: "pct", CategoryID: "b", AllocationType: model.AllocPercent, AllocationValue: dec("10"), MonthlyLimit: decp("250"), Position: 1,
			CreatedAt: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "first", CategoryID: "c", AllocationType: model.AllocFixed, AllocationValue: dec("50"), Position: 1,
			CreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	got, err := Allocate(in)
	if err != nil {
		t.Fatal(err)
	}
	var order []string
	for _, b := range got.Buckets.PlannedExpenses {
		order = append(order, b.RuleID)
	}
	if want := []string{"first", "pct", "late"}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if req := got.Buckets.PlannedExpenses[1].Requested; !req.Equal(dec("250")) {
		t.Errorf("percent request = %s, want 300 capped to 250", req)
	}
}

func TestAllocateGoalOrder(t *testing.T) {
	in := scenarioInput()
	in.Salary = dec("10000")
	in.Commitments = Commitments{Bills: decimal.Zero, Subscriptions: decimal.Zero}
	in.Rules = nil
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	in.Goals = []model.Goal{
		{ID: "b", Name: "B", TargetAmount: dec("500"), MonthlyContribution: decp("10"), Priority: 1, CreatedAt: late},
		{ID: "c", Name: "C", TargetAmount: dec("500"), MonthlyContribution: decp("10"), Priority: 2, CreatedAt: early},
		{ID: "a", Name: "A", TargetAmount: dec("500"), MonthlyContribution: decp("10"), Priority: 1, CreatedAt: early},
		{ID: "done", Name: "Done", TargetAmount: dec("500"), CurrentAmount: dec("500"), Priority: 1, IsCompleted: true},
	}

	got, err := Allocate(in)
	if err != nil {
		t.Fatal(err)
	}
	var order []string
	for _, b := range got.Buckets.Goals {
		order = append(order, b.GoalID)
	}
	if want := []string{"a", "b", "c"}; !slices.Equal(order, want) {
		t.Errorf("goal order = %v, want %v", order, want)
	}
}

func TestGoalRequest(t *testing.T) {
	tests := []struct {
		name    string
		goal    model.Goal
		catchUp string
		want    string
	}{
		{
			name:    "catch-up exceeds contribution",
			goal:    model.Goal{TargetAmount: dec("1200"), MonthlyContribution: decp("50"), TargetDate: datep(2026, 12, 31)},
			catchUp: config.CatchUpLarger,
			want:    "120",
		},
		{
			name:    "capped keeps configured contribution",
			goal:    model.Goal{TargetAmount: dec("1200"), MonthlyContribution: decp("50"), TargetDate: datep(2026, 12, 31)},
			catchUp: config.CatchUpCapped,
			want:    "50",
		},
		{
			name:    "capped without contribution uses required",
			goal:    model.Goal{TargetAmount: dec("1200"), TargetDate: datep(2026, 12, 31)},
			catchUp: config.CatchUpCapped,
			want:    "120",
		},
		{
			name:    "past target date asks for the rest",
			goal:    model.Goal{TargetAmount: dec("1200"), CurrentAmount: dec("200"), TargetDate: datep(2026, 1, 1)},
			catchUp: config.CatchUpLarger,
			want:    "1000",
		},
		{
			name:    "never more than remaining",
			goal:    model.Goal{TargetAmount: dec("1000"), CurrentAmount: dec("900"), MonthlyContribution: decp("500")},
			catchUp: config.CatchUpLarger,
			want:    "100",
		},
		{
			name:    "required rounds up to the cent",
			goal:    model.Goal{TargetAmount: dec("1000"), TargetDate: datep(2026, 5, 10)},
			catchUp: config.CatchUpLarger,
			want:    "333.34",
		},
		{
			name:    "no contribution and no date",
			goal:    model.Goal{TargetAmount: dec("1000")},
			catchUp: config.CatchUpLarger,
			want:    "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GoalRequest(tt.goal, march15, tt.catchUp); !got.Equal(dec(tt.want)) {
				t.Errorf("GoalRequest = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMonthsLeft(t *testing.T) {
	if got := MonthsLeft(march15, model.NewDate(2026, 3, 31)); got != 1 {
		t.Errorf("same month = %d, want 1", got)
	}
	if got := MonthsLeft(march15, model.NewDate(2027, 2, 1)); got != 12 {
		t.Errorf("next February = %d, want 12", got)
	}
	if got := MonthsLeft(march15, model.NewDate(2025, 1, 1)); got != 1 {
		t.Errorf("past = %d, want 1", got)
	}
}

func TestAllocateValidation(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*AllocationInput)
		field string
	}{
		{"negative salary", func(in *AllocationInput) { in.Salary = dec("-1") }, "salary"},
		{"duplicate rule id", func(in *AllocationInput) {
			in.Categories["c2"] = "Other"
			in.Rules = append(in.Rules, model.BudgetRule{ID: "r1", CategoryID: "c2", AllocationType: model.AllocFixed})
		}, "rule_id"},
		{"two rules for one category", func(in *AllocationInput) {
			in.Rules = append(in.Rules, model.BudgetRule{ID: "r2", CategoryID: "c1", AllocationType: model.AllocFixed})
		}, "category_id"},
		{"unknown category", func(in *AllocationInput) { in.Rules[0].CategoryID = "missing" }, "category_id"},
		{"percent over 100", func(in *AllocationInput) {
			in.Rules[0].AllocationType = model.AllocPercent
			in.Rules[0].AllocationValue = dec("150")
		}, "allocation_value"},
		{"goal priority zero", func(in *AllocationInput) { in.Goals[0].Priority = 0 }, "priority"},
		{"duplicate goal", func(in *AllocationInput) { in.Goals = append(in.Goals, in.Goals[0]) }, "goal_id"},
		{"unknown catch-up", func(in *AllocationInput) { in.Policy.CatchUp = "sometimes" }, "goal_catch_up"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := scenarioInput()
			tt.mod(&in)
			_, err := Allocate(in)
			var ve *model.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestResolveSalary(t *testing.T) {
	source := model.IncomeSource{ID: "s1", Amount: dec("5000"), Frequency: model.FreqMonthly, IsActive: true}
	paid := model.Transaction{ID: "p", Type: model.Income, Amount: dec("4000"), Status: model.Completed,
		OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	manual := dec("2500")

	tests := []struct {
		name     string
		snap     *model.Snapshot
		manual   *decimal.Decimal
		override *decimal.Decimal
		source   string
		amount   string
	}{
		{"override wins", &model.Snapshot{Transactions: []model.Transaction{paid}}, nil, decp("100"), SourceOverride, "100"},
		{"income this month", &model.Snapshot{Transactions: []model.Transaction{paid}, IncomeSources: []model.IncomeSource{source}}, nil, nil, SourceTransactions, "4000"},
		{"income sources", &model.Snapshot{IncomeSources: []model.IncomeSource{source}}, &manual, nil, SourceIncome, "5000"},
		{"manual", &model.Snapshot{}, &manual, nil, SourceManual, "2500"},
		{"none", &model.Snapshot{}, nil, nil, SourceNone, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings()
			s.ManualSalary = tt.manual
			got, err := ResolveSalary(ledgerAt(t, tt.snap, 2026, 3, 15), s, tt.override)
			if err != nil {
				t.Fatal(err)
			}
			if got.Source != tt.source || !got.Amount.Equal(dec(tt.amount)) {
				t.Errorf("ResolveSalary = %s %s, want %s %s", got.Source, got.Amount, tt.source, tt.amount)
			}
		})
	}
}

func TestSalarySplitFromLedger(t *testing.T) {
	snap := &model.Snapshot{
		Categories:    []model.Category{{ID: "food", Name: "Food"}},
		IncomeSources: []model.IncomeSource{{ID: "s1", Amount: dec("4000"), Frequency: model.FreqMonthly, IsActive: true}},
		Bills:         []model.Bill{{ID: "b1", Name: "Rent", AmountEstimated: dec("1500"), DueDay: 1}},
		Subscriptions: []model.Subscription{{ID: "s1", Name: "Cloud", Amount: dec("120"), BillingCycle: model.Yearly, IsActive: true, NextBillingDate: model.NewDate(2026, 9, 1)}},
		Rules:         []model.BudgetRule{{ID: "r1", CategoryID: "food", AllocationType: model.AllocFixed, AllocationValue: dec("600")}},
		Goals:         []model.Goal{{ID: "g1", Name: "Fund", TargetAmount: dec("5000"), MonthlyContribution: decp("400"), Priority: 1}},
	}
	got, err := SalarySplit(ledgerAt(t, snap, 2026, 3, 15), testSettings(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.SalarySource != SourceIncome {
		t.Errorf("source = %s", got.SalarySource)
	}
	// 4000 - (1500 + 10) - 600 - 400
	if !got.Allocation.FreeMoney.Equal(dec("1490")) {
		t.Errorf("free money = %s, want 1490", got.Allocation.FreeMoney)
	}
	if !got.Allocation.FreeMoneyFloorMet || len(got.Warnings) != 0 {
		t.Errorf("floor met = %v, warnings = %v", got.Allocation.FreeMoneyFloorMet, got.Warnings)
	}
	if got.StatusMessage != msgFloorMet {
		t.Errorf("status = %q", got.StatusMessage)
	}
}

func TestResolveCommitments(t *testing.T) {
	snap := &model.Snapshot{
		Bills: []model.Bill{{ID: "b1", Name: "Rent", AmountEstimated: dec("1000"), DueDay: 31}},
		Subscriptions: []model.Subscription{
			{ID: "y", Amount: dec("120"), BillingCycle: model.Yearly, IsActive: true},
			{ID: "off", Amount: dec("50"), BillingCycle: model.Monthly},
		},
		Goals: []model.Goal{
			{ID: "g", TargetAmount: dec("100"), MonthlyContribution: decp("25"), Priority: 1},
			{ID: "done", TargetAmount: dec("100"), MonthlyContribution: decp("25"), Priority: 1, IsCompleted: true},
		},
	}
	c := ResolveCommitments(ledgerAt(t, snap, 2026, 2, 10), testSettings())
	if !c.Total.Equal(dec("1035")) {
		t.Errorf("Total = %s, want 1035", c.Total)
	}
	if !c.Recurring().Equal(dec("1010")) {
		t.Errorf("Recurring = %s, want 1010", c.Recurring())
	}
	if due := c.Items[0].DueOn.String(); due != "2026-02-28" {
		t.Errorf("bill due = %s, want 2026-02-28", due)
	}
}

func TestYearlySubscriptionCommitmentInCents(t *testing.T) {
	snap := &model.Snapshot{
		Subscriptions: []model.Subscription{
			{ID: "y1", Name: "Cloud", Amount: dec("100"), BillingCycle: model.Yearly, IsActive: true},
			{ID: "y2", Name: "News", Amount: dec("100"), BillingCycle: model.Yearly, IsActive: true},
		},
	}
	c := ResolveCommitments(ledgerAt(t, snap, 2026, 2, 10), testSettings())
	for _, it := range c.Items {
		if !it.Monthly.Equal(dec("8.33")) {
			t.Errorf("%s monthly = %s, want 8.33", it.Name, it.Monthly)
		}
	}
	if !c.Subscriptions.Equal(dec("16.66")) {
		t.Errorf("Subscriptions = %s, want 16.66", c.Subscriptions)
	}
	if !c.Total.Equal(dec("16.66")) {
		t.Errorf("Total = %s, want 16.66", c.Total)
	}
}
