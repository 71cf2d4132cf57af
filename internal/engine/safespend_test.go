package engine

import (
	"testing"
	"time"

	"github.com/theirongolddev/paycheck/internal/model"

	"github.com/shopspring/decimal"
)

func salarySnapshot(amount string) *model.Snapshot {
	return &model.Snapshot{
		IncomeSources: []model.IncomeSource{{ID: "job", Name: "Job", Amount: dec(amount), Frequency: model.FreqMonthly, IsActive: true}},
	}
}

func expense(id, amount string, day int, opts ...func(*model.Transaction)) model.Transaction {
	t := model.Transaction{
		ID:         id,
		Type:       model.Expense,
		Amount:     dec(amount),
		Status:     model.Completed,
		OccurredAt: time.Date(2026, 3, day, 10, 0, 0, 0, time.UTC),
	}
	for _, o := range opts {
		o(&t)
	}
	return t
}

func TestDailyLimitRecomputes(t *testing.T) {
	snap := salarySnapshot("3000")

	// March has 31 days: the 22nd leaves 10 including today.
	got, err := SafeToSpend(ledgerAt(t, snap, 2026, 3, 22), testSettings())
	if err != nil {
		t.Fatal(err)
	}
	if got.DaysLeftInMonth != 10 || !got.MonthlySafeTotal.Equal(dec("3000")) {
		t.Fatalf("days = %d, total = %s", got.DaysLeftInMonth, got.MonthlySafeTotal)
	}
	if !got.DailyLimit.Equal(dec("300")) {
		t.Errorf("daily = %s, want 300", got.DailyLimit)
	}

	next, err := SafeToSpend(ledgerAt(t, snap, 2026, 3, 23), testSettings())
	if err != nil {
		t.Fatal(err)
	}
	if next.DaysLeftInMonth != 9 || !next.DailyLimit.Equal(dec("333.33")) {
		t.Errorf("next day = %d days, %s daily; want 9, 333.33", next.DaysLeftInMonth, next.DailyLimit)
	}
}

func TestSafeToSpendCountsOnlyDiscretionary(t *testing.T) {
	snap := salarySnapshot("3000")
	snap.Categories = []model.Category{{ID: "food", Name: "Food"}, {ID: "fun", Name: "Fun"}}
	snap.Rules = []model.BudgetRule{{ID: "r1", CategoryID: "food", AllocationType: model.AllocFixed, AllocationValue: dec("0")}}
	snap.Transactions = []model.Transaction{
		expense("gig", "2500", 20, func(t *model.Transaction) { t.CategoryID = "fun" }),
		expense("groceries", "400", 20, func(t *model.Transaction) { t.CategoryID = "food" }),
		expense("goal", "100", 20, func(t *model.Transaction) { t.GoalID = "g1" }),
		expense("maybe", "90", 21, func(t *model.Transaction) { t.Status = model.Pending }),
	}

	got, err := SafeToSpend(ledgerAt(t, snap, 2026, 3, 22), testSettings())
	if err != nil {
		t.Fatal(err)
	}
	if !got.Breakdown.SpentThisMonth.Equal(dec("2500")) {
		t.Errorf("spent this month = %s, want 2500", got.Breakdown.SpentThisMonth)
	}
	if !got.MonthlySafeTotal.Equal(dec("500")) {
		t.Errorf("monthly safe = %s, want 500", got.MonthlySafeTotal)
	}
	if !got.DailyLimit.Equal(dec("50")) {
		t.Errorf("daily = %s, want 50", got.DailyLimit)
	}
	if !got.Percentage.Equal(dec("16.67")) || got.ColorState != model.Careful {
		t.Errorf("percentage = %s (%s), want 16.67 careful", got.Percentage, got.ColorState)
	}
}

func TestSafeToSpendOverspentFloorsAtZero(t *testing.T) {
	snap := salarySnapshot("1000")
	snap.Transactions = []model.Transaction{expense("big", "1500", 5)}

	got, err := SafeToSpend(ledgerAt(t, snap, 2026, 3, 22), testSettings())
	if err != nil {
		t.Fatal(err)
	}
	if !got.MonthlySafeTotal.IsZero() || !got.DailyLimit.IsZero() {
		t.Errorf("total = %s, daily = %s, want 0", got.MonthlySafeTotal, got.DailyLimit)
	}
	if !got.Percentage.IsZero() || got.ColorState != model.Careful {
		t.Errorf("percentage = %s (%s)", got.Percentage, got.ColorState)
	}
}

func TestRemainingTodayNotClamped(t *testing.T) {
	snap := salarySnapshot("3000")
	snap.Bills = []model.Bill{{ID: "water", Name: "Water", AmountEstimated: dec("60"), DueDay: 22}}
	snap.Transactions = []model.Transaction{expense("lunch", "40", 22)}

	got, err := SafeToSpend(ledgerAt(t, snap, 2026, 3, 22), testSettings())
	if err != nil {
		t.Fatal(err)
	}
	b := got.Breakdown
	if !b.CommittedToday.Equal(dec("60")) || !b.SpentToday.Equal(dec("40")) {
		t.Errorf("committed = %s, spent = %s", b.CommittedToday, b.SpentToday)
	}
	if !b.RemainingToday.Equal(dec("-100")) {
		t.Errorf("remaining today = %s, want -100", b.RemainingToday)
	}
	if !b.MonthlyFreeBudget.Equal(dec("2940")) {
		t.Errorf("free budget = %s, want 2940", b.MonthlyFreeBudget)
	}
}

func TestSafeToSpendNoIncome(t *testing.T) {
	got, err := SafeToSpend(ledgerAt(t, &model.Snapshot{}, 2026, 3, 31), testSettings())
	if err != nil {
		t.Fatal(err)
	}
	if got.DaysLeftInMonth != 1 {
		t.Errorf("days left on the last day = %d, want 1", got.DaysLeftInMonth)
	}
	if !got.Percentage.IsZero() || !got.DailyLimit.IsZero() {
		t.Errorf("percentage = %s, daily = %s, want zeros", got.Percentage, got.DailyLimit)
	}
}

func TestColorFor(t *testing.T) {
	tests := []struct {
		pct  string
		want model.ColorState
	}{
		{"100", model.Carefree},
		{"50.01", model.Carefree},
		{"50", model.Mindful},
		{"20.01", model.Mindful},
		{"20", model.Careful},
		{"0", model.Careful},
	}
	for _, tt := range tests {
		if got := ColorFor(decimal.RequireFromString(tt.pct)); got != tt.want {
			t.Errorf("ColorFor(%s) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}
