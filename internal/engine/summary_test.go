package engine

import (
	"testing"
	"time"

	"github.com/theirongolddev/paycheck/internal/model"
)

func TestCalcChange(t *testing.T) {
	tests := []struct {
		current, previous, want string
	}{
		{"100", "0", "100"},
		{"0", "0", "0"},
		{"-5", "0", "0"},
		{"150", "100", "50"},
		{"50", "100", "-50"},
		{"-50", "-100", "50"},
	}
	for _, tt := range tests {
		if got := CalcChange(dec(tt.current), dec(tt.previous)); !got.Equal(dec(tt.want)) {
			t.Errorf("CalcChange(%s, %s) = %s, want %s", tt.current, tt.previous, got, tt.want)
		}
	}
}

func TestHealthScore(t *testing.T) {
	tests := []struct {
		name             string
		income, expenses string
		overdue          int
		wantScore        int
		wantLabel        string
	}{
		{"no data", "0", "0", 0, 0, "No Data"},
		{"frugal", "1000", "400", 0, 100, "Excellent"},
		{"comfortable", "1000", "800", 0, 90, "Excellent"},
		{"tight", "1000", "950", 0, 70, "Good"},
		{"tight with overdue", "1000", "950", 2, 40, "Needs Attention"},
		{"many overdue", "1000", "950", 3, 25, "Critical"},
		{"floored", "0", "500", 9, 0, "Critical"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HealthScore(dec(tt.income), dec(tt.expenses), tt.overdue)
			if got.Score != tt.wantScore || got.Label != tt.wantLabel {
				t.Errorf("HealthScore = %d %q, want %d %q", got.Score, got.Label, tt.wantScore, tt.wantLabel)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	snap := salarySnapshot("3000")
	snap.Goals = []model.Goal{
		{ID: "a", TargetAmount: dec("1000"), CurrentAmount: dec("250"), Priority: 1},
		{ID: "b", TargetAmount: dec("1000"), CurrentAmount: dec("100"), Priority: 2},
	}
	snap.Transactions = []model.Transaction{
		{ID: "feb", Type: model.Income, Amount: dec("2000"), Status: model.Completed, OccurredAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)},
		{ID: "mar", Type: model.Income, Amount: dec("3000"), Status: model.Completed, OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		expense("e1", "100", 2),
		expense("e2", "50", 14),
	}
	l := ledgerAt(t, snap, 2026, 3, 15)

	week, err := Summarize(l, testSettings(), ChartWeek)
	if err != nil {
		t.Fatal(err)
	}
	if len(week.SpendingChart) != 7 || week.SpendingChart[6].Date.String() != "2026-03-15" {
		t.Errorf("week chart = %d points", len(week.SpendingChart))
	}
	if !week.TotalSavings.Equal(dec("350")) {
		t.Errorf("savings = %s, want 350", week.TotalSavings)
	}
	if !week.TotalBalance.Equal(dec("4850")) {
		t.Errorf("balance = %s, want 4850", week.TotalBalance)
	}
	if !week.IncomeChange.Equal(dec("50")) {
		t.Errorf("income change = %s, want 50", week.IncomeChange)
	}
	if !week.ExpensesChange.Equal(dec("100")) {
		t.Errorf("expenses change = %s, want 100", week.ExpensesChange)
	}
	if len(week.RecentTransactions) != 4 || week.RecentTransactions[0].ID != "e2" {
		t.Errorf("recent = %+v", week.RecentTransactions)
	}
	if week.HealthScore.Label != "Excellent" {
		t.Errorf("health = %+v", week.HealthScore)
	}

	month, err := Summarize(l, testSettings(), ChartMonth)
	if err != nil {
		t.Fatal(err)
	}
	if len(month.SpendingChart) != 15 || month.SpendingChart[0].Date.String() != "2026-03-01" {
		t.Errorf("month chart = %d points", len(month.SpendingChart))
	}
}
