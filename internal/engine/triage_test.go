package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/paycheck/internal/model"

	"github.com/shopspring/decimal"
)

func TestStressLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  model.StressLevel
	}{
		{0, model.StressLow},
		{24, model.StressLow},
		{25, model.StressModerate},
		{49, model.StressModerate},
		{50, model.StressHigh},
		{74, model.StressHigh},
		{75, model.StressCritical},
		{100, model.StressCritical},
	}
	for _, tt := range tests {
		if got := StressLevelFor(tt.score); got != tt.want {
			t.Errorf("StressLevelFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestStressScoreComponents(t *testing.T) {
	score, c := StressScore(StressInputs{
		MonthlyIncome:   dec("1000"),
		MonthlyExpenses: dec("500"),
		BufferDays:      decp("45"),
		CleanupItems:    5,
	})
	if c.BurnRate != 20 || c.Liquidity != 17.5 || c.Cleanup != 12.5 {
		t.Errorf("components = %+v, want 20/17.5/12.5", c)
	}
	if score != 50 {
		t.Errorf("score = %d, want 50", score)
	}
}

func TestStressScoreMonotonic(t *testing.T) {
	base := StressInputs{MonthlyIncome: dec("1000"), MonthlyExpenses: dec("100"), BufferDays: decp("80")}

	prev := -1
	for exp := int64(0); exp <= 2000; exp += 100 {
		in := base
		in.MonthlyExpenses = decimal.NewFromInt(exp)
		s, _ := StressScore(in)
		if s < prev {
			t.Fatalf("expenses %d: score %d dropped below %d", exp, s, prev)
		}
		prev = s
	}

	prev = 101
	for days := int64(0); days <= 200; days += 10 {
		in := base
		in.BufferDays = model.DecPtr(decimal.NewFromInt(days))
		s, _ := StressScore(in)
		if s > prev {
			t.Fatalf("buffer %d: score %d rose above %d", days, s, prev)
		}
		prev = s
	}

	prev = -1
	for items := 0; items <= 20; items++ {
		in := base
		in.CleanupItems = items
		s, _ := StressScore(in)
		if s < prev {
			t.Fatalf("items %d: score %d dropped below %d", items, s, prev)
		}
		prev = s
	}
}

func TestLiquidityBuffer(t *testing.T) {
	if got := LiquidityBuffer(dec("3000"), dec("1500")); got == nil || !got.Equal(dec("60")) {
		t.Errorf("buffer = %v, want 60", got)
	}
	if got := LiquidityBuffer(dec("-10"), dec("1500")); got == nil || !got.IsZero() {
		t.Errorf("negative balance buffer = %v, want 0", got)
	}
	if got := LiquidityBuffer(dec("1000000"), dec("30")); got == nil || !got.Equal(dec("999")) {
		t.Errorf("capped buffer = %v, want 999", got)
	}
	if got := LiquidityBuffer(dec("100"), decimal.Zero); got != nil {
		t.Errorf("no expenses buffer = %v, want nil", got)
	}
}

func TestTriageZeroIncomeZeroExpenses(t *testing.T) {
	r, err := Triage(ledgerAt(t, &model.Snapshot{}, 2026, 3, 15), testSettings())
	if err != nil {
		t.Fatal(err)
	}
	if !r.Metrics.BurnRatePct.IsZero() {
		t.Errorf("burn rate = %s, want 0", r.Metrics.BurnRatePct)
	}
	if r.Metrics.LiquidityBufferDays != nil || !r.Metrics.LiquidityBufferInfinite {
		t.Errorf("buffer = %v infinite=%v, want nil/true", r.Metrics.LiquidityBufferDays, r.Metrics.LiquidityBufferInfinite)
	}
	if r.Components.BurnRate != 0 || r.Components.Liquidity != 0 {
		t.Errorf("components = %+v, want zero burn and liquidity", r.Components)
	}
	if r.StressLevel != model.StressLow {
		t.Errorf("level = %s, want low", r.StressLevel)
	}
}

func TestTriageActionsRanked(t *testing.T) {
	snap := &model.Snapshot{
		Categories: []model.Category{{ID: "food", Name: "Food"}},
		Bills:      []model.Bill{{ID: "rent", Name: "Rent", AmountEstimated: dec("200"), DueDay: 5}},
		Rules: []model.BudgetRule{{ID: "r1", CategoryID: "food", AllocationType: model.AllocFixed,
			AllocationValue: dec("100"), MonthlyLimit: decp("100")}},
		Transactions: []model.Transaction{
			{ID: "pay", Type: model.Income, Amount: dec("3000"), Status: model.Completed, OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
			expense("shop", "150", 8, func(t *model.Transaction) { t.CategoryID = "food" }),
			expense("misc", "100", 10),
			expense("hold", "30", 12, func(t *model.Transaction) { t.Status = model.Pending }),
		},
	}

	r, err := Triage(ledgerAt(t, snap, 2026, 3, 15), testSettings())
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Actions) == 0 {
		t.Fatal("no actions")
	}
	first := r.Actions[0]
	if first.Severity != model.SeverityCritical || !strings.HasPrefix(first.ID, "bills-bill-overdue-rent-") {
		t.Errorf("first action = %s %s, want critical overdue bill", first.Severity, first.ID)
	}
	for i := 1; i < len(r.Actions); i++ {
		if r.Actions[i].Severity.Rank() > r.Actions[i-1].Severity.Rank() {
			t.Errorf("action %d (%s) outranks action %d (%s)", i, r.Actions[i].Severity, i-1, r.Actions[i-1].Severity)
		}
	}

	var areas []string
	for _, a := range r.Actions {
		areas = append(areas, a.Area)
	}
	joined := strings.Join(areas, ",")
	for _, want := range []string{"bills", "budget", "transactions"} {
		if !strings.Contains(joined, want) {
			t.Errorf("areas = %v, missing %s", areas, want)
		}
	}
	if r.Metrics.PendingCount != 1 || r.Metrics.UncategorizedCount != 2 {
		t.Errorf("pending = %d, uncategorized = %d; want 1, 2", r.Metrics.PendingCount, r.Metrics.UncategorizedCount)
	}
}

func TestTriageSolidMonth(t *testing.T) {
	snap := &model.Snapshot{
		Categories: []model.Category{{ID: "food", Name: "Food"}},
		Rules:      []model.BudgetRule{{ID: "r1", CategoryID: "food", AllocationType: model.AllocFixed, AllocationValue: dec("100")}},
		Transactions: []model.Transaction{
			{ID: "pay", Type: model.Income, Amount: dec("3000"), Status: model.Completed, OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
			expense("shop", "30", 8, func(t *model.Transaction) { t.CategoryID = "food" }),
		},
	}
	r, err := Triage(ledgerAt(t, snap, 2026, 3, 15), testSettings())
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Actions) != 1 || r.Actions[0].Title != "Solid month so far" {
		t.Errorf("actions = %+v, want the fallback only", r.Actions)
	}
}
