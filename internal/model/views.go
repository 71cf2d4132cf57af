package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalaryCandidate is one possible salary figure and where it came from.
type SalaryCandidate struct {
	Source string          `json:"source"`
	Amount decimal.Decimal `json:"amount"`
}

// Allocation holds the four waterfall buckets.
// Commitments + PlannedExpenses + Goals + FreeMoney never exceeds the salary considered.
type Allocation struct {
	Commitments          decimal.Decimal `json:"commitments"`
	PlannedExpenses      decimal.Decimal `json:"planned_expenses"`
	Goals                decimal.Decimal `json:"goals"`
	FreeMoney            decimal.Decimal `json:"free_money"`
	FreeMoneyFloorTarget decimal.Decimal `json:"free_money_floor_target"`
	FreeMoneyFloorMet    bool            `json:"free_money_floor_met"`
}

// PlannedExpenseBucket is one budget rule's share.
type PlannedExpenseBucket struct {
	RuleID       string          `json:"rule_id"`
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Requested    decimal.Decimal `json:"requested"`
	Allocated    decimal.Decimal `json:"allocated"`
}

// GoalBucket is one goal's share.
type GoalBucket struct {
	GoalID    string          `json:"goal_id"`
	GoalName  string          `json:"goal_name"`
	Priority  int             `json:"priority"`
	Requested decimal.Decimal `json:"requested"`
	Allocated decimal.Decimal `json:"allocated"`
}

// Buckets lists per-rule and per-goal allocations in waterfall order.
type Buckets struct {
	Goals           []GoalBucket           `json:"goals"`
	PlannedExpenses []PlannedExpenseBucket `json:"planned_expenses"`
}

// AllocationTotals summarizes demand against supply.
type AllocationTotals struct {
	Requested               decimal.Decimal `json:"requested"`
	Allocated               decimal.Decimal `json:"allocated"`
	Shortfall               decimal.Decimal `json:"shortfall"`
	CommitmentCoverageRatio decimal.Decimal `json:"commitment_coverage_ratio"`
}

// RulesConfig echoes the policy an allocation ran under.
type RulesConfig struct {
	FreeMoneyFloorPct decimal.Decimal `json:"free_money_floor_pct"`
	GoalCatchUp       string          `json:"goal_catch_up"`
}

// AllocationSnapshot is the result of one salary allocation. It is derived
// on demand and never mutated after it is returned.
type AllocationSnapshot struct {
	SalaryConsidered decimal.Decimal   `json:"salary_considered"`
	SalarySource     string            `json:"salary_source"`
	SalaryCandidates []SalaryCandidate `json:"salary_candidates"`
	Allocation       Allocation        `json:"allocation"`
	Buckets          Buckets           `json:"buckets"`
	Totals           AllocationTotals  `json:"totals"`
	RulesConfig      RulesConfig       `json:"rules_config"`
	Warnings         []string          `json:"warnings"`
	StatusMessage    string            `json:"status_message"`
}

// ColorState buckets safe-to-spend health.
type ColorState string

const (
	Carefree ColorState = "carefree"
	Mindful  ColorState = "mindful"
	Careful  ColorState = "careful"
)

// SafeToSpendBreakdown itemizes today's and this month's flows.
type SafeToSpendBreakdown struct {
	IncomeToday       decimal.Decimal `json:"income_today"`
	CommittedToday    decimal.Decimal `json:"committed_today"`
	SpentToday        decimal.Decimal `json:"spent_today"`
	RemainingToday    decimal.Decimal `json:"remaining_today"`
	SpentThisMonth    decimal.Decimal `json:"spent_this_month"`
	RemainingBudget   decimal.Decimal `json:"remaining_budget"`
	MonthlyFreeBudget decimal.Decimal `json:"monthly_free_budget"`
}

// SafeToSpend is the daily and monthly discretionary allowance.
type SafeToSpend struct {
	Date             Date                 `json:"date"`
	DailyLimit       decimal.Decimal      `json:"daily_limit"`
	MonthlySafeTotal decimal.Decimal      `json:"monthly_safe_total"`
	DaysLeftInMonth  int                  `json:"days_left_in_month"`
	Percentage       decimal.Decimal      `json:"percentage"`
	ColorState       ColorState           `json:"color_state"`
	StatusMessage    string               `json:"status_message"`
	Breakdown        SafeToSpendBreakdown `json:"breakdown"`
	Allocation       AllocationSnapshot   `json:"salary_rule_engine"`
}

// StressLevel buckets the triage stress score.
type StressLevel string

const (
	StressLow      StressLevel = "low"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
	StressCritical StressLevel = "critical"
)

// Severity ranks triage actions.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities; higher is more urgent.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// TriageAction is one actionable gap.
type TriageAction struct {
	ID           string           `json:"id"`
	Severity     Severity         `json:"severity"`
	Area         string           `json:"area"`
	Title        string           `json:"title"`
	Detail       string           `json:"detail"`
	ImpactAmount *decimal.Decimal `json:"impact_amount,omitempty"`
	DueDate      *Date            `json:"due_date,omitempty"`
	ActionLabel  string           `json:"action_label"`
	ActionRoute  string           `json:"action_route"`
}

// TriageMetrics are the raw inputs behind the stress score.
type TriageMetrics struct {
	BurnRatePct             decimal.Decimal  `json:"burn_rate_pct"`
	MonthlyIncome           decimal.Decimal  `json:"monthly_income"`
	MonthlyExpenses         decimal.Decimal  `json:"monthly_expenses"`
	MonthlyFixedCosts       decimal.Decimal  `json:"monthly_fixed_costs"`
	TotalBalance            decimal.Decimal  `json:"total_balance"`
	LiquidityBufferDays     *decimal.Decimal `json:"liquidity_buffer_days"`
	LiquidityBufferInfinite bool             `json:"liquidity_buffer_infinite"`
	PendingCount            int              `json:"pending_count"`
	PendingTotal            decimal.Decimal  `json:"pending_total"`
	UncategorizedCount      int              `json:"uncategorized_count"`
	UncategorizedTotal      decimal.Decimal  `json:"uncategorized_total"`
	SubscriptionSharePct    decimal.Decimal  `json:"subscription_share_pct"`
}

// StressComponents shows how each input contributed to the score.
type StressComponents struct {
	BurnRate  float64 `json:"burn_rate"`
	Liquidity float64 `json:"liquidity"`
	Cleanup   float64 `json:"cleanup"`
}

// TriageReport is the financial triage result.
type TriageReport struct {
	GeneratedAt time.Time        `json:"generated_at"`
	StressScore int              `json:"stress_score"`
	StressLevel StressLevel      `json:"stress_level"`
	Components  StressComponents `json:"components"`
	Metrics     TriageMetrics    `json:"metrics"`
	Actions     []TriageAction   `json:"actions"`
}

// HealthScore is the dashboard's single-number health indicator.
type HealthScore struct {
	Score   int    `json:"score"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

// ChartPoint is one bar of the spending chart.
type ChartPoint struct {
	Date   Date            `json:"date"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// CategorySlice is one slice of the category chart.
type CategorySlice struct {
	CategoryID string          `json:"category_id,omitempty"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
}

// DashboardSummary is the dashboard landing payload.
type DashboardSummary struct {
	TotalBalance       decimal.Decimal `json:"total_balance"`
	BalanceChange      decimal.Decimal `json:"balance_change"`
	MonthlyIncome      decimal.Decimal `json:"monthly_income"`
	MonthlyExpenses    decimal.Decimal `json:"monthly_expenses"`
	IncomeChange       decimal.Decimal `json:"income_change"`
	ExpensesChange     decimal.Decimal `json:"expenses_change"`
	TotalSavings       decimal.Decimal `json:"total_savings"`
	HealthScore        HealthScore     `json:"health_score"`
	RecentTransactions []Transaction   `json:"recent_transactions"`
	SpendingChart      []ChartPoint    `json:"spending_chart"`
	CategoryChart      []CategorySlice `json:"category_chart"`
	SafeToSpendStats   SafeToSpend     `json:"safe_to_spend_stats"`
}
