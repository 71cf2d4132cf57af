// Package model defines the ledger entities and the derived views computed from them.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes money in from money out.
type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

// TransactionStatus tracks settlement.
type TransactionStatus string

const (
	Pending   TransactionStatus = "PENDING"
	Completed TransactionStatus = "COMPLETED"
)

// Transaction is a single ledger movement. Amount is stored as a positive
// magnitude; Type carries the direction.
type Transaction struct {
	ID             string            `json:"id"`
	Amount         decimal.Decimal   `json:"amount"`
	Type           TransactionType   `json:"type"`
	CategoryID     string            `json:"category_id,omitempty"`
	Description    string            `json:"description"`
	OccurredAt     time.Time         `json:"occurred_at"`
	Status         TransactionStatus `json:"status"`
	BillID         string            `json:"bill_id,omitempty"`
	SubscriptionID string            `json:"subscription_id,omitempty"`
	GoalID         string            `json:"goal_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// SignedAmount returns the amount with income positive and expenses negative.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Abs().Neg()
	}
	return t.Amount.Abs()
}

// IsCompleted reports whether the transaction has settled.
func (t Transaction) IsCompleted() bool { return t.Status == Completed }

// IsLinked reports whether the transaction pays a bill, subscription, or goal.
func (t Transaction) IsLinked() bool {
	return t.BillID != "" || t.SubscriptionID != "" || t.GoalID != ""
}

// Bill recurs monthly on DueDay.
type Bill struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	AmountEstimated decimal.Decimal `json:"amount_estimated"`
	DueDay          int             `json:"due_day"`
	CategoryID      string          `json:"category_id,omitempty"`
	AutopayEnabled  bool            `json:"autopay_enabled"`
	LastPaidAt      *time.Time      `json:"last_paid_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// DueIn returns the bill's due date within the month containing d.
func (b Bill) DueIn(d Date) Date {
	return ClampDay(d.Year(), d.Month(), b.DueDay)
}

// PaidSince reports whether the bill was paid on or after day.
func (b Bill) PaidSince(day Date) bool {
	return b.LastPaidAt != nil && !DateOf(*b.LastPaidAt).Before(day)
}

// BillingCycle is a subscription's renewal period.
type BillingCycle string

const (
	Monthly BillingCycle = "monthly"
	Yearly  BillingCycle = "yearly"
)

// Subscription renews on NextBillingDate.
type Subscription struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Amount          decimal.Decimal `json:"amount"`
	BillingCycle    BillingCycle    `json:"billing_cycle"`
	NextBillingDate Date            `json:"next_billing_date"`
	IsActive        bool            `json:"is_active"`
	UsageCount      int             `json:"usage_count"`
	CategoryID      string          `json:"category_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// MonthlyAmount normalizes the subscription cost to a month.
func (s Subscription) MonthlyAmount() decimal.Decimal {
	if s.BillingCycle == Yearly {
		return s.Amount.Div(decimal.NewFromInt(12))
	}
	return s.Amount
}

// CycleMonths returns how many months one billing cycle spans.
func (s Subscription) CycleMonths() int {
	if s.BillingCycle == Yearly {
		return 12
	}
	return 1
}

// Goal is a savings target funded by contributions.
type Goal struct {
	ID                  string           `json:"id"`
	Name                string           `json:"name"`
	TargetAmount        decimal.Decimal  `json:"target_amount"`
	CurrentAmount       decimal.Decimal  `json:"current_amount"`
	MonthlyContribution *decimal.Decimal `json:"monthly_contribution,omitempty"`
	TargetDate          *Date            `json:"target_date,omitempty"`
	Priority            int              `json:"priority"`
	IsCompleted         bool             `json:"is_completed"`
	CreatedAt           time.Time        `json:"created_at"`
}

// Remaining returns how much is left to reach the target, floored at zero.
func (g Goal) Remaining() decimal.Decimal {
	return NonNegative(g.TargetAmount.Sub(g.CurrentAmount))
}

// Progress returns current/target as a percentage capped at 100.
func (g Goal) Progress() decimal.Decimal {
	p := Percent(g.CurrentAmount, g.TargetAmount)
	if p.GreaterThan(Hundred) {
		return Hundred
	}
	return Cents(p)
}

// GoalLog records one contribution. Logs are append-only.
type GoalLog struct {
	ID            string          `json:"id"`
	GoalID        string          `json:"goal_id"`
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AllocationType says how a budget rule requests money.
type AllocationType string

const (
	AllocFixed   AllocationType = "FIXED"
	AllocPercent AllocationType = "PERCENT"
)

// BudgetRule reserves money for a category ahead of goals.
type BudgetRule struct {
	ID              string           `json:"id"`
	CategoryID      string           `json:"category_id"`
	AllocationType  AllocationType   `json:"allocation_type"`
	AllocationValue decimal.Decimal  `json:"allocation_value"`
	MonthlyLimit    *decimal.Decimal `json:"monthly_limit,omitempty"`
	Position        int              `json:"position"`
	CreatedAt       time.Time        `json:"created_at"`
}

// CategoryKind separates spending from income categories.
type CategoryKind string

const (
	ExpenseCategory CategoryKind = "expense"
	IncomeCategory  CategoryKind = "income"
)

// Category labels transactions.
type Category struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Kind      CategoryKind `json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

// Frequency is how often an income source pays.
type Frequency string

const (
	FreqMonthly  Frequency = "monthly"
	FreqBiweekly Frequency = "biweekly"
	FreqWeekly   Frequency = "weekly"
	FreqYearly   Frequency = "yearly"
)

// IncomeSource is configured expected income.
type IncomeSource struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency Frequency       `json:"frequency"`
	Payday    int             `json:"payday,omitempty"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

// MonthlyAmount normalizes the source to a monthly figure.
func (s IncomeSource) MonthlyAmount() decimal.Decimal {
	switch s.Frequency {
	case FreqWeekly:
		return s.Amount.Mul(decimal.NewFromInt(52)).Div(decimal.NewFromInt(12))
	case FreqBiweekly:
		return s.Amount.Mul(decimal.NewFromInt(26)).Div(decimal.NewFromInt(12))
	case FreqYearly:
		return s.Amount.Div(decimal.NewFromInt(12))
	default:
		return s.Amount
	}
}

// Notification is a user-facing message produced by payment automation.
type Notification struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	PaymentOrderID string    `json:"payment_order_id,omitempty"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// Snapshot is every ledger entity for one user, read at a single point in time.
type Snapshot struct {
	UserID        string
	ReadAt        time.Time
	Version       int64
	Transactions  []Transaction
	Bills         []Bill
	Subscriptions []Subscription
	Goals         []Goal
	GoalLogs      []GoalLog
	Rules         []BudgetRule
	Categories    []Category
	IncomeSources []IncomeSource
	PaymentOrders []PaymentOrder
}

// CategoryName resolves a category id, returning "" for unknown ids.
func (s *Snapshot) CategoryName(id string) string {
	for _, c := range s.Categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}
