package model

import (
	"github.com/shopspring/decimal"
)

// EventType tags a timeline event variant.
type EventType string

const (
	EventSalary           EventType = "SALARY"
	EventBillDue          EventType = "BILL_DUE"
	EventSubscription     EventType = "SUBSCRIPTION"
	EventGoalContribution EventType = "GOAL_CONTRIBUTION"
	EventTransaction      EventType = "TRANSACTION"
	EventProjection       EventType = "PROJECTION"
)

// Order gives a stable position for events sharing a date: money in first,
// then obligations, then savings, then actuals, then estimates.
func (t EventType) Order() int {
	switch t {
	case EventSalary:
		return 0
	case EventBillDue:
		return 1
	case EventSubscription:
		return 2
	case EventGoalContribution:
		return 3
	case EventTransaction:
		return 4
	case EventProjection:
		return 5
	}
	return 6
}

// Confidence grades a projected value by how much history supports it.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// EventDetails is the type-specific payload of a timeline event.
type EventDetails interface {
	EventType() EventType
}

// PreparedPayment is one commitment auto-deducted on salary day.
type PreparedPayment struct {
	Kind   SourceType      `json:"kind"`
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// SalaryDetails describes a salary event.
type SalaryDetails struct {
	SourceID             string            `json:"source_id,omitempty"`
	AutoPreparedPayments []PreparedPayment `json:"auto_prepared_payments"`
	RemainingAfter       decimal.Decimal   `json:"remaining_after"`
}

// BillDetails describes a bill occurrence.
type BillDetails struct {
	BillID         string `json:"bill_id"`
	DueDay         int    `json:"due_day"`
	AutopayEnabled bool   `json:"autopay_enabled"`
	CategoryID     string `json:"category_id,omitempty"`
}

// SubscriptionDetails describes a subscription renewal.
type SubscriptionDetails struct {
	SubscriptionID string       `json:"subscription_id"`
	BillingCycle   BillingCycle `json:"billing_cycle"`
}

// GoalDetails describes a goal contribution, actual or projected.
type GoalDetails struct {
	GoalID   string          `json:"goal_id"`
	LogID    string          `json:"log_id,omitempty"`
	Progress decimal.Decimal `json:"progress"`
}

// TransactionDetails describes a settled transaction.
type TransactionDetails struct {
	TransactionID string            `json:"transaction_id"`
	Type          TransactionType   `json:"transaction_type"`
	CategoryID    string            `json:"category_id,omitempty"`
	Status        TransactionStatus `json:"status"`
}

// ProjectionDetails describes a forward-looking estimate.
type ProjectionDetails struct {
	Kind        string     `json:"kind"`
	Confidence  Confidence `json:"confidence"`
	Occurrences int        `json:"occurrences"`
	Basis       string     `json:"basis"`
}

func (SalaryDetails) EventType() EventType       { return EventSalary }
func (BillDetails) EventType() EventType         { return EventBillDue }
func (SubscriptionDetails) EventType() EventType { return EventSubscription }
func (GoalDetails) EventType() EventType         { return EventGoalContribution }
func (TransactionDetails) EventType() EventType  { return EventTransaction }
func (ProjectionDetails) EventType() EventType   { return EventProjection }

// Event is the shared envelope of every timeline event. Type always matches Details.
type Event struct {
	ID             string          `json:"id"`
	Date           Date            `json:"date"`
	Type           EventType       `json:"type"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	IsCompleted    bool            `json:"is_completed"`
	IsAutomatic    bool            `json:"is_automatic"`
	PaymentOrderID string          `json:"payment_order_id,omitempty"`
	PaymentStatus  PaymentStatus   `json:"payment_status,omitempty"`
	ProviderAction string          `json:"provider_action_url,omitempty"`
	Details        EventDetails    `json:"details"`
}

// NewEvent builds an event whose Type is derived from its details.
func NewEvent(id string, date Date, name string, amount decimal.Decimal, details EventDetails) Event {
	return Event{
		ID:      id,
		Date:    date,
		Type:    details.EventType(),
		Name:    name,
		Amount:  amount,
		Details: details,
	}
}

// TimelineDay groups events on one date.
type TimelineDay struct {
	Date     Date            `json:"date"`
	NetDelta decimal.Decimal `json:"net_delta"`
	Events   []Event         `json:"events"`
}

// TimelineSummary highlights what is coming.
type TimelineSummary struct {
	NextSalaryDate           *Date           `json:"next_salary_date"`
	DaysUntilSalary          *int            `json:"days_until_salary"`
	UpcomingCommitments      decimal.Decimal `json:"upcoming_commitments"`
	ProjectedMonthEndBalance decimal.Decimal `json:"projected_month_end_balance"`
}

// Timeline is the projected cash-event view for a date range.
type Timeline struct {
	Today   Date            `json:"today"`
	From    Date            `json:"from"`
	To      Date            `json:"to"`
	Events  []Event         `json:"events"`
	Days    []TimelineDay   `json:"days"`
	Summary TimelineSummary `json:"summary"`
}
