package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a payment order.
//
//	approval_required -> processing -> approved (executed) | failed
//	failed -> processing (retry by re-approval)
//	any non-approved state -> cancelled
type PaymentStatus string

const (
	StatusApprovalRequired PaymentStatus = "approval_required"
	StatusProcessing       PaymentStatus = "processing"
	StatusApproved         PaymentStatus = "approved"
	StatusFailed           PaymentStatus = "failed"
	StatusCancelled        PaymentStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusApprovalRequired, StatusProcessing, StatusApproved, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// SourceType names the entity a payment order settles.
type SourceType string

const (
	SourceBill         SourceType = "BILL"
	SourceSubscription SourceType = "SUBSCRIPTION"
	SourceGoal         SourceType = "GOAL"
)

// PaymentOrder is one prepared payment awaiting approval or execution.
// (UserID, SourceType, SourceID, DueOn) is unique.
type PaymentOrder struct {
	ID                string          `json:"id"`
	UserID            string          `json:"-"`
	SourceType        SourceType      `json:"source_type"`
	SourceID          string          `json:"source_id"`
	Name              string          `json:"name"`
	Amount            decimal.Decimal `json:"amount"`
	DueOn             Date            `json:"due_on"`
	Status            PaymentStatus   `json:"status"`
	Provider          string          `json:"provider"`
	ProviderReference string          `json:"provider_reference,omitempty"`
	ProviderActionURL string          `json:"provider_action_url,omitempty"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	CancelledReason   string          `json:"cancelled_reason,omitempty"`
	Attempts          int             `json:"attempts"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
	ExecutedAt        *time.Time      `json:"executed_at,omitempty"`
	ExecutingSince    *time.Time      `json:"executing_since,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Key identifies the obligation this order settles.
func (o PaymentOrder) Key() PaymentKey {
	return PaymentKey{SourceType: o.SourceType, SourceID: o.SourceID, DueOn: o.DueOn.String()}
}

// PaymentKey is the dedupe key for payment orders.
type PaymentKey struct {
	SourceType SourceType
	SourceID   string
	DueOn      string
}
