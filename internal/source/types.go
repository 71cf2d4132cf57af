package source

import (
	"github.com/theirongolddev/paycheck/internal/model"
)

// Kind is the "kind" field of an import record.
type Kind string

const (
	KindCategory     Kind = "category"
	KindIncomeSource Kind = "income_source"
	KindBill         Kind = "bill"
	KindSubscription Kind = "subscription"
	KindGoal         Kind = "goal"
	KindRule         Kind = "rule"
	KindTransaction  Kind = "transaction"
)

// WriteOrder returns the position a kind is written in, so records that
// reference categories land after the categories themselves.
func (k Kind) WriteOrder() int {
	switch k {
	case KindCategory:
		return 0
	case KindIncomeSource:
		return 1
	case KindBill:
		return 2
	case KindSubscription:
		return 3
	case KindGoal:
		return 4
	case KindRule:
		return 5
	case KindTransaction:
		return 6
	}
	return 7
}

// Record is one decoded import line. Exactly one entity field is set,
// matching Kind.
type Record struct {
	Kind         Kind
	Line         int
	Category     *model.Category
	IncomeSource *model.IncomeSource
	Bill         *model.Bill
	Subscription *model.Subscription
	Goal         *model.Goal
	Rule         *model.BudgetRule
	Transaction  *model.Transaction
}

// DiscoveredFile is a JSONL file found during scanning.
type DiscoveredFile struct {
	Path string
	Name string // path relative to the scan root
}

// envelope reads only the discriminator.
type envelope struct {
	Kind Kind `json:"kind"`
}

// categoryLine moves the category's own kind to "category_kind", since
// "kind" names the record type.
type categoryLine struct {
	model.Category
	RecordKind   Kind               `json:"kind"`
	CategoryKind model.CategoryKind `json:"category_kind"`
}

// transactionLine accepts a plain calendar day as well as a timestamp.
type transactionLine struct {
	model.Transaction
	OccurredOn model.Date `json:"occurred_on"`
}

// Import lines default to active unless is_active is given explicitly.
type subscriptionLine struct {
	model.Subscription
	Active *bool `json:"is_active"`
}

type incomeLine struct {
	model.IncomeSource
	Active *bool `json:"is_active"`
}
