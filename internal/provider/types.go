package provider

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentRequest is the body sent to the provider's payments endpoint.
type PaymentRequest struct {
	OrderID    string          `json:"order_id"`
	SourceType string          `json:"source_type"`
	SourceID   string          `json:"source_id"`
	Payee      string          `json:"payee"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	DueOn      string          `json:"due_on"`
}

// PaymentResponse is the raw provider reply.
// Amount can be a number or a string depending on the provider, so it is
// kept as raw JSON and parsed by parseAmount.
type PaymentResponse struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	ActionURL string          `json:"action_url"`
	Reason    string          `json:"reason"`
	Amount    json.RawMessage `json:"amount"`
}

// Receipt is a normalized, successful provider execution.
type Receipt struct {
	Reference string
	ActionURL string
	// Settled is the amount the provider reports as paid, if it reported one.
	Settled *decimal.Decimal
}

// Provider-side statuses.
const (
	statusSucceeded = "succeeded"
	statusPending   = "pending"
	statusDeclined  = "declined"
	statusFailed    = "failed"
)

func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "ok", "paid", "settled", "success", "completed":
		return statusSucceeded
	case "requires_action", "processing":
		return statusPending
	case "rejected":
		return statusDeclined
	}
	return s
}

// parseAmount parses the polymorphic amount field. decimal accepts both
// numbers (12.5) and strings ("12.50").
func parseAmount(raw json.RawMessage) (*decimal.Decimal, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, false
	}
	return &d, true
}
