package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/paycheck/internal/config"
	"github.com/theirongolddev/paycheck/internal/metrics"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/provider"

	"github.com/shopspring/decimal"
)

// Provider executes one payment order against the outside world.
// Implementations must be safe for concurrent use and must not touch the
// ledger; settlement is recorded by the Service.
type Provider interface {
	Name() string
	Pay(ctx context.Context, o model.PaymentOrder) (Receipt, error)
}

// Receipt is a successful execution.
type Receipt struct {
	Reference string
	ActionURL string
	Settled   *decimal.Decimal
}

// retryable reports whether err is worth another attempt within the same
// execution. Declines and auth failures are final until re-approval.
func retryable(err error) bool {
	switch {
	case errors.Is(err, provider.ErrDeclined),
		errors.Is(err, provider.ErrUnauthorized),
		errors.Is(err, provider.ErrPending),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// NewProvider builds the provider named in cfg.
func NewProvider(cfg config.Config) (Provider, error) {
	switch cfg.Payments.Provider {
	case "", config.ProviderInternalLedger:
		return LedgerProvider{}, nil
	case config.ProviderHTTP:
		c := provider.NewClient(cfg.Payments.ProviderURL, config.GetProviderAPIKey(cfg), cfg.General.Currency)
		if c == nil {
			return nil, model.Invalid("payments.provider_url", "required for the http provider")
		}
		return &HTTPProvider{client: c}, nil
	}
	return nil, model.Invalid("payments.provider", "unknown provider %q", cfg.Payments.Provider)
}

// LedgerProvider settles orders purely inside the ledger.
type LedgerProvider struct{}

// Name implements Provider.
func (LedgerProvider) Name() string { return config.ProviderInternalLedger }

// Pay implements Provider.
func (LedgerProvider) Pay(_ context.Context, o model.PaymentOrder) (Receipt, error) {
	return Receipt{Reference: "internal:" + o.ID}, nil
}

// HTTPProvider delegates execution to an external payment service.
type HTTPProvider struct {
	client *provider.Client
}

// Name implements Provider.
func (*HTTPProvider) Name() string { return config.ProviderHTTP }

// Pay implements Provider. The idempotency key changes per attempt so a
// re-approved failure is a new payment, while network retries of the same
// attempt are deduplicated by the provider.
func (p *HTTPProvider) Pay(ctx context.Context, o model.PaymentOrder) (Receipt, error) {
	start := time.Now()
	defer func() {
		metrics.ProviderLatency.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	}()

	r, err := p.client.Execute(ctx, provider.PaymentRequest{
		OrderID:    o.ID,
		SourceType: string(o.SourceType),
		SourceID:   o.SourceID,
		Payee:      o.Name,
		Amount:     o.Amount,
		DueOn:      o.DueOn.String(),
	}, fmt.Sprintf("%s-%d", o.ID, o.Attempts+1))
	if errors.Is(err, provider.ErrPending) && r != nil {
		return Receipt{}, fmt.Errorf("%w: confirm at %s", err, r.ActionURL)
	}
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Reference: r.Reference, ActionURL: r.ActionURL, Settled: r.Settled}, nil
}
