// Package payments prepares, approves, cancels and executes autopilot
// payment orders. Execution runs on a bounded worker pool and delegates to
// a Provider; the ledger effects of a success land in one store write.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/paycheck/internal/config"
	"github.com/theirongolddev/paycheck/internal/engine"
	"github.com/theirongolddev/paycheck/internal/metrics"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/pipeline"
	"github.com/theirongolddev/paycheck/internal/store"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Event is one payment order transition, published to stream subscribers.
type Event struct {
	At         time.Time           `json:"at"`
	UserID     string              `json:"user_id"`
	OrderID    string              `json:"order_id"`
	SourceType model.SourceType    `json:"source_type"`
	SourceID   string              `json:"source_id"`
	Name       string              `json:"name"`
	Amount     decimal.Decimal     `json:"amount"`
	DueOn      model.Date          `json:"due_on"`
	From       model.PaymentStatus `json:"from,omitempty"`
	To         model.PaymentStatus `json:"to"`
	Reason     string              `json:"reason,omitempty"`
}

// Options configures a Service.
type Options struct {
	Provider    Provider
	Settings    engine.Settings
	AutoExecute bool
	PrepareDays int
	Workers     int
	QueueSize   int
	MaxRetries  int
	RetryDelay  time.Duration
	Now         func() time.Time
	Publish     func(Event)
}

// OptionsFromConfig builds service options from a loaded config.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return Options{}, err
	}
	settings, err := engine.SettingsFromConfig(cfg)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Provider:    p,
		Settings:    settings,
		AutoExecute: cfg.Payments.AutoExecuteOnApproval,
		PrepareDays: cfg.Payments.PrepareDays,
		Workers:     cfg.Payments.Workers,
		MaxRetries:  cfg.Payments.MaxRetries,
		RetryDelay:  time.Second,
	}, nil
}

// Service owns payment order state transitions.
type Service struct {
	store *store.Store
	opts  Options
	exec  *Executor
	log   zerolog.Logger
}

// NewService creates a payment service over st. Until Start is called,
// executions run synchronously in the caller.
func NewService(st *store.Store, opts Options, log zerolog.Logger) *Service {
	if opts.Provider == nil {
		opts.Provider = LedgerProvider{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Service{
		store: st,
		opts:  opts,
		exec:  NewExecutor(opts.Workers, opts.QueueSize),
		log:   log.With().Str("component", "payments").Logger(),
	}
}

// Start launches the execution workers.
func (s *Service) Start(ctx context.Context) error {
	return s.exec.Start(ctx, s.handle)
}

// Stop drains the execution queue.
func (s *Service) Stop(ctx context.Context) error {
	return s.exec.Stop(ctx)
}

// ProviderName returns the configured provider's name.
func (s *Service) ProviderName() string { return s.opts.Provider.Name() }

func (s *Service) handle(ctx context.Context, job Job) {
	if _, err := s.Execute(ctx, job.UserID, job.OrderID); err != nil && !errors.Is(err, model.ErrConflict) {
		s.log.Error().Err(err).Str("user", job.UserID).Str("order", job.OrderID).Msg("payment execution failed")
	}
}

func (s *Service) ledger(ctx context.Context, userID string) (*pipeline.Ledger, error) {
	snap, err := s.store.ReadSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return pipeline.NewLedger(snap, s.opts.Now()), nil
}

func (s *Service) publish(o model.PaymentOrder, from, to model.PaymentStatus, reason string) {
	metrics.PaymentTransitions.WithLabelValues(string(o.SourceType), string(to)).Inc()
	s.log.Info().
		Str("order", o.ID).
		Str("source", string(o.SourceType)).
		Str("source_id", o.SourceID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("payment transition")
	if s.opts.Publish == nil {
		return
	}
	s.opts.Publish(Event{
		At:         s.opts.Now().UTC(),
		UserID:     o.UserID,
		OrderID:    o.ID,
		SourceType: o.SourceType,
		SourceID:   o.SourceID,
		Name:       o.Name,
		Amount:     o.Amount,
		DueOn:      o.DueOn,
		From:       from,
		To:         to,
		Reason:     reason,
	})
}

// PrepareResult lists the orders a Prepare call created and the matching
// orders that already existed.
type PrepareResult struct {
	DaysAhead int                  `json:"days_ahead"`
	Created   []model.PaymentOrder `json:"created"`
	Existing  []model.PaymentOrder `json:"existing"`
}

// Prepare creates approval_required orders for everything autopilot will
// pay in the next daysAhead days (clamped to 0-90). Preparing twice never
// duplicates an order: the existing one is returned instead.
func (s *Service) Prepare(ctx context.Context, userID string, daysAhead int) (PrepareResult, error) {
	daysAhead = max(0, min(daysAhead, engine.MaxPrepareDays))
	res := PrepareResult{DaysAhead: daysAhead, Created: []model.PaymentOrder{}, Existing: []model.PaymentOrder{}}

	l, err := s.ledger(ctx, userID)
	if err != nil {
		return res, err
	}

	for _, c := range engine.PaymentCandidates(l, s.opts.Settings, daysAhead) {
		c.Provider = s.opts.Provider.Name()
		note := model.Notification{
			Kind:    "payment_approval_required",
			Title:   "Approval needed: " + c.Name,
			Message: fmt.Sprintf("Approve %s for %s (due %s).", c.Amount.StringFixed(2), c.Name, c.DueOn),
		}
		o, created, err := s.store.UpsertPaymentOrder(ctx, userID, c, note)
		if err != nil {
			return res, fmt.Errorf("preparing %s %s: %w", c.SourceType, c.SourceID, err)
		}
		if !created {
			res.Existing = append(res.Existing, o)
			continue
		}
		metrics.PaymentsPrepared.Inc()
		s.publish(o, "", o.Status, "")
		res.Created = append(res.Created, o)
	}
	return res, nil
}

// List returns orders by due date, optionally filtered by status.
// limit is clamped to 1-200; zero means the default of 50.
func (s *Service) List(ctx context.Context, userID string, status model.PaymentStatus, limit int) ([]model.PaymentOrder, error) {
	if status != "" && !status.Valid() {
		return nil, model.Invalid("status", "unknown payment status %q", status)
	}
	if limit == 0 {
		limit = DefaultListLimit
	}
	limit = max(1, min(limit, MaxListLimit))

	orders, err := s.store.ListPaymentOrders(ctx, userID, status, limit)
	if err != nil {
		return nil, fmt.Errorf("listing payment orders: %w", err)
	}
	if orders == nil {
		orders = []model.PaymentOrder{}
	}
	return orders, nil
}

// Approve moves an order to processing. Approving an order that is already
// processing or approved is a no-op; approving a cancelled order is a
// conflict. When executeNow is set and auto-execution is enabled the order
// is handed to the executor at once; otherwise it runs on its due date.
func (s *Service) Approve(ctx context.Context, userID, id string, executeNow bool) (model.PaymentOrder, error) {
	o, err := s.store.GetPaymentOrder(ctx, userID, id)
	if err != nil {
		return o, err
	}

	switch o.Status {
	case model.StatusProcessing, model.StatusApproved:
		return o, nil
	case model.StatusCancelled:
		return o, fmt.Errorf("%w: order %s is cancelled", model.ErrConflict, id)
	}

	changed, err := s.store.SetPaymentStatus(ctx, userID, id, o.Status, model.StatusProcessing, "")
	if err != nil {
		return o, err
	}
	if !changed {
		// Another approval or a cancellation won the race.
		return s.store.GetPaymentOrder(ctx, userID, id)
	}
	s.publish(o, o.Status, model.StatusProcessing, "")

	if executeNow && s.opts.AutoExecute {
		if err := s.dispatch(ctx, userID, id); err != nil {
			return o, err
		}
	}
	return s.store.GetPaymentOrder(ctx, userID, id)
}

// Cancel cancels an order that has not been executed.
func (s *Service) Cancel(ctx context.Context, userID, id, reason string) (model.PaymentOrder, error) {
	o, err := s.store.GetPaymentOrder(ctx, userID, id)
	if err != nil {
		return o, err
	}

	switch o.Status {
	case model.StatusCancelled:
		return o, nil
	case model.StatusApproved:
		return o, fmt.Errorf("%w: order %s was already paid", model.ErrConflict, id)
	}

	changed, err := s.store.SetPaymentStatus(ctx, userID, id, o.Status, model.StatusCancelled, reason)
	if err != nil {
		return o, err
	}
	if !changed {
		if cur, err := s.store.GetPaymentOrder(ctx, userID, id); err == nil && cur.ExecutingSince != nil {
			return cur, fmt.Errorf("%w: order %s is being paid", model.ErrConflict, id)
		}
		return o, fmt.Errorf("%w: order %s changed while cancelling", model.ErrConflict, id)
	}
	s.publish(o, o.Status, model.StatusCancelled, reason)
	return s.store.GetPaymentOrder(ctx, userID, id)
}

// ExecuteDue hands every processing order due today or earlier to the
// executor and returns how many were dispatched.
func (s *Service) ExecuteDue(ctx context.Context, userID string) (int, error) {
	today := model.DateOf(s.opts.Now())
	orders, err := s.store.ExecutablePayments(ctx, userID, today)
	if err != nil {
		return 0, fmt.Errorf("listing due payments: %w", err)
	}
	for _, o := range orders {
		if err := s.dispatch(ctx, userID, o.ID); err != nil {
			return 0, err
		}
	}
	return len(orders), nil
}

// SweepResult summarizes one autopilot pass for a user.
type SweepResult struct {
	Prepared   int `json:"prepared"`
	Dispatched int `json:"dispatched"`
}

// Sweep prepares upcoming orders and dispatches due ones.
func (s *Service) Sweep(ctx context.Context, userID string) (SweepResult, error) {
	prep, err := s.Prepare(ctx, userID, s.opts.PrepareDays)
	if err != nil {
		return SweepResult{}, err
	}
	n, err := s.ExecuteDue(ctx, userID)
	if err != nil {
		return SweepResult{Prepared: len(prep.Created)}, err
	}
	return SweepResult{Prepared: len(prep.Created), Dispatched: n}, nil
}

// dispatch queues the order when workers are running and executes it
// inline otherwise.
func (s *Service) dispatch(ctx context.Context, userID, id string) error {
	if s.exec.Running() {
		_, err := s.exec.Enqueue(ctx, Job{UserID: userID, OrderID: id})
		return err
	}
	_, err := s.Execute(ctx, userID, id)
	if errors.Is(err, model.ErrConflict) {
		return nil
	}
	return err
}

// Execute pays one processing order. The order is claimed before the
// provider is called, so a concurrent Cancel or a second executor conflicts
// instead of racing the payment. A provider failure is recorded on the
// order (status failed) and is not returned as an error; re-approval
// retries it.
func (s *Service) Execute(ctx context.Context, userID, id string) (model.PaymentOrder, error) {
	o, err := s.store.GetPaymentOrder(ctx, userID, id)
	if err != nil {
		return o, err
	}
	if o.Status != model.StatusProcessing {
		return o, fmt.Errorf("%w: order %s is %s, not processing", model.ErrConflict, id, o.Status)
	}
	claimed, err := s.store.ClaimPayment(ctx, userID, id)
	if err != nil {
		return o, err
	}
	if !claimed {
		return o, fmt.Errorf("%w: order %s is already being paid", model.ErrConflict, id)
	}

	receipt, err := s.pay(ctx, o)
	if err != nil {
		return s.fail(ctx, o, err.Error())
	}

	settled, err := s.store.SettlePayment(ctx, userID, id, receipt.Reference, receipt.ActionURL)
	if errors.Is(err, model.ErrConflict) {
		return o, s.unreconciled(ctx, o, receipt, err)
	}
	if err != nil {
		reason := "settlement failed: " + err.Error()
		if errors.Is(err, model.ErrNotFound) {
			reason = fmt.Sprintf("linked %s not found", o.SourceType)
		}
		return s.fail(ctx, o, reason)
	}
	if receipt.Settled != nil && !receipt.Settled.Equal(o.Amount) {
		s.log.Warn().
			Str("order", o.ID).
			Str("amount", o.Amount.String()).
			Str("settled", receipt.Settled.String()).
			Msg("provider settled a different amount")
	}
	s.publish(settled, model.StatusProcessing, model.StatusApproved, "")
	return settled, nil
}

// unreconciled reports money the provider moved for an order the ledger no
// longer accepts. Only a claim outliving store.ClaimLease gets here. The
// returned error is not a conflict so callers surface it.
func (s *Service) unreconciled(ctx context.Context, o model.PaymentOrder, receipt Receipt, cause error) error {
	s.log.Error().Err(cause).
		Str("user", o.UserID).
		Str("order", o.ID).
		Str("reference", receipt.Reference).
		Msg("provider paid an order that could not be settled")
	note := model.Notification{
		Kind:           "payment_unreconciled",
		Title:          "Payment needs review",
		Message:        fmt.Sprintf("%s for %s was sent (ref %s) but the order could not be settled.", o.Name, o.Amount.StringFixed(2), receipt.Reference),
		PaymentOrderID: o.ID,
	}
	if err := s.store.AddNotification(ctx, o.UserID, note); err != nil {
		s.log.Error().Err(err).Str("order", o.ID).Msg("recording unreconciled payment")
	}
	return fmt.Errorf("order %s paid by provider (ref %s) but not settled: %s", o.ID, receipt.Reference, cause.Error())
}

func (s *Service) fail(ctx context.Context, o model.PaymentOrder, reason string) (model.PaymentOrder, error) {
	failed, err := s.store.FailPayment(ctx, o.UserID, o.ID, reason)
	if err != nil {
		return o, err
	}
	s.publish(failed, model.StatusProcessing, model.StatusFailed, reason)
	return failed, nil
}

// pay calls the provider, retrying transient errors up to MaxRetries times
// with a linear backoff.
func (s *Service) pay(ctx context.Context, o model.PaymentOrder) (Receipt, error) {
	var err error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * s.opts.RetryDelay):
			case <-ctx.Done():
				return Receipt{}, ctx.Err()
			}
		}
		var r Receipt
		if r, err = s.opts.Provider.Pay(ctx, o); err == nil {
			return r, nil
		}
		if !retryable(err) {
			break
		}
		s.log.Warn().Err(err).Str("order", o.ID).Int("attempt", attempt+1).Msg("payment provider error")
	}
	return Receipt{}, err
}
