package payments

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theirongolddev/paycheck/internal/engine"
	"github.com/theirongolddev/paycheck/internal/logger"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/provider"
	"github.com/theirongolddev/paycheck/internal/store"

	"github.com/shopspring/decimal"
)

const user = "u1"

// clock is a settable "now" shared by the store and the service.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// countingProvider settles in the ledger and counts calls. fail, when set,
// returns the next error to report instead of succeeding. When gate is set,
// Pay signals entered and blocks until gate is closed.
type countingProvider struct {
	calls   atomic.Int64
	mu      sync.Mutex
	fail    []error
	entered chan struct{}
	gate    chan struct{}
}

func (p *countingProvider) Name() string { return "internal_ledger" }

func (p *countingProvider) Pay(ctx context.Context, o model.PaymentOrder) (Receipt, error) {
	p.calls.Add(1)
	if p.gate != nil {
		p.entered <- struct{}{}
		<-p.gate
	}
	p.mu.Lock()
	if len(p.fail) > 0 {
		err := p.fail[0]
		p.fail = p.fail[1:]
		p.mu.Unlock()
		return Receipt{}, err
	}
	p.mu.Unlock()
	return LedgerProvider{}.Pay(ctx, o)
}

type fixture struct {
	st     *store.Store
	svc    *Service
	clock  *clock
	prov   *countingProvider
	mu     sync.Mutex
	events []Event
	bill   model.Bill
}

func (f *fixture) published() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.events...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{st: st, clock: &clock{t: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)}, prov: &countingProvider{}}
	st.SetClock(f.clock.Now)

	settings := engine.DefaultSettings()
	settings.GoalContributionDay = 18
	f.svc = NewService(st, Options{
		Provider:    f.prov,
		Settings:    settings,
		AutoExecute: true,
		PrepareDays: 7,
		Workers:     2,
		MaxRetries:  2,
		Now:         f.clock.Now,
		Publish: func(e Event) {
			f.mu.Lock()
			f.events = append(f.events, e)
			f.mu.Unlock()
		},
	}, logger.Nop())

	ctx := context.Background()
	f.bill, err = st.CreateBill(ctx, user, model.Bill{Name: "Rent", AmountEstimated: decimal.NewFromInt(1200), DueDay: 15, AutopayEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateBill(ctx, user, model.Bill{Name: "Water", AmountEstimated: decimal.NewFromInt(40), DueDay: 16}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateSubscription(ctx, user, model.Subscription{
		Name: "Stream", Amount: decimal.NewFromInt(15), BillingCycle: model.Monthly,
		NextBillingDate: model.NewDate(2026, 3, 20), IsActive: true,
	}); err != nil {
		t.Fatal(err)
	}
	contribution := decimal.NewFromInt(100)
	if _, err := st.CreateGoal(ctx, user, model.Goal{
		Name: "Trip", TargetAmount: decimal.NewFromInt(1000), MonthlyContribution: &contribution, Priority: 1,
	}); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) orderFor(t *testing.T, src model.SourceType) model.PaymentOrder {
	t.Helper()
	orders, err := f.svc.List(context.Background(), user, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range orders {
		if o.SourceType == src {
			return o
		}
	}
	t.Fatalf("no %s order in %+v", src, orders)
	return model.PaymentOrder{}
}

func TestPrepareCreatesOrders(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Prepare(context.Background(), user, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Created) != 3 {
		t.Fatalf("created = %d, want 3 (autopay rent, stream, trip)", len(res.Created))
	}
	for _, o := range res.Created {
		if o.Status != model.StatusApprovalRequired || o.Provider != "internal_ledger" {
			t.Errorf("order %s = %s via %s", o.Name, o.Status, o.Provider)
		}
		if o.Name == "Water" {
			t.Error("bill without autopay was prepared")
		}
	}
	notes, _ := f.st.ListNotifications(context.Background(), user, true, 0)
	if len(notes) != 3 || !strings.HasPrefix(notes[0].Title, "Approval needed: ") {
		t.Errorf("notifications = %+v", notes)
	}
	if got := len(f.published()); got != 3 {
		t.Errorf("published events = %d, want 3", got)
	}
}

func TestPrepareTwiceDoesNotDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Prepare(ctx, user, 7); err != nil {
		t.Fatal(err)
	}
	again, err := f.svc.Prepare(ctx, user, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Created) != 0 || len(again.Existing) != 3 {
		t.Fatalf("second prepare created %d, existing %d; want 0, 3", len(again.Created), len(again.Existing))
	}
	orders, _ := f.svc.List(ctx, user, "", 0)
	if len(orders) != 3 {
		t.Errorf("orders = %d, want 3", len(orders))
	}
}

func TestPrepareClampsDays(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Prepare(context.Background(), user, 500)
	if err != nil {
		t.Fatal(err)
	}
	if res.DaysAhead != engine.MaxPrepareDays {
		t.Errorf("days ahead = %d, want %d", res.DaysAhead, engine.MaxPrepareDays)
	}
}

func TestApproveTwiceExecutesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Prepare(ctx, user, 7); err != nil {
		t.Fatal(err)
	}
	rent := f.orderFor(t, model.SourceBill)

	first, err := f.svc.Approve(ctx, user, rent.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != model.StatusApproved {
		t.Fatalf("status after approve = %s, want approved", first.Status)
	}
	second, err := f.svc.Approve(ctx, user, rent.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != model.StatusApproved {
		t.Errorf("status after second approve = %s", second.Status)
	}

	if n := f.prov.calls.Load(); n != 1 {
		t.Errorf("provider calls = %d, want 1", n)
	}
	txns, _ := f.st.ListTransactions(ctx, user, 0)
	if len(txns) != 1 || txns[0].BillID != f.bill.ID {
		t.Fatalf("transactions = %+v, want one rent payment", txns)
	}
	if first.ProviderReference != "internal:"+rent.ID {
		t.Errorf("reference = %q", first.ProviderReference)
	}
}

func TestApproveWaitsForDueDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Prepare(ctx, user, 7); err != nil {
		t.Fatal(err)
	}
	stream := f.orderFor(t, model.SourceSubscription)

	o, err := f.svc.Approve(ctx, user, stream.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != model.StatusProcessing {
		t.Fatalf("status = %s, want processing", o.Status)
	}
	n, err := f.svc.ExecuteDue(ctx, user)
	if err != nil || n != 0 {
		t.Fatalf("ExecuteDue before due date = %d, %v", n, err)
	}

	f.clock.Set(time.Date(2026, 3, 20, 6, 0, 0, 0, time.UTC))
	n, err = f.svc.ExecuteDue(ctx, user)
	if err != nil || n != 1 {
		t.Fatalf("ExecuteDue on due date = %d, %v", n, err)
	}
	got, _ := f.st.GetPaymentOrder(ctx, user, stream.ID)
	if got.Status != model.StatusApproved {
		t.Errorf("status = %s, want approved", got.Status)
	}
	sub, _ := f.st.GetSubscription(ctx, user, stream.SourceID)
	if want := model.NewDate(2026, 4, 20); !sub.NextBillingDate.Equal(want) {
		t.Errorf("next billing = %s, want %s", sub.NextBillingDate, want)
	}
}

func TestCancelTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Prepare(ctx, user, 7); err != nil {
		t.Fatal(err)
	}
	goal := f.orderFor(t, model.SourceGoal)
	rent := f.orderFor(t, model.SourceBill)

	c, err := f.svc.Cancel(ctx, user, goal.ID, "paused")
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != model.StatusCancelled || c.CancelledReason != "paused" {
		t.Errorf("cancelled = %s %q", c.Status, c.CancelledReason)
	}
	if _, err := f.svc.Approve(ctx, user, goal.ID, true); !errors.Is(err, model.ErrConflict) {
		t.Errorf("approve cancelled err = %v, want ErrConflict", err)
	}

	if _, err := f.svc.Approve(ctx, user, rent.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Cancel(ctx, user, rent.ID, ""); !errors.Is(err, model.ErrConflict) {
		t.Errorf("cancel paid err = %v, want ErrConflict", err)
	}
	if _, err := f.svc.Cancel(ctx, user, "missing", ""); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("cancel missing err = %v, want ErrNotFound", err)
	}
}

func TestCancelDuringExecutionConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Prepare(ctx, user, 7); err != nil {
		t.Fatal(err)
	}
	rent := f.orderFor(t, model.SourceBill)
	f.prov.entered = make(chan struct{}, 1)
	f.prov.gate = make(chan struct{})

	type result struct {
		o   model.PaymentOrder
		err error
	}
	done := make(chan result, 1)
	go func() {
		o, err := f.svc.Approve(ctx, user, rent.ID, true)
		done <- result{o, err}
	}()

	select {
	case <-f.prov.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("provider was never called")
	}
	inFlight, err := f.svc.Cancel(ctx, user, rent.ID, "changed my mind")
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("cancel while paying err = %v, want ErrConflict", err)
	}
	if inFlight.Status != model.StatusProcessing || inFlight.ExecutingSince == nil {
		t.Errorf("in-flight order = %s executing_since=%v", inFlight.Status, inFlight.ExecutingSince)
	}
	// A second executor backs off while the claim is live.
	if _, err := f.svc.Execute(ctx, user, rent.ID); !errors.Is(err, model.ErrConflict) {
		t.Errorf("second execute err = %v, want ErrConflict", err)
	}
	close(f.prov.gate)

	var res result
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("approve did not return")
	}
	if res.err != nil {
		t.Fatal(res.err)
	}
	if res.o.Status != model.StatusApproved || res.o.ProviderReference != "internal:"+rent.ID || res.o.ExecutingSince != nil {
		t.Fatalf("order = %s ref=%q executing_since=%v", res.o.Status, res.o.ProviderReference, res.o.ExecutingSince)
	}
	if n := f.prov.calls.Load(); n != 1 {
		t.Errorf("provider calls = %d, want 1", n)
	}
	txns, _ := f.st.ListTransactions(ctx, user, 0)
	if len(txns) != 1 {
		t.Errorf("transactions = %d, want 1", len(txns))
	}
}

func TestDeclinedPaymentFailsAndRetriesOnReapproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Prepare(ctx, user, 7); err != nil {
		t.Fatal(err)
	}
	rent := f.orderFor(t, model.SourceBill)
	f.prov.fail = []error{provider.ErrDeclined}

	failed, err := f.svc.Approve(ctx, user, rent.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if failed.Status != model.StatusFailed || failed.Attempts != 1 || !strings.Contains(failed.FailureReason, "declined") {
		t.Fatalf("order = %s attempts=%d reason=%q", failed.Status, failed.Attempts, failed.FailureReason)
	}
	if n := f.prov.calls.Load(); n != 1 {
		t.Errorf("declines are final: provider calls = %d, want 1", n)
	}

	ok, err := f.svc.Approve(ctx, user, rent.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if ok.Status != model.StatusApproved || ok.Attempts != 2 || ok.FailureReason != "" {
		t.Errorf("retried order = %s attempts=%d reason=%q", ok.Status, ok.Attempts, ok.FailureReason)
	}
}

func TestTransientProviderErrorsRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Prepare(ctx, user, 7); err != nil {
		t.Fatal(err)
	}
	rent := f.orderFor(t, model.SourceBill)
	f.prov.fail = []error{provider.ErrRateLimited, errors.New("connection reset")}

	o, err := f.svc.Approve(ctx, user, rent.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != model.StatusApproved {
		t.Errorf("status = %s, want approved after retries", o.Status)
	}
	if n := f.prov.calls.Load(); n != 3 {
		t.Errorf("provider calls = %d, want 3", n)
	}
}

func TestQueuedExecution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Prepare(ctx, user, 7); err != nil {
		t.Fatal(err)
	}
	rent := f.orderFor(t, model.SourceBill)

	o, err := f.svc.Approve(ctx, user, rent.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != model.StatusProcessing && o.Status != model.StatusApproved {
		t.Fatalf("status right after approve = %s", o.Status)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := f.svc.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
	got, _ := f.st.GetPaymentOrder(ctx, user, rent.ID)
	if got.Status != model.StatusApproved {
		t.Errorf("status after drain = %s, want approved", got.Status)
	}

	var statuses []model.PaymentStatus
	for _, e := range f.published() {
		if e.OrderID == rent.ID {
			statuses = append(statuses, e.To)
		}
	}
	want := []model.PaymentStatus{model.StatusApprovalRequired, model.StatusProcessing, model.StatusApproved}
	if len(statuses) != len(want) {
		t.Fatalf("events = %v, want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, statuses[i], want[i])
		}
	}
}

func TestListValidation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.List(context.Background(), user, "bogus", 10); !model.IsValidation(err) {
		t.Errorf("err = %v, want validation error", err)
	}
	orders, err := f.svc.List(context.Background(), user, model.StatusFailed, -5)
	if err != nil {
		t.Fatal(err)
	}
	if orders == nil || len(orders) != 0 {
		t.Errorf("orders = %v, want empty slice", orders)
	}
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Sweep(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if res.Prepared != 3 || res.Dispatched != 0 {
		t.Errorf("sweep = %+v, want 3 prepared, 0 dispatched", res)
	}
}
