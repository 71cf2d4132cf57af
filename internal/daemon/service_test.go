package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/paycheck/internal/engine"
	"github.com/theirongolddev/paycheck/internal/logger"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/payments"
	"github.com/theirongolddev/paycheck/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{Interval: 10 * time.Second, EventsBuffer: 2}, nil, logger.Nop())

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestSweepPreparesForEveryUser(t *testing.T) {
	st := openStore(t)
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	st.SetClock(clock)
	ctx := context.Background()

	for _, u := range []string{"alice", "bob"} {
		if _, err := st.CreateBill(ctx, u, model.Bill{
			Name: "Rent", AmountEstimated: decimal.NewFromInt(900), DueDay: 20, AutopayEnabled: true,
		}); err != nil {
			t.Fatal(err)
		}
	}

	d := New(Config{DefaultUser: "alice", CacheTTL: time.Minute}, st, logger.Nop())
	pay := payments.NewService(st, payments.Options{
		Settings:    engine.DefaultSettings(),
		PrepareDays: 7,
		Now:         clock,
		Publish:     d.PublishPayment,
	}, logger.Nop())

	d.sweepOnce(ctx, pay)

	status := d.snapshotStatus()
	if status.SweepCount != 1 || status.LastError != "" {
		t.Fatalf("status = %+v", status)
	}
	if status.LastSweep.Users != 2 || status.LastSweep.Prepared != 2 {
		t.Errorf("last sweep = %+v, want 2 users, 2 prepared", status.LastSweep)
	}

	var paymentEvents, sweepEvents int
	d.mu.RLock()
	for _, ev := range d.events {
		switch ev.Type {
		case EventPayment:
			paymentEvents++
			if ev.Payment.To != model.StatusApprovalRequired {
				t.Errorf("payment event to = %s, want approval_required", ev.Payment.To)
			}
		case EventSweep:
			sweepEvents++
		}
	}
	d.mu.RUnlock()
	if paymentEvents != 2 || sweepEvents != 1 {
		t.Errorf("events: %d payment, %d sweep; want 2 and 1", paymentEvents, sweepEvents)
	}

	// A quiet second sweep publishes nothing new.
	d.sweepOnce(ctx, pay)
	if got := d.snapshotStatus().EventCount; got != 3 {
		t.Errorf("event count after idle sweep = %d, want 3", got)
	}
}

func TestEndpoints(t *testing.T) {
	d := New(Config{}, nil, logger.Nop())
	d.PublishPayment(payments.Event{OrderID: "po1", To: model.StatusProcessing, At: time.Now()})

	r := chi.NewRouter()
	d.Mount(r)
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/events")
	if err != nil {
		t.Fatal(err)
	}
	var events []Event
	err = json.NewDecoder(resp.Body).Decode(&events)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Payment == nil || events[0].Payment.OrderID != "po1" {
		t.Fatalf("events = %+v", events)
	}

	resp, err = http.Get(ts.URL + "/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	var status Status
	err = json.NewDecoder(resp.Body).Decode(&status)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if status.EventCount != 1 {
		t.Errorf("event_count = %d, want 1", status.EventCount)
	}
}

func TestStreamSendsLatestSweep(t *testing.T) {
	d := New(Config{}, nil, logger.Nop())
	r := chi.NewRouter()
	d.Mount(r)
	ts := httptest.NewServer(r)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(line) != "event: sweep" {
		t.Errorf("first line = %q, want event: sweep", line)
	}
}
