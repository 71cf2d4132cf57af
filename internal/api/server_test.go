package api

import (
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

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	now := func() time.Time { return testNow }
	st.SetClock(now)

	settings := engine.DefaultSettings()
	pay := payments.NewService(st, payments.Options{
		Provider:    payments.LedgerProvider{},
		Settings:    settings,
		AutoExecute: true,
		PrepareDays: 7,
		Now:         now,
	}, logger.Nop())

	srv := NewServer(st, pay, Options{
		Settings:    settings,
		DefaultUser: "u1",
		PrepareDays: 7,
		CacheTTL:    time.Minute,
		Now:         now,
	}, logger.Nop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, st
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := do(t, ts, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodGet, "/metrics", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("/metrics status = %d, want 404 when disabled", resp.StatusCode)
	}
}

func TestBillCRUD(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, ts, http.MethodPost, Prefix+"/bills/", `{"name":"Rent","amount_estimated":"1200","due_day":1,"autopay_enabled":true}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	bill := decode[model.Bill](t, resp)
	if bill.ID == "" || !bill.AmountEstimated.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("created bill = %+v", bill)
	}

	resp = do(t, ts, http.MethodPut, Prefix+"/bills/"+bill.ID, `{"name":"Rent","amount_estimated":1250,"due_day":1}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, want 200", resp.StatusCode)
	}
	if got := decode[model.Bill](t, resp); !got.AmountEstimated.Equal(decimal.NewFromInt(1250)) || got.AutopayEnabled {
		t.Errorf("updated bill = %+v", got)
	}

	bills := decode[[]model.Bill](t, do(t, ts, http.MethodGet, Prefix+"/bills/", ""))
	if len(bills) != 1 {
		t.Fatalf("len(bills) = %d, want 1", len(bills))
	}

	if resp := do(t, ts, http.MethodDelete, Prefix+"/bills/"+bill.ID, ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodGet, Prefix+"/bills/"+bill.ID, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", resp.StatusCode)
	}
}

func TestEmptyListsAreArrays(t *testing.T) {
	ts, _ := newTestServer(t)
	for _, path := range []string{"/goals/", "/subscriptions/", "/transactions/", "/notifications/", "/autopilot/payments/"} {
		resp := do(t, ts, http.MethodGet, Prefix+path, "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
			continue
		}
		if got := decode[json.RawMessage](t, resp); strings.TrimSpace(string(got)) != "[]" {
			t.Errorf("%s body = %s, want []", path, got)
		}
	}
}

func TestValidationErrors(t *testing.T) {
	ts, _ := newTestServer(t)
	tests := []struct {
		name      string
		method    string
		path      string
		body      string
		wantField string
	}{
		{"negative bill", http.MethodPost, "/bills/", `{"name":"X","amount_estimated":"-5","due_day":1}`, "amount_estimated"},
		{"unknown field", http.MethodPost, "/bills/", `{"nope":1}`, "body"},
		{"bad chart range", http.MethodGet, "/dashboard/summary?chart_range=year", "", "chart_range"},
		{"bad days", http.MethodGet, "/autopilot/timeline?days_future=soon", "", "days_future"},
		{"bad override", http.MethodGet, "/autopilot/salary-split?salary_override=lots", "", "salary_override"},
		{"bad status", http.MethodGet, "/autopilot/payments/?status=maybe", "", "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, ts, tt.method, Prefix+tt.path, tt.body)
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", resp.StatusCode)
			}
			env := decode[errorEnvelope](t, resp)
			if env.Error.Type != "validation_error" || env.Error.Field != tt.wantField {
				t.Errorf("error = %+v, want field %q", env.Error, tt.wantField)
			}
		})
	}
}

func TestSafeToSpendCachedUntilWrite(t *testing.T) {
	ts, st := newTestServer(t)
	ctx := context.Background()
	if _, err := st.CreateTransaction(ctx, "u1", model.Transaction{
		Amount: decimal.NewFromInt(3100), Type: model.Income, Status: model.Completed,
		Description: "Salary", OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}

	path := Prefix + "/autopilot/safe-to-spend-daily"
	first := do(t, ts, http.MethodGet, path, "")
	if first.StatusCode != http.StatusOK || first.Header.Get(cacheHeader) != "miss" {
		t.Fatalf("first: status %d, cache %q", first.StatusCode, first.Header.Get(cacheHeader))
	}
	before := decode[model.SafeToSpend](t, first)
	if before.DaysLeftInMonth != 17 {
		t.Errorf("days_left_in_month = %d, want 17", before.DaysLeftInMonth)
	}

	if got := do(t, ts, http.MethodGet, path, "").Header.Get(cacheHeader); got != "hit" {
		t.Errorf("second lookup cache = %q, want hit", got)
	}

	if _, err := st.CreateTransaction(ctx, "u1", model.Transaction{
		Amount: decimal.NewFromInt(100), Type: model.Expense, Status: model.Completed,
		Description: "Groceries", OccurredAt: testNow,
	}); err != nil {
		t.Fatal(err)
	}
	third := do(t, ts, http.MethodGet, path, "")
	if third.Header.Get(cacheHeader) != "miss" {
		t.Fatalf("after write cache = %q, want miss", third.Header.Get(cacheHeader))
	}
	after := decode[model.SafeToSpend](t, third)
	if !after.Breakdown.SpentToday.Equal(decimal.NewFromInt(100)) {
		t.Errorf("spent_today = %s, want 100", after.Breakdown.SpentToday)
	}
}

func TestSnapshotFailureIsTransient(t *testing.T) {
	ts, st := newTestServer(t)
	_ = st.Close()

	resp := do(t, ts, http.MethodGet, Prefix+"/dashboard/triage", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if env := decode[errorEnvelope](t, resp); env.Error.Type != "transient_error" {
		t.Errorf("error type = %q, want transient_error", env.Error.Type)
	}
}

func TestPaymentFlow(t *testing.T) {
	ts, st := newTestServer(t)
	if _, err := st.CreateBill(context.Background(), "u1", model.Bill{
		Name: "Gym", AmountEstimated: decimal.NewFromInt(50), DueDay: 18, AutopayEnabled: true,
	}); err != nil {
		t.Fatal(err)
	}

	resp := do(t, ts, http.MethodPost, Prefix+"/autopilot/payments/prepare?days_ahead=7", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("prepare status = %d, want 201", resp.StatusCode)
	}
	prep := decode[payments.PrepareResult](t, resp)
	if len(prep.Created) != 1 || prep.Created[0].Status != model.StatusApprovalRequired {
		t.Fatalf("prepared = %+v", prep)
	}
	id := prep.Created[0].ID

	again := decode[payments.PrepareResult](t, do(t, ts, http.MethodPost, Prefix+"/autopilot/payments/prepare", ""))
	if len(again.Created) != 0 || len(again.Existing) != 1 {
		t.Errorf("second prepare = %+v, want one existing", again)
	}

	notes := decode[[]model.Notification](t, do(t, ts, http.MethodGet, Prefix+"/notifications/?unread=true", ""))
	if len(notes) != 1 || notes[0].PaymentOrderID != id {
		t.Errorf("notifications = %+v", notes)
	}

	resp = do(t, ts, http.MethodPost, Prefix+"/autopilot/payments/"+id+"/approve", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("approve status = %d, want 202", resp.StatusCode)
	}
	if o := decode[model.PaymentOrder](t, resp); o.Status != model.StatusApproved {
		t.Errorf("approved order status = %s, want approved", o.Status)
	}

	resp = do(t, ts, http.MethodPost, Prefix+"/autopilot/payments/"+id+"/cancel", `{"reason":"changed my mind"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("cancel after pay status = %d, want 409", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodPost, Prefix+"/autopilot/payments/missing/approve", `{"execute_now":false}`); resp.StatusCode != http.StatusNotFound {
		t.Errorf("approve missing status = %d, want 404", resp.StatusCode)
	}
}

func TestGoalContribute(t *testing.T) {
	ts, _ := newTestServer(t)
	goal := decode[model.Goal](t, do(t, ts, http.MethodPost, Prefix+"/goals/", `{"name":"Trip","target_amount":"1000","priority":1}`))
	if goal.ID == "" {
		t.Fatal("goal not created")
	}

	resp := do(t, ts, http.MethodPost, Prefix+"/goals/"+goal.ID+"/contribute", `{"amount":"75.50","note":"march"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("contribute status = %d, want 201", resp.StatusCode)
	}
	out := decode[contributeResponse](t, resp)
	if !out.Goal.CurrentAmount.Equal(decimal.RequireFromString("75.50")) {
		t.Errorf("current_amount = %s, want 75.50", out.Goal.CurrentAmount)
	}

	logs := decode[[]model.GoalLog](t, do(t, ts, http.MethodGet, Prefix+"/goals/"+goal.ID+"/logs", ""))
	if len(logs) != 1 || logs[0].Note != "march" {
		t.Errorf("logs = %+v", logs)
	}
}
