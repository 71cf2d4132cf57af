package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/paycheck/internal/config"
	"github.com/theirongolddev/paycheck/internal/engine"
	"github.com/theirongolddev/paycheck/internal/logger"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/payments"
	"github.com/theirongolddev/paycheck/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

const testUser = "u1"

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	now := func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	st.SetClock(now)

	ctx := context.Background()
	if _, err := st.CreateBill(ctx, testUser, model.Bill{Name: "Rent", AmountEstimated: decimal.NewFromInt(1200), DueDay: 15, AutopayEnabled: true}); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.General.UserID = testUser
	cfg.Payments.PrepareDays = 7

	svc := payments.NewService(st, payments.Options{
		Provider:    payments.LedgerProvider{},
		Settings:    engine.DefaultSettings(),
		AutoExecute: true,
		PrepareDays: 7,
		Now:         now,
	}, logger.Nop())

	return Deps{
		Store:      st,
		Payments:   svc,
		Config:     cfg,
		ConfigPath: filepath.Join(t.TempDir(), "config.toml"),
		Now:        now,
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and feeds its message back into the app.
func run(t *testing.T, a App, cmd tea.Cmd) App {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m, _ := a.Update(cmd())
	return m.(App)
}

func TestLoadViews(t *testing.T) {
	deps := newTestDeps(t)
	v, err := LoadViews(context.Background(), deps, engine.DefaultSettings(), testUser)
	if err != nil {
		t.Fatalf("LoadViews: %v", err)
	}
	if !v.Timeline.Today.Equal(model.NewDate(2026, 3, 14)) {
		t.Fatalf("Timeline.Today = %v, want 2026-03-14", v.Timeline.Today)
	}
	if len(v.Orders) != 0 {
		t.Fatalf("Orders = %d, want 0 before prepare", len(v.Orders))
	}
	if v.Split.Allocation.Commitments.IsNegative() {
		t.Fatalf("Commitments = %s, want non-negative", v.Split.Allocation.Commitments)
	}
}

func TestPaymentsFlow(t *testing.T) {
	deps := newTestDeps(t)
	a := NewApp(deps)
	a = run(t, a, loadViewsCmd(deps, a.settings, a.user))
	if !a.loaded {
		t.Fatal("app not loaded after DataLoadedMsg")
	}

	m, _ := a.Update(key("p"))
	a = m.(App)
	if a.activeTab != tabPayments {
		t.Fatalf("activeTab = %d, want %d", a.activeTab, tabPayments)
	}

	m, cmd := a.Update(key("P"))
	a = m.(App)
	if !a.busy {
		t.Fatal("busy = false after prepare")
	}
	a = run(t, a, cmd) // ActionDoneMsg
	if !strings.HasPrefix(a.message, "prepared 1 new") {
		t.Fatalf("message = %q, want prepared 1 new", a.message)
	}
	a = run(t, a, loadViewsCmd(deps, a.settings, a.user))
	if len(a.views.Orders) != 1 {
		t.Fatalf("Orders = %d, want 1", len(a.views.Orders))
	}
	if got := a.views.Orders[0].Status; got != model.StatusApprovalRequired {
		t.Fatalf("Status = %s, want %s", got, model.StatusApprovalRequired)
	}

	m, cmd = a.Update(key("c"))
	a = m.(App)
	a = run(t, a, cmd)
	if a.message != "Rent cancelled" {
		t.Fatalf("message = %q, want Rent cancelled", a.message)
	}
	a = run(t, a, loadViewsCmd(deps, a.settings, a.user))
	if got := a.views.Orders[0].Status; got != model.StatusCancelled {
		t.Fatalf("Status = %s, want %s", got, model.StatusCancelled)
	}

	// Approving a cancelled order surfaces the conflict.
	m, cmd = a.Update(key("a"))
	a = m.(App)
	a = run(t, a, cmd)
	if !strings.HasPrefix(a.message, "error:") {
		t.Fatalf("message = %q, want an error", a.message)
	}
}

func TestViewRendersEveryTab(t *testing.T) {
	deps := newTestDeps(t)
	a := NewApp(deps)
	a = run(t, a, loadViewsCmd(deps, a.settings, a.user))
	m, _ := a.Update(tea.WindowSizeMsg{Width: 140, Height: 45})
	a = m.(App)

	for i := range tabTriage + 1 {
		a.activeTab = i
		out := a.View()
		if out == "" {
			t.Fatalf("tab %d rendered empty", i)
		}
		if got := strings.Count(out, "\n") + 1; got != 45 {
			t.Fatalf("tab %d height = %d, want 45", i, got)
		}
	}
}

func TestViewTooNarrow(t *testing.T) {
	a := App{width: 60, height: 20}
	if out := a.View(); !strings.Contains(out, "too narrow") {
		t.Fatalf("View() = %q, want too narrow message", out)
	}
}
