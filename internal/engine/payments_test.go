package engine

import (
	"testing"
	"time"

	"github.com/theirongolddev/paycheck/internal/model"
)

func TestPaymentCandidates(t *testing.T) {
	l := ledgerAt(t, timelineSnapshot(), 2026, 3, 15)

	got := PaymentCandidates(l, testSettings(), 20)
	want := map[model.PaymentKey]string{
		{SourceType: model.SourceBill, SourceID: "rent", DueOn: "2026-04-01"}:          "1000",
		{SourceType: model.SourceSubscription, SourceID: "music", DueOn: "2026-03-20"}: "10",
		{SourceType: model.SourceGoal, SourceID: "trip", DueOn: "2026-03-25"}:          "200",
	}
	if len(got) != len(want) {
		t.Fatalf("candidates = %+v, want %d", got, len(want))
	}
	for _, o := range got {
		amount, ok := want[o.Key()]
		if !ok {
			t.Errorf("unexpected candidate %+v", o.Key())
			continue
		}
		if !o.Amount.Equal(dec(amount)) {
			t.Errorf("%s amount = %s, want %s", o.SourceID, o.Amount, amount)
		}
	}
}

func TestPaymentCandidatesSkipsPaidBill(t *testing.T) {
	snap := timelineSnapshot()
	paid := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	snap.Bills[0].LastPaidAt = &paid
	snap.Subscriptions = nil
	snap.Goals = nil

	got := PaymentCandidates(ledgerAt(t, snap, 2026, 3, 1), testSettings(), 3)
	if len(got) != 0 {
		t.Errorf("candidates = %+v, want none for a bill paid today", got)
	}
}

func TestPaymentCandidatesClampsWindow(t *testing.T) {
	snap := &model.Snapshot{Bills: []model.Bill{{ID: "rent", Name: "Rent", AmountEstimated: dec("1000"), DueDay: 15, AutopayEnabled: true}}}
	l := ledgerAt(t, snap, 2026, 3, 15)

	if got := PaymentCandidates(l, testSettings(), -4); len(got) != 1 || got[0].DueOn.String() != "2026-03-15" {
		t.Errorf("negative window = %+v, want today's bill only", got)
	}
	if got := PaymentCandidates(l, testSettings(), 1000); len(got) != 3 {
		t.Errorf("clamped window = %d orders, want 3 (Mar, Apr, May within 90 days)", len(got))
	}
}
