package pipeline

import (
	"sort"

	"github.com/theirongolddev/paycheck/internal/model"

	"github.com/shopspring/decimal"
)

// DailySpending sums settled expenses per day over [from, to], oldest first.
// Every day in the range is present so charts show gaps as zeros.
func (l *Ledger) DailySpending(from, to model.Date) []model.ChartPoint {
	dayMap := make(map[string]decimal.Decimal)
	for _, t := range l.CompletedExpenses(from, to) {
		key := model.DateOf(t.OccurredAt).String()
		dayMap[key] = dayMap[key].Add(t.Amount)
	}

	var points []model.ChartPoint
	for day := from; !day.After(to); day = day.AddDays(1) {
		points = append(points, model.ChartPoint{
			Date:   day,
			Label:  day.Format("Jan 2"),
			Amount: dayMap[day.String()],
		})
	}
	return points
}

// CategorySpending sums settled expenses per category over [from, to],
// largest first. Expenses without a known category are grouped as
// "Uncategorized".
func (l *Ledger) CategorySpending(from, to model.Date) []model.CategorySlice {
	catMap := make(map[string]*model.CategorySlice)
	for _, t := range l.CompletedExpenses(from, to) {
		name := l.snap.CategoryName(t.CategoryID)
		id := t.CategoryID
		if name == "" {
			name, id = "Uncategorized", ""
		}
		cs, ok := catMap[id]
		if !ok {
			cs = &model.CategorySlice{CategoryID: id, Name: name}
			catMap[id] = cs
		}
		cs.Amount = cs.Amount.Add(t.Amount)
	}

	slices := make([]model.CategorySlice, 0, len(catMap))
	for _, cs := range catMap {
		slices = append(slices, *cs)
	}
	sort.Slice(slices, func(i, j int) bool {
		if c := slices[i].Amount.Cmp(slices[j].Amount); c != 0 {
			return c > 0
		}
		return slices[i].Name < slices[j].Name
	})
	return slices
}

// RecentTransactions returns up to n transactions, newest first.
func (l *Ledger) RecentTransactions(n int) []model.Transaction {
	txns := make([]model.Transaction, len(l.snap.Transactions))
	copy(txns, l.snap.Transactions)
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].OccurredAt.Equal(txns[j].OccurredAt) {
			return txns[i].OccurredAt.After(txns[j].OccurredAt)
		}
		return txns[i].ID > txns[j].ID
	})
	if len(txns) > n {
		txns = txns[:n]
	}
	return txns
}
