package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/pipeline"

	"github.com/shopspring/decimal"
)

// Stress score weights and caps.
const (
	BurnWeight      = 40.0
	LiquidityWeight = 35.0
	CleanupWeight   = 25.0
	// Buffers at or above this many days contribute nothing.
	liquidityFullDays = 90.0
	// Cleanup items beyond this count add no more stress.
	cleanupCap = 10
	// Reported buffer days are capped here.
	maxBufferDays = 999
)

var (
	thirty  = decimal.NewFromInt(30)
	fifteen = decimal.NewFromInt(15)
)

// StressInputs are the figures the stress score is computed from.
type StressInputs struct {
	MonthlyIncome   decimal.Decimal
	MonthlyExpenses decimal.Decimal
	// BufferDays is nil when the buffer is infinite (no expenses).
	BufferDays   *decimal.Decimal
	CleanupItems int
}

// StressScore combines burn rate, liquidity buffer and cleanup backlog
// into 0-100. Each component is monotonic in its input.
func StressScore(in StressInputs) (int, model.StressComponents) {
	var c model.StressComponents

	if in.MonthlyIncome.IsPositive() {
		ratio, _ := in.MonthlyExpenses.Div(in.MonthlyIncome).Float64()
		c.BurnRate = BurnWeight * math.Min(1, math.Max(0, ratio))
	}
	if in.BufferDays != nil {
		days, _ := in.BufferDays.Float64()
		days = math.Max(0, math.Min(days, liquidityFullDays))
		c.Liquidity = LiquidityWeight * (1 - days/liquidityFullDays)
	}
	items := min(max(in.CleanupItems, 0), cleanupCap)
	c.Cleanup = CleanupWeight * float64(items) / cleanupCap

	c.BurnRate = round2(c.BurnRate)
	c.Liquidity = round2(c.Liquidity)
	c.Cleanup = round2(c.Cleanup)
	score := int(math.Round(c.BurnRate + c.Liquidity + c.Cleanup))
	return max(0, min(score, 100)), c
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// StressLevelFor classifies a stress score.
func StressLevelFor(score int) model.StressLevel {
	switch {
	case score >= 75:
		return model.StressCritical
	case score >= 50:
		return model.StressHigh
	case score >= 25:
		return model.StressModerate
	default:
		return model.StressLow
	}
}

// LiquidityBuffer returns how many days the balance covers at this month's
// spending pace (expenses / 30 per day), floored at zero and capped. It is
// nil when there were no expenses.
func LiquidityBuffer(balance, monthlyExpenses decimal.Decimal) *decimal.Decimal {
	if !monthlyExpenses.IsPositive() {
		return nil
	}
	days := model.NonNegative(balance).Div(monthlyExpenses.Div(thirty)).Floor()
	if days.GreaterThan(decimal.NewFromInt(maxBufferDays)) {
		days = decimal.NewFromInt(maxBufferDays)
	}
	return &days
}

type triageBuilder struct {
	actions []model.TriageAction
}

func (b *triageBuilder) add(a model.TriageAction) {
	a.ID = actionID(a.Area, a.Title, len(b.actions)+1)
	b.actions = append(b.actions, a)
}

func actionID(area, title string, index int) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteByte('-')
		}
	}
	slug := strings.Trim(sb.String(), "-")
	if len(slug) > 48 {
		slug = slug[:48]
	}
	return fmt.Sprintf("%s-%s-%d", area, slug, index)
}

func amountPtr(d decimal.Decimal) *decimal.Decimal {
	d = model.Cents(d)
	return &d
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Triage scores financial stress for the current month and lists every
// actionable gap, most severe first.
func Triage(l *pipeline.Ledger, s Settings) (model.TriageReport, error) {
	today := l.Today()
	from, to := l.MonthBounds()
	snap := l.Snapshot()

	income := l.IncomeBetween(from, to)
	expenses := l.ExpensesBetween(from, to)
	balance := l.TotalBalance()
	commitments := ResolveCommitments(l, s)

	burnPct := decimal.Zero
	if income.IsPositive() {
		burnPct = model.Cents(model.Percent(expenses, income))
	}
	buffer := LiquidityBuffer(balance, expenses)

	pending := l.PendingTransactions()
	pendingTotal := decimal.Zero
	for _, t := range pending {
		if t.Type == model.Expense {
			pendingTotal = pendingTotal.Add(t.Amount)
		}
	}
	uncategorized := l.UncategorizedExpenses(today.AddDays(-30))
	uncategorizedTotal := pipeline.Sum(uncategorized)

	subShare := decimal.Zero
	if income.IsPositive() {
		subShare = model.Cents(model.Percent(commitments.Subscriptions, income))
	}

	score, components := StressScore(StressInputs{
		MonthlyIncome:   income,
		MonthlyExpenses: expenses,
		BufferDays:      buffer,
		CleanupItems:    len(pending) + len(uncategorized),
	})

	safe, err := SafeToSpend(l, s)
	if err != nil {
		return model.TriageReport{}, err
	}

	b := &triageBuilder{}

	// Cash flow.
	switch {
	case income.IsZero() && expenses.IsPositive():
		b.add(model.TriageAction{
			Severity:     model.SeverityCritical,
			Area:         "cashflow",
			Title:        "No income logged this month",
			Detail:       "Expenses are being recorded, but income is missing. Add paycheck or freelance income to prevent misleading risk signals.",
			ImpactAmount: amountPtr(expenses),
			ActionLabel:  "Add income transaction",
			ActionRoute:  "/transactions",
		})
	case burnPct.GreaterThanOrEqual(model.Hundred):
		b.add(model.TriageAction{
			Severity:     model.SeverityCritical,
			Area:         "cashflow",
			Title:        "Monthly burn rate is above 100%",
			Detail:       fmt.Sprintf("Current spending is at %s%% of income. Trim variable spending before the month closes.", burnPct.StringFixed(1)),
			ImpactAmount: amountPtr(expenses.Sub(income)),
			ActionLabel:  "Review spending trend",
			ActionRoute:  "/dashboard/summary",
		})
	case burnPct.GreaterThanOrEqual(decimal.NewFromInt(85)):
		b.add(model.TriageAction{
			Severity:     model.SeverityHigh,
			Area:         "cashflow",
			Title:        "Burn rate is getting tight",
			Detail:       fmt.Sprintf("Spending reached %s%% of income. A small cut this week can prevent overdraft pressure.", burnPct.StringFixed(1)),
			ImpactAmount: amountPtr(expenses),
			ActionLabel:  "Audit top categories",
			ActionRoute:  "/dashboard/summary",
		})
	}

	if buffer != nil && buffer.LessThan(fifteen) {
		sev := model.SeverityHigh
		if buffer.LessThan(decimal.NewFromInt(7)) {
			sev = model.SeverityCritical
		}
		b.add(model.TriageAction{
			Severity:     sev,
			Area:         "cashflow",
			Title:        "Liquidity buffer is low",
			Detail:       fmt.Sprintf("At current pace, available balance covers about %s day(s). Prioritize essentials and delay optional spend.", buffer.String()),
			ImpactAmount: amountPtr(expenses.Div(thirty).Mul(fifteen)),
			ActionLabel:  "Review upcoming payments",
			ActionRoute:  "/autopilot/timeline",
		})
	}

	// Bills.
	type dueBill struct {
		bill model.Bill
		due  model.Date
	}
	var overdue, dueSoon []dueBill
	for _, bill := range snap.Bills {
		due := bill.DueIn(today)
		switch {
		case isOverdue(bill, today):
			overdue = append(overdue, dueBill{bill, due})
		case bill.PaidSince(due):
		case today.DaysUntil(due) >= 0 && today.DaysUntil(due) <= 7:
			dueSoon = append(dueSoon, dueBill{bill, due})
		}
	}
	for i, ob := range overdue {
		if i == 3 {
			break
		}
		sev := model.SeverityCritical
		if ob.bill.AutopayEnabled {
			sev = model.SeverityHigh
		}
		due := ob.due
		b.add(model.TriageAction{
			Severity:     sev,
			Area:         "bills",
			Title:        "Bill overdue: " + ob.bill.Name,
			Detail:       fmt.Sprintf("This bill was due on %s. Mark it paid or reschedule immediately.", due),
			ImpactAmount: amountPtr(ob.bill.AmountEstimated),
			DueDate:      &due,
			ActionLabel:  "Resolve overdue bill",
			ActionRoute:  "/bills",
		})
	}
	if len(overdue) == 0 && len(dueSoon) > 0 {
		next := dueSoon[0]
		for _, db := range dueSoon[1:] {
			if db.due.Before(next.due) {
				next = db
			}
		}
		due := next.due
		days := today.DaysUntil(due)
		a := model.TriageAction{
			Severity:     model.SeverityMedium,
			Area:         "bills",
			Title:        fmt.Sprintf("Upcoming bill in %d day(s)", days),
			Detail:       fmt.Sprintf("%s is due on %s. Queue this payment now to avoid end-of-month stress.", next.bill.Name, due),
			ImpactAmount: amountPtr(next.bill.AmountEstimated),
			DueDate:      &due,
			ActionLabel:  "Plan bill payment",
			ActionRoute:  "/autopilot/payments",
		}
		if !next.bill.AutopayEnabled && next.bill.AmountEstimated.GreaterThan(safe.MonthlySafeTotal) {
			a.Severity = model.SeverityHigh
			a.Detail = fmt.Sprintf("%s (%s) is due on %s and exceeds what is safe to spend this month (%s).",
				next.bill.Name, money(next.bill.AmountEstimated), due, money(safe.MonthlySafeTotal))
		}
		b.add(a)
	}

	// Budget rules.
	type overBudget struct {
		name         string
		spent, limit decimal.Decimal
		overBy       decimal.Decimal
	}
	var over []overBudget
	for _, r := range snap.Rules {
		if r.MonthlyLimit == nil || !r.MonthlyLimit.IsPositive() {
			continue
		}
		spent := l.CategorySpent(r.CategoryID, from, to)
		if spent.GreaterThan(*r.MonthlyLimit) {
			name := snap.CategoryName(r.CategoryID)
			if name == "" {
				name = "Uncategorized"
			}
			over = append(over, overBudget{name, spent, *r.MonthlyLimit, spent.Sub(*r.MonthlyLimit)})
		}
	}
	sort.SliceStable(over, func(i, j int) bool { return over[i].overBy.GreaterThan(over[j].overBy) })
	for i, ob := range over {
		if i == 2 {
			break
		}
		sev := model.SeverityMedium
		if ob.overBy.Div(ob.limit).GreaterThanOrEqual(decimal.RequireFromString("0.2")) {
			sev = model.SeverityHigh
		}
		b.add(model.TriageAction{
			Severity:     sev,
			Area:         "budget",
			Title:        ob.name + " is over budget",
			Detail:       fmt.Sprintf("Spent %s vs limit %s. Reduce this category or rebalance your budget rules.", money(ob.spent), money(ob.limit)),
			ImpactAmount: amountPtr(ob.overBy),
			ActionLabel:  "Adjust budget rule",
			ActionRoute:  "/budgets/rules",
		})
	}

	// Data cleanup.
	if len(pending) > 0 {
		b.add(model.TriageAction{
			Severity:     model.SeverityMedium,
			Area:         "transactions",
			Title:        fmt.Sprintf("%d pending payment(s) need review", len(pending)),
			Detail:       "Pending expenses create uncertainty in your real balance. Confirm or cancel them so your dashboard reflects reality.",
			ImpactAmount: amountPtr(pendingTotal),
			ActionLabel:  "Clear pending items",
			ActionRoute:  "/transactions",
		})
	}
	if len(uncategorized) > 0 {
		b.add(model.TriageAction{
			Severity:     model.SeverityMedium,
			Area:         "transactions",
			Title:        fmt.Sprintf("%d uncategorized expense(s)", len(uncategorized)),
			Detail:       "Uncategorized spend hides patterns and weakens budget alerts. Categorize recent transactions to improve guidance quality.",
			ImpactAmount: amountPtr(uncategorizedTotal),
			ActionLabel:  "Categorize transactions",
			ActionRoute:  "/transactions",
		})
	}

	// Subscriptions.
	if income.IsPositive() && commitments.Subscriptions.IsPositive() {
		switch {
		case subShare.GreaterThanOrEqual(fifteen):
			b.add(model.TriageAction{
				Severity:     model.SeverityHigh,
				Area:         "subscriptions",
				Title:        "Subscriptions are consuming a large share of income",
				Detail:       fmt.Sprintf("Recurring services take about %s%% of monthly income.", subShare.StringFixed(1)),
				ImpactAmount: amountPtr(commitments.Subscriptions),
				ActionLabel:  "Trim recurring costs",
				ActionRoute:  "/subscriptions",
			})
		case subShare.GreaterThanOrEqual(decimal.NewFromInt(8)):
			b.add(model.TriageAction{
				Severity:     model.SeverityMedium,
				Area:         "subscriptions",
				Title:        "Recurring costs deserve a quick audit",
				Detail:       fmt.Sprintf("Subscriptions total about %s%% of monthly income. Cancel low-value services.", subShare.StringFixed(1)),
				ImpactAmount: amountPtr(commitments.Subscriptions),
				ActionLabel:  "Audit subscriptions",
				ActionRoute:  "/subscriptions",
			})
		}
	}
	var stale *model.Subscription
	for _, sub := range l.ActiveSubscriptions() {
		if sub.UsageCount > 1 || sub.MonthlyAmount().LessThan(fifteen) {
			continue
		}
		if stale == nil || sub.MonthlyAmount().GreaterThan(stale.MonthlyAmount()) {
			stale = &sub
		}
	}
	if stale != nil {
		b.add(model.TriageAction{
			Severity:     model.SeverityLow,
			Area:         "subscriptions",
			Title:        "Low-usage subscription: " + stale.Name,
			Detail:       fmt.Sprintf("%s costs about %s a month and is barely used. Pause or cancel it.", stale.Name, money(stale.MonthlyAmount())),
			ImpactAmount: amountPtr(model.Cents(stale.MonthlyAmount())),
			ActionLabel:  "Review subscription",
			ActionRoute:  "/subscriptions",
		})
	}

	// Setup gaps.
	if len(snap.Categories) == 0 {
		b.add(model.TriageAction{
			Severity:    model.SeverityLow,
			Area:        "setup",
			Title:       "Create spending categories",
			Detail:      "Categories let budget rules and reports separate essentials from discretionary spend.",
			ActionLabel: "Add categories",
			ActionRoute: "/categories",
		})
	}
	if len(snap.Rules) == 0 && expenses.IsPositive() {
		b.add(model.TriageAction{
			Severity:    model.SeverityLow,
			Area:        "setup",
			Title:       "Add budget rules",
			Detail:      "Without planned-expense rules every expense counts against free money.",
			ActionLabel: "Create budget rule",
			ActionRoute: "/budgets/rules",
		})
	}
	if !safe.Allocation.Allocation.FreeMoneyFloorMet && safe.Allocation.SalaryConsidered.IsPositive() {
		b.add(model.TriageAction{
			Severity:     model.SeverityMedium,
			Area:         "budget",
			Title:        "Free money is below the floor",
			Detail:       fmt.Sprintf("Free money of %s is under the %s floor. Lower a planned expense or goal contribution.", money(safe.Allocation.Allocation.FreeMoney), money(safe.Allocation.Allocation.FreeMoneyFloorTarget)),
			ImpactAmount: amountPtr(safe.Allocation.Allocation.FreeMoneyFloorTarget.Sub(safe.Allocation.Allocation.FreeMoney)),
			ActionLabel:  "Review salary split",
			ActionRoute:  "/autopilot/salary-split",
		})
	}

	if len(b.actions) == 0 {
		b.add(model.TriageAction{
			Severity:    model.SeverityLow,
			Area:        "overview",
			Title:       "Solid month so far",
			Detail:      "No urgent issues detected. Keep logging transactions to keep guidance accurate.",
			ActionLabel: "View timeline",
			ActionRoute: "/autopilot/timeline",
		})
	}

	sortActions(b.actions)

	metrics := model.TriageMetrics{
		BurnRatePct:             burnPct,
		MonthlyIncome:           income,
		MonthlyExpenses:         expenses,
		MonthlyFixedCosts:       model.Cents(commitments.Total),
		TotalBalance:            balance,
		LiquidityBufferDays:     buffer,
		LiquidityBufferInfinite: buffer == nil,
		PendingCount:            len(pending),
		PendingTotal:            pendingTotal,
		UncategorizedCount:      len(uncategorized),
		UncategorizedTotal:      uncategorizedTotal,
		SubscriptionSharePct:    subShare,
	}

	return model.TriageReport{
		GeneratedAt: l.Now(),
		StressScore: score,
		StressLevel: StressLevelFor(score),
		Components:  components,
		Metrics:     metrics,
		Actions:     b.actions,
	}, nil
}

func impactOf(a model.TriageAction) decimal.Decimal {
	if a.ImpactAmount == nil {
		return decimal.Zero
	}
	return *a.ImpactAmount
}

// sortActions orders by severity, then impact, both descending.
func sortActions(actions []model.TriageAction) {
	sort.SliceStable(actions, func(i, j int) bool {
		a, b := actions[i], actions[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if ia, ib := impactOf(a), impactOf(b); !ia.Equal(ib) {
			return ia.GreaterThan(ib)
		}
		return a.Title < b.Title
	})
}
