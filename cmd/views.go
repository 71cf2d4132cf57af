package cmd

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/paycheck/internal/cli"
	"github.com/theirongolddev/paycheck/internal/engine"
	"github.com/theirongolddev/paycheck/internal/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	flagSalary      string
	flagPast        int
	flagFuture      int
	flagChartRange  string
	flagShowDetails bool
)

var safeCmd = &cobra.Command{
	Use:   "safe",
	Short: "Show today's safe-to-spend allowance",
	RunE:  runSafe,
}

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Split the salary into commitments, planned spending, goals and free money",
	RunE:  runAllocate,
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show past and projected cash events",
	RunE:  runTimeline,
}

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Score financial stress and list actions",
	RunE:  runTriage,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the dashboard summary",
	RunE:  runSummary,
}

func init() {
	allocateCmd.Flags().StringVar(&flagSalary, "salary", "", "Allocate this salary instead of the detected one")
	timelineCmd.Flags().IntVar(&flagPast, "past", 7, "Days of history to include")
	timelineCmd.Flags().IntVar(&flagFuture, "future", 30, "Days to project ahead")
	timelineCmd.Flags().BoolVar(&flagShowDetails, "details", false, "Show prepared payments on salary days")
	summaryCmd.Flags().StringVar(&flagChartRange, "range", engine.ChartWeek, "Spending chart range: week or month")

	rootCmd.AddCommand(safeCmd, allocateCmd, timelineCmd, triageCmd, summaryCmd)
}

func runSafe(_ *cobra.Command, _ []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	l, err := e.ledger(e.context())
	if err != nil {
		return err
	}
	s, err := engine.SafeToSpend(l, e.settings)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(s)
	}

	state := cli.StateColor(s.ColorState)
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("Safe to Spend  |  %s", cli.FormatDate(s.Date))))
	fmt.Println()
	fmt.Printf("  %s today   %s\n",
		cli.Colorize(state, cli.FormatMoney(s.DailyLimit)),
		cli.MutedStyle.Render(s.StatusMessage))
	fmt.Printf("  %s\n\n", cli.RenderProgressBar(s.Percentage, 30))

	b := s.Breakdown
	fmt.Print(cli.RenderKV([][2]string{
		{"Income today", cli.FormatMoney(b.IncomeToday)},
		{"Committed today", cli.FormatMoney(b.CommittedToday)},
		{"Spent today", cli.FormatMoney(b.SpentToday)},
		{"Remaining today", cli.FormatMoney(b.RemainingToday)},
		{"Free budget this month", cli.FormatMoney(b.MonthlyFreeBudget)},
		{"Spent this month", cli.FormatMoney(b.SpentThisMonth)},
		{"Remaining budget", cli.FormatMoney(b.RemainingBudget)},
		{"Days left in month", fmt.Sprintf("%d", s.DaysLeftInMonth)},
	}))
	fmt.Println()
	return nil
}

func runAllocate(_ *cobra.Command, _ []string) error {
	var override *decimal.Decimal
	if flagSalary != "" {
		d, err := decimal.NewFromString(flagSalary)
		if err != nil || d.IsNegative() {
			return model.Invalid("salary", "not a non-negative amount: %q", flagSalary)
		}
		override = &d
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	l, err := e.ledger(e.context())
	if err != nil {
		return err
	}
	snap, err := engine.SalarySplit(l, e.settings, override)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(snap)
	}

	a := snap.Allocation
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("Salary Split  |  %s (%s)",
		cli.FormatMoney(snap.SalaryConsidered), snap.SalarySource)))
	fmt.Println()

	maxVal := decimal.Max(a.Commitments, a.PlannedExpenses, a.Goals, a.FreeMoney)
	fmt.Println(cli.RenderHorizontalBar("Commitments", a.Commitments, maxVal, 30, cli.ColorRed))
	fmt.Println(cli.RenderHorizontalBar("Planned expenses", a.PlannedExpenses, maxVal, 30, cli.ColorOrange))
	fmt.Println(cli.RenderHorizontalBar("Goals", a.Goals, maxVal, 30, cli.ColorBlue))
	fmt.Println(cli.RenderHorizontalBar("Free money", a.FreeMoney, maxVal, 30, cli.ColorGreen))
	fmt.Println()

	floor := "met"
	if !a.FreeMoneyFloorMet {
		floor = cli.WarnStyle.Render("not met")
	}
	fmt.Print(cli.RenderKV([][2]string{
		{"Free money floor", fmt.Sprintf("%s (%s)", cli.FormatMoney(a.FreeMoneyFloorTarget), floor)},
		{"Requested", cli.FormatMoney(snap.Totals.Requested)},
		{"Allocated", cli.FormatMoney(snap.Totals.Allocated)},
		{"Shortfall", cli.FormatMoney(snap.Totals.Shortfall)},
	}))
	fmt.Println()

	if len(snap.Buckets.PlannedExpenses) > 0 {
		t := cli.Table{Title: "Planned Expenses", Headers: []string{"Category", "Requested", "Allocated"}}
		for _, b := range snap.Buckets.PlannedExpenses {
			t.Rows = append(t.Rows, []string{b.CategoryName, cli.FormatMoney(b.Requested), cli.FormatMoney(b.Allocated)})
		}
		fmt.Print(cli.RenderTable(t))
		fmt.Println()
	}
	if len(snap.Buckets.Goals) > 0 {
		t := cli.Table{Title: "Goals", Headers: []string{"Goal", "Priority", "Requested", "Allocated"}}
		for _, b := range snap.Buckets.Goals {
			t.Rows = append(t.Rows, []string{b.GoalName, fmt.Sprintf("%d", b.Priority),
				cli.FormatMoney(b.Requested), cli.FormatMoney(b.Allocated)})
		}
		fmt.Print(cli.RenderTable(t))
		fmt.Println()
	}

	for _, w := range snap.Warnings {
		fmt.Printf("  %s %s\n", cli.WarnStyle.Render("!"), w)
	}
	fmt.Printf("  %s\n\n", cli.MutedStyle.Render(snap.StatusMessage))
	return nil
}

func runTimeline(_ *cobra.Command, _ []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	l, err := e.ledger(e.context())
	if err != nil {
		return err
	}
	past, future := engine.ClampWindow(flagPast, flagFuture)
	tl, err := engine.ProjectTimeline(l, e.settings, past, future)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(tl)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("Timeline  |  %s to %s", cli.FormatDate(tl.From), cli.FormatDate(tl.To))))
	fmt.Println()

	t := cli.Table{Headers: []string{"Date", "Event", "Type", "Amount", "Status"}}
	for _, day := range tl.Days {
		if day.Date.Equal(tl.Today) && len(t.Rows) > 0 {
			t.Rows = append(t.Rows, []string{"---"})
		}
		for _, ev := range day.Events {
			t.Rows = append(t.Rows, []string{
				cli.FormatDate(ev.Date),
				cli.Truncate(ev.Name, 28),
				eventLabel(ev.Type),
				signedAmount(ev),
				eventStatus(ev),
			})
			if flagShowDetails {
				if sd, ok := ev.Details.(model.SalaryDetails); ok {
					for _, p := range sd.AutoPreparedPayments {
						t.Rows = append(t.Rows, []string{"", "  " + cli.Truncate(p.Name, 26), string(p.Kind), cli.FormatMoney(p.Amount.Neg()), "prepared"})
					}
				}
			}
		}
	}
	if len(t.Rows) == 0 {
		fmt.Println("  No events in range.")
	} else {
		fmt.Print(cli.RenderTable(t))
	}
	fmt.Println()

	sum := tl.Summary
	next := "-"
	if sum.NextSalaryDate != nil && sum.DaysUntilSalary != nil {
		next = fmt.Sprintf("%s (in %d days)", cli.FormatDate(*sum.NextSalaryDate), *sum.DaysUntilSalary)
	}
	fmt.Print(cli.RenderKV([][2]string{
		{"Next salary", next},
		{"Upcoming commitments", cli.FormatMoney(sum.UpcomingCommitments)},
		{"Projected month-end balance", cli.FormatMoney(sum.ProjectedMonthEndBalance)},
	}))
	fmt.Println()
	return nil
}

func eventLabel(t model.EventType) string {
	return strings.ToLower(strings.ReplaceAll(string(t), "_", " "))
}

func signedAmount(ev model.Event) string {
	switch ev.Type {
	case model.EventSalary:
		return cli.IncomeStyle.Render(cli.FormatDelta(ev.Amount))
	case model.EventTransaction:
		if d, ok := ev.Details.(model.TransactionDetails); ok && d.Type == model.Income {
			return cli.IncomeStyle.Render(cli.FormatDelta(ev.Amount))
		}
	case model.EventProjection:
		return cli.MutedStyle.Render(cli.FormatMoney(ev.Amount))
	}
	return cli.ExpenseStyle.Render(cli.FormatMoney(ev.Amount.Neg()))
}

func eventStatus(ev model.Event) string {
	switch {
	case ev.PaymentStatus != "":
		return string(ev.PaymentStatus)
	case ev.IsCompleted:
		return "done"
	case ev.IsAutomatic:
		return "auto"
	}
	return ""
}

func runTriage(_ *cobra.Command, _ []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	l, err := e.ledger(e.context())
	if err != nil {
		return err
	}
	rep, err := engine.Triage(l, e.settings)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(rep)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("Triage  |  stress %d (%s)", rep.StressScore, rep.StressLevel)))
	fmt.Println()

	m := rep.Metrics
	buffer := "-"
	switch {
	case m.LiquidityBufferInfinite:
		buffer = "no spending"
	case m.LiquidityBufferDays != nil:
		buffer = m.LiquidityBufferDays.StringFixed(0) + " days"
	}
	fmt.Print(cli.RenderKV([][2]string{
		{"Burn rate", cli.FormatPercent(m.BurnRatePct)},
		{"Liquidity buffer", buffer},
		{"Monthly fixed costs", cli.FormatMoney(m.MonthlyFixedCosts)},
		{"Pending", fmt.Sprintf("%d (%s)", m.PendingCount, cli.FormatMoney(m.PendingTotal))},
		{"Uncategorized", fmt.Sprintf("%d (%s)", m.UncategorizedCount, cli.FormatMoney(m.UncategorizedTotal))},
		{"Subscription share", cli.FormatPercent(m.SubscriptionSharePct)},
	}))
	fmt.Println()

	if len(rep.Actions) == 0 {
		fmt.Println("  Nothing needs attention.")
		fmt.Println()
		return nil
	}
	t := cli.Table{Title: "Actions", Headers: []string{"Severity", "Area", "Action", "Impact", "Due"}}
	for _, a := range rep.Actions {
		due := "-"
		if a.DueDate != nil {
			due = cli.FormatDate(*a.DueDate)
		}
		t.Rows = append(t.Rows, []string{
			cli.Colorize(cli.SeverityColor(a.Severity), string(a.Severity)),
			a.Area,
			cli.Truncate(a.Title, 40),
			cli.FormatOptional(a.ImpactAmount),
			due,
		})
	}
	fmt.Print(cli.RenderTable(t))
	fmt.Println()
	return nil
}

func runSummary(_ *cobra.Command, _ []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	l, err := e.ledger(e.context())
	if err != nil {
		return err
	}
	sum, err := engine.Summarize(l, e.settings, flagChartRange)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(sum)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("Dashboard  |  health %d (%s)", sum.HealthScore.Score, sum.HealthScore.Label)))
	fmt.Println()
	fmt.Print(cli.RenderKV([][2]string{
		{"Balance", fmt.Sprintf("%s  %s", cli.FormatMoney(sum.TotalBalance), cli.FormatDelta(sum.BalanceChange))},
		{"Income this month", fmt.Sprintf("%s  %s", cli.FormatMoney(sum.MonthlyIncome), cli.FormatPercent(sum.IncomeChange))},
		{"Expenses this month", fmt.Sprintf("%s  %s", cli.FormatMoney(sum.MonthlyExpenses), cli.FormatPercent(sum.ExpensesChange))},
		{"Savings", cli.FormatMoney(sum.TotalSavings)},
		{"Safe today", cli.FormatMoney(sum.SafeToSpendStats.DailyLimit)},
	}))
	fmt.Printf("\n  %s\n\n", cli.MutedStyle.Render(sum.HealthScore.Message))

	values := make([]float64, len(sum.SpendingChart))
	for i, p := range sum.SpendingChart {
		values[i] = p.Amount.InexactFloat64()
	}
	if len(values) > 0 {
		fmt.Printf("  Spending  %s\n\n", cli.RenderSparkline(values))
	}

	if len(sum.CategoryChart) > 0 {
		maxVal := sum.CategoryChart[0].Amount
		for _, c := range sum.CategoryChart {
			maxVal = decimal.Max(maxVal, c.Amount)
		}
		for _, c := range sum.CategoryChart {
			fmt.Println(cli.RenderHorizontalBar(c.Name, c.Amount, maxVal, 30, cli.ColorAccent))
		}
		fmt.Println()
	}

	if len(sum.RecentTransactions) > 0 {
		t := cli.Table{Title: "Recent", Headers: []string{"Date", "Description", "Amount"}}
		for _, txn := range sum.RecentTransactions {
			amt := cli.ExpenseStyle.Render(cli.FormatMoney(txn.Amount.Neg()))
			if txn.Type == model.Income {
				amt = cli.IncomeStyle.Render(cli.FormatDelta(txn.Amount))
			}
			t.Rows = append(t.Rows, []string{cli.FormatDate(model.DateOf(txn.OccurredAt)), cli.Truncate(txn.Description, 32), amt})
		}
		fmt.Print(cli.RenderTable(t))
		fmt.Println()
	}
	return nil
}
