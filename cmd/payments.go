package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/theirongolddev/paycheck/internal/cli"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/payments"

	"github.com/spf13/cobra"
)

var (
	flagPayStatus  string
	flagPayLimit   int
	flagPayDays    int
	flagNoExecute  bool
	flagCancelNote string
)

var paymentsCmd = &cobra.Command{
	Use:     "payments",
	Aliases: []string{"pay"},
	Short:   "List and act on prepared payment orders",
	RunE:    runPaymentsList,
}

var paymentsPrepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Prepare orders for bills, subscriptions and goals due soon",
	RunE:  runPaymentsPrepare,
}

var paymentsApproveCmd = &cobra.Command{
	Use:   "approve ID",
	Short: "Approve a payment order",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaymentsApprove,
}

var paymentsCancelCmd = &cobra.Command{
	Use:   "cancel ID",
	Short: "Cancel a payment order",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaymentsCancel,
}

var paymentsExecuteDueCmd = &cobra.Command{
	Use:   "execute-due",
	Short: "Execute every approved order due today or earlier",
	RunE:  runPaymentsExecuteDue,
}

func init() {
	paymentsCmd.Flags().StringVar(&flagPayStatus, "status", "", "Filter by status")
	paymentsCmd.Flags().IntVar(&flagPayLimit, "limit", 50, "Maximum orders to list")
	paymentsPrepareCmd.Flags().IntVar(&flagPayDays, "days", 0, "Days ahead to prepare (default from config)")
	paymentsApproveCmd.Flags().BoolVar(&flagNoExecute, "no-execute", false, "Approve without executing")
	paymentsCancelCmd.Flags().StringVar(&flagCancelNote, "reason", "", "Cancellation reason")

	paymentsCmd.AddCommand(paymentsPrepareCmd, paymentsApproveCmd, paymentsCancelCmd, paymentsExecuteDueCmd)
	rootCmd.AddCommand(paymentsCmd)
}

func runPaymentsList(_ *cobra.Command, _ []string) error {
	status := model.PaymentStatus(flagPayStatus)
	if status != "" && !status.Valid() {
		return model.Invalid("status", "unknown payment status %q", flagPayStatus)
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	pay, err := e.payments()
	if err != nil {
		return err
	}
	orders, err := pay.List(e.context(), e.user, status, flagPayLimit)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(orders)
	}
	printOrders(orders)
	return nil
}

func printOrders(orders []model.PaymentOrder) {
	fmt.Println()
	if len(orders) == 0 {
		fmt.Println("  No payment orders.")
		fmt.Println()
		return
	}
	t := cli.Table{Title: "Payment Orders", Headers: []string{"ID", "Due", "Name", "Amount", "Status"}}
	for _, o := range orders {
		t.Rows = append(t.Rows, []string{
			cli.Truncate(o.ID, 8),
			cli.FormatDate(o.DueOn),
			cli.Truncate(o.Name, 28),
			cli.FormatMoney(o.Amount),
			statusText(o),
		})
	}
	fmt.Print(cli.RenderTable(t))
	fmt.Println()
}

func statusText(o model.PaymentOrder) string {
	s := string(o.Status)
	switch o.Status {
	case model.StatusApproved:
		return cli.IncomeStyle.Render(s)
	case model.StatusFailed:
		return cli.ExpenseStyle.Render(s)
	case model.StatusApprovalRequired:
		return cli.WarnStyle.Render(s)
	case model.StatusCancelled:
		return cli.MutedStyle.Render(s)
	}
	return s
}

func runPaymentsPrepare(_ *cobra.Command, _ []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	pay, err := e.payments()
	if err != nil {
		return err
	}
	days := flagPayDays
	if days <= 0 {
		days = e.cfg.Payments.PrepareDays
	}
	res, err := pay.Prepare(e.context(), e.user, days)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(res)
	}
	fmt.Printf("\n  Prepared %d new orders (%d already prepared) for the next %d days\n",
		len(res.Created), len(res.Existing), res.DaysAhead)
	printOrders(res.Created)
	return nil
}

// resolveOrderID expands a unique id prefix, as printed by the list view.
func resolveOrderID(e *env, prefix string) (string, error) {
	ctx := e.context()
	if o, err := e.st.GetPaymentOrder(ctx, e.user, prefix); err == nil {
		return o.ID, nil
	} else if !errors.Is(err, model.ErrNotFound) {
		return "", err
	}
	orders, err := e.st.ListPaymentOrders(ctx, e.user, "", payments.MaxListLimit)
	if err != nil {
		return "", err
	}
	var match string
	for _, o := range orders {
		if len(prefix) >= 4 && strings.HasPrefix(o.ID, prefix) {
			if match != "" {
				return "", model.Invalid("id", "prefix %q is ambiguous", prefix)
			}
			match = o.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("payment order %s: %w", prefix, model.ErrNotFound)
	}
	return match, nil
}

func runPaymentsApprove(_ *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	id, err := resolveOrderID(e, args[0])
	if err != nil {
		return err
	}
	pay, err := e.payments()
	if err != nil {
		return err
	}
	o, err := pay.Approve(e.context(), e.user, id, !flagNoExecute)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(o)
	}
	fmt.Printf("  %s %s: %s\n", o.Name, cli.FormatMoney(o.Amount), statusText(o))
	if o.ProviderActionURL != "" {
		fmt.Printf("  Complete at: %s\n", o.ProviderActionURL)
	}
	if o.FailureReason != "" {
		fmt.Printf("  %s\n", cli.ExpenseStyle.Render(o.FailureReason))
	}
	return nil
}

func runPaymentsCancel(_ *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	id, err := resolveOrderID(e, args[0])
	if err != nil {
		return err
	}
	pay, err := e.payments()
	if err != nil {
		return err
	}
	o, err := pay.Cancel(e.context(), e.user, id, flagCancelNote)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(o)
	}
	fmt.Printf("  Cancelled %s (%s)\n", o.Name, cli.FormatDate(o.DueOn))
	return nil
}

func runPaymentsExecuteDue(_ *cobra.Command, _ []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	pay, err := e.payments()
	if err != nil {
		return err
	}
	n, err := pay.ExecuteDue(e.context(), e.user)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(map[string]int{"dispatched": n})
	}
	fmt.Printf("  Executed %d due orders\n", n)
	return nil
}
