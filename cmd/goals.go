package cmd

import (
	"fmt"

	"github.com/theirongolddev/paycheck/internal/cli"
	"github.com/theirongolddev/paycheck/internal/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var flagGoalNote string

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "List savings goals and their progress",
	RunE:  runGoalsList,
}

var goalsContributeCmd = &cobra.Command{
	Use:   "contribute ID AMOUNT",
	Short: "Record a contribution to a goal",
	Args:  cobra.ExactArgs(2),
	RunE:  runGoalsContribute,
}

var goalsLogsCmd = &cobra.Command{
	Use:   "logs ID",
	Short: "Show a goal's contribution history",
	Args:  cobra.ExactArgs(1),
	RunE:  runGoalsLogs,
}

func init() {
	goalsContributeCmd.Flags().StringVar(&flagGoalNote, "note", "", "Note stored with the contribution")
	goalsCmd.AddCommand(goalsContributeCmd, goalsLogsCmd)
	rootCmd.AddCommand(goalsCmd)
}

func runGoalsList(_ *cobra.Command, _ []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	goals, err := e.st.ListGoals(e.context(), e.user)
	if err != nil {
		return err
	}
	if flagJSON {
		if goals == nil {
			goals = []model.Goal{}
		}
		return printJSON(goals)
	}

	fmt.Println()
	if len(goals) == 0 {
		fmt.Println("  No goals yet.")
		fmt.Println()
		return nil
	}
	t := cli.Table{Title: "Goals", Headers: []string{"ID", "Goal", "Saved", "Target", "Monthly", "Target date"}}
	for _, g := range goals {
		target := "-"
		if g.TargetDate != nil {
			target = cli.FormatDate(*g.TargetDate)
		}
		name := g.Name
		if g.IsCompleted {
			name += " ✓"
		}
		t.Rows = append(t.Rows, []string{
			cli.Truncate(g.ID, 8),
			cli.Truncate(name, 24),
			cli.FormatMoney(g.CurrentAmount),
			cli.FormatMoney(g.TargetAmount),
			cli.FormatOptional(g.MonthlyContribution),
			target,
		})
	}
	fmt.Print(cli.RenderTable(t))
	fmt.Println()
	for _, g := range goals {
		fmt.Printf("  %-24s %s\n", cli.Truncate(g.Name, 24), cli.RenderProgressBar(g.Progress(), 24))
	}
	fmt.Println()
	return nil
}

func runGoalsContribute(_ *cobra.Command, args []string) error {
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return model.Invalid("amount", "not a number: %q", args[1])
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	g, log, err := e.st.Contribute(e.context(), e.user, args[0], amount, flagGoalNote)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(map[string]any{"goal": g, "log": log})
	}
	fmt.Printf("  Added %s to %s: %s of %s (%s)\n",
		cli.FormatMoney(log.Amount), g.Name,
		cli.FormatMoney(g.CurrentAmount), cli.FormatMoney(g.TargetAmount),
		cli.FormatPercent(g.Progress()))
	if g.IsCompleted {
		fmt.Println(cli.IncomeStyle.Render("  Goal reached."))
	}
	return nil
}

func runGoalsLogs(_ *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	logs, err := e.st.GoalLogs(e.context(), e.user, args[0])
	if err != nil {
		return err
	}
	if flagJSON {
		if logs == nil {
			logs = []model.GoalLog{}
		}
		return printJSON(logs)
	}

	fmt.Println()
	t := cli.Table{Title: "Contributions", Headers: []string{"Date", "Amount", "Note"}}
	for _, l := range logs {
		t.Rows = append(t.Rows, []string{cli.FormatDate(model.DateOf(l.CreatedAt)), cli.FormatMoney(l.Amount), l.Note})
	}
	if len(t.Rows) == 0 {
		fmt.Println("  No contributions yet.")
	} else {
		fmt.Print(cli.RenderTable(t))
	}
	fmt.Println()
	return nil
}
