package cmd

import (
	"fmt"
	"sort"

	"github.com/theirongolddev/paycheck/internal/cli"
	"github.com/theirongolddev/paycheck/internal/pipeline"
	"github.com/theirongolddev/paycheck/internal/source"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import PATH",
	Short: "Import ledger records from a JSONL file or directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(_ *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	progress("  Scanning %s...\n", args[0])
	res, err := pipeline.Import(e.context(), args[0], e.user, e.st, func(current, total int) {
		if current%10 == 0 || current == total {
			progress("\r  Parsing [%d/%d]", current, total)
		}
	})
	if err != nil {
		return err
	}
	if res.TotalFiles > 0 {
		progress("\n")
	}
	if flagJSON {
		return printJSON(res)
	}

	fmt.Println()
	fmt.Print(cli.RenderKV([][2]string{
		{"Files", fmt.Sprintf("%d parsed of %d (%d unreadable)", res.ParsedFiles, res.TotalFiles, res.FileErrors)},
		{"Records", fmt.Sprintf("%d (%d malformed lines)", res.Records, res.ParseErrors)},
		{"Written", cli.FormatNumber(int64(res.Written))},
		{"Rejected", cli.FormatNumber(int64(res.WriteErrors))},
	}))

	kinds := make([]source.Kind, 0, len(res.ByKind))
	for k := range res.ByKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].WriteOrder() < kinds[j].WriteOrder() })
	if len(kinds) > 0 {
		t := cli.Table{Headers: []string{"Kind", "Written"}}
		for _, k := range kinds {
			t.Rows = append(t.Rows, []string{string(k), cli.FormatNumber(int64(res.ByKind[k]))})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(t))
	}
	fmt.Println()
	return nil
}
