package cmd

import (
	"fmt"
	"os"

	"github.com/theirongolddev/paycheck/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagJSON {
		cfg.Payments.ProviderAPIKey = ""
		return printJSON(cfg)
	}

	fmt.Printf("  Config file: %s\n", flagConfig)
	if _, err := os.Stat(flagConfig); err == nil {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    User:      %s\n", cfg.General.UserID)
	fmt.Printf("    Currency:  %s\n", cfg.General.Currency)
	fmt.Printf("    Ledger:    %s\n", cfg.ResolveDBPath())
	fmt.Println()

	fmt.Println("  [Engine]")
	fmt.Printf("    Free money floor:   %.1f%%\n", cfg.Engine.FreeMoneyFloorPct)
	fmt.Printf("    Goal catch-up:      %s\n", cfg.Engine.GoalCatchUp)
	fmt.Printf("    Salary day:         %s\n", dayOrAuto(cfg.Engine.SalaryDay))
	fmt.Printf("    Contribution day:   %s\n", dayOrAuto(cfg.Engine.GoalContributionDay))
	if cfg.Engine.ManualSalary != "" {
		fmt.Printf("    Manual salary:      %s\n", cfg.Engine.ManualSalary)
	} else {
		fmt.Println("    Manual salary:      not set")
	}
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Address:        %s\n", cfg.Server.Addr)
	fmt.Printf("    Sweep interval: %s\n", cfg.Server.SweepInterval.Duration)
	fmt.Printf("    Cache TTL:      %s\n", cfg.Server.CacheTTL.Duration)
	fmt.Printf("    Metrics:        %v\n", cfg.Server.Metrics)
	fmt.Println()

	fmt.Println("  [Payments]")
	fmt.Printf("    Provider:       %s\n", cfg.Payments.Provider)
	if cfg.Payments.ProviderURL != "" {
		fmt.Printf("    Provider URL:   %s\n", cfg.Payments.ProviderURL)
	}
	if key := config.GetProviderAPIKey(cfg); key != "" {
		fmt.Printf("    API key:        %s\n", maskAPIKey(key))
	}
	fmt.Printf("    Prepare days:   %d\n", cfg.Payments.PrepareDays)
	fmt.Printf("    Auto-execute:   %v\n", cfg.Payments.AutoExecuteOnApproval)
	fmt.Printf("    Workers:        %d (max retries %d)\n", cfg.Payments.Workers, cfg.Payments.MaxRetries)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `paycheck setup` to reconfigure.")
	return nil
}

func dayOrAuto(d int) string {
	if d == 0 {
		return "auto"
	}
	return fmt.Sprintf("%d", d)
}
