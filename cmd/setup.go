package cmd

import (
	"fmt"

	"github.com/theirongolddev/paycheck/internal/config"
	"github.com/theirongolddev/paycheck/internal/tui"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// A broken config still gets defaults so setup can repair it.
	cfg, err := config.LoadFrom(flagConfig)
	if err != nil {
		fmt.Printf("  Existing config is invalid (%v), starting from defaults\n", err)
		cfg = config.DefaultConfig()
	}

	values := tui.NewSetupValues(cfg)
	if err := tui.NewSetupForm(values).Run(); err != nil {
		return err
	}
	if err := values.Apply(&cfg); err != nil {
		return err
	}

	if err := config.SaveTo(flagConfig, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", flagConfig)
	fmt.Println("  Run `paycheck setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

func maskAPIKey(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
