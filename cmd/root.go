// Package cmd implements the paycheck CLI commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/paycheck/internal/cli"
	"github.com/theirongolddev/paycheck/internal/config"
	"github.com/theirongolddev/paycheck/internal/engine"
	"github.com/theirongolddev/paycheck/internal/logger"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/payments"
	"github.com/theirongolddev/paycheck/internal/pipeline"
	"github.com/theirongolddev/paycheck/internal/store"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagDB       string
	flagUser     string
	flagNow      string
	flagLogLevel string
	flagQuiet    bool
	flagJSON     bool
)

var rootCmd = &cobra.Command{
	Use:   "paycheck",
	Short: "Salary allocation and safe-to-spend engine",
	Long:  "Split each salary into commitments, planned spending, goals and free money, and see what is safe to spend today.",
	RunE:  runSafe,

	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.ConfigPath(), "Config file path")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Ledger database path (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "Ledger user id (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagNow, "now", "", "Evaluate as of this date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
}

// env is the shared command context: config, ledger store, logger and clock.
type env struct {
	cfg      config.Config
	st       *store.Store
	log      zerolog.Logger
	settings engine.Settings
	user     string
	now      func() time.Time
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadFrom(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagDB != "" {
		cfg.General.DBPath = flagDB
	}
	if flagUser != "" {
		cfg.General.UserID = flagUser
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, nil
}

func clockFromFlag() (func() time.Time, error) {
	if flagNow == "" {
		return time.Now, nil
	}
	d, err := model.ParseDate(flagNow)
	if err != nil {
		return nil, fmt.Errorf("--now: %w", err)
	}
	// Noon keeps the date stable across time zone conversions.
	at := d.Add(12 * time.Hour)
	return func() time.Time { return at }, nil
}

// openEnv loads config and opens the ledger. Callers must Close it.
func openEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	settings, err := engine.SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	now, err := clockFromFlag()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Log.Level)
	cli.Currency = cfg.General.Currency

	st, err := store.Open(cfg.ResolveDBPath())
	if err != nil {
		return nil, err
	}
	st.SetClock(now)

	return &env{
		cfg:      cfg,
		st:       st,
		log:      log,
		settings: settings,
		user:     cfg.General.UserID,
		now:      now,
	}, nil
}

func (e *env) Close() {
	_ = e.st.Close()
}

func (e *env) context() context.Context {
	return logger.WithContext(context.Background(), e.log)
}

// ledger reads a consistent snapshot of the user's ledger.
func (e *env) ledger(ctx context.Context) (*pipeline.Ledger, error) {
	snap, err := e.st.ReadSnapshot(ctx, e.user)
	if err != nil {
		return nil, err
	}
	return pipeline.NewLedger(snap, e.now()), nil
}

// payments builds a payment service that executes synchronously.
func (e *env) payments() (*payments.Service, error) {
	opts, err := payments.OptionsFromConfig(e.cfg)
	if err != nil {
		return nil, err
	}
	opts.Now = e.now
	return payments.NewService(e.st, opts, e.log), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func progress(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}
