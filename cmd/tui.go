package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/theirongolddev/paycheck/internal/config"
	"github.com/theirongolddev/paycheck/internal/logger"
	"github.com/theirongolddev/paycheck/internal/tui"
	"github.com/theirongolddev/paycheck/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	_, statErr := os.Stat(flagConfig)

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	// Stderr belongs to the alt screen; logs go to a file.
	logPath := filepath.Join(config.DataDir(), "tui.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
		return err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening TUI log: %w", err)
	}
	defer func() { _ = logFile.Close() }()
	e.log = logger.NewWithWriter(logFile, e.cfg.Log.Level)

	pay, err := e.payments()
	if err != nil {
		return err
	}

	theme.SetActive(e.cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(tui.Deps{
		Store:      e.st,
		Payments:   pay,
		Config:     e.cfg,
		ConfigPath: flagConfig,
		NeedSetup:  statErr != nil,
		Now:        e.now,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
