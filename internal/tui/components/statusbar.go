package components

import (
	"strings"

	"github.com/theirongolddev/paycheck/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the status bar shows on its right side.
type StatusInfo struct {
	User        string
	DataAge     string
	Refreshing  bool
	AutoRefresh bool
	Message     string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)
	accent := style.Foreground(t.Accent)

	left := style.Render(" [?]help  [r]efresh  [q]uit")
	if info.Message != "" {
		left += style.Render("  ") + accent.Render(info.Message)
	}

	right := ""
	if info.User != "" {
		right += style.Render(info.User + "  ")
	}
	switch {
	case info.Refreshing:
		right += accent.Render("refreshing… ")
	case info.DataAge != "":
		right += style.Render("updated " + info.DataAge + " ")
	}
	if info.AutoRefresh {
		right += accent.Render("[auto] ")
	}

	padding := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + style.Render(strings.Repeat(" ", padding)) + right
}
