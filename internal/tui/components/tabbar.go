package components

import (
	"strings"

	"github.com/theirongolddev/paycheck/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int // position of the shortcut letter in the name
}

// Tabs defines all available tabs, in display order.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o', KeyPos: 0},
	{Name: "Split", Key: 's', KeyPos: 0},
	{Name: "Timeline", Key: 't', KeyPos: 0},
	{Name: "Payments", Key: 'p', KeyPos: 0},
	{Name: "Triage", Key: 'i', KeyPos: 2},
}

func renderTab(tab Tab, active bool) string {
	t := theme.Active

	if active {
		return lipgloss.NewStyle().
			Foreground(t.AccentBright).
			Background(t.SurfaceHover).
			Bold(true).
			Render(" " + tab.Name + " ")
	}

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	key := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true).Underline(true)

	name := []rune(tab.Name)
	if tab.KeyPos < 0 || tab.KeyPos >= len(name) {
		return base.Render(" " + tab.Name + " ")
	}
	return base.Render(" "+string(name[:tab.KeyPos])) +
		key.Render(string(name[tab.KeyPos])) +
		base.Render(string(name[tab.KeyPos+1:])+" ")
}

// TabVisualWidth returns the rendered width of a tab. Mouse hit-testing
// relies on it matching RenderTabBar.
func TabVisualWidth(tab Tab, active bool) int {
	return lipgloss.Width(renderTab(tab, active))
}

// RenderTabBar renders the tab bar with the given active index.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active
	sep := lipgloss.NewStyle().Foreground(t.Border).Background(t.Surface).Render("│")

	parts := make([]string, 0, len(Tabs))
	for i, tab := range Tabs {
		parts = append(parts, renderTab(tab, i == activeIdx))
	}

	return lipgloss.NewStyle().
		Background(t.Surface).
		Width(width).
		Render(strings.Join(parts, sep))
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
