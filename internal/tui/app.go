// Package tui provides the interactive Bubble Tea dashboard for paycheck.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/paycheck/internal/cli"
	"github.com/theirongolddev/paycheck/internal/config"
	"github.com/theirongolddev/paycheck/internal/engine"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/payments"
	"github.com/theirongolddev/paycheck/internal/pipeline"
	"github.com/theirongolddev/paycheck/internal/store"
	"github.com/theirongolddev/paycheck/internal/tui/components"
	"github.com/theirongolddev/paycheck/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Deps are the services the dashboard reads from and acts through.
type Deps struct {
	Store      *store.Store
	Payments   *payments.Service
	Config     config.Config
	ConfigPath string
	NeedSetup  bool
	Now        func() time.Time
}

// Views is every engine view the dashboard renders, computed from one
// ledger snapshot.
type Views struct {
	Version  int64
	Summary  model.DashboardSummary
	Split    model.AllocationSnapshot
	Timeline model.Timeline
	Triage   model.TriageReport
	Orders   []model.PaymentOrder
	Goals    []model.Goal
}

// DataLoadedMsg is sent when a (re)load of the ledger views finishes.
type DataLoadedMsg struct {
	Views    *Views
	LoadTime time.Duration
	Err      error
}

// ActionDoneMsg is sent when a payment action finishes.
type ActionDoneMsg struct {
	Message string
	Err     error
}

// App is the root Bubble Tea model.
type App struct {
	deps     Deps
	settings engine.Settings
	user     string

	// Data
	views    *Views
	loaded   bool
	loadErr  error
	loadTime time.Duration

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time
	refreshing      bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	message   string

	// Per-tab state
	payCursor      int
	timelineScroll int
	triageScroll   int
	busy           bool

	// Setup (huh form), shown on first run and with S
	setupForm *huh.Form
	setupVals *SetupValues
	needSetup bool

	spinner spinner.Model
}

// Tab indexes, matching components.Tabs.
const (
	tabOverview = iota
	tabSplit
	tabTimeline
	tabPayments
	tabTriage
)

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	minContentHeight = 5
	timelinePast     = 7
	timelineFuture   = 30
	defaultRefresh   = 30 * time.Second
)

// NewApp creates a new TUI app model.
func NewApp(deps Deps) App {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	settings, err := engine.SettingsFromConfig(deps.Config)
	if err != nil {
		settings = engine.DefaultSettings()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		deps:            deps,
		settings:        settings,
		user:            deps.Config.General.UserID,
		needSetup:       deps.NeedSetup,
		refreshInterval: defaultRefresh,
		spinner:         sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadViewsCmd(a.deps, a.settings, a.user),
		a.spinner.Tick,
		tickCmd(),
	)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			a.scroll(-1)
		case tea.MouseButtonWheelDown:
			a.scroll(1)
		case tea.MouseButtonLeft:
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		key := msg.String()

		if key == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.loaded {
			return a, nil
		}
		if a.setupForm != nil {
			return a.updateSetupForm(msg)
		}

		if key == "?" {
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}

		if a.activeTab == tabPayments {
			if m, cmd, ok := a.updatePaymentsKeys(key); ok {
				return m, cmd
			}
		}

		switch key {
		case "q":
			return a, tea.Quit
		case "r":
			if !a.refreshing {
				a.refreshing = true
				return a, loadViewsCmd(a.deps, a.settings, a.user)
			}
			return a, nil
		case "R":
			a.autoRefresh = !a.autoRefresh
			return a, nil
		case "S":
			return a.openSetup()
		case "j", "down":
			a.scroll(1)
			return a, nil
		case "k", "up":
			a.scroll(-1)
			return a, nil
		case "g":
			a.timelineScroll, a.triageScroll = 0, 0
			return a, nil
		case "left":
			a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
			return a, nil
		case "right", "tab":
			a.activeTab = (a.activeTab + 1) % len(components.Tabs)
			return a, nil
		}
		if len(key) == 1 {
			if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
				a.activeTab = idx
			}
		}
		return a, nil

	case DataLoadedMsg:
		a.refreshing = false
		a.lastRefresh = time.Now()
		a.loadTime = msg.LoadTime
		a.loadErr = msg.Err
		if msg.Views != nil {
			a.views = msg.Views
			a.clampCursors()
		}
		first := !a.loaded
		a.loaded = true

		if first && a.needSetup {
			return a.openSetup()
		}
		return a, nil

	case ActionDoneMsg:
		a.busy = false
		if msg.Err != nil {
			a.message = "error: " + msg.Err.Error()
		} else {
			a.message = msg.Message
		}
		a.refreshing = true
		return a, loadViewsCmd(a.deps, a.settings, a.user)

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && !a.refreshing && time.Since(a.lastRefresh) >= a.refreshInterval {
			a.refreshing = true
			cmds = append(cmds, loadViewsCmd(a.deps, a.settings, a.user))
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a *App) scroll(delta int) {
	switch a.activeTab {
	case tabPayments:
		if a.views != nil {
			a.payCursor = max(0, min(a.payCursor+delta, len(a.views.Orders)-1))
		}
	case tabTimeline:
		a.timelineScroll = max(0, a.timelineScroll+delta)
	case tabTriage:
		a.triageScroll = max(0, a.triageScroll+delta)
	}
}

func (a *App) clampCursors() {
	n := len(a.views.Orders)
	if a.payCursor >= n {
		a.payCursor = n - 1
	}
	if a.payCursor < 0 {
		a.payCursor = 0
	}
}

func (a App) openSetup() (tea.Model, tea.Cmd) {
	a.setupVals = NewSetupValues(a.deps.Config)
	a.setupForm = NewSetupForm(a.setupVals)
	if a.width > 0 {
		a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
	}
	return a, a.setupForm.Init()
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.setupForm = nil
		a.needSetup = false
		cfg := a.deps.Config
		if err := a.setupVals.Apply(&cfg); err != nil {
			a.message = "setup: " + err.Error()
			return a, nil
		}
		if err := config.SaveTo(a.deps.ConfigPath, cfg); err != nil {
			a.message = "settings apply for this session only: " + err.Error()
		} else {
			a.message = "saved " + a.deps.ConfigPath
		}
		a.applyConfig(cfg)
		a.refreshing = true
		return a, loadViewsCmd(a.deps, a.settings, a.user)
	case huh.StateAborted:
		a.setupForm = nil
		a.needSetup = false
		return a, nil
	}
	return a, cmd
}

func (a *App) applyConfig(cfg config.Config) {
	a.deps.Config = cfg
	if s, err := engine.SettingsFromConfig(cfg); err == nil {
		a.settings = s
	}
	a.user = cfg.General.UserID
	cli.Currency = cfg.General.Currency
	theme.SetActive(cfg.Appearance.Theme)
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  paycheck needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ paycheck"))
	b.WriteString(subtitleStyle.Render(" · Salary Autopilot"))
	b.WriteString("\n\n")
	b.WriteString(spinnerStyle.Render(a.spinner.View()))
	b.WriteString(subtitleStyle.Render(" Reading ledger..."))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	section := func(b *strings.Builder, title string, binds []struct{ key, desc string }) {
		b.WriteString(sectionStyle.Render(title))
		b.WriteString("\n")
		for _, bind := range binds {
			fmt.Fprintf(b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
		b.WriteString("\n")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	section(&b, "Navigation", []struct{ key, desc string }{
		{"o s t p i", "Jump to tab"},
		{"← →", "Previous / Next tab"},
		{"j k", "Move / Scroll"},
		{"g", "Back to top"},
	})
	section(&b, "Payments", []struct{ key, desc string }{
		{"a", "Approve and execute"},
		{"A", "Approve, execute on due date"},
		{"c", "Cancel"},
		{"P", "Prepare upcoming orders"},
		{"e", "Execute due orders"},
	})
	section(&b, "General", []struct{ key, desc string }{
		{"r", "Refresh"},
		{"R", "Toggle auto-refresh"},
		{"S", "Settings"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	})
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)

	info := components.StatusInfo{
		User:        a.user,
		Refreshing:  a.refreshing || a.busy,
		AutoRefresh: a.autoRefresh,
		Message:     a.message,
	}
	if !a.lastRefresh.IsZero() {
		info.DataAge = a.lastRefresh.Format("15:04:05")
	}
	statusBar := components.RenderStatusBar(w, info)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch {
	case a.views == nil && a.loadErr != nil:
		content = a.renderLoadError(cw)
	case a.views == nil:
		content = ""
	default:
		switch a.activeTab {
		case tabOverview:
			content = a.renderOverviewTab(cw)
		case tabSplit:
			content = a.renderSplitTab(cw)
		case tabTimeline:
			content = a.renderTimelineTab(cw, contentH)
		case tabPayments:
			content = a.renderPaymentsTab(cw, contentH)
		case tabTriage:
			content = a.renderTriageTab(cw, contentH)
		}
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) renderLoadError(cw int) string {
	t := theme.Active
	errStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)
	hint := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	return components.ContentCard("Could not read ledger",
		errStyle.Render(a.loadErr.Error())+"\n\n"+hint.Render("Press r to retry."), cw)
}

// ─── Data ───────────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// LoadViews reads one snapshot and derives every dashboard view from it.
func LoadViews(ctx context.Context, deps Deps, s engine.Settings, user string) (*Views, error) {
	snap, err := deps.Store.ReadSnapshot(ctx, user)
	if err != nil {
		return nil, err
	}
	l := pipeline.NewLedger(snap, deps.Now())

	v := &Views{Version: snap.Version, Goals: snap.Goals}
	if v.Summary, err = engine.Summarize(l, s, engine.ChartMonth); err != nil {
		return nil, err
	}
	v.Split = v.Summary.SafeToSpendStats.Allocation
	if v.Timeline, err = engine.ProjectTimeline(l, s, timelinePast, timelineFuture); err != nil {
		return nil, err
	}
	if v.Triage, err = engine.Triage(l, s); err != nil {
		return nil, err
	}
	if v.Orders, err = deps.Payments.List(ctx, user, "", payments.MaxListLimit); err != nil {
		return nil, err
	}
	return v, nil
}

func loadViewsCmd(deps Deps, s engine.Settings, user string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		v, err := LoadViews(ctx, deps, s, user)
		return DataLoadedMsg{Views: v, LoadTime: time.Since(start), Err: err}
	}
}

// ─── Layout helpers ─────────────────────────────────────────────

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color
// so gaps between cards are painted.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

// scrollWindow returns the visible slice bounds for n rows of which h fit,
// keeping offset in range.
func scrollWindow(n, h, offset int) (from, to int) {
	if h <= 0 || n <= h {
		return 0, n
	}
	from = max(0, min(offset, n-h))
	return from, from + h
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW

		// Separator is one column between tabs.
		pos++
	}
	return -1
}
