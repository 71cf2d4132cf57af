package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/paycheck/internal/cli"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/tui/components"
	"github.com/theirongolddev/paycheck/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const actionTimeout = 30 * time.Second

// selectedOrder returns the order under the cursor.
func (a App) selectedOrder() (model.PaymentOrder, bool) {
	if a.views == nil || a.payCursor < 0 || a.payCursor >= len(a.views.Orders) {
		return model.PaymentOrder{}, false
	}
	return a.views.Orders[a.payCursor], true
}

// updatePaymentsKeys handles the action keys of the payments tab. ok is
// false when the key is not a payments action.
func (a App) updatePaymentsKeys(key string) (App, tea.Cmd, bool) {
	if a.busy {
		switch key {
		case "a", "A", "c", "P", "e":
			return a, nil, true
		}
		return a, nil, false
	}

	deps, user := a.deps, a.user
	switch key {
	case "a", "A":
		o, ok := a.selectedOrder()
		if !ok {
			return a, nil, true
		}
		executeNow := key == "a"
		a.busy = true
		return a, actionCmd(func(ctx context.Context) (string, error) {
			got, err := deps.Payments.Approve(ctx, user, o.ID, executeNow)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s: %s", got.Name, got.Status), nil
		}), true

	case "c":
		o, ok := a.selectedOrder()
		if !ok {
			return a, nil, true
		}
		a.busy = true
		return a, actionCmd(func(ctx context.Context) (string, error) {
			got, err := deps.Payments.Cancel(ctx, user, o.ID, "cancelled from dashboard")
			if err != nil {
				return "", err
			}
			return got.Name + " cancelled", nil
		}), true

	case "P":
		days := deps.Config.Payments.PrepareDays
		a.busy = true
		return a, actionCmd(func(ctx context.Context) (string, error) {
			res, err := deps.Payments.Prepare(ctx, user, days)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("prepared %d new, %d existing (%dd)", len(res.Created), len(res.Existing), res.DaysAhead), nil
		}), true

	case "e":
		a.busy = true
		return a, actionCmd(func(ctx context.Context) (string, error) {
			n, err := deps.Payments.ExecuteDue(ctx, user)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("executed %d due order(s)", n), nil
		}), true
	}
	return a, nil, false
}

func actionCmd(fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		msg, err := fn(ctx)
		return ActionDoneMsg{Message: msg, Err: err}
	}
}

func (a App) renderPaymentsTab(cw, h int) string {
	t := theme.Active
	orders := a.views.Orders

	if len(orders) == 0 {
		body := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).
			Render("No payment orders yet. Press P to prepare upcoming bills, subscriptions and goals.")
		return components.ContentCard("Payments", body, cw)
	}

	leftW := max(cw*11/20, 50)
	rightW := cw - leftW
	if a.isCompactLayout() {
		leftW, rightW = cw, 0
	}

	leftInner := components.CardInnerWidth(leftW)
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)

	nameW := max(leftInner-10-11-18-3, 8)
	var left strings.Builder
	left.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %-*s %10s %-18s", "Due", nameW, "Name", "Amount", "Status")))
	left.WriteString("\n")

	visible := max(h-5, 3)
	from, to := scrollWindow(len(orders), visible, a.payCursor-visible+1)
	for i := from; i < to; i++ {
		o := orders[i]
		line := fmt.Sprintf("%-10s %-*s %10s ",
			o.DueOn.Format("Jan 02"),
			nameW, cli.Truncate(o.Name, nameW),
			cli.FormatMoneyShort(o.Amount))
		status := fmt.Sprintf("%-18s", o.Status)
		style := rowStyle
		if i == a.payCursor {
			style = selectedStyle
		}
		left.WriteString(style.Render(line))
		left.WriteString(style.Foreground(t.ForPayment(o.Status)).Render(status))
		if i < to-1 {
			left.WriteString("\n")
		}
	}

	title := fmt.Sprintf("Payments [%d/%d]", a.payCursor+1, len(orders))
	leftCard := components.ContentCard(title, left.String(), leftW)
	if rightW == 0 {
		return leftCard
	}

	sel, _ := a.selectedOrder()
	rightCard := components.ContentCard("Order "+shortID(sel.ID), renderOrderDetail(sel), rightW)
	return components.CardRow([]string{leftCard, rightCard})
}

func renderOrderDetail(o model.PaymentOrder) string {
	t := theme.Active
	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	hint := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	rows := [][2]string{
		{"Name", o.Name},
		{"Kind", string(o.SourceType)},
		{"Amount", cli.FormatMoney(o.Amount)},
		{"Due", cli.FormatDate(o.DueOn)},
		{"Status", string(o.Status)},
		{"Provider", o.Provider},
		{"Attempts", fmt.Sprintf("%d", o.Attempts)},
	}
	if o.ProviderReference != "" {
		rows = append(rows, [2]string{"Reference", o.ProviderReference})
	}
	if o.ExecutedAt != nil {
		rows = append(rows, [2]string{"Executed", o.ExecutedAt.Local().Format("Jan 02 15:04")})
	}
	if o.FailureReason != "" {
		rows = append(rows, [2]string{"Failure", o.FailureReason})
	}
	if o.ProviderActionURL != "" {
		rows = append(rows, [2]string{"Action", o.ProviderActionURL})
	}
	if o.CancelledReason != "" {
		rows = append(rows, [2]string{"Cancelled", o.CancelledReason})
	}

	var b strings.Builder
	for _, r := range rows {
		v := value
		if r[0] == "Status" {
			v = v.Foreground(t.ForPayment(o.Status))
		}
		b.WriteString(label.Render(fmt.Sprintf("%-10s ", r[0])))
		b.WriteString(v.Render(r[1]))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch o.Status {
	case model.StatusApprovalRequired, model.StatusFailed:
		b.WriteString(hint.Render("[a] approve  [A] approve for due date  [c] cancel"))
	case model.StatusProcessing:
		b.WriteString(hint.Render("[e] execute due  [c] cancel"))
	default:
		b.WriteString(hint.Render("[P] prepare upcoming"))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
