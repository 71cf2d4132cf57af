package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/paycheck/internal/config"
	"github.com/theirongolddev/paycheck/internal/tui/theme"

	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"
)

// SetupValues holds the answers of the setup form as entered text.
type SetupValues struct {
	UserID          string
	Currency        string
	ManualSalary    string
	SalaryDay       string
	ContributionDay string
	FloorPct        string
	CatchUp         string
	Theme           string
}

// NewSetupValues pre-fills the form from cfg.
func NewSetupValues(cfg config.Config) *SetupValues {
	day := func(d int) string {
		if d == 0 {
			return ""
		}
		return strconv.Itoa(d)
	}
	return &SetupValues{
		UserID:          cfg.General.UserID,
		Currency:        cfg.General.Currency,
		ManualSalary:    cfg.Engine.ManualSalary,
		SalaryDay:       day(cfg.Engine.SalaryDay),
		ContributionDay: day(cfg.Engine.GoalContributionDay),
		FloorPct:        strconv.FormatFloat(cfg.Engine.FreeMoneyFloorPct, 'f', -1, 64),
		CatchUp:         cfg.Engine.GoalCatchUp,
		Theme:           cfg.Appearance.Theme,
	}
}

func validateDay(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := strconv.Atoi(s)
	if err != nil || d < 1 || d > 31 {
		return fmt.Errorf("enter a day between 1 and 31, or leave blank")
	}
	return nil
}

func validateAmount(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return fmt.Errorf("enter a non-negative amount, or leave blank")
	}
	return nil
}

func validatePct(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 || f > 100 {
		return fmt.Errorf("enter a percentage between 0 and 100")
	}
	return nil
}

// NewSetupForm builds the first-run form. Answers are written into v.
func NewSetupForm(v *SetupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to paycheck").
				Description("A few answers and every salary gets split for you."),
			huh.NewInput().
				Title("User id").
				Description("Ledger this terminal reads and writes").
				Value(&v.UserID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("user id is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Currency").
				Options(huh.NewOptions("USD", "EUR", "GBP", "JPY", "INR")...).
				Value(&v.Currency),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Monthly salary").
				Description("Used when no income has been recorded yet. Blank to skip.").
				Value(&v.ManualSalary).
				Validate(validateAmount),
			huh.NewInput().
				Title("Salary day").
				Description("Day of month salary arrives. Blank to detect from history.").
				Value(&v.SalaryDay).
				Validate(validateDay),
			huh.NewInput().
				Title("Goal contribution day").
				Description("Blank to contribute on salary day.").
				Value(&v.ContributionDay).
				Validate(validateDay),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Free money floor (%)").
				Description("Share of salary kept free before goals are funded").
				Value(&v.FloorPct).
				Validate(validatePct),
			huh.NewSelect[string]().
				Title("Goals behind schedule").
				Options(
					huh.NewOption("Catch up (pay more than the monthly amount)", config.CatchUpLarger),
					huh.NewOption("Stay capped at the monthly amount", config.CatchUpCapped),
				).
				Value(&v.CatchUp),
			huh.NewSelect[string]().
				Title("Theme").
				Options(themeOpts...).
				Value(&v.Theme),
		),
	).WithShowHelp(true)
}

// Apply writes the answers into cfg and validates the result.
func (v *SetupValues) Apply(cfg *config.Config) error {
	atoi := func(s string) int {
		n, _ := strconv.Atoi(strings.TrimSpace(s))
		return n
	}
	floor, err := strconv.ParseFloat(strings.TrimSpace(v.FloorPct), 64)
	if err != nil {
		return fmt.Errorf("free money floor: %w", err)
	}

	cfg.General.UserID = strings.TrimSpace(v.UserID)
	cfg.General.Currency = v.Currency
	cfg.Engine.ManualSalary = strings.TrimSpace(v.ManualSalary)
	cfg.Engine.SalaryDay = atoi(v.SalaryDay)
	cfg.Engine.GoalContributionDay = atoi(v.ContributionDay)
	cfg.Engine.FreeMoneyFloorPct = floor
	cfg.Engine.GoalCatchUp = v.CatchUp
	cfg.Appearance.Theme = v.Theme
	return cfg.Validate()
}
