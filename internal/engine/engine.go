// Package engine derives allocation, safe-to-spend, timeline and triage views
// from a ledger snapshot. Every function here is pure: the same ledger and
// settings always produce the same result.
package engine

import (
	"github.com/theirongolddev/paycheck/internal/config"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/pipeline"

	"github.com/shopspring/decimal"
)

// Settings is the configuration slice the engine reads.
type Settings struct {
	FloorPct            decimal.Decimal
	CatchUp             string
	ManualSalary        *decimal.Decimal
	SalaryDay           int
	GoalContributionDay int
}

// DefaultSettings mirrors config.DefaultConfig.
func DefaultSettings() Settings {
	s, _ := SettingsFromConfig(config.DefaultConfig())
	return s
}

// SettingsFromConfig extracts engine settings from a loaded config.
func SettingsFromConfig(cfg config.Config) (Settings, error) {
	manual, err := cfg.ManualSalary()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		FloorPct:            cfg.FloorPct(),
		CatchUp:             cfg.Engine.GoalCatchUp,
		ManualSalary:        manual,
		SalaryDay:           cfg.Engine.SalaryDay,
		GoalContributionDay: cfg.Engine.GoalContributionDay,
	}, nil
}

// Policy returns the allocation policy part of the settings.
func (s Settings) Policy() Policy {
	return Policy{FloorPct: s.FloorPct, CatchUp: s.CatchUp}
}

// SalaryDay returns the day of month salary is expected: the first active
// income source with a payday, then the configured day, then the most
// common day past income landed on.
func SalaryDay(l *pipeline.Ledger, s Settings) (int, bool) {
	for _, src := range l.ActiveIncomeSources() {
		if src.Payday > 0 {
			return src.Payday, true
		}
	}
	if s.SalaryDay > 0 {
		return s.SalaryDay, true
	}
	return l.TypicalIncomeDay()
}

// ContributionDay returns the day of month goal contributions are made.
func ContributionDay(l *pipeline.Ledger, s Settings) int {
	if s.GoalContributionDay > 0 {
		return s.GoalContributionDay
	}
	if day, ok := SalaryDay(l, s); ok {
		return day
	}
	return 1
}

// occurrences lists the monthly dates for day that fall in [from, to].
func occurrences(day int, from, to model.Date) []model.Date {
	var out []model.Date
	for m := from.MonthStart(); !m.After(to); m = m.AddMonthsClamped(1, 1) {
		d := model.ClampDay(m.Year(), m.Month(), day)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, d)
	}
	return out
}
