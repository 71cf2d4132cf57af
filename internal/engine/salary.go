package engine

import (
	"fmt"
	"sort"

	"github.com/theirongolddev/paycheck/internal/config"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/pipeline"

	"github.com/shopspring/decimal"
)

// Salary sources, highest priority first.
const (
	SourceOverride     = "salary_override"
	SourceTransactions = "income_transactions"
	SourceIncome       = "income_sources"
	SourceManual       = "manual_salary"
	SourceNone         = "none"
)

// Warnings attached to an allocation.
const (
	WarnCommitmentsExceedSalary = "commitments_exceed_salary"
	WarnBelowFloor              = "below_free_money_floor"
	warnPlannedUnderfunded      = "planned_expense_underfunded:"
	warnGoalUnderfunded         = "goal_underfunded:"
)

const (
	msgUncovered      = "Salary does not fully cover commitments. Autopilot should require manual approval."
	msgPlannedPartial = "Commitments are covered. Planned expenses are partially funded."
	msgGoalsPartial   = "Commitments are covered. Goals are partially funded by priority."
	msgFloorMet       = "Commitments and goals are funded. Free-money floor is protected."
	msgFloorMissed    = "Commitments and goals are funded, but free-money floor is below target."
)

// Policy tunes the waterfall.
type Policy struct {
	FloorPct decimal.Decimal
	CatchUp  string
}

// AllocationInput is everything one allocation run reads.
type AllocationInput struct {
	Salary           decimal.Decimal
	SalarySource     string
	SalaryCandidates []model.SalaryCandidate
	Commitments      Commitments
	Rules            []model.BudgetRule
	Goals            []model.Goal
	// Categories maps category id to name. When non-nil, rules must
	// reference a known category.
	Categories map[string]string
	Policy     Policy
	Today      model.Date
}

// Validate rejects inputs the waterfall cannot run on.
func (in AllocationInput) Validate() error {
	if in.Salary.IsNegative() {
		return model.Invalid("salary", "must not be negative, got %s", in.Salary)
	}
	if in.Commitments.Bills.IsNegative() || in.Commitments.Subscriptions.IsNegative() {
		return model.Invalid("commitments", "must not be negative")
	}
	if in.Policy.FloorPct.IsNegative() || in.Policy.FloorPct.GreaterThan(model.Hundred) {
		return model.Invalid("free_money_floor_pct", "must be between 0 and 100, got %s", in.Policy.FloorPct)
	}
	switch in.Policy.CatchUp {
	case config.CatchUpLarger, config.CatchUpCapped:
	default:
		return model.Invalid("goal_catch_up", "unknown policy %q", in.Policy.CatchUp)
	}

	ruleIDs := make(map[string]struct{}, len(in.Rules))
	ruleCats := make(map[string]struct{}, len(in.Rules))
	for _, r := range in.Rules {
		if _, dup := ruleIDs[r.ID]; dup {
			return model.Invalid("rule_id", "duplicate rule %q", r.ID)
		}
		ruleIDs[r.ID] = struct{}{}
		if _, dup := ruleCats[r.CategoryID]; dup {
			return model.Invalid("category_id", "category %q already has a budget rule", r.CategoryID)
		}
		ruleCats[r.CategoryID] = struct{}{}
		if in.Categories != nil {
			if _, ok := in.Categories[r.CategoryID]; !ok {
				return model.Invalid("category_id", "unknown category %q", r.CategoryID)
			}
		}
		if r.AllocationValue.IsNegative() {
			return model.Invalid("allocation_value", "rule %q requests a negative amount", r.ID)
		}
		switch r.AllocationType {
		case model.AllocFixed:
		case model.AllocPercent:
			if r.AllocationValue.GreaterThan(model.Hundred) {
				return model.Invalid("allocation_value", "rule %q requests more than 100%%", r.ID)
			}
		default:
			return model.Invalid("allocation_type", "unknown type %q", r.AllocationType)
		}
		if r.MonthlyLimit != nil && r.MonthlyLimit.IsNegative() {
			return model.Invalid("monthly_limit", "rule %q has a negative limit", r.ID)
		}
	}

	goalIDs := make(map[string]struct{}, len(in.Goals))
	for _, g := range in.Goals {
		if _, dup := goalIDs[g.ID]; dup {
			return model.Invalid("goal_id", "duplicate goal %q", g.ID)
		}
		goalIDs[g.ID] = struct{}{}
		if g.Priority < 1 {
			return model.Invalid("priority", "goal %q priority must be at least 1", g.ID)
		}
		if g.MonthlyContribution != nil && g.MonthlyContribution.IsNegative() {
			return model.Invalid("monthly_contribution", "goal %q has a negative contribution", g.ID)
		}
		if g.TargetAmount.IsNegative() || g.CurrentAmount.IsNegative() {
			return model.Invalid("target_amount", "goal %q has a negative amount", g.ID)
		}
	}
	return nil
}

// draw takes up to requested from remainder.
func draw(remainder, requested decimal.Decimal) (allocated, rest decimal.Decimal) {
	allocated = decimal.Min(model.NonNegative(requested), remainder)
	return allocated, remainder.Sub(allocated)
}

// Allocate runs the salary waterfall: recurring commitments, then budget
// rules in order, then goals by priority. Whatever is left is free money.
// Shortfalls are reported as warnings, never as errors.
func Allocate(in AllocationInput) (model.AllocationSnapshot, error) {
	if err := in.Validate(); err != nil {
		return model.AllocationSnapshot{}, err
	}

	salary := in.Salary
	warnings := []string{}
	committedRequest := in.Commitments.Recurring()
	requested := committedRequest

	commitments, remainder := draw(salary, committedRequest)
	uncovered := committedRequest.GreaterThan(salary)
	if uncovered {
		warnings = append(warnings, WarnCommitmentsExceedSalary)
	}

	planned := decimal.Zero
	plannedShort := false
	ruleBuckets := []model.PlannedExpenseBucket{}
	for _, r := range orderedRules(in.Rules) {
		req := ruleRequest(r, salary)
		requested = requested.Add(req)
		var got decimal.Decimal
		got, remainder = draw(remainder, req)
		planned = planned.Add(got)
		if got.LessThan(req) {
			plannedShort = true
			warnings = append(warnings, warnPlannedUnderfunded+r.ID)
		}
		ruleBuckets = append(ruleBuckets, model.PlannedExpenseBucket{
			RuleID:       r.ID,
			CategoryID:   r.CategoryID,
			CategoryName: in.Categories[r.CategoryID],
			Requested:    req,
			Allocated:    got,
		})
	}

	goals := decimal.Zero
	goalsShort := false
	goalBuckets := []model.GoalBucket{}
	for _, g := range orderedGoals(in.Goals) {
		req := GoalRequest(g, in.Today, in.Policy.CatchUp)
		requested = requested.Add(req)
		var got decimal.Decimal
		got, remainder = draw(remainder, req)
		goals = goals.Add(got)
		if got.LessThan(req) {
			goalsShort = true
			warnings = append(warnings, warnGoalUnderfunded+g.ID)
		}
		goalBuckets = append(goalBuckets, model.GoalBucket{
			GoalID:    g.ID,
			GoalName:  g.Name,
			Priority:  g.Priority,
			Requested: req,
			Allocated: got,
		})
	}

	free := remainder
	floorTarget := model.Cents(salary.Mul(in.Policy.FloorPct).Div(model.Hundred))
	floorMet := free.GreaterThanOrEqual(floorTarget)
	if !floorMet {
		warnings = append(warnings, WarnBelowFloor)
	}

	allocated := commitments.Add(planned).Add(goals)
	ratio := decimal.Zero
	if committedRequest.IsPositive() {
		ratio = salary.DivRound(committedRequest, 4)
	}

	var status string
	switch {
	case uncovered:
		status = msgUncovered
	case plannedShort:
		status = msgPlannedPartial
	case goalsShort:
		status = msgGoalsPartial
	case floorMet:
		status = msgFloorMet
	default:
		status = msgFloorMissed
	}

	candidates := in.SalaryCandidates
	if candidates == nil {
		candidates = []model.SalaryCandidate{}
	}
	source := in.SalarySource
	if source == "" {
		source = SourceOverride
	}

	return model.AllocationSnapshot{
		SalaryConsidered: salary,
		SalarySource:     source,
		SalaryCandidates: candidates,
		Allocation: model.Allocation{
			Commitments:          commitments,
			PlannedExpenses:      planned,
			Goals:                goals,
			FreeMoney:            free,
			FreeMoneyFloorTarget: floorTarget,
			FreeMoneyFloorMet:    floorMet,
		},
		Buckets: model.Buckets{Goals: goalBuckets, PlannedExpenses: ruleBuckets},
		Totals: model.AllocationTotals{
			Requested:               requested,
			Allocated:               allocated,
			Shortfall:               model.NonNegative(requested.Sub(allocated)),
			CommitmentCoverageRatio: ratio,
		},
		RulesConfig: model.RulesConfig{
			FreeMoneyFloorPct: in.Policy.FloorPct,
			GoalCatchUp:       in.Policy.CatchUp,
		},
		Warnings:      warnings,
		StatusMessage: status,
	}, nil
}

func ruleRequest(r model.BudgetRule, salary decimal.Decimal) decimal.Decimal {
	req := r.AllocationValue
	if r.AllocationType == model.AllocPercent {
		req = model.Cents(salary.Mul(r.AllocationValue).Div(model.Hundred))
	}
	if r.MonthlyLimit != nil && req.GreaterThan(*r.MonthlyLimit) {
		req = *r.MonthlyLimit
	}
	return req
}

// GoalRequest is what a goal asks for this month. A target date implies a
// required amount (remaining spread over the months left, this month
// included); the catch-up policy decides whether that may exceed the
// configured contribution. Requests never exceed what is left to save.
func GoalRequest(g model.Goal, today model.Date, catchUp string) decimal.Decimal {
	remaining := g.Remaining()
	if g.IsCompleted || !remaining.IsPositive() {
		return decimal.Zero
	}

	configured := decimal.Zero
	if g.MonthlyContribution != nil {
		configured = *g.MonthlyContribution
	}

	required := decimal.Zero
	if g.TargetDate != nil {
		if g.TargetDate.Before(today) {
			required = remaining
		} else {
			required = model.CentsUp(remaining.Div(decimal.NewFromInt(int64(MonthsLeft(today, *g.TargetDate)))))
		}
	}

	req := configured
	switch {
	case catchUp == config.CatchUpCapped && g.MonthlyContribution != nil:
	case catchUp == config.CatchUpCapped:
		req = required
	default:
		req = decimal.Max(configured, required)
	}
	return decimal.Min(req, remaining)
}

// MonthsLeft counts calendar months from today's month through target's
// month inclusive, never less than one.
func MonthsLeft(today, target model.Date) int {
	n := (target.Year()-today.Year())*12 + int(target.Month()) - int(today.Month()) + 1
	if n < 1 {
		return 1
	}
	return n
}

func orderedRules(rules []model.BudgetRule) []model.BudgetRule {
	out := append([]model.BudgetRule(nil), rules...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// orderedGoals drops completed goals and sorts by priority, then age.
func orderedGoals(goals []model.Goal) []model.Goal {
	var out []model.Goal
	for _, g := range goals {
		if !g.IsCompleted {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// SalaryResolution is the salary chosen for an allocation and the figures
// it was chosen from.
type SalaryResolution struct {
	Amount     decimal.Decimal
	Source     string
	Candidates []model.SalaryCandidate
}

// ResolveSalary picks the salary in priority order: an explicit override,
// income received this month, active income sources normalized to a month,
// then the configured manual salary.
func ResolveSalary(l *pipeline.Ledger, s Settings, override *decimal.Decimal) (SalaryResolution, error) {
	from, to := l.MonthBounds()
	fromTxns := l.IncomeBetween(from, to)
	fromSources := decimal.Zero
	for _, src := range l.ActiveIncomeSources() {
		fromSources = fromSources.Add(src.MonthlyAmount())
	}
	fromSources = model.Cents(fromSources)

	res := SalaryResolution{
		Candidates: []model.SalaryCandidate{
			{Source: SourceTransactions, Amount: fromTxns},
			{Source: SourceIncome, Amount: fromSources},
		},
	}
	if s.ManualSalary != nil {
		res.Candidates = append(res.Candidates, model.SalaryCandidate{Source: SourceManual, Amount: *s.ManualSalary})
	}

	switch {
	case override != nil:
		if override.IsNegative() {
			return res, model.Invalid("salary_override", "must not be negative, got %s", override)
		}
		res.Amount, res.Source = *override, SourceOverride
	case fromTxns.IsPositive():
		res.Amount, res.Source = fromTxns, SourceTransactions
	case fromSources.IsPositive():
		res.Amount, res.Source = fromSources, SourceIncome
	case s.ManualSalary != nil:
		res.Amount, res.Source = *s.ManualSalary, SourceManual
	default:
		res.Amount, res.Source = decimal.Zero, SourceNone
	}
	return res, nil
}

// SalarySplit resolves salary and commitments from the ledger and runs the
// waterfall.
func SalarySplit(l *pipeline.Ledger, s Settings, override *decimal.Decimal) (model.AllocationSnapshot, error) {
	salary, err := ResolveSalary(l, s, override)
	if err != nil {
		return model.AllocationSnapshot{}, err
	}
	snap := l.Snapshot()
	cats := make(map[string]string, len(snap.Categories))
	for _, c := range snap.Categories {
		cats[c.ID] = c.Name
	}
	snapshot, err := Allocate(AllocationInput{
		Salary:           salary.Amount,
		SalarySource:     salary.Source,
		SalaryCandidates: salary.Candidates,
		Commitments:      ResolveCommitments(l, s),
		Rules:            snap.Rules,
		Goals:            snap.Goals,
		Categories:       cats,
		Policy:           s.Policy(),
		Today:            l.Today(),
	})
	if err != nil {
		return snapshot, fmt.Errorf("allocating salary: %w", err)
	}
	return snapshot, nil
}
