package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/theirongolddev/paycheck/internal/model"

	"github.com/shopspring/decimal"
)

const goalCols = `id, name, target_amount, current_amount, monthly_contribution, target_date,
	priority, is_completed, created_at`

func scanGoal(r rowScanner) (model.Goal, error) {
	var g model.Goal
	err := r.Scan(&g.ID, &g.Name, &g.TargetAmount, &g.CurrentAmount, optDecCol{&g.MonthlyContribution},
		optDateCol{&g.TargetDate}, &g.Priority, &g.IsCompleted, timeCol{&g.CreatedAt})
	return g, err
}

func validateGoal(g model.Goal) error {
	if g.Name == "" {
		return model.Invalid("name", "required")
	}
	if err := requirePositive("target_amount", g.TargetAmount); err != nil {
		return err
	}
	if err := requireNonNegative("current_amount", g.CurrentAmount); err != nil {
		return err
	}
	if g.MonthlyContribution != nil {
		if err := requireNonNegative("monthly_contribution", *g.MonthlyContribution); err != nil {
			return err
		}
	}
	if g.Priority < 1 {
		return model.Invalid("priority", "must be >= 1, got %d", g.Priority)
	}
	return nil
}

// CreateGoal stores a new goal. Priority defaults to 1.
func (s *Store) CreateGoal(ctx context.Context, userID string, g model.Goal) (model.Goal, error) {
	if g.Priority == 0 {
		g.Priority = 1
	}
	if err := validateGoal(g); err != nil {
		return g, err
	}
	if g.ID == "" {
		g.ID = newID()
	}
	g.CreatedAt = s.stamp()
	g.IsCompleted = g.IsCompleted || g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO goals
			(id, user_id, name, target_amount, current_amount, monthly_contribution, target_date,
			 priority, is_completed, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, userID, g.Name, g.TargetAmount, g.CurrentAmount, decPtr(g.MonthlyContribution),
			optDate(g.TargetDate), g.Priority, g.IsCompleted, ts(g.CreatedAt))
		return err
	})
	if err != nil {
		return g, fmt.Errorf("creating goal: %w", err)
	}
	return g, nil
}

// UpdateGoal replaces a goal's plan. current_amount only moves through
// Contribute, so the stored value is kept.
func (s *Store) UpdateGoal(ctx context.Context, userID string, g model.Goal) (model.Goal, error) {
	if err := validateGoal(g); err != nil {
		return g, err
	}
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE goals SET name = ?, target_amount = ?, monthly_contribution = ?,
			target_date = ?, priority = ?, is_completed = ? WHERE user_id = ? AND id = ?`,
			g.Name, g.TargetAmount, decPtr(g.MonthlyContribution), optDate(g.TargetDate), g.Priority,
			g.IsCompleted, userID, g.ID)
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
	if err != nil {
		return g, fmt.Errorf("updating goal: %w", err)
	}
	return s.GetGoal(ctx, userID, g.ID)
}

// GetGoal returns one goal.
func (s *Store) GetGoal(ctx context.Context, userID, id string) (model.Goal, error) {
	return getGoal(ctx, s.db, userID, id)
}

func getGoal(ctx context.Context, q queryer, userID, id string) (model.Goal, error) {
	g, err := scanGoal(q.QueryRowContext(ctx, "SELECT "+goalCols+" FROM goals WHERE user_id = ? AND id = ?", userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return g, model.ErrNotFound
	}
	return g, err
}

// ListGoals returns goals in allocation order.
func (s *Store) ListGoals(ctx context.Context, userID string) ([]model.Goal, error) {
	return listGoals(ctx, s.db, userID)
}

func listGoals(ctx context.Context, q queryer, userID string) ([]model.Goal, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+goalCols+
		" FROM goals WHERE user_id = ? ORDER BY priority, created_at, id", userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// DeleteGoal removes a goal and its logs.
func (s *Store) DeleteGoal(ctx context.Context, userID, id string) error {
	return s.deleteByID(ctx, userID, "goals", id)
}

// Contribute appends a GoalLog and adds amount to the goal's current amount
// in one transaction. The goal is marked completed once it reaches target.
func (s *Store) Contribute(ctx context.Context, userID, goalID string, amount decimal.Decimal, note string) (model.Goal, model.GoalLog, error) {
	var (
		g   model.Goal
		log model.GoalLog
	)
	if err := requirePositive("amount", amount); err != nil {
		return g, log, err
	}
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		var err error
		g, log, err = s.contribute(ctx, tx, userID, goalID, amount, note, "")
		return err
	})
	if err != nil {
		return g, log, fmt.Errorf("contributing to goal: %w", err)
	}
	return g, log, nil
}

func (s *Store) contribute(ctx context.Context, tx *sql.Tx, userID, goalID string, amount decimal.Decimal, note, txnID string) (model.Goal, model.GoalLog, error) {
	g, err := getGoal(ctx, tx, userID, goalID)
	if err != nil {
		return g, model.GoalLog{}, err
	}
	log := model.GoalLog{
		ID:            newID(),
		GoalID:        goalID,
		Amount:        amount,
		Note:          note,
		TransactionID: txnID,
		CreatedAt:     s.stamp(),
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO goal_logs (id, user_id, goal_id, amount, note, transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		log.ID, userID, goalID, log.Amount, log.Note, nullable(txnID), ts(log.CreatedAt)); err != nil {
		return g, log, err
	}

	g.CurrentAmount = g.CurrentAmount.Add(amount)
	g.IsCompleted = g.IsCompleted || g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
	if _, err := tx.ExecContext(ctx, "UPDATE goals SET current_amount = ?, is_completed = ? WHERE user_id = ? AND id = ?",
		g.CurrentAmount, g.IsCompleted, userID, goalID); err != nil {
		return g, log, err
	}
	return g, log, nil
}

const goalLogCols = "id, goal_id, amount, note, transaction_id, created_at"

func scanGoalLog(r rowScanner) (model.GoalLog, error) {
	var l model.GoalLog
	err := r.Scan(&l.ID, &l.GoalID, &l.Amount, &l.Note, strCol{&l.TransactionID}, timeCol{&l.CreatedAt})
	return l, err
}

// GoalLogs returns a goal's contributions, oldest first.
func (s *Store) GoalLogs(ctx context.Context, userID, goalID string) ([]model.GoalLog, error) {
	if _, err := s.GetGoal(ctx, userID, goalID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+goalLogCols+
		" FROM goal_logs WHERE user_id = ? AND goal_id = ? ORDER BY created_at, rowid", userID, goalID)
	if err != nil {
		return nil, err
	}
	return collectGoalLogs(rows)
}

func listGoalLogs(ctx context.Context, q queryer, userID string) ([]model.GoalLog, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+goalLogCols+
		" FROM goal_logs WHERE user_id = ? ORDER BY created_at, rowid", userID)
	if err != nil {
		return nil, err
	}
	return collectGoalLogs(rows)
}

func collectGoalLogs(rows *sql.Rows) ([]model.GoalLog, error) {
	defer func() { _ = rows.Close() }()
	var out []model.GoalLog
	for rows.Next() {
		l, err := scanGoalLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
