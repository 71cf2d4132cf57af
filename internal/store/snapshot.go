package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/theirongolddev/paycheck/internal/model"
)

// ReadSnapshot loads every ledger entity for the user inside one read
// transaction, so a computation never sees a half-applied write. Any
// failure is reported as a TransientError and no partial snapshot is
// returned.
func (s *Store) ReadSnapshot(ctx context.Context, userID string) (*model.Snapshot, error) {
	snap, err := s.readSnapshot(ctx, userID)
	if err != nil {
		return nil, &model.TransientError{Op: "snapshot read", Err: err}
	}
	return snap, nil
}

func (s *Store) readSnapshot(ctx context.Context, userID string) (*model.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	snap := &model.Snapshot{UserID: userID, ReadAt: s.stamp()}
	// The version read pins the WAL snapshot for every query that follows.
	if snap.Version, err = ledgerVersion(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("ledger version: %w", err)
	}
	if snap.Categories, err = listCategories(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	if snap.Transactions, err = listTransactions(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	if snap.Bills, err = listBills(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("bills: %w", err)
	}
	if snap.Subscriptions, err = listSubscriptions(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("subscriptions: %w", err)
	}
	if snap.Goals, err = listGoals(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("goals: %w", err)
	}
	if snap.GoalLogs, err = listGoalLogs(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("goal logs: %w", err)
	}
	if snap.Rules, err = listRules(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("budget rules: %w", err)
	}
	if snap.IncomeSources, err = listIncome(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("income sources: %w", err)
	}
	if snap.PaymentOrders, err = listPayments(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("payment orders: %w", err)
	}
	return snap, tx.Commit()
}

var _ queryer = (*sql.Tx)(nil)
