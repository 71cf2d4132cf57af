package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/paycheck/internal/model"
)

const paymentCols = `id, user_id, source_type, source_id, name, amount, due_on, status, provider,
	provider_reference, provider_action_url, failure_reason, cancelled_reason, attempts,
	approved_at, executed_at, executing_since, created_at, updated_at`

func scanPayment(r rowScanner) (model.PaymentOrder, error) {
	var o model.PaymentOrder
	err := r.Scan(&o.ID, &o.UserID, &o.SourceType, &o.SourceID, &o.Name, &o.Amount, &o.DueOn, &o.Status,
		&o.Provider, strCol{&o.ProviderReference}, strCol{&o.ProviderActionURL}, strCol{&o.FailureReason},
		strCol{&o.CancelledReason}, &o.Attempts, optTimeCol{&o.ApprovedAt}, optTimeCol{&o.ExecutedAt},
		optTimeCol{&o.ExecutingSince}, timeCol{&o.CreatedAt}, timeCol{&o.UpdatedAt})
	return o, err
}

// UpsertPaymentOrder inserts o unless an order with the same
// (source_type, source_id, due_on) already exists, in which case the
// existing order is returned and created is false. When an order is created
// and note has a title, the notification is stored in the same transaction.
func (s *Store) UpsertPaymentOrder(ctx context.Context, userID string, o model.PaymentOrder, note model.Notification) (order model.PaymentOrder, created bool, err error) {
	if err := requireNonNegative("amount", o.Amount); err != nil {
		return o, false, err
	}
	if o.DueOn.IsZero() {
		return o, false, model.Invalid("due_on", "required")
	}
	now := s.stamp()
	if o.ID == "" {
		o.ID = newID()
	}
	if o.Status == "" {
		o.Status = model.StatusApprovalRequired
	}
	o.UserID = userID
	o.CreatedAt, o.UpdatedAt = now, now

	err = s.write(ctx, userID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO payment_orders
			(id, user_id, source_type, source_id, name, amount, due_on, status, provider, attempts, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
			ON CONFLICT(user_id, source_type, source_id, due_on) DO NOTHING`,
			o.ID, userID, o.SourceType, o.SourceID, o.Name, o.Amount, o.DueOn, o.Status, o.Provider, ts(now), ts(now))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			order, err = scanPayment(tx.QueryRowContext(ctx, "SELECT "+paymentCols+
				" FROM payment_orders WHERE user_id = ? AND source_type = ? AND source_id = ? AND due_on = ?",
				userID, o.SourceType, o.SourceID, o.DueOn))
			return err
		}
		created = true
		order = o
		if note.Title != "" {
			note.PaymentOrderID = o.ID
			return s.insertNotification(ctx, tx, userID, note)
		}
		return nil
	})
	if err != nil {
		return o, false, fmt.Errorf("preparing payment order: %w", err)
	}
	return order, created, nil
}

// GetPaymentOrder returns one payment order.
func (s *Store) GetPaymentOrder(ctx context.Context, userID, id string) (model.PaymentOrder, error) {
	return getPayment(ctx, s.db, userID, id)
}

func getPayment(ctx context.Context, q queryer, userID, id string) (model.PaymentOrder, error) {
	o, err := scanPayment(q.QueryRowContext(ctx, "SELECT "+paymentCols+
		" FROM payment_orders WHERE user_id = ? AND id = ?", userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return o, model.ErrNotFound
	}
	return o, err
}

// ListPaymentOrders returns orders by due date ascending, newest first within
// a day. An empty status lists every order.
func (s *Store) ListPaymentOrders(ctx context.Context, userID string, status model.PaymentStatus, limit int) ([]model.PaymentOrder, error) {
	query := "SELECT " + paymentCols + " FROM payment_orders WHERE user_id = ?"
	args := []any{userID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY due_on ASC, created_at DESC, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

// ExecutablePayments returns processing orders due on or before day.
func (s *Store) ExecutablePayments(ctx context.Context, userID string, day model.Date) ([]model.PaymentOrder, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+paymentCols+
		" FROM payment_orders WHERE user_id = ? AND status = ? AND due_on <= ? ORDER BY due_on, created_at, id",
		userID, model.StatusProcessing, day)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func listPayments(ctx context.Context, q queryer, userID string) ([]model.PaymentOrder, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+paymentCols+
		" FROM payment_orders WHERE user_id = ? ORDER BY due_on, created_at, id", userID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func collectPayments(rows *sql.Rows) ([]model.PaymentOrder, error) {
	defer func() { _ = rows.Close() }()
	var out []model.PaymentOrder
	for rows.Next() {
		o, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SetPaymentStatus moves an order from one status to another only if it is
// still in from. It reports whether the row changed, so concurrent callers
// racing on the same order see exactly one winner. Only processing and
// cancelled are reachable this way; reason is stored on cancellation.
func (s *Store) SetPaymentStatus(ctx context.Context, userID, id string, from, to model.PaymentStatus, reason string) (bool, error) {
	now := ts(s.stamp())
	var (
		query string
		args  []any
	)
	switch to {
	case model.StatusProcessing:
		query = `UPDATE payment_orders SET status = ?, approved_at = ?, failure_reason = NULL, updated_at = ?
			WHERE user_id = ? AND id = ? AND status = ?`
		args = []any{to, now, now, userID, id, from}
	case model.StatusCancelled:
		// A claimed order is with the provider and can no longer be cancelled.
		query = `UPDATE payment_orders SET status = ?, cancelled_reason = ?, updated_at = ?
			WHERE user_id = ? AND id = ? AND status = ?
			AND (executing_since IS NULL OR executing_since < ?)`
		args = []any{to, nullable(reason), now, userID, id, from, ts(s.stamp().Add(-ClaimLease))}
	default:
		return false, fmt.Errorf("%w: cannot set status %s directly", model.ErrConflict, to)
	}

	var changed bool
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		changed = n > 0
		return err
	})
	if err != nil {
		return false, fmt.Errorf("updating payment status: %w", err)
	}
	return changed, nil
}

// ClaimLease is how long an execution claim holds before another executor
// may take the order over.
const ClaimLease = 15 * time.Minute

// ClaimPayment marks a processing order as handed to the payment provider.
// It reports false when the order is not processing or another executor
// holds a live claim. Claimed orders cannot be cancelled; SettlePayment and
// FailPayment release the claim.
func (s *Store) ClaimPayment(ctx context.Context, userID, id string) (bool, error) {
	now := s.stamp()
	res, err := s.db.ExecContext(ctx, `UPDATE payment_orders SET executing_since = ?, updated_at = ?
		WHERE user_id = ? AND id = ? AND status = ?
		AND (executing_since IS NULL OR executing_since < ?)`,
		ts(now), ts(now), userID, id, model.StatusProcessing, ts(now.Add(-ClaimLease)))
	if err != nil {
		return false, fmt.Errorf("claiming payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FailPayment marks a processing order failed and records a notification.
func (s *Store) FailPayment(ctx context.Context, userID, id, reason string) (model.PaymentOrder, error) {
	var o model.PaymentOrder
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		now := s.stamp()
		res, err := tx.ExecContext(ctx, `UPDATE payment_orders SET status = ?, failure_reason = ?,
			attempts = attempts + 1, executing_since = NULL, updated_at = ? WHERE user_id = ? AND id = ? AND status = ?`,
			model.StatusFailed, reason, ts(now), userID, id, model.StatusProcessing)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: order %s is not processing", model.ErrConflict, id)
		}
		if o, err = getPayment(ctx, tx, userID, id); err != nil {
			return err
		}
		return s.insertNotification(ctx, tx, userID, model.Notification{
			Kind:           "payment_failed",
			Title:          "Payment failed",
			Message:        fmt.Sprintf("%s for %s failed: %s", o.Name, o.Amount.StringFixed(2), reason),
			PaymentOrderID: id,
		})
	})
	if err != nil {
		return o, fmt.Errorf("failing payment: %w", err)
	}
	return o, nil
}

// SettlePayment marks a processing order approved and applies its ledger
// effects in the same transaction: an expense transaction for every source,
// plus last_paid_at for bills, the next billing date for subscriptions, or
// a goal contribution for goals. An order that is no longer processing
// returns ErrConflict and nothing is written.
func (s *Store) SettlePayment(ctx context.Context, userID, id, reference, actionURL string) (model.PaymentOrder, error) {
	var o model.PaymentOrder
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		now := s.stamp()
		res, err := tx.ExecContext(ctx, `UPDATE payment_orders SET status = ?, provider_reference = ?,
			provider_action_url = ?, failure_reason = NULL, attempts = attempts + 1, executed_at = ?,
			executing_since = NULL, updated_at = ?
			WHERE user_id = ? AND id = ? AND status = ?`,
			model.StatusApproved, nullable(reference), nullable(actionURL), ts(now), ts(now),
			userID, id, model.StatusProcessing)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: order %s is not processing", model.ErrConflict, id)
		}
		if o, err = getPayment(ctx, tx, userID, id); err != nil {
			return err
		}
		if err := s.applySettlement(ctx, tx, userID, o, now); err != nil {
			return fmt.Errorf("applying %s settlement: %w", o.SourceType, err)
		}
		return s.insertNotification(ctx, tx, userID, model.Notification{
			Kind:           "payment_succeeded",
			Title:          "Payment sent",
			Message:        fmt.Sprintf("%s for %s was paid.", o.Name, o.Amount.StringFixed(2)),
			PaymentOrderID: id,
		})
	})
	if err != nil {
		return o, fmt.Errorf("settling payment: %w", err)
	}
	return o, nil
}

func (s *Store) applySettlement(ctx context.Context, tx *sql.Tx, userID string, o model.PaymentOrder, now time.Time) error {
	txn := model.Transaction{
		Amount:      o.Amount,
		Type:        model.Expense,
		Description: "Autopilot: " + o.Name,
		OccurredAt:  now,
		Status:      model.Completed,
	}

	switch o.SourceType {
	case model.SourceBill:
		var category sql.NullString
		if err := tx.QueryRowContext(ctx, "SELECT category_id FROM bills WHERE user_id = ? AND id = ?",
			userID, o.SourceID).Scan(&category); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ErrNotFound
			}
			return err
		}
		txn.BillID = o.SourceID
		txn.CategoryID = category.String
		if _, err := s.insertTransaction(ctx, tx, userID, txn); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "UPDATE bills SET last_paid_at = ? WHERE user_id = ? AND id = ?",
			ts(now), userID, o.SourceID)
		return err

	case model.SourceSubscription:
		sub, err := scanSubscription(tx.QueryRowContext(ctx, "SELECT "+subscriptionCols+
			" FROM subscriptions WHERE user_id = ? AND id = ?", userID, o.SourceID))
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrNotFound
		}
		if err != nil {
			return err
		}
		txn.SubscriptionID = sub.ID
		txn.CategoryID = sub.CategoryID
		if _, err := s.insertTransaction(ctx, tx, userID, txn); err != nil {
			return err
		}
		next := sub.NextBillingDate
		for !next.After(o.DueOn) {
			next = next.AddMonthsClamped(sub.CycleMonths(), sub.NextBillingDate.Day())
		}
		_, err = tx.ExecContext(ctx, "UPDATE subscriptions SET next_billing_date = ? WHERE user_id = ? AND id = ?",
			next, userID, sub.ID)
		return err

	case model.SourceGoal:
		txn.GoalID = o.SourceID
		txn.Description = "Savings: " + o.Name
		saved, err := s.insertTransaction(ctx, tx, userID, txn)
		if err != nil {
			return err
		}
		_, _, err = s.contribute(ctx, tx, userID, o.SourceID, o.Amount, "Autopilot contribution", saved.ID)
		return err
	}
	return fmt.Errorf("unknown source type %q", o.SourceType)
}
