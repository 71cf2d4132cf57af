package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/theirongolddev/paycheck/internal/model"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// ─── Categories ─────────────────────────────────────────────

const categoryCols = "id, name, kind, created_at"

func scanCategory(r rowScanner) (model.Category, error) {
	var c model.Category
	err := r.Scan(&c.ID, &c.Name, &c.Kind, timeCol{&c.CreatedAt})
	return c, err
}

func validateCategory(c model.Category) error {
	if c.Name == "" {
		return model.Invalid("name", "required")
	}
	switch c.Kind {
	case model.ExpenseCategory, model.IncomeCategory:
	default:
		return model.Invalid("kind", "unknown category kind %q", c.Kind)
	}
	return nil
}

// CreateCategory stores a new category.
func (s *Store) CreateCategory(ctx context.Context, userID string, c model.Category) (model.Category, error) {
	if c.Kind == "" {
		c.Kind = model.ExpenseCategory
	}
	if err := validateCategory(c); err != nil {
		return c, err
	}
	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = s.stamp()
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO categories (id, user_id, name, kind, created_at)
			VALUES (?, ?, ?, ?, ?)`, c.ID, userID, c.Name, c.Kind, ts(c.CreatedAt))
		return err
	})
	if err != nil {
		return c, fmt.Errorf("creating category: %w", err)
	}
	return c, nil
}

// UpdateCategory replaces a category's name and kind.
func (s *Store) UpdateCategory(ctx context.Context, userID string, c model.Category) (model.Category, error) {
	if err := validateCategory(c); err != nil {
		return c, err
	}
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE categories SET name = ?, kind = ? WHERE user_id = ? AND id = ?",
			c.Name, c.Kind, userID, c.ID)
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
	if err != nil {
		return c, fmt.Errorf("updating category: %w", err)
	}
	return s.GetCategory(ctx, userID, c.ID)
}

// GetCategory returns one category.
func (s *Store) GetCategory(ctx context.Context, userID, id string) (model.Category, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+categoryCols+" FROM categories WHERE user_id = ? AND id = ?", userID, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return c, model.ErrNotFound
	}
	return c, err
}

// ListCategories returns the user's categories by name.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	return listCategories(ctx, s.db, userID)
}

func listCategories(ctx context.Context, q queryer, userID string) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+categoryCols+" FROM categories WHERE user_id = ? ORDER BY name, id", userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCategory removes a category. Transactions keep the dangling id and
// read back as uncategorized.
// DeleteCategory removes a category and the budget rule that targets it.
func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE user_id = ? AND id = ?", userID, id)
		if err != nil {
			return err
		}
		if err := checkAffected(res); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM budget_rules WHERE user_id = ? AND category_id = ?", userID, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, userID, table, id string) error {
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		//nolint:gosec // table names are package constants
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE user_id = ? AND id = ?", userID, id)
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	return nil
}

// ─── Transactions ───────────────────────────────────────────

const transactionCols = `id, amount, type, category_id, description, occurred_at, status,
	bill_id, subscription_id, goal_id, created_at`

func scanTransaction(r rowScanner) (model.Transaction, error) {
	var t model.Transaction
	err := r.Scan(&t.ID, &t.Amount, &t.Type, strCol{&t.CategoryID}, &t.Description,
		timeCol{&t.OccurredAt}, &t.Status, strCol{&t.BillID}, strCol{&t.SubscriptionID},
		strCol{&t.GoalID}, timeCol{&t.CreatedAt})
	return t, err
}

func validateTransaction(t model.Transaction) error {
	if err := requirePositive("amount", t.Amount); err != nil {
		return err
	}
	switch t.Type {
	case model.Income, model.Expense:
	default:
		return model.Invalid("type", "must be INCOME or EXPENSE, got %q", t.Type)
	}
	switch t.Status {
	case model.Pending, model.Completed:
	default:
		return model.Invalid("status", "must be PENDING or COMPLETED, got %q", t.Status)
	}
	if t.OccurredAt.IsZero() {
		return model.Invalid("occurred_at", "required")
	}
	return nil
}

func normalizeTransaction(t *model.Transaction) {
	t.Amount = t.Amount.Abs()
	if t.Status == "" {
		t.Status = model.Completed
	}
}

// CreateTransaction stores a new transaction.
func (s *Store) CreateTransaction(ctx context.Context, userID string, t model.Transaction) (model.Transaction, error) {
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		var err error
		t, err = s.insertTransaction(ctx, tx, userID, t)
		return err
	})
	if err != nil {
		return t, fmt.Errorf("creating transaction: %w", err)
	}
	return t, nil
}

func (s *Store) insertTransaction(ctx context.Context, tx *sql.Tx, userID string, t model.Transaction) (model.Transaction, error) {
	normalizeTransaction(&t)
	if t.OccurredAt.IsZero() {
		t.OccurredAt = s.stamp()
	}
	if err := validateTransaction(t); err != nil {
		return t, err
	}
	if err := requireCategory(ctx, tx, userID, t.CategoryID); err != nil {
		return t, err
	}
	if t.ID == "" {
		t.ID = newID()
	}
	t.CreatedAt = s.stamp()
	_, err := tx.ExecContext(ctx, `INSERT INTO transactions
		(id, user_id, amount, type, category_id, description, occurred_at, status,
		 bill_id, subscription_id, goal_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, userID, t.Amount, t.Type, nullable(t.CategoryID), t.Description, ts(t.OccurredAt), t.Status,
		nullable(t.BillID), nullable(t.SubscriptionID), nullable(t.GoalID), ts(t.CreatedAt))
	return t, err
}

// UpdateTransaction edits a pending transaction. Completed transactions are
// immutable; only their category may change so they can be triaged.
func (s *Store) UpdateTransaction(ctx context.Context, userID string, t model.Transaction) (model.Transaction, error) {
	normalizeTransaction(&t)
	if err := validateTransaction(t); err != nil {
		return t, err
	}
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		cur, err := scanTransaction(tx.QueryRowContext(ctx,
			"SELECT "+transactionCols+" FROM transactions WHERE user_id = ? AND id = ?", userID, t.ID))
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := requireCategory(ctx, tx, userID, t.CategoryID); err != nil {
			return err
		}
		if cur.IsCompleted() {
			if !cur.Amount.Equal(t.Amount) || cur.Type != t.Type || !cur.OccurredAt.Equal(t.OccurredAt.UTC()) || t.Status != model.Completed {
				return fmt.Errorf("%w: completed transactions are immutable", model.ErrConflict)
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE transactions SET amount = ?, type = ?, category_id = ?,
			description = ?, occurred_at = ?, status = ? WHERE user_id = ? AND id = ?`,
			t.Amount, t.Type, nullable(t.CategoryID), t.Description, ts(t.OccurredAt), t.Status, userID, t.ID)
		return err
	})
	if err != nil {
		return t, fmt.Errorf("updating transaction: %w", err)
	}
	return s.GetTransaction(ctx, userID, t.ID)
}

// GetTransaction returns one transaction.
func (s *Store) GetTransaction(ctx context.Context, userID, id string) (model.Transaction, error) {
	t, err := scanTransaction(s.db.QueryRowContext(ctx,
		"SELECT "+transactionCols+" FROM transactions WHERE user_id = ? AND id = ?", userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return t, model.ErrNotFound
	}
	return t, err
}

// ListTransactions returns the most recent transactions first.
func (s *Store) ListTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+transactionCols+
		" FROM transactions WHERE user_id = ? ORDER BY occurred_at DESC, id LIMIT ?", userID, limit)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func listTransactions(ctx context.Context, q queryer, userID string) ([]model.Transaction, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+transactionCols+
		" FROM transactions WHERE user_id = ? ORDER BY occurred_at, id", userID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	defer func() { _ = rows.Close() }()
	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTransaction removes a transaction.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	return s.deleteByID(ctx, userID, "transactions", id)
}

// ─── Bills ──────────────────────────────────────────────────

const billCols = "id, name, amount_estimated, due_day, category_id, autopay_enabled, last_paid_at, created_at"

func scanBill(r rowScanner) (model.Bill, error) {
	var b model.Bill
	err := r.Scan(&b.ID, &b.Name, &b.AmountEstimated, &b.DueDay, strCol{&b.CategoryID},
		&b.AutopayEnabled, optTimeCol{&b.LastPaidAt}, timeCol{&b.CreatedAt})
	return b, err
}

func validateBill(b model.Bill) error {
	if b.Name == "" {
		return model.Invalid("name", "required")
	}
	if err := requireNonNegative("amount_estimated", b.AmountEstimated); err != nil {
		return err
	}
	if b.DueDay < 1 || b.DueDay > 31 {
		return model.Invalid("due_day", "must be 1-31, got %d", b.DueDay)
	}
	return nil
}

// CreateBill stores a new bill.
func (s *Store) CreateBill(ctx context.Context, userID string, b model.Bill) (model.Bill, error) {
	if err := validateBill(b); err != nil {
		return b, err
	}
	if b.ID == "" {
		b.ID = newID()
	}
	b.CreatedAt = s.stamp()
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		if err := requireCategory(ctx, tx, userID, b.CategoryID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO bills
			(id, user_id, name, amount_estimated, due_day, category_id, autopay_enabled, last_paid_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, userID, b.Name, b.AmountEstimated, b.DueDay, nullable(b.CategoryID), b.AutopayEnabled,
			tsPtr(b.LastPaidAt), ts(b.CreatedAt))
		return err
	})
	if err != nil {
		return b, fmt.Errorf("creating bill: %w", err)
	}
	return b, nil
}

// UpdateBill replaces a bill's editable fields.
func (s *Store) UpdateBill(ctx context.Context, userID string, b model.Bill) (model.Bill, error) {
	if err := validateBill(b); err != nil {
		return b, err
	}
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		if err := requireCategory(ctx, tx, userID, b.CategoryID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE bills SET name = ?, amount_estimated = ?, due_day = ?,
			category_id = ?, autopay_enabled = ?, last_paid_at = ? WHERE user_id = ? AND id = ?`,
			b.Name, b.AmountEstimated, b.DueDay, nullable(b.CategoryID), b.AutopayEnabled,
			tsPtr(b.LastPaidAt), userID, b.ID)
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
	if err != nil {
		return b, fmt.Errorf("updating bill: %w", err)
	}
	return s.GetBill(ctx, userID, b.ID)
}

// GetBill returns one bill.
func (s *Store) GetBill(ctx context.Context, userID, id string) (model.Bill, error) {
	b, err := scanBill(s.db.QueryRowContext(ctx, "SELECT "+billCols+" FROM bills WHERE user_id = ? AND id = ?", userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return b, model.ErrNotFound
	}
	return b, err
}

// ListBills returns the user's bills by due day.
func (s *Store) ListBills(ctx context.Context, userID string) ([]model.Bill, error) {
	return listBills(ctx, s.db, userID)
}

func listBills(ctx context.Context, q queryer, userID string) ([]model.Bill, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+billCols+" FROM bills WHERE user_id = ? ORDER BY due_day, created_at, id", userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteBill removes a bill.
func (s *Store) DeleteBill(ctx context.Context, userID, id string) error {
	return s.deleteByID(ctx, userID, "bills", id)
}

// ─── Subscriptions ──────────────────────────────────────────

const subscriptionCols = "id, name, amount, billing_cycle, next_billing_date, is_active, usage_count, category_id, created_at"

func scanSubscription(r rowScanner) (model.Subscription, error) {
	var sub model.Subscription
	err := r.Scan(&sub.ID, &sub.Name, &sub.Amount, &sub.BillingCycle, &sub.NextBillingDate,
		&sub.IsActive, &sub.UsageCount, strCol{&sub.CategoryID}, timeCol{&sub.CreatedAt})
	return sub, err
}

func validateSubscription(sub model.Subscription) error {
	if sub.Name == "" {
		return model.Invalid("name", "required")
	}
	if err := requireNonNegative("amount", sub.Amount); err != nil {
		return err
	}
	switch sub.BillingCycle {
	case model.Monthly, model.Yearly:
	default:
		return model.Invalid("billing_cycle", "must be monthly or yearly, got %q", sub.BillingCycle)
	}
	if sub.NextBillingDate.IsZero() {
		return model.Invalid("next_billing_date", "required")
	}
	if sub.UsageCount < 0 {
		return model.Invalid("usage_count", "must not be negative")
	}
	return nil
}

// CreateSubscription stores a new subscription.
func (s *Store) CreateSubscription(ctx context.Context, userID string, sub model.Subscription) (model.Subscription, error) {
	if sub.BillingCycle == "" {
		sub.BillingCycle = model.Monthly
	}
	if err := validateSubscription(sub); err != nil {
		return sub, err
	}
	if sub.ID == "" {
		sub.ID = newID()
	}
	sub.CreatedAt = s.stamp()
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		if err := requireCategory(ctx, tx, userID, sub.CategoryID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO subscriptions
			(id, user_id, name, amount, billing_cycle, next_billing_date, is_active, usage_count, category_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sub.ID, userID, sub.Name, sub.Amount, sub.BillingCycle, sub.NextBillingDate, sub.IsActive,
			sub.UsageCount, nullable(sub.CategoryID), ts(sub.CreatedAt))
		return err
	})
	if err != nil {
		return sub, fmt.Errorf("creating subscription: %w", err)
	}
	return sub, nil
}

// UpdateSubscription replaces a subscription's editable fields.
func (s *Store) UpdateSubscription(ctx context.Context, userID string, sub model.Subscription) (model.Subscription, error) {
	if err := validateSubscription(sub); err != nil {
		return sub, err
	}
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		if err := requireCategory(ctx, tx, userID, sub.CategoryID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE subscriptions SET name = ?, amount = ?, billing_cycle = ?,
			next_billing_date = ?, is_active = ?, usage_count = ?, category_id = ? WHERE user_id = ? AND id = ?`,
			sub.Name, sub.Amount, sub.BillingCycle, sub.NextBillingDate, sub.IsActive, sub.UsageCount,
			nullable(sub.CategoryID), userID, sub.ID)
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
	if err != nil {
		return sub, fmt.Errorf("updating subscription: %w", err)
	}
	return s.GetSubscription(ctx, userID, sub.ID)
}

// GetSubscription returns one subscription.
func (s *Store) GetSubscription(ctx context.Context, userID, id string) (model.Subscription, error) {
	sub, err := scanSubscription(s.db.QueryRowContext(ctx,
		"SELECT "+subscriptionCols+" FROM subscriptions WHERE user_id = ? AND id = ?", userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return sub, model.ErrNotFound
	}
	return sub, err
}

// ListSubscriptions returns the user's subscriptions by next billing date.
func (s *Store) ListSubscriptions(ctx context.Context, userID string) ([]model.Subscription, error) {
	return listSubscriptions(ctx, s.db, userID)
}

func listSubscriptions(ctx context.Context, q queryer, userID string) ([]model.Subscription, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+subscriptionCols+
		" FROM subscriptions WHERE user_id = ? ORDER BY next_billing_date, created_at, id", userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// DeleteSubscription removes a subscription.
func (s *Store) DeleteSubscription(ctx context.Context, userID, id string) error {
	return s.deleteByID(ctx, userID, "subscriptions", id)
}

// ─── Budget rules ───────────────────────────────────────────

const ruleCols = "id, category_id, allocation_type, allocation_value, monthly_limit, position, created_at"

func scanRule(r rowScanner) (model.BudgetRule, error) {
	var br model.BudgetRule
	err := r.Scan(&br.ID, &br.CategoryID, &br.AllocationType, &br.AllocationValue,
		optDecCol{&br.MonthlyLimit}, &br.Position, timeCol{&br.CreatedAt})
	return br, err
}

func validateRule(br model.BudgetRule) error {
	if br.CategoryID == "" {
		return model.Invalid("category_id", "required")
	}
	if err := requireNonNegative("allocation_value", br.AllocationValue); err != nil {
		return err
	}
	switch br.AllocationType {
	case model.AllocFixed:
	case model.AllocPercent:
		if br.AllocationValue.GreaterThan(model.Hundred) {
			return model.Invalid("allocation_value", "percent rules must be 0-100, got %s", br.AllocationValue)
		}
	default:
		return model.Invalid("allocation_type", "must be FIXED or PERCENT, got %q", br.AllocationType)
	}
	if br.MonthlyLimit != nil {
		if err := requireNonNegative("monthly_limit", *br.MonthlyLimit); err != nil {
			return err
		}
	}
	return nil
}

// CreateRule stores a budget rule. A category may carry at most one rule.
func (s *Store) CreateRule(ctx context.Context, userID string, br model.BudgetRule) (model.BudgetRule, error) {
	if err := validateRule(br); err != nil {
		return br, err
	}
	if br.ID == "" {
		br.ID = newID()
	}
	br.CreatedAt = s.stamp()
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		if err := requireCategory(ctx, tx, userID, br.CategoryID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO budget_rules
			(id, user_id, category_id, allocation_type, allocation_value, monthly_limit, position, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			br.ID, userID, br.CategoryID, br.AllocationType, br.AllocationValue, decPtr(br.MonthlyLimit),
			br.Position, ts(br.CreatedAt))
		if isUniqueViolation(err) {
			return model.Invalid("category_id", "category %q already has a budget rule", br.CategoryID)
		}
		return err
	})
	if err != nil {
		return br, fmt.Errorf("creating budget rule: %w", err)
	}
	return br, nil
}

// UpdateRule replaces a budget rule's editable fields.
func (s *Store) UpdateRule(ctx context.Context, userID string, br model.BudgetRule) (model.BudgetRule, error) {
	if err := validateRule(br); err != nil {
		return br, err
	}
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		if err := requireCategory(ctx, tx, userID, br.CategoryID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE budget_rules SET category_id = ?, allocation_type = ?,
			allocation_value = ?, monthly_limit = ?, position = ? WHERE user_id = ? AND id = ?`,
			br.CategoryID, br.AllocationType, br.AllocationValue, decPtr(br.MonthlyLimit), br.Position, userID, br.ID)
		if isUniqueViolation(err) {
			return model.Invalid("category_id", "category %q already has a budget rule", br.CategoryID)
		}
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
	if err != nil {
		return br, fmt.Errorf("updating budget rule: %w", err)
	}
	return s.GetRule(ctx, userID, br.ID)
}

// GetRule returns one budget rule.
func (s *Store) GetRule(ctx context.Context, userID, id string) (model.BudgetRule, error) {
	br, err := scanRule(s.db.QueryRowContext(ctx, "SELECT "+ruleCols+" FROM budget_rules WHERE user_id = ? AND id = ?", userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return br, model.ErrNotFound
	}
	return br, err
}

// ListRules returns budget rules in waterfall order.
func (s *Store) ListRules(ctx context.Context, userID string) ([]model.BudgetRule, error) {
	return listRules(ctx, s.db, userID)
}

func listRules(ctx context.Context, q queryer, userID string) ([]model.BudgetRule, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+ruleCols+
		" FROM budget_rules WHERE user_id = ? ORDER BY position, created_at, id", userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.BudgetRule
	for rows.Next() {
		br, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, br)
	}
	return out, rows.Err()
}

// DeleteRule removes a budget rule.
func (s *Store) DeleteRule(ctx context.Context, userID, id string) error {
	return s.deleteByID(ctx, userID, "budget_rules", id)
}

// ─── Income sources ─────────────────────────────────────────

const incomeCols = "id, name, amount, frequency, payday, is_active, created_at"

func scanIncome(r rowScanner) (model.IncomeSource, error) {
	var src model.IncomeSource
	err := r.Scan(&src.ID, &src.Name, &src.Amount, &src.Frequency, &src.Payday, &src.IsActive, timeCol{&src.CreatedAt})
	return src, err
}

func validateIncome(src model.IncomeSource) error {
	if src.Name == "" {
		return model.Invalid("name", "required")
	}
	if err := requireNonNegative("amount", src.Amount); err != nil {
		return err
	}
	switch src.Frequency {
	case model.FreqMonthly, model.FreqBiweekly, model.FreqWeekly, model.FreqYearly:
	default:
		return model.Invalid("frequency", "unknown frequency %q", src.Frequency)
	}
	if src.Payday < 0 || src.Payday > 31 {
		return model.Invalid("payday", "must be 1-31 or empty, got %d", src.Payday)
	}
	return nil
}

// CreateIncomeSource stores a new income source.
func (s *Store) CreateIncomeSource(ctx context.Context, userID string, src model.IncomeSource) (model.IncomeSource, error) {
	if src.Frequency == "" {
		src.Frequency = model.FreqMonthly
	}
	if err := validateIncome(src); err != nil {
		return src, err
	}
	if src.ID == "" {
		src.ID = newID()
	}
	src.CreatedAt = s.stamp()
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO income_sources
			(id, user_id, name, amount, frequency, payday, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			src.ID, userID, src.Name, src.Amount, src.Frequency, src.Payday, src.IsActive, ts(src.CreatedAt))
		return err
	})
	if err != nil {
		return src, fmt.Errorf("creating income source: %w", err)
	}
	return src, nil
}

// UpdateIncomeSource replaces an income source's editable fields.
func (s *Store) UpdateIncomeSource(ctx context.Context, userID string, src model.IncomeSource) (model.IncomeSource, error) {
	if err := validateIncome(src); err != nil {
		return src, err
	}
	err := s.write(ctx, userID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE income_sources SET name = ?, amount = ?, frequency = ?,
			payday = ?, is_active = ? WHERE user_id = ? AND id = ?`,
			src.Name, src.Amount, src.Frequency, src.Payday, src.IsActive, userID, src.ID)
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
	if err != nil {
		return src, fmt.Errorf("updating income source: %w", err)
	}
	return s.GetIncomeSource(ctx, userID, src.ID)
}

// GetIncomeSource returns one income source.
func (s *Store) GetIncomeSource(ctx context.Context, userID, id string) (model.IncomeSource, error) {
	src, err := scanIncome(s.db.QueryRowContext(ctx,
		"SELECT "+incomeCols+" FROM income_sources WHERE user_id = ? AND id = ?", userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return src, model.ErrNotFound
	}
	return src, err
}

// ListIncomeSources returns the user's income sources.
func (s *Store) ListIncomeSources(ctx context.Context, userID string) ([]model.IncomeSource, error) {
	return listIncome(ctx, s.db, userID)
}

func listIncome(ctx context.Context, q queryer, userID string) ([]model.IncomeSource, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+incomeCols+
		" FROM income_sources WHERE user_id = ? ORDER BY created_at, id", userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.IncomeSource
	for rows.Next() {
		src, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// DeleteIncomeSource removes an income source.
func (s *Store) DeleteIncomeSource(ctx context.Context, userID, id string) error {
	return s.deleteByID(ctx, userID, "income_sources", id)
}
