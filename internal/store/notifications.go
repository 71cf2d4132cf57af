package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/theirongolddev/paycheck/internal/model"
)

func (s *Store) insertNotification(ctx context.Context, tx *sql.Tx, userID string, n model.Notification) error {
	if n.ID == "" {
		n.ID = newID()
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO notifications
		(id, user_id, kind, title, message, payment_order_id, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		n.ID, userID, n.Kind, n.Title, n.Message, nullable(n.PaymentOrderID), ts(s.stamp()))
	return err
}

// AddNotification stores a notification outside any other write.
func (s *Store) AddNotification(ctx context.Context, userID string, n model.Notification) error {
	return s.write(ctx, userID, func(tx *sql.Tx) error {
		return s.insertNotification(ctx, tx, userID, n)
	})
}

// ListNotifications returns the newest notifications first.
func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT id, kind, title, message, payment_order_id, is_read, created_at FROM notifications WHERE user_id = ?"
	if unreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.Kind, &n.Title, &n.Message, strCol{&n.PaymentOrderID},
			&n.Read, timeCol{&n.CreatedAt}); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags one notification as read.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return checkAffected(res)
}
