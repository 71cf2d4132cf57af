package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CachedSummary returns a cached payload for (kind, key) if it was computed
// at the user's current ledger version and is younger than ttl.
func (s *Store) CachedSummary(ctx context.Context, userID, kind, key string, ttl time.Duration) ([]byte, bool, error) {
	var (
		version  int64
		payload  []byte
		computed time.Time
	)
	err := s.db.QueryRowContext(ctx, `SELECT c.ledger_version, c.payload, c.computed_at
		FROM summary_cache c
		WHERE c.user_id = ? AND c.kind = ? AND c.cache_key = ?`, userID, kind, key).
		Scan(&version, &payload, timeCol{&computed})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading summary cache: %w", err)
	}

	current, err := s.LedgerVersion(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("reading ledger version: %w", err)
	}
	if version != current || s.stamp().Sub(computed) >= ttl {
		return nil, false, nil
	}
	return payload, true, nil
}

// PutSummary stores a computed payload tagged with the ledger version it
// was derived from.
func (s *Store) PutSummary(ctx context.Context, userID, kind, key string, version int64, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO summary_cache (user_id, kind, cache_key, ledger_version, payload, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, kind, cache_key) DO UPDATE SET
			ledger_version = excluded.ledger_version,
			payload = excluded.payload,
			computed_at = excluded.computed_at`,
		userID, kind, key, version, payload, ts(s.stamp()))
	if err != nil {
		return fmt.Errorf("writing summary cache: %w", err)
	}
	return nil
}

// PruneSummaries drops cache rows older than maxAge.
func (s *Store) PruneSummaries(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := ts(s.stamp().Add(-maxAge))
	res, err := s.db.ExecContext(ctx, "DELETE FROM summary_cache WHERE computed_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning summary cache: %w", err)
	}
	return res.RowsAffected()
}
