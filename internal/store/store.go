// Package store provides the SQLite-backed ledger: entity CRUD, consistent
// per-user snapshot reads, payment order state, and a summary cache.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theirongolddev/paycheck/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // register sqlite driver
)

// Store is the ledger database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating ledger dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := addMissingColumns(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func addMissingColumns(db *sql.DB) error {
	for _, c := range addedColumns {
		var n int
		err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", c.table, c.column).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if _, err := db.Exec("ALTER TABLE " + c.table + " ADD COLUMN " + c.column + " " + c.decl); err != nil {
			return fmt.Errorf("adding %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}

// Close closes the ledger database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock overrides the store's notion of "now" for created_at stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

// write runs fn in a transaction and bumps the user's ledger version so
// cached summaries are invalidated atomically with the change.
func (s *Store) write(ctx context.Context, userID string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := bumpVersion(ctx, tx, userID); err != nil {
		return fmt.Errorf("bumping ledger version: %w", err)
	}
	return tx.Commit()
}

func bumpVersion(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO ledger_versions (user_id, version) VALUES (?, 1)
		ON CONFLICT(user_id) DO UPDATE SET version = version + 1`, userID)
	return err
}

// LedgerVersion returns the user's current ledger version (0 if never written).
func (s *Store) LedgerVersion(ctx context.Context, userID string) (int64, error) {
	return ledgerVersion(ctx, s.db, userID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func ledgerVersion(ctx context.Context, q queryer, userID string) (int64, error) {
	var v int64
	err := q.QueryRowContext(ctx, "SELECT version FROM ledger_versions WHERE user_id = ?", userID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

// Users returns every user id that has written to the ledger.
func (s *Store) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id FROM ledger_versions ORDER BY user_id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func newID() string {
	return uuid.NewString()
}

// tsLayout is fixed-width so TEXT timestamps sort chronologically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func tsPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ts(*t)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func decPtr(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// timeCol scans an RFC3339 TEXT column into a time.Time.
type timeCol struct{ dst *time.Time }

func (c timeCol) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c.dst = time.Time{}
		return nil
	case time.Time:
		*c.dst = v.UTC()
		return nil
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	}
	return fmt.Errorf("cannot scan %T into time", src)
}

func (c timeCol) parse(s string) error {
	if s == "" {
		*c.dst = time.Time{}
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*c.dst = t.UTC()
	return nil
}

// optTimeCol scans a nullable RFC3339 TEXT column into a *time.Time.
type optTimeCol struct{ dst **time.Time }

func (c optTimeCol) Scan(src any) error {
	var t time.Time
	if err := (timeCol{&t}).Scan(src); err != nil {
		return err
	}
	if t.IsZero() {
		*c.dst = nil
		return nil
	}
	*c.dst = &t
	return nil
}

// optDecCol scans a nullable decimal column into a *decimal.Decimal.
type optDecCol struct{ dst **decimal.Decimal }

func (c optDecCol) Scan(src any) error {
	var nd decimal.NullDecimal
	if err := nd.Scan(src); err != nil {
		return err
	}
	if !nd.Valid {
		*c.dst = nil
		return nil
	}
	d := nd.Decimal
	*c.dst = &d
	return nil
}

// strCol scans a nullable TEXT column into a string.
type strCol struct{ dst *string }

func (c strCol) Scan(src any) error {
	var ns sql.NullString
	if err := ns.Scan(src); err != nil {
		return err
	}
	*c.dst = ns.String
	return nil
}

// optDateCol scans a nullable date column into a *model.Date.
type optDateCol struct{ dst **model.Date }

func (c optDateCol) Scan(src any) error {
	var d model.Date
	if err := d.Scan(src); err != nil {
		return err
	}
	if d.IsZero() {
		*c.dst = nil
		return nil
	}
	*c.dst = &d
	return nil
}

func optDate(d *model.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func requireNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return model.Invalid(field, "must not be negative, got %s", d)
	}
	return nil
}

func requirePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return model.Invalid(field, "must be positive, got %s", d)
	}
	return nil
}

// requireCategory rejects category ids the user does not own. Empty ids pass.
func requireCategory(ctx context.Context, q queryer, userID, categoryID string) error {
	if categoryID == "" {
		return nil
	}
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories WHERE user_id = ? AND id = ?", userID, categoryID).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return model.Invalid("category_id", "unknown category %q", categoryID)
	}
	return nil
}
