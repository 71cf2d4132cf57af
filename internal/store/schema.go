package store

// Amounts are stored as decimal TEXT so no float rounding ever touches money.
// Calendar days are TEXT YYYY-MM-DD; timestamps are RFC3339Nano TEXT.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS ledger_versions (
    user_id              TEXT PRIMARY KEY,
    version              INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    name                 TEXT NOT NULL,
    kind                 TEXT NOT NULL DEFAULT 'expense',
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    amount               TEXT NOT NULL,
    type                 TEXT NOT NULL,
    category_id          TEXT,
    description          TEXT NOT NULL DEFAULT '',
    occurred_at          TEXT NOT NULL,
    status               TEXT NOT NULL,
    bill_id              TEXT,
    subscription_id      TEXT,
    goal_id              TEXT,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bills (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    name                 TEXT NOT NULL,
    amount_estimated     TEXT NOT NULL,
    due_day              INTEGER NOT NULL,
    category_id          TEXT,
    autopay_enabled      INTEGER NOT NULL DEFAULT 0,
    last_paid_at         TEXT,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    name                 TEXT NOT NULL,
    amount               TEXT NOT NULL,
    billing_cycle        TEXT NOT NULL,
    next_billing_date    TEXT NOT NULL,
    is_active            INTEGER NOT NULL DEFAULT 1,
    usage_count          INTEGER NOT NULL DEFAULT 0,
    category_id          TEXT,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS goals (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    name                 TEXT NOT NULL,
    target_amount        TEXT NOT NULL,
    current_amount       TEXT NOT NULL,
    monthly_contribution TEXT,
    target_date          TEXT,
    priority             INTEGER NOT NULL,
    is_completed         INTEGER NOT NULL DEFAULT 0,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS goal_logs (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    goal_id              TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
    amount               TEXT NOT NULL,
    note                 TEXT NOT NULL DEFAULT '',
    transaction_id       TEXT,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS budget_rules (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    category_id          TEXT NOT NULL,
    allocation_type      TEXT NOT NULL,
    allocation_value     TEXT NOT NULL,
    monthly_limit        TEXT,
    position             INTEGER NOT NULL DEFAULT 0,
    created_at           TEXT NOT NULL,
    UNIQUE (user_id, category_id)
);

CREATE TABLE IF NOT EXISTS income_sources (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    name                 TEXT NOT NULL,
    amount               TEXT NOT NULL,
    frequency            TEXT NOT NULL,
    payday               INTEGER NOT NULL DEFAULT 0,
    is_active            INTEGER NOT NULL DEFAULT 1,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS payment_orders (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    source_type          TEXT NOT NULL,
    source_id            TEXT NOT NULL,
    name                 TEXT NOT NULL,
    amount               TEXT NOT NULL,
    due_on               TEXT NOT NULL,
    status               TEXT NOT NULL,
    provider             TEXT NOT NULL,
    provider_reference   TEXT,
    provider_action_url  TEXT,
    failure_reason       TEXT,
    cancelled_reason     TEXT,
    attempts             INTEGER NOT NULL DEFAULT 0,
    approved_at          TEXT,
    executed_at          TEXT,
    executing_since      TEXT,
    created_at           TEXT NOT NULL,
    updated_at           TEXT NOT NULL,
    UNIQUE (user_id, source_type, source_id, due_on)
);

CREATE TABLE IF NOT EXISTS notifications (
    id                   TEXT PRIMARY KEY,
    user_id              TEXT NOT NULL,
    kind                 TEXT NOT NULL,
    title                TEXT NOT NULL,
    message              TEXT NOT NULL,
    payment_order_id     TEXT,
    is_read              INTEGER NOT NULL DEFAULT 0,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS summary_cache (
    user_id              TEXT NOT NULL,
    kind                 TEXT NOT NULL,
    cache_key            TEXT NOT NULL,
    ledger_version       INTEGER NOT NULL,
    payload              BLOB NOT NULL,
    computed_at          TEXT NOT NULL,
    PRIMARY KEY (user_id, kind, cache_key)
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_goal_logs_goal ON goal_logs(goal_id, created_at);
CREATE INDEX IF NOT EXISTS idx_payment_orders_user_status ON payment_orders(user_id, status, due_on);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);
`

// addedColumns are columns introduced after a table first shipped. CREATE
// TABLE IF NOT EXISTS leaves older databases without them.
var addedColumns = []struct{ table, column, decl string }{
	{"payment_orders", "executing_since", "TEXT"},
}
