package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/lib/pq"
)

const schema = `
CREATE SCHEMA IF NOT EXISTS ledger;
CREATE TABLE IF NOT EXISTS ledger.users (
	id         TEXT PRIMARY KEY,
	doc        JSONB NOT NULL,
	updated_at BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS ledger.loans (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	status     TEXT NOT NULL,
	doc        JSONB NOT NULL,
	updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS loans_user_id_idx ON ledger.loans (user_id);
CREATE TABLE IF NOT EXISTS ledger.notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	doc        JSONB NOT NULL,
	updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS notifications_user_id_idx ON ledger.notifications (user_id);
CREATE TABLE IF NOT EXISTS ledger.config (
	key   TEXT PRIMARY KEY,
	value BIGINT NOT NULL
);`

// Postgres keeps every entity as a JSONB document keyed by id
type Postgres struct {
	db            *sql.DB
	defaultBudget int64
}

// NewPostgres initializes a repository over db
func NewPostgres(db *sql.DB, defaultBudget int64) *Postgres {
	return &Postgres{db: db, defaultBudget: defaultBudget}
}

// Migrate creates the ledger schema if it does not exist
func (r *Postgres) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (r *Postgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Snapshot reads the whole store
func (r *Postgres) Snapshot(ctx context.Context) (models.Snapshot, error) {
	var snap models.Snapshot
	var err error
	if snap.Users, err = selectDocs[models.User](ctx, r.db, `SELECT doc FROM ledger.users ORDER BY id`); err != nil {
		return snap, fmt.Errorf("failed to load users: %w", err)
	}
	if snap.Loans, err = selectDocs[models.LoanRecord](ctx, r.db, `SELECT doc FROM ledger.loans ORDER BY updated_at DESC, id`); err != nil {
		return snap, fmt.Errorf("failed to load loans: %w", err)
	}
	if snap.Notifications, err = selectDocs[models.Notification](ctx, r.db, `SELECT doc FROM ledger.notifications ORDER BY updated_at DESC, id`); err != nil {
		return snap, fmt.Errorf("failed to load notifications: %w", err)
	}
	if snap.Budget, err = r.configValue(ctx, models.ConfigBudget, r.defaultBudget); err != nil {
		return snap, err
	}
	if snap.RankProfit, err = r.configValue(ctx, models.ConfigRankProfit, 0); err != nil {
		return snap, err
	}
	return snap, nil
}

func selectDocs[T any](ctx context.Context, db *sql.DB, query string) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *Postgres) configValue(ctx context.Context, key models.ConfigKey, fallback int64) (int64, error) {
	var value int64
	err := r.db.QueryRowContext(ctx, `SELECT value FROM ledger.config WHERE key = $1`, string(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load config %s: %w", key, err)
	}
	return value, nil
}

// upsert writes docs in one transaction. A row already holding a newer version is left alone.
func (r *Postgres) upsert(ctx context.Context, query string, n int, args func(i int) ([]any, error)) error {
	if n == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range n {
		a, err := args(i)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, a...); err != nil {
			return fmt.Errorf("failed to upsert %v: %w", a[0], err)
		}
	}
	return tx.Commit()
}

func (r *Postgres) SaveUsers(ctx context.Context, users []models.User) error {
	query := `
		INSERT INTO ledger.users (id, doc, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
		WHERE ledger.users.updated_at <= EXCLUDED.updated_at`
	return r.upsert(ctx, query, len(users), func(i int) ([]any, error) {
		doc, err := json.Marshal(users[i])
		if err != nil {
			return nil, fmt.Errorf("failed to encode user %s: %w", users[i].ID, err)
		}
		return []any{users[i].ID, doc, users[i].UpdatedAt}, nil
	})
}

func (r *Postgres) SaveLoans(ctx context.Context, loans []models.LoanRecord) error {
	query := `
		INSERT INTO ledger.loans (id, user_id, status, doc, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET user_id = EXCLUDED.user_id, status = EXCLUDED.status,
			doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
		WHERE ledger.loans.updated_at <= EXCLUDED.updated_at`
	return r.upsert(ctx, query, len(loans), func(i int) ([]any, error) {
		l := loans[i]
		doc, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("failed to encode loan %s: %w", l.ID, err)
		}
		return []any{l.ID, l.UserID, string(l.Status), doc, l.UpdatedAt}, nil
	})
}

func (r *Postgres) SaveNotifications(ctx context.Context, notifications []models.Notification) error {
	query := `
		INSERT INTO ledger.notifications (id, user_id, doc, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
		WHERE ledger.notifications.updated_at <= EXCLUDED.updated_at`
	return r.upsert(ctx, query, len(notifications), func(i int) ([]any, error) {
		n := notifications[i]
		doc, err := json.Marshal(n)
		if err != nil {
			return nil, fmt.Errorf("failed to encode notification %s: %w", n.ID, err)
		}
		return []any{n.ID, n.UserID, doc, n.UpdatedAt}, nil
	})
}

func (r *Postgres) SaveConfig(ctx context.Context, key models.ConfigKey, value int64) error {
	query := `
		INSERT INTO ledger.config (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := r.db.ExecContext(ctx, query, string(key), value); err != nil {
		return fmt.Errorf("failed to save config %s: %w", key, err)
	}
	return nil
}

func (r *Postgres) DeleteUser(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM ledger.users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger.loans WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete loans of user: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger.notifications WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete notifications of user: %w", err)
	}
	return tx.Commit()
}

// Cleanup removes expired terminal loans and the notifications beyond the per-user quota
func (r *Postgres) Cleanup(ctx context.Context, policy Retention) (CleanupResult, error) {
	var res CleanupResult

	terminal, err := selectDocs[models.LoanRecord](ctx, r.db,
		`SELECT doc FROM ledger.loans WHERE status IN ('REJECTED', 'SETTLED')`)
	if err != nil {
		return res, fmt.Errorf("failed to load terminal loans: %w", err)
	}
	var expired []string
	for _, l := range terminal {
		if policy.LoanExpired(l) {
			expired = append(expired, l.ID)
		}
	}
	if len(expired) > 0 {
		out, err := r.db.ExecContext(ctx, `DELETE FROM ledger.loans WHERE id = ANY($1)`, pq.Array(expired))
		if err != nil {
			return res, fmt.Errorf("failed to delete expired loans: %w", err)
		}
		n, _ := out.RowsAffected()
		res.Loans = int(n)
	}

	out, err := r.db.ExecContext(ctx, `
		DELETE FROM ledger.notifications WHERE id IN (
			SELECT id FROM (
				SELECT id, row_number() OVER (PARTITION BY user_id ORDER BY updated_at DESC, id DESC) AS rn
				FROM ledger.notifications
			) ranked WHERE rn > $1
		)`, policy.NotificationsPer)
	if err != nil {
		return res, fmt.Errorf("failed to trim notifications: %w", err)
	}
	n, _ := out.RowsAffected()
	res.Notifications = int(n)
	return res, nil
}
