// Package cache persists the active session on the local disk so the agent can resume it after a restart.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Session is the cached login
type Session struct {
	User  models.User
	Token string
}

type sessionRow struct {
	ID    int    `db:"id"`
	Doc   string `db:"doc"`
	Token string `db:"token"`
}

// SessionCache is a single-row sqlite table holding the active session
type SessionCache struct {
	db *sqlx.DB
}

// Open connects to the sqlite file at path and creates the table
func Open(path string) (*SessionCache, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS session (
			id    INTEGER PRIMARY KEY CHECK (id = 1),
			doc   TEXT NOT NULL,
			token TEXT NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init session cache: %w", err)
	}
	return &SessionCache{db: db}, nil
}

// Save replaces the cached session
func (c *SessionCache) Save(s Session) error {
	doc, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("failed to encode session user: %w", err)
	}
	_, err = c.db.NamedExec(`
		INSERT INTO session (id, doc, token) VALUES (:id, :doc, :token)
		ON CONFLICT (id) DO UPDATE SET doc = excluded.doc, token = excluded.token`,
		sessionRow{ID: 1, Doc: string(doc), Token: s.Token})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the cached session; ok is false when there is none
func (c *SessionCache) Load() (s Session, ok bool, err error) {
	var row sessionRow
	err = c.db.Get(&row, `SELECT id, doc, token FROM session WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("failed to load session: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Doc), &s.User); err != nil {
		return Session{}, false, fmt.Errorf("failed to decode session user: %w", err)
	}
	s.Token = row.Token
	return s, true, nil
}

// Clear forgets the cached session
func (c *SessionCache) Clear() error {
	if _, err := c.db.Exec(`DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (c *SessionCache) Close() error {
	return c.db.Close()
}
