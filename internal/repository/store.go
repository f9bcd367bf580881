package repository

import (
	"context"
	"errors"

	"github.com/Dan9191/loan-ledger/internal/models"
)

// ErrNotFound is returned when a keyed document does not exist
var ErrNotFound = errors.New("document not found")

// Store is the document store the ledger agent reads and writes.
// Every Save upserts by id and never lets an older version overwrite a newer one.
type Store interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
	SaveUsers(ctx context.Context, users []models.User) error
	SaveLoans(ctx context.Context, loans []models.LoanRecord) error
	SaveNotifications(ctx context.Context, notifications []models.Notification) error
	SaveConfig(ctx context.Context, key models.ConfigKey, value int64) error
	// DeleteUser removes the user with every loan and notification it owns
	DeleteUser(ctx context.Context, id string) error
}

// Backend is a Store owned by the storage server, which also runs retention
type Backend interface {
	Store
	Cleanup(ctx context.Context, policy Retention) (CleanupResult, error)
	Ping(ctx context.Context) error
}
