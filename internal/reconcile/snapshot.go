package reconcile

import (
	"reflect"
	"time"

	"github.com/Dan9191/loan-ledger/internal/ledger"
	"github.com/Dan9191/loan-ledger/internal/models"
)

// Dirty marks scalars written locally but not yet acknowledged by the store.
// Scalars carry no timestamp, so a pending local write is the only reason to
// keep the local value over the polled one.
type Dirty struct {
	Budget     bool
	RankProfit bool
}

// Result is the outcome of merging one poll response
type Result struct {
	State   ledger.State
	Changes ledger.Changes
}

// MergeSnapshot merges a polled snapshot into the local ledger
func MergeSnapshot(local ledger.State, remote models.Snapshot, dirty Dirty, now time.Time, grace time.Duration) Result {
	next := local
	var changes ledger.Changes

	next.Users, changes.Users = Merge(local.Users, remote.Users, now, grace)
	next.Loans, changes.Loans = Merge(local.Loans, remote.Loans, now, grace)
	if merged, changed := Merge(local.Notifications, remote.Notifications, now, grace); changed {
		next.Notifications = ledger.TrimNotifications(merged)
		changes.Notifications = !reflect.DeepEqual(next.Notifications, local.Notifications)
	}

	if !dirty.Budget && remote.Budget != local.Budget {
		next.Budget = remote.Budget
		changes.Budget = true
	}
	if !dirty.RankProfit && remote.RankProfit != local.RankProfit {
		next.RankProfit = remote.RankProfit
		changes.RankProfit = true
	}
	return Result{State: next, Changes: changes}
}

// Fresher reports whether the polled copy of the session user should replace
// the cached one
func Fresher(session, polled models.User) bool {
	return polled.ID == session.ID && polled.UpdatedAt >= session.UpdatedAt && !reflect.DeepEqual(polled, session)
}
