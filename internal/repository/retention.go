package repository

import (
	"cmp"
	"encoding/json"
	"slices"
	"time"

	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/Dan9191/loan-ledger/internal/utils"
)

// Retention is the garbage-collection policy of the store
type Retention struct {
	Now              time.Time
	RejectedTTL      time.Duration
	SettledTTL       time.Duration
	NotificationsPer int // kept per user
}

// DefaultRetention drops rejected loans after 3 days, settled ones after 7 days
// and keeps the 7 newest notifications of every user
func DefaultRetention(now time.Time) Retention {
	return Retention{
		Now:              now,
		RejectedTTL:      72 * time.Hour,
		SettledTTL:       7 * 24 * time.Hour,
		NotificationsPer: 7,
	}
}

// CleanupResult counts what one cleanup removed
type CleanupResult struct {
	Loans         int `json:"loans"`
	Notifications int `json:"notifications"`
}

// loanTime is the last write of a loan, falling back to its creation stamp for old rows
func loanTime(l models.LoanRecord, loc *time.Location) (time.Time, bool) {
	if l.UpdatedAt > 0 {
		return time.UnixMilli(l.UpdatedAt), true
	}
	if t, err := utils.ParseStamp(l.CreatedAt, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// LoanExpired reports whether a terminal loan has outlived its TTL. Open loans never expire.
func (p Retention) LoanExpired(l models.LoanRecord) bool {
	var ttl time.Duration
	switch l.Status {
	case models.LoanRejected:
		ttl = p.RejectedTTL
	case models.LoanSettled:
		ttl = p.SettledTTL
	default:
		return false
	}
	t, ok := loanTime(l, p.Now.Location())
	return ok && t.Before(p.Now.Add(-ttl))
}

// ExcessNotifications returns the ids beyond the newest NotificationsPer of each user
func (p Retention) ExcessNotifications(notifications []models.Notification) []string {
	byUser := make(map[string][]models.Notification)
	for _, n := range notifications {
		byUser[n.UserID] = append(byUser[n.UserID], n)
	}
	var ids []string
	for _, list := range byUser {
		if len(list) <= p.NotificationsPer {
			continue
		}
		slices.SortFunc(list, func(a, b models.Notification) int {
			if c := cmp.Compare(b.UpdatedAt, a.UpdatedAt); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		})
		for _, n := range list[p.NotificationsPer:] {
			ids = append(ids, n.ID)
		}
	}
	slices.Sort(ids)
	return ids
}

// UsageMB returns the size of the JSON encoding of snap in megabytes
func UsageMB(snap models.Snapshot) (float64, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return 0, err
	}
	return float64(len(raw)) / (1024 * 1024), nil
}
