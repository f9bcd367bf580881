package ledger

import (
	"cmp"
	"slices"

	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/Dan9191/loan-ledger/internal/utils"
)

// MaxNotifications bounds the notification ring across the whole system
const MaxNotifications = 50

// notify prepends a notification and drops the oldest beyond MaxNotifications
func notify(s *State, env Env, userID, title, message string, kind models.NotificationType) {
	n := models.Notification{
		ID:        env.newID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Time:      env.Now.Format(utils.ClockLayout),
		Type:      kind,
		UpdatedAt: utils.Millis(env.Now),
	}
	s.Notifications = append([]models.Notification{n}, s.Notifications...)
	if len(s.Notifications) > MaxNotifications {
		s.Notifications = s.Notifications[:MaxNotifications]
	}
}

// TrimNotifications orders notifications newest first and keeps the MaxNotifications newest.
// Merged snapshots need it because the store keeps what the ring dropped.
func TrimNotifications(ns []models.Notification) []models.Notification {
	out := slices.Clone(ns)
	slices.SortStableFunc(out, func(a, b models.Notification) int {
		if c := cmp.Compare(b.UpdatedAt, a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(out) > MaxNotifications {
		out = out[:MaxNotifications]
	}
	return out
}

// MarkNotificationRead flags a notification of UserID as read
type MarkNotificationRead struct {
	UserID string
	ID     string
}

func (a MarkNotificationRead) apply(s *State, env Env) (Changes, error) {
	for i := range s.Notifications {
		n := &s.Notifications[i]
		if n.ID != a.ID || (a.UserID != "" && n.UserID != a.UserID) {
			continue
		}
		if n.Read {
			return Changes{}, nil
		}
		n.Read = true
		n.UpdatedAt = utils.Millis(env.Now)
		return Changes{Notifications: true}, nil
	}
	return Changes{}, ErrNotificationNotFound
}
