package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Dan9191/loan-ledger/internal/models"
)

func TestNotificationRing(t *testing.T) {
	s := newState()
	env := testEnv(applyDay)
	for i := range MaxNotifications + 5 {
		notify(&s, env, "1234", "title", fmt.Sprintf("message %d", i), models.NotificationSystem)
	}
	if len(s.Notifications) != MaxNotifications {
		t.Fatalf("len = %d, want %d", len(s.Notifications), MaxNotifications)
	}
	if got := s.Notifications[0].Message; got != fmt.Sprintf("message %d", MaxNotifications+4) {
		t.Errorf("newest = %q", got)
	}
	if got := s.Notifications[MaxNotifications-1].Message; got != "message 5" {
		t.Errorf("oldest kept = %q, want message 5", got)
	}
	if s.Notifications[0].Time != "10:00 15/03/2026" {
		t.Errorf("time = %q", s.Notifications[0].Time)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	s := newState()
	env := testEnv(applyDay)
	notify(&s, env, "1234", "title", "message", models.NotificationLoan)
	id := s.Notifications[0].ID

	if _, _, err := Apply(s, MarkNotificationRead{UserID: "5555", ID: id}, env); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("foreign mark error = %v", err)
	}
	s, changes := mustApply(t, s, MarkNotificationRead{UserID: "1234", ID: id}, env)
	if !s.Notifications[0].Read || !changes.Notifications {
		t.Error("notification not marked read")
	}
	if _, changes = mustApply(t, s, MarkNotificationRead{UserID: "1234", ID: id}, env); changes.Any() {
		t.Error("marking twice reported a change")
	}
}

func TestTrimNotifications(t *testing.T) {
	var ns []models.Notification
	for i := range MaxNotifications + 10 {
		ns = append(ns, models.Notification{ID: fmt.Sprintf("N-%03d", i), UpdatedAt: int64(i / 2)})
	}
	got := TrimNotifications(ns)
	if len(got) != MaxNotifications {
		t.Fatalf("len = %d, want %d", len(got), MaxNotifications)
	}
	if got[0].ID != "N-059" || got[1].ID != "N-058" {
		t.Errorf("newest = %s, %s, want N-059, N-058", got[0].ID, got[1].ID)
	}
	if got[len(got)-1].ID != "N-010" {
		t.Errorf("oldest kept = %s, want N-010", got[len(got)-1].ID)
	}
	if ns[0].ID != "N-000" {
		t.Error("TrimNotifications reordered its input")
	}
}
