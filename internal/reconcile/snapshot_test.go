package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/Dan9191/loan-ledger/internal/ledger"
	"github.com/Dan9191/loan-ledger/internal/models"
)

func TestMergeSnapshot(t *testing.T) {
	at := time.UnixMilli(10_000_000)
	local := ledger.State{
		Users:      []models.User{{ID: "1", Balance: 1_000_000, UpdatedAt: 500}},
		Loans:      []models.LoanRecord{{ID: "L1", Status: models.LoanApproved, UpdatedAt: 900}},
		Budget:     29_000_000,
		RankProfit: 10,
	}
	remote := models.Snapshot{
		Users:      []models.User{{ID: "1", Balance: 2_000_000, UpdatedAt: 600}},
		Loans:      []models.LoanRecord{{ID: "L1", Status: models.LoanPendingApproval, UpdatedAt: 800}},
		Budget:     30_000_000,
		RankProfit: 20,
	}

	res := MergeSnapshot(local, remote, Dirty{Budget: true}, at, 5*time.Second)
	if !res.Changes.Users || res.State.Users[0].Balance != 2_000_000 {
		t.Errorf("users = %+v", res.State.Users)
	}
	if res.Changes.Loans || res.State.Loans[0].Status != models.LoanApproved {
		t.Errorf("loans = %+v, changes %+v", res.State.Loans, res.Changes)
	}
	if res.Changes.Budget || res.State.Budget != 29_000_000 {
		t.Errorf("dirty budget overwritten: %d", res.State.Budget)
	}
	if !res.Changes.RankProfit || res.State.RankProfit != 20 {
		t.Errorf("rankProfit = %d", res.State.RankProfit)
	}
	if local.Users[0].Balance != 1_000_000 {
		t.Error("merge mutated the local state")
	}

	again := MergeSnapshot(res.State, remote, Dirty{Budget: true}, at, 5*time.Second)
	if again.Changes.Any() {
		t.Errorf("second merge changes = %+v", again.Changes)
	}
}

func notifications(from, to int64) []models.Notification {
	var out []models.Notification
	for v := to; v >= from; v-- {
		out = append(out, models.Notification{ID: fmt.Sprintf("N-%03d", v), UserID: "1", UpdatedAt: v})
	}
	return out
}

func TestMergeSnapshotKeepsNotificationRing(t *testing.T) {
	at := time.UnixMilli(10_000_000)
	local := ledger.State{Notifications: notifications(11, 60)}

	// the store still holds the ten the ring dropped
	res := MergeSnapshot(local, models.Snapshot{Notifications: notifications(1, 60)}, Dirty{}, at, 5*time.Second)
	if len(res.State.Notifications) != ledger.MaxNotifications {
		t.Fatalf("len = %d, want %d", len(res.State.Notifications), ledger.MaxNotifications)
	}
	if res.Changes.Notifications {
		t.Error("re-trimming the same ring reported a change")
	}

	remote := append([]models.Notification{{ID: "N-061", UserID: "2", UpdatedAt: 61}}, notifications(1, 60)...)
	res = MergeSnapshot(local, models.Snapshot{Notifications: remote}, Dirty{}, at, 5*time.Second)
	got := res.State.Notifications
	if !res.Changes.Notifications || len(got) != ledger.MaxNotifications {
		t.Fatalf("len = %d, changes %+v", len(got), res.Changes)
	}
	if got[0].ID != "N-061" || got[len(got)-1].ID != "N-012" {
		t.Errorf("ring = %s .. %s, want N-061 .. N-012", got[0].ID, got[len(got)-1].ID)
	}
}

func TestFresher(t *testing.T) {
	session := models.User{ID: "1", Balance: 1, UpdatedAt: 100}
	tests := []struct {
		name   string
		polled models.User
		want   bool
	}{
		{"newer", models.User{ID: "1", Balance: 2, UpdatedAt: 200}, true},
		{"same stamp differs", models.User{ID: "1", Balance: 2, UpdatedAt: 100}, true},
		{"identical", session, false},
		{"older", models.User{ID: "1", Balance: 2, UpdatedAt: 50}, false},
		{"other user", models.User{ID: "2", UpdatedAt: 200}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fresher(session, tt.polled); got != tt.want {
				t.Errorf("Fresher() = %v, want %v", got, tt.want)
			}
		})
	}
}
