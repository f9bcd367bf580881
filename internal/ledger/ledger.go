// Package ledger holds the lending ledger aggregate and the pure transitions over it:
// the loan state machine, fine accrual, rank demotion and upgrades, the budget and
// fee scalars, and the notification ring.
package ledger

import (
	"time"

	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/google/uuid"
)

// State is the full local ledger
type State struct {
	Users         []models.User
	Loans         []models.LoanRecord
	Notifications []models.Notification
	Budget        int64 // lending capital available for disbursement
	RankProfit    int64 // accumulated rank-upgrade fees
}

// Clone returns a deep copy of the collections
func (s State) Clone() State {
	out := s
	out.Users = cloneSlice(s.Users)
	out.Loans = cloneSlice(s.Loans)
	out.Notifications = cloneSlice(s.Notifications)
	for i := range out.Users {
		if r := out.Users[i].PendingUpgradeRank; r != nil {
			target := *r
			out.Users[i].PendingUpgradeRank = &target
		}
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func (s *State) userIndex(id string) int {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) loanIndex(id string) int {
	for i := range s.Loans {
		if s.Loans[i].ID == id {
			return i
		}
	}
	return -1
}

// User returns the user with id
func (s State) User(id string) (models.User, bool) {
	if i := s.userIndex(id); i >= 0 {
		return s.Users[i], true
	}
	return models.User{}, false
}

// UserByPhone returns the user registered with phone
func (s State) UserByPhone(phone string) (models.User, bool) {
	for _, u := range s.Users {
		if u.Phone == phone {
			return u, true
		}
	}
	return models.User{}, false
}

// Loan returns the loan with contract number id
func (s State) Loan(id string) (models.LoanRecord, bool) {
	if i := s.loanIndex(id); i >= 0 {
		return s.Loans[i], true
	}
	return models.LoanRecord{}, false
}

// UserLoans returns the loans owned by userID
func (s State) UserLoans(userID string) []models.LoanRecord {
	var out []models.LoanRecord
	for _, l := range s.Loans {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out
}

// UserNotifications returns the notifications addressed to userID, newest first
func (s State) UserNotifications(userID string) []models.Notification {
	var out []models.Notification
	for _, n := range s.Notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// PendingWork counts the items waiting for a staff decision
func (s State) PendingWork() int {
	count := 0
	for _, l := range s.Loans {
		if l.Status == models.LoanPendingApproval || l.Status == models.LoanPendingSettlement {
			count++
		}
	}
	for _, u := range s.Users {
		if u.PendingUpgradeRank != nil {
			count++
		}
	}
	return count
}

// Changes records which parts of the state a transition touched
type Changes struct {
	Users         bool
	Loans         bool
	Notifications bool
	Budget        bool
	RankProfit    bool
	// Immediate marks a cross-entity financial effect that must not wait for the debounce
	Immediate bool
}

// Any reports whether anything changed
func (c Changes) Any() bool {
	return c.Users || c.Loans || c.Notifications || c.Budget || c.RankProfit
}

// Add folds o into c
func (c *Changes) Add(o Changes) {
	c.Users = c.Users || o.Users
	c.Loans = c.Loans || o.Loans
	c.Notifications = c.Notifications || o.Notifications
	c.Budget = c.Budget || o.Budget
	c.RankProfit = c.RankProfit || o.RankProfit
	c.Immediate = c.Immediate || o.Immediate
}

// Env carries the inputs a transition needs from outside the state
type Env struct {
	Now   time.Time
	NewID func() string // notification ids; uuid when nil
}

func (e Env) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return "NOTIF-" + uuid.NewString()
}

// Action is a borrower or staff command
type Action interface {
	apply(s *State, env Env) (Changes, error)
}

// Apply runs a on a copy of s. On error the original state is returned untouched.
func Apply(s State, a Action, env Env) (State, Changes, error) {
	next := s.Clone()
	changes, err := a.apply(&next, env)
	if err != nil {
		return s, Changes{}, err
	}
	return next, changes, nil
}

// Evaluate re-runs the derived engines: fine accrual first, then rank demotion
func Evaluate(s State, env Env) (State, Changes) {
	next := s.Clone()
	var changes Changes
	if AccrueFines(next.Loans, env.Now) {
		changes.Loans = true
	}
	if EvaluateRanks(next.Users, next.Loans, env.Now) {
		changes.Users = true
	}
	if !changes.Any() {
		return s, changes
	}
	return next, changes
}
