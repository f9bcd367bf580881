package ledger

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/Dan9191/loan-ledger/internal/utils"
)

// MinPasswordLength is checked before hashing, Register only sees the hash
const MinPasswordLength = 6

// NewUserID draws 4-digit ids from intn until one is free
func NewUserID(s State, intn func(n int) int) string {
	for {
		id := fmt.Sprintf("%04d", intn(10000))
		if s.userIndex(id) < 0 {
			return id
		}
	}
}

// Register creates a standard-tier borrower with a full credit line
type Register struct {
	ID           string
	Phone        string
	FullName     string
	IDNumber     string
	Address      string
	PasswordHash string
}

func (a Register) apply(s *State, env Env) (Changes, error) {
	phone := strings.TrimSpace(a.Phone)
	name := strings.TrimSpace(a.FullName)
	if a.ID == "" || phone == "" || name == "" || a.PasswordHash == "" {
		return Changes{}, ErrInvalidProfile
	}
	if s.userIndex(a.ID) >= 0 {
		return Changes{}, ErrUserExists
	}
	if _, taken := s.UserByPhone(phone); taken {
		return Changes{}, ErrPhoneTaken
	}

	limit := Limit(models.RankStandard)
	s.Users = append(s.Users, models.User{
		ID:           a.ID,
		Phone:        phone,
		FullName:     strings.ToUpper(name),
		IDNumber:     strings.TrimSpace(a.IDNumber),
		PasswordHash: a.PasswordHash,
		Balance:      limit,
		TotalLimit:   limit,
		Rank:         models.RankStandard,
		Address:      strings.TrimSpace(a.Address),
		JoinDate:     env.Now.Format(utils.StampLayout),
		UpdatedAt:    utils.Millis(env.Now),
	})
	return Changes{Users: true, Immediate: true}, nil
}

// UpdateBankInfo sets the payout account of a borrower. The holder name is stored
// upper-cased and must be plain ASCII, the way banks print it.
type UpdateBankInfo struct {
	UserID        string
	BankName      string
	AccountNumber string
	AccountHolder string
}

func (a UpdateBankInfo) apply(s *State, env Env) (Changes, error) {
	ui := s.userIndex(a.UserID)
	if ui < 0 {
		return Changes{}, ErrUserNotFound
	}
	bank := strings.ToUpper(strings.TrimSpace(a.BankName))
	number := strings.TrimSpace(a.AccountNumber)
	holder := strings.ToUpper(strings.TrimSpace(a.AccountHolder))
	if bank == "" || number == "" || holder == "" || !isASCII(holder) {
		return Changes{}, ErrInvalidBankInfo
	}
	if strings.IndexFunc(number, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return Changes{}, ErrInvalidBankInfo
	}

	u := &s.Users[ui]
	u.BankName = bank
	u.BankAccountNumber = number
	u.BankAccountHolder = holder
	u.UpdatedAt = utils.Millis(env.Now)
	return Changes{Users: true}, nil
}

func isASCII(v string) bool {
	for _, r := range v {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// UpdateProfile changes the display name and address. Empty fields are left as they are.
type UpdateProfile struct {
	UserID   string
	FullName string
	Address  string
}

func (a UpdateProfile) apply(s *State, env Env) (Changes, error) {
	ui := s.userIndex(a.UserID)
	if ui < 0 {
		return Changes{}, ErrUserNotFound
	}
	u := &s.Users[ui]
	name := strings.ToUpper(strings.TrimSpace(a.FullName))
	address := strings.TrimSpace(a.Address)
	if name == "" && address == "" {
		return Changes{}, ErrInvalidProfile
	}
	if name != "" {
		u.FullName = name
	}
	if address != "" {
		u.Address = address
	}
	u.UpdatedAt = utils.Millis(env.Now)
	return Changes{Users: true}, nil
}

// DeleteUsers purges users together with their loans and notifications
type DeleteUsers struct {
	UserIDs []string
}

func (a DeleteUsers) apply(s *State, _ Env) (Changes, error) {
	gone := func(id string) bool { return slices.Contains(a.UserIDs, id) }
	before := len(s.Users)
	s.Users = slices.DeleteFunc(s.Users, func(u models.User) bool { return gone(u.ID) })
	if len(s.Users) == before {
		return Changes{}, ErrUserNotFound
	}
	s.Loans = slices.DeleteFunc(s.Loans, func(l models.LoanRecord) bool { return gone(l.UserID) })
	s.Notifications = slices.DeleteFunc(s.Notifications, func(n models.Notification) bool { return gone(n.UserID) })
	return Changes{Users: true, Loans: true, Notifications: true}, nil
}

// CleanupCandidates lists the borrowers that auto cleanup purges: everyone
// who has already settled at least one loan
func CleanupCandidates(s State) []string {
	settled := make(map[string]bool)
	for _, l := range s.Loans {
		if l.Status == models.LoanSettled {
			settled[l.UserID] = true
		}
	}
	var ids []string
	for _, u := range s.Users {
		if !u.IsAdmin && settled[u.ID] {
			ids = append(ids, u.ID)
		}
	}
	return ids
}
