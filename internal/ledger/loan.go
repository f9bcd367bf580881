package ledger

import (
	"fmt"
	"strings"

	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/Dan9191/loan-ledger/internal/utils"
)

const (
	// MinLoanAmount is both the smallest loan and the amount granularity
	MinLoanAmount int64 = 1_000_000
	// MaxOpenLoans is how many non-terminal loans a borrower may hold
	MaxOpenLoans = 5
)

// ContractNumber formats the loan id for the seq-th loan of userID
func ContractNumber(userID string, seq int) string {
	return fmt.Sprintf("NDV-%s-%02d", userID, seq)
}

// ApplyLoan is a borrower's request for credit. The amount is reserved from the
// borrower's balance right away.
type ApplyLoan struct {
	UserID    string
	Amount    int64
	Signature string
}

func (a ApplyLoan) apply(s *State, env Env) (Changes, error) {
	ui := s.userIndex(a.UserID)
	if ui < 0 {
		return Changes{}, ErrUserNotFound
	}
	u := &s.Users[ui]
	if u.IsAdmin {
		return Changes{}, ErrNotBorrower
	}
	if !u.HasBankInfo() {
		return Changes{}, ErrBankInfoRequired
	}
	if a.Amount < MinLoanAmount || a.Amount%MinLoanAmount != 0 {
		return Changes{}, ErrInvalidAmount
	}
	if s.Budget < MinLoanAmount || a.Amount > s.Budget {
		return Changes{}, ErrInsufficientBudget
	}
	if u.Balance <= 0 || a.Amount > u.Balance {
		return Changes{}, ErrInsufficientLimit
	}

	due := utils.FormatDay(utils.NextDueDate(env.Now))
	open := s.openLoans(u.ID)
	for _, l := range open {
		if !l.Status.DebtBearing() {
			continue
		}
		if days, err := utils.DaysOverdue(l.Date, env.Now); err == nil && days > 0 {
			return Changes{}, ErrOverdueLoan
		}
	}
	if len(open) >= MaxOpenLoans {
		return Changes{}, ErrTooManyLoans
	}
	for _, l := range open {
		if l.Date != due {
			return Changes{}, ErrOtherCycle
		}
	}
	for _, l := range open {
		if l.Status == models.LoanPendingApproval || l.Status == models.LoanApproved {
			return Changes{}, ErrPreviousLoanPending
		}
	}

	seq := u.LastLoanSeq + 1
	for s.loanIndex(ContractNumber(u.ID, seq)) >= 0 {
		seq++
	}
	ts := utils.Millis(env.Now)
	loan := models.LoanRecord{
		ID:        ContractNumber(u.ID, seq),
		UserID:    u.ID,
		UserName:  u.FullName,
		Amount:    a.Amount,
		Date:      due,
		CreatedAt: env.Now.Format(utils.StampLayout),
		Status:    models.LoanPendingApproval,
		Signature: a.Signature,
		UpdatedAt: ts,
	}
	u.Balance -= a.Amount
	u.LastLoanSeq = seq
	u.UpdatedAt = ts
	s.Loans = append([]models.LoanRecord{loan}, s.Loans...)

	return Changes{Users: true, Loans: true, Immediate: true}, nil
}

// ApproveLoan is the staff decision to accept an application
type ApproveLoan struct {
	LoanID string
}

func (a ApproveLoan) apply(s *State, env Env) (Changes, error) {
	l, err := s.loanIn(a.LoanID, models.LoanPendingApproval)
	if err != nil {
		return Changes{}, err
	}
	l.Status = models.LoanApproved
	l.UpdatedAt = utils.Millis(env.Now)
	return Changes{Loans: true}, nil
}

// DisburseLoan pays an approved loan out of the lending capital
type DisburseLoan struct {
	LoanID string
}

func (a DisburseLoan) apply(s *State, env Env) (Changes, error) {
	l, err := s.loanIn(a.LoanID, models.LoanApproved)
	if err != nil {
		return Changes{}, err
	}
	l.Status = models.LoanActiveDebt
	l.UpdatedAt = utils.Millis(env.Now)
	s.Budget -= l.Amount

	notify(s, env, l.UserID, "Loan disbursed",
		fmt.Sprintf("Loan %s has been disbursed to your account.", l.ID), models.NotificationLoan)
	return Changes{Loans: true, Budget: true, Notifications: true, Immediate: true}, nil
}

// RequestSettlement is the borrower reporting repayment with a payment proof
type RequestSettlement struct {
	UserID string
	LoanID string
	Proof  string
}

func (a RequestSettlement) apply(s *State, env Env) (Changes, error) {
	if strings.TrimSpace(a.Proof) == "" {
		return Changes{}, ErrProofRequired
	}
	l, err := s.loanIn(a.LoanID, models.LoanActiveDebt)
	if err != nil {
		return Changes{}, err
	}
	if a.UserID != "" && l.UserID != a.UserID {
		return Changes{}, ErrLoanNotFound
	}
	l.Status = models.LoanPendingSettlement
	l.BillImage = a.Proof
	l.UpdatedAt = utils.Millis(env.Now)
	return Changes{Loans: true}, nil
}

// SettleLoan is the staff confirmation of a repayment
type SettleLoan struct {
	LoanID string
}

func (a SettleLoan) apply(s *State, env Env) (Changes, error) {
	l, err := s.loanIn(a.LoanID, models.LoanPendingSettlement)
	if err != nil {
		return Changes{}, err
	}
	ts := utils.Millis(env.Now)
	l.Status = models.LoanSettled
	l.UpdatedAt = ts
	s.Budget += l.Amount

	changes := Changes{Loans: true, Budget: true, Notifications: true, Immediate: true}
	if ui := s.userIndex(l.UserID); ui >= 0 {
		u := &s.Users[ui]
		u.Balance = min(u.TotalLimit, u.Balance+l.Amount)
		u.RankProgress = min(MaxRankProgress, u.RankProgress+1)
		u.UpdatedAt = ts
		changes.Users = true
	}

	notify(s, env, l.UserID, "Loan settled",
		fmt.Sprintf("Loan %s has been settled in full.", l.ID), models.NotificationLoan)
	return changes, nil
}

// RejectLoan is the staff refusal of an application or of a settlement claim.
// A refused application (pending or approved) voids the loan and refunds the
// reserved credit; a refused settlement puts the loan back into debt.
type RejectLoan struct {
	LoanID string
	Reason string
}

func (a RejectLoan) apply(s *State, env Env) (Changes, error) {
	reason := strings.TrimSpace(a.Reason)
	if reason == "" {
		return Changes{}, ErrReasonRequired
	}
	li := s.loanIndex(a.LoanID)
	if li < 0 {
		return Changes{}, ErrLoanNotFound
	}
	l := &s.Loans[li]
	ts := utils.Millis(env.Now)

	var changes Changes
	switch l.Status {
	case models.LoanPendingSettlement:
		l.Status = models.LoanActiveDebt
		changes = Changes{Loans: true, Notifications: true}
	case models.LoanPendingApproval, models.LoanApproved:
		l.Status = models.LoanRejected
		changes = Changes{Loans: true, Notifications: true, Immediate: true}
		if ui := s.userIndex(l.UserID); ui >= 0 {
			u := &s.Users[ui]
			u.Balance = min(u.TotalLimit, u.Balance+l.Amount)
			u.UpdatedAt = ts
			changes.Users = true
		}
	default:
		return Changes{}, fmt.Errorf("reject loan %s in status %s: %w", l.ID, l.Status, ErrInvalidTransition)
	}
	l.RejectionReason = reason
	l.UpdatedAt = ts

	notify(s, env, l.UserID, "Request rejected",
		fmt.Sprintf("The request for loan %s was rejected. Reason: %s", l.ID, reason), models.NotificationLoan)
	return changes, nil
}

// loanIn returns the loan with id if it is in status want
func (s *State) loanIn(id string, want models.LoanStatus) (*models.LoanRecord, error) {
	li := s.loanIndex(id)
	if li < 0 {
		return nil, ErrLoanNotFound
	}
	l := &s.Loans[li]
	if l.Status != want {
		return nil, fmt.Errorf("loan %s is %s, want %s: %w", l.ID, l.Status, want, ErrInvalidTransition)
	}
	return l, nil
}

func (s *State) openLoans(userID string) []models.LoanRecord {
	var out []models.LoanRecord
	for _, l := range s.Loans {
		if l.UserID == userID && !l.Status.Terminal() {
			out = append(out, l)
		}
	}
	return out
}
