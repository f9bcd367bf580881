package service

import (
	"context"
	"errors"

	"github.com/Dan9191/loan-ledger/internal/contract"
	"github.com/Dan9191/loan-ledger/internal/ledger"
	"github.com/Dan9191/loan-ledger/internal/models"
)

func (s *Service) alert(what string, send func(a Alerter) error) {
	if s.alerts == nil {
		return
	}
	if err := send(s.alerts); err != nil {
		s.log.Warnf("Staff alert for %s failed: %v", what, err)
	}
}

func (s *Service) loanAfter(ctx context.Context, a ledger.Action, loanID string) (models.LoanRecord, error) {
	state, err := s.Dispatch(ctx, a)
	if err != nil {
		return models.LoanRecord{}, err
	}
	loan, _ := state.Loan(loanID)
	return loan, nil
}

// ApplyLoan files a loan application for userID
func (s *Service) ApplyLoan(ctx context.Context, userID string, amount int64, signature string) (models.LoanRecord, error) {
	state, err := s.Dispatch(ctx, ledger.ApplyLoan{UserID: userID, Amount: amount, Signature: signature})
	if err != nil {
		return models.LoanRecord{}, err
	}
	user, _ := state.User(userID)
	loan, _ := state.Loan(ledger.ContractNumber(userID, user.LastLoanSeq))
	s.log.Infof("Loan %s applied by %s for %d", loan.ID, userID, amount)
	s.alert(loan.ID, func(a Alerter) error { return a.LoanApplied(loan) })
	return loan, nil
}

func (s *Service) ApproveLoan(ctx context.Context, loanID string) (models.LoanRecord, error) {
	return s.loanAfter(ctx, ledger.ApproveLoan{LoanID: loanID}, loanID)
}

func (s *Service) DisburseLoan(ctx context.Context, loanID string) (models.LoanRecord, error) {
	loan, err := s.loanAfter(ctx, ledger.DisburseLoan{LoanID: loanID}, loanID)
	if err == nil {
		s.log.Infof("Loan %s disbursed", loanID)
	}
	return loan, err
}

// RequestSettlement reports repayment of a loan of userID with a payment proof
func (s *Service) RequestSettlement(ctx context.Context, userID, loanID, proof string) (models.LoanRecord, error) {
	loan, err := s.loanAfter(ctx, ledger.RequestSettlement{UserID: userID, LoanID: loanID, Proof: proof}, loanID)
	if err != nil {
		return loan, err
	}
	s.alert(loanID, func(a Alerter) error { return a.SettlementRequested(loan) })
	return loan, nil
}

func (s *Service) SettleLoan(ctx context.Context, loanID string) (models.LoanRecord, error) {
	loan, err := s.loanAfter(ctx, ledger.SettleLoan{LoanID: loanID}, loanID)
	if err == nil {
		s.log.Infof("Loan %s settled", loanID)
	}
	return loan, err
}

func (s *Service) RejectLoan(ctx context.Context, loanID, reason string) (models.LoanRecord, error) {
	return s.loanAfter(ctx, ledger.RejectLoan{LoanID: loanID, Reason: reason}, loanID)
}

// Contract renders the agreement of loanID. Borrowers only see their own loans.
func (s *Service) Contract(userID string, staff bool, loanID string) ([]byte, error) {
	state := s.State()
	loan, ok := state.Loan(loanID)
	if !ok || (!staff && loan.UserID != userID) {
		return nil, ledger.ErrLoanNotFound
	}
	borrower, ok := state.User(loan.UserID)
	if !ok {
		return nil, ledger.ErrUserNotFound
	}
	return contract.Render(loan, borrower, s.now())
}

// RequestUpgrade asks staff to move userID to target
func (s *Service) RequestUpgrade(ctx context.Context, userID string, target models.Rank, proof string) (models.User, error) {
	user, err := s.userAfter(ctx, ledger.RequestUpgrade{UserID: userID, Target: target, Proof: proof}, userID)
	if err != nil {
		return user, err
	}
	s.alert("upgrade of "+userID, func(a Alerter) error { return a.UpgradeRequested(user, target) })
	return user, nil
}

func (s *Service) ApproveUpgrade(ctx context.Context, userID string) (models.User, error) {
	return s.userAfter(ctx, ledger.ApproveUpgrade{UserID: userID}, userID)
}

func (s *Service) RejectUpgrade(ctx context.Context, userID string) (models.User, error) {
	return s.userAfter(ctx, ledger.RejectUpgrade{UserID: userID}, userID)
}

// IsNotFound reports whether err means the addressed entity does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ledger.ErrUserNotFound) || errors.Is(err, ledger.ErrLoanNotFound) ||
		errors.Is(err, ledger.ErrNotificationNotFound)
}
