package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/loan-ledger/internal/ledger"
	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/Dan9191/loan-ledger/internal/repository"
)

func (s *Service) userAfter(ctx context.Context, a ledger.Action, userID string) (models.User, error) {
	state, err := s.Dispatch(ctx, a)
	if err != nil {
		return models.User{}, err
	}
	user, _ := state.User(userID)
	return user.Public(), nil
}

func (s *Service) UpdateBankInfo(ctx context.Context, userID, bankName, accountNumber, accountHolder string) (models.User, error) {
	return s.userAfter(ctx, ledger.UpdateBankInfo{
		UserID:        userID,
		BankName:      bankName,
		AccountNumber: accountNumber,
		AccountHolder: accountHolder,
	}, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID, fullName, address string) (models.User, error) {
	return s.userAfter(ctx, ledger.UpdateProfile{UserID: userID, FullName: fullName, Address: address}, userID)
}

func (s *Service) MarkNotificationRead(ctx context.Context, userID, id string) error {
	_, err := s.Dispatch(ctx, ledger.MarkNotificationRead{UserID: userID, ID: id})
	return err
}

// Dashboard is what a borrower sees
type Dashboard struct {
	User          models.User           `json:"user"`
	Loans         []models.LoanRecord   `json:"loans"`
	Notifications []models.Notification `json:"notifications"`
	Tiers         []ledger.Tier         `json:"tiers"`
	BudgetOpen    bool                  `json:"budgetOpen"`
}

// Dashboard returns the borrower view of userID
func (s *Service) Dashboard(userID string) (Dashboard, error) {
	state := s.State()
	user, ok := state.User(userID)
	if !ok {
		return Dashboard{}, ledger.ErrUserNotFound
	}
	return Dashboard{
		User:          user.Public(),
		Loans:         state.UserLoans(userID),
		Notifications: state.UserNotifications(userID),
		Tiers:         ledger.Tiers(),
		BudgetOpen:    state.Budget >= ledger.MinLoanAmount,
	}, nil
}

// Overview is what staff sees
type Overview struct {
	Budget      int64               `json:"budget"`
	RankProfit  int64               `json:"rankProfit"`
	PendingWork int                 `json:"pendingWork"`
	Users       []models.User       `json:"users"`
	Loans       []models.LoanRecord `json:"loans"`
}

func (s *Service) Overview() Overview {
	state := s.State()
	users := make([]models.User, 0, len(state.Users))
	for _, u := range state.Users {
		users = append(users, u.Public())
	}
	return Overview{
		Budget:      state.Budget,
		RankProfit:  state.RankProfit,
		PendingWork: state.PendingWork(),
		Users:       users,
		Loans:       state.Loans,
	}
}

func (s *Service) SetBudget(ctx context.Context, amount int64) error {
	_, err := s.Dispatch(ctx, ledger.SetBudget{Amount: amount})
	return err
}

func (s *Service) ResetRankProfit(ctx context.Context) error {
	_, err := s.Dispatch(ctx, ledger.ResetRankProfit{})
	return err
}

// DeleteUser purges a user from the store and then from the local ledger
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if id == StaffID {
		return ledger.ErrNotBorrower
	}
	if err := s.store.DeleteUser(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	if _, err := s.Dispatch(ctx, ledger.DeleteUsers{UserIDs: []string{id}}); err != nil {
		return err
	}
	s.log.Infof("User %s deleted", id)
	return nil
}

// AutoCleanupUsers purges every borrower who has settled a loan and returns how many went
func (s *Service) AutoCleanupUsers(ctx context.Context) (int, error) {
	ids := ledger.CleanupCandidates(s.State())
	var purged []string
	for _, id := range ids {
		if err := s.store.DeleteUser(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.log.Errorf("Failed to delete user %s: %v", id, err)
			continue
		}
		purged = append(purged, id)
	}
	if len(purged) == 0 {
		return 0, nil
	}
	if _, err := s.Dispatch(ctx, ledger.DeleteUsers{UserIDs: purged}); err != nil {
		return 0, err
	}
	s.log.Infof("Auto cleanup removed %d users", len(purged))
	return len(purged), nil
}
