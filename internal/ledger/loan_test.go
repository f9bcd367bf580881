package ledger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Dan9191/loan-ledger/internal/models"
)

var applyDay = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func borrower() models.User {
	return models.User{
		ID:                "1234",
		Phone:             "0900000001",
		FullName:          "NGUYEN VAN A",
		Rank:              models.RankStandard,
		TotalLimit:        2_000_000,
		Balance:           2_000_000,
		BankName:          "VCB",
		BankAccountNumber: "0011223344",
		BankAccountHolder: "NGUYEN VAN A",
	}
}

func newState(users ...models.User) State {
	return State{Users: users, Budget: 30_000_000}
}

func testEnv(now time.Time) Env {
	n := 0
	return Env{Now: now, NewID: func() string {
		n++
		return fmt.Sprintf("NOTIF-%d", n)
	}}
}

func mustApply(t *testing.T, s State, a Action, env Env) (State, Changes) {
	t.Helper()
	next, changes, err := Apply(s, a, env)
	if err != nil {
		t.Fatalf("Apply(%T) error = %v", a, err)
	}
	return next, changes
}

func TestLoanLifecycle(t *testing.T) {
	env := testEnv(applyDay)
	s := newState(borrower())

	s, changes := mustApply(t, s, ApplyLoan{UserID: "1234", Amount: 1_000_000, Signature: "sig"}, env)
	if !changes.Immediate {
		t.Error("apply must be written back immediately")
	}
	u, _ := s.User("1234")
	loan, ok := s.Loan("NDV-1234-01")
	if !ok {
		t.Fatalf("loan NDV-1234-01 not created, loans = %+v", s.Loans)
	}
	if u.Balance != 1_000_000 || u.LastLoanSeq != 1 {
		t.Errorf("balance/seq = %d/%d, want 1000000/1", u.Balance, u.LastLoanSeq)
	}
	if loan.Status != models.LoanPendingApproval || loan.Date != "01/04/2026" {
		t.Errorf("loan = %s due %s", loan.Status, loan.Date)
	}

	s, _ = mustApply(t, s, ApproveLoan{LoanID: loan.ID}, env)
	if l, _ := s.Loan(loan.ID); l.Status != models.LoanApproved {
		t.Fatalf("status = %s, want APPROVED", l.Status)
	}

	s, _ = mustApply(t, s, DisburseLoan{LoanID: loan.ID}, env)
	if s.Budget != 29_000_000 {
		t.Errorf("budget after disburse = %d", s.Budget)
	}
	if l, _ := s.Loan(loan.ID); l.Status != models.LoanActiveDebt {
		t.Fatalf("status = %s, want ACTIVE_DEBT", l.Status)
	}

	late := time.Date(2026, 5, 11, 9, 0, 0, 0, time.UTC)
	s, _ = Evaluate(s, testEnv(late))
	if l, _ := s.Loan(loan.ID); l.Fine != 40_000 {
		t.Errorf("fine after 40 days = %d, want 40000", l.Fine)
	}

	env = testEnv(late)
	s, _ = mustApply(t, s, RequestSettlement{UserID: "1234", LoanID: loan.ID, Proof: "bill.png"}, env)
	if l, _ := s.Loan(loan.ID); l.Status != models.LoanPendingSettlement || l.BillImage != "bill.png" {
		t.Fatalf("settlement request = %+v", l)
	}

	s, _ = mustApply(t, s, SettleLoan{LoanID: loan.ID}, env)
	u, _ = s.User("1234")
	if l, _ := s.Loan(loan.ID); l.Status != models.LoanSettled {
		t.Errorf("status = %s, want SETTLED", l.Status)
	}
	if s.Budget != 30_000_000 {
		t.Errorf("budget after settle = %d", s.Budget)
	}
	if u.Balance != 2_000_000 || u.RankProgress != 1 {
		t.Errorf("balance/progress = %d/%d", u.Balance, u.RankProgress)
	}
	if got := s.UserNotifications("1234"); len(got) != 2 || got[0].Title != "Loan settled" {
		t.Errorf("notifications = %+v", got)
	}
}

func TestSettleCaps(t *testing.T) {
	u := borrower()
	u.Balance = 1_500_000
	u.RankProgress = MaxRankProgress
	s := newState(u)
	s.Loans = []models.LoanRecord{{ID: "L", UserID: u.ID, Amount: 1_000_000, Status: models.LoanPendingSettlement}}

	s, _ = mustApply(t, s, SettleLoan{LoanID: "L"}, testEnv(applyDay))
	got, _ := s.User(u.ID)
	if got.Balance != 2_000_000 || got.RankProgress != MaxRankProgress {
		t.Errorf("balance/progress = %d/%d, want capped", got.Balance, got.RankProgress)
	}
}

func TestApplyLoanGuards(t *testing.T) {
	pending := models.LoanRecord{ID: "P", UserID: "1234", Amount: 1_000_000, Date: "01/04/2026", Status: models.LoanPendingApproval}
	active := func(id, due string) models.LoanRecord {
		return models.LoanRecord{ID: id, UserID: "1234", Amount: 1_000_000, Date: due, Status: models.LoanActiveDebt}
	}

	tests := []struct {
		name   string
		edit   func(s *State)
		amount int64
		want   error
	}{
		{"unknown user", func(s *State) { s.Users[0].ID = "9999" }, 1_000_000, ErrUserNotFound},
		{"staff", func(s *State) { s.Users[0].IsAdmin = true }, 1_000_000, ErrNotBorrower},
		{"no bank info", func(s *State) { s.Users[0].BankName = "" }, 1_000_000, ErrBankInfoRequired},
		{"below minimum", nil, 500_000, ErrInvalidAmount},
		{"not a step", nil, 1_500_000, ErrInvalidAmount},
		{"out of capital", func(s *State) { s.Budget = 900_000 }, 1_000_000, ErrInsufficientBudget},
		{"above budget", func(s *State) { s.Budget = 1_000_000 }, 2_000_000, ErrInsufficientBudget},
		{"above balance", nil, 3_000_000, ErrInsufficientLimit},
		{"overdue", func(s *State) { s.Loans = []models.LoanRecord{active("A", "01/03/2026")} }, 1_000_000, ErrOverdueLoan},
		{"other cycle", func(s *State) { s.Loans = []models.LoanRecord{active("A", "01/05/2026")} }, 1_000_000, ErrOtherCycle},
		{"previous pending", func(s *State) { s.Loans = []models.LoanRecord{pending} }, 1_000_000, ErrPreviousLoanPending},
		{"too many", func(s *State) {
			s.Users[0].Balance = 10_000_000
			for i := range MaxOpenLoans {
				s.Loans = append(s.Loans, active(fmt.Sprint(i), "01/04/2026"))
			}
		}, 1_000_000, ErrTooManyLoans},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newState(borrower())
			if tt.edit != nil {
				tt.edit(&s)
			}
			next, changes, err := Apply(s, ApplyLoan{UserID: "1234", Amount: tt.amount}, testEnv(applyDay))
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if changes.Any() || len(next.Loans) != len(s.Loans) || next.Users[0].Balance != s.Users[0].Balance {
				t.Error("failed apply mutated the state")
			}
		})
	}
}

func TestApplyLoanSameCycle(t *testing.T) {
	s := newState(borrower())
	s.Users[0].LastLoanSeq = 1
	s.Loans = []models.LoanRecord{
		{ID: "NDV-1234-02", UserID: "1234", Amount: 1_000_000, Date: "01/04/2026", Status: models.LoanActiveDebt},
		{ID: "NDV-1234-01", UserID: "1234", Amount: 1_000_000, Date: "01/03/2026", Status: models.LoanRejected},
	}
	s, _ = mustApply(t, s, ApplyLoan{UserID: "1234", Amount: 1_000_000}, testEnv(applyDay))
	if s.Loans[0].ID != "NDV-1234-03" {
		t.Errorf("new loan id = %s, want NDV-1234-03", s.Loans[0].ID)
	}
	if u, _ := s.User("1234"); u.LastLoanSeq != 3 {
		t.Errorf("lastLoanSeq = %d, want 3", u.LastLoanSeq)
	}
}

func TestInvalidTransitionsAreNoOps(t *testing.T) {
	s := newState(borrower())
	s.Loans = []models.LoanRecord{{ID: "L", UserID: "1234", Amount: 1_000_000, Status: models.LoanPendingApproval}}
	env := testEnv(applyDay)

	actions := []Action{
		DisburseLoan{LoanID: "L"},
		SettleLoan{LoanID: "L"},
		RequestSettlement{UserID: "1234", LoanID: "L", Proof: "x"},
	}
	for _, a := range actions {
		next, _, err := Apply(s, a, env)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%T error = %v, want ErrInvalidTransition", a, err)
		}
		if next.Budget != s.Budget || next.Loans[0].Status != models.LoanPendingApproval {
			t.Errorf("%T mutated the state", a)
		}
	}
	if _, _, err := Apply(s, ApproveLoan{LoanID: "missing"}, env); !errors.Is(err, ErrLoanNotFound) {
		t.Errorf("approve missing loan error = %v", err)
	}
}

func TestRejectLoan(t *testing.T) {
	env := testEnv(applyDay)
	base := func(status models.LoanStatus) State {
		u := borrower()
		u.Balance = 1_000_000
		s := newState(u)
		s.Loans = []models.LoanRecord{{ID: "L", UserID: u.ID, Amount: 1_000_000, Status: status}}
		return s
	}

	for _, status := range []models.LoanStatus{models.LoanPendingApproval, models.LoanApproved} {
		t.Run(string(status), func(t *testing.T) {
			s, changes := mustApply(t, base(status), RejectLoan{LoanID: "L", Reason: "incomplete documents"}, env)
			l, _ := s.Loan("L")
			u, _ := s.User("1234")
			if l.Status != models.LoanRejected || l.RejectionReason != "incomplete documents" {
				t.Errorf("loan = %s %q", l.Status, l.RejectionReason)
			}
			if u.Balance != 2_000_000 {
				t.Errorf("balance = %d, want refund to 2000000", u.Balance)
			}
			if !changes.Immediate {
				t.Error("refund must be written back immediately")
			}
		})
	}

	t.Run("settlement", func(t *testing.T) {
		s, _ := mustApply(t, base(models.LoanPendingSettlement), RejectLoan{LoanID: "L", Reason: "proof unreadable"}, env)
		l, _ := s.Loan("L")
		u, _ := s.User("1234")
		if l.Status != models.LoanActiveDebt || l.RejectionReason != "proof unreadable" {
			t.Errorf("loan = %s %q", l.Status, l.RejectionReason)
		}
		if u.Balance != 1_000_000 {
			t.Errorf("balance changed to %d", u.Balance)
		}
		if len(s.Notifications) != 1 {
			t.Errorf("notifications = %d, want 1", len(s.Notifications))
		}
	})

	t.Run("reason required", func(t *testing.T) {
		if _, _, err := Apply(base(models.LoanPendingApproval), RejectLoan{LoanID: "L", Reason: "  "}, env); !errors.Is(err, ErrReasonRequired) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("terminal", func(t *testing.T) {
		if _, _, err := Apply(base(models.LoanSettled), RejectLoan{LoanID: "L", Reason: "late"}, env); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("error = %v", err)
		}
	})
}

func TestRequestSettlementNeedsProof(t *testing.T) {
	s := newState(borrower())
	s.Loans = []models.LoanRecord{{ID: "L", UserID: "1234", Amount: 1_000_000, Status: models.LoanActiveDebt}}
	if _, _, err := Apply(s, RequestSettlement{UserID: "1234", LoanID: "L"}, testEnv(applyDay)); !errors.Is(err, ErrProofRequired) {
		t.Errorf("error = %v, want ErrProofRequired", err)
	}
	if _, _, err := Apply(s, RequestSettlement{UserID: "5555", LoanID: "L", Proof: "x"}, testEnv(applyDay)); !errors.Is(err, ErrLoanNotFound) {
		t.Errorf("foreign loan error = %v, want ErrLoanNotFound", err)
	}
}

func TestPendingWork(t *testing.T) {
	gold := models.RankGold
	u := borrower()
	u.PendingUpgradeRank = &gold
	s := newState(u)
	s.Loans = []models.LoanRecord{
		{ID: "1", Status: models.LoanPendingApproval},
		{ID: "2", Status: models.LoanApproved},
		{ID: "3", Status: models.LoanPendingSettlement},
		{ID: "4", Status: models.LoanSettled},
	}
	if got := s.PendingWork(); got != 3 {
		t.Errorf("PendingWork() = %d, want 3", got)
	}
}
