package ledger

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotBorrower          = errors.New("staff accounts cannot borrow")
	ErrInvalidTransition    = errors.New("action not allowed in current loan status")
	ErrReasonRequired       = errors.New("rejection reason is required")
	ErrProofRequired        = errors.New("payment proof is required")
	ErrInvalidAmount        = errors.New("invalid loan amount")
	ErrInsufficientLimit    = errors.New("amount exceeds available credit")
	ErrInsufficientBudget   = errors.New("system lending capital is insufficient")
	ErrOverdueLoan          = errors.New("borrower has an overdue loan")
	ErrTooManyLoans         = errors.New("borrower has too many open loans")
	ErrOtherCycle           = errors.New("borrower has an unsettled loan on another due-date cycle")
	ErrPreviousLoanPending  = errors.New("previous loan is still awaiting approval or disbursement")
	ErrBankInfoRequired     = errors.New("bank account details are required")
	ErrInvalidBankInfo      = errors.New("invalid bank account details")
	ErrInvalidRank          = errors.New("invalid target rank")
	ErrUpgradePending       = errors.New("a rank upgrade is already pending")
	ErrNoPendingUpgrade     = errors.New("no rank upgrade is pending")
	ErrPhoneTaken           = errors.New("phone number already registered")
	ErrInvalidProfile       = errors.New("invalid profile data")
	ErrInvalidBudget        = errors.New("budget cannot be negative")
	ErrUserExists           = errors.New("user id already taken")
	ErrWeakPassword         = errors.New("password must be at least 6 characters")
	ErrIncorrectCredentials = errors.New("incorrect phone or password")
)
