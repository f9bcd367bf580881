package models

// LoanStatus is a state of the loan state machine
type LoanStatus string

const (
	LoanPendingApproval   LoanStatus = "PENDING_APPROVAL"
	LoanApproved          LoanStatus = "APPROVED"
	LoanActiveDebt        LoanStatus = "ACTIVE_DEBT"
	LoanPendingSettlement LoanStatus = "PENDING_SETTLEMENT"
	LoanSettled           LoanStatus = "SETTLED"
	LoanRejected          LoanStatus = "REJECTED"
)

// Terminal reports whether no further transition is possible
func (s LoanStatus) Terminal() bool {
	return s == LoanSettled || s == LoanRejected
}

// DebtBearing reports whether the money is out with the borrower, i.e. fines accrue
func (s LoanStatus) DebtBearing() bool {
	return s == LoanActiveDebt || s == LoanPendingSettlement
}

// LoanRecord represents a loan contract
type LoanRecord struct {
	ID              string     `json:"id"` // NDV-<userId>-<seq>
	UserID          string     `json:"userId"`
	UserName        string     `json:"userName"`
	Amount          int64      `json:"amount"`
	Date            string     `json:"date"`      // due date, DD/MM/YYYY
	CreatedAt       string     `json:"createdAt"` // HH:MM:SS DD/MM/YYYY
	Status          LoanStatus `json:"status"`
	Fine            int64      `json:"fine,omitempty"`
	BillImage       string     `json:"billImage,omitempty"`
	Signature       string     `json:"signature,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	UpdatedAt       int64      `json:"updatedAt"`
}

func (l LoanRecord) Key() string    { return l.ID }
func (l LoanRecord) Version() int64 { return l.UpdatedAt }
