package models

// Rank is a membership tier
type Rank string

const (
	RankStandard Rank = "standard"
	RankBronze   Rank = "bronze"
	RankSilver   Rank = "silver"
	RankGold     Rank = "gold"
	RankDiamond  Rank = "diamond"
)

// User represents a borrower (or the staff account) in the ledger
type User struct {
	ID                 string `json:"id"`
	Phone              string `json:"phone"`
	FullName           string `json:"fullName"`
	IDNumber           string `json:"idNumber,omitempty"`
	PasswordHash       string `json:"passwordHash,omitempty"`
	Balance            int64  `json:"balance"`    // unused credit
	TotalLimit         int64  `json:"totalLimit"` // credit ceiling of the current rank
	Rank               Rank   `json:"rank"`
	RankProgress       int    `json:"rankProgress"`
	OverdueDaysCharged int    `json:"overdueDaysCharged,omitempty"`
	IsAdmin            bool   `json:"isAdmin,omitempty"`
	PendingUpgradeRank *Rank  `json:"pendingUpgradeRank"`
	RankUpgradeBill    string `json:"rankUpgradeBill,omitempty"`
	Address            string `json:"address,omitempty"`
	JoinDate           string `json:"joinDate,omitempty"`
	LastLoanSeq        int    `json:"lastLoanSeq"`
	BankName           string `json:"bankName,omitempty"`
	BankAccountNumber  string `json:"bankAccountNumber,omitempty"`
	BankAccountHolder  string `json:"bankAccountHolder,omitempty"`
	UpdatedAt          int64  `json:"updatedAt"` // milliseconds since epoch
}

func (u User) Key() string    { return u.ID }
func (u User) Version() int64 { return u.UpdatedAt }

// HasBankInfo reports whether the payout account is filled in
func (u User) HasBankInfo() bool {
	if u.IsAdmin {
		return true
	}
	return u.BankName != "" && u.BankAccountNumber != "" && u.BankAccountHolder != ""
}

// Public returns a copy without credentials, safe to hand to clients
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
