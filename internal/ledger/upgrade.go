package ledger

import (
	"fmt"
	"strings"

	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/Dan9191/loan-ledger/internal/utils"
	"github.com/shopspring/decimal"
)

var upgradeFeeRate = decimal.RequireFromString("0.05")

// UpgradeFee is the fee charged for moving to a tier with credit ceiling limit
func UpgradeFee(limit int64) int64 {
	return decimal.NewFromInt(limit).Mul(upgradeFeeRate).Floor().IntPart()
}

// RequestUpgrade is a borrower asking to move to a higher tier, with proof of the fee payment
type RequestUpgrade struct {
	UserID string
	Target models.Rank
	Proof  string
}

func (a RequestUpgrade) apply(s *State, env Env) (Changes, error) {
	ui := s.userIndex(a.UserID)
	if ui < 0 {
		return Changes{}, ErrUserNotFound
	}
	u := &s.Users[ui]
	if u.IsAdmin {
		return Changes{}, ErrNotBorrower
	}
	if TierIndex(a.Target) < 0 || !Higher(a.Target, u.Rank) {
		return Changes{}, ErrInvalidRank
	}
	if u.PendingUpgradeRank != nil {
		return Changes{}, ErrUpgradePending
	}
	if strings.TrimSpace(a.Proof) == "" {
		return Changes{}, ErrProofRequired
	}
	target := a.Target
	u.PendingUpgradeRank = &target
	u.RankUpgradeBill = a.Proof
	u.UpdatedAt = utils.Millis(env.Now)
	return Changes{Users: true}, nil
}

// ApproveUpgrade moves the user to the pending tier. The credit already in use is
// carried over, so only the headroom grows.
type ApproveUpgrade struct {
	UserID string
}

func (a ApproveUpgrade) apply(s *State, env Env) (Changes, error) {
	ui := s.userIndex(a.UserID)
	if ui < 0 {
		return Changes{}, ErrUserNotFound
	}
	u := &s.Users[ui]
	if u.PendingUpgradeRank == nil {
		return Changes{}, ErrNoPendingUpgrade
	}
	tier, ok := TierOf(*u.PendingUpgradeRank)
	if !ok {
		return Changes{}, ErrInvalidRank
	}

	used := u.TotalLimit - u.Balance
	u.Rank = tier.Rank
	u.TotalLimit = tier.Limit
	u.Balance = min(tier.Limit, max(0, tier.Limit-used))
	u.PendingUpgradeRank = nil
	u.RankUpgradeBill = ""
	u.UpdatedAt = utils.Millis(env.Now)
	s.RankProfit += UpgradeFee(tier.Limit)

	notify(s, env, u.ID, "Rank upgraded",
		fmt.Sprintf("Your rank has been upgraded to %s.", tier.Name), models.NotificationRank)
	return Changes{Users: true, RankProfit: true, Notifications: true, Immediate: true}, nil
}

// RejectUpgrade drops the pending upgrade request
type RejectUpgrade struct {
	UserID string
}

func (a RejectUpgrade) apply(s *State, env Env) (Changes, error) {
	ui := s.userIndex(a.UserID)
	if ui < 0 {
		return Changes{}, ErrUserNotFound
	}
	u := &s.Users[ui]
	if u.PendingUpgradeRank == nil {
		return Changes{}, ErrNoPendingUpgrade
	}
	u.PendingUpgradeRank = nil
	u.RankUpgradeBill = ""
	u.UpdatedAt = utils.Millis(env.Now)

	notify(s, env, u.ID, "Rank upgrade rejected",
		"Your rank upgrade request was rejected. Please check the payment proof.", models.NotificationRank)
	return Changes{Users: true, Notifications: true}, nil
}
