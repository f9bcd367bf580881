package ledger

import (
	"time"

	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/Dan9191/loan-ledger/internal/utils"
)

// Demote charges days overdue days against a rank and its progress buffer.
// Diamond has no buffer of its own: the first day drops it to gold with a full buffer.
// Once the buffer of a tier is used up the user drops one tier and the remaining
// days eat into the next buffer. Standard only loses progress, floored at 0.
func Demote(rank models.Rank, progress, days int) (models.Rank, int) {
	remaining := days
	if remaining <= 0 {
		return rank, progress
	}

	if rank == models.RankDiamond {
		rank = models.RankGold
		progress = MaxRankProgress
		remaining--
	}

	for remaining > 0 && rank != models.RankStandard {
		if progress >= remaining {
			progress -= remaining
			remaining = 0
			break
		}
		remaining -= progress
		lower, ok := Below(rank)
		if !ok {
			break
		}
		rank = lower
		progress = MaxRankProgress
	}

	if rank == models.RankStandard && remaining > 0 {
		progress = max(0, progress-remaining)
	}
	return rank, progress
}

// MaxOverdueDays returns the largest overdue-day count across the open loans of userID
func MaxOverdueDays(loans []models.LoanRecord, userID string, today time.Time) int {
	worst := 0
	for _, l := range loans {
		if l.UserID != userID || l.Status.Terminal() {
			continue
		}
		days, err := utils.DaysOverdue(l.Date, today)
		if err != nil {
			continue
		}
		worst = max(worst, days)
	}
	return worst
}

// EvaluateRank applies the demotion rule to u given its current worst overdue count.
// Only days not yet charged are applied, so evaluating twice without a new overdue
// day leaves the user unchanged.
func EvaluateRank(u *models.User, maxOverdue int, now time.Time) bool {
	if u.IsAdmin || maxOverdue == u.OverdueDaysCharged {
		return false
	}

	if maxOverdue < u.OverdueDaysCharged {
		// an overdue loan was settled; start counting from what is still late
		u.OverdueDaysCharged = maxOverdue
		u.UpdatedAt = utils.Millis(now)
		return true
	}

	fresh := maxOverdue - u.OverdueDaysCharged
	u.Rank, u.RankProgress = Demote(u.Rank, u.RankProgress, fresh)
	u.OverdueDaysCharged = maxOverdue
	u.TotalLimit = Limit(u.Rank)
	u.Balance = min(u.Balance, u.TotalLimit)
	u.UpdatedAt = utils.Millis(now)
	return true
}

// EvaluateRanks runs EvaluateRank for every user against loans
func EvaluateRanks(users []models.User, loans []models.LoanRecord, now time.Time) bool {
	changed := false
	for i := range users {
		worst := MaxOverdueDays(loans, users[i].ID, now)
		if EvaluateRank(&users[i], worst, now) {
			changed = true
		}
	}
	return changed
}
