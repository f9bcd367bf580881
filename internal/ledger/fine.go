package ledger

import (
	"time"

	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/Dan9191/loan-ledger/internal/utils"
	"github.com/shopspring/decimal"
)

var (
	fineDailyRate = decimal.RequireFromString("0.001")
	fineCapRate   = decimal.RequireFromString("0.3")
)

// Fine returns the penalty accrued on amount when today is past dueDate:
// 0.1% of the principal per overdue day, capped at 30% of the principal.
func Fine(amount int64, dueDate, today time.Time) int64 {
	days := utils.DaysBetween(dueDate, today)
	if days <= 0 || amount <= 0 {
		return 0
	}
	principal := decimal.NewFromInt(amount)
	accrued := principal.Mul(fineDailyRate).Mul(decimal.NewFromInt(int64(days))).Floor()
	ceiling := principal.Mul(fineCapRate).Floor()
	return decimal.Min(accrued, ceiling).IntPart()
}

// FineCap returns the largest fine a loan of amount can carry
func FineCap(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(fineCapRate).Floor().IntPart()
}

// AccrueFines recomputes the fine of every debt-bearing loan. Fines never go down.
func AccrueFines(loans []models.LoanRecord, now time.Time) bool {
	changed := false
	for i := range loans {
		l := &loans[i]
		if !l.Status.DebtBearing() {
			continue
		}
		due, err := utils.ParseDay(l.Date, now.Location())
		if err != nil {
			continue
		}
		fine := Fine(l.Amount, due, now)
		if fine > l.Fine {
			l.Fine = fine
			l.UpdatedAt = utils.Millis(now)
			changed = true
		}
	}
	return changed
}
