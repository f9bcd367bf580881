package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dan9191/loan-ledger/internal/ledger"
	"github.com/Dan9191/loan-ledger/internal/repository"
	"github.com/Dan9191/loan-ledger/internal/service"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return false
	}
	return true
}

var conflicts = []error{
	ledger.ErrInvalidTransition,
	ledger.ErrPhoneTaken,
	ledger.ErrUserExists,
	ledger.ErrUpgradePending,
	ledger.ErrNoPendingUpgrade,
	ledger.ErrPreviousLoanPending,
	ledger.ErrOtherCycle,
	ledger.ErrTooManyLoans,
	ledger.ErrOverdueLoan,
	ledger.ErrInsufficientBudget,
	ledger.ErrInsufficientLimit,
	ledger.ErrBankInfoRequired,
}

// writeDomainError maps a ledger error to its HTTP status
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case service.IsNotFound(err), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ledger.ErrIncorrectCredentials):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, ledger.ErrNotBorrower):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case isAny(err, conflicts):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case isAny(err, []error{
		ledger.ErrInvalidAmount, ledger.ErrReasonRequired, ledger.ErrProofRequired,
		ledger.ErrInvalidBankInfo, ledger.ErrInvalidRank, ledger.ErrInvalidProfile,
		ledger.ErrInvalidBudget, ledger.ErrWeakPassword,
	}):
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
