package handler

import (
	"errors"
	"net/http"

	"github.com/Dan9191/loan-ledger/internal/config"
	"github.com/Dan9191/loan-ledger/internal/ledger"
	"github.com/Dan9191/loan-ledger/internal/middleware"
	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/Dan9191/loan-ledger/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Handler serves the borrower and staff API of the ledger agent
type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Router wires the agent routes
func (h *Handler) Router(cfg *config.Config) *mux.Router {
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("POST")

	// Borrower routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/me", h.Me).Methods("GET")
	authRouter.HandleFunc("/me/profile", h.UpdateProfile).Methods("PUT")
	authRouter.HandleFunc("/me/bank", h.UpdateBankInfo).Methods("PUT")
	authRouter.HandleFunc("/loans", h.ApplyLoan).Methods("POST")
	authRouter.HandleFunc("/loans/{id}/settlement", h.RequestSettlement).Methods("POST")
	authRouter.HandleFunc("/loans/{id}/contract", h.Contract).Methods("GET")
	authRouter.HandleFunc("/upgrades", h.RequestUpgrade).Methods("POST")
	authRouter.HandleFunc("/notifications/{id}/read", h.MarkRead).Methods("POST")

	// Staff routes
	staff := authRouter.PathPrefix("/admin").Subrouter()
	staff.Use(middleware.RequireStaff)
	staff.HandleFunc("/overview", h.Overview).Methods("GET")
	staff.HandleFunc("/loans/{id}/{action:approve|disburse|settle|reject}", h.LoanDecision).Methods("POST")
	staff.HandleFunc("/users/{id}/upgrade/{action:approve|reject}", h.UpgradeDecision).Methods("POST")
	staff.HandleFunc("/users/{id}", h.DeleteUser).Methods("DELETE")
	staff.HandleFunc("/users/cleanup", h.CleanupUsers).Methods("POST")
	staff.HandleFunc("/budget", h.SetBudget).Methods("PUT")
	staff.HandleFunc("/rank-profit/reset", h.ResetRankProfit).Methods("POST")
	return r
}

func callerID(r *http.Request) string {
	if claims, ok := middleware.ClaimsFrom(r.Context()); ok {
		return claims.Subject
	}
	return ""
}

func isStaff(r *http.Request) bool {
	claims, ok := middleware.ClaimsFrom(r.Context())
	return ok && claims.Role == models.RoleStaff
}

type registerRequest struct {
	Phone    string `json:"phone"`
	FullName string `json:"fullName"`
	IDNumber string `json:"idNumber"`
	Address  string `json:"address"`
	Password string `json:"password"`
}

// Register handles borrower registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.svc.Register(r.Context(), req.Phone, req.FullName, req.IDNumber, req.Address, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	token, user, err := h.svc.Login(req.Phone, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the dashboard of the caller
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if isStaff(r) {
		writeJSON(w, http.StatusOK, h.svc.Overview())
		return
	}
	dash, err := h.svc.Dashboard(callerID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

type profileRequest struct {
	FullName string `json:"fullName"`
	Address  string `json:"address"`
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.svc.UpdateProfile(r.Context(), callerID(r), req.FullName, req.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type bankRequest struct {
	BankName          string `json:"bankName"`
	BankAccountNumber string `json:"bankAccountNumber"`
	BankAccountHolder string `json:"bankAccountHolder"`
}

func (h *Handler) UpdateBankInfo(w http.ResponseWriter, r *http.Request) {
	var req bankRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.svc.UpdateBankInfo(r.Context(), callerID(r), req.BankName, req.BankAccountNumber, req.BankAccountHolder)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type applyRequest struct {
	Amount    int64  `json:"amount"`
	Signature string `json:"signature"`
}

func (h *Handler) ApplyLoan(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if !decode(w, r, &req) {
		return
	}
	loan, err := h.svc.ApplyLoan(r.Context(), callerID(r), req.Amount, req.Signature)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

type proofRequest struct {
	Proof string `json:"proof"`
}

func (h *Handler) RequestSettlement(w http.ResponseWriter, r *http.Request) {
	var req proofRequest
	if !decode(w, r, &req) {
		return
	}
	loan, err := h.svc.RequestSettlement(r.Context(), callerID(r), mux.Vars(r)["id"], req.Proof)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// Contract returns the loan agreement as XML
func (h *Handler) Contract(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Contract(callerID(r), isStaff(r), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write(doc)
}

type upgradeRequest struct {
	Target models.Rank `json:"target"`
	Proof  string      `json:"proof"`
}

func (h *Handler) RequestUpgrade(w http.ResponseWriter, r *http.Request) {
	var req upgradeRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.svc.RequestUpgrade(r.Context(), callerID(r), req.Target, req.Proof)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkNotificationRead(r.Context(), callerID(r), mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Overview())
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// LoanDecision handles the staff transitions of a loan
func (h *Handler) LoanDecision(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	var (
		loan models.LoanRecord
		err  error
	)
	switch vars["action"] {
	case "approve":
		loan, err = h.svc.ApproveLoan(r.Context(), id)
	case "disburse":
		loan, err = h.svc.DisburseLoan(r.Context(), id)
	case "settle":
		loan, err = h.svc.SettleLoan(r.Context(), id)
	case "reject":
		var req reasonRequest
		if !decode(w, r, &req) {
			return
		}
		loan, err = h.svc.RejectLoan(r.Context(), id, req.Reason)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.log.Infof("Staff %s %s loan %s", callerID(r), vars["action"], id)
	writeJSON(w, http.StatusOK, loan)
}

func (h *Handler) UpgradeDecision(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var (
		user models.User
		err  error
	)
	if vars["action"] == "approve" {
		user, err = h.svc.ApproveUpgrade(r.Context(), vars["id"])
	} else {
		user, err = h.svc.RejectUpgrade(r.Context(), vars["id"])
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteUser(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CleanupUsers(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.AutoCleanupUsers(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

type budgetRequest struct {
	Budget int64 `json:"budget"`
}

func (h *Handler) SetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SetBudget(r.Context(), req.Budget); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) ResetRankProfit(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ResetRankProfit(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError reports store failures as 502, domain errors as usual
func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if service.IsNotFound(err) || errors.Is(err, ledger.ErrNotBorrower) {
		writeDomainError(w, err)
		return
	}
	h.log.Errorf("Store operation failed: %v", err)
	writeError(w, http.StatusBadGateway, "store_unavailable", "store operation failed")
}
