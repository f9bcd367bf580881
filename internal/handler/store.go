package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/Dan9191/loan-ledger/internal/repository"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// cleanupThreshold is the share of the storage limit above which a read triggers retention
const cleanupThreshold = 0.8

// StoreHandler exposes a repository.Backend as the document store API
type StoreHandler struct {
	backend  repository.Backend
	log      *logrus.Logger
	limitMB  float64
	now      func() time.Time
	cleaning atomic.Bool
}

func NewStoreHandler(backend repository.Backend, log *logrus.Logger, limitMB float64) *StoreHandler {
	return &StoreHandler{backend: backend, log: log, limitMB: limitMB, now: time.Now}
}

// Router wires the store routes
func (h *StoreHandler) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/data", h.Data).Methods("GET")
	api.HandleFunc("/status", h.Status).Methods("GET")
	api.HandleFunc("/users", h.SaveUsers).Methods("POST")
	api.HandleFunc("/loans", h.SaveLoans).Methods("POST")
	api.HandleFunc("/notifications", h.SaveNotifications).Methods("POST")
	api.HandleFunc("/budget", h.saveConfig(models.ConfigBudget)).Methods("POST")
	api.HandleFunc("/rankProfit", h.saveConfig(models.ConfigRankProfit)).Methods("POST")
	api.HandleFunc("/users/{id}", h.DeleteUser).Methods("DELETE")
	return r
}

// Data returns the whole snapshot with the current storage usage
func (h *StoreHandler) Data(w http.ResponseWriter, r *http.Request) {
	snap, err := h.backend.Snapshot(r.Context())
	if err != nil {
		h.log.Errorf("Failed to read snapshot: %v", err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to read data")
		return
	}
	usage, err := repository.UsageMB(snap)
	if err != nil {
		h.log.Errorf("Failed to measure snapshot: %v", err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to read data")
		return
	}
	snap.StorageUsage = fmt.Sprintf("%.2f", usage)
	snap.StorageFull = h.limitMB > 0 && usage >= h.limitMB
	if h.limitMB > 0 && usage > h.limitMB*cleanupThreshold {
		h.cleanupAsync()
	}
	writeJSON(w, http.StatusOK, snap)
}

// cleanupAsync runs retention in the background, at most one run at a time
func (h *StoreHandler) cleanupAsync() {
	if !h.cleaning.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer h.cleaning.Store(false)
		h.Cleanup(context.Background())
	}()
}

// Cleanup applies the default retention policy once
func (h *StoreHandler) Cleanup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	res, err := h.backend.Cleanup(ctx, repository.DefaultRetention(h.now()))
	if err != nil {
		h.log.Errorf("Cleanup failed: %v", err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"loans":         res.Loans,
		"notifications": res.Notifications,
	}).Info("Cleanup finished")
}

type statusResponse struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *StoreHandler) Status(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Connected: true, Message: "store is reachable"})
}

// decodeArray rejects any body that is not a JSON array
func decodeArray[T any](w http.ResponseWriter, r *http.Request) ([]T, bool) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil || len(raw) == 0 || raw[0] != '[' {
		writeError(w, http.StatusBadRequest, "bad_request", "body must be a JSON array")
		return nil, false
	}
	var docs []T
	if err := json.Unmarshal(raw, &docs); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "body must be a JSON array")
		return nil, false
	}
	return docs, true
}

func (h *StoreHandler) SaveUsers(w http.ResponseWriter, r *http.Request) {
	users, ok := decodeArray[models.User](w, r)
	if !ok {
		return
	}
	h.saved(w, "users", len(users), h.backend.SaveUsers(r.Context(), users))
}

func (h *StoreHandler) SaveLoans(w http.ResponseWriter, r *http.Request) {
	loans, ok := decodeArray[models.LoanRecord](w, r)
	if !ok {
		return
	}
	h.saved(w, "loans", len(loans), h.backend.SaveLoans(r.Context(), loans))
}

func (h *StoreHandler) SaveNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, ok := decodeArray[models.Notification](w, r)
	if !ok {
		return
	}
	h.saved(w, "notifications", len(notifications), h.backend.SaveNotifications(r.Context(), notifications))
}

func (h *StoreHandler) saveConfig(key models.ConfigKey) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int64
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
			return
		}
		value, ok := body[string(key)]
		if !ok {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("missing %s", key))
			return
		}
		h.saved(w, string(key), 1, h.backend.SaveConfig(r.Context(), key, value))
	}
}

func (h *StoreHandler) saved(w http.ResponseWriter, what string, n int, err error) {
	if err != nil {
		h.log.Errorf("Failed to save %s: %v", what, err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to save "+what)
		return
	}
	h.log.Debugf("Saved %d %s", n, what)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *StoreHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := h.backend.DeleteUser(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "user not found")
	case err != nil:
		h.log.Errorf("Failed to delete user %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to delete user")
	default:
		h.log.Infof("User %s deleted", id)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
