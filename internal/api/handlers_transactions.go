package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/habit-stake/internal/service"
	"github.com/habit-stake/internal/storage"
	"github.com/habit-stake/internal/types"
)

// handleListTransactions handles GET /api/transactions - ledger audit view.
// Supports ?habitId=, ?status= and ?limit= query filters.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireOwner(w, r); !ok {
		return
	}

	filters := &storage.TransactionFilters{
		HabitID: r.URL.Query().Get("habitId"),
	}

	if status := r.URL.Query().Get("status"); status != "" {
		ts := types.TransactionStatus(status)
		if ts != types.TxStatusPending && !ts.Terminal() {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid status filter", map[string]interface{}{
				"status": status,
			})
			return
		}
		filters.Status = ts
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > 1000 {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid limit, expected 1-1000", nil)
			return
		}
		filters.Limit = limit
	}

	txs, err := s.settlement.ListTransactions(r.Context(), filters)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// handleUpdateTransactionStatus handles PUT /api/transactions/:id/status.
// Only pending transactions can move, and only to a terminal status.
func (s *Server) handleUpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireOwner(w, r); !ok {
		return
	}

	var req struct {
		Status   string  `json:"status"`
		BlockRef *uint64 `json:"blockRef,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	txID := mux.Vars(r)["id"]
	tx, err := s.settlement.UpdateTransactionStatus(r.Context(), txID, types.TransactionStatus(req.Status), req.BlockRef)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tx)
}

// handleRetryTransaction handles POST /api/transactions/:id/retry
func (s *Server) handleRetryTransaction(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireOwner(w, r); !ok {
		return
	}

	txID := mux.Vars(r)["id"]
	result, err := s.settlement.RetryTransaction(r.Context(), txID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleGetBalance handles GET /api/wallet/:address/balance
func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireOwner(w, r); !ok {
		return
	}

	address := mux.Vars(r)["address"]
	if s.balances == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeInternalError, "Balance lookups unavailable", nil)
		return
	}
	if !s.balances.ValidateAddress(address) {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid address", map[string]interface{}{
			"address": address,
		})
		return
	}

	balance, err := s.balances.GetBalance(r.Context(), address)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"address": address,
		"balance": balance,
	})
}

// handleReconcile handles POST /api/admin/reconcile - trigger the
// auto-fail sweep out of schedule
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireOwner(w, r); !ok {
		return
	}

	var req struct {
		Date  string `json:"date,omitempty"`
		Force bool   `json:"force,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := parseJSONBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
			return
		}
	}

	input := &service.RunInput{Force: req.Force}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid date, expected YYYY-MM-DD", map[string]interface{}{
				"date": req.Date,
			})
			return
		}
		input.AsOf = &date
	}

	result, err := s.reconciler.Run(r.Context(), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
