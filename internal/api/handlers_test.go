package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/habit-stake/internal/errors"
	"github.com/habit-stake/internal/models"
	"github.com/habit-stake/internal/service"
	"github.com/habit-stake/internal/types"
	"github.com/shopspring/decimal"
)

func doJSON(server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)
	return w
}

func TestCreateHabit_MissingUserID(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("POST", "/api/habits", bytes.NewReader([]byte(`{"name":"x"}`)))
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestCreateHabit_InvalidJSON(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("POST", "/api/habits", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("X-User-ID", "user-123")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCreateHabit_Success(t *testing.T) {
	server := createTestServer()

	w := doJSON(server, "POST", "/api/habits", map[string]interface{}{
		"name":         "morning run",
		"daysOfWeek":   []string{"monday", "wednesday"},
		"ownerAddress": "0x1111111111111111111111111111111111111111",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var habit models.Habit
	if err := json.Unmarshal(w.Body.Bytes(), &habit); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if habit.OwnerID != "user-123" {
		t.Errorf("owner must come from the auth header, got %q", habit.OwnerID)
	}
}

func TestCreateHabit_ValidationErrorMapped(t *testing.T) {
	server := createTestServerWith(ServerDeps{
		Habits: &mockHabitService{
			createFunc: func(ctx context.Context, input *service.CreateHabitInput) (*models.Habit, error) {
				return nil, apperrors.NewValidationError("habit name is required", nil)
			},
		},
	})

	w := doJSON(server, "POST", "/api/habits", map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad error body: %v", err)
	}
	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %q", resp.Error.Code)
	}
}

func TestLogHabit_ReturnsTransactionAndEncouragement(t *testing.T) {
	logResult := &service.LogResult{
		Log:   &models.DailyLog{ID: "log-1", HabitID: "h1", Completed: true, StreakAtLog: 7, RewardTriggered: true},
		Habit: &models.Habit{ID: "h1", OwnerID: "user-123", Name: "run", CurrentStreak: 7},
		Transaction: &models.Transaction{
			ID:     "tx-1",
			Type:   types.TxTypeReward,
			Amount: decimal.RequireFromString("5.1"),
			Status: types.TxStatusPending,
		},
	}
	server := createTestServerWith(ServerDeps{
		Settlement: &mockSettlementService{
			logFunc: func(ctx context.Context, input *service.LogInput) (*service.LogResult, error) {
				return logResult, nil
			},
		},
		Encourager: &mockEncourager{message: "seven days strong!"},
	})

	w := doJSON(server, "POST", "/api/habits/h1/log", map[string]interface{}{"completed": true})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["transaction"] == nil {
		t.Error("expected transaction in response")
	}
	if resp["encouragement"] != "seven days strong!" {
		t.Errorf("expected encouragement, got %v", resp["encouragement"])
	}
}

func TestLogHabit_EncouragementFailureIsSilent(t *testing.T) {
	server := createTestServerWith(ServerDeps{
		Encourager: &mockEncourager{err: context.DeadlineExceeded},
	})

	w := doJSON(server, "POST", "/api/habits/h1/log", map[string]interface{}{"completed": true})
	if w.Code != http.StatusCreated {
		t.Fatalf("coach failure must not fail the log, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if _, ok := resp["encouragement"]; ok {
		t.Error("failed encouragement must be omitted, not errored")
	}
}

func TestLogHabit_DuplicateDayConflict(t *testing.T) {
	server := createTestServerWith(ServerDeps{
		Settlement: &mockSettlementService{
			logFunc: func(ctx context.Context, input *service.LogInput) (*service.LogResult, error) {
				return nil, apperrors.NewDuplicateLogError("h1", "2026-01-05")
			},
		},
	})

	w := doJSON(server, "POST", "/api/habits/h1/log", map[string]interface{}{"completed": true})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Code != "LOG_ALREADY_EXISTS" {
		t.Errorf("expected LOG_ALREADY_EXISTS, got %q", resp.Error.Code)
	}
}

func TestLogHabit_BadDate(t *testing.T) {
	server := createTestServer()

	w := doJSON(server, "POST", "/api/habits/h1/log", map[string]interface{}{
		"completed": true,
		"date":      "05/01/2026",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a malformed date, got %d", w.Code)
	}
}

func TestUpdateTransactionStatus_TerminalConflict(t *testing.T) {
	server := createTestServerWith(ServerDeps{
		Settlement: &mockSettlementService{
			updateFunc: func(ctx context.Context, txID string, status types.TransactionStatus, blockRef *uint64) (*models.Transaction, error) {
				return nil, apperrors.NewTerminalStatusError(txID, "confirmed")
			},
		},
	})

	w := doJSON(server, "PUT", "/api/transactions/tx-1/status", map[string]interface{}{"status": "failed"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for a terminal transition, got %d", w.Code)
	}
}

func TestUpdateTransactionStatus_Success(t *testing.T) {
	server := createTestServer()

	w := doJSON(server, "PUT", "/api/transactions/tx-1/status", map[string]interface{}{
		"status":   "confirmed",
		"blockRef": 1234,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var tx models.Transaction
	if err := json.Unmarshal(w.Body.Bytes(), &tx); err != nil {
		t.Fatal(err)
	}
	if tx.Status != types.TxStatusConfirmed || tx.BlockRef == nil || *tx.BlockRef != 1234 {
		t.Errorf("unexpected transaction: %+v", tx)
	}
}

func TestRetryTransaction_NotFailedConflict(t *testing.T) {
	server := createTestServerWith(ServerDeps{
		Settlement: &mockSettlementService{
			retryFunc: func(ctx context.Context, txID string) (*service.RetryResult, error) {
				return nil, apperrors.NewRetryNotAllowedError(txID, "pending")
			},
		},
	})

	w := doJSON(server, "POST", "/api/transactions/tx-1/retry", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestListTransactions_BadStatusFilter(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/api/transactions?status=bogus", nil)
	req.Header.Set("X-User-ID", "user-123")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestListTransactions_BadLimit(t *testing.T) {
	server := createTestServer()

	for _, q := range []string{"?limit=0", "?limit=-5", "?limit=5000", "?limit=abc"} {
		req := httptest.NewRequest("GET", "/api/transactions"+q, nil)
		req.Header.Set("X-User-ID", "user-123")
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, w.Code)
		}
	}
}

func TestGetBalance_InvalidAddress(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/api/wallet/nonsense/balance", nil)
	req.Header.Set("X-User-ID", "user-123")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestReconcile_ForwardsDateAndForce(t *testing.T) {
	var gotInput *service.RunInput
	server := createTestServerWith(ServerDeps{
		Reconciler: &mockReconciler{
			runFunc: func(ctx context.Context, input *service.RunInput) (*service.RunResult, error) {
				gotInput = input
				return &service.RunResult{Date: "2026-01-05", Processed: []string{"h1"}}, nil
			},
		},
	})

	w := doJSON(server, "POST", "/api/admin/reconcile", map[string]interface{}{
		"date":  "2026-01-05",
		"force": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if gotInput == nil || gotInput.AsOf == nil {
		t.Fatal("expected date forwarded to the reconciler")
	}
	if !gotInput.Force {
		t.Error("expected force flag forwarded")
	}
}

func TestGetStats(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/api/habits/h1/stats", nil)
	req.Header.Set("X-User-ID", "user-123")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var stats service.HabitStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.HabitID != "h1" || stats.CurrentStreak != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
