package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCategorizedError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewSettlementNetworkError("submit transfer", cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}

	var ce *CategorizedError
	if !stderrors.As(fmt.Errorf("wrapped: %w", err), &ce) {
		t.Fatal("expected As to find the categorized error through wrapping")
	}
	if ce.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", ce.StatusCode)
	}
}

func TestCategoryHelpers(t *testing.T) {
	tests := []struct {
		err      error
		conflict bool
		notFound bool
		external bool
	}{
		{err: NewDuplicateLogError("h1", "2026-01-05"), conflict: true},
		{err: NewTerminalStatusError("tx-1", "confirmed"), conflict: true},
		{err: NewRetryNotAllowedError("tx-1", "pending"), conflict: true},
		{err: NewHabitNotFoundError("h1"), notFound: true},
		{err: NewTransactionNotFoundError("tx-1"), notFound: true},
		{err: NewSettlementNetworkError("query", nil), external: true},
		{err: fmt.Errorf("plain error")},
	}

	for _, tt := range tests {
		if got := IsConflict(tt.err); got != tt.conflict {
			t.Errorf("IsConflict(%v) = %v, want %v", tt.err, got, tt.conflict)
		}
		if got := IsNotFound(tt.err); got != tt.notFound {
			t.Errorf("IsNotFound(%v) = %v, want %v", tt.err, got, tt.notFound)
		}
		if got := IsExternal(tt.err); got != tt.external {
			t.Errorf("IsExternal(%v) = %v, want %v", tt.err, got, tt.external)
		}
	}
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *CategorizedError
		code int
	}{
		{NewValidationError("bad", nil), http.StatusBadRequest},
		{NewOffScheduleError("Tuesday", []string{"Monday"}), http.StatusBadRequest},
		{NewHabitInactiveError("h1"), http.StatusBadRequest},
		{NewDuplicateLogError("h1", "2026-01-05"), http.StatusConflict},
		{NewHabitNotFoundError("h1"), http.StatusNotFound},
		{NewPersistenceError("insert", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if tt.err.StatusCode != tt.code {
			t.Errorf("%s: expected %d, got %d", tt.err.Code, tt.code, tt.err.StatusCode)
		}
	}
}

func TestToServiceError(t *testing.T) {
	err := NewDuplicateLogError("h1", "2026-01-05")
	se := err.ToServiceError()

	if se.Code != err.Code || se.Message != err.Message {
		t.Errorf("service error mismatch: %+v vs %+v", se, err)
	}
	if se.Details["habitId"] != "h1" {
		t.Errorf("expected details carried over, got %v", se.Details)
	}
}
