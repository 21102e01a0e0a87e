package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/habit-stake/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryValidation represents malformed input, inactive habits and
	// off-schedule days; rejected before any write
	CategoryValidation ErrorCategory = "validation"
	// CategoryConflict represents duplicate daily logs and illegal status
	// transitions; no state change occurred
	CategoryConflict ErrorCategory = "conflict"
	// CategoryNotFound represents unknown habits or transactions
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryExternal represents settlement-network submission or query
	// failures; non-fatal to accountability state
	CategoryExternal ErrorCategory = "external"
	// CategoryPersistence represents store failures; the whole operation
	// aborts and nothing is committed
	CategoryPersistence ErrorCategory = "persistence"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// IsCategory reports whether err is a CategorizedError of the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var ce *CategorizedError
	if stderrors.As(err, &ce) {
		return ce.Category == category
	}
	return false
}

// IsConflict reports whether err is a conflict error. Callers racing on the
// daily-log uniqueness constraint use this to detect the losing write.
func IsConflict(err error) bool {
	return IsCategory(err, CategoryConflict)
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}

// IsExternal reports whether err came from the settlement network.
func IsExternal(err error) bool {
	return IsCategory(err, CategoryExternal)
}

// Validation errors (400)

// NewValidationError creates a generic validation error
func NewValidationError(message string, details map[string]interface{}) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
		Message:    message,
		Details:    details,
	}
}

// NewOffScheduleError creates an error for a log on an unscheduled weekday
func NewOffScheduleError(weekday string, schedule []string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "DAY_NOT_SCHEDULED",
		Message:    fmt.Sprintf("%s is not a scheduled day for this habit", weekday),
		Details: map[string]interface{}{
			"weekday":  weekday,
			"schedule": schedule,
		},
	}
}

// NewHabitInactiveError creates an error for operations on a soft-deleted habit
func NewHabitInactiveError(habitID string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "HABIT_INACTIVE",
		Message:    "habit is no longer active",
		Details: map[string]interface{}{
			"habitId": habitID,
		},
	}
}

// Conflict errors (409)

// NewDuplicateLogError creates an error for a second log on the same day.
// First recorded outcome wins; the duplicate writer gets this error and
// performs no further mutation.
func NewDuplicateLogError(habitID, date string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusConflict,
		Code:       "LOG_ALREADY_EXISTS",
		Message:    fmt.Sprintf("a log already exists for %s", date),
		Details: map[string]interface{}{
			"habitId": habitID,
			"date":    date,
		},
	}
}

// NewTerminalStatusError creates an error for a transition out of a terminal
// transaction status
func NewTerminalStatusError(txID, status string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusConflict,
		Code:       "STATUS_TERMINAL",
		Message:    fmt.Sprintf("transaction is already %s", status),
		Details: map[string]interface{}{
			"transactionId": txID,
			"status":        status,
		},
	}
}

// NewRetryNotAllowedError creates an error for retrying a transaction that is
// not in failed status
func NewRetryNotAllowedError(txID, status string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusConflict,
		Code:       "RETRY_NOT_ALLOWED",
		Message:    fmt.Sprintf("only failed transactions can be retried, current status is %s", status),
		Details: map[string]interface{}{
			"transactionId": txID,
			"status":        status,
		},
	}
}

// Not found errors (404)

// NewHabitNotFoundError creates a habit not found error
func NewHabitNotFoundError(habitID string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "HABIT_NOT_FOUND",
		Message:    fmt.Sprintf("habit not found: %s", habitID),
	}
}

// NewTransactionNotFoundError creates a transaction not found error
func NewTransactionNotFoundError(txID string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "TRANSACTION_NOT_FOUND",
		Message:    fmt.Sprintf("transaction not found: %s", txID),
	}
}

// External errors (502)

// NewSettlementNetworkError creates an error for a failed settlement-network
// call. The daily log that triggered it stays committed; the caller can
// retry settlement later.
func NewSettlementNetworkError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryExternal,
		StatusCode: http.StatusBadGateway,
		Code:       "SETTLEMENT_NETWORK_ERROR",
		Message:    fmt.Sprintf("settlement network %s failed", operation),
		Details: map[string]interface{}{
			"operation": operation,
		},
		Cause: cause,
	}
}

// Persistence errors (500)

// NewPersistenceError creates an error for a store failure
func NewPersistenceError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryPersistence,
		StatusCode: http.StatusInternalServerError,
		Code:       "PERSISTENCE_ERROR",
		Message:    fmt.Sprintf("storage operation failed: %s", operation),
		Cause:      cause,
	}
}
