package models

import (
	"time"

	"github.com/habit-stake/internal/types"
	"github.com/shopspring/decimal"
)

// Transaction records one value-transfer attempt against the settlement
// network and its confirmation lifecycle. The record is created in pending
// status synchronously with the daily log that triggered it; confirmation
// happens out of band and never blocks the creating request.
type Transaction struct {
	ID      string  `json:"id"`
	HabitID string  `json:"habitId"`
	LogID   *string `json:"logId,omitempty"`

	Type     types.TransactionType `json:"type"`
	Amount   decimal.Decimal       `json:"amount"`
	Currency string                `json:"currency"`

	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`

	// ExternalHash is nil until the transfer has been submitted. A retry
	// after failure replaces it with the fresh submission's hash while
	// keeping this record's identity, so history stays auditable.
	ExternalHash *string                 `json:"externalHash,omitempty"`
	Status       types.TransactionStatus `json:"status"`
	BlockRef     *uint64                 `json:"blockRef,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}

// Submitted reports whether the transfer has reached the settlement network.
func (t *Transaction) Submitted() bool {
	return t.ExternalHash != nil && *t.ExternalHash != ""
}
