// Package models defines the persistent entities of the habit stake service.
package models

import (
	"time"

	"github.com/habit-stake/internal/types"
	"github.com/shopspring/decimal"
)

// Habit represents a recurring commitment with a pledged stake. Running
// totals and streak counters are mutated only by the settlement engine and
// explicit edit operations. Habits are soft-deleted (Active=false) so logs
// and transactions keep referential validity.
type Habit struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"ownerId"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Schedule    types.Schedule `json:"schedule"`
	// OwnerAddress is where rewards are paid and stakes are drawn from.
	OwnerAddress string          `json:"ownerAddress"`
	StakeAmount  decimal.Decimal `json:"stakeAmount"`
	Currency     string          `json:"currency"`
	Active       bool            `json:"active"`

	CurrentStreak int `json:"currentStreak"`
	LongestStreak int `json:"longestStreak"`
	// FailCount is the strike counter driving punishment escalation.
	// It only ever holds 0 or 1: the second strike forfeits and resets.
	FailCount int `json:"failCount"`

	// TotalStaked is the balance currently at risk. TotalPunished and
	// TotalRewarded are cumulative. All three reflect transactions at
	// submission time, so an unconfirmed transfer is already counted.
	TotalStaked   decimal.Decimal `json:"totalStaked"`
	TotalPunished decimal.Decimal `json:"totalPunished"`
	TotalRewarded decimal.Decimal `json:"totalRewarded"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ScheduledOn reports whether the habit is expected on the given day.
func (h *Habit) ScheduledOn(day time.Time) bool {
	return h.Schedule.Contains(day.Weekday())
}
