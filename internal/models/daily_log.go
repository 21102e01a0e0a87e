package models

import (
	"time"

	"github.com/habit-stake/internal/types"
)

// DailyLog is the immutable record of one (habit, calendar day) outcome.
// At most one row may exist per pair; the database uniqueness constraint on
// (habit_id, log_date) is the system's serialization point for concurrent
// writers. Completed and LogDate never change after creation; only the
// settlement flags are updated afterwards.
type DailyLog struct {
	ID      string `json:"id"`
	HabitID string `json:"habitId"`
	// LogDate is the owner-local calendar day, stored at midnight UTC.
	LogDate   time.Time `json:"date"`
	Completed bool      `json:"completed"`
	Notes     string    `json:"notes,omitempty"`
	// StreakAtLog snapshots the habit's streak after this log was applied.
	StreakAtLog         int             `json:"streakAtLog"`
	PunishmentTriggered bool            `json:"punishmentTriggered"`
	RewardTriggered     bool            `json:"rewardTriggered"`
	Source              types.LogSource `json:"source"`
	LoggedAt            time.Time       `json:"loggedAt"`
}
