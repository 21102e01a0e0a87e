// Package service implements the habit accountability and settlement logic.
package service

import (
	"github.com/habit-stake/internal/models"
	"github.com/habit-stake/internal/types"
)

// RecomputeStreaks derives the current and longest streak from a habit's
// schedule and its full log history ordered most-recent-first.
//
// Continuity is judged over scheduled days only: a habit checked every
// Monday, Wednesday and Friday routinely has one- and two-day calendar gaps
// that must not break the streak. The streak terminates at the first
// incomplete log, or at the first scheduled day with no log at all.
func RecomputeStreaks(schedule types.Schedule, logsDesc []*models.DailyLog) (current, longest int) {
	current = currentStreak(schedule, logsDesc)
	longest = longestStreak(schedule, logsDesc)
	if current > longest {
		longest = current
	}
	return current, longest
}

func currentStreak(schedule types.Schedule, logsDesc []*models.DailyLog) int {
	if len(logsDesc) == 0 {
		return 0
	}
	if !logsDesc[0].Completed {
		return 0
	}

	streak := 1
	for i := 1; i < len(logsDesc); i++ {
		expected := types.PrevScheduledDay(logsDesc[i-1].LogDate, schedule)
		if !logsDesc[i].LogDate.Equal(expected) {
			// Missing log on the preceding scheduled day.
			break
		}
		if !logsDesc[i].Completed {
			break
		}
		streak++
	}

	return streak
}

// longestStreak walks the history oldest-first, tracking the longest run of
// completions on consecutive scheduled days ever observed.
func longestStreak(schedule types.Schedule, logsDesc []*models.DailyLog) int {
	longest, run := 0, 0
	// Iterate oldest-first without copying.
	for i := len(logsDesc) - 1; i >= 0; i-- {
		log := logsDesc[i]
		if !log.Completed {
			run = 0
			continue
		}

		if run > 0 {
			prev := logsDesc[i+1]
			if log.LogDate.Equal(types.NextScheduledDay(prev.LogDate, schedule)) {
				run++
			} else {
				run = 1
			}
		} else {
			run = 1
		}

		if run > longest {
			longest = run
		}
	}

	return longest
}
