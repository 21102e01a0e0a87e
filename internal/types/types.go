// Package types contains shared domain types used across the service layers.
package types

import (
	"fmt"
	"strings"
	"time"
)

// TransactionType classifies a value-transfer operation in the ledger.
type TransactionType string

const (
	TxTypeStake      TransactionType = "stake"
	TxTypePunishment TransactionType = "punishment"
	TxTypeReward     TransactionType = "reward"
	TxTypeRefund     TransactionType = "refund"
)

// Valid reports whether the transaction type is one of the known values.
func (t TransactionType) Valid() bool {
	switch t {
	case TxTypeStake, TxTypePunishment, TxTypeReward, TxTypeRefund:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a ledger transaction.
// Transitions are monotonic: pending -> confirmed or pending -> failed.
// A failed transaction may be resubmitted, which moves it back to pending
// with a fresh external hash on the same record.
type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusConfirmed TransactionStatus = "confirmed"
	TxStatusFailed    TransactionStatus = "failed"
)

// Valid reports whether the status is one of the known values.
func (s TransactionStatus) Valid() bool {
	switch s {
	case TxStatusPending, TxStatusConfirmed, TxStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status ends the confirmation lifecycle.
func (s TransactionStatus) Terminal() bool {
	return s == TxStatusConfirmed || s == TxStatusFailed
}

// LogSource records which actor produced a daily log entry.
type LogSource string

const (
	SourceUser       LogSource = "user"
	SourceReconciler LogSource = "reconciler"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Schedule is the set of weekdays a habit is expected on. It is never empty
// for a valid habit.
type Schedule []time.Weekday

// weekdayNames maps accepted wire names to weekdays. Full names match the
// source data; short names are accepted for convenience.
var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sun":       time.Sunday,
	"mon":       time.Monday,
	"tue":       time.Tuesday,
	"wed":       time.Wednesday,
	"thu":       time.Thursday,
	"fri":       time.Friday,
	"sat":       time.Saturday,
}

// ParseSchedule converts weekday names into a Schedule, deduplicating and
// rejecting unknown names.
func ParseSchedule(days []string) (Schedule, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("schedule must contain at least one weekday")
	}

	seen := make(map[time.Weekday]bool)
	var schedule Schedule
	for _, day := range days {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(day))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday: %s", day)
		}
		if seen[wd] {
			continue
		}
		seen[wd] = true
		schedule = append(schedule, wd)
	}

	return schedule, nil
}

// Contains reports whether the schedule includes the given weekday.
func (s Schedule) Contains(day time.Weekday) bool {
	for _, wd := range s {
		if wd == day {
			return true
		}
	}
	return false
}

// Names returns the full weekday names for the schedule, in schedule order.
func (s Schedule) Names() []string {
	names := make([]string, len(s))
	for i, wd := range s {
		names[i] = wd.String()
	}
	return names
}

// Ints returns the schedule as integer weekdays (Sunday = 0) for storage.
func (s Schedule) Ints() []int {
	out := make([]int, len(s))
	for i, wd := range s {
		out[i] = int(wd)
	}
	return out
}

// ScheduleFromInts rebuilds a Schedule from stored integer weekdays.
func ScheduleFromInts(days []int) (Schedule, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("stored schedule is empty")
	}
	schedule := make(Schedule, len(days))
	for i, d := range days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("stored weekday out of range: %d", d)
		}
		schedule[i] = time.Weekday(d)
	}
	return schedule, nil
}

// DateOnly truncates a time to its calendar day in the given location.
// Daily logs are keyed by this value, so two timestamps on the same local
// day collapse to the same log date.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// CalendarDay truncates t to its calendar day in t's own location,
// normalized to the stored midnight-UTC form. Use it for explicitly
// supplied dates, which already name the day; DateOnly is for instants,
// where the configured day boundary decides which day it is.
func CalendarDay(t time.Time) time.Time {
	return DateOnly(t, t.Location())
}

// PrevScheduledDay returns the most recent day strictly before d whose
// weekday is in the schedule.
func PrevScheduledDay(d time.Time, schedule Schedule) time.Time {
	for {
		d = d.AddDate(0, 0, -1)
		if schedule.Contains(d.Weekday()) {
			return d
		}
	}
}

// NextScheduledDay returns the first day strictly after d whose weekday is
// in the schedule.
func NextScheduledDay(d time.Time, schedule Schedule) time.Time {
	for {
		d = d.AddDate(0, 0, 1)
		if schedule.Contains(d.Weekday()) {
			return d
		}
	}
}
