package service

import (
	"context"
	"time"

	apperrors "github.com/habit-stake/internal/errors"
	"github.com/habit-stake/internal/logging"
	"github.com/habit-stake/internal/models"
	"github.com/habit-stake/internal/types"
)

// autoFailNotes is written on logs the sweep synthesizes.
const autoFailNotes = "auto-failed: not logged"

// ScheduledHabitLister lists the habits a sweep must inspect
type ScheduledHabitLister interface {
	ListActiveByWeekday(ctx context.Context, weekday time.Weekday) ([]*models.Habit, error)
}

// SweepMarker records completed sweeps, used only to suppress duplicate
// scheduler fires. May be nil.
type SweepMarker interface {
	RecordSweep(ctx context.Context, date string) bool
}

// ReconciliationService converts "no log by cutoff" into an explicit
// failure for every active habit scheduled on the sweep date.
type ReconciliationService struct {
	habits     ScheduledHabitLister
	settlement *SettlementService
	marker     SweepMarker
	location   *time.Location
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(habits ScheduledHabitLister, settlement *SettlementService, marker SweepMarker, location *time.Location) *ReconciliationService {
	if location == nil {
		location = time.UTC
	}
	return &ReconciliationService{
		habits:     habits,
		settlement: settlement,
		marker:     marker,
		location:   location,
	}
}

// RunInput controls one sweep
type RunInput struct {
	// AsOf defaults to today at the configured day boundary.
	AsOf *time.Time
	// Force runs the sweep even when the date is already marked as swept.
	// The sweep is conflict-safe either way; the marker only exists to
	// short-circuit duplicate scheduler fires.
	Force bool
}

// RunResult reports what a sweep did
type RunResult struct {
	Date string `json:"date"`
	// Processed lists habits for which this sweep wrote the failure log.
	Processed []string `json:"processed"`
	// AlreadyLogged lists habits the user beat the sweep to.
	AlreadyLogged []string `json:"alreadyLogged"`
	// SettlementPending lists processed habits whose stake submission
	// failed; their failed transactions are candidates for retry.
	SettlementPending []string `json:"settlementPending,omitempty"`
	Skipped           bool     `json:"skipped,omitempty"`
}

// Run sweeps every active habit scheduled on the sweep date. A habit whose
// day is already logged surfaces as a ConflictError from the settlement
// engine and is treated as success: the user acted first. That conflict
// handling is what makes the sweep idempotent and safe to run concurrently
// with interactive logging or a second sweep.
func (s *ReconciliationService) Run(ctx context.Context, input *RunInput) (*RunResult, error) {
	logger := logging.FromContext(ctx)

	asOf := types.DateOnly(time.Now(), s.location)
	if input != nil && input.AsOf != nil {
		asOf = types.CalendarDay(*input.AsOf)
	}
	date := asOf.Format(time.DateOnly)

	result := &RunResult{Date: date}
	if s.marker != nil && !input.forced() {
		if !s.marker.RecordSweep(ctx, date) {
			logger.WithField("date", date).Info("reconciliation already ran for date, skipping")
			result.Skipped = true
			return result, nil
		}
	}

	habits, err := s.habits.ListActiveByWeekday(ctx, asOf.Weekday())
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"date":   date,
		"habits": len(habits),
	}).Info("running reconciliation sweep")

	for _, habit := range habits {
		logged, err := s.settlement.Log(ctx, &LogInput{
			HabitID:   habit.ID,
			Date:      &asOf,
			Completed: false,
			Notes:     autoFailNotes,
			Source:    types.SourceReconciler,
		})
		switch {
		case err == nil:
			result.Processed = append(result.Processed, habit.ID)
			if logged.SettlementPending {
				result.SettlementPending = append(result.SettlementPending, habit.ID)
			}
		case apperrors.IsConflict(err):
			// Already logged today, nothing to reconcile.
			result.AlreadyLogged = append(result.AlreadyLogged, habit.ID)
		default:
			// One habit's failure must not starve the rest of the sweep.
			logger.WithError(err).WithField("habitId", habit.ID).Error("reconciliation failed for habit")
		}
	}

	logger.WithFields(map[string]interface{}{
		"date":              date,
		"processed":         len(result.Processed),
		"alreadyLogged":     len(result.AlreadyLogged),
		"settlementPending": len(result.SettlementPending),
	}).Info("reconciliation sweep complete")

	return result, nil
}

func (in *RunInput) forced() bool {
	return in != nil && in.Force
}
