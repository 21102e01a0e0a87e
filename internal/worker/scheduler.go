package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/habit-stake/internal/logging"
	"github.com/habit-stake/internal/service"
	"github.com/robfig/cron/v3"
)

// Scheduler fires the reconciliation sweep once per day after the cutoff
// time. The clock is injectable so tests can simulate "today" without
// waiting for a cron tick.
type Scheduler struct {
	cron       *cron.Cron
	reconciler *service.ReconciliationService
	spec       string
	now        func() time.Time
}

// SchedulerConfig holds configuration for the scheduler
type SchedulerConfig struct {
	CronSpec   string
	Location   *time.Location
	Reconciler *service.ReconciliationService
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *SchedulerConfig) (*Scheduler, error) {
	if cfg.Reconciler == nil {
		return nil, fmt.Errorf("reconciler cannot be nil")
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		reconciler: cfg.Reconciler,
		spec:       cfg.CronSpec,
		now:        now,
	}, nil
}

// Start registers the sweep and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid reconciliation cron spec %q: %w", s.spec, err)
	}

	s.cron.Start()
	logging.FromContext(ctx).WithField("cron", s.spec).Info("reconciliation scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for a running sweep to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs a single sweep for the scheduler's current day
func (s *Scheduler) RunOnce(ctx context.Context) {
	asOf := s.now()
	if _, err := s.reconciler.Run(ctx, &service.RunInput{AsOf: &asOf}); err != nil {
		logging.FromContext(ctx).WithError(err).Error("scheduled reconciliation failed")
	}
}
