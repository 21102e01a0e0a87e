package worker

import (
	"context"
	"testing"
	"time"

	"github.com/habit-stake/internal/service"
)

func TestNewScheduler_RequiresReconciler(t *testing.T) {
	_, err := NewScheduler(&SchedulerConfig{CronSpec: "0 21 * * *"})
	if err == nil {
		t.Fatal("expected error for nil reconciler")
	}
}

func TestScheduler_RejectsBadCronSpec(t *testing.T) {
	reconciler := service.NewReconciliationService(nil, nil, nil, time.UTC)

	s, err := NewScheduler(&SchedulerConfig{CronSpec: "not a cron spec", Reconciler: reconciler})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail on a bad cron spec")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	reconciler := service.NewReconciliationService(nil, nil, nil, time.UTC)

	s, err := NewScheduler(&SchedulerConfig{CronSpec: "0 21 * * *", Reconciler: reconciler})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()
}
