package service

import (
	"context"
	"fmt"
	"testing"

	apperrors "github.com/habit-stake/internal/errors"
	"github.com/habit-stake/internal/models"
	"github.com/shopspring/decimal"
)

// HabitStore methods for mockHabitRepo, shared with the settlement tests.

func (m *mockHabitRepo) Create(ctx context.Context, habit *models.Habit) error {
	if habit.ID == "" {
		habit.ID = fmt.Sprintf("habit-%d", len(m.habits)+1)
	}
	m.habits[habit.ID] = habit
	return nil
}

func (m *mockHabitRepo) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.Habit, error) {
	if h, ok := m.habits[id]; ok && h.OwnerID == ownerID {
		return h, nil
	}
	return nil, apperrors.NewHabitNotFoundError(id)
}

func (m *mockHabitRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Habit, error) {
	var out []*models.Habit
	for _, h := range m.habits {
		if h.OwnerID == ownerID && h.Active {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockHabitRepo) Update(ctx context.Context, habit *models.Habit) error {
	if _, ok := m.habits[habit.ID]; !ok {
		return apperrors.NewHabitNotFoundError(habit.ID)
	}
	m.habits[habit.ID] = habit
	return nil
}

func (m *mockHabitRepo) Deactivate(ctx context.Context, id, ownerID string) error {
	h, ok := m.habits[id]
	if !ok || h.OwnerID != ownerID {
		return apperrors.NewHabitNotFoundError(id)
	}
	h.Active = false
	return nil
}

func newTestHabitService(habits *mockHabitRepo, logs *mockLogRepo) *HabitService {
	return NewHabitService(habits, logs, &mockNetwork{}, HabitDefaults{
		StakeAmount: decimal.NewFromInt(5),
		Currency:    "MATIC",
	})
}

func TestCreateHabit_AppliesDefaults(t *testing.T) {
	habits := newMockHabitRepo()
	svc := newTestHabitService(habits, newMockLogRepo())

	habit, err := svc.Create(context.Background(), &CreateHabitInput{
		OwnerID:      "user-1",
		Name:         "  read ten pages  ",
		Days:         []string{"monday", "thursday"},
		OwnerAddress: testOwnerAddr,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if habit.Name != "read ten pages" {
		t.Errorf("expected trimmed name, got %q", habit.Name)
	}
	if !habit.StakeAmount.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected default stake 5, got %s", habit.StakeAmount)
	}
	if habit.Currency != "MATIC" {
		t.Errorf("expected default currency, got %q", habit.Currency)
	}
	if !habit.Active {
		t.Error("new habits must be active")
	}
	if habit.FailCount != 0 || habit.CurrentStreak != 0 || !habit.TotalStaked.IsZero() {
		t.Error("new habits must start with clean counters")
	}
}

func TestCreateHabit_Validation(t *testing.T) {
	svc := newTestHabitService(newMockHabitRepo(), newMockLogRepo())

	tests := []struct {
		name  string
		input CreateHabitInput
	}{
		{
			name:  "missing name",
			input: CreateHabitInput{Days: []string{"monday"}, OwnerAddress: testOwnerAddr},
		},
		{
			name:  "empty schedule",
			input: CreateHabitInput{Name: "x", OwnerAddress: testOwnerAddr},
		},
		{
			name:  "bad weekday",
			input: CreateHabitInput{Name: "x", Days: []string{"someday"}, OwnerAddress: testOwnerAddr},
		},
		{
			name:  "bad address",
			input: CreateHabitInput{Name: "x", Days: []string{"monday"}, OwnerAddress: "not-an-address"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.OwnerID = "user-1"
			_, err := svc.Create(context.Background(), &tt.input)
			if !apperrors.IsCategory(err, apperrors.CategoryValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	t.Run("non-positive stake", func(t *testing.T) {
		zero := decimal.Zero
		_, err := svc.Create(context.Background(), &CreateHabitInput{
			OwnerID:      "user-1",
			Name:         "x",
			Days:         []string{"monday"},
			OwnerAddress: testOwnerAddr,
			StakeAmount:  &zero,
		})
		if !apperrors.IsCategory(err, apperrors.CategoryValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestUpdateHabit_PatchSemantics(t *testing.T) {
	habit := testHabit("h1")
	habits := newMockHabitRepo(habit)
	svc := newTestHabitService(habits, newMockLogRepo())

	newName := "evening run"
	updated, err := svc.Update(context.Background(), &UpdateHabitInput{
		HabitID: "h1",
		OwnerID: "user-1",
		Name:    &newName,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "evening run" {
		t.Errorf("expected updated name, got %q", updated.Name)
	}
	// Untouched fields survive.
	if !updated.StakeAmount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("stake amount must be unchanged, got %s", updated.StakeAmount)
	}
	if len(updated.Schedule) != 7 {
		t.Errorf("schedule must be unchanged, got %v", updated.Schedule)
	}
}

func TestUpdateHabit_InactiveRejected(t *testing.T) {
	habit := testHabit("h1")
	habit.Active = false
	habits := newMockHabitRepo(habit)
	svc := newTestHabitService(habits, newMockLogRepo())

	newName := "x"
	_, err := svc.Update(context.Background(), &UpdateHabitInput{HabitID: "h1", OwnerID: "user-1", Name: &newName})
	if !apperrors.IsCategory(err, apperrors.CategoryValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDeleteHabit_SoftDeletes(t *testing.T) {
	habit := testHabit("h1")
	habits := newMockHabitRepo(habit)
	svc := newTestHabitService(habits, newMockLogRepo())

	if err := svc.Delete(context.Background(), "h1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if habit.Active {
		t.Error("expected habit deactivated")
	}

	// History survives: the record is still there.
	if _, ok := habits.habits["h1"]; !ok {
		t.Error("soft delete must keep the record")
	}
}

func TestGetHabit_IncludesRecentLogs(t *testing.T) {
	habit := testHabit("h1")
	habits := newMockHabitRepo(habit)
	logs := newMockLogRepo()
	svc := newTestHabitService(habits, logs)

	for i := 0; i < 3; i++ {
		logs.Create(context.Background(), &models.DailyLog{HabitID: "h1", LogDate: day(i), Completed: true})
	}

	view, err := svc.Get(context.Background(), "h1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Habit.ID != "h1" {
		t.Errorf("unexpected habit: %+v", view.Habit)
	}
	if len(view.RecentLogs) != 3 {
		t.Errorf("expected 3 recent logs, got %d", len(view.RecentLogs))
	}

	if _, err := svc.Get(context.Background(), "h1", "intruder"); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found for wrong owner, got %v", err)
	}
}
