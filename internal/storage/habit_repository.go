package storage

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/habit-stake/internal/errors"
	"github.com/habit-stake/internal/models"
	"github.com/habit-stake/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// HabitRepository handles habit persistence
type HabitRepository struct {
	db *PostgresDB
}

// NewHabitRepository creates a new habit repository
func NewHabitRepository(db *PostgresDB) *HabitRepository {
	return &HabitRepository{db: db}
}

const habitColumns = `
	id, owner_id, name, description, schedule_days, owner_address,
	stake_amount, currency, active, current_streak, longest_streak,
	fail_count, total_staked, total_punished, total_rewarded,
	created_at, updated_at
`

// Create creates a new habit
func (r *HabitRepository) Create(ctx context.Context, habit *models.Habit) error {
	if habit.ID == "" {
		habit.ID = uuid.New().String()
	}

	now := time.Now()
	habit.CreatedAt = now
	habit.UpdatedAt = now

	query := `
		INSERT INTO habits (
			id, owner_id, name, description, schedule_days, owner_address,
			stake_amount, currency, active, current_streak, longest_streak,
			fail_count, total_staked, total_punished, total_rewarded,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		habit.ID,
		habit.OwnerID,
		habit.Name,
		habit.Description,
		habit.Schedule.Ints(),
		habit.OwnerAddress,
		habit.StakeAmount,
		habit.Currency,
		habit.Active,
		habit.CurrentStreak,
		habit.LongestStreak,
		habit.FailCount,
		habit.TotalStaked,
		habit.TotalPunished,
		habit.TotalRewarded,
		habit.CreatedAt,
		habit.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewPersistenceError("create habit", err)
	}

	return nil
}

// GetByID retrieves a habit by ID
func (r *HabitRepository) GetByID(ctx context.Context, id string) (*models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1`

	habit, err := r.scanHabit(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewHabitNotFoundError(id)
		}
		return nil, apperrors.NewPersistenceError("get habit", err)
	}

	return habit, nil
}

// GetByIDAndOwner retrieves a habit owned by the given user
func (r *HabitRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1 AND owner_id = $2`

	habit, err := r.scanHabit(r.db.Pool().QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewHabitNotFoundError(id)
		}
		return nil, apperrors.NewPersistenceError("get habit", err)
	}

	return habit, nil
}

// ListByOwner lists all active habits for an owner, newest first
func (r *HabitRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Habit, error) {
	query := `
		SELECT ` + habitColumns + `
		FROM habits
		WHERE owner_id = $1 AND active
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, ownerID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list habits", err)
	}
	defer rows.Close()

	return r.collectHabits(rows)
}

// ListActiveByWeekday lists all active habits scheduled on the given weekday.
// Used by the reconciliation sweep.
func (r *HabitRepository) ListActiveByWeekday(ctx context.Context, weekday time.Weekday) ([]*models.Habit, error) {
	query := `
		SELECT ` + habitColumns + `
		FROM habits
		WHERE active AND $1 = ANY (schedule_days)
		ORDER BY created_at
	`

	rows, err := r.db.Pool().Query(ctx, query, int(weekday))
	if err != nil {
		return nil, apperrors.NewPersistenceError("list habits by weekday", err)
	}
	defer rows.Close()

	return r.collectHabits(rows)
}

// Update persists editable habit fields (name, description, schedule, stake)
func (r *HabitRepository) Update(ctx context.Context, habit *models.Habit) error {
	habit.UpdatedAt = time.Now()

	query := `
		UPDATE habits
		SET name = $2, description = $3, schedule_days = $4,
		    owner_address = $5, stake_amount = $6, updated_at = $7
		WHERE id = $1 AND active
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		habit.ID,
		habit.Name,
		habit.Description,
		habit.Schedule.Ints(),
		habit.OwnerAddress,
		habit.StakeAmount,
		habit.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewPersistenceError("update habit", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewHabitNotFoundError(habit.ID)
	}

	return nil
}

// UpdateSettlement persists the counters the settlement engine mutates:
// streaks, strike count and running totals.
func (r *HabitRepository) UpdateSettlement(ctx context.Context, habit *models.Habit) error {
	habit.UpdatedAt = time.Now()

	query := `
		UPDATE habits
		SET current_streak = $2, longest_streak = $3, fail_count = $4,
		    total_staked = $5, total_punished = $6, total_rewarded = $7,
		    updated_at = $8
		WHERE id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		habit.ID,
		habit.CurrentStreak,
		habit.LongestStreak,
		habit.FailCount,
		habit.TotalStaked,
		habit.TotalPunished,
		habit.TotalRewarded,
		habit.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewPersistenceError("update habit settlement", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewHabitNotFoundError(habit.ID)
	}

	return nil
}

// Deactivate soft-deletes a habit. Logs and transactions keep referencing it.
func (r *HabitRepository) Deactivate(ctx context.Context, id, ownerID string) error {
	query := `
		UPDATE habits
		SET active = FALSE, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND active
	`

	tag, err := r.db.Pool().Exec(ctx, query, id, ownerID)
	if err != nil {
		return apperrors.NewPersistenceError("deactivate habit", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewHabitNotFoundError(id)
	}

	return nil
}

func (r *HabitRepository) scanHabit(row pgx.Row) (*models.Habit, error) {
	var habit models.Habit
	var days []int32

	err := row.Scan(
		&habit.ID,
		&habit.OwnerID,
		&habit.Name,
		&habit.Description,
		&days,
		&habit.OwnerAddress,
		&habit.StakeAmount,
		&habit.Currency,
		&habit.Active,
		&habit.CurrentStreak,
		&habit.LongestStreak,
		&habit.FailCount,
		&habit.TotalStaked,
		&habit.TotalPunished,
		&habit.TotalRewarded,
		&habit.CreatedAt,
		&habit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ints := make([]int, len(days))
	for i, d := range days {
		ints[i] = int(d)
	}
	schedule, err := types.ScheduleFromInts(ints)
	if err != nil {
		return nil, err
	}
	habit.Schedule = schedule

	return &habit, nil
}

func (r *HabitRepository) collectHabits(rows pgx.Rows) ([]*models.Habit, error) {
	var habits []*models.Habit
	for rows.Next() {
		habit, err := r.scanHabit(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError("scan habit", err)
		}
		habits = append(habits, habit)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterate habits", err)
	}
	return habits, nil
}
