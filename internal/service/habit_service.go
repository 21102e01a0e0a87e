package service

import (
	"context"
	"strings"

	"github.com/habit-stake/internal/chain"
	apperrors "github.com/habit-stake/internal/errors"
	"github.com/habit-stake/internal/models"
	"github.com/habit-stake/internal/types"
	"github.com/shopspring/decimal"
)

// HabitStore is the full habit persistence surface for CRUD operations
type HabitStore interface {
	Create(ctx context.Context, habit *models.Habit) error
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*models.Habit, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Habit, error)
	Update(ctx context.Context, habit *models.Habit) error
	Deactivate(ctx context.Context, id, ownerID string) error
}

// HabitLogReader provides recent logs for habit views
type HabitLogReader interface {
	ListByHabit(ctx context.Context, habitID string, limit int) ([]*models.DailyLog, error)
}

// HabitDefaults are applied when creation input omits optional fields
type HabitDefaults struct {
	StakeAmount decimal.Decimal
	Currency    string
}

// HabitService handles habit lifecycle operations
type HabitService struct {
	habits   HabitStore
	logs     HabitLogReader
	network  chain.SettlementNetwork
	defaults HabitDefaults
}

// NewHabitService creates a new habit service
func NewHabitService(habits HabitStore, logs HabitLogReader, network chain.SettlementNetwork, defaults HabitDefaults) *HabitService {
	return &HabitService{
		habits:   habits,
		logs:     logs,
		network:  network,
		defaults: defaults,
	}
}

// CreateHabitInput represents input for creating a habit
type CreateHabitInput struct {
	OwnerID      string           `json:"-"`
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	Days         []string         `json:"daysOfWeek"`
	OwnerAddress string           `json:"ownerAddress"`
	StakeAmount  *decimal.Decimal `json:"stakeAmount,omitempty"`
	Currency     string           `json:"currency,omitempty"`
}

// Create validates and persists a new habit
func (s *HabitService) Create(ctx context.Context, input *CreateHabitInput) (*models.Habit, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("habit name is required", nil)
	}

	schedule, err := types.ParseSchedule(input.Days)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]interface{}{
			"daysOfWeek": input.Days,
		})
	}

	if !s.network.ValidateAddress(input.OwnerAddress) {
		return nil, apperrors.NewValidationError("a valid wallet address is required before staking", map[string]interface{}{
			"ownerAddress": input.OwnerAddress,
		})
	}

	stake := s.defaults.StakeAmount
	if input.StakeAmount != nil {
		stake = *input.StakeAmount
	}
	if stake.Sign() <= 0 {
		return nil, apperrors.NewValidationError("stake amount must be positive", map[string]interface{}{
			"stakeAmount": stake.String(),
		})
	}

	currency := input.Currency
	if currency == "" {
		currency = s.defaults.Currency
	}

	habit := &models.Habit{
		OwnerID:       input.OwnerID,
		Name:          name,
		Description:   strings.TrimSpace(input.Description),
		Schedule:      schedule,
		OwnerAddress:  input.OwnerAddress,
		StakeAmount:   stake,
		Currency:      currency,
		Active:        true,
		TotalStaked:   decimal.Zero,
		TotalPunished: decimal.Zero,
		TotalRewarded: decimal.Zero,
	}

	if err := s.habits.Create(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

// HabitView is a habit with its recent log history
type HabitView struct {
	Habit      *models.Habit      `json:"habit"`
	RecentLogs []*models.DailyLog `json:"recentLogs"`
}

// Get returns one habit with its recent logs
func (s *HabitService) Get(ctx context.Context, habitID, ownerID string) (*HabitView, error) {
	habit, err := s.habits.GetByIDAndOwner(ctx, habitID, ownerID)
	if err != nil {
		return nil, err
	}

	logs, err := s.logs.ListByHabit(ctx, habitID, RewardStreakThreshold)
	if err != nil {
		return nil, err
	}

	return &HabitView{Habit: habit, RecentLogs: logs}, nil
}

// List returns the owner's active habits
func (s *HabitService) List(ctx context.Context, ownerID string) ([]*models.Habit, error) {
	return s.habits.ListByOwner(ctx, ownerID)
}

// UpdateHabitInput represents input for editing a habit
type UpdateHabitInput struct {
	HabitID      string           `json:"-"`
	OwnerID      string           `json:"-"`
	Name         *string          `json:"name,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Days         []string         `json:"daysOfWeek,omitempty"`
	OwnerAddress *string          `json:"ownerAddress,omitempty"`
	StakeAmount  *decimal.Decimal `json:"stakeAmount,omitempty"`
}

// Update edits a habit's configuration. Settlement counters are owned by
// the settlement engine and cannot be edited here.
func (s *HabitService) Update(ctx context.Context, input *UpdateHabitInput) (*models.Habit, error) {
	habit, err := s.habits.GetByIDAndOwner(ctx, input.HabitID, input.OwnerID)
	if err != nil {
		return nil, err
	}
	if !habit.Active {
		return nil, apperrors.NewHabitInactiveError(habit.ID)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("habit name cannot be empty", nil)
		}
		habit.Name = name
	}
	if input.Description != nil {
		habit.Description = strings.TrimSpace(*input.Description)
	}
	if len(input.Days) > 0 {
		schedule, err := types.ParseSchedule(input.Days)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error(), map[string]interface{}{
				"daysOfWeek": input.Days,
			})
		}
		habit.Schedule = schedule
	}
	if input.OwnerAddress != nil {
		if !s.network.ValidateAddress(*input.OwnerAddress) {
			return nil, apperrors.NewValidationError("invalid wallet address", map[string]interface{}{
				"ownerAddress": *input.OwnerAddress,
			})
		}
		habit.OwnerAddress = *input.OwnerAddress
	}
	if input.StakeAmount != nil {
		if input.StakeAmount.Sign() <= 0 {
			return nil, apperrors.NewValidationError("stake amount must be positive", nil)
		}
		habit.StakeAmount = *input.StakeAmount
	}

	if err := s.habits.Update(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

// Delete soft-deletes a habit so its history stays intact
func (s *HabitService) Delete(ctx context.Context, habitID, ownerID string) error {
	return s.habits.Deactivate(ctx, habitID, ownerID)
}
