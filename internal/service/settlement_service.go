package service

import (
	"context"
	"time"

	"github.com/habit-stake/internal/chain"
	apperrors "github.com/habit-stake/internal/errors"
	"github.com/habit-stake/internal/logging"
	"github.com/habit-stake/internal/models"
	"github.com/habit-stake/internal/storage"
	"github.com/habit-stake/internal/types"
	"github.com/shopspring/decimal"
)

// Repository interfaces for dependency injection

// HabitRepository is the habit persistence surface the engine needs
type HabitRepository interface {
	GetByID(ctx context.Context, id string) (*models.Habit, error)
	UpdateSettlement(ctx context.Context, habit *models.Habit) error
}

// LogRepository is the daily-log persistence surface
type LogRepository interface {
	Create(ctx context.Context, log *models.DailyLog) error
	UpdateSettlementFlags(ctx context.Context, log *models.DailyLog) error
	ListByHabit(ctx context.Context, habitID string, limit int) ([]*models.DailyLog, error)
	CountByHabit(ctx context.Context, habitID string) (total, completed int, err error)
}

// TransactionRepository is the ledger persistence surface
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	List(ctx context.Context, filters *storage.TransactionFilters) ([]*models.Transaction, error)
	SetExternalHash(ctx context.Context, id, hash string) error
	Finalize(ctx context.Context, id string, status types.TransactionStatus, blockRef *uint64) (*models.Transaction, error)
	MarkRetried(ctx context.Context, id, newHash string) (*models.Transaction, error)
}

// StatsCache is the optional read-side cache surface
type StatsCache interface {
	Get(ctx context.Context, habitID string, dest interface{}) bool
	Set(ctx context.Context, habitID string, stats interface{})
	Invalidate(ctx context.Context, habitID string)
}

// SettlementConfig carries the policy parameters
type SettlementConfig struct {
	CharityAddress string
	RewardBonus    decimal.Decimal
	// Location defines the owner-local day boundary for default log dates.
	Location *time.Location
}

// SettlementService drives a daily log event through streak update, policy
// evaluation and transaction issuance. Per event at most one policy applies
// and at most one transaction is issued.
type SettlementService struct {
	habits  HabitRepository
	logs    LogRepository
	txs     TransactionRepository
	network chain.SettlementNetwork
	cache   StatsCache
	cfg     SettlementConfig
}

// NewSettlementService creates a new settlement service. cache may be nil.
func NewSettlementService(
	habits HabitRepository,
	logs LogRepository,
	txs TransactionRepository,
	network chain.SettlementNetwork,
	cache StatsCache,
	cfg SettlementConfig,
) *SettlementService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &SettlementService{
		habits:  habits,
		logs:    logs,
		txs:     txs,
		network: network,
		cache:   cache,
		cfg:     cfg,
	}
}

// LogInput is one daily log event
type LogInput struct {
	HabitID string
	// OwnerID, when set, must match the habit's owner.
	OwnerID string
	// Date defaults to today at the configured day boundary.
	Date      *time.Time
	Completed bool
	Notes     string
	Source    types.LogSource
}

// LogResult is the outcome of a settled log event
type LogResult struct {
	Log         *models.DailyLog    `json:"log"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Habit       *models.Habit       `json:"habit"`
	// SettlementPending is true when the transaction record was written
	// but the external submission failed. The log stands; the caller can
	// retry the transaction independently.
	SettlementPending bool                `json:"settlementPending,omitempty"`
	SettlementError   *types.ServiceError `json:"settlementError,omitempty"`
}

// Log records a daily outcome and settles it.
//
// The daily-log insert is the single serialization point: when the user and
// the reconciliation sweep race, exactly one insert succeeds and the loser
// gets a ConflictError having mutated nothing. Once the insert succeeds no
// later failure undoes it: accountability state is authoritative
// regardless of whether value moved.
func (s *SettlementService) Log(ctx context.Context, input *LogInput) (*LogResult, error) {
	habit, err := s.habits.GetByID(ctx, input.HabitID)
	if err != nil {
		return nil, err
	}
	if input.OwnerID != "" && habit.OwnerID != input.OwnerID {
		return nil, apperrors.NewHabitNotFoundError(input.HabitID)
	}
	if !habit.Active {
		return nil, apperrors.NewHabitInactiveError(habit.ID)
	}

	// An explicit date names the calendar day directly; only the "today"
	// default depends on the configured day boundary.
	date := types.DateOnly(time.Now(), s.cfg.Location)
	if input.Date != nil {
		date = types.CalendarDay(*input.Date)
	}
	if !habit.ScheduledOn(date) {
		return nil, apperrors.NewOffScheduleError(date.Weekday().String(), habit.Schedule.Names())
	}

	source := input.Source
	if source == "" {
		source = types.SourceUser
	}

	log := &models.DailyLog{
		HabitID:   habit.ID,
		LogDate:   date,
		Completed: input.Completed,
		Notes:     input.Notes,
		Source:    source,
	}
	if err := s.logs.Create(ctx, log); err != nil {
		// Conflict or store failure: nothing was written, abort.
		return nil, err
	}

	result := &LogResult{Log: log, Habit: habit}
	if input.Completed {
		err = s.settleSuccess(ctx, habit, log, result)
	} else {
		err = s.settleFailure(ctx, habit, log, result)
	}
	if err != nil {
		// The log is committed; surface the settlement failure without
		// discarding the accountability state.
		return result, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, habit.ID)
	}

	return result, nil
}

// settleSuccess increments the streak and pays the reward when the streak
// lands exactly on the threshold.
func (s *SettlementService) settleSuccess(ctx context.Context, habit *models.Habit, log *models.DailyLog, result *LogResult) error {
	habit.CurrentStreak++
	if habit.CurrentStreak > habit.LongestStreak {
		habit.LongestStreak = habit.CurrentStreak
	}

	reward := DecideReward(habit, habit.CurrentStreak, s.cfg.RewardBonus)
	if reward != nil && reward.Amount.Sign() > 0 {
		habit.TotalRewarded = habit.TotalRewarded.Add(reward.Amount)
		habit.TotalStaked = decimal.Zero
		log.RewardTriggered = true

		s.issueTransaction(ctx, result, &models.Transaction{
			HabitID:     habit.ID,
			LogID:       &log.ID,
			Type:        types.TxTypeReward,
			Amount:      reward.Amount,
			Currency:    habit.Currency,
			FromAddress: s.cfg.CharityAddress,
			ToAddress:   habit.OwnerAddress,
		})
	}

	return s.persistSettlement(ctx, habit, log)
}

// settleFailure zeroes the streak immediately and applies the escalation
// ladder.
func (s *SettlementService) settleFailure(ctx context.Context, habit *models.Habit, log *models.DailyLog, result *LogResult) error {
	habit.CurrentStreak = 0

	decision := DecidePunishment(habit)
	habit.FailCount = decision.NextFailCount
	habit.TotalStaked = decision.NextTotalStaked
	if decision.Type == types.TxTypePunishment {
		habit.TotalPunished = habit.TotalPunished.Add(decision.Amount)
	}

	// A forfeit with nothing at risk still resets the counters but has no
	// value to move.
	if decision.Amount.Sign() > 0 {
		log.PunishmentTriggered = true

		s.issueTransaction(ctx, result, &models.Transaction{
			HabitID:     habit.ID,
			LogID:       &log.ID,
			Type:        decision.Type,
			Amount:      decision.Amount,
			Currency:    habit.Currency,
			FromAddress: habit.OwnerAddress,
			ToAddress:   s.cfg.CharityAddress,
		})
	}

	return s.persistSettlement(ctx, habit, log)
}

// issueTransaction records the transaction in pending status, then attempts
// the external submission. Submission failure finalizes the record as
// failed, eligible for the explicit retry operation, and flags the result
// as settlement-pending rather than failing the log event.
func (s *SettlementService) issueTransaction(ctx context.Context, result *LogResult, tx *models.Transaction) {
	logger := logging.FromContext(ctx)

	if err := s.txs.Create(ctx, tx); err != nil {
		logger.WithError(err).Error("failed to record settlement transaction")
		result.SettlementPending = true
		result.SettlementError = serviceError(err)
		return
	}
	result.Transaction = tx

	hash, err := s.network.SubmitTransfer(ctx, tx.FromAddress, tx.ToAddress, tx.Amount)
	if err != nil {
		logger.WithError(err).WithField("transactionId", tx.ID).Warn("settlement submission failed, leaving transaction retryable")
		if failed, ferr := s.txs.Finalize(ctx, tx.ID, types.TxStatusFailed, nil); ferr == nil {
			result.Transaction = failed
		}
		result.SettlementPending = true
		result.SettlementError = serviceError(apperrors.NewSettlementNetworkError("submit transfer", err))
		return
	}

	tx.ExternalHash = &hash
	if err := s.txs.SetExternalHash(ctx, tx.ID, hash); err != nil {
		logger.WithError(err).WithField("transactionId", tx.ID).Error("failed to persist external hash")
	}
}

func (s *SettlementService) persistSettlement(ctx context.Context, habit *models.Habit, log *models.DailyLog) error {
	log.StreakAtLog = habit.CurrentStreak

	if err := s.logs.UpdateSettlementFlags(ctx, log); err != nil {
		return err
	}
	return s.habits.UpdateSettlement(ctx, habit)
}

// HabitStats is the read model for one habit's accountability history
type HabitStats struct {
	HabitID        string          `json:"habitId"`
	TotalLogs      int             `json:"totalLogs"`
	Completions    int             `json:"completions"`
	Failures       int             `json:"failures"`
	CompletionRate float64         `json:"completionRate"`
	CurrentStreak  int             `json:"currentStreak"`
	LongestStreak  int             `json:"longestStreak"`
	TotalStaked    decimal.Decimal `json:"totalStaked"`
	TotalPunished  decimal.Decimal `json:"totalPunished"`
	TotalRewarded  decimal.Decimal `json:"totalRewarded"`
}

// Stats computes a habit's statistics, served from cache when fresh
func (s *SettlementService) Stats(ctx context.Context, habitID, ownerID string) (*HabitStats, error) {
	habit, err := s.habits.GetByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && habit.OwnerID != ownerID {
		return nil, apperrors.NewHabitNotFoundError(habitID)
	}

	if s.cache != nil {
		var cached HabitStats
		if s.cache.Get(ctx, habitID, &cached) {
			return &cached, nil
		}
	}

	total, completed, err := s.logs.CountByHabit(ctx, habitID)
	if err != nil {
		return nil, err
	}

	// Streaks are derived from the log history rather than read from the
	// habit counters, so stats stay truthful even if a counter drifted.
	history, err := s.logs.ListByHabit(ctx, habitID, 0)
	if err != nil {
		return nil, err
	}
	current, longest := RecomputeStreaks(habit.Schedule, history)
	if habit.LongestStreak > longest {
		longest = habit.LongestStreak
	}

	stats := &HabitStats{
		HabitID:       habitID,
		TotalLogs:     total,
		Completions:   completed,
		Failures:      total - completed,
		CurrentStreak: current,
		LongestStreak: longest,
		TotalStaked:   habit.TotalStaked,
		TotalPunished: habit.TotalPunished,
		TotalRewarded: habit.TotalRewarded,
	}
	if total > 0 {
		stats.CompletionRate = float64(completed) / float64(total) * 100
	}

	if s.cache != nil {
		s.cache.Set(ctx, habitID, stats)
	}

	return stats, nil
}

// UpdateTransactionStatus applies a caller- or watcher-reported confirmation.
// Transitions out of a terminal status are rejected.
func (s *SettlementService) UpdateTransactionStatus(ctx context.Context, txID string, status types.TransactionStatus, blockRef *uint64) (*models.Transaction, error) {
	if !status.Terminal() {
		return nil, apperrors.NewValidationError("status must be confirmed or failed", map[string]interface{}{
			"status": string(status),
		})
	}

	tx, err := s.txs.Finalize(ctx, txID, status, blockRef)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, tx.HabitID)
	}

	return tx, nil
}

// SubmissionPayload echoes what was handed to the settlement network
type SubmissionPayload struct {
	From         string          `json:"from"`
	To           string          `json:"to"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	ExternalHash string          `json:"externalHash"`
}

// RetryResult is the outcome of resubmitting a failed transaction
type RetryResult struct {
	Transaction       *models.Transaction `json:"transaction"`
	SubmissionPayload SubmissionPayload   `json:"submissionPayload"`
}

// RetryTransaction resubmits a failed transfer. The record keeps its id and
// moves back to pending under the fresh external hash.
func (s *SettlementService) RetryTransaction(ctx context.Context, txID string) (*RetryResult, error) {
	tx, err := s.txs.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status != types.TxStatusFailed {
		return nil, apperrors.NewRetryNotAllowedError(txID, string(tx.Status))
	}

	hash, err := s.network.SubmitTransfer(ctx, tx.FromAddress, tx.ToAddress, tx.Amount)
	if err != nil {
		return nil, apperrors.NewSettlementNetworkError("retry submission", err)
	}

	retried, err := s.txs.MarkRetried(ctx, txID, hash)
	if err != nil {
		return nil, err
	}

	return &RetryResult{
		Transaction: retried,
		SubmissionPayload: SubmissionPayload{
			From:         retried.FromAddress,
			To:           retried.ToAddress,
			Amount:       retried.Amount,
			Currency:     retried.Currency,
			ExternalHash: hash,
		},
	}, nil
}

// ListTransactions returns ledger entries for audit
func (s *SettlementService) ListTransactions(ctx context.Context, filters *storage.TransactionFilters) ([]*models.Transaction, error) {
	return s.txs.List(ctx, filters)
}

func serviceError(err error) *types.ServiceError {
	if ce, ok := err.(*apperrors.CategorizedError); ok {
		return ce.ToServiceError()
	}
	return &types.ServiceError{Code: "INTERNAL_ERROR", Message: err.Error()}
}
