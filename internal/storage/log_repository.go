package storage

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/habit-stake/internal/errors"
	"github.com/habit-stake/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the Postgres error code for a unique constraint hit.
const pgUniqueViolation = "23505"

// LogRepository handles daily log persistence. Rows are written once; after
// creation only the settlement flags may change.
type LogRepository struct {
	db *PostgresDB
}

// NewLogRepository creates a new daily log repository
func NewLogRepository(db *PostgresDB) *LogRepository {
	return &LogRepository{db: db}
}

// Create inserts a daily log. A duplicate (habit, date) insert surfaces as a
// ConflictError: the unique index decides which of two concurrent writers
// wins, and the loser must perform no further mutation.
func (r *LogRepository) Create(ctx context.Context, log *models.DailyLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.LoggedAt.IsZero() {
		log.LoggedAt = time.Now()
	}

	query := `
		INSERT INTO daily_logs (
			id, habit_id, log_date, completed, notes, streak_at_log,
			punishment_triggered, reward_triggered, source, logged_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		log.ID,
		log.HabitID,
		log.LogDate,
		log.Completed,
		log.Notes,
		log.StreakAtLog,
		log.PunishmentTriggered,
		log.RewardTriggered,
		log.Source,
		log.LoggedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperrors.NewDuplicateLogError(log.HabitID, log.LogDate.Format(time.DateOnly))
		}
		return apperrors.NewPersistenceError("create daily log", err)
	}

	return nil
}

// UpdateSettlementFlags records which policy fired for a log and the streak
// snapshot. Completed and log_date are immutable and deliberately absent
// from the statement.
func (r *LogRepository) UpdateSettlementFlags(ctx context.Context, log *models.DailyLog) error {
	query := `
		UPDATE daily_logs
		SET streak_at_log = $2, punishment_triggered = $3, reward_triggered = $4
		WHERE id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		log.ID,
		log.StreakAtLog,
		log.PunishmentTriggered,
		log.RewardTriggered,
	)
	if err != nil {
		return apperrors.NewPersistenceError("update log flags", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewPersistenceError("update log flags", pgx.ErrNoRows)
	}

	return nil
}

// GetByHabitAndDate retrieves the log for one habit day, if any
func (r *LogRepository) GetByHabitAndDate(ctx context.Context, habitID string, date time.Time) (*models.DailyLog, error) {
	query := `
		SELECT id, habit_id, log_date, completed, notes, streak_at_log,
		       punishment_triggered, reward_triggered, source, logged_at
		FROM daily_logs
		WHERE habit_id = $1 AND log_date = $2
	`

	log, err := scanLog(r.db.Pool().QueryRow(ctx, query, habitID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewPersistenceError("get daily log", err)
	}

	return log, nil
}

// ListByHabit returns a habit's logs most-recent-first, the order the
// streak calculator consumes.
func (r *LogRepository) ListByHabit(ctx context.Context, habitID string, limit int) ([]*models.DailyLog, error) {
	query := `
		SELECT id, habit_id, log_date, completed, notes, streak_at_log,
		       punishment_triggered, reward_triggered, source, logged_at
		FROM daily_logs
		WHERE habit_id = $1
		ORDER BY log_date DESC
	`
	args := []interface{}{habitID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list daily logs", err)
	}
	defer rows.Close()

	var logs []*models.DailyLog
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError("scan daily log", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterate daily logs", err)
	}

	return logs, nil
}

// CountByHabit returns total and completed log counts for stats
func (r *LogRepository) CountByHabit(ctx context.Context, habitID string) (total, completed int, err error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE completed)
		FROM daily_logs
		WHERE habit_id = $1
	`

	if err := r.db.Pool().QueryRow(ctx, query, habitID).Scan(&total, &completed); err != nil {
		return 0, 0, apperrors.NewPersistenceError("count daily logs", err)
	}

	return total, completed, nil
}

func scanLog(row pgx.Row) (*models.DailyLog, error) {
	var log models.DailyLog
	err := row.Scan(
		&log.ID,
		&log.HabitID,
		&log.LogDate,
		&log.Completed,
		&log.Notes,
		&log.StreakAtLog,
		&log.PunishmentTriggered,
		&log.RewardTriggered,
		&log.Source,
		&log.LoggedAt,
	)
	if err != nil {
		return nil, err
	}
	return &log, nil
}
