package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	apperrors "github.com/habit-stake/internal/errors"
	"github.com/habit-stake/internal/models"
	"github.com/habit-stake/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepository handles the value-transfer ledger. Status moves are
// expressed as conditional updates so a transition is applied at most once
// even under concurrent finalizers.
type TransactionRepository struct {
	db *PostgresDB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *PostgresDB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const txColumns = `
	id, habit_id, log_id, type, amount, currency, from_address, to_address,
	external_hash, status, block_ref, created_at, confirmed_at
`

// Create records a transaction in pending status. It never touches the
// settlement network; submission happens separately.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Status == "" {
		tx.Status = types.TxStatusPending
	}
	tx.CreatedAt = time.Now()

	query := `
		INSERT INTO transactions (
			id, habit_id, log_id, type, amount, currency, from_address,
			to_address, external_hash, status, block_ref, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		tx.ID,
		tx.HabitID,
		tx.LogID,
		tx.Type,
		tx.Amount,
		tx.Currency,
		tx.FromAddress,
		tx.ToAddress,
		tx.ExternalHash,
		tx.Status,
		tx.BlockRef,
		tx.CreatedAt,
	)
	if err != nil {
		return apperrors.NewPersistenceError("create transaction", err)
	}

	return nil
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewTransactionNotFoundError(id)
		}
		return nil, apperrors.NewPersistenceError("get transaction", err)
	}

	return tx, nil
}

// TransactionFilters narrows List results
type TransactionFilters struct {
	HabitID string
	Status  types.TransactionStatus
	Limit   int
}

// List returns transactions newest-first, optionally filtered
func (r *TransactionRepository) List(ctx context.Context, filters *TransactionFilters) ([]*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE 1=1`
	var args []interface{}

	if filters != nil && filters.HabitID != "" {
		args = append(args, filters.HabitID)
		query += ` AND habit_id = $1`
	}
	if filters != nil && filters.Status != "" {
		args = append(args, filters.Status)
		if len(args) == 1 {
			query += ` AND status = $1`
		} else {
			query += ` AND status = $2`
		}
	}
	query += ` ORDER BY created_at DESC`
	if filters != nil && filters.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(filters.Limit)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list transactions", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListPendingSubmitted returns pending transactions that already have an
// external hash, the set the confirmation watcher polls.
func (r *TransactionRepository) ListPendingSubmitted(ctx context.Context) ([]*models.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE status = 'pending' AND external_hash IS NOT NULL
		ORDER BY created_at
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list pending transactions", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// SetExternalHash attaches the settlement network hash to a pending record
func (r *TransactionRepository) SetExternalHash(ctx context.Context, id, hash string) error {
	query := `UPDATE transactions SET external_hash = $2 WHERE id = $1 AND status = 'pending'`

	tag, err := r.db.Pool().Exec(ctx, query, id, hash)
	if err != nil {
		return apperrors.NewPersistenceError("set external hash", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewTransactionNotFoundError(id)
	}

	return nil
}

// Finalize moves a pending transaction to a terminal status. The WHERE
// clause guarantees at most one transition ever applies: a second call, or
// a call racing the watcher, affects zero rows and is rejected with the
// record's actual state.
func (r *TransactionRepository) Finalize(ctx context.Context, id string, status types.TransactionStatus, blockRef *uint64) (*models.Transaction, error) {
	if !status.Terminal() {
		return nil, apperrors.NewValidationError("finalize status must be confirmed or failed", map[string]interface{}{
			"status": string(status),
		})
	}

	query := `
		UPDATE transactions
		SET status = $2, block_ref = $3, confirmed_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + txColumns

	tx, err := scanTransaction(r.db.Pool().QueryRow(ctx, query, id, status, blockRef))
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewPersistenceError("finalize transaction", err)
	}

	// Zero rows: either unknown id or already terminal. Look it up to
	// report which.
	existing, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, apperrors.NewTerminalStatusError(id, string(existing.Status))
}

// MarkRetried moves a failed transaction back to pending under a fresh
// external hash. Only failed records qualify; the id is preserved so the
// audit trail stays on one record.
func (r *TransactionRepository) MarkRetried(ctx context.Context, id, newHash string) (*models.Transaction, error) {
	query := `
		UPDATE transactions
		SET status = 'pending', external_hash = $2, block_ref = NULL, confirmed_at = NULL
		WHERE id = $1 AND status = 'failed'
		RETURNING ` + txColumns

	tx, err := scanTransaction(r.db.Pool().QueryRow(ctx, query, id, newHash))
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewPersistenceError("retry transaction", err)
	}

	existing, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, apperrors.NewRetryNotAllowedError(id, string(existing.Status))
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.HabitID,
		&tx.LogID,
		&tx.Type,
		&tx.Amount,
		&tx.Currency,
		&tx.FromAddress,
		&tx.ToAddress,
		&tx.ExternalHash,
		&tx.Status,
		&tx.BlockRef,
		&tx.CreatedAt,
		&tx.ConfirmedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError("scan transaction", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterate transactions", err)
	}
	return txs, nil
}
