// Package worker contains the background tasks: the confirmation watcher
// and the reconciliation scheduler.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/habit-stake/internal/chain"
	"github.com/habit-stake/internal/logging"
	"github.com/habit-stake/internal/models"
	"github.com/habit-stake/internal/retry"
	"github.com/habit-stake/internal/types"
)

// PendingTransactionStore is the ledger surface the watcher needs
type PendingTransactionStore interface {
	ListPendingSubmitted(ctx context.Context) ([]*models.Transaction, error)
	Finalize(ctx context.Context, id string, status types.TransactionStatus, blockRef *uint64) (*models.Transaction, error)
}

// CacheInvalidator drops cached read models after a finalization
type CacheInvalidator interface {
	Invalidate(ctx context.Context, habitID string)
}

// ConfirmationWatcher periodically sweeps pending transactions and queries
// the settlement network for their outcome. Confirmation is entirely out of
// band: nothing in the request path ever waits on this loop. Each query is
// bounded by the configured timeout so one stuck transfer cannot stall the
// sweep.
type ConfirmationWatcher struct {
	txs          PendingTransactionStore
	network      chain.SettlementNetwork
	cache        CacheInvalidator
	pollInterval time.Duration
	queryTimeout time.Duration

	running bool
	mu      sync.RWMutex
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// ConfirmationWatcherConfig holds configuration for the watcher
type ConfirmationWatcherConfig struct {
	Txs          PendingTransactionStore
	Network      chain.SettlementNetwork
	Cache        CacheInvalidator // optional
	PollInterval time.Duration
	QueryTimeout time.Duration
}

// NewConfirmationWatcher creates a new confirmation watcher
func NewConfirmationWatcher(cfg *ConfirmationWatcherConfig) (*ConfirmationWatcher, error) {
	if cfg.Txs == nil {
		return nil, fmt.Errorf("transaction store cannot be nil")
	}
	if cfg.Network == nil {
		return nil, fmt.Errorf("settlement network cannot be nil")
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}

	return &ConfirmationWatcher{
		txs:          cfg.Txs,
		network:      cfg.Network,
		cache:        cfg.Cache,
		pollInterval: pollInterval,
		queryTimeout: queryTimeout,
	}, nil
}

// Start launches the watcher loop
func (w *ConfirmationWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("confirmation watcher already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.loop(ctx)

	logging.FromContext(ctx).WithField("pollInterval", w.pollInterval.String()).Info("confirmation watcher started")
	return nil
}

// Stop signals the loop to exit and waits for it
func (w *ConfirmationWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
}

// Running reports whether the loop is active
func (w *ConfirmationWatcher) Running() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *ConfirmationWatcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep checks every submitted pending transaction once. Exported so tests
// and the reconcile command can drive it without the ticker.
func (w *ConfirmationWatcher) Sweep(ctx context.Context) {
	logger := logging.FromContext(ctx)

	pending, err := w.txs.ListPendingSubmitted(ctx)
	if err != nil {
		logger.WithError(err).Error("confirmation sweep: failed to list pending transactions")
		return
	}

	for _, tx := range pending {
		if err := w.check(ctx, tx); err != nil {
			logger.WithError(err).WithField("transactionId", tx.ID).Warn("confirmation check failed")
		}
	}
}

func (w *ConfirmationWatcher) check(ctx context.Context, tx *models.Transaction) error {
	var conf *chain.Confirmation

	queryCtx, cancel := context.WithTimeout(ctx, w.queryTimeout)
	defer cancel()

	err := retry.WithExponentialBackoff(queryCtx, &retry.Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}, func(ctx context.Context, attempt int) error {
		var qerr error
		conf, qerr = w.network.QueryConfirmation(ctx, *tx.ExternalHash)
		return qerr
	})
	if err != nil {
		return err
	}

	if !conf.Status.Terminal() {
		// Still unmined, check again next sweep.
		return nil
	}

	finalized, err := w.txs.Finalize(ctx, tx.ID, conf.Status, conf.BlockRef)
	if err != nil {
		// A caller-reported confirmation may have won the race; the
		// transition stays single-shot either way.
		return err
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"transactionId": finalized.ID,
		"status":        string(finalized.Status),
	}).Info("transaction finalized")

	if w.cache != nil {
		w.cache.Invalidate(ctx, finalized.HabitID)
	}

	return nil
}
