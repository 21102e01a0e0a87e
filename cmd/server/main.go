// Package main provides the API server entry point for the habit stake service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/habit-stake/internal/api"
	"github.com/habit-stake/internal/chain"
	"github.com/habit-stake/internal/config"
	"github.com/habit-stake/internal/logging"
	"github.com/habit-stake/internal/service"
	"github.com/habit-stake/internal/storage"
	"github.com/habit-stake/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize database connections
	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Connect to the settlement network
	network, err := chain.NewClient(&cfg.Chain)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to settlement network")
	}
	defer network.Close()

	logger.WithField("rpc", cfg.Chain.RPCURL).Info("Settlement network client initialized")

	// Initialize repositories
	habitRepo := storage.NewHabitRepository(postgres)
	logRepo := storage.NewLogRepository(postgres)
	txRepo := storage.NewTransactionRepository(postgres)
	statsCache := storage.NewStatsCache(redis, cfg.Cache.StatsTTL)

	// Initialize services
	logger.Info("Initializing services...")

	location := cfg.Scheduler.Location()

	settlementService := service.NewSettlementService(
		habitRepo,
		logRepo,
		txRepo,
		network,
		statsCache,
		service.SettlementConfig{
			CharityAddress: cfg.Settlement.CharityAddress,
			RewardBonus:    cfg.Settlement.RewardBonus,
			Location:       location,
		},
	)

	habitService := service.NewHabitService(habitRepo, logRepo, network, service.HabitDefaults{
		StakeAmount: cfg.Settlement.DefaultStake,
		Currency:    cfg.Settlement.Currency,
	})

	reconciliationService := service.NewReconciliationService(habitRepo, settlementService, statsCache, location)

	var encourager service.Encourager = service.NoopEncourager{}
	if cfg.Coach.Enabled {
		encourager = service.NewCoachClient(&cfg.Coach)
		logger.WithField("baseURL", cfg.Coach.BaseURL).Info("Coach client enabled")
	}

	logger.Info("Services initialized")

	// Start the confirmation watcher
	watcher, err := worker.NewConfirmationWatcher(&worker.ConfirmationWatcherConfig{
		Txs:          txRepo,
		Network:      network,
		Cache:        statsCache,
		PollInterval: cfg.Watcher.PollInterval,
		QueryTimeout: cfg.Watcher.QueryTimeout,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create confirmation watcher")
	}
	if err := watcher.Start(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to start confirmation watcher")
	}
	defer watcher.Stop()

	// Start the reconciliation scheduler
	scheduler, err := worker.NewScheduler(&worker.SchedulerConfig{
		CronSpec:   cfg.Scheduler.CronSpec,
		Location:   location,
		Reconciler: reconciliationService,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create scheduler")
	}
	if err := scheduler.Start(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to start scheduler")
	}
	defer scheduler.Stop()

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RequestsPerSec:  cfg.Server.RequestsPerSec,
	}

	server := api.NewServer(serverConfig, api.ServerDeps{
		Habits:      habitService,
		Settlement:  settlementService,
		Reconciler:  reconciliationService,
		Encourager:  encourager,
		Balances:    network,
		DBPinger:    postgres,
		CachePinger: redis,
		ChainPinger: network,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
