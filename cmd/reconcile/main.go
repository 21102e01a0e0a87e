// Package main provides a one-shot reconciliation sweep, for cron-less
// deployments and manual operations.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/habit-stake/internal/chain"
	"github.com/habit-stake/internal/config"
	"github.com/habit-stake/internal/logging"
	"github.com/habit-stake/internal/service"
	"github.com/habit-stake/internal/storage"
)

func main() {
	var (
		dateStr = flag.String("date", "", "Sweep date as YYYY-MM-DD (default: today)")
		force   = flag.Bool("force", false, "Run even if the date is already marked as swept")
		timeout = flag.Duration("timeout", 5*time.Minute, "Overall sweep timeout")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()

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

	network, err := chain.NewClient(&cfg.Chain)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to settlement network")
	}
	defer network.Close()

	habitRepo := storage.NewHabitRepository(postgres)
	logRepo := storage.NewLogRepository(postgres)
	txRepo := storage.NewTransactionRepository(postgres)
	statsCache := storage.NewStatsCache(redis, cfg.Cache.StatsTTL)

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

	reconciler := service.NewReconciliationService(habitRepo, settlementService, statsCache, location)

	input := &service.RunInput{Force: *force}
	if *dateStr != "" {
		date, err := time.ParseInLocation("2006-01-02", *dateStr, location)
		if err != nil {
			logger.WithError(err).Fatal("Invalid -date, expected YYYY-MM-DD")
		}
		input.AsOf = &date
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := reconciler.Run(ctx, input)
	if err != nil {
		logger.WithError(err).Fatal("Sweep failed")
	}

	logger.WithFields(map[string]interface{}{
		"date":          result.Date,
		"processed":     len(result.Processed),
		"alreadyLogged": len(result.AlreadyLogged),
		"skipped":       result.Skipped,
	}).Info("Sweep finished")
}
