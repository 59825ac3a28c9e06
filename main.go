package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/allocation"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/config"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/engine"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/jobs"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/repository"
	"github.com/Kirtibisht11/crisisnet-sub000/internal/server"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfgPath := "configs/config.yml"
	if fromEnv := os.Getenv("CONFIG_PATH"); fromEnv != "" {
		cfgPath = fromEnv
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Storage backend: durable when a database URL is configured,
	// in-memory otherwise. Callers only see the repository interfaces.
	var (
		alertRepo      repository.AlertRepository
		reputationRepo repository.ReputationRepository
		activityRepo   repository.ActivityRepository
		auditRepo      repository.AuditRepository
	)
	if cfg.Database.URL != "" {
		db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		repository.MigrateDB(db, logger)

		alertRepo = repository.NewAlertRepository(db, logger)
		reputationRepo = repository.NewReputationRepository(db, logger)
		activityRepo = repository.NewActivityRepository(db, logger)
		auditRepo = repository.NewAuditRepository(db, logger)
	} else {
		logger.Warn("No database URL configured, using in-memory store")
		mem := repository.NewMemoryStore()
		alertRepo, reputationRepo, activityRepo, auditRepo = mem, mem, mem, mem
	}

	limiter := engine.NewRateLimiter(activityRepo, engine.RateLimitConfigFrom(cfg), logger)
	duplicates := engine.NewDuplicateDetector(engine.DuplicateConfigFrom(cfg), logger)
	reputation := engine.NewReputationManager(reputationRepo, engine.ReputationConfigFrom(cfg), logger)
	verifier := engine.NewCrossVerifier(alertRepo, engine.VerifyConfigFrom(cfg), logger)
	scorer := engine.NewTrustScorer(reputationRepo, engine.ScoringConfigFrom(cfg), logger)

	var allocator engine.Allocator
	if cfg.Allocation.Enabled {
		allocator = allocation.NewClient(cfg.Allocation.URL, logger)
		logger.Info("Downstream allocation enabled", zap.String("url", cfg.Allocation.URL))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := engine.NewMetrics(registry)

	eng := engine.NewEngine(limiter, duplicates, reputation, verifier, scorer,
		alertRepo, auditRepo, allocator, metrics, cfg.StoreTimeout(), logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	scheduler := jobs.NewScheduler(activityRepo, duplicates, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	srv := server.NewServer(eng, registry, logger)
	go srv.Run(cfg.Server.Port)

	<-ctx.Done()
	logger.Info("Application stopped")
}
