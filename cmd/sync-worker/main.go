package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wycliu/parkrwa-backend/internal/snapshot"
	"github.com/wycliu/parkrwa-backend/internal/spaces"
	"github.com/wycliu/parkrwa-backend/pkg/config"
	"github.com/wycliu/parkrwa-backend/pkg/ledger"
	"github.com/wycliu/parkrwa-backend/pkg/logger"
	"github.com/wycliu/parkrwa-backend/pkg/metrics"
	"github.com/wycliu/parkrwa-backend/pkg/redis"
)

const lockName = "snapshot-refresh"

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ledgerClient, err := ledger.NewHTTPClient(
		cfg.Ledger.ResolveRPCURL(),
		cfg.Ledger.RequestTimeout,
		ledger.WithEventPageLimit(cfg.Ledger.EventPageLimit),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger client", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	spacesService, err := spaces.NewService(spaces.ServiceParams{
		Ledger: ledgerClient,
		Config: spaces.Config{
			PackageID: cfg.Ledger.PackageID,
			LotID:     cfg.Ledger.LotID,
		},
		Logger:  logg,
		Metrics: metrics.NewSyncMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create spaces service", err)
		os.Exit(1)
	}

	store, err := snapshot.NewStore(redisClient, cfg.Sync.SnapshotTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot store", err)
		os.Exit(1)
	}

	job, err := snapshot.NewRefreshJob(spacesService, store)
	if err != nil {
		logg.Error(context.Background(), "failed to create refresh job", err)
		os.Exit(1)
	}

	lock, err := snapshot.NewRedisLock(redisClient, redisClient.LockKey(lockName), cfg.Sync.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create refresh lock", err)
		os.Exit(1)
	}

	runner, err := snapshot.NewRunner(snapshot.RunnerParams{
		Logger:   logg,
		Lock:     lock,
		Job:      job,
		Interval: cfg.Sync.RefreshInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create refresh runner", err)
		os.Exit(1)
	}

	go serveMetrics(cfg.Sync.MetricsAddr, logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"network":  cfg.Ledger.Network,
		"interval": cfg.Sync.RefreshInterval.String(),
	})
	logg.Info(ctx, "starting sync worker")

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sync worker shutting down gracefully")
}

func serveMetrics(addr string, logg *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
	}
}
