package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wycliu/parkrwa-backend/api/controllers"
	"github.com/wycliu/parkrwa-backend/api/routes"
	"github.com/wycliu/parkrwa-backend/internal/snapshot"
	"github.com/wycliu/parkrwa-backend/internal/spaces"
	"github.com/wycliu/parkrwa-backend/internal/txbuilder"
	"github.com/wycliu/parkrwa-backend/pkg/config"
	"github.com/wycliu/parkrwa-backend/pkg/ledger"
	"github.com/wycliu/parkrwa-backend/pkg/logger"
	"github.com/wycliu/parkrwa-backend/pkg/metrics"
	"github.com/wycliu/parkrwa-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	builder, err := txbuilder.New(txbuilder.Config{
		PackageID: cfg.Ledger.PackageID,
		LotID:     cfg.Ledger.LotID,
	})
	if err != nil {
		// Unconfigured program ids still serve the read-only endpoints; the
		// tx endpoints answer with an internal error until ids are set.
		logg.Warn(logg.WithField(context.Background(), "reason", err.Error()),
			"transaction builder disabled")
		builder = nil
	}

	var snapshots *snapshot.Store
	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Warn(logg.WithField(context.Background(), "reason", err.Error()),
			"redis unavailable, snapshot reads disabled")
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		snapshots, err = snapshot.NewStore(redisClient, cfg.Sync.SnapshotTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create snapshot store", err)
			os.Exit(1)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"network": cfg.Ledger.Network,
	})
	logg.Info(ctx, "starting api server")

	var reader controllers.SnapshotReader
	var cachePinger controllers.Pinger
	if snapshots != nil {
		reader = snapshots
		cachePinger = redisClient
	}

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, ledgerClient, cachePinger, spacesService, reader, builder),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
