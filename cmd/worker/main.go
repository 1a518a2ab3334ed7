package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/app"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/inventory"
	jobmetrics "github.com/odyssey-erp/odyssey-pharmacy/internal/jobs"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/ledger"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
	"github.com/odyssey-erp/odyssey-pharmacy/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	locker := cache.NewLocker(redisClient)

	inventoryService := inventory.NewService(inventory.NewRepository(pool), shared.NewAuditLogger(pool), inventory.ServiceConfig{
		ExpiryWarningDays: cfg.InventoryExpiryWarningDays,
	}, nil, logger)
	ledgerService := ledger.NewService(ledger.NewRepository(pool))

	stockAlerts := jobs.NewStockAlertsJob(inventoryService, logger, metrics)
	reconcile := jobs.NewLedgerReconcileJob(ledgerService, locker, logger, metrics)
	cleanup := jobs.NewIdempotencyCleanupJob(shared.NewIdempotencyStore(pool), locker, logger, metrics)

	stockAlertsTask, err := jobs.NewStockAlertsTask(cfg.InventoryExpiryWarningDays)
	if err != nil {
		logger.Error("build stock alerts task", slog.Any("error", err))
		os.Exit(1)
	}
	reconcileTask, err := jobs.NewLedgerReconcileTask(0, time.Now().UTC())
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(cfg.IdempotencyRetention)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStockAlerts, Handler: stockAlerts.Handle},
			{Type: jobs.TaskLedgerReconcile, Handler: reconcile.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanup.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 7 * * *", Task: stockAlertsTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: reconcileTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
