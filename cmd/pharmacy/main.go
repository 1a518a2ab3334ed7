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
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/app"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/auth"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/billing"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/customers"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/dashboard"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/integration"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/inventory"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/ledger"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/observability"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/rbac"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
	"github.com/odyssey-erp/odyssey-pharmacy/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if cfg.PGMigrateOnStart {
		if err := db.Migrate(cfg.PGDSN); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Redis backs the dashboard cache and the job queue. Billing keeps working without it.
	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, dashboard cache and jobs disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	dashboardRepo := dashboard.NewRepository(dbpool)
	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	dashboardService := dashboard.NewService(dashboardRepo, dashboardCache, dashboard.Config{
		ExpiryWarningDays: cfg.InventoryExpiryWarningDays,
	}, logger)

	integrationHooks := integration.NewHooks(metrics, dashboardService, logger)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, inventory.ServiceConfig{
		ExpiryWarningDays: cfg.InventoryExpiryWarningDays,
	}, integrationHooks, logger)

	billingRepo := billing.NewRepository(dbpool)
	billingService := billing.NewService(billingRepo, auditLogger, idempotencyStore, integrationHooks, billing.ServiceConfig{
		AllowExpiredSale: cfg.BillingAllowExpiredSale,
	}, logger)

	customersService := customers.NewService(customers.NewRepository(dbpool))
	ledgerService := ledger.NewService(ledger.NewRepository(dbpool))

	rbacService := rbac.NewService(nil)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}
	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, logger)

	var (
		inspector *asynq.Inspector
		enqueuer  jobs.Enqueuer
	)
	if redisClient != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		inspector = asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		enqueuer = jobClient
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Verifier:           verifier,
		RBACMiddleware:     rbacMiddleware,
		InventoryHandler:   inventory.NewHandler(logger, inventoryService, rbacMiddleware),
		BillingHandler:     billing.NewHandler(logger, billingService, rbacMiddleware),
		CustomersHandler:   customers.NewHandler(logger, customersService, rbacMiddleware),
		LedgerHandler:      ledger.NewHandler(logger, ledgerService, rbacMiddleware),
		DashboardHandler:   dashboard.NewHandler(logger, dashboardService, rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService),
		JobHandler:         jobs.NewHandler(inspector, enqueuer, logger),
		Metrics:            metrics,
		Database:           dbpool,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
