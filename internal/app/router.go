package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/auth"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/billing"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/customers"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/dashboard"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/inventory"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/ledger"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/observability"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/rbac"
	"github.com/odyssey-erp/odyssey-pharmacy/jobs"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Verifier           *auth.Verifier
	RBACMiddleware     rbac.Middleware
	InventoryHandler   *inventory.Handler
	BillingHandler     *billing.Handler
	CustomersHandler   *customers.Handler
	LedgerHandler      *ledger.Handler
	DashboardHandler   *dashboard.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
	Database           HealthChecker
}

// NewRouter constructs the chi.Router with the pharmacy API mounted under /api.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Database != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := params.Database.Ping(ctx); err != nil {
				params.Logger.Warn("health check database", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.AllowContentType("application/json"))
		if params.Verifier != nil {
			r.Use(params.Verifier.Middleware)
		}
		if params.InventoryHandler != nil {
			r.Route("/medicines", params.InventoryHandler.MountRoutes)
		}
		if params.BillingHandler != nil {
			r.Route("/bills", params.BillingHandler.MountRoutes)
		}
		if params.CustomersHandler != nil {
			r.Route("/customers", params.CustomersHandler.MountRoutes)
		}
		if params.LedgerHandler != nil {
			r.Route("/ledger", params.LedgerHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/me", params.PermissionsHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.RBACMiddleware.RequireAll(rbac.PermLedgerView))
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	return r
}
