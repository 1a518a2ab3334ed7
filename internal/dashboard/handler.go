package dashboard

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/rbac"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(rbac.PermDashboardView)).Get("/", h.summary)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	var day time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			httpx.RespondError(w, shared.Invalid("date", "must be a YYYY-MM-DD date"))
			return
		}
		day = parsed
	}
	summary, err := h.service.Summary(r.Context(), day)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "dashboard summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
