package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/auth"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// PermissionsHandler reports what the caller may do.
type PermissionsHandler struct {
	logger  *slog.Logger
	service *Service
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.me)
}

func (h *PermissionsHandler) me(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	perms, err := h.service.EffectivePermissions(r.Context(), principal.Role)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "list permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":     principal.UserID,
		"role":        principal.Role,
		"permissions": perms,
	})
}
