package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/auth"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// Middleware guards route groups by the role claim of the authenticated principal.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAny admits principals holding at least one of perms.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require("any", perms, func(granted map[string]struct{}, required []string) bool {
		for _, p := range required {
			if _, ok := granted[p]; ok {
				return true
			}
		}
		return false
	})
}

// RequireAll admits principals holding every one of perms.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require("all", perms, func(granted map[string]struct{}, required []string) bool {
		for _, p := range required {
			if _, ok := granted[p]; !ok {
				return false
			}
		}
		return true
	})
}

type matcher func(granted map[string]struct{}, required []string) bool

func (m Middleware) require(mode string, perms []string, match matcher) func(http.Handler) http.Handler {
	required := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		if len(required) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			granted, err := m.Service.EffectivePermissions(r.Context(), principal.Role)
			if err != nil {
				m.log().Error("rbac lookup", slog.String("mode", mode), slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !match(permissionSet(granted), required) {
				m.log().Info("rbac denied",
					slog.Int64("user_id", principal.UserID),
					slog.String("role", principal.Role),
					slog.String("mode", mode),
					slog.Any("required", required),
					slog.String("path", r.URL.Path),
				)
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "role "+principal.Role+" may not perform this operation")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) log() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func permissionSet(perms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[strings.ToLower(p)] = struct{}{}
	}
	return set
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
