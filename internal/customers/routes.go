package customers

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/rbac"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermCustomersView))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermCustomersEdit))
		r.Put("/{id}", h.Update)
	})
}
