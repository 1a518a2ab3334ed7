package billing

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/rbac"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermBillingView))
		r.Get("/", h.ListBills)
		r.Get("/{id}", h.ShowBill)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermBillingCreate))
		r.Post("/", h.CreateBill)
		r.Post("/{id}/payments", h.RecordPayment)
		r.Post("/{id}/recalculate", h.RecalculateBill)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermBillingCancel))
		r.Post("/{id}/cancel", h.CancelBill)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermBillingRefund))
		r.Post("/{id}/refund", h.RefundBill)
	})
}
