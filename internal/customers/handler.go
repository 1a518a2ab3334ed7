package customers

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/rbac"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), rbac: rbac}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := httpx.IntQuery(r, "page", 1)
	perPage := httpx.IntQuery(r, "per_page", 20)
	limit, offset := shared.PageWindow(page, perPage)
	req := ListCustomersRequest{Search: r.URL.Query().Get("search"), Limit: limit, Offset: offset}
	switch r.URL.Query().Get("active") {
	case "true":
		active := true
		req.IsActive = &active
	case "false":
		active := false
		req.IsActive = &active
	}
	customers, total, err := h.service.List(r.Context(), req)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "list customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"customers":  customers,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.RespondError(w, shared.Invalid("id", "must be a positive number"))
		return
	}
	customer, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "get customer", err)
		return
	}
	stats, err := h.service.Stats(r.Context(), id)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "customer stats", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customer": customer, "stats": stats})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.RespondError(w, shared.Invalid("id", "must be a positive number"))
		return
	}
	var req UpdateCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Invalid("", "malformed JSON body"))
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "update customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}
