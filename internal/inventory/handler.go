package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/auth"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/rbac"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), rbac: rbac}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermInventoryView))
		r.Get("/", h.list)
		r.Get("/expiring", h.expiring)
		r.Get("/low-stock", h.lowStock)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermInventoryEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermInventoryAdjust))
		r.Post("/{id}/adjust", h.adjust)
		r.Post("/{id}/write-off", h.writeOff)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := httpx.IntQuery(r, "page", 1)
	perPage := httpx.IntQuery(r, "per_page", 20)
	limit, offset := shared.PageWindow(page, perPage)
	medicines, total, err := h.service.ListMedicines(r.Context(), ListFilter{
		Search:   q.Get("search"),
		Category: Category(q.Get("category")),
		Status:   StockStatus(q.Get("status")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		httpx.RespondLogged(w, h.logger, "list medicines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"medicines":  medicines,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) expiring(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.service.ListExpiring(r.Context(), httpx.IntQuery(r, "days", 0))
	if err != nil {
		httpx.RespondLogged(w, h.logger, "list expiring medicines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"medicines": medicines})
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.service.ListLowStock(r.Context())
	if err != nil {
		httpx.RespondLogged(w, h.logger, "list low stock medicines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"medicines": medicines})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.RespondError(w, shared.Invalid("id", "must be a positive number"))
		return
	}
	medicine, err := h.service.GetMedicine(r.Context(), id)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "get medicine", err)
		return
	}
	httpx.JSON(w, http.StatusOK, medicine)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeMedicine(w, r)
	if !ok {
		return
	}
	medicine, err := h.service.CreateMedicine(r.Context(), input, auth.ActorID(r.Context()))
	if err != nil {
		httpx.RespondLogged(w, h.logger, "create medicine", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, medicine)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.RespondError(w, shared.Invalid("id", "must be a positive number"))
		return
	}
	input, ok := h.decodeMedicine(w, r)
	if !ok {
		return
	}
	medicine, err := h.service.UpdateMedicine(r.Context(), id, input, auth.ActorID(r.Context()))
	if err != nil {
		httpx.RespondLogged(w, h.logger, "update medicine", err)
		return
	}
	httpx.JSON(w, http.StatusOK, medicine)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.RespondError(w, shared.Invalid("id", "must be a positive number"))
		return
	}
	if err := h.service.DeleteMedicine(r.Context(), id, auth.ActorID(r.Context())); err != nil {
		httpx.RespondLogged(w, h.logger, "delete medicine", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.RespondError(w, shared.Invalid("id", "must be a positive number"))
		return
	}
	var req AdjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Invalid("", "malformed JSON body"))
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	move, err := h.service.AdjustStock(r.Context(), AdjustInput{
		MedicineID:  id,
		NewQuantity: *req.Quantity,
		Note:        req.Note,
		ActorID:     auth.ActorID(r.Context()),
	})
	if err != nil {
		httpx.RespondLogged(w, h.logger, "adjust stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, move)
}

func (h *Handler) writeOff(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.RespondError(w, shared.Invalid("id", "must be a positive number"))
		return
	}
	var req WriteOffRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Invalid("", "malformed JSON body"))
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	move, err := h.service.WriteOff(r.Context(), WriteOffInput{
		MedicineID: id,
		Kind:       req.Type,
		Quantity:   req.Quantity,
		Note:       req.Note,
		ActorID:    auth.ActorID(r.Context()),
	})
	if err != nil {
		httpx.RespondLogged(w, h.logger, "write off stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, move)
}

func (h *Handler) decodeMedicine(w http.ResponseWriter, r *http.Request) (MedicineInput, bool) {
	var req MedicineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Invalid("", "malformed JSON body"))
		return MedicineInput{}, false
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return MedicineInput{}, false
	}
	input, err := req.ToInput()
	if err != nil {
		httpx.RespondError(w, err)
		return MedicineInput{}, false
	}
	return input, true
}
