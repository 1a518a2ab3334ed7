package billing

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/auth"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/rbac"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// Handler exposes bill endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler builds the bill handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), rbac: rbac}
}

func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := httpx.IntQuery(r, "page", 1)
	perPage := httpx.IntQuery(r, "per_page", 20)
	limit, offset := shared.PageWindow(page, perPage)
	filter := ListFilter{
		Status:        Status(q.Get("status")),
		PaymentMethod: PaymentMethod(q.Get("payment_method")),
		Search:        q.Get("search"),
		Limit:         limit,
		Offset:        offset,
	}
	var err error
	if filter.DateFrom, err = parseDate(q.Get("date_from"), "date_from", false); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.DateTo, err = parseDate(q.Get("date_to"), "date_to", true); err != nil {
		httpx.RespondError(w, err)
		return
	}
	bills, total, err := h.service.ListBills(r.Context(), filter)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "list bills", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"bills":      bills,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) ShowBill(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.RespondError(w, shared.Invalid("id", "must be a positive number"))
		return
	}
	view, err := h.service.GetBill(r.Context(), id)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "get bill", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	var req CreateBillRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Invalid("", "malformed JSON body"))
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := req.ToInput(auth.ActorID(r.Context()), r.Header.Get("Idempotency-Key"))
	result, err := h.service.CreateBill(r.Context(), input)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "create bill", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) CancelBill(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.RespondError(w, shared.Invalid("id", "must be a positive number"))
		return
	}
	var req CancelRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, shared.Invalid("", "malformed JSON body"))
			return
		}
		if err := httpx.Validate(h.validator, req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	bill, err := h.service.CancelBill(r.Context(), id, auth.ActorID(r.Context()), req.Reason)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "cancel bill", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) RefundBill(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.RespondError(w, shared.Invalid("id", "must be a positive number"))
		return
	}
	var req RefundRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Invalid("", "malformed JSON body"))
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.RefundBill(r.Context(), RefundInput{
		BillID:  id,
		Reason:  req.Reason,
		Amount:  req.Amount,
		ActorID: auth.ActorID(r.Context()),
	})
	if err != nil {
		httpx.RespondLogged(w, h.logger, "refund bill", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.RespondError(w, shared.Invalid("id", "must be a positive number"))
		return
	}
	var req PaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Invalid("", "malformed JSON body"))
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	payment, err := h.service.RecordPayment(r.Context(), PaymentInput{
		BillID:    id,
		Method:    PaymentMethod(req.PaymentMethod),
		Amount:    req.Amount,
		Reference: req.Reference,
		Notes:     req.Notes,
		ActorID:   auth.ActorID(r.Context()),
	})
	if err != nil {
		httpx.RespondLogged(w, h.logger, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) RecalculateBill(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.RespondError(w, shared.Invalid("id", "must be a positive number"))
		return
	}
	bill, err := h.service.Recalculate(r.Context(), id)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "recalculate bill", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func parseDate(raw, field string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, shared.Invalid(field, "must be a YYYY-MM-DD date")
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return day, nil
}
