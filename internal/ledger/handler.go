package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/rbac"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// Handler exposes ledger queries over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermLedgerView))
		r.Get("/", h.list)
		r.Get("/reconciliation", h.reconcile)
		r.Get("/balance/{medicineID}", h.balance)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		Kind:       Kind(q.Get("type")),
		BillNumber: q.Get("bill"),
		Limit:      httpx.IntQuery(r, "limit", 200),
		Offset:     httpx.IntQuery(r, "offset", 0),
	}
	if raw := q.Get("medicine_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, shared.Invalid("medicine_id", "must be a number"))
			return
		}
		filter.MedicineID = id
	}
	if raw := q.Get("bill_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, shared.Invalid("bill_id", "must be a number"))
			return
		}
		filter.BillID = id
	}
	var err error
	if filter.From, err = parseDay(q.Get("from"), false); err != nil {
		httpx.RespondError(w, shared.Invalid("from", "must be YYYY-MM-DD"))
		return
	}
	if filter.To, err = parseDay(q.Get("to"), true); err != nil {
		httpx.RespondError(w, shared.Invalid("to", "must be YYYY-MM-DD"))
		return
	}
	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "list ledger", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	discrepancies, err := h.service.Reconcile(r.Context())
	if err != nil {
		httpx.RespondLogged(w, h.logger, "reconcile ledger", err)
		return
	}
	h.logger.Info("ledger reconciliation", slog.Int("discrepancies", len(discrepancies)))
	httpx.JSON(w, http.StatusOK, map[string]any{
		"consistent":    len(discrepancies) == 0,
		"discrepancies": discrepancies,
	})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "medicineID")
	if !ok {
		httpx.RespondError(w, shared.Invalid("medicine_id", "must be a positive number"))
		return
	}
	asOf, err := parseDay(r.URL.Query().Get("as_of"), true)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("as_of", "must be YYYY-MM-DD"))
		return
	}
	balance, err := h.service.BalanceAt(r.Context(), id, asOf)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "ledger balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"medicine_id": id, "balance": balance})
}

func parseDay(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
