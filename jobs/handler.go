package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/auth"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/httpx"
)

// Enqueuer submits an ad-hoc reconcile.
type Enqueuer interface {
	EnqueueReconcile(ctx context.Context, requestedBy int64) (*asynq.TaskInfo, error)
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector *asynq.Inspector
	enqueuer  Enqueuer
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints. Both inspector and enqueuer may be nil
// when the deployment runs without Redis.
func NewHandler(inspector *asynq.Inspector, enqueuer Enqueuer, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, enqueuer: enqueuer, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Post("/reconcile", h.reconcile)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"queue": QueueDefault, "pending": 0})
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "job queue unavailable")
		return
	}
	pending := 0
	queueName := QueueDefault
	if info != nil {
		pending = info.Pending
		queueName = info.Queue
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queue": queueName, "pending": pending})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "job queue not configured")
		return
	}
	info, err := h.enqueuer.EnqueueReconcile(r.Context(), auth.ActorID(r.Context()))
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict):
		httpx.JSON(w, http.StatusAccepted, map[string]any{"task": TaskLedgerReconcile, "status": "already_queued"})
		return
	case err != nil:
		h.logger.Error("enqueue reconcile", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "job queue unavailable")
		return
	}
	body := map[string]any{"task": TaskLedgerReconcile, "status": "queued"}
	if info != nil {
		body["id"] = info.ID
	}
	httpx.JSON(w, http.StatusAccepted, body)
}
