// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var stockErr *shared.InsufficientStockError
	if errors.As(err, &stockErr) {
		JSON(w, http.StatusConflict, ProblemDetail{
			Type:   "insufficient_stock",
			Title:  "Insufficient Stock",
			Status: http.StatusConflict,
			Detail: stockErr.Error(),
			Extensions: map[string]any{
				"medicine_id":   stockErr.MedicineID,
				"medicine_name": stockErr.MedicineName,
				"available":     stockErr.Available,
				"requested":     stockErr.Requested,
			},
		})
		return
	}
	var validationErr *shared.ValidationError
	if errors.As(err, &validationErr) {
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Type:       "validation",
			Title:      "Validation Failed",
			Status:     http.StatusBadRequest,
			Detail:     validationErr.Error(),
			Extensions: map[string]any{"field": validationErr.Field},
		})
		return
	}
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidStateTransition):
		Problem(w, http.StatusUnprocessableEntity, "Invalid State Transition", err.Error())
	case errors.Is(err, shared.ErrConcurrencyConflict):
		Problem(w, http.StatusConflict, "Concurrency Conflict", "the operation lost a race with another request; retry it")
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate Request", "a request with this idempotency key was already processed")
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", "a record with the same identity already exists")
	case errors.Is(err, shared.ErrReferenced):
		Problem(w, http.StatusConflict, "Referenced", "the record is referenced by other records")
	case errors.Is(err, shared.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// RespondLogged logs unexpected errors before responding.
func RespondLogged(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	if logger != nil && isUnexpected(err) {
		logger.Error(msg, slog.Any("error", err))
	}
	RespondError(w, err)
}

func isUnexpected(err error) bool {
	for _, known := range []error{
		shared.ErrNotFound,
		shared.ErrValidation,
		shared.ErrInsufficientStock,
		shared.ErrInvalidStateTransition,
		shared.ErrConcurrencyConflict,
		shared.ErrIdempotencyConflict,
		shared.ErrDuplicate,
		shared.ErrReferenced,
		shared.ErrUnauthorized,
	} {
		if errors.Is(err, known) {
			return false
		}
	}
	return true
}
