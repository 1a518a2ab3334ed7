package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", shared.Invalid("items", "must not be empty"), http.StatusBadRequest},
		{"not found", shared.NotFound("bill", 9), http.StatusNotFound},
		{"transition", &shared.InvalidTransitionError{Entity: "bill", ID: 1, From: "cancelled", To: "cancelled"}, http.StatusUnprocessableEntity},
		{"conflict", fmt.Errorf("billing: create: %w", shared.ErrConcurrencyConflict), http.StatusConflict},
		{"idempotency", shared.ErrIdempotencyConflict, http.StatusConflict},
		{"duplicate", shared.ErrDuplicate, http.StatusConflict},
		{"referenced", shared.ErrReferenced, http.StatusConflict},
		{"unauthorized", shared.ErrUnauthorized, http.StatusUnauthorized},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "connection reset")
			}
		})
	}
}

func TestRespondErrorInsufficientStock(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("billing: %w", &shared.InsufficientStockError{
		MedicineID: 4, MedicineName: "Amoxicillin", Available: 2, Requested: 5,
	}))
	require.Equal(t, http.StatusConflict, rec.Code)

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "insufficient_stock", body.Type)
	assert.EqualValues(t, 2, body.Extensions["available"])
	assert.EqualValues(t, 5, body.Extensions["requested"])
}

func TestIsUnexpected(t *testing.T) {
	assert.False(t, isUnexpected(shared.NotFound("medicine", 1)))
	assert.True(t, isUnexpected(errors.New("boom")))
}
