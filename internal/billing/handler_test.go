package billing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/auth"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/rbac"
)

func newTestRouter(f *fixture, role string) http.Handler {
	h := NewHandler(nil, f.svc, rbac.Middleware{Service: rbac.NewService(nil)})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.WithPrincipal(req.Context(), auth.Principal{UserID: 11, Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/api/bills", h.MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateAndCancel(t *testing.T) {
	f := newFixture(t, ServiceConfig{})
	med := f.paracetamol(20)
	cashier := newTestRouter(f, rbac.RoleCashier)

	body := fmt.Sprintf(`{"customer_name":"Asha","discount_percentage":"10","tax_percentage":"5","items":[{"medicine_id":%d,"quantity":5}]}`, med.ID)
	key := uuid.NewString()
	rec := do(t, cashier, http.MethodPost, "/api/bills/", body, map[string]string{"Idempotency-Key": key})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created CreateBillResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "BILL-20260314-0001", created.BillNumber)
	assert.Equal(t, int64(11), f.repo.bill(created.BillID).CreatedBy)
	assert.Equal(t, PaymentCash, f.repo.bill(created.BillID).PaymentMethod)

	rec = do(t, cashier, http.MethodPost, "/api/bills/", body, map[string]string{"Idempotency-Key": key})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, cashier, http.MethodGet, fmt.Sprintf("/api/bills/%d", created.BillID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "47.25", view["total_amount"])

	cancelPath := fmt.Sprintf("/api/bills/%d/cancel", created.BillID)
	rec = do(t, cashier, http.MethodPost, cancelPath, "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	pharmacist := newTestRouter(f, rbac.RolePharmacist)
	rec = do(t, pharmacist, http.MethodPost, cancelPath, `{"reason":"duplicate sale"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 20, f.repo.medicine(med.ID).Quantity)

	rec = do(t, pharmacist, http.MethodPost, cancelPath, "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerCreateErrors(t *testing.T) {
	f := newFixture(t, ServiceConfig{})
	med := f.paracetamol(2)
	cashier := newTestRouter(f, rbac.RoleCashier)

	rec := do(t, cashier, http.MethodPost, "/api/bills/", `{"items":[]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, cashier, http.MethodPost, "/api/bills/", `{"items":[{"medicine_id":1,"quantity":0}]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, cashier, http.MethodPost, "/api/bills/", `{"unknown":true}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, cashier, http.MethodPost, "/api/bills/", fmt.Sprintf(`{"items":[{"medicine_id":%d,"quantity":3}]}`, med.ID), nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "insufficient_stock", problem["type"])

	rec = do(t, cashier, http.MethodGet, "/api/bills/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, cashier, http.MethodGet, "/api/bills/?date_from=14-03-2026", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRefundAndPayment(t *testing.T) {
	f := newFixture(t, ServiceConfig{})
	med := f.paracetamol(20)
	res := f.sell(t, med.ID, 5)
	pharmacist := newTestRouter(f, rbac.RolePharmacist)

	rec := do(t, pharmacist, http.MethodPost, fmt.Sprintf("/api/bills/%d/payments", res.BillID), `{"payment_method":"card","amount":"1.00"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, pharmacist, http.MethodPost, fmt.Sprintf("/api/bills/%d/refund", res.BillID), `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, pharmacist, http.MethodPost, fmt.Sprintf("/api/bills/%d/refund", res.BillID), `{"reason":"allergy"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result RefundResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotZero(t, result.RefundBillID)
	assert.Equal(t, StatusRefunded, f.repo.bill(res.BillID).Status)
}
