package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesPharmacyCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.BillCommitted("created")
	metrics.BillFailed("create", "insufficient_stock")
	metrics.StockMoved("sale", 5)
	metrics.StockMoved("return", 0)

	body := scrape(t, metrics)
	for _, want := range []string{
		`pharmacy_bills_total{outcome="created"} 1`,
		`pharmacy_bill_failures_total{operation="create",reason="insufficient_stock"} 1`,
		`pharmacy_stock_movements_total{kind="sale"} 5`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %s, got: %s", want, body)
		}
	}
	if strings.Contains(body, `kind="return"`) {
		t.Fatalf("zero quantity movement must not be recorded")
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/bills/{id}")

	req := httptest.NewRequest(http.MethodGet, "/api/bills/7", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `pharmacy_http_requests_total{code="418",route="/api/bills/{id}"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `pharmacy_http_request_duration_seconds_bucket{route="/api/bills/{id}"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.BillCommitted("created")
	metrics.BillFailed("create", "internal")
	metrics.StockMoved("sale", 1)
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
