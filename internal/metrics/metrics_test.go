package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveStoreOp("insert", time.Now(), nil)
	m.MetaInserted("planned")
	m.Reordered()
}

func TestObserveStoreOp(t *testing.T) {
	m := New()
	m.ObserveStoreOp("insert", time.Now(), nil)
	m.ObserveStoreOp("insert", time.Now(), errors.New("boom"))
	m.ObserveStoreOp("reorder", time.Now(), nil)

	if got := testutil.ToFloat64(m.StoreOpsTotal.WithLabelValues("insert", "ok")); got != 1 {
		t.Errorf("insert ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StoreOpsTotal.WithLabelValues("insert", "error")); got != 1 {
		t.Errorf("insert error = %v, want 1", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/pages", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pages", nil))

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/pages", "418")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "wikimeta_http_requests_total") {
		t.Error("exposition missing wikimeta_http_requests_total")
	}
}
