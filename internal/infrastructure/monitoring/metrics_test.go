package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetricsCollector_IndependentRegistries(t *testing.T) {
	a := NewMetricsCollector(zap.NewNop())
	b := NewMetricsCollector(zap.NewNop())

	a.APIRequest(http.MethodGet, "/recipes/search", http.StatusOK, 10*time.Millisecond)
	a.APIRequest(http.MethodGet, "/auth/profile", http.StatusUnauthorized, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(a.apiUnauthorized))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.apiUnauthorized))
}

func TestMetricsCollector_HTTPMiddleware(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())

	r := chi.NewRouter()
	r.Use(m.HTTPMiddleware)
	r.Get("/recipes/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recipes/abc", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/recipes/{id}", "404")))
}

func TestMetricsCollector_Handler(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())
	m.SetBackendUp(true)
	m.CacheOperation("get", "hit")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "backend_up 1")
	assert.Contains(t, rec.Body.String(), `query_cache_operations_total{operation="get",status="hit"} 1`)
}

func TestTracingProvider_Disabled(t *testing.T) {
	tp, err := NewTracingProvider(TracingConfig{ServiceName: "test"}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.Enabled())

	ctx, span := tp.StartCacheSpan(context.Background(), "fill", "recipes/search")
	tp.RecordError(ctx, errors.New("boom"))
	span.End()

	assert.NoError(t, tp.Shutdown(context.Background()))
}
