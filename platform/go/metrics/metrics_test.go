package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	t.Parallel()

	m := New("freightdesk-test")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/loads/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/loads/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	require.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("freightdesk-test", http.MethodGet, "/loads/{id}", "404")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.statusCategory.WithLabelValues("freightdesk-test", "4xx", http.MethodGet, "/loads/{id}")))
}

func TestDomainCounters(t *testing.T) {
	t.Parallel()

	m := New("svc")
	m.FeatureDenied("live_tracking", "starter")
	m.FeatureDenied("live_tracking", "starter")
	m.TenantProvisioned(true)

	require.Equal(t, 2.0, testutil.ToFloat64(m.featureDenials.WithLabelValues("svc", "live_tracking", "starter")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.tenants.WithLabelValues("svc", "demo")))

	var nilMetrics *Metrics
	require.NotPanics(t, func() { nilMetrics.FeatureDenied("x", "y") })
}

func TestHandlerServesExposition(t *testing.T) {
	t.Parallel()

	m := New("svc")
	m.TenantProvisioned(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `tenants_provisioned_total{kind="regular",service="svc"} 1`)
}
