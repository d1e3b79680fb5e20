package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zenGate-Global/freightdesk/domains/features/be/handler"
	"github.com/zenGate-Global/freightdesk/platform/go/features"
	featuremw "github.com/zenGate-Global/freightdesk/platform/go/features/middleware"
	"github.com/zenGate-Global/freightdesk/platform/go/preferences"
	"github.com/zenGate-Global/freightdesk/platform/go/tenant"
)

func newRouter(scope *tenant.Scope) (http.Handler, *features.Access) {
	demo := features.NewAccess(preferences.NewMemoryStore())
	h := handler.New(featuremw.ScopeChecker(demo), demo, zap.NewNop())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if scope != nil {
				req = req.WithContext(tenant.WithScope(req.Context(), *scope))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/tiers", h.Tiers)
	r.Get("/features", h.Snapshot)
	r.Get("/features/gate", h.Gate)
	r.Put("/features/tier", h.SetDemoTier)
	return r, demo
}

func serve(t *testing.T, h http.Handler, method, target, body string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestTiersListsEveryPlan(t *testing.T) {
	t.Parallel()
	r, _ := newRouter(nil)

	code, body := serve(t, r, http.MethodGet, "/tiers", "")
	require.Equal(t, http.StatusOK, code)
	tiers := body["tiers"].([]any)
	require.Len(t, tiers, 4)
	pro := tiers[2].(map[string]any)
	require.Equal(t, "professional", pro["id"])
	require.Equal(t, float64(149), pro["priceMonthly"])
	require.Contains(t, pro["features"], "live_tracking")
}

func TestSnapshotUsesTenantTier(t *testing.T) {
	t.Parallel()
	r, _ := newRouter(&tenant.Scope{TenantID: "T1", Tier: features.TierStarter})

	code, body := serve(t, r, http.MethodGet, "/features", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "starter", body["tier"])
	require.Equal(t, false, body["isDemo"])
	require.Len(t, body["available"], len(features.TierFeatures(features.TierStarter)))
	require.Len(t, body["missing"], len(features.MissingFeatures(features.TierStarter)))
}

func TestGateDecision(t *testing.T) {
	t.Parallel()
	r, _ := newRouter(&tenant.Scope{TenantID: "T1", Tier: features.TierStarter})

	code, body := serve(t, r, http.MethodGet, "/features/gate?feature=live_tracking", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, false, body["allowed"])
	upgrade := body["upgrade"].(map[string]any)
	require.Equal(t, "professional", upgrade["requiredTier"])
	require.Equal(t, float64(149), upgrade["priceMonthly"])

	code, body = serve(t, r, http.MethodGet, "/features/gate?feature=invoicing&feature=dashboard", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["allowed"])

	code, _ = serve(t, r, http.MethodGet, "/features/gate", "")
	require.Equal(t, http.StatusBadRequest, code)
}

func TestSetDemoTier(t *testing.T) {
	t.Parallel()
	r, demo := newRouter(&tenant.Scope{TenantID: "demo-tenant", IsDemo: true})

	code, body := serve(t, r, http.MethodPut, "/features/tier", `{"tier":"enterprise"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "enterprise", body["tier"])
	require.Equal(t, true, body["isDemo"])
	require.Empty(t, body["missing"])
	require.Equal(t, features.TierEnterprise, demo.Tier())

	code, body = serve(t, r, http.MethodPut, "/features/tier", `{"tier":"platinum"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, body["fields"], "tier")
}

func TestSetDemoTierRejectsRegularTenant(t *testing.T) {
	t.Parallel()
	r, _ := newRouter(&tenant.Scope{TenantID: "T1", Tier: features.TierTrial})

	code, _ := serve(t, r, http.MethodPut, "/features/tier", `{"tier":"enterprise"}`)
	require.Equal(t, http.StatusForbidden, code)
}
