package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/freightdesk/platform/go/features"
	"github.com/zenGate-Global/freightdesk/platform/go/preferences"
	"github.com/zenGate-Global/freightdesk/platform/go/tenant"
)

type countingRecorder struct {
	denied []string
}

func (c *countingRecorder) FeatureDenied(feature, tier string) {
	c.denied = append(c.denied, feature+"@"+tier)
}

func gated(t *testing.T, checker CheckerFunc, rec DenialRecorder, scope *tenant.Scope, fs ...features.Feature) *httptest.ResponseRecorder {
	t.Helper()
	h := RequireFeature(checker, rec, nil, fs...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/loads", nil)
	if scope != nil {
		req = req.WithContext(tenant.WithScope(req.Context(), *scope))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRequireFeatureAllowsEnabledTier(t *testing.T) {
	t.Parallel()

	scope := &tenant.Scope{TenantID: "t1", Tier: features.TierProfessional}
	w := gated(t, ScopeChecker(nil), nil, scope, features.LiveTracking)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireFeatureDeniesWithUpgradePrompt(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	scope := &tenant.Scope{TenantID: "t1", Tier: features.TierStarter}
	w := gated(t, ScopeChecker(nil), rec, scope, features.LiveTracking)
	require.Equal(t, http.StatusForbidden, w.Code)

	var body struct {
		Error        string                 `json:"error"`
		RequiredTier string                 `json:"requiredTier"`
		Upgrade      features.UpgradePrompt `json:"upgrade"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "professional", body.RequiredTier)
	require.Equal(t, 149, body.Upgrade.PriceMonthly)
	require.Equal(t, features.TierStarter, body.Upgrade.CurrentTier)
	require.Equal(t, []string{"live_tracking@starter"}, rec.denied)
}

func TestRequireFeatureWithoutScopeFailsClosed(t *testing.T) {
	t.Parallel()

	w := gated(t, ScopeChecker(nil), nil, nil, features.Dashboard)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestScopeCheckerUsesDemoPreference(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := preferences.NewMemoryStore()
	demo := features.NewAccess(store)
	scope := &tenant.Scope{TenantID: "demo", IsDemo: true, Tier: features.TierTrial}

	require.Equal(t, http.StatusForbidden, gated(t, ScopeChecker(demo), nil, scope, features.Settlements).Code)

	// a write from another replica is picked up on the next request
	require.NoError(t, store.Set(ctx, features.DemoTierKey, "professional"))
	require.Equal(t, http.StatusNoContent, gated(t, ScopeChecker(demo), nil, scope, features.Settlements).Code)
}

func TestRequireFeatureCheckerError(t *testing.T) {
	t.Parallel()

	failing := func(context.Context) (features.Checker, error) { return nil, errors.New("redis down") }
	w := gated(t, failing, nil, &tenant.Scope{TenantID: "t"}, features.Dashboard)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequireFeatureWithoutScopeLabelsDefaultTier(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	w := gated(t, ScopeChecker(nil), rec, nil, features.LiveTracking)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, []string{"live_tracking@trial"}, rec.denied)

	var body struct {
		Upgrade features.UpgradePrompt `json:"upgrade"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, features.TierTrial, body.Upgrade.CurrentTier)
}

func TestScopeCheckerReturnsDemoSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	demo := features.NewAccess(preferences.NewMemoryStore())
	require.NoError(t, demo.SetTier(ctx, features.TierProfessional))

	scopeCtx := tenant.WithScope(ctx, tenant.Scope{TenantID: "demo", IsDemo: true})
	c, err := ScopeChecker(demo)(scopeCtx)
	require.NoError(t, err)

	require.NoError(t, demo.SetTier(ctx, features.TierTrial))
	require.Equal(t, features.TierProfessional, c.Tier())
	require.True(t, c.Can(features.LiveTracking))
}
