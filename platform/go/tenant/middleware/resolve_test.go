package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/freightdesk/platform/go/auth"
	"github.com/zenGate-Global/freightdesk/platform/go/requesttrace"
	"github.com/zenGate-Global/freightdesk/platform/go/tenant"
)

type stubResolver struct {
	calls atomic.Int32
	scope tenant.Scope
	err   error
}

func (s *stubResolver) ResolveScope(ctx context.Context, uid, email string) (tenant.Scope, error) {
	s.calls.Add(1)
	return s.scope, s.err
}

func serve(t *testing.T, h http.Handler, creds *platformauth.UserCredentials) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/loads", nil)
	if creds != nil {
		req = req.WithContext(platformauth.WithUser(req.Context(), creds))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWithTenantScopeAttachesScope(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{scope: tenant.Scope{TenantID: "t-1", Slug: "acme"}}
	var got tenant.Scope
	var audit requesttrace.AuditInfo
	h := WithTenantScope(resolver, Config{CacheTTL: time.Minute})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = tenant.FromContext(r.Context())
		audit = requesttrace.FromContextOrAnonymous(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	creds := &platformauth.UserCredentials{Id: "u-1", Email: "ops@acme.test"}
	require.Equal(t, http.StatusOK, serve(t, h, creds).Code)
	require.Equal(t, "t-1", got.TenantID)
	require.Equal(t, "t-1", *audit.TenantID)

	require.Equal(t, http.StatusOK, serve(t, h, creds).Code)
	require.EqualValues(t, 1, resolver.calls.Load(), "second request served from cache")
}

func TestWithTenantScopeNoTenant(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{err: tenant.ErrNotResolved}
	h := WithTenantScope(resolver, Config{CacheTTL: time.Minute})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	creds := &platformauth.UserCredentials{Id: "u-2"}
	rec := serve(t, h, creds)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"tenant not found"}`, rec.Body.String())

	serve(t, h, creds)
	require.EqualValues(t, 2, resolver.calls.Load(), "misses are not cached")
}

func TestWithTenantScopeStoreFailure(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{err: errors.New("connection refused to 10.0.0.7")}
	h := WithTenantScope(resolver, Config{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := serve(t, h, &platformauth.UserCredentials{Id: "u-3"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "10.0.0.7")
}

func TestWithTenantScopeRequiresPrincipal(t *testing.T) {
	t.Parallel()

	h := WithTenantScope(&stubResolver{}, Config{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	require.Equal(t, http.StatusUnauthorized, serve(t, h, nil).Code)
}

func TestScopeCacheExpires(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	c := newScopeCache(time.Minute)
	c.now = func() time.Time { return now }

	c.put("u", tenant.Scope{TenantID: "t"})
	_, ok := c.get("u")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.get("u")
	require.False(t, ok)
}

func TestScopeCacheDropsExpiredEntries(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	c := newScopeCache(time.Minute)
	c.now = func() time.Time { return now }

	c.put("u1", tenant.Scope{TenantID: "t1"})
	c.put("u2", tenant.Scope{TenantID: "t2"})
	c.put("u3", tenant.Scope{TenantID: "t3"})
	require.Equal(t, 3, c.size())

	now = now.Add(2 * time.Minute)
	_, ok := c.get("u1")
	require.False(t, ok)
	require.Equal(t, 2, c.size())

	c.put("u4", tenant.Scope{TenantID: "t4"})
	require.Equal(t, 1, c.size())
	scope, ok := c.get("u4")
	require.True(t, ok)
	require.Equal(t, "t4", scope.TenantID)
}
