package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/freightdesk/platform/go/auth"
)

func TestRateLimiterPerPrincipal(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0.001, 2, time.Minute)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(uid string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/loads", nil)
		req = req.WithContext(platformauth.WithUser(req.Context(), &platformauth.UserCredentials{Id: uid}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, call("a"))
	require.Equal(t, http.StatusOK, call("a"))
	require.Equal(t, http.StatusTooManyRequests, call("a"))
	require.Equal(t, http.StatusOK, call("b"))
}

func TestRateLimiterSweep(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(1, 1, time.Minute)
	rl.now = func() time.Time { return now }

	require.True(t, rl.Allow("ip:10.0.0.1"))
	require.Len(t, rl.buckets, 1)

	now = now.Add(2 * time.Minute)
	rl.Sweep()
	require.Empty(t, rl.buckets)
}
