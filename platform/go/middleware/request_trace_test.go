package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/freightdesk/platform/go/auth"
	"github.com/zenGate-Global/freightdesk/platform/go/auth/devtoken"
	"github.com/zenGate-Global/freightdesk/platform/go/requesttrace"
)

func TestRequestTraceWithAuth(t *testing.T) {
	t.Parallel()

	token, err := devtoken.BuildUnsignedFirebaseToken(devtoken.Params{
		ProjectID: "local",
		UserID:    "user-123",
		Email:     "ops@acme.test",
	}, time.Time{})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(platformauth.JWT(platformauth.UnsignedTokenVerifier(), nil))
	r.Use(RequestTrace)

	var audit requesttrace.AuditInfo
	r.Get("/test", func(w http.ResponseWriter, req *http.Request) {
		audit, _ = requesttrace.FromContext(req.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, requesttrace.ActorKindUser, audit.ActorKind)
	require.NotNil(t, audit.UserID)
	require.Equal(t, "user-123", *audit.UserID)
	require.NotEmpty(t, audit.RequestID)
}

func TestRequestTraceAnonymous(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestTrace)

	var audit requesttrace.AuditInfo
	r.Get("/test", func(w http.ResponseWriter, req *http.Request) {
		audit, _ = requesttrace.FromContext(req.Context())
		w.WriteHeader(http.StatusOK)
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/test", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, requesttrace.ActorKindAnonymous, audit.ActorKind)
	require.Nil(t, audit.UserID)
}
