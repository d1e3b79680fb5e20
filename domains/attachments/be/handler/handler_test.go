package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/freightdesk/domains/attachments/be/handler"
	"github.com/zenGate-Global/freightdesk/domains/attachments/be/service"
	entitiesrepo "github.com/zenGate-Global/freightdesk/domains/entities/be/repo"
	entities "github.com/zenGate-Global/freightdesk/domains/entities/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/storage"
	"github.com/zenGate-Global/freightdesk/platform/go/tenant"
)

func newRouter(t *testing.T) (http.Handler, string) {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	docs := entities.New(entitiesrepo.NewMemoryRepository(), entities.Config{})
	load, err := docs.Create(context.Background(), entities.Loads, "t1", map[string]any{"customerId": "c1"})
	require.NoError(t, err)

	h := handler.New(service.New(store, docs, 16), nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if id := req.Header.Get("X-Tenant"); id != "" {
				req = req.WithContext(tenant.WithScope(req.Context(), tenant.Scope{TenantID: id}))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/attachments", h.Routes)
	return r, load.ID
}

func send(h http.Handler, method, path, tenantID, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if tenantID != "" {
		req.Header.Set("X-Tenant", tenantID)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAttachmentLifecycle(t *testing.T) {
	t.Parallel()
	h, loadID := newRouter(t)
	base := "/attachments/loads/" + loadID

	rec := send(h, http.MethodPut, base+"/rate-con.pdf", "t1", "application/pdf", "%PDF-1.7")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = send(h, http.MethodGet, base, "t1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Items []service.Attachment `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Items, 1)
	require.Equal(t, "rate-con.pdf", listed.Items[0].Name)

	rec = send(h, http.MethodGet, base+"/rate-con.pdf", "t1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "%PDF-1.7", rec.Body.String())
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "rate-con.pdf")

	require.Equal(t, http.StatusNoContent, send(h, http.MethodDelete, base+"/rate-con.pdf", "t1", "", "").Code)
	require.Equal(t, http.StatusNotFound, send(h, http.MethodGet, base+"/rate-con.pdf", "t1", "", "").Code)
}

func TestAttachmentErrors(t *testing.T) {
	t.Parallel()
	h, loadID := newRouter(t)
	base := "/attachments/loads/" + loadID

	require.Equal(t, http.StatusNotFound, send(h, http.MethodGet, base, "", "", "").Code)
	require.Equal(t, http.StatusNotFound, send(h, http.MethodGet, base, "t2", "", "").Code)
	require.Equal(t, http.StatusNotFound, send(h, http.MethodGet, "/attachments/trailers/"+loadID, "t1", "", "").Code)
	require.Equal(t, http.StatusBadRequest, send(h, http.MethodPut, base+"/.env", "t1", "", "x").Code)
	require.Equal(t, http.StatusRequestEntityTooLarge, send(h, http.MethodPut, base+"/big.bin", "t1", "", strings.Repeat("x", 17)).Code)
}
