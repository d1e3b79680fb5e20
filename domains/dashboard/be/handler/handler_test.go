package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zenGate-Global/freightdesk/domains/dashboard/be/handler"
	"github.com/zenGate-Global/freightdesk/domains/dashboard/be/service"
	"github.com/zenGate-Global/freightdesk/domains/entities/be/repo"
	entities "github.com/zenGate-Global/freightdesk/domains/entities/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/tenant"
)

func TestStatsEmptyTenantReturnsZeroShape(t *testing.T) {
	t.Parallel()

	h := handler.New(service.New(repo.NewMemoryRepository()), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(tenant.WithScope(req.Context(), tenant.Scope{TenantID: "new-tenant"}))
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["hasData"])
	for _, key := range []string{"totalLoads", "activeLoads", "completedLoads", "revenue", "pendingInvoices", "activeDrivers", "activeVehicles"} {
		require.Equalf(t, float64(0), body[key], "field %s", key)
	}
}

func TestStatsWithoutTenant(t *testing.T) {
	t.Parallel()

	h := handler.New(service.New(repo.NewMemoryRepository()), zap.NewNop())
	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

type failingReader struct{}

func (failingReader) List(context.Context, entities.Collection, string, entities.Query) ([]entities.Document, error) {
	return nil, errors.New("connection refused")
}

func (failingReader) Exists(context.Context, string, ...entities.Collection) (bool, error) {
	return false, errors.New("connection refused")
}

func TestStatsHidesStoreErrors(t *testing.T) {
	t.Parallel()

	h := handler.New(service.New(failingReader{}), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(tenant.WithScope(req.Context(), tenant.Scope{TenantID: "T1"}))
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
