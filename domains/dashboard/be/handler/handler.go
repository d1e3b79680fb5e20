package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/zenGate-Global/freightdesk/domains/dashboard/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/logging"
	"github.com/zenGate-Global/freightdesk/platform/go/response"
	"github.com/zenGate-Global/freightdesk/platform/go/tenant"
)

// Handler serves the dashboard summary.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("dashboard service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Stats implements GET /dashboard.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenant.FromContext(r.Context())
	if !ok || scope.TenantID == "" {
		response.Error(w, http.StatusNotFound, "tenant not found")
		return
	}

	stats, err := h.svc.DashboardStats(r.Context(), scope.TenantID)
	if err != nil {
		logging.FromRequest(r, h.logger).Error("dashboard aggregation failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	response.JSON(w, http.StatusOK, stats)
}
