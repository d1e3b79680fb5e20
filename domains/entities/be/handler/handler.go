package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zenGate-Global/freightdesk/domains/entities/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/logging"
	"github.com/zenGate-Global/freightdesk/platform/go/response"
	"github.com/zenGate-Global/freightdesk/platform/go/tenant"
)

// Handler exposes the tenant-scoped collections over HTTP.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("entities service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Mount registers list, create, get, patch and delete for c on r.
func (h *Handler) Mount(r chi.Router, c service.Collection) {
	r.Get("/", h.list(c))
	r.Post("/", h.create(c))
	r.Get("/{id}", h.get(c))
	r.Patch("/{id}", h.update(c))
	r.Delete("/{id}", h.remove(c))
}

// MountFleet registers the combined drivers and vehicles view.
func (h *Handler) MountFleet(r chi.Router) {
	r.Get("/", h.fleet)
	r.Post("/", h.createFleetItem)
}

type listResponse struct {
	Items []service.Document `json:"items"`
}

type fleetResponse struct {
	Drivers  []service.Document `json:"drivers"`
	Vehicles []service.Document `json:"vehicles"`
}

func (h *Handler) list(c service.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := h.scope(w, r)
		if !ok {
			return
		}

		var limit int
		if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
			response.ErrorWith(w, http.StatusBadRequest, response.ErrorBody{
				Error:  "invalid query parameter",
				Fields: map[string]string{"limit": "must be an integer"},
			})
			return
		}

		var (
			docs []service.Document
			err  error
		)
		if status := r.URL.Query().Get(service.FieldStatus); c == service.Loads && status != "" {
			docs, err = h.svc.GetByStatus(r.Context(), scope.TenantID, status)
		} else {
			docs, err = h.svc.GetAll(r.Context(), c, scope.TenantID, limit)
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		response.JSON(w, http.StatusOK, listResponse{Items: docs})
	}
}

func (h *Handler) create(c service.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := h.scope(w, r)
		if !ok {
			return
		}

		var body map[string]any
		if err := response.Decode(r, &body); err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		doc, err := h.svc.Create(r.Context(), c, scope.TenantID, body)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		logging.FromRequest(r, h.logger).Info("document created",
			zap.String("collection", string(c)),
			zap.String("document_id", doc.ID),
		)
		response.JSON(w, http.StatusCreated, doc)
	}
}

func (h *Handler) get(c service.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := h.scope(w, r)
		if !ok {
			return
		}
		doc, err := h.svc.GetByID(r.Context(), c, scope.TenantID, chi.URLParam(r, "id"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		response.JSON(w, http.StatusOK, doc)
	}
}

func (h *Handler) update(c service.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := h.scope(w, r)
		if !ok {
			return
		}

		var patch map[string]any
		if err := response.Decode(r, &patch); err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		doc, err := h.svc.Update(r.Context(), c, scope.TenantID, chi.URLParam(r, "id"), patch)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		response.JSON(w, http.StatusOK, doc)
	}
}

func (h *Handler) remove(c service.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := h.scope(w, r)
		if !ok {
			return
		}
		if err := h.svc.Delete(r.Context(), c, scope.TenantID, chi.URLParam(r, "id")); err != nil {
			h.writeError(w, r, err)
			return
		}
		response.NoContent(w)
	}
}

// fleet reads drivers and vehicles concurrently.
func (h *Handler) fleet(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var out fleetResponse
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		out.Drivers, err = h.svc.GetAll(ctx, service.Drivers, scope.TenantID, 0)
		return err
	})
	g.Go(func() error {
		var err error
		out.Vehicles, err = h.svc.GetAll(ctx, service.Vehicles, scope.TenantID, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, out)
}

// createFleetItem creates a driver or a vehicle depending on the "type" field.
func (h *Handler) createFleetItem(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var body map[string]any
	if err := response.Decode(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	kind, _ := body["type"].(string)
	var c service.Collection
	switch strings.ToLower(kind) {
	case "driver":
		c = service.Drivers
	case "vehicle":
		c = service.Vehicles
	default:
		response.ErrorWith(w, http.StatusBadRequest, response.ErrorBody{
			Error:  "validation failed",
			Fields: map[string]string{"type": "must be driver or vehicle"},
		})
		return
	}
	delete(body, "type")

	doc, err := h.svc.Create(r.Context(), c, scope.TenantID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (tenant.Scope, bool) {
	scope, ok := tenant.FromContext(r.Context())
	if !ok || scope.TenantID == "" {
		response.Error(w, http.StatusNotFound, "tenant not found")
		return tenant.Scope{}, false
	}
	return scope, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromRequest(r, h.logger)

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		logger.Warn("document rejected", zap.Any("fields", verr.Fields))
		response.ErrorWith(w, http.StatusBadRequest, response.ErrorBody{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, service.ErrNotFound):
		logger.Info("document not found", zap.String("path", r.URL.Path))
		response.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrInvalidTransition):
		logger.Warn("load transition rejected", zap.Error(err))
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.Error(w, http.StatusConflict, err.Error())
	default:
		logger.Error("document request failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
