package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/freightdesk/domains/attachments/be/service"
	entities "github.com/zenGate-Global/freightdesk/domains/entities/be/service"
	"github.com/zenGate-Global/freightdesk/platform/go/logging"
	"github.com/zenGate-Global/freightdesk/platform/go/response"
	"github.com/zenGate-Global/freightdesk/platform/go/storage"
	"github.com/zenGate-Global/freightdesk/platform/go/tenant"
)

// Handler serves files attached to tenant records.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

func New(svc *service.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts /{collection}/{id} and /{collection}/{id}/{name}.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/{collection}/{id}", h.list)
	r.Put("/{collection}/{id}/{name}", h.upload)
	r.Get("/{collection}/{id}/{name}", h.download)
	r.Delete("/{collection}/{id}/{name}", h.remove)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, c, ok := h.target(w, r)
	if !ok {
		return
	}
	items, err := h.svc.List(r.Context(), scope.TenantID, c, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	scope, c, ok := h.target(w, r)
	if !ok {
		return
	}
	if r.ContentLength > h.svc.MaxBytes() {
		h.writeError(w, r, service.ErrTooLarge)
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.svc.MaxBytes()+1)
	defer body.Close()

	att, err := h.svc.Upload(r.Context(), scope.TenantID, c, chi.URLParam(r, "id"), chi.URLParam(r, "name"), r.Header.Get("Content-Type"), body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			err = service.ErrTooLarge
		}
		h.writeError(w, r, err)
		return
	}

	logging.FromRequest(r, h.logger).Info("attachment stored",
		zap.String("collection", string(c)),
		zap.String("key", att.Key),
		zap.Int64("size", att.Size),
	)
	response.JSON(w, http.StatusCreated, att)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	scope, c, ok := h.target(w, r)
	if !ok {
		return
	}
	rc, att, err := h.svc.Open(r.Context(), scope.TenantID, c, chi.URLParam(r, "id"), chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(att.Size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+att.Name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		logging.FromRequest(r, h.logger).Warn("attachment download interrupted", zap.Error(err))
	}
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	scope, c, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), scope.TenantID, c, chi.URLParam(r, "id"), chi.URLParam(r, "name")); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.NoContent(w)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (tenant.Scope, entities.Collection, bool) {
	scope, ok := tenant.FromContext(r.Context())
	if !ok || scope.TenantID == "" {
		response.Error(w, http.StatusNotFound, "tenant not found")
		return tenant.Scope{}, "", false
	}
	c := entities.Collection(chi.URLParam(r, "collection"))
	if !c.IsValid() {
		response.Error(w, http.StatusNotFound, "not found")
		return tenant.Scope{}, "", false
	}
	return scope, c, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidName), errors.Is(err, storage.ErrInvalidKey):
		response.ErrorWith(w, http.StatusBadRequest, response.ErrorBody{
			Error:  "validation failed",
			Fields: map[string]string{"name": "must be 1-128 letters, digits, dots, dashes or underscores"},
		})
	case errors.Is(err, service.ErrTooLarge):
		response.Error(w, http.StatusRequestEntityTooLarge, "attachment exceeds "+strconv.FormatInt(h.svc.MaxBytes(), 10)+" bytes")
	case errors.Is(err, service.ErrNotFound), errors.Is(err, entities.ErrNotFound):
		response.Error(w, http.StatusNotFound, "not found")
	default:
		logging.FromRequest(r, h.logger).Error("attachment request failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
