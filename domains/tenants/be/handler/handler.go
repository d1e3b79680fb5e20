package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/freightdesk/domains/tenants/be/service"
	platformauth "github.com/zenGate-Global/freightdesk/platform/go/auth"
	"github.com/zenGate-Global/freightdesk/platform/go/logging"
	"github.com/zenGate-Global/freightdesk/platform/go/response"
)

// Handler exposes the tenant registry over HTTP.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the tenant endpoints. They only require an authenticated
// principal: a user without a tenant must still reach GET and POST /tenant.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/tenant", h.CurrentTenant)
	r.Post("/tenant", h.CreateTenant)
	r.Patch("/tenant/settings", h.UpdateSettings)
	r.Get("/tenant/members", h.ListMembers)
	r.Post("/tenant/members", h.AddMember)
	r.Post("/tenant/invitation/accept", h.AcceptInvitation)
}

type currentTenantResponse struct {
	Tenant     *service.Tenant     `json:"tenant"`
	TenantID   *string             `json:"tenantId"`
	Role       *service.Role       `json:"role"`
	IsDemo     bool                `json:"isDemo"`
	NeedsSetup bool                `json:"needsSetup"`
	Invitation *service.TenantUser `json:"invitation,omitempty"`
}

// CurrentTenant implements GET /tenant.
func (h *Handler) CurrentTenant(w http.ResponseWriter, r *http.Request) {
	user, ok := platformauth.UserFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	t, member, err := h.svc.Current(r.Context(), user.Id, user.Email)
	if errors.Is(err, service.ErrTenantNotFound) {
		out := currentTenantResponse{NeedsSetup: true}
		invite, err := h.svc.PendingInvitation(r.Context(), user.Id)
		switch {
		case err == nil:
			out.Invitation = &invite
		case !errors.Is(err, service.ErrInvitationNotFound):
			h.writeError(w, r, err)
			return
		}
		response.JSON(w, http.StatusOK, out)
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, currentTenantResponse{
		Tenant:   &t,
		TenantID: &t.ID,
		Role:     &member.Role,
		IsDemo:   t.IsDemo,
	})
}

type createTenantRequest struct {
	CompanyName string `json:"companyName"`
}

// CreateTenant implements POST /tenant.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	user, ok := platformauth.UserFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req createTenantRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.svc.CreateTenant(r.Context(), user.Id, user.Email, req.CompanyName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	logging.FromRequest(r, h.logger).Info("tenant created",
		zap.String("tenant_id", created.ID),
		zap.String("slug", created.Slug),
	)
	response.JSON(w, http.StatusCreated, created)
}

// UpdateSettings implements PATCH /tenant/settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	t, member, ok := h.current(w, r)
	if !ok {
		return
	}

	var patch service.SettingsPatch
	if err := response.Decode(r, &patch); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.svc.UpdateSettings(r.Context(), t.ID, member.Role, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

type membersResponse struct {
	Items []service.TenantUser `json:"items"`
}

// ListMembers implements GET /tenant/members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	t, _, ok := h.current(w, r)
	if !ok {
		return
	}

	members, err := h.svc.Members(r.Context(), t.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if members == nil {
		members = []service.TenantUser{}
	}
	response.JSON(w, http.StatusOK, membersResponse{Items: members})
}

type addMemberRequest struct {
	UID   string       `json:"uid"`
	Email string       `json:"email"`
	Role  service.Role `json:"role"`
}

// AddMember implements POST /tenant/members. Admin only. The member is
// invited and joins once they accept.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	t, member, ok := h.current(w, r)
	if !ok {
		return
	}
	if member.Role != service.RoleAdmin {
		h.writeError(w, r, service.ErrForbidden)
		return
	}

	var req addMemberRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := h.svc.AddUserToTenant(r.Context(), t.ID, service.TenantUser{
		UID:   strings.TrimSpace(req.UID),
		Email: strings.TrimSpace(req.Email),
		Role:  req.Role,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, added)
}

// AcceptInvitation implements POST /tenant/invitation/accept.
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := platformauth.UserFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	t, member, err := h.svc.AcceptInvitation(r.Context(), user.Id, user.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	logging.FromRequest(r, h.logger).Info("invitation accepted", zap.String("tenant_id", t.ID))
	response.JSON(w, http.StatusOK, currentTenantResponse{
		Tenant:   &t,
		TenantID: &t.ID,
		Role:     &member.Role,
		IsDemo:   t.IsDemo,
	})
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) (service.Tenant, service.TenantUser, bool) {
	user, ok := platformauth.UserFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthenticated")
		return service.Tenant{}, service.TenantUser{}, false
	}
	t, member, err := h.svc.Current(r.Context(), user.Id, user.Email)
	if err != nil {
		h.writeError(w, r, err)
		return service.Tenant{}, service.TenantUser{}, false
	}
	return t, member, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ErrorWith(w, http.StatusBadRequest, response.ErrorBody{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, service.ErrTenantNotFound):
		response.Error(w, http.StatusNotFound, "tenant not found")
	case errors.Is(err, service.ErrInvitationNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrDemoReadOnly):
		response.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAlreadyMember),
		errors.Is(err, service.ErrMemberOfOtherTenant),
		errors.Is(err, service.ErrSlugUnavailable):
		response.Error(w, http.StatusConflict, err.Error())
	default:
		logging.FromRequest(r, h.logger).Error("tenant request failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
