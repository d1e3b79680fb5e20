package handler

import (
	"errors"
	"net/http"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/zenGate-Global/freightdesk/platform/go/features"
	featuremw "github.com/zenGate-Global/freightdesk/platform/go/features/middleware"
	"github.com/zenGate-Global/freightdesk/platform/go/logging"
	"github.com/zenGate-Global/freightdesk/platform/go/response"
	"github.com/zenGate-Global/freightdesk/platform/go/tenant"
)

// Handler serves plan and feature-access queries.
type Handler struct {
	checker featuremw.CheckerFunc
	demo    *features.Access
	logger  *zap.Logger
}

// New constructs a Handler. demo may be nil when the demo tier override is disabled.
func New(checker featuremw.CheckerFunc, demo *features.Access, logger *zap.Logger) *Handler {
	if checker == nil {
		panic("feature checker is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{checker: checker, demo: demo, logger: logger}
}

type tierView struct {
	features.TierInfo
	Features []features.Feature `json:"features"`
}

type tiersResponse struct {
	Tiers []tierView `json:"tiers"`
}

// Tiers implements GET /tiers, the public plan list.
func (h *Handler) Tiers(w http.ResponseWriter, r *http.Request) {
	out := tiersResponse{Tiers: make([]tierView, 0, len(features.Tiers()))}
	for _, tier := range features.Tiers() {
		info, _ := features.TierInfoFor(tier)
		out.Tiers = append(out.Tiers, tierView{TierInfo: info, Features: features.TierFeatures(tier)})
	}
	response.JSON(w, http.StatusOK, out)
}

type missingFeature struct {
	features.Info
	RequiredTier features.Tier `json:"requiredTier"`
}

type snapshotResponse struct {
	Tier      features.Tier     `json:"tier"`
	TierInfo  features.TierInfo `json:"tierInfo"`
	IsDemo    bool              `json:"isDemo"`
	Available []features.Info   `json:"available"`
	Missing   []missingFeature  `json:"missing"`
}

// Snapshot implements GET /features.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolve(w, r)
	if !ok {
		return
	}

	// one read of the tier; the demo Access can change under us
	tier := c.Tier()
	view := features.For(tier)

	scope, _ := tenant.FromContext(r.Context())
	info, _ := features.TierInfoFor(tier)
	out := snapshotResponse{
		Tier:      tier,
		TierInfo:  info,
		IsDemo:    scope.IsDemo,
		Available: []features.Info{},
		Missing:   []missingFeature{},
	}
	for _, f := range features.AllFeatures() {
		fi, _ := features.FeatureInfoFor(f)
		if view.Can(f) {
			out.Available = append(out.Available, fi)
			continue
		}
		out.Missing = append(out.Missing, missingFeature{Info: fi, RequiredTier: features.MinimumTierForFeature(f)})
	}
	response.JSON(w, http.StatusOK, out)
}

// Gate implements GET /features/gate?feature=a&feature=b.
func (h *Handler) Gate(w http.ResponseWriter, r *http.Request) {
	var names []string
	if err := runtime.BindQueryParameter("form", true, true, "feature", r.URL.Query(), &names); err != nil || len(names) == 0 {
		response.ErrorWith(w, http.StatusBadRequest, response.ErrorBody{
			Error:  "invalid query parameter",
			Fields: map[string]string{"feature": "at least one feature is required"},
		})
		return
	}

	c, ok := h.resolve(w, r)
	if !ok {
		return
	}

	fs := make([]features.Feature, 0, len(names))
	for _, name := range names {
		fs = append(fs, features.Feature(name))
	}
	response.JSON(w, http.StatusOK, features.Gate(c, fs...))
}

type setTierRequest struct {
	Tier string `json:"tier"`
}

// SetDemoTier implements PUT /features/tier. Only the demo tenant may switch
// plans here; real tenants change tier through billing.
func (h *Handler) SetDemoTier(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenant.FromContext(r.Context())
	if !ok || !scope.IsDemo || h.demo == nil {
		response.Error(w, http.StatusForbidden, "tier can only be changed for the demo tenant")
		return
	}

	var req setTierRequest
	if err := response.Decode(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	tier, valid := features.ParseTier(req.Tier)
	if !valid {
		response.ErrorWith(w, http.StatusBadRequest, response.ErrorBody{
			Error:  "validation failed",
			Fields: map[string]string{"tier": "must be one of trial, starter, professional, enterprise"},
		})
		return
	}

	if err := h.demo.SetTier(r.Context(), tier); err != nil {
		if errors.Is(err, features.ErrInvalidTier) {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		logging.FromRequest(r, h.logger).Error("persist demo tier", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	logging.FromRequest(r, h.logger).Info("demo tier changed", zap.String("tier", string(tier)))
	h.Snapshot(w, r)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (features.Checker, bool) {
	c, err := h.checker(r.Context())
	if err != nil {
		logging.FromRequest(r, h.logger).Error("resolve feature access", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return c, true
}
