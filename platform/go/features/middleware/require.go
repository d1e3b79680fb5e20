package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/zenGate-Global/freightdesk/platform/go/features"
	platformlogging "github.com/zenGate-Global/freightdesk/platform/go/logging"
	"github.com/zenGate-Global/freightdesk/platform/go/response"
	"github.com/zenGate-Global/freightdesk/platform/go/tenant"
)

// CheckerFunc returns the feature checker for the caller of ctx.
type CheckerFunc func(ctx context.Context) (features.Checker, error)

// DenialRecorder observes rejected feature requests.
type DenialRecorder interface {
	FeatureDenied(feature, tier string)
}

// ScopeChecker answers from the tier on the resolved tenant scope. The demo
// tenant answers from demo instead, reloaded on every call so a tier switch
// made through another replica is visible immediately.
func ScopeChecker(demo *features.Access) CheckerFunc {
	return func(ctx context.Context) (features.Checker, error) {
		scope, ok := tenant.FromContext(ctx)
		if !ok {
			return features.Bound{}, nil
		}
		if scope.IsDemo && demo != nil {
			if err := demo.Load(ctx); err != nil {
				return nil, err
			}
			return demo.Snapshot(), nil
		}
		return features.For(scope.Tier), nil
	}
}

// RequireFeature rejects the request with 403 unless the caller's tier enables
// every feature in fs. The body names the tier that would unlock them.
func RequireFeature(checker CheckerFunc, recorder DenialRecorder, logger *zap.Logger, fs ...features.Feature) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := checker(r.Context())
			if err != nil {
				platformlogging.FromRequest(r, logger).Error("resolve feature access", zap.Error(err))
				response.Error(w, http.StatusInternalServerError, "internal error")
				return
			}

			decision := features.Gate(c, fs...)
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			upgrade := decision.Upgrade
			for _, f := range upgrade.Missing {
				if recorder != nil {
					recorder.FeatureDenied(string(f), string(upgrade.CurrentTier))
				}
			}
			platformlogging.FromRequest(r, logger).Info("feature denied",
				zap.String("current_tier", string(upgrade.CurrentTier)),
				zap.String("required_tier", string(upgrade.RequiredTier)),
				zap.Any("missing", upgrade.Missing),
			)

			response.ErrorWith(w, http.StatusForbidden, response.ErrorBody{
				Error:        "feature not available on current plan",
				RequiredTier: string(upgrade.RequiredTier),
				Upgrade:      upgrade,
			})
		})
	}
}
