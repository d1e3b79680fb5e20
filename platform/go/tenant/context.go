package tenant

import (
	"context"

	"github.com/zenGate-Global/freightdesk/platform/go/features"
)

// Scope captures the resolved tenant for a request. Middleware attaches it
// once the principal has been mapped to a tenant membership.
type Scope struct {
	TenantID string
	Slug     string
	Role     string
	IsDemo   bool
	// Tier is the subscription tier stored on the tenant record.
	Tier features.Tier
}

type ctxKey string

const scopeKey ctxKey = "TMS_TENANT_SCOPE"

// WithScope returns a derived context carrying the tenant Scope.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// FromContext extracts the tenant Scope and a boolean indicating presence.
func FromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeKey).(Scope)
	return scope, ok
}
