package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/freightdesk/platform/go/auth"
	platformlogging "github.com/zenGate-Global/freightdesk/platform/go/logging"
	"github.com/zenGate-Global/freightdesk/platform/go/requesttrace"
	"github.com/zenGate-Global/freightdesk/platform/go/response"
	"github.com/zenGate-Global/freightdesk/platform/go/tenant"
)

// Resolver maps a verified principal to its tenant. It returns tenant.ErrNotResolved
// when the principal has no membership.
type Resolver interface {
	ResolveScope(ctx context.Context, uid, email string) (tenant.Scope, error)
}

// Config controls middleware behavior.
type Config struct {
	// Optional small in-memory TTL cache to avoid store hits; zero disables caching.
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// WithTenantScope resolves the caller's tenant and attaches tenant.Scope to the context.
// Principals without a tenant get 404 {"error":"tenant not found"}; only successful
// resolutions are cached.
func WithTenantScope(resolver Resolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var cache *scopeCache
	if cfg.CacheTTL > 0 {
		cache = newScopeCache(cfg.CacheTTL)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, ok := platformauth.UserFromContext(r.Context())
			if !ok || creds == nil || creds.Id == "" {
				response.Error(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			scope, hit := cache.get(creds.Id)
			if !hit {
				var err error
				scope, err = resolver.ResolveScope(r.Context(), creds.Id, creds.Email)
				switch {
				case errors.Is(err, tenant.ErrNotResolved):
					response.Error(w, http.StatusNotFound, "tenant not found")
					return
				case err != nil:
					platformlogging.FromRequest(r, logger).Error("resolve tenant", zap.Error(err))
					response.Error(w, http.StatusInternalServerError, "internal error")
					return
				}
				cache.put(creds.Id, scope)
			}

			ctx := tenant.WithScope(r.Context(), scope)
			ctx = requesttrace.WithTenant(ctx, scope.TenantID)
			ctx = platformlogging.Enrich(ctx, zap.String("tenant_id", scope.TenantID))
			if l, ok := platformlogging.FromContext(ctx); ok {
				platformlogging.Promote(ctx, l)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// scopeCache drops expired entries on lookup and sweeps the whole map at most
// once per TTL on insert, so it holds roughly the principals seen in the last two TTLs.
type scopeCache struct {
	ttl       time.Duration
	now       func() time.Time
	mu        sync.Mutex
	items     map[string]cacheItem
	lastSweep time.Time
}

type cacheItem struct {
	scope     tenant.Scope
	expiresAt time.Time
}

func newScopeCache(ttl time.Duration) *scopeCache {
	return &scopeCache{ttl: ttl, now: time.Now, items: make(map[string]cacheItem)}
}

func (c *scopeCache) get(uid string) (tenant.Scope, bool) {
	if c == nil {
		return tenant.Scope{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[uid]
	if !ok {
		return tenant.Scope{}, false
	}
	if c.now().After(item.expiresAt) {
		delete(c.items, uid)
		return tenant.Scope{}, false
	}
	return item.scope, true
}

func (c *scopeCache) put(uid string, scope tenant.Scope) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= c.ttl {
		for k, item := range c.items {
			if now.After(item.expiresAt) {
				delete(c.items, k)
			}
		}
		c.lastSweep = now
	}
	c.items[uid] = cacheItem{scope: scope, expiresAt: now.Add(c.ttl)}
}

func (c *scopeCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
