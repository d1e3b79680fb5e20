package features

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DemoTierKey is the namespaced preference key holding the demo subscription tier.
const DemoTierKey = "freightdesk:prefs:demo-tier"

// ErrInvalidTier is returned when a tier identifier is not one of the known tiers.
var ErrInvalidTier = errors.New("invalid subscription tier")

// Checker answers feature questions for one resolved tier.
type Checker interface {
	Tier() Tier
	Can(f Feature) bool
}

// PreferenceStore is the durable key/value store backing the demo tier.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Bound is a Checker fixed to a single tier. Its zero value answers for no tier and denies everything.
type Bound struct {
	tier Tier
}

// For binds the feature queries to tier.
func For(tier Tier) Bound {
	return Bound{tier: tier}
}

func (b Bound) Tier() Tier { return b.tier }

func (b Bound) Can(f Feature) bool { return HasFeature(b.tier, f) }

func (b Bound) CanAll(fs ...Feature) bool { return canAll(b, fs) }

func (b Bound) CanAny(fs ...Feature) bool { return canAny(b, fs) }

// Access holds the current tier and exposes bound feature queries. It starts
// uninitialized; every query denies until Load resolves the tier.
type Access struct {
	store PreferenceStore
	key   string

	mu    sync.RWMutex
	ready bool
	tier  Tier
}

// NewAccess builds an Access backed by store under DemoTierKey.
func NewAccess(store PreferenceStore) *Access {
	if store == nil {
		panic("features: preference store is required")
	}
	return &Access{store: store, key: DemoTierKey}
}

// Load resolves the tier from the preference store. A missing or unrecognised
// value resolves to DefaultTier. Store failures leave Access uninitialized.
func (a *Access) Load(ctx context.Context) error {
	raw, found, err := a.store.Get(ctx, a.key)
	if err != nil {
		return fmt.Errorf("load tier preference: %w", err)
	}

	tier := DefaultTier
	if found {
		tier, _ = ParseTier(raw)
	}

	a.mu.Lock()
	a.tier = tier
	a.ready = true
	a.mu.Unlock()
	return nil
}

// IsLoading reports whether the tier has not been resolved yet.
func (a *Access) IsLoading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return !a.ready
}

// Tier returns the resolved tier, or DefaultTier while loading.
func (a *Access) Tier() Tier {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.ready {
		return DefaultTier
	}
	return a.tier
}

func (a *Access) current() (Tier, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tier, a.ready
}

// Snapshot fixes the current tier in an immutable Checker, so a concurrent
// SetTier or Load cannot change answers mid-request. It denies everything while loading.
func (a *Access) Snapshot() Bound {
	tier, ready := a.current()
	if !ready {
		return Bound{}
	}
	return For(tier)
}

// Can reports whether the current tier enables f.
func (a *Access) Can(f Feature) bool {
	tier, ready := a.current()
	return ready && HasFeature(tier, f)
}

// CanAll reports whether every feature is enabled. An empty list is not a grant.
func (a *Access) CanAll(fs ...Feature) bool { return canAll(a, fs) }

// CanAny reports whether at least one feature is enabled.
func (a *Access) CanAny(fs ...Feature) bool { return canAny(a, fs) }

// MissingFeatures lists the catalogued features the current tier lacks.
func (a *Access) MissingFeatures() []Feature {
	tier, ready := a.current()
	if !ready {
		return AllFeatures()
	}
	return MissingFeatures(tier)
}

// AvailableFeatures lists the features the current tier enables.
func (a *Access) AvailableFeatures() []Feature {
	tier, ready := a.current()
	if !ready {
		return []Feature{}
	}
	return TierFeatures(tier)
}

// RequiredTier returns the minimum tier that enables f.
func (a *Access) RequiredTier(f Feature) Tier {
	return MinimumTierForFeature(f)
}

// FeatureInfo returns the catalog entry for f.
func (a *Access) FeatureInfo(f Feature) Info {
	info, _ := FeatureInfoFor(f)
	return info
}

// SetTier switches the current tier and persists it. The in-memory tier only
// changes once the store accepted the write.
func (a *Access) SetTier(ctx context.Context, tier Tier) error {
	if !tier.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}
	if err := a.store.Set(ctx, a.key, string(tier)); err != nil {
		return fmt.Errorf("persist tier preference: %w", err)
	}

	a.mu.Lock()
	a.tier = tier
	a.ready = true
	a.mu.Unlock()
	return nil
}

func canAll(c Checker, fs []Feature) bool {
	if len(fs) == 0 {
		return false
	}
	for _, f := range fs {
		if !c.Can(f) {
			return false
		}
	}
	return true
}

func canAny(c Checker, fs []Feature) bool {
	for _, f := range fs {
		if c.Can(f) {
			return true
		}
	}
	return false
}
