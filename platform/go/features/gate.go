package features

import (
	"fmt"
	"strings"
)

// UpgradePrompt names the cheapest tier unlocking a denied set of features.
type UpgradePrompt struct {
	CurrentTier  Tier      `json:"currentTier"`
	RequiredTier Tier      `json:"requiredTier"`
	TierName     string    `json:"tierName"`
	PriceMonthly int       `json:"priceMonthly"`
	Missing      []Feature `json:"missing"`
	Message      string    `json:"message"`
}

// Decision is the outcome of gating one or more features.
type Decision struct {
	Allowed  bool           `json:"allowed"`
	Features []Feature      `json:"features"`
	Upgrade  *UpgradePrompt `json:"upgrade,omitempty"`
}

// Gate decides whether c may use every feature in fs. When denied, the
// prompt names the highest minimum tier across the missing features, so
// upgrading to it unlocks the whole set. An empty feature list is denied.
func Gate(c Checker, fs ...Feature) Decision {
	d := Decision{Features: append([]Feature(nil), fs...)}
	if c != nil && len(fs) > 0 && canAll(c, fs) {
		d.Allowed = true
		return d
	}

	current := DefaultTier
	if c != nil && c.Tier().IsValid() {
		current = c.Tier()
	}

	var missing []Feature
	required := DefaultTier
	for _, f := range fs {
		if c != nil && c.Can(f) {
			continue
		}
		missing = append(missing, f)
		required = MaxTier(required, MinimumTierForFeature(f))
	}
	if len(missing) == 0 {
		required = TierEnterprise
	}

	info, _ := TierInfoFor(required)
	d.Upgrade = &UpgradePrompt{
		CurrentTier:  current,
		RequiredTier: required,
		TierName:     info.Name,
		PriceMonthly: info.PriceMonthly,
		Missing:      missing,
		Message:      upgradeMessage(missing, info),
	}
	return d
}

func upgradeMessage(missing []Feature, info TierInfo) string {
	names := make([]string, 0, len(missing))
	for _, f := range missing {
		fi, _ := FeatureInfoFor(f)
		names = append(names, fi.Name)
	}
	subject := "This feature"
	if len(names) > 0 {
		subject = strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s requires the %s plan ($%d/month)", subject, info.Name, info.PriceMonthly)
}

// AccessError reports a denied feature request.
type AccessError struct {
	Decision Decision
}

func (e *AccessError) Error() string {
	if e.Decision.Upgrade == nil {
		return "feature not available"
	}
	return e.Decision.Upgrade.Message
}
