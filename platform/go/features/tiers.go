package features

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tier is a subscription level. Tiers are totally ordered: trial < starter < professional < enterprise.
type Tier string

const (
	TierTrial        Tier = "trial"
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// DefaultTier is assigned to new tenants and used whenever a stored tier is missing or invalid.
const DefaultTier = TierTrial

var tierOrder = []Tier{TierTrial, TierStarter, TierProfessional, TierEnterprise}

// Limits caps usage per tier. A negative value means unlimited.
type Limits struct {
	Users         int `yaml:"users" json:"users"`
	LoadsPerMonth int `yaml:"loadsPerMonth" json:"loadsPerMonth"`
	Vehicles      int `yaml:"vehicles" json:"vehicles"`
}

// TierInfo is the display and pricing record for a tier.
type TierInfo struct {
	ID           Tier   `json:"id"`
	Name         string `json:"name"`
	PriceMonthly int    `json:"priceMonthly"`
	Limits       Limits `json:"limits"`
}

//go:embed tiers.yaml
var tiersYAML []byte

type tierFile struct {
	Tiers []struct {
		ID           string   `yaml:"id"`
		Name         string   `yaml:"name"`
		PriceMonthly int      `yaml:"priceMonthly"`
		Limits       Limits   `yaml:"limits"`
		Adds         []string `yaml:"adds"`
	} `yaml:"tiers"`
}

type matrix struct {
	info     map[Tier]TierInfo
	features map[Tier]map[Feature]struct{}
	ordered  map[Tier][]Feature
	// minimum maps each feature to the first tier that enables it.
	minimum map[Feature]Tier
	all     []Feature
}

var (
	shipped    = mustParseMatrix(tiersYAML)
	allOrdered = shipped.all
)

func mustParseMatrix(raw []byte) *matrix {
	m, err := parseMatrix(raw)
	if err != nil {
		panic(fmt.Sprintf("features: invalid tier definitions: %v", err))
	}
	return m
}

// parseMatrix builds cumulative feature sets as the ordered union of each tier's additions.
func parseMatrix(raw []byte) (*matrix, error) {
	var file tierFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode tiers: %w", err)
	}
	if len(file.Tiers) != len(tierOrder) {
		return nil, fmt.Errorf("expected %d tiers, got %d", len(tierOrder), len(file.Tiers))
	}

	m := &matrix{
		info:     make(map[Tier]TierInfo, len(tierOrder)),
		features: make(map[Tier]map[Feature]struct{}, len(tierOrder)),
		ordered:  make(map[Tier][]Feature, len(tierOrder)),
		minimum:  make(map[Feature]Tier),
	}

	var cumulative []Feature
	for i, def := range file.Tiers {
		tier := tierOrder[i]
		if Tier(strings.TrimSpace(def.ID)) != tier {
			return nil, fmt.Errorf("tier %d must be %q, got %q", i, tier, def.ID)
		}

		for _, raw := range def.Adds {
			f := Feature(strings.TrimSpace(raw))
			if !IsKnown(f) {
				return nil, fmt.Errorf("tier %q adds unknown feature %q", tier, raw)
			}
			if prev, dup := m.minimum[f]; dup {
				return nil, fmt.Errorf("feature %q declared by both %q and %q", f, prev, tier)
			}
			m.minimum[f] = tier
			cumulative = append(cumulative, f)
		}

		set := make(map[Feature]struct{}, len(cumulative))
		for _, f := range cumulative {
			set[f] = struct{}{}
		}
		m.features[tier] = set
		m.ordered[tier] = append([]Feature(nil), cumulative...)
		m.info[tier] = TierInfo{
			ID:           tier,
			Name:         def.Name,
			PriceMonthly: def.PriceMonthly,
			Limits:       def.Limits,
		}
	}

	m.all = append([]Feature(nil), cumulative...)
	return m, nil
}

// Tiers returns all tiers in ascending order.
func Tiers() []Tier {
	out := make([]Tier, len(tierOrder))
	copy(out, tierOrder)
	return out
}

// ParseTier validates a raw tier identifier. Invalid input yields DefaultTier and false.
func ParseTier(raw string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(raw)))
	if rank(t) < 0 {
		return DefaultTier, false
	}
	return t, true
}

// IsValid reports whether t is one of the known tiers.
func (t Tier) IsValid() bool {
	return rank(t) >= 0
}

func rank(t Tier) int {
	for i, candidate := range tierOrder {
		if candidate == t {
			return i
		}
	}
	return -1
}

// HasFeature reports whether tier enables f. Unknown tiers and features are never enabled.
func HasFeature(tier Tier, f Feature) bool {
	set, ok := shipped.features[tier]
	if !ok {
		return false
	}
	_, ok = set[f]
	return ok
}

// TierFeatures returns the features enabled by tier, in tier declaration order.
func TierFeatures(tier Tier) []Feature {
	return append([]Feature(nil), shipped.ordered[tier]...)
}

// MissingFeatures returns every catalogued feature tier does not enable.
func MissingFeatures(tier Tier) []Feature {
	missing := make([]Feature, 0, len(shipped.all))
	for _, f := range shipped.all {
		if !HasFeature(tier, f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// MinimumTierForFeature returns the lowest tier enabling f. Features no tier
// declares resolve to enterprise.
func MinimumTierForFeature(f Feature) Tier {
	for _, tier := range tierOrder {
		if HasFeature(tier, f) {
			return tier
		}
	}
	return TierEnterprise
}

// IsTierAtLeast reports whether a ranks at or above b. Unknown tiers rank below everything.
func IsTierAtLeast(a, b Tier) bool {
	ra, rb := rank(a), rank(b)
	if ra < 0 || rb < 0 {
		return false
	}
	return ra >= rb
}

// TierInfoFor returns display and pricing data for tier.
func TierInfoFor(tier Tier) (TierInfo, bool) {
	info, ok := shipped.info[tier]
	return info, ok
}

// MaxTier returns the higher ranked of the supplied tiers, or DefaultTier when none are given.
func MaxTier(tiers ...Tier) Tier {
	best := DefaultTier
	for _, t := range tiers {
		if rank(t) > rank(best) {
			best = t
		}
	}
	return best
}
