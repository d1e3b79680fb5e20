package features

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTierFeaturesAreMonotonic(t *testing.T) {
	t.Parallel()

	tiers := Tiers()
	for i := 1; i < len(tiers); i++ {
		lower, higher := tiers[i-1], tiers[i]
		for _, f := range TierFeatures(lower) {
			require.Truef(t, HasFeature(higher, f), "%s enables %s but %s does not", lower, f, higher)
		}
	}
}

func TestEveryCatalogFeatureHasATier(t *testing.T) {
	t.Parallel()

	for f := range catalog {
		require.Truef(t, HasFeature(TierEnterprise, f), "feature %s is not enabled by any tier", f)
	}
	require.Len(t, AllFeatures(), len(catalog))
}

func TestMinimumTierForFeature(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		feature Feature
		want    Tier
	}{
		{name: "enterprise only", feature: SSO, want: TierEnterprise},
		{name: "all tiers", feature: Dashboard, want: TierTrial},
		{name: "starter addition", feature: Invoicing, want: TierStarter},
		{name: "professional addition", feature: LiveTracking, want: TierProfessional},
		{name: "unknown falls back to enterprise", feature: Feature("teleportation"), want: TierEnterprise},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, MinimumTierForFeature(tc.feature))
		})
	}
}

func TestHasFeatureFailsClosed(t *testing.T) {
	t.Parallel()

	require.False(t, HasFeature(TierTrial, Feature("unknown_feature_string")))
	require.False(t, HasFeature(Tier("platinum"), Dashboard))
	require.False(t, HasFeature(Tier(""), Dashboard))
	require.True(t, HasFeature(TierTrial, LoadManagement))
}

func TestMissingFeaturesComplementTierFeatures(t *testing.T) {
	t.Parallel()

	for _, tier := range Tiers() {
		have := TierFeatures(tier)
		missing := MissingFeatures(tier)
		require.Len(t, append(have, missing...), len(AllFeatures()))
		for _, f := range missing {
			require.False(t, HasFeature(tier, f))
		}
	}
	require.Empty(t, MissingFeatures(TierEnterprise))
	require.Len(t, MissingFeatures(Tier("bogus")), len(AllFeatures()))
}

func TestIsTierAtLeast(t *testing.T) {
	t.Parallel()

	require.True(t, IsTierAtLeast(TierProfessional, TierStarter))
	require.True(t, IsTierAtLeast(TierStarter, TierStarter))
	require.False(t, IsTierAtLeast(TierTrial, TierStarter))
	require.False(t, IsTierAtLeast(Tier("gold"), TierTrial))
}

func TestParseTier(t *testing.T) {
	t.Parallel()

	tier, ok := ParseTier(" Professional ")
	require.True(t, ok)
	require.Equal(t, TierProfessional, tier)

	tier, ok = ParseTier("diamond")
	require.False(t, ok)
	require.Equal(t, TierTrial, tier)
}

func TestParseMatrixRejectsBadDefinitions(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown feature": `
tiers:
  - {id: trial, adds: [dashboard, hoverboards]}
  - {id: starter}
  - {id: professional}
  - {id: enterprise}`,
		"out of order": `
tiers:
  - {id: starter}
  - {id: trial}
  - {id: professional}
  - {id: enterprise}`,
		"duplicate feature": `
tiers:
  - {id: trial, adds: [dashboard]}
  - {id: starter, adds: [dashboard]}
  - {id: professional}
  - {id: enterprise}`,
		"missing tier": `
tiers:
  - {id: trial}`,
	}

	for name, raw := range cases {
		raw := raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := parseMatrix([]byte(raw))
			require.Error(t, err)
		})
	}
}

func TestGateLiveTrackingUnderStarter(t *testing.T) {
	t.Parallel()

	d := Gate(For(TierStarter), LiveTracking)
	require.False(t, d.Allowed)
	require.NotNil(t, d.Upgrade)
	require.Equal(t, TierProfessional, d.Upgrade.RequiredTier)
	require.Equal(t, "Professional", d.Upgrade.TierName)
	require.Equal(t, 149, d.Upgrade.PriceMonthly)
	require.Equal(t, []Feature{LiveTracking}, d.Upgrade.Missing)
	require.Contains(t, d.Upgrade.Message, "$149")
}

func TestGateMultipleFeaturesNamesHighestTier(t *testing.T) {
	t.Parallel()

	d := Gate(For(TierTrial), Dashboard, Invoicing, SSO)
	require.False(t, d.Allowed)
	require.Equal(t, TierEnterprise, d.Upgrade.RequiredTier)
	require.Equal(t, []Feature{Invoicing, SSO}, d.Upgrade.Missing)
}

func TestGateAllowed(t *testing.T) {
	t.Parallel()

	d := Gate(For(TierProfessional), LiveTracking, Invoicing)
	require.True(t, d.Allowed)
	require.Nil(t, d.Upgrade)
}

func TestGateWithoutFeaturesDenies(t *testing.T) {
	t.Parallel()

	d := Gate(For(TierEnterprise))
	require.False(t, d.Allowed)
}

func TestGateWithoutTierReportsDefaultTier(t *testing.T) {
	t.Parallel()

	d := Gate(Bound{}, Dashboard)
	require.False(t, d.Allowed)
	require.Equal(t, DefaultTier, d.Upgrade.CurrentTier)
	require.Equal(t, []Feature{Dashboard}, d.Upgrade.Missing)
}
