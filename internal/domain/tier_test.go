package domain

import "testing"

func testThresholds() TierThresholds {
	return TierThresholds{
		CoreDimensions:          []string{"identity-core", "boundaries-ethics"},
		CoreEvidenceThreshold:   6.0,
		DomainEvidenceThreshold: 4.0,
	}
}

func TestComputeTier(t *testing.T) {
	th := testThresholds()
	tests := []struct {
		name      string
		dimension string
		weight    float64
		want      AxiomTier
	}{
		{"core - identity above mark", "identity-core", 7.5, TierCore},
		{"core boundary - exactly at mark", "boundaries-ethics", 6.0, TierCore},
		{"domain - identity below core mark", "identity-core", 5.9, TierDomain},
		{"domain - non-core dimension above core mark", "voice-presence", 9.0, TierDomain},
		{"domain boundary - exactly at domain mark", "voice-presence", 4.0, TierDomain},
		{"emerging - below domain mark", "voice-presence", 3.99, TierEmerging},
		{"emerging - no dimension", "", 12.0, TierEmerging},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTier(tt.dimension, tt.weight, th)
			if got != tt.want {
				t.Errorf("ComputeTier(%q, %v) = %v, want %v", tt.dimension, tt.weight, got, tt.want)
			}
		})
	}
}

func TestTierReason(t *testing.T) {
	th := testThresholds()
	tests := []struct {
		dimension string
		weight    float64
	}{
		{"identity-core", 8},
		{"voice-presence", 5},
		{"", 1},
	}

	for _, tt := range tests {
		if reason := TierReason(tt.dimension, tt.weight, th); reason == "" {
			t.Errorf("TierReason(%q, %v) returned empty string", tt.dimension, tt.weight)
		}
	}
}

func TestValidTier(t *testing.T) {
	for _, tier := range []string{"core", "domain", "emerging"} {
		if !ValidTier(tier) {
			t.Errorf("ValidTier(%q) = false, want true", tier)
		}
	}

	for _, tier := range []string{"", "hot", "CORE", "Domain"} {
		if ValidTier(tier) {
			t.Errorf("ValidTier(%q) = true, want false", tier)
		}
	}
}

func TestAllTiers(t *testing.T) {
	tiers := AllTiers()
	if len(tiers) != 3 {
		t.Errorf("AllTiers() returned %d tiers, want 3", len(tiers))
	}
	for _, tier := range tiers {
		if !ValidTier(string(tier)) {
			t.Errorf("unexpected tier: %v", tier)
		}
	}
}
